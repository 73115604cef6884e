package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-telegrams/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-telegrams/internal/store"
)

var (
	flagDB      string
	flagOutcome string
	flagLimit   int
	flagDecode  bool
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "List telegrams recorded by telegramd",
	Long: `List the most recent telegrams in a telegramd journal database.

With --decode every entry is decoded again with the current decoders, so
rejected or unsupported telegrams can be inspected after the fact.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		family := ""
		if cmd.Flags().Changed("family") {
			family = flagFamily
		}
		return runJournal(cmd, journalOptions{
			Path:    flagDB,
			Family:  family,
			Outcome: flagOutcome,
			Limit:   flagLimit,
			Decode:  flagDecode,
		})
	},
}

func init() {
	f := journalCmd.Flags()
	f.StringVar(&flagDB, "db", "./data/telegramd.db", "path to the telegramd database")
	f.StringVar(&flagOutcome, "outcome", "", "only entries with this outcome (decoded, rejected, unbound, ...)")
	f.IntVarP(&flagLimit, "limit", "n", 50, "maximum number of entries")
	f.BoolVar(&flagDecode, "decode", false, "decode every entry again")
}

type journalOptions struct {
	Path    string
	Family  string
	Outcome string
	Limit   int
	Decode  bool
}

func runJournal(cmd *cobra.Command, opts journalOptions) error {
	// Open would create an empty database.
	if _, err := os.Stat(opts.Path); err != nil {
		return fmt.Errorf("journal database: %w", err)
	}
	db, err := database.Open(database.Config{Path: opts.Path, BusyTimeout: 5})
	if err != nil {
		return err
	}
	defer db.Close()

	entries, err := store.NewSQLiteJournalRepository(db.DB).Recent(cmd.Context(), store.JournalFilter{
		Family:  opts.Family,
		Outcome: opts.Outcome,
		Limit:   opts.Limit,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !opts.Decode {
		return writeJournal(out, entries)
	}

	analyzers := make(map[string]*analyzer)
	logger := cliLogger(cmd.ErrOrStderr())
	for i, e := range entries {
		a, ok := analyzers[e.Family]
		if !ok {
			if a, err = newAnalyzer(analyzeOptions{Family: e.Family}, logger); err != nil {
				return err
			}
			analyzers[e.Family] = a
		}
		data, err := hex.DecodeString(e.Hex)
		if err != nil {
			return fmt.Errorf("journal entry %s: %w", e.ID, err)
		}
		if !flagJSON {
			if i > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "# %s %s from %s\n", e.ReceivedAt.Format(time.RFC3339), e.ID, e.Source)
		}
		if err := printResult(a, out, data); err != nil {
			return err
		}
	}
	return nil
}

func writeJournal(w io.Writer, entries []store.JournalEntry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RECEIVED\tFAMILY\tSOURCE\tSTATE\tOUTCOME\tTELEGRAM")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.ReceivedAt.Local().Format(time.DateTime), e.Family, e.Source, e.State, e.Outcome, e.Hex)
	}
	return tw.Flush()
}
