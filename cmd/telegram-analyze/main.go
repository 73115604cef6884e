// Command telegram-analyze decodes single telegrams from the command line,
// an interactive prompt, a capture file or the gateway's journal.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-telegrams/internal/bridges/dsmr"
	"github.com/nerrad567/gray-logic-telegrams/internal/bridges/enocean"
	"github.com/nerrad567/gray-logic-telegrams/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-telegrams/internal/infrastructure/logging"
)

var version = "dev"

var (
	flagFamily   string
	flagProfile  string
	flagInverted bool
	flagList     bool
	flagFile     string
	flagJSON     bool
	flagVerbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "telegram-analyze [telegram]",
	Short: "Decode EnOcean, DSMR and KNX telegrams",
	Long: `Decode a telegram and print its validation state and channel values.

EnOcean ESP3 frames and knxd packets are given as hex. DSMR telegrams are
given as text starting with '/' (use \n for line breaks) or as hex.

Without a telegram argument or --file, telegrams are read from stdin one
per line. DSMR telegrams on stdin end at the line starting with '!'.

Teach-in telegrams and DSMR meters decode without --profile. Other
devices need their profile, e.g. --profile A5-02-05 or --profile 9.001.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if flagList {
			return listProfiles(out, flagFamily)
		}

		a, err := newAnalyzer(analyzeOptions{
			Family:   flagFamily,
			Profile:  flagProfile,
			Inverted: flagInverted,
		}, cliLogger(cmd.ErrOrStderr()))
		if err != nil {
			return err
		}

		switch {
		case flagFile != "":
			return runFile(a, out, flagFile)
		case len(args) == 1:
			return runAnalyze(a, out, args[0])
		default:
			return runInteractive(cmd.Context(), a, cmd.InOrStdin(), out)
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagFamily, "family", "f", enocean.FamilyName,
		"telegram family: "+strings.Join(config.Families, ", "))
	pf.BoolVar(&flagJSON, "json", false, "print results as JSON")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "log decoder diagnostics to stderr")

	f := rootCmd.Flags()
	f.StringVarP(&flagProfile, "profile", "p", "", "decode every sender with this profile (EEP or DPT)")
	f.BoolVar(&flagInverted, "inverted", false, "invert boolean channels of --profile")
	f.BoolVar(&flagList, "list", false, "list the profiles registered for --family")
	f.StringVar(&flagFile, "file", "", "decode every telegram in a capture file")

	rootCmd.AddCommand(journalCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rootCmd.Version = version
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func cliLogger(w io.Writer) *logging.Logger {
	if !flagVerbose {
		return logging.Discard()
	}
	return logging.NewWithWriter(config.LoggingConfig{Level: "debug", Format: "text"}, version, w)
}

func runAnalyze(a *analyzer, out io.Writer, input string) error {
	data, err := parseInput(a.family.Name(), input)
	if err != nil {
		return err
	}
	return printResult(a, out, data)
}

func printResult(a *analyzer, out io.Writer, data []byte) error {
	r := newReport(a.decode(data))
	if flagJSON {
		return writeJSON(out, r)
	}
	return writeText(out, r)
}

func runFile(a *analyzer, out io.Writer, path string) error {
	f, err := os.Open(path) //nolint:gosec // path is an operator-supplied flag
	if err != nil {
		return err
	}
	defer f.Close()

	frames, err := splitCapture(a.family.Name(), f)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if len(frames) == 0 {
		return fmt.Errorf("no %s telegrams found in %s", a.family.Name(), path)
	}
	for i, frame := range frames {
		if i > 0 && !flagJSON {
			fmt.Fprintln(out)
		}
		if err := printResult(a, out, frame); err != nil {
			return err
		}
	}
	return nil
}

func runInteractive(ctx context.Context, a *analyzer, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "telegram-analyze %s (%s) - enter telegrams, Ctrl+D to exit\n", version, a.family.Name())

	dsmrText := a.family.Name() == dsmr.FamilyName
	var pending []string

	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 4096), 64*1024)
	fmt.Fprint(out, "> ")
	for sc.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(sc.Text())

		if dsmrText && (len(pending) > 0 || strings.HasPrefix(line, "/")) {
			pending = append(pending, line)
			if !strings.HasPrefix(line, "!") {
				continue
			}
			line = strings.Join(pending, `\n`)
			pending = nil
		}

		if line != "" {
			if err := runAnalyze(a, out, line); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		}
		fmt.Fprint(out, "> ")
	}
	fmt.Fprintln(out)
	return sc.Err()
}
