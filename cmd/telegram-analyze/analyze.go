package main

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/nerrad567/gray-logic-telegrams/internal/bridges/dsmr"
	"github.com/nerrad567/gray-logic-telegrams/internal/gateway"
	"github.com/nerrad567/gray-logic-telegrams/internal/telegram"
)

// source is the Source of every telegram decoded by the analyzer.
const source = "cli"

type analyzeOptions struct {
	Family   string
	Profile  string
	Inverted bool
}

// analyzer decodes telegrams one at a time. Prior state is kept between
// telegrams so interactive sequences (rocker press then release) resolve.
type analyzer struct {
	family     telegram.Family
	registry   *telegram.Registry
	bindings   *telegram.Bindings
	dispatcher *telegram.Dispatcher
	profile    telegram.ProfileKey
	inverted   bool
}

func newAnalyzer(opts analyzeOptions, logger telegram.Logger) (*analyzer, error) {
	family, err := gateway.LookupFamily(opts.Family)
	if err != nil {
		return nil, err
	}
	reg, err := gateway.NewRegistry()
	if err != nil {
		return nil, err
	}

	a := &analyzer{
		family:   family,
		registry: reg,
		bindings: telegram.NewBindings(),
		inverted: opts.Inverted,
	}
	if opts.Profile != "" {
		if a.profile, err = family.ParseKey(opts.Profile); err != nil {
			return nil, err
		}
	}

	a.dispatcher, err = telegram.NewDispatcher(telegram.DispatcherOptions{
		Family:   family,
		Registry: reg,
		Bindings: a.bindings,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// parseInput turns a command-line telegram into raw bytes: DSMR text
// starting with '/', otherwise hex with optional spaces, colons or dashes.
func parseInput(family, s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if family == dsmr.FamilyName && strings.HasPrefix(s, "/") {
		return crlfText(s), nil
	}

	clean := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', ':', '-':
			return -1
		}
		return r
	}, s)
	clean = strings.TrimPrefix(strings.TrimPrefix(clean, "0x"), "0X")

	b, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid hex telegram: %w", err)
	}
	return b, nil
}

// crlfText normalises line endings to CRLF as sent by smart meters. A
// literal "\n" typed on the command line counts as a line break.
func crlfText(s string) []byte {
	s = strings.ReplaceAll(s, `\r\n`, "\n")
	s = strings.ReplaceAll(s, `\n`, "\n")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimRight(s, "\n") + "\n"
	return []byte(strings.ReplaceAll(s, "\n", "\r\n"))
}

// decode binds the telegram's addresses to the forced profile, if any,
// and dispatches it.
func (a *analyzer) decode(data []byte) telegram.Result {
	if a.profile != nil {
		a.bindProfile(data)
	}
	return a.dispatcher.Dispatch(telegram.NewRawTelegram(a.family.Name(), source, data))
}

func (a *analyzer) bindProfile(data []byte) {
	if a.family.Validate(data) != telegram.StateOK {
		return
	}
	units, err := a.family.Split(data)
	if err != nil {
		return
	}

	var channels map[string]telegram.ChannelBinding
	if a.inverted {
		if dec, err := a.registry.Lookup(a.profile); err == nil {
			channels = make(map[string]telegram.ChannelBinding)
			for _, ch := range dec.Channels() {
				channels[ch] = telegram.ChannelBinding{Config: telegram.ChannelConfig{Inverted: true}}
			}
		}
	}

	for _, u := range units {
		if _, ok := a.bindings.Get(a.family.Name(), u.Address); ok {
			continue
		}
		//nolint:errcheck // all fields are set
		a.bindings.Put(telegram.Binding{
			DeviceID: u.Address,
			Family:   a.family.Name(),
			Address:  u.Address,
			Key:      a.profile,
			Channels: channels,
		})
	}
}

// splitCapture frames a capture file with the family's stream framing.
func splitCapture(family string, r io.Reader) ([][]byte, error) {
	split, err := gateway.SplitFunc(family)
	if err != nil {
		return nil, err
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 512), 64*1024)
	sc.Split(split)

	var frames [][]byte
	for sc.Scan() {
		frames = append(frames, bytes.Clone(sc.Bytes()))
	}
	return frames, sc.Err()
}

// ─── Output ───────────────────────────────────────────────────────

type reportValue struct {
	Device  string         `json:"device"`
	Address string         `json:"address"`
	Channel string         `json:"channel"`
	Profile string         `json:"profile"`
	Value   telegram.Value `json:"value"`
}

type reportTeachIn struct {
	Address string `json:"address"`
	Profile string `json:"profile,omitempty"`
}

type report struct {
	ID          string          `json:"id"`
	Family      string          `json:"family"`
	Hex         string          `json:"hex"`
	State       string          `json:"state"`
	Outcome     string          `json:"outcome"`
	Error       string          `json:"error,omitempty"`
	TeachIns    []reportTeachIn `json:"teach_ins,omitempty"`
	Values      []reportValue   `json:"values,omitempty"`
	Unsupported []string        `json:"unsupported,omitempty"`
	Unbound     []string        `json:"unbound,omitempty"`
}

func newReport(res telegram.Result) report {
	r := report{
		ID:      res.Telegram.ID.String(),
		Family:  res.Family,
		Hex:     res.Telegram.Hex(),
		State:   res.State.String(),
		Outcome: string(res.Outcome()),
		Unbound: res.Unbound,
	}
	if res.Err != nil {
		r.Error = res.Err.Error()
	}
	for _, ti := range res.TeachIns {
		t := reportTeachIn{Address: ti.Address}
		if ti.Key != nil {
			t.Profile = ti.Key.String()
		}
		r.TeachIns = append(r.TeachIns, t)
	}
	for _, cv := range res.Values {
		r.Values = append(r.Values, reportValue{
			Device:  cv.DeviceID,
			Address: cv.Address,
			Channel: cv.Channel,
			Profile: cv.Key.String(),
			Value:   cv.Value,
		})
	}
	for _, k := range res.Unsupported {
		r.Unsupported = append(r.Unsupported, k.String())
	}
	return r
}

func writeJSON(w io.Writer, r report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func writeText(w io.Writer, r report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "telegram:\t%s\n", r.Hex)
	fmt.Fprintf(tw, "family:\t%s\n", r.Family)
	fmt.Fprintf(tw, "state:\t%s\n", r.State)
	fmt.Fprintf(tw, "outcome:\t%s\n", r.Outcome)
	if r.Error != "" {
		fmt.Fprintf(tw, "error:\t%s\n", r.Error)
	}
	for _, t := range r.TeachIns {
		profile := t.Profile
		if profile == "" {
			profile = "(no profile announced)"
		}
		fmt.Fprintf(tw, "teach-in:\t%s from %s\n", profile, t.Address)
	}
	for _, k := range r.Unsupported {
		fmt.Fprintf(tw, "unsupported:\t%s\n", k)
	}
	for _, a := range r.Unbound {
		fmt.Fprintf(tw, "unbound:\t%s (use --profile)\n", a)
	}
	if len(r.Values) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "DEVICE\tPROFILE\tCHANNEL\tVALUE")
		for _, v := range r.Values {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", v.Device, v.Profile, v.Channel, v.Value)
		}
	}
	return tw.Flush()
}

// listProfiles prints the registered profiles of a family with their
// channels.
func listProfiles(w io.Writer, family string) error {
	reg, err := gateway.NewRegistry()
	if err != nil {
		return err
	}

	type entry struct {
		key      string
		channels []string
	}
	var entries []entry
	for _, key := range reg.Keys() {
		if key.Family() != family {
			continue
		}
		dec, err := reg.Lookup(key)
		if err != nil {
			return err
		}
		entries = append(entries, entry{key.String(), dec.Channels()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROFILE\tCHANNELS")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\n", e.key, strings.Join(e.channels, ", "))
	}
	return tw.Flush()
}
