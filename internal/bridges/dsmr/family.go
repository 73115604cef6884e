package dsmr

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sigurn/crc16"

	"github.com/nerrad567/gray-logic-telegrams/internal/telegram"
)

var crcTable = crc16.MakeTable(crc16.CRC16_ARC)

var crlf = []byte("\r\n")

// minTelegramLen is the shortest buffer accepted as a P1 telegram.
const minTelegramLen = 16

// Family is the DSMR P1 telegram family.
type Family struct{}

var _ telegram.Family = Family{}

// Name returns "dsmr".
func (Family) Name() string { return FamilyName }

// frame is the envelope of a P1 telegram.
type frame struct {
	header string
	body   []byte
	crc    []byte // empty for meters without CRC
	signed []byte // bytes covered by the CRC
}

func parseFrame(data []byte) (frame, error) {
	if len(data) < minTelegramLen {
		return frame{}, fmt.Errorf("%w: %d bytes, need at least %d", ErrInvalidTelegram, len(data), minTelegramLen)
	}
	if data[0] != '/' {
		return frame{}, fmt.Errorf("%w: expected '/' at start", ErrInvalidTelegram)
	}

	hdrEnd := bytes.Index(data, crlf)
	if hdrEnd < 2 {
		return frame{}, fmt.Errorf("%w: no header line", ErrInvalidTelegram)
	}

	bang := bytes.LastIndexByte(data, '!')
	if bang < hdrEnd {
		return frame{}, fmt.Errorf("%w: no '!' end marker", ErrInvalidTelegram)
	}

	tail := data[bang+1:]
	if !bytes.HasSuffix(tail, crlf) {
		return frame{}, fmt.Errorf(`%w: expected "\r\n" after end marker`, ErrInvalidTelegram)
	}
	crc := tail[:len(tail)-2]
	if len(crc) != 0 && len(crc) != 4 {
		return frame{}, fmt.Errorf("%w: CRC must be 4 hex digits, got %q", ErrInvalidTelegram, crc)
	}

	return frame{
		header: string(data[1:hdrEnd]),
		body:   data[hdrEnd+2 : bang],
		crc:    crc,
		signed: data[:bang+1],
	}, nil
}

func checkCRC(f frame) error {
	if len(f.crc) == 0 {
		return nil
	}
	want, err := strconv.ParseUint(string(f.crc), 16, 16)
	if err != nil {
		return fmt.Errorf("%w: CRC %q is not hex", ErrInvalidTelegram, f.crc)
	}
	if got := crc16.Checksum(f.signed, crcTable); uint64(got) != want {
		return fmt.Errorf("%w: telegram says %04X, computed %04X", ErrChecksum, want, got)
	}
	return nil
}

// Validate checks the envelope and, when present, the CRC16.
func (Family) Validate(data []byte) telegram.State {
	f, err := parseFrame(data)
	if err == nil {
		err = checkCRC(f)
	}
	switch {
	case err == nil:
		return telegram.StateOK
	case errors.Is(err, ErrChecksum):
		return telegram.StateChecksumError
	default:
		return telegram.StateMalformed
	}
}

// IsTeachIn is always false; meters announce nothing.
func (Family) IsTeachIn([]byte) bool { return false }

// Split returns one unit per COSEM object. Lines starting with '(' continue
// the previous object, as older meters wrap long values.
func (Family) Split(data []byte) ([]telegram.Unit, error) {
	f, err := parseFrame(data)
	if err != nil {
		return nil, err
	}

	var lines []string
	for _, line := range strings.Split(string(f.body), "\r\n") {
		switch {
		case line == "":
		case line[0] == '(' && len(lines) > 0:
			lines[len(lines)-1] += line
		default:
			lines = append(lines, line)
		}
	}

	units := make([]telegram.Unit, 0, len(lines))
	for _, line := range lines {
		i := strings.IndexByte(line, '(')
		if i < 0 {
			return nil, fmt.Errorf("%w: line %q has no value", ErrInvalidTelegram, line)
		}
		key, err := ParseOBIS(line[:i])
		if err != nil {
			return nil, err
		}
		units = append(units, telegram.Unit{
			Address: f.header,
			Key:     key,
			Payload: []byte(line[i:]),
		})
	}
	return units, nil
}

// ParseKey parses an OBIS code.
func (Family) ParseKey(s string) (telegram.ProfileKey, error) {
	return ParseOBIS(s)
}

// SplitTelegram is a bufio.SplitFunc that frames P1 telegrams out of a
// serial stream: from '/' through '!', the optional CRC and CRLF.
func SplitTelegram(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := bytes.IndexByte(data, '/')
	if start < 0 {
		return len(data), nil, nil
	}

	bang := bytes.IndexByte(data[start:], '!')
	if bang < 0 {
		return incomplete(data, start, atEOF)
	}
	bang += start

	rest := data[bang+1:]
	if bytes.HasPrefix(rest, crlf) {
		end := bang + 1 + len(crlf)
		return end, data[start:end], nil
	}
	if len(rest) < 4+len(crlf) {
		return incomplete(data, start, atEOF)
	}
	end := bang + 1 + 4 + len(crlf)
	return end, data[start:end], nil
}

func incomplete(data []byte, start int, atEOF bool) (int, []byte, error) {
	if atEOF {
		return len(data), nil, nil
	}
	return start, nil, nil
}
