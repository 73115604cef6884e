// Package testutil loads shared fixtures from the repository testdata
// directory.
package testutil

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// LoadJSON decodes a JSON fixture into v.
func LoadJSON(t *testing.T, rel string, v any) {
	t.Helper()
	data := readTestdata(t, rel)
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decode %s: %v", rel, err)
	}
}

// LoadHex returns the bytes of a hex fixture. Whitespace is ignored so
// fixtures can be wrapped.
func LoadHex(t *testing.T, rel string) []byte {
	t.Helper()
	s := strings.Join(strings.Fields(string(readTestdata(t, rel))), "")
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("decode hex %s: %v", rel, err)
	}
	return b
}

// LoadText returns a text fixture with line endings normalised to CRLF,
// as sent by smart meters.
func LoadText(t *testing.T, rel string) []byte {
	t.Helper()
	s := strings.ReplaceAll(string(readTestdata(t, rel)), "\r\n", "\n")
	return []byte(strings.ReplaceAll(s, "\n", "\r\n"))
}

func readTestdata(t *testing.T, rel string) []byte {
	t.Helper()
	candidates := []string{
		filepath.Join("testdata", rel),
		filepath.Join("..", "testdata", rel),
		filepath.Join("..", "..", "testdata", rel),
		filepath.Join("..", "..", "..", "testdata", rel),
	}
	for _, path := range candidates {
		if data, err := os.ReadFile(path); err == nil {
			return data
		}
	}
	t.Fatalf("unable to locate testdata file %s", rel)
	return nil
}
