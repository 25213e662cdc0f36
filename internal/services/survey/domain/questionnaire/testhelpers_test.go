package questionnaire

import (
	"bytes"
	"testing"
)

func mustBuiltin(t *testing.T, id string) Definition {
	t.Helper()
	def, err := Builtin(id)
	if err != nil {
		t.Fatalf("Builtin(%q): %v", id, err)
	}
	return def
}

func payload(n int) []byte {
	return bytes.Repeat([]byte{0x89}, n)
}

func float(v float64) *float64 { return &v }
