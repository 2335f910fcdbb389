package cli

import (
	"encoding/json"
	"errors"
	"testing"
)

func FuzzErrorJSON(f *testing.F) {
	f.Add("connection refused")
	f.Add(`quoted "value"`)
	f.Add("line\nbreak")
	f.Add("\x00\xff")
	f.Add("")

	f.Fuzz(func(t *testing.T, msg string) {
		out := errorJSON(errors.New(msg))
		if !json.Valid([]byte(out)) {
			t.Fatalf("invalid JSON for %q: %s", msg, out)
		}
	})
}
