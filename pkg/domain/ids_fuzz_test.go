//go:build go1.18

package domain

import (
	"testing"
	"unicode/utf8"
)

// FuzzParseID tests that parsing never panics on arbitrary input
// and always returns either a valid ID or an error.
func FuzzParseID(f *testing.F) {
	f.Add("")
	f.Add("65f1c0ffee00000000000001")
	f.Add("000000000000000000000000")
	f.Add("65F1C0FFEE00000000000001")
	f.Add("'; DROP TABLE trees;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))
	f.Add("65f1c0ffee00000000000001\x00suffix")

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseID(input)

		if err == nil {
			if id.String() != input {
				t.Errorf("accepted non-canonical form %q", input)
			}
			roundTrip, err2 := ParseID(id.String())
			if err2 != nil {
				t.Errorf("valid ID failed round-trip: %v", err2)
			}
			if roundTrip != id {
				t.Error("round-trip changed ID value")
			}
		}

		if !utf8.ValidString(input) && err == nil {
			t.Error("non-UTF8 input was accepted")
		}
	})
}

// FuzzParseDate checks that accepted dates render back to the input.
func FuzzParseDate(f *testing.F) {
	f.Add("2024-03-01")
	f.Add("2024-02-29")
	f.Add("2023-02-29")
	f.Add("")
	f.Add("9999-12-31")

	f.Fuzz(func(t *testing.T, input string) {
		d, err := ParseDate("date", input)
		if err != nil {
			return
		}
		if d.String() != input {
			t.Errorf("ParseDate(%q) rendered as %q", input, d.String())
		}
	})
}
