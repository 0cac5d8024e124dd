package generate

import (
	"errors"
	"testing"
)

func TestCleanModelJSON(t *testing.T) {
	bare := `{"languages":{"en":{"summary":{"score":3}}}}`

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"already clean", bare, bare},
		{"surrounding whitespace", "  \n" + bare + "\n\t", bare},
		{"lowercase fence", "```json\n" + bare + "\n```", bare},
		{"uppercase fence", "```JSON\n" + bare + "\n```", bare},
		{"bare fence", "```\n" + bare + "\n```", bare},
		{"leading prose", "Here is the analysis you asked for:\n" + bare, bare},
		{"trailing prose", bare + "\nLet me know if you need anything else.", bare},
		{"prose both sides", "Sure! " + bare + " Hope that helps.", bare},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := CleanModelJSON(tc.in)
			if err != nil {
				t.Fatalf("CleanModelJSON(%q): %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("CleanModelJSON(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestCleanModelJSONIdempotent(t *testing.T) {
	in := "```json\n{\"a\": 1}\n```"
	once, err := CleanModelJSON(in)
	if err != nil {
		t.Fatalf("first clean: %v", err)
	}
	twice, err := CleanModelJSON(once)
	if err != nil {
		t.Fatalf("second clean: %v", err)
	}
	if once != twice {
		t.Fatalf("clean not idempotent: %q vs %q", once, twice)
	}

	direct, err := CleanModelJSON(`{"a": 1}`)
	if err != nil {
		t.Fatalf("direct clean: %v", err)
	}
	if direct != once {
		t.Fatalf("fenced and bare inputs should clean identically: %q vs %q", once, direct)
	}
}

func TestCleanModelJSONRejectsNonObject(t *testing.T) {
	for _, in := range []string{"", "no json here", "[1, 2, 3]", "```json\n```"} {
		_, err := CleanModelJSON(in)
		var malformed *MalformedResponseError
		if !errors.As(err, &malformed) {
			t.Fatalf("CleanModelJSON(%q): expected MalformedResponseError, got %v", in, err)
		}
	}
}
