package token

import (
	"strings"
	"testing"

	"github.com/nathoo/agtcore/engine/state"
)

func testDefs() *state.Defs {
	d := state.NewDefs()
	for _, w := range []string{"lamp", "brass", "box", "troll", "mr.", "mr.smith", "st.george"} {
		d.Dict.Add(w)
	}
	return d
}

func texts(toks []Token) string {
	var parts []string
	for _, t := range toks {
		parts = append(parts, t.Text)
	}
	return strings.Join(parts, " ")
}

func TestTokenize(t *testing.T) {
	d := testDefs()
	tests := []struct {
		name  string
		input string
		want  []string // one entry per sentence
	}{
		{"simple", "get lamp", []string{"get lamp"}},
		{"noise words dropped", "get the brass lamp", []string{"get brass lamp"}},
		{"case folded", "GET The LAMP", []string{"get lamp"}},
		{"comma kept", "troll, get lamp", []string{"troll , get lamp"}},
		{"period splits", "get lamp. drop lamp", []string{"get lamp", "drop lamp"}},
		{"semicolon splits", "get lamp;drop lamp", []string{"get lamp", "drop lamp"}},
		{"then splits", "get lamp then drop it", []string{"get lamp", "drop it"}},
		{"dotted longest match", "examine mr.smith", []string{"examine mr.smith"}},
		{"dotted shorter entry", "examine mr. smith", []string{"examine mr. smith"}},
		{"dotted word in middle", "go to st.george.", []string{"go to st.george"}},
		{"unknown word kept", "get xyzzy", []string{"get xyzzy"}},
		{"empty", "   ", nil},
		{"only punctuation", ". ; .", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Tokenize(d, tt.input, 0)
			if len(res.Sentences) != len(tt.want) {
				t.Fatalf("got %d sentences %v, want %d", len(res.Sentences), res.Sentences, len(tt.want))
			}
			for i, s := range res.Sentences {
				if got := texts(s); got != tt.want[i] {
					t.Errorf("sentence %d = %q, want %q", i, got, tt.want[i])
				}
			}
		})
	}
}

func TestTokenize_WordIDsAndSpans(t *testing.T) {
	d := testDefs()
	line := "get the lamp"
	res := Tokenize(d, line, 0)
	toks := res.Words()
	if len(toks) != 2 {
		t.Fatalf("got %d tokens", len(toks))
	}
	if toks[0].ID != d.Dict.Lookup("get") || toks[1].ID != d.Dict.Lookup("lamp") {
		t.Errorf("ids = %d %d", toks[0].ID, toks[1].ID)
	}
	if line[toks[1].Start:toks[1].End] != "lamp" {
		t.Errorf("span = %q", line[toks[1].Start:toks[1].End])
	}

	unknown := Tokenize(d, "get 42", 0).Words()
	if unknown[1].ID != 0 || unknown[1].Text != "42" {
		t.Errorf("unknown token = %+v", unknown[1])
	}
}

func TestTokenize_Truncates(t *testing.T) {
	d := testDefs()
	res := Tokenize(d, "get lamp box troll lamp", 3)
	if !res.Truncated {
		t.Error("expected Truncated")
	}
	if got := texts(res.Words()); got != "get lamp box" {
		t.Errorf("got %q", got)
	}
}

func TestReplace(t *testing.T) {
	d := testDefs()
	line := "get the lamq now"
	toks := Tokenize(d, line, 0).Words()
	if got := Replace(line, toks[1], "lamp"); got != "get the lamp now" {
		t.Errorf("got %q", got)
	}
}
