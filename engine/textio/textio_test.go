package textio

import (
	"errors"
	"testing"

	"github.com/nathoo/agtcore/types"
)

func TestCapture_WriteSplitsLines(t *testing.T) {
	c := NewCapture(nil)
	c.Write("You see ")
	c.Write("a lamp.\nIt glows.")
	c.WriteLine("")
	c.WriteLine("Done.")

	got := c.Drain()
	want := []string{"You see a lamp.", "It glows.", "Done."}
	if len(got) != len(want) {
		t.Fatalf("got %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d: got %q, want %q", i, got[i], want[i])
		}
	}
	if len(c.Drain()) != 0 {
		t.Error("second Drain should be empty")
	}
}

func TestCapture_DrainIncludesOpenLine(t *testing.T) {
	c := NewCapture(nil)
	c.Write("partial")
	if got := c.Drain(); len(got) != 1 || got[0] != "partial" {
		t.Errorf("got %q", got)
	}
}

func TestCapture_MarkAppliesToOneLine(t *testing.T) {
	c := NewCapture(nil)
	c.WriteLine("Hall")
	c.Mark(types.LineError)
	c.Write("coin: ")
	c.WriteLine("You can't take that.")
	c.WriteLine("Done.")
	c.Mark(types.LineQuestion)
	c.Write("Which one?")

	lines, kinds := c.DrainKinds()
	want := []types.LineKind{types.LineText, types.LineError, types.LineText, types.LineQuestion}
	if len(lines) != len(want) || len(kinds) != len(want) {
		t.Fatalf("lines %q kinds %v", lines, kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("line %q kind = %v, want %v", lines[i], kinds[i], want[i])
		}
	}
	if lines[1] != "coin: You can't take that." {
		t.Errorf("line 1 = %q", lines[1])
	}
}

func TestCapture_ReadLineHandsPendingOutput(t *testing.T) {
	s := NewScript("brass")
	c := NewCapture(s)
	c.WriteLine("Which lamp?")

	got, err := c.ReadLine()
	if err != nil {
		t.Fatal(err)
	}
	if got != "brass" {
		t.Errorf("got %q", got)
	}
	if len(s.Shown) != 1 || s.Shown[0] != "Which lamp?" {
		t.Errorf("shown = %q", s.Shown)
	}
	if len(c.Drain()) != 0 {
		t.Error("pending output should have gone to the prompter")
	}
}

func TestCapture_AskYesNo(t *testing.T) {
	tests := []struct {
		name    string
		answers []string
		want    bool
	}{
		{"yes", []string{"yes"}, true},
		{"y uppercase", []string{"Y"}, true},
		{"no", []string{"no"}, false},
		{"retry then yes", []string{"maybe", "y"}, true},
		{"eof", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCapture(NewScript(tt.answers...))
			if got := c.AskYesNo("Really?"); got != tt.want {
				t.Errorf("AskYesNo = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCapture_ReadCharAndNoInput(t *testing.T) {
	c := NewCapture(NewScript("  xyz", ""))
	if r, _ := c.ReadChar(); r != 'x' {
		t.Errorf("ReadChar = %q", r)
	}
	if r, _ := c.ReadChar(); r != '\n' {
		t.Errorf("empty ReadChar = %q", r)
	}

	none := NewCapture(nil)
	if _, err := none.ReadLine(); !errors.Is(err, ErrNoInput) {
		t.Errorf("expected ErrNoInput, got %v", err)
	}
}
