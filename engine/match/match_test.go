package match

import (
	"testing"

	"github.com/nathoo/agtcore/engine/state"
	"github.com/nathoo/agtcore/engine/token"
	"github.com/nathoo/agtcore/types"
)

type fixture struct {
	defs  *state.Defs
	world *state.World
	m     *Matcher
	refs  map[string]types.Ref
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	d := state.NewDefs()
	d.AddRoom(types.RoomDef{
		ID:          "hall",
		Name:        "Hall",
		GlobalNouns: []types.WordID{d.Dict.Add("wall")},
		FlagNouns:   []types.FlagNoun{{Word: d.Dict.Add("smoke"), Flag: 2}},
		Pictures:    []int{0},
	})
	d.Pictures = []state.Picture{{Word: d.Dict.Add("map"), Name: "map"}}
	lamp := d.Dict.Add("lamp")
	d.AddNoun(types.NounDef{ID: "brass_lamp", Name: lamp, Adj: d.Dict.Add("brass"), Location: 3})
	d.AddNoun(types.NounDef{ID: "oil_lamp", Name: lamp, Adj: d.Dict.Add("oil"), Location: 3,
		Synonyms: []types.WordID{d.Dict.Add("lantern")}})
	d.AddNoun(types.NounDef{ID: "box", Name: d.Dict.Add("box"), Location: 3})
	d.AddCreature(types.CreatureDef{ID: "troll", Name: d.Dict.Add("troll"), Location: 3, Gender: types.Male})
	if err := d.Finish(); err != nil {
		t.Fatal(err)
	}
	w := state.NewWorld(d)
	f := &fixture{defs: d, world: w, m: New(d, w), refs: map[string]types.Ref{}}
	for _, id := range []string{"brass_lamp", "oil_lamp", "box", "troll"} {
		f.refs[id], _ = d.RefByID(id)
	}
	return f
}

func (f *fixture) toks(line string) []token.Token {
	return token.Tokenize(f.defs, line, 0).Words()
}

func TestPhrase_Entities(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name     string
		input    string
		want     []string
		consumed int
		adjOnly  bool
	}{
		{"noun matches both lamps", "lamp", []string{"brass_lamp", "oil_lamp"}, 1, false},
		{"adjective narrows", "brass lamp", []string{"brass_lamp"}, 2, false},
		{"synonym", "lantern", []string{"oil_lamp"}, 1, false},
		{"adjective only", "oil", []string{"oil_lamp"}, 1, true},
		{"noun ends growth", "lamp box", []string{"brass_lamp", "oil_lamp"}, 1, false},
		{"creature", "troll", []string{"troll"}, 1, false},
		{"mismatch stops growth", "brass troll", []string{"brass_lamp"}, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks := f.toks(tt.input)
			pos := 0
			got := f.m.Phrase(toks, &pos)
			if pos != tt.consumed {
				t.Errorf("consumed %d words, want %d", pos, tt.consumed)
			}
			var refs []types.Candidate
			for _, c := range got {
				if c.Kind == types.CandNoun || c.Kind == types.CandCreature {
					refs = append(refs, c)
				}
			}
			if len(refs) != len(tt.want) {
				t.Fatalf("got %d entity candidates, want %d", len(refs), len(tt.want))
			}
			for i, id := range tt.want {
				if refs[i].Ref != f.refs[id] {
					t.Errorf("candidate %d = %d, want %s", i, refs[i].Ref, id)
				}
				if refs[i].AdjOnly != tt.adjOnly {
					t.Errorf("candidate %d AdjOnly = %v", i, refs[i].AdjOnly)
				}
			}
		})
	}
}

func TestPhrase_Builtins(t *testing.T) {
	f := newFixture(t)
	f.world.It = f.refs["box"]
	f.world.Him = f.refs["troll"]

	tests := []struct {
		input    string
		kind     types.CandKind
		internal types.InternalKind
		check    func(types.Candidate) bool
	}{
		{"door", types.CandInternal, types.InternalDoor, nil},
		{"scene", types.CandInternal, types.InternalScene, nil},
		{"everything", types.CandAll, types.InternalNone, nil},
		{"it", types.CandPronoun, types.InternalNone, func(c types.Candidate) bool { return c.Ref == f.refs["box"] }},
		{"he", types.CandPronoun, types.InternalNone, func(c types.Candidate) bool { return c.Ref == f.refs["troll"] }},
		{"north", types.CandInternal, types.InternalDirection, func(c types.Candidate) bool { return c.Num == int(types.North) }},
		{"everyone", types.CandAll, types.InternalNone, func(c types.Candidate) bool { return c.Num == 1 }},
		{"42", types.CandNumber, types.InternalNone, func(c types.Candidate) bool { return c.Num == 42 && c.Word == 0 }},
		{"wall", types.CandGlobal, types.InternalNone, func(c types.Candidate) bool { return c.Ref < 0 }},
		{"map", types.CandInternal, types.InternalPicture, func(c types.Candidate) bool { return c.Num == 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			pos := 0
			got := f.m.Phrase(f.toks(tt.input), &pos)
			if pos != 1 {
				t.Fatalf("consumed %d", pos)
			}
			if len(got) != 1 {
				t.Fatalf("got %d candidates: %+v", len(got), got)
			}
			c := got[0]
			if c.Kind != tt.kind || c.Internal != tt.internal {
				t.Errorf("got kind %v/%v, want %v/%v", c.Kind, c.Internal, tt.kind, tt.internal)
			}
			if tt.check != nil && !tt.check(c) {
				t.Errorf("candidate %+v failed check", c)
			}
		})
	}
}

func TestPhrase_FlagNounNeedsRoomFlag(t *testing.T) {
	f := newFixture(t)
	pos := 0
	if got := f.m.Phrase(f.toks("smoke"), &pos); len(got) != 0 || pos != 0 {
		t.Fatalf("smoke matched with the flag clear: %+v", got)
	}
	f.world.Rooms[0].Flags |= 1 << 2
	if got := f.m.Phrase(f.toks("smoke"), &pos); len(got) != 1 || got[0].Kind != types.CandGlobal {
		t.Fatalf("smoke should match with the flag set: %+v", got)
	}
}

func TestPhrase_NoBuiltinsAfterTwoWords(t *testing.T) {
	f := newFixture(t)
	f.defs.Rooms[0].GlobalNouns = append(f.defs.Rooms[0].GlobalNouns, f.defs.Dict.Lookup("lamp"))
	pos := 0
	got := f.m.Phrase(f.toks("brass lamp"), &pos)
	for _, c := range got {
		if c.Kind == types.CandGlobal {
			t.Error("global noun should only be considered for one-word matches")
		}
	}
	pos = 0
	got = f.m.Phrase(f.toks("lamp"), &pos)
	if got[len(got)-1].Kind != types.CandGlobal {
		t.Error("global noun should follow the entity matches for a one-word match")
	}
}

func TestList(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name     string
		input    string
		groups   int
		all      bool
		consumed int
	}{
		{"single", "box", 1, false, 1},
		{"and", "box and troll", 2, false, 3},
		{"comma", "box, troll, brass lamp", 3, false, 6},
		{"all", "all", 0, true, 1},
		{"all except", "all except box and troll", 2, true, 5},
		{"trailing and", "box and", 1, false, 1},
		{"nothing", "xyzzy", 0, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos := 0
			l := f.m.List(f.toks(tt.input), &pos)
			if pos != tt.consumed {
				t.Errorf("consumed %d, want %d", pos, tt.consumed)
			}
			if tt.consumed == 0 {
				if l != nil {
					t.Errorf("expected nil list, got %+v", l)
				}
				return
			}
			if err := Validate(l); err != nil {
				t.Fatalf("invalid list: %v", err)
			}
			groups, all := Groups(l)
			if len(groups) != tt.groups || all != tt.all {
				t.Errorf("got %d groups all=%v, want %d all=%v", len(groups), all, tt.groups, tt.all)
			}
		})
	}
}

func TestGroupsJoinRoundTrip(t *testing.T) {
	a := types.Candidate{Kind: types.CandNoun, Ref: 5}
	b := types.Candidate{Kind: types.CandNoun, Ref: 6}
	l := Join([][]types.Candidate{{a}, {a, b}}, true)
	if err := Validate(l); err != nil {
		t.Fatal(err)
	}
	groups, all := Groups(l)
	if !all || len(groups) != 2 || len(groups[1]) != 2 {
		t.Errorf("groups = %+v all=%v", groups, all)
	}
	if off := GroupOffset(l, 1); l[off].Ref != 5 || l[off-1].Kind != types.CandAnd {
		t.Errorf("GroupOffset(1) = %d", off)
	}
}

func TestValidate_RejectsBadLists(t *testing.T) {
	n := types.Candidate{Kind: types.CandNoun, Ref: 5}
	and := types.Candidate{Kind: types.CandAnd}
	end := types.Candidate{Kind: types.CandEnd}
	bad := []types.CandidateList{
		{n},
		{and, n, end},
		{n, and, end},
		{n, and, and, n, end},
		{n, end, n, end},
	}
	for i, l := range bad {
		if Validate(l) == nil {
			t.Errorf("list %d should be invalid", i)
		}
	}
}
