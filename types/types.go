// Package types defines the shared data structures for the agtcore interpreter.
// This package contains only type definitions and a few small helpers.
package types

// WordID identifies a dictionary entry. 0 means unrecognized, or ANY when it
// appears in a command header.
type WordID int

// Ref identifies an entity in the dense id space shared by rooms, nouns and
// creatures. A negative Ref is a literal dictionary reference (-WordID) used
// for room global nouns and flag nouns.
type Ref int

// Fixed locations below the first room.
const (
	Nowhere Ref = 0
	Self    Ref = 1 // carried by the player
	Worn    Ref = 2 // worn by the player
)

// Gender drives pronoun tracking.
type Gender int

const (
	Neuter Gender = iota
	Male
	Female
	Plural
)

// Direction indexes room exits.
type Direction int

const (
	North Direction = iota
	South
	East
	West
	NorthEast
	NorthWest
	SouthEast
	SouthWest
	Up
	Down
	In
	Out
	NumDirections
)

// CandKind tags a disambiguation record.
type CandKind int

const (
	CandNoun CandKind = iota
	CandCreature
	CandPronoun
	CandInternal
	CandGlobal
	CandNumber
	CandAll
	CandAnd
	CandEnd
)

// InternalKind further tags CandInternal records.
type InternalKind int

const (
	InternalNone InternalKind = iota
	InternalDoor
	InternalScene
	InternalDirection
	InternalPicture
)

// Candidate is one entry of a disambiguation list.
type Candidate struct {
	Kind     CandKind
	Internal InternalKind
	Ref      Ref    // resolved entity, or -word for globals
	Word     WordID // matched noun word (0 when only adjectives matched)
	Adj      WordID // matched adjective word
	Num      int    // numbers, directions and picture indices
	AdjOnly  bool   // matched on adjectives alone
	Score    int    // scratch value for the current disambiguation pass
	Marked   bool   // scratch elimination mark
}

// CandidateList is a sequence of candidates terminated by a single CandEnd.
// CandAnd entries split it into groups; a leading CandAll means
// "everything except the following groups".
type CandidateList []Candidate

// Slot names a grammar slot that can hold a noun phrase.
type Slot int

const (
	SlotActor Slot = iota
	SlotNoun
	SlotObject
)

// Grammar is the resolved (actor, verb, noun, prep, object) tuple of a
// sentence, plus the word forms used to refer to each entity.
type Grammar struct {
	Actor     Ref
	ActorWord WordID
	Verb      WordID
	Noun      Ref
	NounWord  WordID
	NounAdj   WordID
	Num       int // value of a numeric noun
	Prep      WordID
	Object    Ref
	ObjWord   WordID
	ObjAdj    WordID
	ObjNum    int
}

// Sentence is the parser output: raw slots before disambiguation.
type Sentence struct {
	Actor  CandidateList
	Verb   WordID
	Noun   CandidateList
	Prep   WordID
	Object CandidateList
}

// Opcode is a metacommand instruction code.
type Opcode int

// ArgMode selects how an instruction argument is interpreted.
type ArgMode int

const (
	ModeLiteral ArgMode = iota
	ModeVariable
	ModeNoun
	ModeObject
)

// Instruction is a decoded metacommand token.
type Instruction struct {
	Op      Opcode
	Modes   [2]ArgMode
	Args    [2]int32
	NArgs   int
	Negate  bool
	ErrOnly bool // executes only after a failed conditional
	Offset  int  // word offset in the encoded stream
}

// Command is a metacommand: a trigger header plus its encoded body.
type Command struct {
	Label    string
	Actor    WordID // 0 means the player acts
	AnyActor bool
	Verb     WordID
	NounAdj  WordID
	Noun     WordID
	NounRef  Ref // explicit noun override; 0 for none
	Prep     WordID
	ObjAdj   WordID
	Obj      WordID
	ObjRef   Ref
	Redirect bool // only reachable through RedirectTo
	Code     []int32
}

// FlagNoun is a room noun that exists only while a room flag is set.
type FlagNoun struct {
	Word WordID
	Flag int
}

// RoomDef is the static definition of a room.
type RoomDef struct {
	ID          string
	Name        string
	Description string
	Exits       [NumDirections]Ref
	Dark        bool
	Points      int
	Flags       uint32
	GlobalNouns []WordID
	FlagNouns   []FlagNoun
	Pictures    []int
	VerbSyns    map[WordID]WordID // room-local verb synonyms
}

// NounDef is the static definition of a noun (an object).
type NounDef struct {
	ID          string
	Name        WordID
	Adj         WordID
	Synonyms    []WordID
	Short       string
	Description string
	Text        string // shown by READ
	Location    Ref
	Key         Ref
	Weight      int
	Size        int
	Points      int
	Open        bool
	Locked      bool
	On          bool
	Movable     bool
	Light       bool
	Wearable    bool
	Container   bool
	Closable    bool
	Lockable    bool
	Switchable  bool
	Plural      bool
}

// CreatureDef is the static definition of a creature.
type CreatureDef struct {
	ID          string
	Name        WordID
	Adj         WordID
	Synonyms    []WordID
	Short       string
	Description string
	Location    Ref
	Gender      Gender
	Hostile     bool
	Points      int
	GroupMember bool
}

// RoomState holds the mutable fields of a room.
type RoomState struct {
	Seen       bool
	LockedDoor bool
	Flags      uint32
	Exits      [NumDirections]Ref
}

// NounState holds the mutable fields of a noun.
type NounState struct {
	Location Ref
	Open     bool
	Locked   bool
	On       bool
	Movable  bool
	Seen     bool
	Light    bool
}

// CreatureState holds the mutable fields of a creature.
type CreatureState struct {
	Location Ref
	Hostile  bool
	Seen     bool
	Group    bool
	Counter  int
}

// GameDef holds game metadata.
type GameDef struct {
	Title   string
	Author  string
	Version string
	Intro   string
	Start   Ref
	Legacy  bool // enables the legacy "<verb> <prep> <noun>" rewrite
}

// Status is the play state of a game.
type Status int

const (
	Playing Status = iota
	Dead
	Won
	Quit
)

// Event is emitted by action tokens for external hooks.
type Event struct {
	Type string
	Data map[string]any
}

// LineKind tells a front end what produced an output line.
type LineKind int

const (
	LineText     LineKind = iota // narrative and game messages
	LineError                    // parse and resolve failures, refusals, game errors
	LineQuestion                 // a clarifying question
	LineTrace                    // instruction trace
	LineListing                  // "You see:" and inventory lists
	LineExits
)

// Result is the output of a single engine step.
type Result struct {
	Output []string
	Kinds  []LineKind // parallel to Output
	Events []Event
	Asking bool // a clarifying question is pending
}

// Probe scores returned by the verb-applicability probe.
const (
	ScoreNone    = 0    // nothing would handle the command
	ScoreRefused = 1    // a built-in verb would refuse
	ScoreHeader  = 2    // a trigger matched but its conditions failed
	ScoreBuiltin = 3    // a built-in verb would succeed
	ScoreSuccess = 1000 // a metacommand would execute an action token
)
