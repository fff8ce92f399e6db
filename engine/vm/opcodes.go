package vm

import (
	"fmt"
	"sort"

	"github.com/nathoo/agtcore/types"
)

// Opcodes below CondLimit are conditional tokens; the rest are actions and
// control tokens.
const CondLimit types.Opcode = 1000

// Instruction word layout: opcode in the low 11 bits, then two 2-bit
// argument modes.
const (
	opMask     = 0x7FF
	mode1Shift = 11
	mode2Shift = 13
)

// Conditional tokens.
const (
	CondAtLocation types.Opcode = iota
	CondAtLocationGT
	CondAtLocationLT
	CondFirstVisit
	CondCarryingSomething
	CondCarryingNothing
	CondWearingSomething
	CondWearingNothing
	CondLoadWeightEQ
	CondLoadWeightGT
	CondLoadWeightLT
	CondPresent
	CondIsWearing
	CondIsCarrying
	CondIsNowhere
	CondIsSomewhere
	CondInRoom
	CondIsLocated
	CondTogether
	CondIsOn
	CondIsOff
	CondIsGroupMember
	CondIsOpen
	CondIsClosed
	CondIsLocked
	CondIsUnlocked
	CondIsMovable
	CondIsCreature
	CondIsNoun
	CondSomethingInside
	CondFlagOn
	CondFlagOff
	CondRoomFlagOn
	CondRoomFlagOff
	CondScoreGT
	CondScoreLT
	CondTurnsGT
	CondTurnsLT
	CondCounterEQ
	CondCounterGT
	CondCounterLT
	CondVarEQ
	CondVarGT
	CondVarLT
	CondVarEqVar
	CondVarLTVar
	CondChance
	CondVarChance
	CondIsHostile
	CondHostilePresent
	CondNounIsNumber
	CondObjFlagOn
	CondObjFlagOff
	CondYesNo
	CondLightPresent
	CondActorIs
	CondNounIs
	CondObjectIs
	CondPrepIs
	CondIsVisible
)

// Structural markers inside the conditional range.
const (
	OpNot types.Opcode = 100
	OpOr  types.Opcode = 101
)

// Action tokens.
const (
	ActGoToRoom types.Opcode = CondLimit + iota
	ActGoToRandomRoom
	ActGoToVariableRoom
	ActSendToRoom
	ActSendToVariableRoom
	ActGetIt
	ActWearIt
	ActDropIt
	ActRemoveIt
	ActDestroyIt
	ActPutIn
	ActSwapLocations
	ActSendAllToRoom
	ActRelocateAll
	ActOpen
	ActClose
	ActLock
	ActUnlock
	ActTurnOn
	ActTurnOff
	ActPrintMessage
	ActRandomMessage
	ActPrintVariable
	ActPrintCounter
	ActPrintScore
	ActPrintString
	ActInputString
	ActInputNumber
	ActFlagOn
	ActFlagOff
	ActToggleFlag
	ActRoomFlagOn
	ActRoomFlagOff
	ActToggleRoomFlag
	ActSetCounter
	ActIncCounter
	ActDecCounter
	ActSetVar
	ActAddVar
	ActSubVar
	ActMulVar
	ActDivVar
	ActModVar
	ActAddVarVar
	ActSubVarVar
	ActRandomVar
	ActNounToVar
	ActObjectToVar
	ActAddScore
	ActSubScore
	ActChangePassage
	ActMakeHostile
	ActMakeFriendly
	ActObjFlagOn
	ActObjFlagOff
	ActObjFlagToggle
	ActPropToVar
	ActVarToProp
	ActDescribeRoom
	ActListInventory
	ActDescribeThing
	ActPlaySound
	ActShowPicture
	ActPronounIt
	ActKillPlayer
	ActWinGame
	ActEndGame
	ActRestart
	ActSave
	ActRestore
	ActErrMessage
	ActSetString
)

// Control tokens.
const (
	OpGoto types.Opcode = CondLimit + 80 + iota
	OpOnFailGoto
	OpDoSubroutine
	OpReturn
	OpRedirectTo
	OpNextCommand
	OpStopScan
	OpDoneWithTurn
)

// ArgKind is the type an instruction argument must have.
type ArgKind int

const (
	ArgNum ArgKind = iota + 1
	ArgRoom
	ArgObj      // noun or creature
	ArgNoun
	ArgCreature
	ArgLoc      // anything that can hold objects
	ArgAny      // any Ref
	ArgFlag
	ArgRoomFlag
	ArgCounter
	ArgVar
	ArgMsg
	ArgStr
	ArgObjFlag
	ArgProp
	ArgDir
	ArgAddr
	ArgSub
	ArgLabel
	ArgWord
)

// OpInfo describes an opcode.
type OpInfo struct {
	Name    string
	Args    []ArgKind
	ErrOnly bool
}

var opTable = map[types.Opcode]OpInfo{
	CondAtLocation:        {"AtLocation", []ArgKind{ArgRoom}, false},
	CondAtLocationGT:      {"AtLocationGT", []ArgKind{ArgRoom}, false},
	CondAtLocationLT:      {"AtLocationLT", []ArgKind{ArgRoom}, false},
	CondFirstVisit:        {"FirstVisit", nil, false},
	CondCarryingSomething: {"IsCarryingSomething", nil, false},
	CondCarryingNothing:   {"IsCarryingNothing", nil, false},
	CondWearingSomething:  {"IsWearingSomething", nil, false},
	CondWearingNothing:    {"IsWearingNothing", nil, false},
	CondLoadWeightEQ:      {"LoadWeightEquals", []ArgKind{ArgNum}, false},
	CondLoadWeightGT:      {"LoadWeightGT", []ArgKind{ArgNum}, false},
	CondLoadWeightLT:      {"LoadWeightLT", []ArgKind{ArgNum}, false},
	CondPresent:           {"Present", []ArgKind{ArgObj}, false},
	CondIsWearing:         {"IsWearing", []ArgKind{ArgObj}, false},
	CondIsCarrying:        {"IsCarrying", []ArgKind{ArgObj}, false},
	CondIsNowhere:         {"IsNowhere", []ArgKind{ArgObj}, false},
	CondIsSomewhere:       {"IsSomewhere", []ArgKind{ArgObj}, false},
	CondInRoom:            {"InRoom", []ArgKind{ArgObj}, false},
	CondIsLocated:         {"IsLocated", []ArgKind{ArgObj, ArgLoc}, false},
	CondTogether:          {"Together", []ArgKind{ArgObj, ArgObj}, false},
	CondIsOn:              {"IsOn", []ArgKind{ArgNoun}, false},
	CondIsOff:             {"IsOff", []ArgKind{ArgNoun}, false},
	CondIsGroupMember:     {"IsGroupMember", []ArgKind{ArgCreature}, false},
	CondIsOpen:            {"IsOpen", []ArgKind{ArgNoun}, false},
	CondIsClosed:          {"IsClosed", []ArgKind{ArgNoun}, false},
	CondIsLocked:          {"IsLocked", []ArgKind{ArgNoun}, false},
	CondIsUnlocked:        {"IsUnlocked", []ArgKind{ArgNoun}, false},
	CondIsMovable:         {"IsMovable", []ArgKind{ArgNoun}, false},
	CondIsCreature:        {"IsCreature", []ArgKind{ArgAny}, false},
	CondIsNoun:            {"IsNoun", []ArgKind{ArgAny}, false},
	CondSomethingInside:   {"SomethingInside", []ArgKind{ArgLoc}, false},
	CondFlagOn:            {"FlagOn", []ArgKind{ArgFlag}, false},
	CondFlagOff:           {"FlagOff", []ArgKind{ArgFlag}, false},
	CondRoomFlagOn:        {"RoomFlagOn", []ArgKind{ArgRoomFlag}, false},
	CondRoomFlagOff:       {"RoomFlagOff", []ArgKind{ArgRoomFlag}, false},
	CondScoreGT:           {"ScoreGT", []ArgKind{ArgNum}, false},
	CondScoreLT:           {"ScoreLT", []ArgKind{ArgNum}, false},
	CondTurnsGT:           {"TurnsGT", []ArgKind{ArgNum}, false},
	CondTurnsLT:           {"TurnsLT", []ArgKind{ArgNum}, false},
	CondCounterEQ:         {"CounterEquals", []ArgKind{ArgCounter, ArgNum}, false},
	CondCounterGT:         {"CounterGT", []ArgKind{ArgCounter, ArgNum}, false},
	CondCounterLT:         {"CounterLT", []ArgKind{ArgCounter, ArgNum}, false},
	CondVarEQ:             {"VariableEquals", []ArgKind{ArgVar, ArgNum}, false},
	CondVarGT:             {"VariableGT", []ArgKind{ArgVar, ArgNum}, false},
	CondVarLT:             {"VariableLT", []ArgKind{ArgVar, ArgNum}, false},
	CondVarEqVar:          {"VarEqualsVar", []ArgKind{ArgVar, ArgVar}, false},
	CondVarLTVar:          {"VarLTVar", []ArgKind{ArgVar, ArgVar}, false},
	CondChance:            {"Chance", []ArgKind{ArgNum}, false},
	CondVarChance:         {"VariableChance", []ArgKind{ArgVar}, false},
	CondIsHostile:         {"IsHostile", []ArgKind{ArgCreature}, false},
	CondHostilePresent:    {"HostilePresent", nil, false},
	CondNounIsNumber:      {"NounIsNumber", nil, false},
	CondObjFlagOn:         {"ObjFlagOn", []ArgKind{ArgObj, ArgObjFlag}, false},
	CondObjFlagOff:        {"ObjFlagOff", []ArgKind{ArgObj, ArgObjFlag}, false},
	CondYesNo:             {"YesNo", []ArgKind{ArgMsg}, false},
	CondLightPresent:      {"LightPresent", nil, false},
	CondActorIs:           {"ActorIs", []ArgKind{ArgAny}, false},
	CondNounIs:            {"NounIs", []ArgKind{ArgAny}, false},
	CondObjectIs:          {"ObjectIs", []ArgKind{ArgAny}, false},
	CondPrepIs:            {"PrepIs", []ArgKind{ArgWord}, false},
	CondIsVisible:         {"IsVisible", []ArgKind{ArgObj}, false},

	OpNot: {"Not", nil, false},
	OpOr:  {"Or", nil, false},

	ActGoToRoom:           {"GoToRoom", []ArgKind{ArgRoom}, false},
	ActGoToRandomRoom:     {"GoToRandomRoom", []ArgKind{ArgRoom, ArgRoom}, false},
	ActGoToVariableRoom:   {"GoToVariableRoom", []ArgKind{ArgVar}, false},
	ActSendToRoom:         {"SendToRoom", []ArgKind{ArgObj, ArgLoc}, false},
	ActSendToVariableRoom: {"SendToVariableRoom", []ArgKind{ArgObj, ArgVar}, false},
	ActGetIt:              {"GetIt", []ArgKind{ArgObj}, false},
	ActWearIt:             {"WearIt", []ArgKind{ArgNoun}, false},
	ActDropIt:             {"DropIt", []ArgKind{ArgObj}, false},
	ActRemoveIt:           {"RemoveIt", []ArgKind{ArgNoun}, false},
	ActDestroyIt:          {"DestroyIt", []ArgKind{ArgObj}, false},
	ActPutIn:              {"PutIn", []ArgKind{ArgObj, ArgObj}, false},
	ActSwapLocations:      {"SwapLocations", []ArgKind{ArgObj, ArgObj}, false},
	ActSendAllToRoom:      {"SendAllToRoom", []ArgKind{ArgLoc}, false},
	ActRelocateAll:        {"RelocateAll", []ArgKind{ArgLoc, ArgLoc}, false},
	ActOpen:               {"Open", []ArgKind{ArgNoun}, false},
	ActClose:              {"Close", []ArgKind{ArgNoun}, false},
	ActLock:               {"Lock", []ArgKind{ArgNoun}, false},
	ActUnlock:             {"Unlock", []ArgKind{ArgNoun}, false},
	ActTurnOn:             {"TurnOn", []ArgKind{ArgNoun}, false},
	ActTurnOff:            {"TurnOff", []ArgKind{ArgNoun}, false},
	ActPrintMessage:       {"PrintMessage", []ArgKind{ArgMsg}, false},
	ActRandomMessage:      {"RandomMessage", []ArgKind{ArgMsg, ArgMsg}, false},
	ActPrintVariable:      {"PrintVariable", []ArgKind{ArgVar}, false},
	ActPrintCounter:       {"PrintCounter", []ArgKind{ArgCounter}, false},
	ActPrintScore:         {"PrintScore", nil, false},
	ActPrintString:        {"PrintString", []ArgKind{ArgStr}, false},
	ActInputString:        {"InputString", []ArgKind{ArgStr}, false},
	ActInputNumber:        {"InputNumber", []ArgKind{ArgVar}, false},
	ActFlagOn:             {"SetFlag", []ArgKind{ArgFlag}, false},
	ActFlagOff:            {"ClearFlag", []ArgKind{ArgFlag}, false},
	ActToggleFlag:         {"ToggleFlag", []ArgKind{ArgFlag}, false},
	ActRoomFlagOn:         {"SetRoomFlag", []ArgKind{ArgRoomFlag}, false},
	ActRoomFlagOff:        {"ClearRoomFlag", []ArgKind{ArgRoomFlag}, false},
	ActToggleRoomFlag:     {"ToggleRoomFlag", []ArgKind{ArgRoomFlag}, false},
	ActSetCounter:         {"SetCounter", []ArgKind{ArgCounter, ArgNum}, false},
	ActIncCounter:         {"IncCounter", []ArgKind{ArgCounter}, false},
	ActDecCounter:         {"DecCounter", []ArgKind{ArgCounter}, false},
	ActSetVar:             {"SetVariable", []ArgKind{ArgVar, ArgNum}, false},
	ActAddVar:             {"AddToVariable", []ArgKind{ArgVar, ArgNum}, false},
	ActSubVar:             {"SubtractFromVariable", []ArgKind{ArgVar, ArgNum}, false},
	ActMulVar:             {"MultiplyVariable", []ArgKind{ArgVar, ArgNum}, false},
	ActDivVar:             {"DivideVariable", []ArgKind{ArgVar, ArgNum}, false},
	ActModVar:             {"ModVariable", []ArgKind{ArgVar, ArgNum}, false},
	ActAddVarVar:          {"AddVariables", []ArgKind{ArgVar, ArgVar}, false},
	ActSubVarVar:          {"SubtractVariables", []ArgKind{ArgVar, ArgVar}, false},
	ActRandomVar:          {"RandomVariable", []ArgKind{ArgVar, ArgNum}, false},
	ActNounToVar:          {"NounNumberToVariable", []ArgKind{ArgVar}, false},
	ActObjectToVar:        {"ObjectNumberToVariable", []ArgKind{ArgVar}, false},
	ActAddScore:           {"AddToScore", []ArgKind{ArgNum}, false},
	ActSubScore:           {"SubtractFromScore", []ArgKind{ArgNum}, false},
	ActChangePassage:      {"ChangePassage", []ArgKind{ArgDir, ArgNum}, false},
	ActMakeHostile:        {"MakeHostile", []ArgKind{ArgCreature}, false},
	ActMakeFriendly:       {"MakeFriendly", []ArgKind{ArgCreature}, false},
	ActObjFlagOn:          {"SetObjFlag", []ArgKind{ArgObj, ArgObjFlag}, false},
	ActObjFlagOff:         {"ClearObjFlag", []ArgKind{ArgObj, ArgObjFlag}, false},
	ActObjFlagToggle:      {"ToggleObjFlag", []ArgKind{ArgObj, ArgObjFlag}, false},
	ActPropToVar:          {"PropToVariable", []ArgKind{ArgObj, ArgProp}, false},
	ActVarToProp:          {"VariableToProp", []ArgKind{ArgObj, ArgProp}, false},
	ActDescribeRoom:       {"DescribeRoom", nil, false},
	ActListInventory:      {"ListInventory", nil, false},
	ActDescribeThing:      {"DescribeThing", []ArgKind{ArgObj}, false},
	ActPlaySound:          {"PlaySound", []ArgKind{ArgNum}, false},
	ActShowPicture:        {"ShowPicture", []ArgKind{ArgNum}, false},
	ActPronounIt:          {"SetPronoun", []ArgKind{ArgObj}, false},
	ActKillPlayer:         {"KillPlayer", nil, false},
	ActWinGame:            {"WinGame", nil, false},
	ActEndGame:            {"EndGame", nil, false},
	ActRestart:            {"RestartGame", nil, false},
	ActSave:               {"SaveGame", nil, false},
	ActRestore:            {"RestoreGame", nil, false},
	ActErrMessage:         {"ErrMessage", []ArgKind{ArgMsg}, true},
	ActSetString:          {"SetString", []ArgKind{ArgStr, ArgMsg}, false},

	OpGoto:         {"Goto", []ArgKind{ArgAddr}, false},
	OpOnFailGoto:   {"OnFailGoto", []ArgKind{ArgAddr}, false},
	OpDoSubroutine: {"DoSubroutine", []ArgKind{ArgSub}, false},
	OpReturn:       {"Return", nil, false},
	OpRedirectTo:   {"RedirectTo", []ArgKind{ArgLabel}, false},
	OpNextCommand:  {"NextCommand", nil, false},
	OpStopScan:     {"StopScan", nil, false},
	OpDoneWithTurn: {"DoneWithTurn", nil, false},
}

var opByName = func() map[string]types.Opcode {
	m := make(map[string]types.Opcode, len(opTable))
	for op, info := range opTable {
		m[info.Name] = op
	}
	return m
}()

// Info returns the table entry for op.
func Info(op types.Opcode) (OpInfo, bool) {
	info, ok := opTable[op]
	return info, ok
}

// Lookup returns the opcode with the given name.
func Lookup(name string) (types.Opcode, bool) {
	op, ok := opByName[name]
	return op, ok
}

// Names returns every opcode name, sorted.
func Names() []string {
	out := make([]string, 0, len(opByName))
	for n := range opByName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// IsCond reports whether op is a conditional token (including OR).
func IsCond(op types.Opcode) bool { return op < CondLimit }

// IsControl reports whether op transfers control rather than acting on
// the world.
func IsControl(op types.Opcode) bool { return op >= OpGoto && op <= OpDoneWithTurn }

// Name returns the name of op for traces.
func Name(op types.Opcode) string {
	if info, ok := opTable[op]; ok {
		return info.Name
	}
	return fmt.Sprintf("op%d", op)
}
