package vm

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/nathoo/agtcore/engine/state"
	"github.com/nathoo/agtcore/types"
)

var numberRef = regexp.MustCompile(`#(VAR|CNT)(\d+)#`)

// Substitute expands $noun$, $object$, $verb$ and $actor$ from g, and
// #VARn# and #CNTn# from the world. Unknown references are left as is.
func Substitute(d *state.Defs, w *state.World, g types.Grammar, text string) string {
	if !strings.ContainsAny(text, "$#") {
		return text
	}
	slot := func(r types.Ref, word types.WordID, num int) string {
		switch {
		case r != 0:
			return d.Name(r)
		case word != 0:
			return d.Dict.Word(word)
		case num != 0:
			return strconv.Itoa(num)
		}
		return "nothing"
	}
	actor := "you"
	if g.Actor != 0 {
		actor = d.Name(g.Actor)
	}
	text = strings.NewReplacer(
		"$noun$", slot(g.Noun, g.NounWord, g.Num),
		"$object$", slot(g.Object, g.ObjWord, g.ObjNum),
		"$verb$", d.Dict.Word(g.Verb),
		"$actor$", actor,
	).Replace(text)
	if w == nil {
		return text
	}
	return numberRef.ReplaceAllStringFunc(text, func(m string) string {
		sub := numberRef.FindStringSubmatch(m)
		n, err := strconv.Atoi(sub[2])
		vals := w.Vars
		if sub[1] == "CNT" {
			vals = w.Counters
		}
		if err != nil || n >= len(vals) {
			return m
		}
		return strconv.Itoa(vals[n])
	})
}
