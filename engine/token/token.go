// Package token splits a raw input line into dictionary words.
package token

import (
	"strings"

	"github.com/tliron/commonlog"

	"github.com/nathoo/agtcore/engine/state"
	"github.com/nathoo/agtcore/types"
)

var log = commonlog.GetLogger("agtcore.token")

// DefaultMaxWords caps the words kept per line.
const DefaultMaxWords = 64

// Token is one word or comma of the input. ID is 0 for words missing from
// the dictionary. Start and End delimit the original text in the line.
type Token struct {
	ID    types.WordID
	Text  string
	Start int
	End   int
	Comma bool
}

// Result is the tokenized line, split into sentences.
type Result struct {
	Line      string
	Sentences [][]Token
	Truncated bool
}

// Words returns the tokens of all sentences in order.
func (r Result) Words() []Token {
	var out []Token
	for _, s := range r.Sentences {
		out = append(out, s...)
	}
	return out
}

// Tokenize splits line on whitespace and the punctuation , ; and period.
// Noise words are dropped; periods, semicolons and "then" end a sentence.
// When the dictionary holds dotted words, a period inside the longest
// matching dotted entry is part of the word. Words past max are discarded.
func Tokenize(defs *state.Defs, line string, max int) Result {
	if max <= 0 {
		max = DefaultMaxWords
	}
	res := Result{Line: line}
	var cur []Token
	flush := func() {
		if len(cur) > 0 {
			res.Sentences = append(res.Sentences, cur)
			cur = nil
		}
	}
	count := 0
	dotted := defs.Dict.HasDotted()

	pos := 0
	for pos < len(line) {
		c := line[pos]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			pos++
			continue
		case c == ',':
			cur = append(cur, Token{Text: ",", Start: pos, End: pos + 1, Comma: true})
			pos++
			continue
		case c == ';':
			flush()
			pos++
			continue
		}

		end := pos
		if dotted {
			end += defs.Dict.LongestDotted(line[pos:])
		}
		if end == pos {
			if c == '.' {
				flush()
				pos++
				continue
			}
			end = pos
			for end < len(line) && !isSeparator(line[end]) {
				end++
			}
		}

		text := line[pos:end]
		id := defs.Dict.Lookup(text)
		pos = end

		switch {
		case id != 0 && defs.Noise[id]:
			continue
		case id != 0 && id == defs.W.Then:
			flush()
			continue
		}
		if count == max {
			res.Truncated = true
			log.Warningf("input truncated after %d words", max)
			break
		}
		count++
		cur = append(cur, Token{ID: id, Text: strings.ToLower(text), Start: pos - len(text), End: pos})
	}
	flush()
	return res
}

func isSeparator(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', ',', ';', '.':
		return true
	}
	return false
}

// Replace returns line with the byte span of tok replaced by word.
func Replace(line string, tok Token, word string) string {
	if tok.Start < 0 || tok.End > len(line) || tok.Start > tok.End {
		return line
	}
	return line[:tok.Start] + word + line[tok.End:]
}
