package state

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/nathoo/agtcore/types"
)

// Dict maps between word ids and their canonical spellings. Lookups are
// case-insensitive.
type Dict struct {
	words  []string
	index  map[string]types.WordID
	dotted []string // folded entries containing '.', longest first
	fold   cases.Caser
}

// NewDict returns an empty dictionary. Word id 0 is reserved.
func NewDict() *Dict {
	return &Dict{
		words: []string{""},
		index: map[string]types.WordID{},
		fold:  cases.Fold(),
	}
}

// Fold returns the case-folded form used as the lookup key.
func (d *Dict) Fold(s string) string {
	return d.fold.String(s)
}

// Add interns a word and returns its id. Adding an existing word returns the
// existing id.
func (d *Dict) Add(word string) types.WordID {
	word = strings.TrimSpace(word)
	if word == "" {
		return 0
	}
	key := d.Fold(word)
	if id, ok := d.index[key]; ok {
		return id
	}
	id := types.WordID(len(d.words))
	d.words = append(d.words, strings.ToLower(word))
	d.index[key] = id
	if strings.Contains(key, ".") {
		d.dotted = append(d.dotted, key)
		sort.SliceStable(d.dotted, func(i, j int) bool {
			return len(d.dotted[i]) > len(d.dotted[j])
		})
	}
	return id
}

// Lookup returns the id of word, or 0 when it is not in the dictionary.
func (d *Dict) Lookup(word string) types.WordID {
	return d.index[d.Fold(word)]
}

// Word returns the spelling of id, or "" when id is out of range.
func (d *Dict) Word(id types.WordID) string {
	if id <= 0 || int(id) >= len(d.words) {
		return ""
	}
	return d.words[id]
}

// Len returns the number of entries including the reserved slot 0.
func (d *Dict) Len() int {
	return len(d.words)
}

// HasDotted reports whether any entry contains an embedded period.
func (d *Dict) HasDotted() bool {
	return len(d.dotted) > 0
}

// LongestDotted returns the byte length of the longest dotted entry that is a
// case-insensitive prefix of s and ends on a word boundary, or 0.
func (d *Dict) LongestDotted(s string) int {
	for _, w := range d.dotted {
		if len(s) < len(w) || d.Fold(s[:len(w)]) != w {
			continue
		}
		if len(s) == len(w) || isBoundary(s[len(w)]) {
			return len(w)
		}
	}
	return 0
}

func isBoundary(c byte) bool {
	switch c {
	case ' ', '\t', ',', ';', '.':
		return true
	}
	return false
}
