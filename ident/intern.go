// Package ident provides interning and deterministic id derivation shared
// across the engine: EventKey interning (handler package), deterministic
// patch ids (external package) and per-patch RNG seeds (stepper package).
package ident

import (
	"sync"
)

// Keyword is an interned attribute or state name. Comparing two *Keyword
// values interned from the same string is a pointer comparison.
type Keyword struct {
	value string
}

// String returns the keyword text.
func (k *Keyword) String() string {
	return k.value
}

var keywordIntern sync.Map // map[string]*Keyword

// InternKeyword returns the canonical *Keyword for s, creating it on first
// use. Adapted from the teacher's KeywordIntern (sync.Map, LoadOrStore).
func InternKeyword(s string) *Keyword {
	if v, ok := keywordIntern.Load(s); ok {
		return v.(*Keyword)
	}
	kw := &Keyword{value: s}
	actual, _ := keywordIntern.LoadOrStore(s, kw)
	return actual.(*Keyword)
}

// ClearInterns resets the keyword intern table. Exposed for tests that need
// deterministic memory state between model loads.
func ClearInterns() {
	keywordIntern = sync.Map{}
}
