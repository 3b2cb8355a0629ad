package ident

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// Sanitizer turns external field names into identifiers that are legal in one
// target declaration language. A Sanitizer is read-only after construction and
// safe to share between goroutines.
type Sanitizer struct {
	reserved map[string]string
	prefix   rune
}

// NewSanitizer copies reserved so later changes to the caller's map are not
// observed. prefix is the extra symbol allowed anywhere in an identifier, or 0
// when the language has none.
func NewSanitizer(reserved map[string]string, prefix rune) *Sanitizer {
	r := make(map[string]string, len(reserved))
	for k, v := range reserved {
		r[k] = v
	}
	return &Sanitizer{reserved: r, prefix: prefix}
}

var (
	// Declaration is the sanitizer for the structure declaration dialect.
	Declaration = NewSanitizer(declarationReserved, '$')

	// GoSource is the sanitizer for generated Go. Go keywords are not reserved
	// here because the Go renderer exports every identifier.
	GoSource = NewSanitizer(nil, 0)
)

// Sanitize returns a legal identifier for name and whether it differs from
// name. A renamed identifier needs an out-of-band annotation carrying name.
func (s *Sanitizer) Sanitize(name string) (string, bool) {
	if alt, ok := s.reserved[name]; ok {
		return alt, alt != name
	}
	if name == "" {
		return "_", true
	}

	b := strings.Builder{}
	b.Grow(len(name))
	first := true
	for _, c := range name {
		if s.allowed(c, first) {
			b.WriteRune(c)
		} else {
			b.WriteByte('_')
		}
		first = false
	}
	id := b.String()
	return id, id != name
}

// Identifier is Sanitize without the renamed flag.
func (s *Sanitizer) Identifier(name string) string {
	id, _ := s.Sanitize(name)
	return id
}

// IsReserved reports whether word has a mapped alternate.
func (s *Sanitizer) IsReserved(word string) bool {
	_, ok := s.reserved[word]
	return ok
}

func (s *Sanitizer) allowed(c rune, first bool) bool {
	if c == '_' || (s.prefix != 0 && c == s.prefix) {
		return true
	}
	if first {
		return unicode.IsLetter(c)
	}
	return unicode.IsLetter(c) || unicode.IsDigit(c)
}

// CollisionError reports two member names of one structure that sanitize to
// the same identifier.
type CollisionError struct {
	Structure  string
	Identifier string
	Names      [2]string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("members %q and %q of %s both map to identifier %q",
		e.Names[0], e.Names[1], e.Structure, e.Identifier)
}

// CheckUnique fails with a *CollisionError when two names sanitize to the
// same identifier. Names are checked in sorted order so the reported pair is
// deterministic.
func CheckUnique(s *Sanitizer, structure string, names []string) error {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	seen := make(map[string]string, len(sorted))
	for _, n := range sorted {
		id := s.Identifier(n)
		if prev, ok := seen[id]; ok {
			return &CollisionError{Structure: structure, Identifier: id, Names: [2]string{prev, n}}
		}
		seen[id] = n
	}
	return nil
}
