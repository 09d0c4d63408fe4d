// Package pattern wraps the two regular expression engines a stored rule can
// be compiled with.
//
// A Pattern is either Simple (RE2, linear time, no backreferences or
// lookaround) or Fancy (backtracking, supports lookaround). The kind is chosen
// once at compile time and never changes. Compiled patterns are immutable and
// safe for concurrent use.
package pattern

import (
	"fmt"
	"regexp"
	"time"

	"github.com/dlclark/regexp2"
)

type Kind uint8

const (
	KindSimple Kind = iota
	KindFancy
)

func (k Kind) String() string {
	if k == KindFancy {
		return "fancy"
	}
	return "simple"
}

// fancyTimeout bounds a single backtracking match.
const fancyTimeout = 250 * time.Millisecond

type Pattern struct {
	kind   Kind
	source string
	simple *regexp.Regexp
	fancy  *regexp2.Regexp
}

type CompileError struct {
	Source string
	Kind   Kind
	Err    error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile %s pattern %q: %v", e.Kind, e.Source, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// Compile builds a Fancy pattern when fancy is set and a Simple one otherwise.
func Compile(source string, fancy bool) (Pattern, error) {
	if fancy {
		re, err := regexp2.Compile(source, regexp2.None)
		if err != nil {
			return Pattern{}, &CompileError{Source: source, Kind: KindFancy, Err: err}
		}
		re.MatchTimeout = fancyTimeout
		return Pattern{kind: KindFancy, source: source, fancy: re}, nil
	}

	re, err := regexp.Compile(source)
	if err != nil {
		return Pattern{}, &CompileError{Source: source, Kind: KindSimple, Err: err}
	}
	return Pattern{kind: KindSimple, source: source, simple: re}, nil
}

// CompileInsensitive builds a case-insensitive Simple pattern. String still
// reports the source as written.
func CompileInsensitive(source string) (Pattern, error) {
	re, err := regexp.Compile("(?i)" + source)
	if err != nil {
		return Pattern{}, &CompileError{Source: source, Kind: KindSimple, Err: err}
	}
	return Pattern{kind: KindSimple, source: source, simple: re}, nil
}

func MustCompile(source string, fancy bool) Pattern {
	p, err := Compile(source, fancy)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Pattern) Kind() Kind { return p.kind }

func (p Pattern) IsZero() bool { return p.simple == nil && p.fancy == nil }

// String returns the source the pattern was compiled from.
func (p Pattern) String() string { return p.source }

// Find returns the leftmost match in s. A Fancy match that runs past its
// timeout is reported as no match.
func (p Pattern) Find(s string) (string, bool) {
	switch {
	case p.fancy != nil:
		m, err := p.fancy.FindStringMatch(s)
		if err != nil || m == nil {
			return "", false
		}
		return m.String(), true
	case p.simple != nil:
		loc := p.simple.FindStringIndex(s)
		if loc == nil {
			return "", false
		}
		return s[loc[0]:loc[1]], true
	default:
		return "", false
	}
}

func (p Pattern) MatchString(s string) bool {
	switch {
	case p.fancy != nil:
		ok, err := p.fancy.MatchString(s)
		return err == nil && ok
	case p.simple != nil:
		return p.simple.MatchString(s)
	default:
		return false
	}
}
