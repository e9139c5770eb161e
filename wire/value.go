// Package wire implements the base structural codec that streamval extends
// with asynchronous reducers/revivers: a JSON "flatten array" serializer
// supporting cyclic references, numeric sentinels, ordered maps and sets,
// dates, big integers, regular expressions, and user-registered named
// reducer/reviver pairs.
package wire

import (
	"math/big"
	"regexp"
	"strings"
	"time"
)

// Map is an ordered keyed collection, wire-tagged "Map" (JS Map analogue).
// Unlike a plain Go map, key order is preserved across Flatten/Unflatten.
type Map struct {
	Keys   []any
	Values []any
}

// NewMap creates an empty ordered Map.
func NewMap() *Map {
	return &Map{}
}

// Set appends a key/value pair, preserving insertion order even on
// repeated keys (mirrors JS Map.set semantics loosely: an existing entry
// with the same key is not replaced, and Map has no delete operation).
func (m *Map) Set(key, value any) *Map {
	m.Keys = append(m.Keys, key)
	m.Values = append(m.Values, value)
	return m
}

// Len returns the number of entries.
func (m *Map) Len() int { return len(m.Keys) }

// Set is an ordered set-like collection, wire-tagged "Set".
type Set struct {
	Values []any
}

// NewSet creates an empty ordered Set.
func NewSet() *Set {
	return &Set{}
}

// Add appends a value to the set in insertion order. Callers are
// responsible for not adding duplicates; Set does not itself dedup,
// mirroring that the wire-level concern is ordering, not uniqueness
// enforcement (the base codec is a serializer, not a collection).
func (s *Set) Add(v any) *Set {
	s.Values = append(s.Values, v)
	return s
}

// Len returns the number of elements.
func (s *Set) Len() int { return len(s.Values) }

// Regexp wraps a compiled pattern for wire transport, since *regexp.Regexp
// does not round-trip through reflection the way a plain struct does.
type Regexp struct {
	Source string
	Flags  string
}

// NewRegexp wraps a compiled regular expression, extracting the "i"
// (case-insensitive) flag from Go's inline (?i) modifier when present so
// that it reads the way a JS regex literal's flags would.
func NewRegexp(re *regexp.Regexp) *Regexp {
	src := re.String()
	if strings.HasPrefix(src, "(?i)") {
		return &Regexp{Source: src[len("(?i)"):], Flags: "i"}
	}
	return &Regexp{Source: src}
}

// Compile returns the compiled *regexp.Regexp for this wire value.
func (r *Regexp) Compile() (*regexp.Regexp, error) {
	pattern := r.Source
	if r.Flags != "" {
		pattern = "(?" + r.Flags + ")" + pattern
	}
	return regexp.Compile(pattern)
}

// sentinel tags for numeric values JSON cannot represent directly.
const (
	tagNaN         = "NaN"
	tagPosInfinity = "Infinity"
	tagNegInfinity = "-Infinity"
	tagNegZero     = "-0"
	tagDate        = "Date"
	tagBigInt      = "BigInt"
	tagRegExp      = "RegExp"
	tagMap         = "Map"
	tagSet         = "Set"
	tagUndefined   = "undefined"
)

// builtinTags are reserved and may not be shadowed by user reducers.
var builtinTags = map[string]bool{
	tagNaN: true, tagPosInfinity: true, tagNegInfinity: true, tagNegZero: true,
	tagDate: true, tagBigInt: true, tagRegExp: true, tagMap: true, tagSet: true,
	tagUndefined: true,
}

// Undefined is a distinguished value distinct from nil, mirroring JS's
// undefined vs null distinction that the base codec is expected to
// preserve. Most Go callers never need it; it exists for completeness of
// the round-trip guarantee over values originating from reducers that
// intentionally emit "no value".
var Undefined = &undefinedType{}

type undefinedType struct{}

// BigInt is a convenience alias so callers don't need to import math/big
// directly just to hand the codec an arbitrary-precision integer.
type BigInt = big.Int

// Date is a convenience alias for time.Time, the codec's calendar type.
type Date = time.Time

// parseDate parses the RFC3339Nano string produced by flattener.date.
func parseDate(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// newBigIntFromString parses the decimal string produced by flattener.bigint.
func newBigIntFromString(s string) (*big.Int, bool) {
	return new(big.Int).SetString(s, 10)
}
