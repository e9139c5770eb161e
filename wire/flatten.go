package wire

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"regexp"
	"sort"
	"time"
)

// Reducer extracts a wire-representable payload from values of one
// user-defined kind. Match returns ok=false for any value it does not
// recognize; the payload, when ok, is itself recursively flattened, so a
// reducer may return any value the codec otherwise understands (including
// another custom-reduced value).
type Reducer struct {
	Name  string
	Match func(v any) (payload any, ok bool)
}

// Flatten walks root and returns the "parts" array of the base codec's
// flatten form: parts[0] is root's own encoding; every value nested inside
// a composite (object, array, Map, Set, or tag) is replaced at its point of
// use by a bare integer index into parts, and that index's slot holds the
// value's own encoding in turn. Reducers are tried, in order, before the
// codec's built-in handling of maps/slices/Map/Set/time.Time/*big.Int/
// *regexp.Regexp/numeric sentinels, so a reducer may shadow a built-in.
func Flatten(root any, reducers []Reducer) ([]json.RawMessage, error) {
	f := &flattener{
		seen:     make(map[identity]int),
		reducers: reducers,
	}
	if _, err := f.flatten(root); err != nil {
		return nil, err
	}
	return f.parts, nil
}

type identity struct {
	typ reflect.Type
	ptr uintptr
}

type flattener struct {
	parts    []json.RawMessage
	seen     map[identity]int
	reducers []Reducer
}

func (f *flattener) reserve() int {
	idx := len(f.parts)
	f.parts = append(f.parts, json.RawMessage("null"))
	return idx
}

func (f *flattener) flatten(v any) (int, error) {
	// Checked once, up front, for every value with reference identity: a
	// value already flattened at an earlier position — whether via a
	// reducer tag, an array, an object, a Map, or a Set — resolves to that
	// same parts index here, before a reducer's Match is even tried again.
	// This is what makes "the same async value at two root positions"
	// collapse to one id and one producer instead of two.
	if key, ok := identityKey(v); ok {
		if idx, found := f.seen[key]; found {
			return idx, nil
		}
	}

	for _, r := range f.reducers {
		if payload, ok := r.Match(v); ok {
			return f.reducedTag(v, r.Name, payload)
		}
	}

	switch val := v.(type) {
	case nil:
		return f.literal(nil)
	case bool:
		return f.literal(val)
	case string:
		return f.literal(val)
	case int:
		return f.number(float64(val))
	case int32:
		return f.number(float64(val))
	case int64:
		return f.number(float64(val))
	case uint:
		return f.number(float64(val))
	case uint64:
		return f.number(float64(val))
	case float32:
		return f.number(float64(val))
	case float64:
		return f.number(val)
	case []any:
		return f.array(val)
	case map[string]any:
		return f.object(val)
	case *Map:
		return f.mapValue(val)
	case *Set:
		return f.setValue(val)
	case *big.Int:
		return f.bigint(val)
	case time.Time:
		return f.date(val)
	case *regexp.Regexp:
		return f.regexpValue(NewRegexp(val))
	case *Regexp:
		return f.regexpValue(val)
	case *undefinedType:
		return f.tag0(tagUndefined)
	default:
		return 0, fmt.Errorf("wire: unsupported type %T (register a reducer for it)", v)
	}
}

func (f *flattener) literal(v any) (int, error) {
	idx := f.reserve()
	raw, err := json.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("wire: marshal literal: %w", err)
	}
	f.parts[idx] = raw
	return idx, nil
}

func (f *flattener) number(v float64) (int, error) {
	switch {
	case math.IsNaN(v):
		return f.tag0(tagNaN)
	case math.IsInf(v, 1):
		return f.tag0(tagPosInfinity)
	case math.IsInf(v, -1):
		return f.tag0(tagNegInfinity)
	case v == 0 && math.Signbit(v):
		return f.tag0(tagNegZero)
	default:
		return f.literal(v)
	}
}

func (f *flattener) tag0(name string) (int, error) {
	idx := f.reserve()
	raw, err := json.Marshal([1]string{name})
	if err != nil {
		return 0, err
	}
	f.parts[idx] = raw
	return idx, nil
}

// reducedTag flattens the payload a matching Reducer produced for v, tagged
// with name. v's identity (when trackable) is recorded in seen before
// payload is recursively flattened, so a cyclic reducer payload that loops
// back to v resolves to this same index rather than recursing forever — the
// same ordering array/object/Map/Set use. The caller (flatten) has already
// confirmed v has no cached entry yet.
func (f *flattener) reducedTag(v any, name string, payload any) (int, error) {
	if builtinTags[name] {
		// Built-in tags are only ever produced internally; a user Reducer
		// claiming one of these names would shadow the codec's own
		// sentinel/Map/Set/Date/BigInt/RegExp handling in a way that can
		// never round-trip back through Unflatten's built-in revivers.
		return 0, fmt.Errorf("wire: reducer name %q is reserved", name)
	}
	key, trackable := identityKey(v)
	idx := f.reserve()
	if trackable {
		f.seen[key] = idx
	}
	childIdx, err := f.flatten(payload)
	if err != nil {
		return 0, err
	}
	raw, err := json.Marshal([2]any{name, childIdx})
	if err != nil {
		return 0, err
	}
	f.parts[idx] = raw
	return idx, nil
}

func (f *flattener) identityOf(v any) identity {
	rv := reflect.ValueOf(v)
	return identity{typ: rv.Type(), ptr: rv.Pointer()}
}

// identityKey computes a dedup key for values whose Go representation
// carries reference identity (pointers, maps, slices, channels, funcs).
// Values without reference identity (plain scalars, non-pointer structs) are
// reported as untrackable: ok=false, meaning the caller must not dedup them
// since Go gives us no notion of "the same value" to key on beyond equality,
// which is not what identity-based dedup means here.
func identityKey(v any) (identity, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		if rv.IsNil() {
			return identity{}, false
		}
		return identity{typ: rv.Type(), ptr: rv.Pointer()}, true
	default:
		return identity{}, false
	}
}

func (f *flattener) array(v []any) (int, error) {
	key := f.identityOf(v)
	if idx, ok := f.seen[key]; ok {
		return idx, nil
	}
	idx := f.reserve()
	f.seen[key] = idx
	children := make([]int, len(v))
	for i, elem := range v {
		childIdx, err := f.flatten(elem)
		if err != nil {
			return 0, err
		}
		children[i] = childIdx
	}
	raw, err := json.Marshal(children)
	if err != nil {
		return 0, err
	}
	f.parts[idx] = raw
	return idx, nil
}

func (f *flattener) object(v map[string]any) (int, error) {
	key := f.identityOf(v)
	if idx, ok := f.seen[key]; ok {
		return idx, nil
	}
	idx := f.reserve()
	f.seen[key] = idx
	// encoding/json sorts map[string]T keys when marshaling, and children
	// are flattened in that same sorted key order, giving deterministic
	// wire output without us tracking insertion order here.
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	children := make(map[string]int, len(v))
	for _, k := range keys {
		elem := v[k]
		childIdx, err := f.flatten(elem)
		if err != nil {
			return 0, err
		}
		children[k] = childIdx
	}
	raw, err := json.Marshal(children)
	if err != nil {
		return 0, err
	}
	f.parts[idx] = raw
	return idx, nil
}

func (f *flattener) mapValue(m *Map) (int, error) {
	key := f.identityOf(m)
	if idx, ok := f.seen[key]; ok {
		return idx, nil
	}
	idx := f.reserve()
	f.seen[key] = idx
	entries := make([]any, m.Len())
	for i := range m.Keys {
		entries[i] = []any{m.Keys[i], m.Values[i]}
	}
	childIdx, err := f.flatten(entries)
	if err != nil {
		return 0, err
	}
	raw, err := json.Marshal([2]any{tagMap, childIdx})
	if err != nil {
		return 0, err
	}
	f.parts[idx] = raw
	return idx, nil
}

func (f *flattener) setValue(s *Set) (int, error) {
	key := f.identityOf(s)
	if idx, ok := f.seen[key]; ok {
		return idx, nil
	}
	idx := f.reserve()
	f.seen[key] = idx
	childIdx, err := f.flatten(append([]any{}, s.Values...))
	if err != nil {
		return 0, err
	}
	raw, err := json.Marshal([2]any{tagSet, childIdx})
	if err != nil {
		return 0, err
	}
	f.parts[idx] = raw
	return idx, nil
}

func (f *flattener) bigint(b *big.Int) (int, error) {
	idx := f.reserve()
	childIdx, err := f.flatten(b.String())
	if err != nil {
		return 0, err
	}
	raw, err := json.Marshal([2]any{tagBigInt, childIdx})
	if err != nil {
		return 0, err
	}
	f.parts[idx] = raw
	return idx, nil
}

func (f *flattener) date(t time.Time) (int, error) {
	idx := f.reserve()
	childIdx, err := f.flatten(t.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, err
	}
	raw, err := json.Marshal([2]any{tagDate, childIdx})
	if err != nil {
		return 0, err
	}
	f.parts[idx] = raw
	return idx, nil
}

func (f *flattener) regexpValue(r *Regexp) (int, error) {
	idx := f.reserve()
	childIdx, err := f.flatten([]any{r.Source, r.Flags})
	if err != nil {
		return 0, err
	}
	raw, err := json.Marshal([2]any{tagRegExp, childIdx})
	if err != nil {
		return 0, err
	}
	f.parts[idx] = raw
	return idx, nil
}
