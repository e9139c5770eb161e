package wire

import (
	"encoding/json"
	"math"
	"math/big"
	"reflect"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, root any, reducers []Reducer, revivers []Reviver) any {
	t.Helper()
	parts, err := Flatten(root, reducers)
	require.NoError(t, err)
	got, err := Unflatten(parts, revivers)
	require.NoError(t, err)
	return got
}

func TestFlattenScalars(t *testing.T) {
	parts, err := Flatten("hello", nil)
	require.NoError(t, err)
	require.Len(t, parts, 1)
	require.JSONEq(t, `"hello"`, string(parts[0]))

	got := roundTrip(t, 42.5, nil, nil)
	require.Equal(t, 42.5, got)
}

func TestFlattenArrayIsAllIndices(t *testing.T) {
	parts, err := Flatten([]any{"a", "b"}, nil)
	require.NoError(t, err)
	require.Len(t, parts, 3)
	require.JSONEq(t, `[1,2]`, string(parts[0]))
	require.JSONEq(t, `"a"`, string(parts[1]))
	require.JSONEq(t, `"b"`, string(parts[2]))

	got := roundTrip(t, []any{"a", "b"}, nil, nil)
	require.Equal(t, []any{"a", "b"}, got)
}

func TestFlattenObject(t *testing.T) {
	root := map[string]any{"asyncIterable": 1.0}
	got := roundTrip(t, root, nil, nil)
	require.Equal(t, map[string]any{"asyncIterable": 1.0}, got)
}

func TestNumericSentinels(t *testing.T) {
	cases := []float64{math.NaN(), math.Inf(1), math.Inf(-1), math.Copysign(0, -1)}
	for _, c := range cases {
		got := roundTrip(t, c, nil, nil)
		gf, ok := got.(float64)
		require.True(t, ok)
		if math.IsNaN(c) {
			require.True(t, math.IsNaN(gf))
			continue
		}
		if c == 0 && math.Signbit(c) {
			require.True(t, gf == 0 && math.Signbit(gf))
			continue
		}
		require.Equal(t, c, gf)
	}
}

func TestCyclicArray(t *testing.T) {
	self := make([]any, 1)
	self[0] = self

	parts, err := Flatten(self, nil)
	require.NoError(t, err)

	got, err := Unflatten(parts, nil)
	require.NoError(t, err)

	arr, ok := got.([]any)
	require.True(t, ok)
	require.Len(t, arr, 1)
	inner, ok := arr[0].([]any)
	require.True(t, ok)
	require.Equal(t, reflect.ValueOf(arr).Pointer(), reflect.ValueOf(inner).Pointer())
}

func TestMapAndSet(t *testing.T) {
	m := NewMap().Set("a", 1.0).Set("b", 2.0)
	got := roundTrip(t, m, nil, nil)
	gotMap, ok := got.(*Map)
	require.True(t, ok)
	require.Equal(t, []any{"a", "b"}, gotMap.Keys)
	require.Equal(t, []any{1.0, 2.0}, gotMap.Values)

	s := NewSet().Add("x").Add("y")
	gotAny := roundTrip(t, s, nil, nil)
	gotSet, ok := gotAny.(*Set)
	require.True(t, ok)
	require.Equal(t, []any{"x", "y"}, gotSet.Values)
}

func TestDateBigIntRegExp(t *testing.T) {
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	got := roundTrip(t, now, nil, nil)
	gotTime, ok := got.(time.Time)
	require.True(t, ok)
	require.True(t, now.Equal(gotTime))

	big1, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	gotBig := roundTrip(t, big1, nil, nil)
	gb, ok := gotBig.(*big.Int)
	require.True(t, ok)
	require.Equal(t, 0, big1.Cmp(gb))

	re := regexp.MustCompile(`a+b`)
	gotRe := roundTrip(t, re, nil, nil)
	wireRe, ok := gotRe.(*Regexp)
	require.True(t, ok)
	compiled, err := wireRe.Compile()
	require.NoError(t, err)
	require.True(t, compiled.MatchString("aaab"))
}

func TestUndefined(t *testing.T) {
	got := roundTrip(t, Undefined, nil, nil)
	require.Same(t, Undefined, got)
}

func TestCustomReducerReviver(t *testing.T) {
	type point struct{ X, Y float64 }

	reducers := []Reducer{{
		Name: "Point",
		Match: func(v any) (any, bool) {
			p, ok := v.(point)
			if !ok {
				return nil, false
			}
			return []any{p.X, p.Y}, true
		},
	}}
	revivers := []Reviver{{
		Name: "Point",
		Revive: func(payload any) (any, error) {
			arr := payload.([]any)
			return point{X: arr[0].(float64), Y: arr[1].(float64)}, nil
		},
	}}

	got := roundTrip(t, point{X: 1, Y: 2}, reducers, revivers)
	require.Equal(t, point{X: 1, Y: 2}, got)
}

func TestReducerDedupsRepeatedReferenceAcrossPositions(t *testing.T) {
	type box struct{ N int }
	shared := &box{N: 7}

	calls := 0
	reducers := []Reducer{{
		Name: "Box",
		Match: func(v any) (any, bool) {
			b, ok := v.(*box)
			if !ok {
				return nil, false
			}
			calls++
			return b.N, true
		},
	}}
	revivers := []Reviver{{
		Name: "Box",
		Revive: func(payload any) (any, error) {
			return &box{N: int(payload.(float64))}, nil
		},
	}}

	root := map[string]any{"a": shared, "b": shared}
	parts, err := Flatten(root, reducers)
	require.NoError(t, err)
	require.Equal(t, 1, calls, "Match must run once for one underlying reference, not once per occurrence")
	// object index + tag array + literal payload = 3 parts, not 5: the
	// second occurrence resolves to the same tag-array index as the first.
	require.Len(t, parts, 3)

	got, err := Unflatten(parts, revivers)
	require.NoError(t, err)
	m := got.(map[string]any)
	require.Same(t, m["a"], m["b"])
}

func TestReducerCannotShadowBuiltinTag(t *testing.T) {
	reducers := []Reducer{{
		Name: "Map",
		Match: func(v any) (any, bool) { return v, true },
	}}
	_, err := Flatten("anything", reducers)
	require.Error(t, err)
}

func TestUnflattenUnknownTagErrors(t *testing.T) {
	parts := []json.RawMessage{
		json.RawMessage(`["Mystery",1]`),
		json.RawMessage(`"payload"`),
	}
	_, err := Unflatten(parts, nil)
	require.Error(t, err)
}

func TestSpecExampleShape(t *testing.T) {
	// Mirrors the header shape from spec.md §6: an object whose child is a
	// bare index, referencing a scalar in turn.
	root := map[string]any{"asyncIterable": 1.0}
	parts, err := Flatten(root, nil)
	require.NoError(t, err)
	require.Len(t, parts, 2)
	require.JSONEq(t, `{"asyncIterable":1}`, string(parts[0]))
	require.JSONEq(t, `1`, string(parts[1]))
}
