package streamval

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLineSplitterSplitsAcrossChunks(t *testing.T) {
	r := strings.NewReader("line one\nli")
	r2 := io.MultiReader(r, strings.NewReader("ne two\n"))
	ls := NewLineSplitter(r2)

	res, err := ls.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, Yield, res.Kind)
	require.Equal(t, "line one", string(res.Value.([]byte)))

	res, err = ls.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, Yield, res.Kind)
	require.Equal(t, "line two", string(res.Value.([]byte)))

	res, err = ls.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, Return, res.Kind)
}

func TestLineSplitterDiscardsTrailingPartialBuffer(t *testing.T) {
	ls := NewLineSplitter(strings.NewReader("only-one-line\nno-trailing-newline"))

	res, err := ls.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, "only-one-line", string(res.Value.([]byte)))

	res, err = ls.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, Return, res.Kind)
}

func TestLineSplitterWithLimitRejectsOversizedLine(t *testing.T) {
	ls := NewLineSplitterWithLimit(strings.NewReader("short\nthis-line-is-too-long\n"), 10)

	res, err := ls.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, "short", string(res.Value.([]byte)))

	_, err = ls.Next(context.Background())
	require.Error(t, err)
	var se *StructuralError
	require.ErrorAs(t, err, &se)
}
