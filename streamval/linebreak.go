package streamval

import (
	"bytes"
	"context"
	"fmt"
	"io"
)

// LineSplitter turns a raw io.Reader with arbitrary chunk boundaries into
// an AsyncSequence of whole lines (the newline delimiter itself is
// stripped). A non-empty trailing buffer at EOF is silently discarded —
// well-formed streams end with a trailing newline after the last frame.
type LineSplitter struct {
	r        io.Reader
	buf      []byte
	chunk    []byte
	eof      bool
	maxBytes int
}

// NewLineSplitter wraps r with no line size cap.
func NewLineSplitter(r io.Reader) *LineSplitter {
	return &LineSplitter{r: r, chunk: make([]byte, 4096)}
}

// NewLineSplitterWithLimit wraps r, rejecting any line (including its
// partially-buffered remainder) longer than maxBytes with a
// *StructuralError rather than growing the buffer without bound.
func NewLineSplitterWithLimit(r io.Reader, maxBytes int) *LineSplitter {
	return &LineSplitter{r: r, chunk: make([]byte, 4096), maxBytes: maxBytes}
}

func (l *LineSplitter) Next(ctx context.Context) (Result, error) {
	for {
		if idx := bytes.IndexByte(l.buf, '\n'); idx >= 0 {
			if l.maxBytes > 0 && idx > l.maxBytes {
				return Result{}, &StructuralError{Line: string(l.buf[:l.maxBytes]), Err: fmt.Errorf("line exceeds %d byte limit", l.maxBytes)}
			}
			line := append([]byte(nil), l.buf[:idx]...)
			l.buf = l.buf[idx+1:]
			return Result{Kind: Yield, Value: line}, nil
		}
		if l.maxBytes > 0 && len(l.buf) > l.maxBytes {
			return Result{}, &StructuralError{Line: string(l.buf[:l.maxBytes]), Err: fmt.Errorf("line exceeds %d byte limit", l.maxBytes)}
		}
		if l.eof {
			return Result{Kind: Return}, nil
		}

		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		default:
		}

		n, err := l.r.Read(l.chunk)
		if n > 0 {
			l.buf = append(l.buf, l.chunk[:n]...)
		}
		if err != nil {
			if err == io.EOF {
				l.eof = true
				continue
			}
			return Result{}, err
		}
	}
}

// Cancel closes the underlying reader if it implements io.Closer.
func (l *LineSplitter) Cancel(ctx context.Context) error {
	if c, ok := l.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
