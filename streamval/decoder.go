package streamval

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	"github.com/filegrind/streamval-go/wire"
)

// Decoder holds the per-id controller map a single decode session builds
// up as the header is reconstructed and body frames arrive.
type Decoder struct {
	mu          sync.Mutex
	controllers map[int64]*controller
	// closedIDs tombstones an id once its view has terminated, so a frame
	// that is still in flight for it arrives after controllerFor stops
	// treating the id as live rather than resurrecting a fresh controller.
	closedIDs map[int64]struct{}
	opts      DecodeOptions
	log       *slog.Logger
}

// Decode pulls the header frame from lines, reconstructs the root value
// with the composed reviver map, and spawns a dispatcher that drains the
// remaining frames into per-id controllers as they arrive.
func Decode(ctx context.Context, lines AsyncSequence, opts DecodeOptions) (any, error) {
	d := &Decoder{
		controllers: make(map[int64]*controller),
		closedIDs:   make(map[int64]struct{}),
		opts:        opts,
		log:         slog.Default().With("component", "streamval.decoder", "session", uuid.NewString()),
	}

	res, err := lines.Next(ctx)
	if err != nil {
		return nil, fmt.Errorf("streamval: read header: %w", err)
	}
	if res.Kind != Yield {
		return nil, fmt.Errorf("streamval: empty frame stream")
	}
	headerLine, ok := res.Value.([]byte)
	if !ok {
		return nil, fmt.Errorf("streamval: header frame must be bytes, got %T", res.Value)
	}

	var headerParts []json.RawMessage
	if err := json.Unmarshal(headerLine, &headerParts); err != nil {
		return nil, &StructuralError{Line: string(headerLine), Err: err}
	}
	root, err := wire.Unflatten(headerParts, d.revivers())
	if err != nil {
		return nil, fmt.Errorf("streamval: reconstruct header: %w", err)
	}
	d.log.Debug("header reconstructed")

	go d.dispatch(ctx, lines)

	return root, nil
}

// DecodeTransport routes a raw byte transport through LineSplitter before
// decoding, per §4.6.
func DecodeTransport(ctx context.Context, r io.Reader, opts DecodeOptions) (any, error) {
	if opts.MaxLineBytes > 0 {
		return Decode(ctx, NewLineSplitterWithLimit(r, opts.MaxLineBytes), opts)
	}
	return Decode(ctx, NewLineSplitter(r), opts)
}

func (d *Decoder) revivers() []Reviver {
	builtins := []Reviver{
		{Name: NamePromise, Revive: d.revivePromise},
		{Name: NameAsyncSequence, Revive: d.reviveAsyncSequence},
		{Name: NamePullStream, Revive: d.revivePullStream},
	}
	return append(append([]Reviver{}, d.opts.Revivers...), builtins...)
}

func (d *Decoder) revivePromise(payload any) (any, error) {
	return &promiseView{ctrl: d.controllerFor(idOf(payload))}, nil
}

func (d *Decoder) reviveAsyncSequence(payload any) (any, error) {
	return &sequenceView{ctrl: d.controllerFor(idOf(payload))}, nil
}

func (d *Decoder) revivePullStream(payload any) (any, error) {
	return &pullStreamView{ctrl: d.controllerFor(idOf(payload))}, nil
}

func idOf(payload any) int64 {
	switch v := payload.(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return 0
	}
}

func (d *Decoder) controllerFor(id int64) *controller {
	d.mu.Lock()
	defer d.mu.Unlock()
	if c, ok := d.controllers[id]; ok {
		return c
	}
	if _, closed := d.closedIDs[id]; closed {
		return newDiscardedController()
	}
	c := newController(func() {
		d.mu.Lock()
		d.closedIDs[id] = struct{}{}
		delete(d.controllers, id)
		d.mu.Unlock()
	})
	d.controllers[id] = c
	return c
}

// dispatch consumes the remaining frames, pushing each into its id's
// controller. It never blocks on one controller before pushing to
// another.
func (d *Decoder) dispatch(ctx context.Context, lines AsyncSequence) {
	for {
		res, err := lines.Next(ctx)
		if err != nil {
			d.interruptAll(err)
			return
		}
		switch res.Kind {
		case Return:
			d.interruptAll(ErrStreamInterrupted)
			return
		case Err:
			d.interruptAll(transportCause(res.Err))
			return
		}

		line, ok := res.Value.([]byte)
		if !ok {
			d.interruptAll(fmt.Errorf("streamval: body frame must be bytes, got %T", res.Value))
			return
		}
		if d.opts.StrictValidation {
			if verr := validateBodyFrameShape(line); verr != nil {
				d.interruptAll(verr)
				return
			}
		}

		id, status, payloadParts, perr := parseBodyFrame(line)
		if perr != nil {
			d.interruptAll(perr)
			return
		}
		val, uerr := wire.Unflatten(payloadParts, d.revivers())
		if uerr != nil {
			d.interruptAll(&StructuralError{Line: string(line), Err: uerr})
			return
		}
		d.controllerFor(id).push(status, val)
	}
}

func transportCause(err error) error {
	if err == nil {
		return &InterruptedError{Cause: "unknown"}
	}
	return err
}

func (d *Decoder) interruptAll(err error) {
	d.mu.Lock()
	ctrls := make([]*controller, 0, len(d.controllers))
	for _, c := range d.controllers {
		ctrls = append(ctrls, c)
	}
	d.mu.Unlock()
	for _, c := range ctrls {
		c.pushError(err)
	}
}

var bodyFrameSchema = gojsonschema.NewStringLoader(`{
	"type": "array",
	"items": [
		{"type": "integer"},
		{"type": "integer"},
		{"type": "array"}
	],
	"minItems": 3,
	"maxItems": 3
}`)

// validateBodyFrameShape checks a raw body-frame line against the
// [id, status, payload] shape before structural parsing.
func validateBodyFrameShape(line []byte) error {
	result, err := gojsonschema.Validate(bodyFrameSchema, gojsonschema.NewBytesLoader(line))
	if err != nil {
		return &StructuralError{Line: string(line), Err: err}
	}
	if !result.Valid() {
		return &StructuralError{Line: string(line), Err: fmt.Errorf("%v", result.Errors())}
	}
	return nil
}
