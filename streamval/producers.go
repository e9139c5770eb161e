package streamval

import "context"

// promiseProducer turns a Promise into the single-frame AsyncSequence the
// merge engine drives: one Yield carrying the fulfilled/rejected body
// frame, then Return.
type promiseProducer struct {
	id       int64
	p        Promise
	enc      *Encoder
	terminal bool
}

func (pp *promiseProducer) Next(ctx context.Context) (Result, error) {
	if pp.terminal {
		return Result{Kind: Return}, nil
	}
	pp.terminal = true

	v, err := pp.p.Await(ctx)

	var status Status
	var payload []byte
	var encErr error
	if err != nil {
		parts, e := pp.enc.safeEncodeCause(err)
		if e != nil {
			return Result{}, e
		}
		status = StatusRejected
		payload, encErr = marshalBodyFrame(pp.id, status, parts)
	} else {
		parts, e := pp.enc.encodeValue(v)
		if e != nil {
			return Result{}, e
		}
		status = StatusFulfilled
		payload, encErr = marshalBodyFrame(pp.id, status, parts)
	}
	if encErr != nil {
		return Result{}, encErr
	}
	return Result{Kind: Yield, Value: payload}, nil
}

func (pp *promiseProducer) Cancel(ctx context.Context) error {
	return nil
}

// sequenceProducer turns a user AsyncSequence into the encoder's
// per-id frame producer: one Yield per upstream step, the last of which
// carries the terminal (return or error) body frame, followed by Return.
type sequenceProducer struct {
	id       int64
	seq      AsyncSequence
	enc      *Encoder
	terminal bool
}

func (sp *sequenceProducer) Next(ctx context.Context) (Result, error) {
	if sp.terminal {
		return Result{Kind: Return}, nil
	}

	res, err := sp.seq.Next(ctx)
	if err != nil {
		res = Result{Kind: Err, Err: err}
	}

	switch res.Kind {
	case Yield:
		parts, e := sp.enc.encodeValue(res.Value)
		if e != nil {
			return Result{}, e
		}
		frame, e := marshalBodyFrame(sp.id, StatusYield, parts)
		if e != nil {
			return Result{}, e
		}
		return Result{Kind: Yield, Value: frame}, nil

	case Return:
		sp.terminal = true
		parts, e := sp.enc.encodeValue(res.Value)
		if e != nil {
			return Result{}, e
		}
		frame, e := marshalBodyFrame(sp.id, StatusReturn, parts)
		if e != nil {
			return Result{}, e
		}
		return Result{Kind: Yield, Value: frame}, nil

	default: // Err
		sp.terminal = true
		parts, e := sp.enc.safeEncodeCause(res.Err)
		if e != nil {
			return Result{}, e
		}
		frame, e := marshalBodyFrame(sp.id, StatusError, parts)
		if e != nil {
			return Result{}, e
		}
		return Result{Kind: Yield, Value: frame}, nil
	}
}

func (sp *sequenceProducer) Cancel(ctx context.Context) error {
	return sp.seq.Cancel(ctx)
}

// pullStreamProducer turns a user PullStream into the encoder's per-id
// frame producer, identically shaped to sequenceProducer but driven by
// Pull/Close rather than Next/Cancel.
type pullStreamProducer struct {
	id       int64
	s        PullStream
	enc      *Encoder
	terminal bool
}

func (sp *pullStreamProducer) Next(ctx context.Context) (Result, error) {
	if sp.terminal {
		return Result{Kind: Return}, nil
	}

	v, ok, err := sp.s.Pull(ctx)
	if err != nil {
		sp.terminal = true
		parts, e := sp.enc.safeEncodeCause(err)
		if e != nil {
			return Result{}, e
		}
		frame, e := marshalBodyFrame(sp.id, StatusError, parts)
		if e != nil {
			return Result{}, e
		}
		return Result{Kind: Yield, Value: frame}, nil
	}
	if !ok {
		sp.terminal = true
		parts, e := sp.enc.encodeValue(nil)
		if e != nil {
			return Result{}, e
		}
		frame, e := marshalBodyFrame(sp.id, StatusReturn, parts)
		if e != nil {
			return Result{}, e
		}
		return Result{Kind: Yield, Value: frame}, nil
	}

	parts, e := sp.enc.encodeValue(v)
	if e != nil {
		return Result{}, e
	}
	frame, e := marshalBodyFrame(sp.id, StatusYield, parts)
	if e != nil {
		return Result{}, e
	}
	return Result{Kind: Yield, Value: frame}, nil
}

func (sp *pullStreamProducer) Cancel(ctx context.Context) error {
	return sp.s.Close(ctx)
}
