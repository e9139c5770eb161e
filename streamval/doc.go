// Package streamval streams a graph of ordinary and asynchronous Go values
// as newline-delimited JSON text frames, and reconstructs it incrementally
// on the decode side.
//
// It extends the base structural codec in package wire with three
// asynchronous kinds: Promise (a one-shot future), AsyncSequence (a
// pull-driven, possibly-infinite iterator with a terminal return value or
// error), and PullStream (wire-compatible with AsyncSequence but revived as
// an explicit-close reader rather than an iterator). Everything else a
// value graph may contain — cycles, numeric sentinels, time.Time, *big.Int,
// *regexp.Regexp, wire.Map, wire.Set, and user reducer/reviver pairs — is
// handled by package wire and simply carried through unchanged.
//
// Encode walks the root value, assigns each asynchronous value encountered
// a fresh chunk-stream id, and emits one header frame (the base codec's
// serialization of the root, with async values replaced by id placeholders)
// followed by a stream of body frames, one per produced item, each shaped
// [id, status, payload]. Decode does the inverse: it reconstructs the
// header immediately, opening a per-id controller for each async
// placeholder, then dispatches the remaining frames into those controllers
// as they arrive, so consumption of any one async value blocks only on its
// own frames.
package streamval
