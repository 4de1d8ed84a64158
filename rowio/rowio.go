// Package rowio is the row-I/O coordinator of spec.md §4.13: it writes
// row batches into wire buffers under the merger's source/output
// envelopes, reserving exact byte counts up front, and performs the
// symmetric unwrap on the read path.
package rowio

import (
	"github.com/tarandb/tarancore/dberr"
	"github.com/tarandb/tarancore/merger"
	"github.com/tarandb/tarancore/pack"
)

// Writer accumulates encoded wire bytes. Dump reserves the exact byte
// count an envelope will occupy before encoding into it, so a caller
// inspecting len(Bytes()) mid-stream never observes a torn write.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer over an empty buffer.
func NewWriter() *Writer { return &Writer{} }

// Bytes returns the bytes written so far. The slice is only valid until
// the next Dump call.
func (w *Writer) Bytes() []byte { return w.buf }

// Reset empties the writer, retaining its backing array.
func (w *Writer) Reset() { w.buf = w.buf[:0] }

// Dump encodes tuples under envelope e and appends the result to the
// writer's buffer. On any error the buffer length is left exactly as it
// was before the call (spec.md §5 "Error atomicity": "the target
// buffer's observable write cursor equals its pre-call value").
func (w *Writer) Dump(e merger.Envelope, tuples []pack.Value) error {
	wrapped, err := wrapEnvelope(e, tuples)
	if err != nil {
		return err
	}
	return w.append(wrapped)
}

// append reserves the exact encoded size of v up front and writes it,
// rolling the buffer back to its pre-call length on any mismatch.
func (w *Writer) append(v pack.Value) error {
	mark := len(w.buf)
	need := pack.SizeOf(v)
	w.reserve(need)
	w.buf = pack.Encode(v, w.buf)
	if len(w.buf) != mark+need {
		// The sizing helper and the encoder disagreed; never leave a
		// partially-written envelope visible to the caller.
		wrote := len(w.buf) - mark
		w.buf = w.buf[:mark]
		return dberr.IO("rowio: size_of/encode mismatch: reserved %d, wrote %d", need, wrote)
	}
	return nil
}

// reserve grows the buffer's capacity by at least n bytes without
// touching its length, so Encode's append calls never trigger a second,
// larger-than-needed reallocation mid-write.
func (w *Writer) reserve(n int) {
	if cap(w.buf)-len(w.buf) >= n {
		return
	}
	grown := make([]byte, len(w.buf), len(w.buf)+n)
	copy(grown, w.buf)
	w.buf = grown
}

// Reader unwraps envelopes from a wire buffer. rpos only ever advances
// on a fully successful unwrap (the "move-rpos-only discipline" of
// spec.md §4.13): a failed Unwrap leaves rpos untouched so the caller
// can retry once more bytes have arrived, or report the error without
// having consumed partial input.
type Reader struct {
	buf  []byte
	rpos int
}

// NewReader wraps buf for sequential envelope reads.
func NewReader(buf []byte) *Reader { return &Reader{buf: buf} }

// Remaining returns the unconsumed tail of the reader's buffer.
func (r *Reader) Remaining() []byte { return r.buf[r.rpos:] }

// Unwrap decodes one envelope-wrapped tuple array starting at rpos. On
// success rpos advances past the consumed bytes; on failure rpos is
// unchanged and the error names the envelope layer that failed.
func (r *Reader) Unwrap(e merger.Envelope) ([]pack.Value, error) {
	data := r.buf[r.rpos:]
	v, rest, err := pack.Decode(data)
	if err != nil {
		return nil, dberr.Client(dberr.InvalidMsgPack, "rowio: invalid envelope: %v", err)
	}
	values, err := merger.DecodeEnvelopeValue(e, v)
	if err != nil {
		return nil, err
	}
	r.rpos += len(data) - len(rest)
	return values, nil
}

func wrapEnvelope(e merger.Envelope, tuples []pack.Value) (pack.Value, error) {
	body := pack.Array(tuples...)
	switch e {
	case merger.EnvelopeRaw:
		return body, nil
	case merger.EnvelopeSelect:
		return pack.Map(pack.MapEntry{Key: pack.Uint(merger.ResultKey), Val: body}), nil
	case merger.EnvelopeCall:
		return pack.Map(pack.MapEntry{Key: pack.Uint(merger.ResultKey), Val: pack.Array(body)}), nil
	case merger.EnvelopeChain:
		return pack.Map(pack.MapEntry{Key: pack.Uint(merger.ResultKey), Val: pack.Array(pack.Array(body))}), nil
	default:
		return pack.Value{}, dberr.Logic("rowio: unknown envelope %d", e)
	}
}
