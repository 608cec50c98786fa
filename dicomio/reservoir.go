// Package dicomio implements the byte-level collaborators of the parser: an
// incremental byte reservoir (L0) and the explicit/implicit header decoder
// (L1). Neither component blocks on I/O; both signal "need more input" so
// the caller can pull another chunk from upstream, which is how the parser
// keeps memory bounded regardless of stream size.
package dicomio

import "errors"

// ErrNeedMoreInput is returned by Reservoir and header-decode operations
// when too few bytes have arrived to satisfy the request.
var ErrNeedMoreInput = errors.New("dicomio: need more input")

// Reservoir accumulates byte chunks as they arrive and offers non-
// destructive peeking and destructive consuming of arbitrary prefixes. It
// never copies already-consumed bytes; consumed regions are reclaimed by
// compacting the backing buffer forward.
type Reservoir struct {
	buf    []byte
	pos    int
	closed bool
}

// NewReservoir returns an empty reservoir.
func NewReservoir() *Reservoir {
	return &Reservoir{}
}

// Append adds chunk to the reservoir. The reservoir copies chunk's bytes if
// it needs to grow its backing buffer; callers may reuse chunk afterward.
func (r *Reservoir) Append(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	r.buf = append(r.buf, chunk...)
}

// Close signals that no further chunks will arrive: remaining unconsumed
// bytes are still readable, but a read requiring more bytes than are
// present now signals end-of-input rather than "need more input".
func (r *Reservoir) Close() {
	r.closed = true
}

// Closed reports whether Close has been called.
func (r *Reservoir) Closed() bool { return r.closed }

// Len returns the number of unconsumed bytes currently available.
func (r *Reservoir) Len() int { return len(r.buf) - r.pos }

// Peek returns the next n unconsumed bytes without advancing the read
// position. The second return is false if fewer than n bytes are
// available; the caller should check Closed() to distinguish "need more
// input" from permanent end-of-stream.
func (r *Reservoir) Peek(n int) ([]byte, bool) {
	if n < 0 {
		return nil, false
	}
	if r.Len() < n {
		return nil, false
	}
	return r.buf[r.pos : r.pos+n], true
}

// Consume advances the read position by n bytes and returns them. It panics
// if fewer than n bytes are available; callers must Peek (or otherwise
// know the reservoir holds enough) before calling Consume.
func (r *Reservoir) Consume(n int) []byte {
	b, ok := r.Peek(n)
	if !ok {
		panic("dicomio: Consume called with insufficient buffered input")
	}
	r.pos += n
	r.compact()
	return b
}

// compact reclaims consumed bytes once they make up a large share of the
// backing buffer, so long-running streams do not grow memory unbounded.
func (r *Reservoir) compact() {
	if r.pos == 0 {
		return
	}
	if r.pos < 4096 && r.pos*2 < cap(r.buf) {
		return
	}
	remaining := len(r.buf) - r.pos
	copy(r.buf[:remaining], r.buf[r.pos:])
	r.buf = r.buf[:remaining]
	r.pos = 0
}
