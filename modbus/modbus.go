// Package modbus implements an incremental, zero-copy decoder for Modbus
// RTU request frames.
//
// Bytes arrive through Stream.Ingest, which is safe to call from the
// receive interrupt path: it grant-copies into an SPSC bipring and never
// blocks, allocates, or decodes. A single consumer pulls validated frames
// with Stream.Next, which suspends while a frame is incomplete and resumes
// as ingress commits more bytes. Scalar requests copy their two u16 fields
// out of the ring; bulk writes (functions 15 and 16) return CoilView /
// RegisterView values that borrow the framed bytes directly and give them
// back on Close.
//
// Supported request set: functions 1-6, 15 and 16. Anything else is
// reported as UnknownFunctionError, after which the decoder drops whatever
// is buffered and relies on the RTU inter-frame gap to resynchronise.
package modbus

import (
	"context"
	"errors"
	"sync/atomic"

	"modbuscode-go/x/bipring"
)

// Stream turns the committed bytes of a ring into a lazy sequence of
// validated request frames. Exactly one goroutine may call Ingest and
// exactly one may call Next.
type Stream struct {
	ring *bipring.Ring

	// needed is the total length of the frame being assembled, or 0 while
	// the length is still undecidable. The consumer writes it; ingress
	// reads it to decide whether a wake is worthwhile.
	needed atomic.Uint32

	wake chan struct{} // edge-coalesced consumer wakeup
}

// NewStream wraps ring. The ring must not be shared with another producer
// or consumer.
func NewStream(ring *bipring.Ring) *Stream {
	return &Stream{ring: ring, wake: make(chan struct{}, 1)}
}

// Ingest copies one received chunk into the ring and wakes the consumer
// when that may have completed a frame. Call it from the data-received
// interrupt: it never blocks and never decodes. On bipring.ErrOutOfSpace
// the chunk is dropped whole and ring state is untouched; the caller
// accounts for the loss out-of-band.
func (s *Stream) Ingest(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	g, err := s.ring.GrantWrite(len(p))
	if err != nil {
		return err
	}
	copy(g.Bytes(), p)
	g.Commit(len(p))

	need := int(s.needed.Load())
	if need == 0 || s.ring.Buffered() >= need || s.ring.Wrapped() {
		s.signal()
	}
	return nil
}

func (s *Stream) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Next returns the next decoded request frame. A complete malformed frame
// yields ErrCRC or *UnknownFunctionError; subsequent frames decode
// independently. While no complete frame is buffered, Next suspends until
// ingress wakes it or ctx is done. Abandoning a pull at a suspension point
// is safe: ring state is untouched and the next pull resumes the same
// frame.
//
// A bulk frame's view must be closed before any following frame can be
// produced; Next waits for the ring to be reclaimed when the previous
// view is still open.
func (s *Stream) Next(ctx context.Context) (RequestFrame, error) {
	for {
		f, ok, err := s.poll()
		// Reclaimed is only waited on while a view holds the grant: poll's
		// own grant closes raise it too.
		var reclaimed <-chan struct{}
		if err == errViewOpen {
			reclaimed, err = s.ring.Reclaimed(), nil
		}
		if err != nil {
			return RequestFrame{}, err
		}
		if ok {
			return f, nil
		}
		select {
		case <-ctx.Done():
			return RequestFrame{}, ctx.Err()
		case <-s.wake:
		case <-reclaimed:
		}
	}
}

// errViewOpen is poll's internal report that a bulk view still owns the
// read grant.
var errViewOpen = errors.New("modbus: read grant held by open view")

// poll runs one step of the decode state machine. It reports (frame, true)
// on success, an error for a malformed frame, errViewOpen while a bulk view
// still owns the read grant, or (_, false, nil) when more bytes are required.
func (s *Stream) poll() (RequestFrame, bool, error) {
	g, err := s.ring.GrantRead()
	if err != nil {
		// The previous bulk view still owns the read grant.
		return RequestFrame{}, false, errViewOpen
	}
	data := g.Bytes()

	need := int(s.needed.Load())
	if need == 0 {
		n, lerr := requestLength(data)
		if lerr != nil {
			// Length is undecidable, so framing is lost. Drop everything
			// buffered and let the inter-frame gap resynchronise the bus.
			g.SetRelease(len(data))
			g.Close()
			s.drain()
			return RequestFrame{}, false, lerr
		}
		if n == 0 {
			return RequestFrame{}, false, s.starve(g)
		}
		need = n
		s.needed.Store(uint32(n))
	}

	if len(data) < need {
		return RequestFrame{}, false, s.starve(g)
	}

	s.needed.Store(0)
	f, derr := decodeFrame(g, need)
	if derr != nil {
		return RequestFrame{}, false, derr
	}
	return f, true, nil
}

// starve ends a poll that came up short of bytes. Normally the grant is
// closed untouched and the caller suspends. When the producer has already
// wrapped, the current run is frozen and the frame can never complete
// contiguously: the fragment is discarded, length detection restarts, and
// a self-wake re-polls the post-wrap bytes (whose CRC check weeds out the
// torn remainder).
func (s *Stream) starve(g *bipring.ReadGrant) error {
	if s.ring.Wrapped() {
		g.SetRelease(g.Len())
		g.Close()
		s.needed.Store(0)
		s.signal()
		return nil
	}
	g.Close()
	return nil
}

// drain discards every committed byte, including a run wrapped past the
// physical end.
func (s *Stream) drain() {
	for {
		g, err := s.ring.GrantRead()
		if err != nil {
			return
		}
		n := g.Len()
		g.SetRelease(n)
		g.Close()
		if n == 0 {
			return
		}
	}
}
