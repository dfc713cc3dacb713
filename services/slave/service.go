// Package slave runs the receive side of a Modbus RTU slave: it pumps a
// serial port into the decoder and hands out validated request frames.
//
// Two goroutines per service: the pump plays the interrupt-equivalent
// producer (port -> Stream.Ingest, never decoding), the decode loop pulls
// frames and delivers them on a bounded events channel. A slow consumer
// loses events, never bytes: dropped frames are closed first so their ring
// grant returns.
package slave

import (
	"context"
	"errors"
	"sync/atomic"

	"modbuscode-go/errcode"
	"modbuscode-go/modbus"
	"modbuscode-go/serial"
	"modbuscode-go/x/bipring"
	"modbuscode-go/x/fmtx"
	"modbuscode-go/x/mathx"
)

// Event is one decode outcome. Frame is valid when Code == errcode.OK and
// must be closed by the receiver once its views are done with.
type Event struct {
	Frame modbus.RequestFrame
	Err   error
	Code  errcode.Code
}

type Config struct {
	ID        string
	RingSize  int // RX ring bytes; clamped to 64..4096, rounded up to a power of two
	ChunkSize int // max bytes moved per pump pass; clamped to 16..256
	QueueLen  int // events channel depth
	LogDrops  bool
}

type Service struct {
	cfg    Config
	ring   *bipring.Ring
	stream *modbus.Stream
	outQ   chan Event

	overflows atomic.Uint32 // ingest chunks refused by the ring
	dropped   atomic.Uint32 // events lost to a slow consumer
}

func New(cfg Config) *Service {
	cfg.RingSize = mathx.CeilPow2(mathx.Clamp(cfg.RingSize, 64, 4096))
	cfg.ChunkSize = mathx.Clamp(cfg.ChunkSize, 16, 256)
	if cfg.QueueLen <= 0 {
		cfg.QueueLen = 8
	}
	ring := bipring.New(cfg.RingSize)
	bipring.Track(cfg.ID, ring)
	return &Service{
		cfg:    cfg,
		ring:   ring,
		stream: modbus.NewStream(ring),
		outQ:   make(chan Event, cfg.QueueLen),
	}
}

// Events delivers decode outcomes in wire order.
func (s *Service) Events() <-chan Event { return s.outQ }

// Overflows counts RX chunks dropped because the ring was full.
func (s *Service) Overflows() uint32 { return s.overflows.Load() }

// Dropped counts events discarded because the consumer lagged.
func (s *Service) Dropped() uint32 { return s.dropped.Load() }

// Start launches the pump and decode goroutines. The returned stop function
// cancels both and untracks the ring; it may be called once.
func (s *Service) Start(ctx context.Context, port serial.Port) func() {
	cctx, cancel := context.WithCancel(ctx)
	go s.pump(cctx, port)
	go s.decode(cctx)
	return func() {
		cancel()
		bipring.Untrack(s.cfg.ID)
	}
}

// pump is the producer side: drain the port in bounded chunks, push each
// chunk through Ingest, park on the readiness edge when the port runs dry.
func (s *Service) pump(ctx context.Context, port serial.Port) {
	buf := make([]byte, s.cfg.ChunkSize)
	for {
		n := 0
		for n < len(buf) && port.Buffered() > 0 {
			b, err := port.ReadByte()
			if err != nil {
				break
			}
			buf[n] = b
			n++
		}
		if n > 0 {
			if err := s.stream.Ingest(buf[:n]); err != nil {
				s.overflows.Add(1)
				if s.cfg.LogDrops {
					fmtx.Printf("slave %s: rx overflow, dropped %d bytes\n", s.cfg.ID, n)
				}
			}
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-port.Readable():
		}
	}
}

func (s *Service) decode(ctx context.Context) {
	for {
		f, err := s.stream.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.emit(Event{Err: err, Code: codeOf(err)})
			continue
		}
		s.emit(Event{Frame: f, Code: errcode.OK})
	}
}

func (s *Service) emit(ev Event) {
	select {
	case s.outQ <- ev:
	default:
		// Consumer is slow: give the frame's bytes back to the ring, then
		// drop the event.
		ev.Frame.Close()
		s.dropped.Add(1)
		if s.cfg.LogDrops {
			fmtx.Printf("slave %s: event dropped (%s)\n", s.cfg.ID, ev.Code)
		}
	}
}

// codeOf maps decoder errors to their stable service codes.
func codeOf(err error) errcode.Code {
	var uf *modbus.UnknownFunctionError
	switch {
	case err == nil:
		return errcode.OK
	case errors.Is(err, modbus.ErrCRC):
		return errcode.CRC
	case errors.As(err, &uf):
		return errcode.UnknownFunction
	case errors.Is(err, bipring.ErrOutOfSpace):
		return errcode.Overflow
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return errcode.Canceled
	default:
		return errcode.Error
	}
}
