package serial

import "sync"

// Loopback is an in-memory Port for host builds and tests: bytes pushed
// with Feed (or written with Write) appear on the RX side.
type Loopback struct {
	mu sync.Mutex
	rx []byte
	rd chan struct{}
}

var _ Port = (*Loopback)(nil)

func NewLoopback() *Loopback {
	return &Loopback{rd: make(chan struct{}, 1)}
}

// Feed appends bytes to the RX side and raises the readiness edge.
func (l *Loopback) Feed(p []byte) int {
	if len(p) == 0 {
		return 0
	}
	l.mu.Lock()
	l.rx = append(l.rx, p...)
	l.mu.Unlock()
	select {
	case l.rd <- struct{}{}:
	default:
	}
	return len(p)
}

func (l *Loopback) Write(p []byte) (int, error) { return l.Feed(p), nil }

func (l *Loopback) Buffered() int {
	l.mu.Lock()
	n := len(l.rx)
	l.mu.Unlock()
	return n
}

func (l *Loopback) ReadByte() (byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.rx) == 0 {
		return 0, ErrNoData
	}
	b := l.rx[0]
	l.rx = l.rx[1:]
	return b, nil
}

func (l *Loopback) Readable() <-chan struct{} { return l.rd }
