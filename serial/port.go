// Package serial defines the byte-stream port the decoder pumps from, plus
// a host loopback implementation and an RP2 adaptor over uartx.
package serial

import "errors"

// ErrNoData is returned by ReadByte when the RX buffer is empty.
var ErrNoData = errors.New("serial: no data")

// Port is the RX surface the pump drains. Hardware ports wrap uartx; host
// builds and tests use Loopback. Configuration (baud, pins, format) stays
// on the concrete types.
type Port interface {
	Buffered() int
	ReadByte() (byte, error)

	// Readable signals the arrival of new RX bytes. The notification is
	// edge-coalesced; always drain Buffered after waking.
	Readable() <-chan struct{}
}
