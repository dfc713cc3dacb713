//go:build rp2040 || rp2350

package serial

import (
	"machine"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
	"tinygo.org/x/drivers"
)

// UARTx adapts a uartx hardware UART to Port. uartx runs the RX IRQ into
// an internal ring and exposes the Readable edge the pump selects on.
// Configure takes the drivers.UARTConfig shape so callers can treat it
// like any other TinyGo UART peripheral.
type UARTx struct {
	u      *uartx.UART
	tx, rx machine.Pin
}

var _ Port = (*UARTx)(nil)

// UART0 returns the uart0 peripheral on the given pins.
func UART0(tx, rx machine.Pin) *UARTx { return &UARTx{u: uartx.UART0, tx: tx, rx: rx} }

// UART1 returns the uart1 peripheral on the given pins.
func UART1(tx, rx machine.Pin) *UARTx { return &UARTx{u: uartx.UART1, tx: tx, rx: rx} }

func (p *UARTx) Configure(cfg drivers.UARTConfig) error {
	return p.u.Configure(uartx.UARTConfig{
		BaudRate: cfg.BaudRate,
		TX:       p.tx,
		RX:       p.rx,
	})
}

func (p *UARTx) Buffered() int { return p.u.Buffered() }

func (p *UARTx) ReadByte() (byte, error) {
	var b [1]byte
	n, err := p.u.Read(b[:])
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrNoData
	}
	return b[0], nil
}

func (p *UARTx) Write(d []byte) (int, error) { return p.u.Write(d) }

func (p *UARTx) Readable() <-chan struct{} { return p.u.Readable() }

// SetBaudRate reconfigures the line speed without touching pins.
func (p *UARTx) SetBaudRate(br uint32) { p.u.SetBaudRate(br) }

// SetFormat sets data bits, stop bits and parity (0 none, 1 even, 2 odd).
func (p *UARTx) SetFormat(databits, stopbits, parity uint8) error {
	var par uartx.UARTParity
	switch parity {
	case 1:
		par = uartx.ParityEven
	case 2:
		par = uartx.ParityOdd
	default:
		par = uartx.ParityNone
	}
	return p.u.SetFormat(databits, stopbits, par)
}
