//go:build !(rp2040 || rp2350)

package main

import (
	"context"
	"time"

	"modbuscode-go/modbus"
	"modbuscode-go/serial"
	"modbuscode-go/services/slave"
	"modbuscode-go/x/bipring"
	"modbuscode-go/x/fmtx"
)

// Host-side selftest: pushes a handful of known request frames through the
// loopback port and prints what the decoder makes of them. The third frame
// arrives split across two pushes to show the decoder suspending mid-frame.
var feed = [][]byte{
	{0x11, 0x01, 0x00, 0x13, 0x00, 0x25, 0x0E, 0x84}, // read coils
	{0x11, 0x06, 0x00, 0x01, 0x00, 0x03, 0x9A, 0x9B}, // write single register
	{0x11, 0x0F, 0x00, 0x13},                         // write multiple coils, first half
	{0x00, 0x0A, 0x02, 0xCD, 0x01, 0xBF, 0x0B},       // second half
	{0x11, 0x05, 0x00, 0xAC, 0x00, 0xFF, 0x4F, 0x3B}, // write single coil (off)
	{0x11, 0x01, 0x00, 0x13, 0x00, 0x25, 0x0E, 0x85}, // bad crc
	{0x11, 0x10, 0x00, 0x01, 0x00, 0x02, 0x04, 0x00, 0x0A, 0x01, 0x02, 0xC6, 0xF0}, // write multiple registers
}

const wantEvents = 6

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	port := serial.NewLoopback()
	svc := slave.New(slave.Config{ID: "selftest", RingSize: 256, LogDrops: true})
	stop := svc.Start(ctx, port)
	defer stop()

	go func() {
		for _, chunk := range feed {
			port.Feed(chunk)
			time.Sleep(20 * time.Millisecond)
		}
	}()

	for i := 0; i < wantEvents; i++ {
		select {
		case ev := <-svc.Events():
			report(ev)
			ev.Frame.Close()
		case <-ctx.Done():
			fmtx.Printf("selftest: timed out waiting for frames\n")
			return
		}
	}
	for _, st := range bipring.Stats() {
		fmtx.Printf("ring %s: cap=%d buffered=%d\n", st.Name, st.Cap, st.Buffered)
	}
	fmtx.Printf("selftest: done, overflows=%d dropped=%d\n", svc.Overflows(), svc.Dropped())
}

func report(ev slave.Event) {
	if ev.Err != nil {
		fmtx.Printf("err  %s (%v)\n", ev.Code, ev.Err)
		return
	}
	f := ev.Frame
	switch r := f.Request.(type) {
	case modbus.ReadCoils:
		fmtx.Printf("slave %02X fn%d read coils @%04X x%d\n", f.SlaveID, r.Code(), r.Address, r.Count)
	case modbus.ReadDiscreteInputs:
		fmtx.Printf("slave %02X fn%d read discrete @%04X x%d\n", f.SlaveID, r.Code(), r.Address, r.Count)
	case modbus.ReadHoldingRegisters:
		fmtx.Printf("slave %02X fn%d read holding @%04X x%d\n", f.SlaveID, r.Code(), r.Address, r.Count)
	case modbus.ReadInputRegisters:
		fmtx.Printf("slave %02X fn%d read input @%04X x%d\n", f.SlaveID, r.Code(), r.Address, r.Count)
	case modbus.WriteSingleCoil:
		fmtx.Printf("slave %02X fn%d coil @%04X <- %s\n", f.SlaveID, r.Code(), r.Address, r.State)
	case modbus.WriteSingleRegister:
		fmtx.Printf("slave %02X fn%d register @%04X <- %04X\n", f.SlaveID, r.Code(), r.Address, r.Value)
	case modbus.WriteMultipleCoils:
		fmtx.Printf("slave %02X fn%d coils @%04X x%d:", f.SlaveID, r.Code(), r.Address, r.Count)
		it := r.Coils.Iter()
		for s, ok := it.Next(); ok; s, ok = it.Next() {
			fmtx.Printf(" %s", s)
		}
		fmtx.Printf("\n")
	case modbus.WriteMultipleRegisters:
		fmtx.Printf("slave %02X fn%d registers @%04X x%d:", f.SlaveID, r.Code(), r.Address, r.Count)
		it := r.Registers.Iter()
		for v, ok := it.Next(); ok; v, ok = it.Next() {
			fmtx.Printf(" %04X", v)
		}
		fmtx.Printf("\n")
	}
}
