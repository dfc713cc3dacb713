//go:build rp2040 || rp2350

package main

import (
	"context"
	"machine"
	"time"

	"modbuscode-go/modbus"
	"modbuscode-go/serial"
	"modbuscode-go/services/slave"
	"tinygo.org/x/drivers"
)

// Pico firmware: decode Modbus RTU requests arriving on uart0 and report
// them over the USB console. The LED toggles once per valid frame.
func main() {
	println("[modbus] boot …")
	time.Sleep(1500 * time.Millisecond)

	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})

	port := serial.UART0(machine.GPIO0, machine.GPIO1)
	if err := port.Configure(drivers.UARTConfig{BaudRate: 19200}); err != nil {
		println("[modbus] uart0 configure failed")
		return
	}

	svc := slave.New(slave.Config{ID: "uart0", RingSize: 512, ChunkSize: 64})
	stop := svc.Start(context.Background(), port)
	defer stop()

	println("[modbus] listening on uart0 @19200")
	for ev := range svc.Events() {
		if ev.Err != nil {
			println("[modbus] error:", string(ev.Code))
			continue
		}
		led.Set(!led.Get())
		f := ev.Frame
		print("[modbus] slave ")
		print(int(f.SlaveID))
		print(" fn ")
		print(int(f.Request.Code()))
		switch r := f.Request.(type) {
		case modbus.WriteMultipleCoils:
			print(" coils x")
			println(int(r.Count))
		case modbus.WriteMultipleRegisters:
			print(" registers x")
			println(int(r.Count))
		default:
			println()
		}
		f.Close()
	}
}
