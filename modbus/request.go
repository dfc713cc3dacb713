package modbus

import (
	"encoding/binary"

	"modbuscode-go/x/bipring"
)

// Broadcast is the slave address reserved for bus-wide requests.
const Broadcast byte = 0

// RequestFrame is one validated request: the addressed station and the
// decoded request body.
type RequestFrame struct {
	SlaveID byte
	Request Request
}

// Close returns any ring bytes the request still borrows. Scalar requests
// hold nothing; for bulk writes this releases the view's grant. Closing a
// zero frame or closing twice is harmless.
func (f RequestFrame) Close() error {
	if c, ok := f.Request.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// Request is one of the eight request shapes.
type Request interface {
	// Code returns the numerical value of the function code.
	Code() byte
}

type ReadCoils struct{ Address, Count uint16 }

func (ReadCoils) Code() byte { return FnReadCoils }

type ReadDiscreteInputs struct{ Address, Count uint16 }

func (ReadDiscreteInputs) Code() byte { return FnReadDiscreteInputs }

type ReadHoldingRegisters struct{ Address, Count uint16 }

func (ReadHoldingRegisters) Code() byte { return FnReadHoldingRegisters }

type ReadInputRegisters struct{ Address, Count uint16 }

func (ReadInputRegisters) Code() byte { return FnReadInputRegisters }

type WriteSingleCoil struct {
	Address uint16
	State   CoilState
}

func (WriteSingleCoil) Code() byte { return FnWriteSingleCoil }

type WriteSingleRegister struct {
	Address uint16
	Value   uint16
}

func (WriteSingleRegister) Code() byte { return FnWriteSingleRegister }

type WriteMultipleCoils struct {
	Address uint16
	Count   uint16
	Coils   *CoilView
}

func (WriteMultipleCoils) Code() byte     { return FnWriteMultipleCoils }
func (r WriteMultipleCoils) Close() error { return r.Coils.Close() }

type WriteMultipleRegisters struct {
	Address   uint16
	Count     uint16
	Registers *RegisterView
}

func (WriteMultipleRegisters) Code() byte { return FnWriteMultipleRegisters }
func (r WriteMultipleRegisters) Close() error { return r.Registers.Close() }

// pair reads the two big-endian u16 fields every request payload starts
// with: (address, count) for reads, (address, value/status) for writes.
func pair(p []byte) (uint16, uint16) {
	return binary.BigEndian.Uint16(p[0:2]), binary.BigEndian.Uint16(p[2:4])
}

// decodeFrame parses one complete frame of frameLen bytes out of the grant.
// The grant is closed before returning for scalar requests and CRC
// failures; bulk requests hand the grant to their view, which releases the
// full frame on Close. The byte count of a bulk frame is not checked
// against its logical count: a CRC-valid frame with inconsistent counts
// still decodes and the caller observes the raw count.
func decodeFrame(g *bipring.ReadGrant, frameLen int) (RequestFrame, error) {
	raw := g.Bytes()[:frameLen]
	if crc16(raw) != 0 {
		g.SetRelease(frameLen)
		g.Close()
		return RequestFrame{}, ErrCRC
	}

	slave := raw[0]
	payload := raw[2:]

	var req Request
	switch raw[1] {
	case FnReadCoils:
		addr, count := pair(payload)
		req = ReadCoils{Address: addr, Count: count}
	case FnReadDiscreteInputs:
		addr, count := pair(payload)
		req = ReadDiscreteInputs{Address: addr, Count: count}
	case FnReadHoldingRegisters:
		addr, count := pair(payload)
		req = ReadHoldingRegisters{Address: addr, Count: count}
	case FnReadInputRegisters:
		addr, count := pair(payload)
		req = ReadInputRegisters{Address: addr, Count: count}
	case FnWriteSingleCoil:
		addr, status := pair(payload)
		state := CoilOff
		if CoilState(status) == CoilOn {
			state = CoilOn
		}
		req = WriteSingleCoil{Address: addr, State: state}
	case FnWriteSingleRegister:
		addr, value := pair(payload)
		req = WriteSingleRegister{Address: addr, Value: value}
	case FnWriteMultipleCoils:
		addr, count := pair(payload)
		g.SetRelease(frameLen)
		return RequestFrame{SlaveID: slave, Request: WriteMultipleCoils{
			Address: addr,
			Count:   count,
			Coils:   newCoilView(g, raw[bulkHeaderLen:frameLen-crcLen], count),
		}}, nil
	case FnWriteMultipleRegisters:
		addr, count := pair(payload)
		g.SetRelease(frameLen)
		return RequestFrame{SlaveID: slave, Request: WriteMultipleRegisters{
			Address:   addr,
			Count:     count,
			Registers: newRegisterView(g, raw[bulkHeaderLen:frameLen-crcLen]),
		}}, nil
	}

	// Unknown codes never reach this point: requestLength rejects them
	// before a frame is framed.
	g.SetRelease(frameLen)
	g.Close()
	return RequestFrame{SlaveID: slave, Request: req}, nil
}
