package modbus

import (
	"encoding/binary"

	"modbuscode-go/x/bipring"
	"modbuscode-go/x/mathx"
)

// CoilState is the wire encoding of a single coil.
type CoilState uint16

const (
	CoilOff CoilState = 0x0000
	CoilOn  CoilState = 0xFF00
)

func (s CoilState) String() string {
	if s == CoilOn {
		return "on"
	}
	return "off"
}

// coilByteCount returns the payload bytes a logical coil count occupies.
func coilByteCount(count uint16) int {
	return int(mathx.CeilDiv(uint32(count), 8))
}

// CoilView is a read-only view over the coil bytes of a write-multiple-coils
// request, borrowing directly out of the ring. The view owns the read grant
// of its frame: Close releases the framed bytes and must be called before
// any following frame can decode.
type CoilView struct {
	grant *bipring.ReadGrant
	data  []byte
	count int
}

func newCoilView(grant *bipring.ReadGrant, data []byte, count uint16) *CoilView {
	if n := coilByteCount(count); n < len(data) {
		data = data[:n]
	}
	return &CoilView{grant: grant, data: data, count: int(count)}
}

// Len returns the logical coil count.
func (v *CoilView) Len() int { return v.count }

// At returns coil i: bit i%8 of payload byte i/8. Bytes the frame did not
// actually carry read as off.
func (v *CoilView) At(i int) CoilState {
	if i < 0 || i >= v.count {
		panic("modbus: coil index out of range")
	}
	if i/8 >= len(v.data) {
		return CoilOff
	}
	if v.data[i/8]>>(uint(i)%8)&1 == 1 {
		return CoilOn
	}
	return CoilOff
}

// Iter returns a single-pass iterator over the coils. Iterating does not
// consume the view; additional iterators may be taken while it is open.
func (v *CoilView) Iter() CoilIter { return CoilIter{v: v} }

// Close releases the framed bytes back to the ring.
func (v *CoilView) Close() error { return v.grant.Close() }

// CoilIter yields exactly Len() coil states.
type CoilIter struct {
	v *CoilView
	i int
}

func (it *CoilIter) Next() (CoilState, bool) {
	if it.i >= it.v.count {
		return CoilOff, false
	}
	s := it.v.At(it.i)
	it.i++
	return s, true
}

// RegisterView is a read-only view over the register bytes of a
// write-multiple-registers request, decoding big-endian u16 pairs straight
// out of the ring. Ownership rules match CoilView.
type RegisterView struct {
	grant *bipring.ReadGrant
	data  []byte
}

func newRegisterView(grant *bipring.ReadGrant, data []byte) *RegisterView {
	return &RegisterView{grant: grant, data: data[:len(data)&^1]}
}

// Len returns the number of whole registers the frame carried.
func (v *RegisterView) Len() int { return len(v.data) / 2 }

// At returns register i.
func (v *RegisterView) At(i int) uint16 {
	return binary.BigEndian.Uint16(v.data[2*i:])
}

// Iter returns a single-pass iterator over the registers.
func (v *RegisterView) Iter() RegisterIter { return RegisterIter{v: v} }

// Close releases the framed bytes back to the ring.
func (v *RegisterView) Close() error { return v.grant.Close() }

// RegisterIter yields exactly Len() register values.
type RegisterIter struct {
	v *RegisterView
	i int
}

func (it *RegisterIter) Next() (uint16, bool) {
	if it.i >= it.v.Len() {
		return 0, false
	}
	r := it.v.At(it.i)
	it.i++
	return r, true
}
