package modbus

// Request function codes supported by the decoder.
const (
	FnReadCoils              byte = 0x01
	FnReadDiscreteInputs     byte = 0x02
	FnReadHoldingRegisters   byte = 0x03
	FnReadInputRegisters     byte = 0x04
	FnWriteSingleCoil        byte = 0x05
	FnWriteSingleRegister    byte = 0x06
	FnWriteMultipleCoils     byte = 0x0F
	FnWriteMultipleRegisters byte = 0x10
)

// Frame layout. Every request starts with the slave address and function
// code and ends with a little-endian CRC-16. Bulk writes carry a byte count
// at offset 6 ahead of their payload.
const (
	scalarFrameLen = 8
	bulkHeaderLen  = 7
	crcLen         = 2
	byteCountPos   = 6
)

// requestLength reports the total frame length implied by the leading bytes
// of a request, including the address byte and trailing CRC. A length of 0
// with a nil error means more bytes are required before the length is
// decidable. The function is pure: no cursor moves, no CRC is checked.
func requestLength(p []byte) (int, error) {
	if len(p) < 2 {
		return 0, nil
	}
	switch fn := p[1]; fn {
	case FnReadCoils, FnReadDiscreteInputs, FnReadHoldingRegisters,
		FnReadInputRegisters, FnWriteSingleCoil, FnWriteSingleRegister:
		return scalarFrameLen, nil
	case FnWriteMultipleCoils, FnWriteMultipleRegisters:
		if len(p) <= byteCountPos {
			return 0, nil
		}
		return bulkHeaderLen + int(p[byteCountPos]) + crcLen, nil
	default:
		return 0, &UnknownFunctionError{Code: fn}
	}
}
