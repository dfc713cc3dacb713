package modbus

import (
	"errors"
	"strconv"
)

// ErrCRC reports that a fully received frame failed its CRC-16 check. The
// framed bytes are discarded; the next frame decodes independently.
var ErrCRC = errors.New("modbus: crc mismatch")

// UnknownFunctionError reports a function code outside the supported
// request set. The frame length cannot be determined, so the decoder drops
// everything buffered and restarts length detection at the next byte
// ingested.
type UnknownFunctionError struct {
	Code byte
}

func (e *UnknownFunctionError) Error() string {
	return "modbus: unknown function " + strconv.Itoa(int(e.Code))
}
