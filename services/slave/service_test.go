package slave

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"modbuscode-go/errcode"
	"modbuscode-go/modbus"
	"modbuscode-go/serial"
	"modbuscode-go/x/bipring"
)

func TestServiceDecodesPortBytes(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	port := serial.NewLoopback()
	svc := New(Config{ID: "test", RingSize: 256})
	stop := svc.Start(ctx, port)
	defer stop()

	port.Feed([]byte{0x11, 0x01, 0x00, 0x13, 0x00, 0x25, 0x0E, 0x84}) // ok
	port.Feed([]byte{0x11, 0x01, 0x00, 0x13, 0x00, 0x25, 0x0E, 0x85}) // bad crc
	port.Feed([]byte{0x11, 0x0F, 0x00, 0x13, 0x00, 0x0A, 0x02, 0xCD, 0x01, 0xBF, 0x0B})

	ev := recvEvent(t, ctx, svc)
	require.Equal(t, errcode.OK, ev.Code)
	require.Equal(t, modbus.ReadCoils{Address: 0x0013, Count: 0x0025}, ev.Frame.Request)
	require.NoError(t, ev.Frame.Close())

	ev = recvEvent(t, ctx, svc)
	require.Equal(t, errcode.CRC, ev.Code)
	require.ErrorIs(t, ev.Err, modbus.ErrCRC)

	ev = recvEvent(t, ctx, svc)
	require.Equal(t, errcode.OK, ev.Code)
	r, ok := ev.Frame.Request.(modbus.WriteMultipleCoils)
	require.True(t, ok)
	require.Equal(t, 10, r.Coils.Len())
	require.Equal(t, modbus.CoilOn, r.Coils.At(0))
	require.NoError(t, ev.Frame.Close())
}

func TestServiceSplitFrame(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	port := serial.NewLoopback()
	svc := New(Config{ID: "split"})
	stop := svc.Start(ctx, port)
	defer stop()

	port.Feed([]byte{0x11, 0x06, 0x00, 0x01})
	time.Sleep(20 * time.Millisecond)
	port.Feed([]byte{0x00, 0x03, 0x9A, 0x9B})

	ev := recvEvent(t, ctx, svc)
	require.Equal(t, errcode.OK, ev.Code)
	require.Equal(t, modbus.WriteSingleRegister{Address: 0x0001, Value: 0x0003}, ev.Frame.Request)
	require.NoError(t, ev.Frame.Close())
}

func TestServiceOverflowCounter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	port := serial.NewLoopback()
	// Minimum ring (64B) and an endless bulk frame that can never complete:
	// the pump has to start refusing chunks.
	svc := New(Config{ID: "flood", RingSize: 1, ChunkSize: 1})
	stop := svc.Start(ctx, port)
	defer stop()

	junk := make([]byte, 128)
	junk[0], junk[1] = 0x11, 0x0F
	junk[6] = 0xF0 // claims a 249-byte frame
	port.Feed(junk)

	require.Eventually(t, func() bool { return svc.Overflows() > 0 },
		time.Second, 5*time.Millisecond)
}

func TestServiceMapsErrorCodes(t *testing.T) {
	require.Equal(t, errcode.OK, codeOf(nil))
	require.Equal(t, errcode.CRC, codeOf(modbus.ErrCRC))
	require.Equal(t, errcode.UnknownFunction, codeOf(&modbus.UnknownFunctionError{Code: 0x2B}))
	require.Equal(t, errcode.Overflow, codeOf(bipring.ErrOutOfSpace))
	require.Equal(t, errcode.Canceled, codeOf(context.Canceled))
}

func TestServiceRingTracked(t *testing.T) {
	svc := New(Config{ID: "tracked"})
	stop := svc.Start(context.Background(), serial.NewLoopback())

	find := func() *bipring.Stat {
		for _, st := range bipring.Stats() {
			if st.Name == "tracked" {
				return &st
			}
		}
		return nil
	}
	st := find()
	require.NotNil(t, st)
	require.Equal(t, 64, st.Cap)
	require.Zero(t, st.Buffered)

	stop()
	require.Nil(t, find())
}

func recvEvent(t *testing.T, ctx context.Context, svc *Service) Event {
	t.Helper()
	select {
	case ev := <-svc.Events():
		return ev
	case <-ctx.Done():
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}
