package bus

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/ausocean/utils/logging"
	"go.einride.tech/can"
	"go.einride.tech/can/pkg/socketcan"

	"github.com/san-kum/liepid/internal/sim"
)

type FrameWriter interface {
	WriteFrame(ctx context.Context, frame can.Frame) error
	Close() error
}

// SocketCANWriter transmits frames on a SocketCAN interface such as vcan0.
type SocketCANWriter struct {
	conn net.Conn
	tx   *socketcan.Transmitter
}

func NewSocketCANWriter(ctx context.Context, iface string) (*SocketCANWriter, error) {
	conn, err := socketcan.DialContext(ctx, "can", iface)
	if err != nil {
		return nil, fmt.Errorf("socketcan dial %s: %w", iface, err)
	}
	return &SocketCANWriter{
		conn: conn,
		tx:   socketcan.NewTransmitter(conn),
	}, nil
}

func (w *SocketCANWriter) WriteFrame(ctx context.Context, frame can.Frame) error {
	return w.tx.TransmitFrame(ctx, frame)
}

func (w *SocketCANWriter) Close() error {
	if w.conn != nil {
		return w.conn.Close()
	}
	return nil
}

// Emitter is a sim.Observer that transmits every command it sees.
type Emitter struct {
	ctx     context.Context
	codec   *Codec
	w       FrameWriter
	log     logging.Logger
	timeout time.Duration
	sent    int
	failed  int
}

// NewEmitter returns an emitter whose writes are bounded by ctx, normally the
// context of the run it observes. Once ctx is done frames are dropped.
func NewEmitter(ctx context.Context, codec *Codec, w FrameWriter, log logging.Logger) *Emitter {
	return &Emitter{ctx: ctx, codec: codec, w: w, log: log, timeout: 100 * time.Millisecond}
}

func (e *Emitter) OnStep(s sim.Sample) {
	if e.ctx.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(e.ctx, e.timeout)
	defer cancel()

	for _, f := range e.codec.Encode(s.U) {
		if ctx.Err() != nil {
			return
		}
		if err := e.w.WriteFrame(ctx, f); err != nil {
			e.failed++
			e.log.Warning("could not transmit command frame", "id", f.ID, "time", s.T, "error", err)
			continue
		}
		e.sent++
	}
}

// Stats returns the number of frames sent and failed.
func (e *Emitter) Stats() (sent, failed int) { return e.sent, e.failed }

func (e *Emitter) Close() error { return e.w.Close() }
