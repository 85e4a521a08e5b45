// Package transport implements the Transport Engine: the only
// component a caller invokes directly. It drives framing, sequencing,
// cumulative acknowledgement, duplicate suppression, and retransmission
// over a Channel, interleaving that work cooperatively inside Send and
// Recv rather than on a background goroutine.
package transport

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/rs/xid"

	"reliudp/internal/clock"
	"reliudp/internal/datagram"
	"reliudp/internal/reorder"
	"reliudp/internal/retransmit"
	"reliudp/internal/telemetry/events"
	"reliudp/internal/telemetry/log"
	"reliudp/internal/telemetry/metrics"
	"reliudp/internal/wire"
)

// Endpoint is both sender and receiver on a single UDP flow. It is not
// safe for concurrent Send/Recv calls on the same Endpoint; serialize
// access externally, or run one logical task per Endpoint.
type Endpoint struct {
	mu sync.Mutex

	ch  datagram.Channel
	cfg Config
	id  xid.ID

	log     *log.Logger
	metrics *metrics.Metrics
	events  *events.Manager
	clock   clock.Clock

	nextSeq    uint64
	ackedSeq   uint64
	recvBytes  uint64
	recvBuffer []byte

	rq *retransmit.Queue
	rb *reorder.Buffer

	closed bool
}

// New binds a UDP socket at localAddr, targets remoteAddr, and returns
// a ready Endpoint. cfg may be nil, in which case Default() is used;
// otherwise it is normalized: zero/out-of-range fields fall back to
// Default()'s values.
func New(localAddr, remoteAddr *net.UDPAddr, cfg *Config, opts ...Option) (*Endpoint, error) {
	resolved := Default()
	if cfg != nil {
		resolved = *cfg
	}
	resolved = resolved.normalize()
	ch, err := datagram.NewUDPChannel(localAddr, remoteAddr, resolved.Timeout)
	if err != nil {
		return nil, err
	}
	return newEndpoint(ch, resolved, opts...), nil
}

// NewWithChannel builds an Endpoint over an already-constructed
// Channel, bypassing the UDP dial in New. Used by tests to drive the
// Engine over an in-memory datagram.MemChannel, and available to
// callers who want a Channel implementation other than plain UDP.
func NewWithChannel(ch datagram.Channel, cfg Config, opts ...Option) *Endpoint {
	cfg = cfg.normalize()
	return newEndpoint(ch, cfg, opts...)
}

func newEndpoint(ch datagram.Channel, cfg Config, opts ...Option) *Endpoint {
	e := &Endpoint{
		ch:    ch,
		cfg:   cfg,
		id:    xid.New(),
		clock: clock.System{},
		rq:    retransmit.New(),
		rb:    reorder.New(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ID returns the Endpoint's correlation id, used to tag its log lines.
func (e *Endpoint) ID() string { return e.id.String() }

// Send hands data to the transport and returns once every byte has
// been transmitted and the peer's cumulative ACK has caught up to it.
// It always returns len(data) on success.
func (e *Endpoint) Send(data []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := len(data)
	sent := 0
	for sent < n || e.ackedSeq < e.nextSeq {
		if sent < n && e.windowOpen() {
			end := sent + e.cfg.MaxPayloadSize
			if end > n {
				end = n
			}
			frame := wire.Frame{
				Flags:   wire.MSG,
				Seq:     e.nextSeq,
				Ack:     e.recvBytes,
				Payload: data[sent:end],
			}
			written, err := e.transmitDataOrControl(frame)
			if err != nil {
				return sent, err
			}
			sent += written
		}
		if err := e.stepOnce(); err != nil {
			return sent, err
		}
	}
	return n, nil
}

// Recv blocks until exactly n bytes have been delivered in stream
// order and returns them. n must not be negative.
func (e *Endpoint) Recv(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrInvariant
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]byte, 0, n)
	out = append(out, e.takeRecvBuffer(n-len(out))...)
	for len(out) < n {
		if err := e.stepOnce(); err != nil {
			return out, err
		}
		out = append(out, e.takeRecvBuffer(n-len(out))...)
	}
	return out, nil
}

// Close releases the Channel. There is no FIN handshake; in-flight
// state is simply discarded.
func (e *Endpoint) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	if e.events != nil {
		e.events.Emit(events.Event{Type: events.EndpointClosed, Timestamp: e.clock.Now()})
	}
	return e.ch.Close()
}

func (e *Endpoint) takeRecvBuffer(need int) []byte {
	if need <= 0 || len(e.recvBuffer) == 0 {
		return nil
	}
	if need > len(e.recvBuffer) {
		need = len(e.recvBuffer)
	}
	taken := e.recvBuffer[:need:need]
	e.recvBuffer = e.recvBuffer[need:]
	return taken
}

// windowOpen reports whether Send may form another new frame. A
// WindowSize of 0 means unbounded; otherwise Send stalls (still
// stepping the engine to drain incoming ACKs) once nextSeq has run
// more than WindowSize bytes ahead of the peer's cumulative ack.
func (e *Endpoint) windowOpen() bool {
	return e.cfg.WindowSize == 0 || e.nextSeq-e.ackedSeq <= e.cfg.WindowSize
}

func isPureACK(f wire.Frame) bool {
	return f.Flags.Has(wire.ACK) && len(f.Payload) == 0
}

// transmitDataOrControl encodes and hands frame to the Channel. If
// frame.Seq is the current leading sequence (not a resend), next_seq
// advances by the bytes actually written. Non-pure-ACK frames are
// (re)inserted into the Retransmit Queue with a fresh send time.
func (e *Endpoint) transmitDataOrControl(frame wire.Frame) (int, error) {
	encoded := wire.Encode(frame)
	_, err := e.ch.SendDatagram(encoded)

	var sentLen int
	switch {
	case errors.Is(err, datagram.ErrTransientSend):
		sentLen = 0
	case err != nil:
		if e.log != nil {
			e.log.Errorf("send failed: %v", err)
		}
		return 0, fmt.Errorf("%w: %v", ErrFatalChannel, err)
	default:
		sentLen = len(frame.Payload)
	}

	leading := frame.Seq == e.nextSeq
	if leading {
		e.nextSeq += uint64(sentLen)
	}

	if e.metrics != nil {
		e.metrics.FramesSent.Inc()
		if leading {
			e.metrics.BytesSent.Add(float64(sentLen))
		}
	}
	if e.events != nil {
		e.events.Emit(events.Event{Type: events.FrameSent, Seq: frame.Seq, Size: sentLen, Timestamp: e.clock.Now()})
	}

	if !isPureACK(frame) {
		e.rq.Push(frame, e.clock.Now())
	}
	return sentLen, nil
}

// stepOnce is the cooperative engine's single unit of work: poll one
// inbound datagram, dispatch it, then check for a stale retransmit.
// It is called from inside Send and Recv, never from a background
// goroutine, so next_seq/acked_seq/recv_bytes only ever change on the
// caller's own goroutine.
func (e *Endpoint) stepOnce() error {
	buf, err := e.ch.RecvDatagram(wire.MaxDatagramSize)
	if errors.Is(err, datagram.ErrTimedOut) {
		return e.checkRetransmit()
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFatalChannel, err)
	}

	frame, derr := wire.Decode(buf)
	if derr != nil {
		if e.metrics != nil {
			e.metrics.MalformedDropped.Inc()
		}
		if e.events != nil {
			e.events.Emit(events.Event{Type: events.MalformedDropped, Timestamp: e.clock.Now()})
		}
		if e.log != nil {
			e.log.Warnf("dropping malformed datagram: %v", derr)
		}
		return e.checkRetransmit()
	}

	if frame.Flags == wire.MSG {
		if err := e.handleDataFrame(frame); err != nil {
			return err
		}
	}

	if frame.Ack > e.ackedSeq {
		e.ackedSeq = frame.Ack
		e.rq.Prune(e.ackedSeq)
		if e.metrics != nil {
			e.metrics.AckedSeq.Set(float64(e.ackedSeq))
		}
		if e.events != nil {
			e.events.Emit(events.Event{Type: events.FrameAcked, Seq: e.ackedSeq, Timestamp: e.clock.Now()})
		}
	}

	return e.checkRetransmit()
}

func (e *Endpoint) handleDataFrame(frame wire.Frame) error {
	before := e.recvBytes
	e.rb.Insert(frame)
	newWatermark, appended := e.rb.Drain(e.recvBytes)
	if len(appended) > 0 {
		e.recvBuffer = append(e.recvBuffer, appended...)
	}
	e.recvBytes = newWatermark

	if frame.Seq+uint64(frame.Len()) <= before {
		if e.metrics != nil {
			e.metrics.DuplicatesDropped.Inc()
		}
		if e.events != nil {
			e.events.Emit(events.Event{Type: events.DuplicateDropped, Seq: frame.Seq, Timestamp: e.clock.Now()})
		}
	}
	if e.metrics != nil {
		e.metrics.RecvWatermark.Set(float64(e.recvBytes))
		if len(appended) > 0 {
			e.metrics.BytesRecv.Add(float64(len(appended)))
		}
	}

	ack := wire.Frame{Flags: wire.ACK, Seq: e.nextSeq, Ack: e.recvBytes}
	_, err := e.transmitDataOrControl(ack)
	return err
}

func (e *Endpoint) checkRetransmit() error {
	now := e.clock.Now()
	entry, ok := e.rq.FirstStale(now, e.cfg.Timeout)
	if !ok {
		return nil
	}
	e.rq.PopFront()

	if e.metrics != nil {
		e.metrics.FramesRetransmitted.Inc()
	}
	if e.events != nil {
		e.events.Emit(events.Event{Type: events.FrameRetransmitted, Seq: entry.Frame.Seq, Size: len(entry.Frame.Payload), Timestamp: now})
	}
	if e.log != nil {
		e.log.Debugf("retransmitting seq=%d len=%d", entry.Frame.Seq, entry.Frame.Len())
	}

	resend := entry.Frame
	resend.Ack = e.recvBytes
	_, err := e.transmitDataOrControl(resend)
	return err
}
