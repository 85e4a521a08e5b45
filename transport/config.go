package transport

import (
	"time"

	"reliudp/internal/wire"
)

// Config holds the tunables an Endpoint is constructed with. A zero or
// out-of-range MaxPayloadSize or Timeout falls back to Default()'s value
// when the Endpoint is built, so the zero Config behaves like Default().
type Config struct {
	// MaxPayloadSize bounds the payload carried by a single data
	// frame. Defaults to wire.MaxPayloadSize (D = 65459).
	MaxPayloadSize int

	// Timeout is T_recv: both the Channel's receive timeout and the
	// per-frame retransmit timeout. Defaults to 10ms.
	Timeout time.Duration

	// WindowSize bounds how far Send runs ahead of the peer's ACKs:
	// once more than WindowSize bytes are unacknowledged, Send stops
	// forming new data frames and waits for step_once to make
	// acknowledgement progress. The check is made before each new
	// frame, so in-flight bytes can exceed WindowSize by up to one
	// frame's payload. Zero
	// means unbounded: the source this was distilled from referenced
	// an equivalent constant that was never defined, so flow control
	// is treated as opt-in rather than a default behavior.
	WindowSize uint64
}

// Default returns the Config described by the protocol: full-size
// frames, a 10ms T_recv, and no window cap.
func Default() Config {
	return Config{
		MaxPayloadSize: wire.MaxPayloadSize,
		Timeout:        10 * time.Millisecond,
		WindowSize:     0,
	}
}

func (c Config) normalize() Config {
	if c.MaxPayloadSize <= 0 || c.MaxPayloadSize > wire.MaxPayloadSize {
		c.MaxPayloadSize = wire.MaxPayloadSize
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Millisecond
	}
	return c
}
