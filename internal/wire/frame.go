// Package wire implements the fixed-size frame codec used on the wire:
// one UDP datagram carries exactly one frame, flags || seq || ack || payload,
// all integers big-endian.
package wire

import (
	"encoding/binary"
	"fmt"
)

// Flags is the bitset carried in a frame's first byte. MSG is a pseudo
// flag: a frame with no bits set is a data frame, and MSG is never OR'd
// into a real value — it exists only so Names() has something to report
// for the zero value.
type Flags uint8

const (
	MSG Flags = 0
	URG Flags = 1 << 0
	ACK Flags = 1 << 1
	PSH Flags = 1 << 2
	RST Flags = 1 << 3
	SYN Flags = 1 << 4
	FIN Flags = 1 << 5
)

var flagNames = []struct {
	bit  Flags
	name string
}{
	{URG, "URG"},
	{ACK, "ACK"},
	{PSH, "PSH"},
	{RST, "RST"},
	{SYN, "SYN"},
	{FIN, "FIN"},
}

// Has reports whether the given bit is set.
func (f Flags) Has(bit Flags) bool {
	return f&bit != 0
}

// Names enumerates the set bits by name. MSG is returned as the sole
// entry when no bit is set.
func (f Flags) Names() []string {
	names := make([]string, 0, len(flagNames))
	for _, fn := range flagNames {
		if f.Has(fn.bit) {
			names = append(names, fn.name)
		}
	}
	if len(names) == 0 {
		return []string{"MSG"}
	}
	return names
}

// String implements fmt.Stringer for log/debug output.
func (f Flags) String() string {
	names := f.Names()
	s := ""
	for i, n := range names {
		if i > 0 {
			s += "|"
		}
		s += n
	}
	return s
}

const (
	// HeaderSize is the fixed wire size of flags+seq+ack.
	HeaderSize = 1 + 8 + 8

	// MaxDatagramSize is the largest datagram this codec will ever emit
	// or accept (B = 2^16).
	MaxDatagramSize = 1 << 16

	// maxTCPHeaderSize is inherited headroom from the original design:
	// worst-case IPv4+TCP-ish overhead reserved so a frame never needs
	// IP fragmentation on a conservative path.
	maxTCPHeaderSize = 60

	// MaxPayloadSize (D) is the largest payload a single frame may carry.
	MaxPayloadSize = MaxDatagramSize - HeaderSize - maxTCPHeaderSize

	// logMaxPayloadPreview bounds how much payload String() renders.
	logMaxPayloadPreview = 10
)

// ErrMalformed is returned by Decode when the input is shorter than
// HeaderSize.
type ErrMalformed struct {
	Len int
}

func (e *ErrMalformed) Error() string {
	return fmt.Sprintf("wire: malformed frame: %d bytes, want at least %d", e.Len, HeaderSize)
}

// Frame is the atomic wire unit: a header plus an optional payload.
type Frame struct {
	Flags   Flags
	Seq     uint64
	Ack     uint64
	Payload []byte
}

// Len returns the number of stream bytes this frame carries.
func (f Frame) Len() int {
	return len(f.Payload)
}

// End returns the offset one past this frame's last payload byte.
func (f Frame) End() uint64 {
	return f.Seq + uint64(f.Len())
}

// Encode emits flags || seq || ack || payload in big-endian.
func Encode(f Frame) []byte {
	buf := make([]byte, HeaderSize+len(f.Payload))
	buf[0] = byte(f.Flags)
	binary.BigEndian.PutUint64(buf[1:9], f.Seq)
	binary.BigEndian.PutUint64(buf[9:17], f.Ack)
	copy(buf[HeaderSize:], f.Payload)
	return buf
}

// Decode reverses Encode. The returned Frame's Payload aliases b; callers
// that retain b past the call must copy if they mutate it concurrently.
func Decode(b []byte) (Frame, error) {
	if len(b) < HeaderSize {
		return Frame{}, &ErrMalformed{Len: len(b)}
	}
	f := Frame{
		Flags: Flags(b[0]),
		Seq:   binary.BigEndian.Uint64(b[1:9]),
		Ack:   binary.BigEndian.Uint64(b[9:17]),
	}
	if len(b) > HeaderSize {
		f.Payload = b[HeaderSize:]
	}
	return f, nil
}

// String renders a short debug line, truncating long payloads the way
// the original implementation's Batch.__repr__ does.
func (f Frame) String() string {
	preview := f.Payload
	suffix := ""
	if len(preview) > logMaxPayloadPreview {
		preview = preview[:logMaxPayloadPreview]
		suffix = "..."
	}
	return fmt.Sprintf("%s: seq=%d ack=%d len=%d data=%q%s", f.Flags, f.Seq, f.Ack, len(f.Payload), preview, suffix)
}
