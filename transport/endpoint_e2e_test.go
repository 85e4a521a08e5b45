package transport_test

import (
	"bytes"
	"math/rand"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reliudp/internal/datagram"
	"reliudp/internal/wire"
	"reliudp/transport"
)

func newMemPair(t *testing.T) (*transport.Endpoint, *transport.Endpoint, *datagram.MemChannel, *datagram.MemChannel) {
	t.Helper()
	chA, chB := datagram.NewMemChannelPair("A", "B", 2*time.Millisecond)
	cfg := transport.Config{MaxPayloadSize: wire.MaxPayloadSize, Timeout: 5 * time.Millisecond}
	a := transport.NewWithChannel(chA, cfg)
	b := transport.NewWithChannel(chB, cfg)
	return a, b, chA, chB
}

// Scenario 1: small payload.
func TestScenarioSmallPayload(t *testing.T) {
	a, b, _, _ := newMemPair(t)
	defer a.Close()
	defer b.Close()

	var got []byte
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); a.Send([]byte("hello")) }()
	go func() { defer wg.Done(); got, _ = b.Recv(5) }()
	wg.Wait()

	assert.Equal(t, "hello", string(got))
}

// Scenario 2: exactly one frame boundary (D bytes).
func TestScenarioExactlyOneFrame(t *testing.T) {
	a, b, _, _ := newMemPair(t)
	defer a.Close()
	defer b.Close()

	payload := bytes.Repeat([]byte{'A'}, wire.MaxPayloadSize)
	var got []byte
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); a.Send(payload) }()
	go func() { defer wg.Done(); got, _ = b.Recv(len(payload)) }()
	wg.Wait()

	assert.True(t, bytes.Equal(got, payload), "B received %d bytes, want %d matching payload", len(got), len(payload))
}

// Scenario 3: two-frame message (D+1 bytes).
func TestScenarioTwoFrameMessage(t *testing.T) {
	a, b, _, _ := newMemPair(t)
	defer a.Close()
	defer b.Close()

	payload := bytes.Repeat([]byte{'B'}, wire.MaxPayloadSize+1)
	var got []byte
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); a.Send(payload) }()
	go func() { defer wg.Done(); got, _ = b.Recv(len(payload)) }()
	wg.Wait()

	assert.True(t, bytes.Equal(got, payload), "B received %d bytes, want %d matching payload", len(got), len(payload))
}

// Scenario 4: lossy substrate — drop the first copy of every datagram
// whose frame seq is a multiple of 2D.
func TestScenarioLossySubstrateRecovers(t *testing.T) {
	a, b, chA, _ := newMemPair(t)
	defer a.Close()
	defer b.Close()

	seen := make(map[uint64]bool)
	var mu sync.Mutex
	twoD := uint64(2 * wire.MaxPayloadSize)
	chA.SetSendHook(func(d []byte, deliver func([]byte)) {
		f, err := wire.Decode(d)
		if err == nil && f.Flags == wire.MSG && f.Seq%twoD == 0 {
			mu.Lock()
			first := !seen[f.Seq]
			seen[f.Seq] = true
			mu.Unlock()
			if first {
				return // drop the first copy only
			}
		}
		deliver(d)
	})

	payload := bytes.Repeat([]byte{'C'}, 10*wire.MaxPayloadSize)
	var got []byte
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); a.Send(payload) }()
	go func() { defer wg.Done(); got, _ = b.Recv(len(payload)) }()
	wg.Wait()

	assert.True(t, bytes.Equal(got, payload), "B recovered %d bytes, want %d matching payload under loss", len(got), len(payload))
}

// Scenario 5: reordering — deliver every datagram in reverse of send
// order.
func TestScenarioReorderingStillDeliversInOrder(t *testing.T) {
	a, b, chA, _ := newMemPair(t)
	defer a.Close()
	defer b.Close()

	var mu sync.Mutex
	var held [][]byte
	chA.SetSendHook(func(d []byte, deliver func([]byte)) {
		mu.Lock()
		held = append(held, append([]byte(nil), d...))
		mu.Unlock()
	})

	payload := bytes.Repeat([]byte{'D'}, 3*wire.MaxPayloadSize)
	var got []byte
	var wg sync.WaitGroup
	wg.Add(1)
	go func() { defer wg.Done(); a.Send(payload) }()

	// let A finish producing its frames into `held`, then flush in
	// reverse order.
	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	batch := append([][]byte(nil), held...)
	held = nil
	mu.Unlock()
	for i := len(batch) - 1; i >= 0; i-- {
		chA.SendRaw(batch[i])
	}

	got, _ = b.Recv(len(payload))
	wg.Wait()

	assert.True(t, bytes.Equal(got, payload), "B delivered %d bytes out of order-recovery, want %d matching payload", len(got), len(payload))
}

// Scenario 6: interleaved bidirectional 1MiB exchange over real
// loopback UDP sockets.
func TestScenarioBidirectionalOneMiB(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping 1MiB loopback exchange in short mode")
	}

	wildcard, _ := net.ResolveUDPAddr("udp", "127.0.0.1:0")

	probeA, err := net.ListenUDP("udp", wildcard)
	require.NoError(t, err)
	aAddr := probeA.LocalAddr().(*net.UDPAddr)
	probeA.Close()

	probeB, err := net.ListenUDP("udp", wildcard)
	require.NoError(t, err)
	bAddr := probeB.LocalAddr().(*net.UDPAddr)
	probeB.Close()

	cfg := transport.Default()
	a, err := transport.New(aAddr, bAddr, &cfg)
	require.NoError(t, err)
	defer a.Close()
	b, err := transport.New(bAddr, aAddr, &cfg)
	require.NoError(t, err)
	defer b.Close()

	const size = 1 << 20
	rng := rand.New(rand.NewSource(1))
	dataA := make([]byte, size)
	dataB := make([]byte, size)
	rng.Read(dataA)
	rng.Read(dataB)

	var gotAtB, gotAtA []byte
	var wg sync.WaitGroup
	wg.Add(4)
	go func() { defer wg.Done(); a.Send(dataA) }()
	go func() { defer wg.Done(); b.Send(dataB) }()
	go func() { defer wg.Done(); gotAtB, _ = b.Recv(size) }()
	go func() { defer wg.Done(); gotAtA, _ = a.Recv(size) }()
	wg.Wait()

	assert.True(t, bytes.Equal(gotAtB, dataA), "B did not recover A's %d bytes intact", size)
	assert.True(t, bytes.Equal(gotAtA, dataB), "A did not recover B's %d bytes intact", size)
}

// Scenario 7: a bounded WindowSize must not prevent a multi-frame
// message from eventually arriving intact — the throttle only paces
// Send, it never drops data.
func TestScenarioWindowSizeStillDeliversEverything(t *testing.T) {
	chA, chB := datagram.NewMemChannelPair("A", "B", 2*time.Millisecond)
	cfg := transport.Config{
		MaxPayloadSize: wire.MaxPayloadSize,
		Timeout:        5 * time.Millisecond,
		WindowSize:     2 * uint64(wire.MaxPayloadSize),
	}
	a := transport.NewWithChannel(chA, cfg)
	b := transport.NewWithChannel(chB, cfg)
	defer a.Close()
	defer b.Close()

	payload := bytes.Repeat([]byte{'E'}, 8*wire.MaxPayloadSize)
	var got []byte
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); a.Send(payload) }()
	go func() { defer wg.Done(); got, _ = b.Recv(len(payload)) }()
	wg.Wait()

	assert.True(t, bytes.Equal(got, payload), "B received %d bytes, want %d matching payload", len(got), len(payload))
}
