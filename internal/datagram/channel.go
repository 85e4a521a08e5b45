// Package datagram implements the Datagram Channel: a thin wrapper
// binding a local address and connecting to a fixed remote address,
// with a blocking receive bounded by a timeout.
package datagram

import (
	"errors"
	"fmt"
	"net"
	"time"
)

// ErrTimedOut is returned by RecvDatagram when no datagram arrived
// within the configured timeout. It is a steady tick, not an error
// condition, and callers should never propagate it to their own
// caller.
var ErrTimedOut = errors.New("datagram: receive timed out")

// ErrTransientSend is returned by SendDatagram for a send the substrate
// could not complete right now but that is expected to succeed on
// retry; callers treat it as zero bytes sent.
var ErrTransientSend = errors.New("datagram: transient send failure")

// Channel is the Datagram Channel collaborator.
type Channel interface {
	// SendDatagram transmits one datagram and returns the number of
	// bytes written (including any header the caller already encoded
	// in).
	SendDatagram(b []byte) (int, error)

	// RecvDatagram blocks for up to the channel's configured timeout
	// waiting for one datagram. It returns ErrTimedOut, never a
	// wrapped timeout net.Error, when none arrives in time.
	RecvDatagram(maxLen int) ([]byte, error)

	LocalAddr() net.Addr
	RemoteAddr() net.Addr
	Close() error
}

// UDPChannel is the real Channel implementation, backed by a connected
// net.UDPConn.
type UDPChannel struct {
	conn    *net.UDPConn
	timeout time.Duration
}

// NewUDPChannel binds local and connects to remote, setting the
// receive timeout to timeout.
func NewUDPChannel(local, remote *net.UDPAddr, timeout time.Duration) (*UDPChannel, error) {
	conn, err := net.DialUDP("udp", local, remote)
	if err != nil {
		return nil, fmt.Errorf("datagram: dial: %w", err)
	}
	return &UDPChannel{conn: conn, timeout: timeout}, nil
}

// SendDatagram implements Channel.
func (c *UDPChannel) SendDatagram(b []byte) (int, error) {
	n, err := c.conn.Write(b)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return 0, ErrTransientSend
		}
		return 0, fmt.Errorf("datagram: send: %w", err)
	}
	return n, nil
}

// RecvDatagram implements Channel.
func (c *UDPChannel) RecvDatagram(maxLen int) ([]byte, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return nil, fmt.Errorf("datagram: set read deadline: %w", err)
	}
	buf := make([]byte, maxLen)
	n, err := c.conn.Read(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, ErrTimedOut
		}
		return nil, fmt.Errorf("datagram: recv: %w", err)
	}
	return buf[:n], nil
}

// LocalAddr implements Channel.
func (c *UDPChannel) LocalAddr() net.Addr { return c.conn.LocalAddr() }

// RemoteAddr implements Channel.
func (c *UDPChannel) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// Close implements Channel.
func (c *UDPChannel) Close() error { return c.conn.Close() }
