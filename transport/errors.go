package transport

import "errors"

// ErrFatalChannel wraps a non-timeout substrate failure that escaped
// the Channel; it propagates out of Send/Recv unchanged.
var ErrFatalChannel = errors.New("transport: fatal channel error")

// ErrInvariant marks a programmer error, such as passing a negative
// byte count to Recv. It propagates; there is no recovery path.
var ErrInvariant = errors.New("transport: invariant violation")
