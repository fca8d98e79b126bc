package interfaces

// -----------------------------------------------------------------------------
// ITransport wraps one push connection of a streaming session.
// -----------------------------------------------------------------------------

type ITransport interface {

	// Send serializes and delivers one frame. It never panics or returns an
	// error: any fault is reported as false and the peer is considered gone.
	Send(frame interface{}) bool

	// -----------------------------------------------------------------------------

	// Done is closed once the peer has disconnected or the transport is closed.
	Done() <-chan struct{}

	// -----------------------------------------------------------------------------

	// Close releases the connection. Safe to call more than once.
	Close()
}
