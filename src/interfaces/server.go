package interfaces

// -----------------------------------------------------------------------------
// IServer is a long-running listener started and stopped by the process bootstrap.
// -----------------------------------------------------------------------------

type IServer interface {

	// Start the server (blocks until the listener stops)
	Start() error

	// -----------------------------------------------------------------------------

	// Stop the server gracefully
	Stop() error
}
