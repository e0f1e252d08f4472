package renderpool

import (
	"context"
)

// Session is the live handle to an underlying worker process. It is
// the boundary to the launching collaborator (e.g. a headless browser
// driver); the pool only watches it for disconnects and closes it.
//
// Implementations must be safe for concurrent use and must tolerate
// Close being called more than once.
type Session interface {
	// Disconnected is closed when the underlying process goes away
	// unexpectedly. The pool treats this as a crash.
	Disconnected() <-chan struct{}

	// Close terminates the underlying process.
	Close() error
}

// Launcher starts worker sessions. Implementations translate the class
// and its LaunchOptions into a concrete process (browser flags,
// extension set, profile directory).
type Launcher interface {
	Launch(ctx context.Context, class Capability, opts LaunchOptions) (Session, error)
}

// Worker is one live member of the roster.
//
// The mutable fields (busy, pagesOpen, connected) are owned by the
// pool and only touched under its lock. Job functions receive the
// worker solely to reach its Session.
type Worker struct {
	id      int64
	class   Capability
	session Session

	busy      bool
	pagesOpen int
	connected bool
}

// ID returns the worker id, assigned monotonically at launch.
func (w *Worker) ID() int64 { return w.id }

// Class returns the immutable capability class.
func (w *Worker) Class() Capability { return w.class }

// Session returns the live handle a job uses to drive the worker.
func (w *Worker) Session() Session { return w.session }

// eligible reports whether the worker can take a job of the given
// class right now. Caller holds the pool lock.
func (w *Worker) eligible(class Capability, perWorkerLimit int) bool {
	return !w.busy && w.connected && w.class == class && w.pagesOpen < perWorkerLimit
}
