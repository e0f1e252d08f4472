package renderpool

import (
	"errors"
	"fmt"
)

var (
	// ErrPoolClosed is returned for any enqueue attempted after Shutdown
	// begins, and is the rejection error for jobs still queued at
	// shutdown time.
	ErrPoolClosed = errors.New("renderpool: pool is shutting down")

	// ErrNilFunc is returned when a job carries a nil run function.
	ErrNilFunc = errors.New("renderpool: job run func is nil")

	// ErrClassUnavailable is returned when a job requires a capability
	// class whose cap is configured to zero (or which is not configured
	// at all). The job never touches the queue.
	ErrClassUnavailable = errors.New("renderpool: no capacity configured for capability class")

	// ErrJobTimeout is the rejection error when the pool timeout fires
	// before the job settles on its own.
	ErrJobTimeout = errors.New("renderpool: job timed out")

	// ErrBadConfig is returned from New for invalid pool construction.
	ErrBadConfig = errors.New("renderpool: invalid pool configuration")

	// ErrWorkerNotFound is returned by Kill for an unknown worker id.
	ErrWorkerNotFound = errors.New("renderpool: no such worker")
)

// LaunchError wraps a failed worker launch with the class it was for.
//
// During initial warm-up launch errors are fatal to pool construction
// and aggregated; during on-demand growth they are logged and the
// scheduler retries matching on the next trigger.
type LaunchError struct {
	Class Capability
	Err   error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("renderpool: launch worker of class %q: %v", e.Class, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }
