package scheduler

import "context"

// Job is a unit of work executed by the worker pool.
type Job interface {
	// Execute runs the job. The context carries the per-job timeout and shutdown.
	Execute(ctx context.Context) error

	// Subject identifies what the job works on (a client id), for logs and traces.
	Subject() string

	// Description is a human-readable label for logs.
	Description() string
}
