// Package jobs runs holdings sync jobs on a bounded worker pool. The admin CLI
// uses it for bulk syncs; the API process never schedules jobs.
package jobs

import "context"

// Job is a unit of work for the pool.
type Job interface {
	Execute(ctx context.Context) error
	UserID() string
	Description() string
}
