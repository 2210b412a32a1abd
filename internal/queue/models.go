// Package queue implements PodDigest's durable named FIFO job broker: each
// pipeline stage drains its own named queue with lease-based dequeue,
// exponential-backoff retry, and job-id dedup, backed by SQLite.
package queue

import "time"

// Status is the lifecycle of a queued job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusLeased    Status = "leased"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Job is one durable unit of work on a named queue.
type Job struct {
	ID             int64
	Queue          string
	JobID          string // dedup key, e.g. "crawl-42"; empty means no dedup
	Payload        string // JSON-encoded payload
	Status         Status
	Attempts       int
	MaxAttempts    int
	AvailableAt    time.Time // job is not leasable before this time (backoff delay)
	LeaseExpiresAt *time.Time
	Error          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Stats summarizes job counts for one queue, used by digestctl's queue-health command.
type Stats struct {
	Queue     string
	Pending   int
	Leased    int
	Completed int
	Failed    int
}
