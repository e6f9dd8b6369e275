// Package scheduler implements the multi-lane durable job queue: three
// review lanes (fast, slow, index) plus a dead-letter sink, a
// retry-with-backoff sorted set, and the per-tenant serialization lock
// and idempotency keeper that give the pipeline at-least-once,
// no-concurrent-same-PR delivery semantics.
package scheduler

import "time"

// Lane is one of the three independently consumed queues.
type Lane string

const (
	LaneFast  Lane = "fast"
	LaneSlow  Lane = "slow"
	LaneIndex Lane = "index"
)

// Task is the minimal descriptor enqueued by the gateway; the
// orchestrator re-fetches the diff and any other large payloads by ID
// rather than carrying them through the queue.
type Task struct {
	ID             string    `json:"id"`
	Lane           Lane      `json:"lane"`
	InstallationID int64     `json:"installation_id"`
	RepositoryID   int64     `json:"repository_id"`
	Owner          string    `json:"owner"`
	Repo           string    `json:"repo"`
	PRNumber       int       `json:"pr_number"`
	BaseSHA        string    `json:"base_sha"`
	HeadSHA        string    `json:"head_sha"`
	Attempt        int       `json:"attempt"`
	EnqueuedAt     time.Time `json:"enqueued_at"`
}

// TenantKey is the partition key the scheduler serializes on: tasks
// sharing a TenantKey never execute concurrently.
func (t Task) TenantKey() string {
	return t.Owner + "/" + t.Repo
}
