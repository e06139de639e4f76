// Package store implements the job/queue database the agent drives its
// work from: job records, per-group task queues, and the atomic
// counters and operations the shared store exposes.
package store

import "fmt"

// JobID is the opaque stable key identifying a search job.
type JobID string

// JobStatus is the job's lifecycle state.
type JobStatus string

const (
	JobNew        JobStatus = "new"
	JobProcessing JobStatus = "processing"
	JobCancelled  JobStatus = "cancelled"
	JobFailed     JobStatus = "failed"
	JobDone       JobStatus = "done"
)

// Terminal reports whether the status absorbs: no further transitions or
// matches are permitted once a job reaches one of these.
func (s JobStatus) Terminal() bool {
	return s == JobCancelled || s == JobFailed || s == JobDone
}

// Job is a full snapshot of a job's mutable state.
type Job struct {
	ID               JobID
	RawYara          string
	Taint            string
	Status           JobStatus
	TotalFiles       int64
	FilesProcessed   int64
	FilesInProgress  int64
	NumMatches       int64
	Error            string
}

// TaskType discriminates AgentTask payloads. It stays a tagged variant in
// memory; only the queue wire format serializes it to a string.
type TaskType int

const (
	TaskSearch TaskType = iota
	TaskYara
	TaskReload
)

func (t TaskType) String() string {
	switch t {
	case TaskSearch:
		return "search"
	case TaskYara:
		return "yara"
	case TaskReload:
		return "reload"
	default:
		return "unknown"
	}
}

// AgentTask is the discriminated task record pulled from a group queue.
// Only the fields relevant to Type are populated: SEARCH uses JobID only,
// YARA uses JobID and Iterator, RELOAD uses neither.
type AgentTask struct {
	Type     TaskType
	JobID    JobID
	Iterator IteratorHandle
}

// IteratorHandle is an opaque cursor minted by the index backend over a
// candidate file list for one (job, dataset) pair.
type IteratorHandle string

// MatchInfo is a single YARA match record, written append-only to the
// store.
type MatchInfo struct {
	FilePath          string
	Metadata          map[string]any
	MatchingRuleNames []string
}

// ErrNotFound is returned when a job lookup misses.
var ErrNotFound = fmt.Errorf("store: job not found")
