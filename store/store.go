package store

import "context"

// Store is the shared job/queue database contract the agent and the index
// backend both drive work through. Every mutation below is a single named
// atomic operation against the backing store; no caller is expected to
// compose several of these into a compare-and-swap of their own.
type Store interface {
	// AgentGetTask blocks for the next task belonging to group. If the
	// store's plugin config version differs from callerVersion, a
	// synthetic RELOAD task is returned instead of dequeuing real work.
	AgentGetTask(ctx context.Context, group string, callerVersion int64) (AgentTask, error)

	// GetJob returns a full job snapshot.
	GetJob(ctx context.Context, id JobID) (Job, error)

	// GetYaraByJob returns the job's raw YARA source.
	GetYaraByJob(ctx context.Context, id JobID) (string, error)

	// InitJobDatasets seeds datasets_remaining for (group, id) and flips
	// status new -> processing. Idempotent: safe to call more than once.
	InitJobDatasets(ctx context.Context, group string, id JobID, datasets []string) error

	// GetNextSearchDataset atomically pops one dataset name for (group,
	// id), or returns ok=false when none remain.
	GetNextSearchDataset(ctx context.Context, group string, id JobID) (dataset string, ok bool, err error)

	// UpdateJobFiles atomically adds count to total_files.
	UpdateJobFiles(ctx context.Context, id JobID, count int64) error

	// AgentStartJob enqueues a YARA task for (id, iterator) on the group
	// queue and increments the job's active-agent counter.
	AgentStartJob(ctx context.Context, group string, id JobID, iterator IteratorHandle) error

	// AgentContinueSearch enqueues a SEARCH task for id on the group queue.
	AgentContinueSearch(ctx context.Context, group string, id JobID) error

	// JobStartWork atomically adds n to files_in_progress.
	JobStartWork(ctx context.Context, id JobID, n int64) error

	// JobUpdateWork atomically applies files_in_progress -= n,
	// files_processed += n, num_matches += matches.
	JobUpdateWork(ctx context.Context, id JobID, n int64, matches int64) error

	// AddMatch appends a match record. No-op if id is terminal.
	AddMatch(ctx context.Context, id JobID, m MatchInfo) error

	// AgentFinishJob decrements the active-agent counter for id; if it
	// reaches zero and files_processed == total_files, flips status to
	// done. Two agents finishing the same job's last batch at the same
	// moment must not both observe the zero crossing: exactly one does.
	AgentFinishJob(ctx context.Context, id JobID) error

	// FailJob sets status = failed and records msg.
	FailJob(ctx context.Context, id JobID, msg string) error

	// RegisterActiveAgent upserts the agent's record; publishes a new
	// plugin config version if spec changed since the last registration.
	RegisterActiveAgent(ctx context.Context, group, backendURL string, spec map[string][]string, active []string) error

	// GetPluginConfiguration returns the raw config for a named plugin.
	GetPluginConfiguration(ctx context.Context, name string) (map[string]string, error)

	// GetPluginConfigVersion returns the current plugin config version.
	GetPluginConfigVersion(ctx context.Context) (int64, error)

	// ReloadConfiguration signals one in-flight RELOAD hop for version v.
	ReloadConfiguration(ctx context.Context, v int64) error

	// Close releases the store's underlying connection(s).
	Close() error
}
