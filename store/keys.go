package store

import "fmt"

// Redis key schema. Everything under a job lives in one hash so a single
// HGETALL produces a full snapshot; queues are plain lists so BLPOP gives
// agents a blocking pop instead of a polling loop.
const (
	fieldRawYara         = "raw_yara"
	fieldTaint           = "taint"
	fieldStatus          = "status"
	fieldTotalFiles      = "total_files"
	fieldFilesProcessed  = "files_processed"
	fieldFilesInProgress = "files_in_progress"
	fieldNumMatches      = "num_matches"
	fieldError           = "error"
	fieldActiveAgents    = "active_agents"

	pluginVersionKey = "mquery:plugin_config_version"
)

func jobKey(id JobID) string {
	return fmt.Sprintf("mquery:job:%s", id)
}

func datasetsKey(group string, id JobID) string {
	return fmt.Sprintf("mquery:job:%s:datasets:%s", id, group)
}

func matchesKey(id JobID) string {
	return fmt.Sprintf("mquery:job:%s:matches", id)
}

func searchQueueKey(group string) string {
	return fmt.Sprintf("mquery:queue:%s:search", group)
}

func yaraQueueKey(group string) string {
	return fmt.Sprintf("mquery:queue:%s:yara", group)
}

func pluginConfigKey(name string) string {
	return fmt.Sprintf("mquery:plugin_config:%s", name)
}

func agentRegistrationKey(group, backendURL string) string {
	return fmt.Sprintf("mquery:agent:%s:%s", group, backendURL)
}
