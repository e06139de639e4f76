package store

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

//go:embed scripts/*.lua
var scriptFS embed.FS

func mustLoadScript(name string) *redis.Script {
	data, err := scriptFS.ReadFile("scripts/" + name)
	if err != nil {
		panic(fmt.Sprintf("store: embedded script %s missing: %v", name, err))
	}
	return redis.NewScript(string(data))
}

var (
	scriptInitDatasets = mustLoadScript("init_job_datasets.lua")
	scriptFinishJob    = mustLoadScript("finish_job.lua")
	scriptAddMatch     = mustLoadScript("add_match.lua")
)

// pollInterval bounds how long a single BLPOP call waits before
// AgentGetTask re-checks the plugin config version. AgentGetTask itself
// blocks until a task arrives, the version changes, or ctx is cancelled.
const pollInterval = 2 * time.Second

// RedisStore is the Store implementation backed by Redis, following the
// original mquery's own Redis-backed Database and the key-per-job,
// list-per-queue shape used across the pack's go-redis/v9 consumers.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore dials addr and returns a ready Store.
func NewRedisStore(addr, password string, db int) *RedisStore {
	return &RedisStore{
		rdb: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

// NewRedisStoreFromClient wraps an existing *redis.Client, letting tests
// point the store at a miniredis instance.
func NewRedisStoreFromClient(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func (s *RedisStore) AgentGetTask(ctx context.Context, group string, callerVersion int64) (AgentTask, error) {
	searchQ := searchQueueKey(group)
	yaraQ := yaraQueueKey(group)

	for {
		version, err := s.GetPluginConfigVersion(ctx)
		if err != nil {
			return AgentTask{}, err
		}
		if version != callerVersion {
			return AgentTask{Type: TaskReload}, nil
		}

		res, err := s.rdb.BLPop(ctx, pollInterval, yaraQ, searchQ).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue // timed out, no task yet — re-check version and retry
			}
			if ctx.Err() != nil {
				return AgentTask{}, ctx.Err()
			}
			return AgentTask{}, err
		}

		queue, payload := res[0], res[1]
		switch queue {
		case searchQ:
			return AgentTask{Type: TaskSearch, JobID: JobID(payload)}, nil
		case yaraQ:
			var wire yaraTaskWire
			if err := json.Unmarshal([]byte(payload), &wire); err != nil {
				return AgentTask{}, fmt.Errorf("store: corrupt yara task payload: %w", err)
			}
			return AgentTask{Type: TaskYara, JobID: wire.Job, Iterator: wire.Iterator}, nil
		default:
			return AgentTask{}, fmt.Errorf("store: task popped from unexpected queue %q", queue)
		}
	}
}

type yaraTaskWire struct {
	Job      JobID          `json:"job"`
	Iterator IteratorHandle `json:"iterator"`
}

func (s *RedisStore) GetJob(ctx context.Context, id JobID) (Job, error) {
	vals, err := s.rdb.HGetAll(ctx, jobKey(id)).Result()
	if err != nil {
		return Job{}, err
	}
	if len(vals) == 0 {
		return Job{}, ErrNotFound
	}

	return Job{
		ID:              id,
		RawYara:         vals[fieldRawYara],
		Taint:           vals[fieldTaint],
		Status:          JobStatus(vals[fieldStatus]),
		TotalFiles:      parseInt64(vals[fieldTotalFiles]),
		FilesProcessed:  parseInt64(vals[fieldFilesProcessed]),
		FilesInProgress: parseInt64(vals[fieldFilesInProgress]),
		NumMatches:      parseInt64(vals[fieldNumMatches]),
		Error:           vals[fieldError],
	}, nil
}

func parseInt64(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

func (s *RedisStore) GetYaraByJob(ctx context.Context, id JobID) (string, error) {
	return s.rdb.HGet(ctx, jobKey(id), fieldRawYara).Result()
}

func (s *RedisStore) InitJobDatasets(ctx context.Context, group string, id JobID, datasets []string) error {
	args := make([]interface{}, len(datasets))
	for i, d := range datasets {
		args[i] = d
	}
	return scriptInitDatasets.Run(ctx, s.rdb, []string{jobKey(id), datasetsKey(group, id)}, args...).Err()
}

func (s *RedisStore) GetNextSearchDataset(ctx context.Context, group string, id JobID) (string, bool, error) {
	dataset, err := s.rdb.SPop(ctx, datasetsKey(group, id)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return dataset, true, nil
}

func (s *RedisStore) UpdateJobFiles(ctx context.Context, id JobID, count int64) error {
	return s.rdb.HIncrBy(ctx, jobKey(id), fieldTotalFiles, count).Err()
}

func (s *RedisStore) AgentStartJob(ctx context.Context, group string, id JobID, iterator IteratorHandle) error {
	payload, err := json.Marshal(yaraTaskWire{Job: id, Iterator: iterator})
	if err != nil {
		return err
	}

	pipe := s.rdb.TxPipeline()
	pipe.RPush(ctx, yaraQueueKey(group), payload)
	pipe.HIncrBy(ctx, jobKey(id), fieldActiveAgents, 1)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) AgentContinueSearch(ctx context.Context, group string, id JobID) error {
	return s.rdb.RPush(ctx, searchQueueKey(group), string(id)).Err()
}

func (s *RedisStore) JobStartWork(ctx context.Context, id JobID, n int64) error {
	return s.rdb.HIncrBy(ctx, jobKey(id), fieldFilesInProgress, n).Err()
}

func (s *RedisStore) JobUpdateWork(ctx context.Context, id JobID, n int64, matches int64) error {
	pipe := s.rdb.TxPipeline()
	pipe.HIncrBy(ctx, jobKey(id), fieldFilesInProgress, -n)
	pipe.HIncrBy(ctx, jobKey(id), fieldFilesProcessed, n)
	if matches != 0 {
		pipe.HIncrBy(ctx, jobKey(id), fieldNumMatches, matches)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) AddMatch(ctx context.Context, id JobID, m MatchInfo) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return scriptAddMatch.Run(ctx, s.rdb, []string{jobKey(id), matchesKey(id)}, string(payload)).Err()
}

func (s *RedisStore) AgentFinishJob(ctx context.Context, id JobID) error {
	return scriptFinishJob.Run(ctx, s.rdb, []string{jobKey(id)}).Err()
}

func (s *RedisStore) FailJob(ctx context.Context, id JobID, msg string) error {
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, jobKey(id), fieldStatus, string(JobFailed))
	pipe.HSet(ctx, jobKey(id), fieldError, msg)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) RegisterActiveAgent(ctx context.Context, group, backendURL string, spec map[string][]string, active []string) error {
	specJSON, err := json.Marshal(spec)
	if err != nil {
		return err
	}
	activeJSON, err := json.Marshal(active)
	if err != nil {
		return err
	}

	prevSpec, err := s.rdb.HGet(ctx, agentRegistrationKey(group, backendURL), "spec").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, agentRegistrationKey(group, backendURL), "group", group, "backend_url", backendURL, "spec", specJSON, "active", activeJSON)
	if prevSpec != string(specJSON) {
		pipe.Incr(ctx, pluginVersionKey)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) GetPluginConfiguration(ctx context.Context, name string) (map[string]string, error) {
	return s.rdb.HGetAll(ctx, pluginConfigKey(name)).Result()
}

func (s *RedisStore) GetPluginConfigVersion(ctx context.Context) (int64, error) {
	v, err := s.rdb.Get(ctx, pluginVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func (s *RedisStore) ReloadConfiguration(ctx context.Context, v int64) error {
	current, err := s.GetPluginConfigVersion(ctx)
	if err != nil {
		return err
	}
	if current != v {
		// Someone already bumped it; this hop of the reload chain is done.
		return nil
	}
	return s.rdb.Incr(ctx, pluginVersionKey).Err()
}

var _ Store = (*RedisStore)(nil)
