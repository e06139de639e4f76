package agent

import (
	"context"
	"sync"

	"github.com/mquery/agent/backend"
	"github.com/mquery/agent/store"
)

// fakeStore is a hand-rolled in-memory store.Store for dispatcher/handler
// tests, a small purpose-built test double in place of a mocking
// framework.
type fakeStore struct {
	mu sync.Mutex

	jobs           map[store.JobID]store.Job
	datasets       map[store.JobID][]string
	searchQueue    []store.JobID
	yaraQueue      []yaraTaskFixture
	pluginVersion  int64
	pluginConfig   map[string]map[string]string
	finishedCalls  int
	failedJobs     map[store.JobID]string
	matches        map[store.JobID][]store.MatchInfo
	reloadRequests []int64
	registrations  []registrationCall
	activeAgents   map[store.JobID]int64
}

type registrationCall struct {
	group, backendURL string
	spec              map[string][]string
	active            []string
}

type yaraTaskFixture struct {
	job      store.JobID
	iterator store.IteratorHandle
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		jobs:         map[store.JobID]store.Job{},
		datasets:     map[store.JobID][]string{},
		pluginConfig: map[string]map[string]string{},
		failedJobs:   map[store.JobID]string{},
		matches:      map[store.JobID][]store.MatchInfo{},
		activeAgents: map[store.JobID]int64{},
	}
}

func (f *fakeStore) AgentGetTask(ctx context.Context, group string, callerVersion int64) (store.AgentTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if callerVersion != f.pluginVersion {
		return store.AgentTask{Type: store.TaskReload}, nil
	}
	if len(f.yaraQueue) > 0 {
		t := f.yaraQueue[0]
		f.yaraQueue = f.yaraQueue[1:]
		return store.AgentTask{Type: store.TaskYara, JobID: t.job, Iterator: t.iterator}, nil
	}
	if len(f.searchQueue) > 0 {
		id := f.searchQueue[0]
		f.searchQueue = f.searchQueue[1:]
		return store.AgentTask{Type: store.TaskSearch, JobID: id}, nil
	}
	return store.AgentTask{}, context.Canceled
}

func (f *fakeStore) GetJob(ctx context.Context, id store.JobID) (store.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return store.Job{}, store.ErrNotFound
	}
	return job, nil
}

func (f *fakeStore) GetYaraByJob(ctx context.Context, id store.JobID) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jobs[id].RawYara, nil
}

func (f *fakeStore) InitJobDatasets(ctx context.Context, group string, id store.JobID, datasets []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job := f.jobs[id]
	if job.Status == store.JobNew {
		job.Status = store.JobProcessing
	}
	f.jobs[id] = job
	if _, exists := f.datasets[id]; !exists {
		f.datasets[id] = datasets
	}
	return nil
}

func (f *fakeStore) GetNextSearchDataset(ctx context.Context, group string, id store.JobID) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	remaining := f.datasets[id]
	if len(remaining) == 0 {
		return "", false, nil
	}
	d := remaining[0]
	f.datasets[id] = remaining[1:]
	return d, true, nil
}

func (f *fakeStore) UpdateJobFiles(ctx context.Context, id store.JobID, count int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job := f.jobs[id]
	job.TotalFiles += count
	f.jobs[id] = job
	return nil
}

func (f *fakeStore) AgentStartJob(ctx context.Context, group string, id store.JobID, iterator store.IteratorHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.yaraQueue = append(f.yaraQueue, yaraTaskFixture{job: id, iterator: iterator})
	f.activeAgents[id]++
	return nil
}

func (f *fakeStore) AgentContinueSearch(ctx context.Context, group string, id store.JobID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchQueue = append(f.searchQueue, id)
	return nil
}

func (f *fakeStore) JobStartWork(ctx context.Context, id store.JobID, n int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job := f.jobs[id]
	job.FilesInProgress += n
	f.jobs[id] = job
	return nil
}

func (f *fakeStore) JobUpdateWork(ctx context.Context, id store.JobID, n int64, matches int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job := f.jobs[id]
	job.FilesInProgress -= n
	job.FilesProcessed += n
	job.NumMatches += matches
	f.jobs[id] = job
	return nil
}

func (f *fakeStore) AddMatch(ctx context.Context, id store.JobID, m store.MatchInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.jobs[id].Status.Terminal() {
		return nil
	}
	f.matches[id] = append(f.matches[id], m)
	return nil
}

// AgentFinishJob mirrors finish_job.lua: it decrements the per-job
// active-agent refcount and only flips status to done once that
// refcount reaches zero AND every file has been processed.
func (f *fakeStore) AgentFinishJob(ctx context.Context, id store.JobID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finishedCalls++

	remaining := f.activeAgents[id] - 1
	if remaining < 0 {
		remaining = 0
	}
	f.activeAgents[id] = remaining

	if remaining == 0 {
		job := f.jobs[id]
		if job.Status == store.JobProcessing && job.FilesProcessed == job.TotalFiles {
			job.Status = store.JobDone
			f.jobs[id] = job
		}
	}
	return nil
}

func (f *fakeStore) FailJob(ctx context.Context, id store.JobID, msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job := f.jobs[id]
	job.Status = store.JobFailed
	job.Error = msg
	f.jobs[id] = job
	f.failedJobs[id] = msg
	return nil
}

func (f *fakeStore) RegisterActiveAgent(ctx context.Context, group, backendURL string, spec map[string][]string, active []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registrations = append(f.registrations, registrationCall{group: group, backendURL: backendURL, spec: spec, active: active})
	return nil
}

func (f *fakeStore) GetPluginConfiguration(ctx context.Context, name string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pluginConfig[name], nil
}

func (f *fakeStore) GetPluginConfigVersion(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pluginVersion, nil
}

func (f *fakeStore) ReloadConfiguration(ctx context.Context, v int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reloadRequests = append(f.reloadRequests, v)
	return nil
}

func (f *fakeStore) Close() error { return nil }

var _ store.Store = (*fakeStore)(nil)

// fakeBackend is a hand-rolled backend.Client test double.
type fakeBackend struct {
	topology    backend.Topology
	queryResult backend.QueryResult
	popResults  []backend.PopResult
	popIndex    int
	err         error
}

func (f *fakeBackend) Topology(ctx context.Context) (backend.Topology, error) {
	if f.err != nil {
		return backend.Topology{}, f.err
	}
	return f.topology, nil
}

func (f *fakeBackend) Query(ctx context.Context, query, taint, dataset string) (backend.QueryResult, error) {
	if f.err != nil {
		return backend.QueryResult{}, f.err
	}
	return f.queryResult, nil
}

func (f *fakeBackend) Pop(ctx context.Context, iterator string, count int) (backend.PopResult, error) {
	if f.err != nil {
		return backend.PopResult{}, f.err
	}
	if f.popIndex >= len(f.popResults) {
		return backend.PopResult{IteratorEmpty: true}, nil
	}
	r := f.popResults[f.popIndex]
	f.popIndex++
	return r, nil
}

var _ backend.Client = (*fakeBackend)(nil)
