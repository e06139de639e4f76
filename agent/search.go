package agent

import (
	"context"
	"fmt"

	"github.com/mquery/agent/backend"
	"github.com/mquery/agent/store"
	"github.com/mquery/agent/yaraengine"
)

// SearchHandler runs the search phase of a job: it claims one dataset at
// a time against the backend, accumulates a file count, and re-enqueues
// itself so sibling agents in the group pick up the remaining datasets.
type SearchHandler struct {
	groupID string
	store   store.Store
	backend backend.Client
}

func NewSearchHandler(groupID string, s store.Store, b backend.Client) *SearchHandler {
	return &SearchHandler{groupID: groupID, store: s, backend: b}
}

// Handle processes one SEARCH task for jobID.
func (h *SearchHandler) Handle(ctx context.Context, jobID store.JobID) error {
	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("search: reading job: %w", err)
	}
	if job.Status == store.JobCancelled {
		return nil
	}

	if job.Status == store.JobNew {
		topo, err := h.backend.Topology(ctx)
		if err != nil {
			return fmt.Errorf("search: fetching topology: %w", err)
		}
		datasets := make([]string, 0, len(topo.Datasets))
		for name := range topo.Datasets {
			datasets = append(datasets, name)
		}
		if err := h.store.InitJobDatasets(ctx, h.groupID, jobID, datasets); err != nil {
			return fmt.Errorf("search: initializing datasets: %w", err)
		}
	}

	dataset, ok, err := h.store.GetNextSearchDataset(ctx, h.groupID, jobID)
	if err != nil {
		return fmt.Errorf("search: claiming dataset: %w", err)
	}
	if !ok {
		return nil
	}

	rules := yaraengine.ParseYara(job.RawYara)
	query := yaraengine.Combine(rules)

	result, err := h.backend.Query(ctx, query, job.Taint, dataset)
	if err != nil {
		return fmt.Errorf("search: querying dataset %s: %w", dataset, err)
	}

	if err := h.store.UpdateJobFiles(ctx, jobID, result.FileCount); err != nil {
		return fmt.Errorf("search: updating file count: %w", err)
	}
	if err := h.store.AgentStartJob(ctx, h.groupID, jobID, store.IteratorHandle(result.Iterator)); err != nil {
		return fmt.Errorf("search: enqueuing yara task: %w", err)
	}
	if err := h.store.AgentContinueSearch(ctx, h.groupID, jobID); err != nil {
		return fmt.Errorf("search: re-enqueuing search task: %w", err)
	}

	return nil
}
