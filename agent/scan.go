package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mquery/agent/backend"
	"github.com/mquery/agent/config"
	"github.com/mquery/agent/observability"
	"github.com/mquery/agent/plugins"
	"github.com/mquery/agent/store"
	"github.com/mquery/agent/yaraengine"
)

// ScanHandler runs the scan (YARA) phase of a job: it claims a batch of
// files from the iterator, matches them against the job's compiled
// ruleset, enriches matches with metadata plugins, and re-enqueues
// itself while the iterator still has files.
type ScanHandler struct {
	groupID string
	store   store.Store
	backend backend.Client
	cache   *yaraengine.Cache
	plugins *plugins.Manager
	batch   config.BatchConfig
	logger  *slog.Logger
	metrics *observability.Collector
}

func NewScanHandler(groupID string, s store.Store, b backend.Client, cache *yaraengine.Cache, mgr *plugins.Manager, batch config.BatchConfig, logger *slog.Logger) *ScanHandler {
	return &ScanHandler{groupID: groupID, store: s, backend: b, cache: cache, plugins: mgr, batch: batch, logger: logger}
}

// SetMetrics attaches a metrics collector to record match counts. Passing
// nil disables match metrics without affecting scan correctness.
func (h *ScanHandler) SetMetrics(m *observability.Collector) {
	h.metrics = m
}

// adaptiveBatchSize implements the ramp-up/taper/floor batch formula:
// never more than MaxBatch, never more than what has already been taken
// (so early batches stay small), never more than a quarter of what is
// left (so the tail of a job drains across several agents rather than
// one agent claiming everything), and never less than MinBatch.
func adaptiveBatchSize(cfg config.BatchConfig, filesProcessed, filesInProgress, totalFiles int64) int64 {
	taken := filesProcessed + filesInProgress
	remaining := totalFiles - taken

	batch := int64(cfg.MaxBatch)
	if taken < batch {
		batch = taken
	}
	if quarter := remaining / 4; quarter < batch {
		batch = quarter
	}
	if batch < int64(cfg.MinBatch) {
		batch = int64(cfg.MinBatch)
	}
	return batch
}

// Handle processes one YARA task for (jobID, iterator).
func (h *ScanHandler) Handle(ctx context.Context, jobID store.JobID, iterator store.IteratorHandle) error {
	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("scan: reading job: %w", err)
	}
	if job.Status.Terminal() {
		return nil
	}

	batchSize := adaptiveBatchSize(h.batch, job.FilesProcessed, job.FilesInProgress, job.TotalFiles)

	popResult, err := h.backend.Pop(ctx, string(iterator), int(batchSize))
	if err != nil {
		return fmt.Errorf("scan: popping iterator %s: %w", iterator, err)
	}

	if !popResult.IteratorEmpty {
		if err := h.store.AgentStartJob(ctx, h.groupID, jobID, iterator); err != nil {
			return fmt.Errorf("scan: re-enqueuing yara task: %w", err)
		}
	}

	if len(popResult.Files) > 0 {
		if err := h.executeYara(ctx, jobID, job.RawYara, popResult.Files); err != nil {
			return err
		}
	}

	// Every yara task on a non-terminal job balances exactly one
	// AgentStartJob: the one that enqueued it (from the search phase, or
	// from this task's own re-enqueue above); a task whose job is already
	// terminal returned early above without calling it, since a terminal
	// job never flips to done. Calling this once per such task is
	// what lets active_agents reach zero once every chain has drained;
	// the store itself gates the processing->done flip on
	// active_agents==0 && files_processed==total_files, so finishing a
	// task early (iterator not yet empty) never flips status prematurely.
	if err := h.store.AgentFinishJob(ctx, jobID); err != nil {
		return fmt.Errorf("scan: finishing yara task: %w", err)
	}

	return nil
}

func (h *ScanHandler) executeYara(ctx context.Context, jobID store.JobID, rawYara string, files []string) error {
	ruleset, err := h.cache.GetOrCompile(string(jobID), rawYara)
	if err != nil {
		return fmt.Errorf("scan: compiling rules for job %s: %w", jobID, err)
	}

	if err := h.store.JobStartWork(ctx, jobID, int64(len(files))); err != nil {
		return fmt.Errorf("scan: marking work started: %w", err)
	}

	var numMatches int64
	for _, path := range files {
		matchedRules, err := ruleset.Match(ctx, path)
		if err != nil {
			if h.logger != nil {
				h.logger.Warn("skipping file after scan error", "path", path, "error", err)
			}
			continue
		}
		if len(matchedRules) == 0 {
			continue
		}

		numMatches++
		metadata := map[string]any{}
		if h.plugins != nil {
			for k, v := range h.plugins.Run(ctx, path) {
				metadata[k] = v
			}
		}

		if err := h.store.AddMatch(ctx, jobID, store.MatchInfo{
			FilePath:          path,
			Metadata:          metadata,
			MatchingRuleNames: matchedRules,
		}); err != nil {
			return fmt.Errorf("scan: recording match for %s: %w", path, err)
		}
	}

	if err := h.store.JobUpdateWork(ctx, jobID, int64(len(files)), numMatches); err != nil {
		return fmt.Errorf("scan: marking work done: %w", err)
	}
	if h.metrics != nil {
		h.metrics.RecordMatches(int(numMatches))
	}
	return nil
}
