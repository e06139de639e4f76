package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mquery/agent/store"
)

// Dispatcher pulls tasks off the group queue and routes them to the
// matching handler. Handlers never propagate task-level errors past
// dispatch: dispatch is the single sink that fails a job and logs.
type Dispatcher struct {
	groupID string
	store   store.Store
	search  *SearchHandler
	scan    *ScanHandler
	bus     *EventBus
	logger  *slog.Logger

	reload func(ctx context.Context) error

	pluginVersion int64
}

// NewDispatcher builds a Dispatcher. reload is called whenever the
// dispatcher observes a plugin configuration version bump; it should
// rebuild the plugin manager. The dispatcher records the new version
// itself once reload returns without error.
func NewDispatcher(groupID string, s store.Store, search *SearchHandler, scan *ScanHandler, bus *EventBus, logger *slog.Logger, reload func(ctx context.Context) error) *Dispatcher {
	return &Dispatcher{groupID: groupID, store: s, search: search, scan: scan, bus: bus, logger: logger, reload: reload}
}

// SetPluginVersion seeds the version the dispatcher compares against on
// every AgentGetTask call. Call this once after initial plugin load.
func (d *Dispatcher) SetPluginVersion(v int64) {
	d.pluginVersion = v
}

// RunLoop blocks, dispatching tasks until ctx is cancelled.
func (d *Dispatcher) RunLoop(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		task, err := d.store.AgentGetTask(ctx, d.groupID, d.pluginVersion)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			d.logger.Error("failed to fetch next task", "error", err)
			continue
		}

		d.dispatch(ctx, task)
	}
}

// dispatch routes one task to its handler. Handler errors never panic or
// propagate out of this function: a failing SEARCH/YARA task marks the
// job failed through the store instead. An unknown task type is a
// programming error and panics.
func (d *Dispatcher) dispatch(ctx context.Context, task store.AgentTask) {
	start := time.Now()
	d.bus.PublishTyped(EventDispatchStart, DispatchStartPayload{TaskType: task.Type.String(), JobID: string(task.JobID)})

	var err error
	switch task.Type {
	case store.TaskReload:
		err = d.handleReload(ctx)
	case store.TaskSearch:
		err = d.search.Handle(ctx, task.JobID)
	case store.TaskYara:
		err = d.scan.Handle(ctx, task.JobID, task.Iterator)
	default:
		panic(fmt.Sprintf("agent: unknown task type %v", task.Type))
	}

	d.bus.PublishTyped(EventDispatchEnd, DispatchEndPayload{
		TaskType: task.Type.String(),
		JobID:    string(task.JobID),
		Duration: time.Since(start),
		Err:      err,
	})

	if err == nil {
		if task.Type == store.TaskYara {
			d.publishJobDoneIfTerminal(ctx, task.JobID)
		}
		return
	}
	if task.Type == store.TaskReload {
		return
	}

	d.bus.PublishTyped(EventTaskError, TaskErrorPayload{TaskType: task.Type.String(), JobID: string(task.JobID), Error: err})

	if finishErr := d.store.AgentFinishJob(ctx, task.JobID); finishErr != nil {
		d.logger.Error("failed to record agent finish on task error", "job_id", task.JobID, "error", finishErr)
	}
	if failErr := d.store.FailJob(ctx, task.JobID, err.Error()); failErr != nil {
		d.logger.Error("failed to mark job failed", "job_id", task.JobID, "error", failErr)
	}
}

// publishJobDoneIfTerminal re-reads a job after a successful YARA task and
// announces it on the bus if its status is done at that point. It does not
// tell whether this task's own AgentFinishJob made the flip: a task that
// found the job already done, or that finished alongside another agent's
// flip, announces it as well.
// This is a cheap read against the same store the handler already hit;
// keeping it here (rather than threading the bus into ScanHandler) keeps
// the scan phase's only responsibility to the store and backend.
func (d *Dispatcher) publishJobDoneIfTerminal(ctx context.Context, jobID store.JobID) {
	job, err := d.store.GetJob(ctx, jobID)
	if err != nil {
		return
	}
	if job.Status == store.JobDone {
		d.bus.PublishTyped(EventJobDone, JobDonePayload{JobID: string(jobID), Status: string(job.Status)})
	}
}

// handleReload re-checks the store's plugin config version. A version
// that still matches what we hold is a bug signal (someone requested a
// reload we already absorbed) and is logged, not retried. Otherwise we
// propagate a one-hop reload to peers and rebuild our own plugin set.
func (d *Dispatcher) handleReload(ctx context.Context) error {
	current, err := d.store.GetPluginConfigVersion(ctx)
	if err != nil {
		return fmt.Errorf("dispatcher: checking plugin version: %w", err)
	}
	if current == d.pluginVersion {
		d.logger.Error("reload requested but plugin version unchanged", "version", current)
		return nil
	}

	if err := d.store.ReloadConfiguration(ctx, d.pluginVersion); err != nil {
		return fmt.Errorf("dispatcher: propagating reload: %w", err)
	}

	d.bus.PublishTyped(EventReloadTriggered, ReloadTriggeredPayload{OldVersion: d.pluginVersion, NewVersion: current})

	if d.reload != nil {
		if err := d.reload(ctx); err != nil {
			return fmt.Errorf("dispatcher: reinitializing plugins: %w", err)
		}
	}
	d.pluginVersion = current
	return nil
}
