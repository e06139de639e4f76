package backend

import "context"

// Client is the index backend RPC surface an agent drives its search
// tasks through. All three calls may block on network I/O and must honor
// ctx cancellation.
type Client interface {
	// Topology lists the datasets currently indexed by the backend.
	Topology(ctx context.Context) (Topology, error)

	// Query runs a parsed rule query against dataset, scoped to taint, and
	// returns a file count plus an iterator handle over the matches.
	Query(ctx context.Context, query, taint, dataset string) (QueryResult, error)

	// Pop claims up to count file paths from iterator.
	Pop(ctx context.Context, iterator string, count int) (PopResult, error)
}
