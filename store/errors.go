package store

import "errors"

// ErrDatasetsExhausted is returned by callers that choose to treat an
// empty GetNextSearchDataset result as an error rather than a plain ok=false.
var ErrDatasetsExhausted = errors.New("store: no datasets remaining for job")
