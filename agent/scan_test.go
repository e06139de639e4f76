package agent

import (
	"testing"

	"github.com/mquery/agent/config"
)

func TestAdaptiveBatchSize(t *testing.T) {
	cfg := config.BatchConfig{MinBatch: 10, MaxBatch: 500}

	cases := []struct {
		name                          string
		processed, inProgress, total int64
		want                          int64
	}{
		{"fresh job ramps up to floor", 0, 0, 10000, 10},
		{"early progress still below floor after ramp", 5, 0, 10000, 10},
		{"taken exceeds floor, remaining is huge", 50, 0, 10000, 50},
		{"taper caps at quarter of remaining", 100, 0, 140, 10}, // remaining=40, quarter=10
		{"large job hits max batch", 600, 0, 100000, 500},
		{"near completion floors at min", 995, 0, 1000, 10},
		{"in-progress counts toward taken", 50, 50, 10000, 100},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := adaptiveBatchSize(cfg, tc.processed, tc.inProgress, tc.total)
			if got != tc.want {
				t.Fatalf("adaptiveBatchSize(processed=%d, inProgress=%d, total=%d) = %d, want %d",
					tc.processed, tc.inProgress, tc.total, got, tc.want)
			}
		})
	}
}
