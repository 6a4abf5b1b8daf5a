package tracer

import "math"

// BlockScheduler balances tile work across a pool of tracers.
type BlockScheduler interface {
	// Schedule splits totalTiles tiles across tracers and returns the
	// tile count assigned to each, in the same order as tracers.
	Schedule(tracers []Tracer, totalTiles uint32) []uint32
}

type naiveScheduler struct{}

// NaiveScheduler returns a scheduler that splits tiles proportionally to
// each tracer's static SpeedEstimate, ignoring any prior batch's actual
// timings.
func NaiveScheduler() BlockScheduler {
	return naiveScheduler{}
}

func (naiveScheduler) Schedule(tracers []Tracer, totalTiles uint32) []uint32 {
	return proportional(totalTiles, len(tracers), func(i int) float64 {
		return float64(tracers[i].SpeedEstimate())
	})
}

// perfectScheduler assumes the next batch's workload resembles the last
// one and schedules proportionally to each tracer's measured
// tiles/nanosecond throughput, falling back to the naive speed-estimate
// split the first time it runs (or whenever the tracer pool changes size).
type perfectScheduler struct {
	assignment []uint32
}

// PerfectScheduler returns a scheduler that adapts tile assignment using
// feedback from each tracer's last Stats(), following the formula:
//
//	w_i,f+1 = (tileCount_i / batchTime_i) / sum_j(tileCount_j / batchTime_j)
func PerfectScheduler() BlockScheduler {
	return &perfectScheduler{}
}

func (sch *perfectScheduler) Schedule(tracers []Tracer, totalTiles uint32) []uint32 {
	if len(sch.assignment) != len(tracers) {
		sch.assignment = proportional(totalTiles, len(tracers), func(i int) float64 {
			return float64(tracers[i].SpeedEstimate())
		})
		return sch.assignment
	}

	sch.assignment = proportional(totalTiles, len(tracers), func(i int) float64 {
		stats := tracers[i].Stats()
		if stats.BatchTime <= 0 {
			return float64(tracers[i].SpeedEstimate())
		}
		return float64(stats.TileCount) / float64(stats.BatchTime)
	})
	return sch.assignment
}

// proportional distributes total units across n buckets proportionally to
// weight(i), guaranteeing every bucket at least 1 and assigning any
// rounding remainder to bucket 0.
func proportional(total uint32, n int, weight func(i int) float64) []uint32 {
	assignment := make([]uint32, n)
	if n == 0 {
		return assignment
	}

	weights := make([]float64, n)
	var sumWeight float64
	for i := 0; i < n; i++ {
		weights[i] = weight(i)
		sumWeight += weights[i]
	}
	if sumWeight <= 0 {
		for i := range weights {
			weights[i] = 1
		}
		sumWeight = float64(n)
	}

	scaler := float64(total) / sumWeight
	var assigned uint32
	for i := 0; i < n; i++ {
		assignment[i] = uint32(math.Max(1.0, math.Floor(weights[i]*scaler)))
		assigned += assignment[i]
	}

	if assigned != total && total > 0 {
		if assigned > total && assignment[0] > assigned-total {
			assignment[0] -= assigned - total
		} else {
			assignment[0] += total - assigned
		}
	}

	return assignment
}
