package sim

import (
	"fmt"
	"sort"
)

// AssignHosts partitions hosts 0..len(weights)-1 across workers. The result
// maps host id to worker id and is stable: the same inputs always give the
// same assignment.
//
// round-robin deals hosts in id order. weighted places the heaviest host
// first onto the least-loaded worker (ties: lower host id, lower worker id);
// zero weights count as 1.
func AssignHosts(policy AssignmentPolicy, weights []float64, workers int) ([]WorkerID, error) {
	if workers < 1 {
		return nil, configErrorf("worker_count", "must be >= 1, got %d", workers)
	}
	assignment := make([]WorkerID, len(weights))
	switch policy {
	case "", AssignRoundRobin:
		for i := range weights {
			assignment[i] = WorkerID(i % workers)
		}
	case AssignWeighted:
		order := make([]int, len(weights))
		for i := range order {
			order[i] = i
		}
		w := func(i int) float64 {
			if weights[i] <= 0 {
				return 1
			}
			return weights[i]
		}
		sort.SliceStable(order, func(a, b int) bool {
			return w(order[a]) > w(order[b])
		})
		load := make([]float64, workers)
		for _, host := range order {
			best := 0
			for worker := 1; worker < workers; worker++ {
				if load[worker] < load[best] {
					best = worker
				}
			}
			load[best] += w(host)
			assignment[host] = WorkerID(best)
		}
	default:
		return nil, configErrorf("host_assignment_policy", "unknown policy %q", policy)
	}
	return assignment, nil
}

// describeAssignment renders per-worker host counts for logging.
func describeAssignment(assignment []WorkerID, workers int) string {
	counts := make([]int, workers)
	for _, w := range assignment {
		counts[w]++
	}
	return fmt.Sprint(counts)
}
