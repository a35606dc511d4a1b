package scan

import "math/bits"

// Level describes one level of either sweep: which buffer slots are combined
// and how they are split between workers.
type Level struct {
	Index   int // l
	Stride  int // 2^(l+1)
	Step    int // 2^l
	Workers int // tasks to run at this level
	Field   int // contiguous slots owned by one worker
}

// Partition splits a buffer of length n into per-worker ranges for the given level.
//
// The base field is one stride, giving n/stride workers. When that exceeds the
// budget, the budget is used and each worker takes n/budget slots. The budget is
// rounded down to a power of two first so that a field is always a whole number
// of strides and the ranges tile [0, n) exactly.
//
// Partition is pure; a non-positive n or budget yields a level with no workers.
func Partition(n, level, maxWorkers int) Level {
	lv := Level{Index: level, Stride: 1 << (level + 1), Step: 1 << level}
	if n <= 0 || maxWorkers < 1 || level < 0 {
		return lv
	}
	budget := floorPowerOfTwo(maxWorkers)
	count := n / lv.Stride
	if count > budget {
		lv.Workers = budget
		lv.Field = n / budget
	} else {
		lv.Workers = count
		lv.Field = lv.Stride
	}
	return lv
}

// Range returns the half-open slot range [lo, hi) owned by worker w.
func (l Level) Range(w int) (lo, hi int) {
	return l.Field * w, l.Field * (w + 1)
}

// Tasks returns one task per worker for the given phase.
func (l Level) Tasks(phase Phase) []Task {
	tasks := make([]Task, l.Workers)
	for w := range tasks {
		lo, hi := l.Range(w)
		tasks[w] = Task{
			Phase:  phase,
			Level:  l.Index,
			Worker: w,
			Lo:     lo,
			Hi:     hi,
			Stride: l.Stride,
			Step:   l.Step,
		}
	}
	return tasks
}

// Depth returns floor(log2(n)) for n > 0.
func Depth(n int) int {
	if n <= 0 {
		return 0
	}
	return bits.Len(uint(n)) - 1
}

// IsPowerOfTwo reports whether n is an exact power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && bits.OnesCount(uint(n)) == 1
}

// PoolSize is the number of workers a computation over n elements needs:
// the rounded budget, capped by the widest level (n/2 tasks).
func PoolSize(n, maxWorkers int) int {
	if n <= 0 || maxWorkers < 1 {
		return 0
	}
	return max(1, min(floorPowerOfTwo(maxWorkers), n/2))
}

func floorPowerOfTwo(x int) int {
	return 1 << (bits.Len(uint(x)) - 1)
}
