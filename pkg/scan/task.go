package scan

import "fmt"

// Phase is one of the two sweeps.
type Phase int

const (
	PhaseUp Phase = iota
	PhaseDown
)

func (p Phase) String() string {
	switch p {
	case PhaseUp:
		return "upsweep"
	case PhaseDown:
		return "downsweep"
	default:
		return "unknown"
	}
}

// Task is the work of one worker at one level. It only touches slots in [Lo, Hi).
type Task struct {
	Phase  Phase
	Level  int
	Worker int
	Lo, Hi int
	Stride int
	Step   int
}

// Run applies the task to buf. It panics on an unknown phase.
func (t Task) Run(buf *Buffer) {
	s := buf.slots
	switch t.Phase {
	case PhaseUp:
		// s[i] += s[i-step]
		t.each(func(i int) {
			s[i] += s[i-t.Step]
		})
	case PhaseDown:
		// The node value moves to the left child; the right child gets the
		// node value plus the old left child.
		t.each(func(i int) {
			node := s[i]
			s[i] += s[i-t.Step]
			s[i-t.Step] = node
		})
	default:
		panic(fmt.Sprintf("scan: unknown phase %d", int(t.Phase)))
	}
}

// each calls fn with every right-child index the task writes, in order.
func (t Task) each(fn func(i int)) {
	for i := t.Lo + t.Stride - 1; i < t.Hi; i += t.Stride {
		fn(i)
	}
}

// Indices returns the write targets of the task, in order.
func (t Task) Indices() []int {
	var idx []int
	t.each(func(i int) { idx = append(idx, i) })
	return idx
}
