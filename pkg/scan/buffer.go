package scan

// Buffer is the working array shared by every task of a computation.
// It holds n input slots followed by one slot for the grand total.
//
// Tasks of the same level touch disjoint slots, so Buffer has no lock.
type Buffer struct {
	slots []int64
	n     int
}

// NewBuffer copies input into a fresh buffer of len(input)+1 slots.
func NewBuffer(input []int64) *Buffer {
	slots := make([]int64, len(input)+1)
	copy(slots, input)
	return &Buffer{slots: slots, n: len(input)}
}

// Len returns n, the number of input slots.
func (b *Buffer) Len() int { return b.n }

// At returns slot i.
func (b *Buffer) At(i int) int64 { return b.slots[i] }

// Snapshot returns a copy of all n+1 slots.
// Only call it between levels, when no task is running.
func (b *Buffer) Snapshot() []int64 {
	out := make([]int64, len(b.slots))
	copy(out, b.slots)
	return out
}

// takeTotal saves the root of the reduction tree and clears it for the down-sweep.
func (b *Buffer) takeTotal() int64 {
	total := b.slots[b.n-1]
	b.slots[b.n-1] = 0
	return total
}

// setTotal writes the grand total into the reserved last slot.
func (b *Buffer) setTotal(total int64) {
	b.slots[b.n] = total
}
