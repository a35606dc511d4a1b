package scan

import "sync"

// Barrier is the join point of one level. Every task reports to it exactly
// once; Wait returns after the last report with the first error seen.
type Barrier struct {
	wg   sync.WaitGroup
	once sync.Once
	err  error
}

// NewBarrier returns a barrier expecting parties reports.
func NewBarrier(parties int) *Barrier {
	b := &Barrier{}
	b.wg.Add(parties)
	return b
}

// Done records the completion of one task. A non-nil err is kept only if it
// is the first one.
func (b *Barrier) Done(err error) {
	if err != nil {
		b.once.Do(func() { b.err = err })
	}
	b.wg.Done()
}

// Wait blocks until every party has called Done.
func (b *Barrier) Wait() error {
	b.wg.Wait()
	return b.err
}
