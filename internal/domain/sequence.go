package domain

import "sync/atomic"

// Sequence hands out monotonically increasing surrogate IDs. Each run owns its
// own Sequence so concurrent runs never share counters.
type Sequence struct {
	last atomic.Int64
}

// NewSequence returns a Sequence whose first Next() is start+1.
func NewSequence(start int64) *Sequence {
	s := &Sequence{}
	s.last.Store(start)
	return s
}

func (s *Sequence) Next() int64 {
	return s.last.Add(1)
}

// Last returns the most recently issued ID.
func (s *Sequence) Last() int64 {
	return s.last.Load()
}
