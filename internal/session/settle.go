package session

import (
	"sync"

	"github.com/wappgate/wappgate/internal/provider"
)

type settleResult struct {
	sess provider.Session
	err  error
}

// settleSlot is a single-assignment result for one initialization attempt.
// The first settle wins; later attempts are no-ops, so whichever provider
// event fires first (ready, authFailure) or the caller's timeout decides
// the outcome exactly once.
type settleSlot struct {
	once sync.Once
	done chan settleResult
}

func newSettleSlot() *settleSlot {
	return &settleSlot{done: make(chan settleResult, 1)}
}

func (s *settleSlot) succeed(sess provider.Session) {
	s.once.Do(func() { s.done <- settleResult{sess: sess} })
}

func (s *settleSlot) fail(err error) {
	s.once.Do(func() { s.done <- settleResult{err: err} })
}

func (s *settleSlot) wait() <-chan settleResult {
	return s.done
}
