package actor

import (
	"context"
	"sync"
	"time"
)

// Scheduler runs delayed tasks grouped by key. Cancelling a key cancels the
// context of every task of that key, whether it is waiting or running.
type Scheduler struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	groups map[string]*taskGroup
	wg     sync.WaitGroup
}

type taskGroup struct {
	ctx     context.Context
	cancel  context.CancelFunc
	pending int
}

// NewScheduler creates a scheduler whose tasks all end when parent is done.
func NewScheduler(parent context.Context) *Scheduler {
	ctx, cancel := context.WithCancel(parent)
	return &Scheduler{ctx: ctx, cancel: cancel, groups: make(map[string]*taskGroup)}
}

// After runs task once delay has elapsed, unless key is cancelled first. It
// reports false when the scheduler is already stopped.
func (s *Scheduler) After(key string, delay time.Duration, task func(ctx context.Context)) bool {
	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		return false
	}
	g, ok := s.groups[key]
	if !ok {
		ctx, cancel := context.WithCancel(s.ctx)
		g = &taskGroup{ctx: ctx, cancel: cancel}
		s.groups[key] = g
	}
	g.pending++
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer s.done(key, g)

		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-g.ctx.Done():
		case <-timer.C:
			if g.ctx.Err() == nil {
				task(g.ctx)
			}
		}
	}()
	return true
}

func (s *Scheduler) done(key string, g *taskGroup) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g.pending--
	if g.pending == 0 {
		g.cancel()
		if s.groups[key] == g {
			delete(s.groups, key)
		}
	}
}

// Cancel stops every task scheduled under key. It reports whether any were.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[key]
	if !ok {
		return false
	}
	delete(s.groups, key)
	g.cancel()
	return true
}

// Pending reports the number of tasks not yet finished under key.
func (s *Scheduler) Pending(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.groups[key]; ok {
		return g.pending
	}
	return 0
}

// Stop cancels every task and waits for running ones to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()
	s.wg.Wait()
}
