// Package payment reads recent transactions from payment processors for
// periodic reconciliation.
package payment

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/fraudscope/internal/domain/model"
)

// Source lists transactions a processor saw since a point in time,
// newest first, at most limit of them.
type Source interface {
	Name() string
	ListRecent(ctx context.Context, since time.Time, limit int) ([]model.TransactionEvent, error)
}

// StaticSource serves a fixed, mutable set of events. It backs local runs
// without processor credentials and tests.
type StaticSource struct {
	mu     sync.RWMutex
	events []model.TransactionEvent
	err    error
}

var _ Source = (*StaticSource)(nil)

// NewStaticSource serves events from memory.
func NewStaticSource(events ...model.TransactionEvent) *StaticSource {
	s := &StaticSource{}
	s.Add(events...)
	return s
}

// Name returns "static".
func (s *StaticSource) Name() string { return "static" }

// Add appends events.
func (s *StaticSource) Add(events ...model.TransactionEvent) {
	s.mu.Lock()
	s.events = append(s.events, events...)
	s.mu.Unlock()
}

// FailWith makes every later ListRecent return err; nil restores normal operation.
func (s *StaticSource) FailWith(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// ListRecent returns up to limit events that arrived at or after since,
// newest first.
func (s *StaticSource) ListRecent(_ context.Context, since time.Time, limit int) ([]model.TransactionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceFailed, s.err)
	}

	out := make([]model.TransactionEvent, 0, len(s.events))
	for i := range s.events {
		if !s.events[i].ArrivalTime.Before(since) {
			out = append(out, s.events[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ArrivalTime.After(out[j].ArrivalTime) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
