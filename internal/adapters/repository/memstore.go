package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/spaolacci/murmur3"

	"github.com/okian/fraudscope/internal/domain/model"
)

const defaultShardCount = 16

// MemoryStore is an in-process Store. Transactions are spread over
// murmur3-hashed shards for the duplicate check; a single append-only log
// keeps insertion order for recency queries.
type MemoryStore struct {
	opts   options
	shards []*memShard

	logMu sync.RWMutex
	log   []*model.TransactionRecord
	stats memStats

	alertMu sync.RWMutex
	alerts  map[int64]*model.AlertRecord
	nextID  int64
}

type memShard struct {
	mu   sync.RWMutex
	byID map[string]*model.TransactionRecord
}

type memStats struct {
	total   int64
	fraud   int64
	high    int64
	sumProb float64
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	s := &MemoryStore{
		opts:   o,
		shards: make([]*memShard, o.shardCount),
		alerts: make(map[int64]*model.AlertRecord),
	}
	for i := range s.shards {
		s.shards[i] = &memShard{byID: make(map[string]*model.TransactionRecord)}
	}
	return s
}

func (s *MemoryStore) shardFor(id string) *memShard {
	return s.shards[murmur3.Sum32([]byte(id))%uint32(len(s.shards))]
}

// InsertTransaction stores rec unless its id is already known.
func (s *MemoryStore) InsertTransaction(_ context.Context, rec model.TransactionRecord) (bool, error) { //nolint:gocritic // value semantics
	if rec.TransactionID == "" {
		return false, fmt.Errorf("%w: empty transaction id", model.ErrMalformedEvent)
	}

	cp := rec
	cp.Tags = append([]string(nil), rec.Tags...)

	sh := s.shardFor(rec.TransactionID)
	sh.mu.Lock()
	if _, exists := sh.byID[rec.TransactionID]; exists {
		sh.mu.Unlock()
		return false, nil
	}
	sh.byID[rec.TransactionID] = &cp
	sh.mu.Unlock()

	s.logMu.Lock()
	s.log = append(s.log, &cp)
	s.stats.total++
	if cp.IsFraud {
		s.stats.fraud++
	}
	if cp.RiskLevel == model.RiskHigh {
		s.stats.high++
	}
	s.stats.sumProb += cp.FraudProbability
	s.logMu.Unlock()
	return true, nil
}

func (s *MemoryStore) lookup(id string) (*model.TransactionRecord, bool) {
	sh := s.shardFor(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	rec, ok := sh.byID[id]
	return rec, ok
}

// CreateAlert stores an alert for an existing transaction.
func (s *MemoryStore) CreateAlert(_ context.Context, alert model.AlertRecord) (int64, error) { //nolint:gocritic // value semantics
	if _, ok := s.lookup(alert.TransactionID); !ok {
		return 0, fmt.Errorf("%w: %s", ErrTransactionNotFound, alert.TransactionID)
	}

	s.alertMu.Lock()
	defer s.alertMu.Unlock()
	s.nextID++
	a := alert
	a.ID = s.nextID
	if a.Status == "" {
		a.Status = model.AlertOpen
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.opts.clock()
	}
	s.alerts[a.ID] = &a
	return a.ID, nil
}

// GetRecent returns the last limit inserted transactions, newest first.
func (s *MemoryStore) GetRecent(_ context.Context, limit int) ([]model.TransactionRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}

	s.logMu.RLock()
	defer s.logMu.RUnlock()

	n := len(s.log)
	if limit > n {
		limit = n
	}
	out := make([]model.TransactionRecord, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, *s.log[i])
	}
	return out, nil
}

// GetStatistics summarises the store.
func (s *MemoryStore) GetStatistics(_ context.Context) (model.StoreStatistics, error) {
	s.logMu.RLock()
	st := s.stats
	s.logMu.RUnlock()

	out := model.StoreStatistics{
		TotalTransactions:    st.total,
		FraudTransactions:    st.fraud,
		FraudRate:            model.FraudRate(st.fraud, st.total),
		HighRiskTransactions: st.high,
	}
	if st.total > 0 {
		out.AvgFraudProbability = st.sumProb / float64(st.total)
	}

	s.alertMu.RLock()
	for _, a := range s.alerts {
		if a.Status == model.AlertOpen {
			out.OpenAlerts++
		}
	}
	s.alertMu.RUnlock()
	return out, nil
}

// GetOpenAlerts returns open alerts, newest first.
func (s *MemoryStore) GetOpenAlerts(_ context.Context) ([]model.OpenAlert, error) {
	s.alertMu.RLock()
	open := make([]model.AlertRecord, 0, len(s.alerts))
	for _, a := range s.alerts {
		if a.Status == model.AlertOpen {
			open = append(open, *a)
		}
	}
	s.alertMu.RUnlock()

	sort.Slice(open, func(i, j int) bool { return open[i].ID > open[j].ID })

	out := make([]model.OpenAlert, 0, len(open))
	for _, a := range open {
		oa := model.OpenAlert{AlertRecord: a}
		if rec, ok := s.lookup(a.TransactionID); ok {
			oa.UserID = rec.UserID
			oa.Amount = rec.Amount
			oa.FraudProbability = rec.FraudProbability
		}
		out = append(out, oa)
	}
	return out, nil
}

// ResolveAlert marks an open alert resolved.
func (s *MemoryStore) ResolveAlert(_ context.Context, id int64) error {
	s.alertMu.Lock()
	defer s.alertMu.Unlock()

	a, ok := s.alerts[id]
	if !ok || a.Status != model.AlertOpen {
		return fmt.Errorf("%w: %d", ErrAlertNotFound, id)
	}
	now := s.opts.clock()
	a.Status = model.AlertResolved
	a.ResolvedAt = &now
	return nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error { return nil }
