package services

import (
	"context"
	"sync"
	"time"

	"bilancio/internal/cache"
	"bilancio/internal/core"
	"bilancio/internal/identity"
	"bilancio/internal/log"
)

// Lister loads an owner's full transaction list.
type Lister interface {
	List(ctx context.Context, owner identity.Key) ([]core.Transaction, error)
}

// MonthQuery selects what a month view shows.
type MonthQuery struct {
	Year     int
	Month    time.Month
	View     core.Type
	Category string
}

// SummaryService builds month views from a cached copy of each owner's list.
// The cache entry is dropped whenever the owner's transactions change.
//
// Every invalidation bumps the owner's generation. A list loaded while the
// generation moved is served once but never cached.
type SummaryService struct {
	lister Lister
	cache  *cache.LRUCache[[]core.Transaction]
	logger *log.Logger

	mu          sync.Mutex
	generations map[string]uint64
}

func NewSummaryService(lister Lister, c *cache.LRUCache[[]core.Transaction], logger *log.Logger) *SummaryService {
	if logger == nil {
		logger = log.Discard()
	}
	return &SummaryService{
		lister:      lister,
		cache:       c,
		logger:      logger.WithComponent(log.ComponentSummary),
		generations: make(map[string]uint64),
	}
}

// Month returns the dashboard for q.
func (s *SummaryService) Month(ctx context.Context, owner identity.Key, q MonthQuery) (core.MonthView, error) {
	if owner == "" {
		return core.MonthView{}, core.ErrMissingIdentity
	}
	key := owner.String()
	txs, ok := s.cache.Get(key)
	if !ok {
		gen := s.generation(key)
		var err error
		txs, err = s.lister.List(ctx, owner)
		if err != nil {
			return core.MonthView{}, err
		}
		s.store(key, gen, txs)
	}

	view := q.View
	if view == "" {
		view = core.TypeExpense
	}
	s.logger.DebugContext(ctx, "Building month view",
		log.FieldOwnerKey, owner.String(),
		log.FieldYear, q.Year,
		log.FieldMonth, int(q.Month),
		"cached", ok)
	return core.BuildMonthView(txs, q.Year, q.Month, view, q.Category), nil
}

// Invalidate drops the cached list of owner.
func (s *SummaryService) Invalidate(owner string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generations[owner]++
	s.cache.Delete(owner)
}

func (s *SummaryService) generation(owner string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[owner]
}

// store caches txs unless owner was invalidated since gen was read.
func (s *SummaryService) store(owner string, gen uint64, txs []core.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generations[owner] != gen {
		return
	}
	s.cache.Set(owner, txs)
}

// Notify implements Notifier by invalidating the event's owner.
func (s *SummaryService) Notify(_ context.Context, e core.ChangeEvent) error {
	s.Invalidate(e.OwnerKey)
	return nil
}
