// Package store is the application cache: it owns the in-memory resource collections,
// keeps them consistent with the backend through the api client and decides when
// cached data is stale.
package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/jrsteele09/bizdesk/api"
	"github.com/jrsteele09/bizdesk/internal/errors"
	"github.com/jrsteele09/bizdesk/model"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// DefaultStaleTime is how long fetched data is served from cache
const DefaultStaleTime = 5 * time.Minute

const aggregateErrorMessage = "Failed to load data"

type Store struct {
	client    *api.Client
	staleTime time.Duration
	nowFunc   func() time.Time

	mu          sync.RWMutex
	clients     []model.Client
	quotations  []model.Quotation
	receipts    []model.Receipt
	items       []model.Item
	inFlight    int
	errMsg      string
	lastFetched time.Time
	generation  uint64 // bumped by ClearAllData; results of older actions are dropped
}

type Option func(*Store)

func WithStaleTime(d time.Duration) Option {
	return func(s *Store) {
		s.staleTime = d
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(s *Store) {
		s.nowFunc = now
	}
}

func New(client *api.Client, options ...Option) *Store {
	s := &Store{
		client:     client,
		staleTime:  DefaultStaleTime,
		nowFunc:    time.Now,
		clients:    []model.Client{},
		quotations: []model.Quotation{},
		receipts:   []model.Receipt{},
		items:      []model.Item{},
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// InitializeStore loads data for an authenticated session unless the cache is still
// fresh. Without a session it does nothing.
func (s *Store) InitializeStore(ctx context.Context) error {
	if token := s.client.Session().Reapply(); token == "" {
		log.Debug().Msg("no token found, skipping data fetch")
		return nil
	}

	if !s.IsStale() {
		log.Debug().Msg("using cached data")
		return nil
	}
	return s.FetchAllData(ctx)
}

// IsStale reports whether the cache has never been filled or is older than the
// staleness window
func (s *Store) IsStale() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastFetched.IsZero() || s.nowFunc().Sub(s.lastFetched) > s.staleTime
}

// FetchAllData fetches clients, quotations and receipts concurrently. A failing fetch
// does not stop the others; collections that loaded are kept. The fetch time is only
// recorded when all three succeed.
func (s *Store) FetchAllData(ctx context.Context) error {
	gen, done := s.begin()
	defer done()

	errs := make([]error, 3)
	var g errgroup.Group
	g.Go(func() error {
		errs[0] = s.FetchClients(ctx)
		return nil
	})
	g.Go(func() error {
		errs[1] = s.FetchQuotations(ctx)
		return nil
	})
	g.Go(func() error {
		errs[2] = s.FetchReceipts(ctx)
		return nil
	})
	_ = g.Wait()

	if err := errors.Join(errs...); err != nil {
		log.Err(err).Msg("error fetching all data")
		s.commit(gen, func() { s.errMsg = aggregateErrorMessage })
		return fmt.Errorf("%w: %w", errors.ErrAggregate, err)
	}

	s.commit(gen, func() { s.lastFetched = s.nowFunc() })
	log.Debug().Msg("all data fetched successfully")
	return nil
}

// ClearAllData drops every collection and resets loading, error and fetch time.
// It is meant for logout.
func (s *Store) ClearAllData() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients = []model.Client{}
	s.quotations = []model.Quotation{}
	s.receipts = []model.Receipt{}
	s.items = []model.Item{}
	s.inFlight = 0
	s.errMsg = ""
	s.lastFetched = time.Time{}
	s.generation++
	log.Debug().Msg("all store data cleared")
}

// Loading reports whether any action is in flight
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inFlight > 0
}

// Error returns the message of the last failure, empty after a success
func (s *Store) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

// LastFetchedAt returns when FetchAllData last fully succeeded, zero if never
func (s *Store) LastFetchedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastFetched
}

func (s *Store) Clients() []model.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.clients)
}

func (s *Store) Quotations() []model.Quotation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.quotations)
}

func (s *Store) Receipts() []model.Receipt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.receipts)
}

func (s *Store) Items() []model.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

// begin marks an action in flight. The returned func must run on every exit path.
func (s *Store) begin() (uint64, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight++
	gen := s.generation
	return gen, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.generation == gen && s.inFlight > 0 {
			s.inFlight--
		}
	}
}

// commit applies a state change unless the store was cleared since gen
func (s *Store) commit(gen uint64, apply func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return
	}
	apply()
}
