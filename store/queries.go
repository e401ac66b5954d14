package store

import (
	"slices"

	"github.com/jrsteele09/bizdesk/model"
)

const recentClientsLimit = 5

func (s *Store) ClientByID(id int64) (model.Client, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findByID(s.clients, id)
}

func (s *Store) QuotationByID(id int64) (model.Quotation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findByID(s.quotations, id)
}

func (s *Store) ReceiptByID(id int64) (model.Receipt, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findByID(s.receipts, id)
}

func (s *Store) ItemByID(id int64) (model.Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findByID(s.items, id)
}

// TotalRevenue sums the totals of all cached receipts regardless of status
func (s *Store) TotalRevenue() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total float64
	for _, r := range s.receipts {
		total += float64(r.Total)
	}
	return total
}

// PendingQuotations returns quotations still in DRAFT or SENT
func (s *Store) PendingQuotations() []model.Quotation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pending := make([]model.Quotation, 0, len(s.quotations))
	for _, q := range s.quotations {
		if q.IsPending() {
			pending = append(pending, q)
		}
	}
	return pending
}

// RecentClients returns up to five clients, newest first
func (s *Store) RecentClients() []model.Client {
	s.mu.RLock()
	recent := slices.Clone(s.clients)
	s.mu.RUnlock()

	slices.SortStableFunc(recent, func(a, b model.Client) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if len(recent) > recentClientsLimit {
		recent = recent[:recentClientsLimit]
	}
	return recent
}

func findByID[T model.Identifiable](records []T, id int64) (T, bool) {
	if i := indexByID(records, id); i >= 0 {
		return records[i], true
	}
	var zero T
	return zero, false
}
