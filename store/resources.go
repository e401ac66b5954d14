package store

import (
	"context"
	"fmt"
	"net/http"
	"slices"

	"github.com/jrsteele09/bizdesk/api"
	"github.com/jrsteele09/bizdesk/internal/errors"
	"github.com/jrsteele09/bizdesk/model"
	"github.com/rs/zerolog/log"
)

const (
	clientName    = "client"
	quotationName = "quotation"
	receiptName   = "receipt"
)

func (s *Store) FetchClients(ctx context.Context) error {
	return fetch(ctx, s, clientName, s.client.Clients, &s.clients)
}

func (s *Store) FetchQuotations(ctx context.Context) error {
	return fetch(ctx, s, quotationName, s.client.Quotations.Resource, &s.quotations)
}

func (s *Store) FetchReceipts(ctx context.Context) error {
	return fetch(ctx, s, receiptName, s.client.Receipts.Resource, &s.receipts)
}

func (s *Store) RefreshClients(ctx context.Context) error {
	return s.FetchClients(ctx)
}

func (s *Store) RefreshQuotations(ctx context.Context) error {
	return s.FetchQuotations(ctx)
}

func (s *Store) RefreshReceipts(ctx context.Context) error {
	return s.FetchReceipts(ctx)
}

func (s *Store) CreateClient(ctx context.Context, c model.Client) (model.Client, error) {
	return create(ctx, s, clientName, s.client.Clients, &s.clients, c)
}

func (s *Store) CreateQuotation(ctx context.Context, q model.Quotation) (model.Quotation, error) {
	return create(ctx, s, quotationName, s.client.Quotations.Resource, &s.quotations, q)
}

func (s *Store) CreateReceipt(ctx context.Context, r model.Receipt) (model.Receipt, error) {
	return create(ctx, s, receiptName, s.client.Receipts.Resource, &s.receipts, r)
}

func (s *Store) UpdateClient(ctx context.Context, id int64, c model.Client) (model.Client, error) {
	return update(ctx, s, clientName, s.client.Clients, &s.clients, id, c)
}

func (s *Store) UpdateQuotation(ctx context.Context, id int64, q model.Quotation) (model.Quotation, error) {
	return update(ctx, s, quotationName, s.client.Quotations.Resource, &s.quotations, id, q)
}

func (s *Store) UpdateReceipt(ctx context.Context, id int64, r model.Receipt) (model.Receipt, error) {
	return update(ctx, s, receiptName, s.client.Receipts.Resource, &s.receipts, id, r)
}

func (s *Store) DeleteClient(ctx context.Context, id int64) error {
	return remove(ctx, s, clientName, s.client.Clients, &s.clients, id)
}

func (s *Store) DeleteQuotation(ctx context.Context, id int64) error {
	return remove(ctx, s, quotationName, s.client.Quotations.Resource, &s.quotations, id)
}

func (s *Store) DeleteReceipt(ctx context.Context, id int64) error {
	return remove(ctx, s, receiptName, s.client.Receipts.Resource, &s.receipts, id)
}

// SendQuotationEmail asks the backend to mail the quotation and returns its message
func (s *Store) SendQuotationEmail(ctx context.Context, id int64) (string, error) {
	return sendEmail(ctx, s, quotationName, s.client.Quotations, id)
}

// SendReceiptEmail asks the backend to mail the receipt and returns its message
func (s *Store) SendReceiptEmail(ctx context.Context, id int64) (string, error) {
	return sendEmail(ctx, s, receiptName, s.client.Receipts, id)
}

// The generic actions below share one discipline: loading is on for the whole call,
// a success clears the error and a failure records its message. Collections are only
// touched under s.mu and only if the store was not cleared meanwhile.

func fetch[T model.Identifiable](ctx context.Context, s *Store, name string, res *api.Resource[T], dst *[]T) error {
	gen, done := s.begin()
	defer done()

	env, err := res.GetAll(ctx)
	if err != nil {
		log.Err(err).Str("resource", name).Msg("fetch failed")
		s.fail(gen, err)
		return fmt.Errorf("[store fetch %ss] %w", name, err)
	}

	s.commit(gen, func() {
		*dst = env.Results
		s.errMsg = ""
	})
	log.Debug().Str("resource", name).Int("count", len(env.Results)).Msg("fetched")
	return nil
}

func create[T model.Identifiable](ctx context.Context, s *Store, name string, res *api.Resource[T], dst *[]T, record T) (T, error) {
	gen, done := s.begin()
	defer done()

	var zero T
	if !s.client.Session().HasSession() {
		s.fail(gen, errors.ErrNoSession)
		return zero, errors.ErrNoSession
	}

	created, err := res.Create(ctx, record)
	if err != nil {
		log.Err(err).Str("resource", name).Msg("create failed")
		refined := refineCreateError(name, err)
		s.fail(gen, refined)
		return zero, refined
	}

	s.commit(gen, func() {
		*dst = append(*dst, created)
		s.errMsg = ""
	})
	return created, nil
}

func update[T model.Identifiable](ctx context.Context, s *Store, name string, res *api.Resource[T], dst *[]T, id int64, record T) (T, error) {
	gen, done := s.begin()
	defer done()

	updated, err := res.Update(ctx, id, record)
	if err != nil {
		log.Err(err).Str("resource", name).Int64("id", id).Msg("update failed")
		s.fail(gen, err)
		var zero T
		return zero, fmt.Errorf("[store update %s %d] %w", name, id, err)
	}

	s.commit(gen, func() {
		if i := indexByID(*dst, id); i >= 0 {
			(*dst)[i] = updated
		}
		s.errMsg = ""
	})
	return updated, nil
}

func remove[T model.Identifiable](ctx context.Context, s *Store, name string, res *api.Resource[T], dst *[]T, id int64) error {
	gen, done := s.begin()
	defer done()

	if err := res.Delete(ctx, id); err != nil {
		log.Err(err).Str("resource", name).Int64("id", id).Msg("delete failed")
		s.fail(gen, err)
		return fmt.Errorf("[store delete %s %d] %w", name, id, err)
	}

	s.commit(gen, func() {
		*dst = slices.DeleteFunc(*dst, func(r T) bool { return r.RecordID() == id })
		s.errMsg = ""
	})
	return nil
}

func sendEmail[T model.Identifiable](ctx context.Context, s *Store, name string, res *api.MailableResource[T], id int64) (string, error) {
	gen, done := s.begin()
	defer done()

	msg, err := res.SendEmail(ctx, id)
	if err != nil {
		log.Err(err).Str("resource", name).Int64("id", id).Msg("send email failed")
		s.fail(gen, err)
		return "", fmt.Errorf("[store email %s %d] %w", name, id, err)
	}

	s.commit(gen, func() { s.errMsg = "" })
	return msg, nil
}

// refineCreateError turns a failed create into a message a user can act on. The
// original failure stays in the chain.
func refineCreateError(name string, err error) error {
	switch api.StatusCode(err) {
	case http.StatusBadRequest:
		return fmt.Errorf("invalid %s data, please check all required fields: %w", name, err)
	case http.StatusUnauthorized:
		return fmt.Errorf("authentication failed, please log in again: %w", err)
	case http.StatusForbidden:
		return fmt.Errorf("permission denied, you do not have access to create %ss: %w", name, err)
	default:
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
}

func (s *Store) fail(gen uint64, err error) {
	s.commit(gen, func() { s.errMsg = err.Error() })
}

func indexByID[T model.Identifiable](records []T, id int64) int {
	return slices.IndexFunc(records, func(r T) bool { return r.RecordID() == id })
}
