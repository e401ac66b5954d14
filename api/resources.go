package api

import (
	"context"
	"net/http"

	"github.com/jrsteele09/bizdesk/model"
)

// Resource is the call group for one backend collection
type Resource[T model.Identifiable] struct {
	client *Client
	path   string
}

// GetAll fetches the collection, paginated or not
func (r *Resource[T]) GetAll(ctx context.Context) (Envelope[T], error) {
	data, err := r.client.do(ctx, http.MethodGet, r.path, nil)
	if err != nil {
		return Envelope[T]{}, err
	}
	return DecodeList[T](data)
}

func (r *Resource[T]) Get(ctx context.Context, id int64) (T, error) {
	data, err := r.client.do(ctx, http.MethodGet, detailPath(r.path, id), nil)
	if err != nil {
		var zero T
		return zero, err
	}
	return decode[T](data)
}

func (r *Resource[T]) Create(ctx context.Context, record T) (T, error) {
	data, err := r.client.do(ctx, http.MethodPost, r.path, record)
	if err != nil {
		var zero T
		return zero, err
	}
	return decode[T](data)
}

// Update replaces the record with id. The returned value is the server's
// representation, which may differ from record.
func (r *Resource[T]) Update(ctx context.Context, id int64, record T) (T, error) {
	data, err := r.client.do(ctx, http.MethodPut, detailPath(r.path, id), record)
	if err != nil {
		var zero T
		return zero, err
	}
	return decode[T](data)
}

func (r *Resource[T]) Delete(ctx context.Context, id int64) error {
	_, err := r.client.do(ctx, http.MethodDelete, detailPath(r.path, id), nil)
	return err
}

// MailableResource adds the send-by-email action
type MailableResource[T model.Identifiable] struct {
	*Resource[T]
}

type messageResponse struct {
	Message string `json:"message"`
}

// SendEmail asks the backend to email the document to its client and returns the
// backend's confirmation message
func (r *MailableResource[T]) SendEmail(ctx context.Context, id int64) (string, error) {
	data, err := r.client.do(ctx, http.MethodPost, actionPath(r.path, id, actionSendEmail), nil)
	if err != nil {
		return "", err
	}
	msg, err := decode[messageResponse](data)
	if err != nil {
		return "", err
	}
	return msg.Message, nil
}
