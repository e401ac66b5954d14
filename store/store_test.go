package store_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/bizdesk/api"
	"github.com/jrsteele09/bizdesk/api/apifake"
	"github.com/jrsteele09/bizdesk/internal/errors"
	"github.com/jrsteele09/bizdesk/model"
	"github.com/jrsteele09/bizdesk/session"
	sessionrepofake "github.com/jrsteele09/bizdesk/session/repofake"
	"github.com/jrsteele09/bizdesk/store"
	"github.com/stretchr/testify/require"
)

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time {
	return c.now
}

func newStore(t *testing.T, loggedIn bool, opts ...store.Option) (*store.Store, *apifake.Backend, *session.Manager) {
	t.Helper()
	backend := apifake.NewBackend()
	t.Cleanup(backend.Close)

	sess, err := session.NewManager(sessionrepofake.NewFakeSessionRepo())
	require.NoError(t, err)
	if loggedIn {
		require.NoError(t, sess.SetTokens(backend.AccessToken(), "refresh-1"))
	}
	return store.New(api.New(backend.URL(), sess), opts...), backend, sess
}

func TestStore_CreateThenDelete(t *testing.T) {
	s, backend, _ := newStore(t, true)
	ctx := context.Background()

	created, err := s.CreateClient(ctx, model.Client{Name: "Ada", Email: "ada@example.com", Phone: "555"})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.False(t, created.CreatedAt.IsZero())
	require.Empty(t, s.Error())

	_, ok := s.ClientByID(created.ID)
	require.True(t, ok)

	require.NoError(t, s.DeleteClient(ctx, created.ID))
	_, ok = s.ClientByID(created.ID)
	require.False(t, ok)
	require.Empty(t, s.Clients())
	require.Equal(t, 2, backend.Calls(api.RouteClients))
	require.False(t, s.Loading())
}

func TestStore_UpdateReplacesWithServerRecord(t *testing.T) {
	s, backend, _ := newStore(t, true)
	ctx := context.Background()
	require.NoError(t, backend.Seed(api.RouteQuotations, model.Quotation{ID: 3, Client: 1, Status: model.QuotationDraft, Notes: "first", Total: 100}))
	require.NoError(t, s.FetchQuotations(ctx))

	updated, err := s.UpdateQuotation(ctx, 3, model.Quotation{Client: 1, Status: model.QuotationSent, Total: 120})
	require.NoError(t, err)
	require.Equal(t, int64(3), updated.ID)
	require.False(t, updated.UpdatedAt.IsZero())

	stored, ok := s.QuotationByID(3)
	require.True(t, ok)
	require.Equal(t, updated, stored)
	require.Empty(t, stored.Notes)
	require.Len(t, s.Quotations(), 1)
}

func TestStore_ClearAllData(t *testing.T) {
	s, backend, _ := newStore(t, true)
	ctx := context.Background()
	require.NoError(t, backend.Seed(api.RouteClients, model.Client{ID: 1, Name: "Ada"}))
	require.NoError(t, s.FetchAllData(ctx))
	require.NoError(t, s.FetchItems(ctx))
	require.False(t, s.LastFetchedAt().IsZero())

	backend.Fail(api.RouteReceipts, http.StatusInternalServerError, `{"detail":"boom"}`)
	require.Error(t, s.FetchReceipts(ctx))
	require.NotEmpty(t, s.Error())

	s.ClearAllData()
	require.Empty(t, s.Clients())
	require.Empty(t, s.Quotations())
	require.Empty(t, s.Receipts())
	require.Empty(t, s.Items())
	require.False(t, s.Loading())
	require.Empty(t, s.Error())
	require.True(t, s.LastFetchedAt().IsZero())
	require.True(t, s.IsStale())
}

func TestStore_InitializeStore(t *testing.T) {
	c := &clock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	s, backend, _ := newStore(t, true, store.WithNowFunc(c.Now))
	ctx := context.Background()

	require.NoError(t, s.InitializeStore(ctx))
	require.Equal(t, 1, backend.Calls(api.RouteClients))
	require.Equal(t, c.now, s.LastFetchedAt())

	c.now = c.now.Add(4 * time.Minute)
	require.NoError(t, s.InitializeStore(ctx))
	require.Equal(t, 1, backend.Calls(api.RouteClients))

	c.now = c.now.Add(2 * time.Minute)
	require.NoError(t, s.InitializeStore(ctx))
	require.Equal(t, 2, backend.Calls(api.RouteClients))
	require.Equal(t, 2, backend.Calls(api.RouteQuotations))
	require.Equal(t, 2, backend.Calls(api.RouteReceipts))
}

func TestStore_InitializeStoreWithoutSession(t *testing.T) {
	s, backend, _ := newStore(t, false)

	require.NoError(t, s.InitializeStore(context.Background()))
	require.Zero(t, backend.Calls(api.RouteClients))
	require.True(t, s.LastFetchedAt().IsZero())
}

func TestStore_FetchAllDataPartialFailure(t *testing.T) {
	s, backend, _ := newStore(t, true)
	ctx := context.Background()
	require.NoError(t, backend.Seed(api.RouteClients, model.Client{ID: 1, Name: "Ada"}))
	require.NoError(t, backend.Seed(api.RouteReceipts, model.Receipt{ID: 1, Total: 10}))
	backend.Fail(api.RouteQuotations, http.StatusInternalServerError, `{"detail":"database unavailable"}`)

	err := s.FetchAllData(ctx)
	require.ErrorIs(t, err, errors.ErrAggregate)
	require.Equal(t, "Failed to load data", s.Error())
	require.True(t, s.LastFetchedAt().IsZero())
	require.Len(t, s.Clients(), 1)
	require.Len(t, s.Receipts(), 1)
	require.False(t, s.Loading())

	backend.Recover(api.RouteQuotations)
	require.NoError(t, s.FetchAllData(ctx))
	require.Empty(t, s.Error())
	require.False(t, s.LastFetchedAt().IsZero())
}

func TestStore_PaginatedFetch(t *testing.T) {
	s, backend, _ := newStore(t, true)
	backend.Paginate(true)
	require.NoError(t, backend.Seed(api.RouteClients, model.Client{ID: 1, Name: "Ada"}, model.Client{ID: 2, Name: "Grace"}))

	require.NoError(t, s.RefreshClients(context.Background()))
	require.Len(t, s.Clients(), 2)
}

func TestStore_CreateErrors(t *testing.T) {
	t.Run("no session", func(t *testing.T) {
		s, backend, _ := newStore(t, false)
		_, err := s.CreateReceipt(context.Background(), model.Receipt{Client: 1})
		require.ErrorIs(t, err, errors.ErrNoSession)
		require.Equal(t, errors.ErrNoSession.Error(), s.Error())
		require.Zero(t, backend.Calls(api.RouteReceipts))
		require.False(t, s.Loading())
	})

	t.Run("validation", func(t *testing.T) {
		s, backend, _ := newStore(t, true)
		backend.Fail(api.RouteClients, http.StatusBadRequest, `{"email":["Enter a valid email address."]}`)
		_, err := s.CreateClient(context.Background(), model.Client{Name: "Ada", Email: "nope"})
		require.ErrorIs(t, err, errors.ErrValidation)
		require.Contains(t, err.Error(), "invalid client data")
		require.Equal(t, err.Error(), s.Error())
		require.Empty(t, s.Clients())
	})

	t.Run("permission", func(t *testing.T) {
		s, backend, _ := newStore(t, true)
		backend.Fail(api.RouteQuotations, http.StatusForbidden, `{"detail":"You do not have permission to perform this action."}`)
		_, err := s.CreateQuotation(context.Background(), model.Quotation{Client: 1})
		require.ErrorIs(t, err, errors.ErrForbidden)
		require.Contains(t, err.Error(), "permission denied, you do not have access to create quotations")
	})

	t.Run("server failure", func(t *testing.T) {
		s, backend, _ := newStore(t, true)
		backend.Fail(api.RouteReceipts, http.StatusInternalServerError, `{"detail":"boom"}`)
		_, err := s.CreateReceipt(context.Background(), model.Receipt{Client: 1})
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to create receipt")
		require.Equal(t, http.StatusInternalServerError, api.StatusCode(err))
	})
}

func TestStore_FailedDeleteKeepsRecord(t *testing.T) {
	s, backend, _ := newStore(t, true)
	ctx := context.Background()
	require.NoError(t, backend.Seed(api.RouteReceipts, model.Receipt{ID: 4, Total: 30}))
	require.NoError(t, s.FetchReceipts(ctx))

	err := s.DeleteReceipt(ctx, 99)
	require.ErrorIs(t, err, errors.ErrNotFound)
	require.NotEmpty(t, s.Error())
	require.Len(t, s.Receipts(), 1)
}

func TestStore_SendEmail(t *testing.T) {
	s, backend, _ := newStore(t, true)
	ctx := context.Background()
	require.NoError(t, backend.Seed(api.RouteQuotations, model.Quotation{ID: 2, Client: 1, ClientEmail: "ada@example.com"}))
	require.NoError(t, backend.Seed(api.RouteReceipts, model.Receipt{ID: 5, Client: 1, ClientEmail: "ada@example.com"}))

	msg, err := s.SendQuotationEmail(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, "Email sent to ada@example.com", msg)

	msg, err = s.SendReceiptEmail(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, "Email sent to ada@example.com", msg)

	_, err = s.SendReceiptEmail(ctx, 6)
	require.ErrorIs(t, err, errors.ErrNotFound)
	require.Empty(t, s.Receipts())
}

func TestStore_ExpiredTokenIsRefreshedDuringFetch(t *testing.T) {
	backend := apifake.NewBackend()
	t.Cleanup(backend.Close)
	sess, err := session.NewManager(sessionrepofake.NewFakeSessionRepo())
	require.NoError(t, err)
	require.NoError(t, sess.SetTokens("expired", "refresh-1"))
	s := store.New(api.New(backend.URL(), sess))

	require.NoError(t, s.FetchClients(context.Background()))
	require.Equal(t, backend.AccessToken(), sess.GetAuthToken())
}

func TestStore_InitializeStoreLeavesSessionStorageAlone(t *testing.T) {
	backend := apifake.NewBackend()
	t.Cleanup(backend.Close)
	repo := sessionrepofake.NewFakeSessionRepo()
	sess, err := session.NewManager(repo)
	require.NoError(t, err)
	require.NoError(t, sess.SetTokens(backend.AccessToken(), "refresh-1"))
	client := api.New(backend.URL(), sess)
	s := store.New(client)
	writes := repo.Writes()

	require.NoError(t, s.InitializeStore(context.Background()))
	require.NoError(t, s.InitializeStore(context.Background()))
	require.Equal(t, writes, repo.Writes())
	require.Equal(t, backend.AccessToken(), client.BearerToken())
}

func TestStore_ErrorIsOnlyClearedByOwnSuccess(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+api.RouteClients, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"clients unavailable"}`))
	})
	mux.HandleFunc("GET "+api.RouteReceipts, func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"detail":"receipts unavailable"}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	sess, err := session.NewManager(sessionrepofake.NewFakeSessionRepo())
	require.NoError(t, err)
	require.NoError(t, sess.SetTokens("access-1", "refresh-1"))
	s := store.New(api.New(server.URL, sess))
	ctx := context.Background()

	require.Error(t, s.FetchClients(ctx))
	first := s.Error()
	require.Contains(t, first, "clients unavailable")

	done := make(chan error, 1)
	go func() { done <- s.FetchReceipts(ctx) }()
	<-entered
	require.True(t, s.Loading())
	require.Equal(t, first, s.Error())

	close(release)
	require.Error(t, <-done)
	require.False(t, s.Loading())
	require.Contains(t, s.Error(), "receipts unavailable")
	require.NotEqual(t, first, s.Error())
}
