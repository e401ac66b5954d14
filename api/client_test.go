package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/bizdesk/api"
	"github.com/jrsteele09/bizdesk/internal/errors"
	"github.com/jrsteele09/bizdesk/model"
	"github.com/jrsteele09/bizdesk/session"
	sessionrepofake "github.com/jrsteele09/bizdesk/session/repofake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

// testBackend is a minimal stand-in for the business backend. Resource requests only
// succeed with the token in validToken; the refresh endpoint hands out nextAccess.
type testBackend struct {
	t              *testing.T
	server         *httptest.Server
	mu             sync.Mutex
	validToken     string
	nextAccess     string
	nextRefresh    string
	refreshStatus  int
	refreshDelay   time.Duration
	refreshCalls   atomic.Int32
	clientCalls    atomic.Int32
	alwaysReject   bool
	lastAuthHeader string
	lastHeaders    http.Header
	refreshBodies  []string
}

func newTestBackend(t *testing.T) *testBackend {
	t.Helper()
	b := &testBackend{t: t, validToken: "access-1", refreshStatus: http.StatusOK}

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+api.RouteAuthRefresh, b.handleRefresh)
	mux.HandleFunc("POST "+api.RouteAuthToken, func(w http.ResponseWriter, r *http.Request) {
		var creds api.Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		if creds.Password != "password123" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"No active account found with the given credentials"}`))
			return
		}
		writeJSON(w, http.StatusOK, api.TokenPair{Access: "access-1", Refresh: "refresh-1"})
	})
	mux.HandleFunc("GET "+api.RouteClients, func(w http.ResponseWriter, r *http.Request) {
		b.clientCalls.Add(1)
		if !b.authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Given token not valid for any token type"}`))
			return
		}
		writeJSON(w, http.StatusOK, []model.Client{{ID: 1, Name: "Ada"}})
	})

	b.server = httptest.NewServer(mux)
	t.Cleanup(b.server.Close)
	return b
}

func (b *testBackend) authorized(r *http.Request) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastAuthHeader = r.Header.Get("Authorization")
	b.lastHeaders = r.Header.Clone()
	return !b.alwaysReject && b.lastAuthHeader == "Bearer "+b.validToken
}

func (b *testBackend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	b.refreshCalls.Add(1)
	var body map[string]string
	require.NoError(b.t, json.NewDecoder(r.Body).Decode(&body))

	if b.refreshDelay > 0 {
		time.Sleep(b.refreshDelay)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshBodies = append(b.refreshBodies, body["refresh"])
	if b.refreshStatus != http.StatusOK {
		w.WriteHeader(b.refreshStatus)
		_, _ = w.Write([]byte(`{"detail":"Token is invalid or expired","code":"token_not_valid"}`))
		return
	}
	b.validToken = b.nextAccess
	writeJSON(w, http.StatusOK, api.TokenPair{Access: b.nextAccess, Refresh: b.nextRefresh})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newClient(t *testing.T, b *testBackend, access, refresh string, opts ...api.Option) (*api.Client, *session.Manager) {
	t.Helper()
	sess, err := session.NewManager(sessionrepofake.NewFakeSessionRepo())
	require.NoError(t, err)
	require.NoError(t, sess.SetTokens(access, refresh))
	return api.New(b.server.URL, sess, opts...), sess
}

func TestClient_Headers(t *testing.T) {
	b := newTestBackend(t)
	c, _ := newClient(t, b, "access-1", "refresh-1")

	_, err := c.Clients.GetAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, "application/json", b.lastHeaders.Get("Content-Type"))
	require.Equal(t, "Bearer access-1", b.lastAuthHeader)
	require.NotEmpty(t, b.lastHeaders.Get("X-Request-ID"))

	t.Run("empty token strips the bearer credential", func(t *testing.T) {
		require.NoError(t, c.SetAuthToken(""))
		require.Empty(t, c.BearerToken())
		require.Empty(t, c.Session().GetAuthToken())

		_, err := c.Clients.GetAll(context.Background())
		require.Error(t, err)
		require.Empty(t, b.lastAuthHeader)
	})
}

func TestClient_RefreshAndRetry(t *testing.T) {
	b := newTestBackend(t)
	b.nextAccess = "access-2"
	c, sess := newClient(t, b, "expired", "refresh-1")

	env, err := c.Clients.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, env.Results, 1)

	require.EqualValues(t, 1, b.refreshCalls.Load())
	require.EqualValues(t, 2, b.clientCalls.Load())
	require.Equal(t, []string{"refresh-1"}, b.refreshBodies)
	require.Equal(t, "Bearer access-2", b.lastAuthHeader)
	require.Equal(t, "access-2", sess.GetAuthToken())
	require.Equal(t, "refresh-1", sess.GetRefreshToken())
}

func TestClient_RefreshRotatesRefreshToken(t *testing.T) {
	b := newTestBackend(t)
	b.nextAccess = "access-2"
	b.nextRefresh = "refresh-2"
	c, sess := newClient(t, b, "expired", "refresh-1")

	_, err := c.Clients.GetAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, "refresh-2", sess.GetRefreshToken())
}

func TestClient_RetryIsAttemptedOnlyOnce(t *testing.T) {
	b := newTestBackend(t)
	b.nextAccess = "access-2"
	b.alwaysReject = true
	c, _ := newClient(t, b, "expired", "refresh-1")

	_, err := c.Clients.GetAll(context.Background())
	require.Error(t, err)
	require.ErrorIs(t, err, errors.ErrUnauthenticated)
	require.Equal(t, http.StatusUnauthorized, api.StatusCode(err))

	require.EqualValues(t, 1, b.refreshCalls.Load())
	require.EqualValues(t, 2, b.clientCalls.Load())
}

func TestClient_RefreshFailureClearsSession(t *testing.T) {
	b := newTestBackend(t)
	b.refreshStatus = http.StatusUnauthorized
	c, sess := newClient(t, b, "expired", "refresh-1")

	_, err := c.Clients.GetAll(context.Background())
	require.Error(t, err)

	var httpErr *api.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, api.RouteClients, httpErr.Path)
	require.Contains(t, httpErr.Detail, "Given token not valid")

	require.EqualValues(t, 1, b.refreshCalls.Load())
	require.EqualValues(t, 1, b.clientCalls.Load())
	require.Empty(t, sess.GetAuthToken())
	require.Empty(t, sess.GetRefreshToken())
	require.Empty(t, c.BearerToken())
}

func TestClient_NoRefreshToken(t *testing.T) {
	b := newTestBackend(t)
	c, sess := newClient(t, b, "expired", "")

	_, err := c.Clients.GetAll(context.Background())
	require.ErrorIs(t, err, errors.ErrUnauthenticated)
	require.EqualValues(t, 0, b.refreshCalls.Load())
	require.False(t, sess.HasSession())
}

func TestClient_ConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	b := newTestBackend(t)
	b.nextAccess = "access-2"
	b.nextRefresh = "refresh-2"
	b.refreshDelay = 50 * time.Millisecond
	c, _ := newClient(t, b, "expired", "refresh-1")

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Clients.GetAll(context.Background())
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	require.EqualValues(t, 1, b.refreshCalls.Load())
	// workers scheduled after the refresh landed succeed on their first attempt
	require.LessOrEqual(t, b.clientCalls.Load(), int32(2*workers))
	require.Greater(t, b.clientCalls.Load(), int32(workers))
}

func TestClient_Login(t *testing.T) {
	b := newTestBackend(t)
	c, sess := newClient(t, b, "", "")

	t.Run("bad credentials", func(t *testing.T) {
		_, err := c.Login(context.Background(), "ada", "wrong")
		require.ErrorIs(t, err, errors.ErrUnauthenticated)
		require.EqualValues(t, 0, b.refreshCalls.Load())
		require.False(t, sess.HasSession())
	})

	t.Run("stores the pair", func(t *testing.T) {
		pair, err := c.Login(context.Background(), "ada", "password123")
		require.NoError(t, err)
		require.Equal(t, "access-1", pair.Access)
		require.Equal(t, "access-1", sess.GetAuthToken())
		require.Equal(t, "refresh-1", sess.GetRefreshToken())
		require.Equal(t, "access-1", c.BearerToken())
	})

	t.Run("logout", func(t *testing.T) {
		require.NoError(t, c.Logout())
		require.False(t, sess.HasSession())
		require.Empty(t, c.BearerToken())
	})
}

func TestClient_TransportFailure(t *testing.T) {
	sess, err := session.NewManager(sessionrepofake.NewFakeSessionRepo())
	require.NoError(t, err)
	c := api.New("http://127.0.0.1:1", sess, api.WithTimeout(time.Second))

	_, err = c.Clients.GetAll(context.Background())
	require.ErrorIs(t, err, errors.ErrTransport)
	require.Zero(t, api.StatusCode(err))
}

func TestClient_RateLimit(t *testing.T) {
	b := newTestBackend(t)
	c, _ := newClient(t, b, "access-1", "refresh-1", api.WithRateLimit(0.001, 1))

	_, err := c.Clients.GetAll(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Clients.GetAll(ctx)
	require.ErrorIs(t, err, errors.ErrTransport)
	require.EqualValues(t, 1, b.clientCalls.Load())
}

func TestClient_Metrics(t *testing.T) {
	b := newTestBackend(t)
	b.nextAccess = "access-2"
	reg := prometheus.NewRegistry()
	metrics := api.NewMetrics(reg)
	c, _ := newClient(t, b, "expired", "refresh-1", api.WithMetrics(metrics))

	_, err := c.Clients.GetAll(context.Background())
	require.NoError(t, err)

	// 401, refresh, retried 200
	require.Equal(t, 3, testutil.CollectAndCount(reg, "bizdesk_api_requests_total"))
	require.Equal(t, 1, testutil.CollectAndCount(reg, "bizdesk_api_token_refreshes_total"))
}
