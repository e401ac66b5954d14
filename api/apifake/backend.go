// Package apifake is an in-memory stand-in for the business backend, served over
// httptest. Records are kept as decoded JSON objects so any resource shape round-trips.
package apifake

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/jrsteele09/bizdesk/api"
)

const (
	DefaultUsername = "ada"
	DefaultPassword = "password123"
)

type record = map[string]any

type collection struct {
	nextID  int64
	records map[int64]record
}

type failure struct {
	status int
	body   string
}

type Backend struct {
	Server *httptest.Server

	lock        sync.RWMutex
	collections map[string]*collection
	failures    map[string]failure
	calls       map[string]int
	accessToken string
	paginate    bool
	now         func() time.Time
}

// NewBackend starts a backend accepting DefaultUsername/DefaultPassword. Callers
// close it with Close.
func NewBackend() *Backend {
	b := &Backend{
		collections: map[string]*collection{
			api.RouteClients:    {nextID: 1, records: make(map[int64]record)},
			api.RouteQuotations: {nextID: 1, records: make(map[int64]record)},
			api.RouteReceipts:   {nextID: 1, records: make(map[int64]record)},
		},
		failures:    make(map[string]failure),
		calls:       make(map[string]int),
		accessToken: "access-1",
		now:         time.Now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+api.RouteAuthToken, b.loginHandler)
	mux.HandleFunc("POST "+api.RouteAuthRegister, b.registerHandler)
	mux.HandleFunc("POST "+api.RouteAuthRefresh, b.refreshHandler)
	for route := range b.collections {
		mux.HandleFunc("GET "+route, b.guard(route, b.listHandler(route)))
		mux.HandleFunc("POST "+route, b.guard(route, b.createHandler(route)))
		mux.HandleFunc("GET "+route+"{id}/", b.guard(route, b.getHandler(route)))
		mux.HandleFunc("PUT "+route+"{id}/", b.guard(route, b.updateHandler(route)))
		mux.HandleFunc("DELETE "+route+"{id}/", b.guard(route, b.deleteHandler(route)))
		if route != api.RouteClients {
			mux.HandleFunc("POST "+route+"{id}/send_email/", b.guard(route, b.emailHandler(route)))
		}
	}
	b.Server = httptest.NewServer(mux)
	return b
}

func (b *Backend) URL() string {
	return b.Server.URL
}

func (b *Backend) Close() {
	b.Server.Close()
}

// AccessToken is the token resource requests must carry
func (b *Backend) AccessToken() string {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return b.accessToken
}

// Paginate switches list responses to the {count, next, previous, results} envelope
func (b *Backend) Paginate(on bool) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.paginate = on
}

// Fail makes every request on route answer status with body until Recover is called
func (b *Backend) Fail(route string, status int, body string) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.failures[route] = failure{status: status, body: body}
}

func (b *Backend) Recover(route string) {
	b.lock.Lock()
	defer b.lock.Unlock()
	delete(b.failures, route)
}

// Calls returns how many authenticated requests reached route
func (b *Backend) Calls(route string) int {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return b.calls[route]
}

// Seed stores records on route as-is, keeping their ids
func (b *Backend) Seed(route string, records ...any) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	c := b.collections[route]
	for _, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			return err
		}
		var rec record
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		id := int64(toFloat(rec["id"]))
		if id == 0 {
			id = c.nextID
			rec["id"] = id
		}
		c.records[id] = rec
		c.nextID = max(c.nextID, id+1)
	}
	return nil
}

func (b *Backend) guard(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.lock.Lock()
		token := b.accessToken
		fail, failing := b.failures[route]
		b.lock.Unlock()

		if r.Header.Get("Authorization") != "Bearer "+token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Given token not valid for any token type"})
			return
		}

		b.lock.Lock()
		b.calls[route]++
		b.lock.Unlock()

		if failing {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(fail.status)
			_, _ = w.Write([]byte(fail.body))
			return
		}
		next(w, r)
	}
}

func (b *Backend) loginHandler(w http.ResponseWriter, r *http.Request) {
	var creds api.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}
	if creds.Username != DefaultUsername || creds.Password != DefaultPassword {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "No active account found with the given credentials"})
		return
	}
	writeJSON(w, http.StatusOK, api.TokenPair{Access: b.AccessToken(), Refresh: "refresh-1"})
}

func (b *Backend) registerHandler(w http.ResponseWriter, r *http.Request) {
	var reg api.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}
	if reg.Username == DefaultUsername {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Registration failed", "details": []string{"Username already exists"}})
		return
	}
	writeJSON(w, http.StatusCreated, api.RegisterResponse{Message: "User registered successfully", UserID: 2, Username: reg.Username})
}

func (b *Backend) refreshHandler(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body["refresh"] != "refresh-1" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is invalid or expired", "code": "token_not_valid"})
		return
	}
	writeJSON(w, http.StatusOK, api.TokenPair{Access: b.AccessToken()})
}

func (b *Backend) listHandler(route string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.lock.RLock()
		c := b.collections[route]
		ids := make([]int64, 0, len(c.records))
		for id := range c.records {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		results := make([]record, 0, len(ids))
		for _, id := range ids {
			results = append(results, c.records[id])
		}
		paginate := b.paginate
		b.lock.RUnlock()

		if paginate {
			writeJSON(w, http.StatusOK, map[string]any{"count": len(results), "next": nil, "previous": nil, "results": results})
			return
		}
		writeJSON(w, http.StatusOK, results)
	}
}

func (b *Backend) createHandler(route string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rec record
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
			return
		}

		b.lock.Lock()
		c := b.collections[route]
		id := c.nextID
		c.nextID++
		now := b.now().UTC().Format(time.RFC3339)
		rec["id"] = id
		rec["created_at"] = now
		rec["updated_at"] = now
		c.records[id] = rec
		b.lock.Unlock()

		writeJSON(w, http.StatusCreated, rec)
	}
}

func (b *Backend) getHandler(route string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, ok := b.lookup(route, r)
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "No record matches the given query."})
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func (b *Backend) updateHandler(route string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		existing, ok := b.lookup(route, r)
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "No record matches the given query."})
			return
		}
		var rec record
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
			return
		}

		b.lock.Lock()
		rec["id"] = existing["id"]
		rec["created_at"] = existing["created_at"]
		rec["updated_at"] = b.now().UTC().Format(time.RFC3339)
		b.collections[route].records[int64(toFloat(existing["id"]))] = rec
		b.lock.Unlock()

		writeJSON(w, http.StatusOK, rec)
	}
}

func (b *Backend) deleteHandler(route string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, ok := b.lookup(route, r)
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "No record matches the given query."})
			return
		}
		b.lock.Lock()
		delete(b.collections[route].records, int64(toFloat(rec["id"])))
		b.lock.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}
}

func (b *Backend) emailHandler(route string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, ok := b.lookup(route, r)
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "No record matches the given query."})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("Email sent to %v", rec["client_email"])})
	}
}

func (b *Backend) lookup(route string, r *http.Request) (record, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return nil, false
	}
	b.lock.RLock()
	defer b.lock.RUnlock()
	rec, ok := b.collections[route].records[id]
	return rec, ok
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	}
	return 0
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
