package session

import (
	"fmt"
	"sync"

	"github.com/jrsteele09/bizdesk/internal/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Listener receives the access token whenever it changes. An empty token means the
// bearer credential must be removed. Listeners are called with the Manager locked and
// must not call back into it.
type Listener func(accessToken string)

// Manager owns the access/refresh token pair. It is the only writer of the durable
// session keys and pushes every access token change to its listeners so that request
// defaults are reconfigured in the same step as the write.
type Manager struct {
	repo      Repo
	mu        sync.RWMutex
	access    string
	refresh   string
	listeners []Listener
}

// NewManager loads any stored tokens from the repo
func NewManager(repo Repo) (*Manager, error) {
	m := &Manager{repo: repo}

	access, err := load(repo, AccessTokenKey)
	if err != nil {
		return nil, err
	}
	refresh, err := load(repo, RefreshTokenKey)
	if err != nil {
		return nil, err
	}
	m.access = access
	m.refresh = refresh

	log.Debug().Bool("resumed", access != "").Msg("session loaded")
	return m, nil
}

func load(repo Repo, key string) (string, error) {
	v, err := repo.Get(key)
	if errors.Is(err, errors.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("[session load] failed to read %s: %w", key, err)
	}
	return v, nil
}

// OnChange registers a listener and immediately applies the current access token to
// it, so a stored session is resumed without an explicit login.
func (m *Manager) OnChange(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
	l(m.access)
}

// SetAuthToken persists the access token, or removes it when token is empty
func (m *Manager) SetAuthToken(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if token == "" {
		if err := m.repo.Delete(AccessTokenKey); err != nil {
			return fmt.Errorf("[session SetAuthToken] failed to remove access token: %w", err)
		}
	} else if err := m.repo.Set(AccessTokenKey, token); err != nil {
		return fmt.Errorf("[session SetAuthToken] failed to store access token: %w", err)
	}

	m.access = token
	m.notify()
	return nil
}

// Reapply pushes the current access token to every listener again without touching
// storage. The read and the notification happen under one lock, so a concurrent
// Clear or refresh is never undone.
func (m *Manager) Reapply() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	m.notify()
	return m.access
}

// GetAuthToken returns the current access token or an empty string
func (m *Manager) GetAuthToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.access
}

// SetRefreshToken persists the refresh token, or removes it when token is empty
func (m *Manager) SetRefreshToken(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if token == "" {
		if err := m.repo.Delete(RefreshTokenKey); err != nil {
			return fmt.Errorf("[session SetRefreshToken] failed to remove refresh token: %w", err)
		}
	} else if err := m.repo.Set(RefreshTokenKey, token); err != nil {
		return fmt.Errorf("[session SetRefreshToken] failed to store refresh token: %w", err)
	}

	m.refresh = token
	return nil
}

// GetRefreshToken returns the current refresh token or an empty string
func (m *Manager) GetRefreshToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.refresh
}

// SetTokens stores a freshly issued pair. An empty refresh keeps the previous one.
func (m *Manager) SetTokens(access, refresh string) error {
	if err := m.SetAuthToken(access); err != nil {
		return err
	}
	if refresh == "" {
		return nil
	}
	return m.SetRefreshToken(refresh)
}

// Clear removes both tokens from memory and storage
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.repo.Delete(AccessTokenKey, RefreshTokenKey); err != nil {
		return fmt.Errorf("[session Clear] failed to remove tokens: %w", err)
	}
	m.access = ""
	m.refresh = ""
	m.notify()
	return nil
}

// HasSession reports whether an access token is present
func (m *Manager) HasSession() bool {
	return m.GetAuthToken() != ""
}

// Token returns the pair as an oauth2 token, or nil when there is no session
func (m *Manager) Token() *oauth2.Token {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.access == "" {
		return nil
	}
	return &oauth2.Token{
		AccessToken:  m.access,
		TokenType:    "Bearer",
		RefreshToken: m.refresh,
		Expiry:       ExpiryOf(m.access),
	}
}

func (m *Manager) notify() {
	for _, l := range m.listeners {
		l(m.access)
	}
}
