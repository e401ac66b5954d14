package filerepo

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jrsteele09/bizdesk/internal/errors"
	"github.com/jrsteele09/bizdesk/session"
)

var _ session.Repo = (*Repo)(nil)

// Repo keeps the session keys in a single JSON file. Every write replaces the file
// atomically, so a multi-key Delete is one write.
type Repo struct {
	path       string
	passphrase string
	mu         sync.Mutex
}

type Option func(*Repo)

// WithPassphrase seals the file contents with a key derived from passphrase
func WithPassphrase(passphrase string) Option {
	return func(r *Repo) {
		r.passphrase = passphrase
	}
}

func New(path string, options ...Option) *Repo {
	r := &Repo{path: path}
	for _, opt := range options {
		opt(r)
	}
	return r
}

func (r *Repo) Get(key string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	values, err := r.read()
	if err != nil {
		return "", err
	}
	v, ok := values[key]
	if !ok {
		return "", errors.ErrNotFound
	}
	return v, nil
}

func (r *Repo) Set(key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	values, err := r.read()
	if err != nil {
		return err
	}
	values[key] = value
	return r.write(values)
}

func (r *Repo) Delete(keys ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	values, err := r.read()
	if err != nil {
		return err
	}
	for _, k := range keys {
		delete(values, k)
	}
	return r.write(values)
}

func (r *Repo) read() (map[string]string, error) {
	values := make(map[string]string)

	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("[filerepo read] %w", err)
	}
	if len(data) == 0 {
		return values, nil
	}

	if r.passphrase != "" {
		if data, err = open(data, r.passphrase); err != nil {
			return nil, fmt.Errorf("[filerepo read] %w", err)
		}
	}

	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("[filerepo read] corrupt session file: %w", err)
	}
	return values, nil
}

func (r *Repo) write(values map[string]string) error {
	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("[filerepo write] %w", err)
	}

	if r.passphrase != "" {
		if data, err = seal(data, r.passphrase); err != nil {
			return fmt.Errorf("[filerepo write] %w", err)
		}
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("[filerepo write] %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("[filerepo write] %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("[filerepo write] %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("[filerepo write] %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return fmt.Errorf("[filerepo write] %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("[filerepo write] %w", err)
	}
	return nil
}
