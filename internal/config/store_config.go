package config

import (
	"os"
	"path/filepath"
	"time"
)

const (
	sessionFileVar       = "SESSION_FILE"
	sessionPassphraseVar = "SESSION_PASSPHRASE"
	staleTimeVar         = "STALE_TIME"

	DefaultStaleTime = 5 * time.Minute
)

type Store struct{}

var _ StoreConfig = Store{}

// GetSessionFile returns where the token pair is persisted between runs
func (Store) GetSessionFile() string {
	return GetEnv(sessionFileVar, defaultSessionFile())
}

func (Store) GetSessionPassphrase() string {
	return GetEnv(sessionPassphraseVar, "")
}

func (Store) GetStaleTime() time.Duration {
	return GetDuration(staleTimeVar, DefaultStaleTime)
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", ".bizdesk", "session.json")
	}
	return filepath.Join(dir, "bizdesk", "session.json")
}
