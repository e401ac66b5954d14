package config

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const ConfigFileVar = "BIZDESK_CONFIG"

var (
	fileValues   map[string]string
	fileValuesMu sync.RWMutex
)

// LoadFile reads a flat YAML document of KEY: value pairs. Keys match the environment
// variable names case-insensitively; environment variables always take precedence.
func LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	raw := make(map[string]any)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	values := make(map[string]string, len(raw))
	for k, v := range raw {
		if v == nil {
			continue
		}
		values[strings.ToUpper(k)] = fmt.Sprint(v)
	}

	fileValuesMu.Lock()
	fileValues = values
	fileValuesMu.Unlock()
	return nil
}

// ResetFile discards values loaded by LoadFile
func ResetFile() {
	fileValuesMu.Lock()
	fileValues = nil
	fileValuesMu.Unlock()
}

func fileValue(key string) (string, bool) {
	fileValuesMu.RLock()
	defer fileValuesMu.RUnlock()
	v, ok := fileValues[strings.ToUpper(key)]
	return v, ok
}
