// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"sync"
)

// Global cached configuration shared by the CLI commands. Load fills the
// cache; Get reads it without touching the filesystem.
var (
	globalMu     sync.RWMutex
	cachedConfig *Config

	// configFilePathOverride forces loading from a specific file
	// (set via the --config flag).
	configFilePathOverride string
)

// SetConfigFilePathOverride forces the next Load to read the given file
// instead of searching the config directory.
func SetConfigFilePathOverride(path string) {
	globalMu.Lock()
	defer globalMu.Unlock()
	configFilePathOverride = path
	cachedConfig = nil
}

// Load reads the configuration from disk and caches it for Get.
// On error the previous cache is left untouched and defaults still apply
// via Get.
func Load() (*Config, error) {
	globalMu.RLock()
	override := configFilePathOverride
	globalMu.RUnlock()

	cfg, _, err := loadWithOptions(context.Background(), LoadOptions{
		ConfigFilePath: override,
	})
	if err != nil {
		return nil, err
	}

	globalMu.Lock()
	cachedConfig = cfg
	globalMu.Unlock()

	return cfg, nil
}

// Get returns the cached configuration, or the defaults if Load has not
// run (or failed).
func Get() *Config {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if cachedConfig != nil {
		return cachedConfig
	}
	return DefaultConfig()
}

// ResetGlobal clears the cached configuration and the file path override.
// Call from test cleanup.
func ResetGlobal() {
	globalMu.Lock()
	defer globalMu.Unlock()
	cachedConfig = nil
	configFilePathOverride = ""
}
