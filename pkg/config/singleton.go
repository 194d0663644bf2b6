package config

import (
	"fmt"
	"sync"
)

var (
	// globalConfig holds the process-wide configuration.
	globalConfig *Config

	// configMutex protects globalConfig.
	configMutex sync.RWMutex

	// initOnce guards Initialize.
	initOnce sync.Once
)

// Initialize loads configuration from path with FORMARTER_ environment
// overrides and installs it as the process-wide configuration. Only the
// first call has any effect. An empty path uses defaults plus environment.
func Initialize(path string) error {
	var initErr error

	initOnce.Do(func() {
		cfg, err := LoadConfigWithEnvOverrides(path)
		if err != nil {
			initErr = err
			return
		}
		SetConfig(cfg)
	})

	return initErr
}

// GetConfig returns the process-wide configuration, or nil before a
// successful Initialize. Commands and servers should receive a *Config
// explicitly; the global exists for code reached from cobra hooks.
func GetConfig() *Config {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return globalConfig
}

// SetConfig replaces the process-wide configuration. Intended for tests.
func SetConfig(cfg *Config) {
	configMutex.Lock()
	defer configMutex.Unlock()
	globalConfig = cfg
}

// ReloadConfig reloads configuration from path. The current configuration
// is kept when loading or validation fails.
func ReloadConfig(path string) error {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return fmt.Errorf("failed to reload configuration: %w", err)
	}
	SetConfig(cfg)
	return nil
}

// MustGetConfig returns the process-wide configuration and panics if it
// has not been initialized.
func MustGetConfig() *Config {
	cfg := GetConfig()
	if cfg == nil {
		panic("configuration not initialized: call Initialize first")
	}
	return cfg
}
