package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/CTAG07/fieldfmt/pkg/templating"
	"github.com/natefinch/atomic"
)

// ServerConfig holds the configuration for the API server.
type ServerConfig struct {
	ApiAddr      string `json:"api_addr"`
	LogLevel     string `json:"log_level"`
	DataDir      string `json:"data_dir"`
	DatabasePath string `json:"database_path"`
}

// Config is the top-level configuration struct that aggregates all other configs.
type Config struct {
	Server    *ServerConfig              `json:"server_config"`
	Templates *templating.TemplateConfig `json:"template_config"`
}

// DefaultServerConfig creates a server configuration with default values.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		ApiAddr:      ":7380",
		LogLevel:     "info",
		DataDir:      "./data",
		DatabasePath: "./data/fieldfmt.db?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)",
	}
}

// DefaultConfig returns a full configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Templates: templating.DefaultConfig(),
	}
}

// validate checks that every section is present and that the template
// settings resolve to a usable formatter.
func (c *Config) validate() error {
	if c.Server == nil || c.Templates == nil {
		return errors.New("config must contain server_config and template_config")
	}
	if _, err := c.Templates.FormatterOptions(); err != nil {
		return err
	}
	return nil
}

// LoadConfig reads the configuration from a JSON file at the given path.
// If the file doesn't exist, it creates one with default values.
func LoadConfig(path string, logger *slog.Logger) (*Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err = writeConfig(path, config); err != nil {
				// The server can still run with defaults.
				logger.Warn("Failed to write default config file", "path", path, "error", err)
			} else {
				logger.Info("Wrote default config file", "path", path)
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err = json.Unmarshal(file, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err = config.validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return config, nil
}

func writeConfig(path string, config *Config) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err = os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ConfigManager handles thread-safe access to the configuration and keeps
// the template manager in step with it.
type ConfigManager struct {
	config     *Config
	mu         sync.RWMutex
	configPath string
	logger     *slog.Logger
	tm         *templating.TemplateManager
}

// NewConfigManager loads the config and initializes the manager.
func NewConfigManager(path string, logger *slog.Logger) (*ConfigManager, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	cfg, err := LoadConfig(path, logger)
	if err != nil {
		return nil, err
	}
	return &ConfigManager{
		config:     cfg,
		configPath: path,
		logger:     logger,
	}, nil
}

// SetTemplateManager registers the template manager to receive config updates.
func (cm *ConfigManager) SetTemplateManager(tm *templating.TemplateManager) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.tm = tm
	if tm == nil {
		return nil
	}
	tmplConfig := *cm.config.Templates
	return tm.SetConfig(&tmplConfig)
}

// SetLogger replaces the logger used for config events.
func (cm *ConfigManager) SetLogger(logger *slog.Logger) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.logger = logger
}

// Get returns a copy of the current configuration. The sections are copied
// too, so callers may modify the result freely.
func (cm *ConfigManager) Get() Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	server := *cm.config.Server
	templates := *cm.config.Templates
	return Config{Server: &server, Templates: &templates}
}

// Update validates and applies a new configuration, then saves it to disk.
// A template configuration the manager rejects leaves everything unchanged.
func (cm *ConfigManager) Update(newConfig Config) error {
	if err := newConfig.validate(); err != nil {
		return err
	}

	server := *newConfig.Server
	templates := *newConfig.Templates

	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.tm != nil {
		oldTmplConfig := *cm.config.Templates
		tmplConfig := templates
		if err := cm.tm.SetConfig(&tmplConfig); err != nil {
			return fmt.Errorf("template configuration rejected: %w", err)
		}
		if err := cm.tm.Refresh(); err != nil {
			_ = cm.tm.SetConfig(&oldTmplConfig)
			_ = cm.tm.Refresh()
			return fmt.Errorf("template configuration rejected: %w", err)
		}
	}

	cm.config = &Config{Server: &server, Templates: &templates}

	if err := writeConfig(cm.configPath, cm.config); err != nil {
		return err
	}
	cm.logger.Info("Configuration updated", "path", cm.configPath)
	return nil
}
