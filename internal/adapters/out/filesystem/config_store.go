// Package filesystem implements the declared-state store and the build
// context writer on the local filesystem.
package filesystem

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/bnema/proxy-manager/internal/boundaries/out"
	"github.com/bnema/proxy-manager/internal/domain"
)

// ConfigStore implements out.ConfigStore as a pretty-printed JSON file.
type ConfigStore struct {
	path string
	log  *log.Logger
}

var _ out.ConfigStore = (*ConfigStore)(nil)

// NewConfigStore creates a store for the JSON file at path.
func NewConfigStore(path string, logger *log.Logger) *ConfigStore {
	return &ConfigStore{
		path: path,
		log:  logger.With("adapter", "filesystem"),
	}
}

// Load reads the declared state. The parent directory is created when missing
// and an absent file yields the defaults.
func (s *ConfigStore) Load() (*domain.Config, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
		return nil, fmt.Errorf("%w: create config directory: %v", domain.ErrConfigRead, err)
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.log.Debug("config file not found, using defaults", "path", s.path)
			return domain.NewConfig(), nil
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigRead, err)
	}

	cfg := &domain.Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrConfigParse, s.path, err)
	}
	if cfg.ApplyDefaults() {
		s.log.Debug("applied defaults to missing config fields", "path", s.path)
	}

	return cfg, nil
}

// Save overwrites the file with the indented JSON encoding of cfg.
func (s *ConfigStore) Save(cfg *domain.Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode: %v", domain.ErrConfigWrite, err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
		return fmt.Errorf("%w: create config directory: %v", domain.ErrConfigWrite, err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrConfigWrite, err)
	}

	s.log.Debug("config saved", "path", s.path, "containers", len(cfg.Containers), "routes", len(cfg.Routes))
	return nil
}
