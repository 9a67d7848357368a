// Package config loads the application settings: where the declared state and
// build context live, which container engine adapter to use and how the
// orchestrator settles between stop and start.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bnema/proxy-manager/internal/domain"
)

const (
	// SettingsFile is read from the home directory when present.
	SettingsFile = "settings.yml"

	RuntimeDocker    = "docker"
	RuntimeDockerCLI = "docker-cli"

	SettleFixed = "fixed"
	SettlePoll  = "poll"
)

// Environment overrides.
const (
	EnvHome         = "PROXY_MANAGER_HOME"
	EnvRuntime      = "PROXY_MANAGER_RUNTIME"
	EnvDockerBinary = "PROXY_MANAGER_DOCKER_BINARY"
	EnvNginxImage   = "PROXY_MANAGER_NGINX_IMAGE"
	EnvSettleMode   = "PROXY_MANAGER_SETTLE_MODE"
	EnvListen       = "PROXY_MANAGER_LISTEN"
	EnvDockerHost   = "DOCKER_HOST"
)

var (
	validRuntimes    = []string{RuntimeDocker, RuntimeDockerCLI}
	validSettleModes = []string{SettleFixed, SettlePoll}
)

// Settings holds the application settings.
type Settings struct {
	Home          string        `yaml:"-"`
	ConfigFile    string        `yaml:"config_file"`
	BuildDir      string        `yaml:"build_dir"`
	Runtime       string        `yaml:"runtime"`
	DockerHost    string        `yaml:"docker_host"`
	DockerBinary  string        `yaml:"docker_binary"`
	NginxImage    string        `yaml:"nginx_image"`
	SettleMode    string        `yaml:"settle_mode"`
	SettleDelay   time.Duration `yaml:"settle_delay"`
	SettleTimeout time.Duration `yaml:"settle_timeout"`
	LogLevel      string        `yaml:"log_level"`
	Listen        string        `yaml:"listen"`
}

// Default returns the settings used when nothing is configured.
func Default(home string) *Settings {
	return &Settings{
		Home:          home,
		ConfigFile:    filepath.Join(home, "config.json"),
		BuildDir:      filepath.Join(home, "build"),
		Runtime:       RuntimeDocker,
		DockerBinary:  "docker",
		NginxImage:    "nginx:alpine",
		SettleMode:    SettleFixed,
		SettleDelay:   time.Second,
		SettleTimeout: 5 * time.Second,
		LogLevel:      "info",
		Listen:        "127.0.0.1:7080",
	}
}

// DefaultHome returns $PROXY_MANAGER_HOME or ~/.config/proxy-manager.
func DefaultHome() string {
	if home := os.Getenv(EnvHome); home != "" {
		return home
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "proxy-manager")
	}
	if dir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(dir, ".config", "proxy-manager")
	}
	return ".proxy-manager"
}

// Load reads settings.yml from home and applies environment overrides. The
// result is not validated: callers apply their own overrides first and then
// call Validate. An empty home resolves to DefaultHome. A missing settings
// file is not an error.
func Load(home string) (*Settings, error) {
	if home == "" {
		home = DefaultHome()
	}
	s := Default(home)

	path := filepath.Join(home, SettingsFile)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrConfigParse, path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigRead, err)
	}

	s.applyEnv()
	s.resolvePaths()
	return s, nil
}

func (s *Settings) applyEnv() {
	overrides := []struct {
		env   string
		field *string
	}{
		{EnvRuntime, &s.Runtime},
		{EnvDockerBinary, &s.DockerBinary},
		{EnvNginxImage, &s.NginxImage},
		{EnvSettleMode, &s.SettleMode},
		{EnvListen, &s.Listen},
		{EnvDockerHost, &s.DockerHost},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.field = v
		}
	}
}

// resolvePaths anchors relative or empty paths to the home directory.
func (s *Settings) resolvePaths() {
	defaults := Default(s.Home)
	if s.ConfigFile == "" {
		s.ConfigFile = defaults.ConfigFile
	} else if !filepath.IsAbs(s.ConfigFile) {
		s.ConfigFile = filepath.Join(s.Home, s.ConfigFile)
	}
	if s.BuildDir == "" {
		s.BuildDir = defaults.BuildDir
	} else if !filepath.IsAbs(s.BuildDir) {
		s.BuildDir = filepath.Join(s.Home, s.BuildDir)
	}
}

// Validate rejects unknown runtimes and settle modes and non-positive durations.
func (s *Settings) Validate() error {
	if !slices.Contains(validRuntimes, s.Runtime) {
		return fmt.Errorf("%w: runtime must be one of: %s (got %q)",
			domain.ErrConfig, strings.Join(validRuntimes, ", "), s.Runtime)
	}
	if !slices.Contains(validSettleModes, s.SettleMode) {
		return fmt.Errorf("%w: settle_mode must be one of: %s (got %q)",
			domain.ErrConfig, strings.Join(validSettleModes, ", "), s.SettleMode)
	}
	if s.SettleDelay < 0 {
		return fmt.Errorf("%w: settle_delay must not be negative", domain.ErrConfig)
	}
	if s.SettleTimeout <= 0 {
		return fmt.Errorf("%w: settle_timeout must be positive", domain.ErrConfig)
	}
	if s.NginxImage == "" {
		return fmt.Errorf("%w: nginx_image must not be empty", domain.ErrConfig)
	}
	return nil
}
