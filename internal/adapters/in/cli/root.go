// Package cli implements the CLI adapter for proxy-manager.
// This package provides Cobra commands that delegate to the proxy service.
package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/bnema/proxy-manager/internal/adapters/out/docker"
	"github.com/bnema/proxy-manager/internal/adapters/out/dockercli"
	"github.com/bnema/proxy-manager/internal/adapters/out/filesystem"
	"github.com/bnema/proxy-manager/internal/adapters/out/telemetry"
	"github.com/bnema/proxy-manager/internal/boundaries/out"
	"github.com/bnema/proxy-manager/internal/config"
	"github.com/bnema/proxy-manager/internal/nginx"
	"github.com/bnema/proxy-manager/internal/usecase/proxy"
	"github.com/bnema/proxy-manager/pkg/logger"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Command annotations read by the setup hook.
const (
	annotationSkipSetup = "proxy-manager/skip-setup"
	annotationMetrics   = "proxy-manager/metrics"
)

// ConfirmFunc asks the user a yes/no question.
type ConfirmFunc func(message string) (bool, error)

// Option customizes the root command. Tests use it to swap the engine and prompts.
type Option func(*app)

// WithRuntime replaces the engine adapter chosen from the settings.
func WithRuntime(rt out.ContainerRuntime) Option {
	return func(a *app) {
		a.runtime = rt
		a.injected = true
	}
}

// WithConfirm replaces the interactive confirmation prompt.
func WithConfirm(fn ConfirmFunc) Option {
	return func(a *app) {
		a.confirm = fn
	}
}

// app carries the global flags and the dependencies built from them.
type app struct {
	home        string
	runtimeName string
	logLevel    string

	settings *config.Settings
	log      *log.Logger
	runtime  out.ContainerRuntime
	injected bool
	closers  []func() error
	metrics  *telemetry.Metrics
	service  *proxy.Service
	confirm  ConfirmFunc
}

// NewRootCmd creates the root command for the proxy-manager CLI.
func NewRootCmd(opts ...Option) *cobra.Command {
	a := &app{confirm: surveyConfirm}
	for _, opt := range opts {
		opt(a)
	}

	rootCmd := &cobra.Command{
		Use:   "proxy-manager",
		Short: "Route host ports to Docker containers through an nginx proxy",
		Long: `proxy-manager keeps a single nginx container in sync with a declared
set of routes. Each route exposes a host port and forwards it to a container
reachable on a Docker network.

Containers and routes are stored in config.json under the home directory;
every change regenerates nginx.conf, rebuilds the proxy image and restarts
the proxy container.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[annotationSkipSetup] == "true" {
				return nil
			}
			return a.setup(cmd)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.home, "home", "", "Directory holding settings.yml, config.json and the build context (default $PROXY_MANAGER_HOME or ~/.config/proxy-manager)")
	pf.StringVar(&a.runtimeName, "runtime", "", "Container engine adapter: docker or docker-cli")
	pf.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	// Declared state
	rootCmd.AddCommand(newAddCmd(a))
	rootCmd.AddCommand(newRemoveCmd(a))
	rootCmd.AddCommand(newSwitchCmd(a))
	rootCmd.AddCommand(newStopPortCmd(a))

	// Proxy lifecycle
	rootCmd.AddCommand(newBuildCmd(a))
	rootCmd.AddCommand(newStartCmd(a))
	rootCmd.AddCommand(newStopCmd(a))
	rootCmd.AddCommand(newReloadCmd(a))

	// Inspection
	rootCmd.AddCommand(newStatusCmd(a))
	rootCmd.AddCommand(newPreviewCmd(a))
	rootCmd.AddCommand(newNetworksCmd(a))
	rootCmd.AddCommand(newContainersCmd(a))
	rootCmd.AddCommand(newLogsCmd(a))

	// Long-running frontends
	rootCmd.AddCommand(newTUICmd(a))
	rootCmd.AddCommand(newServeCmd(a))

	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// setup loads the settings, applies the global flags and wires the service.
func (a *app) setup(cmd *cobra.Command) error {
	settings, err := config.Load(a.home)
	if err != nil {
		return err
	}
	if a.runtimeName != "" {
		settings.Runtime = a.runtimeName
	}
	if a.logLevel != "" {
		settings.LogLevel = a.logLevel
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	a.settings = settings

	a.log = logger.New(cmd.ErrOrStderr(), settings.LogLevel)
	if env := os.Getenv(logger.EnvLogLevel); env != "" && a.logLevel == "" {
		a.log.SetLevel(logger.ParseLevel(env))
	}

	if !a.injected {
		rt, err := a.newRuntime()
		if err != nil {
			return err
		}
		a.runtime = rt
	}

	var recorder out.OperationRecorder
	if cmd.Annotations[annotationMetrics] == "true" {
		a.metrics = telemetry.NewMetrics()
		recorder = a.metrics
	}

	a.service = proxy.NewService(
		filesystem.NewConfigStore(settings.ConfigFile, a.log),
		filesystem.NewBuildContext(settings.BuildDir, a.log),
		a.runtime,
		nginx.NewGenerator(settings.NginxImage),
		recorder,
		a.log,
		proxy.Config{
			SettleMode:    settings.SettleMode,
			SettleDelay:   settings.SettleDelay,
			SettleTimeout: settings.SettleTimeout,
		},
	)

	a.log.Debug("cli ready",
		"home", settings.Home,
		"config", settings.ConfigFile,
		"runtime", settings.Runtime,
	)
	return nil
}

func (a *app) newRuntime() (out.ContainerRuntime, error) {
	switch a.settings.Runtime {
	case config.RuntimeDockerCLI:
		return dockercli.NewRuntime(a.settings.DockerBinary, dockercli.ExecCommander{}, a.log), nil
	default:
		rt, err := docker.NewRuntime(a.settings.DockerHost, a.log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rt.Close)
		return rt, nil
	}
}

func (a *app) close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Execute runs the CLI and returns the process exit code. SIGINT and SIGTERM
// cancel the running command.
func Execute(version, commit, date string) int {
	SetVersionInfo(version, commit, date)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{}
	root := NewRootCmd(func(x *app) { a = x })
	err := root.ExecuteContext(ctx)
	if cerr := a.close(); cerr != nil {
		logger.GetLogger().Warn("failed to release engine client", "error", cerr)
	}
	if err != nil {
		logger.GetLogger().Error(err.Error())
		return 1
	}
	return 0
}

// SetVersionInfo sets the version information for the CLI.
func SetVersionInfo(version, commit, date string) {
	if version != "" {
		Version = version
	}
	if commit != "" {
		Commit = commit
	}
	if date != "" {
		BuildDate = date
	}
}
