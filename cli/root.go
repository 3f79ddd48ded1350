// Package cli implements the mais-person command line client.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/sul-dlss/mais-person-client/affiliations"
	"github.com/sul-dlss/mais-person-client/config"
	"github.com/sul-dlss/mais-person-client/logging"
	"github.com/sul-dlss/mais-person-client/mais"
	"github.com/sul-dlss/mais-person-client/metrics"
	"github.com/sul-dlss/mais-person-client/person"
)

// ErrNotFound is returned by single-person commands when MaIS answers 404.
var ErrNotFound = errors.New("not found")

// Client is the part of *mais.Client the commands use.
type Client interface {
	FetchUser(ctx context.Context, sunetid string, tags ...string) (*person.Document, error)
	FetchUserXML(ctx context.Context, sunetid string, tags ...string) (string, bool, error)
	FetchUserAffiliations(ctx context.Context, sunetid string) (*affiliations.Document, error)
	FetchUserAffiliationsXML(ctx context.Context, sunetid string) (string, bool, error)
}

// App carries the dependencies shared by every command.
type App struct {
	Out io.Writer
	Err io.Writer

	Registry *prometheus.Registry
	// NewClient builds the MaIS client once configuration is loaded.
	NewClient func(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (Client, error)
	// NewSheetsWriter is used by roster --sheets.
	NewSheetsWriter SheetsWriterFactory

	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	client  Client
}

// NewApp returns an App writing to stdout and stderr and talking to MaIS.
func NewApp() *App {
	return &App{
		Out:             os.Stdout,
		Err:             os.Stderr,
		Registry:        prometheus.NewRegistry(),
		NewClient:       newMAISClient,
		NewSheetsWriter: newGoogleSheetsWriter,
	}
}

func newMAISClient(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (Client, error) {
	return mais.NewClient(cfg.MAISConfig(logger, m))
}

type rootOptions struct {
	configPath string
	logLevel   string
}

// NewRootCmd builds the command tree.
func NewRootCmd(app *App) *cobra.Command {
	var opts rootOptions

	cmd := &cobra.Command{
		Use:           "mais-person",
		Short:         "Look up people in the Stanford MaIS Person API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.setup(opts)
		},
	}
	cmd.SetOut(app.Out)
	cmd.SetErr(app.Err)

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("MAIS_CONFIG"), "YAML configuration file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error (overrides config)")

	cmd.AddCommand(
		newPersonCmd(app),
		newAffiliationsCmd(app),
		newRosterCmd(app),
		newWatchCmd(app),
	)
	return cmd
}

func (a *App) setup(opts rootOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	levelName := cfg.Log.Level
	if opts.logLevel != "" {
		levelName = opts.logLevel
	}
	level, ok := logging.ParseLevel(levelName)
	if !ok {
		return fmt.Errorf("invalid log level %q", levelName)
	}
	a.logger = logging.InitWithLevel(logging.DefaultSource, a.Err, level)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg

	if a.Registry == nil {
		a.Registry = prometheus.NewRegistry()
	}
	a.metrics = metrics.New(a.Registry)

	client, err := a.NewClient(cfg, a.logger, a.metrics)
	if err != nil {
		return err
	}
	a.client = client
	return nil
}

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context, app *App, args []string) int {
	cmd := NewRootCmd(app)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(app.Err, "Error:", err)
		return exitCode(err)
	}
	return 0
}

const (
	exitOK = iota
	exitFailure
	exitNotFound
	exitUsage
)

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, ErrNotFound):
		return exitNotFound
	case errors.Is(err, mais.ErrInvalidTags), isUsageError(err):
		return exitUsage
	}
	return exitFailure
}

// usageError marks bad invocations so they exit with exitUsage.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...any) error {
	return usageError{err: fmt.Errorf(format, args...)}
}

// isUsageError also recognizes cobra's untyped argument and flag errors.
func isUsageError(err error) bool {
	var ue usageError
	if errors.As(err, &ue) {
		return true
	}
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") ||
		strings.HasPrefix(msg, "unknown flag") ||
		strings.HasPrefix(msg, "unknown shorthand flag") ||
		strings.Contains(msg, "arg(s)")
}
