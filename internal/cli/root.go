// Package cli wires configuration, logging and the backend into cobra
// commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/idilsaglam/livetodo/internal/backend"
	"github.com/idilsaglam/livetodo/internal/config"
	"github.com/idilsaglam/livetodo/internal/logging"
	"github.com/idilsaglam/livetodo/internal/screen"
	"github.com/idilsaglam/livetodo/internal/store"
	"github.com/idilsaglam/livetodo/internal/todo"
	"github.com/idilsaglam/livetodo/internal/ui"
)

// Version is set at build time with -ldflags.
var Version = "dev"

// Exit codes: 0 ok, 1 error, 2 usage.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// usageError marks failures caused by what the user typed.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// app is the state shared by every command for one invocation.
type app struct {
	flagConfig  string
	flagBackend string
	flagTheme   string

	cfg       config.Config
	logger    *log.Logger
	logCloser io.Closer
	coll      store.Collection
	svc       *todo.Service
}

// NewRootCmd builds the command tree. Running it with no subcommand opens
// the live screen.
func NewRootCmd() *cobra.Command {
	root, _ := newRoot()
	return root
}

func newRoot() (*cobra.Command, *app) {
	a := &app{}
	root := &cobra.Command{
		Use:           "todo",
		Short:         "A live-updating todo list",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          usageArgs(cobra.NoArgs),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.setup(cmd.Context())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return screen.Run(cmd.Context(), a.svc, screen.Options{
				Logger:        a.logger,
				ToastDuration: a.cfg.UI.ToastDuration,
			})
		},
	}
	root.PersistentFlags().StringVar(&a.flagConfig, "config", "", "config file (default: $HOME/.livetodo/config.yaml)")
	root.PersistentFlags().StringVar(&a.flagBackend, "backend", "", "backend driver: memory, sqlite, json, postgres, redis")
	root.PersistentFlags().StringVar(&a.flagTheme, "theme", "", "color theme: classic, neon, mono")

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageError{err} })

	root.AddCommand(newAddCmd(a))
	root.AddCommand(newListCmd(a))
	root.AddCommand(newWatchCmd(a))
	root.AddCommand(newVersionCmd())
	return root, a
}

func (a *app) setup(ctx context.Context) error {
	cfg, err := config.Load(a.flagConfig)
	if err != nil {
		return err
	}
	if a.flagBackend != "" {
		cfg.Backend.Driver = a.flagBackend
	}
	if a.flagTheme != "" {
		cfg.UI.Theme = a.flagTheme
	}
	if err := cfg.Validate(); err != nil {
		return usageError{err}
	}
	a.cfg = cfg
	ui.SetTheme(cfg.UI.Theme)

	logger, closer, err := newLogger(cfg)
	if err != nil {
		return err
	}
	a.logger, a.logCloser = logger, closer
	a.logger.Debug("config loaded", "file", cfg.File, "driver", cfg.Backend.Driver)

	coll, err := backend.Open(ctx, cfg, logger)
	if err != nil {
		a.logger.Error("open backend", "driver", cfg.Backend.Driver, "err", err)
		return fmt.Errorf("open %s backend: %w", cfg.Backend.Driver, err)
	}
	a.coll = coll
	a.svc = todo.NewService(coll)
	return nil
}

func (a *app) teardown() error {
	var errs []error
	if a.coll != nil {
		errs = append(errs, a.coll.Close())
		a.coll = nil
	}
	if a.logCloser != nil {
		errs = append(errs, a.logCloser.Close())
		a.logCloser = nil
	}
	return errors.Join(errs...)
}

func newLogger(cfg config.Config) (*log.Logger, io.Closer, error) {
	l, c, err := logging.New(cfg.Log.File, cfg.Log.Level)
	if err != nil {
		return nil, nil, usageError{err}
	}
	return l.With("driver", cfg.Backend.Driver), c, nil
}

// usageArgs marks argument validation failures as usage errors.
func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

// Execute runs the CLI against os.Args and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, os.Args[1:], os.Stdout, os.Stderr)
}

// run executes one invocation. The backend and log file are released here
// rather than in a post-run hook, which cobra skips when a command fails.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root, a := newRoot()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	cmd, err := root.ExecuteContextC(ctx)
	if terr := a.teardown(); err == nil {
		err = terr
	}
	if err == nil {
		return exitOK
	}
	ui.Fail(stderr, err.Error())
	var ue usageError
	if errors.As(err, &ue) || errors.Is(err, todo.ErrEmptyTitle) {
		fmt.Fprintln(stderr)
		fmt.Fprint(stderr, cmd.UsageString())
		return exitUsage
	}
	return exitError
}
