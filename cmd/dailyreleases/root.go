package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/gofrs/flock"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"DailyReleases/internal/app"
	"DailyReleases/internal/config"
	"DailyReleases/internal/logging"
)

// commandContext carries the shared flags and lazily loaded config of a command.
type commandContext struct {
	configFlag string
	noColor    bool
	cfg        *config.Config
}

func newRootCommand() *cobra.Command {
	cc := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "dailyreleases",
		Short:         "Collect, classify and publish the daily game releases",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if cc.noColor || !isatty.IsTerminal(os.Stdout.Fd()) {
				color.NoColor = true
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cc.configFlag, "config", "c", "", "Configuration file path (default $DAILYRELEASES_CONFIG)")
	rootCmd.PersistentFlags().BoolVar(&cc.noColor, "no-color", false, "Disable coloured output")

	rootCmd.AddCommand(newRunCommand(cc))
	rootCmd.AddCommand(newDaemonCommand(cc))
	rootCmd.AddCommand(newCleanCommand(cc))
	rootCmd.AddCommand(newClassifyCommand(cc))

	return rootCmd
}

func (cc *commandContext) ensureConfig() (config.Config, error) {
	if cc.cfg != nil {
		return *cc.cfg, nil
	}
	path := cc.configFlag
	if path == "" {
		path = config.PathFromEnv()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	cc.cfg = &cfg
	return cfg, nil
}

// session is an opened application plus the resources backing it.
type session struct {
	app    *app.Application
	logger *slog.Logger
	closer io.Closer
	lock   *flock.Flock
}

// open validates cfg, builds the logger and the application. With exclusive set
// the data directory lock is taken so only one pipeline runs at a time.
func (cc *commandContext) open(ctx context.Context, cfg config.Config, exclusive bool) (*session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	s := &session{}
	if exclusive {
		s.lock = flock.New(cfg.LockPath())
		ok, err := s.lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire lock: %w", err)
		}
		if !ok {
			return nil, errors.New("another dailyreleases instance is already running")
		}
	}

	logger, closer, err := logging.Open(cfg, os.Stderr)
	if err != nil {
		s.unlock()
		return nil, err
	}
	s.logger, s.closer = logger, closer

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.app = application
	return s, nil
}

func (s *session) unlock() {
	if s.lock != nil {
		_ = s.lock.Unlock()
	}
}

func (s *session) Close() error {
	var errs []error
	if s.app != nil {
		errs = append(errs, s.app.Close())
	}
	if s.closer != nil {
		errs = append(errs, s.closer.Close())
	}
	s.unlock()
	return errors.Join(errs...)
}
