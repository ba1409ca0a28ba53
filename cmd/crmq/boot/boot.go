// Package boot wires the shared dependencies for every crmq command:
// logger, AWS config, secret store, run-history recorder, and the query
// runner.
package boot

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/hookline/crmq/pkg/config"
	"github.com/hookline/crmq/pkg/history"
	"github.com/hookline/crmq/pkg/runner"
	"github.com/hookline/crmq/pkg/secrets"
)

// Options come from the root command's persistent flags.
type Options struct {
	Verbose bool
	// SessionJSON is a path to pasted short-lived AWS credentials
	// (the output of `aws configure export-credentials`). When empty the
	// profile/default credential chain applies.
	SessionJSON string
}

// Deps holds everything a subcommand needs.
type Deps struct {
	Config   *config.Config
	Logger   *zap.Logger
	Store    *secrets.Store
	Recorder history.Recorder
	Runner   *runner.Runner
}

// Up builds the dependency graph. A missing or unreachable history
// database downgrades to a no-op recorder rather than failing the run.
func Up(opts Options) (*Deps, error) {
	var logger *zap.Logger
	var err error
	if opts.Verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	store, err := buildStore(opts, cfg, logger)
	if err != nil {
		return nil, err
	}

	var recorder history.Recorder = history.NopRecorder{}
	if dbCfg := history.NewConfig(); dbCfg.Enabled() {
		db, err := history.New(dbCfg, logger)
		if err != nil {
			logger.Warn("History database unavailable, runs will not be recorded", zap.Error(err))
		} else {
			recorder = history.NewPostgresRecorder(db, logger)
		}
	}

	return &Deps{
		Config:   cfg,
		Logger:   logger,
		Store:    store,
		Recorder: recorder,
		Runner:   runner.New(store, recorder, logger),
	}, nil
}

func buildStore(opts Options, cfg *config.Config, logger *zap.Logger) (*secrets.Store, error) {
	if opts.SessionJSON == "" {
		return secrets.NewStore(cfg, logger)
	}

	raw, err := os.ReadFile(opts.SessionJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to read session credentials: %w", err)
	}
	creds, err := secrets.ParseSessionCredentials(raw)
	if err != nil {
		return nil, err
	}
	if remaining, ok := creds.ExpiresIn(time.Now()); ok {
		logger.Info("Using pasted session credentials",
			zap.Duration("expires_in", remaining))
	}
	return secrets.NewStoreWithSession(creds, cfg.AWSRegion, logger)
}

// Down drains the recorder and flushes logs.
func (d *Deps) Down() {
	d.Recorder.Close()
	_ = d.Logger.Sync()
}
