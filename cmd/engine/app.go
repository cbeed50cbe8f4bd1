package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/phuslu/log"

	"github.com/giancarlofleuri/NHS-jobs-insights/internal/config"
	"github.com/giancarlofleuri/NHS-jobs-insights/internal/events"
	"github.com/giancarlofleuri/NHS-jobs-insights/internal/poll"
	"github.com/giancarlofleuri/NHS-jobs-insights/internal/runlock"
	"github.com/giancarlofleuri/NHS-jobs-insights/internal/scrape/nhsjobs"
	"github.com/giancarlofleuri/NHS-jobs-insights/internal/scrape/types"
	"github.com/giancarlofleuri/NHS-jobs-insights/internal/secrets"
	"github.com/giancarlofleuri/NHS-jobs-insights/internal/store"
)

// app is the wiring every command shares.
type app struct {
	cfg     config.Config
	cfgPath string
	closers []io.Closer
}

func loadApp(opts *RootOptions) (*app, error) {
	dataDir := opts.DataDir
	if dataDir == "" {
		dataDir = os.Getenv("JOBWATCH_DATA_DIR")
	}
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}

	cfgPath := opts.ConfigPath
	if cfgPath == "" {
		cfgPath = os.Getenv("JOBWATCH_CONFIG")
	}
	if cfgPath == "" {
		p, err := config.EnsureUserConfig(dataDir)
		if err != nil {
			return nil, fmt.Errorf("config bootstrap failed: %w", err)
		}
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("config load failed (%s): %w", cfgPath, err)
	}
	if cfg.App.DataDir == "" {
		cfg.App.DataDir = dataDir
	}
	if err := config.ApplyEnv(&cfg, os.Getenv); err != nil {
		return nil, err
	}
	if opts.DataDir != "" {
		cfg.App.DataDir = opts.DataDir
	}
	if opts.LogLevel != "" {
		cfg.App.LogLevel = opts.LogLevel
	}

	cfg, v := config.NormalizeAndValidate(cfg)
	config.SetupLogger(cfg.App.LogLevel)
	for _, w := range v.Warnings {
		log.Warn().Str("component", "config").Msg(w)
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	log.Debug().Str("component", "config").Str("path", cfgPath).Str("store", cfg.Store.Backend).Msg("config loaded")

	return &app{cfg: cfg, cfgPath: cfgPath}, nil
}

func (a *app) loadConfig() (config.Config, error) {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return cfg, err
	}
	if cfg.App.DataDir == "" {
		cfg.App.DataDir = a.cfg.App.DataDir
	}
	if err := config.ApplyEnv(&cfg, os.Getenv); err != nil {
		return cfg, err
	}
	cfg, _ = config.NormalizeAndValidate(cfg)
	return cfg, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i].Close()
	}
}

func (a *app) openStore(ctx context.Context) (store.Store, error) {
	opts := store.Options{
		Backend: a.cfg.Store.Backend,
		Path:    a.cfg.StorePath(),
		DSN:     a.cfg.Store.DSN,
	}
	if opts.Backend == "postgres" {
		pw, err := secrets.StorePassword(a.cfg.Store.CredentialsFile, secrets.StoreKeyringAccount(opts.Backend))
		switch {
		case err == nil:
			opts.Password = pw
		case errors.Is(err, secrets.ErrNotFound):
			// DSN may carry its own password
		default:
			return nil, err
		}
	}

	st, err := store.Open(ctx, opts)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, st)
	log.Info().Str("component", "store").Str("backend", st.Name()).Msg("store opened")
	return st, nil
}

// locker is the cross-process run lock: Redis when configured, else a lock file in the data dir.
func (a *app) locker(ctx context.Context) (runlock.Locker, error) {
	if a.cfg.Lock.RedisURL == "" {
		return runlock.NewFile(a.cfg.LockPath()), nil
	}
	rdb, err := runlock.NewRedisClient(ctx, a.cfg.Lock.RedisURL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, rdb)
	return runlock.NewRedis(rdb, "", a.cfg.Lock.TTL), nil
}

func (a *app) defaultQuery() types.Query {
	return types.Query{
		Location: a.cfg.Source.Location,
		PayBands: append([]string(nil), a.cfg.Source.PayBands...),
		MaxPages: a.cfg.Source.MaxPages,
		Delay:    a.cfg.Source.Delay,
	}
}

func (a *app) scheduledQuery() types.Query {
	q := a.defaultQuery()
	if a.cfg.Schedule.MaxPages > 0 {
		q.MaxPages = a.cfg.Schedule.MaxPages
	}
	return q
}

func (a *app) newPoller(st store.Store, locker runlock.Locker, hub events.Publisher) (*poll.Poller, error) {
	src := nhsjobs.New(nhsjobs.Config{
		BaseURL:     a.cfg.Source.BaseURL,
		UserAgent:   a.cfg.Source.UserAgent,
		PageTimeout: a.cfg.Source.PageTimeout,
	})
	return poll.New(poll.Options{
		Fetcher:  src,
		Store:    st,
		Locker:   locker,
		Events:   hub,
		Defaults: a.defaultQuery(),
	})
}
