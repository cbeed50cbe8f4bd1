package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/phuslu/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/giancarlofleuri/NHS-jobs-insights/internal/events"
	"github.com/giancarlofleuri/NHS-jobs-insights/internal/httpapi"
)

func NewServeCommand(opts *RootOptions) *cobra.Command {
	var host string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and, when enabled, the repeating scrape",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts, host)
		},
	}
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "listen host")
	return cmd
}

func runServe(parent context.Context, opts *RootOptions, host string) error {
	a, err := loadApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()

	sigCtx, stopSignals := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stopSignals()
	ctx, stop := context.WithCancel(sigCtx)
	defer stop()

	st, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	locker, err := a.locker(ctx)
	if err != nil {
		return err
	}
	hub := events.NewHub()
	p, err := a.newPoller(st, locker, hub)
	if err != nil {
		return err
	}

	var cfgVal atomic.Value
	cfgVal.Store(a.cfg)

	mux := httpapi.NewMux(httpapi.Deps{
		Store:         st,
		Poller:        p,
		Hub:           hub,
		CfgVal:        &cfgVal,
		UserCfgPath:   a.cfgPath,
		LoadCfg:       a.loadConfig,
		ScrapeTimeout: 15 * time.Minute,
	})

	token := os.Getenv("JOBWATCH_SHUTDOWN_TOKEN")
	if token == "" {
		if token, err = randomToken(16); err != nil {
			return err
		}
		log.Debug().Str("component", "serve").Str("token", token).Msg("shutdown token")
	}
	mux.HandleFunc("/shutdown", shutdownHandler(token, stop))

	addr := net.JoinHostPort(host, fmt.Sprint(a.cfg.App.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           httpapi.Chain(mux, httpapi.RequestID, httpapi.Recover, httpapi.AccessLog, httpapi.Cors),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	log.Info().Str("component", "serve").Str("addr", "http://"+addr).Str("store", st.Name()).
		Bool("schedule", a.cfg.Schedule.Enabled).Msg("engine listening")

	var background func(context.Context) (func(), error)
	if a.cfg.Schedule.Enabled {
		background = func(gctx context.Context) (func(), error) {
			if err := p.Start(gctx, a.cfg.Schedule.Interval, a.scheduledQuery()); err != nil {
				return nil, err
			}
			return p.Stop, nil
		}
	}
	return serveGroup(ctx, stop, srv, ln, background)
}

// serveGroup serves srv on ln until ctx is done. background, when set, starts
// after shutdown is wired; an error from it shuts the server down.
func serveGroup(ctx context.Context, stop context.CancelFunc, srv *http.Server, ln net.Listener,
	background func(context.Context) (func(), error)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer stop()
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info().Str("component", "serve").Msg("shutting down")
		return srv.Shutdown(sctx)
	})

	if background != nil {
		stopBackground, err := background(gctx)
		if err != nil {
			stop()
			_ = g.Wait()
			return err
		}
		g.Go(func() error {
			<-gctx.Done()
			stopBackground()
			return nil
		})
	}

	return g.Wait()
}
