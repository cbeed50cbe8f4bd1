package httpapi

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/giancarlofleuri/NHS-jobs-insights/internal/config"
	"github.com/giancarlofleuri/NHS-jobs-insights/internal/events"
	"github.com/giancarlofleuri/NHS-jobs-insights/internal/poll"
	"github.com/giancarlofleuri/NHS-jobs-insights/internal/scrape/types"
	"github.com/giancarlofleuri/NHS-jobs-insights/internal/store"
)

// Runner is the slice of *poll.Poller the handlers use.
type Runner interface {
	RunOnce(ctx context.Context, p poll.Params) (poll.Result, error)
	Status() poll.Status
	Defaults() types.Query
}

type Deps struct {
	Store  store.Store
	Poller Runner
	Hub    *events.Hub

	// Atomic stores
	CfgVal *atomic.Value // stores config.Config

	// Config persistence
	UserCfgPath string
	LoadCfg     func() (config.Config, error)

	// ScrapeTimeout bounds an on-demand cycle, including time spent queued behind another.
	ScrapeTimeout time.Duration
}
