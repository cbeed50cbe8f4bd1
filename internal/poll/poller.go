// Package poll runs reconciliation cycles: fetch, read the prior snapshot,
// reconcile, write the next snapshot. Cycles never overlap.
package poll

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/phuslu/log"

	"github.com/giancarlofleuri/NHS-jobs-insights/internal/domain"
	"github.com/giancarlofleuri/NHS-jobs-insights/internal/events"
	"github.com/giancarlofleuri/NHS-jobs-insights/internal/runlock"
	"github.com/giancarlofleuri/NHS-jobs-insights/internal/scheduler"
	"github.com/giancarlofleuri/NHS-jobs-insights/internal/scrape/types"
	"github.com/giancarlofleuri/NHS-jobs-insights/internal/store"
)

const defaultWriteTimeout = 2 * time.Minute

type Options struct {
	Fetcher types.Fetcher
	Store   store.Store
	// Locker serializes cycles across processes. Defaults to runlock.Nop.
	Locker runlock.Locker
	Events events.Publisher
	// Defaults fills the fields an on-demand trigger leaves out.
	Defaults     types.Query
	WriteTimeout time.Duration
	Now          func() time.Time
}

// Status mirrors what the HTTP status endpoint reports.
type Status struct {
	Running    bool          `json:"running"`
	RunID      string        `json:"run_id,omitempty"`
	LastRunAt  string        `json:"last_run_at"`
	LastOkAt   string        `json:"last_ok_at"`
	LastError  string        `json:"last_error"`
	LastCounts domain.Counts `json:"last_counts"`
	Scheduled  bool          `json:"scheduled"`
}

type Poller struct {
	fetcher      types.Fetcher
	store        store.Store
	locker       runlock.Locker
	events       events.Publisher
	defaults     types.Query
	writeTimeout time.Duration
	now          func() time.Time

	// sem is the in-process run lock; a buffered channel so waiting honours ctx.
	sem chan struct{}

	mu     sync.Mutex
	status Status
	sched  *scheduler.Scheduler
}

func New(opts Options) (*Poller, error) {
	if opts.Fetcher == nil {
		return nil, errors.New("poll: fetcher is required")
	}
	if opts.Store == nil {
		return nil, errors.New("poll: store is required")
	}
	p := &Poller{
		fetcher:      opts.Fetcher,
		store:        opts.Store,
		locker:       opts.Locker,
		events:       opts.Events,
		defaults:     opts.Defaults,
		writeTimeout: opts.WriteTimeout,
		now:          opts.Now,
		sem:          make(chan struct{}, 1),
	}
	if p.locker == nil {
		p.locker = runlock.Nop{}
	}
	if p.writeTimeout <= 0 {
		p.writeTimeout = defaultWriteTimeout
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p, nil
}

func (p *Poller) Defaults() types.Query { return p.defaults }

// Start runs a cycle with q now and then every interval.
// Overlapping ticks are skipped; failures are logged and retried on the next tick.
func (p *Poller) Start(ctx context.Context, interval time.Duration, q types.Query) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sched != nil {
		return errors.New("poll: already started")
	}
	s, err := scheduler.Every(ctx, interval, "scrape", func(ctx context.Context) error {
		_, err := p.RunOnce(ctx, Params{Query: q, Trigger: TriggerSchedule})
		return err
	})
	if err != nil {
		return err
	}
	p.sched = s
	p.status.Scheduled = true
	return nil
}

// Stop ends repeating mode and waits for an in-flight scheduled cycle.
func (p *Poller) Stop() {
	p.mu.Lock()
	s := p.sched
	p.sched = nil
	p.status.Scheduled = false
	p.mu.Unlock()
	if s != nil {
		s.Stop()
	}
}

func (p *Poller) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Poller) markRunning(runID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.Running = true
	p.status.RunID = runID
	p.status.LastRunAt = p.now().UTC().Format(time.RFC3339)
}

func (p *Poller) markDone(res Result, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.Running = false
	if err != nil {
		p.status.LastError = err.Error()
		return
	}
	p.status.LastError = ""
	p.status.LastOkAt = p.now().UTC().Format(time.RFC3339)
	p.status.LastCounts = res.Counts
}

func (p *Poller) publish(res Result, err error) {
	if p.events == nil {
		return
	}
	if err != nil {
		p.events.Publish(events.MakeEvent(res.RunID, events.TypeCycleFailed, 1, map[string]string{
			"error":   err.Error(),
			"trigger": string(res.Trigger),
		}))
		return
	}
	p.events.Publish(events.MakeEvent(res.RunID, events.TypeCycleCompleted, 1, res))
}

func logCycle(res Result, err error) {
	if err != nil {
		log.Error().Str("component", "poll").Str("run_id", res.RunID).Str("trigger", string(res.Trigger)).
			Err(err).Msg("cycle failed")
		return
	}
	e := log.Info()
	if res.FetchError != "" {
		e = log.Warn().Str("fetch_error", res.FetchError)
	}
	e.Str("component", "poll").Str("run_id", res.RunID).Str("trigger", string(res.Trigger)).
		Int("pages", res.Pages).Str("stop", string(res.StopReason)).
		Int("new", res.Counts.New).Int("updated", res.Counts.Updated).
		Int("closed", res.Counts.Closed).Int("unchanged", res.Counts.Unchanged).
		Int("total", res.Counts.Total).Dur("took", res.Took).Msg("cycle done")
}
