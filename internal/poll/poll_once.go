package poll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phuslu/log"

	"github.com/giancarlofleuri/NHS-jobs-insights/internal/domain"
	"github.com/giancarlofleuri/NHS-jobs-insights/internal/reconcile"
	"github.com/giancarlofleuri/NHS-jobs-insights/internal/scrape/types"
	"github.com/giancarlofleuri/NHS-jobs-insights/internal/store"
)

// ErrFetchEmpty means the source failed before yielding a single listing.
// Reconciling an empty batch would close every open record, so nothing is written.
var ErrFetchEmpty = errors.New("fetch failed with no listings")

type Trigger string

const (
	TriggerSchedule Trigger = "schedule"
	TriggerAPI      Trigger = "api"
	TriggerCLI      Trigger = "cli"
)

type Params struct {
	Query   types.Query
	Trigger Trigger
}

type Result struct {
	RunID      string           `json:"run_id"`
	Trigger    Trigger          `json:"trigger"`
	Counts     domain.Counts    `json:"stats"`
	Pages      int              `json:"pages"`
	StopReason types.StopReason `json:"stop_reason"`
	Dropped    int              `json:"dropped"`
	Duplicates int              `json:"duplicates"`
	// FetchError is set when pagination stopped early but the partial batch was reconciled.
	FetchError string           `json:"fetch_error,omitempty"`
	Took       time.Duration    `json:"-"`
	Listings   []domain.Listing `json:"-"`
}

// RunOnce runs one cycle while holding the run lock. Callers queue behind an
// in-flight cycle until ctx is done.
//
// A cycle whose ctx is cancelled, or whose run lock is lost, before the write
// aborts without writing. Once the write starts it runs to completion on its own
// timeout.
func (p *Poller) RunOnce(ctx context.Context, params Params) (Result, error) {
	res := Result{RunID: uuid.NewString(), Trigger: params.Trigger}
	if res.Trigger == "" {
		res.Trigger = TriggerAPI
	}

	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return res, fmt.Errorf("wait for run lock: %w", ctx.Err())
	}
	defer func() { <-p.sem }()

	held, unlock, err := p.locker.Lock(ctx)
	if err != nil {
		return res, fmt.Errorf("acquire run lock: %w", err)
	}
	defer unlock()

	start := time.Now()
	p.markRunning(res.RunID)
	log.Debug().Str("component", "poll").Str("run_id", res.RunID).Str("trigger", string(res.Trigger)).
		Str("location", params.Query.Location).Strs("bands", params.Query.PayBands).Msg("cycle start")

	err = p.cycle(held, params.Query, &res)
	res.Took = time.Since(start)

	p.markDone(res, err)
	p.publish(res, err)
	logCycle(res, err)
	return res, err
}

func (p *Poller) cycle(ctx context.Context, q types.Query, res *Result) error {
	fr := p.fetcher.Fetch(ctx, q)
	res.Pages = fr.Pages
	res.StopReason = fr.StopReason
	res.Dropped = fr.Dropped
	res.Duplicates = fr.Duplicates
	res.Listings = fr.Listings

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("cycle cancelled: %w", context.Cause(ctx))
	}
	if fr.Err != nil {
		if len(fr.Listings) == 0 {
			return fmt.Errorf("%w: %w", ErrFetchEmpty, fr.Err)
		}
		res.FetchError = fr.Err.Error()
	}

	prior, err := p.store.ReadAll(ctx)
	if err != nil {
		return p.storeErr("read_all", err)
	}

	next := reconcile.Reconcile(fr.Listings, prior, p.now())
	res.Counts = next.Counts

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("cycle cancelled: %w", context.Cause(ctx))
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.writeTimeout)
	defer cancel()
	if err := p.store.ReplaceAll(wctx, next.Snapshot); err != nil {
		res.Counts = domain.Counts{}
		return p.storeErr("replace_all", err)
	}
	return nil
}

func (p *Poller) storeErr(op string, err error) error {
	var se *store.Error
	if errors.As(err, &se) {
		return err
	}
	return &store.Error{Backend: p.store.Name(), Op: op, Err: err}
}
