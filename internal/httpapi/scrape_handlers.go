package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/giancarlofleuri/NHS-jobs-insights/internal/poll"
	"github.com/giancarlofleuri/NHS-jobs-insights/internal/runlock"
	"github.com/giancarlofleuri/NHS-jobs-insights/internal/scrape/types"
	"github.com/giancarlofleuri/NHS-jobs-insights/internal/store"
)

var (
	validate = validator.New(validator.WithRequiredStructEnabled())
	bandRe   = regexp.MustCompile(`^BAND_\d+$`)
)

type ScrapeHandler struct {
	Poller  Runner
	Timeout time.Duration
}

func (h ScrapeHandler) Status(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.Poller.Status())
}

// Run executes one cycle synchronously and answers with its counts.
func (h ScrapeHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req ScrapeRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, 64<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		WriteError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON: "+err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	q, err := h.query(req)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	ctx := r.Context()
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	res, err := h.Poller.RunOnce(ctx, poll.Params{Query: q, Trigger: poll.TriggerAPI})
	if err != nil {
		status, code := classify(err)
		WriteError(w, r, status, code, err.Error())
		return
	}

	out := ScrapeResponse{Result: res}
	if req.IncludeListings {
		out.Listings = res.Listings
	}
	WriteJSON(w, http.StatusOK, out)
}

func (h ScrapeHandler) query(req ScrapeRequest) (types.Query, error) {
	q := h.Poller.Defaults()
	if loc := strings.TrimSpace(req.Location); loc != "" {
		q.Location = loc
	}
	if req.Bands != nil {
		bands := make([]string, 0, len(req.Bands))
		for _, b := range req.Bands {
			b = strings.ToUpper(strings.TrimSpace(b))
			if !bandRe.MatchString(b) {
				return q, fmt.Errorf("bands: %q is not of the form BAND_<n>", b)
			}
			bands = append(bands, b)
		}
		q.PayBands = bands
	}
	if req.MaxPages != nil {
		q.MaxPages = *req.MaxPages
	}
	delay := req.DelaySeconds
	if delay == nil {
		delay = req.Delay
	}
	if delay != nil {
		q.Delay = time.Duration(*delay * float64(time.Second))
	}
	return q, nil
}

func classify(err error) (int, string) {
	var se *store.Error
	switch {
	case errors.As(err, &se):
		return http.StatusServiceUnavailable, "store_error"
	case errors.Is(err, poll.ErrFetchEmpty):
		return http.StatusBadGateway, "fetch_error"
	case errors.Is(err, runlock.ErrNotAcquired):
		return http.StatusConflict, "busy"
	case errors.Is(err, runlock.ErrLockLost):
		return http.StatusConflict, "lock_lost"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, context.Canceled):
		return 499, "cancelled"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
