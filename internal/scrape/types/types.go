package types

import (
	"context"
	"fmt"
	"time"

	"github.com/giancarlofleuri/NHS-jobs-insights/internal/domain"
)

// Query is one paginated search against a listing source.
type Query struct {
	Location string
	PayBands []string
	MaxPages int
	Delay    time.Duration
}

type StopReason string

const (
	StopEmptyPage  StopReason = "empty_page"
	StopLastPage   StopReason = "last_page"
	StopMaxPages   StopReason = "max_pages"
	StopFetchError StopReason = "fetch_error"
	StopCancelled  StopReason = "cancelled"
)

type ScrapeResult struct {
	Source     string
	Listings   []domain.Listing
	Pages      int
	StopReason StopReason
	Dropped    int // no identity key
	Duplicates int
	// Err is set when pagination stopped early; Listings still holds what was collected.
	Err error
}

type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, q Query) ScrapeResult
}

// FetchError is a transport failure, timeout, or non-2xx page response.
type FetchError struct {
	Page   int
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch page %d: status %d", e.Page, e.Status)
	}
	return fmt.Sprintf("fetch page %d: %v", e.Page, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
