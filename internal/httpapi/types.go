package httpapi

import (
	"github.com/giancarlofleuri/NHS-jobs-insights/internal/domain"
	"github.com/giancarlofleuri/NHS-jobs-insights/internal/poll"
)

// ScrapeRequest is the body of POST /api/scrape. Every field is optional;
// omitted fields fall back to the configured source defaults.
type ScrapeRequest struct {
	Location     string   `json:"location" validate:"max=120"`
	Bands        []string `json:"bands" validate:"omitempty,max=12,dive,required,max=16"`
	MaxPages     *int     `json:"max_pages" validate:"omitempty,min=1,max=100"`
	DelaySeconds *float64 `json:"delay_seconds" validate:"omitempty,min=0,max=60"`
	// Delay is the older name for DelaySeconds. DelaySeconds wins when both are set.
	Delay           *float64 `json:"delay" validate:"omitempty,min=0,max=60"`
	IncludeListings bool     `json:"include_listings"`
}

type ScrapeResponse struct {
	poll.Result
	Listings []domain.Listing `json:"listings,omitempty"`
}

type setStorePasswordReq struct {
	Password string `json:"password"`
}
