package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Listing is one posting as scraped in the current cycle.
type Listing struct {
	IdentityKey    string `json:"job_id"`
	Title          string `json:"title"`
	Location       string `json:"location"`
	SalaryText     string `json:"salary_text"`
	SalaryMin      *int   `json:"salary_min"`
	SalaryMax      *int   `json:"salary_max"`
	ApplicationURL string `json:"application_url"`
	Band           string `json:"band"`
	PostingDate    string `json:"posting_date"`
}

type Status string

const (
	StatusNew       Status = "new"
	StatusUpdated   Status = "updated"
	StatusUnchanged Status = "unchanged"
	StatusClosed    Status = "closed"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusNew, StatusUpdated, StatusUnchanged, StatusClosed:
		return st, nil
	default:
		return "", fmt.Errorf("unknown status %q", s)
	}
}

// SnapshotRecord is one persisted row. Dates are YYYY-MM-DD.
type SnapshotRecord struct {
	Listing
	Status    Status `json:"status"`
	ClosedAt  string `json:"closed_at"`
	FirstSeen string `json:"first_seen"`
	LastSeen  string `json:"last_seen"`
}

// Counts summarises one reconciliation.
type Counts struct {
	New       int `json:"new"`
	Updated   int `json:"updated"`
	Closed    int `json:"closed"`
	Unchanged int `json:"unchanged"`
	Total     int `json:"total"`
}

// FormatInt renders an optional integer the way it is persisted: "" for nil.
func FormatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

// ParseOptionalInt is the inverse of FormatInt.
func ParseOptionalInt(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func IntPtr(n int) *int { return &n }
