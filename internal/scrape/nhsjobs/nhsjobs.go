package nhsjobs

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/phuslu/log"

	"github.com/giancarlofleuri/NHS-jobs-insights/internal/domain"
	"github.com/giancarlofleuri/NHS-jobs-insights/internal/scrape/types"
	"github.com/giancarlofleuri/NHS-jobs-insights/internal/scrape/util"
)

const (
	DefaultBaseURL  = "https://www.jobs.nhs.uk/candidate/search/results"
	defaultMaxPages = 20
)

var pageOfRe = regexp.MustCompile(`(?i)page\s+(\d+)\s+of\s+(\d+)`)

type Config struct {
	BaseURL     string
	UserAgent   string
	PageTimeout time.Duration
}

// Scraper walks the NHS Jobs candidate search results page by page.
type Scraper struct {
	cfg Config
	hc  *http.Client
}

func New(cfg Config) *Scraper {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "NHSJobsInsights/1.0 (+local)"
	}
	if cfg.PageTimeout <= 0 {
		cfg.PageTimeout = 30 * time.Second
	}
	return &Scraper{
		cfg: cfg,
		hc:  &http.Client{Timeout: cfg.PageTimeout},
	}
}

func (s *Scraper) Name() string { return "nhsjobs" }

// Fetch paginates until an empty page, the last page, the page ceiling, or the first
// fetch failure. Partial results are returned together with the failure.
// Duplicates across pages keep the first variant seen.
func (s *Scraper) Fetch(ctx context.Context, q types.Query) types.ScrapeResult {
	res := types.ScrapeResult{Source: s.Name()}

	maxPages := q.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}
	limiter := util.NewDelayLimiter(q.Delay)
	seen := map[string]bool{}

	for page := 1; page <= maxPages; page++ {
		pageURL := s.pageURL(q, page)

		if err := limiter.WaitURL(ctx, pageURL); err != nil {
			res.StopReason = types.StopCancelled
			res.Err = err
			break
		}

		pg, err := s.fetchPage(ctx, page, pageURL)
		if err != nil {
			res.Err = err
			res.StopReason = types.StopFetchError
			if ctx.Err() != nil {
				res.StopReason = types.StopCancelled
			}
			log.Warn().Str("component", "nhsjobs").Int("page", page).Err(err).
				Int("collected", len(res.Listings)).Msg("pagination stopped early")
			break
		}
		res.Pages = page
		res.Dropped += pg.dropped

		if len(pg.listings) == 0 && pg.dropped == 0 {
			res.StopReason = types.StopEmptyPage
			break
		}

		for _, l := range pg.listings {
			if seen[l.IdentityKey] {
				res.Duplicates++
				continue
			}
			seen[l.IdentityKey] = true
			res.Listings = append(res.Listings, l)
		}

		log.Debug().Str("component", "nhsjobs").Int("page", page).
			Int("listings", len(pg.listings)).Int("of", pg.total).Msg("page parsed")

		if pg.total > 0 && pg.current >= pg.total {
			res.StopReason = types.StopLastPage
			break
		}
		if page == maxPages {
			res.StopReason = types.StopMaxPages
		}
	}

	return res
}

func (s *Scraper) pageURL(q types.Query, page int) string {
	params := url.Values{}
	if q.Location != "" {
		params.Set("location", q.Location)
	}
	params.Set("sort", "publicationDateDesc")
	params.Set("language", "en")
	params.Set("page", strconv.Itoa(page))
	if len(q.PayBands) > 0 {
		params.Set("payBand", strings.Join(q.PayBands, ","))
	}
	return s.cfg.BaseURL + "?" + params.Encode()
}

type resultPage struct {
	listings []domain.Listing
	dropped  int
	current  int
	total    int
}

func (s *Scraper) fetchPage(ctx context.Context, page int, pageURL string) (resultPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return resultPage{}, &types.FetchError{Page: page, URL: pageURL, Err: err}
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := s.hc.Do(req)
	if err != nil {
		return resultPage{}, &types.FetchError{Page: page, URL: pageURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resultPage{}, &types.FetchError{Page: page, URL: pageURL, Status: resp.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return resultPage{}, &types.FetchError{Page: page, URL: pageURL, Err: fmt.Errorf("parse html: %w", err)}
	}
	return s.parsePage(doc), nil
}

func (s *Scraper) parsePage(doc *goquery.Document) resultPage {
	var pg resultPage

	doc.Find(`li[data-test="search-result"]`).Each(func(_ int, item *goquery.Selection) {
		l, ok := s.parseListing(item)
		if !ok {
			pg.dropped++
			return
		}
		pg.listings = append(pg.listings, l)
	})

	pg.current, pg.total = pageIndicator(doc)
	return pg
}

// parseListing reports false when no identity key can be derived.
// Any other missing field is left empty.
func (s *Scraper) parseListing(item *goquery.Selection) (domain.Listing, bool) {
	a := item.Find(`a[data-test="search-result-job-title"]`).First()
	href, _ := a.Attr("href")
	key := util.IdentityKeyFromURL(href)
	if key == "" {
		return domain.Listing{}, false
	}

	title := util.CleanText(a.Text())
	salaryText := util.CleanText(item.Find(`li[data-test="search-result-salary"]`).First().Text())
	lo, hi := util.ParseSalary(salaryText)

	return domain.Listing{
		IdentityKey:    key,
		Title:          title,
		Location:       util.CleanText(item.Find(`div[data-test="search-result-location"]`).First().Text()),
		SalaryText:     salaryText,
		SalaryMin:      lo,
		SalaryMax:      hi,
		ApplicationURL: util.AbsoluteURL(s.cfg.BaseURL, href),
		Band:           util.ExtractBand(title),
		PostingDate:    util.CleanText(item.Find(`li[data-test="search-result-publicationDate"]`).First().Text()),
	}, true
}

// pageIndicator reads "Page X of Y" from the pagination block, falling back to the body.
func pageIndicator(doc *goquery.Document) (current, total int) {
	for _, sel := range []string{".nhsuk-pagination", `[data-test="search-result-page-count"]`, "nav", "body"} {
		m := pageOfRe.FindStringSubmatch(util.CleanText(doc.Find(sel).Text()))
		if m == nil {
			continue
		}
		current, _ = strconv.Atoi(m[1])
		total, _ = strconv.Atoi(m[2])
		return current, total
	}
	return 0, 0
}
