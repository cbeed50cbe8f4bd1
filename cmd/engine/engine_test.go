package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giancarlofleuri/NHS-jobs-insights/internal/domain"
)

const resultsPage = `<html><body><ul>
<li data-test="search-result"><h2><a data-test="search-result-job-title" href="/candidate/jobadvert/C9001-25-0001">Staff Nurse Band 5</a></h2>
<div data-test="search-result-location"><h3>St Thomas' Hospital, London</h3></div>
<ul><li data-test="search-result-salary">£31,049 to £37,796 a year</li><li data-test="search-result-publicationDate">Date posted: 1 October 2025</li></ul></li>
<li data-test="search-result"><h2><a data-test="search-result-job-title" href="/candidate/jobadvert/C9001-25-0002">Healthcare Assistant</a></h2>
<div data-test="search-result-location"><h3>Guy's Hospital, London</h3></div>
<ul><li data-test="search-result-salary">£24,071 a year</li></ul></li>
</ul><nav class="nhsuk-pagination"><span>Page 1 of 1</span></nav></body></html>`

func setupDataDir(t *testing.T) string {
	t.Helper()
	return setupDataDirRecording(t, nil)
}

// setupDataDirRecording is setupDataDir with every upstream request query sent to seen.
func setupDataDirRecording(t *testing.T, seen chan<- url.Values) string {
	t.Helper()
	for _, k := range []string{"JOBWATCH_DATA_DIR", "JOBWATCH_CONFIG", "STORE_BACKEND", "STORE_ID",
		"CREDENTIALS_FILE", "SCHEDULE", "SCHEDULE_INTERVAL", "PORT", "REDIS_URL", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			select {
			case seen <- r.URL.Query():
			default:
			}
		}
		if r.URL.Query().Get("page") != "1" {
			fmt.Fprint(w, `<html><body></body></html>`)
			return
		}
		fmt.Fprint(w, resultsPage)
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	cfg := fmt.Sprintf(`app:
  log_level: error
source:
  base_url: %s/candidate/search/results
  delay: 0s
store:
  backend: csv
  path: snapshot.csv
`, srv.URL)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(cfg), 0o644))
	return dir
}

func execute(t *testing.T, args ...string) []byte {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	require.NoError(t, cmd.Execute())
	return out.Bytes()
}

type scrapeOutput struct {
	RunID   string        `json:"run_id"`
	Trigger string        `json:"trigger"`
	Stats   domain.Counts `json:"stats"`
	DryRun  bool          `json:"dry_run"`
}

func TestScrapeThenJobs(t *testing.T) {
	dir := setupDataDir(t)

	var first scrapeOutput
	require.NoError(t, json.Unmarshal(execute(t, "--data-dir", dir, "scrape"), &first))
	assert.NotEmpty(t, first.RunID)
	assert.Equal(t, "cli", first.Trigger)
	assert.Equal(t, domain.Counts{New: 2, Total: 2}, first.Stats)
	assert.FileExists(t, filepath.Join(dir, "snapshot.csv"))

	var records []domain.SnapshotRecord
	require.NoError(t, json.Unmarshal(execute(t, "--data-dir", dir, "jobs", "--json", "--q", "band_5"), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "C9001-25-0001", records[0].IdentityKey)
	assert.Equal(t, 31049, *records[0].SalaryMin)
	assert.Equal(t, 37796, *records[0].SalaryMax)

	var dry scrapeOutput
	require.NoError(t, json.Unmarshal(execute(t, "--data-dir", dir, "scrape", "--dry-run"), &dry))
	assert.True(t, dry.DryRun)
	assert.Equal(t, domain.Counts{Unchanged: 2, Total: 2}, dry.Stats)

	table := string(execute(t, "--data-dir", dir, "jobs", "--status", "new"))
	assert.Contains(t, table, "JOB_ID")
	assert.Contains(t, table, "C9001-25-0002")
	assert.Contains(t, table, "24071")
}

func TestJobs_RejectsUnknownStatus(t *testing.T) {
	dir := setupDataDir(t)
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--data-dir", dir, "jobs", "--status", "open"})
	cmd.SetOut(&bytes.Buffer{})
	assert.Error(t, cmd.Execute())
}

func TestScrape_BandsFlagIsNormalized(t *testing.T) {
	seen := make(chan url.Values, 16)
	dir := setupDataDirRecording(t, seen)

	var out scrapeOutput
	require.NoError(t, json.Unmarshal(execute(t, "--data-dir", dir, "scrape", "--bands", "5,band 6"), &out))
	assert.Equal(t, 2, out.Stats.New)

	first := <-seen
	assert.Equal(t, "BAND_5,BAND_6", first.Get("payBand"))
}

func TestScrape_RejectsBadFlags(t *testing.T) {
	dir := setupDataDir(t)
	for _, args := range [][]string{
		{"--bands", "nurse"},
		{"--max-pages", "0"},
	} {
		cmd := NewRootCommand()
		cmd.SetArgs(append([]string{"--data-dir", dir, "scrape"}, args...))
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		assert.Error(t, cmd.Execute(), args)
	}
	assert.NoFileExists(t, filepath.Join(dir, "snapshot.csv"))
}

func TestServeGroup_BackgroundStartFailureShutsDown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	srv := &http.Server{Handler: http.NotFoundHandler()}

	done := make(chan error, 1)
	go func() {
		done <- serveGroup(ctx, stop, srv, ln, func(context.Context) (func(), error) {
			return nil, errors.New("already started")
		})
	}()

	select {
	case err := <-done:
		assert.EqualError(t, err, "already started")
	case <-time.After(5 * time.Second):
		t.Fatal("serveGroup did not return")
	}
}

func TestServeGroup_StopsBackgroundOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, stop := context.WithCancel(context.Background())
	srv := &http.Server{Handler: http.NotFoundHandler()}

	stopped := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- serveGroup(ctx, stop, srv, ln, func(context.Context) (func(), error) {
			return func() { close(stopped) }, nil
		})
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serveGroup did not return")
	}
	<-stopped
}
