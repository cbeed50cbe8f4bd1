package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/giancarlofleuri/NHS-jobs-insights/internal/config"
	"github.com/giancarlofleuri/NHS-jobs-insights/internal/poll"
	"github.com/giancarlofleuri/NHS-jobs-insights/internal/runlock"
	"github.com/giancarlofleuri/NHS-jobs-insights/internal/store"
)

type scrapeOptions struct {
	Location string
	Bands    []string
	MaxPages int
	Delay    time.Duration
	DryRun   bool
}

func NewScrapeCommand(opts *RootOptions) *cobra.Command {
	so := &scrapeOptions{}
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Run one scrape and reconcile cycle",
		Long:  "Fetches the search results, reconciles them with the stored snapshot and prints the counts. --dry-run computes the counts without writing.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScrape(cmd, opts, so)
		},
	}
	cmd.Flags().StringVar(&so.Location, "location", "", "search location (default from config)")
	cmd.Flags().StringSliceVar(&so.Bands, "bands", nil, "pay bands, e.g. BAND_4,BAND_5 (default from config)")
	cmd.Flags().IntVar(&so.MaxPages, "max-pages", 0, "page ceiling (default from config)")
	cmd.Flags().DurationVar(&so.Delay, "delay", 0, "delay between page fetches (default from config)")
	cmd.Flags().BoolVar(&so.DryRun, "dry-run", false, "reconcile against a copy of the snapshot and write nothing")
	return cmd
}

func runScrape(cmd *cobra.Command, opts *RootOptions, so *scrapeOptions) error {
	flags := cmd.Flags()
	var bands []string
	if flags.Changed("bands") {
		var err error
		if bands, err = config.ParseBands(so.Bands); err != nil {
			return fmt.Errorf("--bands: %w", err)
		}
	}
	if flags.Changed("max-pages") && so.MaxPages < 1 {
		return fmt.Errorf("--max-pages must be >= 1")
	}

	a, err := loadApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := a.openStore(ctx)
	if err != nil {
		return err
	}

	var locker runlock.Locker = runlock.Nop{}
	if so.DryRun {
		prior, err := st.ReadAll(ctx)
		if err != nil {
			return err
		}
		st = store.NewMemory(prior)
	} else if locker, err = a.locker(ctx); err != nil {
		return err
	}

	p, err := a.newPoller(st, locker, nil)
	if err != nil {
		return err
	}

	q := a.defaultQuery()
	if flags.Changed("location") {
		q.Location = strings.TrimSpace(so.Location)
	}
	if flags.Changed("bands") {
		q.PayBands = bands
	}
	if flags.Changed("max-pages") {
		q.MaxPages = so.MaxPages
	}
	if flags.Changed("delay") {
		q.Delay = so.Delay
	}

	res, err := p.RunOnce(ctx, poll.Params{Query: q, Trigger: poll.TriggerCLI})
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), struct {
		poll.Result
		DryRun bool `json:"dry_run"`
	}{res, so.DryRun})
}
