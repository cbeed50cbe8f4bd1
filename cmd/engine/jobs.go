package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/giancarlofleuri/NHS-jobs-insights/internal/domain"
	"github.com/giancarlofleuri/NHS-jobs-insights/internal/store"
)

func NewJobsCommand(opts *RootOptions) *cobra.Command {
	var (
		status string
		query  string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List the stored snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			if status != "" {
				if _, err := domain.ParseStatus(status); err != nil {
					return err
				}
			}
			a, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			st, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			records, err := st.ReadAll(cmd.Context())
			if err != nil {
				return err
			}
			records = store.Filter(records, store.Query{Status: status, Q: query})

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), records)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "JOB_ID\tSTATUS\tBAND\tSALARY\tLOCATION\tTITLE")
			for _, r := range records {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					r.IdentityKey, r.Status, r.Band, salaryRange(r.Listing), r.Location, r.Title)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "new|updated|unchanged|closed")
	cmd.Flags().StringVar(&query, "q", "", "substring match over title, location and band")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func salaryRange(l domain.Listing) string {
	lo, hi := domain.FormatInt(l.SalaryMin), domain.FormatInt(l.SalaryMax)
	if lo == hi {
		return lo
	}
	return lo + "-" + hi
}
