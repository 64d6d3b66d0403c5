package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Lakksithharikarboncard/karbonfx-referral-form/internal/daemon"
	"github.com/Lakksithharikarboncard/karbonfx-referral-form/internal/infra/sqlite"
)

var submissionsLimit int

var submissionsCmd = &cobra.Command{
	Use:   "submissions",
	Short: "Show the local submission audit log",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := daemon.Load()
		if err != nil {
			return err
		}
		db, err := sqlite.Open(cfg.DataDir())
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer db.Close()

		rows, err := db.ListSubmissions(submissionsLimit)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			fmt.Fprintln(os.Stdout, "No submissions recorded.")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "REFERENCE\tCOMPANY\tSUBMITTED")
		for _, row := range rows {
			fmt.Fprintf(tw, "%s\t%s\t%s\n",
				row.ReferenceCode, row.Company, row.SubmittedAt.Format("2006-01-02 15:04"))
		}
		return tw.Flush()
	},
}

func init() {
	submissionsCmd.Flags().IntVar(&submissionsLimit, "limit", 20, "maximum rows to show")
	rootCmd.AddCommand(submissionsCmd)
}
