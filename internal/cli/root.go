// Package cli implements the referral command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Lakksithharikarboncard/karbonfx-referral-form/internal/api"
)

var rootCmd = &cobra.Command{
	Use:   "referral",
	Short: "Karbon FX referral program service",
	Long: `referral runs the Karbon FX lead-referral service.

The wizard collects referrer and referred-business details across four
steps, keeps an in-progress draft so nothing is lost between visits, and
submits completed referrals to the program's Airtable base.

Run 'referral serve' for the HTTP API used by the hosted form, or
'referral wizard' to file a referral from the terminal.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the service version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(os.Stdout, "referral %s\n", api.Version)
	},
}
