package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/Lakksithharikarboncard/karbonfx-referral-form/internal/daemon"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and manage the service configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := daemon.Load()
		if err != nil {
			return err
		}
		// The token is a secret; show only whether it is set.
		if cfg.Airtable.APIToken != "" {
			cfg.Airtable.APIToken = "(set)"
		}
		fmt.Fprintf(os.Stdout, "# %s\n", filepath.Join(daemon.ConfigDir(), "config.toml"))
		return toml.NewEncoder(os.Stdout).Encode(cfg)
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config.toml",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := filepath.Join(daemon.ConfigDir(), "config.toml")
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
		if err := daemon.DefaultConfig().Save(); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Wrote %s\n", path)
		fmt.Fprintln(os.Stdout, "Set airtable.base_id and airtable.api_token to enable submissions.")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
