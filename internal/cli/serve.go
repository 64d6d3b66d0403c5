package cli

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/Lakksithharikarboncard/karbonfx-referral-form/internal/api"
	"github.com/Lakksithharikarboncard/karbonfx-referral-form/internal/app/session"
	"github.com/Lakksithharikarboncard/karbonfx-referral-form/internal/daemon"
	"github.com/Lakksithharikarboncard/karbonfx-referral-form/internal/draft"
	"github.com/Lakksithharikarboncard/karbonfx-referral-form/internal/infra/airtable"
	"github.com/Lakksithharikarboncard/karbonfx-referral-form/internal/infra/sqlite"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the referral HTTP API",
	Long: `Starts the HTTP API that backs the hosted referral form.

Sessions, drafts, and the submission audit log are kept in a local
SQLite database under the data directory. Airtable credentials come
from config.toml or the AIRTABLE_BASE_ID / AIRTABLE_API_TOKEN
environment variables; without them the service still runs, but
submissions fail with a configuration error.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "bind address (overrides config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "bind port (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := daemon.Load()
	if err != nil {
		return err
	}
	if serveHost != "" {
		cfg.API.Host = serveHost
	}
	if servePort != 0 {
		cfg.API.Port = servePort
	}

	db, err := sqlite.Open(cfg.DataDir())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	client := airtable.New(airtable.Config{
		BaseID:   cfg.Airtable.BaseID,
		APIToken: cfg.Airtable.APIToken,
		TableID:  cfg.Airtable.TableID,
		Timeout:  time.Duration(cfg.Airtable.TimeoutSeconds) * time.Second,
	})
	if !client.Configured() {
		log.Printf("[serve] airtable credentials missing; submissions will be rejected")
	}

	reg := session.NewRegistry(db, draft.NewSQLiteStore(db), client)

	srv := api.NewServer(reg)
	if cfg.API.Metrics {
		srv.EnableMetrics()
	}

	addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
	log.Printf("[serve] referral API %s listening on %s", api.Version, addr)
	return http.ListenAndServe(addr, srv.Handler())
}
