// Command matchctl runs matching operations by hand: ad-hoc batch runs,
// reverse lookups, statistics and geocoding backfills.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"realty_crm_backend/internal/email"
	"realty_crm_backend/internal/events"
	"realty_crm_backend/internal/matching"
	"realty_crm_backend/internal/matching/repository"
	"realty_crm_backend/internal/matching/service"
	"realty_crm_backend/internal/notification"
	"realty_crm_backend/internal/reports"
	"realty_crm_backend/internal/whatsapp"
	"realty_crm_backend/platform/config"
	"realty_crm_backend/platform/db"
	"realty_crm_backend/platform/logger"

	"github.com/spf13/cobra"
)

// env holds what every subcommand needs. It is filled in by the root
// command's PersistentPreRunE.
type env struct {
	cfg     *config.Config
	log     *logger.Logger
	bus     *events.InMemoryBus
	svc     *service.Service
	repo    *repository.Repository
	closers []func()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e := &env{}
	rootCmd := &cobra.Command{
		Use:           "matchctl",
		Short:         "Property/lead matching operations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return e.open(cmd.Context())
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			e.close()
		},
	}

	rootCmd.AddCommand(createRunCmd(e))
	rootCmd.AddCommand(createLeadsForPropertyCmd(e))
	rootCmd.AddCommand(createStatsCmd(e))
	rootCmd.AddCommand(createReportCmd(e))
	rootCmd.AddCommand(createGeocodeCmd(e))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		e.close()
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func (e *env) open(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	e.cfg = cfg

	log, closeLog := logger.FromConfig(cfg.Env, cfg)
	e.log = log
	e.closers = append(e.closers, func() { _ = closeLog() })

	pool, err := db.NewPool(ctx, cfg, db.WithMaxConns(4))
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	e.closers = append(e.closers, pool.Close)

	e.bus = events.NewInMemoryBus(log)
	e.closers = append(e.closers, e.bus.Wait)

	var wa notification.WhatsAppSender
	if client := whatsapp.NewClient(cfg, log); client != nil {
		wa = client
	}
	notification.New(wa, email.NewSender(cfg), log).RegisterHandlers(e.bus)

	var archive service.ReportArchive
	if cfg.IsMinIOEnabled() {
		a, err := reports.NewMinIOArchive(cfg)
		if err != nil {
			return err
		}
		archive = a
	}

	e.svc, e.repo, err = matching.NewService(pool, e.bus, archive, cfg, log)
	return err
}

// close runs the closers in reverse order, once.
func (e *env) close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
	e.closers = nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
