package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/amaumene/releasarr/internal/app"
	"github.com/amaumene/releasarr/internal/config"
	"github.com/amaumene/releasarr/internal/models"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var errImportFailures = errors.New("import finished with errors")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "releasarr",
		Short:         "Imports upcoming TV releases and keeps the catalog enriched",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "", "log format (text or json)")
	_ = viper.BindPFlag("LOG_LEVEL", root.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("LOG_FORMAT", root.PersistentFlags().Lookup("log-format"))

	root.AddCommand(
		newServeCmd(),
		newImportCmd(),
		newCleanupCmd(),
		newMaintainCmd(),
		newSyncShowsCmd(),
		newEnrichPendingCmd(),
	)
	return root
}

// withApp loads config, wires the app and runs fn with a context that is
// cancelled on SIGINT or SIGTERM
func withApp(fn func(ctx context.Context, a *app.App) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		a, cleanup, err := app.InitializeApp(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return fn(ctx, a)
	}
}

// withQueue runs fn with the enrichment workers up and waits for the
// queued jobs before returning
func withQueue(ctx context.Context, a *app.App, fn func() error) error {
	a.Queue.Start(ctx)
	err := fn()
	a.Logger.Info().Msg("Waiting for enrichment jobs to finish")
	a.Queue.Close()
	return err
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API, the scheduler and the enrichment workers",
		RunE: withApp(func(ctx context.Context, a *app.App) error {
			a.Logger.Info().Msg("Starting releasarr")

			a.Queue.Start(ctx)
			defer a.Queue.Close()

			if err := a.Scheduler.Start(ctx); err != nil {
				return fmt.Errorf("failed to start scheduler: %w", err)
			}
			defer a.Scheduler.Stop()

			a.Logger.Info().Msg("Releasarr is running")
			if err := a.Server.Start(ctx); err != nil {
				return err
			}
			a.Logger.Info().Msg("Releasarr stopped")
			return nil
		}),
	}
	cmd.Flags().String("port", "", "HTTP port")
	_ = viper.BindPFlag("SERVER_PORT", cmd.Flags().Lookup("port"))
	return cmd
}

func runImport(ctx context.Context, a *app.App) (models.ImportStats, error) {
	stats, err := a.Import.ImportUpcomingReleases(ctx)
	if err != nil {
		return stats, err
	}
	fmt.Printf("Imported: %d, Skipped: %d, Errors: %d\n", stats.Imported, stats.Skipped, stats.Errors)
	return stats, nil
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Import upcoming releases once",
		RunE: withApp(func(ctx context.Context, a *app.App) error {
			return withQueue(ctx, a, func() error {
				stats, err := runImport(ctx, a)
				if err != nil {
					return err
				}
				if stats.Errors > 0 {
					return errImportFailures
				}
				return nil
			})
		}),
	}
}

func runCleanup(ctx context.Context, a *app.App) error {
	deleted, err := a.Cleanup.CleanupReleases(ctx, a.Config.CleanupDays)
	if err != nil {
		return err
	}
	fmt.Printf("Deleted %d releases older than %d days\n", deleted, a.Config.CleanupDays)
	return nil
}

func newCleanupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete releases older than the given number of days",
		RunE: withApp(func(ctx context.Context, a *app.App) error {
			return runCleanup(ctx, a)
		}),
	}
	cmd.Flags().Int("days", 7, "delete releases that aired more than this many days ago")
	_ = viper.BindPFlag("CLEANUP_DAYS", cmd.Flags().Lookup("days"))
	return cmd
}

func newMaintainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "maintain",
		Short: "Import upcoming releases, then clean up old ones",
		RunE: withApp(func(ctx context.Context, a *app.App) error {
			return withQueue(ctx, a, func() error {
				if _, err := runImport(ctx, a); err != nil {
					return err
				}
				return runCleanup(ctx, a)
			})
		}),
	}
}

func newSyncShowsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync-shows",
		Short: "Refresh every stored show from its detail page",
		RunE: withApp(func(ctx context.Context, a *app.App) error {
			return withQueue(ctx, a, func() error {
				stats, err := a.ShowSync.SyncAll(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("Updated: %d, Skipped: %d, Errors: %d\n", stats.Updated, stats.Skipped, stats.Errors)
				return nil
			})
		}),
	}
}

func newEnrichPendingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enrich-pending",
		Short: "Queue enrichment for every placeholder and wait for it",
		RunE: withApp(func(ctx context.Context, a *app.App) error {
			return withQueue(ctx, a, func() error {
				n, err := a.Enrichment.SchedulePending(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("Scheduled %d enrichment jobs\n", n)
				return nil
			})
		}),
	}
}
