// File: cmd/server/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wasa_admin_backend/internal/common"
	"wasa_admin_backend/internal/config"
	"wasa_admin_backend/internal/customer"
	"wasa_admin_backend/internal/platform/logger"
	"wasa_admin_backend/internal/platform/telemetry"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// cliActor is recorded in the audit log for changes made from the command line.
var cliActor = common.Actor{Email: "cli", Role: common.RoleSuperAdmin}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	serve := newServeCmd()
	root := &cobra.Command{
		Use:           "wasa-admin",
		Short:         "WASA administration backend",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          serve.RunE,
	}
	root.AddCommand(
		serve,
		newSeedAdminCmd(),
		newImportCustomersCmd(),
		newExportCustomersCmd(),
		newReindexCustomersCmd(),
	)
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	shutdownTracing := telemetry.Setup(cfg, logger.NewDefaultLogger().Named("telemetry"))
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			log.Printf("WARN: tracer shutdown: %v", err)
		}
	}()

	server, cleanup, err := initializeServer(cfg)
	if err != nil {
		return fmt.Errorf("initialize server: %w", err)
	}
	defer cleanup()

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		log.Printf("INFO: Received signal '%s'. Shutting down server...", sig)
	}

	timeout := cfg.ServerTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Println("INFO: Server shutdown complete.")
	return nil
}

// withCLI loads configuration and the maintenance services for one command.
func withCLI(fn func(ctx context.Context, deps *cliDeps) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	deps, cleanup, err := initializeCLI(cfg)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return fn(ctx, deps)
}

func newSeedAdminCmd() *cobra.Command {
	var email, password, name string
	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the initial super admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCLI(func(ctx context.Context, deps *cliDeps) error {
				acc, created, err := deps.Admins.EnsureSuperAdmin(ctx, email, password, name)
				if err != nil {
					return err
				}
				if created {
					fmt.Fprintf(cmd.OutOrStdout(), "created super admin %s (%s)\n", acc.Email, acc.ID)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "account %s already exists; nothing to do\n", acc.Email)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "super admin email")
	cmd.Flags().StringVar(&password, "password", "", "super admin password")
	cmd.Flags().StringVar(&name, "name", "Super Admin", "super admin full name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newImportCustomersCmd() *cobra.Command {
	var path string
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "import-customers",
		Short: "Import customers from a CSV file",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			return withCLI(func(ctx context.Context, deps *cliDeps) error {
				report, err := deps.Customers.Import(ctx, cliActor, f, customer.ImportOptions{DryRun: dryRun, ArchiveKey: path})
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			})
		},
	}
	cmd.Flags().StringVar(&path, "file", "", "CSV file to import")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate without writing")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newExportCustomersCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export-customers",
		Short: "Export all customers to a CSV file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCLI(func(ctx context.Context, deps *cliDeps) error {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				rows, err := deps.Customers.Export(ctx, f, customer.ListQuery{})
				if closeErr := f.Close(); err == nil {
					err = closeErr
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "exported %d customers to %s\n", rows, out)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&out, "out", "customers.csv", "destination CSV file")
	return cmd
}

func newReindexCustomersCmd() *cobra.Command {
	var batchSize int
	cmd := &cobra.Command{
		Use:   "reindex-customers",
		Short: "Rebuild the customer search index",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCLI(func(ctx context.Context, deps *cliDeps) error {
				res, err := deps.Customers.Reindex(ctx, batchSize)
				if err != nil {
					return err
				}
				deps.Logger.Info("Customer reindex finished", zap.Int("indexed", res.Indexed), zap.Int("failed", res.Failed))
				if res.Failed > 0 {
					return fmt.Errorf("%d customers failed to index", res.Failed)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&batchSize, "batch-size", 500, "documents per bulk request")
	return cmd
}
