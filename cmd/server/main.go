package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"opscore/internal/app/server"
	"opscore/internal/platform/config"
)

const cliActor = "cli"

func main() {
	if err := rootCommand().Execute(); err != nil {
		slog.Error("command failed", "err", err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	var envFiles []string

	root := &cobra.Command{
		Use:           "opscore",
		Short:         "Attendance, time tracking and compensation service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.LoadDotEnv(envFiles...)
			cfg := config.Load()
			slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
		},
	}
	root.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load before reading configuration")

	root.AddCommand(serveCommand(), migrateCommand(), importCommand(), templateCommand(), payableCommand())
	return root
}

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := server.New(ctx, config.Load())
			if err != nil {
				return err
			}
			defer app.Close()
			return app.Serve(ctx)
		},
	}
}

func migrateCommand() *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			cfg.RunMigrations = true
			cfg.RunSeed = seed
			app, err := server.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			app.Close()
			slog.Info("migrations applied", "dir", cfg.MigrationsDir, "seeded", seed)
			return nil
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", true, "seed roles and permissions after migrating")
	return cmd
}

// openApp builds the application for one-shot commands without touching the schema.
func openApp(ctx context.Context) (*server.App, error) {
	cfg := config.Load()
	cfg.RunMigrations = false
	cfg.RunSeed = false
	return server.New(ctx, cfg)
}

func importCommand() *cobra.Command {
	var month, file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Reconcile an attendance sheet into records for a month",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open %s: %w", file, err)
			}
			defer f.Close()

			app, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.Imports.Import(cmd.Context(), cliActor, month, file, f)
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "target month as YYYY-MM")
	cmd.Flags().StringVar(&file, "file", "", "csv, xlsx or xls sheet to import")
	_ = cmd.MarkFlagRequired("month")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func templateCommand() *cobra.Command {
	var month, format, output string
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Write a blank attendance sheet for every active employee",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			tmpl, err := app.Imports.Template(cmd.Context(), month, format)
			if err != nil {
				return err
			}
			if output == "" {
				output = tmpl.Filename
			}
			if err := os.WriteFile(output, tmpl.Body, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "month as YYYY-MM")
	cmd.Flags().StringVar(&format, "format", "csv", "csv or xlsx")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output path, defaults to the generated file name")
	_ = cmd.MarkFlagRequired("month")
	return cmd
}

func payableCommand() *cobra.Command {
	var period, employeeID string
	cmd := &cobra.Command{
		Use:   "payable",
		Short: "Compute payable amounts for one employee or everyone in a period",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			if employeeID != "" {
				payable, err := app.Compensation.ComputePayable(cmd.Context(), employeeID, period)
				if err != nil {
					return err
				}
				return printJSON(cmd, payable)
			}
			run, err := app.Compensation.ComputePeriod(cmd.Context(), cliActor, period)
			if err != nil {
				return err
			}
			return printJSON(cmd, run)
		},
	}
	cmd.Flags().StringVar(&period, "period", "", "period as YYYY-MM")
	cmd.Flags().StringVar(&employeeID, "employee", "", "limit to one employee id")
	_ = cmd.MarkFlagRequired("period")
	return cmd
}

func printJSON(cmd *cobra.Command, value any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
