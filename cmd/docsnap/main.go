package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"docsnap/internal/app"
	"docsnap/internal/config"
	"docsnap/internal/docsnap"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

var timeout time.Duration

// newApp reads the config and creates an App. The caller must defer a.Close().
func newApp() (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults.ConfigPath, defaults.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(cfg, app.Options{LogLevel: defaults.LogLevel})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// operationContext applies --timeout and cancels on SIGINT or SIGTERM.
func operationContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	if timeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

var rootCmd = &cobra.Command{
	Use:          "docsnap",
	Short:        "Back up a Chroma document store to git and restore it",
	SilenceUsage: true,
	RunE:         runCheck,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the store and restore it from the repository if it is empty",
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := operationContext(cmd)
	defer cancel()

	report, err := a.Check(ctx)
	switch {
	case report.Restored > 0:
		fmt.Printf("%s: restored %d documents (%s)\n", report.Status, report.Restored, report.Reason)
	case report.Status == docsnap.Healthy:
		fmt.Printf("%s: %d documents in primary collection\n", report.Status, report.Documents)
	default:
		fmt.Printf("%s: %s\n", report.Status, report.Reason)
	}
	return err
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Publish a snapshot of every collection to the repository",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := operationContext(cmd)
		defer cancel()

		result, err := a.Backup(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Backed up %d collections, %d documents\n", result.Snapshot.TotalCollections, result.Documents)
		for _, name := range result.Skipped {
			fmt.Printf("Skipped: %s\n", name)
		}
		return nil
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Replace the store contents with the latest snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := operationContext(cmd)
		defer cancel()

		n, err := a.Restore(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Restored %d documents\n", n)
		return nil
	},
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Check the store, then back up periodically until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		// --timeout bounds each operation, not the whole loop
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return a.Schedule(ctx, timeout)
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent operations",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.History(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		for _, op := range ops {
			duration := "-"
			if op.FinishedAt != nil {
				duration = op.Duration().Round(time.Millisecond).String()
			}
			fmt.Printf("%s  %-8s %-8s %8s  %6d docs  %s\n",
				op.StartedAt.Local().Format("2006-01-02 15:04:05"), op.Name, op.Status, duration, op.Documents, op.Detail)
		}
		return nil
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with default settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults.BaseDir)
		if err := config.Init(defaults.ConfigPath, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults.ConfigPath)
		fmt.Printf("Data Dir: %s\n", defaults.BaseDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults.ConfigPath, defaults.BaseDir)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		resolver := &config.Resolver{SecretPath: cfg.SecretFile}
		eff, err := resolver.Resolve()
		if err != nil {
			return fmt.Errorf("failed to resolve secrets: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults.ConfigPath)
		fmt.Printf("Secret File:  %s\n", cfg.SecretFile)
		fmt.Printf("Log Dir:      %s\n", cfg.LogDir)
		fmt.Printf("Work Dir:     %s\n", cfg.Repository.WorkDir)
		fmt.Printf("Branch:       %s\n", cfg.Repository.Branch)
		fmt.Printf("Store:        %s\n", cfg.Store.Type)
		fmt.Printf("Primary:      %s\n", cfg.Transfer.PrimaryCollection)
		fmt.Printf("Batch Size:   %d\n", cfg.Transfer.BatchSize)
		fmt.Printf("History:      %s\n", cfg.History.Path)
		fmt.Printf("Schedule:     every %s after %s\n", cfg.Schedule.Interval, cfg.Schedule.InitialDelay)
		fmt.Printf("Effective:    %s\n", eff)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "abort an operation after this long (0 means no limit)")

	historyCmd.Flags().IntP("limit", "n", 20, "number of operations to show")

	configCmd.AddCommand(configInitCmd, configListCmd)
	rootCmd.AddCommand(checkCmd, backupCmd, restoreCmd, scheduleCmd, historyCmd, configCmd)
}

