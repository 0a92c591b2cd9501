// Package cmd holds the crawl-console command tree.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/crawl-console/internal/command"
	"github.com/JakeFAU/crawl-console/internal/config"
	"github.com/JakeFAU/crawl-console/internal/jobs"
	"github.com/JakeFAU/crawl-console/internal/report"
	"github.com/JakeFAU/crawl-console/internal/server"
	"github.com/JakeFAU/crawl-console/internal/stream"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App is what subcommands use. Tests swap in their own via newApp.
type App interface {
	Run(ctx context.Context) error
	Close() error
	Logger() *zap.Logger
	Store() *jobs.Store
	Commands() *command.Client
	Reports() *report.Controller
	Exporter() *report.Exporter
	Stream() *stream.Client
}

// newApp is the application factory.
var newApp = func(ctx context.Context, cfg *config.Config) (App, error) {
	return server.Build(ctx, cfg)
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "crawl-console",
		Short: "Operator console for the crawl backend.",
		Long: `crawl-console mirrors the crawl backend's live job stream, forwards job
commands and drives the reporting workflow, from a browser dashboard or
straight from the terminal.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			appInstance, err := newApp(cmd.Context(), &cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},

		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if appInstance, ok := appFrom(cmd); ok {
				return appInstance.Close()
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML, JSON or TOML)")

	cmd.AddCommand(newServeCmd(), newJobCmd(), newWatchCmd(), newReportCmd())
	return cmd
}

func appFrom(cmd *cobra.Command) (App, bool) {
	a, ok := cmd.Context().Value(appKey).(App)
	return a, ok && a != nil
}

func mustApp(cmd *cobra.Command) (App, error) {
	a, ok := appFrom(cmd)
	if !ok {
		return nil, fmt.Errorf("application not initialized")
	}
	return a, nil
}

// Execute runs the root command.
func Execute() {
	root := newRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
