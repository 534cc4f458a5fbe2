package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/wesm/redmine-tracker/config"
)

var (
	configPath string
	verbose    bool
	jsonOutput bool
	remember   bool
)

var rootCmd = &cobra.Command{
	Use:   "redmine-tracker",
	Short: "Browse Redmine projects and issues and log time",
	Long: `redmine-tracker logs in to a Redmine server, lists its projects and the
issues of a project, and records time entries.

Credentials come from the configuration file, the ` + config.EnvURL + `, ` + config.EnvAPIKey + `,
` + config.EnvAccessToken + `, ` + config.EnvLogin + ` and ` + config.EnvPassword + ` environment variables, or the login
remembered by a previous "login --remember".`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.json", "Path to configuration file (.json, .yaml or .yml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(issuesCmd)
	rootCmd.AddCommand(overviewCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(logTimeCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
