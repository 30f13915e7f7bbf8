package cmd

import (
	"fmt"
	"os"

	"github.com/fadbs/anidb-cache/pkg/config"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "anidb-cache",
	Short: "AniDB series metadata cache",
	Long: `AniDB metadata cache - a local series resolution and metadata service

Resolves loosely specified anime titles (or AniDB ids) to canonical
series records, caching metadata locally and refreshing it from the
AniDB HTTP API under its rate and ban limits.

Features:
  • Exact and fuzzy title resolution against the cached title index
  • Tag/genre hierarchy import with a configurable exclusion policy
  • Staleness-aware refreshes honoring AniDB's 24h cache rule
  • Persisted session budget and ban state across restarts`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

// initConfig loads the configuration before any command runs
func initConfig() {
	cmd, _, _ := rootCmd.Find(os.Args[1:])
	if cmd != nil && (cmd.Name() == "version" || cmd.Name() == "help") {
		return
	}
	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
}
