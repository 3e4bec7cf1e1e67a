package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/nfrund/roster/internal/config"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// fsys is swapped for an in-memory filesystem in tests.
var fsys afero.Fs = afero.NewOsFs()

var cacheDir string

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "roster-cli",
		Short: "Roster CLI tool",
		Long: `Roster CLI inspects and maintains the persisted user data cache.

Available commands:
  cache      List, show, clear and prune cached user data entries
  version    Print the CLI version

Use "roster-cli [command] --help" for more information about a specific command.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cacheDir, "dir", "", "cache directory (defaults to CACHE_DIR)")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if cacheDir == "" {
			_ = godotenv.Load()
			cacheDir = config.FromEnv().CacheDir
		}
	}
	root.AddCommand(newVersionCmd(), newCacheCmd())
	return root
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
