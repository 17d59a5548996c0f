package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"pxfollow/pkg/ui"
)

var (
	version   = "0.1.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile    string
	logLevel      string
	notifications bool
	quiet         bool
)

var rootCmd = &cobra.Command{
	Use:   "pxfollow",
	Short: "Switch all of your Pixiv follows between public and private",
	Long: `pxfollow changes the visibility of every account you follow on Pixiv.

Two strategies are available:
  api  enumerates your follows through Pixiv's AJAX API and switches each
       one with a paced request. Fast, resumable and reported per account.
  ui   drives the following page of a Chrome tab, clicking the visibility
       toggle of one follow at a time.

Both change follows to private by default. Use --direction public to undo.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet {
			ui.SetQuietMode(true)
		}
		switch cmd.Name() {
		case "version", "help", "show", "list":
		default:
			ui.PrintLogo()
		}
	},
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !isReported(err) {
			ui.PrintError("Error", err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is $HOME/.config/pxfollow/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&notifications, "notifications", true, "enable desktop notifications")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")

	rootCmd.SetVersionTemplate(`pxfollow {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
