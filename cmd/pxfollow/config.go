package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"pxfollow/pkg/config"
	"pxfollow/pkg/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage pxfollow configuration files.

Configuration is loaded from, highest priority first:
  - command line flags
  - environment variables (PXFOLLOW_*)
  - .env files (./.env and ~/.pxfollow.env)
  - the configuration file
  - default values`,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with every option at its default",
	Long: `Write a configuration file holding the default value of every option.

The file goes to the --config path, or ~/.config/pxfollow/config.yaml.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after merging every source. The session cookie
is masked.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration for errors",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".config", "pxfollow", "config.yaml")
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file already exists: %s", path)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}

	ui.PrintSuccess("Configuration file created: " + path)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Store your session cookie with 'pxfollow auth login'")
	fmt.Println("2. Check the file with 'pxfollow config validate'")
	fmt.Println("3. Switch your follows with 'pxfollow api'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}
	return writeMaskedConfig(os.Stdout, cfg)
}

// writeMaskedConfig prints cfg as YAML with the session cookie masked
func writeMaskedConfig(w io.Writer, cfg *config.Config) error {
	display := *cfg
	display.Pixiv.SessionCookie = maskSecret(display.Pixiv.SessionCookie)

	data, err := yaml.Marshal(&display)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}
	_, err = w.Write(data)
	return err
}

func maskSecret(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) > 8:
		return s[:4] + "..." + s[len(s)-4:]
	default:
		return "***"
	}
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	if cfg.Pixiv.SessionCookie == "" {
		ui.PrintWarning("No session cookie configured; 'pxfollow api' will use a stored account")
	}
	if cfg.Output.ReportDirectory != "" {
		if err := os.MkdirAll(cfg.Output.ReportDirectory, 0755); err != nil {
			return fmt.Errorf("cannot create report directory: %w", err)
		}
	}

	ui.PrintSuccess("Configuration is valid")
	ui.PrintInfo("Direction", cfg.Run.Direction)
	ui.PrintInfo("Mutation delay", cfg.Pacing.MutationDelay.String())
	ui.PrintInfo("Log level", cfg.Logging.Level)
	return nil
}
