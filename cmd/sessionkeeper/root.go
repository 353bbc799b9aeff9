package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/entrhq/sessionkeeper/pkg/config"
	"github.com/entrhq/sessionkeeper/pkg/logging"
)

var (
	// Global flags
	cfgFile  string
	envFiles []string
	verbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "sessionkeeper",
	Short: "Keep a browser session logged in while an agent works",
	Long: `sessionkeeper polls a browser page for signs that the login session
has expired and repairs it: first by pressing the page's retry button, then
by logging in again with the configured credentials.

Commands:
  watch    Open a browser on a URL and keep its session alive
  run      Visit a list of URLs in order, recovering the session as needed
  check    Inspect a saved page, a fetched URL or a live page once
  config   Show, change or reset the saved settings
  version  Show version information

Credentials are read from GOOGLE_EMAIL and GOOGLE_PASSWORD, in the
environment or in a .env file.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ~/.sessionkeeper/config.json)")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "Dotenv files to load (default: .env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log to stderr instead of the log file")
}

// loadSettings reads dotenv files, the environment and the config file, in
// increasing order of precedence: defaults, file, environment.
func loadSettings() (*config.Settings, error) {
	env, err := initConfig()
	if err != nil {
		return nil, err
	}
	return config.Resolve(config.Global(), env)
}

// initConfig loads the environment and initializes the global config from
// --config, SESSIONKEEPER_CONFIG or the default path.
func initConfig() (config.Env, error) {
	env, err := config.LoadEnv(envFiles...)
	if err != nil {
		return env, err
	}

	path := cfgFile
	if path == "" {
		path = env.ConfigFile
	}
	if path == "" {
		if path, err = config.DefaultConfigPath(); err != nil {
			return env, err
		}
	}

	if err := config.Initialize(path); err != nil {
		return env, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	return env, nil
}

// newLogger returns the command logger. The caller closes it.
func newLogger(component string) *logging.Logger {
	if verbose {
		return logging.NewWriterLogger(component, os.Stderr)
	}
	// NewLogger falls back to stderr on error
	l, _ := logging.NewLogger(component)
	return l
}
