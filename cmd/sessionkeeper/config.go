package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/entrhq/sessionkeeper/pkg/config"
	"github.com/entrhq/sessionkeeper/pkg/logging"
)

const maskedPassword = "********"

var errNoChanges = errors.New("no settings given")

var (
	setEmail            string
	setPassword         string
	setPollInterval     time.Duration
	setMaxLoginAttempts int
	setRulesFile        string
	setHeadless         bool
	setStorageState     string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show, change or reset the saved settings",
	Long: `Manage the settings file read by watch, run and check. Environment
variables still override whatever is saved here.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the saved settings",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change saved settings",
	Long: `Update the settings named by flags and save them. Settings without a
flag keep their current value.

Example:
  sessionkeeper config set --email agent@example.com --poll-interval 30s`,
	Args: cobra.NoArgs,
	RunE: runConfigSet,
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the default settings and clear saved credentials",
	Args:  cobra.NoArgs,
	RunE:  runConfigReset,
}

func init() {
	flags := configSetCmd.Flags()
	flags.StringVar(&setEmail, "email", "", "Login email")
	flags.StringVar(&setPassword, "password", "", "Login password")
	flags.DurationVar(&setPollInterval, "poll-interval", 0, "Time between session checks")
	flags.IntVar(&setMaxLoginAttempts, "max-login-attempts", 0, "Login attempts per expiry")
	flags.StringVar(&setRulesFile, "rules-file", "", "YAML file with expiry rules")
	flags.BoolVar(&setHeadless, "headless", false, "Run the browser without a window")
	flags.StringVar(&setStorageState, "storage-state", "", "File that keeps cookies between runs")

	configCmd.AddCommand(configShowCmd, configSetCmd, configResetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if _, err := initConfig(); err != nil {
		return err
	}
	return showConfig(cmd.OutOrStdout(), config.Global())
}

func runConfigSet(cmd *cobra.Command, _ []string) error {
	if _, err := initConfig(); err != nil {
		return err
	}
	manager := config.Global()

	monitor := map[string]any{}
	flags := cmd.Flags()
	if flags.Changed("poll-interval") {
		monitor["poll_interval"] = setPollInterval.String()
	}
	if flags.Changed("max-login-attempts") {
		monitor["max_login_attempts"] = setMaxLoginAttempts
	}
	if flags.Changed("rules-file") {
		monitor["rules_file"] = setRulesFile
	}
	if flags.Changed("headless") {
		monitor["headless"] = setHeadless
	}
	if flags.Changed("storage-state") {
		monitor["storage_state"] = setStorageState
	}

	credsChanged := flags.Changed("email") || flags.Changed("password")
	if len(monitor) == 0 && !credsChanged {
		return errNoChanges
	}

	if len(monitor) > 0 {
		if err := config.GetMonitor().SetData(monitor); err != nil {
			return err
		}
	}
	if credsChanged {
		creds := config.GetCredentials()
		var email, password string
		if c := creds.Credentials(); c != nil {
			email, password = c.Email, c.Password
		}
		if flags.Changed("email") {
			email = setEmail
		}
		if flags.Changed("password") {
			password = setPassword
		}
		creds.SetCredentials(email, password)
	}

	if err := manager.SaveAll(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", storePath(manager))
	return nil
}

func runConfigReset(cmd *cobra.Command, _ []string) error {
	if _, err := initConfig(); err != nil {
		return err
	}
	manager := config.Global()

	manager.ResetAll()
	if err := manager.SaveAll(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Reset %s to defaults\n", storePath(manager))
	return nil
}

// showConfig prints every section of m with the password masked.
func showConfig(out io.Writer, m *config.Manager) error {
	fmt.Fprintf(out, "Config file:   %s\n", storePath(m))
	if dir, err := logging.GetLogDirectory(); err == nil {
		fmt.Fprintf(out, "Log directory: %s\n", dir)
	}

	for _, section := range m.GetSections() {
		fmt.Fprintf(out, "\n[%s] %s\n", section.ID(), section.Title())

		data := section.Data()
		keys := make([]string, 0, len(data))
		for k := range data {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			v := data[k]
			if k == "password" && v != "" {
				v = maskedPassword
			}
			fmt.Fprintf(out, "  %s: %v\n", k, v)
		}
	}
	return nil
}

func storePath(m *config.Manager) string {
	if s, ok := m.Store().(interface{ Path() string }); ok {
		return s.Path()
	}
	return "(memory)"
}
