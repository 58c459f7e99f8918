package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/opengovern/og-session/internal/auth"
	"github.com/opengovern/og-session/internal/config"
	"github.com/opengovern/og-session/pkg/logging"
)

// Exit codes for CLI commands. These follow common conventions so scripts
// can distinguish "not logged in" from "login attempt failed".
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeAuthRequired indicates no valid session exists.
	ExitCodeAuthRequired = 2
	// ExitCodeAuthFailed indicates the login flow failed.
	ExitCodeAuthFailed = 3
)

// Global flags
var (
	configPath string
	logLevel   string
)

// rootCmd is the base command for og-session.
var rootCmd = &cobra.Command{
	Use:   "og-session",
	Short: "Manage the OpenGovernance dashboard session",
	Long: `og-session manages the local OpenID Connect session used by the
OpenGovernance dashboard: browser-based login, logout, and inspection
of the stored credential.

The session is kept in a durable slot under the user config directory,
so a still-valid credential survives restarts without re-authenticating.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(logging.ParseLevel(logLevel), os.Stderr)
	},
}

// SetVersion sets the version for the root command, injected at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute runs the root command and maps known failures to exit codes.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "og-session version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the exit code based on the error type.
func getExitCode(err error) int {
	if errors.Is(err, auth.ErrAuthRequired) {
		return ExitCodeAuthRequired
	}

	var loginErr *loginFailedError
	if errors.As(err, &loginErr) {
		return ExitCodeAuthFailed
	}

	return ExitCodeError
}

// loginFailedError marks a login flow that ran but did not produce a
// credential, as opposed to a wiring error.
type loginFailedError struct {
	reason string
}

func (e *loginFailedError) Error() string {
	return "login failed: " + e.reason
}

// loadConfig reads the configuration file named by --config, or the default
// location when unset.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		var err error
		path, err = config.DefaultConfigPath()
		if err != nil {
			return nil, err
		}
	}
	return config.Load(path)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default is $HOME/.config/og-session/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newStatusCmd())
}
