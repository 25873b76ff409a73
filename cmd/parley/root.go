package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/parley/pkg/cli"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Parley - streaming chat relay for DeepSeek",
	Long: `Parley relays chat turns to the DeepSeek completion API and streams the
reply back to the browser as it is generated.

Each browser session owns a bounded conversation transcript. The relay
serves four routes under the API prefix:
  - POST /chat    send a message and stream the reply
  - GET  /ping    check that the upstream answers
  - POST /commit  append the rendered reply to the transcript
  - POST /reset   clear the transcript

Configuration comes from an optional YAML file, PARLEY_* environment
variables and the DEEPSEEK_REAL_KEY, MAX_HISTORY, REQUEST_TIMEOUT_SEC,
SECRET_KEY and CORS_ORIGINS variables.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the code matching the
// returned error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults and environment only when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}
