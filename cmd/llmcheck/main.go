package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jdgilhuly/llmcheck/pkg/vendor"
	"github.com/spf13/cobra"
)

// errCheckFailed is returned when a check did not succeed and the caller
// asked for a non-zero exit. The diagnostic has already been printed.
var errCheckFailed = errors.New("connectivity check failed")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errCheckFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "llmcheck",
	Short: "Connectivity checks for hosted LLM APIs",
	Long: `Send one short, fixed conversation to a hosted LLM API and report
whether the API key, model name, network path and config files work.

Each vendor reads its API key from the environment (a .env file is loaded
first), its defaults from config/providers/<vendor>.yaml and the system
prompt from config/personalities/test_personality.yaml.

Use 'llmcheck init' to scaffold the config files, then
'llmcheck anthropic' or 'llmcheck gemini' to run a check.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// --- vendors command ---

var vendorsCmd = &cobra.Command{
	Use:   "vendors",
	Short: "List supported vendors",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for _, name := range vendor.Names() {
			v, _ := vendor.Lookup(name)
			fmt.Fprintf(out, "  %-10s %-8s key=%-18s model=%s\n", v.Name, v.DisplayName, v.APIKeyEnv, v.DefaultModel)
		}
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("env-file", ".env", "Path to the .env file loaded before the check")
	pf.String("config-dir", "config", "Directory holding providers/ and personalities/")
	pf.String("provider-config", "", "Provider config file (default: <config-dir>/providers/<vendor>.yaml)")
	pf.String("personality-config", "", "Personality config file (default: <config-dir>/personalities/test_personality.yaml)")
	pf.StringP("model", "m", "", "Override the model name")
	pf.String("base-url", "", "Override the API base URL")
	pf.BoolP("verbose", "v", false, "Enable debug logging on stderr")
	pf.Bool("no-color", false, "Disable colored output")
	pf.Bool("markdown", false, "Render the response text as markdown")
	pf.String("trace-out", "", "Write a JSON trace of the check to this file")
	pf.Bool("strict", false, "Exit non-zero on failure and treat empty responses as failures")

	for _, name := range vendor.Names() {
		rootCmd.AddCommand(newVendorCmd(name))
	}
	initCmd.Flags().BoolP("interactive", "i", false, "Choose vendors, models and the system prompt interactively")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(vendorsCmd)
	rootCmd.AddCommand(initCmd)
}
