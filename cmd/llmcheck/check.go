package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jdgilhuly/llmcheck/pkg/check"
	"github.com/jdgilhuly/llmcheck/pkg/config"
	"github.com/jdgilhuly/llmcheck/pkg/report"
	"github.com/jdgilhuly/llmcheck/pkg/trace"
	"github.com/jdgilhuly/llmcheck/pkg/vendor"
	"github.com/spf13/cobra"
)

// personalityFile is the personality config shared by all vendors.
const personalityFile = "test_personality.yaml"

func newVendorCmd(name string) *cobra.Command {
	v, _ := vendor.Lookup(name)
	return &cobra.Command{
		Use:   name,
		Short: fmt.Sprintf("Check connectivity to the %s API", v.DisplayName),
		Long: fmt.Sprintf(`Send a short conversation to the %s API and report the outcome.

Reads the API key from %s, defaults from providers/%s
and the system prompt from personalities/%s.`,
			v.DisplayName, v.APIKeyEnv, v.ConfigFile(), personalityFile),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, v, false)
		},
	}
}

// --- validate command ---

var validateCmd = &cobra.Command{
	Use:   "validate <vendor>",
	Short: "Validate the environment and config files without calling the API",
	Long: `Resolve the API key, load both config files, map the generation
parameters and build the conversation, then print what would be sent.
No request is made.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, ok := vendor.Lookup(args[0])
		if !ok {
			return fmt.Errorf("unknown vendor %q (supported: %v)", args[0], vendor.Names())
		}
		return runCheck(cmd, v, true)
	},
}

type checkFlags struct {
	envFile         string
	configDir       string
	providerPath    string
	personalityPath string
	model           string
	baseURL         string
	verbose         bool
	noColor         bool
	markdown        bool
	traceOut        string
	strict          bool
}

func readFlags(cmd *cobra.Command) checkFlags {
	f := cmd.Flags()
	var cf checkFlags
	cf.envFile, _ = f.GetString("env-file")
	cf.configDir, _ = f.GetString("config-dir")
	cf.providerPath, _ = f.GetString("provider-config")
	cf.personalityPath, _ = f.GetString("personality-config")
	cf.model, _ = f.GetString("model")
	cf.baseURL, _ = f.GetString("base-url")
	cf.verbose, _ = f.GetBool("verbose")
	cf.noColor, _ = f.GetBool("no-color")
	cf.markdown, _ = f.GetBool("markdown")
	cf.traceOut, _ = f.GetString("trace-out")
	cf.strict, _ = f.GetBool("strict")
	return cf
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func runCheck(cmd *cobra.Command, v vendor.Vendor, planOnly bool) error {
	cf := readFlags(cmd)
	logger := newLogger(cmd.ErrOrStderr(), cf.verbose)

	if err := config.LoadDotEnv(cf.envFile); err != nil {
		logger.Warn("could not load env file", "path", cf.envFile, "error", err)
	}

	providerPath := cf.providerPath
	if providerPath == "" {
		providerPath = filepath.Join(cf.configDir, "providers", v.ConfigFile())
	}
	personalityPath := cf.personalityPath
	if personalityPath == "" {
		personalityPath = filepath.Join(cf.configDir, "personalities", personalityFile)
	}

	color := !cf.noColor && os.Getenv("NO_COLOR") == ""
	var reportOpts []report.Option
	if cf.markdown {
		reportOpts = append(reportOpts, report.WithMarkdown(0))
	}
	r := &check.Runner{
		Vendor:          v,
		Getenv:          os.Getenv,
		Reporter:        report.New(cmd.OutOrStdout(), color, reportOpts...),
		Logger:          logger,
		Trace:           trace.New(v.Name),
		ProviderPath:    providerPath,
		PersonalityPath: personalityPath,
		Model:           cf.model,
		BaseURL:         cf.baseURL,
		Strict:          cf.strict,
	}
	logger.Debug("starting check",
		"vendor", v.Name,
		"provider_config", providerPath,
		"personality_config", personalityPath,
		"plan_only", planOnly,
	)

	var o *check.Outcome
	if planOnly {
		o = r.Plan(cmd.Context())
	} else {
		o = r.Run(cmd.Context())
	}

	if cf.traceOut != "" {
		if err := writeTrace(cf.traceOut, r.Trace); err != nil {
			return err
		}
		logger.Debug("trace written", "path", cf.traceOut)
	}

	if planOnly {
		if o.State != check.StateConversationBuilt {
			return errCheckFailed
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\nConfiguration for %s is valid.\n", v.DisplayName)
		return nil
	}
	if !o.OK() && cf.strict {
		return errCheckFailed
	}
	return nil
}

func writeTrace(path string, t *trace.CheckTrace) error {
	data, err := t.JSON()
	if err != nil {
		return fmt.Errorf("encoding trace: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing trace %s: %w", path, err)
	}
	return nil
}
