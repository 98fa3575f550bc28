package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/jdgilhuly/llmcheck/pkg/config"
	"github.com/jdgilhuly/llmcheck/pkg/vendor"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const defaultPersonalityPrompt = "You are a friendly assistant used for API connectivity checks. Keep every answer to one short sentence."

// --- init command ---

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Scaffold config files for connectivity checks",
	Long: `Create example config files for the supported vendors.

Creates the following structure:
  config/providers/<vendor>.yaml              - Default model and parameters
  config/personalities/test_personality.yaml  - System prompt
  .env.example                                - API key variables

Existing files are left untouched. With --interactive, pick the vendors,
their default models and the system prompt first.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

// initChoices is what gets scaffolded.
type initChoices struct {
	Vendors      []string
	Models       map[string]string
	SystemPrompt string
}

func defaultInitChoices() initChoices {
	c := initChoices{
		Vendors:      vendor.Names(),
		Models:       make(map[string]string),
		SystemPrompt: defaultPersonalityPrompt,
	}
	for _, name := range c.Vendors {
		v, _ := vendor.Lookup(name)
		c.Models[name] = v.DefaultModel
	}
	return c
}

// promptInitChoices asks for vendors first, then one model per chosen
// vendor and the system prompt.
func promptInitChoices(c *initChoices) error {
	opts := make([]huh.Option[string], 0, len(c.Vendors))
	for _, name := range vendor.Names() {
		v, _ := vendor.Lookup(name)
		opts = append(opts, huh.NewOption(v.DisplayName+" ("+v.APIKeyEnv+")", name).Selected(true))
	}
	if err := huh.NewForm(huh.NewGroup(
		huh.NewMultiSelect[string]().
			Title("Vendors to scaffold").
			Options(opts...).
			Value(&c.Vendors),
	)).Run(); err != nil {
		return err
	}
	if len(c.Vendors) == 0 {
		return fmt.Errorf("no vendors selected")
	}

	models := make([]string, len(c.Vendors))
	fields := make([]huh.Field, 0, len(c.Vendors)+1)
	for i, name := range c.Vendors {
		models[i] = c.Models[name]
		fields = append(fields, huh.NewInput().
			Title(name+" default model").
			Value(&models[i]).
			Validate(validateModel))
	}
	fields = append(fields, huh.NewText().Title("System prompt").Value(&c.SystemPrompt))
	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		return err
	}

	for i, name := range c.Vendors {
		c.Models[name] = strings.TrimSpace(models[i])
	}
	return nil
}

func validateModel(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("model name is required")
	}
	return nil
}

func runInit(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	configDir, _ := cmd.Flags().GetString("config-dir")
	interactive, _ := cmd.Flags().GetBool("interactive")

	choices := defaultInitChoices()
	if interactive {
		if err := promptInitChoices(&choices); err != nil {
			return err
		}
	}

	providersDir := filepath.Join(configDir, "providers")
	personalitiesDir := filepath.Join(configDir, "personalities")
	for _, d := range []string{providersDir, personalitiesDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
		fmt.Fprintf(out, "  created %s/\n", d)
	}

	for _, name := range choices.Vendors {
		v, ok := vendor.Lookup(name)
		if !ok {
			return fmt.Errorf("unknown vendor %q", name)
		}
		path := filepath.Join(providersDir, v.ConfigFile())
		if err := writeExampleProvider(out, path, v, choices.Models[name]); err != nil {
			return err
		}
	}
	if err := writeExamplePersonality(out, filepath.Join(personalitiesDir, personalityFile), choices.SystemPrompt); err != nil {
		return err
	}
	if err := writeEnvExample(out, ".env.example", choices.Vendors); err != nil {
		return err
	}

	fmt.Fprintln(out, "\nConfig initialized. Copy .env.example to .env, fill in your keys, then run 'llmcheck validate <vendor>'.")
	return nil
}

func writeYAML(out io.Writer, path string, data any) error {
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(out, "  skipped %s (already exists)\n", path)
		return nil
	}

	b, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", path, err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Fprintf(out, "  created %s\n", path)
	return nil
}

// writeExampleProvider spells each parameter the way the vendor's own API
// does, which is the highest-precedence spelling in its table.
func writeExampleProvider(out io.Writer, path string, v vendor.Vendor, model string) error {
	if model == "" {
		model = v.DefaultModel
	}
	defaults := map[string]any{}
	for _, rule := range v.Params {
		switch {
		case rule.Default != nil:
			defaults[rule.Sources[0]] = rule.Default
		case rule.Target == "temperature":
			defaults[rule.Sources[0]] = 0.7
		}
	}
	data := config.ProviderConfig{
		DefaultModel:      model,
		DefaultParameters: defaults,
	}
	return writeYAML(out, path, data)
}

func writeExamplePersonality(out io.Writer, path, prompt string) error {
	data := config.PersonalityConfig{
		Name:         "test_personality",
		SystemPrompt: &prompt,
	}
	return writeYAML(out, path, data)
}

func writeEnvExample(out io.Writer, path string, vendors []string) error {
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(out, "  skipped %s (already exists)\n", path)
		return nil
	}

	var sb strings.Builder
	for _, name := range vendors {
		v, _ := vendor.Lookup(name)
		fmt.Fprintf(&sb, "# %s\n%s=\n", v.DisplayName, v.APIKeyEnv)
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Fprintf(out, "  created %s\n", path)
	return nil
}
