package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/truthcheck/truthcheck/internal/config"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage TruthCheck configuration",
	Long: `Manage TruthCheck configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (TRUTHCHECK_*)
3. Config file (~/.truthcheck/config.yaml)
4. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long:  `Display the effective configuration after layering defaults, the config file, and TRUTHCHECK_* environment variables. API keys are redacted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		display := *cfg
		display.Models.Providers = redactedProviders(cfg.Models.Providers)

		yamlData, err := yaml.Marshal(&display)
		if err != nil {
			return eris.Wrap(err, "marshal config")
		}

		fmt.Println("═══════════════════════════════════════════════════════════")
		fmt.Println("  Effective Configuration")
		fmt.Println("═══════════════════════════════════════════════════════════")
		fmt.Println()
		fmt.Println(string(yamlData))
		fmt.Println("═══════════════════════════════════════════════════════════")
		fmt.Println()
		fmt.Println("Configuration hierarchy (highest to lowest priority):")
		fmt.Println("  1. CLI flags")
		fmt.Println("  2. Environment variables (TRUTHCHECK_*, plus OPENAI_API_KEY,")
		fmt.Println("     ANTHROPIC_API_KEY, HUGGINGFACE_API_KEY)")
		fmt.Println("  3. Config file (~/.truthcheck/config.yaml or --config)")
		fmt.Println("  4. Defaults")
		fmt.Println()

		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a default configuration file",
	Long:  `Create a default configuration file at ~/.truthcheck/config.yaml.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		home, err := os.UserHomeDir()
		if err != nil {
			return eris.Wrap(err, "find home directory")
		}

		configDir := filepath.Join(home, ".truthcheck")
		configPath := filepath.Join(configDir, "config.yaml")

		if _, err := os.Stat(configPath); err == nil {
			return eris.Errorf("config file already exists: %s\nUse 'truthcheck config show' to view it, or delete it first to recreate", configPath)
		}

		if err := os.MkdirAll(configDir, 0755); err != nil {
			return eris.Wrap(err, "create config directory")
		}

		yamlData, err := yaml.Marshal(config.DefaultConfig())
		if err != nil {
			return eris.Wrap(err, "marshal config")
		}

		header := `# TruthCheck configuration file
#
# Configuration hierarchy (highest to lowest priority):
#   1. CLI flags
#   2. Environment variables (TRUTHCHECK_*)
#   3. This config file
#   4. Built-in defaults
#
# API keys are best supplied through the environment:
#   export HUGGINGFACE_API_KEY=hf_...
#   export OPENAI_API_KEY=sk-...
#   export ANTHROPIC_API_KEY=sk-ant-...

`
		if err := os.WriteFile(configPath, append([]byte(header), yamlData...), 0644); err != nil {
			return eris.Wrap(err, "write config file")
		}

		fmt.Printf("✓ Created default configuration: %s\n", configPath)
		fmt.Printf("\nTo view the effective configuration:\n")
		fmt.Printf("  truthcheck config show\n")
		fmt.Printf("\nTo customize, edit the file with your preferred editor:\n")
		fmt.Printf("  $EDITOR %s\n", configPath)
		fmt.Printf("\n")

		return nil
	},
}

// redactedProviders copies the provider map with API keys masked for display
func redactedProviders(in map[string]config.ProviderConfig) map[string]config.ProviderConfig {
	out := make(map[string]config.ProviderConfig, len(in))
	for name, pc := range in {
		if pc.APIKey != "" {
			pc.APIKey = "[redacted]"
		}
		out[name] = pc
	}
	return out
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
