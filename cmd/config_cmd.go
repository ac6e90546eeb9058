package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/datasync-solution/bmc-analyst/internal/config"
	"github.com/datasync-solution/bmc-analyst/internal/telemetry"
)

// appFs is the filesystem the commands read and write. Tests swap it for a
// MemMapFs.
var appFs = afero.NewOsFs()

// configCmd is the parent config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage BMC Analyst configuration",
	Long:  `View and manage BMC Analyst configuration settings.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if f := viper.ConfigFileUsed(); f != "" {
			fmt.Fprintf(out, "Config file: %s\n", f)
		} else {
			fmt.Fprintln(out, "Config file: none (defaults and environment)")
		}
		fmt.Fprintf(out, "Data dir:    %s\n\n", config.DataDir())

		keys := viper.AllKeys()
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(out, "%s = %v\n", k, displayValue(k, viper.Get(k)))
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := writableConfigPath()
		if err != nil {
			return err
		}
		if err := config.SetValues(appFs, path, map[string]any{args[0]: args[1]}); err != nil {
			return fmt.Errorf("failed to update config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ %s updated in %s\n", args[0], path)
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !viper.IsSet(args[0]) {
			return fmt.Errorf("%s is not set", args[0])
		}
		fmt.Fprintln(cmd.OutOrStdout(), displayValue(args[0], viper.Get(args[0])))
		return nil
	},
}

var configLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Choose the LLM provider and model",
	Long: `Stores the provider, model and optionally the API key in the config file.
Supported providers: openai, anthropic, gemini, ollama.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, _ := cmd.Flags().GetString("provider")
		model, _ := cmd.Flags().GetString("model")
		key, _ := cmd.Flags().GetString("api-key")

		path, err := writableConfigPath()
		if err != nil {
			return err
		}
		if err := config.SaveLLMConfig(appFs, path, provider, model, key); err != nil {
			return fmt.Errorf("failed to save LLM config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ LLM set to %s in %s\n", provider, path)
		return nil
	},
}

var telemetryCmd = &cobra.Command{
	Use:   "telemetry",
	Short: "Manage telemetry settings",
	Long: `View and manage BMC Analyst's anonymous telemetry settings.

Telemetry is off unless you enable it. When enabled, only event names,
durations and scores are sent. Canvas text and generated reports never are.`,
}

var telemetryStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current telemetry status",
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := telemetry.Load(appFs, config.DataDir())
		if err != nil {
			return fmt.Errorf("failed to read telemetry status: %w", err)
		}

		out := cmd.OutOrStdout()
		if state.IsEnabled() {
			fmt.Fprintln(out, "📊 Telemetry: enabled")
			fmt.Fprintf(out, "   Anonymous ID: %s\n", state.AnonymousID)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "   To disable: bmc config telemetry disable")
		} else {
			fmt.Fprintln(out, "📊 Telemetry: disabled")
			fmt.Fprintln(out)
			fmt.Fprintln(out, "   To enable: bmc config telemetry enable")
		}
		return nil
	},
}

var telemetryEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Enable anonymous telemetry",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := setTelemetry(true); err != nil {
			return fmt.Errorf("failed to enable telemetry: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✅ Telemetry enabled. Thank you for helping improve BMC Analyst!")
		return nil
	},
}

var telemetryDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Disable anonymous telemetry",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := setTelemetry(false); err != nil {
			return fmt.Errorf("failed to disable telemetry: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✅ Telemetry disabled.")
		return nil
	},
}

func setTelemetry(enabled bool) error {
	dir := config.DataDir()
	state, err := telemetry.Load(appFs, dir)
	if err != nil {
		return err
	}
	if enabled {
		state.Enable()
	} else {
		state.Disable()
	}
	return state.Save(appFs, dir)
}

// writableConfigPath is the loaded config file, or the home default when
// none was found.
func writableConfigPath() (string, error) {
	if f := viper.ConfigFileUsed(); f != "" {
		return f, nil
	}
	path, err := config.ConfigFilePath()
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return path, nil
}

// displayValue masks secrets.
func displayValue(key string, v any) any {
	k := strings.ToLower(key)
	if !strings.Contains(k, "apikey") {
		return v
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return v
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configLLMCmd)
	configCmd.AddCommand(telemetryCmd)

	telemetryCmd.AddCommand(telemetryStatusCmd)
	telemetryCmd.AddCommand(telemetryEnableCmd)
	telemetryCmd.AddCommand(telemetryDisableCmd)

	configLLMCmd.Flags().String("provider", "gemini", "LLM provider (openai, anthropic, gemini, ollama)")
	configLLMCmd.Flags().String("model", "", "model name (default: provider default)")
	configLLMCmd.Flags().String("api-key", "", "API key to store in the config file")
}
