package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lastochkinroman/PersonalAssistantLite/internal/composer"
	"github.com/lastochkinroman/PersonalAssistantLite/internal/config"
	"github.com/lastochkinroman/PersonalAssistantLite/internal/daily"
	"github.com/lastochkinroman/PersonalAssistantLite/internal/manager"
	"github.com/lastochkinroman/PersonalAssistantLite/internal/provider"
)

// --- models ---

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List, inspect or switch models on a running server",
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured models with availability",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/api/models/available")
		if err != nil {
			return err
		}

		var result struct {
			API []manager.ModelStatus `json:"api"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(result.API) == 0 {
			fmt.Fprintln(out, "No models configured.")
			return nil
		}
		for _, m := range result.API {
			fmt.Fprintf(out, "%s %-28s %s\n", currentMarker(m.Current), m.Name, availability(m.Available))
		}
		return nil
	},
}

var modelsSwitchCmd = &cobra.Command{
	Use:   "switch <name>",
	Short: "Make a model active",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/api/models/switch", map[string]string{"model_name": args[0]})
		if err != nil {
			return err
		}

		var result struct {
			Message string `json:"message"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("%s", result.Message)
		return nil
	},
}

var modelsCurrentCmd = &cobra.Command{
	Use:   "current",
	Short: "Show the active model",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/api/models/current")
		if err != nil {
			return err
		}

		var result struct {
			Provider  string        `json:"provider"`
			Name      string        `json:"name"`
			Info      provider.Info `json:"info"`
			Available bool          `json:"available"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printStatus("Model", "%s", result.Name)
		printStatus("Provider", "%s", result.Provider)
		printStatus("Description", "%s", result.Info.Description)
		printStatus("API key", "%t", result.Info.APIKeySet)
		printStatus("Status", "%s", availability(result.Available))
		return nil
	},
}

func init() {
	modelsCmd.AddCommand(modelsListCmd, modelsSwitchCmd, modelsCurrentCmd)
}

// --- prompt ---

var promptCmd = &cobra.Command{
	Use:   "prompt [file]",
	Short: "Render a daily context JSON file (or stdin) into the system prompt",
	Long: `Render a daily context JSON file into the system prompt sent to the model.

Examples:
  assistant prompt today.json
  cat today.json | assistant prompt`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var r io.Reader = cmd.InOrStdin()
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening context file: %w", err)
			}
			defer f.Close()
			r = f
		}

		var dc daily.Context
		if err := json.NewDecoder(r).Decode(&dc); err != nil {
			return fmt.Errorf("decoding context: %w", err)
		}

		prompt := composer.New().SystemPrompt(dc)
		fmt.Fprint(cmd.OutOrStdout(), prompt)

		if showTokens, _ := cmd.Flags().GetBool("tokens"); showTokens {
			printStatus("Estimated tokens", "%d", composer.EstimateTokens(prompt))
		}
		return nil
	},
}

func init() {
	promptCmd.Flags().Bool("tokens", false, "print an estimated token count to stderr")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openConfig()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "# %s\n", store.Path())
		for _, k := range config.ShowAll(store) {
			line := fmt.Sprintf("  %s = %s", colorize(colorBold, k.Key), k.Value)
			if k.EnvVar != "" {
				line += colorize(colorCyan, "  ($"+k.EnvVar+")")
			}
			fmt.Fprintln(out, line)
		}
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the raw file value at a dotted key path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openConfig()
		if err != nil {
			return err
		}

		v := store.Get(args[0], nil)
		if v == nil {
			return fmt.Errorf("key %q is not set", args[0])
		}

		out := cmd.OutOrStdout()
		switch v.(type) {
		case map[string]any, []any:
			b, err := yaml.Marshal(v)
			if err != nil {
				return fmt.Errorf("encoding value: %w", err)
			}
			fmt.Fprint(out, string(b))
		default:
			fmt.Fprintln(out, v)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: "Set a configuration value and write it to the config file.\n\nKnown keys:\n  " +
		strings.Join(config.ValidKeys(), "\n  "),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		store, err := openConfig()
		if err != nil {
			return err
		}
		if err := config.SetKey(store, key, value); err != nil {
			return err
		}

		printSuccess("Set %s in %s", key, store.Path())
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configGetCmd, configSetCmd)
}
