package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lastochkinroman/PersonalAssistantLite/internal/config"
)

var version = "dev"

var (
	configPath string
	serverURL  string
	noColor    bool
)

var rootCmd = &cobra.Command{
	Use:           "assistant",
	Short:         "Personal assistant backend for the Mistral API",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadEnvFile(".env"); err != nil {
			printWarning("%v", err)
		}
		if os.Getenv("NO_COLOR") != "" {
			noColor = true
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $PA_CONFIG or config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server base URL (default from server.host/server.port)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(serveCmd, mcpCmd, statusCmd, modelsCmd, promptCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}

// openConfig opens the config file selected by --config or PA_CONFIG.
func openConfig() (*config.Store, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	return config.Open(path)
}

// newLogger builds the process logger. Only "debug" lowers the level below info.
func newLogger(level string, w io.Writer) *slog.Logger {
	logLevel := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn", "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
}

func versionString() string {
	return fmt.Sprintf("assistant version %s", version)
}
