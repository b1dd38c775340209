package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/lastochkinroman/PersonalAssistantLite/internal/api"
	"github.com/lastochkinroman/PersonalAssistantLite/internal/manager"
	"github.com/lastochkinroman/PersonalAssistantLite/internal/mistral"
	"github.com/lastochkinroman/PersonalAssistantLite/internal/sysinfo"
	"github.com/lastochkinroman/PersonalAssistantLite/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the assistant over MCP on stdin/stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCP()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server health, active model and host info",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return showStatus(cmd.Context(), client)
	},
}

func runServer() error {
	fmt.Fprintln(os.Stderr, versionString())

	store, err := openConfig()
	if err != nil {
		return err
	}
	cfg := store.Settings()
	slog.SetDefault(newLogger(cfg.Log.Level, os.Stderr))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := startTracing(cfg.Tracing.Exporter)
	if err != nil {
		return err
	}
	defer shutdownTracing()

	models := manager.New(store, mistral.NewFactory(cfg.Mistral))

	info := models.SystemInfo(ctx)
	slog.Info("host",
		"cpu_cores", info.System.CPUCores,
		"ram", humanize.Bytes(sysinfo.Read().TotalRAMBytes),
	)
	slog.Info("active model",
		"provider", info.CurrentModel.Provider,
		"model", info.CurrentModel.Name,
		"available", info.CurrentModel.Available,
	)
	if !info.CurrentModel.Available {
		slog.Warn("model is not reachable; chat requests will return 503 until it is", "api_key_set", cfg.Mistral.APIKey != "")
	}

	handler := api.NewHandler(api.Deps{
		Models:         models,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	// Start server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for signal or server error.
	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runMCP() error {
	store, err := openConfig()
	if err != nil {
		return err
	}
	cfg := store.Settings()
	// stdout carries the protocol; logs go to stderr only.
	slog.SetDefault(newLogger(cfg.Log.Level, os.Stderr))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := startTracing(cfg.Tracing.Exporter)
	if err != nil {
		return err
	}
	defer shutdownTracing()

	models := manager.New(store, mistral.NewFactory(cfg.Mistral))
	mcpSrv := api.NewMCPServer(api.MCPDeps{Models: models})

	slog.Info("MCP server started (stdio transport)", "version", version)
	stdioSrv := server.NewStdioServer(mcpSrv)
	if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("MCP stdio server: %w", err)
	}
	return nil
}

// startTracing installs the configured span exporter. Spans are written to
// stderr since stdout carries the MCP protocol.
func startTracing(exporter string) (func(), error) {
	shutdown, err := telemetry.Setup(exporter, version, os.Stderr)
	if err != nil {
		return nil, err
	}
	if exporter == telemetry.ExporterStdout {
		slog.Info("tracing enabled", "exporter", exporter)
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			slog.Warn("flushing traces", "error", err)
		}
	}, nil
}

func showStatus(ctx context.Context, client *apiClient) error {
	var health struct {
		Status       string               `json:"status"`
		Timestamp    string               `json:"timestamp"`
		CurrentModel manager.CurrentModel `json:"current_model"`
		System       manager.Host         `json:"system"`
	}

	resp, err := client.get(ctx, "/health")
	if err != nil {
		printStatus("Server", "stopped")
		return err
	}
	if err := decodeJSON(resp, &health); err != nil {
		printStatus("Server", "error")
		return err
	}

	printStatus("Server", "%s at %s", health.Status, client.baseURL)
	printStatus("Model", "%s (%s)", health.CurrentModel.Name, health.CurrentModel.Provider)
	if health.CurrentModel.Available {
		printStatus("Available", "%s", colorize(colorGreen, "yes"))
	} else {
		printStatus("Available", "%s", colorize(colorRed, "no"))
	}
	printStatus("CPU cores", "%d", health.System.CPUCores)
	printStatus("Memory", "%s", humanize.Bytes(uint64(health.System.TotalRAMGB*1e9)))
	return nil
}
