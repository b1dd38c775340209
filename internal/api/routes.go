package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/lastochkinroman/PersonalAssistantLite/internal/composer"
	"github.com/lastochkinroman/PersonalAssistantLite/internal/daily"
	"github.com/lastochkinroman/PersonalAssistantLite/internal/manager"
	"github.com/lastochkinroman/PersonalAssistantLite/internal/provider"
)

const (
	maxRequestBodySize = 1 << 20 // 1MB

	// Version is reported by the root endpoint.
	Version = "4.0.0"
	appName = "Personal Assistant AI API"
)

// Models is the subset of the model manager the HTTP and MCP layers use.
// Implemented by manager.Manager.
type Models interface {
	Current() (manager.Active, bool)
	SwitchTo(ctx context.Context, name string) bool
	ListAvailable(ctx context.Context) []manager.ModelStatus
	SystemInfo(ctx context.Context) manager.SystemInfo
}

// Deps holds dependencies for the HTTP handler.
type Deps struct {
	Models         Models
	AllowedOrigins []string
	Now            func() time.Time // defaults to time.Now
}

func (d Deps) now() string {
	if d.Now != nil {
		return d.Now().Format(time.RFC3339Nano)
	}
	return time.Now().Format(time.RFC3339Nano)
}

// NewHandler returns the http.Handler serving the assistant REST API.
func NewHandler(deps Deps) http.Handler {
	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", handleRoot(deps))
	r.Get("/health", handleHealth(deps))
	r.Post("/api/chat", handleChat(deps))
	r.Get("/api/models/available", handleModelsAvailable(deps))
	r.Post("/api/models/switch", handleModelSwitch(deps))
	r.Get("/api/models/current", handleModelCurrent(deps))
	r.Get("/api/model/status", handleModelStatus(deps))
	r.Get("/api/system/info", handleSystemInfo(deps))

	return r
}

type chatRequest struct {
	Messages []provider.Message `json:"messages"`
	Context  *daily.Context     `json:"context"`
}

type modelRef struct {
	Provider string `json:"provider"`
	Name     string `json:"name"`
}

type chatResponse struct {
	Success   bool     `json:"success"`
	ID        string   `json:"id"`
	Response  string   `json:"response"`
	Model     modelRef `json:"model"`
	Timestamp string   `json:"timestamp"`
}

type switchRequest struct {
	ModelName string `json:"model_name"`
}

func handleRoot(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var model any = struct{}{}
		if a, ok := deps.Models.Current(); ok {
			model = a.Handle.Describe(r.Context())
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message": appName,
			"version": Version,
			"model":   model,
		})
	}
}

func handleHealth(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info := deps.Models.SystemInfo(r.Context())
		writeJSON(w, http.StatusOK, map[string]any{
			"status":        "healthy",
			"timestamp":     deps.now(),
			"current_model": info.CurrentModel,
			"system":        info.System,
		})
	}
}

func handleChat(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}
		if req.Messages == nil {
			httpError(w, http.StatusBadRequest, "messages is required")
			return
		}
		if req.Context == nil {
			httpError(w, http.StatusBadRequest, "context is required")
			return
		}

		active, ok := deps.Models.Current()
		if !ok || !active.Handle.IsAvailable(r.Context()) {
			httpError(w, http.StatusServiceUnavailable, "Текущая модель недоступна. Проверьте подключение к Mistral API.")
			return
		}

		if slog.Default().Enabled(r.Context(), slog.LevelDebug) {
			slog.Debug("chat request",
				"model", active.Model,
				"messages", len(req.Messages),
				"prompt_tokens_estimate", composer.EstimateTokens(composer.New().SystemPrompt(*req.Context)),
			)
		}

		reply, err := generate(r.Context(), active.Handle, req.Messages, *req.Context)
		if err != nil {
			slog.Error("generation failed", "model", active.Model, "error", err)
			httpError(w, http.StatusInternalServerError, "Ошибка генерации: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, chatResponse{
			Success:   true,
			ID:        uuid.NewString(),
			Response:  reply,
			Model:     modelRef{Provider: active.Provider, Name: active.Model},
			Timestamp: deps.now(),
		})
	}
}

// generate calls the provider and converts a panic into an error so the
// handler can answer 500 instead of dropping the connection.
func generate(ctx context.Context, p provider.Provider, messages []provider.Message, dc daily.Context) (reply string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if e, ok := rec.(error); ok {
				err = e
				return
			}
			err = fmt.Errorf("%v", rec)
		}
	}()
	return p.Generate(ctx, messages, dc), nil
}

func handleModelsAvailable(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		api := deps.Models.ListAvailable(r.Context())
		info := deps.Models.SystemInfo(r.Context())
		writeJSON(w, http.StatusOK, map[string]any{
			"api":     api,
			"current": modelRef{Provider: info.CurrentModel.Provider, Name: info.CurrentModel.Name},
			"system":  info.System,
		})
	}
}

func handleModelSwitch(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req switchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}
		if req.ModelName == "" {
			httpError(w, http.StatusBadRequest, "model_name is required")
			return
		}

		if !deps.Models.SwitchTo(r.Context(), req.ModelName) {
			httpError(w, http.StatusBadRequest, "Не удалось переключиться на модель %s", req.ModelName)
			return
		}

		current := map[string]any{"provider": manager.ProviderAPI, "name": req.ModelName, "info": struct{}{}}
		if a, ok := deps.Models.Current(); ok {
			current = map[string]any{
				"provider": a.Provider,
				"name":     a.Model,
				"info":     a.Handle.Describe(r.Context()),
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":       true,
			"message":       fmt.Sprintf("Модель переключена на %s", req.ModelName),
			"current_model": current,
		})
	}
}

func handleModelCurrent(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := deps.Models.Current()
		if !ok {
			httpError(w, http.StatusNotFound, "Модель не загружена")
			return
		}
		info := a.Handle.Describe(r.Context())
		writeJSON(w, http.StatusOK, map[string]any{
			"provider":  a.Provider,
			"name":      a.Model,
			"info":      info,
			"available": info.Available,
		})
	}
}

func handleModelStatus(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := deps.Models.Current()
		if !ok {
			httpError(w, http.StatusNotFound, "Модель не загружена")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"loaded":           a.Handle.IsAvailable(r.Context()),
			"model_name":       a.Model,
			"device":           "api",
			"estimated_memory": "N/A",
			"cuda_available":   false,
		})
	}
}

func handleSystemInfo(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deps.Models.SystemInfo(r.Context()))
	}
}

// requestLogger logs one line per request after it completes.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("writing response", "error", err)
	}
}

func httpError(w http.ResponseWriter, code int, format string, args ...any) {
	writeJSON(w, code, map[string]string{"detail": fmt.Sprintf(format, args...)})
}
