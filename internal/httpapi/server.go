// Package httpapi serves the tool catalog and the chat turn over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"azdo-mcp/internal/azdo"
	"azdo-mcp/internal/llm"
	"azdo-mcp/internal/tools"
)

const shutdownTimeout = 10 * time.Second

// ChatModel is the part of the llm client the chat endpoint needs.
type ChatModel interface {
	SelectTool(ctx context.Context, catalog []tools.Descriptor, message string) (string, *llm.ToolCall, error)
	Summarize(ctx context.Context, message, toolName, toolResult string) (string, error)
}

// Server exposes the dispatcher over a REST surface. The chat model is
// optional; without it POST /api/chat reports the feature as unavailable.
type Server struct {
	addr       string
	dispatcher *tools.Dispatcher
	chat       ChatModel
}

// New creates the HTTP server. Pass a nil chat model to disable /api/chat.
func New(addr string, dispatcher *tools.Dispatcher, chat ChatModel) *Server {
	return &Server{addr: addr, dispatcher: dispatcher, chat: chat}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Route("/api", func(api chi.Router) {
		api.Get("/tools", s.handleListTools)
		api.Post("/tools/{name}", s.handleCallTool)
		api.Post("/chat", s.handleChat)
	})

	return r
}

// Run serves until the context is canceled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", s.addr).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info().Msg("Shutting down HTTP server")
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// toolInfo is the wire form of a registry descriptor.
type toolInfo struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Params      []paramInfo `json:"params,omitempty"`
}

type paramInfo struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Required    bool   `json:"required,omitempty"`
	Default     any    `json:"default,omitempty"`
	Description string `json:"description,omitempty"`
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	catalog := tools.Registry()
	out := make([]toolInfo, 0, len(catalog))
	for _, desc := range catalog {
		info := toolInfo{Name: desc.Name, Description: desc.Description}
		for _, p := range desc.Params {
			info.Params = append(info.Params, paramInfo{
				Name:        p.Name,
				Type:        p.Type,
				Required:    p.Required,
				Default:     p.Default,
				Description: p.Description,
			})
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": out})
}

func (s *Server) handleCallTool(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	args := tools.Args{}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "request body too large or unreadable")
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &args); err != nil {
			writeError(w, http.StatusBadRequest, "request body must be a JSON object")
			return
		}
	}

	payload, err := s.dispatcher.Dispatch(r.Context(), name, args)
	if err != nil {
		writeDispatchError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tool":   name,
		"result": tools.Format(name, payload, args),
	})
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Reply    string `json:"reply"`
	ToolUsed string `json:"toolUsed,omitempty"`
}

// handleChat runs one chat turn: tool selection, optional dispatch, then a
// second model call to phrase the answer. A failed tool call still produces
// a reply; the error text is handed to the model as the tool result.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.chat == nil {
		writeError(w, http.StatusServiceUnavailable, "chat is not configured")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "request body must be a JSON object")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	text, call, err := s.chat.SelectTool(r.Context(), tools.Registry(), req.Message)
	if err != nil {
		log.Error().Err(err).Msg("Tool selection failed")
		writeError(w, http.StatusBadGateway, "model request failed")
		return
	}

	if call == nil {
		writeJSON(w, http.StatusOK, chatResponse{Reply: text})
		return
	}

	args := tools.Args(call.Arguments)
	toolResult := ""
	payload, err := s.dispatcher.Dispatch(r.Context(), call.Name, args)
	if err != nil {
		log.Warn().Str("tool", call.Name).Err(err).Msg("Chat tool call failed")
		toolResult = "Tool call failed: " + err.Error()
	} else {
		toolResult = tools.Format(call.Name, payload, args)
	}

	reply, err := s.chat.Summarize(r.Context(), req.Message, call.Name, toolResult)
	if err != nil {
		log.Error().Err(err).Msg("Summarization failed")
		writeError(w, http.StatusBadGateway, "model request failed")
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{Reply: reply, ToolUsed: call.Name})
}

// writeDispatchError maps dispatcher and backend errors to status codes:
// unknown tool and missing backend resources are 404, bad arguments are 400,
// everything else is a 502 from the backend's point of view.
func writeDispatchError(w http.ResponseWriter, err error) {
	var unknown *tools.UnknownToolError
	var missing *tools.MissingArgumentError
	switch {
	case errors.As(err, &unknown):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &missing):
		writeError(w, http.StatusBadRequest, err.Error())
	case azdo.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// requestLogger logs one line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}
