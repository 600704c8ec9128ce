package transport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// MCPHandler handles MCP method dispatch.
type MCPHandler interface {
	Handle(ctx context.Context, actorID, method string, params json.RawMessage) (any, error)
}

// apiError is implemented by errors that carry a stable API code.
type apiError interface {
	error
	CodeValue() string
	MessageValue() string
	DetailsValue() any
	RecoveryHintValue() string
}

// rpcCoder lets an error pick its JSON-RPC error code.
type rpcCoder interface {
	RPCCode() int
}

// ErrorData is the data member of JSON-RPC errors raised by the handler.
type ErrorData struct {
	Code         string `json:"code"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

// Server wires HTTP handlers.
type Server struct {
	handler MCPHandler
	logger  *slog.Logger
}

// NewServer creates an HTTP server router with middleware. authMiddleware
// guards /rpc; /health is always public.
func NewServer(handler MCPHandler, authMiddleware func(http.Handler) http.Handler, logger *slog.Logger) *chi.Mux {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	srv := &Server{handler: handler, logger: logger}

	r.Get("/health", srv.handleHealth)
	r.Group(func(r chi.Router) {
		if authMiddleware != nil {
			r.Use(authMiddleware)
		}
		r.Post("/rpc", srv.handleRPC)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	req, err := ParseRequest(r.Body)
	if err != nil {
		WriteError(w, nil, parseErrorCode(err), err.Error(), nil)
		return
	}

	actorID, ok := ActorFromContext(r.Context())
	if !ok || actorID == "" {
		http.Error(w, "missing actor", http.StatusUnauthorized)
		return
	}

	result, err := s.handler.Handle(r.Context(), actorID, req.Method, req.Params)
	if req.IsNotification() {
		// Notifications get no response body.
		w.WriteHeader(http.StatusAccepted)
		return
	}
	if err != nil {
		s.writeHandlerError(w, req, err)
		return
	}

	WriteResult(w, req.ID, result)
}

func (s *Server) writeHandlerError(w http.ResponseWriter, req Request, err error) {
	if errors.Is(err, ErrUnauthorized) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var apiErr apiError
	if errors.As(err, &apiErr) {
		code := CodeServerError
		if c, ok := apiErr.(rpcCoder); ok {
			code = c.RPCCode()
		}
		WriteError(w, req.ID, code, apiErr.MessageValue(), ErrorData{
			Code:         apiErr.CodeValue(),
			Details:      apiErr.DetailsValue(),
			RecoveryHint: apiErr.RecoveryHintValue(),
		})
		return
	}
	s.logger.Error("rpc handler failed", "method", req.Method, "error", err)
	WriteError(w, req.ID, CodeInternalError, "internal error", nil)
}
