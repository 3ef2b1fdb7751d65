// Package api serves the AI-response contract over HTTP so a client configured
// with the endpoint backend can talk to a locally hosted responder.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/studyhub/internal/responder"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Responder answers one message. Implemented by responder.Ollama.
type Responder interface {
	Respond(ctx context.Context, req responder.Request) (string, error)
}

// NewResponderHandler returns a router with POST /v1/respond and GET /health.
// When token is non-empty, /v1 routes require it as a bearer token.
func NewResponderHandler(ai Responder, token string) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.Route("/v1", func(r chi.Router) {
		if token != "" {
			r.Use(BearerAuth(token))
		}
		r.Post("/respond", handleRespond(ai))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleRespond(ai Responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req responder.WireRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "message is required and must not be blank")
			return
		}

		reply, err := ai.Respond(r.Context(), responder.Request{
			UserID:  req.UserID,
			SpaceID: req.SpaceID,
			Message: req.Message,
		})
		if err != nil {
			status := http.StatusBadGateway
			if errors.Is(err, context.DeadlineExceeded) {
				status = http.StatusGatewayTimeout
			}
			slog.Warn("responder failed", "space_id", req.SpaceID, "user_id", req.UserID, "error", err)
			httpError(w, status, "api_error", "responder error: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(responder.WireResponse{Response: reply})
	}
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
