// Package responder produces AI replies for chat messages, either from a
// remote HTTP endpoint or from a local Ollama model.
package responder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kalambet/studyhub/internal/model"
)

// Request is the context handed to a responder for one user message.
type Request struct {
	UserID  string
	SpaceID string
	Message string
	// History holds the space's messages before Message, oldest first.
	History []model.Message
}

// ErrEmptyReply is returned when a backend answers without any text.
var ErrEmptyReply = errors.New("empty reply")

// StatusError reports a non-2xx response from the AI endpoint.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("ai endpoint: status %d", e.StatusCode)
	}
	return fmt.Sprintf("ai endpoint: status %d: %s", e.StatusCode, e.Body)
}

// WireRequest is the JSON body of the AI-response call.
type WireRequest struct {
	UserID  string `json:"userId"`
	SpaceID string `json:"spaceId"`
	Message string `json:"message"`
}

// WireResponse is the JSON body returned by the AI-response call.
type WireResponse struct {
	Response string `json:"response"`
}

// Endpoint calls an HTTP AI endpoint. Deadlines come from the caller's context.
type Endpoint struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

// NewEndpoint creates an Endpoint posting to url. A non-empty apiKey is sent
// as a bearer token.
func NewEndpoint(url, apiKey string) *Endpoint {
	return &Endpoint{url: url, apiKey: apiKey, httpClient: &http.Client{}}
}

func (e *Endpoint) Respond(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(WireRequest{UserID: req.UserID, SpaceID: req.SpaceID, Message: req.Message})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("ai request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	var out WireResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding ai response: %w", err)
	}
	if strings.TrimSpace(out.Response) == "" {
		return "", ErrEmptyReply
	}
	return out.Response, nil
}
