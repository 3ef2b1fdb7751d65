package responder

import (
	"context"
	"log/slog"
	"strings"

	"github.com/kalambet/studyhub/internal/model"
	"github.com/kalambet/studyhub/internal/ollama"
)

// ChatClient is the subset of ollama.Client used here.
type ChatClient interface {
	Chat(ctx context.Context, model string, messages []ollama.Message) (string, error)
}

// ProfileSummary returns a short description of the learner.
// Implemented by profile.Summarizer.
type ProfileSummary interface {
	Summary() (string, error)
}

// maxHistory bounds how many earlier messages are replayed to the model.
const maxHistory = 20

const tutorPrompt = "You are a patient study tutor inside a learning app. " +
	"Answer the learner's latest message clearly and briefly, and check their reasoning when they show work."

// Ollama answers with a local model, replaying recent history from the space.
type Ollama struct {
	client  ChatClient
	model   string
	profile ProfileSummary
	logger  *slog.Logger
}

// NewOllama creates an Ollama responder. profile may be nil.
func NewOllama(client ChatClient, model string, profile ProfileSummary) *Ollama {
	return &Ollama{client: client, model: model, profile: profile, logger: slog.Default()}
}

func (o *Ollama) Respond(ctx context.Context, req Request) (string, error) {
	reply, err := o.client.Chat(ctx, o.model, o.messages(req))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(reply) == "" {
		return "", ErrEmptyReply
	}
	return reply, nil
}

func (o *Ollama) messages(req Request) []ollama.Message {
	system := tutorPrompt
	if o.profile != nil {
		summary, err := o.profile.Summary()
		if err != nil {
			// Answer anyway; the profile only personalises the prompt.
			o.logger.Warn("profile summary unavailable", "error", err)
		} else if summary != "" {
			system += "\n\n" + summary
		}
	}

	history := req.History
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}

	msgs := make([]ollama.Message, 0, len(history)+2)
	msgs = append(msgs, ollama.Message{Role: ollama.RoleSystem, Content: system})
	for _, m := range history {
		msgs = append(msgs, ollama.Message{Role: role(m), Content: m.Content})
	}
	msgs = append(msgs, ollama.Message{Role: ollama.RoleUser, Content: req.Message})
	return msgs
}

func role(m model.Message) string {
	if m.IsAI {
		return ollama.RoleAssistant
	}
	return ollama.RoleUser
}
