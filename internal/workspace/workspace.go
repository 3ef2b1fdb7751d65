// Package workspace builds the client's stores and services once from
// configuration and hands them to the CLI and server.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kalambet/studyhub/internal/autosave"
	"github.com/kalambet/studyhub/internal/chat"
	"github.com/kalambet/studyhub/internal/config"
	"github.com/kalambet/studyhub/internal/entity"
	"github.com/kalambet/studyhub/internal/model"
	"github.com/kalambet/studyhub/internal/ollama"
	"github.com/kalambet/studyhub/internal/profile"
	"github.com/kalambet/studyhub/internal/remote"
	"github.com/kalambet/studyhub/internal/responder"
	"github.com/kalambet/studyhub/internal/storage"
)

// Workspace is the signed-in user's view of their data.
type Workspace struct {
	UserID string

	Store       *storage.Store
	Spaces      *entity.Spaces
	Journals    *entity.Journals
	Canvases    *entity.Canvases
	Tasks       *entity.Tasks
	Courses     *entity.Courses
	Enrollments *entity.Enrollments
	Profile     *entity.Profile
	Summary     *profile.Summarizer
	Chat        *chat.Pipeline

	// History is the remote message store, nil when running local-only.
	History *remote.Dynamo

	cfg config.Config
}

// ErrLocalOnly is returned by remote reads when no remote table is configured.
var ErrLocalOnly = errors.New("no remote store configured")

// Open opens the local cache and wires every store against it. The remote
// message store is DynamoDB when remote.dynamodb_table is set and local-only
// otherwise.
func Open(ctx context.Context, cfg config.Config) (*Workspace, error) {
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	history, err := openRemote(ctx, cfg.Remote)
	if err != nil {
		store.Close()
		return nil, err
	}
	var rs chat.RemoteStore = remote.Discard{}
	if history != nil {
		rs = history
	}

	w := newWorkspace(cfg, store)
	w.History = history
	ai, err := newResponder(cfg, w.Summary)
	if err != nil {
		store.Close()
		return nil, err
	}
	w.Chat = chat.New(w.Spaces, rs, ai, chat.Config{
		AITimeout: cfg.AI.Timeout,
		Hooks: chat.Hooks{
			OnState: func(d *chat.Delivery, from, to chat.State) {
				slog.Debug("delivery state", "space_id", d.SpaceID, "from", from.String(), "to", to.String())
			},
		},
	})
	return w, nil
}

func newWorkspace(cfg config.Config, store *storage.Store) *Workspace {
	env := entity.Env{Cache: store}
	w := &Workspace{UserID: cfg.Session.UserID, Store: store, cfg: cfg}
	w.Spaces = entity.NewSpaces(env)
	w.Journals = entity.NewJournals(env)
	w.Canvases = entity.NewCanvases(env, w.Spaces)
	w.Tasks = entity.NewTasks(env)
	w.Courses = entity.NewCourses(env)
	w.Enrollments = entity.NewEnrollments(env, w.Courses)
	w.Profile = entity.NewProfile(env, w.Spaces, w.Journals, w.Enrollments)
	w.Summary = profile.NewSummarizer(w.Profile)
	return w
}

// openRemote connects to the remote table, or returns nil when none is set.
func openRemote(ctx context.Context, rc config.RemoteConfig) (*remote.Dynamo, error) {
	if rc.DynamoDBTable == "" {
		slog.Debug("no remote table configured, messages stay local")
		return nil, nil
	}
	d, err := remote.Connect(ctx, remote.Options{
		Table:    rc.DynamoDBTable,
		Region:   rc.Region,
		Endpoint: rc.Endpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting remote store: %w", err)
	}
	return d, nil
}

func newResponder(cfg config.Config, summary *profile.Summarizer) (chat.Responder, error) {
	switch cfg.AI.Backend {
	case config.BackendEndpoint:
		return responder.NewEndpoint(cfg.AI.EndpointURL, cfg.AI.APIKey), nil
	case config.BackendOllama:
		return NewTutor(cfg, summary), nil
	default:
		return nil, fmt.Errorf("unknown ai backend %q", cfg.AI.Backend)
	}
}

// NewTutor returns the Ollama-backed responder, personalised with the
// learner's profile summary when summary is non-nil.
func NewTutor(cfg config.Config, summary *profile.Summarizer) *responder.Ollama {
	var ps responder.ProfileSummary
	if summary != nil {
		ps = summary
	}
	return responder.NewOllama(ollama.New(cfg.Ollama.BaseURL), cfg.Ollama.Model, ps)
}

// Send posts text to a space as the signed-in user.
func (w *Workspace) Send(ctx context.Context, spaceID, text string) (*chat.Delivery, error) {
	return w.Chat.Send(ctx, chat.SendRequest{UserID: w.UserID, SpaceID: spaceID, Text: text})
}

// RemoteMessages reads a space's messages back from the remote store.
func (w *Workspace) RemoteMessages(ctx context.Context, spaceID string) ([]remote.Message, error) {
	if w.History == nil {
		return nil, ErrLocalOnly
	}
	if w.UserID == "" {
		return nil, fmt.Errorf("reading remote history: %w", model.ErrNoActiveContext)
	}
	return w.History.Messages(ctx, w.UserID, spaceID)
}

// OpenDraft starts an autosaving draft for a journal.
func (w *Workspace) OpenDraft(journalID string, opts ...autosave.Option) (*autosave.Draft, error) {
	return autosave.NewDraft(journalID, w.Journals, w.cfg.Autosave.Interval, opts...)
}

// Close waits for in-flight deliveries to settle, then closes the cache.
func (w *Workspace) Close() error {
	if w.Chat != nil {
		w.Chat.Wait()
	}
	return w.Store.Close()
}
