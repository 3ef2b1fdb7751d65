// Package chat sends chat messages optimistically: the user's message is
// appended to the local space at once, then written to the remote store, then
// answered by the AI responder whose reply is appended and written the same way.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/kalambet/studyhub/internal/model"
	"github.com/kalambet/studyhub/internal/responder"
)

// SpaceStore is the local side of a delivery. Implemented by entity.Spaces.
type SpaceStore interface {
	Get(id string) (model.Space, bool, error)
	AppendMessage(id string, p model.NewMessage) (model.Message, error)
}

// RemoteStore writes messages to the authoritative per-user, per-space collection.
type RemoteStore interface {
	AppendMessage(ctx context.Context, userID, spaceID, text string, isAI bool) error
}

// Responder produces the AI reply to a message.
type Responder interface {
	Respond(ctx context.Context, req responder.Request) (string, error)
}

// Hooks are optional callbacks. They run on the goroutine that caused the
// event and must not block.
type Hooks struct {
	// OnState fires after every state change.
	OnState func(d *Delivery, from, to State)
	// OnAppend fires after a message is appended to the local space.
	OnAppend func(spaceID string, m model.Message)
	// OnError fires once for a delivery that ends in Failed.
	OnError func(d *Delivery, err error)
}

// Config tunes a Pipeline.
type Config struct {
	// AITimeout bounds each responder call. Zero means no bound.
	AITimeout time.Duration
	Hooks     Hooks
}

// SendRequest is one message typed by the user.
type SendRequest struct {
	UserID  string
	SpaceID string
	Text    string
}

// Pipeline runs deliveries. Remote writes for a space are issued in the order
// their messages were appended locally, but a slow write never holds back the
// next one.
type Pipeline struct {
	spaces    SpaceStore
	remote    RemoteStore
	ai        Responder
	hooks     Hooks
	aiTimeout time.Duration
	now       func() time.Time
	logger    *slog.Logger

	mu    sync.Mutex
	lanes map[string]*lane

	wg sync.WaitGroup
}

func New(spaces SpaceStore, remote RemoteStore, ai Responder, cfg Config) *Pipeline {
	return &Pipeline{
		spaces:    spaces,
		remote:    remote,
		ai:        ai,
		hooks:     cfg.Hooks,
		aiTimeout: cfg.AITimeout,
		now:       time.Now,
		logger:    slog.Default(),
		lanes:     make(map[string]*lane),
	}
}

// Send appends the message to the local space and returns once that append is
// done. The remote write and AI exchange continue in the background and are
// not cancelled by ctx; follow them through the returned Delivery.
func (p *Pipeline) Send(ctx context.Context, req SendRequest) (*Delivery, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, fmt.Errorf("sending without a signed-in user: %w", model.ErrNoActiveContext)
	}
	if strings.TrimSpace(req.SpaceID) == "" {
		return nil, fmt.Errorf("sending without a space: %w", model.ErrNoActiveContext)
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, model.NewValidationError("text", "must not be blank")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d := newDelivery(req)
	l := p.acquire(req.SpaceID)

	l.mu.Lock()
	sp, ok, err := p.spaces.Get(req.SpaceID)
	if err != nil {
		l.mu.Unlock()
		p.release(req.SpaceID, l)
		return nil, fmt.Errorf("loading space %s: %w", req.SpaceID, err)
	}
	if !ok {
		l.mu.Unlock()
		p.release(req.SpaceID, l)
		return nil, fmt.Errorf("space %q: %w", req.SpaceID, model.ErrNoActiveContext)
	}
	msg, err := p.spaces.AppendMessage(req.SpaceID, model.NewMessage{Content: req.Text})
	if err != nil {
		l.mu.Unlock()
		p.release(req.SpaceID, l)
		if errors.Is(err, model.ErrNotFound) {
			err = fmt.Errorf("%w: %w", model.ErrNoActiveContext, err)
		}
		return nil, err
	}
	turn := l.take()
	l.mu.Unlock()

	d.setUser(msg)
	p.appended(req.SpaceID, msg)
	p.advance(d, LocalAppended, nil)

	p.wg.Add(1)
	go p.deliver(context.WithoutCancel(ctx), d, req, sp.Messages, l, turn)
	return d, nil
}

// Wait blocks until every delivery started so far has settled.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

func (p *Pipeline) deliver(ctx context.Context, d *Delivery, req SendRequest, history []model.Message, l *lane, turn ticket) {
	defer p.wg.Done()
	defer p.release(req.SpaceID, l)

	if err := p.write(ctx, turn, req.UserID, req.SpaceID, req.Text, false); err != nil {
		p.fail(d, err)
		return
	}
	p.advance(d, RemoteUserWritten, nil)

	p.advance(d, AIRequested, nil)
	reply, err := p.respond(ctx, req, history)
	if err != nil {
		p.fail(d, fmt.Errorf("%w: %w", model.ErrAIRequestFailed, err))
		return
	}

	// The space may have been deleted while the responder was working.
	l.mu.Lock()
	msg, err := p.spaces.AppendMessage(req.SpaceID, model.NewMessage{Content: reply, IsAI: true})
	if err != nil {
		l.mu.Unlock()
		p.fail(d, fmt.Errorf("appending reply: %w", err))
		return
	}
	turn = l.take()
	l.mu.Unlock()

	d.setReply(msg)
	p.appended(req.SpaceID, msg)

	if err := p.write(ctx, turn, req.UserID, req.SpaceID, reply, true); err != nil {
		p.fail(d, err)
		return
	}
	p.advance(d, AIReplyAppended, nil)
}

func (p *Pipeline) respond(ctx context.Context, req SendRequest, history []model.Message) (string, error) {
	if p.aiTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.aiTimeout)
		defer cancel()
	}
	reply, err := p.ai.Respond(ctx, responder.Request{
		UserID:  req.UserID,
		SpaceID: req.SpaceID,
		Message: req.Text,
		History: history,
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(reply) == "" {
		return "", responder.ErrEmptyReply
	}
	return reply, nil
}

// write waits for its turn on the lane, issues the remote write and returns its outcome.
func (p *Pipeline) write(ctx context.Context, turn ticket, userID, spaceID, text string, isAI bool) error {
	<-turn.prev
	close(turn.mine)
	if err := p.remote.AppendMessage(ctx, userID, spaceID, text, isAI); err != nil {
		return fmt.Errorf("%w: %w", model.ErrRemoteWriteFailed, err)
	}
	return nil
}

func (p *Pipeline) advance(d *Delivery, to State, err error) {
	from, ok := d.advance(to, p.now(), err)
	if ok && p.hooks.OnState != nil {
		p.hooks.OnState(d, from, to)
	}
}

func (p *Pipeline) fail(d *Delivery, err error) {
	from := d.State()
	p.logger.Warn("message delivery failed",
		"space_id", d.SpaceID, "user_id", d.UserID, "state", from.String(), "error", err)
	p.advance(d, Failed, err)
	if p.hooks.OnError != nil {
		p.hooks.OnError(d, err)
	}
}

func (p *Pipeline) appended(spaceID string, m model.Message) {
	if p.hooks.OnAppend != nil {
		p.hooks.OnAppend(spaceID, m)
	}
}

// acquire returns the space's lane and counts the caller as a holder until
// the matching release.
func (p *Pipeline) acquire(spaceID string) *lane {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.lanes[spaceID]
	if !ok {
		l = newLane()
		p.lanes[spaceID] = l
	}
	l.refs++
	return l
}

// release drops a holder. The last holder removes the lane: every ticket
// taken on it has been written by then, so a fresh lane orders the same.
func (p *Pipeline) release(spaceID string, l *lane) {
	p.mu.Lock()
	defer p.mu.Unlock()
	l.refs--
	if l.refs == 0 && p.lanes[spaceID] == l {
		delete(p.lanes, spaceID)
	}
}

// lane orders the remote writes of one space. Each local append takes a
// ticket while holding mu; a write is issued only after the previous
// ticket's write has been issued.
type lane struct {
	mu   sync.Mutex
	tail chan struct{}
	refs int // guarded by Pipeline.mu
}

type ticket struct {
	prev <-chan struct{}
	mine chan struct{}
}

func newLane() *lane {
	tail := make(chan struct{})
	close(tail)
	return &lane{tail: tail}
}

// take must be called with mu held.
func (l *lane) take() ticket {
	t := ticket{prev: l.tail, mine: make(chan struct{})}
	l.tail = t.mine
	return t
}
