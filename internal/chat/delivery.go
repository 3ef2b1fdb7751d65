package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kalambet/studyhub/internal/model"
)

// State is a step of one outgoing message's delivery.
type State int

const (
	Composed State = iota
	LocalAppended
	RemoteUserWritten
	AIRequested
	AIReplyAppended
	Failed
)

func (s State) String() string {
	switch s {
	case Composed:
		return "composed"
	case LocalAppended:
		return "local_appended"
	case RemoteUserWritten:
		return "remote_user_written"
	case AIRequested:
		return "ai_requested"
	case AIReplyAppended:
		return "ai_reply_appended"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transitions can follow s.
func (s State) Terminal() bool {
	return s == AIReplyAppended || s == Failed
}

// Transition records one state change. Err is set only for a move to Failed.
type Transition struct {
	From State
	To   State
	At   time.Time
	Err  error
}

// Delivery tracks one message sent through the Pipeline. All methods are
// safe for concurrent use.
type Delivery struct {
	UserID  string
	SpaceID string

	mu          sync.Mutex
	state       State
	transitions []Transition
	user        model.Message
	reply       *model.Message
	err         error
	done        chan struct{}
}

func newDelivery(req SendRequest) *Delivery {
	return &Delivery{
		UserID:  req.UserID,
		SpaceID: req.SpaceID,
		state:   Composed,
		done:    make(chan struct{}),
	}
}

// State returns the current state.
func (d *Delivery) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Transitions returns a copy of every state change so far, oldest first.
func (d *Delivery) Transitions() []Transition {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Transition, len(d.transitions))
	copy(out, d.transitions)
	return out
}

// UserMessage returns the locally appended user message.
func (d *Delivery) UserMessage() model.Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.user
}

// Reply returns the AI reply once it has been appended locally.
func (d *Delivery) Reply() (model.Message, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.reply == nil {
		return model.Message{}, false
	}
	return *d.reply, true
}

// Err returns the failure that ended the delivery, if any.
func (d *Delivery) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// Done is closed when the delivery reaches a terminal state.
func (d *Delivery) Done() <-chan struct{} {
	return d.done
}

// Wait blocks until the delivery settles or ctx is done. It returns the
// delivery's failure, or ctx.Err() if ctx ended first.
func (d *Delivery) Wait(ctx context.Context) error {
	select {
	case <-d.done:
		return d.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// advance moves the delivery to a new state and returns the state it left.
// Moves out of a terminal state are ignored.
func (d *Delivery) advance(to State, at time.Time, err error) (State, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	from := d.state
	if from.Terminal() {
		return from, false
	}
	d.state = to
	d.transitions = append(d.transitions, Transition{From: from, To: to, At: at, Err: err})
	if to == Failed {
		d.err = err
	}
	if to.Terminal() {
		close(d.done)
	}
	return from, true
}

func (d *Delivery) setUser(m model.Message) {
	d.mu.Lock()
	d.user = m
	d.mu.Unlock()
}

func (d *Delivery) setReply(m model.Message) {
	d.mu.Lock()
	d.reply = &m
	d.mu.Unlock()
}
