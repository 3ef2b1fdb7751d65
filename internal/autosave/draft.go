package autosave

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/kalambet/studyhub/internal/model"
)

// JournalStore is the save target. Implemented by entity.Journals.
type JournalStore interface {
	Update(id string, u model.JournalUpdate) (model.Journal, error)
}

// Draft binds a scheduler to one open journal. Edits accumulate until the
// editor goes idle, then a single update writes the latest title and content.
type Draft struct {
	journalID string
	store     JournalStore
	sched     *Scheduler
	logger    *slog.Logger

	// OnSaved and OnError are optional and run on the timer goroutine.
	OnSaved func(model.Journal)
	OnError func(error)

	saveMu  sync.Mutex
	mu      sync.Mutex
	pending model.JournalUpdate
}

// NewDraft opens a draft for journalID. An empty id means no journal is open.
func NewDraft(journalID string, store JournalStore, interval time.Duration, opts ...Option) (*Draft, error) {
	if strings.TrimSpace(journalID) == "" {
		return nil, fmt.Errorf("opening draft: %w", model.ErrNoActiveContext)
	}
	return &Draft{
		journalID: journalID,
		store:     store,
		sched:     NewScheduler(interval, opts...),
		logger:    slog.Default(),
	}, nil
}

// Edit records the latest edit and restarts the idle timer. Fields left nil
// keep the value from earlier unsaved edits. An invalid edit, such as a blank
// title, is rejected whole so it cannot hold up later saves.
func (d *Draft) Edit(u model.JournalUpdate) error {
	if err := model.Validate(u); err != nil {
		return err
	}
	d.mu.Lock()
	if u.Title != nil {
		d.pending.Title = u.Title
	}
	if u.Content != nil {
		d.pending.Content = u.Content
	}
	d.mu.Unlock()

	d.sched.Schedule(d.save)
	return nil
}

// Save writes pending edits immediately. It reports whether anything was
// pending, including edits left over from a failed autosave.
func (d *Draft) Save() bool {
	if d.sched.Flush() {
		return true
	}
	d.mu.Lock()
	dirty := d.pending.Title != nil || d.pending.Content != nil
	d.mu.Unlock()
	if !dirty {
		return false
	}
	d.save()
	return true
}

// Close discards the pending timer. Unsaved edits are dropped.
func (d *Draft) Close() {
	d.sched.Stop()
	d.mu.Lock()
	d.pending = model.JournalUpdate{}
	d.mu.Unlock()
}

// save writes the pending edits. They stay pending until the write succeeds,
// and edits made while it was in flight are kept for the next save.
func (d *Draft) save() {
	d.saveMu.Lock()
	defer d.saveMu.Unlock()

	d.mu.Lock()
	u := d.pending
	d.mu.Unlock()
	if u.Title == nil && u.Content == nil {
		return
	}

	j, err := d.store.Update(d.journalID, u)
	if err != nil {
		d.logger.Warn("autosave failed", "journal_id", d.journalID, "error", err)
		if d.OnError != nil {
			d.OnError(err)
		}
		return
	}

	d.mu.Lock()
	if d.pending.Title == u.Title {
		d.pending.Title = nil
	}
	if d.pending.Content == u.Content {
		d.pending.Content = nil
	}
	d.mu.Unlock()
	d.logger.Debug("journal autosaved", "journal_id", d.journalID)
	if d.OnSaved != nil {
		d.OnSaved(j)
	}
}
