// Package profile turns the stored user profile into a compact summary that
// the AI responder places in its system prompt.
package profile

import (
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/kalambet/studyhub/internal/model"
)

// Source reads the current profile. Implemented by entity.Profile.
type Source interface {
	Get() (model.UserProfile, bool, error)
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Summarizer caches the rendered summary for a short TTL so that a burst of
// sends does not re-read every family for each prompt.
type Summarizer struct {
	source Source
	clock  Clock
	ttl    time.Duration

	mu       sync.RWMutex
	cached   string
	cachedAt time.Time
	valid    bool
}

// NewSummarizer creates a Summarizer with a 60-second cache TTL.
func NewSummarizer(source Source) *Summarizer {
	return NewSummarizerWithClock(source, realClock{}, 60*time.Second)
}

// NewSummarizerWithClock creates a Summarizer with a custom clock (for testing).
func NewSummarizerWithClock(source Source, clock Clock, ttl time.Duration) *Summarizer {
	return &Summarizer{source: source, clock: clock, ttl: ttl}
}

// Summary returns the profile summary, reading the source at most once per TTL.
func (s *Summarizer) Summary() (string, error) {
	s.mu.RLock()
	if s.valid && s.clock.Now().Before(s.cachedAt.Add(s.ttl)) {
		out := s.cached
		s.mu.RUnlock()
		return out, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock.
	if s.valid && s.clock.Now().Before(s.cachedAt.Add(s.ttl)) {
		return s.cached, nil
	}

	p, ok, err := s.source.Get()
	if err != nil {
		return "", fmt.Errorf("loading profile for summary: %w", err)
	}
	summary := notConfigured
	if ok {
		summary = Summarize(p)
	}
	s.cached, s.cachedAt, s.valid = summary, s.clock.Now(), true
	return summary, nil
}

// Invalidate drops the cached summary, e.g. after the profile is saved.
func (s *Summarizer) Invalidate() {
	s.mu.Lock()
	s.valid = false
	s.mu.Unlock()
}

// maxSummaryChars caps the summary to stay under ~500 tokens (4 chars/token).
const maxSummaryChars = 2000

const notConfigured = "Learner profile: not yet configured."

// Summarize renders p as a few short sentences.
func Summarize(p model.UserProfile) string {
	var parts []string

	if p.Name != "" {
		parts = append(parts, fmt.Sprintf("Learner: %s.", p.Name))
	}
	if bio := strings.TrimSpace(p.Bio); bio != "" {
		parts = append(parts, strings.TrimSuffix(bio, ".")+".")
	}
	if len(p.Interests) > 0 {
		parts = append(parts, fmt.Sprintf("Interests: %s.", strings.Join(p.Interests, ", ")))
	}

	var activity []string
	if n := p.Counts.Courses; n > 0 {
		activity = append(activity, plural(n, "course"))
	}
	if n := p.Counts.Spaces; n > 0 {
		activity = append(activity, plural(n, "chat space"))
	}
	if n := p.Counts.Journals; n > 0 {
		activity = append(activity, plural(n, "journal"))
	}
	if len(activity) > 0 {
		parts = append(parts, fmt.Sprintf("Active in %s.", strings.Join(activity, ", ")))
	}

	if len(parts) == 0 {
		return notConfigured
	}
	return truncate(strings.Join(parts, " "), maxSummaryChars)
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// truncate cuts s to at most limit bytes at a word boundary without
// splitting a multi-byte character.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	end := limit
	for end > 0 && !utf8.RuneStart(s[end]) {
		end--
	}
	if idx := strings.LastIndex(s[:end], " "); idx > 0 {
		return s[:idx]
	}
	return s[:end]
}
