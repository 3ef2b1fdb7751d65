package profile

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/kalambet/studyhub/internal/model"
)

// --- Mock source ---

type mockSource struct {
	mu      sync.Mutex
	profile model.UserProfile
	ok      bool
	err     error
	calls   int
}

func (m *mockSource) Get() (model.UserProfile, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.profile, m.ok, m.err
}

func (m *mockSource) set(p model.UserProfile) {
	m.mu.Lock()
	m.profile, m.ok = p, true
	m.mu.Unlock()
}

// --- Mock clock ---

type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestSummary_NotConfigured(t *testing.T) {
	s := NewSummarizer(&mockSource{})
	got, err := s.Summary()
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if got != notConfigured {
		t.Errorf("Summary() = %q, want %q", got, notConfigured)
	}
}

func TestSummarize_Full(t *testing.T) {
	got := Summarize(model.UserProfile{
		Name:      "Ada",
		Bio:       "Second-year maths student",
		Interests: []string{"algebra", "physics"},
		Counts:    model.Counts{Spaces: 3, Journals: 1, Courses: 2},
	})

	for _, want := range []string{
		"Learner: Ada.",
		"Second-year maths student.",
		"Interests: algebra, physics.",
		"Active in 2 courses, 3 chat spaces, 1 journal.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("summary %q missing %q", got, want)
		}
	}
}

func TestSummarize_EmptyProfile(t *testing.T) {
	if got := Summarize(model.UserProfile{ID: "u1"}); got != notConfigured {
		t.Errorf("Summarize(empty) = %q", got)
	}
}

func TestSummarize_TokenBudget(t *testing.T) {
	interests := make([]string, 400)
	for i := range interests {
		interests[i] = "interest-é"
	}
	got := Summarize(model.UserProfile{Name: "Ada", Interests: interests})
	if len(got) > maxSummaryChars {
		t.Errorf("summary length %d exceeds %d", len(got), maxSummaryChars)
	}
	if !utf8.ValidString(got) {
		t.Error("summary is not valid UTF-8 after truncation")
	}
}

func TestSummary_CacheTTL(t *testing.T) {
	src := &mockSource{}
	src.set(model.UserProfile{Name: "Ada"})
	clock := &mockClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewSummarizerWithClock(src, clock, time.Minute)

	s.Summary()
	s.Summary()
	if src.calls != 1 {
		t.Errorf("source calls = %d, want 1 within TTL", src.calls)
	}

	clock.Advance(2 * time.Minute)
	s.Summary()
	if src.calls != 2 {
		t.Errorf("source calls = %d, want 2 after TTL", src.calls)
	}
}

func TestSummary_Invalidate(t *testing.T) {
	src := &mockSource{}
	src.set(model.UserProfile{Name: "Ada"})
	clock := &mockClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewSummarizerWithClock(src, clock, time.Hour)

	s.Summary()
	src.set(model.UserProfile{Name: "Grace"})
	s.Invalidate()

	got, err := s.Summary()
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if !strings.Contains(got, "Grace") {
		t.Errorf("Summary() = %q, want the refreshed profile", got)
	}
}

func TestSummary_SourceError(t *testing.T) {
	s := NewSummarizer(&mockSource{err: errors.New("disk gone")})
	if _, err := s.Summary(); err == nil {
		t.Error("expected error")
	}
}
