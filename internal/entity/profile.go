package entity

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kalambet/studyhub/internal/codec"
	"github.com/kalambet/studyhub/internal/model"
	"github.com/kalambet/studyhub/internal/storage"
)

// Profile stores the single user profile. Counts are derived from the other
// families on every read and are never written.
type Profile struct {
	cache  Cache
	logger *slog.Logger

	spaces      *Spaces
	journals    *Journals
	enrollments *Enrollments

	mu sync.Mutex
}

func NewProfile(env Env, spaces *Spaces, journals *Journals, enrollments *Enrollments) *Profile {
	env = env.withDefaults()
	return &Profile{
		cache:       env.Cache,
		logger:      env.Logger,
		spaces:      spaces,
		journals:    journals,
		enrollments: enrollments,
	}
}

// Get returns the stored profile with fresh counts. It reports false when no
// profile has been saved yet.
func (s *Profile) Get() (model.UserProfile, bool, error) {
	s.mu.Lock()
	p, ok, err := s.load()
	s.mu.Unlock()
	if err != nil || !ok {
		return model.UserProfile{}, false, err
	}
	counts, err := s.counts(p.ID)
	if err != nil {
		return model.UserProfile{}, false, err
	}
	p.Counts = counts
	return p, true, nil
}

// Save creates or updates the profile for id. Saving under a different id
// replaces the stored profile.
func (s *Profile) Save(id string, u model.ProfileUpdate) (model.UserProfile, error) {
	if strings.TrimSpace(id) == "" {
		return model.UserProfile{}, fmt.Errorf("saving profile without a user: %w", model.ErrNoActiveContext)
	}
	if err := model.Validate(u); err != nil {
		return model.UserProfile{}, err
	}

	s.mu.Lock()
	p, ok, err := s.load()
	if err != nil {
		s.mu.Unlock()
		return model.UserProfile{}, err
	}
	if !ok || p.ID != id {
		p = model.UserProfile{ID: id}
	}
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Email != nil {
		p.Email = *u.Email
	}
	if u.Bio != nil {
		p.Bio = *u.Bio
	}
	if u.Avatar != nil {
		p.Avatar = *u.Avatar
	}
	if u.Interests != nil {
		p.Interests = uniqueInterests(u.Interests)
	}
	err = s.store(p)
	s.mu.Unlock()
	if err != nil {
		return model.UserProfile{}, err
	}

	counts, err := s.counts(p.ID)
	if err != nil {
		return model.UserProfile{}, err
	}
	p.Counts = counts
	return p, nil
}

func (s *Profile) load() (model.UserProfile, bool, error) {
	blob, err := s.cache.Get(codec.KeyProfile)
	if errors.Is(err, storage.ErrNotFound) {
		return model.UserProfile{}, false, nil
	}
	if err != nil {
		return model.UserProfile{}, false, fmt.Errorf("reading %s: %w", codec.KeyProfile, err)
	}
	p, ok, err := codec.Profile.Decode(blob)
	if errors.Is(err, model.ErrCacheDecodeFailed) {
		s.logger.Warn("discarding undecodable cache entry", "family", codec.KeyProfile, "error", err)
		return model.UserProfile{}, false, nil
	}
	return p, ok, err
}

func (s *Profile) store(p model.UserProfile) error {
	blob, err := codec.Profile.Encode(p)
	if err != nil {
		return err
	}
	if err := s.cache.Put(codec.KeyProfile, blob); err != nil {
		return fmt.Errorf("writing %s: %w", codec.KeyProfile, err)
	}
	return nil
}

// counts reads the three source families concurrently.
func (s *Profile) counts(userID string) (model.Counts, error) {
	var c model.Counts
	var g errgroup.Group
	g.Go(func() error {
		items, err := s.spaces.List()
		c.Spaces = len(items)
		return err
	})
	g.Go(func() error {
		items, err := s.journals.List()
		c.Journals = len(items)
		return err
	})
	g.Go(func() error {
		items, err := s.enrollments.ForUser(userID)
		c.Courses = len(items)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.Counts{}, fmt.Errorf("counting profile activity: %w", err)
	}
	return c, nil
}

// uniqueInterests trims, drops blanks and keeps the first occurrence of each interest.
func uniqueInterests(in []string) []string {
	var out []string
	for _, it := range in {
		it = strings.TrimSpace(it)
		if it == "" || slices.Contains(out, it) {
			continue
		}
		out = append(out, it)
	}
	return out
}
