package entity

import (
	"slices"
	"time"

	"github.com/kalambet/studyhub/internal/codec"
	"github.com/kalambet/studyhub/internal/model"
)

func journalID(j model.Journal) string { return j.ID }

// Journals stores rich-text journal entries.
type Journals struct {
	env Env
	c   *collection[model.Journal]
}

func NewJournals(env Env) *Journals {
	env = env.withDefaults()
	return &Journals{env: env, c: newCollection(env, codec.Journals)}
}

func (s *Journals) Create(p model.NewJournal) (model.Journal, error) {
	if err := model.Validate(p); err != nil {
		return model.Journal{}, err
	}
	var out model.Journal
	err := s.c.mutate(func(items []model.Journal) ([]model.Journal, error) {
		now := s.env.stamp(time.Time{})
		out = model.Journal{
			ID:        s.env.IDs.NewID(),
			Title:     p.Title,
			Content:   p.Content,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return append(items, out), nil
	})
	return result(out, err)
}

func (s *Journals) Get(id string) (model.Journal, bool, error) {
	items, err := s.c.list()
	if err != nil {
		return model.Journal{}, false, err
	}
	j, ok := find(items, journalID, id)
	return j, ok, nil
}

// List returns every journal, most recently saved first.
func (s *Journals) List() ([]model.Journal, error) {
	items, err := s.c.list()
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(items, func(a, b model.Journal) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return items, nil
}

func (s *Journals) Update(id string, u model.JournalUpdate) (model.Journal, error) {
	if err := model.Validate(u); err != nil {
		return model.Journal{}, err
	}
	var out model.Journal
	err := s.c.mutate(func(items []model.Journal) ([]model.Journal, error) {
		i := indexOf(items, journalID, id)
		if i < 0 {
			return nil, notFound("journal", id)
		}
		j := items[i]
		if u.Title != nil {
			j.Title = *u.Title
		}
		if u.Content != nil {
			j.Content = *u.Content
		}
		j.UpdatedAt = s.env.stamp(j.UpdatedAt)
		items[i] = j
		out = j
		return items, nil
	})
	return result(out, err)
}

func (s *Journals) Delete(id string) (bool, error) {
	return remove(s.c, journalID, id)
}
