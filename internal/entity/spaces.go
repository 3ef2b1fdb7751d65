package entity

import (
	"slices"
	"time"

	"github.com/kalambet/studyhub/internal/codec"
	"github.com/kalambet/studyhub/internal/model"
)

func spaceID(s model.Space) string { return s.ID }

// Spaces stores chat spaces together with their messages.
type Spaces struct {
	env Env
	c   *collection[model.Space]
}

func NewSpaces(env Env) *Spaces {
	env = env.withDefaults()
	return &Spaces{env: env, c: newCollection(env, codec.Spaces)}
}

// Create adds an empty space.
func (s *Spaces) Create(p model.NewSpace) (model.Space, error) {
	if err := model.Validate(p); err != nil {
		return model.Space{}, err
	}
	var out model.Space
	err := s.c.mutate(func(items []model.Space) ([]model.Space, error) {
		now := s.env.stamp(time.Time{})
		out = model.Space{
			ID:        s.env.IDs.NewID(),
			Name:      p.Name,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return append(items, out), nil
	})
	return result(out, err)
}

// Get returns the space with the given id.
func (s *Spaces) Get(id string) (model.Space, bool, error) {
	items, err := s.c.list()
	if err != nil {
		return model.Space{}, false, err
	}
	sp, ok := find(items, spaceID, id)
	return sp, ok, nil
}

// List returns every space in creation order.
func (s *Spaces) List() ([]model.Space, error) {
	return s.c.list()
}

// Recent returns every space ordered by most recent activity first.
func (s *Spaces) Recent() ([]model.Space, error) {
	items, err := s.c.list()
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(items, func(a, b model.Space) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return items, nil
}

// Update renames a space.
func (s *Spaces) Update(id string, u model.SpaceUpdate) (model.Space, error) {
	if err := model.Validate(u); err != nil {
		return model.Space{}, err
	}
	var out model.Space
	err := s.c.mutate(func(items []model.Space) ([]model.Space, error) {
		i := indexOf(items, spaceID, id)
		if i < 0 {
			return nil, notFound("space", id)
		}
		sp := items[i]
		if u.Name != nil {
			sp.Name = *u.Name
		}
		sp.UpdatedAt = s.env.stamp(sp.UpdatedAt)
		items[i] = sp
		out = sp
		return items, nil
	})
	return result(out, err)
}

// Delete removes a space and its messages.
func (s *Spaces) Delete(id string) (bool, error) {
	return remove(s.c, spaceID, id)
}

// AppendMessage adds a message at the end of the space. The message
// timestamp is strictly after the previous message and becomes the space's
// updatedAt.
func (s *Spaces) AppendMessage(id string, p model.NewMessage) (model.Message, error) {
	if err := model.Validate(p); err != nil {
		return model.Message{}, err
	}
	var out model.Message
	err := s.c.mutate(func(items []model.Space) ([]model.Space, error) {
		i := indexOf(items, spaceID, id)
		if i < 0 {
			return nil, notFound("space", id)
		}
		sp := items[i]
		prev := sp.UpdatedAt
		if n := len(sp.Messages); n > 0 && sp.Messages[n-1].Timestamp.After(prev) {
			prev = sp.Messages[n-1].Timestamp
		}
		out = model.Message{
			ID:        s.env.IDs.NewID(),
			Content:   p.Content,
			IsAI:      p.IsAI,
			Timestamp: s.env.stamp(prev),
		}
		sp.Messages = append(sp.Messages, out)
		sp.UpdatedAt = out.Timestamp
		items[i] = sp
		return items, nil
	})
	return result(out, err)
}

// Messages returns the messages of a space in append order.
func (s *Spaces) Messages(id string) ([]model.Message, error) {
	sp, ok, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFound("space", id)
	}
	return sp.Messages, nil
}
