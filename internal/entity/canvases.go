package entity

import (
	"fmt"
	"time"

	"github.com/kalambet/studyhub/internal/codec"
	"github.com/kalambet/studyhub/internal/model"
)

func canvasID(c model.Canvas) string { return c.ID }

// Canvases stores drawing snapshots. A canvas may name an owning space; the
// reference is checked on creation only and is never cascaded.
type Canvases struct {
	env    Env
	c      *collection[model.Canvas]
	spaces *Spaces
}

func NewCanvases(env Env, spaces *Spaces) *Canvases {
	env = env.withDefaults()
	return &Canvases{env: env, c: newCollection(env, codec.Canvases), spaces: spaces}
}

// Create adds a canvas. A non-empty SpaceID must name an existing space.
func (s *Canvases) Create(p model.NewCanvas) (model.Canvas, error) {
	if err := model.Validate(p); err != nil {
		return model.Canvas{}, err
	}
	if p.SpaceID != "" {
		_, ok, err := s.spaces.Get(p.SpaceID)
		if err != nil {
			return model.Canvas{}, err
		}
		if !ok {
			return model.Canvas{}, fmt.Errorf("space %q: %w", p.SpaceID, model.ErrInvalidReference)
		}
	}
	var out model.Canvas
	err := s.c.mutate(func(items []model.Canvas) ([]model.Canvas, error) {
		now := s.env.stamp(time.Time{})
		out = model.Canvas{
			ID:        s.env.IDs.NewID(),
			Name:      p.Name,
			Image:     p.Image,
			SpaceID:   p.SpaceID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return append(items, out), nil
	})
	return result(out, err)
}

func (s *Canvases) Get(id string) (model.Canvas, bool, error) {
	items, err := s.c.list()
	if err != nil {
		return model.Canvas{}, false, err
	}
	c, ok := find(items, canvasID, id)
	return c, ok, nil
}

func (s *Canvases) List() ([]model.Canvas, error) {
	return s.c.list()
}

// ForSpace returns the canvases that name spaceID, whether or not the space still exists.
func (s *Canvases) ForSpace(spaceID string) ([]model.Canvas, error) {
	items, err := s.c.list()
	if err != nil {
		return nil, err
	}
	var out []model.Canvas
	for _, c := range items {
		if c.SpaceID == spaceID {
			out = append(out, c)
		}
	}
	return out, nil
}

// Owner resolves the canvas's space. It reports false for a canvas with no
// space and for one whose space has since been deleted.
func (s *Canvases) Owner(c model.Canvas) (model.Space, bool, error) {
	if c.SpaceID == "" {
		return model.Space{}, false, nil
	}
	return s.spaces.Get(c.SpaceID)
}

func (s *Canvases) Update(id string, u model.CanvasUpdate) (model.Canvas, error) {
	if err := model.Validate(u); err != nil {
		return model.Canvas{}, err
	}
	var out model.Canvas
	err := s.c.mutate(func(items []model.Canvas) ([]model.Canvas, error) {
		i := indexOf(items, canvasID, id)
		if i < 0 {
			return nil, notFound("canvas", id)
		}
		c := items[i]
		if u.Name != nil {
			c.Name = *u.Name
		}
		if u.Image != nil {
			c.Image = *u.Image
		}
		c.UpdatedAt = s.env.stamp(c.UpdatedAt)
		items[i] = c
		out = c
		return items, nil
	})
	return result(out, err)
}

func (s *Canvases) Delete(id string) (bool, error) {
	return remove(s.c, canvasID, id)
}
