package entity

import (
	"fmt"

	"github.com/kalambet/studyhub/internal/codec"
	"github.com/kalambet/studyhub/internal/model"
)

func courseID(c model.Course) string { return c.ID }

// Courses is the read-only course catalog. Replace swaps in a fresh catalog;
// nothing else writes it.
type Courses struct {
	c *collection[model.Course]
}

func NewCourses(env Env) *Courses {
	env = env.withDefaults()
	return &Courses{c: newCollection(env, codec.Courses)}
}

func (s *Courses) List() ([]model.Course, error) {
	return s.c.list()
}

func (s *Courses) Get(id string) (model.Course, bool, error) {
	items, err := s.c.list()
	if err != nil {
		return model.Course{}, false, err
	}
	c, ok := find(items, courseID, id)
	return c, ok, nil
}

// Modules returns the modules of a course in order.
func (s *Courses) Modules(id string) ([]model.Module, error) {
	c, ok, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFound("course", id)
	}
	return c.Modules, nil
}

// Replace overwrites the whole catalog. Course ids must be unique and non-blank.
func (s *Courses) Replace(catalog []model.Course) error {
	seen := make(map[string]struct{}, len(catalog))
	for i, c := range catalog {
		if c.ID == "" {
			return model.NewValidationError("id", fmt.Sprintf("course %d must not be blank", i))
		}
		if _, dup := seen[c.ID]; dup {
			return model.NewValidationError("id", fmt.Sprintf("duplicate course %q", c.ID))
		}
		seen[c.ID] = struct{}{}
	}
	return s.c.mutate(func([]model.Course) ([]model.Course, error) {
		return catalog, nil
	})
}
