package entity

import (
	"time"

	"github.com/kalambet/studyhub/internal/codec"
	"github.com/kalambet/studyhub/internal/model"
)

func taskID(t model.Task) string { return t.ID }

// Tasks stores to-do items in creation order.
type Tasks struct {
	env Env
	c   *collection[model.Task]
}

func NewTasks(env Env) *Tasks {
	env = env.withDefaults()
	return &Tasks{env: env, c: newCollection(env, codec.Tasks)}
}

func (s *Tasks) Create(p model.NewTask) (model.Task, error) {
	if err := model.Validate(p); err != nil {
		return model.Task{}, err
	}
	var out model.Task
	err := s.c.mutate(func(items []model.Task) ([]model.Task, error) {
		now := s.env.stamp(time.Time{})
		out = model.Task{
			ID:          s.env.IDs.NewID(),
			Title:       p.Title,
			Description: p.Description,
			DueDate:     normalizedDue(p.DueDate),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return append(items, out), nil
	})
	return result(out, err)
}

func (s *Tasks) Get(id string) (model.Task, bool, error) {
	items, err := s.c.list()
	if err != nil {
		return model.Task{}, false, err
	}
	t, ok := find(items, taskID, id)
	return t, ok, nil
}

func (s *Tasks) List() ([]model.Task, error) {
	return s.c.list()
}

// Pending returns the tasks not yet completed, in creation order.
func (s *Tasks) Pending() ([]model.Task, error) {
	items, err := s.c.list()
	if err != nil {
		return nil, err
	}
	var out []model.Task
	for _, t := range items {
		if !t.Completed {
			out = append(out, t)
		}
	}
	return out, nil
}

// Update applies the non-nil fields of u. ClearDueDate removes the due date
// and wins over DueDate.
func (s *Tasks) Update(id string, u model.TaskUpdate) (model.Task, error) {
	if err := model.Validate(u); err != nil {
		return model.Task{}, err
	}
	return s.apply(id, func(t *model.Task) {
		if u.Title != nil {
			t.Title = *u.Title
		}
		if u.Description != nil {
			t.Description = *u.Description
		}
		if u.Completed != nil {
			t.Completed = *u.Completed
		}
		switch {
		case u.ClearDueDate:
			t.DueDate = nil
		case u.DueDate != nil:
			t.DueDate = normalizedDue(u.DueDate)
		}
	})
}

// Toggle flips the completed flag and leaves every other field alone.
func (s *Tasks) Toggle(id string) (model.Task, error) {
	return s.apply(id, func(t *model.Task) { t.Completed = !t.Completed })
}

func (s *Tasks) Delete(id string) (bool, error) {
	return remove(s.c, taskID, id)
}

func (s *Tasks) apply(id string, change func(*model.Task)) (model.Task, error) {
	var out model.Task
	err := s.c.mutate(func(items []model.Task) ([]model.Task, error) {
		i := indexOf(items, taskID, id)
		if i < 0 {
			return nil, notFound("task", id)
		}
		t := items[i]
		change(&t)
		t.UpdatedAt = s.env.stamp(t.UpdatedAt)
		items[i] = t
		out = t
		return items, nil
	})
	return result(out, err)
}

func normalizedDue(d *time.Time) *time.Time {
	if d == nil {
		return nil
	}
	due := codec.Normalize(*d)
	return &due
}
