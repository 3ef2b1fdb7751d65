package entity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kalambet/studyhub/internal/codec"
	"github.com/kalambet/studyhub/internal/model"
	"github.com/kalambet/studyhub/internal/progress"
)

func enrollmentKey(e model.Enrollment) string { return e.Key() }

// Enrollments stores per-user course progress, at most one record per
// (course, user) pair. Removing a course from the catalog leaves its
// enrollments in place.
type Enrollments struct {
	env     Env
	c       *collection[model.Enrollment]
	courses *Courses
	rec     progress.Reconciler
}

func NewEnrollments(env Env, courses *Courses) *Enrollments {
	env = env.withDefaults()
	return &Enrollments{
		env:     env,
		c:       newCollection(env, codec.Enrollments),
		courses: courses,
		rec:     progress.Reconciler{Now: func() time.Time { return codec.Normalize(env.Clock.Now()) }},
	}
}

// Enroll creates the enrollment for (userID, courseID), or returns the
// existing one unchanged. The course must be in the catalog.
func (s *Enrollments) Enroll(userID, courseID string) (model.Enrollment, error) {
	if strings.TrimSpace(userID) == "" {
		return model.Enrollment{}, fmt.Errorf("enrolling without a user: %w", model.ErrNoActiveContext)
	}
	course, ok, err := s.courses.Get(courseID)
	if err != nil {
		return model.Enrollment{}, err
	}
	if !ok {
		return model.Enrollment{}, fmt.Errorf("course %q: %w", courseID, model.ErrInvalidReference)
	}

	key := model.EnrollmentKey(userID, courseID)
	var out model.Enrollment
	err = s.c.mutate(func(items []model.Enrollment) ([]model.Enrollment, error) {
		if e, ok := find(items, enrollmentKey, key); ok {
			out = e
			return nil, errAbsent
		}
		now := s.env.stamp(time.Time{})
		out = s.rec.Reconcile(model.Enrollment{
			CourseID:       courseID,
			UserID:         userID,
			EnrolledAt:     now,
			LastAccessedAt: now,
		}, course)
		return append(items, out), nil
	})
	if errors.Is(err, errAbsent) {
		err = nil
	}
	return result(out, err)
}

// Get returns the enrollment with progress derived from the current catalog.
func (s *Enrollments) Get(userID, courseID string) (model.Enrollment, bool, error) {
	items, err := s.c.list()
	if err != nil {
		return model.Enrollment{}, false, err
	}
	e, ok := find(items, enrollmentKey, model.EnrollmentKey(userID, courseID))
	if !ok {
		return model.Enrollment{}, false, nil
	}
	out, err := s.reconcile([]model.Enrollment{e})
	if err != nil {
		return model.Enrollment{}, false, err
	}
	return out[0], true, nil
}

// ForUser returns the user's enrollments in enrollment order.
func (s *Enrollments) ForUser(userID string) ([]model.Enrollment, error) {
	items, err := s.c.list()
	if err != nil {
		return nil, err
	}
	var out []model.Enrollment
	for _, e := range items {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return s.reconcile(out)
}

// reconcile recomputes progress against the catalog as it is now. An
// enrollment whose course left the catalog reads as 0.
func (s *Enrollments) reconcile(items []model.Enrollment) ([]model.Enrollment, error) {
	if len(items) == 0 {
		return items, nil
	}
	catalog, err := s.courses.List()
	if err != nil {
		return nil, err
	}
	byID := make(map[string]model.Course, len(catalog))
	for _, c := range catalog {
		byID[c.ID] = c
	}
	for i, e := range items {
		items[i] = s.rec.Reconcile(e, byID[e.CourseID])
	}
	return items, nil
}

// SetModuleCompleted marks a module complete or incomplete and recomputes progress.
func (s *Enrollments) SetModuleCompleted(userID, courseID, moduleID string, done bool) (model.Enrollment, error) {
	course, ok, err := s.courses.Get(courseID)
	if err != nil {
		return model.Enrollment{}, err
	}
	if !ok {
		return model.Enrollment{}, notFound("course", courseID)
	}

	key := model.EnrollmentKey(userID, courseID)
	var out model.Enrollment
	err = s.c.mutate(func(items []model.Enrollment) ([]model.Enrollment, error) {
		i := indexOf(items, enrollmentKey, key)
		if i < 0 {
			return nil, notFound("enrollment", key)
		}
		e, err := s.rec.SetModule(items[i], course, moduleID, done)
		if err != nil {
			return nil, err
		}
		items[i] = e
		out = e
		return items, nil
	})
	return result(out, err)
}

func (s *Enrollments) Unenroll(userID, courseID string) (bool, error) {
	return remove(s.c, enrollmentKey, model.EnrollmentKey(userID, courseID))
}
