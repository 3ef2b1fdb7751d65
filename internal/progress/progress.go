// Package progress derives course completion from an enrollment's set of
// completed modules. Progress is never taken from callers.
package progress

import (
	"math"
	"slices"
	"time"

	"github.com/kalambet/studyhub/internal/model"
)

// Percent returns round(100 × |completed ∩ moduleIDs| / |moduleIDs|), or 0
// when the course has no modules.
func Percent(completed, moduleIDs []string) int {
	modules := make(map[string]struct{}, len(moduleIDs))
	for _, id := range moduleIDs {
		modules[id] = struct{}{}
	}
	if len(modules) == 0 {
		return 0
	}

	done := 0
	seen := make(map[string]struct{}, len(completed))
	for _, id := range completed {
		if _, ok := modules[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		done++
	}
	return int(math.Round(100 * float64(done) / float64(len(modules))))
}

// Reconciler keeps an enrollment's progress and last-access time in step
// with its completed modules.
type Reconciler struct {
	Now func() time.Time
}

func (r Reconciler) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

// SetModule marks moduleID complete (done=true) or incomplete and returns the
// updated enrollment. The input enrollment is not modified. A module that is
// not part of the course yields a validation error. When the membership does
// not change the enrollment is only reconciled.
func (r Reconciler) SetModule(e model.Enrollment, course model.Course, moduleID string, done bool) (model.Enrollment, error) {
	if !slices.Contains(course.ModuleIDs(), moduleID) {
		return e, model.NewValidationError("module", "is not part of course "+course.ID)
	}

	out := e
	out.CompletedModules = slices.Clone(e.CompletedModules)
	has := slices.Contains(out.CompletedModules, moduleID)

	switch {
	case done && !has:
		out.CompletedModules = append(out.CompletedModules, moduleID)
	case !done && has:
		out.CompletedModules = slices.DeleteFunc(out.CompletedModules, func(id string) bool { return id == moduleID })
		if len(out.CompletedModules) == 0 {
			out.CompletedModules = nil
		}
	default:
		return r.Reconcile(out, course), nil
	}

	out.LastAccessedAt = r.now()
	return r.Reconcile(out, course), nil
}

// Reconcile recomputes progress from the completed modules without toggling anything.
func (r Reconciler) Reconcile(e model.Enrollment, course model.Course) model.Enrollment {
	e.Progress = Percent(e.CompletedModules, course.ModuleIDs())
	return e
}
