package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/studyhub/internal/model"
)

func course(n int) model.Course {
	c := model.Course{ID: "go101"}
	for i := range n {
		c.Modules = append(c.Modules, model.Module{ID: string(rune('a' + i))})
	}
	return c
}

func TestPercent(t *testing.T) {
	cases := []struct {
		name      string
		completed []string
		modules   []string
		want      int
	}{
		{"empty course", []string{"a"}, nil, 0},
		{"none done", nil, []string{"a", "b"}, 0},
		{"quarter", []string{"a"}, []string{"a", "b", "c", "d"}, 25},
		{"third rounds down", []string{"a"}, []string{"a", "b", "c"}, 33},
		{"two thirds rounds up", []string{"a", "b"}, []string{"a", "b", "c"}, 67},
		{"stale ids ignored", []string{"a", "zz"}, []string{"a", "b"}, 50},
		{"duplicates counted once", []string{"a", "a"}, []string{"a", "b"}, 50},
		{"all done", []string{"b", "a"}, []string{"a", "b"}, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Percent(tc.completed, tc.modules))
		})
	}
}

func TestSetModule_FourModuleCourse(t *testing.T) {
	now := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	r := Reconciler{Now: func() time.Time { return now }}
	c := course(4)

	e, err := r.SetModule(model.Enrollment{CourseID: c.ID, UserID: "u1"}, c, "a", true)
	require.NoError(t, err)
	assert.Equal(t, 25, e.Progress)
	assert.Equal(t, now, e.LastAccessedAt)

	e, err = r.SetModule(e, c, "b", true)
	require.NoError(t, err)
	assert.Equal(t, 50, e.Progress)
	assert.Equal(t, []string{"a", "b"}, e.CompletedModules)

	e, err = r.SetModule(e, c, "a", false)
	require.NoError(t, err)
	assert.Equal(t, 25, e.Progress)
	assert.Equal(t, []string{"b"}, e.CompletedModules)
}

func TestSetModule_DoesNotMutateInput(t *testing.T) {
	r := Reconciler{}
	c := course(2)
	in := model.Enrollment{CompletedModules: []string{"a"}}

	out, err := r.SetModule(in, c, "b", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, in.CompletedModules)
	assert.Equal(t, []string{"a", "b"}, out.CompletedModules)
}

func TestSetModule_UnchangedMembershipKeepsAccessTime(t *testing.T) {
	r := Reconciler{Now: func() time.Time { return time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC) }}
	c := course(2)
	prev := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	e, err := r.SetModule(model.Enrollment{CompletedModules: []string{"a"}, LastAccessedAt: prev}, c, "a", true)
	require.NoError(t, err)
	assert.Equal(t, prev, e.LastAccessedAt)
	assert.Equal(t, 50, e.Progress)
}

func TestSetModule_UnknownModule(t *testing.T) {
	_, err := Reconciler{}.SetModule(model.Enrollment{}, course(2), "nope", true)
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestSetModule_LastModuleRemovedLeavesNil(t *testing.T) {
	c := course(1)
	e, err := Reconciler{}.SetModule(model.Enrollment{CompletedModules: []string{"a"}}, c, "a", false)
	require.NoError(t, err)
	assert.Nil(t, e.CompletedModules)
	assert.Equal(t, 0, e.Progress)
}

func TestReconcile_EmptyCourse(t *testing.T) {
	e := Reconciler{}.Reconcile(model.Enrollment{CompletedModules: []string{"a"}, Progress: 80}, model.Course{})
	assert.Equal(t, 0, e.Progress)
}
