package entity

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/studyhub/internal/codec"
	"github.com/kalambet/studyhub/internal/ident"
	"github.com/kalambet/studyhub/internal/model"
	"github.com/kalambet/studyhub/internal/storage"
)

// memCache is an in-memory Cache with an injectable write failure.
type memCache struct {
	mu     sync.Mutex
	data   map[string]string
	puts   int
	putErr error
}

func newMemCache() *memCache { return &memCache{data: map[string]string{}} }

func (m *memCache) Get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return v, nil
}

func (m *memCache) Put(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.puts++
	m.data[key] = value
	return nil
}

func (m *memCache) failPuts(err error) {
	m.mu.Lock()
	m.putErr = err
	m.mu.Unlock()
}

// stepClock advances by step on every call. A zero step is a stalled clock.
type stepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

var epoch = time.Date(2025, 3, 14, 9, 26, 53, 589_000_000, time.UTC)

func seqIDs() ident.Generator {
	var n atomic.Int64
	return ident.Func(func() string { return fmt.Sprintf("id-%d", n.Add(1)) })
}

func testEnv(step time.Duration) (Env, *memCache) {
	cache := newMemCache()
	return Env{Cache: cache, Clock: &stepClock{now: epoch, step: step}, IDs: seqIDs()}, cache
}

// --- spaces ---

func TestSpaces_CreateThenList(t *testing.T) {
	env, _ := testEnv(time.Second)
	spaces := NewSpaces(env)

	sp, err := spaces.Create(model.NewSpace{Name: "Algebra Help"})
	require.NoError(t, err)
	assert.NotEmpty(t, sp.ID)
	assert.Equal(t, "Algebra Help", sp.Name)
	assert.Empty(t, sp.Messages)
	assert.Equal(t, sp.CreatedAt, sp.UpdatedAt)

	list, err := spaces.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, sp, list[0])
}

func TestSpaces_AppendMessagesInOrder(t *testing.T) {
	env, _ := testEnv(0) // stalled clock
	spaces := NewSpaces(env)

	sp, err := spaces.Create(model.NewSpace{Name: "Algebra Help"})
	require.NoError(t, err)

	m1, err := spaces.AppendMessage(sp.ID, model.NewMessage{Content: "2+2=4"})
	require.NoError(t, err)
	after1, _, err := spaces.Get(sp.ID)
	require.NoError(t, err)

	m2, err := spaces.AppendMessage(sp.ID, model.NewMessage{Content: "Correct!", IsAI: true})
	require.NoError(t, err)
	after2, _, err := spaces.Get(sp.ID)
	require.NoError(t, err)

	require.Len(t, after2.Messages, 2)
	assert.Equal(t, "2+2=4", after2.Messages[0].Content)
	assert.False(t, after2.Messages[0].IsAI)
	assert.Equal(t, "Correct!", after2.Messages[1].Content)
	assert.True(t, after2.Messages[1].IsAI)
	assert.NotEqual(t, m1.ID, m2.ID)

	assert.True(t, after1.UpdatedAt.After(sp.UpdatedAt))
	assert.True(t, after2.UpdatedAt.After(after1.UpdatedAt))
	assert.True(t, m2.Timestamp.After(m1.Timestamp))
	assert.False(t, after2.UpdatedAt.Before(after2.CreatedAt))
}

func TestSpaces_AppendToMissingSpace(t *testing.T) {
	env, cache := testEnv(time.Second)
	spaces := NewSpaces(env)

	_, err := spaces.AppendMessage("nope", model.NewMessage{Content: "hi"})
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Zero(t, cache.puts)
}

func TestSpaces_ConcurrentAppendsKeepEveryMessage(t *testing.T) {
	env, _ := testEnv(time.Millisecond)
	spaces := NewSpaces(env)
	sp, err := spaces.Create(model.NewSpace{Name: "busy"})
	require.NoError(t, err)

	const n = 50
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := spaces.AppendMessage(sp.ID, model.NewMessage{Content: fmt.Sprintf("m%d", i)})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	msgs, err := spaces.Messages(sp.ID)
	require.NoError(t, err)
	require.Len(t, msgs, n)
	for i := 1; i < n; i++ {
		assert.True(t, msgs[i].Timestamp.After(msgs[i-1].Timestamp))
	}
}

func TestSpaces_RecentOrdersByActivity(t *testing.T) {
	env, _ := testEnv(time.Second)
	spaces := NewSpaces(env)

	a, _ := spaces.Create(model.NewSpace{Name: "a"})
	b, _ := spaces.Create(model.NewSpace{Name: "b"})
	_, err := spaces.AppendMessage(a.ID, model.NewMessage{Content: "bump"})
	require.NoError(t, err)

	recent, err := spaces.Recent()
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, a.ID, recent[0].ID)
	assert.Equal(t, b.ID, recent[1].ID)

	list, err := spaces.List()
	require.NoError(t, err)
	assert.Equal(t, a.ID, list[0].ID, "List keeps insertion order")
}

func TestSpaces_DeleteDropsMessages(t *testing.T) {
	env, _ := testEnv(time.Second)
	spaces := NewSpaces(env)
	sp, _ := spaces.Create(model.NewSpace{Name: "gone"})
	_, _ = spaces.AppendMessage(sp.ID, model.NewMessage{Content: "hi"})

	removed, err := spaces.Delete(sp.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = spaces.Delete(sp.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = spaces.Messages(sp.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestSpaces_BlankNameRejected(t *testing.T) {
	env, cache := testEnv(time.Second)
	_, err := NewSpaces(env).Create(model.NewSpace{Name: "  "})
	assert.ErrorIs(t, err, model.ErrValidation)
	assert.Zero(t, cache.puts)
}

func TestSpaces_ListIsASnapshot(t *testing.T) {
	env, _ := testEnv(time.Second)
	spaces := NewSpaces(env)
	sp, _ := spaces.Create(model.NewSpace{Name: "orig"})
	_, _ = spaces.AppendMessage(sp.ID, model.NewMessage{Content: "hi"})

	list, err := spaces.List()
	require.NoError(t, err)
	list[0].Name = "mutated"
	list[0].Messages[0].Content = "mutated"

	again, _, err := spaces.Get(sp.ID)
	require.NoError(t, err)
	assert.Equal(t, "orig", again.Name)
	assert.Equal(t, "hi", again.Messages[0].Content)
}

// --- journals ---

func TestJournals_UpdateMissingLeavesListUnchanged(t *testing.T) {
	env, _ := testEnv(time.Second)
	journals := NewJournals(env)
	_, err := journals.Create(model.NewJournal{Title: "Day one"})
	require.NoError(t, err)
	before, err := journals.List()
	require.NoError(t, err)

	_, err = journals.Update("nonexistent-id", model.JournalUpdate{Title: model.Ptr("x")})
	assert.ErrorIs(t, err, model.ErrNotFound)

	after, err := journals.List()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestJournals_UpdateStrictlyIncreasesUpdatedAt(t *testing.T) {
	env, _ := testEnv(0)
	journals := NewJournals(env)
	j, err := journals.Create(model.NewJournal{Title: "draft"})
	require.NoError(t, err)

	prev := j.UpdatedAt
	for i := range 5 {
		j, err = journals.Update(j.ID, model.JournalUpdate{Content: model.Ptr(fmt.Sprintf("v%d", i))})
		require.NoError(t, err)
		assert.True(t, j.UpdatedAt.After(prev), "update %d did not move updatedAt", i)
		prev = j.UpdatedAt
	}
	assert.Equal(t, "draft", j.Title)
	assert.Equal(t, j.CreatedAt, epoch)
}

func TestJournals_ListNewestFirst(t *testing.T) {
	env, _ := testEnv(time.Second)
	journals := NewJournals(env)
	a, _ := journals.Create(model.NewJournal{Title: "a"})
	b, _ := journals.Create(model.NewJournal{Title: "b"})

	list, err := journals.List()
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID, a.ID}, []string{list[0].ID, list[1].ID})

	_, err = journals.Update(a.ID, model.JournalUpdate{Content: model.Ptr("edited")})
	require.NoError(t, err)
	list, err = journals.List()
	require.NoError(t, err)
	assert.Equal(t, a.ID, list[0].ID)
}

func TestJournals_FailedWriteChangesNothing(t *testing.T) {
	env, cache := testEnv(time.Second)
	journals := NewJournals(env)
	j, err := journals.Create(model.NewJournal{Title: "keep"})
	require.NoError(t, err)

	cache.failPuts(errors.New("disk full"))
	got, err := journals.Update(j.ID, model.JournalUpdate{Title: model.Ptr("lost")})
	require.Error(t, err)
	assert.Zero(t, got)

	_, err = journals.Create(model.NewJournal{Title: "lost"})
	require.Error(t, err)

	list, err := journals.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, j, list[0])
}

func TestJournals_CorruptCacheReadsAsEmpty(t *testing.T) {
	env, cache := testEnv(time.Second)
	cache.data[codec.KeyJournals] = "{{{not json"
	journals := NewJournals(env)

	list, err := journals.List()
	require.NoError(t, err)
	assert.Empty(t, list)

	j, err := journals.Create(model.NewJournal{Title: "fresh start"})
	require.NoError(t, err)
	list, err = journals.List()
	require.NoError(t, err)
	assert.Equal(t, []model.Journal{j}, list)
}

func TestJournals_CorruptFamilyIsIsolated(t *testing.T) {
	env, cache := testEnv(time.Second)
	tasks := NewTasks(env)
	_, err := tasks.Create(model.NewTask{Title: "survivor"})
	require.NoError(t, err)
	cache.data[codec.KeyJournals] = "garbage"

	_, err = NewJournals(env).List()
	require.NoError(t, err)
	list, err := tasks.List()
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

// --- canvases ---

func TestCanvases_SpaceReference(t *testing.T) {
	env, _ := testEnv(time.Second)
	spaces := NewSpaces(env)
	canvases := NewCanvases(env, spaces)

	_, err := canvases.Create(model.NewCanvas{Name: "sketch", SpaceID: "missing"})
	assert.ErrorIs(t, err, model.ErrInvalidReference)

	sp, _ := spaces.Create(model.NewSpace{Name: "physics"})
	c, err := canvases.Create(model.NewCanvas{Name: "sketch", Image: "blob:1", SpaceID: sp.ID})
	require.NoError(t, err)

	owner, ok, err := canvases.Owner(c)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sp.ID, owner.ID)

	// Deleting the space does not cascade; the reference dangles.
	_, err = spaces.Delete(sp.ID)
	require.NoError(t, err)
	_, ok, err = canvases.Owner(c)
	require.NoError(t, err)
	assert.False(t, ok)

	still, ok, err := canvases.Get(c.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sp.ID, still.SpaceID)

	forSpace, err := canvases.ForSpace(sp.ID)
	require.NoError(t, err)
	assert.Len(t, forSpace, 1)
}

func TestCanvases_UpdateAndDelete(t *testing.T) {
	env, _ := testEnv(time.Second)
	canvases := NewCanvases(env, NewSpaces(env))
	c, err := canvases.Create(model.NewCanvas{Name: "loose", Image: "blob:1"})
	require.NoError(t, err)

	_, ok, err := canvases.Owner(c)
	require.NoError(t, err)
	assert.False(t, ok)

	up, err := canvases.Update(c.ID, model.CanvasUpdate{Image: model.Ptr("blob:2")})
	require.NoError(t, err)
	assert.Equal(t, "loose", up.Name)
	assert.Equal(t, "blob:2", up.Image)
	assert.True(t, up.UpdatedAt.After(c.UpdatedAt))

	_, err = canvases.Update("nope", model.CanvasUpdate{})
	assert.ErrorIs(t, err, model.ErrNotFound)

	removed, err := canvases.Delete(c.ID)
	require.NoError(t, err)
	assert.True(t, removed)
}

// --- tasks ---

func TestTasks_ToggleOnlyFlipsCompleted(t *testing.T) {
	env, _ := testEnv(time.Second)
	tasks := NewTasks(env)
	due := epoch.Add(72 * time.Hour)
	task, err := tasks.Create(model.NewTask{Title: "Lab report", Description: "physics", DueDate: &due})
	require.NoError(t, err)

	toggled, err := tasks.Toggle(task.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Completed)
	assert.Equal(t, task.Title, toggled.Title)
	assert.Equal(t, task.Description, toggled.Description)
	assert.Equal(t, task.DueDate, toggled.DueDate)
	assert.True(t, toggled.UpdatedAt.After(task.UpdatedAt))

	pending, err := tasks.Pending()
	require.NoError(t, err)
	assert.Empty(t, pending)

	back, err := tasks.Toggle(task.ID)
	require.NoError(t, err)
	assert.False(t, back.Completed)

	_, err = tasks.Toggle("nope")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestTasks_UpdateDueDate(t *testing.T) {
	env, _ := testEnv(time.Second)
	tasks := NewTasks(env)
	task, err := tasks.Create(model.NewTask{Title: "read"})
	require.NoError(t, err)
	assert.Nil(t, task.DueDate)

	due := epoch.Add(24 * time.Hour)
	task, err = tasks.Update(task.ID, model.TaskUpdate{DueDate: &due})
	require.NoError(t, err)
	require.NotNil(t, task.DueDate)
	assert.True(t, task.DueDate.Equal(due))

	task, err = tasks.Update(task.ID, model.TaskUpdate{ClearDueDate: true, DueDate: &due})
	require.NoError(t, err)
	assert.Nil(t, task.DueDate)

	_, err = tasks.Update(task.ID, model.TaskUpdate{Title: model.Ptr("")})
	assert.ErrorIs(t, err, model.ErrValidation)
}

// --- courses and enrollments ---

func fourModuleCourse() model.Course {
	return model.Course{
		ID: "go101", Title: "Go", Domain: "programming", Duration: 240,
		Modules: []model.Module{{ID: "m1"}, {ID: "m2"}, {ID: "m3"}, {ID: "m4"}},
	}
}

func TestEnrollments_ProgressFollowsModules(t *testing.T) {
	env, _ := testEnv(time.Second)
	courses := NewCourses(env)
	require.NoError(t, courses.Replace([]model.Course{fourModuleCourse()}))
	enrollments := NewEnrollments(env, courses)

	e, err := enrollments.Enroll("u1", "go101")
	require.NoError(t, err)
	assert.Equal(t, 0, e.Progress)

	e, err = enrollments.SetModuleCompleted("u1", "go101", "m1", true)
	require.NoError(t, err)
	assert.Equal(t, 25, e.Progress)

	e, err = enrollments.SetModuleCompleted("u1", "go101", "m2", true)
	require.NoError(t, err)
	assert.Equal(t, 50, e.Progress)

	stored, ok, err := enrollments.Get("u1", "go101")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, e, stored)
	assert.True(t, stored.LastAccessedAt.After(stored.EnrolledAt))
}

func TestEnrollments_EnrollIsIdempotent(t *testing.T) {
	env, _ := testEnv(time.Second)
	courses := NewCourses(env)
	require.NoError(t, courses.Replace([]model.Course{fourModuleCourse()}))
	enrollments := NewEnrollments(env, courses)

	first, err := enrollments.Enroll("u1", "go101")
	require.NoError(t, err)
	_, err = enrollments.SetModuleCompleted("u1", "go101", "m3", true)
	require.NoError(t, err)

	again, err := enrollments.Enroll("u1", "go101")
	require.NoError(t, err)
	assert.Equal(t, first.EnrolledAt, again.EnrolledAt)
	assert.Equal(t, 25, again.Progress)

	mine, err := enrollments.ForUser("u1")
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestEnrollments_SeparatorInIdsDoesNotCollide(t *testing.T) {
	env, _ := testEnv(time.Second)
	courses := NewCourses(env)
	require.NoError(t, courses.Replace([]model.Course{
		{ID: "a|b", Modules: []model.Module{{ID: "m1"}}},
		{ID: "a", Modules: []model.Module{{ID: "m1"}, {ID: "m2"}}},
	}))
	enrollments := NewEnrollments(env, courses)

	_, err := enrollments.Enroll("c", "a|b")
	require.NoError(t, err)
	e, err := enrollments.Enroll("b|c", "a")
	require.NoError(t, err)
	assert.Equal(t, "b|c", e.UserID)
	assert.Equal(t, "a", e.CourseID)

	theirs, err := enrollments.ForUser("b|c")
	require.NoError(t, err)
	require.Len(t, theirs, 1)
	assert.Equal(t, "a", theirs[0].CourseID)

	_, err = enrollments.SetModuleCompleted("b|c", "a", "m1", true)
	require.NoError(t, err)
	mine, ok, err := enrollments.Get("c", "a|b")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Zero(t, mine.Progress, "another user's progress leaked in")

	removed, err := enrollments.Unenroll("b|c", "a")
	require.NoError(t, err)
	assert.True(t, removed)
	_, ok, err = enrollments.Get("c", "a|b")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEnrollments_Errors(t *testing.T) {
	env, _ := testEnv(time.Second)
	courses := NewCourses(env)
	require.NoError(t, courses.Replace([]model.Course{fourModuleCourse()}))
	enrollments := NewEnrollments(env, courses)

	_, err := enrollments.Enroll("", "go101")
	assert.ErrorIs(t, err, model.ErrNoActiveContext)

	_, err = enrollments.Enroll("u1", "missing")
	assert.ErrorIs(t, err, model.ErrInvalidReference)

	_, err = enrollments.SetModuleCompleted("u1", "go101", "m1", true)
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = enrollments.Enroll("u1", "go101")
	require.NoError(t, err)
	_, err = enrollments.SetModuleCompleted("u1", "go101", "m9", true)
	assert.ErrorIs(t, err, model.ErrValidation)

	removed, err := enrollments.Unenroll("u1", "go101")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = enrollments.Unenroll("u1", "go101")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestEnrollments_SurviveCourseRemoval(t *testing.T) {
	env, _ := testEnv(time.Second)
	courses := NewCourses(env)
	require.NoError(t, courses.Replace([]model.Course{fourModuleCourse()}))
	enrollments := NewEnrollments(env, courses)
	_, err := enrollments.Enroll("u1", "go101")
	require.NoError(t, err)

	require.NoError(t, courses.Replace(nil))

	e, ok, err := enrollments.Get("u1", "go101")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, e.Progress)
	_, err = enrollments.SetModuleCompleted("u1", "go101", "m1", true)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestEnrollments_ProgressFollowsCatalogReplace(t *testing.T) {
	env, _ := testEnv(time.Second)
	courses := NewCourses(env)
	require.NoError(t, courses.Replace([]model.Course{fourModuleCourse()}))
	enrollments := NewEnrollments(env, courses)
	_, err := enrollments.Enroll("u1", "go101")
	require.NoError(t, err)
	e, err := enrollments.SetModuleCompleted("u1", "go101", "m1", true)
	require.NoError(t, err)
	require.Equal(t, 25, e.Progress)

	shorter := fourModuleCourse()
	shorter.Modules = shorter.Modules[:2]
	require.NoError(t, courses.Replace([]model.Course{shorter}))

	e, ok, err := enrollments.Get("u1", "go101")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 50, e.Progress)
	assert.Equal(t, []string{"m1"}, e.CompletedModules)

	mine, err := enrollments.ForUser("u1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, 50, mine[0].Progress)

	// A module dropped from the course no longer counts.
	withoutM1 := fourModuleCourse()
	withoutM1.Modules = withoutM1.Modules[1:]
	require.NoError(t, courses.Replace([]model.Course{withoutM1}))
	e, _, err = enrollments.Get("u1", "go101")
	require.NoError(t, err)
	assert.Equal(t, 0, e.Progress)
}

func TestCourses_Catalog(t *testing.T) {
	env, _ := testEnv(time.Second)
	courses := NewCourses(env)

	err := courses.Replace([]model.Course{{ID: "a"}, {ID: "a"}})
	assert.ErrorIs(t, err, model.ErrValidation)

	require.NoError(t, courses.Replace([]model.Course{fourModuleCourse()}))
	mods, err := courses.Modules("go101")
	require.NoError(t, err)
	assert.Len(t, mods, 4)

	_, err = courses.Modules("nope")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

// --- profile ---

func TestProfile_CountsDerivedOnRead(t *testing.T) {
	env, cache := testEnv(time.Second)
	spaces := NewSpaces(env)
	journals := NewJournals(env)
	courses := NewCourses(env)
	require.NoError(t, courses.Replace([]model.Course{fourModuleCourse(), {ID: "go102"}}))
	enrollments := NewEnrollments(env, courses)
	profile := NewProfile(env, spaces, journals, enrollments)

	_, ok, err := profile.Get()
	require.NoError(t, err)
	assert.False(t, ok)

	_, _ = spaces.Create(model.NewSpace{Name: "a"})
	_, _ = spaces.Create(model.NewSpace{Name: "b"})
	_, _ = journals.Create(model.NewJournal{Title: "j"})
	_, _ = enrollments.Enroll("u1", "go101")
	_, _ = enrollments.Enroll("u1", "go102")
	_, _ = enrollments.Enroll("someone-else", "go101")

	saved, err := profile.Save("u1", model.ProfileUpdate{
		Name:      model.Ptr("Ada"),
		Email:     model.Ptr("ada@example.com"),
		Interests: []string{"math", " math ", "physics", ""},
	})
	require.NoError(t, err)
	assert.Equal(t, model.Counts{Spaces: 2, Journals: 1, Courses: 2}, saved.Counts)
	assert.Equal(t, []string{"math", "physics"}, saved.Interests)
	assert.NotContains(t, cache.data[codec.KeyProfile], "ounts")

	_, _ = journals.Create(model.NewJournal{Title: "another"})
	got, ok, err := profile.Get()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, got.Counts.Journals)
	assert.Equal(t, "Ada", got.Name)
}

func TestProfile_SaveValidates(t *testing.T) {
	env, cache := testEnv(time.Second)
	profile := NewProfile(env, NewSpaces(env), NewJournals(env), NewEnrollments(env, NewCourses(env)))

	_, err := profile.Save("", model.ProfileUpdate{})
	assert.ErrorIs(t, err, model.ErrNoActiveContext)

	_, err = profile.Save("u1", model.ProfileUpdate{Email: model.Ptr("nope")})
	assert.ErrorIs(t, err, model.ErrValidation)
	assert.Zero(t, cache.puts)
}

func TestProfile_SaveMergesFields(t *testing.T) {
	env, _ := testEnv(time.Second)
	profile := NewProfile(env, NewSpaces(env), NewJournals(env), NewEnrollments(env, NewCourses(env)))

	_, err := profile.Save("u1", model.ProfileUpdate{Name: model.Ptr("Ada"), Bio: model.Ptr("student")})
	require.NoError(t, err)
	p, err := profile.Save("u1", model.ProfileUpdate{Avatar: model.Ptr("blob:me")})
	require.NoError(t, err)
	assert.Equal(t, "Ada", p.Name)
	assert.Equal(t, "student", p.Bio)
	assert.Equal(t, "blob:me", p.Avatar)
}

// --- durable cache ---

func TestStores_PersistThroughSQLite(t *testing.T) {
	db, err := storage.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	env := Env{Cache: db}
	sp, err := NewSpaces(env).Create(model.NewSpace{Name: "Algebra Help"})
	require.NoError(t, err)
	_, err = NewSpaces(env).AppendMessage(sp.ID, model.NewMessage{Content: "2+2=4"})
	require.NoError(t, err)

	// A second store over the same cache sees the same data.
	list, err := NewSpaces(env).List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, sp.ID, list[0].ID)
	require.Len(t, list[0].Messages, 1)
	assert.Equal(t, "2+2=4", list[0].Messages[0].Content)
}
