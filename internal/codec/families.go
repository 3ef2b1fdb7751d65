package codec

import (
	"slices"

	"github.com/kalambet/studyhub/internal/model"
)

// Cache keys, one per family.
const (
	KeySpaces      = "spaces"
	KeyCanvases    = "canvases"
	KeyJournals    = "journals"
	KeyTasks       = "user-tasks"
	KeyCourses     = "available-courses"
	KeyEnrollments = "user-courses"
	KeyProfile     = "user-profile"
)

// Family codecs. Empty nested collections (messages, modules, completed
// modules, interests) decode as nil, so records round-trip exactly when they
// hold nil rather than empty slices. Stores only ever build nil ones.
var (
	Spaces      List[model.Space]         = listCodec[model.Space, spaceWire]{KeySpaces, spaceToWire, spaceFromWire}
	Canvases    List[model.Canvas]        = listCodec[model.Canvas, canvasWire]{KeyCanvases, canvasToWire, canvasFromWire}
	Journals    List[model.Journal]       = listCodec[model.Journal, journalWire]{KeyJournals, journalToWire, journalFromWire}
	Tasks       List[model.Task]          = listCodec[model.Task, taskWire]{KeyTasks, taskToWire, taskFromWire}
	Courses     List[model.Course]        = listCodec[model.Course, courseWire]{KeyCourses, courseToWire, courseFromWire}
	Enrollments List[model.Enrollment]    = listCodec[model.Enrollment, enrollmentWire]{KeyEnrollments, enrollmentToWire, enrollmentFromWire}
	Profile     Object[model.UserProfile] = objectCodec[model.UserProfile, profileWire]{KeyProfile, profileToWire, profileFromWire}
)

// --- spaces ---

type spaceWire struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Messages  []messageWire `json:"messages"`
	CreatedAt string        `json:"createdAt"`
	UpdatedAt string        `json:"updatedAt"`
}

type messageWire struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	IsAI      bool   `json:"isAi"`
	Timestamp string `json:"timestamp"`
}

func spaceToWire(s model.Space) spaceWire {
	msgs := make([]messageWire, len(s.Messages))
	for i, m := range s.Messages {
		msgs[i] = messageWire{ID: m.ID, Content: m.Content, IsAI: m.IsAI, Timestamp: FormatTime(m.Timestamp)}
	}
	return spaceWire{
		ID:        s.ID,
		Name:      s.Name,
		Messages:  msgs,
		CreatedAt: FormatTime(s.CreatedAt),
		UpdatedAt: FormatTime(s.UpdatedAt),
	}
}

func spaceFromWire(w spaceWire) (model.Space, error) {
	var p stampParser
	s := model.Space{
		ID:        w.ID,
		Name:      w.Name,
		CreatedAt: p.parse("createdAt", w.CreatedAt),
		UpdatedAt: p.parse("updatedAt", w.UpdatedAt),
	}
	if len(w.Messages) > 0 {
		s.Messages = make([]model.Message, len(w.Messages))
		for i, m := range w.Messages {
			s.Messages[i] = model.Message{
				ID:        m.ID,
				Content:   m.Content,
				IsAI:      m.IsAI,
				Timestamp: p.parse("messages.timestamp", m.Timestamp),
			}
		}
	}
	return s, p.err
}

// --- canvases ---

type canvasWire struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Image     string `json:"image"`
	SpaceID   string `json:"spaceId,omitempty"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func canvasToWire(c model.Canvas) canvasWire {
	return canvasWire{
		ID:        c.ID,
		Name:      c.Name,
		Image:     c.Image,
		SpaceID:   c.SpaceID,
		CreatedAt: FormatTime(c.CreatedAt),
		UpdatedAt: FormatTime(c.UpdatedAt),
	}
}

func canvasFromWire(w canvasWire) (model.Canvas, error) {
	var p stampParser
	c := model.Canvas{
		ID:        w.ID,
		Name:      w.Name,
		Image:     w.Image,
		SpaceID:   w.SpaceID,
		CreatedAt: p.parse("createdAt", w.CreatedAt),
		UpdatedAt: p.parse("updatedAt", w.UpdatedAt),
	}
	return c, p.err
}

// --- journals ---

type journalWire struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func journalToWire(j model.Journal) journalWire {
	return journalWire{
		ID:        j.ID,
		Title:     j.Title,
		Content:   j.Content,
		CreatedAt: FormatTime(j.CreatedAt),
		UpdatedAt: FormatTime(j.UpdatedAt),
	}
}

func journalFromWire(w journalWire) (model.Journal, error) {
	var p stampParser
	j := model.Journal{
		ID:        w.ID,
		Title:     w.Title,
		Content:   w.Content,
		CreatedAt: p.parse("createdAt", w.CreatedAt),
		UpdatedAt: p.parse("updatedAt", w.UpdatedAt),
	}
	return j, p.err
}

// --- tasks ---

type taskWire struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Completed   bool    `json:"completed"`
	DueDate     *string `json:"dueDate,omitempty"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

func taskToWire(t model.Task) taskWire {
	w := taskWire{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		CreatedAt:   FormatTime(t.CreatedAt),
		UpdatedAt:   FormatTime(t.UpdatedAt),
	}
	if t.DueDate != nil {
		due := FormatTime(*t.DueDate)
		w.DueDate = &due
	}
	return w
}

func taskFromWire(w taskWire) (model.Task, error) {
	var p stampParser
	t := model.Task{
		ID:          w.ID,
		Title:       w.Title,
		Description: w.Description,
		Completed:   w.Completed,
		CreatedAt:   p.parse("createdAt", w.CreatedAt),
		UpdatedAt:   p.parse("updatedAt", w.UpdatedAt),
	}
	if w.DueDate != nil {
		due := p.parse("dueDate", *w.DueDate)
		t.DueDate = &due
	}
	return t, p.err
}

// --- courses ---

type courseWire struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Domain      string       `json:"domain"`
	Modules     []moduleWire `json:"modules"`
	Duration    int          `json:"duration"`
}

type moduleWire struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Duration    int    `json:"duration"`
}

func courseToWire(c model.Course) courseWire {
	mods := make([]moduleWire, len(c.Modules))
	for i, m := range c.Modules {
		mods[i] = moduleWire(m)
	}
	return courseWire{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		Domain:      c.Domain,
		Modules:     mods,
		Duration:    c.Duration,
	}
}

func courseFromWire(w courseWire) (model.Course, error) {
	c := model.Course{
		ID:          w.ID,
		Title:       w.Title,
		Description: w.Description,
		Domain:      w.Domain,
		Duration:    w.Duration,
	}
	if len(w.Modules) > 0 {
		c.Modules = make([]model.Module, len(w.Modules))
		for i, m := range w.Modules {
			c.Modules[i] = model.Module(m)
		}
	}
	return c, nil
}

// --- enrollments ---

type enrollmentWire struct {
	CourseID         string   `json:"courseId"`
	UserID           string   `json:"userId"`
	Progress         int      `json:"progress"`
	CompletedModules []string `json:"completedModules"`
	EnrolledAt       string   `json:"enrolledAt"`
	LastAccessedAt   string   `json:"lastAccessedAt"`
}

func enrollmentToWire(e model.Enrollment) enrollmentWire {
	done := slices.Clone(e.CompletedModules)
	if done == nil {
		done = []string{}
	}
	return enrollmentWire{
		CourseID:         e.CourseID,
		UserID:           e.UserID,
		Progress:         e.Progress,
		CompletedModules: done,
		EnrolledAt:       FormatTime(e.EnrolledAt),
		LastAccessedAt:   FormatTime(e.LastAccessedAt),
	}
}

func enrollmentFromWire(w enrollmentWire) (model.Enrollment, error) {
	var p stampParser
	e := model.Enrollment{
		CourseID:       w.CourseID,
		UserID:         w.UserID,
		Progress:       w.Progress,
		EnrolledAt:     p.parse("enrolledAt", w.EnrolledAt),
		LastAccessedAt: p.parse("lastAccessedAt", w.LastAccessedAt),
	}
	if len(w.CompletedModules) > 0 {
		e.CompletedModules = slices.Clone(w.CompletedModules)
	}
	return e, p.err
}

// --- profile ---

type profileWire struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Bio       string   `json:"bio"`
	Interests []string `json:"interests"`
	Avatar    string   `json:"avatar"`
}

// profileToWire drops the derived counts; they are recomputed on every read.
func profileToWire(p model.UserProfile) profileWire {
	interests := slices.Clone(p.Interests)
	if interests == nil {
		interests = []string{}
	}
	return profileWire{
		ID:        p.ID,
		Name:      p.Name,
		Email:     p.Email,
		Bio:       p.Bio,
		Interests: interests,
		Avatar:    p.Avatar,
	}
}

func profileFromWire(w profileWire) (model.UserProfile, error) {
	p := model.UserProfile{
		ID:     w.ID,
		Name:   w.Name,
		Email:  w.Email,
		Bio:    w.Bio,
		Avatar: w.Avatar,
	}
	if len(w.Interests) > 0 {
		p.Interests = slices.Clone(w.Interests)
	}
	return p, nil
}
