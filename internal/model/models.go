// Package model holds the records owned by the entity stores, the payloads
// used to create and update them, and the error taxonomy shared across the
// client core.
package model

import (
	"strconv"
	"time"
)

// Space is a chat conversation. Messages are kept in append order.
type Space struct {
	ID        string
	Name      string
	Messages  []Message
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is one immutable chat entry inside a Space.
type Message struct {
	ID        string
	Content   string
	IsAI      bool
	Timestamp time.Time
}

// Journal is a rich-text journal entry.
type Journal struct {
	ID        string
	Title     string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Canvas is a drawing snapshot. SpaceID is a weak reference: it is checked
// when the canvas is created and may dangle afterwards.
type Canvas struct {
	ID        string
	Name      string
	Image     string // opaque blob reference
	SpaceID   string // empty when the canvas has no owning space
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Task is a to-do item.
type Task struct {
	ID          string
	Title       string
	Description string
	Completed   bool
	DueDate     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Course is catalog data; it is not owned by any user.
type Course struct {
	ID          string
	Title       string
	Description string
	Domain      string
	Modules     []Module
	Duration    int // minutes
}

// ModuleIDs returns the ids of the course modules in order.
func (c Course) ModuleIDs() []string {
	ids := make([]string, len(c.Modules))
	for i, m := range c.Modules {
		ids[i] = m.ID
	}
	return ids
}

// Module is one unit of a Course. Completion is tracked per Enrollment.
type Module struct {
	ID          string
	Title       string
	Description string
	Duration    int // minutes
}

// Enrollment is the per-user progress record for a course, keyed by
// (CourseID, UserID). Progress is always derived from CompletedModules.
type Enrollment struct {
	CourseID         string
	UserID           string
	Progress         int
	CompletedModules []string
	EnrolledAt       time.Time
	LastAccessedAt   time.Time
}

// Key returns the composite key of the enrollment.
func (e Enrollment) Key() string {
	return EnrollmentKey(e.UserID, e.CourseID)
}

// EnrollmentKey builds the composite key for a (user, course) pair. The
// course id is length-prefixed so ids containing the separator cannot make
// two different pairs share a key.
func EnrollmentKey(userID, courseID string) string {
	return strconv.Itoa(len(courseID)) + ":" + courseID + "|" + userID
}

// UserProfile is the single profile record of the signed-in user.
type UserProfile struct {
	ID        string
	Name      string
	Email     string
	Bio       string
	Interests []string
	Avatar    string
	Counts    Counts // computed on read, never persisted
}

// Counts are derived from the other families each time a profile is read.
type Counts struct {
	Spaces   int
	Journals int
	Courses  int
}

// --- creation payloads ---

type NewSpace struct {
	Name string `validate:"notblank"`
}

type NewMessage struct {
	Content string `validate:"notblank"`
	IsAI    bool
}

type NewJournal struct {
	Title   string `validate:"notblank"`
	Content string
}

type NewCanvas struct {
	Name    string `validate:"notblank"`
	Image   string
	SpaceID string
}

type NewTask struct {
	Title       string `validate:"notblank"`
	Description string
	DueDate     *time.Time
}

// --- update requests; nil fields are left unchanged ---

type SpaceUpdate struct {
	Name *string `validate:"omitempty,notblank"`
}

type JournalUpdate struct {
	Title   *string `validate:"omitempty,notblank"`
	Content *string
}

type CanvasUpdate struct {
	Name  *string `validate:"omitempty,notblank"`
	Image *string
}

type TaskUpdate struct {
	Title        *string `validate:"omitempty,notblank"`
	Description  *string
	Completed    *bool
	DueDate      *time.Time
	ClearDueDate bool
}

type ProfileUpdate struct {
	Name      *string
	Email     *string `validate:"omitempty,email"`
	Bio       *string
	Interests []string
	Avatar    *string
}

// Ptr returns a pointer to v; handy for building update requests.
func Ptr[T any](v T) *T { return &v }
