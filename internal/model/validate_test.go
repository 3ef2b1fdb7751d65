package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_BlankTitleRejected(t *testing.T) {
	err := Validate(NewJournal{Title: "   "})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Errors, 1)
	assert.Equal(t, "title", verr.Errors[0].Field)
	assert.Equal(t, "must not be blank", verr.Errors[0].Message)
}

func TestValidate_NilUpdateFieldsSkipped(t *testing.T) {
	assert.NoError(t, Validate(JournalUpdate{}))
	assert.NoError(t, Validate(JournalUpdate{Content: Ptr("")}))
}

func TestValidate_UpdatePointerChecked(t *testing.T) {
	err := Validate(JournalUpdate{Title: Ptr(" ")})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestValidate_Email(t *testing.T) {
	assert.NoError(t, Validate(ProfileUpdate{Email: Ptr("ada@example.com")}))
	assert.ErrorIs(t, Validate(ProfileUpdate{Email: Ptr("not-an-email")}), ErrValidation)
}

func TestEnrollmentKey(t *testing.T) {
	e := Enrollment{CourseID: "c1", UserID: "u1"}
	assert.Equal(t, EnrollmentKey("u1", "c1"), e.Key())
	assert.NotEqual(t, EnrollmentKey("u1", "c2"), e.Key())

	// Ids containing the separator must not collide.
	assert.NotEqual(t, EnrollmentKey("c", "a|b"), EnrollmentKey("b|c", "a"))
}
