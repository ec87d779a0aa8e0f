package errors

import (
	"database/sql"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	wrapped := fmt.Errorf("service: %w", Clone(ErrConflict, "email already used"))

	got := FromError(wrapped)
	assert.Equal(t, ErrConflict.Code, got.Code)
	assert.Equal(t, "email already used", got.Message)
	assert.Equal(t, http.StatusConflict, got.Status)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	got := FromError(sql.ErrConnDone)
	assert.Equal(t, ErrInternal.Code, got.Code)
	assert.ErrorIs(t, got, sql.ErrConnDone)
}

func TestIsComparesCodes(t *testing.T) {
	err := Wrap(sql.ErrNoRows, ErrNotFound.Code, ErrNotFound.Status, "batch not found")
	assert.True(t, Is(err, ErrNotFound))
	assert.False(t, Is(err, ErrForbidden))
	assert.False(t, Is(nil, ErrNotFound))
}

func TestCloneDoesNotMutateOriginal(t *testing.T) {
	clone := Clone(ErrNoTimetable, "custom")
	assert.Equal(t, "custom", clone.Message)
	assert.NotEqual(t, "custom", ErrNoTimetable.Message)
}

func TestWithFieldCopiesFields(t *testing.T) {
	base := Clone(ErrConflict, "email already used").WithField("email", "already registered")
	other := base.WithField("name", "taken")

	assert.Equal(t, map[string]string{"email": "already registered"}, base.Fields)
	assert.Len(t, other.Fields, 2)
	assert.Nil(t, ErrConflict.Fields)

	cloned := Clone(base, "")
	cloned.Fields["email"] = "changed"
	assert.Equal(t, "already registered", base.Fields["email"])
}
