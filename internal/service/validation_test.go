package service

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ams-api/internal/dto"
	appErrors "github.com/noah-isme/ams-api/pkg/errors"
)

func TestValidationErrorCarriesFieldMessages(t *testing.T) {
	v := validator.New()
	err := v.Struct(dto.CourseRequest{Code: "CS101", CreditHours: 99})
	require.Error(t, err)

	appErr := appErrors.FromError(validationError(err, "invalid course"))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, "credit_hours must be at most 30", appErr.Fields["credit_hours"])
	assert.Equal(t, "name is required", appErr.Fields["name"])
	assert.Equal(t, "batch_id is required", appErr.Fields["batch_id"])
	assert.Contains(t, appErr.Message, "invalid course: ")
}

func TestValidationErrorNestedRows(t *testing.T) {
	v := validator.New()
	registerAttendanceRules(v)
	err := v.Struct(dto.MarkAttendanceRequest{
		CourseID: "c1",
		Date:     "2024-03-04",
		Rows:     []dto.AttendanceRowInput{{StudentID: "s1", Status: "PRESENT"}, {Status: "HOLIDAY"}},
	})
	require.Error(t, err)

	appErr := appErrors.FromError(validationError(err, "invalid attendance"))
	assert.Contains(t, appErr.Fields, "rows[1].student_id")
	assert.Equal(t, "status failed attendance_status", appErr.Fields["rows[1].status"])
}

func TestConflictIsAFieldError(t *testing.T) {
	appErr := appErrors.FromError(conflict("email", "email already exists"))
	assert.Equal(t, appErrors.ErrConflict.Status, appErr.Status)
	assert.Equal(t, "email already exists", appErr.Fields["email"])
}

func TestMustRegisterValidationPanicsOnBadTag(t *testing.T) {
	v := validator.New()
	assert.Panics(t, func() {
		mustRegisterValidation(v, "", func(validator.FieldLevel) bool { return true })
	})
	assert.NotPanics(t, func() { registerAttendanceRules(v) })

	type row struct {
		Status string `validate:"attendance_status"`
	}
	assert.NoError(t, v.Struct(row{Status: "LATE"}))
	assert.Error(t, v.Struct(row{Status: "EXCUSED"}))
}
