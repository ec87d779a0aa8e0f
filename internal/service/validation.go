package service

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	appErrors "github.com/noah-isme/ams-api/pkg/errors"
)

// validationError turns validator output into a VALIDATION_ERROR whose message
// lists the failing fields and whose Fields map holds one message per field.
func validationError(err error, message string) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
	}
	parts := make([]string, 0, len(fieldErrs))
	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		desc := describeField(fe)
		parts = append(parts, desc)
		fields[fieldKey(fe)] = desc
	}
	appErr := appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message+": "+strings.Join(parts, "; "))
	appErr.Fields = fields
	return appErr
}

// fieldKey names the field by its namespace below the request struct, e.g.
// "rows[1].student_id".
func fieldKey(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}
	return snake(ns)
}

// snake lower-cases Go field names, separating words: BatchID -> batch_id.
func snake(name string) string {
	var b strings.Builder
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= 'A' && c <= 'Z' {
			if i > 0 && isLowerOrDigit(name[i-1]) {
				b.WriteByte('_')
			}
			c += 'a' - 'A'
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isLowerOrDigit(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}

func conflict(field, message string) error {
	return appErrors.Clone(appErrors.ErrConflict, message).WithField(field, message)
}

func describeField(fe validator.FieldError) string {
	field := snake(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

func invalid(message string) error {
	return appErrors.Clone(appErrors.ErrValidation, message)
}

func internal(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func notFound(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, message)
	}
	return internal(err, "failed to load "+strings.TrimSuffix(message, " not found"))
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
