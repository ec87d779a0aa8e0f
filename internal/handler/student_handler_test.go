package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/ams-api/internal/dto"
	"github.com/noah-isme/ams-api/internal/models"
)

type enrollerStub struct {
	enrolled map[string]bool
}

func (s *enrollerStub) Enroll(ctx context.Context, studentID, courseID string) (*dto.EnrollResult, error) {
	key := studentID + "/" + courseID
	already := s.enrolled[key]
	s.enrolled[key] = true
	return &dto.EnrollResult{Enrollment: &models.Enrollment{StudentID: studentID, CourseID: courseID}, AlreadyEnrolled: already}, nil
}

func (s *enrollerStub) Unenroll(ctx context.Context, studentID, courseID string) error {
	delete(s.enrolled, studentID+"/"+courseID)
	return nil
}

type catalogueStub struct{}

func (catalogueStub) ListForStudent(ctx context.Context, studentID string) ([]models.StudentCourse, error) {
	return []models.StudentCourse{{CourseID: "c1", IsEnrolled: true}}, nil
}

func TestStudentHandlerEnrollIsIdempotent(t *testing.T) {
	h := NewStudentHandler(catalogueStub{}, &enrollerStub{enrolled: map[string]bool{}})

	statuses := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		c, w := newGinContext(http.MethodPost, "/api/student/courses/c1/enroll", nil)
		c.Params = gin.Params{{Key: "courseId", Value: "c1"}}
		withClaims(c, "s1", models.RoleStudent)
		h.Enroll(c)
		statuses = append(statuses, w.Code)
		if i == 1 {
			assert.Contains(t, w.Body.String(), `"already_enrolled":true`)
		}
	}
	assert.Equal(t, []int{http.StatusCreated, http.StatusOK}, statuses)
}

func TestStudentHandlerUnenroll(t *testing.T) {
	stub := &enrollerStub{enrolled: map[string]bool{"s1/c1": true}}
	h := NewStudentHandler(catalogueStub{}, stub)

	c, w := newGinContext(http.MethodDelete, "/api/student/courses/c1/enroll", nil)
	c.Params = gin.Params{{Key: "courseId", Value: "c1"}}
	withClaims(c, "s1", models.RoleStudent)
	h.Unenroll(c)
	c.Writer.WriteHeaderNow() // flush status as gin's engine does after the handler chain

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, stub.enrolled)
}
