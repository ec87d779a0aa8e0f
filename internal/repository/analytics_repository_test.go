package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ams-api/internal/models"
)

func TestAnalyticsSystemCounts(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAnalyticsRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("(SELECT COUNT(*) FROM users WHERE role = 'STUDENT') AS students")).
		WillReturnRows(sqlmock.NewRows([]string{"students", "teachers", "courses"}).AddRow(40, 3, 7))

	counts, err := repo.SystemCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &models.SystemCounts{Students: 40, Teachers: 3, Courses: 7}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}
