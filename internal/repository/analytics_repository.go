package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ams-api/internal/models"
)

// AnalyticsRepository exposes the read queries behind the attendance dashboards.
type AnalyticsRepository struct {
	*AttendanceRepository
	db *sqlx.DB
}

// NewAnalyticsRepository instantiates the repository.
func NewAnalyticsRepository(db *sqlx.DB) *AnalyticsRepository {
	return &AnalyticsRepository{AttendanceRepository: NewAttendanceRepository(db), db: db}
}

// SystemCounts returns head counts for the admin dashboard.
func (r *AnalyticsRepository) SystemCounts(ctx context.Context) (*models.SystemCounts, error) {
	const query = `SELECT
	(SELECT COUNT(*) FROM users WHERE role = 'STUDENT') AS students,
	(SELECT COUNT(*) FROM users WHERE role = 'TEACHER') AS teachers,
	(SELECT COUNT(*) FROM courses) AS courses`
	var counts models.SystemCounts
	if err := r.db.GetContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("system counts: %w", err)
	}
	return &counts, nil
}
