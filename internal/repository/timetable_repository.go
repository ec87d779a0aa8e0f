package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ams-api/internal/models"
)

// TimetableRepository handles persistence of timetable slots.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs the repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

// List returns slots ordered by course code then weekday, optionally for one course.
func (r *TimetableRepository) List(ctx context.Context, courseID string) ([]models.TimetableSlotDetail, error) {
	query := `SELECT ts.id, ts.course_id, ts.day_of_week, ts.time_range, ts.created_at, c.code AS course_code, c.name AS course_name
FROM timetable_slots ts
JOIN courses c ON c.id = ts.course_id`
	var args []interface{}
	if courseID != "" {
		query += ` WHERE ts.course_id = $1`
		args = append(args, courseID)
	}
	query += ` ORDER BY c.code ASC, ts.day_of_week ASC, ts.time_range ASC NULLS FIRST`

	var slots []models.TimetableSlotDetail
	if err := r.db.SelectContext(ctx, &slots, query, args...); err != nil {
		return nil, fmt.Errorf("list timetable slots: %w", err)
	}
	return slots, nil
}

// FindByID returns a slot.
func (r *TimetableRepository) FindByID(ctx context.Context, id string) (*models.TimetableSlot, error) {
	const query = `SELECT id, course_id, day_of_week, time_range, created_at FROM timetable_slots WHERE id = $1`
	var slot models.TimetableSlot
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find timetable slot: %w", err)
	}
	return &slot, nil
}

// Exists reports whether another slot has the same course, day and time range.
// A missing time range only collides with another missing time range.
func (r *TimetableRepository) Exists(ctx context.Context, courseID string, day int, timeRange *string, excludeID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM timetable_slots WHERE course_id = $1 AND day_of_week = $2 AND COALESCE(time_range, '') = COALESCE($3, '') AND id::text <> $4)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, courseID, day, timeRange, excludeID); err != nil {
		return false, fmt.Errorf("check timetable slot: %w", err)
	}
	return exists, nil
}

// Create inserts a slot.
func (r *TimetableRepository) Create(ctx context.Context, slot *models.TimetableSlot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	slot.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO timetable_slots (id, course_id, day_of_week, time_range, created_at) VALUES (:id, :course_id, :day_of_week, :time_range, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
		return fmt.Errorf("create timetable slot: %w", err)
	}
	return nil
}

// Update modifies a slot.
func (r *TimetableRepository) Update(ctx context.Context, slot *models.TimetableSlot) error {
	const query = `UPDATE timetable_slots SET course_id = :course_id, day_of_week = :day_of_week, time_range = :time_range WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
		return fmt.Errorf("update timetable slot: %w", err)
	}
	return nil
}

// Delete removes a slot.
func (r *TimetableRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM timetable_slots WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete timetable slot: %w", err)
	}
	return nil
}

// ScheduledDays returns the distinct weekdays (0=Sunday) on which the course meets.
func (r *TimetableRepository) ScheduledDays(ctx context.Context, courseID string) ([]int, error) {
	const query = `SELECT DISTINCT day_of_week FROM timetable_slots WHERE course_id = $1 ORDER BY day_of_week ASC`
	var days []int
	if err := r.db.SelectContext(ctx, &days, query, courseID); err != nil {
		return nil, fmt.Errorf("list scheduled days: %w", err)
	}
	return days, nil
}
