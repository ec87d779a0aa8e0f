package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ams-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

var userColumnNames = []string{"id", "email", "password_hash", "name", "role", "batch_id", "created_at", "updated_at"}

func TestFindByEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(userColumnNames).
		AddRow("u1", "teacher@example.com", "hash", "Teacher", string(models.RoleTeacher), nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE LOWER(email) = LOWER($1) LIMIT 1")).
		WithArgs("Teacher@Example.com").
		WillReturnRows(rows)

	user, err := repo.FindByEmail(context.Background(), "Teacher@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "teacher@example.com", user.Email)
	assert.Nil(t, user.BatchID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByIDNoRows(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).WithArgs("missing").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestListUsersFiltersByRole(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	role := models.RoleStudent
	listRows := sqlmock.NewRows(append(append([]string{}, userColumnNames...), "batch_name")).
		AddRow("s1", "a@example.com", "hash", "Ann", string(models.RoleStudent), "b1", now, now, "BSCS-2024")
	mock.ExpectQuery(regexp.QuoteMeta("FROM users u LEFT JOIN batches b ON b.id = u.batch_id WHERE 1=1 AND u.role = $1 ORDER BY u.name ASC, u.email ASC LIMIT 20 OFFSET 0")).
		WithArgs(role).
		WillReturnRows(listRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users u LEFT JOIN batches b ON b.id = u.batch_id WHERE 1=1 AND u.role = $1")).
		WithArgs(role).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	users, total, err := repo.List(context.Background(), models.UserFilter{Role: &role})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "BSCS-2024", *users[0].BatchName)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountDependents(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("(SELECT COUNT(*) FROM enrollments WHERE student_id = $1) AS enrollments")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"enrollments", "attendance_as_student", "attendance_as_teacher", "assignments"}).AddRow(0, 0, 2, 0))

	deps, err := repo.CountDependents(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, deps.Any())
	assert.Equal(t, 2, deps.AttendanceAsTeacher)
}

func TestDeleteUserRemovesTokensFirst(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM refresh_tokens WHERE user_id = $1")).WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE id = $1")).WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "u1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUserMissingRollsBack(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM refresh_tokens")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), "ghost")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}
