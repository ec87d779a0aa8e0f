package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ams-api/internal/models"
)

const userColumns = `id, email, password_hash, name, role, batch_id, created_at, updated_at`

// UserRepository provides database access for user management.
type UserRepository struct {
	db    *sqlx.DB
	audit *AuditRepository
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db, audit: NewAuditRepository(db)}
}

// FindByEmail returns a user by email address, ignoring case.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1) LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// EmailExists reports whether another user already owns the email.
func (r *UserRepository) EmailExists(ctx context.Context, email, excludeID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(email) = LOWER($1) AND id::text <> $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, email, excludeID); err != nil {
		return false, fmt.Errorf("check user email: %w", err)
	}
	return exists, nil
}

// List returns users ordered by name together with the total count.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.UserDetail, int, error) {
	baseQuery := `FROM users u LEFT JOIN batches b ON b.id = u.batch_id WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Role != nil {
		conditions = append(conditions, fmt.Sprintf("u.role = $%d", len(args)+1))
		args = append(args, *filter.Role)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(u.email) LIKE $%d OR LOWER(u.name) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf(`SELECT u.id, u.email, u.password_hash, u.name, u.role, u.batch_id, u.created_at, u.updated_at, b.name AS batch_name %s ORDER BY u.name ASC, u.email ASC LIMIT %d OFFSET %d`, baseQuery, pageSize, offset)

	var users []models.UserDetail
	if err := r.db.SelectContext(ctx, &users, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	return users, total, nil
}

// ListByRole returns every user with the role, oldest first.
func (r *UserRepository) ListByRole(ctx context.Context, role models.UserRole) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE role = $1 ORDER BY created_at ASC, id ASC`
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, role); err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}
	return users, nil
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	const query = `INSERT INTO users (id, email, password_hash, name, role, batch_id, created_at, updated_at) VALUES (:id, :email, :password_hash, :name, :role, :batch_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Update updates the profile fields of a user. Role and password are untouched.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	const query = `UPDATE users SET name = :name, email = :email, batch_id = :batch_id, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// UpdatePassword updates the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	const query = `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash, updatedAt); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// UpdateRole replaces the single role of a user.
func (r *UserRepository) UpdateRole(ctx context.Context, id string, role models.UserRole) error {
	const query = `UPDATE users SET role = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, role, time.Now().UTC()); err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	return nil
}

// CountDependents counts rows that reference the user.
func (r *UserRepository) CountDependents(ctx context.Context, id string) (*models.UserDependents, error) {
	const query = `SELECT
	(SELECT COUNT(*) FROM enrollments WHERE student_id = $1) AS enrollments,
	(SELECT COUNT(*) FROM attendance WHERE student_id = $1) AS attendance_as_student,
	(SELECT COUNT(*) FROM attendance WHERE marked_by_teacher_id = $1) AS attendance_as_teacher,
	(SELECT COUNT(*) FROM teacher_assignments WHERE teacher_id = $1) AS assignments`
	var deps models.UserDependents
	if err := r.db.GetContext(ctx, &deps, query, id); err != nil {
		return nil, fmt.Errorf("count user dependents: %w", err)
	}
	return &deps, nil
}

// Delete removes the user's refresh tokens and then the user in one transaction.
func (r *UserRepository) Delete(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete user: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, id); err != nil {
		return fmt.Errorf("delete user refresh tokens: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete user: %w", err)
	}
	return nil
}

// CreateAuditLog lets user-facing services audit through the same repository
// they already hold.
func (r *UserRepository) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	return r.audit.CreateAuditLog(ctx, entry)
}
