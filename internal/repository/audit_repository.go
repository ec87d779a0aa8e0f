package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ams-api/internal/models"
	"github.com/noah-isme/ams-api/pkg/middleware/requestid"
)

const insertAuditLog = `INSERT INTO audit_logs
	(id, user_id, action, resource, resource_id, old_values, new_values, ip_address, user_agent, request_id, created_at)
VALUES
	(:id, :user_id, :action, :resource, :resource_id, :old_values, :new_values, :ip_address, :user_agent, :request_id, :created_at)`

// AuditRepository appends to the audit trail. Entries are never updated.
type AuditRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db, now: time.Now}
}

// CreateAuditLog fills in the id, timestamp and, when the context came from
// an HTTP request, the request id before inserting the entry.
func (r *AuditRepository) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.now().UTC()
	}
	if entry.RequestID == nil {
		if id := requestid.FromContext(ctx); id != "" {
			entry.RequestID = &id
		}
	}
	if _, err := r.db.NamedExecContext(ctx, insertAuditLog, entry); err != nil {
		return fmt.Errorf("insert audit log %s/%s: %w", entry.Resource, entry.Action, err)
	}
	return nil
}
