package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/noah-isme/ams-api/internal/models"
)

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// recordAudit stores an admin mutation. Failures are logged, never returned.
func recordAudit(ctx context.Context, writer auditWriter, logger *zap.Logger, actor models.Actor, action, resource, resourceID string, oldValues, newValues interface{}) {
	if writer == nil {
		return
	}
	entry := &models.AuditLog{
		Action:     action,
		Resource:   resource,
		ResourceID: &resourceID,
		IPAddress:  actor.IP,
		UserAgent:  actor.UserAgent,
	}
	if actor.ID != "" {
		id := actor.ID
		entry.UserID = &id
	}
	if oldValues != nil {
		entry.OldValues, _ = json.Marshal(oldValues)
	}
	if newValues != nil {
		entry.NewValues, _ = json.Marshal(newValues)
	}
	if err := writer.CreateAuditLog(ctx, entry); err != nil {
		logger.Warn("failed to record audit log", zap.String("action", action), zap.String("resource", resource), zap.Error(err))
	}
}
