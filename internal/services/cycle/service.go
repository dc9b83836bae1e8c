// Package cycle orchestrates the assembly workflow against the database:
// cycle creation, assignment lifecycle, QC decisions, dispatch and the audit
// trail. Transition legality itself is decided by internal/workflow; this
// package owns the write sequences.
package cycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"cycleassembly/internal/models"
	"cycleassembly/internal/workflow"
)

// ErrValidation marks rejected input: unknown ids, malformed fields,
// inactive profiles. Handlers map it to 400.
var ErrValidation = errors.New("validation failed")

// Actor identifies who performs an operation. Built per request from the
// auth claims; never stored globally.
type Actor struct {
	ProfileID string
	Role      workflow.Role
}

type Service struct {
	db *gorm.DB
	lg *zap.SugaredLogger
}

func New(db *gorm.DB, lg *zap.SugaredLogger) *Service {
	return &Service{db: db, lg: lg}
}

func validationErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// transient wraps unexpected storage failures so callers can distinguish
// retryable faults from rule rejections.
func transient(err error) error {
	return fmt.Errorf("%w: %v", workflow.ErrTransient, err)
}

// writeAudit appends an audit row outside any transaction. Failure is logged
// and swallowed: the audit trail never rolls back a completed mutation.
func (s *Service) writeAudit(ctx context.Context, actorID *string, action, table string, recordID *string, oldValues, newValues any) {
	row := models.AuditLog{
		ActorID:   actorID,
		Action:    action,
		TableName: table,
		RecordID:  recordID,
		OldValues: models.MarshalJSONB(oldValues),
		NewValues: models.MarshalJSONB(newValues),
		CreatedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		s.lg.Warnw("audit write failed", "action", action, "table", table, "error", err)
	}
}

// ListAuditLogs returns the most recent audit entries, newest first.
func (s *Service) ListAuditLogs(ctx context.Context, limit int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var logs []models.AuditLog
	if err := s.db.WithContext(ctx).Order("created_at desc").Limit(limit).Find(&logs).Error; err != nil {
		return nil, transient(err)
	}
	return logs, nil
}
