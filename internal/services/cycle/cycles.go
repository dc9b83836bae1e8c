package cycle

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"cycleassembly/internal/models"
	"cycleassembly/internal/workflow"
)

type CreateCycleInput struct {
	SerialNumber string
	Model        string
	Variant      string
	Color        string
	Priority     workflow.Priority
}

// CreateCycle registers a new unit in status pending. Admin only.
func (s *Service) CreateCycle(ctx context.Context, actor Actor, in CreateCycleInput) (models.Cycle, error) {
	if actor.Role != workflow.RoleAdmin {
		return models.Cycle{}, &workflow.TransitionError{
			Kind: workflow.ErrUnauthorizedRole, To: workflow.StatusPending, Actor: actor.Role,
		}
	}
	in.SerialNumber = strings.TrimSpace(in.SerialNumber)
	if in.SerialNumber == "" || strings.TrimSpace(in.Model) == "" {
		return models.Cycle{}, validationErr("serial_number and model required")
	}
	if in.Priority == "" {
		in.Priority = workflow.PriorityNormal
	}
	if !in.Priority.Valid() {
		return models.Cycle{}, validationErr("unknown priority %q", in.Priority)
	}
	var dup int64
	s.db.WithContext(ctx).Model(&models.Cycle{}).Where("serial_number = ?", in.SerialNumber).Count(&dup)
	if dup > 0 {
		return models.Cycle{}, validationErr("serial number %s already exists", in.SerialNumber)
	}
	now := time.Now()
	c := models.Cycle{
		ID:           uuid.NewString(),
		SerialNumber: in.SerialNumber,
		Model:        strings.TrimSpace(in.Model),
		Variant:      strings.TrimSpace(in.Variant),
		Color:        strings.TrimSpace(in.Color),
		Status:       workflow.StatusPending,
		Priority:     in.Priority,
		CreatedBy:    &actor.ProfileID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
		return models.Cycle{}, transient(err)
	}
	s.writeAudit(ctx, &actor.ProfileID, "INSERT", "cycles", &c.ID, nil, map[string]any{
		"serial_number": c.SerialNumber, "status": c.Status, "priority": c.Priority,
	})
	return c, nil
}

// ListCycles returns all cycles with their assignment history, newest first.
func (s *Service) ListCycles(ctx context.Context) ([]models.Cycle, error) {
	var cs []models.Cycle
	err := s.db.WithContext(ctx).
		Preload("Assignments", func(db *gorm.DB) *gorm.DB { return db.Order("assigned_at desc") }).
		Preload("Assignments.Technician").
		Order("created_at desc").Find(&cs).Error
	if err != nil {
		return nil, transient(err)
	}
	return cs, nil
}

func (s *Service) GetCycle(ctx context.Context, id string) (models.Cycle, error) {
	var c models.Cycle
	err := s.db.WithContext(ctx).
		Preload("Assignments.Technician").
		Preload("QCLogs.Inspector").
		First(&c, "id = ?", id).Error
	if err != nil {
		return models.Cycle{}, err
	}
	return c, nil
}

// Dispatch moves a ready cycle to its terminal state. Sales or admin.
func (s *Service) Dispatch(ctx context.Context, actor Actor, cycleID string, notes *string) (models.Cycle, error) {
	var c models.Cycle
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&c, "id = ?", cycleID).Error; err != nil {
			return err
		}
		if err := workflow.ValidateTransition(c.Status, workflow.StatusDispatched, actor.Role); err != nil {
			return err
		}
		c.Status = workflow.StatusDispatched
		c.DispatchNotes = notes
		c.UpdatedAt = time.Now()
		return tx.Save(&c).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || isRejection(err) {
			return models.Cycle{}, err
		}
		return models.Cycle{}, transient(err)
	}
	s.writeAudit(ctx, &actor.ProfileID, "UPDATE", "cycles", &c.ID,
		map[string]any{"status": workflow.StatusReadyForDispatch},
		map[string]any{"status": c.Status, "action": "dispatch", "notes": notes})
	return c, nil
}

// DispatchQueue lists cycles awaiting dispatch, oldest first, with the QC
// history sales reviews before confirming.
func (s *Service) DispatchQueue(ctx context.Context) ([]models.Cycle, error) {
	var cs []models.Cycle
	err := s.db.WithContext(ctx).
		Preload("QCLogs", func(db *gorm.DB) *gorm.DB { return db.Order("created_at desc") }).
		Preload("QCLogs.Inspector").
		Where("status = ?", workflow.StatusReadyForDispatch).
		Order("created_at asc").Find(&cs).Error
	if err != nil {
		return nil, transient(err)
	}
	return cs, nil
}

// isRejection reports whether err is a business-rule rejection rather than a
// storage fault, so callers do not re-wrap it as transient.
func isRejection(err error) bool {
	return errors.Is(err, workflow.ErrInvalidTransition) ||
		errors.Is(err, workflow.ErrUnauthorizedRole) ||
		errors.Is(err, workflow.ErrTerminalState) ||
		errors.Is(err, workflow.ErrConflictingActiveAssignment) ||
		errors.Is(err, ErrValidation)
}
