package cycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"cycleassembly/internal/models"
	"cycleassembly/internal/workflow"
)

type QCInput struct {
	RawResult string
	Score     *int
	Defects   []string
	Notes     *string
	Photos    []string
	Override  bool
	Reason    string
}

// QCOutcome is the result of recording an inspection: the cycle status after
// any auto-advance, plus the persisted log row.
type QCOutcome struct {
	NewStatus workflow.CycleStatus `json:"new_status"`
	Log       models.QCLog         `json:"qc_log"`
}

// ApplyQCResult records one inspection and moves the cycle accordingly.
// Result synonyms (pass/passed, fail/failed) are collapsed here and nowhere
// else. A standard inspection requires the cycle in qc_pending; an override
// (admin only) may also revisit a qc_failed outcome. On a pass the cycle
// advances to ready_for_dispatch within the same transaction, so qc_passed
// is never observable on its own.
func (s *Service) ApplyQCResult(ctx context.Context, actor Actor, cycleID string, in QCInput) (QCOutcome, error) {
	result, err := workflow.NormalizeResult(in.RawResult)
	if err != nil {
		return QCOutcome{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if in.Score != nil && !workflow.ValidScore(*in.Score) {
		return QCOutcome{}, validationErr("overall score %d out of range", *in.Score)
	}
	if in.Override && actor.Role != workflow.RoleAdmin {
		return QCOutcome{}, &workflow.TransitionError{
			Kind: workflow.ErrUnauthorizedRole, To: result.CycleStatus(), Actor: actor.Role,
		}
	}
	var out QCOutcome
	var before workflow.CycleStatus
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Cycle
		if err := tx.First(&c, "id = ?", cycleID).Error; err != nil {
			return err
		}
		before = c.Status
		target := result.CycleStatus()
		if err := workflow.ValidateTransition(c.Status, target, actor.Role); err != nil {
			return err
		}
		if !in.Override && c.Status != workflow.StatusQCPending {
			// Only an admin override may revisit a recorded outcome.
			return &workflow.TransitionError{
				Kind: workflow.ErrInvalidTransition, From: c.Status, To: target, Actor: actor.Role,
			}
		}
		notes := in.Notes
		if in.Override {
			n := fmt.Sprintf("ADMIN OVERRIDE: %s", in.Reason)
			notes = &n
		}
		log := models.QCLog{
			ID:           uuid.NewString(),
			CycleID:      c.ID,
			InspectorID:  actor.ProfileID,
			Result:       result,
			OverallScore: in.Score,
			Defects:      models.StringList(in.Defects),
			Notes:        notes,
			Photos:       models.StringList(in.Photos),
			IsOverride:   in.Override,
			CreatedAt:    time.Now(),
		}
		if err := tx.Create(&log).Error; err != nil {
			return err
		}
		c.Status = target
		c.UpdatedAt = time.Now()
		if err := tx.Save(&c).Error; err != nil {
			return err
		}
		if result == workflow.ResultPassed {
			if err := workflow.ValidateTransition(c.Status, workflow.StatusReadyForDispatch, workflow.RoleSystem); err != nil {
				return err
			}
			c.Status = workflow.StatusReadyForDispatch
			c.UpdatedAt = time.Now()
			if err := tx.Save(&c).Error; err != nil {
				return err
			}
		}
		out = QCOutcome{NewStatus: c.Status, Log: log}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || isRejection(err) {
			return QCOutcome{}, err
		}
		return QCOutcome{}, transient(err)
	}
	if in.Override {
		s.writeAudit(ctx, &actor.ProfileID, "UPDATE", "cycles", &cycleID,
			map[string]any{"status": before},
			map[string]any{"action": "qc_override", "result": result, "status": out.NewStatus, "reason": in.Reason})
	}
	return out, nil
}

// QCQueue lists cycles awaiting inspection, oldest first, with the
// completing assignment so the inspector sees who built the unit.
func (s *Service) QCQueue(ctx context.Context) ([]models.Cycle, error) {
	var cs []models.Cycle
	err := s.db.WithContext(ctx).
		Preload("Assignments", func(db *gorm.DB) *gorm.DB {
			return db.Where("status = ?", workflow.AssignmentCompleted).Order("completed_at desc")
		}).
		Preload("Assignments.Technician").
		Where("status = ?", workflow.StatusQCPending).
		Order("created_at asc").Find(&cs).Error
	if err != nil {
		return nil, transient(err)
	}
	return cs, nil
}

// QCLogsForCycle returns a cycle's inspection history, newest first.
func (s *Service) QCLogsForCycle(ctx context.Context, cycleID string) ([]models.QCLog, error) {
	var logs []models.QCLog
	err := s.db.WithContext(ctx).
		Preload("Inspector").
		Where("cycle_id = ?", cycleID).
		Order("created_at desc").Find(&logs).Error
	if err != nil {
		return nil, transient(err)
	}
	return logs, nil
}
