package cycle

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"cycleassembly/internal/models"
	"cycleassembly/internal/workflow"
)

// WorkEvent is a technician action on an assignment.
type WorkEvent string

const (
	EventStart    WorkEvent = "start"
	EventComplete WorkEvent = "complete"
)

// WorkState is the paired post-event state of assignment and cycle.
type WorkState struct {
	AssignmentStatus workflow.AssignmentStatus `json:"assignment_status"`
	CycleStatus      workflow.CycleStatus      `json:"cycle_status"`
}

// CreateAssignment hands a pending cycle to a technician. Supervisor or
// admin. Fails if the cycle already has an active assignment; reassignment
// goes through Reassign instead. The active technician_assembly checklist
// template, if any, is instantiated against the cycle in the same
// transaction.
func (s *Service) CreateAssignment(ctx context.Context, actor Actor, cycleID, technicianID string, dueDate *time.Time) (models.Assignment, error) {
	var a models.Assignment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Cycle
		if err := tx.First(&c, "id = ?", cycleID).Error; err != nil {
			return err
		}
		var active int64
		tx.Model(&models.Assignment{}).
			Where("cycle_id = ? AND status IN ?", cycleID,
				[]workflow.AssignmentStatus{workflow.AssignmentPending, workflow.AssignmentInProgress}).
			Count(&active)
		if active > 0 {
			return workflow.ErrConflictingActiveAssignment
		}
		if err := workflow.ValidateTransition(c.Status, workflow.StatusAssigned, actor.Role); err != nil {
			return err
		}
		tech, err := s.activeTechnician(tx, technicianID)
		if err != nil {
			return err
		}
		now := time.Now()
		a = models.Assignment{
			ID:           uuid.NewString(),
			CycleID:      c.ID,
			TechnicianID: tech.ID,
			AssignerID:   &actor.ProfileID,
			Status:       workflow.AssignmentPending,
			AssignedAt:   now,
			DueDate:      dueDate,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := tx.Create(&a).Error; err != nil {
			return err
		}
		c.Status = workflow.StatusAssigned
		c.UpdatedAt = now
		if err := tx.Save(&c).Error; err != nil {
			return err
		}
		return s.instantiateChecklist(tx, c, "technician_assembly")
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || isRejection(err) {
			return models.Assignment{}, err
		}
		return models.Assignment{}, transient(err)
	}
	s.writeAudit(ctx, &actor.ProfileID, "INSERT", "assignments", &a.ID, nil, map[string]any{
		"cycle_id": a.CycleID, "technician_id": a.TechnicianID,
	})
	return a, nil
}

// Reassign retires the active assignment and hands the cycle to another
// technician: old assignment -> reassigned, new assignment pending, cycle
// back to assigned. One transaction so a partial reassignment is never
// visible.
func (s *Service) Reassign(ctx context.Context, actor Actor, assignmentID, newTechnicianID string, reason *string) (models.Assignment, error) {
	if actor.Role != workflow.RoleSupervisor && actor.Role != workflow.RoleAdmin {
		return models.Assignment{}, &workflow.TransitionError{
			Kind: workflow.ErrUnauthorizedRole, From: workflow.StatusAssigned, To: workflow.StatusAssigned, Actor: actor.Role,
		}
	}
	var replacement models.Assignment
	var old models.Assignment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&old, "id = ?", assignmentID).Error; err != nil {
			return err
		}
		if !old.Status.Active() {
			return validationErr("assignment %s is %s, not active", old.ID, old.Status)
		}
		var c models.Cycle
		if err := tx.First(&c, "id = ?", old.CycleID).Error; err != nil {
			return err
		}
		if c.Status.Terminal() {
			return &workflow.TransitionError{Kind: workflow.ErrTerminalState, From: c.Status, Actor: actor.Role}
		}
		if c.Status != workflow.StatusAssigned && c.Status != workflow.StatusInProgress {
			return &workflow.TransitionError{
				Kind: workflow.ErrInvalidTransition, From: c.Status, To: workflow.StatusAssigned, Actor: actor.Role,
			}
		}
		tech, err := s.activeTechnician(tx, newTechnicianID)
		if err != nil {
			return err
		}
		now := time.Now()
		old.Status = workflow.AssignmentReassigned
		old.ReassignReason = reason
		old.UpdatedAt = now
		if err := tx.Save(&old).Error; err != nil {
			return err
		}
		replacement = models.Assignment{
			ID:           uuid.NewString(),
			CycleID:      c.ID,
			TechnicianID: tech.ID,
			AssignerID:   &actor.ProfileID,
			Status:       workflow.AssignmentPending,
			AssignedAt:   now,
			DueDate:      old.DueDate,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := tx.Create(&replacement).Error; err != nil {
			return err
		}
		c.Status = workflow.StatusAssigned
		c.UpdatedAt = now
		return tx.Save(&c).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || isRejection(err) {
			return models.Assignment{}, err
		}
		return models.Assignment{}, transient(err)
	}
	s.writeAudit(ctx, &actor.ProfileID, "UPDATE", "assignments", &old.ID,
		map[string]any{"technician_id": old.TechnicianID, "status": workflow.AssignmentReassigned},
		map[string]any{"new_assignment_id": replacement.ID, "technician_id": replacement.TechnicianID, "reason": reason})
	return replacement, nil
}

// TransitionOnWorkEvent applies a technician's start or complete action to
// the assignment and its cycle together. Only the owning technician may act.
func (s *Service) TransitionOnWorkEvent(ctx context.Context, actor Actor, assignmentID string, event WorkEvent) (WorkState, error) {
	var out WorkState
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a models.Assignment
		if err := tx.First(&a, "id = ?", assignmentID).Error; err != nil {
			return err
		}
		var c models.Cycle
		if err := tx.First(&c, "id = ?", a.CycleID).Error; err != nil {
			return err
		}
		if actor.Role != workflow.RoleTechnician || a.TechnicianID != actor.ProfileID {
			return &workflow.TransitionError{
				Kind: workflow.ErrUnauthorizedRole, From: c.Status, Actor: actor.Role,
			}
		}
		now := time.Now()
		switch event {
		case EventStart:
			if a.Status != workflow.AssignmentPending {
				return validationErr("assignment %s is %s, expected pending", a.ID, a.Status)
			}
			if err := workflow.ValidateTransition(c.Status, workflow.StatusInProgress, actor.Role); err != nil {
				return err
			}
			a.Status = workflow.AssignmentInProgress
			a.StartedAt = &now
			c.Status = workflow.StatusInProgress
		case EventComplete:
			if a.Status != workflow.AssignmentInProgress {
				return validationErr("assignment %s is %s, expected in_progress", a.ID, a.Status)
			}
			if err := workflow.ValidateTransition(c.Status, workflow.StatusQCPending, actor.Role); err != nil {
				return err
			}
			a.Status = workflow.AssignmentCompleted
			a.CompletedAt = &now
			c.Status = workflow.StatusQCPending
		default:
			return validationErr("unknown work event %q", event)
		}
		a.UpdatedAt = now
		c.UpdatedAt = now
		if err := tx.Save(&a).Error; err != nil {
			return err
		}
		if err := tx.Save(&c).Error; err != nil {
			return err
		}
		if event == EventComplete {
			// The inspection checklist appears as soon as the unit is
			// waiting for QC.
			if err := s.instantiateChecklist(tx, c, "qc_inspection"); err != nil {
				return err
			}
		}
		out = WorkState{AssignmentStatus: a.Status, CycleStatus: c.Status}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || isRejection(err) {
			return WorkState{}, err
		}
		return WorkState{}, transient(err)
	}
	return out, nil
}

// SetDueDate updates the optional due date on an assignment. Allowed until
// the assignment completes.
func (s *Service) SetDueDate(ctx context.Context, actor Actor, assignmentID string, due *time.Time) (models.Assignment, error) {
	if actor.Role != workflow.RoleSupervisor && actor.Role != workflow.RoleAdmin {
		return models.Assignment{}, &workflow.TransitionError{Kind: workflow.ErrUnauthorizedRole, Actor: actor.Role}
	}
	var a models.Assignment
	if err := s.db.WithContext(ctx).First(&a, "id = ?", assignmentID).Error; err != nil {
		return models.Assignment{}, err
	}
	if a.Status == workflow.AssignmentCompleted {
		return models.Assignment{}, validationErr("assignment %s already completed", a.ID)
	}
	a.DueDate = due
	a.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Save(&a).Error; err != nil {
		return models.Assignment{}, transient(err)
	}
	return a, nil
}

// MyAssignments lists a technician's active work, oldest first.
func (s *Service) MyAssignments(ctx context.Context, technicianID string) ([]models.Assignment, error) {
	var as []models.Assignment
	err := s.db.WithContext(ctx).
		Preload("Cycle").
		Where("technician_id = ? AND status IN ?", technicianID,
			[]workflow.AssignmentStatus{workflow.AssignmentPending, workflow.AssignmentInProgress}).
		Order("assigned_at asc").
		Find(&as).Error
	if err != nil {
		return nil, transient(err)
	}
	return as, nil
}

// activeTechnician loads a profile and checks it is an active technician.
func (s *Service) activeTechnician(tx *gorm.DB, id string) (models.Profile, error) {
	var p models.Profile
	if err := tx.Preload("Role").First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Profile{}, validationErr("technician %s not found", id)
		}
		return models.Profile{}, err
	}
	if p.Role.Name != string(workflow.RoleTechnician) {
		return models.Profile{}, validationErr("profile %s is not a technician", p.UserCode)
	}
	if !p.Active() {
		return models.Profile{}, validationErr("technician %s is inactive", p.UserCode)
	}
	return p, nil
}
