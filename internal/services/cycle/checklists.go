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

// Checklist template types, one per role context.
var templateTypes = map[string]bool{
	"technician_assembly": true,
	"supervisor_review":   true,
	"qc_inspection":       true,
}

type TemplateItemInput struct {
	Name        string
	Description *string
	IsRequired  *bool
}

type CreateTemplateInput struct {
	Name  string
	Type  string
	Model *string
	Items []TemplateItemInput
}

// CreateTemplate creates a checklist template with its ordered items. Admin
// only.
func (s *Service) CreateTemplate(ctx context.Context, actor Actor, in CreateTemplateInput) (models.ChecklistTemplate, error) {
	if actor.Role != workflow.RoleAdmin {
		return models.ChecklistTemplate{}, &workflow.TransitionError{Kind: workflow.ErrUnauthorizedRole, Actor: actor.Role}
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return models.ChecklistTemplate{}, validationErr("template name required")
	}
	if !templateTypes[in.Type] {
		return models.ChecklistTemplate{}, validationErr("unknown template type %q", in.Type)
	}
	now := time.Now()
	tpl := models.ChecklistTemplate{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Type:      in.Type,
		Model:     in.Model,
		IsActive:  true,
		CreatedBy: &actor.ProfileID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for i, item := range in.Items {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			return models.ChecklistTemplate{}, validationErr("item %d has no name", i+1)
		}
		required := true
		if item.IsRequired != nil {
			required = *item.IsRequired
		}
		tpl.Items = append(tpl.Items, models.ChecklistTemplateItem{
			ID:          uuid.NewString(),
			TemplateID:  tpl.ID,
			ItemOrder:   i + 1,
			ItemName:    name,
			Description: item.Description,
			IsRequired:  required,
		})
	}
	if err := s.db.WithContext(ctx).Create(&tpl).Error; err != nil {
		return models.ChecklistTemplate{}, transient(err)
	}
	s.writeAudit(ctx, &actor.ProfileID, "INSERT", "checklist_templates", &tpl.ID, nil,
		map[string]any{"name": tpl.Name, "type": tpl.Type, "items": len(tpl.Items)})
	return tpl, nil
}

// ListTemplates returns all templates with items, newest first.
func (s *Service) ListTemplates(ctx context.Context) ([]models.ChecklistTemplate, error) {
	var tpls []models.ChecklistTemplate
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("item_order asc") }).
		Order("created_at desc").Find(&tpls).Error
	if err != nil {
		return nil, transient(err)
	}
	return tpls, nil
}

type UpdateTemplateInput struct {
	Name     *string
	IsActive *bool
}

func (s *Service) UpdateTemplate(ctx context.Context, actor Actor, id string, in UpdateTemplateInput) (models.ChecklistTemplate, error) {
	if actor.Role != workflow.RoleAdmin {
		return models.ChecklistTemplate{}, &workflow.TransitionError{Kind: workflow.ErrUnauthorizedRole, Actor: actor.Role}
	}
	var tpl models.ChecklistTemplate
	if err := s.db.WithContext(ctx).First(&tpl, "id = ?", id).Error; err != nil {
		return models.ChecklistTemplate{}, err
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) != "" {
		tpl.Name = strings.TrimSpace(*in.Name)
	}
	if in.IsActive != nil {
		tpl.IsActive = *in.IsActive
	}
	tpl.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Save(&tpl).Error; err != nil {
		return models.ChecklistTemplate{}, transient(err)
	}
	return tpl, nil
}

// DeleteTemplate removes a template and, via the cascade constraint, its
// items. Instantiated checklists keep their copied items.
func (s *Service) DeleteTemplate(ctx context.Context, actor Actor, id string) error {
	if actor.Role != workflow.RoleAdmin {
		return &workflow.TransitionError{Kind: workflow.ErrUnauthorizedRole, Actor: actor.Role}
	}
	res := s.db.WithContext(ctx).Delete(&models.ChecklistTemplate{}, "id = ?", id)
	if res.Error != nil {
		return transient(res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	s.writeAudit(ctx, &actor.ProfileID, "DELETE", "checklist_templates", &id, nil, nil)
	return nil
}

// instantiateChecklist copies the newest active template of the given type
// (preferring a model-specific one) onto the cycle. Missing templates are
// not an error; the cycle simply has no checklist.
func (s *Service) instantiateChecklist(tx *gorm.DB, c models.Cycle, templateType string) error {
	var tpl models.ChecklistTemplate
	err := tx.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("item_order asc") }).
		Where("type = ? AND is_active = ? AND (model = ? OR model IS NULL)", templateType, true, c.Model).
		Order("model desc, created_at desc").
		First(&tpl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	now := time.Now()
	cl := models.Checklist{
		ID:         uuid.NewString(),
		CycleID:    c.ID,
		TemplateID: tpl.ID,
		CreatedAt:  now,
	}
	for _, item := range tpl.Items {
		cl.Items = append(cl.Items, models.ChecklistItem{
			ID:          uuid.NewString(),
			ChecklistID: cl.ID,
			ItemOrder:   item.ItemOrder,
			ItemName:    item.ItemName,
			IsRequired:  item.IsRequired,
		})
	}
	return tx.Create(&cl).Error
}

// ChecklistsForCycle returns the cycle's instantiated checklists with items.
func (s *Service) ChecklistsForCycle(ctx context.Context, cycleID string) ([]models.Checklist, error) {
	var cls []models.Checklist
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("item_order asc") }).
		Where("cycle_id = ?", cycleID).Find(&cls).Error
	if err != nil {
		return nil, transient(err)
	}
	return cls, nil
}

type ChecklistItemUpdate struct {
	IsCompleted bool
	Notes       *string
	PhotoURL    *string
}

// SetChecklistItem marks an item complete or reopens it, recording who did
// so and when.
func (s *Service) SetChecklistItem(ctx context.Context, actor Actor, itemID string, in ChecklistItemUpdate) (models.ChecklistItem, error) {
	var item models.ChecklistItem
	if err := s.db.WithContext(ctx).First(&item, "id = ?", itemID).Error; err != nil {
		return models.ChecklistItem{}, err
	}
	if in.IsCompleted {
		now := time.Now()
		item.IsCompleted = true
		item.CompletedBy = &actor.ProfileID
		item.CompletedAt = &now
	} else {
		item.IsCompleted = false
		item.CompletedBy = nil
		item.CompletedAt = nil
	}
	if in.Notes != nil {
		item.Notes = in.Notes
	}
	if in.PhotoURL != nil {
		item.PhotoURL = in.PhotoURL
	}
	if err := s.db.WithContext(ctx).Save(&item).Error; err != nil {
		return models.ChecklistItem{}, transient(err)
	}
	return item, nil
}
