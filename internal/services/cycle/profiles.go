package cycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"cycleassembly/internal/auth"
	"cycleassembly/internal/models"
	"cycleassembly/internal/workflow"
)

type CreateProfileInput struct {
	FullName string
	Role     workflow.Role
	Password string
}

// CreatedProfile echoes the one-time credentials back to the admin who
// created the account.
type CreatedProfile struct {
	Profile      models.Profile `json:"profile"`
	TempPassword string         `json:"temp_password"`
}

// CreateProfile provisions a user with a role-prefixed code (e.g. TEC-0003).
// Admin only.
func (s *Service) CreateProfile(ctx context.Context, actor Actor, in CreateProfileInput) (CreatedProfile, error) {
	if actor.Role != workflow.RoleAdmin {
		return CreatedProfile{}, &workflow.TransitionError{Kind: workflow.ErrUnauthorizedRole, Actor: actor.Role}
	}
	in.FullName = strings.TrimSpace(in.FullName)
	if in.FullName == "" || in.Password == "" {
		return CreatedProfile{}, validationErr("full name and password required")
	}
	if !in.Role.Valid() {
		return CreatedProfile{}, validationErr("unknown role %q", in.Role)
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return CreatedProfile{}, transient(err)
	}
	var p models.Profile
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var role models.Role
		if err := tx.First(&role, "name = ?", string(in.Role)).Error; err != nil {
			return err
		}
		code, err := nextUserCode(tx, in.Role)
		if err != nil {
			return err
		}
		now := time.Now()
		p = models.Profile{
			ID:           uuid.NewString(),
			FullName:     in.FullName,
			UserCode:     code,
			RoleID:       role.ID,
			Role:         role,
			Status:       "active",
			PasswordHash: hash,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		return tx.Create(&p).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || isRejection(err) {
			return CreatedProfile{}, err
		}
		return CreatedProfile{}, transient(err)
	}
	s.writeAudit(ctx, &actor.ProfileID, "INSERT", "profiles", &p.ID, nil, map[string]any{
		"user_code": p.UserCode, "role": in.Role,
	})
	return CreatedProfile{Profile: p, TempPassword: in.Password}, nil
}

// nextUserCode assigns the next sequential code for the role's prefix.
func nextUserCode(tx *gorm.DB, role workflow.Role) (string, error) {
	prefix := role.CodePrefix()
	var count int64
	if err := tx.Model(&models.Profile{}).Where("user_code LIKE ?", prefix+"-%").Count(&count).Error; err != nil {
		return "", err
	}
	// Codes are never reclaimed, so count+1 can collide after a manual
	// delete; step forward until free.
	for n := count + 1; ; n++ {
		code := fmt.Sprintf("%s-%04d", prefix, n)
		var dup int64
		if err := tx.Model(&models.Profile{}).Where("user_code = ?", code).Count(&dup).Error; err != nil {
			return "", err
		}
		if dup == 0 {
			return code, nil
		}
	}
}

// ListProfiles returns all profiles with roles, newest first.
func (s *Service) ListProfiles(ctx context.Context) ([]models.Profile, error) {
	var ps []models.Profile
	if err := s.db.WithContext(ctx).Preload("Role").Order("created_at desc").Find(&ps).Error; err != nil {
		return nil, transient(err)
	}
	return ps, nil
}

// ListTechnicians returns active technicians for assignment pickers.
func (s *Service) ListTechnicians(ctx context.Context) ([]models.Profile, error) {
	var ps []models.Profile
	err := s.db.WithContext(ctx).
		Joins("JOIN roles ON roles.id = profiles.role_id AND roles.name = ?", string(workflow.RoleTechnician)).
		Where("profiles.status = ?", "active").
		Preload("Role").
		Order("profiles.user_code asc").
		Find(&ps).Error
	if err != nil {
		return nil, transient(err)
	}
	return ps, nil
}

type UpdateProfileInput struct {
	Status   *string
	Role     *workflow.Role
	FullName *string
}

// UpdateProfile changes a profile's activation status, role or name. Admin
// only. Deactivation takes effect on the next request through the auth
// middleware.
func (s *Service) UpdateProfile(ctx context.Context, actor Actor, id string, in UpdateProfileInput) (models.Profile, error) {
	if actor.Role != workflow.RoleAdmin {
		return models.Profile{}, &workflow.TransitionError{Kind: workflow.ErrUnauthorizedRole, Actor: actor.Role}
	}
	var p models.Profile
	if err := s.db.WithContext(ctx).Preload("Role").First(&p, "id = ?", id).Error; err != nil {
		return models.Profile{}, err
	}
	old := map[string]any{"status": p.Status, "role_id": p.RoleID, "full_name": p.FullName}
	if in.Status != nil {
		if *in.Status != "active" && *in.Status != "inactive" {
			return models.Profile{}, validationErr("unknown status %q", *in.Status)
		}
		p.Status = *in.Status
	}
	if in.Role != nil {
		if !in.Role.Valid() {
			return models.Profile{}, validationErr("unknown role %q", *in.Role)
		}
		var role models.Role
		if err := s.db.WithContext(ctx).First(&role, "name = ?", string(*in.Role)).Error; err != nil {
			return models.Profile{}, err
		}
		p.RoleID = role.ID
		p.Role = role
	}
	if in.FullName != nil && strings.TrimSpace(*in.FullName) != "" {
		p.FullName = strings.TrimSpace(*in.FullName)
	}
	p.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Save(&p).Error; err != nil {
		return models.Profile{}, transient(err)
	}
	s.writeAudit(ctx, &actor.ProfileID, "UPDATE", "profiles", &p.ID, old,
		map[string]any{"status": p.Status, "role_id": p.RoleID, "full_name": p.FullName})
	return p, nil
}

// ListRoles returns the seeded role catalog.
func (s *Service) ListRoles(ctx context.Context) ([]models.Role, error) {
	var rs []models.Role
	if err := s.db.WithContext(ctx).Order("name asc").Find(&rs).Error; err != nil {
		return nil, transient(err)
	}
	return rs, nil
}
