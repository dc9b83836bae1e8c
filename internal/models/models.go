package models

import (
	"time"

	"cycleassembly/internal/workflow"
)

type Role struct {
	ID          int    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Description string `json:"description"`
}

type Profile struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	FullName     string    `gorm:"not null" json:"full_name"`
	UserCode     string    `gorm:"uniqueIndex;not null;size:12" json:"user_code"`
	RoleID       int       `gorm:"not null;index" json:"role_id"`
	Role         Role      `gorm:"foreignKey:RoleID" json:"role"`
	Status       string    `gorm:"not null;default:active" json:"status"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Active profiles may authenticate and be assigned work; inactive ones may
// do neither.
func (p Profile) Active() bool { return p.Status == "active" }

type Cycle struct {
	ID            string               `gorm:"type:uuid;primaryKey" json:"id"`
	SerialNumber  string               `gorm:"uniqueIndex;not null;size:40" json:"serial_number"`
	Model         string               `gorm:"not null" json:"model"`
	Variant       string               `json:"variant"`
	Color         string               `json:"color"`
	Status        workflow.CycleStatus `gorm:"not null;default:pending;index" json:"status"`
	Priority      workflow.Priority    `gorm:"not null;default:normal" json:"priority"`
	CreatedBy     *string              `gorm:"type:uuid" json:"created_by,omitempty"`
	DispatchNotes *string              `json:"dispatch_notes,omitempty"`
	Assignments   []Assignment         `json:"assignments,omitempty"`
	QCLogs        []QCLog              `json:"qc_logs,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

type Assignment struct {
	ID             string                    `gorm:"type:uuid;primaryKey" json:"id"`
	CycleID        string                    `gorm:"type:uuid;not null;index" json:"cycle_id"`
	Cycle          *Cycle                    `json:"cycle,omitempty"`
	TechnicianID   string                    `gorm:"type:uuid;not null;index" json:"technician_id"`
	Technician     *Profile                  `gorm:"foreignKey:TechnicianID" json:"technician,omitempty"`
	AssignerID     *string                   `gorm:"type:uuid" json:"assigner_id,omitempty"`
	Status         workflow.AssignmentStatus `gorm:"not null;default:pending;index" json:"status"`
	AssignedAt     time.Time                 `gorm:"not null" json:"assigned_at"`
	DueDate        *time.Time                `json:"due_date,omitempty"`
	StartedAt      *time.Time                `json:"started_at,omitempty"`
	CompletedAt    *time.Time                `json:"completed_at,omitempty"`
	ReassignReason *string                   `json:"reassign_reason,omitempty"`
	CreatedAt      time.Time                 `json:"created_at"`
	UpdatedAt      time.Time                 `json:"updated_at"`
}

// ChecklistTemplate is a reusable ordered step list for one role context
// (technician_assembly, supervisor_review or qc_inspection), optionally
// scoped to a cycle model.
type ChecklistTemplate struct {
	ID        string                  `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string                  `gorm:"not null" json:"name"`
	Type      string                  `gorm:"not null;index" json:"type"`
	Model     *string                 `json:"model,omitempty"`
	IsActive  bool                    `gorm:"not null;default:true" json:"is_active"`
	CreatedBy *string                 `gorm:"type:uuid" json:"created_by,omitempty"`
	Items     []ChecklistTemplateItem `gorm:"foreignKey:TemplateID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
	UpdatedAt time.Time               `json:"updated_at"`
}

type ChecklistTemplateItem struct {
	ID          string  `gorm:"type:uuid;primaryKey" json:"id"`
	TemplateID  string  `gorm:"type:uuid;not null;index" json:"template_id"`
	ItemOrder   int     `gorm:"not null" json:"item_order"`
	ItemName    string  `gorm:"not null" json:"item_name"`
	Description *string `json:"description,omitempty"`
	IsRequired  bool    `gorm:"not null;default:true" json:"is_required"`
}

// Checklist is one template instantiated against one cycle.
type Checklist struct {
	ID         string          `gorm:"type:uuid;primaryKey" json:"id"`
	CycleID    string          `gorm:"type:uuid;not null;index" json:"cycle_id"`
	TemplateID string          `gorm:"type:uuid;not null" json:"template_id"`
	Items      []ChecklistItem `gorm:"foreignKey:ChecklistID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

type ChecklistItem struct {
	ID          string     `gorm:"type:uuid;primaryKey" json:"id"`
	ChecklistID string     `gorm:"type:uuid;not null;index" json:"checklist_id"`
	ItemOrder   int        `gorm:"not null" json:"item_order"`
	ItemName    string     `gorm:"not null" json:"item_name"`
	IsRequired  bool       `gorm:"not null;default:true" json:"is_required"`
	IsCompleted bool       `gorm:"not null;default:false" json:"is_completed"`
	CompletedBy *string    `gorm:"type:uuid" json:"completed_by,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
	PhotoURL    *string    `json:"photo_url,omitempty"`
}

// QCLog is an immutable inspection record. Rows are only ever inserted.
type QCLog struct {
	ID           string            `gorm:"type:uuid;primaryKey" json:"id"`
	CycleID      string            `gorm:"type:uuid;not null;index" json:"cycle_id"`
	InspectorID  string            `gorm:"type:uuid;not null" json:"inspector_id"`
	Inspector    *Profile          `gorm:"foreignKey:InspectorID" json:"inspector,omitempty"`
	Result       workflow.QCResult `gorm:"not null" json:"result"`
	OverallScore *int              `json:"overall_score,omitempty"`
	Defects      StringList        `gorm:"type:jsonb" json:"defects"`
	Notes        *string           `json:"notes,omitempty"`
	Photos       StringList        `gorm:"type:jsonb" json:"photos"`
	IsOverride   bool              `gorm:"not null;default:false" json:"is_override"`
	CreatedAt    time.Time         `json:"created_at"`
}

// AuditLog is append-only; the application never updates or deletes rows.
type AuditLog struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ActorID   *string   `gorm:"type:uuid;index" json:"actor_id,omitempty"`
	Action    string    `gorm:"not null" json:"action"`
	TableName string    `gorm:"not null" json:"table_name"`
	RecordID  *string   `json:"record_id,omitempty"`
	OldValues JSONB     `gorm:"type:jsonb;default:'{}'" json:"old_values"`
	NewValues JSONB     `gorm:"type:jsonb;default:'{}'" json:"new_values"`
	CreatedAt time.Time `json:"created_at"`
}

type Session struct {
	JTI       string     `gorm:"primaryKey;size:64" json:"jti"`
	ProfileID string     `gorm:"type:uuid;index;not null" json:"profile_id"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// All lists every model for AutoMigrate.
func All() []any {
	return []any{
		&Role{}, &Profile{}, &Cycle{}, &Assignment{},
		&ChecklistTemplate{}, &ChecklistTemplateItem{},
		&Checklist{}, &ChecklistItem{},
		&QCLog{}, &AuditLog{}, &Session{},
	}
}
