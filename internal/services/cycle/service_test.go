package cycle

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"cycleassembly/internal/models"
	"cycleassembly/internal/workflow"
)

func setupService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "cycle.sqlite")
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	for _, r := range workflow.Roles {
		if err := db.Create(&models.Role{Name: string(r), Description: r.Description()}).Error; err != nil {
			t.Fatalf("seed role %s: %v", r, err)
		}
	}
	return New(db, zap.NewNop().Sugar()), db
}

func newProfile(t *testing.T, db *gorm.DB, role workflow.Role, name string) models.Profile {
	t.Helper()
	var r models.Role
	if err := db.First(&r, "name = ?", string(role)).Error; err != nil {
		t.Fatalf("role %s: %v", role, err)
	}
	code, err := nextUserCode(db, role)
	if err != nil {
		t.Fatalf("user code: %v", err)
	}
	now := time.Now()
	p := models.Profile{
		ID:           uuid.NewString(),
		FullName:     name,
		UserCode:     code,
		RoleID:       r.ID,
		Role:         r,
		Status:       "active",
		PasswordHash: "x",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("create profile: %v", err)
	}
	return p
}

func asActor(p models.Profile) Actor {
	return Actor{ProfileID: p.ID, Role: workflow.Role(p.Role.Name)}
}

func mustCreateCycle(t *testing.T, svc *Service, admin models.Profile, serial string) models.Cycle {
	t.Helper()
	c, err := svc.CreateCycle(context.Background(), asActor(admin), CreateCycleInput{
		SerialNumber: serial,
		Model:        "Roadster 26",
		Variant:      "disc",
		Color:        "black",
	})
	if err != nil {
		t.Fatalf("create cycle: %v", err)
	}
	return c
}

// Walks the full lifecycle from the cycle's creation to ready_for_dispatch,
// including a failed inspection and the admin override that supersedes it.
func TestFullLifecycleWithOverride(t *testing.T) {
	svc, db := setupService(t)
	ctx := context.Background()

	admin := newProfile(t, db, workflow.RoleAdmin, "Ada Admin")
	sup := newProfile(t, db, workflow.RoleSupervisor, "Sam Supervisor")
	tech := newProfile(t, db, workflow.RoleTechnician, "Tina Tech")
	inspector := newProfile(t, db, workflow.RoleQC, "Quinn QC")
	sales := newProfile(t, db, workflow.RoleSales, "Sal Sales")

	c := mustCreateCycle(t, svc, admin, "CYC-1001")
	if c.Status != workflow.StatusPending {
		t.Fatalf("new cycle status = %s", c.Status)
	}

	a, err := svc.CreateAssignment(ctx, asActor(sup), c.ID, tech.ID, nil)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if got, _ := svc.GetCycle(ctx, c.ID); got.Status != workflow.StatusAssigned {
		t.Fatalf("after assign status = %s", got.Status)
	}

	st, err := svc.TransitionOnWorkEvent(ctx, asActor(tech), a.ID, EventStart)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if st.CycleStatus != workflow.StatusInProgress || st.AssignmentStatus != workflow.AssignmentInProgress {
		t.Fatalf("after start: %+v", st)
	}

	st, err = svc.TransitionOnWorkEvent(ctx, asActor(tech), a.ID, EventComplete)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if st.CycleStatus != workflow.StatusQCPending || st.AssignmentStatus != workflow.AssignmentCompleted {
		t.Fatalf("after complete: %+v", st)
	}

	score := 40
	out, err := svc.ApplyQCResult(ctx, asActor(inspector), c.ID, QCInput{
		RawResult: "fail",
		Score:     &score,
		Defects:   []string{"brake cable frayed", "frame scratch"},
	})
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if out.NewStatus != workflow.StatusQCFailed {
		t.Fatalf("after fail status = %s", out.NewStatus)
	}
	if out.Log.Result != workflow.ResultFailed || len(out.Log.Defects) != 2 {
		t.Fatalf("qc log = %+v", out.Log)
	}

	out, err = svc.ApplyQCResult(ctx, asActor(admin), c.ID, QCInput{
		RawResult: "pass",
		Override:  true,
		Reason:    "re-tested",
	})
	if err != nil {
		t.Fatalf("override: %v", err)
	}
	if out.NewStatus != workflow.StatusReadyForDispatch {
		t.Fatalf("after override status = %s", out.NewStatus)
	}
	if !out.Log.IsOverride {
		t.Fatal("override log not flagged")
	}
	if out.Log.Notes == nil || *out.Log.Notes != "ADMIN OVERRIDE: re-tested" {
		t.Fatalf("override notes = %v", out.Log.Notes)
	}

	var audits []models.AuditLog
	if err := db.Where("table_name = ? AND record_id = ?", "cycles", c.ID).Find(&audits).Error; err != nil {
		t.Fatalf("audit query: %v", err)
	}
	found := false
	for _, al := range audits {
		if al.ActorID != nil && *al.ActorID == admin.ID && al.Action == "UPDATE" {
			found = true
		}
	}
	if !found {
		t.Fatal("no audit entry for the override")
	}

	dispatched, err := svc.Dispatch(ctx, asActor(sales), c.ID, nil)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if dispatched.Status != workflow.StatusDispatched {
		t.Fatalf("after dispatch status = %s", dispatched.Status)
	}
}

func TestCreateAssignmentConflict(t *testing.T) {
	svc, db := setupService(t)
	ctx := context.Background()

	admin := newProfile(t, db, workflow.RoleAdmin, "Ada")
	sup := newProfile(t, db, workflow.RoleSupervisor, "Sam")
	t1 := newProfile(t, db, workflow.RoleTechnician, "T1")
	t2 := newProfile(t, db, workflow.RoleTechnician, "T2")

	c := mustCreateCycle(t, svc, admin, "CYC-2001")
	if _, err := svc.CreateAssignment(ctx, asActor(sup), c.ID, t1.ID, nil); err != nil {
		t.Fatalf("first assign: %v", err)
	}
	_, err := svc.CreateAssignment(ctx, asActor(sup), c.ID, t2.ID, nil)
	if !errors.Is(err, workflow.ErrConflictingActiveAssignment) {
		t.Fatalf("second assign: want conflict, got %v", err)
	}
}

func TestReassignLeavesOneActiveAssignment(t *testing.T) {
	svc, db := setupService(t)
	ctx := context.Background()

	admin := newProfile(t, db, workflow.RoleAdmin, "Ada")
	sup := newProfile(t, db, workflow.RoleSupervisor, "Sam")
	t1 := newProfile(t, db, workflow.RoleTechnician, "T1")
	t2 := newProfile(t, db, workflow.RoleTechnician, "T2")

	c := mustCreateCycle(t, svc, admin, "CYC-3001")
	a1, err := svc.CreateAssignment(ctx, asActor(sup), c.ID, t1.ID, nil)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := svc.TransitionOnWorkEvent(ctx, asActor(t1), a1.ID, EventStart); err != nil {
		t.Fatalf("start: %v", err)
	}

	reason := "t1 out sick"
	a2, err := svc.Reassign(ctx, asActor(sup), a1.ID, t2.ID, &reason)
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if a2.TechnicianID != t2.ID || a2.Status != workflow.AssignmentPending {
		t.Fatalf("replacement = %+v", a2)
	}

	var active []models.Assignment
	if err := db.Where("cycle_id = ? AND status IN ?", c.ID,
		[]workflow.AssignmentStatus{workflow.AssignmentPending, workflow.AssignmentInProgress}).
		Find(&active).Error; err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(active) != 1 || active[0].ID != a2.ID {
		t.Fatalf("active assignments = %d", len(active))
	}

	var old models.Assignment
	if err := db.First(&old, "id = ?", a1.ID).Error; err != nil {
		t.Fatalf("old assignment: %v", err)
	}
	if old.Status != workflow.AssignmentReassigned {
		t.Fatalf("old status = %s", old.Status)
	}
	if got, _ := svc.GetCycle(ctx, c.ID); got.Status != workflow.StatusAssigned {
		t.Fatalf("cycle status after reassign = %s", got.Status)
	}
}

func TestStartWorkOwnerOnly(t *testing.T) {
	svc, db := setupService(t)
	ctx := context.Background()

	admin := newProfile(t, db, workflow.RoleAdmin, "Ada")
	sup := newProfile(t, db, workflow.RoleSupervisor, "Sam")
	owner := newProfile(t, db, workflow.RoleTechnician, "Owner")
	other := newProfile(t, db, workflow.RoleTechnician, "Other")

	c := mustCreateCycle(t, svc, admin, "CYC-4001")
	a, err := svc.CreateAssignment(ctx, asActor(sup), c.ID, owner.ID, nil)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	_, err = svc.TransitionOnWorkEvent(ctx, asActor(other), a.ID, EventStart)
	if !errors.Is(err, workflow.ErrUnauthorizedRole) {
		t.Fatalf("non-owner start: want ErrUnauthorizedRole, got %v", err)
	}
	if _, err := svc.TransitionOnWorkEvent(ctx, asActor(owner), a.ID, EventStart); err != nil {
		t.Fatalf("owner start: %v", err)
	}
}

func TestReapplyResultWithoutOverrideRejected(t *testing.T) {
	svc, db := setupService(t)
	ctx := context.Background()

	admin := newProfile(t, db, workflow.RoleAdmin, "Ada")
	sup := newProfile(t, db, workflow.RoleSupervisor, "Sam")
	tech := newProfile(t, db, workflow.RoleTechnician, "T1")
	inspector := newProfile(t, db, workflow.RoleQC, "Q1")

	c := mustCreateCycle(t, svc, admin, "CYC-5001")
	a, _ := svc.CreateAssignment(ctx, asActor(sup), c.ID, tech.ID, nil)
	_, _ = svc.TransitionOnWorkEvent(ctx, asActor(tech), a.ID, EventStart)
	_, _ = svc.TransitionOnWorkEvent(ctx, asActor(tech), a.ID, EventComplete)

	out, err := svc.ApplyQCResult(ctx, asActor(inspector), c.ID, QCInput{RawResult: "passed"})
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if out.NewStatus != workflow.StatusReadyForDispatch {
		t.Fatalf("pass did not auto-advance, status = %s", out.NewStatus)
	}

	_, err = svc.ApplyQCResult(ctx, asActor(inspector), c.ID, QCInput{RawResult: "passed"})
	if !errors.Is(err, workflow.ErrInvalidTransition) {
		t.Fatalf("re-apply: want ErrInvalidTransition, got %v", err)
	}
}

func TestDispatchedCycleIsImmutable(t *testing.T) {
	svc, db := setupService(t)
	ctx := context.Background()

	admin := newProfile(t, db, workflow.RoleAdmin, "Ada")
	sup := newProfile(t, db, workflow.RoleSupervisor, "Sam")
	tech := newProfile(t, db, workflow.RoleTechnician, "T1")
	inspector := newProfile(t, db, workflow.RoleQC, "Q1")
	sales := newProfile(t, db, workflow.RoleSales, "S1")

	c := mustCreateCycle(t, svc, admin, "CYC-6001")
	a, _ := svc.CreateAssignment(ctx, asActor(sup), c.ID, tech.ID, nil)
	_, _ = svc.TransitionOnWorkEvent(ctx, asActor(tech), a.ID, EventStart)
	_, _ = svc.TransitionOnWorkEvent(ctx, asActor(tech), a.ID, EventComplete)
	if _, err := svc.ApplyQCResult(ctx, asActor(inspector), c.ID, QCInput{RawResult: "pass"}); err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if _, err := svc.Dispatch(ctx, asActor(sales), c.ID, nil); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if _, err := svc.Dispatch(ctx, asActor(admin), c.ID, nil); !errors.Is(err, workflow.ErrTerminalState) {
		t.Fatalf("re-dispatch: want ErrTerminalState, got %v", err)
	}
	if _, err := svc.ApplyQCResult(ctx, asActor(admin), c.ID, QCInput{RawResult: "fail", Override: true, Reason: "x"}); !errors.Is(err, workflow.ErrTerminalState) {
		t.Fatalf("override after dispatch: want ErrTerminalState, got %v", err)
	}
	if _, err := svc.CreateAssignment(ctx, asActor(sup), c.ID, tech.ID, nil); !errors.Is(err, workflow.ErrTerminalState) {
		t.Fatalf("assign after dispatch: want ErrTerminalState, got %v", err)
	}
}

func TestCreateProfileGeneratesSequentialCodes(t *testing.T) {
	svc, db := setupService(t)
	ctx := context.Background()

	admin := newProfile(t, db, workflow.RoleAdmin, "Ada")
	first, err := svc.CreateProfile(ctx, asActor(admin), CreateProfileInput{
		FullName: "New Tech", Role: workflow.RoleTechnician, Password: "s3cret",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.Profile.UserCode != "TEC-0001" {
		t.Fatalf("first code = %s", first.Profile.UserCode)
	}
	second, err := svc.CreateProfile(ctx, asActor(admin), CreateProfileInput{
		FullName: "Next Tech", Role: workflow.RoleTechnician, Password: "s3cret",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if second.Profile.UserCode != "TEC-0002" {
		t.Fatalf("second code = %s", second.Profile.UserCode)
	}
	if first.TempPassword != "s3cret" {
		t.Fatalf("temp password not echoed")
	}
}

func TestInactiveTechnicianNotAssignable(t *testing.T) {
	svc, db := setupService(t)
	ctx := context.Background()

	admin := newProfile(t, db, workflow.RoleAdmin, "Ada")
	sup := newProfile(t, db, workflow.RoleSupervisor, "Sam")
	tech := newProfile(t, db, workflow.RoleTechnician, "T1")
	if err := db.Model(&models.Profile{}).Where("id = ?", tech.ID).Update("status", "inactive").Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	c := mustCreateCycle(t, svc, admin, "CYC-7001")
	_, err := svc.CreateAssignment(ctx, asActor(sup), c.ID, tech.ID, nil)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("assign inactive: want validation error, got %v", err)
	}
}

func TestChecklistInstantiatedOnAssignment(t *testing.T) {
	svc, db := setupService(t)
	ctx := context.Background()

	admin := newProfile(t, db, workflow.RoleAdmin, "Ada")
	sup := newProfile(t, db, workflow.RoleSupervisor, "Sam")
	tech := newProfile(t, db, workflow.RoleTechnician, "T1")

	if _, err := svc.CreateTemplate(ctx, asActor(admin), CreateTemplateInput{
		Name: "Standard assembly",
		Type: "technician_assembly",
		Items: []TemplateItemInput{
			{Name: "Mount wheels"},
			{Name: "Adjust brakes"},
			{Name: "Polish frame", IsRequired: boolPtr(false)},
		},
	}); err != nil {
		t.Fatalf("template: %v", err)
	}

	c := mustCreateCycle(t, svc, admin, "CYC-8001")
	if _, err := svc.CreateAssignment(ctx, asActor(sup), c.ID, tech.ID, nil); err != nil {
		t.Fatalf("assign: %v", err)
	}

	cls, err := svc.ChecklistsForCycle(ctx, c.ID)
	if err != nil {
		t.Fatalf("checklists: %v", err)
	}
	if len(cls) != 1 || len(cls[0].Items) != 3 {
		t.Fatalf("checklists = %+v", cls)
	}
	if cls[0].Items[0].ItemName != "Mount wheels" || cls[0].Items[2].IsRequired {
		t.Fatalf("items = %+v", cls[0].Items)
	}

	item, err := svc.SetChecklistItem(ctx, asActor(tech), cls[0].Items[0].ID, ChecklistItemUpdate{IsCompleted: true})
	if err != nil {
		t.Fatalf("complete item: %v", err)
	}
	if !item.IsCompleted || item.CompletedBy == nil || *item.CompletedBy != tech.ID || item.CompletedAt == nil {
		t.Fatalf("completed item = %+v", item)
	}
}

func TestSetDueDate(t *testing.T) {
	svc, db := setupService(t)
	ctx := context.Background()

	admin := newProfile(t, db, workflow.RoleAdmin, "Ada")
	sup := newProfile(t, db, workflow.RoleSupervisor, "Sam")
	tech := newProfile(t, db, workflow.RoleTechnician, "T1")

	c := mustCreateCycle(t, svc, admin, "CYC-9001")
	a, err := svc.CreateAssignment(ctx, asActor(sup), c.ID, tech.ID, nil)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	due := time.Now().Add(72 * time.Hour)
	updated, err := svc.SetDueDate(ctx, asActor(sup), a.ID, &due)
	if err != nil {
		t.Fatalf("set due date: %v", err)
	}
	if updated.DueDate == nil {
		t.Fatal("due date not set")
	}

	_, _ = svc.TransitionOnWorkEvent(ctx, asActor(tech), a.ID, EventStart)
	if _, err := svc.TransitionOnWorkEvent(ctx, asActor(tech), a.ID, EventComplete); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := svc.SetDueDate(ctx, asActor(sup), a.ID, &due); !errors.Is(err, ErrValidation) {
		t.Fatalf("due date after complete: want validation error, got %v", err)
	}
}

func boolPtr(b bool) *bool { return &b }
