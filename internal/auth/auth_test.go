package auth

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"cycleassembly/internal/models"
	"cycleassembly/internal/workflow"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open(filepath.Join(t.TempDir(), "auth.sqlite")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

func seedSession(t *testing.T, db *gorm.DB, role workflow.Role) (models.Profile, string) {
	t.Helper()
	r := models.Role{Name: string(role)}
	if err := db.FirstOrCreate(&r, models.Role{Name: string(role)}).Error; err != nil {
		t.Fatalf("role: %v", err)
	}
	p := models.Profile{
		ID:           uuid.NewString(),
		FullName:     "Test " + string(role),
		UserCode:     role.CodePrefix() + "-9999",
		RoleID:       r.ID,
		Status:       "active",
		PasswordHash: "x",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("profile: %v", err)
	}
	jti := uuid.NewString()
	sess := models.Session{JTI: jti, ProfileID: p.ID, ExpiresAt: time.Now().Add(time.Hour), CreatedAt: time.Now()}
	if err := db.Create(&sess).Error; err != nil {
		t.Fatalf("session: %v", err)
	}
	tok, err := Sign(p.ID, p.UserCode, role, jti)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return p, tok
}

func TestSignVerifyRoundTrip(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	tok, err := Sign("profile-1", "TEC-0001", workflow.RoleTechnician, "jti-1")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims, err := Verify(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.ProfileID != "profile-1" || claims.Role != workflow.RoleTechnician || claims.JWTID != "jti-1" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	tok, err := Sign("profile-1", "TEC-0001", workflow.RoleTechnician, "jti-1")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := Verify(tok + "x"); err == nil {
		t.Fatal("tampered token verified")
	}
	t.Setenv("JWT_SECRET", "other-secret")
	if _, err := Verify(tok); err == nil {
		t.Fatal("token verified with wrong key")
	}
}

func TestJWTAuthMiddleware(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	db := setupDB(t)
	_, tok := seedSession(t, db, workflow.RoleTechnician)

	handler := JWTAuth(db)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if FromContext(r.Context()).Role != workflow.RoleTechnician {
			t.Error("claims missing from context")
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("valid token: got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: got %d", w.Code)
	}
}

func TestJWTAuthRejectsRevokedSession(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	db := setupDB(t)
	_, tok := seedSession(t, db, workflow.RoleQC)
	now := time.Now()
	if err := db.Model(&models.Session{}).Where("1=1").Update("revoked_at", now).Error; err != nil {
		t.Fatalf("revoke: %v", err)
	}

	handler := JWTAuth(db)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("revoked session: got %d", w.Code)
	}
}

func TestJWTAuthRejectsInactiveProfile(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	db := setupDB(t)
	p, tok := seedSession(t, db, workflow.RoleSales)
	if err := db.Model(&models.Profile{}).Where("id = ?", p.ID).Update("status", "inactive").Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	handler := JWTAuth(db)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("inactive profile: got %d", w.Code)
	}
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	testCases := []struct {
		name     string
		claim    workflow.Role
		required []workflow.Role
		want     int
	}{
		{"admin passes admin gate", workflow.RoleAdmin, []workflow.Role{workflow.RoleAdmin}, http.StatusOK},
		{"qc passes qc-or-admin gate", workflow.RoleQC, []workflow.Role{workflow.RoleQC, workflow.RoleAdmin}, http.StatusOK},
		{"sales blocked from admin gate", workflow.RoleSales, []workflow.Role{workflow.RoleAdmin}, http.StatusForbidden},
		{"technician blocked from qc gate", workflow.RoleTechnician, []workflow.Role{workflow.RoleQC, workflow.RoleAdmin}, http.StatusForbidden},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			handler := RequireRole(tc.required...)(ok)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(WithClaims(req.Context(), Claims{ProfileID: "p", Role: tc.claim}))
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("got %d, want %d", w.Code, tc.want)
			}
		})
	}
}
