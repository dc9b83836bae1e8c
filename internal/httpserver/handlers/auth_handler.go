package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"cycleassembly/internal/auth"
	"cycleassembly/internal/models"
	"cycleassembly/internal/workflow"
)

type loginReq struct {
	UserCode string `json:"user_code"`
	Password string `json:"password"`
}

// Login authenticates by user code and issues a JWT backed by a session row.
// Inactive profiles may not log in.
func Login(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		code := strings.ToUpper(strings.TrimSpace(req.UserCode))
		var p models.Profile
		if err := db.Preload("Role").First(&p, "user_code = ?", code).Error; err != nil {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		if !p.Active() {
			http.Error(w, "account deactivated", http.StatusUnauthorized)
			return
		}
		if err := auth.CheckPassword(p.PasswordHash, req.Password); err != nil {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		role, err := workflow.ParseRole(p.Role.Name)
		if err != nil {
			http.Error(w, "profile role misconfigured", http.StatusInternalServerError)
			return
		}
		jti := uuid.NewString()
		tok, err := auth.Sign(p.ID, p.UserCode, role, jti)
		if err != nil {
			http.Error(w, "token error", http.StatusInternalServerError)
			return
		}
		sess := models.Session{
			JTI:       jti,
			ProfileID: p.ID,
			ExpiresAt: time.Now().Add(auth.TokenTTL()),
			CreatedAt: time.Now(),
		}
		if err := db.Create(&sess).Error; err != nil {
			http.Error(w, "session error", http.StatusInternalServerError)
			return
		}
		lg.Infow("login", "user_code", p.UserCode, "role", role)
		respondJSON(w, map[string]any{
			"token": tok,
			"profile": map[string]any{
				"id": p.ID, "full_name": p.FullName, "user_code": p.UserCode, "role": role,
			},
		})
	}
}

func Me(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p models.Profile
		if err := db.Preload("Role").First(&p, "id = ?", auth.ProfileID(r.Context())).Error; err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		respondJSON(w, p)
	}
}

// Logout revokes the session behind the presented token.
func Logout(db *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jti := auth.FromContext(r.Context()).JWTID
		now := time.Now()
		db.Model(&models.Session{}).Where("jti = ?", jti).Update("revoked_at", now)
		respondJSON(w, map[string]any{"logged_out": true})
	}
}

func ChangePassword(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Current string `json:"current_password"`
			New     string `json:"new_password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if len(req.New) < 6 {
			http.Error(w, "new password too short", http.StatusBadRequest)
			return
		}
		var p models.Profile
		if err := db.First(&p, "id = ?", auth.ProfileID(r.Context())).Error; err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if err := auth.CheckPassword(p.PasswordHash, req.Current); err != nil {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		hash, err := auth.HashPassword(req.New)
		if err != nil {
			http.Error(w, "hash error", http.StatusInternalServerError)
			return
		}
		p.PasswordHash = hash
		p.UpdatedAt = time.Now()
		if err := db.Save(&p).Error; err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		respondJSON(w, map[string]any{"updated": true})
	}
}
