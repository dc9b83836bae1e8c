package auth

import (
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"cycleassembly/internal/models"
	"cycleassembly/internal/workflow"
)

// JWTAuth verifies the bearer token, checks the backing session has not been
// revoked or expired, and confirms the profile is still active before
// attaching Claims to the request context.
func JWTAuth(db *gorm.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			raw := strings.TrimPrefix(h, "Bearer ")
			claims, err := Verify(raw)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			var sess models.Session
			if claims.JWTID == "" || db.First(&sess, "jti = ?", claims.JWTID).Error != nil {
				http.Error(w, "session not found", http.StatusUnauthorized)
				return
			}
			if sess.RevokedAt != nil || time.Now().After(sess.ExpiresAt) {
				http.Error(w, "session expired/revoked", http.StatusUnauthorized)
				return
			}
			var profile models.Profile
			if db.First(&profile, "id = ?", claims.ProfileID).Error != nil || !profile.Active() {
				http.Error(w, "profile inactive", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireRole gates a route group to the given roles.
func RequireRole(roles ...workflow.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !FromContext(r.Context()).HasRole(roles...) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
