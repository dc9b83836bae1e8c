package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"cycleassembly/internal/services/cycle"
	"cycleassembly/internal/workflow"
)

func ListUsers(svc *cycle.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ps, err := svc.ListProfiles(r.Context())
		if err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, ps)
	}
}

func CreateUser(svc *cycle.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			FullName string `json:"full_name"`
			Role     string `json:"role"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		role, err := workflow.ParseRole(req.Role)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		created, err := svc.CreateProfile(r.Context(), actorFrom(r), cycle.CreateProfileInput{
			FullName: req.FullName,
			Role:     role,
			Password: req.Password,
		})
		if err != nil {
			respondErr(w, err)
			return
		}
		lg.Infow("user created", "user_code", created.Profile.UserCode, "role", role)
		respondJSON(w, created)
	}
}

func UpdateUser(svc *cycle.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req struct {
			Status   *string `json:"status"`
			Role     *string `json:"role"`
			FullName *string `json:"full_name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		in := cycle.UpdateProfileInput{Status: req.Status, FullName: req.FullName}
		if req.Role != nil {
			role, err := workflow.ParseRole(*req.Role)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			in.Role = &role
		}
		p, err := svc.UpdateProfile(r.Context(), actorFrom(r), id, in)
		if err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, p)
	}
}

func ListRoles(svc *cycle.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rs, err := svc.ListRoles(r.Context())
		if err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, rs)
	}
}

func Stats(svc *cycle.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := svc.Stats(r.Context())
		if err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, st)
	}
}
