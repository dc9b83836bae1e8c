package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"cycleassembly/internal/auth"
	"cycleassembly/internal/services/cycle"
)

func Assign(svc *cycle.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cycleID := chi.URLParam(r, "id")
		var req struct {
			TechnicianID string     `json:"technician_id"`
			DueDate      *time.Time `json:"due_date"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		a, err := svc.CreateAssignment(r.Context(), actorFrom(r), cycleID, req.TechnicianID, req.DueDate)
		if err != nil {
			respondErr(w, err)
			return
		}
		lg.Infow("cycle assigned", "cycle_id", cycleID, "technician_id", req.TechnicianID)
		respondJSON(w, a)
	}
}

func Reassign(svc *cycle.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assignmentID := chi.URLParam(r, "id")
		var req struct {
			TechnicianID string  `json:"technician_id"`
			Reason       *string `json:"reason"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		a, err := svc.Reassign(r.Context(), actorFrom(r), assignmentID, req.TechnicianID, req.Reason)
		if err != nil {
			respondErr(w, err)
			return
		}
		lg.Infow("cycle reassigned", "assignment_id", assignmentID, "technician_id", req.TechnicianID)
		respondJSON(w, a)
	}
}

func SetDueDate(svc *cycle.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			DueDate *time.Time `json:"due_date"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		a, err := svc.SetDueDate(r.Context(), actorFrom(r), chi.URLParam(r, "id"), req.DueDate)
		if err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, a)
	}
}

// MyAssignments lists the calling technician's active work queue.
func MyAssignments(svc *cycle.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		as, err := svc.MyAssignments(r.Context(), auth.ProfileID(r.Context()))
		if err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, as)
	}
}

func StartWork(svc *cycle.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return workEvent(svc, lg, cycle.EventStart)
}

func CompleteWork(svc *cycle.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return workEvent(svc, lg, cycle.EventComplete)
}

func workEvent(svc *cycle.Service, lg *zap.SugaredLogger, event cycle.WorkEvent) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assignmentID := chi.URLParam(r, "id")
		st, err := svc.TransitionOnWorkEvent(r.Context(), actorFrom(r), assignmentID, event)
		if err != nil {
			respondErr(w, err)
			return
		}
		lg.Infow("work event", "assignment_id", assignmentID, "event", event, "cycle_status", st.CycleStatus)
		respondJSON(w, st)
	}
}

func ListTechnicians(svc *cycle.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ps, err := svc.ListTechnicians(r.Context())
		if err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, ps)
	}
}
