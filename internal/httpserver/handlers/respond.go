package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"gorm.io/gorm"

	"cycleassembly/internal/auth"
	"cycleassembly/internal/services/cycle"
	"cycleassembly/internal/workflow"
)

func respondJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// respondErr maps service rejections onto status codes. Transition and
// conflict rejections are 409 so clients can refresh and retry; transient
// storage faults are 503 and safe to retry as-is.
func respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, workflow.ErrUnauthorizedRole):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, workflow.ErrInvalidTransition),
		errors.Is(err, workflow.ErrTerminalState),
		errors.Is(err, workflow.ErrConflictingActiveAssignment):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, cycle.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, workflow.ErrTransient):
		http.Error(w, "storage unavailable, retry", http.StatusServiceUnavailable)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func actorFrom(r *http.Request) cycle.Actor {
	cl := auth.FromContext(r.Context())
	return cycle.Actor{ProfileID: cl.ProfileID, Role: cl.Role}
}
