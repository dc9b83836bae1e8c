package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"cycleassembly/internal/services/cycle"
)

func DispatchQueue(svc *cycle.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cs, err := svc.DispatchQueue(r.Context())
		if err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, cs)
	}
}

func Dispatch(svc *cycle.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cycleID := chi.URLParam(r, "id")
		var req struct {
			Notes *string `json:"notes"`
		}
		// Body is optional on dispatch confirmation.
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		c, err := svc.Dispatch(r.Context(), actorFrom(r), cycleID, req.Notes)
		if err != nil {
			respondErr(w, err)
			return
		}
		lg.Infow("cycle dispatched", "cycle_id", cycleID, "serial_number", c.SerialNumber)
		respondJSON(w, c)
	}
}
