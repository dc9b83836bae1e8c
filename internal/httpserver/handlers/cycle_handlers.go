package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"cycleassembly/internal/services/cycle"
	"cycleassembly/internal/workflow"
)

func CreateCycle(svc *cycle.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			SerialNumber string `json:"serial_number"`
			Model        string `json:"model"`
			Variant      string `json:"variant"`
			Color        string `json:"color"`
			Priority     string `json:"priority"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		c, err := svc.CreateCycle(r.Context(), actorFrom(r), cycle.CreateCycleInput{
			SerialNumber: req.SerialNumber,
			Model:        req.Model,
			Variant:      req.Variant,
			Color:        req.Color,
			Priority:     workflow.Priority(req.Priority),
		})
		if err != nil {
			respondErr(w, err)
			return
		}
		lg.Infow("cycle created", "serial_number", c.SerialNumber)
		respondJSON(w, c)
	}
}

func ListCycles(svc *cycle.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cs, err := svc.ListCycles(r.Context())
		if err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, cs)
	}
}

func GetCycle(svc *cycle.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := svc.GetCycle(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, c)
	}
}
