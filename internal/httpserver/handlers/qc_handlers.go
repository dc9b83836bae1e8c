package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"cycleassembly/internal/services/cycle"
)

func QCQueue(svc *cycle.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cs, err := svc.QCQueue(r.Context())
		if err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, cs)
	}
}

type inspectReq struct {
	Result  string   `json:"result"`
	Score   *int     `json:"overall_score"`
	Defects []string `json:"defects"`
	Notes   *string  `json:"notes"`
	Photos  []string `json:"photos"`
}

// Inspect records a standard QC inspection on a qc_pending cycle.
func Inspect(svc *cycle.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cycleID := chi.URLParam(r, "id")
		var req inspectReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		out, err := svc.ApplyQCResult(r.Context(), actorFrom(r), cycleID, cycle.QCInput{
			RawResult: req.Result,
			Score:     req.Score,
			Defects:   req.Defects,
			Notes:     req.Notes,
			Photos:    req.Photos,
		})
		if err != nil {
			respondErr(w, err)
			return
		}
		lg.Infow("qc inspection", "cycle_id", cycleID, "result", out.Log.Result, "new_status", out.NewStatus)
		respondJSON(w, out)
	}
}

// Override records an admin decision that supersedes a prior QC outcome.
func Override(svc *cycle.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cycleID := chi.URLParam(r, "id")
		var req struct {
			Result string `json:"result"`
			Reason string `json:"reason"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Reason == "" {
			http.Error(w, "reason required", http.StatusBadRequest)
			return
		}
		out, err := svc.ApplyQCResult(r.Context(), actorFrom(r), cycleID, cycle.QCInput{
			RawResult: req.Result,
			Override:  true,
			Reason:    req.Reason,
		})
		if err != nil {
			respondErr(w, err)
			return
		}
		lg.Infow("qc override", "cycle_id", cycleID, "result", out.Log.Result, "new_status", out.NewStatus)
		respondJSON(w, out)
	}
}

func QCLogs(svc *cycle.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logs, err := svc.QCLogsForCycle(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, logs)
	}
}
