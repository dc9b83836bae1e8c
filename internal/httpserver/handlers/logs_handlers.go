package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"cycleassembly/internal/services/cycle"
)

// AuditLogs returns recent audit entries, newest first. Admin only; ?limit=
// caps the page (default 100, max 500).
func AuditLogs(svc *cycle.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		logs, err := svc.ListAuditLogs(r.Context(), limit)
		if err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, logs)
	}
}
