package cycle

import (
	"context"

	"cycleassembly/internal/models"
	"cycleassembly/internal/workflow"
)

// DashboardStats is the admin landing-page summary.
type DashboardStats struct {
	TotalUsers     int64                          `json:"total_users"`
	ActiveUsers    int64                          `json:"active_users"`
	TotalCycles    int64                          `json:"total_cycles"`
	PendingQC      int64                          `json:"pending_qc"`
	CyclesByStatus map[workflow.CycleStatus]int64 `json:"cycles_by_status"`
}

func (s *Service) Stats(ctx context.Context) (DashboardStats, error) {
	db := s.db.WithContext(ctx)
	out := DashboardStats{CyclesByStatus: map[workflow.CycleStatus]int64{}}
	if err := db.Model(&models.Profile{}).Count(&out.TotalUsers).Error; err != nil {
		return DashboardStats{}, transient(err)
	}
	if err := db.Model(&models.Profile{}).Where("status = ?", "active").Count(&out.ActiveUsers).Error; err != nil {
		return DashboardStats{}, transient(err)
	}
	var rows []struct {
		Status workflow.CycleStatus
		N      int64
	}
	if err := db.Model(&models.Cycle{}).Select("status, count(*) as n").Group("status").Scan(&rows).Error; err != nil {
		return DashboardStats{}, transient(err)
	}
	for _, r := range rows {
		out.CyclesByStatus[r.Status] = r.N
		out.TotalCycles += r.N
	}
	out.PendingQC = out.CyclesByStatus[workflow.StatusQCPending]
	return out, nil
}
