package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"cycleassembly/internal/auth"
	"cycleassembly/internal/httpserver/handlers"
	"cycleassembly/internal/services/cycle"
	"cycleassembly/internal/workflow"
)

func NewRouter(db *gorm.DB, lg *zap.SugaredLogger) http.Handler {
	svc := cycle.New(db, lg)
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, middleware.Logger)
	r.Post("/v1/auth/login", handlers.Login(db, lg))
	r.Group(func(protected chi.Router) {
		protected.Use(auth.JWTAuth(db))
		protected.Get("/v1/me", handlers.Me(db, lg))
		protected.Post("/v1/auth/logout", handlers.Logout(db))
		protected.Post("/v1/auth/password", handlers.ChangePassword(db, lg))

		// Every role sees the cycle list and detail.
		protected.Get("/v1/cycles", handlers.ListCycles(svc, lg))
		protected.Get("/v1/cycles/{id}", handlers.GetCycle(svc, lg))
		protected.Get("/v1/cycles/{id}/checklists", handlers.CycleChecklists(svc, lg))

		protected.Group(func(admin chi.Router) {
			admin.Use(auth.RequireRole(workflow.RoleAdmin))
			admin.Get("/v1/admin/users", handlers.ListUsers(svc, lg))
			admin.Post("/v1/admin/users", handlers.CreateUser(svc, lg))
			admin.Patch("/v1/admin/users/{id}", handlers.UpdateUser(svc, lg))
			admin.Get("/v1/admin/roles", handlers.ListRoles(svc, lg))
			admin.Get("/v1/admin/stats", handlers.Stats(svc, lg))
			admin.Get("/v1/admin/audit-logs", handlers.AuditLogs(svc, lg))
			admin.Get("/v1/admin/templates", handlers.ListTemplates(svc, lg))
			admin.Post("/v1/admin/templates", handlers.CreateTemplate(svc, lg))
			admin.Patch("/v1/admin/templates/{id}", handlers.UpdateTemplate(svc, lg))
			admin.Delete("/v1/admin/templates/{id}", handlers.DeleteTemplate(svc, lg))
			admin.Post("/v1/cycles", handlers.CreateCycle(svc, lg))
			admin.Post("/v1/cycles/{id}/qc-override", handlers.Override(svc, lg))
		})

		protected.Group(func(supervise chi.Router) {
			supervise.Use(auth.RequireRole(workflow.RoleSupervisor, workflow.RoleAdmin))
			supervise.Get("/v1/technicians", handlers.ListTechnicians(svc, lg))
			supervise.Post("/v1/cycles/{id}/assignments", handlers.Assign(svc, lg))
			supervise.Post("/v1/assignments/{id}/reassign", handlers.Reassign(svc, lg))
			supervise.Patch("/v1/assignments/{id}/due-date", handlers.SetDueDate(svc, lg))
		})

		protected.Group(func(technician chi.Router) {
			technician.Use(auth.RequireRole(workflow.RoleTechnician))
			technician.Get("/v1/my/assignments", handlers.MyAssignments(svc, lg))
			technician.Post("/v1/assignments/{id}/start", handlers.StartWork(svc, lg))
			technician.Post("/v1/assignments/{id}/complete", handlers.CompleteWork(svc, lg))
		})

		// Checklist items are ticked by whichever role owns the checklist
		// context (assembly, review or inspection).
		protected.Group(func(checklist chi.Router) {
			checklist.Use(auth.RequireRole(workflow.RoleTechnician, workflow.RoleSupervisor, workflow.RoleQC, workflow.RoleAdmin))
			checklist.Patch("/v1/checklist-items/{id}", handlers.UpdateChecklistItem(svc, lg))
		})

		protected.Group(func(qc chi.Router) {
			qc.Use(auth.RequireRole(workflow.RoleQC, workflow.RoleAdmin))
			qc.Get("/v1/qc/queue", handlers.QCQueue(svc, lg))
			qc.Post("/v1/cycles/{id}/inspection", handlers.Inspect(svc, lg))
			qc.Get("/v1/cycles/{id}/qc-logs", handlers.QCLogs(svc, lg))
		})

		protected.Group(func(sales chi.Router) {
			sales.Use(auth.RequireRole(workflow.RoleSales, workflow.RoleAdmin))
			sales.Get("/v1/dispatch/queue", handlers.DispatchQueue(svc, lg))
			sales.Post("/v1/cycles/{id}/dispatch", handlers.Dispatch(svc, lg))
		})
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	return r
}
