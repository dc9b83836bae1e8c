package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"cycleassembly/internal/auth"
	"cycleassembly/internal/httpserver"
	"cycleassembly/internal/logger"
	"cycleassembly/internal/models"
	"cycleassembly/internal/workflow"
)

func main() {
	_ = godotenv.Load()
	lg := logger.New()
	defer lg.Sync()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		lg.Fatalw("DATABASE_URL is empty")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		lg.Fatalw("db connect failed", "error", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		lg.Fatalw("automigrate failed", "error", err)
	}
	seedRoles(db, lg)
	seedDefaultAdmin(db, lg)
	router := httpserver.NewRouter(db, lg)
	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}
	lg.Infow("listening", "port", port)
	if err := http.ListenAndServe(":"+port, router); err != nil {
		log.Fatal(err)
	}
}

func seedRoles(db *gorm.DB, lg *zap.SugaredLogger) {
	for _, r := range workflow.Roles {
		var count int64
		db.Model(&models.Role{}).Where("name = ?", string(r)).Count(&count)
		if count > 0 {
			continue
		}
		if err := db.Create(&models.Role{Name: string(r), Description: r.Description()}).Error; err != nil {
			lg.Warnw("role seed failed", "role", r, "error", err)
		}
	}
}

// seedDefaultAdmin provisions ADM-0001 on first boot so the instance is not
// locked out. The password comes from ADMIN_PASSWORD and must be rotated
// after first login.
func seedDefaultAdmin(db *gorm.DB, lg *zap.SugaredLogger) {
	var count int64
	db.Model(&models.Profile{}).Count(&count)
	if count > 0 {
		return
	}
	pw := os.Getenv("ADMIN_PASSWORD")
	if pw == "" {
		pw = "changeme"
	}
	hash, err := auth.HashPassword(pw)
	if err != nil {
		lg.Warnw("admin seed failed", "error", err)
		return
	}
	var adminRole models.Role
	if err := db.First(&adminRole, "name = ?", string(workflow.RoleAdmin)).Error; err != nil {
		lg.Warnw("admin role missing", "error", err)
		return
	}
	now := time.Now()
	admin := models.Profile{
		ID:           uuid.NewString(),
		FullName:     "Default Admin",
		UserCode:     workflow.RoleAdmin.CodePrefix() + "-0001",
		RoleID:       adminRole.ID,
		Status:       "active",
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := db.Create(&admin).Error; err != nil {
		lg.Warnw("admin seed failed", "error", err)
		return
	}
	lg.Infow("seeded default admin", "user_code", admin.UserCode)
}
