package main

import (
	"context"
	"os"

	"bootcamps/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var db *gorm.DB

func initDB() {
	var err error
	if cfg.DBDSN == "" {
		logger.Fatal("DB_DSN is not set. This project requires a Postgres DSN in DB_DSN.")
	}
	db, err = gorm.Open(postgres.Open(cfg.DBDSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		logger.Fatal("failed to connect postgres database", zap.Error(err))
	}
	if cfg.AutoMigrate {
		migrateSchema()
	}
	ensureUploadBase()
}

// migrateSchema migrates models one at a time so a failure on one is logged
// and does not block the others. Users go first; every other table points at them.
func migrateSchema() {
	steps := []struct {
		table string
		model any
	}{
		{"users", &models.User{}},
		{"session_tokens", &models.SessionToken{}},
		{"bootcamps", &models.Bootcamp{}},
		{"courses", &models.Course{}},
		{"reviews", &models.Review{}},
	}
	for _, s := range steps {
		if err := db.AutoMigrate(s.model); err != nil {
			logger.Warn("migration warning", zap.String("table", s.table), zap.Error(err))
		}
	}
}

// seedAdmin creates the ADMIN_EMAIL account once. Without credentials in the
// environment nothing is seeded.
func seedAdmin(ctx context.Context) {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		logger.Info("admin seeding skipped: ADMIN_EMAIL/ADMIN_PASSWORD not set")
		return
	}
	if _, err := sessions.UserByEmail(ctx, cfg.AdminEmail); err == nil {
		return
	}
	admin := &models.User{Name: "Administrator", Email: cfg.AdminEmail, Role: models.RoleAdmin}
	if err := sessions.CreateUser(ctx, admin, cfg.AdminPassword); err != nil {
		logger.Error("failed to seed admin user", zap.Error(err))
		return
	}
	logger.Info("seeded admin user", zap.String("email", admin.Email), zap.Uint("id", admin.ID))
}

// ensureUploadBase creates the base uploads directory.
func ensureUploadBase() {
	base := uploadBaseDir()
	if err := os.MkdirAll(base, 0o755); err != nil {
		logger.Warn("failed to create upload base dir", zap.String("dir", base), zap.Error(err))
	}
}

// uploadBaseDir returns the base directory for local uploads (UPLOAD_BASE).
func uploadBaseDir() string {
	if cfg.UploadBase != "" {
		return cfg.UploadBase
	}
	return "uploads"
}

// inTx runs fn in a transaction bound to ctx.
func inTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return db.WithContext(ctx).Transaction(fn)
}
