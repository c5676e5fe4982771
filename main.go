package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bootcamps/pkg/geocode"
	applog "bootcamps/pkg/logger"
	"bootcamps/pkg/mailer"
	"bootcamps/pkg/session"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var (
	cfg      Config
	logger   = zap.NewNop()
	sessions *session.Authenticator
	mail     mailer.Mailer
	geocoder geocode.Geocoder
)

func main() {
	// .env is optional; variables already in the environment win
	_ = godotenv.Load()

	lg, err := applog.Init(applog.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()
	logger = lg

	if cfg, err = loadConfig(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	if string(cfg.JWTSecret) == devJWTSecret {
		logger.Warn("JWT_SECRET not set, using the development fallback")
	}

	// `./bootcamps migrate` runs AutoMigrate and seeding then exits.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		cfg.AutoMigrate = true
		initDB()
		initServices()
		seedAdmin(context.Background())
		fmt.Println("migration and seeding completed")
		return
	}

	initDB()
	initServices()
	seedAdmin(context.Background())
	registerValidators()

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(doneCtx); err != nil {
		logger.Warn("http server shutdown failed", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info("goodbye")
}

// initServices wires the collaborators that depend on configuration.
func initServices() {
	sessions = session.New(session.NewGormStore(db), session.Config{
		Secret:     cfg.JWTSecret,
		TokenTTL:   cfg.TokenTTL,
		BcryptCost: cfg.BcryptCost,
	}, session.WithLogger(logger.Named("session")))

	if cfg.SMTP.Host != "" {
		mail = mailer.NewSMTP(cfg.SMTP)
	} else {
		logger.Info("SMTP_HOST not set, emails are only logged")
		mail = mailer.Log{L: logger.Named("mail")}
	}

	if cfg.GeocoderKey != "" {
		geocoder = geocode.NewMapQuest(cfg.GeocoderKey, cfg.GeocoderURL, nil)
	} else {
		logger.Warn("GEOCODER_API_KEY not set, address lookups will fail")
		geocoder = geocode.Disabled{}
	}
}
