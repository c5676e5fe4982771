package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"bootcamps/pkg/mailer"
)

// Config is read once from the environment at startup.
type Config struct {
	Port          string
	DBDSN         string
	AutoMigrate   bool
	JWTSecret     []byte
	TokenTTL      time.Duration
	CookieTTL     time.Duration
	BcryptCost    int
	UploadBase    string
	SMTP          mailer.SMTPConfig
	GeocoderKey   string
	GeocoderURL   string
	AdminEmail    string
	AdminPassword string
	// RateLimit requests per RateWindow per client IP on /api; 0 disables.
	RateLimit   int
	RateWindow  time.Duration
	CORSOrigins []string
}

const devJWTSecret = "dev-insecure-secret-change"

func loadConfig() (Config, error) {
	c := Config{
		Port:          envOr("PORT", "8081"),
		DBDSN:         os.Getenv("DB_DSN"),
		AutoMigrate:   envBool("DB_AUTO_MIGRATE", true),
		JWTSecret:     []byte(envOr("JWT_SECRET", devJWTSecret)),
		UploadBase:    envOr("UPLOAD_BASE", "uploads"),
		GeocoderKey:   os.Getenv("GEOCODER_API_KEY"),
		GeocoderURL:   os.Getenv("GEOCODER_URL"),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		SMTP: mailer.SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     envOr("MAIL_FROM", "Bootcamps <noreply@bootcamps.dev>"),
		},
	}
	var err error
	if c.TokenTTL, err = parseTTL(envOr("JWT_EXPIRES_IN", "90d")); err != nil {
		return c, fmt.Errorf("JWT_EXPIRES_IN: %w", err)
	}
	days, err := strconv.Atoi(envOr("JWT_COOKIE_EXPIRES_IN", "90"))
	if err != nil || days < 1 {
		return c, fmt.Errorf("JWT_COOKIE_EXPIRES_IN: want a positive number of days, got %q", os.Getenv("JWT_COOKIE_EXPIRES_IN"))
	}
	c.CookieTTL = time.Duration(days) * 24 * time.Hour
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if c.SMTP.Port, err = strconv.Atoi(v); err != nil {
			return c, fmt.Errorf("SMTP_PORT: %w", err)
		}
	}
	if c.RateLimit, err = strconv.Atoi(envOr("RATE_LIMIT_MAX", "100")); err != nil || c.RateLimit < 0 {
		return c, fmt.Errorf("RATE_LIMIT_MAX: want a non-negative number, got %q", os.Getenv("RATE_LIMIT_MAX"))
	}
	if c.RateWindow, err = parseTTL(envOr("RATE_LIMIT_WINDOW", "10m")); err != nil {
		return c, fmt.Errorf("RATE_LIMIT_WINDOW: %w", err)
	}
	for _, o := range strings.Split(os.Getenv("CORS_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			c.CORSOrigins = append(c.CORSOrigins, o)
		}
	}
	if v := os.Getenv("SMTP_TIMEOUT"); v != "" {
		if c.SMTP.Timeout, err = parseTTL(v); err != nil {
			return c, fmt.Errorf("SMTP_TIMEOUT: %w", err)
		}
	}
	if v := os.Getenv("BCRYPT_COST"); v != "" {
		if c.BcryptCost, err = strconv.Atoi(v); err != nil {
			return c, fmt.Errorf("BCRYPT_COST: %w", err)
		}
	}
	return c, nil
}

// parseTTL accepts a Go duration ("36h"), a day count ("90d") or plain seconds.
func parseTTL(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, ok := strings.CutSuffix(s, "d"); ok {
		days, err := strconv.Atoi(n)
		if err != nil || days < 1 {
			return 0, fmt.Errorf("invalid day count %q", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	if secs, err := strconv.Atoi(s); err == nil {
		if secs < 1 {
			return 0, fmt.Errorf("invalid ttl %q", s)
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid ttl %q", s)
	}
	return d, nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "":
		return def
	case "false", "0", "no":
		return false
	}
	return true
}
