// pkg/config/config.go
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	HTTPAddr string

	// Caller identity validation (claims-bearing JWTs)
	Issuer   string
	Audience string
	JWKSURL  string

	// Postgres, Redis & NATS
	DatabaseURL string
	RedisURL    string
	NATSURL     string
	TaskSubject string

	// Meeting provider (Zoom-style) endpoints
	ZoomAuthURL    string
	ZoomTokenURL   string
	ZoomAPIBaseURL string
	ZoomProvider   string

	// Front-end redirect target for the OAuth completion flow
	FrontBaseURL string

	// Invitation email delivery
	SendGridAPIKey   string
	InviteTemplateID string
	InviteFromEmail  string
	InviteFromName   string
	InviteBaseURL    string

	// Provider app registry seed (YAML)
	AppsSeedFile string

	// Refresh sweep & temporal key limits
	RefreshInterval   time.Duration
	MaxKeyWindowHours int

	// Target time zone for provider-facing meeting times
	MeetingTimezone string
}

func Load() Config {
	_ = godotenv.Load()
	cfg := Config{
		Env:               env("MEETSYNC_ENV", "dev"),
		HTTPAddr:          env("MEETSYNC_HTTP_ADDR", ":8080"),
		Issuer:            env("OIDC_ISSUER", ""),
		Audience:          env("OIDC_AUDIENCE", "meetsync"),
		JWKSURL:           env("JWKS_URL", ""),
		DatabaseURL:       env("DATABASE_URL", ""),
		RedisURL:          env("REDIS_URL", ""),
		NATSURL:           env("NATS_URL", ""),
		TaskSubject:       env("TASK_SUBJECT", "meetsync.tasks"),
		ZoomAuthURL:       env("ZOOM_AUTH_URL", "https://zoom.us/oauth/authorize"),
		ZoomTokenURL:      env("ZOOM_TOKEN_URL", "https://zoom.us/oauth/token"),
		ZoomAPIBaseURL:    env("ZOOM_API_BASE_URL", "https://api.zoom.us/v2"),
		ZoomProvider:      env("MEETING_PROVIDER", "zoom"),
		FrontBaseURL:      env("FRONT_BASE_URL", "http://localhost:3000"),
		SendGridAPIKey:    env("SENDGRID_API_KEY", ""),
		InviteTemplateID:  env("INVITE_TEMPLATE_ID", ""),
		InviteFromEmail:   env("INVITE_FROM_EMAIL", "no-reply@meetsync.dev"),
		InviteFromName:    env("INVITE_FROM_NAME", "meetsync"),
		InviteBaseURL:     env("INVITE_BASE_URL", "http://localhost:3000/invite"),
		AppsSeedFile:      env("ZOOM_APPS_SEED_FILE", ""),
		RefreshInterval:   envDur("REFRESH_INTERVAL_SEC", 3600) * time.Second,
		MaxKeyWindowHours: envInt("MAX_KEY_WINDOW_HOURS", 4320),
		MeetingTimezone:   env("MEETING_TIMEZONE", "Asia/Tokyo"),
	}
	if cfg.DatabaseURL == "" {
		log.Println("[WARN] DATABASE_URL not set, using in-memory document store for dev")
	}
	return cfg
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
func envDur(k string, def int) time.Duration {
	if v := os.Getenv(k); v != "" {
		i, _ := strconv.Atoi(v)
		return time.Duration(i)
	}
	return time.Duration(def)
}
