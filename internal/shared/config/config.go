package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port            string
	CORSAllowOrigin []string
	Env             string

	AdvisorAPIURL     string
	AdvisorAPIToken   string
	AdvisorAPITimeout time.Duration

	PollInterval    time.Duration
	PollMaxFailures int
	MaxUploadBytes  int64

	MarkerStore    string
	StateDir       string
	DatabaseURL    string
	SessionIdleTTL time.Duration

	ObjectStoreType  string
	LocalStoreDir    string
	AWSRegion        string
	S3Bucket         string
	S3Prefix         string
	SSEKMSKeyID      string
	DevAPIPollWindow time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")
	markerStore := normalizeMarkerStore(getEnv("MARKER_STORE", "memory"))

	if markerStore == "postgres" && dbURL == "" {
		log.Printf("MARKER_STORE=postgres requires DATABASE_URL; falling back to memory")
		markerStore = "memory"
	}

	return Config{
		Port:              getEnv("PORT", "8080"),
		CORSAllowOrigin:   splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		Env:               env,
		AdvisorAPIURL:     strings.TrimRight(getEnv("ADVISOR_API_URL", "http://localhost:8090"), "/"),
		AdvisorAPIToken:   getEnv("ADVISOR_API_TOKEN", ""),
		AdvisorAPITimeout: getDuration("ADVISOR_API_TIMEOUT", 30*time.Second),
		PollInterval:      getDuration("POLL_INTERVAL", 2*time.Second),
		PollMaxFailures:   getInt("POLL_MAX_FAILURES", 5),
		MaxUploadBytes:    int64(getInt("MAX_UPLOAD_BYTES", 10<<20)),
		MarkerStore:       markerStore,
		StateDir:          getEnv("STATE_DIR", "./data/state"),
		DatabaseURL:       dbURL,
		SessionIdleTTL:    getDuration("SESSION_IDLE_TTL", 30*time.Minute),
		ObjectStoreType:   normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:     getEnv("LOCAL_STORE_DIR", "./data/uploads"),
		AWSRegion:         getEnv("AWS_REGION", ""),
		S3Bucket:          getEnv("S3_BUCKET", ""),
		S3Prefix:          getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:       getEnv("SSE_KMS_KEY_ID", ""),
		DevAPIPollWindow:  getDuration("DEVAPI_POLL_WINDOW", time.Second),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val <= 0 {
		log.Printf("config %s invalid int %q, using %d", key, raw, def)
		return def
	}
	return val
}

func getDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil || val <= 0 {
		log.Printf("config %s invalid duration %q, using %s", key, raw, def)
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeMarkerStore(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "postgres", "pg":
		return "postgres"
	case "file":
		return "file"
	default:
		return "memory"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}
