package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Notion source
	NotionToken      string        // integration secret
	NotionDatabaseID string        // opportunities database
	NotionBaseURL    string        // optional, empty = public API
	SourceMaxPages   int           // hard cap on pages per refresh
	SourcePageSize   int           // records per page
	SourceAttempts   int           // attempts per request, including the first
	SourceBackoff    time.Duration // first wait between attempts, doubled each retry
	SourceMaxBackoff time.Duration // ceiling for one wait
	SourceTimeout    time.Duration // deadline for one request
	SourceRPS        float64       // client-side request rate
	SourceLookahead  time.Duration // 0 = no deadline window in the query filter

	// Snapshot lifecycle
	SnapshotKey    string        // optional, empty = versioned default key
	SnapshotTTL    time.Duration // ex: 6h
	ReloadInterval time.Duration // background rebuild period
	RefreshTimeout time.Duration // upper bound for one rebuild
	Timezone       *time.Location
	FeaturedTag    string // tag that marks a record as featured

	// Relevance
	TaxonomyFile  string // optional, empty = built-in discipline table
	ScoreWeights  string // optional, "discipline=4,rich_summary=3,..."
	DetailWorkers int    // parallel per-ID fetches for saved items

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	AllowedHosts []string // optional, restrict /reload to specific Host headers
	AllowedCIDRS []string // optional, restrict /reload to specific IP (e.g. "1.2.3.4, 5.6.7.8")
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)

	RateLimitPerMin int // requests per minute per client IP on /api, 0 = unlimited
	RateLimitBurst  int
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("OPP_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("OPP_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("OPP_LOG_LEVEL", "info"),
		PrettyLog: mustBool("OPP_PRETTY_LOG", true),

		// Notion source
		NotionToken:      requireEnv("OPP_NOTION_TOKEN"),
		NotionDatabaseID: requireEnv("OPP_NOTION_DATABASE_ID"),
		NotionBaseURL:    getenv("OPP_NOTION_BASE_URL", ""),
		SourceMaxPages:   getenvInt("OPP_SOURCE_MAX_PAGES", 3),
		SourcePageSize:   getenvInt("OPP_SOURCE_PAGE_SIZE", 100),
		SourceAttempts:   getenvInt("OPP_SOURCE_MAX_ATTEMPTS", 3),
		SourceBackoff:    mustDuration("OPP_SOURCE_BACKOFF", time.Second),
		SourceMaxBackoff: mustDuration("OPP_SOURCE_MAX_BACKOFF", 10*time.Second),
		SourceTimeout:    mustDuration("OPP_SOURCE_TIMEOUT", 30*time.Second),
		SourceRPS:        getenvFloat("OPP_SOURCE_RPS", 3),
		SourceLookahead:  mustDuration("OPP_SOURCE_LOOKAHEAD", 0),

		// Snapshot lifecycle
		SnapshotKey:    getenv("OPP_SNAPSHOT_KEY", ""),
		SnapshotTTL:    mustDuration("OPP_SNAPSHOT_TTL", 6*time.Hour),
		ReloadInterval: mustDuration("OPP_RELOAD_INTERVAL", 6*time.Hour),
		RefreshTimeout: mustDuration("OPP_REFRESH_TIMEOUT", 5*time.Minute),
		Timezone:       mustLocation("OPP_TIMEZONE", "UTC"),
		FeaturedTag:    getenv("OPP_FEATURED_TAG", "destacar"),

		// Relevance
		TaxonomyFile:  getenv("OPP_TAXONOMY_FILE", ""),
		ScoreWeights:  getenv("OPP_SCORE_WEIGHTS", ""),
		DetailWorkers: getenvInt("OPP_DETAIL_WORKERS", 8),

		// Redis settings
		RedisAddr:             requireEnv("OPP_REDIS_ADDR"),
		RedisUser:             getenv("OPP_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("OPP_REDIS_PASSWORD_REQUIRED", true),
		RedisPassword:         getenv("OPP_REDIS_PASSWORD", ""),
		RedisDB:               requireEnvInt("OPP_REDIS_DB"),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("OPP_ALLOWED_HOSTS", "")),
		AllowedCIDRS: parseAllowedIPs(getenv("OPP_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("OPP_TRUST_PROXY", true),

		RateLimitPerMin: getenvInt("OPP_RATE_LIMIT_PER_MIN", 120),
		RateLimitBurst:  getenvInt("OPP_RATE_LIMIT_BURST", 20),
	}

	// Validate Redis password configuration
	if cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
		panic("❌ FATAL: OPP_REDIS_PASSWORD is required when OPP_REDIS_PASSWORD_REQUIRED=true")
	}
	if cfg.ReloadInterval <= 0 {
		panic(fmt.Sprintf("❌ FATAL: OPP_RELOAD_INTERVAL must be > 0, got %v", cfg.ReloadInterval))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		cfgCopy.NotionToken = "***REDACTED***"
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func requireEnvInt(key string) int {
	v := requireEnv(key)
	i, err := strconv.Atoi(v)
	if err != nil {
		panic(fmt.Sprintf("❌ FATAL: Invalid integer value for %s: %s", key, v))
	}
	return i
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// mustLocation panics on an unknown zone: a wrong "today" silently shifts
// every bucket.
func mustLocation(key, def string) *time.Location {
	name := getenv(key, def)
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("❌ FATAL: Invalid timezone for %s: %s", key, name))
	}
	return loc
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
