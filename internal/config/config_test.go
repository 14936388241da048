package config

import (
	"testing"
	"time"
)

func expectPanic(t *testing.T, name string) {
	t.Helper()
	if r := recover(); r == nil {
		t.Errorf("%s should have panicked", name)
	}
}

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("OPP_NOTION_TOKEN", "secret_abc")
	t.Setenv("OPP_NOTION_DATABASE_ID", "db-123")
	t.Setenv("OPP_REDIS_ADDR", "localhost:6379")
	t.Setenv("OPP_REDIS_DB", "2")
	t.Setenv("OPP_REDIS_PASSWORD_REQUIRED", "false")
}

func TestRequireEnv(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		value     string
		wantPanic bool
	}{
		{name: "variable set", key: "TEST_VAR", value: "test_value"},
		{name: "variable not set", key: "TEST_VAR_MISSING", wantPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				t.Setenv(tt.key, tt.value)
			}
			if tt.wantPanic {
				defer expectPanic(t, "requireEnv()")
			}

			result := requireEnv(tt.key)
			if !tt.wantPanic && result != tt.value {
				t.Errorf("requireEnv() = %v, want %v", result, tt.value)
			}
		})
	}
}

func TestRequireEnvInt(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		expected  int
		wantPanic bool
	}{
		{name: "valid integer", value: "42", expected: 42},
		{name: "invalid integer", value: "not_a_number", wantPanic: true},
		{name: "missing variable", value: "", wantPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_INT", tt.value)
			if tt.wantPanic {
				defer expectPanic(t, "requireEnvInt()")
			}

			result := requireEnvInt("TEST_INT")
			if !tt.wantPanic && result != tt.expected {
				t.Errorf("requireEnvInt() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestGetenvFloat(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected float64
	}{
		{name: "valid float", value: "2.5", expected: 2.5},
		{name: "integer", value: "4", expected: 4},
		{name: "invalid uses default", value: "fast", expected: 3},
		{name: "missing uses default", value: "", expected: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_FLOAT", tt.value)
			if got := getenvFloat("TEST_FLOAT", 3); got != tt.expected {
				t.Errorf("getenvFloat() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestMustDuration(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		def      time.Duration
		expected time.Duration
	}{
		{name: "valid duration", value: "5s", def: time.Second, expected: 5 * time.Second},
		{name: "hours", value: "6h", def: time.Second, expected: 6 * time.Hour},
		{name: "invalid duration uses default", value: "invalid", def: 10 * time.Second, expected: 10 * time.Second},
		{name: "missing variable uses default", value: "", def: 15 * time.Second, expected: 15 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.value)
			if result := mustDuration("TEST_DURATION", tt.def); result != tt.expected {
				t.Errorf("mustDuration() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestMustBool(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		def      bool
		expected bool
	}{
		{name: "true value", value: "true", def: false, expected: true},
		{name: "false value", value: "false", def: true, expected: false},
		{name: "invalid value uses default", value: "invalid", def: true, expected: true},
		{name: "missing variable uses default", value: "", def: false, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_BOOL", tt.value)
			if result := mustBool("TEST_BOOL", tt.def); result != tt.expected {
				t.Errorf("mustBool() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestMustLocation(t *testing.T) {
	t.Setenv("TEST_TZ", "America/Argentina/Buenos_Aires")
	if loc := mustLocation("TEST_TZ", "UTC"); loc.String() != "America/Argentina/Buenos_Aires" {
		t.Errorf("mustLocation() = %v", loc)
	}

	t.Setenv("TEST_TZ", "")
	if loc := mustLocation("TEST_TZ", "UTC"); loc != time.UTC {
		t.Errorf("mustLocation() default = %v, want UTC", loc)
	}

	t.Setenv("TEST_TZ", "Mars/Olympus_Mons")
	defer expectPanic(t, "mustLocation()")
	mustLocation("TEST_TZ", "UTC")
}

func TestSplitAndTrim(t *testing.T) {
	got := splitAndTrim(` "opp.example.org", 'api.example.org' ,, localhost:8080 `)
	want := []string{"opp.example.org", "api.example.org", "localhost:8080"}
	if len(got) != len(want) {
		t.Fatalf("splitAndTrim() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("splitAndTrim()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if splitAndTrim("") != nil {
		t.Error("splitAndTrim(\"\") should be nil")
	}
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg := Load()

	if cfg.NotionToken != "secret_abc" || cfg.NotionDatabaseID != "db-123" {
		t.Errorf("notion settings = %q/%q", cfg.NotionToken, cfg.NotionDatabaseID)
	}
	if cfg.RedisDB != 2 {
		t.Errorf("RedisDB = %d, want 2", cfg.RedisDB)
	}
	if cfg.SnapshotTTL != 6*time.Hour || cfg.ReloadInterval != 6*time.Hour {
		t.Errorf("snapshot ttl/interval = %v/%v, want 6h/6h", cfg.SnapshotTTL, cfg.ReloadInterval)
	}
	if cfg.SourceMaxPages != 3 || cfg.SourcePageSize != 100 || cfg.SourceAttempts != 3 {
		t.Errorf("source caps = %d/%d/%d", cfg.SourceMaxPages, cfg.SourcePageSize, cfg.SourceAttempts)
	}
	if cfg.SourceRPS != 3 {
		t.Errorf("SourceRPS = %v, want 3", cfg.SourceRPS)
	}
	if cfg.SourceLookahead != 0 {
		t.Errorf("SourceLookahead = %v, want disabled", cfg.SourceLookahead)
	}
	if cfg.FeaturedTag != "destacar" {
		t.Errorf("FeaturedTag = %q", cfg.FeaturedTag)
	}
	if cfg.DetailWorkers != 8 {
		t.Errorf("DetailWorkers = %d, want 8", cfg.DetailWorkers)
	}
	if cfg.Timezone != time.UTC {
		t.Errorf("Timezone = %v, want UTC", cfg.Timezone)
	}
	if cfg.AllowedHosts != nil || cfg.AllowedCIDRS != nil {
		t.Errorf("access restrictions should be empty, got %v / %v", cfg.AllowedHosts, cfg.AllowedCIDRS)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("OPP_SNAPSHOT_TTL", "30m")
	t.Setenv("OPP_SOURCE_LOOKAHEAD", "4380h")
	t.Setenv("OPP_ALLOWED_CIDRS", "10.0.0.0/8, 192.168.1.10")
	t.Setenv("OPP_SCORE_WEIGHTS", "title=5")

	cfg := Load()

	if cfg.SnapshotTTL != 30*time.Minute {
		t.Errorf("SnapshotTTL = %v, want 30m", cfg.SnapshotTTL)
	}
	if cfg.SourceLookahead != 4380*time.Hour {
		t.Errorf("SourceLookahead = %v", cfg.SourceLookahead)
	}
	if len(cfg.AllowedCIDRS) != 2 || cfg.AllowedCIDRS[1] != "192.168.1.10" {
		t.Errorf("AllowedCIDRS = %v", cfg.AllowedCIDRS)
	}
	if cfg.ScoreWeights != "title=5" {
		t.Errorf("ScoreWeights = %q", cfg.ScoreWeights)
	}
}

func TestLoadPanics(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T)
	}{
		{
			name: "missing notion token",
			setup: func(t *testing.T) {
				setRequired(t)
				t.Setenv("OPP_NOTION_TOKEN", "")
			},
		},
		{
			name: "password required but empty",
			setup: func(t *testing.T) {
				setRequired(t)
				t.Setenv("OPP_REDIS_PASSWORD_REQUIRED", "true")
			},
		},
		{
			name: "zero reload interval",
			setup: func(t *testing.T) {
				setRequired(t)
				t.Setenv("OPP_RELOAD_INTERVAL", "0s")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup(t)
			defer expectPanic(t, "Load()")
			Load()
		})
	}
}
