package config

import (
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg := FromEnv()
	if cfg.Addr != ":5000" {
		t.Fatalf("addr=%q", cfg.Addr)
	}
	if cfg.CacheDuration != 24*time.Hour {
		t.Fatalf("cache duration=%v want 24h", cfg.CacheDuration)
	}
	if cfg.Upstream.RetryAttempts != 3 || cfg.Upstream.RetryBackoff != 2*time.Second {
		t.Fatalf("retry=%d backoff=%v", cfg.Upstream.RetryAttempts, cfg.Upstream.RetryBackoff)
	}
	if cfg.Geo.MaxRadiusKm != 100 {
		t.Fatalf("radius=%v want 100", cfg.Geo.MaxRadiusKm)
	}
	if cfg.Refresh.Driver != "none" || cfg.Refresh.Topic != "mgnrega-data-releases" {
		t.Fatalf("refresh=%+v", cfg.Refresh)
	}
	if cfg.StaleMaxAge != 0 || !cfg.CoalesceFetches {
		t.Fatalf("stale=%v coalesce=%t", cfg.StaleMaxAge, cfg.CoalesceFetches)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Redis")
	t.Setenv("API_TIMEOUT_MS", "1500")
	t.Setenv("CACHE_DURATION_HOURS", "6")
	t.Setenv("COALESCE_FETCHES", "no")
	t.Setenv("GEO_H3_RES", "99")
	t.Setenv("KAFKA_BROKERS", " a:9092, ,b:9092 ")

	cfg := FromEnv()
	if cfg.StoreDriver != "redis" {
		t.Fatalf("driver=%q want lowercased redis", cfg.StoreDriver)
	}
	if cfg.Upstream.Timeout != 1500*time.Millisecond {
		t.Fatalf("timeout=%v", cfg.Upstream.Timeout)
	}
	if cfg.CacheDuration != 6*time.Hour {
		t.Fatalf("cache duration=%v", cfg.CacheDuration)
	}
	if cfg.CoalesceFetches {
		t.Fatal("coalesce should be off")
	}
	if cfg.Geo.H3Res != 5 {
		t.Fatalf("out-of-range res should fall back to 5, got %d", cfg.Geo.H3Res)
	}
	if got := cfg.KafkaBrokers(); len(got) != 2 || got[0] != "a:9092" || got[1] != "b:9092" {
		t.Fatalf("brokers=%v", got)
	}
}

func TestValidate_RejectsUnknownDrivers(t *testing.T) {
	cases := map[string]func(*Config){
		"store":     func(c *Config) { c.StoreDriver = "sqlite" },
		"upstream":  func(c *Config) { c.Upstream.Driver = "grpc" },
		"audit":     func(c *Config) { c.Audit.Driver = "s3" },
		"audit mix": func(c *Config) { c.Audit.Driver = "mongo,none" },
		"audit nil": func(c *Config) { c.Audit.Driver = " , " },
		"source":    func(c *Config) { c.Geo.Source = "csv" },
		"refresh":   func(c *Config) { c.Refresh.Driver = "nats" },
		"timeout":   func(c *Config) { c.Upstream.Timeout = 0 },
		"radius":    func(c *Config) { c.Geo.MaxRadiusKm = -1 },
	}
	for name, mut := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := FromEnv()
			mut(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCurrentPeriod(t *testing.T) {
	cfg := Config{DefaultFiscalYear: "2024-25"}
	now := time.Date(2025, time.February, 3, 0, 0, 0, 0, time.UTC)
	fy, m := cfg.CurrentPeriod(now)
	if fy != "2024-25" || m != "February" {
		t.Fatalf("got %s %s", fy, m)
	}
	cfg.DefaultMonth = "October"
	if _, m := cfg.CurrentPeriod(now); m != "October" {
		t.Fatalf("configured month ignored: %s", m)
	}
}

func TestAuditDrivers(t *testing.T) {
	cfg := Config{Audit: AuditCfg{Driver: "mongo, kafka,mongo"}}
	got := cfg.AuditDrivers()
	if len(got) != 2 || got[0] != "mongo" || got[1] != "kafka" {
		t.Fatalf("drivers=%v", got)
	}
	if !cfg.AuditUses("kafka") || cfg.AuditUses("log") {
		t.Fatalf("AuditUses wrong for %v", got)
	}
}

func TestShutdownBudget_CoversRetrySequence(t *testing.T) {
	cfg := FromEnv()
	// 4 attempts x 10s + 3 backoffs x 2s + 5s margin
	if got := cfg.ShutdownBudget(); got != 51*time.Second {
		t.Fatalf("budget=%v want 51s", got)
	}
	worst := time.Duration(cfg.Upstream.RetryAttempts+1)*cfg.Upstream.Timeout +
		time.Duration(cfg.Upstream.RetryAttempts)*cfg.Upstream.RetryBackoff
	if cfg.ShutdownBudget() <= worst {
		t.Fatalf("budget %v does not cover worst-case fetch %v", cfg.ShutdownBudget(), worst)
	}
	cfg.ShutdownTimeout = 3 * time.Second
	if got := cfg.ShutdownBudget(); got != 3*time.Second {
		t.Fatalf("explicit timeout ignored: %v", got)
	}
}
