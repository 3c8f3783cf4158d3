package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

type UpstreamCfg struct {
	Driver         string
	BaseURL        string
	APIKey         string
	ResourceID     string
	RetryAttempts  int
	Timeout        time.Duration
	RetryBackoff   time.Duration
	BreakerEnabled bool
}

type AuditCfg struct {
	Driver    string
	Brokers   string
	Topic     string
	QueueSize int
}

// RefreshCfg configures the consumer of data-release events that force refetches.
type RefreshCfg struct {
	Driver        string
	Topic         string
	GroupID       string
	InitialOldest bool
}

type GeoCfg struct {
	Source      string
	MaxRadiusKm float64
	H3Res       int
}

type Config struct {
	Addr        string
	LogLevel    string
	LogConsole  bool
	LogSampleN  int
	Service     string
	Upstream    UpstreamCfg
	Audit       AuditCfg
	Refresh     RefreshCfg
	Geo         GeoCfg
	StoreDriver string
	MongoURI    string
	MongoDB     string
	RedisAddr   string

	CacheDuration   time.Duration
	StaleMaxAge     time.Duration
	CoalesceFetches bool
	StoreOpTimeout  time.Duration

	SearchCacheSize int
	SearchCacheTTL  time.Duration

	DefaultFiscalYear string
	DefaultMonth      string

	FrontendURL       string
	RateLimitRequests int
	RateLimitWindow   time.Duration

	MetricsEnabled bool
	MetricsAddr    string
	MetricsPath    string

	// ShutdownTimeout bounds graceful shutdown; 0 derives it from the retry settings.
	ShutdownTimeout time.Duration
}

func FromEnv() Config {
	timeout := getduration("API_TIMEOUT", 10*time.Second)
	if ms := getint("API_TIMEOUT_MS", 0); ms > 0 {
		timeout = time.Duration(ms) * time.Millisecond
	}

	h3Res := getint("GEO_H3_RES", 5)
	if h3Res < 0 || h3Res > 15 {
		h3Res = 5
	}

	return Config{
		Addr:       getenv("ADDR", ":5000"),
		LogLevel:   getenv("LOG_LEVEL", "info"),
		LogConsole: getbool("LOG_CONSOLE", false),
		LogSampleN: getint("LOG_SAMPLE_N", 0),
		Service:    getenv("SERVICE_NAME", "mgnrega-tracker"),
		Upstream: UpstreamCfg{
			Driver:         strings.ToLower(getenv("UPSTREAM_DRIVER", "mock")),
			BaseURL:        getenv("MGNREGA_API_BASE_URL", "https://api.data.gov.in"),
			APIKey:         getenv("MGNREGA_API_KEY", ""),
			ResourceID:     getenv("MGNREGA_RESOURCE_ID", "ee03643a-ee4c-48c2-ac30-9f2ff26ab722"),
			RetryAttempts:  getint("API_RETRY_ATTEMPTS", 3),
			Timeout:        timeout,
			RetryBackoff:   getduration("API_RETRY_BACKOFF", 2*time.Second),
			BreakerEnabled: getbool("BREAKER_ENABLED", false),
		},
		Audit: AuditCfg{
			Driver:    strings.ToLower(getenv("AUDIT_DRIVER", "log")),
			Brokers:   getenv("KAFKA_BROKERS", "localhost:9092"),
			Topic:     getenv("AUDIT_TOPIC", "mgnrega-api-calls"),
			QueueSize: getint("AUDIT_QUEUE", 1024),
		},
		Refresh: RefreshCfg{
			Driver:        strings.ToLower(getenv("REFRESH_DRIVER", "none")),
			Topic:         getenv("REFRESH_TOPIC", "mgnrega-data-releases"),
			GroupID:       getenv("REFRESH_GROUP_ID", "mgnrega-tracker-refresh"),
			InitialOldest: getbool("REFRESH_FROM_OLDEST", false),
		},
		Geo: GeoCfg{
			Source:      strings.ToLower(getenv("DISTRICT_SOURCE", "static")),
			MaxRadiusKm: getfloat("GEO_MAX_RADIUS_KM", 100),
			H3Res:       h3Res,
		},
		StoreDriver: strings.ToLower(getenv("STORE_DRIVER", "memory")),
		MongoURI:    getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:     getenv("MONGO_DB", "mgnrega"),
		RedisAddr:   getenv("REDIS_ADDR", "localhost:6379"),

		CacheDuration:   time.Duration(getint("CACHE_DURATION_HOURS", 24)) * time.Hour,
		StaleMaxAge:     getduration("STALE_MAX_AGE", 0),
		CoalesceFetches: getbool("COALESCE_FETCHES", true),
		StoreOpTimeout:  getduration("STORE_OP_TIMEOUT", 5*time.Second),

		SearchCacheSize: getint("SEARCH_CACHE_SIZE", 256),
		SearchCacheTTL:  getduration("SEARCH_CACHE_TTL", 10*time.Minute),

		DefaultFiscalYear: getenv("DEFAULT_FINANCIAL_YEAR", "2024-25"),
		DefaultMonth:      getenv("DEFAULT_MONTH", ""),

		FrontendURL:       getenv("FRONTEND_URL", "*"),
		RateLimitRequests: getint("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   getduration("RATE_LIMIT_WINDOW", 15*time.Minute),

		MetricsEnabled: getbool("METRICS_ENABLED", false),
		MetricsAddr:    getenv("METRICS_ADDR", ":9090"),
		MetricsPath:    getenv("METRICS_PATH", "/metrics"),

		ShutdownTimeout: getduration("SHUTDOWN_TIMEOUT", 0),
	}
}

func (c Config) Validate() error {
	switch c.StoreDriver {
	case "memory", "mongo", "redis":
	default:
		return fmt.Errorf("STORE_DRIVER must be memory|mongo|redis (got %q)", c.StoreDriver)
	}
	switch c.Upstream.Driver {
	case "mock", "http":
	default:
		return fmt.Errorf("UPSTREAM_DRIVER must be mock|http (got %q)", c.Upstream.Driver)
	}
	drivers := c.AuditDrivers()
	if len(drivers) == 0 {
		return fmt.Errorf("AUDIT_DRIVER is empty")
	}
	for _, d := range drivers {
		switch d {
		case "log", "mongo", "kafka":
		case "none":
			if len(drivers) > 1 {
				return fmt.Errorf("AUDIT_DRIVER none cannot be combined (got %q)", c.Audit.Driver)
			}
		default:
			return fmt.Errorf("AUDIT_DRIVER entries must be log|mongo|kafka|none (got %q)", d)
		}
	}
	switch c.Refresh.Driver {
	case "none", "kafka":
	default:
		return fmt.Errorf("REFRESH_DRIVER must be none|kafka (got %q)", c.Refresh.Driver)
	}
	switch c.Geo.Source {
	case "static", "mongo":
	default:
		return fmt.Errorf("DISTRICT_SOURCE must be static|mongo (got %q)", c.Geo.Source)
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("API_TIMEOUT must be positive")
	}
	if c.Upstream.RetryAttempts < 0 {
		return fmt.Errorf("API_RETRY_ATTEMPTS must be >= 0")
	}
	if c.CacheDuration <= 0 {
		return fmt.Errorf("CACHE_DURATION_HOURS must be positive")
	}
	if c.Geo.MaxRadiusKm <= 0 {
		return fmt.Errorf("GEO_MAX_RADIUS_KM must be positive")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for v := range strings.SplitSeq(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// KafkaBrokers splits the comma separated broker list.
func (c Config) KafkaBrokers() []string { return splitList(c.Audit.Brokers) }

// AuditDrivers splits AUDIT_DRIVER, e.g. "mongo,kafka", dropping repeats.
func (c Config) AuditDrivers() []string {
	var out []string
	for _, d := range splitList(c.Audit.Driver) {
		if !slices.Contains(out, d) {
			out = append(out, d)
		}
	}
	return out
}

func (c Config) AuditUses(driver string) bool {
	return slices.Contains(c.AuditDrivers(), driver)
}

// ShutdownBudget is how long in-flight requests get to finish. The derived value covers
// a full retry sequence against upstream plus a margin.
func (c Config) ShutdownBudget() time.Duration {
	if c.ShutdownTimeout > 0 {
		return c.ShutdownTimeout
	}
	n := time.Duration(c.Upstream.RetryAttempts)
	return (n+1)*c.Upstream.Timeout + n*c.Upstream.RetryBackoff + 5*time.Second
}

// CurrentPeriod returns the configured default period, falling back to the month of now.
func (c Config) CurrentPeriod(now time.Time) (fiscalYear, month string) {
	fiscalYear = c.DefaultFiscalYear
	month = c.DefaultMonth
	if month == "" {
		month = now.Month().String()
	}
	return fiscalYear, month
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
