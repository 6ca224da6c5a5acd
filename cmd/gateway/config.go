package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type config struct {
	ListenAddr string `validate:"required"`
	AdminAddr  string

	UpstreamURL     string        `validate:"required,url"`
	UpstreamAPIKey  string        `validate:"required"`
	UpstreamVersion string        `validate:"required"`
	UpstreamName    string        `validate:"required"`
	UpstreamTimeout time.Duration `validate:"gt=0"`
	UpstreamRPS     float64       `validate:"gte=0"`
	UpstreamBurst   int           `validate:"gte=0"`

	AllowedOrigins []string `validate:"required,min=1,dive,url"`

	RateLimitRequests int           `validate:"gt=0"`
	RateLimitWindow   time.Duration `validate:"gte=1ms"`
	ClientIPHeader    string
	RateStore         string `validate:"oneof=memory redis"`
	RedisURL          string
	JanitorEvery      time.Duration `validate:"gte=0"`

	RateStatsEnabled   bool
	RateStatsPrefix    string
	RateStatsTTL       time.Duration
	RateStatsBucket    string `validate:"omitempty,oneof=minute none"`
	RateStatsTrackKeys bool

	AccessLogDatabaseURL string

	ConcurrencyMax     int `validate:"gte=0"`
	ConcurrencyTimeout time.Duration

	LogLevel      string `validate:"oneof=trace debug info warn warning error"`
	LogFormat     string `validate:"oneof=text json"`
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
}

// readConfig lê o ambiente (e um .env opcional no diretório atual).
// Valores que não fazem parse abortam a leitura em vez de cair no padrão.
func readConfig() (config, error) {
	_ = godotenv.Load()

	env := &envReader{}
	cfg := config{}
	cfg.ListenAddr = getenvDefault("LISTEN_ADDR", ":8080")
	cfg.AdminAddr = os.Getenv("ADMIN_ADDR")

	cfg.UpstreamURL = getenvDefault("UPSTREAM_URL", "https://api.anthropic.com/v1/messages")
	cfg.UpstreamAPIKey = getenvDefault("UPSTREAM_API_KEY", os.Getenv("ANTHROPIC_API_KEY"))
	cfg.UpstreamVersion = getenvDefault("UPSTREAM_VERSION", "2023-06-01")
	cfg.UpstreamName = getenvDefault("UPSTREAM_NAME", "Anthropic")
	cfg.UpstreamTimeout = env.getDuration("UPSTREAM_TIMEOUT", 60*time.Second)
	cfg.UpstreamRPS = env.getFloat("UPSTREAM_RPS", 0)
	cfg.UpstreamBurst = env.getInt("UPSTREAM_BURST", 1)

	cfg.AllowedOrigins = splitList(os.Getenv("ALLOWED_ORIGINS"))

	cfg.RateLimitRequests = env.getInt("RATE_LIMIT_REQUESTS", 10)
	cfg.RateLimitWindow = env.getWindow("RATE_LIMIT_WINDOW", 60*time.Second)
	cfg.ClientIPHeader = strings.TrimSpace(os.Getenv("CLIENT_IP_HEADER"))
	cfg.RateStore = strings.ToLower(getenvDefault("RATE_STORE", "memory"))
	cfg.RedisURL = os.Getenv("REDIS_URL")
	cfg.JanitorEvery = env.getDuration("RATE_JANITOR_EVERY", 2*time.Minute)

	cfg.RateStatsEnabled = env.getBool("RATE_STATS_ENABLED", false)
	cfg.RateStatsPrefix = getenvDefault("RATE_STATS_PREFIX", "ratelimit:stats")
	cfg.RateStatsTTL = env.getDuration("RATE_STATS_TTL", 24*time.Hour)
	cfg.RateStatsBucket = getenvDefault("RATE_STATS_BUCKET", "minute")
	cfg.RateStatsTrackKeys = env.getBool("RATE_STATS_TRACK_KEYS", false)

	cfg.AccessLogDatabaseURL = os.Getenv("ACCESS_LOG_DATABASE_URL")

	cfg.ConcurrencyMax = env.getInt("CONCURRENCY_MAX", 0)
	cfg.ConcurrencyTimeout = env.getDuration("CONCURRENCY_TIMEOUT", 0)

	cfg.LogLevel = strings.ToLower(getenvDefault("LOG_LEVEL", "info"))
	cfg.LogFormat = strings.ToLower(getenvDefault("LOG_FORMAT", "text"))
	cfg.LogFile = os.Getenv("LOG_FILE")
	cfg.LogMaxSizeMB = env.getInt("LOG_MAX_SIZE_MB", 100)
	cfg.LogMaxBackups = env.getInt("LOG_MAX_BACKUPS", 5)
	cfg.LogMaxAgeDays = env.getInt("LOG_MAX_AGE_DAYS", 28)

	if err := env.err(); err != nil {
		return config{}, err
	}
	if err := cfg.validate(); err != nil {
		return config{}, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c config) validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return err
	}

	needRedis := c.RateStore == "redis" || c.RateStatsEnabled
	if needRedis && strings.TrimSpace(c.RedisURL) == "" {
		return errors.New("REDIS_URL is required when RATE_STORE=redis or RATE_STATS_ENABLED=true")
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// envReader lê variáveis tipadas e acumula os erros de parse.
type envReader struct {
	errs []error
}

func (e *envReader) err() error {
	if len(e.errs) == 0 {
		return nil
	}
	return fmt.Errorf("invalid config: %w", errors.Join(e.errs...))
}

func (e *envReader) fail(k, v, want string) {
	e.errs = append(e.errs, fmt.Errorf("%s: %q is not %s", k, v, want))
}

func (e *envReader) getInt(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		e.fail(k, v, "an integer")
		return def
	}
	return i
}

func (e *envReader) getFloat(k string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.fail(k, v, "a number")
		return def
	}
	return f
}

func (e *envReader) getBool(k string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(k, v, "a boolean")
		return def
	}
	return b
}

func (e *envReader) getDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(k, v, "a duration")
		return def
	}
	return d
}

// getWindow aceita duração Go ("90s") ou inteiro em milissegundos ("60000").
func (e *envReader) getWindow(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(k, v, "a duration or milliseconds")
		return def
	}
	return d
}
