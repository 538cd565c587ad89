package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Execution backends.
const (
	BackendJudge0 = "judge0"
	BackendDocker = "docker"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName     string
	AppEnv      string
	AppPort     string
	DatabaseURL string
	RedisURL    string
	NATSURL     string
	JWTSecret   string
	CORSOrigins string

	ExecutionBackend string
	Judge0           Judge0Config

	DockerHost       string
	ExecutionTimeout time.Duration
	CodeRunMemoryMB  int
	CodeRunCPUShares int

	LeaderboardCacheTTL       time.Duration
	EventsChannel             string
	ExecuteRateLimitPerMinute int

	SeedEnabled bool
	SeedToken   string
}

// Judge0Config configures the remote judge.
type Judge0Config struct {
	URL             string
	APIKey          string
	Host            string
	LanguageID      int
	PollInterval    time.Duration
	MaxPollAttempts int
	RequestTimeout  time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("CODEARENA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "CodeArena API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("cors.origins", "*")
	v.SetDefault("execution.backend", BackendJudge0)
	v.SetDefault("judge0.url", "https://judge0-ce.p.rapidapi.com")
	v.SetDefault("judge0.language_id", 71)
	v.SetDefault("judge0.poll_interval", "500ms")
	v.SetDefault("judge0.max_poll_attempts", 60)
	v.SetDefault("judge0.request_timeout", "10s")
	v.SetDefault("execution_timeout_ms", 5000)
	v.SetDefault("code_run_memory_mb", 256)
	v.SetDefault("code_run_cpu_shares", 512)
	v.SetDefault("leaderboard.cache_ttl", "1m")
	v.SetDefault("events.channel", "codearena")
	v.SetDefault("rate_limit.execute_per_minute", 20)
	v.SetDefault("seed.enabled", false)

	pollInterval, err := parseDuration(v, "judge0.poll_interval")
	if err != nil {
		return Config{}, err
	}
	requestTimeout, err := parseDuration(v, "judge0.request_timeout")
	if err != nil {
		return Config{}, err
	}
	leaderboardTTL, err := parseDuration(v, "leaderboard.cache_ttl")
	if err != nil {
		return Config{}, err
	}

	timeoutMs := v.GetInt("execution_timeout_ms")
	if timeoutMs <= 0 {
		timeoutMs = 5000
	}

	cfg := Config{
		AppName:          v.GetString("app.name"),
		AppEnv:           v.GetString("app.env"),
		AppPort:          v.GetString("app.port"),
		DatabaseURL:      v.GetString("database.url"),
		RedisURL:         v.GetString("redis.url"),
		NATSURL:          v.GetString("nats.url"),
		JWTSecret:        v.GetString("jwt.secret"),
		CORSOrigins:      v.GetString("cors.origins"),
		ExecutionBackend: strings.ToLower(strings.TrimSpace(v.GetString("execution.backend"))),
		Judge0: Judge0Config{
			URL:             strings.TrimRight(v.GetString("judge0.url"), "/"),
			APIKey:          v.GetString("judge0.api_key"),
			Host:            v.GetString("judge0.host"),
			LanguageID:      v.GetInt("judge0.language_id"),
			PollInterval:    pollInterval,
			MaxPollAttempts: v.GetInt("judge0.max_poll_attempts"),
			RequestTimeout:  requestTimeout,
		},
		DockerHost:                v.GetString("docker_host"),
		ExecutionTimeout:          time.Duration(timeoutMs) * time.Millisecond,
		CodeRunMemoryMB:           v.GetInt("code_run_memory_mb"),
		CodeRunCPUShares:          v.GetInt("code_run_cpu_shares"),
		LeaderboardCacheTTL:       leaderboardTTL,
		EventsChannel:             v.GetString("events.channel"),
		ExecuteRateLimitPerMinute: v.GetInt("rate_limit.execute_per_minute"),
		SeedEnabled:               v.GetBool("seed.enabled"),
		SeedToken:                 v.GetString("seed.token"),
	}

	if cfg.SeedEnabled && strings.TrimSpace(cfg.SeedToken) == "" {
		return Config{}, fmt.Errorf("seed token must be provided when seeding is enabled")
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	switch cfg.ExecutionBackend {
	case BackendJudge0:
		if cfg.Judge0.URL == "" {
			return Config{}, fmt.Errorf("judge0 url must be provided for the judge0 backend")
		}
	case BackendDocker:
	default:
		return Config{}, fmt.Errorf("unsupported execution backend %q", cfg.ExecutionBackend)
	}

	if cfg.Judge0.PollInterval <= 0 {
		return Config{}, fmt.Errorf("judge0 poll interval must be positive")
	}
	if cfg.Judge0.MaxPollAttempts <= 0 {
		cfg.Judge0.MaxPollAttempts = 60
	}
	if cfg.Judge0.LanguageID <= 0 {
		cfg.Judge0.LanguageID = 71
	}
	if cfg.CodeRunMemoryMB <= 0 {
		cfg.CodeRunMemoryMB = 256
	}
	if cfg.CodeRunCPUShares <= 0 {
		cfg.CodeRunCPUShares = 512
	}
	if cfg.ExecuteRateLimitPerMinute <= 0 {
		cfg.ExecuteRateLimitPerMinute = 20
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(v.GetString(key)))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
