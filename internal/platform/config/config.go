package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Local-development fallbacks for the dependent services.
const (
	DefaultAddr            = ":8080"
	DefaultOPABaseURL      = "http://localhost:8181"
	DefaultOPAPolicyPath   = "ksef/decision"
	DefaultOPALServerURL   = "http://localhost:7002"
	DefaultDataProviderURL = "http://localhost:8110"
	DefaultPollInterval    = 30 * time.Second
)

// Server captures process level configuration.
type Server struct {
	Addr            string        `yaml:"addr"`
	LogLevel        string        `yaml:"log_level"`
	DevelopmentMode bool          `yaml:"development_mode"`
	OPA             OPAConfig     `yaml:"opa"`
	OPAL            OPALConfig    `yaml:"opal"`
	DataProviderURL string        `yaml:"data_provider_url"`
	Health          HealthConfig  `yaml:"health"`
	Redis           RedisConfig   `yaml:"redis"`
	Tracing         TracingConfig `yaml:"tracing"`
}

// OPAConfig points at the policy engine.
type OPAConfig struct {
	BaseURL    string `yaml:"base_url"`
	PolicyPath string `yaml:"policy_path"`
}

// OPALConfig points at the config-distribution server.
type OPALConfig struct {
	ServerURL string `yaml:"server_url"`
}

// HealthConfig controls the health poller.
type HealthConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
}

// RedisConfig enables the shared last-known status store. An empty URL keeps
// the status in process memory.
type RedisConfig struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	StatusKey    string        `yaml:"status_key"`
	StatusTTL    time.Duration `yaml:"status_ttl"`
}

// TracingConfig selects where upstream call spans are exported.
type TracingConfig struct {
	Exporter    string `yaml:"exporter"`
	ServiceName string `yaml:"service_name"`
}

// Default returns the local-development configuration.
func Default() Server {
	return Server{
		Addr:     DefaultAddr,
		LogLevel: "info",
		OPA: OPAConfig{
			BaseURL:    DefaultOPABaseURL,
			PolicyPath: DefaultOPAPolicyPath,
		},
		OPAL:            OPALConfig{ServerURL: DefaultOPALServerURL},
		DataProviderURL: DefaultDataProviderURL,
		Health:          HealthConfig{PollInterval: DefaultPollInterval},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 1,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
			StatusKey:    "opagate:system_status",
			StatusTTL:    5 * time.Minute,
		},
		Tracing: TracingConfig{
			Exporter:    "none",
			ServiceName: "opagate",
		},
	}
}

// FromEnv builds the config from defaults, an optional YAML file named by
// OPAGATE_CONFIG_FILE, and environment variables, in that order of precedence.
func FromEnv() (Server, error) {
	cfg := Default()

	if path := os.Getenv("OPAGATE_CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Server{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Server) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Server) error {
	setString(&cfg.Addr, "OPAGATE_ADDR")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.OPA.BaseURL, "OPA_BASE_URL")
	setString(&cfg.OPA.PolicyPath, "OPA_POLICY_PATH")
	setString(&cfg.OPAL.ServerURL, "OPAL_SERVER_URL")
	setString(&cfg.DataProviderURL, "DATA_PROVIDER_API_URL")
	setString(&cfg.DataProviderURL, "DATA_PROVIDER_URL")
	setString(&cfg.Redis.URL, "REDIS_URL")
	setString(&cfg.Tracing.Exporter, "OTEL_TRACES_EXPORTER")
	setString(&cfg.Tracing.ServiceName, "OTEL_SERVICE_NAME")

	if v := os.Getenv("DEVELOPMENT_MODE"); v != "" {
		dev, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("DEVELOPMENT_MODE: %w", err)
		}
		cfg.DevelopmentMode = dev
	}

	if v := os.Getenv("HEALTH_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("HEALTH_POLL_INTERVAL: %w", err)
		}
		cfg.Health.PollInterval = d
	}
	if cfg.Health.PollInterval <= 0 {
		return fmt.Errorf("health poll interval must be positive, got %s", cfg.Health.PollInterval)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
