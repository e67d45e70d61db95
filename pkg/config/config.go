package config

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// PasswordEnvVar is consulted when the graph password is absent from the file
const PasswordEnvVar = "GRAPH_PASSWORD"

// Config is the full supervisor configuration, loaded once at startup
type Config struct {
	Graph      GraphConfig      `yaml:"graph"`
	Dataset    DatasetConfig    `yaml:"dataset"`
	Supervisor SupervisorConfig `yaml:"supervisor"`
	Log        LogConfig        `yaml:"log"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	History    HistoryConfig    `yaml:"history"`
}

// GraphConfig holds the graph database connection parameters
type GraphConfig struct {
	Host     string `yaml:"host"`
	BoltPort int    `yaml:"bolt_port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	TLS      bool   `yaml:"tls"`
}

// BoltURI returns the bolt connection URI for the configured server
func (g GraphConfig) BoltURI() string {
	scheme := "bolt"
	if g.TLS {
		scheme = "bolt+s"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, g.Host, g.BoltPort)
}

// DatasetConfig locates the snapshot tree on shared storage
type DatasetConfig struct {
	BasePath string `yaml:"base_path"`
}

// SupervisorConfig tunes the discovery, worker, and retention behavior
type SupervisorConfig struct {
	Workers                   int     `yaml:"workers"`
	ScanIntervalSeconds       int     `yaml:"scan_interval"`
	MaxDatabases              int     `yaml:"max_databases"`
	HeapThresholdPercent      float64 `yaml:"heap_threshold_percent"`
	PagecacheThresholdPercent float64 `yaml:"pagecache_threshold_percent"`
	HealthCheckRetryDelay     int     `yaml:"health_check_retry_delay"`
	MaxRetries                int     `yaml:"max_retries"`
	RetryBackoffBase          float64 `yaml:"retry_backoff_base"`
	ShutdownTimeoutSeconds    int     `yaml:"shutdown_timeout"`
	RetentionKeep             int     `yaml:"retention_keep"`
	StatusFile                string  `yaml:"status_file"`
}

// LogConfig selects log level and output format
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// MetricsConfig enables the optional Prometheus listener
type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"` // empty disables the listener
}

// HistoryConfig locates the deployment history database
type HistoryConfig struct {
	Path string `yaml:"path"` // empty disables history recording
}

// Default returns a Config with all defaults applied
func Default() Config {
	return Config{
		Graph: GraphConfig{
			Host:     "localhost",
			BoltPort: 7687,
			User:     "neo4j",
		},
		Supervisor: SupervisorConfig{
			Workers:                   1,
			ScanIntervalSeconds:       30,
			MaxDatabases:              50,
			HeapThresholdPercent:      85,
			PagecacheThresholdPercent: 95,
			HealthCheckRetryDelay:     60,
			MaxRetries:                3,
			RetryBackoffBase:          2,
			ShutdownTimeoutSeconds:    300,
			RetentionKeep:             2,
			StatusFile:                "switchyard_status.json",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads, substitutes environment variables into, parses, and validates
// the configuration file at path
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	substituted, err := substituteEnvVars(string(raw))
	if err != nil {
		return nil, err
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader([]byte(substituted)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Password may be injected at runtime instead of stored in the file
	if cfg.Graph.Password == "" {
		cfg.Graph.Password = os.Getenv(PasswordEnvVar)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:default}
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// substituteEnvVars expands ${VAR} (required) and ${VAR:default} (optional)
// references in the raw config text
func substituteEnvVars(content string) (string, error) {
	var missing []string
	out := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		expr := match[2 : len(match)-1]
		if name, def, ok := strings.Cut(expr, ":"); ok {
			if v, set := os.LookupEnv(name); set {
				return v
			}
			return def
		}
		v, set := os.LookupEnv(expr)
		if !set {
			missing = append(missing, expr)
			return match
		}
		return v
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("required environment variable %q is not set", missing[0])
	}
	return out, nil
}

// Validate checks every option against its allowed range
func (c *Config) Validate() error {
	if c.Graph.Host == "" {
		return fmt.Errorf("graph.host is required")
	}
	if c.Graph.BoltPort < 1 || c.Graph.BoltPort > 65535 {
		return fmt.Errorf("graph.bolt_port must be in 1..65535, got %d", c.Graph.BoltPort)
	}
	if c.Graph.User == "" {
		return fmt.Errorf("graph.user is required")
	}
	if c.Graph.Password == "" {
		return fmt.Errorf("graph password not found: set graph.password or the %s environment variable", PasswordEnvVar)
	}
	if c.Dataset.BasePath == "" {
		return fmt.Errorf("dataset.base_path is required")
	}

	s := c.Supervisor
	if s.Workers < 1 {
		return fmt.Errorf("supervisor.workers must be >= 1, got %d", s.Workers)
	}
	if s.ScanIntervalSeconds < 1 {
		return fmt.Errorf("supervisor.scan_interval must be >= 1, got %d", s.ScanIntervalSeconds)
	}
	if s.MaxDatabases < 1 {
		return fmt.Errorf("supervisor.max_databases must be >= 1, got %d", s.MaxDatabases)
	}
	if s.HeapThresholdPercent <= 0 || s.HeapThresholdPercent > 100 {
		return fmt.Errorf("supervisor.heap_threshold_percent must be > 0 and <= 100, got %v", s.HeapThresholdPercent)
	}
	if s.PagecacheThresholdPercent <= 0 || s.PagecacheThresholdPercent > 100 {
		return fmt.Errorf("supervisor.pagecache_threshold_percent must be > 0 and <= 100, got %v", s.PagecacheThresholdPercent)
	}
	if s.HealthCheckRetryDelay < 1 {
		return fmt.Errorf("supervisor.health_check_retry_delay must be >= 1, got %d", s.HealthCheckRetryDelay)
	}
	if s.MaxRetries < 0 {
		return fmt.Errorf("supervisor.max_retries must be >= 0, got %d", s.MaxRetries)
	}
	if s.RetryBackoffBase < 1 {
		return fmt.Errorf("supervisor.retry_backoff_base must be >= 1, got %v", s.RetryBackoffBase)
	}
	if s.ShutdownTimeoutSeconds < 1 {
		return fmt.Errorf("supervisor.shutdown_timeout must be >= 1, got %d", s.ShutdownTimeoutSeconds)
	}
	if s.RetentionKeep < 1 {
		return fmt.Errorf("supervisor.retention_keep must be >= 1, got %d", s.RetentionKeep)
	}
	if s.StatusFile == "" {
		return fmt.Errorf("supervisor.status_file is required")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error; got %q", c.Log.Level)
	}

	return nil
}
