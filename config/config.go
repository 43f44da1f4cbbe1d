// Package config loads harness configuration from YAML files with the
// override precedence the harness guarantees: defaults from application.yaml,
// then application-<env>.yaml, then VERAX_-prefixed environment variables,
// then explicit overrides (normally -var flags), each layer winning over the
// previous one.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultEnvironment is used when no environment is selected.
	DefaultEnvironment = "qa"

	envVarPrefix = "VERAX_"
	// Environment variable names map to config paths with a double
	// underscore between path segments, since single underscores occur
	// inside key names: VERAX_API__BASE_URL => api.base_url.
	envVarPathSeparator = "__"
)

// Duration is a time.Duration that unmarshals from YAML strings like "30s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Value() time.Duration { return time.Duration(d) }

// Config is the full harness configuration.
type Config struct {
	Environment string       `yaml:"environment"`
	API         APIConfig    `yaml:"api"`
	SQL         SQLConfig    `yaml:"sql"`
	DocDB       DocDBConfig  `yaml:"docdb"`
	Data        DataConfig   `yaml:"data"`
	Report      ReportConfig `yaml:"report"`
	Log         LogConfig    `yaml:"log"`
}

// APIConfig configures the HTTP client for the system under test.
type APIConfig struct {
	BaseURL        string   `yaml:"base_url"`
	RequestTimeout Duration `yaml:"request_timeout"`
	ConnectTimeout Duration `yaml:"connect_timeout"`
	RetryCount     int      `yaml:"retry_count"`
	RetryBackoff   Duration `yaml:"retry_backoff"`
	LogTraffic     bool     `yaml:"log_traffic"`
	AuthToken      string   `yaml:"auth_token"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
}

// SQLConfig configures the relational database client. An empty DSN means
// the database is not available in this environment.
type SQLConfig struct {
	Driver          string   `yaml:"driver"`
	DSN             string   `yaml:"dsn"`
	MaxOpenConns    int      `yaml:"max_open_conns"`
	MaxIdleConns    int      `yaml:"max_idle_conns"`
	ConnMaxLifetime Duration `yaml:"conn_max_lifetime"`
}

func (c SQLConfig) Configured() bool { return c.DSN != "" }

// DocDBConfig configures the document database client. An empty URI means
// the database is not available in this environment.
type DocDBConfig struct {
	URI          string   `yaml:"uri"`
	Database     string   `yaml:"database"`
	Collection   string   `yaml:"collection"`
	QueryTimeout Duration `yaml:"query_timeout"`
}

func (c DocDBConfig) Configured() bool { return c.URI != "" }

// DataConfig locates test data files for the data-driven suites.
type DataConfig struct {
	Dir string `yaml:"dir"`
}

// ReportConfig configures report file output.
type ReportConfig struct {
	OutputDir string `yaml:"output_dir"`
}

// LogConfig configures the run-level logger.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from dir for the given environment, applying the
// explicit overrides last. Overrides use dotted paths: "api.base_url". A
// missing defaults file or environment file is not an error; a malformed one
// is.
func Load(dir, env string, overrides map[string]string) (*Config, error) {
	if env == "" {
		env = DefaultEnvironment
	}

	// Defaults form the bottom layer of the merge, so an explicit zero in
	// any later layer (for example retry_count: 0) is preserved.
	merged := defaultSettings()
	if err := mergeFile(merged, filepath.Join(dir, "application.yaml")); err != nil {
		return nil, err
	}
	if err := mergeFile(merged, filepath.Join(dir, fmt.Sprintf("application-%s.yaml", env))); err != nil {
		return nil, err
	}
	for path, value := range environOverrides() {
		setPath(merged, path, value)
	}
	for path, value := range overrides {
		setPath(merged, path, value)
	}

	cfg := &Config{}
	// Round-trip through YAML so string overrides get the typed parsing
	// (ints, bools, durations) of the struct fields.
	raw, err := yaml.Marshal(merged)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	cfg.Environment = env
	return cfg, nil
}

func defaultSettings() map[string]interface{} {
	return map[string]interface{}{
		"api": map[string]interface{}{
			"request_timeout": "30s",
			"connect_timeout": "10s",
			"retry_count":     3,
			"retry_backoff":   "200ms",
		},
		"sql": map[string]interface{}{
			"driver":            "sqlite",
			"max_open_conns":    10,
			"max_idle_conns":    2,
			"conn_max_lifetime": "30m",
		},
		"docdb": map[string]interface{}{
			"query_timeout": "1m",
		},
		"data":   map[string]interface{}{"dir": "testdata"},
		"report": map[string]interface{}{"output_dir": "verax-results"},
		"log":    map[string]interface{}{"level": "info"},
	}
}

func mergeFile(dst map[string]interface{}, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	layer := map[string]interface{}{}
	if err := yaml.Unmarshal(raw, &layer); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	deepMerge(dst, layer)
	return nil
}

func deepMerge(dst, src map[string]interface{}) {
	for k, v := range src {
		if srcMap, ok := v.(map[string]interface{}); ok {
			if dstMap, ok := dst[k].(map[string]interface{}); ok {
				deepMerge(dstMap, srcMap)
				continue
			}
		}
		dst[k] = v
	}
}

func setPath(dst map[string]interface{}, path, value string) {
	segments := strings.Split(path, ".")
	for _, seg := range segments[:len(segments)-1] {
		next, ok := dst[seg].(map[string]interface{})
		if !ok {
			next = map[string]interface{}{}
			dst[seg] = next
		}
		dst = next
	}
	dst[segments[len(segments)-1]] = scalar(value)
}

// scalar reinterprets an override string as a YAML scalar so that "25" and
// "true" survive the round trip into int and bool fields.
func scalar(value string) interface{} {
	var v interface{}
	if err := yaml.Unmarshal([]byte(value), &v); err != nil {
		return value
	}
	switch v.(type) {
	case bool, int, int64, float64, string, nil:
		return v
	default:
		return value
	}
}

func environOverrides() map[string]string {
	out := map[string]string{}
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, envVarPrefix) {
			continue
		}
		path := strings.TrimPrefix(name, envVarPrefix)
		segments := strings.Split(path, envVarPathSeparator)
		for i, seg := range segments {
			segments[i] = strings.ToLower(seg)
		}
		out[strings.Join(segments, ".")] = value
	}
	return out
}
