// Package engineconfig resolves engine-level tuning values: default lock
// timeout, max file size, and advisory-lock retry ceiling. This is distinct
// from the project manifest (internal/manifest) — it tunes the engine
// itself, not the set of tools/presets/rules a project declares.
//
// Resolution order, lowest to highest precedence: built-in defaults, a
// home-level YAML file, environment variables, explicit overrides passed
// by the caller (e.g. CLI flags).
package engineconfig

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Source names where a resolved value came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceHome    Source = "~/.reposyncrc/config.yaml"
	SourceEnv     Source = "environment"
	SourceFlag    Source = "flag"
)

// Value pairs a resolved setting with the layer it came from.
type Value struct {
	Value  any    `json:"value"`
	Source Source `json:"source"`
}

const (
	defaultLockTimeout  = 30 * time.Second
	defaultMaxFileSize  = 16 * 1024 * 1024
	defaultRetryCeiling = 5
)

// fileConfig is the shape of ~/.reposyncrc/config.yaml.
type fileConfig struct {
	LockTimeoutSeconds int `yaml:"lock_timeout_seconds"`
	MaxFileSizeBytes   int `yaml:"max_file_size_bytes"`
	RetryCeiling       int `yaml:"retry_ceiling"`
}

// Overrides carries explicit caller-supplied values, e.g. CLI flags. Zero
// values mean "not set".
type Overrides struct {
	LockTimeoutSeconds int
	MaxFileSizeBytes   int
	RetryCeiling       int
}

// Resolved is the fully resolved engine configuration, with source
// tracking for every field.
type Resolved struct {
	LockTimeout  Value
	MaxFileSize  Value
	RetryCeiling Value
}

// LockTimeoutDuration returns the resolved lock timeout as a duration.
func (r *Resolved) LockTimeoutDuration() time.Duration {
	seconds, _ := r.LockTimeout.Value.(int)
	return time.Duration(seconds) * time.Second
}

// Resolve computes the engine configuration from defaults, the home
// config file, the environment, and overrides, in that precedence order.
func Resolve(overrides Overrides) *Resolved {
	home := loadHomeConfig(homeConfigPath())

	r := &Resolved{
		LockTimeout:  Value{Value: int(defaultLockTimeout / time.Second), Source: SourceDefault},
		MaxFileSize:  Value{Value: defaultMaxFileSize, Source: SourceDefault},
		RetryCeiling: Value{Value: defaultRetryCeiling, Source: SourceDefault},
	}

	if home != nil {
		if home.LockTimeoutSeconds != 0 {
			r.LockTimeout = Value{Value: home.LockTimeoutSeconds, Source: SourceHome}
		}
		if home.MaxFileSizeBytes != 0 {
			r.MaxFileSize = Value{Value: home.MaxFileSizeBytes, Source: SourceHome}
		}
		if home.RetryCeiling != 0 {
			r.RetryCeiling = Value{Value: home.RetryCeiling, Source: SourceHome}
		}
	}

	if v, ok := envInt("REPOSYNC_LOCK_TIMEOUT_SECONDS"); ok {
		r.LockTimeout = Value{Value: v, Source: SourceEnv}
	}
	if v, ok := envInt("REPOSYNC_MAX_FILE_SIZE_BYTES"); ok {
		r.MaxFileSize = Value{Value: v, Source: SourceEnv}
	}
	if v, ok := envInt("REPOSYNC_RETRY_CEILING"); ok {
		r.RetryCeiling = Value{Value: v, Source: SourceEnv}
	}

	if overrides.LockTimeoutSeconds != 0 {
		r.LockTimeout = Value{Value: overrides.LockTimeoutSeconds, Source: SourceFlag}
	}
	if overrides.MaxFileSizeBytes != 0 {
		r.MaxFileSize = Value{Value: overrides.MaxFileSizeBytes, Source: SourceFlag}
	}
	if overrides.RetryCeiling != 0 {
		r.RetryCeiling = Value{Value: overrides.RetryCeiling, Source: SourceFlag}
	}

	return r
}

func homeConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".reposyncrc", "config.yaml")
}

func loadHomeConfig(path string) *fileConfig {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil
	}
	return &cfg
}

func envInt(key string) (int, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
