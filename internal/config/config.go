// Package config provides CLI-level configuration for reposync, layered
// independently of the manifest the sync engine resolves (see
// internal/manifest and internal/engineconfig for that). Configuration here
// governs how the CLI itself behaves — output format, paths, locking — and
// is loaded from (highest to lowest priority):
// 1. Command-line flags
// 2. Environment variables (REPOSYNC_*)
// 3. Project config (.reposync/config.yaml in the working tree)
// 4. Home config (~/.reposync/config.yaml)
// 5. Defaults
package config

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all CLI-level reposync configuration.
type Config struct {
	// Output controls the default report format (table, json).
	Output string `yaml:"output" json:"output"`

	// LedgerPath is where the sync ledger is persisted, relative to the
	// working tree root unless absolute.
	// Default: .reposync/ledger.toml
	LedgerPath string `yaml:"ledger_path" json:"ledger_path"`

	// Verbose enables verbose logging during sync/check/fix.
	Verbose bool `yaml:"verbose" json:"verbose"`

	// Strict turns unknown-tool and unknown-preset warnings into errors.
	Strict bool `yaml:"strict" json:"strict"`

	// LockTimeoutSeconds bounds how long sync/fix wait to acquire the
	// ledger lock before giving up.
	LockTimeoutSeconds int `yaml:"lock_timeout_seconds" json:"lock_timeout_seconds"`

	// Manifest holds configurable locations for the four manifest layers.
	Manifest ManifestPathsConfig `yaml:"manifest" json:"manifest"`
}

// ManifestPathsConfig holds paths for the layered manifest (see
// internal/manifest.Paths). They are loaded and merged like every other
// field, but cmd/reposync builds its engine from manifest.DefaultPaths and
// does not read them.
type ManifestPathsConfig struct {
	// GlobalPath is the process-global manifest layer.
	// Default: ~/.reposync/global.toml
	GlobalPath string `yaml:"global_path" json:"global_path"`

	// OrgPath is the org-wide manifest layer.
	// Default: .reposync/org.toml
	OrgPath string `yaml:"org_path" json:"org_path"`

	// RepoPath is the repo manifest layer, checked into version control.
	// Default: .reposync/repo.toml
	RepoPath string `yaml:"repo_path" json:"repo_path"`

	// RepoLocalPath is the repo-local (gitignored) manifest layer.
	// Default: .reposync/repo.local.toml
	RepoLocalPath string `yaml:"repo_local_path" json:"repo_local_path"`
}

// Default config values (used in resolution and validation).
const (
	defaultOutput             = "table"
	defaultLedgerPath         = ".reposync/ledger.toml"
	defaultLockTimeoutSeconds = 30
)

// Default returns the default configuration.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Output:             defaultOutput,
		LedgerPath:         defaultLedgerPath,
		Verbose:            false,
		Strict:             false,
		LockTimeoutSeconds: defaultLockTimeoutSeconds,
		Manifest: ManifestPathsConfig{
			GlobalPath:    filepath.Join(homeDir, ".reposync", "global.toml"),
			OrgPath:       ".reposync/org.toml",
			RepoPath:      ".reposync/repo.toml",
			RepoLocalPath: ".reposync/repo.local.toml",
		},
	}
}

// Load loads configuration with proper precedence.
// Priority: flags > env > project > home > defaults
func Load(flagOverrides *Config) (*Config, error) {
	cfg := Default()

	homeConfig, _ := loadFromPath(homeConfigPath())
	if homeConfig != nil {
		cfg = merge(cfg, homeConfig)
	}

	projectConfig, _ := loadFromPath(projectConfigPath())
	if projectConfig != nil {
		cfg = merge(cfg, projectConfig)
	}

	cfg = applyEnv(cfg)

	if flagOverrides != nil {
		cfg = merge(cfg, flagOverrides)
	}

	return cfg, nil
}

// homeConfigPath returns the home config path.
func homeConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".reposync", "config.yaml")
}

// projectConfigPath returns the project config path.
func projectConfigPath() string {
	if override := strings.TrimSpace(os.Getenv("REPOSYNC_CONFIG")); override != "" {
		return override
	}
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return filepath.Join(cwd, ".reposync", "config.yaml")
}

// loadFromPath loads config from a YAML file.
func loadFromPath(path string) (*Config, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyEnv applies environment variable overrides.
func applyEnv(cfg *Config) *Config {
	if v := os.Getenv("REPOSYNC_OUTPUT"); v != "" {
		cfg.Output = v
	}
	if v := os.Getenv("REPOSYNC_LEDGER_PATH"); v != "" {
		cfg.LedgerPath = v
	}
	if v := os.Getenv("REPOSYNC_VERBOSE"); v == "true" || v == "1" {
		cfg.Verbose = true
	}
	if v := os.Getenv("REPOSYNC_STRICT"); v == "true" || v == "1" {
		cfg.Strict = true
	}
	if v := os.Getenv("REPOSYNC_MANIFEST_GLOBAL_PATH"); v != "" {
		cfg.Manifest.GlobalPath = v
	}
	if v := os.Getenv("REPOSYNC_MANIFEST_ORG_PATH"); v != "" {
		cfg.Manifest.OrgPath = v
	}
	if v := os.Getenv("REPOSYNC_MANIFEST_REPO_PATH"); v != "" {
		cfg.Manifest.RepoPath = v
	}
	if v := os.Getenv("REPOSYNC_MANIFEST_REPO_LOCAL_PATH"); v != "" {
		cfg.Manifest.RepoLocalPath = v
	}
	return cfg
}

// merge merges src into dst, with src values taking precedence.
func merge(dst, src *Config) *Config {
	if src.Output != "" {
		dst.Output = src.Output
	}
	if src.LedgerPath != "" {
		dst.LedgerPath = src.LedgerPath
	}
	if src.Verbose {
		dst.Verbose = true
	}
	if src.Strict {
		dst.Strict = true
	}
	if src.LockTimeoutSeconds != 0 {
		dst.LockTimeoutSeconds = src.LockTimeoutSeconds
	}
	if src.Manifest.GlobalPath != "" {
		dst.Manifest.GlobalPath = src.Manifest.GlobalPath
	}
	if src.Manifest.OrgPath != "" {
		dst.Manifest.OrgPath = src.Manifest.OrgPath
	}
	if src.Manifest.RepoPath != "" {
		dst.Manifest.RepoPath = src.Manifest.RepoPath
	}
	if src.Manifest.RepoLocalPath != "" {
		dst.Manifest.RepoLocalPath = src.Manifest.RepoLocalPath
	}
	return dst
}

// Source represents where a config value came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceHome    Source = "~/.reposync/config.yaml"
	SourceProject Source = ".reposync/config.yaml"
	SourceEnv     Source = "environment"
	SourceFlag    Source = "flag"
)

// getEnvString returns the value and whether the env var was set.
func getEnvString(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

// getEnvBool returns the boolean value and whether it was truthy.
func getEnvBool(key string) (bool, bool) {
	v := os.Getenv(key)
	if v == "true" || v == "1" {
		return true, true
	}
	return false, false
}

// resolved pairs a config value with the layer it was resolved from.
type resolved struct {
	Value  interface{} `json:"value"`
	Source Source      `json:"source"`
}

// resolveStringField resolves a string through the precedence chain.
func resolveStringField(home, project, env, flag, def string) resolved {
	result := resolved{Value: def, Source: SourceDefault}
	if home != "" {
		result = resolved{Value: home, Source: SourceHome}
	}
	if project != "" {
		result = resolved{Value: project, Source: SourceProject}
	}
	if env != "" {
		result = resolved{Value: env, Source: SourceEnv}
	}
	if flag != "" {
		result = resolved{Value: flag, Source: SourceFlag}
	}
	return result
}

// ResolvedConfig shows CLI config values with the layer each one came
// from.
type ResolvedConfig struct {
	Output     resolved `json:"output"`
	LedgerPath resolved `json:"ledger_path"`
	Verbose    resolved `json:"verbose"`
	Strict     resolved `json:"strict"`
}

// Resolve returns configuration with source tracking.
// Uses precedence chain: flags > env > project > home > defaults.
func Resolve(flagOutput, flagLedgerPath string, flagVerbose, flagStrict bool) *ResolvedConfig {
	homeConfig, _ := loadFromPath(homeConfigPath())
	projectConfig, _ := loadFromPath(projectConfigPath())

	var homeOutput, homeLedgerPath string
	var homeVerbose, homeStrict bool
	if homeConfig != nil {
		homeOutput = homeConfig.Output
		homeLedgerPath = homeConfig.LedgerPath
		homeVerbose = homeConfig.Verbose
		homeStrict = homeConfig.Strict
	}

	var projectOutput, projectLedgerPath string
	var projectVerbose, projectStrict bool
	if projectConfig != nil {
		projectOutput = projectConfig.Output
		projectLedgerPath = projectConfig.LedgerPath
		projectVerbose = projectConfig.Verbose
		projectStrict = projectConfig.Strict
	}

	envOutput, _ := getEnvString("REPOSYNC_OUTPUT")
	envLedgerPath, _ := getEnvString("REPOSYNC_LEDGER_PATH")
	envVerbose, envVerboseSet := getEnvBool("REPOSYNC_VERBOSE")
	envStrict, envStrictSet := getEnvBool("REPOSYNC_STRICT")

	rc := &ResolvedConfig{
		Output:     resolveStringField(homeOutput, projectOutput, envOutput, flagOutput, defaultOutput),
		LedgerPath: resolveStringField(homeLedgerPath, projectLedgerPath, envLedgerPath, flagLedgerPath, defaultLedgerPath),
		Verbose:    resolved{Value: false, Source: SourceDefault},
		Strict:     resolved{Value: false, Source: SourceDefault},
	}

	if homeVerbose {
		rc.Verbose = resolved{Value: true, Source: SourceHome}
	}
	if projectVerbose {
		rc.Verbose = resolved{Value: true, Source: SourceProject}
	}
	if envVerboseSet && envVerbose {
		rc.Verbose = resolved{Value: true, Source: SourceEnv}
	}
	if flagVerbose {
		rc.Verbose = resolved{Value: true, Source: SourceFlag}
	}

	if homeStrict {
		rc.Strict = resolved{Value: true, Source: SourceHome}
	}
	if projectStrict {
		rc.Strict = resolved{Value: true, Source: SourceProject}
	}
	if envStrictSet && envStrict {
		rc.Strict = resolved{Value: true, Source: SourceEnv}
	}
	if flagStrict {
		rc.Strict = resolved{Value: true, Source: SourceFlag}
	}

	return rc
}
