// Package manifest loads and merges the layered project manifest: up to
// four config.toml-shaped files merged with well-defined precedence into
// a single ResolvedConfig. This mirrors the teacher's internal/config
// Load/merge/Resolve pattern, generalized from a single flat struct to
// the sync engine's layered, set-typed Manifest.
package manifest

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"

	"github.com/reposync/reposync/internal/apperrors"
	"github.com/reposync/reposync/internal/model"
)

// MaxLayerSize caps an individual manifest layer file.
const MaxLayerSize = 1 * 1024 * 1024

// Layer names a manifest file for error reporting.
type Layer string

const (
	LayerProcessGlobal Layer = "process-global"
	LayerOrg           Layer = "org"
	LayerRepo          Layer = "repo"
	LayerRepoLocal     Layer = "repo-local-overrides"
)

// Paths names the four candidate layer files. Org and ProcessGlobal may be
// empty strings, meaning "not configured" rather than "missing file".
type Paths struct {
	ProcessGlobal string
	Org           string
	Repo          string
	RepoLocal     string
}

// DefaultPaths builds the standard layer paths for a repo rooted at
// configRoot, with an optional organization identifier for the org layer.
func DefaultPaths(configRoot, orgID string) Paths {
	p := Paths{
		ProcessGlobal: filepath.Join(processGlobalConfigDir(), "config.toml"),
		Repo:          filepath.Join(configRoot, "config.toml"),
		RepoLocal:     filepath.Join(configRoot, "config.local.toml"),
	}
	if orgID != "" {
		p.Org = filepath.Join(processGlobalConfigDir(), "orgs", orgID, "config.toml")
	}
	return p
}

// processGlobalConfigDir returns $XDG_CONFIG_HOME/reposync, or the
// platform equivalent under the user's home directory.
func processGlobalConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "reposync")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "reposync")
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "reposync")
	case "windows":
		return filepath.Join(home, "AppData", "Roaming", "reposync")
	default:
		return filepath.Join(home, ".config", "reposync")
	}
}

// Resolve loads all four layers per Paths and merges them into a
// ResolvedConfig. The repo layer is required; its absence is
// ConfigNotFoundError. All other layers are optional and silently skipped
// if missing.
func Resolve(paths Paths) (*model.ResolvedConfig, error) {
	processGlobal, err := loadOptional(paths.ProcessGlobal, LayerProcessGlobal)
	if err != nil {
		return nil, err
	}
	org, err := loadOptional(paths.Org, LayerOrg)
	if err != nil {
		return nil, err
	}

	if _, statErr := os.Stat(paths.Repo); statErr != nil {
		return nil, &apperrors.ConfigNotFoundError{Path: paths.Repo}
	}
	repo, err := loadLayer(paths.Repo, LayerRepo)
	if err != nil {
		return nil, err
	}

	repoLocal, err := loadOptional(paths.RepoLocal, LayerRepoLocal)
	if err != nil {
		return nil, err
	}

	return merge(processGlobal, org, repo, repoLocal), nil
}

// loadOptional loads a layer, returning (nil, nil) if path is empty or the
// file does not exist.
func loadOptional(path string, layer Layer) (*model.Manifest, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}
	return loadLayer(path, layer)
}

// loadLayer reads and parses a single manifest layer. A zero-byte file is
// treated as an empty manifest, not a parse error.
func loadLayer(path string, layer Layer) (*model.Manifest, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &apperrors.ConfigNotFoundError{Path: path}
	}
	if info.Size() > MaxLayerSize {
		return nil, apperrors.ErrConfigTooLarge
	}
	if info.Size() == 0 {
		return &model.Manifest{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &apperrors.ConfigParseError{Layer: string(layer), Message: err.Error()}
	}

	var m model.Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, &apperrors.ConfigParseError{Layer: string(layer), Message: err.Error()}
	}
	return &m, nil
}

// merge combines layers lowest-to-highest precedence. Scalar fields:
// higher precedence wins. Ordered-set fields (tools, presets): union,
// with the higher-precedence layer's position winning ties. Map-of-list
// fields (hooks): per-key union with higher-precedence commands appended
// after lower-precedence ones.
func merge(layers ...*model.Manifest) *model.ResolvedConfig {
	rc := &model.ResolvedConfig{
		Mode:  model.ModeWorktrees,
		Hooks: map[string][]string{},
	}

	var toolOrder, presetOrder []string
	var rules []model.Rule
	ruleSeen := map[string]int{}

	for _, m := range layers {
		if m == nil {
			continue
		}
		if m.Mode != "" {
			rc.Mode = m.Mode
		}
		toolOrder = unionWithPrecedence(toolOrder, m.Tools)
		presetOrder = unionWithPrecedence(presetOrder, m.Presets)
		for _, rule := range m.Rules {
			if idx, ok := ruleSeen[rule.ID]; ok {
				rules[idx] = rule
				continue
			}
			ruleSeen[rule.ID] = len(rules)
			rules = append(rules, rule)
		}
		for event, cmds := range m.Hooks {
			rc.Hooks[event] = append(rc.Hooks[event], cmds...)
		}
	}

	rc.Tools = toolOrder
	rc.Presets = presetOrder
	rc.Rules = rules
	return rc
}

// unionWithPrecedence merges next into existing: identifiers already
// present in existing but also declared in next are moved to the position
// next assigns them (higher-precedence layers win position ties);
// identifiers only present in existing keep their place; new identifiers
// are appended in next's order.
func unionWithPrecedence(existing, next []string) []string {
	if len(next) == 0 {
		return existing
	}
	inNext := make(map[string]bool, len(next))
	for _, id := range next {
		inNext[id] = true
	}

	var kept []string
	for _, id := range existing {
		if !inNext[id] {
			kept = append(kept, id)
		}
	}
	return append(kept, next...)
}
