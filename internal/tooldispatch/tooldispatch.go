// Package tooldispatch defines the ToolIntegration contract and the
// generic, schema-driven driver that satisfies it for most tools. A
// handful of tools (claude, vscode) need bespoke logic and implement the
// interface directly in claude.go / vscode.go, sharing the same
// projection-producing helpers as the generic driver.
package tooldispatch

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/reposync/reposync/internal/fsutil"
	"github.com/reposync/reposync/internal/model"
	"github.com/reposync/reposync/internal/projector"
)

// ConfigType names the syntax of a tool's config artifact.
type ConfigType string

const (
	ConfigText     ConfigType = "Text"
	ConfigJSON     ConfigType = "Json"
	ConfigMarkdown ConfigType = "Markdown"
	ConfigYAML     ConfigType = "Yaml"
	ConfigTOML     ConfigType = "Toml"
)

func (c ConfigType) format() model.Format {
	switch c {
	case ConfigJSON:
		return model.FormatJSON
	case ConfigYAML:
		return model.FormatYAML
	case ConfigTOML:
		return model.FormatTOML
	case ConfigMarkdown:
		return model.FormatMarkdown
	default:
		return model.FormatText
	}
}

// ConfigLocation is one file or directory a ToolIntegration writes.
type ConfigLocation struct {
	Path        string
	Kind        ConfigType
	IsDirectory bool
}

// Logger is the injected structured-logging interface every package that
// can recover from an error accepts, mirroring the teacher's verbosef
// callback pattern (see rpi.CreateWorktree's verbosef func(string, ...any))
// while taking slog-shaped message+key/value args so NewDefaultLogger can
// sit directly on top of log/slog.
type Logger interface {
	Warnf(msg string, args ...any)
	Infof(msg string, args ...any)
}

// Context carries the per-sync state an integration needs: the root
// writes are resolved against, and where warnings go. Logger is never nil
// in practice — syncengine.Engine.logger() substitutes NoopLogger when
// none was configured — but callers constructing a Context directly
// should do the same.
type Context struct {
	WorkingTreeRoot string
	Logger          Logger
}

func (c Context) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.WorkingTreeRoot, path)
}

func (c Context) logger() Logger {
	if c.Logger == nil {
		return NoopLogger
	}
	return c.Logger
}

// relativize rewrites a projection's File to a normalized path relative to
// root, the form the ledger persists (model.Projection.File: "relative
// normalized path"). A File outside root is left absolute — that case is
// caught separately by the ledger's ProjectionEscapesRoot guard.
func relativize(root string, p model.Projection) model.Projection {
	rel, err := filepath.Rel(root, p.File)
	if err != nil || strings.HasPrefix(rel, "..") {
		return p
	}
	p.File = fsutil.NewNormalizedPath(rel).String()
	return p
}

func relativizeAll(root string, projections []model.Projection) []model.Projection {
	for i := range projections {
		projections[i] = relativize(root, projections[i])
	}
	return projections
}

// ToolIntegration is implemented by every tool the sync engine can target.
type ToolIntegration interface {
	Name() string
	ConfigLocations() []ConfigLocation
	Sync(ctx Context, rules []model.Rule) ([]model.Projection, error)
}

// ToolDefinition is the TOML-loadable schema for the generic driver.
type ToolDefinition struct {
	Meta struct {
		Name        string `toml:"name"`
		Slug        string `toml:"slug"`
		Description string `toml:"description"`
	} `toml:"meta"`
	Integration struct {
		ConfigPath      string   `toml:"config_path"`
		ConfigType      string   `toml:"config_type"`
		AdditionalPaths []string `toml:"additional_paths"`
	} `toml:"integration"`
	Capabilities struct {
		SupportsRulesDirectory bool `toml:"supports_rules_directory"`
	} `toml:"capabilities"`
	SchemaKeys struct {
		InstructionKey string `toml:"instruction_key,omitempty"`
	} `toml:"schema_keys"`
}

// GenericIntegration drives any tool fully described by a ToolDefinition:
// it needs no tool-specific code beyond the schema itself.
type GenericIntegration struct {
	Def ToolDefinition
}

func (g GenericIntegration) Name() string {
	return g.Def.Meta.Slug
}

func (g GenericIntegration) ConfigLocations() []ConfigLocation {
	locs := []ConfigLocation{primaryLocation(g.Def)}
	for _, p := range g.Def.Integration.AdditionalPaths {
		locs = append(locs, inferLocation(p))
	}
	return locs
}

func primaryLocation(def ToolDefinition) ConfigLocation {
	path := def.Integration.ConfigPath
	return ConfigLocation{
		Path:        path,
		Kind:        ConfigType(def.Integration.ConfigType),
		IsDirectory: strings.HasSuffix(path, "/"),
	}
}

// inferLocation classifies an additional path independently of the
// primary's type: trailing "/" is directory-of-rule-files mode, otherwise
// the extension picks the format (anything unrecognized is Text).
func inferLocation(path string) ConfigLocation {
	if strings.HasSuffix(path, "/") {
		return ConfigLocation{Path: path, Kind: ConfigMarkdown, IsDirectory: true}
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ConfigLocation{Path: path, Kind: ConfigJSON}
	case ".md":
		return ConfigLocation{Path: path, Kind: ConfigMarkdown}
	case ".yml", ".yaml":
		return ConfigLocation{Path: path, Kind: ConfigYAML}
	case ".toml":
		return ConfigLocation{Path: path, Kind: ConfigTOML}
	default:
		return ConfigLocation{Path: path, Kind: ConfigText}
	}
}

func (g GenericIntegration) Sync(ctx Context, rules []model.Rule) ([]model.Projection, error) {
	var out []model.Projection
	for _, loc := range g.ConfigLocations() {
		projections, err := syncLocation(ctx, g.Name(), loc, rules)
		if err != nil {
			return out, err
		}
		out = append(out, projections...)
	}
	return out, nil
}

// syncLocation applies the directory-mode or single-file-with-blocks
// strategy to one location, shared by the generic driver and every
// bespoke integration.
func syncLocation(ctx Context, tool string, loc ConfigLocation, rules []model.Rule) ([]model.Projection, error) {
	fullPath := ctx.resolve(loc.Path)
	var out []model.Projection
	var err error
	if loc.IsDirectory {
		out, err = syncRuleDirectory(ctx, tool, fullPath, rules)
	} else {
		out, err = syncRuleBlocks(tool, fullPath, loc.Kind.format(), rules)
	}
	return relativizeAll(ctx.WorkingTreeRoot, out), err
}

// syncRuleDirectory writes one file per rule (<rule.id>.md, content in a
// managed block keyed by the rule's uuid) and deletes files for rules no
// longer present. A stale file that can't be removed is logged and left in
// place rather than failing the whole sync.
func syncRuleDirectory(ctx Context, tool, dir string, rules []model.Rule) ([]model.Projection, error) {
	active := make(map[string]bool, len(rules))
	var out []model.Projection

	for _, rule := range rules {
		active[rule.ID] = true
		path := filepath.Join(dir, rule.ID+".md")
		p, err := projector.WriteTextBlock(tool, path, rule.UUID, rule.Content, model.FormatMarkdown)
		if err != nil {
			return out, err
		}
		out = append(out, p)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return out, nil // directory doesn't exist yet: nothing stale to remove
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		ruleID := strings.TrimSuffix(entry.Name(), ".md")
		if !active[ruleID] {
			stale := filepath.Join(dir, entry.Name())
			if err := os.Remove(stale); err != nil {
				ctx.logger().Warnf("stale rule file removal failed", "tool", tool, "file", stale, "cause", err)
			}
		}
	}
	return out, nil
}

// syncRuleBlocks upserts one managed block per rule into a single target
// file, keyed by the rule's uuid so re-syncs don't duplicate blocks.
func syncRuleBlocks(tool, path string, format model.Format, rules []model.Rule) ([]model.Projection, error) {
	var out []model.Projection
	for _, rule := range rules {
		p, err := projector.WriteTextBlock(tool, path, rule.UUID, rule.Content, format)
		if err != nil {
			return out, err
		}
		out = append(out, p)
	}
	return out, nil
}
