package tooldispatch

import (
	"github.com/reposync/reposync/internal/model"
)

// ClaudeIntegration writes a primary CLAUDE.md and, when enabled, a
// per-rule rules directory — the two locations Claude Code itself reads.
type ClaudeIntegration struct {
	// RulesDirectory enables the additional .claude/rules/ directory mode.
	RulesDirectory bool
}

func (ClaudeIntegration) Name() string { return "claude" }

func (c ClaudeIntegration) ConfigLocations() []ConfigLocation {
	locs := []ConfigLocation{
		{Path: "CLAUDE.md", Kind: ConfigMarkdown},
	}
	if c.RulesDirectory {
		locs = append(locs, ConfigLocation{Path: ".claude/rules/", Kind: ConfigMarkdown, IsDirectory: true})
	}
	return locs
}

func (c ClaudeIntegration) Sync(ctx Context, rules []model.Rule) ([]model.Projection, error) {
	var out []model.Projection
	for _, loc := range c.ConfigLocations() {
		projections, err := syncLocation(ctx, c.Name(), loc, rules)
		if err != nil {
			return out, err
		}
		out = append(out, projections...)
	}
	return out, nil
}
