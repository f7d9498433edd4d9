package tooldispatch

import (
	"path/filepath"

	"github.com/reposync/reposync/internal/model"
	"github.com/reposync/reposync/internal/projector"
)

// VSCodeIntegration writes per-rule managed blocks into .vscode/settings.json
// under the reserved JSON key, plus a structured settings key pointing at
// the rules source — the "structured JSON settings keys" case the schema-
// driven generic driver cannot express on its own.
type VSCodeIntegration struct {
	// InstructionsKeyPath is the settings.json key set to point at the
	// primary instructions file. Empty disables it.
	InstructionsKeyPath string
}

func (VSCodeIntegration) Name() string { return "vscode" }

func (VSCodeIntegration) ConfigLocations() []ConfigLocation {
	return []ConfigLocation{
		{Path: ".vscode/settings.json", Kind: ConfigJSON},
	}
}

func (v VSCodeIntegration) Sync(ctx Context, rules []model.Rule) ([]model.Projection, error) {
	path := ctx.resolve(filepath.Join(".vscode", "settings.json"))

	out, err := syncRuleBlocks(v.Name(), path, model.FormatJSON, rules)
	if err != nil {
		return out, err
	}

	if v.InstructionsKeyPath != "" {
		p, err := projector.WriteJSONKey(v.Name(), path, v.InstructionsKeyPath, "CLAUDE.md")
		if err != nil {
			return out, err
		}
		out = append(out, relativize(ctx.WorkingTreeRoot, p))
	}

	return out, nil
}
