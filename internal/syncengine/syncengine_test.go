package syncengine

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/reposync/reposync/internal/manifest"
	"github.com/reposync/reposync/internal/model"
	"github.com/reposync/reposync/internal/preset"
	"github.com/reposync/reposync/internal/tooldispatch"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// fakeClock returns a fixed instant, so ledger timestamps are reproducible.
func fakeClock() time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
}

// failingIntegration is a ToolIntegration whose Sync always errors, used to
// exercise sync's per-tool failure isolation.
type failingIntegration struct{ name string }

func (f failingIntegration) Name() string { return f.name }
func (f failingIntegration) ConfigLocations() []tooldispatch.ConfigLocation {
	return []tooldispatch.ConfigLocation{{Path: f.name + ".cfg", Kind: tooldispatch.ConfigText}}
}
func (f failingIntegration) Sync(ctx tooldispatch.Context, rules []model.Rule) ([]model.Projection, error) {
	return nil, fmt.Errorf("simulated failure for %s", f.name)
}

// fakePreset is a preset.Provider whose Apply always reports a fixed
// status, used to exercise syncengine's preset-registry wiring without a
// real environment probe.
type fakePreset struct {
	id     string
	status preset.ApplyStatus
	err    error
}

func (f fakePreset) ID() string { return f.id }
func (f fakePreset) Check(ctx preset.Context) (preset.CheckResult, error) {
	return preset.CheckResult{Status: preset.Detected}, nil
}
func (f fakePreset) Apply(ctx preset.Context) (preset.ApplyResult, error) {
	if f.err != nil {
		return preset.ApplyResult{}, f.err
	}
	return preset.ApplyResult{Status: f.status, Messages: []string{"applied " + f.id}}, nil
}

// newTestEngine builds an Engine rooted at a fresh temp directory with a
// repo manifest layer declaring the given tools and rules, wired against
// tooldispatch.Builtins() plus any extra integrations supplied.
func newTestEngine(t *testing.T, toolsTOML, rulesTOML string, extra map[string]tooldispatch.ToolIntegration) (*Engine, string) {
	t.Helper()
	root := t.TempDir()
	configRoot := filepath.Join(root, ".repository")
	repoTOML := fmt.Sprintf("%s\n%s\n", toolsTOML, rulesTOML)
	writeFile(t, filepath.Join(configRoot, "config.toml"), repoTOML)

	integrations := tooldispatch.Builtins()
	for name, integ := range extra {
		integrations[name] = integ
	}

	e := &Engine{
		ManifestPaths:   manifest.Paths{Repo: filepath.Join(configRoot, "config.toml")},
		LedgerPath:      filepath.Join(configRoot, "ledger.toml"),
		WorkingTreeRoot: root,
		Integrations:    integrations,
		Now:             fakeClock,
	}
	return e, root
}
