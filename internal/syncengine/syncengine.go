// Package syncengine implements the three top-level operations — check,
// sync, fix — that resolve a layered manifest, project it into every
// active tool's config, and record the result in the ledger for later
// drift detection. It is the composition root wiring internal/manifest,
// internal/ledger, internal/tooldispatch, and internal/projector
// together, the way the teacher's cmd/ao wires its
// subsystems behind one orchestrating entry point per subcommand.
package syncengine

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/reposync/reposync/internal/apperrors"
	"github.com/reposync/reposync/internal/ledger"
	"github.com/reposync/reposync/internal/manifest"
	"github.com/reposync/reposync/internal/model"
	"github.com/reposync/reposync/internal/preset"
	"github.com/reposync/reposync/internal/tooldispatch"
)

// intentNamespace scopes the deterministic per-tool intent uuids derived
// below from any other uuid.NewSHA1 caller in the codebase.
var intentNamespace = uuid.MustParse("6f2c9f2e-6e3b-4b2a-9f1a-2f7a6f9c0b1d")

// Options configures all three operations.
type Options struct {
	DryRun     bool
	JSONOutput bool
}

// Clock abstracts time.Now so callers (and tests) can supply a fixed
// instant rather than the engine reaching for wall-clock time itself.
type Clock func() time.Time

// Engine holds the resolved paths and wiring an operation needs. It is
// built once per invocation and owns no state across operations — each
// call loads manifest and ledger fresh, per §5's "no cross-
// operation shared mutable state" requirement.
type Engine struct {
	ManifestPaths   manifest.Paths
	LedgerPath      string
	WorkingTreeRoot string
	Integrations    map[string]tooldispatch.ToolIntegration
	Presets         map[string]preset.Provider // registered preset providers; nil is valid (no providers wired)
	LockTimeout     time.Duration
	Now             Clock
	Strict          bool
	Logger          tooldispatch.Logger // nil uses tooldispatch.NoopLogger
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// logger returns e.Logger, or tooldispatch.NoopLogger if none was
// configured — callers never need to nil-check before logging.
func (e *Engine) logger() tooldispatch.Logger {
	if e.Logger == nil {
		return tooldispatch.NoopLogger
	}
	return e.Logger
}

// loadedState is what every operation needs after step 1/2 of its
// procedure: the resolved manifest and the on-disk ledger.
type loadedState struct {
	resolved *model.ResolvedConfig
	led      *ledger.Ledger
}

func (e *Engine) load() (*loadedState, error) {
	resolved, err := manifest.Resolve(e.ManifestPaths)
	if err != nil {
		return nil, err
	}
	led, err := ledger.Load(e.LedgerPath)
	if err != nil {
		return nil, err
	}
	return &loadedState{resolved: resolved, led: led}, nil
}

// sortedTools returns the active tool identifiers from the resolved
// manifest in deterministic (sorted) order, per §5's ordering rule.
func sortedTools(resolved *model.ResolvedConfig) []string {
	tools := append([]string(nil), resolved.Tools...)
	sort.Strings(tools)
	return tools
}

// intentUUIDForTool derives a stable, deterministic uuid for the single
// synthetic intent a sync run records per active tool, via uuid.NewSHA1's
// namespace+name hashing (RFC 4122 §4.3) rather than a random uuid — this
// keeps repeated syncs of an unchanged manifest idempotent at the ledger
// level, since the same tool always yields the same intent uuid.
func intentUUIDForTool(tool string) string {
	return uuid.NewSHA1(intentNamespace, []byte(tool)).String()
}

func errorsAsUnknownTool(resolved *model.ResolvedConfig, integrations map[string]tooldispatch.ToolIntegration) []error {
	var warnings []error
	for _, id := range resolved.Tools {
		if _, ok := integrations[id]; !ok {
			warnings = append(warnings, &apperrors.UnknownToolError{ID: id})
		}
	}
	return warnings
}

// errorsAsUnknownPreset is the preset analogue of errorsAsUnknownTool. A
// preset naming no registered provider is only ever a warning/strict-error
// concern here — the sync engine never fails a whole run because a
// provider happened not to detect its environment.
func errorsAsUnknownPreset(resolved *model.ResolvedConfig, providers map[string]preset.Provider) []error {
	var warnings []error
	for _, id := range resolved.Presets {
		if _, ok := providers[id]; !ok {
			warnings = append(warnings, &apperrors.UnknownPresetError{ID: id})
		}
	}
	return warnings
}

// applyPresets runs apply() on every resolved preset with a registered
// provider, in resolved order. Providers are opaque collaborators: a
// preset that errors or fails does not abort the sync, it is recorded in
// the report like a tool failure.
func (e *Engine) applyPresets(resolved *model.ResolvedConfig, root string) []PresetOutcome {
	var outcomes []PresetOutcome
	ctx := preset.Context{WorkingTreeRoot: root}
	for _, id := range resolved.Presets {
		provider, ok := e.Presets[id]
		if !ok {
			continue // already warned by errorsAsUnknownPreset
		}
		result, err := provider.Apply(ctx)
		outcome := PresetOutcome{Preset: id, Result: result}
		if err != nil {
			outcome.Err = &apperrors.PresetApplyFailedError{Preset: id, Cause: err}
			e.logger().Warnf("preset apply failed", "preset", id, "cause", err)
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}
