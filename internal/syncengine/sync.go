package syncengine

import (
	"os"
	"path/filepath"
	"time"

	"github.com/reposync/reposync/internal/apperrors"
	"github.com/reposync/reposync/internal/fsutil"
	"github.com/reposync/reposync/internal/ledger"
	"github.com/reposync/reposync/internal/model"
	"github.com/reposync/reposync/internal/preset"
	"github.com/reposync/reposync/internal/projector"
	"github.com/reposync/reposync/internal/tooldispatch"
	"github.com/reposync/reposync/internal/worker"
)

// defaultLockTimeout bounds ledger-lock acquisition when the engine was not
// given an explicit LockTimeout (see internal/engineconfig for the
// configurable source of this value in cmd/reposync).
const defaultLockTimeout = 30 * time.Second

// ToolOutcome records the result of syncing one active tool.
type ToolOutcome struct {
	Tool        string
	Projections []model.Projection
	Err         error // non-nil for a ToolSyncFailedError; sync continues regardless
}

// PresetOutcome records the result of applying one registered preset
// provider. A preset named in the manifest with no registered provider
// never appears here — it surfaces only as a Warnings entry.
type PresetOutcome struct {
	Preset string
	Result preset.ApplyResult
	Err    error // non-nil for a PresetApplyFailedError; sync continues regardless
}

// SyncReport is the result of a sync (or dry-run sync) operation.
type SyncReport struct {
	DryRun   bool
	Tools    []ToolOutcome
	Presets  []PresetOutcome
	Removed  []model.Projection // orphaned projections deleted this run
	Warnings []error            // unknown tools/presets, non-fatal
	OK       bool               // false if any tool or preset failed
}

// Sync resolves the four manifest layers, projects the result into every
// active tool's configuration, and persists a fresh ledger reflecting what
// was produced. A single tool's failure is isolated: it's recorded in the
// report and the remaining tools still run; the ledger only advances for
// tools that succeeded.
func (e *Engine) Sync(opts Options) (*SyncReport, error) {
	lock := fsutil.NewFileLock(filepath.Join(filepath.Dir(e.LedgerPath), "ledger.lock"))
	if err := lock.Lock(e.lockTimeout()); err != nil {
		return nil, err
	}
	defer lock.Unlock() //nolint:errcheck // best-effort unlock

	state, err := e.load()
	if err != nil {
		return nil, err
	}

	report := &SyncReport{DryRun: opts.DryRun, OK: true}
	report.Warnings = append(report.Warnings, errorsAsUnknownTool(state.resolved, e.Integrations)...)
	report.Warnings = append(report.Warnings, errorsAsUnknownPreset(state.resolved, e.Presets)...)
	for _, w := range report.Warnings {
		e.logger().Warnf("unrecognized manifest entry", "cause", w)
	}
	if e.Strict && len(report.Warnings) > 0 {
		return report, report.Warnings[0]
	}

	root := e.WorkingTreeRoot
	if opts.DryRun {
		staged, cleanup, err := e.stageExistingTargets(state.resolved)
		if err != nil {
			return nil, err
		}
		defer cleanup()
		root = staged
	}

	if !opts.DryRun {
		report.Presets = e.applyPresets(state.resolved, root)
		for _, outcome := range report.Presets {
			if outcome.Err != nil {
				report.OK = false
			}
		}
	}

	tools := sortedTools(state.resolved)
	var intents []model.Intent

	pool := worker.NewPool(0)
	results := pool.SyncTools(tools, func(tool string) ([]model.Projection, error) {
		integration, ok := e.Integrations[tool]
		if !ok {
			return nil, nil // already warned above
		}
		ctx := tooldispatch.Context{WorkingTreeRoot: root, Logger: e.logger()}
		return integration.Sync(ctx, state.resolved.Rules)
	})

	for _, res := range results {
		if _, ok := e.Integrations[res.Tool]; !ok {
			continue
		}
		outcome := ToolOutcome{Tool: res.Tool, Projections: res.Projections}
		if res.Err != nil {
			outcome.Err = &apperrors.ToolSyncFailedError{Tool: res.Tool, Cause: res.Err}
			report.OK = false
			e.logger().Warnf("tool sync failed", "tool", res.Tool, "cause", res.Err)
		} else {
			intents = append(intents, model.Intent{
				ID:          res.Tool,
				UUID:        intentUUIDForTool(res.Tool),
				Timestamp:   e.now(),
				Projections: res.Projections,
			})
		}
		report.Tools = append(report.Tools, outcome)
	}

	orphaned := e.orphanedProjections(state.led, tools)
	report.Removed = orphaned

	if opts.DryRun {
		return report, nil
	}

	for _, p := range orphaned {
		abs := p
		abs.File = filepath.Join(e.WorkingTreeRoot, p.File)
		if err := projector.RemoveProjection(abs); err != nil {
			report.Warnings = append(report.Warnings, err)
			e.logger().Warnf("orphaned projection removal failed", "tool", p.Tool, "file", abs.File, "cause", err)
		}
	}

	newLedger := ledger.New(intents)
	if err := newLedger.Save(e.LedgerPath, e.WorkingTreeRoot, e.now()); err != nil {
		return report, err
	}
	return report, nil
}

func (e *Engine) lockTimeout() time.Duration {
	if e.LockTimeout > 0 {
		return e.LockTimeout
	}
	return defaultLockTimeout
}

// orphanedProjections returns every ledgered projection whose tool is no
// longer in activeTools — the entries sync must delete. Rule-level orphans
// (a tool still active, but a specific rule removed) are already handled
// inside each integration's own Sync (e.g. syncRuleDirectory deletes stale
// per-rule files itself).
func (e *Engine) orphanedProjections(led *ledger.Ledger, activeTools []string) []model.Projection {
	active := make(map[string]bool, len(activeTools))
	for _, t := range activeTools {
		active[t] = true
	}

	var removed []model.Projection
	for _, tool := range led.SortedToolIdentifiers() {
		if active[tool] {
			continue
		}
		for _, fp := range led.ProjectionsForTool(tool) {
			removed = append(removed, fp.Projection)
		}
	}
	return removed
}

// stageExistingTargets copies the currently active tools' existing target
// files (or rule directories) into a scratch directory so a dry run can
// exercise the real integration code — including its read-merge
// preservation of non-managed content — without writing anything into the
// real working tree.
func (e *Engine) stageExistingTargets(resolved *model.ResolvedConfig) (stagedRoot string, cleanup func(), err error) {
	staged, err := os.MkdirTemp("", "reposync-dryrun-")
	if err != nil {
		return "", nil, err
	}
	cleanup = func() { _ = os.RemoveAll(staged) } //nolint:errcheck

	for _, tool := range resolved.Tools {
		integration, ok := e.Integrations[tool]
		if !ok {
			continue
		}
		for _, loc := range integration.ConfigLocations() {
			src := filepath.Join(e.WorkingTreeRoot, loc.Path)
			dst := filepath.Join(staged, loc.Path)
			if loc.IsDirectory {
				copyDirIfExists(src, dst)
			} else {
				copyFileIfExists(src, dst)
			}
		}
	}
	return staged, cleanup, nil
}

func copyFileIfExists(src, dst string) {
	data, err := fsutil.ReadText(src, 0)
	if err != nil || data == nil {
		return
	}
	_ = os.MkdirAll(filepath.Dir(dst), 0o755) //nolint:errcheck
	_ = os.WriteFile(dst, data, 0o644)        //nolint:errcheck
}

func copyDirIfExists(src, dst string) {
	entries, err := os.ReadDir(src)
	if err != nil {
		return
	}
	_ = os.MkdirAll(dst, 0o755) //nolint:errcheck
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		copyFileIfExists(filepath.Join(src, entry.Name()), filepath.Join(dst, entry.Name()))
	}
}
