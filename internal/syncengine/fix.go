package syncengine

import (
	"path/filepath"

	"github.com/reposync/reposync/internal/apperrors"
	"github.com/reposync/reposync/internal/fsutil"
	"github.com/reposync/reposync/internal/ledger"
	"github.com/reposync/reposync/internal/model"
	"github.com/reposync/reposync/internal/tooldispatch"
)

// FixReport is the result of a fix operation: the drift observed before
// acting, and which items were actually repaired.
type FixReport struct {
	Before   []model.DriftItem
	Repaired []model.DriftItem
	Skipped  []model.DriftItem // Extra items: never touched
	Errors   []error
}

// Fix repairs drift: Missing projections are recreated and Modified
// projections are overwritten, and Extra projections (present on disk but
// absent from the ledger) are left untouched. The ledger records checksums,
// not content, so repaired projections are rewritten from the manifest's
// current rules rather than restored from the ledger; if the manifest
// changed since the last sync, fix writes the new content. Only tools with
// at least one drifted projection are re-synced; healthy tools are left
// alone.
func (e *Engine) Fix(opts Options) (*FixReport, error) {
	lock := fsutil.NewFileLock(filepath.Join(filepath.Dir(e.LedgerPath), "ledger.lock"))
	if err := lock.Lock(e.lockTimeout()); err != nil {
		return nil, err
	}
	defer lock.Unlock() //nolint:errcheck // best-effort unlock

	state, err := e.load()
	if err != nil {
		return nil, err
	}

	before := e.checkAgainst(state.led)
	report := &FixReport{Before: before.Items}

	needsRepair := map[string]bool{}
	for _, item := range before.Items {
		switch item.State {
		case model.DriftExtra:
			report.Skipped = append(report.Skipped, item)
		case model.DriftMissing, model.DriftModified:
			needsRepair[item.Projection.Tool] = true
			report.Repaired = append(report.Repaired, item)
		}
	}

	if len(needsRepair) == 0 || opts.DryRun {
		return report, nil
	}

	newIntents, syncErrs := e.rewriteIntents(state.led, needsRepair, state.resolved.Rules)
	report.Errors = append(report.Errors, syncErrs...)

	newLedger := ledger.New(newIntents)
	if err := newLedger.Save(e.LedgerPath, e.WorkingTreeRoot, e.now()); err != nil {
		report.Errors = append(report.Errors, err)
	}
	return report, nil
}

// rewriteIntents re-syncs every tool named in needsRepair against the
// manifest's current rule set — Sync always upserts, so this recreates
// Missing projections and overwrites Modified ones — and carries every
// other tool's existing ledger intent through unchanged.
func (e *Engine) rewriteIntents(led *ledger.Ledger, needsRepair map[string]bool, rules []model.Rule) ([]model.Intent, []error) {
	var out []model.Intent
	var errs []error
	for _, intent := range led.Intents() {
		if !needsRepair[intent.ID] {
			out = append(out, intent)
			continue
		}
		integration, ok := e.Integrations[intent.ID]
		if !ok {
			out = append(out, intent) // unknown tool: leave its ledger entry alone
			continue
		}
		ctx := tooldispatch.Context{WorkingTreeRoot: e.WorkingTreeRoot, Logger: e.logger()}
		projections, err := integration.Sync(ctx, rules)
		if err != nil {
			errs = append(errs, &apperrors.ToolSyncFailedError{Tool: intent.ID, Cause: err})
			e.logger().Warnf("tool repair failed", "tool", intent.ID, "cause", err)
			out = append(out, intent) // repair failed: keep prior ledger state
			continue
		}
		out = append(out, model.Intent{
			ID:          intent.ID,
			UUID:        intent.UUID,
			Timestamp:   e.now(),
			Projections: projections,
		})
	}
	return out, errs
}
