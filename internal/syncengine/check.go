package syncengine

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"path/filepath"

	"github.com/tidwall/gjson"

	"github.com/reposync/reposync/internal/blocks"
	"github.com/reposync/reposync/internal/fsutil"
	"github.com/reposync/reposync/internal/ledger"
	"github.com/reposync/reposync/internal/model"
	"github.com/reposync/reposync/internal/projector"
)

// CheckReport is the pure, read-only result of comparing every ledgered
// projection against the file it targets.
type CheckReport struct {
	Items   []model.DriftItem
	Healthy int
	Total   int
}

// Check loads the manifest and ledger and compares every ledgered
// projection's recomputed checksum against its recorded one. It performs
// no writes.
func (e *Engine) Check(opts Options) (*CheckReport, error) {
	state, err := e.load()
	if err != nil {
		return nil, err
	}
	return e.checkAgainst(state.led), nil
}

func (e *Engine) checkAgainst(led *ledger.Ledger) *CheckReport {
	report := &CheckReport{}
	for _, fp := range led.AllProjections() {
		item := model.DriftItem{
			Projection: fp.Projection,
			State:      e.driftState(fp.Projection),
		}
		report.Items = append(report.Items, item)
		report.Total++
		if item.State == model.DriftHealthy {
			report.Healthy++
		}
	}
	return report
}

// driftState recomputes a single projection's on-disk checksum and
// classifies the result. Projection.File is stored relative to the working
// tree root, so every read resolves it against e.WorkingTreeRoot first.
func (e *Engine) driftState(p model.Projection) model.DriftState {
	actual, ok := e.currentChecksum(p)
	if !ok {
		return model.DriftMissing
	}
	if actual != p.Checksum {
		return model.DriftModified
	}
	return model.DriftHealthy
}

func (e *Engine) resolvePath(file string) string {
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(e.WorkingTreeRoot, file)
}

// currentChecksum recomputes the checksum of what's presently on disk for
// p, reporting ok=false if the projection's target (file, block, or key)
// is entirely absent.
func (e *Engine) currentChecksum(p model.Projection) (sum string, ok bool) {
	switch p.Kind {
	case model.KindFileManaged:
		data, err := fsutil.ReadText(e.resolvePath(p.File), 0)
		if err != nil || data == nil {
			return "", false
		}
		return checksumBytes(data), true
	case model.KindTextBlock:
		return e.textBlockChecksum(p)
	case model.KindJSONKey:
		return e.jsonKeyChecksum(p)
	default:
		return "", false
	}
}

func (e *Engine) textBlockChecksum(p model.Projection) (string, bool) {
	path := e.resolvePath(p.File)
	data, err := fsutil.ReadText(path, 0)
	if err != nil || data == nil {
		return "", false
	}
	handler, err := blocks.ForFormat(projector.FormatForPath(path))
	if err != nil {
		return "", false
	}
	blk, err := handler.FindBlockByUUID(string(data), p.MarkerUUID)
	if err != nil || blk == nil {
		return "", false
	}
	content := blk.Content(string(data))
	if blk.Format == model.FormatJSON {
		// A JSON block's span is the quoted string value; the recorded
		// checksum is over the unquoted content.
		content = gjson.Parse(content).String()
	}
	return checksumBytes([]byte(content)), true
}

// jsonKeyChecksum recomputes the checksum of the value presently at
// p.KeyPath, re-marshaling it the same compact, canonical way
// projector.WriteJSONKey does — comparing raw document bytes would spot
// spurious drift from whitespace differences introduced by pretty-printing
// the surrounding document.
func (e *Engine) jsonKeyChecksum(p model.Projection) (string, bool) {
	result, err := projector.ReadJSONValue(e.resolvePath(p.File), p.KeyPath)
	if err != nil || !result.Exists() {
		return "", false
	}
	canonical, err := json.Marshal(result.Value())
	if err != nil {
		return "", false
	}
	return checksumBytes(canonical), true
}

func checksumBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
