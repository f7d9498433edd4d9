// Package ledger implements the persistent, append-and-replace record of
// declared intents and the projections they produced on disk. Storage is
// a single TOML file, written atomically and serialized by a dedicated
// lock file held for the entire read-modify-write cycle — the same
// pattern the teacher's internal/storage uses for its JSONL index, ported
// to the ledger's TOML schema.
package ledger

import (
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/reposync/reposync/internal/apperrors"
	"github.com/reposync/reposync/internal/fsutil"
	"github.com/reposync/reposync/internal/model"
)

// Ledger wraps the in-memory model with indexes for efficient per-file and
// per-tool lookups.
type Ledger struct {
	data model.Ledger

	byFile map[string][]int // index into data.Intents[i].Projections flattened
	byTool map[string][]int
	flat   []flatProjection
}

type flatProjection struct {
	intentIdx     int
	projectionIdx int
}

// Load reads the ledger at path. A missing file yields an empty ledger; a
// malformed one is LedgerCorruptError, never silently reset.
func Load(path string) (*Ledger, error) {
	data, err := fsutil.ReadText(path, 0)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return newEmpty(), nil
	}

	var l model.Ledger
	if err := toml.Unmarshal(data, &l); err != nil {
		return nil, &apperrors.LedgerCorruptError{Message: err.Error()}
	}
	led := &Ledger{data: l}
	led.reindex()
	return led, nil
}

// New builds a fresh ledger from a complete set of intents, as sync builds
// when it recomputes the resolved manifest from scratch each run.
func New(intents []model.Intent) *Ledger {
	led := newEmpty()
	led.data.Intents = intents
	led.reindex()
	return led
}

func newEmpty() *Ledger {
	now := time.Time{}
	led := &Ledger{
		data: model.Ledger{
			Meta: model.LedgerMeta{
				SchemaVersion:  model.CurrentSchemaVersion,
				CreatedAt:      now,
				LastModifiedAt: now,
			},
		},
	}
	led.reindex()
	return led
}

// Save writes the ledger atomically to path, after validating that every
// projection's file is within workingTreeRoot.
func (l *Ledger) Save(path, workingTreeRoot string, now time.Time) error {
	for _, intent := range l.data.Intents {
		for _, p := range intent.Projections {
			if !fsutil.NewNormalizedPath(p.File).IsWithin(workingTreeRoot) {
				return apperrors.ErrProjectionEscapesRoot
			}
		}
	}

	l.data.Meta.LastModifiedAt = now
	if l.data.Meta.SchemaVersion == 0 {
		l.data.Meta.SchemaVersion = model.CurrentSchemaVersion
	}
	if l.data.Meta.CreatedAt.IsZero() {
		l.data.Meta.CreatedAt = now
	}

	var buf strings.Builder
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(l.data); err != nil {
		return err
	}
	return fsutil.WriteAtomic(path, []byte(buf.String()))
}

// AddIntent appends intent to the ledger. Duplicate uuids are rejected;
// duplicate intent IDs are permitted (e.g. two add-tool intents for the
// same tool, if the first was removed in between).
func (l *Ledger) AddIntent(intent model.Intent) error {
	for _, existing := range l.data.Intents {
		if existing.UUID == intent.UUID {
			return apperrors.ErrLedgerConflict
		}
	}
	l.data.Intents = append(l.data.Intents, intent)
	l.reindex()
	return nil
}

// RemoveIntent deletes the intent with the given uuid and all of its
// projections, returning the removed intent if found.
func (l *Ledger) RemoveIntent(uuid string) *model.Intent {
	for i, intent := range l.data.Intents {
		if intent.UUID == uuid {
			removed := l.data.Intents[i]
			l.data.Intents = append(l.data.Intents[:i], l.data.Intents[i+1:]...)
			l.reindex()
			return &removed
		}
	}
	return nil
}

// Intents returns every intent currently in the ledger, in declaration order.
func (l *Ledger) Intents() []model.Intent {
	return l.data.Intents
}

// FileProjection pairs a projection with the uuid of the intent that
// produced it.
type FileProjection struct {
	IntentUUID string
	Projection model.Projection
}

// ProjectionsForFile returns every projection targeting file, indexed for
// O(1) lookup rather than a full-ledger scan.
func (l *Ledger) ProjectionsForFile(file string) []FileProjection {
	return l.lookup(l.byFile[file])
}

// ProjectionsForTool returns every projection produced for tool.
func (l *Ledger) ProjectionsForTool(tool string) []FileProjection {
	return l.lookup(l.byTool[tool])
}

// AllProjections returns every projection in the ledger paired with its
// owning intent's uuid, in declaration order.
func (l *Ledger) AllProjections() []FileProjection {
	out := make([]FileProjection, 0, len(l.flat))
	for _, fp := range l.flat {
		intent := l.data.Intents[fp.intentIdx]
		out = append(out, FileProjection{
			IntentUUID: intent.UUID,
			Projection: intent.Projections[fp.projectionIdx],
		})
	}
	return out
}

func (l *Ledger) lookup(indexes []int) []FileProjection {
	out := make([]FileProjection, 0, len(indexes))
	for _, idx := range indexes {
		fp := l.flat[idx]
		intent := l.data.Intents[fp.intentIdx]
		out = append(out, FileProjection{
			IntentUUID: intent.UUID,
			Projection: intent.Projections[fp.projectionIdx],
		})
	}
	return out
}

func (l *Ledger) reindex() {
	l.byFile = map[string][]int{}
	l.byTool = map[string][]int{}
	l.flat = nil

	for ii, intent := range l.data.Intents {
		for pi, p := range intent.Projections {
			idx := len(l.flat)
			l.flat = append(l.flat, flatProjection{intentIdx: ii, projectionIdx: pi})
			l.byFile[p.File] = append(l.byFile[p.File], idx)
			l.byTool[p.Tool] = append(l.byTool[p.Tool], idx)
		}
	}
}

// SortedToolIdentifiers returns the distinct tool identifiers referenced
// in the ledger, sorted, for deterministic per-tool processing order.
func (l *Ledger) SortedToolIdentifiers() []string {
	tools := make([]string, 0, len(l.byTool))
	for tool := range l.byTool {
		tools = append(tools, tool)
	}
	sort.Strings(tools)
	return tools
}
