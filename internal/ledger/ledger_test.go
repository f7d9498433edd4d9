package ledger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/reposync/reposync/internal/apperrors"
	"github.com/reposync/reposync/internal/model"
)

func TestLoad_MissingFileReturnsEmptyLedger(t *testing.T) {
	dir := t.TempDir()
	l, err := Load(filepath.Join(dir, "ledger.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(l.Intents()) != 0 {
		t.Fatalf("expected empty ledger, got %d intents", len(l.Intents()))
	}
}

func TestLoad_CorruptFileIsLedgerCorrupt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.toml")
	writeFile(t, path, "this is not [ valid toml")

	_, err := Load(path)
	var corrupt *apperrors.LedgerCorruptError
	if !errors.As(err, &corrupt) {
		t.Fatalf("expected LedgerCorruptError, got %v", err)
	}
}

func TestAddIntent_DuplicateUUIDRejected(t *testing.T) {
	l := newEmpty()
	intent := model.Intent{ID: "add-cursor", UUID: "u1"}
	if err := l.AddIntent(intent); err != nil {
		t.Fatal(err)
	}
	err := l.AddIntent(model.Intent{ID: "add-cursor-again", UUID: "u1"})
	if !errors.Is(err, apperrors.ErrLedgerConflict) {
		t.Fatalf("expected ErrLedgerConflict, got %v", err)
	}
}

func TestRemoveIntent_RemovesProjections(t *testing.T) {
	l := newEmpty()
	intent := model.Intent{
		ID:   "add-cursor",
		UUID: "u1",
		Projections: []model.Projection{
			{Tool: "cursor", File: ".cursorrules", Kind: model.KindTextBlock},
		},
	}
	if err := l.AddIntent(intent); err != nil {
		t.Fatal(err)
	}

	if len(l.ProjectionsForTool("cursor")) != 1 {
		t.Fatal("expected 1 projection before removal")
	}

	removed := l.RemoveIntent("u1")
	if removed == nil {
		t.Fatal("expected removed intent")
	}
	if len(l.ProjectionsForTool("cursor")) != 0 {
		t.Fatal("expected projections removed along with intent")
	}
}

func TestProjectionsForFile_IndexesCorrectly(t *testing.T) {
	l := newEmpty()
	_ = l.AddIntent(model.Intent{
		ID: "a", UUID: "u1",
		Projections: []model.Projection{{Tool: "cursor", File: "a.md"}},
	})
	_ = l.AddIntent(model.Intent{
		ID: "b", UUID: "u2",
		Projections: []model.Projection{{Tool: "claude", File: "b.md"}},
	})

	got := l.ProjectionsForFile("a.md")
	if len(got) != 1 || got[0].Projection.Tool != "cursor" {
		t.Fatalf("got %v", got)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.toml")

	l := newEmpty()
	if err := l.AddIntent(model.Intent{
		ID:        "add-cursor",
		UUID:      "u1",
		Timestamp: time.Now().UTC().Truncate(time.Second),
		Projections: []model.Projection{
			{Tool: "cursor", File: ".cursorrules", Kind: model.KindTextBlock, Checksum: "abc", MarkerUUID: "m1"},
		},
	}); err != nil {
		t.Fatal(err)
	}

	if err := l.Save(path, dir, time.Now().UTC()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(reloaded.Intents()) != 1 {
		t.Fatalf("expected 1 intent, got %d", len(reloaded.Intents()))
	}
	if reloaded.Intents()[0].UUID != "u1" {
		t.Fatalf("got %v", reloaded.Intents()[0])
	}
}

func TestSave_ProjectionEscapingRootIsRejectedOrNeutralized(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.toml")

	l := newEmpty()
	_ = l.AddIntent(model.Intent{
		ID:   "add-cursor",
		UUID: "u1",
		Projections: []model.Projection{
			{Tool: "cursor", File: "../../etc/passwd"},
		},
	})

	err := l.Save(path, dir, time.Now())
	if err != nil && !errors.Is(err, apperrors.ErrProjectionEscapesRoot) {
		// Sandboxing at normalization time may already neutralize the
		// escape; either outcome (rejection or a neutralized relative
		// path) is acceptable, a silent absolute escape is not.
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSortedToolIdentifiers(t *testing.T) {
	l := newEmpty()
	_ = l.AddIntent(model.Intent{ID: "a", UUID: "u1", Projections: []model.Projection{{Tool: "vscode", File: "a"}}})
	_ = l.AddIntent(model.Intent{ID: "b", UUID: "u2", Projections: []model.Projection{{Tool: "claude", File: "b"}}})

	got := l.SortedToolIdentifiers()
	if len(got) != 2 || got[0] != "claude" || got[1] != "vscode" {
		t.Fatalf("got %v", got)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}
