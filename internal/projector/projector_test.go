package projector

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/reposync/reposync/internal/model"
)

func TestWriteFileManaged_WritesAndChecksums(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "CLAUDE.md")

	p, err := WriteFileManaged("claude", path, "# Rules\nUse snake_case\n")
	if err != nil {
		t.Fatalf("WriteFileManaged: %v", err)
	}
	if p.Kind != model.KindFileManaged {
		t.Fatalf("got kind %v", p.Kind)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "# Rules\nUse snake_case\n" {
		t.Fatalf("got %q", got)
	}
}

func TestWriteTextBlock_InsertsIntoNewFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".cursorrules")
	uuid := "11111111-1111-1111-1111-111111111111"

	p, err := WriteTextBlock("cursor", path, uuid, "Use snake_case", model.FormatText)
	if err != nil {
		t.Fatalf("WriteTextBlock: %v", err)
	}
	if p.MarkerUUID != uuid {
		t.Fatalf("got marker %s", p.MarkerUUID)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "<!-- repo:block:" + uuid + " -->\nUse snake_case\n<!-- /repo:block:" + uuid + " -->\n"
	if string(got) != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestWriteTextBlock_PreservesSurroundingContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "CLAUDE.md")
	uuid := "22222222-2222-2222-2222-222222222222"

	if err := os.WriteFile(path, []byte("# My notes\nuser content here\n"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := WriteTextBlock("claude", path, uuid, "rule body", model.FormatMarkdown); err != nil {
		t.Fatalf("WriteTextBlock: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(got), "user content here") {
		t.Fatalf("user content lost: %q", got)
	}
	if !strings.Contains(string(got), "rule body") {
		t.Fatalf("block content missing: %q", got)
	}
}

func TestWriteJSONKey_SetsAndPreservesExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	if err := os.WriteFile(path, []byte(`{"editor.fontSize": 14}`), 0600); err != nil {
		t.Fatal(err)
	}

	p, err := WriteJSONKey("vscode", path, "claude.instructionsPath", "CLAUDE.md")
	if err != nil {
		t.Fatalf("WriteJSONKey: %v", err)
	}
	if p.KeyPath != "claude.instructionsPath" {
		t.Fatalf("got %s", p.KeyPath)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if gjson.GetBytes(got, "editor.fontSize").Int() != 14 {
		t.Fatalf("expected existing key preserved: %s", got)
	}
	if gjson.GetBytes(got, "claude.instructionsPath").String() != "CLAUDE.md" {
		t.Fatalf("expected new key set: %s", got)
	}
}

func TestRemoveProjection_FileManaged(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.md")
	if _, err := WriteFileManaged("claude", path, "x"); err != nil {
		t.Fatal(err)
	}

	err := RemoveProjection(model.Projection{Kind: model.KindFileManaged, File: path})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("expected file removed")
	}
}

func TestRemoveProjection_TextBlockLeavesRestIntact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "CLAUDE.md")
	uuid := "33333333-3333-3333-3333-333333333333"

	if err := os.WriteFile(path, []byte("keep me\n"), 0600); err != nil {
		t.Fatal(err)
	}
	p, err := WriteTextBlock("claude", path, uuid, "body", model.FormatMarkdown)
	if err != nil {
		t.Fatal(err)
	}

	if err := RemoveProjection(p); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "keep me\n" {
		t.Fatalf("got %q", got)
	}
}
