package blocks

import (
	"errors"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/reposync/reposync/internal/apperrors"
	"github.com/reposync/reposync/internal/model"
)

func TestJSONHandler_InsertFindRoundTrip(t *testing.T) {
	h, err := ForFormat(model.FormatJSON)
	if err != nil {
		t.Fatal(err)
	}

	uuid := "55555555-5555-5555-5555-555555555555"
	updated, _, err := h.InsertBlock(`{"existing":true}`, uuid, "hello", model.BlockLocation{})
	if err != nil {
		t.Fatalf("InsertBlock: %v", err)
	}

	if !gjson.Get(updated, "existing").Bool() {
		t.Fatal("expected pre-existing key to survive insert")
	}

	blk, err := h.FindBlockByUUID(updated, uuid)
	if err != nil {
		t.Fatal(err)
	}
	if blk == nil {
		t.Fatal("expected block to be found")
	}
	if got := blk.Content(updated); got != `"hello"` {
		t.Fatalf("got content %q", got)
	}
}

func TestJSONHandler_UpdateReplacesContent(t *testing.T) {
	h, _ := ForFormat(model.FormatJSON)
	uuid := "66666666-6666-6666-6666-666666666666"

	v1, _, err := h.InsertBlock("", uuid, "one", model.BlockLocation{})
	if err != nil {
		t.Fatal(err)
	}
	v2, _, err := h.UpdateBlock(v1, uuid, "two")
	if err != nil {
		t.Fatal(err)
	}

	got := gjson.Get(v2, "_repo_managed."+uuid+".content").String()
	if got != "two" {
		t.Fatalf("got %q", got)
	}
}

func TestJSONHandler_RemoveBlock(t *testing.T) {
	h, _ := ForFormat(model.FormatJSON)
	uuid := "77777777-7777-7777-7777-777777777777"

	v1, _, err := h.InsertBlock(`{"keep":1}`, uuid, "body", model.BlockLocation{})
	if err != nil {
		t.Fatal(err)
	}
	v2, _, err := h.RemoveBlock(v1, uuid)
	if err != nil {
		t.Fatal(err)
	}

	if gjson.Get(v2, "_repo_managed."+uuid).Exists() {
		t.Fatal("expected block entry removed")
	}
	if !gjson.Get(v2, "keep").Exists() {
		t.Fatal("expected unrelated key to survive remove")
	}
}

func TestJSONHandler_UpdateMissingUUIDReturnsNotFound(t *testing.T) {
	h, _ := ForFormat(model.FormatJSON)
	_, _, err := h.UpdateBlock("{}", "88888888-8888-8888-8888-888888888888", "x")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestJSONHandler_RejectsNonObjectRoot(t *testing.T) {
	h, _ := ForFormat(model.FormatJSON)
	_, err := h.FindBlocks(`[1,2,3]`)
	if !errors.Is(err, apperrors.ErrUnsupportedJSONRoot) {
		t.Fatalf("expected ErrUnsupportedJSONRoot, got %v", err)
	}
}

func TestJSONHandler_FindBlockByUUIDMissingReturnsNil(t *testing.T) {
	h, _ := ForFormat(model.FormatJSON)
	blk, err := h.FindBlockByUUID(`{}`, "99999999-9999-9999-9999-999999999999")
	if err != nil {
		t.Fatal(err)
	}
	if blk != nil {
		t.Fatal("expected nil block")
	}
}
