package blocks

import (
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/reposync/reposync/internal/apperrors"
	"github.com/reposync/reposync/internal/model"
)

// managedKey is the reserved top-level key JSON-format managed blocks live
// under: _repo_managed.<uuid>.content.
const managedKey = "_repo_managed"

// maxJSONDepth bounds recursive traversal of an input document before any
// managed-block operation touches it. A document deeper than this is
// rejected rather than walked.
const maxJSONDepth = 128

type jsonHandler struct{}

func (h jsonHandler) FindBlocks(source string) ([]model.ManagedBlock, error) {
	root, err := h.validatedRoot(source)
	if err != nil {
		return nil, err
	}

	var blocks []model.ManagedBlock
	root.Get(managedKey).ForEach(func(key, value gjson.Result) bool {
		uuid := key.String()
		if !ValidUUID(uuid) {
			return true
		}
		content := value.Get("content")
		if !content.Exists() {
			return true
		}
		blocks = append(blocks, blockFromResult(uuid, content))
		return true
	})
	return blocks, nil
}

func (h jsonHandler) FindBlockByUUID(source, uuid string) (*model.ManagedBlock, error) {
	if !ValidUUID(uuid) {
		return nil, apperrors.ErrInvalidBlockMarker
	}
	root, err := h.validatedRoot(source)
	if err != nil {
		return nil, err
	}
	content := root.Get(managedKey + "." + uuid + ".content")
	if !content.Exists() {
		return nil, nil
	}
	blk := blockFromResult(uuid, content)
	return &blk, nil
}

// blockFromResult builds a ManagedBlock whose content span is the byte
// range gjson located the value's raw text at within the source document.
// For a string value this span includes the surrounding quotes; callers
// use Content(source) rather than assuming any particular quoting.
func blockFromResult(uuid string, content gjson.Result) model.ManagedBlock {
	start := content.Index
	length := len(content.Raw)
	return model.ManagedBlock{
		UUID:   uuid,
		Format: model.FormatJSON,
		ContentSpan: model.Span{
			Offset: start,
			Length: length,
		},
	}
}

func (h jsonHandler) InsertBlock(source, uuid, content string, _ model.BlockLocation) (string, model.Edit, error) {
	if _, err := h.validatedRoot(source); err != nil {
		return "", model.Edit{}, err
	}
	return h.setContent(source, uuid, content)
}

func (h jsonHandler) UpdateBlock(source, uuid, newContent string) (string, model.Edit, error) {
	existing, err := h.FindBlockByUUID(source, uuid)
	if err != nil {
		return "", model.Edit{}, err
	}
	if existing == nil {
		return "", model.Edit{}, blockNotFound(uuid)
	}
	return h.setContent(source, uuid, newContent)
}

func (h jsonHandler) setContent(source, uuid, content string) (string, model.Edit, error) {
	if !ValidUUID(uuid) {
		return "", model.Edit{}, apperrors.ErrInvalidBlockMarker
	}
	body := source
	if body == "" {
		body = "{}"
	}
	path := managedKey + "." + uuid + ".content"
	updated, err := sjson.Set(body, path, content)
	if err != nil {
		return "", model.Edit{}, &apperrors.PathSetFailedError{KeyPath: path, Reason: err.Error()}
	}
	edit := model.Edit{Offset: 0, Removed: len(source), Inserted: updated}
	return updated, edit, nil
}

func (h jsonHandler) RemoveBlock(source, uuid string) (string, model.Edit, error) {
	existing, err := h.FindBlockByUUID(source, uuid)
	if err != nil {
		return "", model.Edit{}, err
	}
	if existing == nil {
		return "", model.Edit{}, blockNotFound(uuid)
	}

	path := managedKey + "." + uuid
	updated, err := sjson.Delete(source, path)
	if err != nil {
		return "", model.Edit{}, &apperrors.PathSetFailedError{KeyPath: path, Reason: err.Error()}
	}
	edit := model.Edit{Offset: 0, Removed: len(source), Inserted: updated}
	return updated, edit, nil
}

// validatedRoot parses source, rejecting non-object roots and documents
// deeper than maxJSONDepth. An empty document is treated as {}.
func (h jsonHandler) validatedRoot(source string) (gjson.Result, error) {
	if source == "" {
		return gjson.Parse("{}"), nil
	}
	root := gjson.Parse(source)
	if !root.IsObject() {
		return gjson.Result{}, apperrors.ErrUnsupportedJSONRoot
	}
	if depthOf(root, 0) > maxJSONDepth {
		return gjson.Result{}, apperrors.ErrDepthExceeded
	}
	return root, nil
}

func depthOf(r gjson.Result, current int) int {
	if current > maxJSONDepth {
		return current
	}
	if !r.IsObject() && !r.IsArray() {
		return current
	}
	max := current
	r.ForEach(func(_, value gjson.Result) bool {
		d := depthOf(value, current+1)
		if d > max {
			max = d
		}
		return d <= maxJSONDepth
	})
	return max
}
