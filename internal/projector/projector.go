// Package projector applies a single projection intent to disk and
// produces the model.Projection record the ledger stores. It ties
// together internal/fsutil (atomic I/O), internal/blocks (managed-region
// editing), and the JSON dotted-path setter, mirroring the way the
// teacher's internal/storage layer composes atomic writes with a typed
// record shape.
package projector

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/reposync/reposync/internal/apperrors"
	"github.com/reposync/reposync/internal/blocks"
	"github.com/reposync/reposync/internal/fsutil"
	"github.com/reposync/reposync/internal/model"
)

// checksum returns the hex-sha256 of content.
func checksum(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// FormatForPath infers a managed-block Format from a file's extension.
func FormatForPath(path string) model.Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return model.FormatJSON
	case ".yml", ".yaml":
		return model.FormatYAML
	case ".toml":
		return model.FormatTOML
	case ".md", ".markdown":
		return model.FormatMarkdown
	default:
		return model.FormatText
	}
}

// WriteFileManaged overwrites path with content in full and returns the
// resulting FileManaged projection.
func WriteFileManaged(tool, path, content string) (model.Projection, error) {
	if err := fsutil.WriteAtomic(path, []byte(content)); err != nil {
		return model.Projection{}, err
	}
	return model.Projection{
		Tool:     tool,
		File:     path,
		Kind:     model.KindFileManaged,
		Checksum: checksum(content),
	}, nil
}

// WriteTextBlock upserts a UUID-tagged region inside path, preserving
// surrounding content byte-for-byte, and returns the resulting TextBlock
// projection. format, if model.Format(""), is inferred from path's
// extension.
func WriteTextBlock(tool, path, uuid, content string, format model.Format) (model.Projection, error) {
	if format == "" {
		format = FormatForPath(path)
	}
	handler, err := blocks.ForFormat(format)
	if err != nil {
		return model.Projection{}, err
	}

	existing, err := fsutil.ReadText(path, 0)
	if err != nil {
		return model.Projection{}, err
	}
	source := ""
	if existing != nil {
		source = string(existing)
	}

	var updated string
	blk, err := handler.FindBlockByUUID(source, uuid)
	if err != nil {
		return model.Projection{}, err
	}
	if blk == nil {
		updated, _, err = handler.InsertBlock(source, uuid, content, model.BlockLocation{Kind: model.LocationEndOfFile})
	} else {
		updated, _, err = handler.UpdateBlock(source, uuid, content)
	}
	if err != nil {
		return model.Projection{}, err
	}

	if err := fsutil.WriteAtomic(path, []byte(updated)); err != nil {
		return model.Projection{}, err
	}

	return model.Projection{
		Tool:       tool,
		File:       path,
		Kind:       model.KindTextBlock,
		MarkerUUID: uuid,
		Checksum:   checksum(content),
	}, nil
}

// WriteJSONKey sets a dotted key path inside the JSON document at path
// (creating it as {} if absent), re-serializes pretty-printed, and
// returns the resulting JsonKey projection.
func WriteJSONKey(tool, path, keyPath string, value any) (model.Projection, error) {
	existing, err := fsutil.ReadText(path, 0)
	if err != nil {
		return model.Projection{}, err
	}
	body := "{}"
	if existing != nil && len(existing) > 0 {
		body = string(existing)
	}

	updated, err := sjson.SetOptions(body, keyPath, value, &sjson.Options{Optimistic: true})
	if err != nil {
		return model.Projection{}, &apperrors.PathSetFailedError{KeyPath: keyPath, Reason: err.Error()}
	}

	pretty, err := prettyPrintJSON(updated)
	if err != nil {
		return model.Projection{}, &apperrors.PathSetFailedError{KeyPath: keyPath, Reason: err.Error()}
	}

	if err := fsutil.WriteAtomic(path, []byte(pretty)); err != nil {
		return model.Projection{}, err
	}

	canonical, err := canonicalJSON(value)
	if err != nil {
		return model.Projection{}, err
	}

	return model.Projection{
		Tool:     tool,
		File:     path,
		Kind:     model.KindJSONKey,
		KeyPath:  keyPath,
		Value:    canonical,
		Checksum: checksum(canonical),
	}, nil
}

// RemoveProjection undoes a previously written projection: deletes the
// file for FileManaged, removes the block for TextBlock, deletes the key
// for JsonKey. Missing targets are treated as already-removed, not errors.
func RemoveProjection(p model.Projection) error {
	switch p.Kind {
	case model.KindFileManaged:
		return fsutil.RemoveIfExists(p.File)
	case model.KindTextBlock:
		return removeTextBlock(p)
	case model.KindJSONKey:
		return removeJSONKey(p)
	default:
		return nil
	}
}

func removeTextBlock(p model.Projection) error {
	handler, err := blocks.ForFormat(FormatForPath(p.File))
	if err != nil {
		return err
	}
	existing, err := fsutil.ReadText(p.File, 0)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}
	blk, err := handler.FindBlockByUUID(string(existing), p.MarkerUUID)
	if err != nil {
		return err
	}
	if blk == nil {
		return nil
	}
	updated, _, err := handler.RemoveBlock(string(existing), p.MarkerUUID)
	if err != nil {
		return err
	}
	return fsutil.WriteAtomic(p.File, []byte(updated))
}

func removeJSONKey(p model.Projection) error {
	existing, err := fsutil.ReadText(p.File, 0)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}
	updated, err := sjson.Delete(string(existing), p.KeyPath)
	if err != nil {
		return &apperrors.PathSetFailedError{KeyPath: p.KeyPath, Reason: err.Error()}
	}
	return fsutil.WriteAtomic(p.File, []byte(updated))
}

func prettyPrintJSON(raw string) (string, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return "", err
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func canonicalJSON(value any) (string, error) {
	out, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// ReadJSONValue returns the value at keyPath inside the JSON document at
// path, or gjson's zero Result if absent.
func ReadJSONValue(path, keyPath string) (gjson.Result, error) {
	existing, err := fsutil.ReadText(path, 0)
	if err != nil {
		return gjson.Result{}, err
	}
	if existing == nil {
		return gjson.Result{}, nil
	}
	return gjson.Get(string(existing), keyPath), nil
}
