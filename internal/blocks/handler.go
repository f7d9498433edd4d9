// Package blocks implements the five managed-block format handlers: TOML,
// JSON, YAML, Markdown, and plain text. Each handler finds, inserts,
// updates, and removes UUID-tagged regions inside a document without
// disturbing surrounding user-authored content.
package blocks

import (
	"fmt"
	"regexp"

	"github.com/reposync/reposync/internal/apperrors"
	"github.com/reposync/reposync/internal/model"
)

// uuidPattern is the fixed-length, backtracking-free character class the
// spec requires: exactly the grammar a managed block's UUID must match.
// It is lowercase-only by design — a marker with uppercase hex digits is
// rejected, not normalized.
const uuidPattern = `[0-9a-f-]{36}`

var uuidRegexp = regexp.MustCompile(`^` + uuidPattern + `$`)

// ValidUUID reports whether s matches the managed-block UUID grammar.
func ValidUUID(s string) bool {
	return uuidRegexp.MatchString(s)
}

// Handler is the common interface implemented by every format-specific
// managed-block editor.
type Handler interface {
	// FindBlocks returns every managed block in source, in document order.
	FindBlocks(source string) ([]model.ManagedBlock, error)

	// FindBlockByUUID returns the block with the given uuid, or nil if
	// absent. Implementations stop scanning once uuid is found rather than
	// scanning the whole document more than once.
	FindBlockByUUID(source, uuid string) (*model.ManagedBlock, error)

	// InsertBlock adds a new block at the given location.
	InsertBlock(source, uuid, content string, loc model.BlockLocation) (string, model.Edit, error)

	// UpdateBlock replaces an existing block's content.
	// Returns a BlockNotFoundError if uuid is absent.
	UpdateBlock(source, uuid, newContent string) (string, model.Edit, error)

	// RemoveBlock deletes an existing block entirely.
	// Returns a BlockNotFoundError if uuid is absent.
	RemoveBlock(source, uuid string) (string, model.Edit, error)
}

// ForFormat returns the Handler responsible for format.
func ForFormat(format model.Format) (Handler, error) {
	switch format {
	case model.FormatMarkdown, model.FormatText:
		return commentHandler{style: htmlCommentStyle}, nil
	case model.FormatTOML, model.FormatYAML:
		return commentHandler{style: hashCommentStyle}, nil
	case model.FormatJSON:
		return jsonHandler{}, nil
	default:
		return nil, fmt.Errorf("unsupported managed block format: %s", format)
	}
}

// blockNotFound is a small helper so every handler reports the same error
// shape for an unknown uuid.
func blockNotFound(uuid string) error {
	return &apperrors.BlockNotFoundError{UUID: uuid}
}

// clampOffset clamps n into [0, len(source)], matching the spec's
// Location(n) contract.
func clampOffset(n, length int) int {
	if n < 0 {
		return 0
	}
	if n > length {
		return length
	}
	return n
}
