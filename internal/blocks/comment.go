package blocks

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/reposync/reposync/internal/model"
)

// commentStyle captures the two flavors of comment-delimited managed block:
// HTML comments (Markdown, plain text) and hash comments (TOML, YAML).
type commentStyle struct {
	openTemplate  string // e.g. "<!-- repo:block:%s -->"
	closeTemplate string // e.g. "<!-- /repo:block:%s -->"
	openFind      *regexp.Regexp
	closeFind     *regexp.Regexp
}

var htmlCommentStyle = newCommentStyle(
	"<!-- repo:block:%s -->",
	"<!-- /repo:block:%s -->",
	`<!--\s*repo:block:(`+uuidPattern+`)\s*-->`,
	`<!--\s*/repo:block:(`+uuidPattern+`)\s*-->`,
)

var hashCommentStyle = newCommentStyle(
	"# repo:block:%s",
	"# /repo:block:%s",
	`#\s*repo:block:(`+uuidPattern+`)[ \t]*\n?`,
	`#\s*/repo:block:(`+uuidPattern+`)[ \t]*\n?`,
)

func newCommentStyle(openTmpl, closeTmpl, openPat, closePat string) commentStyle {
	return commentStyle{
		openTemplate:  openTmpl,
		closeTemplate: closeTmpl,
		openFind:      regexp.MustCompile(openPat),
		closeFind:     regexp.MustCompile(closePat),
	}
}

// openMarker/closeMarker render a literal marker for a specific (already
// escape-validated) uuid.
func (s commentStyle) openMarker(uuid string) string {
	return fmt.Sprintf(s.openTemplate, uuid)
}

func (s commentStyle) closeMarker(uuid string) string {
	return fmt.Sprintf(s.closeTemplate, uuid)
}

// closeFindForUUID builds a bounded regex that only matches the close
// marker for one specific uuid. The uuid is escaped even though its
// grammar is already a fixed character class — defense in depth per the
// ReDoS boundary requirement.
func (s commentStyle) closeFindForUUID(uuid string) *regexp.Regexp {
	escaped := regexp.QuoteMeta(uuid)
	raw := s.closeFind.String()
	raw = strings.Replace(raw, "("+uuidPattern+")", "("+escaped+")", 1)
	return regexp.MustCompile(raw)
}

type commentHandler struct {
	style commentStyle
}

func (h commentHandler) FindBlocks(source string) ([]model.ManagedBlock, error) {
	var blocks []model.ManagedBlock
	opens := h.style.openFind.FindAllStringSubmatchIndex(source, -1)

	searchFrom := 0
	for _, om := range opens {
		openStart, openEnd := om[0], om[1]
		if openStart < searchFrom {
			continue
		}
		uuid := source[om[2]:om[3]]

		closeRe := h.style.closeFindForUUID(uuid)
		cm := closeRe.FindStringSubmatchIndex(source[openEnd:])
		if cm == nil {
			// Unterminated block: no matching close marker. Skip it rather
			// than mis-pairing with an unrelated block's close marker.
			continue
		}
		closeStart := openEnd + cm[0]
		closeEnd := openEnd + cm[1]

		contentStart, contentEnd := trimBlockContent(source, openEnd, closeStart)

		blocks = append(blocks, model.ManagedBlock{
			UUID:        uuid,
			Format:      h.formatHint(),
			StartSpan:   model.Span{Offset: openStart, Length: openEnd - openStart},
			ContentSpan: model.Span{Offset: contentStart, Length: contentEnd - contentStart},
			EndSpan:     model.Span{Offset: closeStart, Length: closeEnd - closeStart},
		})
		searchFrom = closeEnd
	}
	return blocks, nil
}

// trimBlockContent drops exactly one leading and one trailing newline
// (the separators inserted by InsertBlock) so round-tripped content does
// not accumulate blank lines.
func trimBlockContent(source string, start, end int) (int, int) {
	if start < end && source[start] == '\n' {
		start++
	}
	if end > start && source[end-1] == '\n' {
		end--
	}
	return start, end
}

func (h commentHandler) formatHint() model.Format {
	if h.style.openTemplate == htmlCommentStyle.openTemplate {
		return model.FormatMarkdown
	}
	return model.FormatTOML
}

func (h commentHandler) FindBlockByUUID(source, uuid string) (*model.ManagedBlock, error) {
	escaped := regexp.QuoteMeta(uuid)
	openPat := strings.Replace(h.style.openFind.String(), "("+uuidPattern+")", "("+escaped+")", 1)
	openRe := regexp.MustCompile(openPat)

	loc := openRe.FindStringSubmatchIndex(source)
	if loc == nil {
		return nil, nil
	}
	openStart, openEnd := loc[0], loc[1]

	closeRe := h.style.closeFindForUUID(uuid)
	cm := closeRe.FindStringSubmatchIndex(source[openEnd:])
	if cm == nil {
		return nil, nil
	}
	closeStart := openEnd + cm[0]
	closeEnd := openEnd + cm[1]
	contentStart, contentEnd := trimBlockContent(source, openEnd, closeStart)

	return &model.ManagedBlock{
		UUID:        uuid,
		Format:      h.formatHint(),
		StartSpan:   model.Span{Offset: openStart, Length: openEnd - openStart},
		ContentSpan: model.Span{Offset: contentStart, Length: contentEnd - contentStart},
		EndSpan:     model.Span{Offset: closeStart, Length: closeEnd - closeStart},
	}, nil
}

func (h commentHandler) InsertBlock(source, uuid, content string, loc model.BlockLocation) (string, model.Edit, error) {
	offset, err := h.resolveInsertOffset(source, loc)
	if err != nil {
		return "", model.Edit{}, err
	}

	rendered := h.style.openMarker(uuid) + "\n" + content + "\n" + h.style.closeMarker(uuid) + "\n"
	if offset > 0 && source[offset-1] != '\n' {
		rendered = "\n" + rendered
	}

	edit := model.Edit{Offset: offset, Removed: 0, Inserted: rendered}
	return edit.Apply(source), edit, nil
}

func (h commentHandler) resolveInsertOffset(source string, loc model.BlockLocation) (int, error) {
	switch loc.Kind {
	case model.LocationStartOfFile:
		return 0, nil
	case model.LocationEndOfFile:
		return len(source), nil
	case model.LocationOffset:
		return clampOffset(loc.Offset, len(source)), nil
	case model.LocationAfterBlock:
		blk, err := h.FindBlockByUUID(source, loc.AfterUUID)
		if err != nil {
			return 0, err
		}
		if blk == nil {
			return 0, blockNotFound(loc.AfterUUID)
		}
		return blk.EndSpan.Offset + blk.EndSpan.Length, nil
	default:
		return len(source), nil
	}
}

func (h commentHandler) UpdateBlock(source, uuid, newContent string) (string, model.Edit, error) {
	blk, err := h.FindBlockByUUID(source, uuid)
	if err != nil {
		return "", model.Edit{}, err
	}
	if blk == nil {
		return "", model.Edit{}, blockNotFound(uuid)
	}

	edit := model.Edit{
		Offset:   blk.ContentSpan.Offset,
		Removed:  blk.ContentSpan.Length,
		Inserted: newContent,
	}
	return edit.Apply(source), edit, nil
}

func (h commentHandler) RemoveBlock(source, uuid string) (string, model.Edit, error) {
	blk, err := h.FindBlockByUUID(source, uuid)
	if err != nil {
		return "", model.Edit{}, err
	}
	if blk == nil {
		return "", model.Edit{}, blockNotFound(uuid)
	}

	start := blk.StartSpan.Offset
	end := blk.EndSpan.Offset + blk.EndSpan.Length
	// Absorb one trailing newline after the close marker so repeated
	// insert/remove cycles don't accumulate blank lines.
	if end < len(source) && source[end] == '\n' {
		end++
	}

	edit := model.Edit{
		Offset:   start,
		Removed:  end - start,
		Inserted: "",
	}
	return edit.Apply(source), edit, nil
}
