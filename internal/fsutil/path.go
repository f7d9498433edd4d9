package fsutil

import "strings"

// NormalizedPath is a path stored as a forward-slash string, cleaned of
// redundant "." segments and sandboxed against "../" escape.
type NormalizedPath struct {
	raw string
}

// NewNormalizedPath constructs a NormalizedPath from an arbitrary input
// path. "." segments are dropped, ".." segments are resolved against the
// accumulated prefix, and a leading ".." that would escape the root is
// dropped (sandbox behavior) rather than allowed to climb above it.
// Backslashes are normalized to forward slashes; Windows UNC prefixes and
// drive letters are preserved.
func NewNormalizedPath(input string) NormalizedPath {
	if input == "" {
		return NormalizedPath{raw: ""}
	}

	prefix, rest := splitWindowsPrefix(input)
	rest = strings.ReplaceAll(rest, "\\", "/")

	absolute := strings.HasPrefix(rest, "/")
	segments := strings.Split(rest, "/")

	var out []string
	for _, seg := range segments {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(out) > 0 && out[len(out)-1] != ".." {
				out = out[:len(out)-1]
			} else if !absolute && prefix == "" {
				// Sandboxed: drop a leading ".." that would escape the root
				// rather than letting it climb above it.
				continue
			}
			// Within a UNC/drive-letter-rooted or already-absolute path, a
			// leading ".." has nowhere to climb to either; drop it the same way.
		default:
			out = append(out, seg)
		}
	}

	joined := strings.Join(out, "/")
	switch {
	case prefix != "":
		joined = prefix + "/" + joined
	case absolute:
		joined = "/" + joined
	}

	if joined == "" {
		joined = "."
	}
	return NormalizedPath{raw: joined}
}

// splitWindowsPrefix extracts a UNC (\\server\share) or drive-letter (C:)
// prefix from input, returning the prefix (already forward-slashed, no
// trailing slash) and the remainder.
func splitWindowsPrefix(input string) (prefix, rest string) {
	if len(input) >= 2 && input[1] == ':' && isASCIILetter(input[0]) {
		return input[:2], input[2:]
	}
	if strings.HasPrefix(input, `\\`) || strings.HasPrefix(input, "//") {
		normalized := strings.ReplaceAll(input, "\\", "/")
		rest := strings.TrimPrefix(normalized, "//")
		parts := strings.SplitN(rest, "/", 3)
		if len(parts) >= 2 {
			p := "//" + parts[0] + "/" + parts[1]
			remainder := ""
			if len(parts) == 3 {
				remainder = "/" + parts[2]
			}
			return p, remainder
		}
	}
	return "", input
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// String returns the canonical forward-slash form.
func (p NormalizedPath) String() string {
	return p.raw
}

// Join appends a child segment, normalizing the result.
func (p NormalizedPath) Join(child string) NormalizedPath {
	if p.raw == "" || p.raw == "." {
		return NewNormalizedPath(child)
	}
	return NewNormalizedPath(p.raw + "/" + child)
}

// IsEmpty reports whether the path has no content.
func (p NormalizedPath) IsEmpty() bool {
	return p.raw == "" || p.raw == "."
}

// IsWithin reports whether p, resolved relative to root, does not escape
// root. root is itself normalized first. A p that is already absolute is
// compared directly against root rather than joined onto it (joining an
// absolute path under root would make the prefix check vacuously true).
func (p NormalizedPath) IsWithin(root string) bool {
	normalizedRoot := NewNormalizedPath(root)

	isAbsolute := strings.HasPrefix(p.raw, "/") || isWindowsAbsolute(p.raw)
	joined := p
	if !isAbsolute {
		joined = normalizedRoot.Join(p.raw)
	}

	if normalizedRoot.raw == "" || normalizedRoot.raw == "." {
		return !isAbsolute && !strings.HasPrefix(p.raw, "../") && p.raw != ".."
	}
	return joined.raw == normalizedRoot.raw || strings.HasPrefix(joined.raw, normalizedRoot.raw+"/")
}

// isWindowsAbsolute reports whether raw (already forward-slash normalized)
// carries a drive-letter or UNC prefix.
func isWindowsAbsolute(raw string) bool {
	if len(raw) >= 2 && raw[1] == ':' && isASCIILetter(raw[0]) {
		return true
	}
	return strings.HasPrefix(raw, "//")
}
