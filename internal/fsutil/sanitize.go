package fsutil

import (
	"strings"
	"unicode"
)

const maxFilenameLen = 200

// SanitizeFilename makes a human-chosen name safe to use in a
// Content-Disposition header and on common filesystems: path
// separators and traversal sequences are neutralized, control and
// reserved characters are replaced, and the result is length-capped.
// The empty and all-junk cases fall back to "download".
func SanitizeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' ||
			r == '"' || r == '<' || r == '>' || r == '|' || r == 0:
			b.WriteByte('_')
		case unicode.IsControl(r):
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}

	out := strings.TrimSpace(b.String())
	// No hidden files, no "..".
	out = strings.TrimLeft(out, ".")
	for strings.Contains(out, "..") {
		out = strings.ReplaceAll(out, "..", ".")
	}

	if len(out) > maxFilenameLen {
		out = out[:maxFilenameLen]
	}
	if out == "" {
		return "download"
	}
	return out
}
