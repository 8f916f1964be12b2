package convert

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

const maxFileNameLength = 255

var unsafeFileChars = regexp.MustCompile(`[^\p{L}\p{N}_-]+`)

// SanitizeFileName derives the markdown file name (without extension) from
// a document path: the base name without extension, with runs of characters
// other than letters, digits, underscores and hyphens replaced by "_".
func SanitizeFileName(path string) string {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	name = strings.Trim(unsafeFileChars.ReplaceAllString(name, "_"), "_")
	for len(name) > maxFileNameLength {
		_, size := utf8.DecodeLastRuneInString(name)
		name = name[:len(name)-size]
	}
	if name == "" || name == "." {
		return "document"
	}
	return name
}
