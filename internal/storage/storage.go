// Package storage holds helpers shared by the attachment store backends.
package storage

import (
	"path"
	"strings"

	"github.com/google/uuid"
)

// Prefix is the key prefix under which every attachment is written.
const Prefix = "activity-attachments"

// ObjectKey returns a fresh, collision-free key for an uploaded file. The
// original extension is kept so downstream viewers can infer the type.
func ObjectKey(originalName string) string {
	ext := strings.ToLower(path.Ext(SanitizeFilename(originalName)))
	if len(ext) > 16 || strings.ContainsAny(ext, " ") {
		ext = ""
	}
	return Prefix + "/" + uuid.NewString() + ext
}

// SanitizeFilename strips quotes, path separators and control characters.
func SanitizeFilename(name string) string {
	cleaned := strings.ReplaceAll(name, "\"", "")
	cleaned = strings.ReplaceAll(cleaned, "\\", "")
	cleaned = strings.ReplaceAll(cleaned, "/", "")
	cleaned = strings.ReplaceAll(cleaned, "..", "")
	b := make([]rune, 0, len(cleaned))
	for _, r := range cleaned {
		if r < 32 || r == 127 {
			continue
		}
		b = append(b, r)
	}
	s := strings.Join(strings.Fields(string(b)), " ")
	if s == "" {
		s = "file"
	}
	return s
}
