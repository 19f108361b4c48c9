// utils/validator.go - Input validation
package utils

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

var unsafeFilenameChars = regexp.MustCompile(`[^\p{L}\p{N}._\- ()]+`)

// SanitizeInput removes potentially harmful characters
func SanitizeInput(input string) string {
	// Remove leading/trailing spaces
	input = strings.TrimSpace(input)

	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	return input
}

// SanitizeFilename reduces an uploaded file name to a single safe path segment.
// It returns "" when nothing usable remains.
func SanitizeFilename(name string) string {
	name = SanitizeInput(strings.ReplaceAll(name, "\\", "/"))
	name = filepath.Base(name)
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, ". ")
	if name == "" || name == "_" {
		return ""
	}
	if len(name) > 200 {
		ext := filepath.Ext(name)
		if len(ext) > 20 {
			ext = ""
		}
		cut := 200 - len(ext)
		for cut > 0 && !utf8.RuneStart(name[cut]) {
			cut--
		}
		name = name[:cut] + ext
	}
	return name
}

// FileTypeFromName returns the lower-case extension without the dot.
func FileTypeFromName(name string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
}
