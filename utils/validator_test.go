package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"fileA.pdf":           "fileA.pdf",
		"  site plan (1).pdf": "site plan (1).pdf",
		"../../etc/passwd":    "passwd",
		`C:\Users\me\a.pdf`:   "a.pdf",
		"bad$name?.pdf":       "bad_name_.pdf",
		"...":                 "",
		"":                    "",
		"résumé.pdf":          "résumé.pdf",
	}
	for in, want := range cases {
		assert.Equal(t, want, SanitizeFilename(in), in)
	}

	long := SanitizeFilename(strings.Repeat("a", 300) + ".pdf")
	assert.Len(t, long, 200)
	assert.True(t, strings.HasSuffix(long, ".pdf"))
}

func TestSanitizeFilenameTruncatesOnRuneBoundary(t *testing.T) {
	got := SanitizeFilename("a" + strings.Repeat("é", 150) + ".pdf")
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), 200)
	assert.Equal(t, "a"+strings.Repeat("é", 97)+".pdf", got)
}

func TestFileTypeFromName(t *testing.T) {
	assert.Equal(t, "pdf", FileTypeFromName("Plan.PDF"))
	assert.Equal(t, "", FileTypeFromName("README"))
}
