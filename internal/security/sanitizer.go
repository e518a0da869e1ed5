package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var htmlPolicy = bluemonday.StrictPolicy()

const maxNoteLength = 1000

// SanitizeText normalizes free-text admin input (notes, display names)
// before it is persisted into the audit trail: HTML stripped, whitespace
// trimmed, null bytes removed, length capped.
func SanitizeText(input string) string {
	input = htmlPolicy.Sanitize(input)
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, "\x00", "")
	if len(input) > maxNoteLength {
		input = input[:maxNoteLength]
	}
	return input
}
