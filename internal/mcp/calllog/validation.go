package calllog

import (
	"strings"
	"unicode/utf8"

	errors "github.com/Laisky/errors/v2"
)

const (
	// maxToolNameLength caps tool name filter length.
	maxToolNameLength = 64
	// maxTenantIDLength caps tenant filter length.
	maxTenantIDLength = 64
	// maxErrorMessageLength caps the stored error text.
	maxErrorMessageLength = 2048
)

// sanitizeOptionalText trims input, rejects null bytes and enforces maxLen runes.
func sanitizeOptionalText(input string, maxLen int, field string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", nil
	}
	if strings.ContainsRune(trimmed, '\x00') {
		return "", errors.Errorf("%s contains invalid null byte", field)
	}
	if utf8.RuneCountInString(trimmed) > maxLen {
		return "", errors.Errorf("%s exceeds max length %d", field, maxLen)
	}
	return trimmed, nil
}

// truncateRunes cuts s to at most maxLen runes.
func truncateRunes(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen])
}
