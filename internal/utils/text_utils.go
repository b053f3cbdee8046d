package utils

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
)

// TextSanitizer prepares remote-supplied text for use in single-line
// protocol replies
type TextSanitizer struct {
	logger *zap.Logger
}

// NewTextSanitizer creates a new TextSanitizer
func NewTextSanitizer(logger *zap.Logger) *TextSanitizer {
	return &TextSanitizer{
		logger: logger,
	}
}

// StripControl folds CR, LF, and TAB into spaces and drops every other
// control character, so remote text cannot break out of a reply line
func (ts *TextSanitizer) StripControl(text string) string {
	return strings.Map(func(r rune) rune {
		if r == '\r' || r == '\n' || r == '\t' {
			return ' '
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, text)
}

// SanitizeUTF8 ensures the string contains only valid UTF-8 characters
func (ts *TextSanitizer) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}

	result := make([]rune, 0, len(text))
	for i, r := range text {
		if r == utf8.RuneError {
			_, size := utf8.DecodeRuneInString(text[i:])
			if size == 1 {
				// Skip invalid UTF-8 sequences
				continue
			}
		}
		result = append(result, r)
	}

	ts.logger.Debug("Text sanitized",
		zap.Int("original_size", len(text)),
		zap.Int("sanitized_size", len(string(result))))

	return string(result)
}

// TruncateReply safely truncates text to the specified maximum size in
// bytes and ensures the result ends on a valid UTF-8 boundary
func (ts *TextSanitizer) TruncateReply(text string, maxSize int) string {
	// If no limit or text is already within limits, return as is
	if maxSize <= 0 || len(text) <= maxSize {
		return text
	}

	// First truncate to the byte limit
	truncated := text[:maxSize]

	// Ensure the truncated text ends with a valid UTF-8 sequence
	for !utf8.ValidString(truncated) && len(truncated) > 0 {
		truncated = truncated[:len(truncated)-1]
	}

	ts.logger.Debug("Reply truncated",
		zap.Int("original_size", len(text)),
		zap.Int("truncated_size", len(truncated)),
		zap.Int("max_size", maxSize))

	return truncated
}

// SanitizeReply strips, sanitizes, and truncates text in one operation
func (ts *TextSanitizer) SanitizeReply(text string, maxSize int) string {
	stripped := ts.StripControl(text)

	sanitized := ts.SanitizeUTF8(stripped)

	return ts.TruncateReply(sanitized, maxSize)
}
