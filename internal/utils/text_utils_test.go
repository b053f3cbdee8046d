package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newSanitizer() *TextSanitizer {
	return NewTextSanitizer(zap.NewNop())
}

func TestStripControl(t *testing.T) {
	ts := newSanitizer()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text untouched", "mailbox does not exist", "mailbox does not exist"},
		{"crlf folded to spaces", "line one\r\nline two", "line one  line two"},
		{"tab folded to space", "col1\tcol2", "col1 col2"},
		{"other controls dropped", "ding\x07dong\x1b", "dingdong"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ts.StripControl(tc.in))
		})
	}
}

func TestSanitizeUTF8(t *testing.T) {
	ts := newSanitizer()

	assert.Equal(t, "café", ts.SanitizeUTF8("café"))
	assert.Equal(t, "ab", ts.SanitizeUTF8("a\xffb"))
}

func TestTruncateReply(t *testing.T) {
	ts := newSanitizer()

	assert.Equal(t, "abc", ts.TruncateReply("abcdef", 3))
	assert.Equal(t, "abcdef", ts.TruncateReply("abcdef", 10))
	assert.Equal(t, "abcdef", ts.TruncateReply("abcdef", 0), "zero means no limit")

	// Truncation must not cut a multi-byte rune in half.
	got := ts.TruncateReply("café", 4)
	assert.Equal(t, "caf", got)
}

func TestSanitizeReplyBlocksReplyInjection(t *testing.T) {
	ts := newSanitizer()

	got := ts.SanitizeReply("no mailbox\r\n250 OK injected", 400)
	assert.NotContains(t, got, "\r")
	assert.NotContains(t, got, "\n")
	assert.Contains(t, got, "no mailbox")
}

func TestSanitizeReplyTruncatesLongReasons(t *testing.T) {
	ts := newSanitizer()

	long := strings.Repeat("x", 1000)
	got := ts.SanitizeReply(long, 400)
	assert.Len(t, got, 400)
}
