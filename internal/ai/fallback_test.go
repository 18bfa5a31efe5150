package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackGenerateTags(t *testing.T) {
	f := NewFallback()

	content := "invoice invoice invoice payment payment total due due net amounts"
	tags, err := f.GenerateTags(context.Background(), content)
	require.NoError(t, err)

	// Most frequent first; words shorter than four letters are ignored.
	require.NotEmpty(t, tags)
	assert.Equal(t, "invoice", tags[0])
	assert.NotContains(t, tags, "due")
	assert.NotContains(t, tags, "net")
	assert.LessOrEqual(t, len(tags), 5)
}

func TestFallbackSummarize(t *testing.T) {
	f := NewFallback()

	t.Run("takes leading sentences", func(t *testing.T) {
		got, err := f.Summarize(context.Background(), "First point. Second point. Third point.", 30)
		require.NoError(t, err)
		assert.Equal(t, "First point. Second point.", got)
	})

	t.Run("empty input", func(t *testing.T) {
		got, err := f.Summarize(context.Background(), "   ", 100)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("single oversized sentence truncated", func(t *testing.T) {
		long := "word word word word word word word word word word"
		got, err := f.Summarize(context.Background(), long, 10)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(got), 10)
		assert.NotEmpty(t, got)
	})
}

func TestFallbackCategoryFromName(t *testing.T) {
	tests := []struct {
		fileName    string
		contentType string
		want        string
	}{
		{"report.pdf", "application/pdf", "document"},
		{"letter.DOCX", "", "document"},
		{"sheet.xlsx", "", "spreadsheet"},
		{"notes.md", "", "text"},
		{"raw", "text/plain", "text"},
		{"blob.bin", "application/octet-stream", "other"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, categoryFromName(tt.fileName, tt.contentType), tt.fileName)
	}
}

func TestFallbackAnalyze(t *testing.T) {
	f := NewFallback()

	got, err := f.Analyze(context.Background(), "Meeting notes. Budget approved for the quarter.", "notes.txt", "text/plain")
	require.NoError(t, err)

	assert.Equal(t, "text", got.Category)
	assert.Equal(t, "en", got.Language)
	assert.NotEmpty(t, got.Summary)
	assert.InDelta(t, 0.3, got.Confidence, 1e-9)
}

func TestDetectLanguage(t *testing.T) {
	assert.Equal(t, "en", detectLanguage("plain english text here"))
	assert.Equal(t, "unknown", detectLanguage(""))
	assert.Equal(t, "unknown", detectLanguage("これは日本語のテキストです"))
	assert.Equal(t, "unknown", detectLanguage("123 456 ..."))
}
