package ai

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
)

// Fallback is the degraded provider used when no API key is configured or
// the configured provider is unknown. It derives a best-effort summary,
// category and tags from the text itself so the pipeline keeps working
// without a remote call.
type Fallback struct{}

func NewFallback() *Fallback {
	return &Fallback{}
}

func (f *Fallback) Analyze(ctx context.Context, content, fileName, contentType string) (*Analysis, error) {
	summary, _ := f.Summarize(ctx, content, 200)
	tags, _ := f.GenerateTags(ctx, content)
	return &Analysis{
		Summary:    summary,
		Category:   categoryFromName(fileName, contentType),
		Tags:       tags,
		Confidence: 0.3,
		Language:   detectLanguage(content),
	}, nil
}

func (f *Fallback) Classify(ctx context.Context, content, fileName string) (*Classification, error) {
	return &Classification{
		Category:   categoryFromName(fileName, ""),
		Confidence: 0.3,
	}, nil
}

// GenerateTags picks the most frequent words of four letters or more.
func (f *Fallback) GenerateTags(ctx context.Context, content string) ([]string, error) {
	counts := make(map[string]int)
	for _, word := range strings.FieldsFunc(strings.ToLower(content), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		if len(word) >= 4 {
			counts[word]++
		}
	}

	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})
	if len(words) > 5 {
		words = words[:5]
	}
	return words, nil
}

// Summarize returns the leading sentences up to maxLength characters.
func (f *Fallback) Summarize(ctx context.Context, content string, maxLength int) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", nil
	}

	var summary strings.Builder
	for _, sentence := range strings.FieldsFunc(content, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '。'
	}) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		if summary.Len()+len(sentence)+2 > maxLength {
			break
		}
		summary.WriteString(sentence)
		summary.WriteString(". ")
	}
	if summary.Len() == 0 {
		runes := []rune(content)
		if len(runes) > maxLength {
			runes = runes[:maxLength]
		}
		return string(runes), nil
	}
	return strings.TrimSpace(summary.String()), nil
}

func categoryFromName(fileName, contentType string) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return "document"
	case ".doc", ".docx":
		return "document"
	case ".csv", ".xls", ".xlsx":
		return "spreadsheet"
	case ".md", ".txt", ".log":
		return "text"
	}
	if strings.Contains(contentType, "text") {
		return "text"
	}
	return "other"
}

// detectLanguage is a coarse ASCII-ratio heuristic, enough to separate
// Latin-script text from everything else.
func detectLanguage(content string) string {
	if content == "" {
		return "unknown"
	}
	var ascii, total int
	for _, r := range content {
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsNumber(r) {
			continue
		}
		total++
		if r < 128 {
			ascii++
		}
	}
	if total == 0 {
		return "unknown"
	}
	if float64(ascii)/float64(total) > 0.9 {
		return "en"
	}
	return "unknown"
}
