// Package ai provides the document-analysis capability behind the
// enrichment pipeline. Providers are selected by configuration at startup;
// every provider implements the same capability interface so the pipeline
// never knows which one it talks to.
package ai

import "context"

// Analysis is the combined outcome of one analysis call.
type Analysis struct {
	Summary    string   `json:"summary"`
	Category   string   `json:"category"`
	Tags       []string `json:"tags"`
	Confidence float64  `json:"confidence"`
	Language   string   `json:"language"`
}

// Classification is the outcome of a category-only call.
type Classification struct {
	Category    string  `json:"category"`
	Confidence  float64 `json:"confidence"`
	Subcategory string  `json:"subcategory"`
}

// Analyzer is the capability interface for document analysis providers.
type Analyzer interface {
	Analyze(ctx context.Context, content, fileName, contentType string) (*Analysis, error)
	Classify(ctx context.Context, content, fileName string) (*Classification, error)
	GenerateTags(ctx context.Context, content string) ([]string, error)
	Summarize(ctx context.Context, content string, maxLength int) (string, error)
}
