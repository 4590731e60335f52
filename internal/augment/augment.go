// Package augment enriches the research stage's prompt context with external
// web-search results. Augmentation is strictly best-effort: every failure
// degrades to an empty result and never reaches the pipeline.
package augment

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

const (
	// maxResults bounds how many search hits feed the prompt.
	maxResults = 5
	// snippetLimit truncates each result's text contribution.
	snippetLimit = 300
	// searchTimeout is the augmentor's own internal deadline; a slow search
	// provider must not stall the pipeline.
	searchTimeout = 10 * time.Second
)

// Augmentor supplies supplementary context for a search query. An empty
// return value means no augmentation is available.
type Augmentor interface {
	Augment(ctx context.Context, query string) string
}

// disabled is the no-op variant selected when credentials are absent.
type disabled struct{}

func (disabled) Augment(context.Context, string) string { return "" }

// Disabled returns an Augmentor that always yields nothing.
func Disabled() Augmentor { return disabled{} }

// SearchAugmentor queries Google Custom Search and formats the top hits as
// short bullet lines.
type SearchAugmentor struct {
	svc *customsearch.Service
	cx  string
}

// NewSearchAugmentor creates a search-backed augmentor.
func NewSearchAugmentor(ctx context.Context, apiKey, cx string) (*SearchAugmentor, error) {
	if apiKey == "" || cx == "" {
		return nil, fmt.Errorf("search API key and engine ID are required")
	}
	svc, err := customsearch.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create customsearch service: %w", err)
	}
	return &SearchAugmentor{svc: svc, cx: cx}, nil
}

// FromEnv builds an Augmentor from SEARCH_API_KEY and SEARCH_ENGINE_ID,
// falling back to the disabled variant when either is unset or the service
// cannot be constructed.
func FromEnv(ctx context.Context) Augmentor {
	apiKey := os.Getenv("SEARCH_API_KEY")
	cx := os.Getenv("SEARCH_ENGINE_ID")
	if apiKey == "" || cx == "" {
		return Disabled()
	}
	aug, err := NewSearchAugmentor(ctx, apiKey, cx)
	if err != nil {
		return Disabled()
	}
	return aug
}

// Augment runs the search and formats matches as bullet lines. Any provider
// failure returns the empty string.
func (s *SearchAugmentor) Augment(ctx context.Context, query string) string {
	callCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	resp, err := s.svc.Cse.List().Context(callCtx).Cx(s.cx).Q(query).Num(maxResults).Do()
	if err != nil {
		return ""
	}
	return formatResults(resp.Items)
}

// formatResults renders search hits as "- Title: snippet (link)" lines.
func formatResults(items []*customsearch.Result) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		if item == nil || item.Title == "" {
			continue
		}
		snippet := strings.TrimSpace(item.Snippet)
		if len(snippet) > snippetLimit {
			snippet = snippet[:snippetLimit]
		}
		line := "- " + item.Title
		if snippet != "" {
			line += ": " + snippet
		}
		if item.Link != "" {
			line += " (" + item.Link + ")"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
