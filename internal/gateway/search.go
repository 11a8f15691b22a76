package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	searchTimeout    = 30 * time.Second
	defaultResults   = 5
	maxSearchResults = 10
	searchUserAgent  = "Mozilla/5.0 (compatible; tutorctl/1.0)"
)

// WebSearcher implements Searcher over a configurable HTTP backend.
type WebSearcher struct {
	Provider string // "tavily" or "jina"
	APIKey   string

	// HTTPClient overrides http.DefaultClient (used in tests).
	HTTPClient *http.Client
}

// NewWebSearcher creates a WebSearcher.
// Provider priority: explicit > tavily (if key set) > jina (free fallback).
func NewWebSearcher(provider, apiKey string) *WebSearcher {
	if provider == "" {
		if apiKey != "" {
			provider = "tavily"
		} else {
			provider = "jina"
		}
	}
	return &WebSearcher{Provider: provider, APIKey: apiKey}
}

func (s *WebSearcher) httpClient() *http.Client {
	if s.HTTPClient != nil {
		return s.HTTPClient
	}
	return http.DefaultClient
}

func (s *WebSearcher) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if maxResults <= 0 {
		maxResults = defaultResults
	}
	if maxResults > maxSearchResults {
		maxResults = maxSearchResults
	}

	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	switch s.Provider {
	case "tavily":
		return s.searchTavily(ctx, query, maxResults)
	default:
		return s.searchJina(ctx, query, maxResults)
	}
}

// searchTavily queries the Tavily search API.
func (s *WebSearcher) searchTavily(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if s.APIKey == "" {
		return nil, fmt.Errorf("tavily API key not configured")
	}

	reqBody, _ := json.Marshal(map[string]any{
		"query":        query,
		"max_results":  maxResults,
		"search_depth": "basic",
	})

	req, err := http.NewRequestWithContext(ctx, "POST", "https://api.tavily.com/search", strings.NewReader(string(reqBody)))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.APIKey)

	resp, err := s.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("tavily API error (HTTP %d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("parse search response: %w", err)
	}

	results := make([]Result, 0, len(result.Results))
	for _, r := range result.Results {
		results = append(results, Result{Title: r.Title, URL: r.URL, Snippet: r.Content})
	}
	return results, nil
}

// searchJina queries the Jina Search API (free, no key required).
func (s *WebSearcher) searchJina(ctx context.Context, query string, maxResults int) ([]Result, error) {
	searchURL := "https://s.jina.ai/" + url.PathEscape(query)
	req, err := http.NewRequestWithContext(ctx, "GET", searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", searchUserAgent)
	if s.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.APIKey)
	}

	resp, err := s.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("jina API error (HTTP %d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		Data []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("parse search response: %w", err)
	}

	results := make([]Result, 0, len(result.Data))
	for _, r := range result.Data {
		if len(results) >= maxResults {
			break
		}
		results = append(results, Result{Title: r.Title, URL: r.URL, Snippet: r.Description})
	}
	return results, nil
}

// FormatResults renders search hits as a sources block for the instruction
// channel.
func FormatResults(query string, results []Result) string {
	if len(results) == 0 {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Web search results for %q:\n", query)
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. %s\n   %s\n   %s\n", i+1, r.Title, r.URL, r.Snippet)
	}
	return sb.String()
}
