// Package catalog queries the Google Books volumes API and normalizes
// results into the shape the curation workflow persists.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"biblioteca/internal/config"
)

// MinSearchTermLength is the minimum trimmed length of a search term.
const MinSearchTermLength = 2

// Defaults applied when the upstream record omits a field, so that every
// SearchResult is fully populated.
const (
	DefaultAuthor      = "Unknown author"
	DefaultDescription = "No description available"
	DefaultImageURL    = "https://via.placeholder.com/150"
	DefaultPublisher   = "Unknown publisher"
	DefaultPublished   = "Unknown date"
	DefaultLanguage    = "pt"
)

var (
	// ErrTermTooShort is returned for search terms shorter than
	// MinSearchTermLength after trimming. No request is issued.
	ErrTermTooShort = errors.New("search term must have at least 2 characters")

	// ErrMissingAPIKey is returned when no catalog API key is configured.
	ErrMissingAPIKey = errors.New("catalog API key is not configured")
)

// UpstreamError reports a non-2xx response from the catalog API.
type UpstreamError struct {
	StatusCode int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("catalog API returned status %d", e.StatusCode)
}

// SearchResult is a transient catalog item. ID is the external catalog
// identifier; it is never used as a persisted book id.
type SearchResult struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Author        string   `json:"author"`
	Description   string   `json:"description"`
	ImageURL      string   `json:"imageUrl"`
	Publisher     string   `json:"publisher"`
	PublishedDate string   `json:"publishedDate"`
	PageCount     int      `json:"pageCount"`
	Categories    []string `json:"categories"`
	Language      string   `json:"language"`
}

// Client fetches book data from the Google Books volumes API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	language   string
}

// NewClient creates a catalog client from configuration.
func NewClient(cfg config.Catalog) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = config.DefaultCatalogURL
	}
	language := cfg.Language
	if language == "" {
		language = DefaultLanguage
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		language:   language,
	}
}

// Search queries the volumes endpoint for the given term. An upstream
// response without an items array yields an empty slice, not an error.
func (c *Client) Search(ctx context.Context, term string) ([]SearchResult, error) {
	term = strings.TrimSpace(term)
	if len([]rune(term)) < MinSearchTermLength {
		return nil, ErrTermTooShort
	}
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	params := url.Values{}
	params.Set("q", term)
	params.Set("key", c.apiKey)
	params.Set("langRestrict", c.language)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{StatusCode: resp.StatusCode}
	}

	var payload volumesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	// "No matches" is a valid outcome, distinct from a failed request.
	if len(payload.Items) == 0 {
		return []SearchResult{}, nil
	}

	results := make([]SearchResult, 0, len(payload.Items))
	for _, item := range payload.Items {
		results = append(results, convertVolume(item))
	}
	return results, nil
}

func convertVolume(item volumeItem) SearchResult {
	info := item.VolumeInfo

	result := SearchResult{
		ID:            item.ID,
		Title:         info.Title,
		Author:        DefaultAuthor,
		Description:   DefaultDescription,
		ImageURL:      DefaultImageURL,
		Publisher:     DefaultPublisher,
		PublishedDate: DefaultPublished,
		PageCount:     info.PageCount,
		Categories:    []string{},
		Language:      DefaultLanguage,
	}

	if len(info.Authors) > 0 {
		result.Author = info.Authors[0]
	}
	if info.Description != "" {
		result.Description = info.Description
	}
	if info.ImageLinks != nil && info.ImageLinks.Thumbnail != "" {
		result.ImageURL = info.ImageLinks.Thumbnail
	}
	if info.Publisher != "" {
		result.Publisher = info.Publisher
	}
	if info.PublishedDate != "" {
		result.PublishedDate = info.PublishedDate
	}
	if len(info.Categories) > 0 {
		result.Categories = info.Categories
	}
	if info.Language != "" {
		result.Language = info.Language
	}

	return result
}

// Google Books API response types (internal)

type volumesResponse struct {
	TotalItems int          `json:"totalItems"`
	Items      []volumeItem `json:"items"`
}

type volumeItem struct {
	ID         string     `json:"id"`
	VolumeInfo volumeInfo `json:"volumeInfo"`
}

type volumeInfo struct {
	Title         string      `json:"title"`
	Authors       []string    `json:"authors"`
	Description   string      `json:"description"`
	ImageLinks    *imageLinks `json:"imageLinks"`
	Publisher     string      `json:"publisher"`
	PublishedDate string      `json:"publishedDate"`
	PageCount     int         `json:"pageCount"`
	Categories    []string    `json:"categories"`
	Language      string      `json:"language"`
}

type imageLinks struct {
	SmallThumbnail string `json:"smallThumbnail"`
	Thumbnail      string `json:"thumbnail"`
}
