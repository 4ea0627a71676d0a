package api

import "github.com/K11E3R/moroccan-education-API/internal/domain"

// ListResponse is the envelope of every list endpoint.
type ListResponse[T any] struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	Data    []T  `json:"data"`
}

// ItemResponse wraps a single record.
type ItemResponse[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
}

// SearchResponse is returned by the search endpoint.
type SearchResponse struct {
	Success      bool          `json:"success"`
	Query        string        `json:"query"`
	Language     string        `json:"language"`
	TotalResults int           `json:"total_results"`
	Results      SearchResults `json:"results"`
}

// Stats is the payload of the stats endpoint.
type Stats struct {
	domain.Metadata
	LastUpdate string `json:"last_update"`
	DataSource string `json:"data_source"`
	APIVersion string `json:"api_version"`
	Status     string `json:"status"`
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status     string         `json:"status"`
	Timestamp  string         `json:"timestamp"`
	DataLoaded bool           `json:"data_loaded"`
	Checks     map[string]any `json:"checks,omitempty"`
}

// paginate returns items[offset:offset+limit], clamped, never nil.
func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := items[offset:end]
	if out == nil {
		return []T{}
	}
	return out
}

func newList[T any](items []T, limit, offset int) ListResponse[T] {
	page := paginate(items, limit, offset)
	return ListResponse[T]{
		Success: true,
		Count:   len(page),
		Total:   len(items),
		Limit:   limit,
		Offset:  offset,
		Data:    page,
	}
}
