package models

import "fmt"

// MediaFilter restricts search results to one media class. "all" (or empty)
// keeps everything.
type MediaFilter string

const (
	FilterAll   MediaFilter = "all"
	FilterText  MediaFilter = "text"
	FilterImage MediaFilter = "image"
	FilterAudio MediaFilter = "audio"
)

// Matches reports whether a record of the given class passes the filter.
func (f MediaFilter) Matches(mc MediaClass) bool {
	switch f {
	case "", FilterAll:
		return true
	default:
		return MediaClass(f) == mc
	}
}

// SearchQuery is a hybrid search request.
type SearchQuery struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
	// Media filters results by media class before truncation.
	Media MediaFilter `json:"media,omitempty"`
	// CrossModal also queries the visual-space collection with a
	// text-encoded query vector when that collection has entries.
	CrossModal bool `json:"cross_modal,omitempty"`
}

// Validate checks required fields and normalizes the limit.
func (q *SearchQuery) Validate() error {
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if q.Limit <= 0 {
		q.Limit = 10
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	switch q.Media {
	case "", FilterAll, FilterText, FilterImage, FilterAudio:
	default:
		return fmt.Errorf("unknown media filter %q", q.Media)
	}
	return nil
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Results   []*ScoredRecord `json:"results"`
	Total     int             `json:"total"`
	QueryTime int64           `json:"query_time_ms"`
	Query     string          `json:"query"`
}
