// Package models defines core data structures for records, file actions, and search results.
package models

import "time"

// MediaClass identifies which kind of media a record was ingested from.
// It determines the collection (and therefore the embedding space) the
// record is stored in: text and audio transcripts go to the text-space
// collection, images to the visual-space collection.
type MediaClass string

const (
	MediaText  MediaClass = "text"
	MediaImage MediaClass = "image"
	MediaAudio MediaClass = "audio"
)

// Collection names the two logical vector collections.
type Collection string

const (
	CollectionText   Collection = "text"
	CollectionVisual Collection = "visual"
)

// CollectionFor returns the collection that owns records of the given media class.
func CollectionFor(mc MediaClass) Collection {
	if mc == MediaImage {
		return CollectionVisual
	}
	return CollectionText
}

// Record is one ingested item. Records are immutable after creation except
// for deletion by ID.
type Record struct {
	ID            string            `json:"id"`
	Content       string            `json:"content"`
	SourcePath    string            `json:"source_path"`
	DisplayName   string            `json:"display_name"`
	MediaClass    MediaClass        `json:"media_class"`
	Embedding     []float32         `json:"-"`
	AuxiliaryPath string            `json:"auxiliary_path,omitempty"`
	Attributes    map[string]string `json:"attributes,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// ScoredRecord is a search hit with the fused score and its components.
type ScoredRecord struct {
	Record     *Record `json:"record"`
	Score      float64 `json:"score"`
	Similarity float64 `json:"similarity"`
	Boost      float64 `json:"boost"`
	Rank       int     `json:"rank"`
}
