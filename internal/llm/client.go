// Package llm defines the external model collaborators (embedding,
// transcription, captioning, labeling, completion) and an OpenAI-compatible
// implementation. The core never runs models in-process; failures from these
// interfaces are recoverable wherever the caller documents a fallback.
package llm

import "context"

// TextEmbedder embeds text into the text-space collection's embedding space.
type TextEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// VisualEmbedder embeds images — and query text — into the visual-space
// collection's embedding space (a CLIP-style dual encoder).
type VisualEmbedder interface {
	EmbedImage(ctx context.Context, path string) ([]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Transcriber converts an audio file to text.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

// Captioner describes an image file in text.
type Captioner interface {
	Caption(ctx context.Context, path string) (string, error)
}

// ClusterSample is one cluster member shown to the labeler.
type ClusterSample struct {
	DisplayName string `json:"display_name"`
	Content     string `json:"content"`
}

// ClusterLabel is the labeler's answer for one cluster.
type ClusterLabel struct {
	Label      string   `json:"label"`
	FolderSlug string   `json:"folder"`
	Keywords   []string `json:"keywords"`
}

// Labeler names a cluster from a sample of its members. Callers fall back to
// deterministic defaults when labeling fails.
type Labeler interface {
	LabelCluster(ctx context.Context, samples []ClusterSample) (*ClusterLabel, error)
}

// StreamEvent is one element of a streamed completion: a text chunk, a
// mid-stream error, or the done sentinel. After Done or Err the channel is
// closed.
type StreamEvent struct {
	Chunk string
	Err   error
	Done  bool
}

// Completer produces chat completions, whole or streamed.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Stream(ctx context.Context, prompt string) (<-chan StreamEvent, error)
}
