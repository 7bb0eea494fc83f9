package llm

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
)

// MockEmbedder is a deterministic embedder for tests. The same text always
// gets the same unit-length vector, and similar behavior is not implied —
// only determinism.
type MockEmbedder struct {
	dims int
	// Fail makes every call return an error, for partial-failure tests.
	Fail bool
}

// NewMockEmbedder returns a deterministic embedder of the given dimensionality.
func NewMockEmbedder(dims int) *MockEmbedder {
	if dims <= 0 {
		dims = 384
	}
	return &MockEmbedder{dims: dims}
}

func (e *MockEmbedder) vector(text string) []float32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	seed := float64(h.Sum32())
	emb := make([]float32, e.dims)
	var sum float64
	for i := range emb {
		v := math.Sin(seed*float64(i+1)*0.001 + seed)
		emb[i] = float32(v)
		sum += v * v
	}
	if sum > 0 {
		norm := float32(1 / math.Sqrt(sum))
		for i := range emb {
			emb[i] *= norm
		}
	}
	return emb
}

// Embed returns a deterministic embedding derived from the text hash.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.Fail {
		return nil, fmt.Errorf("mock embedder failure")
	}
	return e.vector(text), nil
}

// EmbedQuery satisfies VisualEmbedder using the same deterministic scheme.
func (e *MockEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.Embed(ctx, text)
}

// EmbedImage embeds the path string instead of pixels; deterministic per path.
func (e *MockEmbedder) EmbedImage(ctx context.Context, path string) ([]float32, error) {
	return e.Embed(ctx, path)
}

// Dimensions returns the embedding dimensionality.
func (e *MockEmbedder) Dimensions() int { return e.dims }

// MockLabeler returns canned labels, or an error when Fail is set.
type MockLabeler struct {
	Labels []ClusterLabel
	Fail   bool
	calls  int
}

// LabelCluster returns the next canned label.
func (l *MockLabeler) LabelCluster(ctx context.Context, samples []ClusterSample) (*ClusterLabel, error) {
	if l.Fail {
		return nil, fmt.Errorf("mock labeler failure")
	}
	if l.calls >= len(l.Labels) {
		return nil, fmt.Errorf("mock labeler exhausted")
	}
	label := l.Labels[l.calls]
	l.calls++
	return &label, nil
}

// MockCompleter echoes a fixed response.
type MockCompleter struct {
	Response string
	Fail     bool
}

// Complete returns the canned response.
func (c *MockCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if c.Fail {
		return "", fmt.Errorf("mock completer failure")
	}
	return c.Response, nil
}

// Stream delivers the canned response as a single chunk followed by done.
func (c *MockCompleter) Stream(ctx context.Context, prompt string) (<-chan StreamEvent, error) {
	if c.Fail {
		return nil, fmt.Errorf("mock completer failure")
	}
	events := make(chan StreamEvent, 2)
	events <- StreamEvent{Chunk: c.Response}
	events <- StreamEvent{Done: true}
	close(events)
	return events, nil
}

// MockTranscriber returns a fixed transcript per call.
type MockTranscriber struct {
	Text string
	Fail bool
}

// Transcribe returns the canned transcript.
func (m *MockTranscriber) Transcribe(ctx context.Context, path string) (string, error) {
	if m.Fail {
		return "", fmt.Errorf("mock transcriber failure")
	}
	return m.Text, nil
}

// MockCaptioner returns a fixed caption per call.
type MockCaptioner struct {
	Text string
	Fail bool
}

// Caption returns the canned caption.
func (m *MockCaptioner) Caption(ctx context.Context, path string) (string, error) {
	if m.Fail {
		return "", fmt.Errorf("mock captioner failure")
	}
	return m.Text, nil
}
