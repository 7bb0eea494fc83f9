package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/hyperjump/seiri/pkg/utils"
)

// Client talks to an OpenAI-compatible endpoint (OpenAI itself, or a local
// server such as Ollama or LocalAI) for all model collaborators.
type Client struct {
	api              *openai.Client
	chatModel        string
	embeddingModel   string
	visualModel      string
	textDimensions   int
	visualDimensions int
	textCache        *embeddingCache
	visualCache      *embeddingCache
}

// Options configures a Client.
type Options struct {
	Endpoint         string
	APIKey           string
	ChatModel        string
	EmbeddingModel   string
	VisualModel      string
	TextDimensions   int
	VisualDimensions int
	CacheSize        int
}

// NewClient creates a collaborator client. The API key may be empty for
// local endpoints that ignore it.
func NewClient(opts Options) *Client {
	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = "local"
	}
	cfg := openai.DefaultConfig(apiKey)
	if opts.Endpoint != "" {
		cfg.BaseURL = opts.Endpoint
	}
	cacheSize := opts.CacheSize
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	return &Client{
		api:              openai.NewClientWithConfig(cfg),
		chatModel:        opts.ChatModel,
		embeddingModel:   opts.EmbeddingModel,
		visualModel:      opts.VisualModel,
		textDimensions:   opts.TextDimensions,
		visualDimensions: opts.VisualDimensions,
		textCache:        newEmbeddingCache(cacheSize),
		visualCache:      newEmbeddingCache(cacheSize),
	}
}

// Embed embeds text into the text space. Results are L2-normalized and cached.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.textCache.get(text); ok {
		return v, nil
	}
	v, err := c.embed(ctx, text, c.embeddingModel, c.textDimensions)
	if err != nil {
		return nil, err
	}
	c.textCache.set(text, v)
	return v, nil
}

// Dimensions returns the text embedding dimensionality.
func (c *Client) Dimensions() int { return c.textDimensions }

// EmbedQuery embeds query text into the visual space via the dual encoder.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.visualCache.get(text); ok {
		return v, nil
	}
	v, err := c.embed(ctx, text, c.visualModel, c.visualDimensions)
	if err != nil {
		return nil, err
	}
	c.visualCache.set(text, v)
	return v, nil
}

// EmbedImage embeds an image file into the visual space. The image is sent
// as a base64 data URI, the convention local CLIP servers accept on the
// embeddings endpoint.
func (c *Client) EmbedImage(ctx context.Context, path string) ([]float32, error) {
	uri, err := fileDataURI(path)
	if err != nil {
		return nil, err
	}
	return c.embed(ctx, uri, c.visualModel, c.visualDimensions)
}

// VisualDims returns the visual embedding dimensionality.
func (c *Client) VisualDims() int { return c.visualDimensions }

func (c *Client) embed(ctx context.Context, input, model string, wantDims int) ([]float32, error) {
	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{input},
		Model: openai.EmbeddingModel(model),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding data in response")
	}
	v := resp.Data[0].Embedding
	if wantDims > 0 && len(v) != wantDims {
		return nil, fmt.Errorf("model %s returned %d dimensions, expected %d", model, len(v), wantDims)
	}
	utils.NormalizeL2(v)
	return v, nil
}

// Transcribe converts an audio file to text.
func (c *Client) Transcribe(ctx context.Context, path string) (string, error) {
	resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: path,
	})
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}
	return resp.Text, nil
}

// Caption describes an image file in one or two sentences.
func (c *Client) Caption(ctx context.Context, path string) (string, error) {
	uri, err := fileDataURI(path)
	if err != nil {
		return "", err
	}
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.chatModel,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: "Describe this image in one or two sentences for search indexing. Mention visible objects, text, and context."},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: uri}},
			},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("caption request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no caption choices in response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

const labelPrompt = `You name groups of related personal files. Given the sample files below, answer with JSON only:
{"label": "short human-readable group name", "folder": "short_folder_name", "keywords": ["up", "to", "five"]}

Sample files:
%s`

// LabelCluster names a cluster from a sample of its members.
func (c *Client) LabelCluster(ctx context.Context, samples []ClusterSample) (*ClusterLabel, error) {
	var sb strings.Builder
	for _, s := range samples {
		fmt.Fprintf(&sb, "- %s: %s\n", s.DisplayName, utils.Truncate(s.Content, 200))
	}
	text, err := c.Complete(ctx, fmt.Sprintf(labelPrompt, sb.String()))
	if err != nil {
		return nil, err
	}
	var label ClusterLabel
	if err := json.Unmarshal([]byte(extractJSON(text)), &label); err != nil {
		return nil, fmt.Errorf("unparseable label response: %w", err)
	}
	if label.Label == "" {
		return nil, fmt.Errorf("labeler returned an empty label")
	}
	return &label, nil
}

// Complete returns a full chat completion for prompt.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream returns a channel of completion chunks ending with a done sentinel.
// Mid-stream failures are delivered as an Err event before the channel closes.
func (c *Client) Stream(ctx context.Context, prompt string) (<-chan StreamEvent, error) {
	stream, err := c.api.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model: c.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Stream: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open completion stream: %w", err)
	}
	events := make(chan StreamEvent)
	go func() {
		defer close(events)
		defer stream.Close()
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				select {
				case events <- StreamEvent{Done: true}:
				case <-ctx.Done():
				}
				return
			}
			if err != nil {
				select {
				case events <- StreamEvent{Err: err}:
				case <-ctx.Done():
				}
				return
			}
			if len(resp.Choices) > 0 {
				select {
				case events <- StreamEvent{Chunk: resp.Choices[0].Delta.Content}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return events, nil
}

// extractJSON pulls the first {...} block out of a completion that may wrap
// JSON in prose or code fences.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}

func fileDataURI(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
