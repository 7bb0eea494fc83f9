// Package assistant answers questions about the user's files by grounding a
// chat completion in hybrid search results.
package assistant

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/seiri/internal/llm"
	"github.com/hyperjump/seiri/internal/models"
	"github.com/hyperjump/seiri/internal/retriever"
	"github.com/hyperjump/seiri/pkg/utils"
)

const (
	defaultContextResults = 5
	snippetLength         = 500
)

// Assistant retrieves relevant records for a question and asks the completer
// to answer from them.
type Assistant struct {
	retriever *retriever.Retriever
	completer llm.Completer
	logger    *zap.Logger
}

// Answer is a grounded response with the records it was built from.
type Answer struct {
	Text    string                 `json:"text"`
	Sources []*models.ScoredRecord `json:"sources"`
}

// New creates an assistant over the given retriever and completer.
func New(r *retriever.Retriever, completer llm.Completer, logger *zap.Logger) *Assistant {
	return &Assistant{retriever: r, completer: completer, logger: logger}
}

// Ask retrieves context for the question and returns a grounded answer.
// Retrieval failures are fatal; a question with no matching records still
// gets an answer, with the prompt stating that nothing was found.
func (a *Assistant) Ask(ctx context.Context, question string) (*Answer, error) {
	results, err := a.retrieve(ctx, question)
	if err != nil {
		return nil, err
	}
	text, err := a.completer.Complete(ctx, buildPrompt(question, results))
	if err != nil {
		return nil, fmt.Errorf("completion: %w", err)
	}
	return &Answer{Text: text, Sources: results}, nil
}

// AskStream is Ask with a streamed completion. The returned sources are
// available immediately; answer chunks arrive on the event channel.
func (a *Assistant) AskStream(ctx context.Context, question string) (<-chan llm.StreamEvent, []*models.ScoredRecord, error) {
	results, err := a.retrieve(ctx, question)
	if err != nil {
		return nil, nil, err
	}
	events, err := a.completer.Stream(ctx, buildPrompt(question, results))
	if err != nil {
		return nil, nil, fmt.Errorf("completion: %w", err)
	}
	return events, results, nil
}

func (a *Assistant) retrieve(ctx context.Context, question string) ([]*models.ScoredRecord, error) {
	query := &models.SearchQuery{
		Query:      question,
		Limit:      defaultContextResults,
		Media:      models.FilterAll,
		CrossModal: true,
	}
	resp, err := a.retriever.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}
	a.logger.Debug("assistant context retrieved",
		zap.String("question", question),
		zap.Int("results", len(resp.Results)))
	return resp.Results, nil
}

func buildPrompt(question string, results []*models.ScoredRecord) string {
	var b strings.Builder
	b.WriteString("You are a personal file assistant. Answer the question using only the file excerpts below. Cite files by name. If the excerpts do not contain the answer, say so.\n\n")
	if len(results) == 0 {
		b.WriteString("No matching files were found.\n")
	}
	for i, r := range results {
		fmt.Fprintf(&b, "[%d] %s (%s)\n", i+1, r.Record.DisplayName, r.Record.MediaClass)
		content := utils.Truncate(r.Record.Content, snippetLength)
		if strings.TrimSpace(content) == "" {
			content = "(no text content)"
		}
		b.WriteString(content)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Question: %s\n", question)
	return b.String()
}
