package assistant

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/seiri/internal/config"
	"github.com/hyperjump/seiri/internal/llm"
	"github.com/hyperjump/seiri/internal/models"
	"github.com/hyperjump/seiri/internal/retriever"
	"github.com/hyperjump/seiri/internal/store"
)

func newTestAssistant(t *testing.T, completer llm.Completer) (*Assistant, *store.Store, *llm.MockEmbedder) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "seiri.db"), 8, 8)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	embedder := llm.NewMockEmbedder(8)
	cfg := &config.SearchConfig{
		DefaultLimit:        10,
		MaxLimit:            100,
		CandidateMultiplier: 2,
		ContentBoost:        0.2,
		NameBoost:           0.1,
		MinTokenLength:      3,
	}
	r := retriever.New(s, embedder, embedder, cfg, zap.NewNop())
	return New(r, completer, zap.NewNop()), s, embedder
}

func insertRecord(t *testing.T, s *store.Store, e *llm.MockEmbedder, id, content, name string) {
	t.Helper()
	emb, _ := e.Embed(context.Background(), content)
	_, err := s.Insert(context.Background(), &models.Record{
		ID:          id,
		Content:     content,
		SourcePath:  "/files/" + name,
		DisplayName: name,
		MediaClass:  models.MediaText,
		Embedding:   emb,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestAsk_groundsAnswerInRetrievedRecords(t *testing.T) {
	completer := &llm.MockCompleter{Response: "Your tax return is in tax_2023.pdf."}
	a, s, e := newTestAssistant(t, completer)
	insertRecord(t, s, e, "r1", "federal tax return for 2023", "tax_2023.pdf")
	insertRecord(t, s, e, "r2", "grocery list", "list.txt")

	answer, err := a.Ask(context.Background(), "where is my tax return")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer.Text != completer.Response {
		t.Errorf("text = %q", answer.Text)
	}
	if len(answer.Sources) == 0 {
		t.Fatal("answer should carry its sources")
	}
	if answer.Sources[0].Record.DisplayName != "tax_2023.pdf" {
		t.Errorf("top source = %q", answer.Sources[0].Record.DisplayName)
	}
}

func TestAsk_emptyStoreStillAnswers(t *testing.T) {
	a, _, _ := newTestAssistant(t, &llm.MockCompleter{Response: "I could not find anything."})
	answer, err := a.Ask(context.Background(), "anything at all")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if len(answer.Sources) != 0 {
		t.Errorf("no sources expected: %v", answer.Sources)
	}
	if answer.Text == "" {
		t.Error("answer text should not be empty")
	}
}

func TestAsk_completerFailure(t *testing.T) {
	a, _, _ := newTestAssistant(t, &llm.MockCompleter{Fail: true})
	if _, err := a.Ask(context.Background(), "question"); err == nil {
		t.Error("completer failure must surface")
	}
}

func TestAskStream(t *testing.T) {
	a, s, e := newTestAssistant(t, &llm.MockCompleter{Response: "streamed answer"})
	insertRecord(t, s, e, "r1", "insurance policy renewal", "policy.pdf")

	events, sources, err := a.AskStream(context.Background(), "insurance policy")
	if err != nil {
		t.Fatalf("AskStream: %v", err)
	}
	if len(sources) == 0 {
		t.Error("sources should be available before streaming finishes")
	}
	var text strings.Builder
	done := false
	for ev := range events {
		if ev.Err != nil {
			t.Fatalf("stream error: %v", ev.Err)
		}
		if ev.Done {
			done = true
			break
		}
		text.WriteString(ev.Chunk)
	}
	if !done {
		t.Error("stream should end with a done event")
	}
	if text.String() != "streamed answer" {
		t.Errorf("streamed text = %q", text.String())
	}
}

func TestBuildPrompt_includesDisplayNamesAndQuestion(t *testing.T) {
	results := []*models.ScoredRecord{
		{Record: &models.Record{DisplayName: "tax_2023.pdf", MediaClass: models.MediaText, Content: "tax return"}},
	}
	prompt := buildPrompt("where is my tax return", results)
	if !strings.Contains(prompt, "tax_2023.pdf") {
		t.Error("prompt should name the source file")
	}
	if !strings.Contains(prompt, "Question: where is my tax return") {
		t.Error("prompt should end with the question")
	}
}

func TestBuildPrompt_noResults(t *testing.T) {
	prompt := buildPrompt("anything", nil)
	if !strings.Contains(prompt, "No matching files") {
		t.Error("prompt should state that nothing was found")
	}
}
