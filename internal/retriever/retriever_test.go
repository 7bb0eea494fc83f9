package retriever

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/seiri/internal/config"
	"github.com/hyperjump/seiri/internal/llm"
	"github.com/hyperjump/seiri/internal/models"
	"github.com/hyperjump/seiri/internal/store"
)

func testSearchConfig() *config.SearchConfig {
	return &config.SearchConfig{
		DefaultLimit:        10,
		MaxLimit:            100,
		CandidateMultiplier: 2,
		ContentBoost:        0.1,
		NameBoost:           0.2,
		MinTokenLength:      3,
	}
}

func setup(t *testing.T) (*store.Store, *llm.MockEmbedder, *llm.MockEmbedder) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "records.db"), 8, 8)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, llm.NewMockEmbedder(8), llm.NewMockEmbedder(8)
}

func insertText(t *testing.T, s *store.Store, e *llm.MockEmbedder, id, content, name string) {
	t.Helper()
	vec, _ := e.Embed(context.Background(), content)
	_, err := s.Insert(context.Background(), &models.Record{
		ID:          id,
		Content:     content,
		SourcePath:  "/files/" + name,
		DisplayName: name,
		MediaClass:  models.MediaText,
		Embedding:   vec,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestSearchRanksExactContentFirst(t *testing.T) {
	s, textEmb, _ := setup(t)
	insertText(t, s, textEmb, "a", "quarterly tax filing documents", "taxes.pdf")
	insertText(t, s, textEmb, "b", "vacation photos from portugal", "portugal.md")
	insertText(t, s, textEmb, "c", "grocery shopping list", "list.txt")

	r := New(s, textEmb, nil, testSearchConfig(), zap.NewNop())
	resp, err := r.Search(context.Background(), &models.SearchQuery{
		Query: "quarterly tax filing documents",
		Limit: 3,
	})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(resp.Results) == 0 {
		t.Fatal("no results")
	}
	if resp.Results[0].Record.ID != "a" {
		t.Errorf("top result = %s, want a", resp.Results[0].Record.ID)
	}
	if resp.Results[0].Boost == 0 {
		t.Error("exact lexical overlap should produce a keyword boost")
	}
	if resp.Results[0].Rank != 1 {
		t.Errorf("rank = %d", resp.Results[0].Rank)
	}
}

func TestSearchMediaFilter(t *testing.T) {
	s, textEmb, visEmb := setup(t)
	insertText(t, s, textEmb, "doc", "meeting notes", "notes.txt")
	vec, _ := visEmb.EmbedImage(context.Background(), "/files/cat.jpg")
	_, err := s.Insert(context.Background(), &models.Record{
		ID:          "img",
		Content:     "a cat sitting on meeting notes",
		SourcePath:  "/files/cat.jpg",
		DisplayName: "cat.jpg",
		MediaClass:  models.MediaImage,
		Embedding:   vec,
	})
	if err != nil {
		t.Fatal(err)
	}

	r := New(s, textEmb, visEmb, testSearchConfig(), zap.NewNop())
	resp, err := r.Search(context.Background(), &models.SearchQuery{
		Query:      "meeting notes",
		Limit:      10,
		Media:      models.FilterImage,
		CrossModal: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, res := range resp.Results {
		if res.Record.MediaClass != models.MediaImage {
			t.Errorf("filter leaked %s record %s", res.Record.MediaClass, res.Record.ID)
		}
	}
	if len(resp.Results) != 1 {
		t.Errorf("expected only the image record, got %d results", len(resp.Results))
	}
}

func TestSearchCrossModalScoresOnCommonScale(t *testing.T) {
	s, textEmb, visEmb := setup(t)
	insertText(t, s, textEmb, "doc", "beach sunset description", "beach.md")
	vec, _ := visEmb.EmbedImage(context.Background(), "/photos/sunset.jpg")
	_, _ = s.Insert(context.Background(), &models.Record{
		ID: "img", Content: "sunset over the sea", SourcePath: "/photos/sunset.jpg",
		DisplayName: "sunset.jpg", MediaClass: models.MediaImage, Embedding: vec,
	})

	r := New(s, textEmb, visEmb, testSearchConfig(), zap.NewNop())
	resp, err := r.Search(context.Background(), &models.SearchQuery{
		Query: "beach sunset", Limit: 10, CrossModal: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected both modalities, got %d", len(resp.Results))
	}
	for _, res := range resp.Results {
		if res.Similarity < 0 || res.Similarity > 1 {
			t.Errorf("similarity %f outside [0,1] for %s", res.Similarity, res.Record.ID)
		}
	}
}

func TestSearchPartialFailureTolerance(t *testing.T) {
	s, textEmb, visEmb := setup(t)
	insertText(t, s, textEmb, "doc", "some document", "doc.txt")
	vec, _ := visEmb.EmbedImage(context.Background(), "/photos/p.jpg")
	_, _ = s.Insert(context.Background(), &models.Record{
		ID: "img", Content: "photo", SourcePath: "/photos/p.jpg",
		DisplayName: "p.jpg", MediaClass: models.MediaImage, Embedding: vec,
	})

	// Text embedder fails: visual leg must still return results.
	failing := llm.NewMockEmbedder(8)
	failing.Fail = true
	r := New(s, failing, visEmb, testSearchConfig(), zap.NewNop())
	resp, err := r.Search(context.Background(), &models.SearchQuery{
		Query: "photo", Limit: 10, CrossModal: true,
	})
	if err != nil {
		t.Fatalf("partial failure should not fail the query: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Record.ID != "img" {
		t.Errorf("expected only the visual hit, got %+v", resp.Results)
	}

	// All modalities failing yields an empty result, not an error.
	failingVis := llm.NewMockEmbedder(8)
	failingVis.Fail = true
	r2 := New(s, failing, failingVis, testSearchConfig(), zap.NewNop())
	resp2, err := r2.Search(context.Background(), &models.SearchQuery{
		Query: "photo", Limit: 10, CrossModal: true,
	})
	if err != nil {
		t.Fatalf("total failure should not be an error: %v", err)
	}
	if len(resp2.Results) != 0 {
		t.Errorf("expected empty result, got %d", len(resp2.Results))
	}
}

func TestSearchValidation(t *testing.T) {
	s, textEmb, _ := setup(t)
	r := New(s, textEmb, nil, testSearchConfig(), zap.NewNop())
	if _, err := r.Search(context.Background(), &models.SearchQuery{Query: ""}); err == nil {
		t.Error("empty query should fail validation")
	}
	if _, err := r.Search(context.Background(), &models.SearchQuery{Query: "x", Media: "video"}); err == nil {
		t.Error("unknown media filter should fail validation")
	}
}
