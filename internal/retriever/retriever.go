package retriever

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/seiri/internal/config"
	"github.com/hyperjump/seiri/internal/llm"
	"github.com/hyperjump/seiri/internal/models"
	"github.com/hyperjump/seiri/internal/store"
	"github.com/hyperjump/seiri/pkg/utils"
)

// Retriever fuses text-space and visual-space nearest-neighbor results with
// a keyword boost into one ranked, deduplicated result set.
type Retriever struct {
	store          *store.Store
	textEmbedder   llm.TextEmbedder
	visualEmbedder llm.VisualEmbedder
	config         *config.SearchConfig
	logger         *zap.Logger
}

// New creates a retriever. visualEmbedder may be nil, which disables
// cross-modal search.
func New(
	st *store.Store,
	textEmbedder llm.TextEmbedder,
	visualEmbedder llm.VisualEmbedder,
	cfg *config.SearchConfig,
	logger *zap.Logger,
) *Retriever {
	return &Retriever{
		store:          st,
		textEmbedder:   textEmbedder,
		visualEmbedder: visualEmbedder,
		config:         cfg,
		logger:         logger,
	}
}

// Search runs hybrid search. A failed modality contributes an empty partial
// result instead of failing the query; all modalities failing yields an
// empty result, not an error.
func (r *Retriever) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	startTime := time.Now()
	if err := query.Validate(); err != nil {
		return nil, err
	}
	if query.Limit > r.config.MaxLimit {
		query.Limit = r.config.MaxLimit
	}
	k := query.Limit * r.config.CandidateMultiplier

	var (
		textHits   []store.Neighbor
		visualHits []store.Neighbor
		wg         sync.WaitGroup
	)

	// Text-space and visual-space lookups touch disjoint collections and
	// share no mutable state, so they run concurrently; a failure in one
	// must not cancel the other.
	wg.Add(1)
	go func() {
		defer wg.Done()
		vec, err := r.textEmbedder.Embed(ctx, query.Query)
		if err != nil {
			r.logger.Warn("text query embedding failed", zap.Error(err))
			return
		}
		hits, err := r.store.NearestNeighbors(ctx, models.CollectionText, vec, k)
		if err != nil {
			r.logger.Warn("text-space lookup failed", zap.Error(err))
			return
		}
		textHits = hits
	}()

	crossModal := query.CrossModal && r.visualEmbedder != nil &&
		r.store.CollectionSize(models.CollectionVisual) > 0
	if crossModal {
		wg.Add(1)
		go func() {
			defer wg.Done()
			vec, err := r.visualEmbedder.EmbedQuery(ctx, query.Query)
			if err != nil {
				r.logger.Warn("visual query embedding failed", zap.Error(err))
				return
			}
			hits, err := r.store.NearestNeighbors(ctx, models.CollectionVisual, vec, k)
			if err != nil {
				r.logger.Warn("visual-space lookup failed", zap.Error(err))
				return
			}
			visualHits = hits
		}()
	}
	wg.Wait()

	tokens := Tokenize(query.Query, r.config.MinTokenLength)
	candidates := make([]*models.ScoredRecord, 0, len(textHits)+len(visualHits))
	for _, n := range textHits {
		// Raw distance is 1 - cosine; clamp so uncomparable outliers
		// (distance > 1) score zero rather than negative.
		candidates = append(candidates, r.scored(n, utils.Clamp01(1-n.Distance), tokens))
	}
	for _, n := range visualHits {
		// Visual-space cosine ranges [-1,1]; rescale to [0,1] so both
		// spaces score on a common scale.
		candidates = append(candidates, r.scored(n, utils.Clamp01(((1-n.Distance)+1)/2), tokens))
	}

	if query.Media != "" && query.Media != models.FilterAll {
		filtered := candidates[:0]
		for _, c := range candidates {
			if query.Media.Matches(c.Record.MediaClass) {
				filtered = append(filtered, c)
			}
		}
		candidates = filtered
	}

	// Establish the similarity-rank tiebreak order, then stable-sort by
	// fused score.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})
	candidates = Dedupe(candidates)
	SortByScore(candidates)

	total := len(candidates)
	if len(candidates) > query.Limit {
		candidates = candidates[:query.Limit]
	}
	for i, c := range candidates {
		c.Rank = i + 1
	}

	return &models.SearchResponse{
		Results:   candidates,
		Total:     total,
		QueryTime: time.Since(startTime).Milliseconds(),
		Query:     query.Query,
	}, nil
}

func (r *Retriever) scored(n store.Neighbor, similarity float64, tokens []string) *models.ScoredRecord {
	boost := KeywordBoost(n.Record.Content, n.Record.DisplayName, tokens,
		r.config.ContentBoost, r.config.NameBoost)
	return &models.ScoredRecord{
		Record:     n.Record,
		Similarity: similarity,
		Boost:      boost,
		Score:      similarity + boost,
	}
}
