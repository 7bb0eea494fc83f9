package cluster

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/seiri/internal/config"
	"github.com/hyperjump/seiri/internal/llm"
	"github.com/hyperjump/seiri/internal/models"
	"github.com/hyperjump/seiri/internal/store"
	"github.com/hyperjump/seiri/pkg/utils"
)

// minRecords is the smallest record set worth clustering. Below it,
// Organize returns an empty plan: nothing to organize is a valid outcome,
// not a failure.
const minRecords = 3

// Organizer groups the stored records with k-means and materializes the
// groups into a createFolder/move action plan.
type Organizer struct {
	store   *store.Store
	labeler llm.Labeler
	config  *config.OrganizeConfig
	logger  *zap.Logger
	rng     *rand.Rand
}

// Option configures an Organizer.
type Option func(*Organizer)

// WithRand sets the random source used for centroid seeding. Tests pass a
// fixed seed for reproducible assignments.
func WithRand(rng *rand.Rand) Option {
	return func(o *Organizer) { o.rng = rng }
}

// New creates an organizer. labeler may be nil; clusters then get the
// deterministic fallback names.
func New(st *store.Store, labeler llm.Labeler, cfg *config.OrganizeConfig, logger *zap.Logger, opts ...Option) *Organizer {
	o := &Organizer{
		store:   st,
		labeler: labeler,
		config:  cfg,
		logger:  logger,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Organize clusters all stored records and returns the clusters plus the
// proposed actions that would move each qualifying cluster into a folder
// under targetDir. maxClusters <= 0 falls back to the configured bound.
// Records in different collections embed into spaces of different
// dimensionality, so clustering runs per collection and the groups are
// merged for presentation.
func (o *Organizer) Organize(ctx context.Context, maxClusters int, targetDir string) (*models.OrganizePlan, error) {
	if maxClusters <= 0 {
		maxClusters = o.config.MaxClusters
	}
	if targetDir == "" {
		targetDir = o.config.TargetDir
	}

	records, err := o.store.ScanAll(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to scan records: %w", err)
	}
	embedded := records[:0]
	for _, r := range records {
		if len(r.Embedding) > 0 {
			embedded = append(embedded, r)
		}
	}
	if len(embedded) < minRecords {
		o.logger.Debug("not enough records to organize", zap.Int("records", len(embedded)))
		return &models.OrganizePlan{}, nil
	}

	byCollection := make(map[models.Collection][]*models.Record)
	for _, r := range embedded {
		col := models.CollectionFor(r.MediaClass)
		byCollection[col] = append(byCollection[col], r)
	}

	var groups [][]*models.Record
	for _, recs := range byCollection {
		groups = append(groups, o.clusterCollection(recs, maxClusters)...)
	}

	// Largest clusters first for presentation.
	sort.SliceStable(groups, func(i, j int) bool { return len(groups[i]) > len(groups[j]) })

	plan := &models.OrganizePlan{}
	for i, group := range groups {
		result := o.labelCluster(ctx, group, i+1)
		plan.Clusters = append(plan.Clusters, result)
		if len(group) < o.config.MinClusterSize {
			// Reported, but a single file is not worth a folder.
			continue
		}
		plan.Actions = append(plan.Actions, buildActions(result, targetDir)...)
	}
	return plan, nil
}

// clusterCollection runs k-means over one collection's records and returns
// the member groups. Collections too small to cluster form one group each.
func (o *Organizer) clusterCollection(recs []*models.Record, maxClusters int) [][]*models.Record {
	if len(recs) < minRecords {
		return [][]*models.Record{recs}
	}
	vectors := make([][]float32, len(recs))
	for i, r := range recs {
		vectors[i] = r.Embedding
	}
	k := ClusterCount(len(recs), maxClusters)
	assignments := KMeans(vectors, k, o.config.MaxIterations, o.rng)

	byCluster := make(map[int][]*models.Record)
	for i, c := range assignments {
		byCluster[c] = append(byCluster[c], recs[i])
	}
	// Deterministic group order: ascending cluster index.
	indexes := make([]int, 0, len(byCluster))
	for c := range byCluster {
		indexes = append(indexes, c)
	}
	sort.Ints(indexes)
	groups := make([][]*models.Record, 0, len(byCluster))
	for _, c := range indexes {
		groups = append(groups, byCluster[c])
	}
	return groups
}

// labelCluster asks the labeling collaborator to name a group, falling back
// to "Cluster N" when labeling fails. The slug rule is enforced on whatever
// the labeler returns.
func (o *Organizer) labelCluster(ctx context.Context, group []*models.Record, n int) models.ClusterResult {
	result := models.ClusterResult{
		Label:      fmt.Sprintf("Cluster %d", n),
		FolderSlug: fmt.Sprintf("cluster_%d", n),
	}
	for _, r := range group {
		result.Members = append(result.Members, models.ClusterMember{
			RecordID:    r.ID,
			SourcePath:  r.SourcePath,
			DisplayName: r.DisplayName,
		})
	}

	if o.labeler == nil {
		return result
	}
	sampleSize := o.config.SampleSize
	if sampleSize <= 0 {
		sampleSize = 5
	}
	if sampleSize > len(group) {
		sampleSize = len(group)
	}
	samples := make([]llm.ClusterSample, 0, sampleSize)
	for _, r := range group[:sampleSize] {
		samples = append(samples, llm.ClusterSample{
			DisplayName: r.DisplayName,
			Content:     utils.Truncate(r.Content, 200),
		})
	}
	label, err := o.labeler.LabelCluster(ctx, samples)
	if err != nil {
		o.logger.Warn("cluster labeling failed, using fallback", zap.Int("cluster", n), zap.Error(err))
		return result
	}
	result.Label = label.Label
	slugSource := label.FolderSlug
	if slugSource == "" {
		slugSource = label.Label
	}
	result.FolderSlug = Slugify(slugSource)
	result.Keywords = label.Keywords
	return result
}

// buildActions emits one createFolder for the cluster's destination folder
// followed by one move per member. Each action's permission scope names the
// directory the caller must authorize for it.
func buildActions(cluster models.ClusterResult, targetDir string) []models.FileAction {
	folder := filepath.Join(targetDir, cluster.FolderSlug)
	actions := []models.FileAction{{
		ID:              uuid.New().String(),
		Kind:            models.ActionCreateFolder,
		DestinationPath: folder,
		PermissionScope: targetDir,
		Description:     fmt.Sprintf("Create folder %q for %s", cluster.FolderSlug, cluster.Label),
	}}
	for _, m := range cluster.Members {
		actions = append(actions, models.FileAction{
			ID:              uuid.New().String(),
			Kind:            models.ActionMove,
			SourcePath:      m.SourcePath,
			DestinationPath: filepath.Join(folder, m.DisplayName),
			PermissionScope: filepath.Dir(m.SourcePath),
			Description:     fmt.Sprintf("Move %s into %s", m.DisplayName, cluster.Label),
		})
	}
	return actions
}
