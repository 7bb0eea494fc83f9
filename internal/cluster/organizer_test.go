package cluster

import (
	"context"
	"math/rand"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/seiri/internal/config"
	"github.com/hyperjump/seiri/internal/llm"
	"github.com/hyperjump/seiri/internal/models"
	"github.com/hyperjump/seiri/internal/store"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Tax Documents 2023!": "tax_documents_2023_",
		"already_safe":        "already_safe",
		"Mixed-Case.Name":     "mixed_case_name",
		"日本語 label":           "____label", // every non [a-z0-9_] rune becomes one underscore
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func testOrganizeConfig() *config.OrganizeConfig {
	return &config.OrganizeConfig{
		MaxClusters:    8,
		MaxIterations:  100,
		MinClusterSize: 2,
		SampleSize:     5,
	}
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "records.db"), 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func insert(t *testing.T, s *store.Store, id string, vec []float32) {
	t.Helper()
	_, err := s.Insert(context.Background(), &models.Record{
		ID:          id,
		Content:     "content " + id,
		SourcePath:  "/files/" + id + ".txt",
		DisplayName: id + ".txt",
		MediaClass:  models.MediaText,
		Embedding:   vec,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestOrganizeTooFewRecords(t *testing.T) {
	s := openStore(t)
	insert(t, s, "a", []float32{1, 0})
	insert(t, s, "b", []float32{0, 1})

	o := New(s, nil, testOrganizeConfig(), zap.NewNop())
	plan, err := o.Organize(context.Background(), 0, "/organized")
	if err != nil {
		t.Fatalf("below-minimum record count must not be an error: %v", err)
	}
	if len(plan.Clusters) != 0 || len(plan.Actions) != 0 {
		t.Errorf("expected empty plan, got %+v", plan)
	}
}

func TestOrganizeTwoGroups(t *testing.T) {
	s := openStore(t)
	// Two well-separated groups.
	insert(t, s, "a1", []float32{0.0, 0.1})
	insert(t, s, "a2", []float32{0.1, 0.0})
	insert(t, s, "a3", []float32{0.1, 0.1})
	insert(t, s, "b1", []float32{10.0, 10.1})
	insert(t, s, "b2", []float32{10.1, 10.0})
	insert(t, s, "b3", []float32{10.1, 10.1})

	labeler := &llm.MockLabeler{Labels: []llm.ClusterLabel{
		{Label: "Work Notes", FolderSlug: "work_notes", Keywords: []string{"work"}},
		{Label: "Recipes", FolderSlug: "recipes"},
	}}
	o := New(s, labeler, testOrganizeConfig(), zap.NewNop(),
		WithRand(rand.New(rand.NewSource(42))))

	plan, err := o.Organize(context.Background(), 2, "/organized")
	if err != nil {
		t.Fatalf("Organize failed: %v", err)
	}
	if len(plan.Clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(plan.Clusters))
	}
	for _, c := range plan.Clusters {
		if len(c.Members) != 3 {
			t.Errorf("cluster %q has %d members", c.Label, len(c.Members))
		}
	}
	// One createFolder + three moves per cluster.
	if len(plan.Actions) != 8 {
		t.Fatalf("expected 8 actions, got %d", len(plan.Actions))
	}
	first := plan.Actions[0]
	if first.Kind != models.ActionCreateFolder {
		t.Errorf("plan should start with createFolder, got %s", first.Kind)
	}
	if first.PermissionScope != "/organized" {
		t.Errorf("createFolder scope = %q", first.PermissionScope)
	}
	move := plan.Actions[1]
	if move.Kind != models.ActionMove {
		t.Fatalf("expected move, got %s", move.Kind)
	}
	if move.PermissionScope != "/files" {
		t.Errorf("move scope = %q", move.PermissionScope)
	}
	if filepath.Dir(move.DestinationPath) != first.DestinationPath {
		t.Errorf("move destination %q not inside created folder %q",
			move.DestinationPath, first.DestinationPath)
	}
}

func TestOrganizeLabelerFallback(t *testing.T) {
	s := openStore(t)
	insert(t, s, "a1", []float32{0.0, 0.1})
	insert(t, s, "a2", []float32{0.1, 0.0})
	insert(t, s, "a3", []float32{0.1, 0.1})
	insert(t, s, "b1", []float32{10.0, 10.1})
	insert(t, s, "b2", []float32{10.1, 10.0})
	insert(t, s, "b3", []float32{10.1, 10.1})

	o := New(s, &llm.MockLabeler{Fail: true}, testOrganizeConfig(), zap.NewNop(),
		WithRand(rand.New(rand.NewSource(42))))
	plan, err := o.Organize(context.Background(), 2, "/organized")
	if err != nil {
		t.Fatalf("labeling failure must not fail organize: %v", err)
	}
	if len(plan.Clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(plan.Clusters))
	}
	if plan.Clusters[0].Label != "Cluster 1" || plan.Clusters[0].FolderSlug != "cluster_1" {
		t.Errorf("fallback label = %q / %q", plan.Clusters[0].Label, plan.Clusters[0].FolderSlug)
	}
	if len(plan.Clusters[0].Keywords) != 0 {
		t.Errorf("fallback keywords should be empty, got %v", plan.Clusters[0].Keywords)
	}
}

func TestOrganizeSingletonClusterReportedButNotPlanned(t *testing.T) {
	s := openStore(t)
	insert(t, s, "a1", []float32{0.0, 0.1})
	insert(t, s, "a2", []float32{0.1, 0.0})
	insert(t, s, "a3", []float32{0.05, 0.05})
	insert(t, s, "a4", []float32{0.1, 0.1})
	// One far outlier that k-means isolates.
	insert(t, s, "lone", []float32{100, 100})

	o := New(s, nil, testOrganizeConfig(), zap.NewNop(),
		WithRand(rand.New(rand.NewSource(1))))
	plan, err := o.Organize(context.Background(), 2, "/organized")
	if err != nil {
		t.Fatal(err)
	}
	var singleton *models.ClusterResult
	for i := range plan.Clusters {
		if len(plan.Clusters[i].Members) == 1 {
			singleton = &plan.Clusters[i]
		}
	}
	if singleton == nil {
		t.Fatal("expected the outlier to form a singleton cluster")
	}
	for _, a := range plan.Actions {
		if a.SourcePath == "/files/lone.txt" {
			t.Error("singleton cluster must not contribute actions")
		}
	}
}

func TestOrganizeSortsByMemberCount(t *testing.T) {
	s := openStore(t)
	insert(t, s, "a1", []float32{0.0, 0.1})
	insert(t, s, "a2", []float32{0.1, 0.0})
	insert(t, s, "a3", []float32{0.05, 0.05})
	insert(t, s, "a4", []float32{0.1, 0.1})
	insert(t, s, "b1", []float32{10.0, 10.1})
	insert(t, s, "b2", []float32{10.1, 10.0})

	o := New(s, nil, testOrganizeConfig(), zap.NewNop(),
		WithRand(rand.New(rand.NewSource(42))))
	plan, err := o.Organize(context.Background(), 2, "/organized")
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Clusters) < 2 {
		t.Fatalf("expected 2 clusters, got %d", len(plan.Clusters))
	}
	if len(plan.Clusters[0].Members) < len(plan.Clusters[1].Members) {
		t.Error("clusters should be sorted by descending member count")
	}
}
