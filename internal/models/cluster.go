package models

// ClusterMember is one record inside a cluster result.
type ClusterMember struct {
	RecordID    string `json:"record_id"`
	SourcePath  string `json:"source_path"`
	DisplayName string `json:"display_name"`
}

// ClusterResult is one group produced by an organize run. Clusters with
// fewer than two members are reported but contribute no actions.
type ClusterResult struct {
	Label      string          `json:"label"`
	FolderSlug string          `json:"folder_slug"`
	Keywords   []string        `json:"keywords,omitempty"`
	Members    []ClusterMember `json:"members"`
}

// OrganizePlan is the full outcome of an organize run: the clusters found
// and the proposed actions that would materialize them into folders.
type OrganizePlan struct {
	Clusters []ClusterResult `json:"clusters"`
	Actions  []FileAction    `json:"actions"`
}
