package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/seiri/data/db/records.db"
	}
	if cfg.Model.Endpoint == "" {
		cfg.Model.Endpoint = "http://localhost:11434/v1"
	}
	if cfg.Model.ChatModel == "" {
		cfg.Model.ChatModel = "llama3.1"
	}
	if cfg.Model.EmbeddingModel == "" {
		cfg.Model.EmbeddingModel = "all-minilm"
	}
	if cfg.Model.VisualModel == "" {
		cfg.Model.VisualModel = "clip-vit-base-patch32"
	}
	if cfg.Model.TextDimensions == 0 {
		cfg.Model.TextDimensions = 384
	}
	if cfg.Model.VisualDimensions == 0 {
		cfg.Model.VisualDimensions = 512
	}
	if cfg.Model.CacheSize == 0 {
		cfg.Model.CacheSize = 10000
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 10
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 100
	}
	if cfg.Search.CandidateMultiplier == 0 {
		cfg.Search.CandidateMultiplier = 2
	}
	if cfg.Search.ContentBoost == 0 {
		cfg.Search.ContentBoost = 0.1
	}
	if cfg.Search.NameBoost == 0 {
		cfg.Search.NameBoost = 0.2
	}
	if cfg.Search.MinTokenLength == 0 {
		cfg.Search.MinTokenLength = 3
	}
	if cfg.Organize.MaxClusters == 0 {
		cfg.Organize.MaxClusters = 8
	}
	if cfg.Organize.MaxIterations == 0 {
		cfg.Organize.MaxIterations = 100
	}
	if cfg.Organize.MinClusterSize == 0 {
		cfg.Organize.MinClusterSize = 2
	}
	if cfg.Organize.SampleSize == 0 {
		cfg.Organize.SampleSize = 5
	}
	if cfg.History.MaxSessions == 0 {
		cfg.History.MaxSessions = 50
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{
			".txt", ".md", ".rst", ".pdf", ".docx", ".odt", ".rtf", ".xlsx",
			".png", ".jpg", ".jpeg", ".gif", ".webp",
			".mp3", ".wav", ".m4a", ".flac", ".ogg",
		}
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
