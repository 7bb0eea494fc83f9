// Package config provides configuration loading and structs for the Seiri server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug    bool           `yaml:"debug"`
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Model    ModelConfig    `yaml:"model"`
	Search   SearchConfig   `yaml:"search"`
	Organize OrganizeConfig `yaml:"organize"`
	History  HistoryConfig  `yaml:"history"`
	Watch    WatchConfig    `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds the record database path. Embeddings live in the same
// database; the in-memory collections are rebuilt from it at startup.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// ModelConfig holds settings for the external model collaborators
// (embedding, captioning, transcription, labeling, chat).
type ModelConfig struct {
	Endpoint         string `yaml:"endpoint"`
	APIKey           string `yaml:"api_key"`
	ChatModel        string `yaml:"chat_model"`
	EmbeddingModel   string `yaml:"embedding_model"`
	VisualModel      string `yaml:"visual_model"`
	TextDimensions   int    `yaml:"text_dimensions"`
	VisualDimensions int    `yaml:"visual_dimensions"`
	CacheSize        int    `yaml:"cache_size"`
}

// SearchConfig holds hybrid search settings. ContentBoost and NameBoost are
// the per-token keyword bonuses added on top of vector similarity; they are
// part of the ranking contract and changing them changes result order.
type SearchConfig struct {
	DefaultLimit        int     `yaml:"default_limit"`
	MaxLimit            int     `yaml:"max_limit"`
	CandidateMultiplier int     `yaml:"candidate_multiplier"`
	ContentBoost        float64 `yaml:"content_boost"`
	NameBoost           float64 `yaml:"name_boost"`
	MinTokenLength      int     `yaml:"min_token_length"`
}

// OrganizeConfig holds clustering settings.
type OrganizeConfig struct {
	MaxClusters    int    `yaml:"max_clusters"`
	MaxIterations  int    `yaml:"max_iterations"`
	MinClusterSize int    `yaml:"min_cluster_size"`
	SampleSize     int    `yaml:"sample_size"`
	TargetDir      string `yaml:"target_dir"`
}

// HistoryConfig bounds the action/undo session history.
type HistoryConfig struct {
	MaxSessions int `yaml:"max_sessions"`
}

// WatchConfig holds directory watch settings for auto-ingestion.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	if cfg.Organize.TargetDir != "" {
		cfg.Organize.TargetDir = expandPath(cfg.Organize.TargetDir, configDir)
	}
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
