// Package main is the Seiri CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/seiri/internal/actions"
	"github.com/hyperjump/seiri/internal/assistant"
	"github.com/hyperjump/seiri/internal/cluster"
	"github.com/hyperjump/seiri/internal/config"
	"github.com/hyperjump/seiri/internal/ingest"
	"github.com/hyperjump/seiri/internal/llm"
	"github.com/hyperjump/seiri/internal/models"
	"github.com/hyperjump/seiri/internal/retriever"
	"github.com/hyperjump/seiri/internal/server"
	"github.com/hyperjump/seiri/internal/store"
	"github.com/hyperjump/seiri/internal/watcher"
	"github.com/hyperjump/seiri/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/seiri/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used, so that "seiri server" from the project dir uses the project's
// config. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "ingest":
		runIngest()
	case "organize":
		runOrganize()
	case "undo":
		runUndo()
	case "history":
		runHistory()
	case "ask":
		runAsk()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("seiri version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// Components holds the initialized engine parts for direct (serverless) use.
type Components struct {
	Store     *store.Store
	Client    *llm.Client
	Retriever *retriever.Retriever
	Ingester  *ingest.Ingester
	Organizer *cluster.Organizer
	History   *actions.Engine
	Executor  *actions.Executor
	Assistant *assistant.Assistant
}

// Close releases resources held by the components.
func (c *Components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	st, err := store.Open(cfg.Storage.DatabasePath, cfg.Model.TextDimensions, cfg.Model.VisualDimensions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	if err := st.Rebuild(context.Background()); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to rebuild collections: %w", err)
	}

	client := llm.NewClient(llm.Options{
		Endpoint:         cfg.Model.Endpoint,
		APIKey:           cfg.Model.APIKey,
		ChatModel:        cfg.Model.ChatModel,
		EmbeddingModel:   cfg.Model.EmbeddingModel,
		VisualModel:      cfg.Model.VisualModel,
		TextDimensions:   cfg.Model.TextDimensions,
		VisualDimensions: cfg.Model.VisualDimensions,
		CacheSize:        cfg.Model.CacheSize,
	})

	r := retriever.New(st, client, client, &cfg.Search, logger)
	ing := ingest.New(st, client, client, client, client, logger)
	org := cluster.New(st, client, &cfg.Organize, logger)
	history := actions.NewEngine(cfg.History.MaxSessions)
	executor := actions.NewExecutor(logger)
	assist := assistant.New(r, client, logger)

	return &Components{
		Store:     st,
		Client:    client,
		Retriever: r,
		Ingester:  ing,
		Organizer: org,
		History:   history,
		Executor:  executor,
		Assistant: assist,
	}, nil
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ing := components.Ingester
	watchSvc := watcher.New(
		cfg.Watch.Directories,
		cfg.Watch.Extensions,
		cfg.Watch.RecursiveOrDefault(),
		func(path string) {
			if err := ing.IngestFile(context.Background(), path); err != nil {
				logger.Warn("watch ingest failed", zap.String("path", path), zap.Error(err))
			}
		},
		func(path string) {
			if err := ing.DeleteFile(context.Background(), path); err != nil {
				logger.Warn("watch delete failed", zap.String("path", path), zap.Error(err))
			}
		},
		logger,
	)
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if len(cfg.Watch.Directories) > 0 {
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		watchSvc.SyncExistingFiles()
	}

	srv := server.NewServer(
		components.Store,
		components.Retriever,
		components.Ingester,
		components.Organizer,
		components.History,
		components.Executor,
		components.Assistant,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchSvc.Stop()
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct mode)")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = direct store access)")
	limit := fs.Int("limit", 10, "number of results")
	media := fs.String("media", "all", "media filter: all, text, image, or audio")
	crossModal := fs.Bool("cross-modal", true, "search the visual collection with a text query")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: seiri search [flags] <query>")
		os.Exit(1)
	}
	query := &models.SearchQuery{
		Query:      strings.TrimSpace(strings.Join(fs.Args(), " ")),
		Limit:      *limit,
		Media:      models.MediaFilter(*media),
		CrossModal: *crossModal,
	}

	var response *models.SearchResponse
	if *serverURL != "" {
		res, err := postJSON[models.SearchResponse](*serverURL+"/api/v1/search", query)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		response = res
	} else {
		components, _ := mustComponents(*configPath)
		defer components.Close()
		res, err := components.Retriever.Search(context.Background(), query)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		response = res
	}

	if *outputFormat == "json" {
		printJSON(response)
		return
	}
	if len(response.Results) == 0 {
		fmt.Println("No results.")
		return
	}
	for _, r := range response.Results {
		fmt.Printf("%2d. [%.3f] %s (%s)\n", r.Rank, r.Score, r.Record.DisplayName, r.Record.MediaClass)
		fmt.Printf("    %s\n", r.Record.SourcePath)
		if snippet := strings.TrimSpace(utils.Truncate(r.Record.Content, 120)); snippet != "" {
			fmt.Printf("    %s\n", snippet)
		}
	}
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	dir := fs.String("dir", "", "ingest a whole directory recursively")
	_ = fs.Parse(os.Args[2:])

	if *dir == "" && fs.NArg() < 1 {
		fmt.Println("Usage: seiri ingest [flags] <file>... | seiri ingest -dir <directory>")
		os.Exit(1)
	}

	components, cfg := mustComponents(*configPath)
	defer components.Close()
	ctx := context.Background()

	if *dir != "" {
		n, err := components.Ingester.IngestDirectory(ctx, *dir, cfg.Watch.Extensions)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ingest finished with errors: %v\n", err)
		}
		fmt.Printf("Ingested %d files from %s\n", n, *dir)
		return
	}

	results := components.Ingester.IngestBatch(ctx, fs.Args())
	for _, res := range results {
		if res.Success {
			fmt.Printf("ok   %s\n", res.Path)
		} else {
			fmt.Printf("FAIL %s: %s\n", res.Path, res.Error)
		}
	}
}

func runOrganize() {
	fs := flag.NewFlagSet("organize", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct mode)")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = direct store access)")
	maxClusters := fs.Int("max-clusters", 0, "maximum number of clusters (0 = config default)")
	targetDir := fs.String("target", "", "directory to create cluster folders in (empty = config default)")
	execute := fs.Bool("execute", false, "execute the plan instead of only printing it")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	type organizeResponse struct {
		Plan      *models.OrganizePlan     `json:"plan"`
		Executed  bool                     `json:"executed"`
		SessionID string                   `json:"session_id,omitempty"`
		Results   []models.ExecutionResult `json:"results,omitempty"`
	}

	var resp *organizeResponse
	if *serverURL != "" {
		res, err := postJSON[organizeResponse](*serverURL+"/api/v1/organize", map[string]interface{}{
			"max_clusters": *maxClusters,
			"target_dir":   *targetDir,
			"execute":      *execute,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Organize failed: %v\n", err)
			os.Exit(1)
		}
		resp = res
	} else {
		if *execute {
			// Undo history lives in the server process; executing without it
			// would leave the session unrecoverable.
			fmt.Fprintln(os.Stderr, "-execute requires a running server (undo history is kept there); drop -server \"\" or run without -execute")
			os.Exit(1)
		}
		components, cfg := mustComponents(*configPath)
		defer components.Close()
		mc := *maxClusters
		if mc <= 0 {
			mc = cfg.Organize.MaxClusters
		}
		td := *targetDir
		if td == "" {
			td = cfg.Organize.TargetDir
		}
		plan, err := components.Organizer.Organize(context.Background(), mc, td)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Organize failed: %v\n", err)
			os.Exit(1)
		}
		resp = &organizeResponse{Plan: plan}
	}

	if *outputFormat == "json" {
		printJSON(resp)
		return
	}
	plan := resp.Plan
	if plan == nil || len(plan.Clusters) == 0 {
		fmt.Println("Not enough records to organize.")
		return
	}
	for _, c := range plan.Clusters {
		fmt.Printf("%s (%d files) -> %s/\n", c.Label, len(c.Members), c.FolderSlug)
		for _, m := range c.Members {
			fmt.Printf("    %s\n", m.DisplayName)
		}
	}
	fmt.Printf("\n%d planned actions\n", len(plan.Actions))
	if resp.Executed {
		succeeded := 0
		for _, r := range resp.Results {
			if r.Success {
				succeeded++
			}
		}
		fmt.Printf("Executed session %s: %d/%d actions succeeded\n", resp.SessionID, succeeded, len(resp.Results))
		fmt.Println("Run \"seiri undo\" to revert.")
	} else if len(plan.Actions) > 0 {
		fmt.Println("Re-run with -execute to apply.")
	}
}

func runUndo() {
	fs := flag.NewFlagSet("undo", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	sessionID := fs.String("session", "", "session to undo (empty = most recent undoable)")
	_ = fs.Parse(os.Args[2:])

	type undoResponse struct {
		SessionID string                   `json:"session_id"`
		Results   []models.ExecutionResult `json:"results"`
	}
	resp, err := postJSON[undoResponse](*serverURL+"/api/v1/undo", map[string]string{
		"session_id": *sessionID,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Undo failed: %v\n", err)
		os.Exit(1)
	}
	succeeded := 0
	for _, r := range resp.Results {
		if r.Success {
			succeeded++
		} else {
			fmt.Printf("FAIL %s: %s\n", r.ActionID, r.Error)
		}
	}
	fmt.Printf("Undid session %s: %d/%d actions reverted\n", resp.SessionID, succeeded, len(resp.Results))
}

func runHistory() {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	type historyResponse struct {
		Sessions []models.SessionSummary `json:"sessions"`
	}
	resp, err := getJSON[historyResponse](*serverURL + "/api/v1/history")
	if err != nil {
		fmt.Fprintf(os.Stderr, "History failed: %v\n", err)
		os.Exit(1)
	}
	if *outputFormat == "json" {
		printJSON(resp)
		return
	}
	if len(resp.Sessions) == 0 {
		fmt.Println("No sessions.")
		return
	}
	for _, s := range resp.Sessions {
		state := ""
		if s.Undone {
			state = " (undone)"
		}
		fmt.Printf("%s  %s  %d/%d succeeded, %d invertible%s\n",
			s.SessionID, s.Description, s.Succeeded, s.Actions, s.Invertible, state)
	}
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct mode)")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = direct store access)")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: seiri ask [flags] <question>")
		os.Exit(1)
	}
	question := strings.TrimSpace(strings.Join(fs.Args(), " "))

	var answer *assistant.Answer
	if *serverURL != "" {
		res, err := postJSON[assistant.Answer](*serverURL+"/api/v1/ask", map[string]string{
			"question": question,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
		answer = res
	} else {
		components, _ := mustComponents(*configPath)
		defer components.Close()
		res, err := components.Assistant.Ask(context.Background(), question)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
		answer = res
	}

	fmt.Println(answer.Text)
	if len(answer.Sources) > 0 {
		fmt.Println("\nSources:")
		for _, s := range answer.Sources {
			fmt.Printf("  %s (%s)\n", s.Record.DisplayName, s.Record.SourcePath)
		}
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct mode)")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = direct store access)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	type statusResponse struct {
		Records          int64 `json:"records"`
		TextCollection   int   `json:"text_collection"`
		VisualCollection int   `json:"visual_collection"`
		HistorySessions  int   `json:"history_sessions"`
	}

	var status statusResponse
	if *serverURL != "" {
		res, err := getJSON[statusResponse](*serverURL + "/api/v1/status")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = *res
	} else {
		components, _ := mustComponents(*configPath)
		defer components.Close()
		count, err := components.Store.Count(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = statusResponse{
			Records:          count,
			TextCollection:   components.Store.CollectionSize(models.CollectionText),
			VisualCollection: components.Store.CollectionSize(models.CollectionVisual),
		}
	}

	if *outputFormat == "json" {
		printJSON(status)
		return
	}
	fmt.Printf("records:            %d\n", status.Records)
	fmt.Printf("text_collection:    %d\n", status.TextCollection)
	fmt.Printf("visual_collection:  %d\n", status.VisualCollection)
	fmt.Printf("history_sessions:   %d\n", status.HistorySessions)
}

// mustComponents loads config and initializes components, exiting on failure.
func mustComponents(configPath string) (*Components, *config.Config) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	return components, cfg
}

func postJSON[T any](url string, body interface{}) (*T, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	return decodeResponse[T](resp)
}

func getJSON[T any](url string) (*T, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	return decodeResponse[T](resp)
}

func decodeResponse[T any](resp *http.Response) (*T, error) {
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`seiri - personal file retrieval and organization engine

Usage:
  seiri server [flags]              Start the HTTP server (with directory watching)
  seiri search [flags] <query>      Hybrid search over ingested files
  seiri ingest [flags] <file>...    Ingest files (or -dir for a directory)
  seiri organize [flags]            Cluster files and plan (or -execute) folder moves
  seiri undo [flags]                Revert the last organize session
  seiri history [flags]             List executed sessions
  seiri ask [flags] <question>      Ask a question grounded in your files
  seiri status [flags]              Show store and collection status
  seiri version                     Show version
  seiri help                        Show this help

Common Flags:
  --config string   Config file path (default: /usr/local/etc/seiri/config.yaml,
                    falling back to ./config.yaml when present)
  --server string   Server URL (default: http://localhost:8080). Use --server ""
                    for direct store access when the server is not running.`)
}
