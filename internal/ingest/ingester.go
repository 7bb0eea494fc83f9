// Package ingest turns files on disk into embedded records in the store.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/seiri/internal/extract"
	"github.com/hyperjump/seiri/internal/fileid"
	"github.com/hyperjump/seiri/internal/llm"
	"github.com/hyperjump/seiri/internal/models"
	"github.com/hyperjump/seiri/internal/store"
)

const (
	attrSourceMtime = "source_mtime"
	attrSourceSize  = "source_size"
)

// Ingester classifies files by media type, extracts or generates their text
// content, embeds them, and inserts the result into the store.
type Ingester struct {
	store          *store.Store
	textEmbedder   llm.TextEmbedder
	visualEmbedder llm.VisualEmbedder
	transcriber    llm.Transcriber
	captioner      llm.Captioner
	extractor      *extract.Extractor
	logger         *zap.Logger
}

// New creates an ingester. visualEmbedder, transcriber, and captioner may be
// nil; files that would need the missing collaborator are rejected with an
// error instead of being silently skipped.
func New(
	s *store.Store,
	textEmbedder llm.TextEmbedder,
	visualEmbedder llm.VisualEmbedder,
	transcriber llm.Transcriber,
	captioner llm.Captioner,
	logger *zap.Logger,
) *Ingester {
	return &Ingester{
		store:          s,
		textEmbedder:   textEmbedder,
		visualEmbedder: visualEmbedder,
		transcriber:    transcriber,
		captioner:      captioner,
		extractor:      extract.NewExtractor(),
		logger:         logger,
	}
}

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".webp": true, ".bmp": true, ".tiff": true,
}

var audioExts = map[string]bool{
	".mp3": true, ".wav": true, ".m4a": true, ".flac": true, ".ogg": true,
}

// ClassifyMedia returns the media class for a file path based on extension.
func ClassifyMedia(path string) models.MediaClass {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case imageExts[ext]:
		return models.MediaImage
	case audioExts[ext]:
		return models.MediaAudio
	default:
		return models.MediaText
	}
}

// IngestFile ingests a single file. The record ID is derived from the
// absolute path, so re-ingesting a changed file replaces its record.
// Unchanged files (same mtime and size as the stored record) are skipped.
func (ing *Ingester) IngestFile(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file: %s", absPath)
	}

	recordID := fileid.RecordID(absPath)
	if ing.unchanged(ctx, recordID, absPath, info) {
		ing.logger.Debug("skipping unchanged file", zap.String("path", absPath))
		return nil
	}

	mediaClass := ClassifyMedia(absPath)
	content, embedding, err := ing.embedFile(ctx, absPath, mediaClass)
	if err != nil {
		return err
	}

	record := &models.Record{
		ID:          recordID,
		Content:     content,
		SourcePath:  absPath,
		DisplayName: filepath.Base(absPath),
		MediaClass:  mediaClass,
		Embedding:   embedding,
		Attributes: map[string]string{
			attrSourceMtime: strconv.FormatInt(info.ModTime().UnixNano(), 10),
			attrSourceSize:  strconv.FormatInt(info.Size(), 10),
		},
		CreatedAt: time.Now(),
	}
	if _, err := ing.store.Insert(ctx, record); err != nil {
		return fmt.Errorf("store record: %w", err)
	}
	ing.logger.Debug("file ingested",
		zap.String("path", absPath),
		zap.String("record_id", recordID),
		zap.String("media_class", string(mediaClass)))
	return nil
}

// embedFile produces the record's text content and embedding for the given
// media class. Images are captioned and embedded in the visual space; audio
// is transcribed and embedded in the text space; everything else is extracted
// as text.
func (ing *Ingester) embedFile(ctx context.Context, absPath string, mc models.MediaClass) (string, []float32, error) {
	switch mc {
	case models.MediaImage:
		if ing.visualEmbedder == nil {
			return "", nil, fmt.Errorf("no visual embedder configured for %s", absPath)
		}
		embedding, err := ing.visualEmbedder.EmbedImage(ctx, absPath)
		if err != nil {
			return "", nil, fmt.Errorf("embed image: %w", err)
		}
		content := ""
		if ing.captioner != nil {
			content, err = ing.captioner.Caption(ctx, absPath)
			if err != nil {
				// A caption improves keyword matching but the visual
				// embedding alone is enough to make the record searchable.
				ing.logger.Warn("caption failed", zap.String("path", absPath), zap.Error(err))
				content = ""
			}
		}
		return content, embedding, nil

	case models.MediaAudio:
		if ing.transcriber == nil {
			return "", nil, fmt.Errorf("no transcriber configured for %s", absPath)
		}
		transcript, err := ing.transcriber.Transcribe(ctx, absPath)
		if err != nil {
			return "", nil, fmt.Errorf("transcribe: %w", err)
		}
		embedding, err := ing.textEmbedder.Embed(ctx, transcript)
		if err != nil {
			return "", nil, fmt.Errorf("embed transcript: %w", err)
		}
		return transcript, embedding, nil

	default:
		text, err := ing.extractor.Extract(absPath)
		if err != nil {
			return "", nil, fmt.Errorf("extract content: %w", err)
		}
		if strings.TrimSpace(text) == "" {
			return "", nil, fmt.Errorf("no extractable content in %s", absPath)
		}
		embedding, err := ing.textEmbedder.Embed(ctx, text)
		if err != nil {
			return "", nil, fmt.Errorf("embed content: %w", err)
		}
		return text, embedding, nil
	}
}

// unchanged reports whether the stored record for recordID matches the
// file's current mtime and size.
func (ing *Ingester) unchanged(ctx context.Context, recordID, absPath string, info os.FileInfo) bool {
	record, err := ing.store.GetByID(ctx, recordID)
	if err != nil || record == nil || record.Attributes == nil {
		return false
	}
	if record.SourcePath != absPath {
		return false
	}
	mtime, _ := strconv.ParseInt(record.Attributes[attrSourceMtime], 10, 64)
	size, _ := strconv.ParseInt(record.Attributes[attrSourceSize], 10, 64)
	return mtime == info.ModTime().UnixNano() && size == info.Size()
}

// BatchResult reports the outcome of ingesting one file in a batch.
type BatchResult struct {
	Path    string `json:"path"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// IngestBatch ingests every given path, continuing past failures.
// The returned slice has one entry per input path, in input order.
func (ing *Ingester) IngestBatch(ctx context.Context, paths []string) []BatchResult {
	results := make([]BatchResult, 0, len(paths))
	for _, path := range paths {
		result := BatchResult{Path: path, Success: true}
		if err := ing.IngestFile(ctx, path); err != nil {
			result.Success = false
			result.Error = err.Error()
			ing.logger.Warn("ingest failed", zap.String("path", path), zap.Error(err))
		}
		results = append(results, result)
	}
	return results
}

// IngestDirectory walks dir recursively and ingests each regular file whose
// extension is in allowedExts (empty = all). Returns the number of files
// ingested successfully and the first error encountered, if any.
func (ing *Ingester) IngestDirectory(ctx context.Context, dir string, allowedExts []string) (int, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return 0, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("not a directory: %s", absDir)
	}
	count := 0
	var firstErr error
	walkErr := filepath.WalkDir(absDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if len(allowedExts) > 0 && !extensionAllowed(filepath.Ext(path), allowedExts) {
			return nil
		}
		if err := ing.IngestFile(ctx, path); err != nil {
			ing.logger.Warn("ingest failed", zap.String("path", path), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			return nil
		}
		count++
		return nil
	})
	if walkErr != nil {
		return count, walkErr
	}
	return count, firstErr
}

// DeleteFile removes the record for the given path from the store.
// Deleting a path that was never ingested is a no-op.
func (ing *Ingester) DeleteFile(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("absolute path: %w", err)
	}
	return ing.store.DeleteByID(ctx, fileid.RecordID(absPath))
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.TrimPrefix(strings.ToLower(ext), ".")
	for _, a := range allowed {
		if strings.TrimPrefix(strings.ToLower(a), ".") == extNorm {
			return true
		}
	}
	return false
}
