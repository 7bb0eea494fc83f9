package actions

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/hyperjump/seiri/internal/models"
)

// Executor performs the real filesystem mutations for file actions. It is
// the only part of this package that touches the filesystem; the Engine
// itself only proposes and records.
type Executor struct {
	logger *zap.Logger
}

// NewExecutor creates a filesystem executor.
func NewExecutor(logger *zap.Logger) *Executor {
	return &Executor{logger: logger}
}

// ExecuteAll runs each action in order and returns one result per action.
// A failed action never aborts the batch; its result carries the error.
func (x *Executor) ExecuteAll(acts []models.FileAction) []models.ExecutionResult {
	results := make([]models.ExecutionResult, 0, len(acts))
	for _, a := range acts {
		res := models.ExecutionResult{ActionID: a.ID, Success: true}
		if err := x.Execute(a); err != nil {
			res.Success = false
			res.Error = err.Error()
			x.logger.Warn("file action failed",
				zap.String("kind", string(a.Kind)),
				zap.String("source", a.SourcePath),
				zap.String("destination", a.DestinationPath),
				zap.Error(err))
		}
		results = append(results, res)
	}
	return results
}

// Execute performs one action. Move and copy resolve the destination-as-
// folder ambiguity with the same rule the undo derivation uses.
func (x *Executor) Execute(a models.FileAction) error {
	if err := a.Validate(); err != nil {
		return err
	}
	switch a.Kind {
	case models.ActionMove, models.ActionRename:
		dst := a.DestinationPath
		if a.Kind == models.ActionMove {
			dst = ResolveActualDestination(a.SourcePath, a.DestinationPath)
		}
		if err := os.Rename(a.SourcePath, dst); err != nil {
			return fmt.Errorf("%s failed: %w", a.Kind, err)
		}
	case models.ActionCopy:
		dst := ResolveActualDestination(a.SourcePath, a.DestinationPath)
		if err := copyFile(a.SourcePath, dst); err != nil {
			return fmt.Errorf("copy failed: %w", err)
		}
	case models.ActionDelete:
		if err := os.Remove(a.SourcePath); err != nil {
			return fmt.Errorf("delete failed: %w", err)
		}
	case models.ActionCreateFolder:
		if err := os.MkdirAll(a.DestinationPath, 0755); err != nil {
			return fmt.Errorf("createFolder failed: %w", err)
		}
	case models.ActionDeleteFolder:
		// os.Remove refuses non-empty directories, so a folder that
		// gained content since creation is never silently destroyed.
		if err := os.Remove(a.SourcePath); err != nil {
			return fmt.Errorf("deleteFolder failed: %w", err)
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
