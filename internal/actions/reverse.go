// Package actions represents filesystem-affecting proposals as typed action
// records, executes them through a filesystem executor, and derives the
// exact inverse needed to undo each successful operation.
package actions

import (
	"path/filepath"

	"github.com/hyperjump/seiri/internal/models"
)

// ResolveActualDestination resolves the destination-as-folder ambiguity of
// move and copy: when the source filename has an extension and the
// destination's last segment does not, the destination is treated as a
// folder and the real post-operation location is dst/basename(src);
// otherwise it is dst itself. The executor and the reverse derivation share
// this rule so undo lands on the true post-move path.
func ResolveActualDestination(source, destination string) string {
	srcExt := filepath.Ext(filepath.Base(source))
	dstExt := filepath.Ext(filepath.Base(destination))
	if srcExt != "" && dstExt == "" {
		return filepath.Join(destination, filepath.Base(source))
	}
	return destination
}

// ReverseAction derives the action that undoes a. It returns nil for kinds
// that cannot be inverted: delete is a deliberate data-loss acknowledgment
// and deleteFolder removes what cannot be faithfully restored.
func ReverseAction(a models.FileAction) *models.FileAction {
	switch a.Kind {
	case models.ActionMove:
		actual := ResolveActualDestination(a.SourcePath, a.DestinationPath)
		return &models.FileAction{
			ID:              a.ID + ":undo",
			Kind:            models.ActionMove,
			SourcePath:      actual,
			DestinationPath: a.SourcePath,
			PermissionScope: filepath.Dir(actual),
			Description:     "Undo: move back to " + a.SourcePath,
		}
	case models.ActionCopy:
		// The original was never touched; undoing a copy deletes the copy.
		actual := ResolveActualDestination(a.SourcePath, a.DestinationPath)
		return &models.FileAction{
			ID:              a.ID + ":undo",
			Kind:            models.ActionDelete,
			SourcePath:      actual,
			PermissionScope: filepath.Dir(actual),
			Description:     "Undo: remove copy at " + actual,
		}
	case models.ActionRename:
		return &models.FileAction{
			ID:              a.ID + ":undo",
			Kind:            models.ActionRename,
			SourcePath:      a.DestinationPath,
			DestinationPath: a.SourcePath,
			PermissionScope: filepath.Dir(a.DestinationPath),
			Description:     "Undo: rename back to " + a.SourcePath,
		}
	case models.ActionCreateFolder:
		return &models.FileAction{
			ID:              a.ID + ":undo",
			Kind:            models.ActionDeleteFolder,
			SourcePath:      a.DestinationPath,
			PermissionScope: filepath.Dir(a.DestinationPath),
			Description:     "Undo: remove folder " + a.DestinationPath,
		}
	default:
		return nil
	}
}
