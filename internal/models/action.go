package models

import "time"

// ActionKind enumerates the filesystem operations a FileAction can propose.
type ActionKind string

const (
	ActionMove         ActionKind = "move"
	ActionCopy         ActionKind = "copy"
	ActionRename       ActionKind = "rename"
	ActionDelete       ActionKind = "delete"
	ActionCreateFolder ActionKind = "createFolder"
	ActionDeleteFolder ActionKind = "deleteFolder"
)

// FileAction is a proposed filesystem operation. Actions are immutable once
// created; they stay proposals until executed.
type FileAction struct {
	ID              string     `json:"id"`
	Kind            ActionKind `json:"kind"`
	SourcePath      string     `json:"source_path,omitempty"`
	DestinationPath string     `json:"destination_path,omitempty"`
	// PermissionScope is the directory that must be writable for this
	// action, so a caller can pre-authorize exactly the directories touched.
	PermissionScope string `json:"permission_scope,omitempty"`
	Description     string `json:"description,omitempty"`
}

// Validate checks the per-kind path requirements.
func (a *FileAction) Validate() error {
	switch a.Kind {
	case ActionMove, ActionCopy, ActionRename:
		if a.SourcePath == "" || a.DestinationPath == "" {
			return &MissingPathError{Kind: a.Kind}
		}
	case ActionDelete, ActionDeleteFolder:
		if a.SourcePath == "" {
			return &MissingPathError{Kind: a.Kind}
		}
	case ActionCreateFolder:
		if a.DestinationPath == "" {
			return &MissingPathError{Kind: a.Kind}
		}
	default:
		return &MissingPathError{Kind: a.Kind}
	}
	return nil
}

// MissingPathError reports a FileAction whose paths do not satisfy its kind.
type MissingPathError struct {
	Kind ActionKind
}

func (e *MissingPathError) Error() string {
	return "invalid or incomplete paths for action kind " + string(e.Kind)
}

// ExecutionResult is the outcome of executing one FileAction.
type ExecutionResult struct {
	ActionID string `json:"action_id"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

// ExecutedAction wraps a FileAction with its execution outcome and, when the
// action succeeded and is invertible, the exact reverse action.
type ExecutedAction struct {
	Action     FileAction  `json:"action"`
	ExecutedAt time.Time   `json:"executed_at"`
	Success    bool        `json:"success"`
	Reverse    *FileAction `json:"reverse,omitempty"`
}

// SessionSummary is one history entry as exposed to callers.
type SessionSummary struct {
	SessionID   string    `json:"session_id"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	Actions     int       `json:"actions"`
	Succeeded   int       `json:"succeeded"`
	Invertible  int       `json:"invertible"`
	Undone      bool      `json:"undone"`
}
