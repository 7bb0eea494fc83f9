package actions

import (
	"errors"
	"fmt"
	"testing"

	"github.com/hyperjump/seiri/internal/models"
)

func recordMoveSession(e *Engine, id string, src, dst string, success bool) {
	acts := []models.FileAction{{
		ID:              id + "-a1",
		Kind:            models.ActionMove,
		SourcePath:      src,
		DestinationPath: dst,
	}}
	results := []models.ExecutionResult{{ActionID: id + "-a1", Success: success}}
	e.Record(id, acts, results, "move session "+id)
}

func TestRecordAndUndoLastSession(t *testing.T) {
	e := NewEngine(50)
	recordMoveSession(e, "s1", "/x/a.txt", "/y", true)

	undo, sessionID, err := e.UndoActionsForLastSession()
	if err != nil {
		t.Fatalf("UndoActionsForLastSession failed: %v", err)
	}
	if sessionID != "s1" {
		t.Errorf("session = %s", sessionID)
	}
	if len(undo) != 1 {
		t.Fatalf("undo set size = %d", len(undo))
	}
	if undo[0].SourcePath != "/y/a.txt" || undo[0].DestinationPath != "/x/a.txt" {
		t.Errorf("undo = move(%q, %q)", undo[0].SourcePath, undo[0].DestinationPath)
	}
}

func TestUndoIsLIFO(t *testing.T) {
	e := NewEngine(50)
	acts := []models.FileAction{
		{ID: "a1", Kind: models.ActionCreateFolder, DestinationPath: "/organized/taxes"},
		{ID: "a2", Kind: models.ActionMove, SourcePath: "/x/t.pdf", DestinationPath: "/organized/taxes"},
	}
	results := []models.ExecutionResult{
		{ActionID: "a1", Success: true},
		{ActionID: "a2", Success: true},
	}
	e.Record("s1", acts, results, "organize")

	undo, err := e.UndoActionsFor("s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(undo) != 2 {
		t.Fatalf("undo set size = %d", len(undo))
	}
	// The move unwinds before the folder that received it is removed.
	if undo[0].Kind != models.ActionMove {
		t.Errorf("first undo = %s, want move", undo[0].Kind)
	}
	if undo[1].Kind != models.ActionDeleteFolder {
		t.Errorf("second undo = %s, want deleteFolder", undo[1].Kind)
	}
}

func TestFailedActionsContributeNothingToUndo(t *testing.T) {
	e := NewEngine(50)
	acts := []models.FileAction{
		{ID: "a1", Kind: models.ActionMove, SourcePath: "/x/a.txt", DestinationPath: "/y"},
		{ID: "a2", Kind: models.ActionMove, SourcePath: "/x/b.txt", DestinationPath: "/y"},
	}
	results := []models.ExecutionResult{
		{ActionID: "a1", Success: false, Error: "permission denied"},
		{ActionID: "a2", Success: true},
	}
	e.Record("s1", acts, results, "partial")

	undo, err := e.UndoActionsFor("s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(undo) != 1 {
		t.Fatalf("undo set size = %d, want 1", len(undo))
	}
	if undo[0].SourcePath != "/y/b.txt" {
		t.Errorf("undo source = %q", undo[0].SourcePath)
	}
	// The failed action stays in the audit trail.
	executed, err := e.ExecutedActions("s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(executed) != 2 {
		t.Fatalf("audit trail size = %d", len(executed))
	}
	if executed[0].Success || executed[0].Reverse != nil {
		t.Error("failed action should be recorded without a reverse")
	}
}

func TestUndoSkipsNonInvertibleSessions(t *testing.T) {
	e := NewEngine(50)
	recordMoveSession(e, "s1", "/x/a.txt", "/y", true)
	// Newer session holds only a delete, which is never invertible.
	e.Record("s2",
		[]models.FileAction{{ID: "d1", Kind: models.ActionDelete, SourcePath: "/x/junk.txt"}},
		[]models.ExecutionResult{{ActionID: "d1", Success: true}},
		"cleanup")

	_, sessionID, err := e.UndoActionsForLastSession()
	if err != nil {
		t.Fatal(err)
	}
	if sessionID != "s1" {
		t.Errorf("default undo should skip the non-invertible session, got %s", sessionID)
	}
}

func TestMarkUndoneExcludesSession(t *testing.T) {
	e := NewEngine(50)
	recordMoveSession(e, "s1", "/x/a.txt", "/y", true)
	recordMoveSession(e, "s2", "/x/b.txt", "/y", true)

	if err := e.MarkUndone("s2"); err != nil {
		t.Fatal(err)
	}
	_, sessionID, err := e.UndoActionsForLastSession()
	if err != nil {
		t.Fatal(err)
	}
	if sessionID != "s1" {
		t.Errorf("undone session should be skipped, got %s", sessionID)
	}

	summaries := e.HistorySummary()
	if len(summaries) != 2 {
		t.Fatalf("summary size = %d", len(summaries))
	}
	// Most recent first.
	if summaries[0].SessionID != "s2" || !summaries[0].Undone {
		t.Errorf("summaries[0] = %+v", summaries[0])
	}
}

func TestHistoryEviction(t *testing.T) {
	e := NewEngine(50)
	for i := 1; i <= 51; i++ {
		recordMoveSession(e, fmt.Sprintf("s%02d", i), "/x/a.txt", "/y", true)
	}
	if _, err := e.UndoActionsFor("s01"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("oldest session should be evicted, got %v", err)
	}
	if _, err := e.UndoActionsFor("s02"); err != nil {
		t.Errorf("second-oldest session should survive: %v", err)
	}
	if got := len(e.HistorySummary()); got != 50 {
		t.Errorf("history size = %d, want 50", got)
	}
}

func TestClear(t *testing.T) {
	e := NewEngine(50)
	recordMoveSession(e, "s1", "/x/a.txt", "/y", true)
	e.Clear()
	if len(e.HistorySummary()) != 0 {
		t.Error("history should be empty after Clear")
	}
	if _, _, err := e.UndoActionsForLastSession(); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestNewSessionIDIsOrdered(t *testing.T) {
	// Ids minted back to back land in the same millisecond, so ordering
	// depends on the shared monotonic entropy, not just the timestamp.
	prev := NewSessionID()
	for i := 0; i < 1000; i++ {
		id := NewSessionID()
		if id <= prev {
			t.Fatalf("session id %q not greater than predecessor %q (pair %d)", id, prev, i)
		}
		prev = id
	}
}
