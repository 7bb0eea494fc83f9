package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/seiri/internal/actions"
	"github.com/hyperjump/seiri/internal/models"
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request", zap.String("query", query.Query), zap.Int("limit", query.Limit))
	response, err := s.retriever.Search(r.Context(), &query)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

type ingestRequest struct {
	Paths []string `json:"paths"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Paths) == 0 {
		s.respondError(w, http.StatusBadRequest, "paths is required")
		return
	}
	results := s.ingester.IngestBatch(r.Context(), req.Paths)
	succeeded := 0
	for _, res := range results {
		if res.Success {
			succeeded++
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"results":   results,
		"succeeded": succeeded,
		"failed":    len(results) - succeeded,
	})
}

type organizeRequest struct {
	MaxClusters int    `json:"max_clusters,omitempty"`
	TargetDir   string `json:"target_dir,omitempty"`
	Execute     bool   `json:"execute,omitempty"`
	Description string `json:"description,omitempty"`
}

type organizeResponse struct {
	Plan      *models.OrganizePlan     `json:"plan"`
	Executed  bool                     `json:"executed"`
	SessionID string                   `json:"session_id,omitempty"`
	Results   []models.ExecutionResult `json:"results,omitempty"`
}

func (s *Server) handleOrganize(w http.ResponseWriter, r *http.Request) {
	var req organizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	maxClusters := req.MaxClusters
	if maxClusters <= 0 {
		maxClusters = s.config.Organize.MaxClusters
	}
	targetDir := req.TargetDir
	if targetDir == "" {
		targetDir = s.config.Organize.TargetDir
	}
	s.logger.Debug("organize request",
		zap.Int("max_clusters", maxClusters),
		zap.String("target_dir", targetDir),
		zap.Bool("execute", req.Execute))

	plan, err := s.organizer.Organize(r.Context(), maxClusters, targetDir)
	if err != nil {
		s.logger.Error("organize failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := organizeResponse{Plan: plan}
	if req.Execute && len(plan.Actions) > 0 {
		results := s.executor.ExecuteAll(plan.Actions)
		sessionID := actions.NewSessionID()
		description := req.Description
		if description == "" {
			description = "organize into " + targetDir
		}
		s.history.Record(sessionID, plan.Actions, results, description)
		resp.Executed = true
		resp.SessionID = sessionID
		resp.Results = results
	}
	s.respondJSON(w, http.StatusOK, resp)
}

type undoRequest struct {
	SessionID string `json:"session_id,omitempty"`
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	var req undoRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	var (
		undoActions []models.FileAction
		sessionID   = req.SessionID
		err         error
	)
	if sessionID != "" {
		undoActions, err = s.history.UndoActionsFor(sessionID)
	} else {
		undoActions, sessionID, err = s.history.UndoActionsForLastSession()
	}
	if err != nil {
		s.respondError(w, http.StatusNotFound, err.Error())
		return
	}

	s.logger.Debug("undo request", zap.String("session_id", sessionID), zap.Int("actions", len(undoActions)))
	results := s.executor.ExecuteAll(undoActions)
	if err := s.history.MarkUndone(sessionID); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"results":    results,
	})
}

type askRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		s.respondError(w, http.StatusBadRequest, "question is required")
		return
	}
	answer, err := s.assistant.Ask(r.Context(), req.Question)
	if err != nil {
		s.logger.Error("ask failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, answer)
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	records, err := s.store.ScanAll(r.Context(), limit)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"records": records,
		"count":   len(records),
	})
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	record, err := s.store.GetByID(r.Context(), id)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if record == nil {
		s.respondError(w, http.StatusNotFound, "record not found")
		return
	}
	s.respondJSON(w, http.StatusOK, record)
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete record request", zap.String("id", id))
	if err := s.store.DeleteByID(r.Context(), id); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": s.history.HistorySummary(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	count, err := s.store.Count(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"records":            count,
		"text_collection":    s.store.CollectionSize(models.CollectionText),
		"visual_collection":  s.store.CollectionSize(models.CollectionVisual),
		"history_sessions":   len(s.history.HistorySummary()),
		"config": map[string]interface{}{
			"text_dimensions":   s.config.Model.TextDimensions,
			"visual_dimensions": s.config.Model.VisualDimensions,
			"database_path":     s.config.Storage.DatabasePath,
			"max_clusters":      s.config.Organize.MaxClusters,
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
