package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/rain-droid/orgIO/internal/domain"
)

// StartSessionResponse describes the response body for start.
type StartSessionResponse struct {
	SessionID string    `json:"sessionId"`
	BriefID   string    `json:"briefId"`
	BriefName string    `json:"briefName"`
	Role      string    `json:"role"`
	StartedAt time.Time `json:"startedAt"`
}

// EndSessionResponse describes the response body for end.
type EndSessionResponse struct {
	SessionID       string   `json:"sessionId"`
	SubmissionID    string   `json:"submissionId"`
	DurationMinutes int      `json:"durationMinutes"`
	SummaryLines    []string `json:"summaryLines"`
	MatchedTasks    []string `json:"matchedTasks"`
}

// TaskUpdateView is a task status change applied by analysis.
type TaskUpdateView struct {
	TaskID string `json:"taskId"`
	Title  string `json:"title"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// TaskView is a task created by analysis.
type TaskView struct {
	ID          string `json:"id"`
	BriefID     string `json:"briefId"`
	Role        string `json:"role"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

// AnalyzeSessionResponse describes the response body for analyze.
type AnalyzeSessionResponse struct {
	UpdatedTasks []TaskUpdateView `json:"updatedTasks"`
	NewTasks     []TaskView       `json:"newTasks"`
	Issues       []string         `json:"issues"`
	AISummary    string           `json:"aiSummary"`
	Degraded     bool             `json:"degraded,omitempty"`
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}

	var req StartSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	role, _ := domain.ParseRole(req.Role)

	result, err := h.sessions.StartSession(r.Context(), domain.StartSessionInput{
		Caller:  who,
		BriefID: strings.TrimSpace(req.BriefID),
		Role:    role,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, StartSessionResponse{
		SessionID: result.SessionID,
		BriefID:   result.BriefID,
		BriefName: result.BriefName,
		Role:      string(result.Role),
		StartedAt: result.StartedAt,
	})
}

func (h *Handler) endSession(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}

	var req EndSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	sessionID := r.PathValue("id")
	if sessionID == "" {
		sessionID = strings.TrimSpace(req.SessionID)
	}
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing session id")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	result, err := h.sessions.EndSession(r.Context(), domain.EndSessionInput{
		Caller:     who,
		SessionID:  sessionID,
		Activities: toActivities(req.Activities),
		Snippets:   toSnippets(req.Snippets),
		Summary:    req.Summary,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, EndSessionResponse{
		SessionID:       result.SessionID,
		SubmissionID:    result.SubmissionID,
		DurationMinutes: result.DurationMinutes,
		SummaryLines:    result.SummaryLines,
		MatchedTasks:    result.MatchedTasks,
	})
}

func (h *Handler) analyzeSession(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}

	var req AnalyzeSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	role, _ := domain.ParseRole(req.Role)

	result, err := h.sessions.AnalyzeSession(r.Context(), domain.AnalyzeSessionInput{
		Caller:          who,
		SessionID:       strings.TrimSpace(req.SessionID),
		BriefID:         strings.TrimSpace(req.BriefID),
		Role:            role,
		Activities:      toActivities(req.Activities),
		Notes:           req.Notes,
		SummaryLines:    req.SummaryLines,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	resp := AnalyzeSessionResponse{
		UpdatedTasks: make([]TaskUpdateView, 0, len(result.UpdatedTasks)),
		NewTasks:     make([]TaskView, 0, len(result.NewTasks)),
		Issues:       result.Issues,
		AISummary:    result.Summary,
		Degraded:     result.Degraded,
	}
	if resp.Issues == nil {
		resp.Issues = []string{}
	}
	for _, u := range result.UpdatedTasks {
		resp.UpdatedTasks = append(resp.UpdatedTasks, TaskUpdateView{
			TaskID: u.TaskID,
			Title:  u.Title,
			Status: string(u.Status),
			Reason: u.Reason,
		})
	}
	for _, t := range result.NewTasks {
		resp.NewTasks = append(resp.NewTasks, TaskView{
			ID:          t.ID,
			BriefID:     t.BriefID,
			Role:        string(t.Role),
			Title:       t.Title,
			Description: t.Description,
			Status:      string(t.Status),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
