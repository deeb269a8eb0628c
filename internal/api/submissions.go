package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rain-droid/orgIO/internal/domain"
)

// SubmissionView exposes full details about a submission.
type SubmissionView struct {
	ID              string            `json:"id"`
	BriefID         string            `json:"briefId"`
	SessionID       string            `json:"sessionId,omitempty"`
	UserID          string            `json:"userId"`
	UserName        string            `json:"userName"`
	Role            string            `json:"role"`
	SummaryLines    []string          `json:"summaryLines"`
	DurationMinutes int               `json:"durationMinutes"`
	MatchedTasks    []string          `json:"matchedTasks"`
	Status          string            `json:"status"`
	Analysis        string            `json:"analysis,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
	Activities      []ActivityPayload `json:"activities,omitempty"`
}

// ListSubmissionsResponse packages list results.
type ListSubmissionsResponse struct {
	Items  []SubmissionView `json:"items"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

// ReviewSubmissionResponse describes the response body for review.
type ReviewSubmissionResponse struct {
	ID           string    `json:"id"`
	Status       string    `json:"status"`
	MatchedTasks []string  `json:"matchedTasks"`
	UpdatedAt    time.Time `json:"updatedAt"`
	TasksUpdated []string  `json:"tasksUpdated"`
}

func toSubmissionView(sub domain.Submission) SubmissionView {
	view := SubmissionView{
		ID:              sub.ID,
		BriefID:         sub.BriefID,
		SessionID:       sub.SessionID,
		UserID:          sub.UserID,
		UserName:        sub.UserName,
		Role:            string(sub.Role),
		SummaryLines:    sub.SummaryLines,
		DurationMinutes: sub.DurationMinutes,
		MatchedTasks:    sub.MatchedTasks,
		Status:          string(sub.Status),
		Analysis:        sub.Analysis,
		CreatedAt:       sub.CreatedAt,
		UpdatedAt:       sub.UpdatedAt,
	}
	if view.SummaryLines == nil {
		view.SummaryLines = []string{}
	}
	if view.MatchedTasks == nil {
		view.MatchedTasks = []string{}
	}
	if len(sub.Activities) > 0 {
		view.Activities = toActivityPayloads(sub.Activities)
	}
	return view
}

func (h *Handler) createSubmission(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}

	var req CreateSubmissionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	role, _ := domain.ParseRole(req.Role)

	sub, err := h.submissions.CreateSubmission(r.Context(), domain.CreateSubmissionInput{
		Caller:          who,
		BriefID:         strings.TrimSpace(req.BriefID),
		UserName:        req.UserName,
		Role:            role,
		SummaryLines:    req.Summary,
		DurationMinutes: req.DurationMinutes,
		Activities:      toActivities(req.Activities),
		Snippets:        toSnippets(req.Snippets),
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSubmissionView(*sub))
}

func (h *Handler) getSubmission(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}

	sub, err := h.submissions.GetSubmission(r.Context(), who, r.PathValue("id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubmissionView(*sub))
}

func (h *Handler) listSubmissions(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	input := domain.ListSubmissionsInput{
		Caller:  who,
		BriefID: strings.TrimSpace(query.Get("briefId")),
		UserID:  strings.TrimSpace(query.Get("userId")),
		Status:  domain.SubmissionStatus(strings.TrimSpace(query.Get("status"))),
	}
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "validation_failed", "limit must be a positive integer")
			return
		}
		input.Limit = parsed
	}
	if raw := query.Get("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "validation_failed", "offset must be a non-negative integer")
			return
		}
		input.Offset = parsed
	}

	subs, err := h.submissions.ListSubmissions(r.Context(), input)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	resp := ListSubmissionsResponse{
		Items:  make([]SubmissionView, 0, len(subs)),
		Limit:  domain.EffectiveListLimit(input.Limit),
		Offset: input.Offset,
	}
	for _, sub := range subs {
		resp.Items = append(resp.Items, toSubmissionView(sub))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) reviewSubmission(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}

	var req ReviewSubmissionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	result, err := h.submissions.ReviewSubmission(r.Context(), domain.ReviewInput{
		Caller:       who,
		SubmissionID: r.PathValue("id"),
		Status:       domain.SubmissionStatus(req.Status),
		MatchedTasks: req.MatchedTasks,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	resp := ReviewSubmissionResponse{
		ID:           result.ID,
		Status:       string(result.Status),
		MatchedTasks: result.MatchedTasks,
		UpdatedAt:    result.UpdatedAt,
		TasksUpdated: result.TasksUpdated,
	}
	if resp.MatchedTasks == nil {
		resp.MatchedTasks = []string{}
	}
	writeJSON(w, http.StatusOK, resp)
}
