package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"codejudge/internal/api/middleware"
	"codejudge/internal/app/service"
	"codejudge/internal/common"

	"github.com/go-chi/chi/v5"
)

type SubmissionHandler struct {
	submissionService *service.SubmissionService
}

func NewSubmissionHandler(ss *service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissionService: ss}
}

// RegisterRoutes mounts the evaluation endpoints at the API root: /run is
// open, /submit and the history listing require an authenticated user.
func (h *SubmissionHandler) RegisterRoutes(r chi.Router) {
	r.Post("/run", h.runCode)

	r.Group(func(authed chi.Router) {
		authed.Use(middleware.Authenticator)
		authed.Post("/submit", h.submit)
		authed.Get("/submissions/me", h.mySubmissions)
	})
}

func (h *SubmissionHandler) runCode(w http.ResponseWriter, r *http.Request) {
	var req service.EvaluationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	outcome, err := h.submissionService.Run(r.Context(), req)
	if err != nil {
		respondEvaluationError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, outcome)
}

func (h *SubmissionHandler) submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req service.EvaluationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	outcome, err := h.submissionService.Submit(r.Context(), userID, req)
	if err != nil {
		respondEvaluationError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, outcome)
}

func (h *SubmissionHandler) mySubmissions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page <= 0 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	submissions, total, err := h.submissionService.ListMySubmissions(r.Context(), userID, page, pageSize)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"submissions": submissions,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
	})
}

// respondEvaluationError keeps judge dependency failures generic: the
// caller sees "execution failed", never the upstream detail.
func respondEvaluationError(w http.ResponseWriter, err error) {
	if errors.Is(err, common.ErrEvaluationFailed) {
		common.RespondWithError(w, http.StatusInternalServerError, common.ErrEvaluationFailed.Error())
		return
	}
	common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
}
