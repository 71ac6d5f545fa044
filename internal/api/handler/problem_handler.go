package handler

import (
	"net/http"
	"duel_arena/internal/app/service"
	"duel_arena/internal/common"

	"github.com/go-chi/chi/v5"
)

type ProblemHandler struct {
	records *service.RecordsService
}

func NewProblemHandler(records *service.RecordsService) *ProblemHandler {
	return &ProblemHandler{records: records}
}

func (h *ProblemHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{problemSlug}", h.getProblem) // GET /api/v1/problems/two-sum
}

func (h *ProblemHandler) getProblem(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "problemSlug")

	problem, err := h.records.GetProblemBySlug(r.Context(), slug)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, problem)
}
