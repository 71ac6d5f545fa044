package handler

import (
	"net/http"
	"duel_arena/internal/app/service"
	"duel_arena/internal/common"

	"github.com/go-chi/chi/v5"
)

type UserHandler struct {
	records *service.RecordsService
}

func NewUserHandler(records *service.RecordsService) *UserHandler {
	return &UserHandler{records: records}
}

func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{username}", h.getProfile) // GET /api/v1/users/alice
}

func (h *UserHandler) getProfile(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	user, err := h.records.Profile(r.Context(), username)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, user)
}
