package handler

import (
	"net/http"
	"strconv"
	"duel_arena/internal/api/middleware"
	"duel_arena/internal/app/service"
	"duel_arena/internal/common"

	"github.com/go-chi/chi/v5"
)

type MatchHandler struct {
	records *service.RecordsService
}

func NewMatchHandler(records *service.RecordsService) *MatchHandler {
	return &MatchHandler{records: records}
}

func (h *MatchHandler) RegisterRoutes(r chi.Router) {
	r.Get("/recent", h.recentDuels)          // GET /api/v1/matches/recent
	r.Get("/battles/{battleID}", h.teamBattle) // GET /api/v1/matches/battles/{id}

	r.Group(func(authed chi.Router) {
		authed.Use(middleware.Authenticator)
		authed.Get("/me", h.myDuels)                // GET /api/v1/matches/me
		authed.Get("/me/submissions", h.mySubmissions) // GET /api/v1/matches/me/submissions
	})
}

func (h *MatchHandler) recentDuels(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	duels, err := h.records.RecentDuels(r.Context(), limit)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, duels)
}

func (h *MatchHandler) teamBattle(w http.ResponseWriter, r *http.Request) {
	battleID := chi.URLParam(r, "battleID")

	battle, err := h.records.TeamBattle(r.Context(), battleID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, battle)
}

func (h *MatchHandler) myDuels(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	duels, err := h.records.DuelsForUser(r.Context(), userID, limit)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, duels)
}

func (h *MatchHandler) mySubmissions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	subs, err := h.records.SubmissionsForUser(r.Context(), userID, limit, offset)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, subs)
}
