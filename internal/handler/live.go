package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/NgouanKoffi/fullmargin-live/internal/errors"
	"github.com/NgouanKoffi/fullmargin-live/internal/middleware"
	"github.com/NgouanKoffi/fullmargin-live/internal/model"
	"github.com/NgouanKoffi/fullmargin-live/internal/service"
)

type LiveHandler struct {
	liveService  *service.LiveService
	tokenService *service.TokenService
}

func NewLiveHandler(liveService *service.LiveService, tokenService *service.TokenService) *LiveHandler {
	return &LiveHandler{
		liveService:  liveService,
		tokenService: tokenService,
	}
}

func (h *LiveHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/schedule", h.Schedule)
	r.Post("/start-now", h.StartNow)
	r.Get("/public-live", h.PublicLive)
	r.Get("/by-community/{communityId}", h.ByCommunity)

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Post("/update", h.Update)
		r.Post("/cancel", h.Cancel)
		r.Post("/go-live", h.GoLive)
		r.Post("/end", h.End)
		r.Get("/jitsi-token", h.JitsiToken)
	})

	return r
}

type scheduleRequest struct {
	CommunityID string    `json:"communityId"`
	Title       string    `json:"title"`
	StartsAt    time.Time `json:"startsAt"`
	IsPublic    bool      `json:"isPublic"`
}

// POST /lives/schedule
func (h *LiveHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}
	if req.CommunityID == "" {
		writeError(w, apperrors.MissingRequired("communityId"))
		return
	}

	live, err := h.liveService.Schedule(r.Context(), middleware.GetAccount(r.Context()), model.ScheduleParams{
		CommunityID: req.CommunityID,
		Title:       req.Title,
		StartsAt:    req.StartsAt,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusCreated, map[string]any{"live": live})
}

type updateRequest struct {
	Title    string    `json:"title"`
	StartsAt time.Time `json:"startsAt"`
	IsPublic bool      `json:"isPublic"`
}

// POST /lives/{id}/update
func (h *LiveHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}

	live, err := h.liveService.Update(r.Context(), middleware.GetAccount(r.Context()), chi.URLParam(r, "id"), model.UpdateParams{
		Title:    req.Title,
		StartsAt: req.StartsAt,
		IsPublic: req.IsPublic,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusOK, map[string]any{"live": live})
}

// POST /lives/{id}/cancel
func (h *LiveHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	live, err := h.liveService.Cancel(r.Context(), middleware.GetAccount(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusOK, map[string]any{"live": live})
}

type startNowRequest struct {
	CommunityID string `json:"communityId"`
	Title       string `json:"title"`
	IsPublic    bool   `json:"isPublic"`
}

// POST /lives/start-now
func (h *LiveHandler) StartNow(w http.ResponseWriter, r *http.Request) {
	var req startNowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}
	if req.CommunityID == "" {
		writeError(w, apperrors.MissingRequired("communityId"))
		return
	}

	live, err := h.liveService.StartNow(r.Context(), middleware.GetAccount(r.Context()), model.StartNowParams{
		CommunityID: req.CommunityID,
		Title:       req.Title,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusCreated, map[string]any{"live": live})
}

type goLiveRequest struct {
	Title    string `json:"title"`
	IsPublic bool   `json:"isPublic"`
}

// POST /lives/{id}/go-live
func (h *LiveHandler) GoLive(w http.ResponseWriter, r *http.Request) {
	var req goLiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}

	live, err := h.liveService.GoLive(r.Context(), middleware.GetAccount(r.Context()), chi.URLParam(r, "id"), model.GoLiveParams{
		Title:    req.Title,
		IsPublic: req.IsPublic,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusOK, map[string]any{"live": live})
}

// POST /lives/{id}/end
func (h *LiveHandler) End(w http.ResponseWriter, r *http.Request) {
	live, err := h.liveService.End(r.Context(), middleware.GetAccount(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusOK, map[string]any{"live": live})
}

// GET /lives/{id}
func (h *LiveHandler) Get(w http.ResponseWriter, r *http.Request) {
	live, err := h.liveService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusOK, map[string]any{"live": live})
}

// GET /lives/by-community/{communityId}
func (h *LiveHandler) ByCommunity(w http.ResponseWriter, r *http.Request) {
	communityID := chi.URLParam(r, "communityId")
	if communityID == "" {
		writeError(w, apperrors.MissingRequired("communityId"))
		return
	}

	lives, err := h.liveService.ListByCommunity(r.Context(), communityID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusOK, map[string]any{"items": lives})
}

// GET /lives/public-live
func (h *LiveHandler) PublicLive(w http.ResponseWriter, r *http.Request) {
	items, err := h.liveService.ListPublicLive(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusOK, map[string]any{"items": items})
}

// GET /lives/{id}/jitsi-token?name=
func (h *LiveHandler) JitsiToken(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	grant, err := h.tokenService.RequestToken(r.Context(), account, chi.URLParam(r, "id"), r.URL.Query().Get("name"))
	if err != nil {
		if appErr, ok := apperrors.AsAppError(err); ok && appErr.Code != apperrors.ErrCodeNotLive {
			log.Warn().Str("code", string(appErr.Code)).Str("liveId", chi.URLParam(r, "id")).Msg("join token refused")
		}
		writeError(w, err)
		return
	}

	writeData(w, http.StatusOK, grant)
}
