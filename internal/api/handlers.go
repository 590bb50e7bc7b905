package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/gamewatch/internal/apperr"
	"github.com/starford/gamewatch/internal/history"
	"github.com/starford/gamewatch/internal/loadservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *loadservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *loadservice.Service) *Handler {
	return &Handler{svc: svc}
}

// Loaded handles GET /api/loaded.
//
//	@Summary		Get the content currently loaded on the host
//	@Tags			loaded
//	@Produce		json
//	@Success		200	{object}	LoadedResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/loaded [get]
func (h *Handler) Loaded(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Loaded(r.Context())
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeError(w, http.StatusNotFound, "nothing loaded")
		} else {
			slog.Error("api: read loaded failed", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Load handles POST /api/load.
//
//	@Summary		Ask the host to load content
//	@Tags			loaded
//	@Accept			json
//	@Produce		json
//	@Param			body	body		LoadRequest	true	"Content to load"
//	@Success		202		{object}	LoadAccepted
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/load [post]
func (h *Handler) Load(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	var req LoadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	err := h.svc.Load(r.Context(), loadservice.LoadRequest{Path: req.Path})
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, apperr.ErrNotFound):
			writeError(w, http.StatusNotFound, "not found")
		default:
			slog.Error("api: load failed", slog.String("path", req.Path), slog.String("error", err.Error()))
			writeError(w, http.StatusBadGateway, "host command failed")
		}
		return
	}
	writeJSON(w, http.StatusAccepted, LoadAccepted{Path: req.Path, Status: "sent"})
}

// History handles GET /api/history.
//
//	@Summary		List load and card history
//	@Tags			history
//	@Produce		json
//	@Param			kind	query		string	false	"Entry kind"	Enums(loaded, card)
//	@Param			q		query		string	false	"Search label, path or card id"
//	@Param			limit	query		int		false	"Max entries"
//	@Success		200		{object}	HistoryResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/history [get]
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	kind := history.Kind(q.Get("kind"))
	if kind != "" && kind != history.KindLoaded && kind != history.KindCard {
		writeError(w, http.StatusBadRequest, "kind must be loaded or card")
		return
	}
	limit, _ := strconv.Atoi(q.Get("limit"))

	entries, err := h.svc.History(r.Context(), loadservice.HistoryQuery{
		Kind:  kind,
		Query: q.Get("q"),
		Limit: limit,
	})
	if err != nil {
		slog.Error("api: history failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Entries: entries})
}

// Cards handles GET /api/cards.
//
//	@Summary		List the card table
//	@Tags			cards
//	@Produce		json
//	@Success		200	{object}	CardsResponse
//	@Security		BearerAuth
//	@Router			/cards [get]
func (h *Handler) Cards(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Cards(r.Context())
	if err != nil {
		slog.Error("api: list cards failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, CardsResponse{Cards: list})
}

// AssignCard handles PUT /api/cards/{id}.
//
//	@Summary		Assign content to a card
//	@Tags			cards
//	@Accept			json
//	@Param			id		path	string				true	"Card id"
//	@Param			body	body	AssignCardRequest	true	"Content path, empty to unassign"
//	@Success		204		"Card assigned"
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/cards/{id} [put]
func (h *Handler) AssignCard(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	id := chi.URLParam(r, "id")
	var req AssignCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.svc.AssignCard(r.Context(), id, req.Content); err != nil {
		switch {
		case errors.Is(err, apperr.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, apperr.ErrNotFound):
			writeError(w, http.StatusNotFound, "card table disabled")
		default:
			slog.Error("api: assign card failed", slog.String("card", id), slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
