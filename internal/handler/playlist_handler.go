package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/vibevault/vibevault/internal/auth"
	"github.com/vibevault/vibevault/internal/service"
)

// PlaylistHandler handles playlist requests.
type PlaylistHandler struct {
	playlists *service.PlaylistService
	logger    zerolog.Logger
}

// PlaylistConfig contains configuration for the playlist handler.
type PlaylistConfig struct {
	PlaylistService *service.PlaylistService
	Logger          zerolog.Logger
}

// NewPlaylistHandler creates a new playlist handler.
func NewPlaylistHandler(cfg PlaylistConfig) *PlaylistHandler {
	return &PlaylistHandler{
		playlists: cfg.PlaylistService,
		logger:    cfg.Logger.With().Str("handler", "playlist").Logger(),
	}
}

// RegisterRoutes registers playlist routes.
func (h *PlaylistHandler) RegisterRoutes(r chi.Router) {
	// Public reads
	r.Get("/api/playlists", h.handleList)
	r.Get("/api/playlists/search", h.handleSearch)
	r.Get("/api/playlists/{id}", h.handleGet)

	// Mutations require an authenticated principal
	r.Post("/api/playlists", h.handleCreate)
	r.Post("/api/playlists/{id}/songs", h.handleAddSong)
	r.Delete("/api/playlists/{pid}/songs/{sid}", h.handleRemoveSong)
	r.Delete("/api/playlists/{id}", h.handleDelete)
	r.Post("/api/playlists/{id}/copy", h.handleCopy)
}

// requirePrincipal returns the request principal, or writes 401 and reports
// false. Protected routes call this before anything else; the ownership
// check happens later in the service, so a missing principal is always 401
// and never 403.
func (h *PlaylistHandler) requirePrincipal(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return auth.Principal{}, false
	}
	return p, true
}

// pathID parses an integer path parameter, writing 404 on garbage since a
// non-numeric id can never name an existing playlist or song.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return 0, false
	}
	return id, true
}

func (h *PlaylistHandler) handleList(w http.ResponseWriter, r *http.Request) {
	playlists, err := h.playlists.ListAll(r.Context())
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlaylistDTOs(playlists))
}

func (h *PlaylistHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	playlist, err := h.playlists.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlaylistDTO(playlist))
}

func (h *PlaylistHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}

	var req PlaylistCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	playlist, err := h.playlists.Create(r.Context(), req.Name, principal.Username)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	h.logger.Info().Int64("playlist_id", playlist.ID).Str("owner", principal.Username).Msg("playlist created")
	writeJSON(w, http.StatusCreated, toPlaylistDTO(playlist))
}

func (h *PlaylistHandler) handleAddSong(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req SongCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	playlist, err := h.playlists.AddSong(r.Context(), id, service.SongInput{
		Title:             req.Title,
		Artist:            req.Artist,
		DurationInSeconds: req.DurationInSeconds,
	}, principal)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPlaylistDTO(playlist))
}

func (h *PlaylistHandler) handleRemoveSong(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}
	playlistID, ok := pathID(w, r, "pid")
	if !ok {
		return
	}
	songID, ok := pathID(w, r, "sid")
	if !ok {
		return
	}

	if err := h.playlists.RemoveSong(r.Context(), playlistID, songID, principal); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PlaylistHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.playlists.Delete(r.Context(), id, principal); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	h.logger.Info().Int64("playlist_id", id).Str("caller", principal.Username).Msg("playlist deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (h *PlaylistHandler) handleSearch(w http.ResponseWriter, r *http.Request) {
	keyword := r.URL.Query().Get("keyword")

	playlists, err := h.playlists.Search(r.Context(), keyword)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlaylistDTOs(playlists))
}

func (h *PlaylistHandler) handleCopy(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	newName := r.URL.Query().Get("newName")

	playlist, err := h.playlists.Copy(r.Context(), id, newName, principal)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	h.logger.Info().Int64("source_id", id).Int64("copy_id", playlist.ID).Str("owner", principal.Username).Msg("playlist copied")
	writeJSON(w, http.StatusCreated, toPlaylistDTO(playlist))
}
