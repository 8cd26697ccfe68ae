package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"tunevault/logger"
	"tunevault/model"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// GetPlaylistsHandler returns every playlist in the catalog.
func (h *APIHandler) GetPlaylistsHandler(w http.ResponseWriter, r *http.Request) {
	playlists, err := h.playlists.GetAll()
	if err != nil {
		logger.Error("failed to list playlists", logger.ErrorField(err))
		http.Error(w, "Failed to retrieve playlists", http.StatusInternalServerError)
		return
	}
	if playlists == nil {
		playlists = []*model.Playlist{}
	}
	writeJSON(w, http.StatusOK, playlists)
}

// CreatePlaylistHandler creates an empty playlist from a {name} body.
func (h *APIHandler) CreatePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		http.Error(w, "Invalid playlist name", http.StatusBadRequest)
		return
	}

	playlist := &model.Playlist{
		ID:    uuid.NewString(),
		Name:  req.Name,
		Songs: []model.Song{},
	}
	if err := h.playlists.Create(playlist); err != nil {
		logger.Error("failed to create playlist",
			logger.String("name", req.Name),
			logger.ErrorField(err))
		http.Error(w, "Failed to create playlist", http.StatusInternalServerError)
		return
	}

	h.hub.Broadcast(EventPlaylistUpdated, playlist)
	writeJSON(w, http.StatusOK, playlist)
}

// GetPlaylistHandler returns one playlist by id.
func (h *APIHandler) GetPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	playlist, err := h.playlists.GetByID(id)
	if err != nil {
		logger.Error("playlist lookup failed",
			logger.String("id", id),
			logger.ErrorField(err))
		http.Error(w, "Failed to look up playlist", http.StatusInternalServerError)
		return
	}
	if playlist == nil {
		http.Error(w, "Playlist not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, playlist)
}

// AddSongToPlaylistHandler appends a song to a playlist by id pair. Adding
// a song that is already present (same id) leaves the playlist unchanged.
func (h *APIHandler) AddSongToPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req struct {
		SongID string `json:"songId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	song, err := h.songs.GetByID(req.SongID)
	if err != nil {
		logger.Error("song lookup failed",
			logger.String("id", req.SongID),
			logger.ErrorField(err))
		http.Error(w, "Failed to look up song", http.StatusInternalServerError)
		return
	}
	if song == nil {
		http.Error(w, "Song not found", http.StatusNotFound)
		return
	}

	// The repository does the lookup, duplicate check, and append as one
	// serialized operation so concurrent adds cannot lose entries.
	playlist, added, err := h.playlists.AddSong(id, *song)
	if err != nil {
		logger.Error("failed to update playlist",
			logger.String("id", id),
			logger.ErrorField(err))
		http.Error(w, "Failed to update playlist", http.StatusInternalServerError)
		return
	}
	if playlist == nil {
		http.Error(w, "Playlist not found", http.StatusNotFound)
		return
	}

	if added {
		h.hub.Broadcast(EventPlaylistUpdated, playlist)
	}
	writeJSON(w, http.StatusOK, playlist)
}
