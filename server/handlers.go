package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"tunevault/cache"
	"tunevault/core/ingest"
	"tunevault/logger"
	"tunevault/model"
	"tunevault/repository"
	"tunevault/storage"
)

// maxUploadSize caps one multipart upload request.
const maxUploadSize = 500 << 20 // 500MB

// APIHandler handles all API requests.
type APIHandler struct {
	songs     repository.SongRepository
	playlists repository.PlaylistRepository
	pipeline  *ingest.Pipeline
	provider  storage.Acquirer
	songCache *cache.SongCache
	hub       *EventHub
}

func NewAPIHandler(
	songs repository.SongRepository,
	playlists repository.PlaylistRepository,
	pipeline *ingest.Pipeline,
	provider storage.Acquirer,
	songCache *cache.SongCache,
	hub *EventHub,
) *APIHandler {
	return &APIHandler{
		songs:     songs,
		playlists: playlists,
		pipeline:  pipeline,
		provider:  provider,
		songCache: songCache,
		hub:       hub,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to write response", logger.ErrorField(err))
	}
}

// UploadSongHandler accepts a multipart upload under the "song" field and
// runs it through the ingestion pipeline.
func (h *APIHandler) UploadSongHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	file, header, err := r.FormFile("song")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			http.Error(w, "No file provided", http.StatusBadRequest)
			return
		}
		logger.Warn("failed to read upload form", logger.ErrorField(err))
		http.Error(w, "Failed to process uploaded file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	song, err := h.pipeline.Ingest(r.Context(), file, header.Filename, contentType)
	if err != nil {
		switch {
		case errors.Is(err, ingest.ErrNoFile):
			http.Error(w, "No file provided", http.StatusBadRequest)
		case errors.Is(err, ingest.ErrStorageUnavailable):
			logger.Error("storage unavailable for upload", logger.ErrorField(err))
			http.Error(w, "Storage unavailable", http.StatusInternalServerError)
		case errors.Is(err, ingest.ErrUploadFailed):
			logger.Error("upload to storage failed",
				logger.String("file", header.Filename),
				logger.ErrorField(err))
			http.Error(w, "Storage upload failed", http.StatusInternalServerError)
		default:
			logger.Error("ingestion failed",
				logger.String("file", header.Filename),
				logger.ErrorField(err))
			http.Error(w, "Failed to ingest upload", http.StatusInternalServerError)
		}
		return
	}

	h.songCache.Put(r.Context(), song)
	h.hub.Broadcast(EventSongAdded, song)
	writeJSON(w, http.StatusOK, song)
}

// GetSongsHandler returns every song in the catalog.
func (h *APIHandler) GetSongsHandler(w http.ResponseWriter, r *http.Request) {
	songs, err := h.songs.GetAll()
	if err != nil {
		logger.Error("failed to list songs", logger.ErrorField(err))
		http.Error(w, "Failed to retrieve songs", http.StatusInternalServerError)
		return
	}
	if songs == nil {
		songs = []*model.Song{}
	}
	writeJSON(w, http.StatusOK, songs)
}

// SearchSongsHandler returns songs whose title or artist contains the
// query, case-insensitively.
func (h *APIHandler) SearchSongsHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	songs, err := h.songs.Search(query)
	if err != nil {
		logger.Error("search failed",
			logger.String("query", query),
			logger.ErrorField(err))
		http.Error(w, "Search failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, songs)
}
