package server

import (
	"io"
	"net/http"
	"path/filepath"
	"strconv"

	"tunevault/logger"

	"github.com/gorilla/mux"
)

// StreamSongHandler resolves a song id to its stored object and relays the
// audio bytes to the caller.
func (h *APIHandler) StreamSongHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	song := h.songCache.Get(r.Context(), id)
	if song == nil {
		found, err := h.songs.GetByID(id)
		if err != nil {
			logger.Error("song lookup failed",
				logger.String("id", id),
				logger.ErrorField(err))
			http.Error(w, "Failed to look up song", http.StatusInternalServerError)
			return
		}
		if found == nil {
			http.Error(w, "Song not found", http.StatusNotFound)
			return
		}
		song = found
		h.songCache.Put(r.Context(), song)
	}

	if song.ObjectKey == "" {
		http.Error(w, "Audio not found", http.StatusNotFound)
		return
	}

	store, err := h.provider.Acquire(r.Context())
	if err != nil {
		logger.Error("storage unavailable for streaming",
			logger.String("id", id),
			logger.ErrorField(err))
		http.Error(w, "Storage unavailable", http.StatusInternalServerError)
		return
	}

	object, size, err := store.Open(r.Context(), song.ObjectKey)
	if err != nil {
		logger.Error("failed to open stored audio",
			logger.String("id", id),
			logger.String("objectKey", song.ObjectKey),
			logger.ErrorField(err))
		http.Error(w, "Streaming failed", http.StatusInternalServerError)
		return
	}
	defer object.Close()

	w.Header().Set("Content-Type", audioContentType(song.ObjectKey))
	w.Header().Set("Accept-Ranges", "bytes")
	if size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}

	// Once bytes are on the wire the status line is gone; a mid-stream
	// failure is reported once and not retried.
	if _, err := io.Copy(w, object); err != nil {
		logger.Error("streaming aborted mid-transfer",
			logger.String("id", id),
			logger.String("objectKey", song.ObjectKey),
			logger.ErrorField(err))
	}
}

// audioContentType maps a stored object key to an audio MIME type by its
// extension, defaulting to MP3.
func audioContentType(key string) string {
	switch filepath.Ext(key) {
	case ".wav":
		return "audio/wav"
	case ".flac":
		return "audio/flac"
	case ".ogg":
		return "audio/ogg"
	case ".m4a", ".mp4":
		return "audio/mp4"
	case ".aac":
		return "audio/aac"
	default:
		return "audio/mpeg"
	}
}
