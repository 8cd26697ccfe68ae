package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tunevault/cache"
	"tunevault/config"
	"tunevault/core/enrich"
	"tunevault/core/ingest"
	"tunevault/logger"
	"tunevault/repository"
	"tunevault/storage"

	"github.com/gorilla/mux"
)

// Routes builds the HTTP router for the handler.
func (h *APIHandler) Routes() *mux.Router {
	router := mux.NewRouter()
	router.Use(corsMiddleware)

	router.HandleFunc("/upload", h.UploadSongHandler).Methods(http.MethodPost)
	router.HandleFunc("/songs", h.GetSongsHandler).Methods(http.MethodGet)
	router.HandleFunc("/stream/{id}", h.StreamSongHandler).Methods(http.MethodGet)
	router.HandleFunc("/search", h.SearchSongsHandler).Methods(http.MethodGet)

	router.HandleFunc("/playlist", h.GetPlaylistsHandler).Methods(http.MethodGet)
	router.HandleFunc("/playlist", h.CreatePlaylistHandler).Methods(http.MethodPost)
	router.HandleFunc("/playlist/{id}", h.GetPlaylistHandler).Methods(http.MethodGet)
	router.HandleFunc("/playlist/{id}/add", h.AddSongToPlaylistHandler).Methods(http.MethodPut)

	if h.hub != nil {
		router.HandleFunc("/ws/events", h.hub.HandleWS).Methods(http.MethodGet)
	}
	return router
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Range")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Start wires every component from the loaded config and runs the HTTP
// server until interrupted.
func Start(cfg *config.Config) {
	songs, err := repository.NewFileSongRepository(cfg.DataDir)
	if err != nil {
		logger.Fatal("failed to open song catalog", logger.ErrorField(err))
	}
	defer songs.Close()
	playlists, err := repository.NewFilePlaylistRepository(cfg.DataDir)
	if err != nil {
		logger.Fatal("failed to open playlist catalog", logger.ErrorField(err))
	}
	defer playlists.Close()

	provider := storage.NewProvider(cfg)

	var songCache *cache.SongCache
	if cfg.RedisHost != "" {
		client, err := cache.Connect(cfg)
		if err != nil {
			logger.Warn("redis unavailable, running without song cache", logger.ErrorField(err))
		} else {
			defer client.Close()
			songCache = cache.NewSongCache(client)
			logger.Info("song cache enabled",
				logger.String("host", cfg.RedisHost),
				logger.String("port", cfg.RedisPort))
		}
	}

	pipeline := ingest.NewPipeline(
		songs,
		provider,
		enrich.ExtractTags,
		enrich.NewMusicBrainzClient(cfg.MusicBrainzURL, cfg.UserAgent),
		enrich.NewLRCLIBClient(cfg.LRCLIBURL, cfg.UserAgent),
		cfg.StagingDir,
	)

	hub := NewEventHub()
	handler := NewAPIHandler(songs, playlists, pipeline, provider, songCache, hub)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", logger.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", logger.ErrorField(err))
	}
	logger.Info("server stopped")
}
