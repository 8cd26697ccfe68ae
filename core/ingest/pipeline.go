package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"tunevault/core/enrich"
	"tunevault/logger"
	"tunevault/model"
	"tunevault/repository"
	"tunevault/storage"

	"github.com/google/uuid"
)

// Fatal pipeline errors. Everything else that can go wrong during ingestion
// is best-effort and absorbed.
var (
	ErrNoFile             = errors.New("no file provided")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrUploadFailed       = errors.New("storage upload failed")
)

// TagReader extracts embedded tags from a staged audio file. It never
// fails; missing data comes back as fallback values.
type TagReader func(path, originalName string) enrich.Tags

// ArtSource resolves an album-art URL and optionally a genre for a
// title+artist pair. An empty coverURL with nil error means no match.
type ArtSource interface {
	LookupArt(ctx context.Context, title, artist string) (coverURL, genre string, err error)
}

// LyricsSource resolves plain lyrics text for a title+artist pair. An empty
// string with nil error means no match.
type LyricsSource interface {
	LookupLyrics(ctx context.Context, title, artist string) (string, error)
}

// Pipeline turns one uploaded audio file into one persisted Song record:
// stage the upload, acquire remote storage, extract local tags, upload the
// bytes, clean up the staging file, enrich from external services, persist.
type Pipeline struct {
	songs      repository.SongRepository
	provider   storage.Acquirer
	readTags   TagReader
	art        ArtSource
	lyrics     LyricsSource
	stagingDir string
}

func NewPipeline(
	songs repository.SongRepository,
	provider storage.Acquirer,
	readTags TagReader,
	art ArtSource,
	lyrics LyricsSource,
	stagingDir string,
) *Pipeline {
	return &Pipeline{
		songs:      songs,
		provider:   provider,
		readTags:   readTags,
		art:        art,
		lyrics:     lyrics,
		stagingDir: stagingDir,
	}
}

// Ingest runs the pipeline for one upload. Enrichment failures never abort
// the operation; storage failures do, and leave no catalog record behind.
func (p *Pipeline) Ingest(ctx context.Context, file io.Reader, originalName, contentType string) (*model.Song, error) {
	if file == nil {
		return nil, ErrNoFile
	}

	// Stage the upload under a fresh token so concurrent uploads of the
	// same filename cannot collide.
	token := uuid.NewString()
	stagedPath, err := p.stage(file, token, originalName)
	if err != nil {
		return nil, err
	}

	store, err := p.provider.Acquire(ctx)
	if err != nil {
		p.cleanupStaged(stagedPath)
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	tags := p.readTags(stagedPath, originalName)

	objectKey := "audio/" + token + stagedExt(originalName)
	uploadErr := store.Upload(ctx, objectKey, stagedPath, contentType)

	// The staging file is done regardless of how the upload went.
	p.cleanupStaged(stagedPath)

	if uploadErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, uploadErr)
	}

	song := &model.Song{
		ID:        uuid.NewString(),
		Title:     tags.Title,
		Artist:    tags.Artist,
		Album:     tags.Album,
		Genre:     tags.Genre,
		Duration:  tags.Duration,
		ObjectKey: objectKey,
		CreatedAt: time.Now(),
	}

	p.enrichSong(ctx, song)

	if err := p.songs.Create(song); err != nil {
		return nil, fmt.Errorf("failed to persist song record: %w", err)
	}

	logger.Info("song ingested",
		logger.String("id", song.ID),
		logger.String("title", song.Title),
		logger.String("artist", song.Artist),
		logger.String("objectKey", song.ObjectKey))
	return song, nil
}

// stage writes the upload to the staging directory under the token name.
func (p *Pipeline) stage(file io.Reader, token, originalName string) (string, error) {
	if err := os.MkdirAll(p.stagingDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}

	stagedPath := filepath.Join(p.stagingDir, token+stagedExt(originalName))
	staged, err := os.Create(stagedPath)
	if err != nil {
		return "", fmt.Errorf("failed to create staging file: %w", err)
	}
	defer staged.Close()

	if _, err := io.Copy(staged, file); err != nil {
		p.cleanupStaged(stagedPath)
		return "", fmt.Errorf("failed to stage upload: %w", err)
	}
	return stagedPath, nil
}

// cleanupStaged deletes the staging file. Deletion failures are logged,
// never surfaced to the caller.
func (p *Pipeline) cleanupStaged(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to delete staging file",
			logger.String("path", path),
			logger.ErrorField(err))
	}
}

// enrichSong attempts the external lookups when the record has a usable
// title and a known artist. Either lookup may independently miss or fail,
// leaving the corresponding fields unset.
func (p *Pipeline) enrichSong(ctx context.Context, song *model.Song) {
	if song.Title == "" || song.Artist == model.Unknown {
		return
	}

	coverURL, genre, err := p.art.LookupArt(ctx, song.Title, song.Artist)
	if err != nil {
		logger.Warn("album art lookup failed",
			logger.String("title", song.Title),
			logger.String("artist", song.Artist),
			logger.ErrorField(err))
	} else {
		if coverURL != "" {
			song.CoverArtURL = coverURL
		}
		if genre != "" {
			song.Genre = genre
		}
	}

	lyrics, err := p.lyrics.LookupLyrics(ctx, song.Title, song.Artist)
	if err != nil {
		logger.Warn("lyrics lookup failed",
			logger.String("title", song.Title),
			logger.String("artist", song.Artist),
			logger.ErrorField(err))
	} else if lyrics != "" {
		song.Lyrics = lyrics
	}
}

func stagedExt(originalName string) string {
	ext := filepath.Ext(originalName)
	if ext == "" {
		ext = ".dat"
	}
	return ext
}
