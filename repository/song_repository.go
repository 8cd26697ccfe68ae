package repository

import (
	"strings"
	"sync"

	"tunevault/model"
)

// SongRepository defines the interface for song catalog operations.
type SongRepository interface {
	Create(song *model.Song) error
	GetByID(id string) (*model.Song, error)
	GetAll() ([]*model.Song, error)
	Search(query string) ([]*model.Song, error)
	Close() error
}

// fileSongRepository implements SongRepository over a JSON-array file.
// Every mutation is a full read-modify-write of the collection; the mutex
// serializes those cycles so concurrent ingestions cannot lose appends.
type fileSongRepository struct {
	mu     sync.Mutex
	file   *catalogFile
	songs  []*model.Song
	loaded bool
}

// NewFileSongRepository creates a song repository backed by songs.json
// under dataDir. The file is created lazily on first access.
func NewFileSongRepository(dataDir string) (SongRepository, error) {
	file, err := newCatalogFile(dataDir, "songs.json")
	if err != nil {
		return nil, err
	}
	return &fileSongRepository{file: file}, nil
}

// load refreshes the in-memory snapshot when it is missing or the backing
// file changed on disk. Callers must hold r.mu.
func (r *fileSongRepository) load() error {
	if r.loaded && !r.file.stale() {
		return nil
	}
	var songs []*model.Song
	if err := r.file.read(&songs); err != nil {
		return err
	}
	r.songs = songs
	r.loaded = true
	return nil
}

func (r *fileSongRepository) Create(song *model.Song) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(); err != nil {
		return err
	}
	updated := append(r.songs, song)
	if err := r.file.write(updated); err != nil {
		return err
	}
	r.songs = updated
	return nil
}

// GetByID returns the song with the given id, or nil when absent.
func (r *fileSongRepository) GetByID(id string) (*model.Song, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(); err != nil {
		return nil, err
	}
	for _, s := range r.songs {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, nil
}

func (r *fileSongRepository) GetAll() ([]*model.Song, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(); err != nil {
		return nil, err
	}
	songs := make([]*model.Song, len(r.songs))
	copy(songs, r.songs)
	return songs, nil
}

// Search returns songs whose title or artist contains the query,
// case-insensitively.
func (r *fileSongRepository) Search(query string) ([]*model.Song, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(); err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	matches := make([]*model.Song, 0)
	for _, s := range r.songs {
		if strings.Contains(strings.ToLower(s.Title), q) ||
			strings.Contains(strings.ToLower(s.Artist), q) {
			matches = append(matches, s)
		}
	}
	return matches, nil
}

// Close stops the backing file watcher.
func (r *fileSongRepository) Close() error {
	return r.file.close()
}
