package repository

import (
	"fmt"
	"sync"

	"tunevault/model"
)

// PlaylistRepository defines the interface for playlist catalog operations.
// AddSong is a single serialized read-modify-write; callers never mutate a
// returned playlist to change stored state.
type PlaylistRepository interface {
	Create(playlist *model.Playlist) error
	GetByID(id string) (*model.Playlist, error)
	GetAll() ([]*model.Playlist, error)
	Update(playlist *model.Playlist) error
	AddSong(playlistID string, song model.Song) (playlist *model.Playlist, added bool, err error)
	Close() error
}

// filePlaylistRepository implements PlaylistRepository over a JSON-array
// file, with the same full read-modify-write cycle as the song repository.
// Reads hand out copies so no caller can touch the cached records outside
// the mutex.
type filePlaylistRepository struct {
	mu        sync.Mutex
	file      *catalogFile
	playlists []*model.Playlist
	loaded    bool
}

// NewFilePlaylistRepository creates a playlist repository backed by
// playlists.json under dataDir.
func NewFilePlaylistRepository(dataDir string) (PlaylistRepository, error) {
	file, err := newCatalogFile(dataDir, "playlists.json")
	if err != nil {
		return nil, err
	}
	return &filePlaylistRepository{file: file}, nil
}

func (r *filePlaylistRepository) load() error {
	if r.loaded && !r.file.stale() {
		return nil
	}
	var playlists []*model.Playlist
	if err := r.file.read(&playlists); err != nil {
		return err
	}
	r.playlists = playlists
	r.loaded = true
	return nil
}

func copyPlaylist(p *model.Playlist) *model.Playlist {
	c := *p
	c.Songs = make([]model.Song, len(p.Songs))
	copy(c.Songs, p.Songs)
	return &c
}

func (r *filePlaylistRepository) Create(playlist *model.Playlist) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(); err != nil {
		return err
	}
	updated := append(r.playlists, copyPlaylist(playlist))
	if err := r.file.write(updated); err != nil {
		return err
	}
	r.playlists = updated
	return nil
}

// GetByID returns a copy of the playlist with the given id, or nil when
// absent.
func (r *filePlaylistRepository) GetByID(id string) (*model.Playlist, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(); err != nil {
		return nil, err
	}
	for _, p := range r.playlists {
		if p.ID == id {
			return copyPlaylist(p), nil
		}
	}
	return nil, nil
}

func (r *filePlaylistRepository) GetAll() ([]*model.Playlist, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(); err != nil {
		return nil, err
	}
	playlists := make([]*model.Playlist, len(r.playlists))
	for i, p := range r.playlists {
		playlists[i] = copyPlaylist(p)
	}
	return playlists, nil
}

// Update replaces the stored playlist with the same id.
func (r *filePlaylistRepository) Update(playlist *model.Playlist) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(); err != nil {
		return err
	}
	for i, p := range r.playlists {
		if p.ID == playlist.ID {
			updated := make([]*model.Playlist, len(r.playlists))
			copy(updated, r.playlists)
			updated[i] = copyPlaylist(playlist)
			if err := r.file.write(updated); err != nil {
				return err
			}
			r.playlists = updated
			return nil
		}
	}
	return fmt.Errorf("playlist %s not found", playlist.ID)
}

// AddSong appends the song to the playlist under the repository mutex, so
// concurrent adds cannot interleave their read-modify-write cycles. A song
// already present (same id) is not duplicated and added is false. A nil
// playlist with nil error means the playlist does not exist. The in-memory
// snapshot only changes after the collection is written back, so a failed
// write leaves no partial state behind.
func (r *filePlaylistRepository) AddSong(playlistID string, song model.Song) (*model.Playlist, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(); err != nil {
		return nil, false, err
	}
	for i, p := range r.playlists {
		if p.ID != playlistID {
			continue
		}
		if p.Contains(song.ID) {
			return copyPlaylist(p), false, nil
		}

		modified := copyPlaylist(p)
		modified.Songs = append(modified.Songs, song)
		updated := make([]*model.Playlist, len(r.playlists))
		copy(updated, r.playlists)
		updated[i] = modified
		if err := r.file.write(updated); err != nil {
			return nil, false, err
		}
		r.playlists = updated
		return copyPlaylist(modified), true, nil
	}
	return nil, false, nil
}

// Close stops the backing file watcher.
func (r *filePlaylistRepository) Close() error {
	return r.file.close()
}
