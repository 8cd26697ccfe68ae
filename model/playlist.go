package model

// Playlist groups songs under a human-readable name. Songs are stored by
// value, in the order they were added.
type Playlist struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Songs []Song `json:"songs"`
}

// Contains reports whether the playlist already holds a song with the given id.
func (p *Playlist) Contains(songID string) bool {
	for _, s := range p.Songs {
		if s.ID == songID {
			return true
		}
	}
	return false
}
