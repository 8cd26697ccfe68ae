package model

import "time"

// Unknown is the sentinel used when a tag value could not be extracted.
const Unknown = "Unknown"

// Song represents one audio file in the media library.
type Song struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Artist      string    `json:"artist"`
	Album       string    `json:"album"`
	Genre       string    `json:"genre"`
	Duration    int       `json:"duration"` // seconds, 0 when unknown
	CoverArtURL string    `json:"coverArtUrl,omitempty"`
	Lyrics      string    `json:"lyrics,omitempty"`
	ObjectKey   string    `json:"objectKey"` // remote-storage handle; immutable once set
	CreatedAt   time.Time `json:"createdAt"`
}
