package enrich

import (
	"os"
	"path/filepath"
	"strings"

	"tunevault/logger"
	"tunevault/model"

	"github.com/dhowden/tag"
)

// Tags holds the metadata extracted from an audio file's embedded tags.
type Tags struct {
	Title    string
	Artist   string
	Album    string
	Genre    string
	Duration int // seconds; 0 when the container does not carry a duration
}

// ExtractTags parses the embedded tags of the staged file. Extraction is
// best-effort: any parse failure is logged and the fallbacks are returned —
// title from the original filename with its extension stripped, "Unknown"
// for artist, album and genre, 0 for duration.
func ExtractTags(path, originalName string) Tags {
	base := filepath.Base(originalName)
	tags := Tags{
		Title:  strings.TrimSuffix(base, filepath.Ext(base)),
		Artist: model.Unknown,
		Album:  model.Unknown,
		Genre:  model.Unknown,
	}

	file, err := os.Open(path)
	if err != nil {
		logger.Warn("failed to open staged file for tag extraction",
			logger.String("path", path),
			logger.ErrorField(err))
		return tags
	}
	defer file.Close()

	meta, err := tag.ReadFrom(file)
	if err != nil {
		logger.Debug("no readable tags in uploaded file",
			logger.String("file", originalName),
			logger.ErrorField(err))
		return tags
	}

	if v := strings.TrimSpace(meta.Title()); v != "" {
		tags.Title = v
	}
	if v := strings.TrimSpace(meta.Artist()); v != "" {
		tags.Artist = v
	}
	if v := strings.TrimSpace(meta.Album()); v != "" {
		tags.Album = v
	}
	if v := strings.TrimSpace(meta.Genre()); v != "" {
		tags.Genre = v
	}
	return tags
}
