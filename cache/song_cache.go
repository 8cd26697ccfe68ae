package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tunevault/logger"
	"tunevault/model"

	"github.com/redis/go-redis/v9"
)

const songTTL = 24 * time.Hour

// SongCache keeps recently ingested or streamed Song records in Redis so
// the streaming proxy can resolve an id without a catalog read. A nil
// *SongCache is a valid no-op cache.
type SongCache struct {
	client *redis.Client
}

func NewSongCache(client *redis.Client) *SongCache {
	return &SongCache{client: client}
}

func songKey(id string) string {
	return fmt.Sprintf("song:%s", id)
}

// Get returns the cached song for id, or nil on a miss. Cache errors are
// logged and treated as misses.
func (c *SongCache) Get(ctx context.Context, id string) *model.Song {
	if c == nil || c.client == nil {
		return nil
	}

	data, err := c.client.Get(ctx, songKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn("song cache read failed",
				logger.String("id", id),
				logger.ErrorField(err))
		}
		return nil
	}

	var song model.Song
	if err := json.Unmarshal(data, &song); err != nil {
		logger.Warn("song cache entry is corrupt",
			logger.String("id", id),
			logger.ErrorField(err))
		return nil
	}
	return &song
}

// Put stores the song record. Failures are logged and ignored.
func (c *SongCache) Put(ctx context.Context, song *model.Song) {
	if c == nil || c.client == nil || song == nil {
		return
	}

	data, err := json.Marshal(song)
	if err != nil {
		logger.Warn("failed to marshal song for cache",
			logger.String("id", song.ID),
			logger.ErrorField(err))
		return
	}
	if err := c.client.Set(ctx, songKey(song.ID), data, songTTL).Err(); err != nil {
		logger.Warn("song cache write failed",
			logger.String("id", song.ID),
			logger.ErrorField(err))
	}
}
