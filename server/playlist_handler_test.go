package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"tunevault/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createPlaylist(t *testing.T, env *serverEnv, name string) model.Playlist {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/playlist", strings.NewReader(`{"name":"`+name+`"}`))
	rec := env.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var playlist model.Playlist
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &playlist))
	return playlist
}

func TestCreatePlaylist(t *testing.T) {
	env := newServerEnv(t)

	playlist := createPlaylist(t, env, "Morning")
	assert.NotEmpty(t, playlist.ID)
	assert.Equal(t, "Morning", playlist.Name)
	assert.Empty(t, playlist.Songs)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/playlist", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var playlists []model.Playlist
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &playlists))
	assert.Len(t, playlists, 1)
}

func TestCreatePlaylist_EmptyNameIsRejected(t *testing.T) {
	env := newServerEnv(t)

	for _, body := range []string{`{"name":""}`, `{"name":"   "}`, `{}`} {
		rec := env.do(httptest.NewRequest(http.MethodPost, "/playlist", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %s", body)
	}

	playlists, err := env.playlists.GetAll()
	require.NoError(t, err)
	assert.Empty(t, playlists, "rejected creates leave no record")
}

func TestGetPlaylist(t *testing.T) {
	env := newServerEnv(t)
	created := createPlaylist(t, env, "Morning")

	rec := env.do(httptest.NewRequest(http.MethodGet, "/playlist/"+created.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/playlist/ghost", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Playlist not found")
}

func TestAddSongToPlaylist(t *testing.T) {
	env := newServerEnv(t)
	require.NoError(t, env.songs.Create(&model.Song{ID: "s1", Title: "Blue Skies", Artist: "Ana"}))
	created := createPlaylist(t, env, "Morning")

	addReq := func() *http.Request {
		return httptest.NewRequest(http.MethodPut, "/playlist/"+created.ID+"/add",
			strings.NewReader(`{"songId":"s1"}`))
	}

	rec := env.do(addReq())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var playlist model.Playlist
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &playlist))
	require.Len(t, playlist.Songs, 1)
	assert.Equal(t, "s1", playlist.Songs[0].ID)

	// Adding the same song again does not duplicate the entry.
	rec = env.do(addReq())
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &playlist))
	assert.Len(t, playlist.Songs, 1)

	stored, err := env.playlists.GetByID(created.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Songs, 1)
}

func TestAddSongToPlaylist_ConcurrentAddsLoseNothing(t *testing.T) {
	env := newServerEnv(t)
	created := createPlaylist(t, env, "Morning")

	const n = 8
	for i := 0; i < n; i++ {
		require.NoError(t, env.songs.Create(&model.Song{
			ID:    fmt.Sprintf("s%d", i),
			Title: fmt.Sprintf("Track %d", i),
		}))
	}

	var wg sync.WaitGroup
	codes := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPut, "/playlist/"+created.ID+"/add",
				strings.NewReader(fmt.Sprintf(`{"songId":"s%d"}`, i)))
			codes[i] = env.do(req).Code
		}(i)
	}
	wg.Wait()

	for i, code := range codes {
		assert.Equal(t, http.StatusOK, code, "add %d", i)
	}

	stored, err := env.playlists.GetByID(created.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Songs, n, "every concurrent add is retained")
}

func TestAddSongToPlaylist_NotFoundCases(t *testing.T) {
	env := newServerEnv(t)
	require.NoError(t, env.songs.Create(&model.Song{ID: "s1", Title: "Blue Skies", Artist: "Ana"}))
	created := createPlaylist(t, env, "Morning")

	rec := env.do(httptest.NewRequest(http.MethodPut, "/playlist/ghost/add",
		strings.NewReader(`{"songId":"s1"}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Playlist not found")

	rec = env.do(httptest.NewRequest(http.MethodPut, "/playlist/"+created.ID+"/add",
		strings.NewReader(`{"songId":"ghost"}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Song not found")

	stored, err := env.playlists.GetByID(created.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Songs, "failed adds perform no mutation")
}
