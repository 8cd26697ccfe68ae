package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"tunevault/core/enrich"
	"tunevault/core/ingest"
	"tunevault/model"
	"tunevault/repository"
	"tunevault/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	uploadErr error
	openErr   error
	objects   map[string][]byte
}

func (s *fakeStore) Upload(ctx context.Context, key, filePath, contentType string) error {
	if s.uploadErr != nil {
		return s.uploadErr
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	if s.objects == nil {
		s.objects = make(map[string][]byte)
	}
	s.objects[key] = data
	return nil
}

func (s *fakeStore) Open(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	if s.openErr != nil {
		return nil, 0, s.openErr
	}
	data, ok := s.objects[key]
	if !ok {
		return nil, 0, errors.New("no such object")
	}
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}

type fakeAcquirer struct {
	store      *fakeStore
	acquireErr error
}

func (a *fakeAcquirer) Acquire(ctx context.Context) (storage.ObjectStore, error) {
	if a.acquireErr != nil {
		return nil, a.acquireErr
	}
	return a.store, nil
}

type emptyArtSource struct{}

func (emptyArtSource) LookupArt(ctx context.Context, title, artist string) (string, string, error) {
	return "", "", nil
}

type emptyLyricsSource struct{}

func (emptyLyricsSource) LookupLyrics(ctx context.Context, title, artist string) (string, error) {
	return "", nil
}

type serverEnv struct {
	handler   *APIHandler
	router    http.Handler
	songs     repository.SongRepository
	playlists repository.PlaylistRepository
	store     *fakeStore
	acquirer  *fakeAcquirer
	staging   string
}

func newServerEnv(t *testing.T) *serverEnv {
	t.Helper()

	dataDir := t.TempDir()
	songs, err := repository.NewFileSongRepository(dataDir)
	require.NoError(t, err)
	playlists, err := repository.NewFilePlaylistRepository(dataDir)
	require.NoError(t, err)
	t.Cleanup(func() {
		songs.Close()
		playlists.Close()
	})

	env := &serverEnv{
		songs:     songs,
		playlists: playlists,
		store:     &fakeStore{},
		staging:   t.TempDir(),
	}
	env.acquirer = &fakeAcquirer{store: env.store}

	pipeline := ingest.NewPipeline(
		songs,
		env.acquirer,
		enrich.ExtractTags,
		emptyArtSource{},
		emptyLyricsSource{},
		env.staging,
	)
	env.handler = NewAPIHandler(songs, playlists, pipeline, env.acquirer, nil, NewEventHub())
	env.router = env.handler.Routes()
	return env
}

func multipartUpload(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if field != "" {
		part, err := writer.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func (env *serverEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func TestUpload_ThenListAndStream(t *testing.T) {
	env := newServerEnv(t)

	body, contentType := multipartUpload(t, "song", "Blue Skies.mp3", []byte("mp3-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)

	rec := env.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var song model.Song
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &song))
	assert.NotEmpty(t, song.ID)
	assert.NotEmpty(t, song.ObjectKey)
	assert.Equal(t, "Blue Skies", song.Title, "title from filename when the file has no tags")
	assert.Equal(t, model.Unknown, song.Artist)

	// Listed in the catalog.
	rec = env.do(httptest.NewRequest(http.MethodGet, "/songs", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var songs []model.Song
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &songs))
	require.Len(t, songs, 1)

	// Streaming is idempotently reproducible.
	for i := 0; i < 2; i++ {
		rec = env.do(httptest.NewRequest(http.MethodGet, "/stream/"+song.ID, nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
		assert.Equal(t, "bytes", rec.Header().Get("Accept-Ranges"))
		assert.Equal(t, []byte("mp3-bytes"), rec.Body.Bytes())
	}
}

func TestUpload_NoFileIsRejectedWithoutSideEffects(t *testing.T) {
	env := newServerEnv(t)

	body, contentType := multipartUpload(t, "", "", nil)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)

	rec := env.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	songs, err := env.songs.GetAll()
	require.NoError(t, err)
	assert.Empty(t, songs, "no catalog record")
	assert.Empty(t, env.store.objects, "no remote object")
}

func TestUpload_StorageFailureLeavesNothingBehind(t *testing.T) {
	env := newServerEnv(t)
	env.store.uploadErr = errors.New("bucket gone")

	body, contentType := multipartUpload(t, "song", "x.mp3", []byte("data"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)

	rec := env.do(req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	songs, err := env.songs.GetAll()
	require.NoError(t, err)
	assert.Empty(t, songs)

	entries, err := os.ReadDir(env.staging)
	require.NoError(t, err)
	assert.Empty(t, entries, "staged file cleaned up after the failed upload")
}

func TestUpload_StorageUnavailable(t *testing.T) {
	env := newServerEnv(t)
	env.acquirer.acquireErr = errors.New("connection refused")

	body, contentType := multipartUpload(t, "song", "x.mp3", []byte("data"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)

	rec := env.do(req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStream_UnknownSong(t *testing.T) {
	env := newServerEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/stream/ghost", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Song not found")
}

func TestStream_RecordWithoutHandleIs404(t *testing.T) {
	env := newServerEnv(t)
	require.NoError(t, env.songs.Create(&model.Song{
		ID:        "s1",
		Title:     "Blue Skies",
		Artist:    "Ana",
		CreatedAt: time.Now(),
	}))

	rec := env.do(httptest.NewRequest(http.MethodGet, "/stream/s1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Audio not found")
}

func TestStream_OpenFailureIs500(t *testing.T) {
	env := newServerEnv(t)
	env.store.openErr = errors.New("object store hiccup")
	require.NoError(t, env.songs.Create(&model.Song{
		ID:        "s1",
		ObjectKey: "audio/s1.mp3",
		CreatedAt: time.Now(),
	}))

	rec := env.do(httptest.NewRequest(http.MethodGet, "/stream/s1", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Streaming failed")
}

func TestSearch_MatchesTitleAndArtistSubstrings(t *testing.T) {
	env := newServerEnv(t)
	require.NoError(t, env.songs.Create(&model.Song{ID: "s1", Title: "Blue Skies", Artist: "Ana"}))
	require.NoError(t, env.songs.Create(&model.Song{ID: "s2", Title: "Storm", Artist: "Borealis"}))

	for _, query := range []string{"blue", "ANA", "ue+sk"} {
		rec := env.do(httptest.NewRequest(http.MethodGet, "/search?q="+query, nil))
		require.Equal(t, http.StatusOK, rec.Code)
		var songs []model.Song
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &songs))
		require.Len(t, songs, 1, "query %q", query)
		assert.Equal(t, "s1", songs[0].ID)
	}

	rec := env.do(httptest.NewRequest(http.MethodGet, "/search?q=red", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var songs []model.Song
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &songs))
	assert.Empty(t, songs)
}
