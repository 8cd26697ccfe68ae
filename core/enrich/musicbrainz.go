package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// coverArtTemplate derives an album-art URL from a MusicBrainz release id.
// The Cover Art Archive serves the front image for any release directly.
const coverArtTemplate = "https://coverartarchive.org/release/%s/front"

// MusicBrainzClient looks up recordings in the MusicBrainz search index.
type MusicBrainzClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

func NewMusicBrainzClient(baseURL, userAgent string) *MusicBrainzClient {
	return &MusicBrainzClient{
		baseURL:   baseURL,
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// escapeLucene backslash-escapes the characters that would otherwise
// terminate or alter a quoted Lucene phrase. Titles with quotes are common
// enough in real tag data to break the search query.
var luceneEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func escapeLucene(s string) string {
	return luceneEscaper.Replace(s)
}

type recordingSearchResponse struct {
	Recordings []struct {
		ID       string `json:"id"`
		Releases []struct {
			ID string `json:"id"`
		} `json:"releases"`
		Tags []struct {
			Name string `json:"name"`
		} `json:"tags"`
	} `json:"recordings"`
}

// LookupArt searches the recording index by title and artist. On a hit it
// returns the cover-art URL derived from the first release, plus the first
// tag as a genre when the index reports one. An empty coverURL means no
// match; err is reserved for transport and decode failures.
func (c *MusicBrainzClient) LookupArt(ctx context.Context, title, artist string) (coverURL, genre string, err error) {
	query := fmt.Sprintf(`recording:"%s" AND artist:"%s"`,
		escapeLucene(title), escapeLucene(artist))
	endpoint := fmt.Sprintf("%s/ws/2/recording?query=%s&fmt=json&limit=1",
		c.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("recording search returned status %d", resp.StatusCode)
	}

	var result recordingSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", "", fmt.Errorf("failed to decode recording search response: %w", err)
	}

	if len(result.Recordings) == 0 {
		return "", "", nil
	}
	recording := result.Recordings[0]
	if len(recording.Releases) > 0 {
		coverURL = fmt.Sprintf(coverArtTemplate, recording.Releases[0].ID)
	}
	if len(recording.Tags) > 0 {
		genre = recording.Tags[0].Name
	}
	return coverURL, genre, nil
}
