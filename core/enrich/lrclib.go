package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// LRCLIBClient fetches lyrics by exact title and artist from an LRCLIB
// compatible service.
type LRCLIBClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

func NewLRCLIBClient(baseURL, userAgent string) *LRCLIBClient {
	return &LRCLIBClient{
		baseURL:   baseURL,
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type lyricsResponse struct {
	PlainLyrics string `json:"plainLyrics"`
}

// LookupLyrics returns the plain (unsynchronized) lyrics for the given
// title and artist, or an empty string when the service has no match.
func (c *LRCLIBClient) LookupLyrics(ctx context.Context, title, artist string) (string, error) {
	params := url.Values{}
	params.Set("track_name", title)
	params.Set("artist_name", artist)
	endpoint := fmt.Sprintf("%s/api/get?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("lyrics lookup returned status %d", resp.StatusCode)
	}

	var result lyricsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode lyrics response: %w", err)
	}
	return result.PlainLyrics, nil
}
