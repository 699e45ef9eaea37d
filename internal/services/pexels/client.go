package pexels

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"reelsmith/internal/config"
	"reelsmith/internal/services"
)

// minClipSeconds filters out footage too short to loop convincingly.
const minClipSeconds = 4

// Client searches and downloads portrait stock footage from the Pexels
// video API.
type Client struct {
	apiKey     string
	baseURL    string
	perPage    int
	httpClient *http.Client
	rng        *rand.Rand
}

type searchResponse struct {
	Videos []video `json:"videos"`
}

type video struct {
	ID       int64       `json:"id"`
	Duration int         `json:"duration"`
	Files    []videoFile `json:"video_files"`
}

type videoFile struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Link   string `json:"link"`
}

// NewClient builds a Client from configuration. A nil rng gets a
// time-seeded source; tests inject a fixed seed.
func NewClient(cfg *config.Config, rng *rand.Rand) *Client {
	timeout := time.Duration(cfg.Pexels.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	perPage := cfg.Pexels.PerPage
	if perPage < 1 {
		perPage = 5
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Client{
		apiKey:     cfg.Pexels.APIKey,
		baseURL:    strings.TrimRight(cfg.Pexels.BaseURL, "/"),
		perPage:    perPage,
		httpClient: &http.Client{Timeout: timeout},
		rng:        rng,
	}
}

// Search returns a download URL for portrait footage matching the query.
// A multi-word query with no results is retried once with its last word,
// which is usually the noun. No result at all returns ErrNotFound.
func (c *Client) Search(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", services.Wrap(
			services.ErrValidation, "pexels", "search",
			"empty search query", nil)
	}

	videos, err := c.search(ctx, query)
	if err != nil {
		return "", err
	}
	if len(videos) == 0 && strings.Contains(query, " ") {
		words := strings.Fields(query)
		videos, err = c.search(ctx, words[len(words)-1])
		if err != nil {
			return "", err
		}
	}
	if len(videos) == 0 {
		return "", services.Wrap(
			services.ErrNotFound, "pexels", "search",
			fmt.Sprintf("no footage found for %q", query), nil)
	}

	candidates := make([]video, 0, len(videos))
	for _, v := range videos {
		if v.Duration >= minClipSeconds {
			candidates = append(candidates, v)
		}
	}
	if len(candidates) == 0 {
		candidates = videos
	}

	picked := candidates[c.rng.Intn(len(candidates))]
	if len(picked.Files) == 0 {
		return "", services.Wrap(
			services.ErrNotFound, "pexels", "search",
			fmt.Sprintf("footage %d has no downloadable files", picked.ID), nil)
	}
	sort.Slice(picked.Files, func(i, j int) bool {
		return picked.Files[i].Width*picked.Files[i].Height > picked.Files[j].Width*picked.Files[j].Height
	})
	return picked.Files[0].Link, nil
}

func (c *Client) search(ctx context.Context, query string) ([]video, error) {
	endpoint := fmt.Sprintf("%s?query=%s&per_page=%s&orientation=portrait&size=medium",
		c.baseURL, url.QueryEscape(query), strconv.Itoa(c.perPage))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(
			services.ErrExternalTool, "pexels", "search",
			fmt.Sprintf("search for %q failed", query), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(
			services.ErrExternalTool, "pexels", "search",
			fmt.Sprintf("search for %q returned %d", query, resp.StatusCode), nil)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, services.Wrap(
			services.ErrExternalTool, "pexels", "search",
			"unparseable search response", err)
	}
	return parsed.Videos, nil
}

// Download streams the footage at rawURL to savePath. An existing file at
// savePath is reused so repeated keywords across runs hit the cache.
func (c *Client) Download(ctx context.Context, rawURL, savePath string) error {
	if _, err := os.Stat(savePath); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(savePath), 0o755); err != nil {
		return fmt.Errorf("create download directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(
			services.ErrExternalTool, "pexels", "download",
			fmt.Sprintf("download of %s failed", rawURL), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return services.Wrap(
			services.ErrExternalTool, "pexels", "download",
			fmt.Sprintf("download of %s returned %d", rawURL, resp.StatusCode), nil)
	}

	out, err := os.Create(savePath)
	if err != nil {
		return fmt.Errorf("create footage file: %w", err)
	}
	_, err = io.Copy(out, resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(savePath)
		return services.Wrap(
			services.ErrExternalTool, "pexels", "download",
			fmt.Sprintf("streaming %s to disk failed", rawURL), err)
	}
	return nil
}
