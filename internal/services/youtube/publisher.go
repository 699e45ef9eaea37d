package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"reelsmith/internal/config"
	"reelsmith/internal/services"
)

const defaultUploadURL = "https://www.googleapis.com/upload/youtube/v3/videos?uploadType=resumable&part=snippet,status"

// shortsTag marks the upload for the vertical-video surface.
const shortsTag = "#Shorts"

// Metadata describes an upload.
type Metadata struct {
	Title       string
	Description string
	Tags        []string
	Privacy     string
}

// Publisher uploads finished videos through the resumable upload
// protocol with an oauth2 refresh-token source.
type Publisher struct {
	httpClient *http.Client
	uploadURL  string
	privacy    string
}

type videoResource struct {
	Snippet struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Tags        []string `json:"tags,omitempty"`
		CategoryID  string   `json:"categoryId"`
	} `json:"snippet"`
	Status struct {
		PrivacyStatus string `json:"privacyStatus"`
	} `json:"status"`
}

// NewPublisher builds a Publisher whose HTTP client injects refreshed
// access tokens on every request.
func NewPublisher(ctx context.Context, cfg *config.Config) *Publisher {
	oauthCfg := &oauth2.Config{
		ClientID:     cfg.YouTube.ClientID,
		ClientSecret: cfg.YouTube.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{"https://www.googleapis.com/auth/youtube.upload"},
	}
	token := &oauth2.Token{RefreshToken: cfg.YouTube.RefreshToken}
	client := oauthCfg.Client(ctx, token)
	client.Timeout = 10 * time.Minute
	return &Publisher{
		httpClient: client,
		uploadURL:  defaultUploadURL,
		privacy:    cfg.YouTube.PrivacyState,
	}
}

// BuildTitle produces the published title: title-cased with the Shorts
// tag appended once.
func BuildTitle(raw string) string {
	title := strings.TrimSpace(raw)
	title = cases.Title(language.English).String(title)
	if !strings.Contains(title, shortsTag) {
		title = strings.TrimSpace(title + " " + shortsTag)
	}
	return title
}

// Upload pushes the video file and returns the assigned video ID. The
// resumable session is opened with the metadata, then the bytes follow in
// a single PUT.
func (p *Publisher) Upload(ctx context.Context, videoPath string, meta Metadata) (string, error) {
	file, err := os.Open(videoPath)
	if err != nil {
		return "", services.Wrap(
			services.ErrMissingAsset, "publish", "upload",
			fmt.Sprintf("final video %s is not readable", videoPath), err)
	}
	defer file.Close()

	sessionURL, err := p.openSession(ctx, meta)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, sessionURL, file)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", "video/mp4")
	if info, err := file.Stat(); err == nil {
		req.ContentLength = info.Size()
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", services.Wrap(
			services.ErrExternalTool, "publish", "upload",
			"video upload failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", services.Wrap(
			services.ErrExternalTool, "publish", "upload",
			fmt.Sprintf("upload returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	var uploaded struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		return "", services.Wrap(
			services.ErrExternalTool, "publish", "upload",
			"unparseable upload response", err)
	}
	if uploaded.ID == "" {
		return "", services.Wrap(
			services.ErrExternalTool, "publish", "upload",
			"upload response carried no video id", nil)
	}
	return uploaded.ID, nil
}

func (p *Publisher) openSession(ctx context.Context, meta Metadata) (string, error) {
	var resource videoResource
	resource.Snippet.Title = meta.Title
	resource.Snippet.Description = meta.Description
	resource.Snippet.Tags = meta.Tags
	resource.Snippet.CategoryID = "27" // Education
	resource.Status.PrivacyStatus = meta.Privacy
	if resource.Status.PrivacyStatus == "" {
		resource.Status.PrivacyStatus = p.privacy
	}

	payload, err := json.Marshal(resource)
	if err != nil {
		return "", fmt.Errorf("encode video resource: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.uploadURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("X-Upload-Content-Type", "video/mp4")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", services.Wrap(
			services.ErrExternalTool, "publish", "open session",
			"resumable session request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", services.Wrap(
			services.ErrExternalTool, "publish", "open session",
			fmt.Sprintf("session returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return "", services.Wrap(
			services.ErrExternalTool, "publish", "open session",
			"session response carried no upload location", nil)
	}
	return location, nil
}
