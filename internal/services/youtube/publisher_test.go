package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/queue"
	"reelsmith/internal/services"
)

func TestBuildTitle(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "why wolves rebuilt a river", "Why Wolves Rebuilt A River #Shorts"},
		{"already tagged", "Ocean Secrets #Shorts", "Ocean Secrets #Shorts"},
		{"whitespace", "  deep sea vents  ", "Deep Sea Vents #Shorts"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := BuildTitle(tc.in); got != tc.want {
				t.Errorf("BuildTitle(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestUploadRoundTrip(t *testing.T) {
	var sessionBody videoResource
	var uploadedBytes []byte

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/session", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&sessionBody); err != nil {
			t.Fatal(err)
		}
		w.Header().Set("Location", server.URL+"/put")
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/put", func(w http.ResponseWriter, r *http.Request) {
		var err error
		uploadedBytes, err = io.ReadAll(r.Body)
		if err != nil {
			t.Fatal(err)
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "vid-123"})
	})

	videoPath := filepath.Join(t.TempDir(), "final.mp4")
	if err := os.WriteFile(videoPath, []byte("encoded-video"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := &Publisher{
		httpClient: server.Client(),
		uploadURL:  server.URL + "/session",
		privacy:    "unlisted",
	}
	id, err := p.Upload(context.Background(), videoPath, Metadata{
		Title:       "Why Wolves Rebuilt A River #Shorts",
		Description: "The math behind the wolves.",
		Tags:        []string{"wolves", "ecology"},
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if id != "vid-123" {
		t.Errorf("id = %s", id)
	}
	if string(uploadedBytes) != "encoded-video" {
		t.Errorf("uploaded = %q", uploadedBytes)
	}
	if sessionBody.Status.PrivacyStatus != "unlisted" {
		t.Errorf("privacy = %s", sessionBody.Status.PrivacyStatus)
	}
	if sessionBody.Snippet.Title != "Why Wolves Rebuilt A River #Shorts" {
		t.Errorf("title = %s", sessionBody.Snippet.Title)
	}
}

func TestUploadMissingVideo(t *testing.T) {
	p := &Publisher{httpClient: http.DefaultClient, uploadURL: "http://unused.local"}
	_, err := p.Upload(context.Background(), "/nonexistent/final.mp4", Metadata{})
	if !errors.Is(err, services.ErrMissingAsset) {
		t.Fatalf("err = %v, want %v", err, services.ErrMissingAsset)
	}
}

func TestUploadSessionFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"quotaExceeded"}`, http.StatusForbidden)
	}))
	defer server.Close()

	videoPath := filepath.Join(t.TempDir(), "final.mp4")
	if err := os.WriteFile(videoPath, []byte("bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := &Publisher{httpClient: server.Client(), uploadURL: server.URL}
	_, err := p.Upload(context.Background(), videoPath, Metadata{})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("err = %v, want %v", err, services.ErrExternalTool)
	}
}

type cannedUploader struct {
	id   string
	meta Metadata
	path string
	err  error
}

func (c *cannedUploader) Upload(_ context.Context, videoPath string, meta Metadata) (string, error) {
	c.path = videoPath
	c.meta = meta
	return c.id, c.err
}

func publishConfig() *config.Config {
	defaults := config.Default()
	cfg := &defaults
	cfg.YouTube.Enabled = true
	cfg.YouTube.ClientID = "client-id"
	cfg.YouTube.ClientSecret = "client-secret"
	cfg.YouTube.RefreshToken = "refresh-token"
	cfg.YouTube.PrivacyState = "public"
	return cfg
}

func composedRun(t *testing.T) *queue.Run {
	t.Helper()
	manifest := &queue.Manifest{
		Topic:       "yellowstone wolves",
		Title:       "why wolves rebuilt a river",
		Description: "The math behind the wolves.",
		Tags:        []string{"wolves"},
		OutputPath:  "/out/final.mp4",
	}
	run := &queue.Run{UUID: "pub-run", Topic: manifest.Topic, Status: queue.StatusPublishing, FinalFile: "/out/final.mp4"}
	if err := run.SetManifest(manifest); err != nil {
		t.Fatal(err)
	}
	return run
}

func TestStageExecuteRecordsVideoID(t *testing.T) {
	uploader := &cannedUploader{id: "vid-9"}
	s := NewStageWithUploader(publishConfig(), uploader, nil, logging.NewNop())

	run := composedRun(t)
	if err := s.Execute(context.Background(), run); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if uploader.path != "/out/final.mp4" {
		t.Errorf("uploaded path = %s", uploader.path)
	}
	if uploader.meta.Title != "Why Wolves Rebuilt A River #Shorts" {
		t.Errorf("title = %s", uploader.meta.Title)
	}
	manifest, err := run.Manifest()
	if err != nil {
		t.Fatal(err)
	}
	if manifest.VideoID != "vid-9" {
		t.Errorf("video id = %s", manifest.VideoID)
	}
}

func TestStagePrepareRequiresCredentials(t *testing.T) {
	cfg := publishConfig()
	cfg.YouTube.RefreshToken = ""
	s := NewStageWithUploader(cfg, &cannedUploader{}, nil, logging.NewNop())

	run := composedRun(t)
	if err := s.Prepare(context.Background(), run); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("err = %v, want %v", err, services.ErrConfiguration)
	}
}

func TestStagePrepareRequiresFinalFile(t *testing.T) {
	s := NewStageWithUploader(publishConfig(), &cannedUploader{}, nil, logging.NewNop())

	run := composedRun(t)
	run.FinalFile = ""
	if err := s.Prepare(context.Background(), run); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("err = %v, want %v", err, services.ErrValidation)
	}
}
