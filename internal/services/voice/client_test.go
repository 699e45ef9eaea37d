package voice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/queue"
	"reelsmith/internal/services"
)

func voiceConfig(baseURL string) *config.Config {
	defaults := config.Default()
	cfg := &defaults
	cfg.Voice.BaseURL = baseURL
	cfg.Voice.VoiceID = "en-US-AvaNeural"
	cfg.Voice.Retries = 3
	return cfg
}

func noSleep(context.Context, time.Duration) error { return nil }

func TestSynthesizeWritesAudio(t *testing.T) {
	var gotBody synthesizeRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/synthesize" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatal(err)
		}
		w.Write([]byte("fake-audio-bytes"))
	}))
	defer server.Close()

	c := NewClient(voiceConfig(server.URL))
	out := filepath.Join(t.TempDir(), "clips", "voice_0.wav")
	if err := c.Synthesize(context.Background(), "The ocean hides a mountain range.", out); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "fake-audio-bytes" {
		t.Errorf("audio = %q", data)
	}
	if gotBody.Voice != "en-US-AvaNeural" || gotBody.Rate != "+10%" {
		t.Errorf("request = %+v", gotBody)
	}
}

func TestSynthesizeRetriesTransientFailures(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			http.Error(w, "gateway timeout", http.StatusGatewayTimeout)
			return
		}
		w.Write([]byte("audio"))
	}))
	defer server.Close()

	c := NewClient(voiceConfig(server.URL))
	c.sleep = noSleep
	out := filepath.Join(t.TempDir(), "voice_0.wav")
	if err := c.Synthesize(context.Background(), "retry me", out); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if got := attempts.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestSynthesizeFailsAfterMaxRetries(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, "no voice today", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := NewClient(voiceConfig(server.URL))
	c.sleep = noSleep
	err := c.Synthesize(context.Background(), "never works", filepath.Join(t.TempDir(), "v.wav"))
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("err = %v, want %v", err, services.ErrExternalTool)
	}
	if got := attempts.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestSynthesizeRejectsEmptyAudio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := NewClient(voiceConfig(server.URL))
	c.sleep = noSleep
	out := filepath.Join(t.TempDir(), "v.wav")
	err := c.Synthesize(context.Background(), "silence", out)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("err = %v, want %v", err, services.ErrExternalTool)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Error("empty output file left on disk")
	}
}

func TestSynthesizeRequiresConfiguration(t *testing.T) {
	c := NewClient(voiceConfig(""))
	err := c.Synthesize(context.Background(), "text", "out.wav")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("err = %v, want %v", err, services.ErrConfiguration)
	}
}

type recordingSynthesizer struct {
	texts []string
	paths []string
	err   error
}

func (r *recordingSynthesizer) Synthesize(_ context.Context, text, outputPath string) error {
	if r.err != nil {
		return r.err
	}
	r.texts = append(r.texts, text)
	r.paths = append(r.paths, outputPath)
	return nil
}

func scriptedRun(t *testing.T, sceneCount int) *queue.Run {
	t.Helper()
	manifest := &queue.Manifest{Topic: "volcano lightning", Title: "When Volcanoes Make Lightning"}
	for i := 0; i < sceneCount; i++ {
		manifest.Scenes = append(manifest.Scenes, queue.SceneAsset{
			Index:          i,
			Narration:      "Scene narration.",
			VisualKeywords: []string{"volcano eruption night", "lightning storm clouds"},
		})
	}
	run := &queue.Run{UUID: "voice-run", Topic: manifest.Topic, Status: queue.StatusVoicing}
	if err := run.SetManifest(manifest); err != nil {
		t.Fatal(err)
	}
	return run
}

func TestStageExecuteVoicesEveryScene(t *testing.T) {
	cfg := voiceConfig("http://tts.local")
	cfg.Paths.WorkDir = t.TempDir()
	synth := &recordingSynthesizer{}
	s := NewStageWithSynthesizer(cfg, synth, logging.NewNop())

	run := scriptedRun(t, 3)
	ctx := context.Background()
	if err := s.Prepare(ctx, run); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := s.Execute(ctx, run); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if len(synth.paths) != 3 {
		t.Fatalf("synthesized = %d", len(synth.paths))
	}
	manifest, err := run.Manifest()
	if err != nil {
		t.Fatal(err)
	}
	for i, scene := range manifest.Scenes {
		want := filepath.Join(run.StagingDir, fmt.Sprintf("voice_%d.wav", i))
		if scene.AudioPath != want {
			t.Errorf("scene %d audio = %s, want %s", i, scene.AudioPath, want)
		}
	}
}

func TestStagePrepareRequiresScenes(t *testing.T) {
	cfg := voiceConfig("http://tts.local")
	s := NewStageWithSynthesizer(cfg, &recordingSynthesizer{}, logging.NewNop())

	run := &queue.Run{UUID: "empty-run", Topic: "nothing"}
	if err := s.Prepare(context.Background(), run); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("err = %v, want %v", err, services.ErrValidation)
	}
}

func TestStageExecutePropagatesSynthesisFailure(t *testing.T) {
	cfg := voiceConfig("http://tts.local")
	cfg.Paths.WorkDir = t.TempDir()
	synth := &recordingSynthesizer{err: services.Wrap(services.ErrExternalTool, "voice", "synthesize", "down", nil)}
	s := NewStageWithSynthesizer(cfg, synth, logging.NewNop())

	run := scriptedRun(t, 2)
	ctx := context.Background()
	if err := s.Prepare(ctx, run); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := s.Execute(ctx, run); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("err = %v, want %v", err, services.ErrExternalTool)
	}
}
