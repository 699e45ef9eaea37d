package render

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"reelsmith/internal/config"
	"reelsmith/internal/services"
	"reelsmith/internal/timeline"
)

type scriptedRunner struct {
	calls [][]string
	errs  []error
}

func (s *scriptedRunner) Run(_ context.Context, args []string) error {
	s.calls = append(s.calls, append([]string(nil), args...))
	if len(s.errs) >= len(s.calls) {
		return s.errs[len(s.calls)-1]
	}
	return nil
}

// pathFailRunner fails every invocation that reads the configured input,
// the way ffmpeg fails on a corrupt source regardless of argument order.
type pathFailRunner struct {
	calls    [][]string
	failPath string
}

func (p *pathFailRunner) Run(_ context.Context, args []string) error {
	p.calls = append(p.calls, append([]string(nil), args...))
	for _, input := range inputsOf(args) {
		if input == p.failPath {
			return errors.New("ffmpeg exited 1: invalid data found when processing input")
		}
	}
	return nil
}

func inputsOf(args []string) []string {
	var inputs []string
	for i, arg := range args {
		if arg == "-i" && i+1 < len(args) {
			inputs = append(inputs, args[i+1])
		}
	}
	return inputs
}

func exactProbe(d time.Duration) Prober {
	return func(context.Context, string) (time.Duration, error) {
		return d, nil
	}
}

func testRequest(t *testing.T, total time.Duration) Request {
	t.Helper()
	tl, err := timeline.Build(1, total)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	dir := t.TempDir()
	return Request{
		SceneIndex: 1,
		Caption:    "The ocean hides monsters",
		AudioPath:  filepath.Join(dir, "voice_1.wav"),
		Primary:    filepath.Join(dir, "primary.mp4"),
		Secondary:  filepath.Join(dir, "secondary.mp4"),
		Timeline:   tl,
		OutputPath: filepath.Join(dir, "scene_1.mp4"),
	}
}

func TestRenderSceneSplitMode(t *testing.T) {
	cfg := config.Default()
	runner := &scriptedRunner{}
	renderer := NewRenderer(&cfg, runner, exactProbe(4083*time.Millisecond))

	req := testRequest(t, 4083*time.Millisecond)
	clip, err := renderer.RenderScene(context.Background(), req)
	if err != nil {
		t.Fatalf("RenderScene: %v", err)
	}
	if clip.Duration != req.Timeline.Total {
		t.Fatalf("clip duration = %v, want %v", clip.Duration, req.Timeline.Total)
	}
	if clip.HasAvatar {
		t.Fatal("unexpected avatar flag")
	}
	if clip.SceneIndex != 1 || clip.Path != req.OutputPath {
		t.Fatalf("clip = %+v", clip)
	}

	if len(runner.calls) != 1 {
		t.Fatalf("expected one ffmpeg call, got %d", len(runner.calls))
	}
	args := strings.Join(runner.calls[0], " ")
	for _, want := range []string{
		"trim=duration=2.042",
		"trim=duration=2.041",
		"setpts=PTS-STARTPTS",
		"scale=1080:1920:force_original_aspect_ratio=increase",
		"crop=1080:1920",
		"fps=30",
		"concat=n=2:v=1:a=0",
		"drawtext=",
		"-c:v libx264",
		"-c:a aac",
		"-pix_fmt yuv420p",
		"-t 4.083",
		"-shortest",
	} {
		if !strings.Contains(args, want) {
			t.Errorf("args missing %q", want)
		}
	}
}

func TestRenderSceneMissingSecondaryReusesPrimary(t *testing.T) {
	cfg := config.Default()
	runner := &scriptedRunner{}
	renderer := NewRenderer(&cfg, runner, exactProbe(6*time.Second))

	req := testRequest(t, 6*time.Second)
	req.Secondary = ""
	clip, err := renderer.RenderScene(context.Background(), req)
	if err != nil {
		t.Fatalf("RenderScene: %v", err)
	}
	if clip.Duration != 6*time.Second {
		t.Fatalf("duration = %v", clip.Duration)
	}

	inputs := inputsOf(runner.calls[0])
	if len(inputs) != 3 {
		t.Fatalf("inputs = %v", inputs)
	}
	if inputs[0] != req.Primary || inputs[1] != req.Primary {
		t.Fatalf("expected primary for both halves, got %v", inputs)
	}
}

func TestRenderSceneRetriesWithPrimaryForBothHalves(t *testing.T) {
	cfg := config.Default()
	req := testRequest(t, 5*time.Second)
	runner := &pathFailRunner{failPath: req.Secondary}
	renderer := NewRenderer(&cfg, runner, exactProbe(5*time.Second))

	if _, err := renderer.RenderScene(context.Background(), req); err != nil {
		t.Fatalf("RenderScene: %v", err)
	}
	if len(runner.calls) != 2 {
		t.Fatalf("expected one retry, got %d calls", len(runner.calls))
	}

	// The retry must not read the corrupt source at all.
	retryInputs := inputsOf(runner.calls[1])
	if retryInputs[0] != req.Primary || retryInputs[1] != req.Primary {
		t.Fatalf("retry inputs = %v, want primary for both halves", retryInputs)
	}
	for _, input := range retryInputs {
		if input == req.Secondary {
			t.Fatalf("retry still reads corrupt source: %v", retryInputs)
		}
	}
}

func TestRenderSceneRetryFallsBackToSecondary(t *testing.T) {
	cfg := config.Default()
	req := testRequest(t, 5*time.Second)
	runner := &pathFailRunner{failPath: req.Primary}
	renderer := NewRenderer(&cfg, runner, exactProbe(5*time.Second))

	if _, err := renderer.RenderScene(context.Background(), req); err != nil {
		t.Fatalf("RenderScene: %v", err)
	}
	if len(runner.calls) != 3 {
		t.Fatalf("expected two retries, got %d calls", len(runner.calls))
	}

	finalInputs := inputsOf(runner.calls[2])
	if finalInputs[0] != req.Secondary || finalInputs[1] != req.Secondary {
		t.Fatalf("final inputs = %v, want secondary for both halves", finalInputs)
	}
}

func TestRenderSceneFailsWhenEverySourceIsCorrupt(t *testing.T) {
	cfg := config.Default()
	runner := &scriptedRunner{errs: []error{
		errors.New("corrupt a"), errors.New("corrupt b"), errors.New("corrupt c"),
	}}
	renderer := NewRenderer(&cfg, runner, exactProbe(5*time.Second))

	_, err := renderer.RenderScene(context.Background(), testRequest(t, 5*time.Second))
	if !errors.Is(err, services.ErrDecode) {
		t.Fatalf("err = %v, want decode error", err)
	}
	if len(runner.calls) != 3 {
		t.Fatalf("expected three attempts, got %d", len(runner.calls))
	}
}

func TestRenderSceneSingleSourceDoesNotRetry(t *testing.T) {
	cfg := config.Default()
	runner := &scriptedRunner{errs: []error{errors.New("corrupt")}}
	renderer := NewRenderer(&cfg, runner, exactProbe(5*time.Second))

	req := testRequest(t, 5*time.Second)
	req.Secondary = ""
	_, err := renderer.RenderScene(context.Background(), req)
	if !errors.Is(err, services.ErrDecode) {
		t.Fatalf("err = %v, want decode error", err)
	}
	if len(runner.calls) != 1 {
		t.Fatalf("expected no retry with a single source, got %d calls", len(runner.calls))
	}
}

func TestRenderSceneRejectsDriftingOutput(t *testing.T) {
	cfg := config.Default()
	renderer := NewRenderer(&cfg, &scriptedRunner{}, exactProbe(5*time.Second+200*time.Millisecond))

	_, err := renderer.RenderScene(context.Background(), testRequest(t, 5*time.Second))
	if !errors.Is(err, services.ErrTimingViolation) {
		t.Fatalf("err = %v, want timing violation", err)
	}
}

func TestRenderSceneToleratesSubFrameDrift(t *testing.T) {
	cfg := config.Default()
	// One frame at 30 fps is ~33 ms; 20 ms of drift passes verification.
	renderer := NewRenderer(&cfg, &scriptedRunner{}, exactProbe(5*time.Second+20*time.Millisecond))

	clip, err := renderer.RenderScene(context.Background(), testRequest(t, 5*time.Second))
	if err != nil {
		t.Fatalf("RenderScene: %v", err)
	}
	if clip.Duration != 5*time.Second {
		t.Fatalf("duration = %v, want timeline total", clip.Duration)
	}
}

func TestRenderSceneAvatarMode(t *testing.T) {
	cfg := config.Default()
	runner := &scriptedRunner{}
	renderer := NewRenderer(&cfg, runner, exactProbe(7*time.Second))

	req := testRequest(t, 7*time.Second)
	avatar := filepath.Join(t.TempDir(), "avatar.mp4")
	if err := os.WriteFile(avatar, []byte("mp4"), 0o644); err != nil {
		t.Fatalf("write avatar: %v", err)
	}
	req.AvatarPath = avatar

	clip, err := renderer.RenderScene(context.Background(), req)
	if err != nil {
		t.Fatalf("RenderScene: %v", err)
	}
	if !clip.HasAvatar {
		t.Fatal("expected avatar flag")
	}
	if clip.Duration != 7*time.Second {
		t.Fatalf("duration = %v", clip.Duration)
	}

	args := strings.Join(runner.calls[0], " ")
	for _, want := range []string{
		avatar,
		"crop=iw:ih-150:0:0",
		"trim=duration=7.000",
		"-t 7.000",
	} {
		if !strings.Contains(args, want) {
			t.Errorf("args missing %q", want)
		}
	}
	if strings.Contains(args, req.Primary) {
		t.Error("avatar mode should ignore stock sources")
	}
}

func TestRenderSceneMissingAvatarAsset(t *testing.T) {
	cfg := config.Default()
	renderer := NewRenderer(&cfg, &scriptedRunner{}, exactProbe(5*time.Second))

	req := testRequest(t, 5*time.Second)
	req.AvatarPath = filepath.Join(t.TempDir(), "absent.mp4")

	_, err := renderer.RenderScene(context.Background(), req)
	if !errors.Is(err, services.ErrMissingAsset) {
		t.Fatalf("err = %v, want missing asset error", err)
	}
}

func TestRenderSceneRequiresPrimarySource(t *testing.T) {
	cfg := config.Default()
	renderer := NewRenderer(&cfg, &scriptedRunner{}, exactProbe(5*time.Second))

	req := testRequest(t, 5*time.Second)
	req.Primary = ""
	req.Secondary = ""

	_, err := renderer.RenderScene(context.Background(), req)
	if !errors.Is(err, services.ErrMissingAsset) {
		t.Fatalf("err = %v, want missing asset error", err)
	}
}

func TestRenderSceneSkipsCaptionsWhenDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Video.BurnCaptions = false
	runner := &scriptedRunner{}
	renderer := NewRenderer(&cfg, runner, exactProbe(5*time.Second))

	if _, err := renderer.RenderScene(context.Background(), testRequest(t, 5*time.Second)); err != nil {
		t.Fatalf("RenderScene: %v", err)
	}
	if strings.Contains(strings.Join(runner.calls[0], " "), "drawtext") {
		t.Fatal("expected no drawtext filters")
	}
}
