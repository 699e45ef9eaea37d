package ffmpeg

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeStub(t *testing.T, body string) string {
	t.Helper()
	script := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(script, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return script
}

func TestRunInjectsGlobalFlags(t *testing.T) {
	out := filepath.Join(t.TempDir(), "args.txt")
	runner := NewCLI(writeStub(t, `printf '%s\n' "$@" > `+out))

	if err := runner.Run(context.Background(), []string{"-i", "in.mp4", "out.mp4"}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	content, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read args: %v", err)
	}
	args := strings.Split(strings.TrimSpace(string(content)), "\n")
	want := []string{"-hide_banner", "-loglevel", "error", "-y", "-i", "in.mp4", "out.mp4"}
	if len(args) != len(want) {
		t.Fatalf("args = %v, want %v", args, want)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Fatalf("args[%d] = %q, want %q", i, args[i], want[i])
		}
	}
}

func TestRunReportsExitCodeAndStderr(t *testing.T) {
	runner := NewCLI(writeStub(t, `echo "Invalid filter graph" >&2; exit 234`))

	err := runner.Run(context.Background(), []string{"-i", "in.mp4", "out.mp4"})
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "234") {
		t.Errorf("expected exit code in error, got %q", msg)
	}
	if !strings.Contains(msg, "Invalid filter graph") {
		t.Errorf("expected stderr tail in error, got %q", msg)
	}
}

func TestRunRejectsEmptyArgs(t *testing.T) {
	runner := NewCLI("ffmpeg")
	if err := runner.Run(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty args")
	}
}

func TestRunHonorsCancelledContext(t *testing.T) {
	runner := NewCLI(writeStub(t, `sleep 10`))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runner.Run(ctx, []string{"-i", "in.mp4", "out.mp4"})
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
