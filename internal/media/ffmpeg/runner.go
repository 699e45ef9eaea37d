package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

var commandContext = exec.CommandContext

const stderrTailBytes = 4096

// Runner executes ffmpeg invocations. Components build argument lists and
// hand them to a Runner so tests can substitute a fake.
type Runner interface {
	Run(ctx context.Context, args []string) error
}

// CLI runs the real ffmpeg binary.
type CLI struct {
	Binary string
}

// NewCLI constructs a Runner around the given ffmpeg binary. An empty binary
// falls back to "ffmpeg" on PATH.
func NewCLI(binary string) *CLI {
	return &CLI{Binary: binary}
}

// Run invokes ffmpeg with the provided arguments. Banner suppression and
// overwrite confirmation are handled here so callers only describe the
// transcode itself.
func (c *CLI) Run(ctx context.Context, args []string) error {
	binary := strings.TrimSpace(c.Binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	if len(args) == 0 {
		return errors.New("ffmpeg run: empty argument list")
	}

	full := append([]string{"-hide_banner", "-loglevel", "error", "-y"}, args...)
	cmd := commandContext(ctx, binary, full...)

	var stderr bytes.Buffer
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("ffmpeg exited %d: %s", exitErr.ExitCode(), stderrTail(stderr.Bytes()))
		}
		return fmt.Errorf("ffmpeg run: %w", err)
	}
	return nil
}

func stderrTail(output []byte) string {
	trimmed := strings.TrimSpace(string(output))
	if trimmed == "" {
		return "(no stderr output)"
	}
	if len(trimmed) > stderrTailBytes {
		trimmed = trimmed[len(trimmed)-stderrTailBytes:]
	}
	return trimmed
}
