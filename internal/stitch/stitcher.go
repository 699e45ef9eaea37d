package stitch

import (
	"fmt"
	"strings"
	"time"

	"reelsmith/internal/timeline"
)

// Args builds the single-pass ffmpeg invocation that joins a plan's clips
// with xfade/acrossfade boundaries and encodes the export profile. The
// returned arguments end with the output path.
func Args(plan timeline.Plan, preset, outputPath string) []string {
	args := make([]string, 0, 4*len(plan.Clips)+16)
	for _, clip := range plan.Clips {
		args = append(args, "-i", clip.Path)
	}

	if len(plan.Clips) == 1 {
		args = append(args, "-c:v", "libx264", "-c:a", "aac")
		args = append(args, encodeTail(preset, outputPath)...)
		return args
	}

	var filters []string
	videoLabel := "[0:v]"
	audioLabel := "[0:a]"
	elapsed := plan.Clips[0].Duration

	for i := 1; i < len(plan.Clips); i++ {
		tr := plan.Transitions[i-1]
		offset := elapsed - tr.Overlap

		nextVideo := fmt.Sprintf("[vx%d]", i)
		filters = append(filters, fmt.Sprintf(
			"%s[%d:v]xfade=transition=%s:duration=%s:offset=%s%s",
			videoLabel, i, tr.Kind.XFadeName(),
			formatSeconds(tr.Overlap), formatSeconds(offset), nextVideo))
		videoLabel = nextVideo

		nextAudio := fmt.Sprintf("[ax%d]", i)
		filters = append(filters, fmt.Sprintf(
			"%s[%d:a]acrossfade=d=%s%s",
			audioLabel, i, formatSeconds(tr.Overlap), nextAudio))
		audioLabel = nextAudio

		elapsed += plan.Clips[i].Duration - tr.Overlap
	}

	args = append(args,
		"-filter_complex", strings.Join(filters, ";"),
		"-map", videoLabel, "-map", audioLabel,
		"-c:v", "libx264", "-c:a", "aac",
	)
	args = append(args, encodeTail(preset, outputPath)...)
	return args
}

// encodeTail is the fixed compatibility profile: 8-bit 4:2:0, fast-start
// container, single pass.
func encodeTail(preset, outputPath string) []string {
	if strings.TrimSpace(preset) == "" {
		preset = "medium"
	}
	return []string{
		"-preset", preset,
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		outputPath,
	}
}

func formatSeconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}
