package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reelsmith/internal/media/ffprobe"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <file>",
		Short: "Inspect a media file with ffprobe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			result, err := ffprobe.Inspect(cmd.Context(), cfg.FFprobeBinary(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Duration: %s\n", result.Duration())
			if result.HasVideo() {
				width, height := result.Resolution()
				fmt.Fprintf(out, "Video: %dx%d\n", width, height)
			}
			if stream, ok := result.AudioStream(); ok {
				fmt.Fprintf(out, "Audio: %s @ %d Hz\n", stream.CodecName, result.SampleRate())
			}
			return nil
		},
	}
}
