package config

import (
	"errors"
	"fmt"
	"strings"
)

var knownTransitionKinds = map[string]struct{}{
	"crossfade": {},
	"wipe":      {},
	"slide":     {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateAudio(); err != nil {
		return err
	}
	if err := c.validateVideo(); err != nil {
		return err
	}
	if err := c.validateTransitions(); err != nil {
		return err
	}
	if err := c.validateCompose(); err != nil {
		return err
	}
	if err := c.validateServices(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		return errors.New("paths.work_dir must be set")
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	if c.Avatar.Required && strings.TrimSpace(c.Paths.AvatarPath) == "" {
		return errors.New("paths.avatar_path must be set when avatar.required is true")
	}
	return nil
}

func (c *Config) validateAudio() error {
	if c.Audio.Gain <= 0 {
		return errors.New("audio.gain must be positive")
	}
	if c.Audio.SilenceThresholdDB >= 0 {
		return errors.New("audio.silence_threshold_db must be negative (decibels below full scale)")
	}
	if c.Audio.MinSilenceSeconds < 0 {
		return errors.New("audio.min_silence_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateVideo() error {
	if c.Video.Width <= 0 || c.Video.Height <= 0 {
		return errors.New("video.width and video.height must be positive")
	}
	if c.Video.Width >= c.Video.Height {
		return errors.New("video output must be portrait (width < height)")
	}
	if c.Video.FPS <= 0 {
		return errors.New("video.fps must be positive")
	}
	if c.Video.BurnCaptions && c.Video.CaptionLineChars <= 0 {
		return errors.New("video.caption_line_chars must be positive when video.burn_captions is true")
	}
	return nil
}

func (c *Config) validateTransitions() error {
	if len(c.Transitions.Kinds) == 0 {
		return errors.New("transitions.kinds must list at least one transition")
	}
	for _, kind := range c.Transitions.Kinds {
		if _, ok := knownTransitionKinds[kind]; !ok {
			return fmt.Errorf("transitions.kinds contains unknown kind %q", kind)
		}
	}
	if c.Transitions.OverlapMS <= 0 {
		return errors.New("transitions.overlap_ms must be positive")
	}
	return nil
}

func (c *Config) validateCompose() error {
	if c.Compose.SceneWorkers <= 0 {
		return errors.New("compose.scene_workers must be positive")
	}
	return nil
}

func (c *Config) validateServices() error {
	if c.Script.MinScenes < 2 {
		return errors.New("script.min_scenes must be at least 2 (a single scene has no transitions)")
	}
	if c.Script.MaxScenes < c.Script.MinScenes {
		return errors.New("script.max_scenes must be >= script.min_scenes")
	}
	if c.Voice.Retries < 1 {
		return errors.New("voice.retries must be at least 1")
	}
	if c.Pexels.PerPage <= 0 {
		return errors.New("pexels.per_page must be positive")
	}
	if c.YouTube.Enabled {
		if strings.TrimSpace(c.YouTube.ClientID) == "" || strings.TrimSpace(c.YouTube.ClientSecret) == "" {
			return errors.New("youtube.client_id and youtube.client_secret must be set when youtube.enabled is true")
		}
		if strings.TrimSpace(c.YouTube.RefreshToken) == "" {
			return errors.New("youtube.refresh_token must be set when youtube.enabled is true")
		}
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.QueuePollInterval <= 0 {
		return errors.New("workflow.queue_poll_interval must be positive")
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		return errors.New("workflow.error_retry_interval must be positive")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
