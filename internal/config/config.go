package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and asset location configuration.
type Paths struct {
	WorkDir    string `toml:"work_dir"`
	OutputDir  string `toml:"output_dir"`
	LogDir     string `toml:"log_dir"`
	AvatarPath string `toml:"avatar_path"`
	FontPath   string `toml:"font_path"`
}

// Audio contains normalization settings applied to every scene clip.
type Audio struct {
	// Gain is the fixed multiplier applied after silence trimming.
	Gain float64 `toml:"gain"`
	// SilenceThresholdDB is the energy floor below which leading and
	// trailing audio is treated as silence.
	SilenceThresholdDB float64 `toml:"silence_threshold_db"`
	// MinSilenceSeconds is the minimum silent span the trimmer removes.
	MinSilenceSeconds float64 `toml:"min_silence_seconds"`
}

// Video contains the fixed output frame geometry and encode settings.
type Video struct {
	Width        int    `toml:"width"`
	Height       int    `toml:"height"`
	FPS          int    `toml:"fps"`
	Preset       string `toml:"preset"`
	BurnCaptions bool   `toml:"burn_captions"`
	// CaptionLineChars is the word-wrap width for burned captions.
	CaptionLineChars int `toml:"caption_line_chars"`
}

// Transitions configures the scene-boundary joins.
type Transitions struct {
	// Kinds is the fixed set a stitch plan draws from.
	Kinds []string `toml:"kinds"`
	// OverlapMS is the fixed join overlap in milliseconds.
	OverlapMS int `toml:"overlap_ms"`
}

// Avatar configures brand-avatar injection.
type Avatar struct {
	Enabled bool `toml:"enabled"`
	// Required controls whether a missing avatar asset fails the run
	// instead of silently rendering every scene from stock footage.
	Required bool `toml:"required"`
}

// Compose configures the per-scene render fan-out.
type Compose struct {
	SceneWorkers int `toml:"scene_workers"`
}

// Script contains settings for the scene-script generation service.
type Script struct {
	APIKey     string `toml:"api_key"`
	BaseURL    string `toml:"base_url"`
	Model      string `toml:"model"`
	MinScenes  int    `toml:"min_scenes"`
	MaxScenes  int    `toml:"max_scenes"`
	TimeoutSec int    `toml:"timeout_seconds"`
}

// Voice contains settings for the remote voice-synthesis service.
type Voice struct {
	BaseURL    string `toml:"base_url"`
	VoiceID    string `toml:"voice_id"`
	TimeoutSec int    `toml:"timeout_seconds"`
	Retries    int    `toml:"retries"`
}

// Pexels contains settings for the stock-footage provider.
type Pexels struct {
	APIKey     string `toml:"api_key"`
	BaseURL    string `toml:"base_url"`
	PerPage    int    `toml:"per_page"`
	TimeoutSec int    `toml:"timeout_seconds"`
}

// YouTube contains publish-sink settings.
type YouTube struct {
	Enabled      bool   `toml:"enabled"`
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RefreshToken string `toml:"refresh_token"`
	PrivacyState string `toml:"privacy_state"`
}

// Notifications contains ntfy push notification settings.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Workflow contains worker timing intervals.
type Workflow struct {
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for reelsmith.
//
// Configuration sections by subsystem:
//   - Paths: working/output/log directories and local assets
//   - Audio: normalizer gain and silence trim thresholds
//   - Video: output geometry, frame rate, encode preset, captions
//   - Transitions: join kinds and overlap duration
//   - Avatar: brand-avatar injection policy
//   - Compose: scene render concurrency
//   - Script/Voice/Pexels/YouTube: external collaborator services
//   - Notifications: ntfy push settings
//   - Workflow: worker polling intervals
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Audio         Audio         `toml:"audio"`
	Video         Video         `toml:"video"`
	Transitions   Transitions   `toml:"transitions"`
	Avatar        Avatar        `toml:"avatar"`
	Compose       Compose       `toml:"compose"`
	Script        Script        `toml:"script"`
	Voice         Voice         `toml:"voice"`
	Pexels        Pexels        `toml:"pexels"`
	YouTube       YouTube       `toml:"youtube"`
	Notifications Notifications `toml:"notifications"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/reelsmith/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("reelsmith.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	for _, field := range []*string{
		&c.Paths.WorkDir,
		&c.Paths.OutputDir,
		&c.Paths.LogDir,
		&c.Paths.AvatarPath,
		&c.Paths.FontPath,
	} {
		if strings.TrimSpace(*field) == "" {
			*field = ""
			continue
		}
		expanded, err := expandPath(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	normalized := make([]string, 0, len(c.Transitions.Kinds))
	for _, kind := range c.Transitions.Kinds {
		kind = strings.ToLower(strings.TrimSpace(kind))
		if kind != "" {
			normalized = append(normalized, kind)
		}
	}
	c.Transitions.Kinds = normalized
	return nil
}

// EnsureDirectories creates the directories a run needs before any stage writes.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.OutputDir, c.Paths.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for all media rendering.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
