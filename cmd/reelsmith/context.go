package main

import (
	"os"
	"strings"
	"sync"

	"reelsmith/internal/config"
	"reelsmith/internal/queue"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		applyEnvOverrides(cfg)
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// applyEnvOverrides fills credential fields from the environment when the
// config file leaves them blank, so keys can stay out of dotfiles.
func applyEnvOverrides(cfg *config.Config) {
	if cfg.Script.APIKey == "" {
		cfg.Script.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Pexels.APIKey == "" {
		cfg.Pexels.APIKey = os.Getenv("PEXELS_API_KEY")
	}
	if cfg.YouTube.RefreshToken == "" {
		cfg.YouTube.RefreshToken = os.Getenv("YOUTUBE_REFRESH_TOKEN")
	}
	if cfg.Notifications.NtfyTopic == "" {
		cfg.Notifications.NtfyTopic = os.Getenv("NTFY_TOPIC")
	}
}

func (c *commandContext) withStore(fn func(*queue.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}
