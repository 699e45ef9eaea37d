package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"reelsmith/internal/config"
	"reelsmith/internal/services"
)

const retryDelay = 2 * time.Second

// Client synthesizes narration audio through a remote TTS endpoint. The
// endpoint accepts a JSON body and returns raw audio bytes.
type Client struct {
	baseURL    string
	voiceID    string
	retries    int
	httpClient *http.Client

	// sleep is a test seam for the inter-attempt delay.
	sleep func(ctx context.Context, d time.Duration) error
}

type synthesizeRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
	Rate  string `json:"rate,omitempty"`
}

// NewClient builds a Client from configuration.
func NewClient(cfg *config.Config) *Client {
	timeout := time.Duration(cfg.Voice.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	retries := cfg.Voice.Retries
	if retries < 1 {
		retries = 1
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.Voice.BaseURL, "/"),
		voiceID:    cfg.Voice.VoiceID,
		retries:    retries,
		httpClient: &http.Client{Timeout: timeout},
		sleep:      sleepContext,
	}
}

// Synthesize writes narration audio for the text to outputPath. Transient
// connection drops are retried up to the configured attempt count before
// the scene fails.
func (c *Client) Synthesize(ctx context.Context, text, outputPath string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return services.Wrap(
			services.ErrValidation, "voice", "synthesize",
			"no narration text supplied", nil)
	}
	if c.baseURL == "" {
		return services.Wrap(
			services.ErrConfiguration, "voice", "synthesize",
			"voice base_url is not configured", nil)
	}

	var lastErr error
	for attempt := 1; attempt <= c.retries; attempt++ {
		if err := c.synthesizeOnce(ctx, text, outputPath); err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if attempt < c.retries {
				if err := c.sleep(ctx, retryDelay); err != nil {
					return err
				}
			}
			continue
		}
		return nil
	}
	return services.Wrap(
		services.ErrExternalTool, "voice", "synthesize",
		fmt.Sprintf("synthesis failed after %d attempts", c.retries), lastErr)
}

func (c *Client) synthesizeOnce(ctx context.Context, text, outputPath string) error {
	payload, err := json.Marshal(synthesizeRequest{
		Text:  text,
		Voice: c.voiceID,
		Rate:  "+10%",
	})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/synthesize", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/*")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post synthesis request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("synthesis endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	written, err := io.Copy(out, resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(outputPath)
		return fmt.Errorf("write audio bytes: %w", err)
	}
	if written == 0 {
		os.Remove(outputPath)
		return fmt.Errorf("synthesis endpoint returned no audio")
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
