package queue

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SceneAsset describes one scene's narration plus the media gathered for it.
type SceneAsset struct {
	Index          int      `json:"index"`
	Narration      string   `json:"narration"`
	VisualKeywords []string `json:"visual_keywords,omitempty"`
	AudioPath      string   `json:"audio_path,omitempty"`
	VideoPathA     string   `json:"video_path_a,omitempty"`
	VideoPathB     string   `json:"video_path_b,omitempty"`
	AvatarSlot     bool     `json:"avatar_slot,omitempty"`
	RenderedPath   string   `json:"rendered_path,omitempty"`
}

// Manifest carries everything the pipeline accumulates about a run: the
// generated script, per-scene assets, and the stitched output.
type Manifest struct {
	Topic       string       `json:"topic"`
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Tags        []string     `json:"tags,omitempty"`
	Scenes      []SceneAsset `json:"scenes,omitempty"`
	OutputPath  string       `json:"output_path,omitempty"`
	VideoID     string       `json:"video_id,omitempty"`
}

// Manifest decodes the run's manifest JSON. An empty column yields an
// empty manifest.
func (r *Run) Manifest() (*Manifest, error) {
	manifest := &Manifest{Topic: r.Topic}
	if strings.TrimSpace(r.ManifestJSON) == "" {
		return manifest, nil
	}
	if err := json.Unmarshal([]byte(r.ManifestJSON), manifest); err != nil {
		return nil, fmt.Errorf("decode manifest for run %d: %w", r.ID, err)
	}
	return manifest, nil
}

// SetManifest encodes the manifest back onto the run.
func (r *Run) SetManifest(manifest *Manifest) error {
	if manifest == nil {
		r.ManifestJSON = ""
		return nil
	}
	data, err := json.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("encode manifest for run %d: %w", r.ID, err)
	}
	r.ManifestJSON = string(data)
	return nil
}

// Scene returns the scene asset at the given index, or nil when absent.
func (m *Manifest) Scene(index int) *SceneAsset {
	for i := range m.Scenes {
		if m.Scenes[i].Index == index {
			return &m.Scenes[i]
		}
	}
	return nil
}
