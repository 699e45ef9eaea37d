package script

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"reelsmith/internal/config"
	"reelsmith/internal/services"
)

// Scene is one narrated beat of the generated script. The two visual
// terms drive the A/B footage switch inside the rendered scene.
type Scene struct {
	Narration string `json:"narration" jsonschema_description:"One spoken sentence in third person, fast-paced, no fluff."`
	Visual1   string `json:"visual_1" jsonschema_description:"Literal stock-footage search term matching the start of the sentence."`
	Visual2   string `json:"visual_2" jsonschema_description:"Literal stock-footage search term matching the end of the sentence."`
	Mood      string `json:"mood" jsonschema_description:"One-word mood tag such as intriguing or educational."`
}

// Script is the full generated content for one run.
type Script struct {
	Title       string   `json:"title" jsonschema_description:"Engaging video title under 80 characters."`
	Description string   `json:"description" jsonschema_description:"Two-sentence video description."`
	Tags        []string `json:"tags" jsonschema_description:"Three to five topical tags without the # prefix."`
	Scenes      []Scene  `json:"scenes" jsonschema_description:"Ordered scenes following hook, context, mechanism, twist, outro."`
}

// GenerateSchema builds a strict JSON schema for structured completions.
func GenerateSchema[T any]() interface{} {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

var scriptSchema = GenerateSchema[Script]()

// Generator produces scene scripts through an OpenAI-compatible
// structured-output endpoint.
type Generator struct {
	client    openai.Client
	model     string
	minScenes int
	maxScenes int
	timeout   time.Duration
}

// NewGenerator builds a Generator from configuration. A custom base URL
// points the client at any OpenAI-compatible server.
func NewGenerator(cfg *config.Config) *Generator {
	opts := []option.RequestOption{option.WithAPIKey(cfg.Script.APIKey)}
	if cfg.Script.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.Script.BaseURL))
	}
	model := cfg.Script.Model
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	timeout := time.Duration(cfg.Script.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Generator{
		client:    openai.NewClient(opts...),
		model:     model,
		minScenes: cfg.Script.MinScenes,
		maxScenes: cfg.Script.MaxScenes,
		timeout:   timeout,
	}
}

// Generate writes a complete scene script for the topic. Scene counts
// outside the configured window are rejected so a degenerate script never
// reaches the voicing stage.
func (g *Generator) Generate(ctx context.Context, topic string) (*Script, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, services.Wrap(
			services.ErrValidation, "script", "generate",
			"no topic supplied", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        "scene_script",
		Description: openai.String("Structured short-video scene script"),
		Schema:      scriptSchema,
		Strict:      openai.Bool(true),
	}

	completion, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(g.prompt(topic)),
		},
		Model: g.model,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: schemaParam,
			},
		},
	})
	if err != nil {
		return nil, services.Wrap(
			services.ErrExternalTool, "script", "generate",
			fmt.Sprintf("script generation for %q failed", topic), err)
	}
	if len(completion.Choices) == 0 {
		return nil, services.Wrap(
			services.ErrExternalTool, "script", "generate",
			"script model returned no choices", nil)
	}

	var script Script
	raw := completion.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(raw), &script); err != nil {
		return nil, services.Wrap(
			services.ErrExternalTool, "script", "generate",
			"script model returned unparseable JSON", err)
	}
	if err := g.validate(&script); err != nil {
		return nil, err
	}
	return &script, nil
}

func (g *Generator) validate(script *Script) error {
	if len(script.Scenes) == 0 {
		return services.Wrap(
			services.ErrValidation, "script", "validate",
			"script has no scenes", nil)
	}
	if g.minScenes > 0 && len(script.Scenes) < g.minScenes {
		return services.Wrap(
			services.ErrValidation, "script", "validate",
			fmt.Sprintf("script has %d scenes, need at least %d", len(script.Scenes), g.minScenes), nil)
	}
	if g.maxScenes > 0 && len(script.Scenes) > g.maxScenes {
		script.Scenes = script.Scenes[:g.maxScenes]
	}
	for i, scene := range script.Scenes {
		if strings.TrimSpace(scene.Narration) == "" {
			return services.Wrap(
				services.ErrValidation, "script", "validate",
				fmt.Sprintf("scene %d has empty narration", i), nil)
		}
		if strings.TrimSpace(scene.Visual1) == "" {
			return services.Wrap(
				services.ErrValidation, "script", "validate",
				fmt.Sprintf("scene %d has no visual search term", i), nil)
		}
	}
	return nil
}

func (g *Generator) prompt(topic string) string {
	minScenes, maxScenes := g.minScenes, g.maxScenes
	if minScenes <= 0 {
		minScenes = 8
	}
	if maxScenes < minScenes {
		maxScenes = minScenes + 1
	}
	return fmt.Sprintf(`You are the lead scriptwriter for a high-retention edutainment shorts channel.
Topic: %s

Write a script where every sentence triggers a visual switch.

Script requirements:
- Strictly third person, engaging, fast-paced, no fluff.
- %d to %d scenes total.
- Flow: hook, then context, then mechanism, then twist, then outro.

Visual requirements:
- For every scene give TWO distinct stock-footage search terms:
  visual_1 matches the start of the sentence, visual_2 matches the end
  or provides a reaction shot.
- Keep search terms strictly literal. For "the economy crashed" search
  "stock market red chart", never "sad man".

Also provide an engaging title, a two-sentence description, and topical tags.`,
		topic, minScenes, maxScenes)
}
