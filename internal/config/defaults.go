package config

const (
	defaultWorkDir            = "~/.local/share/reelsmith/work"
	defaultOutputDir          = "~/.local/share/reelsmith/final"
	defaultLogDir             = "~/.local/share/reelsmith/logs"
	defaultAudioGain          = 2.0
	defaultSilenceThresholdDB = -50.0
	defaultMinSilenceSeconds  = 0.1
	defaultFrameWidth         = 1080
	defaultFrameHeight        = 1920
	defaultFrameRate          = 30
	defaultEncodePreset       = "medium"
	defaultCaptionLineChars   = 24
	defaultTransitionOverlap  = 500
	defaultSceneWorkers       = 3
	defaultScriptBaseURL      = "https://api.openai.com/v1"
	defaultScriptModel        = "gpt-4o-mini"
	defaultScriptMinScenes    = 8
	defaultScriptMaxScenes    = 9
	defaultScriptTimeout      = 60
	defaultVoiceTimeout       = 120
	defaultVoiceRetries       = 3
	defaultPexelsBaseURL      = "https://api.pexels.com/videos/search"
	defaultPexelsPerPage      = 5
	defaultPexelsTimeout      = 15
	defaultPrivacyState       = "public"
	defaultNotifyTimeout      = 10
	defaultQueuePollInterval  = 5
	defaultErrorRetryInterval = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

func defaultTransitionKinds() []string {
	return []string{"crossfade", "wipe", "slide"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:   defaultWorkDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Audio: Audio{
			Gain:               defaultAudioGain,
			SilenceThresholdDB: defaultSilenceThresholdDB,
			MinSilenceSeconds:  defaultMinSilenceSeconds,
		},
		Video: Video{
			Width:            defaultFrameWidth,
			Height:           defaultFrameHeight,
			FPS:              defaultFrameRate,
			Preset:           defaultEncodePreset,
			BurnCaptions:     true,
			CaptionLineChars: defaultCaptionLineChars,
		},
		Transitions: Transitions{
			Kinds:     defaultTransitionKinds(),
			OverlapMS: defaultTransitionOverlap,
		},
		Avatar: Avatar{
			Enabled:  true,
			Required: false,
		},
		Compose: Compose{
			SceneWorkers: defaultSceneWorkers,
		},
		Script: Script{
			BaseURL:    defaultScriptBaseURL,
			Model:      defaultScriptModel,
			MinScenes:  defaultScriptMinScenes,
			MaxScenes:  defaultScriptMaxScenes,
			TimeoutSec: defaultScriptTimeout,
		},
		Voice: Voice{
			TimeoutSec: defaultVoiceTimeout,
			Retries:    defaultVoiceRetries,
		},
		Pexels: Pexels{
			BaseURL:    defaultPexelsBaseURL,
			PerPage:    defaultPexelsPerPage,
			TimeoutSec: defaultPexelsTimeout,
		},
		YouTube: YouTube{
			PrivacyState: defaultPrivacyState,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
