package config

const (
	defaultDataDir                = "~/.local/share/lantern"
	defaultAPIBind                = "127.0.0.1:7610"
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultLogRetentionDays       = 60
	defaultOpenAIBaseURL          = "https://api.openai.com/v1"
	defaultTranscribeModel        = "whisper-1"
	defaultChatModel              = "gpt-4o-mini"
	defaultImageModel             = "gpt-image-1"
	defaultOpenAITimeoutSeconds   = 120
	defaultVeoModel               = "veo-3.0-generate-preview"
	defaultVeoAspectRatio         = "16:9"
	defaultVeoPollInterval        = 5
	defaultVeoPollTimeout         = 120
	defaultWorkerCount            = 4
	defaultQueuePollInterval      = 5
	defaultErrorRetryInterval     = 10
	defaultHeartbeatInterval      = 15
	defaultHeartbeatTimeout       = 120
	defaultStageRetries           = 2
	defaultRetryBackoffSeconds    = 1
	defaultRetryBackoffMaxSecs    = 10
	defaultTranscribeTimeout      = 600
	defaultSummarizeTimeout       = 120
	defaultImageTimeout           = 180
	defaultVideoTimeout           = 600
	defaultTitleTimeout           = 60
	defaultMaxUploadMB            = 200
	defaultNotifyRequestTimeout   = 10
)

func defaultAllowedExtensions() []string {
	return []string{".wav", ".mp3", ".m4a", ".webm", ".ogg"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			APIBind: defaultAPIBind,
		},
		OpenAI: OpenAI{
			BaseURL:         defaultOpenAIBaseURL,
			TranscribeModel: defaultTranscribeModel,
			ChatModel:       defaultChatModel,
			ImageModel:      defaultImageModel,
			TimeoutSeconds:  defaultOpenAITimeoutSeconds,
		},
		Veo: Veo{
			Model:               defaultVeoModel,
			AspectRatio:         defaultVeoAspectRatio,
			PollIntervalSeconds: defaultVeoPollInterval,
			PollTimeoutSeconds:  defaultVeoPollTimeout,
		},
		Workflow: Workflow{
			WorkerCount:              defaultWorkerCount,
			QueuePollInterval:        defaultQueuePollInterval,
			ErrorRetryInterval:       defaultErrorRetryInterval,
			HeartbeatInterval:        defaultHeartbeatInterval,
			HeartbeatTimeout:         defaultHeartbeatTimeout,
			StageRetries:             defaultStageRetries,
			RetryBackoffSeconds:      defaultRetryBackoffSeconds,
			RetryBackoffMaxSeconds:   defaultRetryBackoffMaxSecs,
			TranscribeTimeoutSeconds: defaultTranscribeTimeout,
			SummarizeTimeoutSeconds:  defaultSummarizeTimeout,
			ImageTimeoutSeconds:      defaultImageTimeout,
			VideoTimeoutSeconds:      defaultVideoTimeout,
			TitleTimeoutSeconds:      defaultTitleTimeout,
		},
		Upload: Upload{
			MaxUploadMB:       defaultMaxUploadMB,
			AllowedExtensions: defaultAllowedExtensions(),
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
