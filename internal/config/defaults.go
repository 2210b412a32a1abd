package config

const (
	defaultScratchDir                = "~/.local/share/poddigest/scratch"
	defaultLogDir                    = "~/.local/share/poddigest/logs"
	defaultDatabasePath              = "~/.local/share/poddigest/poddigest.db"
	defaultObjectStoreBucket         = "poddigest"
	defaultObjectStoreTimeoutSeconds = 30
	defaultLLMBaseURL                = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel                  = "google/gemini-3-flash-preview"
	defaultLLMReferer                = "https://github.com/poddigest/poddigest"
	defaultLLMTitle                  = "PodDigest Analyzer"
	defaultLLMTimeoutSeconds         = 60
	defaultTTSTimeoutSeconds         = 60
	defaultTranscriberTimeoutSeconds = 120
	defaultFFmpegBinary              = "ffmpeg"
	defaultFFprobeBinary             = "ffprobe"
	defaultOutputBitrate             = "160k"
	defaultNotifyRequestTimeout      = 10
	defaultLogFormat                 = "console"
	defaultLogLevel                  = "info"
	defaultQueuePollIntervalSeconds  = 5
	defaultErrorRetryIntervalSeconds = 15
	defaultCronIntervalSeconds       = 3600
	defaultMaxAttempts               = 5
	defaultBackoffBaseSeconds        = 2
	defaultBackoffMaxSeconds         = 300
	defaultAnalyzerConcurrency       = 5
	defaultAnalyzerBatchDelayMillis  = 200
	defaultStageWorkers              = 2
	defaultLeaseDurationSeconds      = 600
	defaultScratchMaxAgeMinutes      = 180
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ScratchDir: defaultScratchDir,
			LogDir:     defaultLogDir,
		},
		ObjectStore: ObjectStore{
			Bucket:                defaultObjectStoreBucket,
			RequestTimeoutSeconds: defaultObjectStoreTimeoutSeconds,
		},
		Database: Database{
			Path: defaultDatabasePath,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		TTS: TTS{
			TimeoutSeconds: defaultTTSTimeoutSeconds,
		},
		Transcriber: Transcriber{
			TimeoutSeconds: defaultTranscriberTimeoutSeconds,
		},
		Assembler: Assembler{
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
			OutputBitrate: defaultOutputBitrate,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		Workflow: Workflow{
			QueuePollIntervalSeconds:  defaultQueuePollIntervalSeconds,
			ErrorRetryIntervalSeconds: defaultErrorRetryIntervalSeconds,
			CronIntervalSeconds:       defaultCronIntervalSeconds,
			MaxAttempts:               defaultMaxAttempts,
			BackoffBaseSeconds:        defaultBackoffBaseSeconds,
			BackoffMaxSeconds:         defaultBackoffMaxSeconds,
			AnalyzerConcurrency:       defaultAnalyzerConcurrency,
			AnalyzerBatchDelayMillis:  defaultAnalyzerBatchDelayMillis,
			StageWorkers:              defaultStageWorkers,
			LeaseDurationSeconds:      defaultLeaseDurationSeconds,
			ScratchMaxAgeMinutes:      defaultScratchMaxAgeMinutes,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
