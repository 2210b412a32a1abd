package main

import (
	"log/slog"
	"time"

	"poddigest/internal/analyzer"
	"poddigest/internal/assembler"
	"poddigest/internal/config"
	"poddigest/internal/deliverer"
	"poddigest/internal/feedingest"
	"poddigest/internal/llmclient"
	"poddigest/internal/narrator"
	"poddigest/internal/objectstore"
	"poddigest/internal/orchestrator"
	"poddigest/internal/repository"
	"poddigest/internal/transcriber"
)

// buildStages wires each of the six pipeline stage handlers against the
// shared repository and the provider clients their config sections name.
func buildStages(cfg *config.Config, repo *repository.Store, logger *slog.Logger) (orchestrator.StageSet, error) {
	objects, err := objectstore.NewSupabaseGateway(cfg)
	if err != nil {
		return orchestrator.StageSet{}, err
	}

	llm := llmclient.NewClient(llmclient.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		Referer:        cfg.LLM.Referer,
		Title:          cfg.LLM.Title,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})

	transcribeClient := transcriber.NewClient(transcriber.Config{
		APIKey:         cfg.Transcriber.APIKey,
		BaseURL:        cfg.Transcriber.BaseURL,
		TimeoutSeconds: cfg.Transcriber.TimeoutSeconds,
	})

	tts := narrator.NewTTSClient(narrator.Config{
		APIKey:         cfg.TTS.APIKey,
		BaseURL:        cfg.TTS.BaseURL,
		TimeoutSeconds: cfg.TTS.TimeoutSeconds,
	})

	notifier := deliverer.NewNotifier(cfg.Notifications.NtfyTopic, time.Duration(cfg.Notifications.RequestTimeout)*time.Second)

	batchDelay := time.Duration(cfg.Workflow.AnalyzerBatchDelayMillis) * time.Millisecond

	return orchestrator.StageSet{
		Crawl:      feedingest.New(repo, logger),
		Transcribe: transcriber.New(repo, transcribeClient, logger),
		Analyze:    analyzer.New(repo, llm, logger, cfg.Workflow.AnalyzerConcurrency, batchDelay),
		Narrate:    narrator.New(repo, llm, tts, objects, logger),
		Assemble: assembler.New(repo, objects, assembler.Config{
			ScratchDir:      cfg.Paths.ScratchDir,
			LogDir:          cfg.Paths.LogDir,
			FFmpegBinary:    cfg.Assembler.FFmpegBinary,
			FFprobeBinary:   cfg.Assembler.FFprobeBinary,
			OutputBitrate:   cfg.Assembler.OutputBitrate,
			DownloadTimeout: 5 * time.Minute,
		}, logger),
		Deliver: deliverer.New(repo, objects, notifier, logger),
	}, nil
}
