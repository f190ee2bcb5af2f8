package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"multimodalRAG/config"
	"multimodalRAG/core"
	"multimodalRAG/processors"
	"multimodalRAG/storage"
	"multimodalRAG/utils"
)

// app 一次命令运行所需的全部组件
type app struct {
	cfg      *config.Config
	backends *storage.Backends
	registry *storage.Registry
	videos   *processors.VideoIngestor
	docs     *processors.DocumentIngestor
	engine   *processors.FusionEngine
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.HasValidAPI() {
		config.PrintConfigInstructions()
		return nil, errors.New("API configuration missing")
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	retry := core.DefaultRetryPolicy()
	if cfg.MaxRetries > 0 {
		retry.MaxAttempts = cfg.MaxRetries
	}
	cli := core.NewOpenAIClient(cfg.APIKey, cfg.BaseURL, cfg.RequestsPerSecond, retry)

	backends := storage.OpenBackends(ctx, cfg, cli)
	registry := backends.Registry()
	log.Printf("Vector store initialized: %s, content store: %s", cfg.Store, cfg.ContentStore)

	chunker, err := processors.NewChunker(processors.ChunkMode(cfg.ChunkMode), cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		backends.Close()
		return nil, err
	}

	gpuType := utils.ResolveGPUType(cfg.GPUAcceleration, cfg.GPUType)
	if cfg.GPUAcceleration {
		log.Printf("GPU acceleration enabled: %s", gpuType)
	} else {
		log.Printf("GPU acceleration disabled")
	}

	var transcriber core.Transcriber
	switch cfg.ASRProvider {
	case "local":
		transcriber = processors.LocalWhisperASR{Python: cfg.PythonBin}
	default:
		transcriber = processors.NewWhisperAPIASR(cli, cfg.TranscriptionModel)
	}
	summarizer := processors.NewOpenAISummarizer(cli, cfg.ChatModel, cfg.VisionModel)
	workDir := filepath.Join(cfg.DataDir, "jobs")
	sampler := &processors.FFmpegSampler{WorkDir: workDir, GPUType: gpuType}

	return &app{
		cfg:      cfg,
		backends: backends,
		registry: registry,
		videos: &processors.VideoIngestor{
			Sampler:     sampler,
			Audio:       sampler,
			Transcriber: transcriber,
			Describer:   summarizer,
			Registry:    registry,
			TargetFPS:   cfg.FrameFPS,
			Threshold:   cfg.SceneThreshold,
			WorkDir:     workDir,
		},
		docs: &processors.DocumentIngestor{
			Extractor:  processors.UnstructuredExtractor{Python: cfg.PythonBin},
			Summarizer: summarizer,
			Chunker:    chunker,
			Registry:   registry,
			WorkDir:    filepath.Join(cfg.DataDir, "documents"),
		},
		engine: &processors.FusionEngine{
			Registry:  registry,
			Generator: processors.NewOpenAIGenerator(cli, cfg.VisionModel),
			DocTopK:   cfg.DocTopK,
			VideoTopK: cfg.VideoTopK,
		},
	}, nil
}

func (a *app) Close() {
	a.backends.Close()
}
