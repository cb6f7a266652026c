// Command sercha-rag answers questions grounded in uploaded documents.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/tokenizer"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/vector/ivf"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/cli"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/services"
	"github.com/custodia-labs/sercha-rag/internal/logger"
	"github.com/custodia-labs/sercha-rag/internal/normalisers"
	"github.com/custodia-labs/sercha-rag/internal/postprocessors"
)

// version is set with -ldflags "-X main.version=...".
var version = "dev"

// calibrationQueries is the number of stored vectors used to tune IVF probes.
const calibrationQueries = 32

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetVersion(version)
	cli.SetBootstrap(bootstrap)

	err := cli.Execute(ctx)
	if closeErr := cli.Close(); closeErr != nil {
		logger.Warn("closing services: %v", closeErr)
	}
	if err != nil {
		os.Exit(1)
	}
}

// bootstrap wires the driven adapters into the core services.
func bootstrap(ctx context.Context, opts cli.Options) (*cli.Services, error) {
	configStore, err := file.NewConfigStore(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("config store: %w", err)
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	modelRegistry := services.NewModelRegistryFromSettings(*settings)

	if opts.SettingsOnly {
		return &cli.Services{Settings: settingsService, Models: modelRegistry}, nil
	}

	store, err := sqlite.NewStore(opts.DataDir)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: %w", err)
	}
	aiResult, err := ai.Init(ctx, *settings)
	if err != nil {
		store.Close()
		return nil, err
	}
	closeAll := func() error {
		aiResult.Close()
		return store.Close()
	}

	chunker, err := postprocessors.NewChunker(settings.RAG)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("chunker: %w", err)
	}

	prompts, err := file.NewPromptStore(filepath.Join(opts.ConfigDir, "prompts"))
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("prompt store: %w", err)
	}

	var tokens driven.TokenCounter
	if settings.RAG.MaxPromptTokens > 0 {
		counter, err := tokenizer.New(tokenizer.DefaultEncoding)
		if err != nil {
			logger.Warn("token budget disabled: %v", err)
		} else {
			tokens = counter
		}
	}

	docStore := store.DocumentStore()
	conversationStore := store.ConversationStore()

	documentService := services.NewDocumentService(
		chunker,
		normalisers.NewDefaultRegistry(),
		aiResult.EmbeddingService,
		aiResult.VectorIndex,
		docStore,
		settings.Ingest,
	)
	retrievalService := services.NewRetrievalService(aiResult.EmbeddingService, aiResult.VectorIndex, docStore)
	askService := services.NewAskService(
		services.AskConfig{
			TopK:        settings.RAG.TopK,
			MinScore:    settings.RAG.MinScore,
			Temperature: settings.LLM.Temperature,
			MaxTokens:   settings.LLM.MaxTokens,
		},
		modelRegistry,
		aiResult.Models,
		conversationStore,
		retrievalService,
		services.NewGroundingAssembler(services.GroundingConfigFrom(settings.RAG), prompts, tokens),
		services.NewAnswerStreamer(conversationStore, settings.Answer.EmitMeta),
	)

	if !settings.VectorIndex.Backend.IsPersistent() {
		if _, err := documentService.Hydrate(ctx); err != nil {
			closeAll()
			return nil, err
		}
		if index, ok := aiResult.VectorIndex.(*ivf.Index); ok {
			calibrate(ctx, index, docStore, settings.RAG.TopK)
		}
	}

	return &cli.Services{
		Ask:           askService,
		Retrieval:     retrievalService,
		Documents:     documentService,
		Conversations: services.NewConversationService(conversationStore),
		Models:        modelRegistry,
		Settings:      settingsService,
		Close:         closeAll,
	}, nil
}

// errEnoughSamples stops the chunk scan once enough queries are collected.
var errEnoughSamples = errors.New("enough samples")

// calibrate tunes the IVF probe count using stored vectors as sample queries.
func calibrate(ctx context.Context, index *ivf.Index, docStore driven.DocumentStore, k int) {
	if index.Len() == 0 {
		return
	}
	queries := make([][]float32, 0, calibrationQueries)
	err := docStore.EachChunk(ctx, func(_ *domain.Document, chunk *domain.Chunk) error {
		if len(chunk.Embedding) > 0 {
			queries = append(queries, chunk.Embedding)
		}
		if len(queries) >= calibrationQueries {
			return errEnoughSamples
		}
		return nil
	})
	if err != nil && !errors.Is(err, errEnoughSamples) {
		logger.Warn("IVF calibration skipped: %v", err)
		return
	}

	recall, err := index.Calibrate(ctx, queries, k)
	if err != nil {
		logger.Warn("IVF calibration failed: %v", err)
		return
	}
	logger.Debug("IVF recall@%d %.3f with %d probes", k, recall, index.Probes())
}
