// Command filingqa answers questions about SEC IPO filings.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/hedgeintel/filingqa/internal/adapters/driven/ai"
	"github.com/hedgeintel/filingqa/internal/adapters/driven/config/file"
	"github.com/hedgeintel/filingqa/internal/adapters/driven/storage/bolt"
	"github.com/hedgeintel/filingqa/internal/adapters/driven/storage/memory"
	"github.com/hedgeintel/filingqa/internal/adapters/driven/storage/sqlite"
	"github.com/hedgeintel/filingqa/internal/adapters/driving/cli"
	"github.com/hedgeintel/filingqa/internal/connectors/edgar"
	"github.com/hedgeintel/filingqa/internal/core/domain"
	"github.com/hedgeintel/filingqa/internal/core/ports/driven"
	"github.com/hedgeintel/filingqa/internal/core/services"
	"github.com/hedgeintel/filingqa/internal/logger"
	"github.com/hedgeintel/filingqa/internal/normalisers"
	"github.com/hedgeintel/filingqa/internal/normalisers/html"
	"github.com/hedgeintel/filingqa/internal/normalisers/pdf"
	"github.com/hedgeintel/filingqa/internal/normalisers/plaintext"
	"github.com/hedgeintel/filingqa/internal/postprocessors/chunker"
	"github.com/hedgeintel/filingqa/internal/postprocessors/facts"
)

// configEnv overrides the config file location.
const configEnv = "FILINGQA_CONFIG"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	configPath := resolveConfigPath()

	store, err := file.NewConfigStore(filepath.Dir(configPath))
	if err != nil {
		logger.Warn("config store unavailable: %v", err)
	} else {
		cli.SetConfigStore(store)
	}

	cli.SetServiceFactory(func(context.Context) (*cli.Services, error) {
		return buildServices(configPath)
	})

	err = cli.Execute(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func resolveConfigPath() string {
	if p := os.Getenv(configEnv); p != "" {
		return file.ExpandHome(p)
	}
	dir, err := file.DefaultDir()
	if err != nil {
		return file.ConfigFileName
	}
	return filepath.Join(dir, file.ConfigFileName)
}

// buildServices resolves configuration once and wires every service.
func buildServices(configPath string) (svc *cli.Services, err error) {
	cfg, err := file.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var closers []func() error
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}
	defer func() {
		if err != nil {
			closeAll() //nolint:errcheck
		}
	}()

	registry, err := edgar.New(cfg.Registry)
	if err != nil {
		return nil, err
	}

	var (
		raw   driven.RawStore
		index driven.VectorIndex
		docs  driven.DocumentStore
	)
	switch cfg.Storage.Index {
	case domain.IndexMemory:
		mem := memory.NewIndex()
		raw, index, docs = memory.NewRawStore(), mem, mem
	default:
		rawDB, err := bolt.NewRawStore(cfg.Storage.DataDir)
		if err != nil {
			return nil, err
		}
		db, err := sqlite.NewStore(cfg.Storage.DataDir)
		if err != nil {
			rawDB.Close()
			return nil, err
		}
		raw, index, docs = rawDB, db, db
	}
	closers = append(closers, raw.Close, index.Close)
	logger.Debug("index backend: %s, data dir: %s", cfg.Storage.Index, cfg.Storage.DataDir)

	embedder, err := ai.CreateEmbeddingService(cfg.Embedding)
	if err != nil {
		return nil, err
	}
	llm, err := ai.CreateLLMService(cfg.LLM)
	if err != nil {
		return nil, err
	}

	fetch := services.NewFetchService(registry, raw, cfg.Registry)
	indexer := services.NewIndexer(embedder, index, docs, cfg.Embedding)

	ingest := services.NewIngestService(
		fetch,
		normalisers.NewRegistry(html.New(), plaintext.New(), pdf.New()),
		chunker.New(
			chunker.WithWindowSize(cfg.Chunking.WindowSize),
			chunker.WithOverlap(cfg.Chunking.Overlap),
		),
		indexer,
		cfg.Ingest,
	)
	ingest.SetFactExtractor(facts.New())

	retriever := services.NewRetrievalService(embedder, index, cfg.Embedding)
	answerer := services.NewAnswerService(retriever, llm, index, cfg.Answer, cfg.LLM)

	prompts, perr := file.NewPromptStore(filepath.Join(cfg.Storage.DataDir, "prompts"), map[string]string{
		driven.PromptAnswerSystem: services.DefaultAnswerSystemPrompt,
	})
	if perr != nil {
		logger.Warn("prompt overrides unavailable: %v", perr)
	} else {
		answerer.SetPromptStore(prompts)
	}

	svc = &cli.Services{
		Fetch:     fetch,
		Ingest:    ingest,
		Retriever: retriever,
		Answerer:  answerer,
		Documents: services.NewDocumentService(docs, indexer),
		Config:    cfg,
		Close:     closeAll,
	}

	if monitor, merr := services.NewMonitor(ingest, cfg.Monitor); merr != nil {
		logger.Debug("monitor disabled: %v", merr)
	} else {
		svc.Monitor = monitor
	}

	names := []string{
		"embedding (" + cfg.Embedding.Provider.String() + ")",
		"llm (" + cfg.LLM.Provider.String() + ")",
	}
	svc.Check = func(ctx context.Context) []cli.ProviderCheck {
		checks := ai.Validate(ctx, names, []ai.Pinger{embedder, llm})
		out := make([]cli.ProviderCheck, len(checks))
		for i, c := range checks {
			out[i] = cli.ProviderCheck{Name: c.Name, Err: c.Err}
		}
		return out
	}

	return svc, nil
}
