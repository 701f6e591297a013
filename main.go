package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	gemini "github.com/amikos-tech/chroma-go/pkg/embeddings/gemini"
	openai "github.com/amikos-tech/chroma-go/pkg/embeddings/openai"
	"github.com/huseyinardaarslan/LawRagBot/docstore"
	"github.com/huseyinardaarslan/LawRagBot/extract"
	"github.com/huseyinardaarslan/LawRagBot/llm"
	"github.com/huseyinardaarslan/LawRagBot/readers"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
)

func createEmbeddingFunction(cfg *Config) (embeddings.EmbeddingFunction, error) {
	if cfg.OpenAI != nil {
		ef, err := openai.NewOpenAIEmbeddingFunction(
			cfg.OpenAI.ApiKey,
			openai.WithModel(openai.EmbeddingModel(cfg.OpenAI.Model)))
		if err != nil {
			return nil, fmt.Errorf("failed to create OpenAI embedding function: %w", err)
		}

		return ef, nil
	}

	if cfg.Gemini != nil {
		ef, err := gemini.NewGeminiEmbeddingFunction(
			gemini.WithAPIKey(cfg.Gemini.ApiKey),
			gemini.WithDefaultModel(embeddings.EmbeddingModel(cfg.Gemini.Model)))
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini embedding function: %w", err)
		}

		return ef, nil
	}

	return nil, errors.New("invalid embeddings provider configuration")
}

func initDocStore(cfg *Config, log *slog.Logger, reset bool) (*docstore.ChromaStore, error) {
	ef, err := createEmbeddingFunction(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding function: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := docstore.NewChromaStore(ctx, log, docstore.ChromaStoreConfig{
		BaseURL:       cfg.ChromaAddr,
		Collection:    cfg.Collection,
		EmbeddingFunc: ef,
		BatchSize:     cfg.BatchSize,
		Reset:         reset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Chroma doc store: %w", err)
	}

	return store, nil
}

func initCompleter(cfg *Config) (llm.Completer, error) {
	if cfg.Gemini == nil {
		return nil, errors.New("gemini configuration is required for query answering")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return llm.NewGeminiClient(ctx, cfg.Gemini.ApiKey, cfg.Gemini.Model)
}

func openLogWriter(cfg *Config) (io.WriteCloser, error) {
	if cfg.LogFile == "" {
		return os.Stderr, nil
	}

	return os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
}

func main() {
	reindex := flag.Bool("reindex", false, "Rebuild the index from the documents directory and exit")
	query := flag.String("query", "", "Answer a single query and exit")
	cfgPath := flag.String("config", "cfg/config.yaml", "Configuration file")
	flag.Parse()

	// Missing .env is fine, keys may come from the real environment.
	_ = godotenv.Load()

	cfg, err := readConfig(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}

	logWriter, err := openLogWriter(cfg)
	if err != nil {
		log.Fatalf("failed to open log file: %s", err)
	}
	defer logWriter.Close()

	logger := slog.New(slog.NewJSONHandler(logWriter, nil))

	store, err := initDocStore(cfg, logger, *reindex)
	if err != nil {
		log.Fatal(err)
	}

	corpus := &Corpus{
		log:              logger,
		root:             cfg.DocRoot,
		store:            store,
		extractor:        extract.NewExtractor(logger, cfg.ChunkSize, cfg.ChunkOverlap),
		mergeEventsDelay: time.Duration(cfg.MergeEventsMs) * time.Millisecond,
		readers: []pagedReader{
			&readers.PdfFileReader{},
			&readers.TxtFileReader{},
			&readers.UniversalFileReader{},
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *reindex {
		if _, err := corpus.Reingest(ctx); err != nil {
			log.Fatal(err)
		}
		return
	}

	completer, err := initCompleter(cfg)
	if err != nil {
		log.Fatal(err)
	}

	composer := NewComposer(logger, completer, cfg)
	orchestrator := NewOrchestrator(logger, store, completer, composer, cfg)

	if *query != "" {
		fmt.Println(orchestrator.Answer(ctx, *query))
		return
	}

	go func() {
		if err := corpus.Watch(ctx); err != nil {
			log.Fatal(err)
		}
	}()

	srv := NewRagServer(orchestrator, corpus)
	sse := server.NewSSEServer(srv, server.WithBaseURL(fmt.Sprintf("http://%s", cfg.ServerAddr)))
	log.Println(sse.Start(cfg.ServerAddr))
}
