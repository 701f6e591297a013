package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/huseyinardaarslan/LawRagBot/docstore"
	"github.com/huseyinardaarslan/LawRagBot/extract"
)

type chunkStorer interface {
	Reindex(ctx context.Context, chunks []extract.Chunk) (docstore.UpsertStats, error)
}

type chunkExtractor interface {
	Extract(filename string, pages []extract.Page) []extract.Chunk
}

type pagedReader interface {
	CanRead(path string) bool
	ReadPages(path string) ([]extract.Page, error)
}

// Corpus walks the document root, extracts chunks from every readable
// document and replaces the index content wholesale. There is no
// incremental path: every ingestion run is a full rebuild.
type Corpus struct {
	log              *slog.Logger
	root             string
	store            chunkStorer
	extractor        chunkExtractor
	readers          []pagedReader
	mergeEventsDelay time.Duration
}

// IngestStats tallies one corpus run. Failed documents are skipped and
// counted; they never abort the run.
type IngestStats struct {
	Succeeded    int
	Failed       int
	Chunks       int
	ChunksStored int
}

// Reingest rebuilds the index from every document under the corpus
// root. Document-level failures (unreadable file, no extractable text)
// are logged and tallied; only index-level failures are fatal.
func (c *Corpus) Reingest(ctx context.Context) (IngestStats, error) {
	var stats IngestStats
	var all []extract.Chunk

	err := filepath.Walk(c.root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		reader := c.findReader(path)
		if reader == nil {
			c.log.Warn("unsupported file", "path", path)
			return nil
		}

		pages, err := reader.ReadPages(path)
		if err != nil {
			c.log.Error("failed to read document", "path", path, "error", err)
			stats.Failed++
			return nil
		}

		chunks := c.extractor.Extract(filepath.Base(path), pages)
		if len(chunks) == 0 {
			stats.Failed++
			return nil
		}

		stats.Succeeded++
		stats.Chunks += len(chunks)
		all = append(all, chunks...)

		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("failed to walk corpus root %s: %w", c.root, err)
	}

	up, err := c.store.Reindex(ctx, all)
	if err != nil {
		return stats, fmt.Errorf("failed to reindex corpus: %w", err)
	}
	stats.ChunksStored = up.Stored

	c.log.Info("corpus ingested",
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"chunks", stats.Chunks,
		"stored", stats.ChunksStored)

	return stats, nil
}

// Watch reingests the corpus whenever files under the root change,
// debouncing bursts of filesystem events into a single rebuild.
func (c *Corpus) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(c.root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", c.root, err)
	}

	timer := time.NewTimer(c.mergeEventsDelay)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				timer.Reset(c.mergeEventsDelay)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.log.Error("watcher error", "error", err)
		case <-timer.C:
			if _, err := c.Reingest(ctx); err != nil {
				c.log.Error("failed to reingest corpus", "error", err)
			}
		}
	}
}

func (c *Corpus) findReader(path string) pagedReader {
	for _, r := range c.readers {
		if r.CanRead(path) {
			return r
		}
	}

	return nil
}
