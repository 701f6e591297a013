package docstore

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	chroma "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	"github.com/huseyinardaarslan/LawRagBot/extract"
)

// Metadata keys stored with each vector. Optional fields are omitted
// from the payload entirely when absent, never stored as empty values.
const (
	SourceFile      = "source_file"
	PageNumber      = "page_number"
	ChunkIndex      = "chunk_index"
	StartChar       = "start_char"
	EndChar         = "end_char"
	DecisionDate    = "decision_date"
	PetitionType    = "petition_type"
	DecisionOutcome = "decision_outcome"
)

const defaultBatchSize = 50

// ChromaStore owns the lifecycle of the similarity index: full-replace
// rebuilds, batched upserts and thresholded search. A RWMutex keeps
// searches from observing a half-built index while a rebuild runs.
type ChromaStore struct {
	log        *slog.Logger
	client     chroma.Client
	col        chroma.Collection
	collection string
	ef         embeddings.EmbeddingFunction
	batchSize  int
	mu         sync.RWMutex
}

type ChromaStoreConfig struct {
	BaseURL       string
	Collection    string
	EmbeddingFunc embeddings.EmbeddingFunction
	BatchSize     int
	Reset         bool
}

func NewChromaStore(ctx context.Context, log *slog.Logger, cfg ChromaStoreConfig) (*ChromaStore, error) {
	client, err := chroma.NewHTTPClient(chroma.WithBaseURL(cfg.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create Chroma client: %w", err)
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	s := &ChromaStore{
		log:        log,
		client:     client,
		collection: cfg.Collection,
		ef:         cfg.EmbeddingFunc,
		batchSize:  batchSize,
	}

	if cfg.Reset {
		s.dropCollection(ctx)
	}

	col, err := s.createCollection(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open collection %s: %w", cfg.Collection, err)
	}
	s.col = col

	return s, nil
}

func (s *ChromaStore) createCollection(ctx context.Context) (chroma.Collection, error) {
	return s.client.GetOrCreateCollection(ctx, s.collection,
		chroma.WithEmbeddingFunctionCreate(s.ef),
		chroma.WithCollectionMetadataCreate(
			chroma.NewMetadata(chroma.NewStringAttribute("hnsw:space", "cosine")),
		),
	)
}

func (s *ChromaStore) dropCollection(ctx context.Context) {
	if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
		// Deleting a collection that does not exist yet is fine; real
		// connectivity failures resurface on the create that follows.
		s.log.Warn("failed to delete collection", "collection", s.collection, "error", err)
	}
}

// Reindex destroys the index and stores the chunks under one exclusive
// lock, so concurrent searches block until the new content is fully
// committed.
func (s *ChromaStore) Reindex(ctx context.Context, chunks []extract.Chunk) (UpsertStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.rebuildLocked(ctx); err != nil {
		return UpsertStats{}, err
	}

	return s.upsertLocked(ctx, chunks)
}

// Rebuild recreates the underlying collection from scratch, discarding
// any existing content. This is always a full replace.
func (s *ChromaStore) Rebuild(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.rebuildLocked(ctx)
}

// Upsert embeds and stores the chunks in batches of batchSize. A failed
// batch is reported in the stats and does not invalidate batches that
// were already committed.
func (s *ChromaStore) Upsert(ctx context.Context, chunks []extract.Chunk) (UpsertStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.upsertLocked(ctx, chunks)
}

func (s *ChromaStore) rebuildLocked(ctx context.Context) error {
	s.dropCollection(ctx)

	col, err := s.createCollection(ctx)
	if err != nil {
		return fmt.Errorf("failed to recreate collection %s: %w", s.collection, err)
	}
	s.col = col

	return nil
}

func (s *ChromaStore) upsertLocked(ctx context.Context, chunks []extract.Chunk) (UpsertStats, error) {
	var stats UpsertStats
	for _, batch := range splitBatches(chunks, s.batchSize) {
		stats.Batches++
		if err := s.addBatch(ctx, batch); err != nil {
			s.log.Error("failed to store batch", "size", len(batch), "error", err)
			stats.Failed += len(batch)
			stats.FailedBatches++
			continue
		}

		stats.Stored += len(batch)
	}

	s.log.Info("chunks stored",
		"collection", s.collection,
		"stored", stats.Stored,
		"failed", stats.Failed,
		"batches", stats.Batches)

	return stats, nil
}

func (s *ChromaStore) addBatch(ctx context.Context, batch []extract.Chunk) error {
	ids := make([]chroma.DocumentID, 0, len(batch))
	texts := make([]string, 0, len(batch))
	metadatas := make([]chroma.DocumentMetadata, 0, len(batch))
	for _, c := range batch {
		ids = append(ids, chroma.DocumentID(c.ID))
		texts = append(texts, c.Text)
		metadatas = append(metadatas, documentMetadata(c))
	}

	return s.col.Add(ctx,
		chroma.WithIDs(ids...),
		chroma.WithTexts(texts...),
		chroma.WithMetadatas(metadatas...),
	)
}

// Search embeds the query once, retrieves the topK nearest vectors and
// keeps those scoring at or above threshold. An empty result is not an
// error.
func (s *ChromaStore) Search(ctx context.Context, query string, topK int, threshold float32) ([]SearchHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, err := s.col.Query(ctx,
		chroma.WithQueryTexts(query),
		chroma.WithNResults(topK),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}

	docGroups := r.GetDocumentsGroups()
	if len(docGroups) == 0 || len(docGroups[0]) == 0 {
		return nil, nil
	}

	texts := make([]string, len(docGroups[0]))
	for i, doc := range docGroups[0] {
		texts[i] = doc.ContentString()
	}

	var ids []string
	if idGroups := r.GetIDGroups(); len(idGroups) > 0 {
		for _, id := range idGroups[0] {
			ids = append(ids, string(id))
		}
	}

	var metas chroma.DocumentMetadatas
	if metaGroups := r.GetMetadatasGroups(); len(metaGroups) > 0 {
		metas = metaGroups[0]
	}

	var dists embeddings.Distances
	if distGroups := r.GetDistancesGroups(); len(distGroups) > 0 {
		dists = distGroups[0]
	}

	return buildHits(ids, texts, metas, dists, threshold), nil
}

func documentMetadata(c extract.Chunk) chroma.DocumentMetadata {
	attrs := []*chroma.MetaAttribute{
		chroma.NewStringAttribute(SourceFile, c.SourceFile),
		chroma.NewFloatAttribute(PageNumber, c.PageNumber),
		chroma.NewIntAttribute(ChunkIndex, int64(c.ChunkIndex)),
		chroma.NewIntAttribute(StartChar, int64(c.StartChar)),
		chroma.NewIntAttribute(EndChar, int64(c.EndChar)),
	}

	if c.DecisionDate != "" {
		attrs = append(attrs, chroma.NewStringAttribute(DecisionDate, c.DecisionDate))
	}
	if c.PetitionType != "" {
		attrs = append(attrs, chroma.NewStringAttribute(PetitionType, c.PetitionType))
	}
	if c.DecisionOutcome != "" {
		attrs = append(attrs, chroma.NewStringAttribute(DecisionOutcome, c.DecisionOutcome))
	}

	return chroma.NewDocumentMetadata(attrs...)
}

// buildHits converts raw query output to SearchHits, mapping cosine
// distance to similarity, applying the inclusive score threshold and
// ordering by descending score.
func buildHits(ids, texts []string, metas chroma.DocumentMetadatas, dists embeddings.Distances, threshold float32) []SearchHit {
	hits := make([]SearchHit, 0, len(texts))
	for i := range texts {
		if i >= len(dists) {
			break
		}

		score := 1 - float32(dists[i])
		if score < threshold {
			continue
		}

		hit := SearchHit{Score: score, Text: texts[i]}
		if i < len(ids) {
			hit.ID = ids[i]
		}
		if i < len(metas) && metas[i] != nil {
			meta := metas[i]
			hit.SourceFile, _ = meta.GetString(SourceFile)
			hit.PageNumber, _ = meta.GetFloat(PageNumber)
			hit.DecisionDate, _ = meta.GetString(DecisionDate)
			hit.PetitionType, _ = meta.GetString(PetitionType)
			hit.DecisionOutcome, _ = meta.GetString(DecisionOutcome)
		}

		hits = append(hits, hit)
	}

	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Score > hits[b].Score })

	return hits
}

func splitBatches(chunks []extract.Chunk, size int) [][]extract.Chunk {
	if size <= 0 {
		size = defaultBatchSize
	}

	var batches [][]extract.Chunk
	for start := 0; start < len(chunks); start += size {
		batches = append(batches, chunks[start:min(start+size, len(chunks))])
	}

	return batches
}
