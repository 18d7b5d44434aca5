package rag

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

func init() {
	// Load .env for Milvus configuration
	_ = godotenv.Load("../../../.env")
}

// Common errors for Milvus operations
var (
	ErrInvalidDimension = errors.New("invalid vector dimension")
	ErrEmptyRecords     = errors.New("no records provided for upsert")
	ErrConnectionFailed = errors.New("failed to connect to Milvus")
	ErrUpsertFailed     = errors.New("failed to upsert records")
	ErrSearchFailed     = errors.New("failed to search vectors")
	ErrModelMismatch    = errors.New("embedding model mismatch")
)

// MilvusConfig holds configuration for Milvus connection and collection
type MilvusConfig struct {
	Address        string // Milvus server address (e.g., "localhost:19530")
	CollectionName string // Name of the collection
	Dimension      int    // Vector dimension (e.g., 1536 for text-embedding-3-small)
	EmbeddingModel string // Embedding model every stored record must carry
	IndexType      string // Index type (default: "HNSW")
	MetricType     string // Similarity metric (default: "COSINE")

	// HNSW index parameters
	M              int // HNSW M parameter (default: 16)
	EfConstruction int // HNSW efConstruction (default: 256)
	SearchEf       int // HNSW ef at query time (default: 64)
}

// DefaultMilvusConfig returns default configuration from environment variables
func DefaultMilvusConfig() MilvusConfig {
	address := os.Getenv("MILVUS_ADDRESS")
	if address == "" {
		address = "localhost:19530"
	}

	collection := os.Getenv("MILVUS_COLLECTION")
	if collection == "" {
		collection = "lore_chunks"
	}

	return MilvusConfig{
		Address:        address,
		CollectionName: collection,
		Dimension:      1536, // Default for text-embedding-3-small
		EmbeddingModel: "text-embedding-3-small",
		IndexType:      "HNSW",
		MetricType:     "COSINE",
		M:              16,
		EfConstruction: 256,
		SearchEf:       64,
	}
}

// MilvusIndex implements the VectorIndex interface using Milvus
type MilvusIndex struct {
	client client.Client
	config MilvusConfig
}

// NewMilvusIndex creates a new Milvus-backed vector index.
// Connects to Milvus and ensures the collection exists with proper schema.
func NewMilvusIndex(ctx context.Context, config MilvusConfig) (*MilvusIndex, error) {
	if config.Dimension <= 0 {
		return nil, ErrInvalidDimension
	}
	if config.EmbeddingModel == "" {
		return nil, fmt.Errorf("%w: embedding model must be configured", ErrModelMismatch)
	}
	if config.SearchEf <= 0 {
		config.SearchEf = 64
	}

	c, err := client.NewGrpcClient(ctx, config.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	index := &MilvusIndex{
		client: c,
		config: config,
	}

	// Create collection if it doesn't exist
	if err := index.ensureCollection(ctx); err != nil {
		c.Close()
		return nil, err
	}

	return index, nil
}

// ensureCollection creates the collection with schema if it doesn't exist
func (m *MilvusIndex) ensureCollection(ctx context.Context) error {
	has, err := m.client.HasCollection(ctx, m.config.CollectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}

	if has {
		return nil // Collection already exists
	}

	// Chunk IDs are content-derived, so the primary key is supplied by the
	// caller rather than auto-generated. Upserts with the same ID replace
	// the stored record.
	schema := &entity.Schema{
		CollectionName: m.config.CollectionName,
		AutoID:         false,
		Fields: []*entity.Field{
			{
				Name:       "chunk_id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "document_id",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "text",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "65535",
				},
			},
			{
				Name:     "embedding",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", m.config.Dimension),
				},
			},
			{
				Name:     "model",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "128",
				},
			},
			{
				Name:     "sequence",
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:     "source_url",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "1024",
				},
			},
			{
				Name:     "source_title",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "512",
				},
			},
		},
	}

	if err := m.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	// Create HNSW index on embedding field
	idx, err := entity.NewIndexHNSW(entity.COSINE, m.config.M, m.config.EfConstruction)
	if err != nil {
		return fmt.Errorf("failed to create index config: %w", err)
	}

	if err := m.client.CreateIndex(ctx, m.config.CollectionName, "embedding", idx, false); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	// Load collection into memory
	if err := m.client.LoadCollection(ctx, m.config.CollectionName, false); err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	return nil
}

// Upsert writes chunk records, replacing records with the same chunk ID
func (m *MilvusIndex) Upsert(ctx context.Context, records []ChunkRecord) error {
	if len(records) == 0 {
		return ErrEmptyRecords
	}

	chunkIDs := make([]string, len(records))
	documentIDs := make([]string, len(records))
	texts := make([]string, len(records))
	embeddings := make([][]float32, len(records))
	models := make([]string, len(records))
	sequences := make([]int64, len(records))
	sourceURLs := make([]string, len(records))
	sourceTitles := make([]string, len(records))

	for i, record := range records {
		if len(record.Embedding) != m.config.Dimension {
			return fmt.Errorf("%w: expected %d, got %d for chunk %s",
				ErrInvalidDimension, m.config.Dimension, len(record.Embedding), record.ChunkID)
		}
		if record.Model != m.config.EmbeddingModel {
			return fmt.Errorf("%w: index expects %q, record %s carries %q",
				ErrModelMismatch, m.config.EmbeddingModel, record.ChunkID, record.Model)
		}

		chunkIDs[i] = record.ChunkID
		documentIDs[i] = record.DocumentID
		texts[i] = record.Text
		embeddings[i] = record.Embedding
		models[i] = record.Model
		sequences[i] = int64(record.SequenceIndex)
		sourceURLs[i] = record.SourceURL
		sourceTitles[i] = record.SourceTitle
	}

	columns := []entity.Column{
		entity.NewColumnVarChar("chunk_id", chunkIDs),
		entity.NewColumnVarChar("document_id", documentIDs),
		entity.NewColumnVarChar("text", texts),
		entity.NewColumnFloatVector("embedding", m.config.Dimension, embeddings),
		entity.NewColumnVarChar("model", models),
		entity.NewColumnInt64("sequence", sequences),
		entity.NewColumnVarChar("source_url", sourceURLs),
		entity.NewColumnVarChar("source_title", sourceTitles),
	}

	if _, err := m.client.Upsert(ctx, m.config.CollectionName, "", columns...); err != nil {
		return fmt.Errorf("%w: %v", ErrUpsertFailed, err)
	}

	return nil
}

// Search performs top-K similarity search with optional filtering
func (m *MilvusIndex) Search(ctx context.Context, queryVector []float32, topK int, opts *SearchOptions) ([]RetrievedPassage, error) {
	if len(queryVector) != m.config.Dimension {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrInvalidDimension, m.config.Dimension, len(queryVector))
	}

	expr := ""
	if opts != nil && len(opts.DocumentIDs) > 0 {
		expr = buildInExpr("document_id", opts.DocumentIDs)
	}

	sp, err := entity.NewIndexHNSWSearchParam(m.config.SearchEf)
	if err != nil {
		return nil, fmt.Errorf("failed to create search params: %w", err)
	}

	vectors := []entity.Vector{entity.FloatVector(queryVector)}
	outputFields := []string{"document_id", "text", "source_url", "source_title"}

	results, err := m.client.Search(
		ctx,
		m.config.CollectionName,
		nil, // partition names
		expr,
		outputFields,
		vectors,
		"embedding",
		entity.COSINE,
		topK,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}

	if len(results) == 0 {
		return []RetrievedPassage{}, nil
	}

	passages := make([]RetrievedPassage, 0, results[0].ResultCount)

	for i := 0; i < results[0].ResultCount; i++ {
		passage := RetrievedPassage{
			Score: results[0].Scores[i],
		}

		if idCol, ok := results[0].IDs.(*entity.ColumnVarChar); ok {
			passage.ChunkID = idCol.Data()[i]
		}

		for _, field := range results[0].Fields {
			switch field.Name() {
			case "document_id":
				passage.DocumentID = field.(*entity.ColumnVarChar).Data()[i]
			case "text":
				passage.Text = field.(*entity.ColumnVarChar).Data()[i]
			case "source_url":
				passage.SourceURL = field.(*entity.ColumnVarChar).Data()[i]
			case "source_title":
				passage.SourceTitle = field.(*entity.ColumnVarChar).Data()[i]
			}
		}

		passages = append(passages, passage)
	}

	return passages, nil
}

// Exists checks which chunk IDs are present in the index
func (m *MilvusIndex) Exists(ctx context.Context, chunkIDs []string) (map[string]bool, error) {
	if len(chunkIDs) == 0 {
		return map[string]bool{}, nil
	}

	results, err := m.client.Query(
		ctx,
		m.config.CollectionName,
		nil, // partition names
		buildInExpr("chunk_id", chunkIDs),
		[]string{"chunk_id"},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}

	existenceMap := make(map[string]bool, len(chunkIDs))
	for _, id := range chunkIDs {
		existenceMap[id] = false
	}

	for _, column := range results {
		if column.Name() == "chunk_id" {
			if varcharCol, ok := column.(*entity.ColumnVarChar); ok {
				for _, id := range varcharCol.Data() {
					existenceMap[id] = true
				}
			}
		}
	}

	return existenceMap, nil
}

// Delete removes records by chunk IDs
func (m *MilvusIndex) Delete(ctx context.Context, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}

	if err := m.client.Delete(ctx, m.config.CollectionName, "", buildInExpr("chunk_id", chunkIDs)); err != nil {
		return fmt.Errorf("failed to delete records: %w", err)
	}

	return nil
}

// Flush ensures all pending data is persisted
func (m *MilvusIndex) Flush(ctx context.Context) error {
	if err := m.client.Flush(ctx, m.config.CollectionName, false); err != nil {
		return fmt.Errorf("failed to flush data: %w", err)
	}
	return nil
}

// GetStats returns collection statistics
func (m *MilvusIndex) GetStats(ctx context.Context) (IndexStats, error) {
	stats, err := m.client.GetCollectionStatistics(ctx, m.config.CollectionName)
	if err != nil {
		return IndexStats{}, fmt.Errorf("failed to get stats: %w", err)
	}

	rowCount, _ := strconv.ParseInt(stats["row_count"], 10, 64)

	return IndexStats{
		Collection: m.config.CollectionName,
		RowCount:   rowCount,
		Dimension:  m.config.Dimension,
		Model:      m.config.EmbeddingModel,
	}, nil
}

// GetEmbeddingModel returns the embedding model the index expects
func (m *MilvusIndex) GetEmbeddingModel() string {
	return m.config.EmbeddingModel
}

// Close releases resources and closes the Milvus connection
func (m *MilvusIndex) Close() error {
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}

// buildInExpr renders a Milvus boolean expression matching any of the values.
func buildInExpr(field string, values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = strconv.Quote(v)
	}
	return fmt.Sprintf("%s in [%s]", field, strings.Join(quoted, ", "))
}
