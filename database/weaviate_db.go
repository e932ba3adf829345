package database

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/tieubaoca/librarian-be/config"
	"github.com/tieubaoca/librarian-be/types"
	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

const BATCH_SIZE = 200

var (
	CHUNK_CLASS        = "Chunk"
	CHUNK_CLASS_OBJECT = &models.Class{
		Class: CHUNK_CLASS,
		Properties: []*models.Property{
			{Name: "chunkId", DataType: []string{"text"}},
			{Name: "documentId", DataType: []string{"text"}},
			{Name: "content", DataType: []string{"text"}},
			{Name: "page", DataType: []string{"int"}},
			{Name: "charStart", DataType: []string{"int"}},
			{Name: "charEnd", DataType: []string{"int"}},
			{Name: "title", DataType: []string{"text"}},
			{Name: "author", DataType: []string{"text"}},
			{Name: "totalPages", DataType: []string{"int"}},
			{Name: "tags", DataType: []string{"text[]"}},
			{Name: "createdAt", DataType: []string{"int"}},
		},
		// Vectors are computed by our own embedding service.
		Vectorizer:      "none",
		VectorIndexType: "hnsw",
	}
)

// WeaviateStore implements VectorDatabase on a Weaviate instance. Chunk
// vectors come from the embedding service, not a Weaviate vectorizer module.
type WeaviateStore struct {
	client *weaviate.Client
}

func NewWeaviateStore(cfg config.WeaviateStoreConfig) (*WeaviateStore, error) {
	var scheme string
	if strings.Contains(cfg.Host, "https") {
		scheme = "https"
	} else {
		scheme = "http"
	}
	host := strings.TrimPrefix(cfg.Host, scheme+"://")
	wcfg := weaviate.Config{
		Host:   host,
		Scheme: scheme,
	}
	if cfg.APIKey != "" {
		wcfg.AuthConfig = auth.ApiKey{
			Value: cfg.APIKey,
		}
	}
	client, err := weaviate.NewClient(wcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create weaviate client: %v", err)
	}

	schema, err := client.Schema().Getter().Do(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to get schema: %v", err)
	}

	hasChunkClass := false
	for _, class := range schema.Classes {
		if class.Class == CHUNK_CLASS {
			hasChunkClass = true
			break
		}
	}
	if !hasChunkClass {
		err = client.Schema().ClassCreator().WithClass(CHUNK_CLASS_OBJECT).Do(context.Background())
		if err != nil {
			return nil, fmt.Errorf("failed to create Chunk class: %v", err)
		}
	}
	return &WeaviateStore{
		client: client,
	}, nil
}

// ReInit drops and recreates the Chunk class, wiping the whole index.
func (s *WeaviateStore) ReInit() error {
	err := s.client.Schema().ClassDeleter().WithClassName(CHUNK_CLASS).Do(context.Background())
	if err != nil {
		return fmt.Errorf("failed to delete Chunk class: %v", err)
	}

	err = s.client.Schema().ClassCreator().WithClass(CHUNK_CLASS_OBJECT).Do(context.Background())
	if err != nil {
		return fmt.Errorf("failed to create Chunk class: %v", err)
	}
	return nil
}

func chunkProperties(chunk *types.Chunk) map[string]interface{} {
	return map[string]interface{}{
		"chunkId":    chunk.ID,
		"documentId": chunk.DocumentID,
		"content":    chunk.Text,
		"page":       chunk.Page,
		"charStart":  chunk.CharStart,
		"charEnd":    chunk.CharEnd,
		"title":      chunk.Metadata.Title,
		"author":     chunk.Metadata.Author,
		"totalPages": chunk.Metadata.TotalPages,
		"tags":       chunk.Metadata.Tags,
		"createdAt":  chunk.CreatedAt,
	}
}

func (s *WeaviateStore) UpsertChunk(ctx context.Context, chunk *types.Chunk, embedding []float32) error {
	creator := s.client.Data().Creator().
		WithClassName(CHUNK_CLASS).
		WithProperties(chunkProperties(chunk))

	if embedding != nil {
		creator = creator.WithVector(embedding)
	}

	result, err := creator.Do(ctx)
	if err != nil {
		return err
	}
	log.Println("UpsertChunk result:", result.Object.ID)
	return nil
}

func (s *WeaviateStore) BatchInsertChunks(ctx context.Context, chunks []types.Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("chunks and embeddings length mismatch: %d != %d", len(chunks), len(embeddings))
	}
	total := len(chunks)
	for i := 0; i < total; i += BATCH_SIZE {
		end := i + BATCH_SIZE
		if end > total {
			end = total
		}

		batcher := s.client.Batch().ObjectsBatcher()
		for j := i; j < end; j++ {
			batcher = batcher.WithObjects(&models.Object{
				Class:      CHUNK_CLASS,
				Properties: chunkProperties(&chunks[j]),
				Vector:     embeddings[j],
			})
		}

		_, err := batcher.Do(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert batch %d-%d: %v", i, end, err)
		}
		log.Printf("Inserted batch %d-%d of %d chunks", i, end, total)
	}
	return nil
}

func (s *WeaviateStore) DeleteDocument(ctx context.Context, documentID string) error {
	where := filters.Where().
		WithPath([]string{"documentId"}).
		WithOperator(filters.Equal).
		WithValueString(documentID)

	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(CHUNK_CLASS).
		WithWhere(where).
		Do(ctx)
	return err
}

func (s *WeaviateStore) SearchSimilar(ctx context.Context, vector []float32, filter types.SearchFilter, limit int) ([]ScoredChunk, error) {
	fields := []graphql.Field{
		{Name: "chunkId"},
		{Name: "documentId"},
		{Name: "content"},
		{Name: "page"},
		{Name: "charStart"},
		{Name: "charEnd"},
		{Name: "title"},
		{Name: "author"},
		{Name: "totalPages"},
		{Name: "tags"},
		{Name: "createdAt"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "distance"}, {Name: "id"}}},
	}

	nearVector := s.client.GraphQL().NearVectorArgBuilder().
		WithVector(vector)

	getBuilder := s.client.GraphQL().Get().
		WithClassName(CHUNK_CLASS).
		WithFields(fields...).
		WithNearVector(nearVector)
	if limit > 0 {
		getBuilder = getBuilder.WithLimit(limit)
	}
	if where := buildSearchFilter(filter); where != nil {
		getBuilder = getBuilder.WithWhere(where)
	}

	result, err := getBuilder.Do(ctx)
	if err != nil {
		return nil, err
	}
	if result.Errors != nil {
		return nil, fmt.Errorf("search failed: %v", result.Errors[0].Message)
	}

	var results []ScoredChunk
	if data, ok := result.Data["Get"].(map[string]interface{})[CHUNK_CLASS].([]interface{}); ok {
		for _, item := range data {
			obj, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			chunk := chunkFromProperties(obj)
			var score float32
			if additional, ok := obj["_additional"].(map[string]interface{}); ok {
				// Weaviate reports cosine distance; similarity = 1 - distance.
				if distance, ok := additional["distance"].(float64); ok {
					score = 1 - float32(distance)
				}
			}
			results = append(results, ScoredChunk{Chunk: chunk, Score: score})
		}
	}
	return results, nil
}

// chunkFromProperties rebuilds a chunk from a GraphQL result object. Objects
// written by an older schema may lack properties; missing or null fields
// decode to zero values instead of panicking.
func chunkFromProperties(obj map[string]interface{}) types.Chunk {
	return types.Chunk{
		ID:         toString(obj["chunkId"]),
		DocumentID: toString(obj["documentId"]),
		Text:       toString(obj["content"]),
		Page:       toInt(obj["page"]),
		CharStart:  toInt(obj["charStart"]),
		CharEnd:    toInt(obj["charEnd"]),
		Metadata: types.ChunkMetadata{
			Title:      toString(obj["title"]),
			Author:     toString(obj["author"]),
			TotalPages: toInt(obj["totalPages"]),
			Tags:       parseStringArray(obj["tags"]),
		},
		CreatedAt: int64(toInt(obj["createdAt"])),
	}
}

// Helper functions
func toString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func toInt(v interface{}) int {
	f, _ := v.(float64)
	return int(f)
}

func parseStringArray(v interface{}) []string {
	if v == nil {
		return nil
	}
	arr, ok := v.([]interface{})
	if !ok {
		return nil
	}
	result := make([]string, len(arr))
	for i, item := range arr {
		result[i] = toString(item)
	}
	return result
}

func buildSearchFilter(filter types.SearchFilter) *filters.WhereBuilder {
	if filter.Empty() {
		return nil
	}
	var whereFilter *filters.WhereBuilder

	if len(filter.DocumentIDs) > 0 {
		whereFilter = filters.Where().
			WithPath([]string{"documentId"}).
			WithOperator(filters.ContainsAny).
			WithValueString(filter.DocumentIDs...)
	}

	if len(filter.Tags) > 0 {
		tagFilter := filters.Where().
			WithPath([]string{"tags"}).
			WithOperator(filters.ContainsAny).
			WithValueString(filter.Tags...)
		if whereFilter == nil {
			whereFilter = tagFilter
		} else {
			whereFilter = filters.Where().
				WithOperator(filters.And).
				WithOperands([]*filters.WhereBuilder{whereFilter, tagFilter})
		}
	}

	return whereFilter
}
