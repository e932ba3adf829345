package database

import (
	"context"
	"fmt"

	"github.com/tieubaoca/librarian-be/types"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// NewMongoClient connects to the MongoDB instance holding document metadata.
func NewMongoClient(uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().
		ApplyURI(uri).
		SetBSONOptions(
			&options.BSONOptions{
				ObjectIDAsHexString: true,
			},
		))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}
	return client, nil
}

// MongoDocumentStore persists document metadata in a MongoDB collection.
type MongoDocumentStore struct {
	collection *mongo.Collection
}

func NewMongoDocumentStore(collection *mongo.Collection) *MongoDocumentStore {
	return &MongoDocumentStore{
		collection: collection,
	}
}

func (s *MongoDocumentStore) SaveDocument(ctx context.Context, doc *types.Document) error {
	opts := options.Replace().SetUpsert(true)
	_, err := s.collection.ReplaceOne(ctx, map[string]string{"_id": doc.ID}, doc, opts)
	return err
}

func (s *MongoDocumentStore) GetDocument(ctx context.Context, id string) (*types.Document, error) {
	var doc types.Document
	err := s.collection.FindOne(ctx, map[string]string{"_id": id}).Decode(&doc)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *MongoDocumentStore) ListDocuments(ctx context.Context, page, limit int64) ([]types.Document, error) {
	if limit <= 0 {
		limit = 20
	}
	if page < 1 {
		page = 1
	}
	opts := options.Find().
		SetSkip((page - 1) * limit).
		SetLimit(limit).
		SetSort(map[string]int{"created_at": 1})
	cursor, err := s.collection.Find(ctx, map[string]string{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []types.Document
	for cursor.Next(ctx) {
		var doc types.Document
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, cursor.Err()
}

func (s *MongoDocumentStore) DeleteDocument(ctx context.Context, id string) error {
	_, err := s.collection.DeleteOne(ctx, map[string]string{"_id": id})
	return err
}
