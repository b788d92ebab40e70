package history

import (
	"context"
	"fmt"

	"github.com/avvvet/strategists-services/internal/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type MongoArchive struct {
	coll *mongo.Collection
}

// NewMongoArchive stores records in collection, expiring them through a TTL
// index on expires_at.
func NewMongoArchive(ctx context.Context, database *mongo.Database, collection string) (*MongoArchive, error) {
	if err := db.CreateTTLIndexForCollection(ctx, database, collection); err != nil {
		return nil, fmt.Errorf("create ttl index on %s: %w", collection, err)
	}
	return &MongoArchive{coll: database.Collection(collection)}, nil
}

func (a *MongoArchive) Save(ctx context.Context, rec *Record) error {
	_, err := a.coll.InsertOne(ctx, rec)
	return err
}

func (a *MongoArchive) Count(ctx context.Context) (int64, error) {
	return a.coll.CountDocuments(ctx, bson.M{})
}
