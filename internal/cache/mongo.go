package cache

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const mongoDisconnectTimeout = 5 * time.Second

// mongoEntry is the persisted document. expireAt is a date so the TTL index can act on it.
type mongoEntry struct {
	CacheKey        string    `bson:"_id"`
	Value           string    `bson:"value"`
	CreatedAt       int64     `bson:"createdAt"`
	ExpireAt        time.Time `bson:"expireAt"`
	ContractAddress string    `bson:"contractAddress"`
	FunctionName    string    `bson:"functionName"`
	Parameters      string    `bson:"parameters,omitempty"`
}

// MongoStore keeps one document per key and relies on a TTL index on expireAt
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoStore creates a store in database.collection and ensures the TTL index exists
func NewMongoStore(ctx context.Context, client *mongo.Client, database, collection string) (*MongoStore, error) {
	coll := client.Database(database).Collection(collection)

	index := mongo.IndexModel{
		Keys:    bson.D{{Key: "expireAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	}
	if _, err := coll.Indexes().CreateOne(ctx, index); err != nil {
		return nil, pkgerrors.WithMessage(err, "failed to create ttl index")
	}

	return &MongoStore{client: client, collection: coll}, nil
}

// DialMongo connects to uri and opens the store
func DialMongo(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, pkgerrors.WithMessage(err, "failed to connect to mongo")
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, pkgerrors.WithMessage(err, "failed to ping mongo")
	}

	store, err := NewMongoStore(ctx, client, database, collection)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return store, nil
}

// Get retrieves an entry by key
func (ms *MongoStore) Get(ctx context.Context, key string) (*Entry, bool, error) {
	var doc mongoEntry
	err := ms.collection.FindOne(ctx, bson.D{{Key: "_id", Value: key}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, storeError(OpGet, key, pkgerrors.WithMessage(err, "mongo find"))
	}

	return &Entry{
		CacheKey:        doc.CacheKey,
		Value:           doc.Value,
		CreatedAt:       doc.CreatedAt,
		ExpireAt:        doc.ExpireAt.Unix(),
		ContractAddress: doc.ContractAddress,
		FunctionName:    doc.FunctionName,
		Parameters:      doc.Parameters,
	}, true, nil
}

// Put upserts the document for entry.CacheKey
func (ms *MongoStore) Put(ctx context.Context, entry *Entry) error {
	doc := mongoEntry{
		CacheKey:        entry.CacheKey,
		Value:           entry.Value,
		CreatedAt:       entry.CreatedAt,
		ExpireAt:        entry.ExpiresAt(),
		ContractAddress: entry.ContractAddress,
		FunctionName:    entry.FunctionName,
		Parameters:      entry.Parameters,
	}

	filter := bson.D{{Key: "_id", Value: entry.CacheKey}}
	if _, err := ms.collection.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true)); err != nil {
		return storeError(OpPut, entry.CacheKey, pkgerrors.WithMessage(err, "mongo replace"))
	}

	return nil
}

// Close disconnects the client
func (ms *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoDisconnectTimeout)
	defer cancel()
	return ms.client.Disconnect(ctx)
}
