package dbclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// mongoServerSelectionTimeout bounds how long one connect attempt waits for
// the server. Readiness retries cover the rest.
const mongoServerSelectionTimeout = 2 * time.Second

type mongoClient struct {
	mu     sync.Mutex
	client *mongo.Client
}

func (c *mongoClient) Connect(ctx context.Context, dsn string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked(ctx)

	opts := options.Client().
		ApplyURI(dsn).
		SetServerSelectionTimeout(mongoServerSelectionTimeout).
		SetConnectTimeout(mongoServerSelectionTimeout)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return fmt.Errorf("ping mongodb: %w", err)
	}
	c.client = client
	return nil
}

func (c *mongoClient) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked(ctx)
}

func (c *mongoClient) closeLocked(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	client := c.client
	c.client = nil
	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect mongodb: %w", err)
	}
	return nil
}

func (c *mongoClient) Reset(ctx context.Context, database string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return ErrNotConnected
	}

	db := c.client.Database(database)
	names, err := db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("list collections of %s: %w", database, err)
	}
	for _, name := range names {
		if err := db.Collection(name).Drop(ctx); err != nil {
			return fmt.Errorf("drop collection %s.%s: %w", database, name, err)
		}
	}
	return nil
}
