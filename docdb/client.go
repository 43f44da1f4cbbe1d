// Package docdb wraps the MongoDB driver for test suites that verify
// document state. Query results come back as bson.M documents, with helpers
// to compare them against expected JSON.
package docdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"

	"github.com/verax-qa/verax/config"
	"github.com/verax-qa/verax/framework"
)

// Client is bound to a single collection. Close disconnects the underlying
// driver client.
type Client struct {
	client  *mongo.Client
	coll    *mongo.Collection
	timeout time.Duration
	logs    *zap.SugaredLogger
	debug   framework.Logger
}

// Connect establishes a connection and verifies it with a ping.
func Connect(ctx context.Context, uri, database, collection string, timeout time.Duration, logs *zap.SugaredLogger, debug framework.Logger) (*Client, error) {
	if timeout == 0 {
		timeout = time.Minute
	}
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	mc, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to document database: %w", err)
	}
	if err := mc.Ping(connectCtx, nil); err != nil {
		_ = mc.Disconnect(ctx)
		return nil, fmt.Errorf("document database is unreachable: %w", err)
	}
	logs.Infow("document database connected", "database", database, "collection", collection)
	return &Client{
		client:  mc,
		coll:    mc.Database(database).Collection(collection),
		timeout: timeout,
		logs:    logs,
		debug:   debug,
	}, nil
}

// FromConfig connects using the harness configuration.
func FromConfig(ctx context.Context, cfg config.DocDBConfig, logs *zap.SugaredLogger, debug framework.Logger) (*Client, error) {
	return Connect(ctx, cfg.URI, cfg.Database, cfg.Collection, cfg.QueryTimeout.Value(), logs, debug)
}

// Close disconnects from the database.
func (c *Client) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	return c.client.Disconnect(ctx)
}

// Collection exposes the underlying collection for operations the wrapper
// does not cover.
func (c *Client) Collection() *mongo.Collection { return c.coll }

func (c *Client) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// Find returns every document matching the filter.
func (c *Client) Find(ctx context.Context, filter bson.M) ([]bson.M, error) {
	c.debug.Printf("find: %v", filter)
	qctx, cancel := c.queryContext(ctx)
	defer cancel()

	cursor, err := c.coll.Find(qctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find failed: %w", err)
	}
	var docs []bson.M
	if err := cursor.All(qctx, &docs); err != nil {
		return nil, fmt.Errorf("reading documents: %w", err)
	}
	c.logs.Debugw("find", "filter", filter, "documents", len(docs))
	return docs, nil
}

// FindByID returns the document whose _id matches, or nil if none does.
func (c *Client) FindByID(ctx context.Context, id interface{}) (bson.M, error) {
	c.debug.Printf("find by id: %v", id)
	qctx, cancel := c.queryContext(ctx)
	defer cancel()

	var doc bson.M
	err := c.coll.FindOne(qctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by id failed: %w", err)
	}
	return doc, nil
}

// Count returns the number of documents matching the filter.
func (c *Client) Count(ctx context.Context, filter bson.M) (int64, error) {
	qctx, cancel := c.queryContext(ctx)
	defer cancel()

	n, err := c.coll.CountDocuments(qctx, filter)
	if err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}
	return n, nil
}

// InsertMany adds documents, typically to seed state before a test.
func (c *Client) InsertMany(ctx context.Context, docs []interface{}) error {
	qctx, cancel := c.queryContext(ctx)
	defer cancel()

	if _, err := c.coll.InsertMany(qctx, docs); err != nil {
		return fmt.Errorf("insert failed: %w", err)
	}
	return nil
}

// DeleteAll removes every document matching the filter and returns how many
// were removed.
func (c *Client) DeleteAll(ctx context.Context, filter bson.M) (int64, error) {
	qctx, cancel := c.queryContext(ctx)
	defer cancel()

	result, err := c.coll.DeleteMany(qctx, filter)
	if err != nil {
		return 0, fmt.Errorf("delete failed: %w", err)
	}
	return result.DeletedCount, nil
}

// MatchesExpectedJSON structurally compares a result sequence against a JSON
// array, position by position. Key order inside documents does not matter.
// A non-nil error describes the first difference found.
func MatchesExpectedJSON(docs []bson.M, expectedJSON string) error {
	var expected []interface{}
	if err := json.Unmarshal([]byte(expectedJSON), &expected); err != nil {
		return fmt.Errorf("expected JSON is not an array: %w", err)
	}
	if len(docs) != len(expected) {
		return fmt.Errorf("expected %d documents, got %d", len(expected), len(docs))
	}

	for i, doc := range docs {
		value, err := documentValue(doc)
		if err != nil {
			return fmt.Errorf("document %d: %w", i, err)
		}
		want := ldvalue.CopyArbitraryValue(expected[i])
		if !want.Equal(value) {
			return fmt.Errorf("document %d: expected %s, got %s",
				i, want.JSONString(), value.JSONString())
		}
	}
	return nil
}

func documentValue(doc bson.M) (ldvalue.Value, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return ldvalue.Null(), fmt.Errorf("document is not JSON-representable: %w", err)
	}
	return ldvalue.Parse(raw), nil
}
