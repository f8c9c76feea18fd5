// Package sitecache persists raw page artifacts (HTML, RSS, JSON
// bodies) between runs so re-scrapes of slow government sites don't
// refetch pages that rarely change.
package sitecache

import (
	"bytes"
	"context"
	"encoding/gob"
	"net/url"
	"time"

	"civicscraper/lib/timezone"

	"github.com/PuerkitoBio/purell"
	"github.com/dgraph-io/badger/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("civicscraper.lib.sitecache")

var ErrNotCached = badger.ErrKeyNotFound

// Artifact is one cached fetch.
type Artifact struct {
	Contents    []byte
	ContentType string

	ExpiresAt int64
}

type Cache struct {
	db  *badger.DB
	ttl time.Duration
}

// Open creates or reopens a cache at dir. An empty dir keeps the
// whole cache in memory, which the tests rely on.
func Open(dir string, ttl time.Duration) (*Cache, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Cache{db: db, ttl: ttl}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// key normalizes the URL so trivially different spellings of the same
// page share one cache entry.
func key(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	return purell.NormalizeURL(
		u,
		purell.FlagsSafe|
			purell.FlagsUsuallySafeNonGreedy|
			purell.FlagRemoveDirectoryIndex|
			purell.FlagRemoveFragment|
			purell.FlagSortQuery,
	), nil
}

func (c *Cache) Get(ctx context.Context, rawURL string) (Artifact, error) {
	ctx, span := tracer.Start(ctx, "Get")
	defer span.End()

	k, err := key(rawURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create cache key")
		return Artifact{}, err
	}
	span.SetAttributes(attribute.String("cache_key", k))

	tx := c.db.NewTransaction(false)
	defer tx.Discard()
	item, err := tx.Get([]byte(k))
	if err == badger.ErrKeyNotFound {
		return Artifact{}, ErrNotCached
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read item from badger")
		return Artifact{}, err
	}
	serialized, err := item.ValueCopy(nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to copy cached item")
		return Artifact{}, err
	}

	var cached Artifact
	err = gob.NewDecoder(bytes.NewBuffer(serialized)).Decode(&cached)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to deserialize cached item")
		return Artifact{}, err
	}

	if timezone.Now().Unix() >= cached.ExpiresAt {
		tx := c.db.NewTransaction(true)
		defer tx.Commit()

		err = tx.Delete([]byte(k))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to delete expired key")
		}
		return Artifact{}, ErrNotCached
	}

	return cached, nil
}

func (c *Cache) Set(ctx context.Context, rawURL string, artifact Artifact) error {
	ctx, span := tracer.Start(ctx, "Set")
	defer span.End()

	k, err := key(rawURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create cache key")
		return err
	}
	span.SetAttributes(attribute.String("cache_key", k))

	artifact.ExpiresAt = timezone.Now().Add(c.ttl).Unix()

	serialized := bytes.NewBuffer(nil)
	err = gob.NewEncoder(serialized).Encode(artifact)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to serialize artifact")
		return err
	}

	tx := c.db.NewTransaction(true)
	defer tx.Commit()

	err = tx.Set([]byte(k), serialized.Bytes())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to set badger item")
		return err
	}

	return nil
}
