// Package redisstore keeps collections as Redis hashes of JSON documents.
package redisstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/go-redis/redis/v8"

	"github.com/chemifol/fieldops/pkg/core/errs"
	"github.com/chemifol/fieldops/pkg/db"
)

// maxTxRetries bounds optimistic retries when a watched key changes mid-update
const maxTxRetries = 5

// Store is a db.Store backed by one hash per collection, field = id,
// value = JSON document. Ids come from a per-collection INCR counter.
type Store struct {
	client *redis.Client
	prefix string
}

// New wraps an existing client
func New(client *redis.Client, keyPrefix string) *Store {
	return &Store{client: client, prefix: keyPrefix}
}

// Connect dials Redis and checks the connection
func Connect(ctx context.Context, addr, password string, dbIndex int, keyPrefix string) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       dbIndex,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return New(client, keyPrefix), nil
}

// Close closes the underlying client
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) hashKey(c db.Collection) string {
	return fmt.Sprintf("%s:%s", s.prefix, c)
}

func (s *Store) seqKey(c db.Collection) string {
	return fmt.Sprintf("%s:%s:seq", s.prefix, c)
}

func decode(raw string) (db.Record, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var rec db.Record
	if err := dec.Decode(&rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// ReadAll returns every document of the collection ordered by id
func (s *Store) ReadAll(ctx context.Context, c db.Collection) ([]db.Record, error) {
	docs, err := s.client.HGetAll(ctx, s.hashKey(c)).Result()
	if err != nil {
		return nil, db.Unavailable("read "+string(c), err)
	}

	records := make([]db.Record, 0, len(docs))
	for id, raw := range docs {
		rec, err := decode(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s %s: %w", c, id, err)
		}
		rec["id"] = id
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		a, _ := strconv.ParseInt(records[i]["id"].(string), 10, 64)
		b, _ := strconv.ParseInt(records[j]["id"].(string), 10, 64)
		return a < b
	})
	return records, nil
}

// Insert stores the document under the next id of the collection
func (s *Store) Insert(ctx context.Context, c db.Collection, rec db.Record) (string, error) {
	n, err := s.client.Incr(ctx, s.seqKey(c)).Result()
	if err != nil {
		return "", db.Unavailable("insert into "+string(c), err)
	}
	id := strconv.FormatInt(n, 10)

	doc := make(db.Record, len(rec))
	for k, v := range rec {
		if k != "id" {
			doc[k] = v
		}
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", c, err)
	}

	if err := s.client.HSet(ctx, s.hashKey(c), id, raw).Err(); err != nil {
		return "", db.Unavailable("insert into "+string(c), err)
	}
	return id, nil
}

// watch runs fn in an optimistic transaction on the collection hash,
// retrying when another client modifies it first
func (s *Store) watch(ctx context.Context, c db.Collection, fn func(*redis.Tx) error) error {
	key := s.hashKey(c)
	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, fn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return db.Unavailable("update "+string(c), fmt.Errorf("too much contention on %s", key))
}

// Update merges patch into the document with the given id
func (s *Store) Update(ctx context.Context, c db.Collection, id string, patch db.Record) error {
	key := s.hashKey(c)
	return s.watch(ctx, c, func(tx *redis.Tx) error {
		raw, err := tx.HGet(ctx, key, id).Result()
		if err == redis.Nil {
			return fmt.Errorf("%s %s: %w", c, id, errs.ErrUnknownEntity)
		}
		if err != nil {
			return db.Unavailable("update "+string(c), err)
		}

		rec, err := decode(raw)
		if err != nil {
			return fmt.Errorf("failed to decode %s %s: %w", c, id, err)
		}
		applyPatch(rec, patch)
		updated, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", c, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, id, updated)
			return nil
		})
		if err != nil && !errors.Is(err, redis.TxFailedErr) {
			return db.Unavailable("update "+string(c), err)
		}
		return err
	})
}

// Delete removes the document with the given id
func (s *Store) Delete(ctx context.Context, c db.Collection, id string) error {
	n, err := s.client.HDel(ctx, s.hashKey(c), id).Result()
	if err != nil {
		return db.Unavailable("delete from "+string(c), err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", c, id, errs.ErrUnknownEntity)
	}
	return nil
}

// UpdateWhere patches every matching document in one transaction
func (s *Store) UpdateWhere(ctx context.Context, c db.Collection, match db.Record, patch db.Record) (int, error) {
	key := s.hashKey(c)
	var n int
	err := s.watch(ctx, c, func(tx *redis.Tx) error {
		n = 0
		docs, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return db.Unavailable("update "+string(c), err)
		}

		values := make([]interface{}, 0, 2*len(docs))
		for id, raw := range docs {
			rec, err := decode(raw)
			if err != nil {
				return fmt.Errorf("failed to decode %s %s: %w", c, id, err)
			}
			if !db.Matches(rec, match) {
				continue
			}
			applyPatch(rec, patch)
			updated, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("failed to encode %s: %w", c, err)
			}
			values = append(values, id, updated)
			n++
		}
		if n == 0 {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, values...)
			return nil
		})
		if err != nil && !errors.Is(err, redis.TxFailedErr) {
			return db.Unavailable("update "+string(c), err)
		}
		return err
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func applyPatch(rec, patch db.Record) {
	for k, v := range patch {
		if k != "id" {
			rec[k] = v
		}
	}
}
