// Package redis is the Redis Repository backend. Each document is one JSON
// string; a sorted set with equal scores indexes the identifiers so listing can
// walk them in lexical order.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"maps"

	"github.com/redis/go-redis/v9"

	"longtrees/internal/nursery/models"
	"longtrees/internal/nursery/store"
	"longtrees/pkg/domain"
	"longtrees/pkg/platform/sentinel"
)

// maxWatchAttempts bounds the optimistic WATCH/MULTI loop used by Update and
// Amend when another writer touches the same key.
const maxWatchAttempts = 3

// Collection stores documents of type T under one key prefix.
type Collection[T models.Document[T]] struct {
	client *redis.Client
	prefix string
}

// New binds T's collection under keyPrefix.
func New[T models.Document[T]](client *redis.Client, keyPrefix string) *Collection[T] {
	var zero T
	return &Collection[T]{client: client, prefix: keyPrefix + ":" + zero.Collection()}
}

func (c *Collection[T]) docKey(id string) string { return c.prefix + ":" + id }

func (c *Collection[T]) indexKey() string { return c.prefix + ":index" }

func (c *Collection[T]) Create(ctx context.Context, doc T) (domain.ID, error) {
	id := domain.NewID()
	raw, err := json.Marshal(doc.WithID(id))
	if err != nil {
		return domain.NilID, fmt.Errorf("encode document: %w", err)
	}
	var created *redis.BoolCmd
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		created = pipe.SetNX(ctx, c.docKey(id.String()), raw, 0)
		pipe.ZAdd(ctx, c.indexKey(), redis.Z{Score: 0, Member: id.String()})
		return nil
	})
	if err != nil {
		return domain.NilID, unavailable("create", err)
	}
	if !created.Val() {
		return domain.NilID, fmt.Errorf("create: identifier %s already stored", id)
	}
	return id, nil
}

func (c *Collection[T]) Get(ctx context.Context, id domain.ID) (T, error) {
	var doc T
	raw, err := c.client.Get(ctx, c.docKey(id.String())).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return doc, sentinel.ErrNotFound
		}
		return doc, unavailable("get", err)
	}
	return decode[T](raw)
}

// List walks the index in lexical order and fetches each batch of documents
// with a single MGET. Documents deleted in between are skipped and the walk
// reads further index members until the page is full or the index runs out.
func (c *Collection[T]) List(ctx context.Context, opts store.ListOptions) iter.Seq2[T, error] {
	return store.OneShot(func(yield func(T, error) bool) {
		var zero T
		lower := "-"
		if after := opts.StartAfter(); after != "" {
			lower = "(" + after
		}
		remaining := opts.PageSize()

		for remaining > 0 {
			want := remaining
			ids, err := c.client.ZRangeByLex(ctx, c.indexKey(), &redis.ZRangeBy{
				Min:   lower,
				Max:   "+",
				Count: int64(want),
			}).Result()
			if err != nil {
				yield(zero, unavailable("list", err))
				return
			}
			if len(ids) == 0 {
				return
			}

			keys := make([]string, len(ids))
			for i, id := range ids {
				keys[i] = c.docKey(id)
			}
			values, err := c.client.MGet(ctx, keys...).Result()
			if err != nil {
				yield(zero, unavailable("list", err))
				return
			}
			for _, v := range values {
				s, ok := v.(string)
				if !ok {
					continue
				}
				doc, err := decode[T]([]byte(s))
				if !yield(doc, err) || err != nil {
					return
				}
				remaining--
			}

			if len(ids) < want {
				return
			}
			lower = "(" + ids[len(ids)-1]
		}
	})
}

func (c *Collection[T]) Update(ctx context.Context, id domain.ID, doc T) (T, error) {
	var zero T
	patch, err := store.ClientPatch(doc, zero.DerivedFields())
	if err != nil {
		return zero, err
	}
	return c.rewrite(ctx, id, func(stored map[string]any) error {
		maps.Copy(stored, patch)
		return nil
	})
}

func (c *Collection[T]) Delete(ctx context.Context, id domain.ID) error {
	var deleted *redis.IntCmd
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(ctx, c.docKey(id.String()))
		pipe.ZRem(ctx, c.indexKey(), id.String())
		return nil
	})
	if err != nil {
		return unavailable("delete", err)
	}
	if deleted.Val() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (c *Collection[T]) Amend(ctx context.Context, id domain.ID, amendments ...store.Amendment) (T, error) {
	return c.rewrite(ctx, id, func(stored map[string]any) error {
		return store.ApplyJSON(stored, amendments...)
	})
}

func (c *Collection[T]) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// rewrite reads, changes and writes back one document under WATCH. SET XX
// keeps a concurrent delete from resurrecting the key.
func (c *Collection[T]) rewrite(ctx context.Context, id domain.ID, change func(map[string]any) error) (T, error) {
	var result T
	var failed error
	key := c.docKey(id.String())

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return sentinel.ErrNotFound
			}
			return unavailable("get", err)
		}
		var stored map[string]any
		if err := json.Unmarshal(raw, &stored); err != nil {
			failed = fmt.Errorf("decode stored document: %w", err)
			return failed
		}
		if err := change(stored); err != nil {
			failed = err
			return failed
		}
		updated, err := json.Marshal(stored)
		if err != nil {
			failed = fmt.Errorf("encode document: %w", err)
			return failed
		}
		if result, err = decode[T](updated); err != nil {
			failed = err
			return failed
		}

		var replaced *redis.BoolCmd
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			replaced = pipe.SetXX(ctx, key, updated, redis.KeepTTL)
			return nil
		})
		if err != nil {
			return err
		}
		if !replaced.Val() {
			return sentinel.ErrNotFound
		}
		return nil
	}

	var err error
	for range maxWatchAttempts {
		err = c.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		var zero T
		if failed != nil || errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrUnavailable) {
			return zero, err
		}
		return zero, unavailable("write", err)
	}
	return result, nil
}

func decode[T any](raw []byte) (T, error) {
	var doc T
	if err := json.Unmarshal(raw, &doc); err != nil {
		return doc, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("redis %s: %w: %w", op, sentinel.ErrUnavailable, err)
}
