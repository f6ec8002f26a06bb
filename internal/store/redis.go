package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix prefixes every key written by the Redis store.
const DefaultKeyPrefix = "querystorm:"

// Console hashes and the id index live in separate namespaces so that no
// console id can name the index.
const (
	consoleNamespace = "console:"
	indexName        = "index"
)

// RedisOptions configures the Redis store.
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// Redis stores each console as a hash under KeyPrefix+"console:"+id and
// keeps the set of ids under KeyPrefix+"index".
type Redis struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// OpenRedis connects to Redis and verifies the connection.
func OpenRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", opts.Addr, err)
	}
	return NewRedis(client, opts.KeyPrefix), nil
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Redis{client: client, prefix: prefix, now: time.Now}
}

func (r *Redis) key(id string) string {
	return r.prefix + consoleNamespace + id
}

func (r *Redis) indexKey() string {
	return r.prefix + indexName
}

// Persist implements Store.
func (r *Redis) Persist(ctx context.Context, id, content string) error {
	if err := checkID(id); err != nil {
		return err
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.key(id),
			"content", content,
			"hash", strconv.FormatUint(Hash(content), 16),
			"updated_at", r.now().UnixMilli(),
		)
		pipe.SAdd(ctx, r.indexKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("persist %s: %w", id, err)
	}
	return nil
}

// Load implements Store.
func (r *Redis) Load(ctx context.Context, id string) (string, bool, error) {
	content, err := r.client.HGet(ctx, r.key(id), "content").Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load %s: %w", id, err)
	}
	return content, true, nil
}

// Record implements Store.
func (r *Redis) Record(ctx context.Context, id string) (Record, bool, error) {
	fields, err := r.client.HGetAll(ctx, r.key(id)).Result()
	if err != nil {
		return Record{}, false, fmt.Errorf("load %s: %w", id, err)
	}
	content, ok := fields["content"]
	if !ok {
		return Record{}, false, nil
	}

	rec := Record{ConsoleID: id, Content: content}
	if rec.Hash, err = strconv.ParseUint(fields["hash"], 16, 64); err != nil {
		return Record{}, false, fmt.Errorf("load %s: bad hash: %w", id, err)
	}
	if ms, err := strconv.ParseInt(fields["updated_at"], 10, 64); err == nil {
		rec.UpdatedAt = time.UnixMilli(ms)
	}
	return rec, true, nil
}

// Delete implements Store.
func (r *Redis) Delete(ctx context.Context, id string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.key(id))
		pipe.SRem(ctx, r.indexKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	return nil
}

// IDs implements Store.
func (r *Redis) IDs(ctx context.Context) ([]string, error) {
	ids, err := r.client.SMembers(ctx, r.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list consoles: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

// Close implements Store.
func (r *Redis) Close() error {
	return r.client.Close()
}
