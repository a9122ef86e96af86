package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/couchcryptid/avyrss/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisAPI is the subset of the go-redis client used by RedisBackend.
type RedisAPI interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
}

const (
	scanBatch          = 200
	defaultRedisPrefix = "avyrss"
)

// RedisBackend stores each blob as a plain string value named "{prefix}/{key}".
// Redis has no directories, so MakeDirs does nothing.
type RedisBackend struct {
	client  RedisAPI
	prefix  string
	uri     string
	timeout time.Duration
}

// NewRedisBackend wraps an existing client. uri is only used for display.
func NewRedisBackend(client RedisAPI, prefix, uri string, timeout time.Duration) *RedisBackend {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisBackend{
		client:  client,
		prefix:  prefix,
		uri:     uri,
		timeout: timeout,
	}
}

// OpenRedisBackend connects using a redis:// URI. The non-standard "prefix"
// query parameter namespaces keys (default "avyrss") and is removed before
// the remaining URI is handed to redis.ParseURL.
func OpenRedisBackend(u *url.URL, opts Options) (*RedisBackend, error) {
	q := u.Query()
	prefix := q.Get("prefix")
	q.Del("prefix")

	clean := *u
	clean.RawQuery = q.Encode()
	redisOpts, err := redis.ParseURL(clean.String())
	if err != nil {
		return nil, fmt.Errorf("parse redis uri: %w: %w", domain.ErrValidation, err)
	}
	if opts.Timeout > 0 {
		redisOpts.ReadTimeout = opts.Timeout
		redisOpts.WriteTimeout = opts.Timeout
	}

	display := *u
	display.User = nil
	return NewRedisBackend(redis.NewClient(redisOpts), prefix, display.String(), opts.Timeout), nil
}

func (b *RedisBackend) redisKey(key string) string {
	return joinKey(b.prefix, key)
}

func (b *RedisBackend) Read(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := withTimeout(ctx, b.timeout)
	defer cancel()

	data, err := b.client.Get(ctx, b.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis get %s: %w", b.redisKey(key), domain.ErrNotFound)
	}
	if err != nil {
		return nil, b.wrapErr("get", key, err)
	}
	return data, nil
}

func (b *RedisBackend) Write(ctx context.Context, key string, data []byte) error {
	ctx, cancel := withTimeout(ctx, b.timeout)
	defer cancel()

	if err := b.client.Set(ctx, b.redisKey(key), data, 0).Err(); err != nil {
		return b.wrapErr("set", key, err)
	}
	return nil
}

func (b *RedisBackend) List(ctx context.Context, prefix string) ([]string, error) {
	ctx, cancel := withTimeout(ctx, b.timeout)
	defer cancel()

	match := escapeGlob(b.redisKey(prefix)) + "/*"
	root := b.prefix + "/"

	seen := make(map[string]struct{})
	var cursor uint64
	for {
		batch, next, err := b.client.Scan(ctx, cursor, match, scanBatch).Result()
		if err != nil {
			return nil, b.wrapErr("scan", prefix, err)
		}
		for _, k := range batch {
			seen[strings.TrimPrefix(k, root)] = struct{}{}
		}
		if next == 0 {
			break
		}
		cursor = next
	}

	// SCAN may return a key more than once.
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (b *RedisBackend) MakeDirs(context.Context, string) error { return nil }

func (b *RedisBackend) Exists(ctx context.Context, key string) (bool, error) {
	ctx, cancel := withTimeout(ctx, b.timeout)
	defer cancel()

	n, err := b.client.Exists(ctx, b.redisKey(key)).Result()
	if err != nil {
		return false, b.wrapErr("exists", key, err)
	}
	return n > 0, nil
}

func (b *RedisBackend) Location(key string) string {
	return b.uri + "#" + b.redisKey(key)
}

func (b *RedisBackend) URI() string {
	return b.uri
}

func (b *RedisBackend) wrapErr(op, key string, err error) error {
	return fmt.Errorf("redis %s %s: %w: %w", op, b.redisKey(key), domain.ErrBackendUnavailable, err)
}

func escapeGlob(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
