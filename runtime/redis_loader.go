package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisGetter is the subset of a redis client the loader needs.
// *redis.Client and *redis.ClusterClient satisfy it.
type RedisGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// RedisLoader loads template sources stored as plain string values under
// prefix+name.
type RedisLoader struct {
	client  RedisGetter
	prefix  string
	timeout time.Duration
}

// NewRedisLoader creates a loader reading keys prefix+name from client
func NewRedisLoader(client RedisGetter, prefix string) *RedisLoader {
	return &RedisLoader{
		client:  client,
		prefix:  prefix,
		timeout: 5 * time.Second,
	}
}

// SetTimeout bounds each GET. Zero disables the bound.
func (l *RedisLoader) SetTimeout(timeout time.Duration) {
	l.timeout = timeout
}

// Load loads a template from redis
func (l *RedisLoader) Load(name string) (string, error) {
	ctx := context.Background()
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	key := l.prefix + name
	source, err := l.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", NewTemplateNotFound(name, []string{key}, nil)
		}
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return source, nil
}
