package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/glimmerapp/glimmer/api"
)

// Redis caches the head of the feed so the first page never hits the
// database.
type Redis struct {
	cli *redis.Client
}

// Connect connects to the Redis server and pings the server to ensure
// the connection is working.
func Connect(ctx context.Context, addr string) (*Redis, error) {
	cli := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := cli.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{
		cli: cli,
	}, nil
}

const (
	feedKey    = "feed"
	postPrefix = "feed:post"
	maxSize    = 30
)

func postKey(id string) string {
	return fmt.Sprintf("%s:%s", postPrefix, id)
}

// ListPosts returns the cached feed head, newest first.
func (r *Redis) ListPosts(ctx context.Context) ([]api.Post, error) {
	keys, err := r.cli.ZRevRange(ctx, feedKey, 0, maxSize-1).Result()
	if err != nil {
		return nil, fmt.Errorf("zrevrange: %w", err)
	}

	out := make([]api.Post, 0, len(keys))
	for _, key := range keys {
		var p post
		if err := r.cli.HGetAll(ctx, key).Scan(&p); err != nil {
			return nil, fmt.Errorf("hgetall: %w", err)
		}
		if p.ID == "" {
			// Hash expired or was evicted under us; drop the index entry.
			_ = r.cli.ZRem(ctx, feedKey, key).Err()
			continue
		}
		out = append(out, p.apiPost())
	}
	return out, nil
}

// InsertPost adds the post hash keyed by feed:post:POST_ID and indexes
// it in the feed sorted set, scored by creation time.
func (r *Redis) InsertPost(ctx context.Context, p api.Post) error {
	m := fromAPIPost(p)

	err := r.cli.Watch(ctx, func(tx *redis.Tx) error {
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			key := postKey(m.ID)
			pipe.HSet(ctx, key, m)
			pipe.ZAdd(ctx, feedKey, redis.Z{
				Score:  float64(p.CreatedAt.UnixNano()),
				Member: key,
			})
			return nil
		})
		return err
	}, m.ID)
	if err != nil {
		return fmt.Errorf("redis insert post: %w", err)
	}

	if err := r.evictOldest(ctx); err != nil {
		return fmt.Errorf("evict oldest: %w", err)
	}
	return nil
}

// RemovePost drops a post from the cache. Removing a post that is not
// cached is a no-op.
func (r *Redis) RemovePost(ctx context.Context, postID string) error {
	key := postKey(postID)
	if err := r.cli.ZRem(ctx, feedKey, key).Err(); err != nil {
		return fmt.Errorf("zrem: %w", err)
	}
	if err := r.cli.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("del: %w", err)
	}
	return nil
}

// IncrCounters applies like/comment count deltas to a cached post.
// Posts that are not cached are skipped silently; the DB remains
// authoritative.
func (r *Redis) IncrCounters(ctx context.Context, postID string, likeDelta, commentDelta int) error {
	key := postKey(postID)
	exists, err := r.cli.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("exists: %w", err)
	}
	if exists == 0 {
		return nil
	}

	_, err = r.cli.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if likeDelta != 0 {
			pipe.HIncrBy(ctx, key, "like_count", int64(likeDelta))
		}
		if commentDelta != 0 {
			pipe.HIncrBy(ctx, key, "comment_count", int64(commentDelta))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("hincrby: %w", err)
	}
	return nil
}

func (r *Redis) evictOldest(ctx context.Context) error {
	keys, err := r.cli.ZRange(ctx, feedKey, 0, int64(-maxSize-1)).Result()
	if err != nil {
		return fmt.Errorf("zrange: %w", err)
	}

	for _, key := range keys {
		_ = r.cli.ZRem(ctx, feedKey, key).Err()
		_ = r.cli.Del(ctx, key).Err()
	}
	return nil
}

var _ api.Cache = (*Redis)(nil)
