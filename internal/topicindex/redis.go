package topicindex

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/joestump/joe-forum/internal/category"
)

// tempKeyTTL bounds how long an intersection result outlives a failed cleanup.
const tempKeyTTL = 30 * time.Second

// Redis is an Index backed by Redis sorted sets.
type Redis struct {
	client redis.UniversalClient
}

func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

// OpenRedis parses url, connects and pings, retrying a few times while the
// server comes up.
func OpenRedis(ctx context.Context, url string) (redis.UniversalClient, error) {
	if !strings.HasPrefix(url, "redis://") && !strings.HasPrefix(url, "rediss://") {
		return nil, fmt.Errorf("redis url must use redis:// or rediss://: %q", url)
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	const attempts = 3
	var lastErr error
	for i := range attempts {
		client := redis.NewClient(opts)
		if lastErr = client.Ping(ctx).Err(); lastErr == nil {
			return client, nil
		}
		_ = client.Close()

		select {
		case <-ctx.Done():
			return nil, errors.Join(lastErr, ctx.Err())
		case <-time.After(time.Duration(i+1) * time.Second):
		}
	}
	return nil, fmt.Errorf("connect redis: %w", lastErr)
}

func (r *Redis) Range(ctx context.Context, set category.StorageSet, reverse bool, start, stop int) ([]int64, error) {
	keys := set.Keys()
	if len(keys) == 0 {
		return nil, ErrEmptySet
	}
	if emptyWindow(start, stop) {
		return []int64{}, nil
	}
	if len(keys) == 1 {
		return r.rangeKey(ctx, keys[0], reverse, start, stop)
	}

	// Intersect into a short-lived key. Filter sets weigh zero so members
	// keep the base set's score.
	tmp := "tmp:intersect:" + uuid.NewString()
	weights := make([]float64, len(keys))
	weights[0] = 1

	var rangeCmd *redis.StringSliceCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZInterStore(ctx, tmp, &redis.ZStore{Keys: keys, Weights: weights, Aggregate: "SUM"})
		pipe.Expire(ctx, tmp, tempKeyTTL)
		if reverse {
			rangeCmd = pipe.ZRevRange(ctx, tmp, int64(start), int64(stop))
		} else {
			rangeCmd = pipe.ZRange(ctx, tmp, int64(start), int64(stop))
		}
		pipe.Del(ctx, tmp)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("intersect %s: %w", set, err)
	}
	return parseIDs(rangeCmd.Val())
}

func (r *Redis) rangeKey(ctx context.Context, key string, reverse bool, start, stop int) ([]int64, error) {
	var members []string
	var err error
	if reverse {
		members, err = r.client.ZRevRange(ctx, key, int64(start), int64(stop)).Result()
	} else {
		members, err = r.client.ZRange(ctx, key, int64(start), int64(stop)).Result()
	}
	if err != nil {
		return nil, fmt.Errorf("range %s: %w", key, err)
	}
	return parseIDs(members)
}

func (r *Redis) Add(ctx context.Context, key string, score float64, tid int64) error {
	return r.client.ZAdd(ctx, key, redis.Z{Score: score, Member: member(tid)}).Err()
}

// Clear deletes every category and tag topic set.
func (r *Redis) Clear(ctx context.Context) error {
	for _, pattern := range []string{"cid:*:tids*", "tag:*:topics"} {
		iter := r.client.Scan(ctx, 0, pattern, 500).Iterator()
		var batch []string
		for iter.Next(ctx) {
			batch = append(batch, iter.Val())
			if len(batch) == 500 {
				if err := r.client.Del(ctx, batch...).Err(); err != nil {
					return err
				}
				batch = batch[:0]
			}
		}
		if err := iter.Err(); err != nil {
			return err
		}
		if len(batch) > 0 {
			if err := r.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
		}
	}
	return nil
}

// member zero-pads tid so Redis, which breaks score ties lexicographically,
// orders tied members by tid like the SQL index does.
func member(tid int64) string {
	return fmt.Sprintf("%020d", tid)
}

func parseIDs(members []string) ([]int64, error) {
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("topic set member %q: %w", m, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
