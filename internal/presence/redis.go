package presence

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// The counter and the online set change together inside one script, so two
// nodes racing on the same user still see a single transition.
var connectScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
	redis.call('SADD', KEYS[2], ARGV[1])
	return 1
end
return 0
`)

var disconnectScript = redis.NewScript(`
local n = tonumber(redis.call('GET', KEYS[1]) or '0')
if n <= 0 then
	return 0
end
if n == 1 then
	redis.call('DEL', KEYS[1])
	redis.call('SREM', KEYS[2], ARGV[1])
	return 1
end
redis.call('DECR', KEYS[1])
return 0
`)

type redisTracker struct {
	client *redis.Client
	prefix string
}

// NewRedisTracker shares presence between gateway nodes. Keys are
// <prefix>:conn:<user id> and <prefix>:online.
func NewRedisTracker(client *redis.Client, prefix string) Tracker {
	if prefix == "" {
		prefix = "presence"
	}
	return &redisTracker{client: client, prefix: prefix}
}

func (t *redisTracker) connKey(userID int64) string {
	return fmt.Sprintf("%s:conn:%d", t.prefix, userID)
}

func (t *redisTracker) onlineKey() string {
	return t.prefix + ":online"
}

func (t *redisTracker) Connect(ctx context.Context, userID int64) (bool, error) {
	n, err := connectScript.Run(ctx, t.client, []string{t.connKey(userID), t.onlineKey()}, userID).Int()
	if err != nil {
		return false, fmt.Errorf("presence connect: %w", err)
	}
	return n == 1, nil
}

func (t *redisTracker) Disconnect(ctx context.Context, userID int64) (bool, error) {
	n, err := disconnectScript.Run(ctx, t.client, []string{t.connKey(userID), t.onlineKey()}, userID).Int()
	if err != nil {
		return false, fmt.Errorf("presence disconnect: %w", err)
	}
	return n == 1, nil
}

func (t *redisTracker) OnlineUserIDs(ctx context.Context) ([]int64, error) {
	members, err := t.client.SMembers(ctx, t.onlineKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("presence members: %w", err)
	}

	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
