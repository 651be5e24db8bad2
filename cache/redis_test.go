package cache

import (
	"testing"
)

func TestNewRedisCachePanicsOnNilClient(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewRedisCache should panic with nil redis client")
		}
	}()
	NewRedisCache(nil, 0)
}

func TestRedisKeyPrefix(t *testing.T) {
	c := &RedisCache{}
	if got := c.redisKey("abc123"); got != "dataio:abc123" {
		t.Fatalf("unexpected key: %s", got)
	}
}
