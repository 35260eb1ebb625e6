package leveling

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
	lru "github.com/hashicorp/golang-lru"
)

const cooldownCacheSize = 4096

// CooldownCache rate-limits XP grants per user. It is purely in-memory and
// resets on restart, which the leveling rules accept.
type CooldownCache struct {
	window time.Duration
	cache  *lru.Cache
}

func NewCooldownCache(window time.Duration) (*CooldownCache, error) {
	cache, err := lru.New(cooldownCacheSize)
	if err != nil {
		return nil, err
	}
	return &CooldownCache{window: window, cache: cache}, nil
}

// Allow reports whether the user is past their cooldown window and, if so,
// starts a new one.
func (c *CooldownCache) Allow(userID snowflake.ID, now time.Time) bool {
	if v, ok := c.cache.Get(userID); ok {
		if last, ok := v.(time.Time); ok && now.Sub(last) < c.window {
			return false
		}
	}
	c.cache.Add(userID, now)
	return true
}
