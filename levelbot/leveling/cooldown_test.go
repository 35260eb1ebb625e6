package leveling

import (
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

func TestCooldownCacheAllow(t *testing.T) {
	c, err := NewCooldownCache(time.Minute)
	if err != nil {
		t.Fatalf("NewCooldownCache() error = %v", err)
	}

	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	user := snowflake.ID(1)

	if !c.Allow(user, base) {
		t.Error("first message should be allowed")
	}
	if c.Allow(user, base.Add(30*time.Second)) {
		t.Error("message inside the window should be blocked")
	}
	if !c.Allow(user, base.Add(time.Minute)) {
		t.Error("message at the window edge should be allowed")
	}
	if !c.Allow(snowflake.ID(2), base) {
		t.Error("other users are tracked independently")
	}
}
