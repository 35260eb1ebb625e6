package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Item is one entry of a user's item map. Boosters use Active/TimeActivated
// for their running state; the custom role pass additionally remembers the
// Discord role it created so a re-run of /customrole edits instead of
// duplicating.
type Item struct {
	Amount        int        `json:"amount"`
	Active        int        `json:"active"`
	TimeActivated *time.Time `json:"timeActivated"`
	RoleID        string     `json:"roleId,omitempty"`
}

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID        int64  `bun:"id,pk,autoincrement"`
	DiscordID string `bun:"discord_id,notnull,unique"`

	// CurrentXP is the spendable balance, TotalXP the lifetime counter the
	// level is derived from. Grants are rounded to 2 decimals, so both are
	// stored as doubles.
	CurrentXP float64 `bun:"current_xp,notnull,default:0"`
	TotalXP   float64 `bun:"total_xp,notnull,default:0"`
	Level     int     `bun:"level,notnull,default:0"`

	// MessageCount is the weekly counter, zeroed on week rollover.
	MessageCount int `bun:"message_count,notnull,default:0"`

	LastUsername    string     `bun:"last_username"`
	LastMessageTime *time.Time `bun:"last_message_time"`
	LastGambleTime  *time.Time `bun:"last_gamble_time"`

	// Roles maps shop role keys to ownership, Items maps item keys to their
	// quantity/activation state. Both live as JSONB documents, mirroring the
	// legacy store layout.
	Roles map[string]bool `bun:"roles,type:jsonb"`
	Items map[string]Item `bun:"items,type:jsonb"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// WeekMarker is a single-row table holding the ISO year-week string used to
// detect week boundaries for the weekly message counters.
type WeekMarker struct {
	bun.BaseModel `bun:"table:week_marker,alias:wm"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Week      string    `bun:"week,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}
