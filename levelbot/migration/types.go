package migration

import "time"

// LegacyItem mirrors one entry of the old document store's per-user item map.
type LegacyItem struct {
	Amount        int        `bson:"amount"`
	Active        int        `bson:"active"`
	TimeActivated *time.Time `bson:"time_activated"`
	RoleID        string     `bson:"role_id"`
}

// LegacyUser is a user document as the old bot stored it. The document key
// doubles as the Discord ID, so exports carry it in _id.
type LegacyUser struct {
	ID              string                `bson:"_id"`
	XP              float64               `bson:"xp"`
	TotalXP         float64               `bson:"total_xp"`
	Level           int                   `bson:"level"`
	Messages        int                   `bson:"messages"`
	LastUsername    string                `bson:"last_username"`
	LastMessageTime *time.Time            `bson:"last_message_time"`
	LastGambleTime  *time.Time            `bson:"last_gamble_time"`
	Roles           map[string]bool       `bson:"roles"`
	Items           map[string]LegacyItem `bson:"items"`
}

// LegacyMeta holds the old store's singleton bookkeeping documents, keyed by
// _id. The only one we care about is "weekly" with its week string.
type LegacyMeta struct {
	ID   string `bson:"_id"`
	Week string `bson:"week"`
}
