package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Auction struct {
	bun.BaseModel `bun:"table:auctions,alias:a"`

	ID        int64  `bun:"id,pk,autoincrement"`
	AuctionID string `bun:"auction_id,notnull,unique"`

	ItemType    string  `bun:"item_type,notnull"`
	StartingBid float64 `bun:"starting_bid,notnull"`

	// HighestBid is 0 and HighestBidder empty until the first bid lands.
	HighestBid    float64 `bun:"highest_bid,notnull,default:0"`
	HighestBidder string  `bun:"highest_bidder"`

	EndTime   time.Time `bun:"end_time,notnull"`
	StartedBy string    `bun:"started_by,notnull"`

	// Announcement message, edited in place on every accepted bid.
	MessageID string `bun:"message_id"`
	ChannelID string `bun:"channel_id"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}
