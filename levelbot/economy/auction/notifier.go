package auction

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/shorbot/levelbot/levelbot/database/models"
)

const embedColor = 0x2b2d31

// Notifier owns every outward-facing auction message: the announcement
// embed in the auction channel, which is edited in place as bids come in,
// and the DMs for outbid bidders and winners.
type Notifier struct {
	client    bot.Client
	channelID snowflake.ID
}

func NewNotifier(client bot.Client, channelID snowflake.ID) *Notifier {
	return &Notifier{client: client, channelID: channelID}
}

func buildEmbed(a *models.Auction, status string) discord.Embed {
	builder := discord.NewEmbedBuilder().
		SetTitle(fmt.Sprintf("🏛️ Auction %s | %s", a.AuctionID, itemDisplayName(a.ItemType))).
		SetColor(embedColor).
		AddField("Starting Bid", fmt.Sprintf("%.0f XP", a.StartingBid), true).
		SetFooter(fmt.Sprintf("Started by %s • Bid with /bid %s <amount>", a.StartedBy, a.AuctionID), "").
		SetTimestamp(a.EndTime)

	if a.HighestBidder != "" {
		builder.AddField("Highest Bid", fmt.Sprintf("%.0f XP by <@%s>", a.HighestBid, a.HighestBidder), true)
	} else {
		builder.AddField("Highest Bid", "No bids yet", true)
	}
	builder.AddField("Ends", fmt.Sprintf("<t:%d:R>", a.EndTime.Unix()), true)

	if status != "" {
		builder.SetDescription(status)
	}
	return builder.Build()
}

// Announce posts the auction embed and returns the message so its id can be
// stored for later edits.
func (n *Notifier) Announce(ctx context.Context, a *models.Auction) (*discord.Message, error) {
	return n.client.Rest().CreateMessage(n.channelID, discord.MessageCreate{
		Embeds: []discord.Embed{buildEmbed(a, "")},
	}, rest.WithCtx(ctx))
}

// Refresh edits the announcement embed in place after a bid.
func (n *Notifier) Refresh(ctx context.Context, a *models.Auction) {
	n.edit(ctx, a, buildEmbed(a, ""))
}

// AnnounceEnd rewrites the announcement with the final outcome.
func (n *Notifier) AnnounceEnd(ctx context.Context, a *models.Auction) {
	var status string
	if a.HighestBidder != "" {
		status = fmt.Sprintf("🏁 **Sold!** <@%s> won **%s** for **%.0f XP**.", a.HighestBidder, itemDisplayName(a.ItemType), a.HighestBid)
	} else {
		status = "🏁 **Ended with no bids.**"
	}
	n.edit(ctx, a, buildEmbed(a, status))
}

// AnnounceCancel rewrites the announcement after a cancellation.
func (n *Notifier) AnnounceCancel(ctx context.Context, a *models.Auction) {
	n.edit(ctx, a, buildEmbed(a, "🚫 **Cancelled.** The highest bid has been refunded."))
}

func (n *Notifier) edit(ctx context.Context, a *models.Auction, embed discord.Embed) {
	if a.MessageID == "" || a.ChannelID == "" {
		return
	}
	channelID, err1 := snowflake.Parse(a.ChannelID)
	messageID, err2 := snowflake.Parse(a.MessageID)
	if err1 != nil || err2 != nil {
		return
	}
	if _, err := n.client.Rest().UpdateMessage(channelID, messageID, discord.MessageUpdate{
		Embeds: &[]discord.Embed{embed},
	}, rest.WithCtx(ctx)); err != nil {
		slog.Error("Failed to update auction message",
			slog.String("auction_id", a.AuctionID),
			slog.String("error", err.Error()))
	}
}

// NotifyOutbid DMs a bidder whose escrow was just refunded.
func (n *Notifier) NotifyOutbid(ctx context.Context, a *models.Auction, outbidID string, refunded float64) {
	n.dm(ctx, outbidID, discord.NewEmbedBuilder().
		SetTitle("🏛️ You have been outbid").
		SetDescription(fmt.Sprintf("Someone outbid you on auction **%s** (%s). Your **%.0f XP** has been refunded.",
			a.AuctionID, itemDisplayName(a.ItemType), refunded)).
		SetColor(embedColor).
		Build())
}

// NotifyWinner DMs the winning bidder once the auction settles.
func (n *Notifier) NotifyWinner(ctx context.Context, a *models.Auction) {
	n.dm(ctx, a.HighestBidder, discord.NewEmbedBuilder().
		SetTitle("🏛️ Auction Won!").
		SetDescription(fmt.Sprintf("You won auction **%s** and received **%s** for **%.0f XP**!",
			a.AuctionID, itemDisplayName(a.ItemType), a.HighestBid)).
		SetColor(embedColor).
		SetTimestamp(time.Now()).
		Build())
}

func (n *Notifier) dm(ctx context.Context, discordID string, embed discord.Embed) {
	userID, err := snowflake.Parse(discordID)
	if err != nil {
		return
	}
	dmChannel, err := n.client.Rest().CreateDMChannel(userID, rest.WithCtx(ctx))
	if err != nil {
		slog.Error("Failed to create DM channel",
			slog.String("user_id", discordID),
			slog.String("error", err.Error()))
		return
	}
	if _, err := n.client.Rest().CreateMessage(dmChannel.ID(), discord.MessageCreate{
		Embeds: []discord.Embed{embed},
	}, rest.WithCtx(ctx)); err != nil {
		slog.Error("Failed to send DM",
			slog.String("user_id", discordID),
			slog.String("error", err.Error()))
	}
}
