package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/shorbot/levelbot/levelbot"
	"github.com/shorbot/levelbot/levelbot/database/repositories"
	"github.com/shorbot/levelbot/levelbot/economy/auction"
	"github.com/shorbot/levelbot/levelbot/utils"
)

var StartAuction = discord.SlashCommandCreate{
	Name:        "startauction",
	Description: "🏛️ Start an auction (auctioneers only)",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:        "item",
			Description: "What to auction",
			Required:    true,
			Choices: []discord.ApplicationCommandOptionChoiceString{
				{Name: "Special Role 1", Value: string(auction.PrizeSpecialRole1)},
				{Name: "Special Role 2", Value: string(auction.PrizeSpecialRole2)},
				{Name: "Custom Role Pass", Value: string(auction.PrizeCustomRolePass)},
				{Name: "Large Booster", Value: string(auction.PrizeLargeBooster)},
			},
		},
		discord.ApplicationCommandOptionInt{
			Name:        "duration",
			Description: "Auction length in hours (1-72)",
			Required:    true,
		},
		discord.ApplicationCommandOptionInt{
			Name:        "starting_bid",
			Description: "Starting bid in XP (default 10000)",
		},
	},
}

var Bid = discord.SlashCommandCreate{
	Name:        "bid",
	Description: "💰 Bid on an auction",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:        "auction",
			Description: "The auction id, e.g. K3QX",
			Required:    true,
		},
		discord.ApplicationCommandOptionInt{
			Name:        "amount",
			Description: "Your total bid in XP",
			Required:    true,
		},
	},
}

var Auctions = discord.SlashCommandCreate{
	Name:        "auctions",
	Description: "🏛️ List the currently open auctions",
}

var CancelAuction = discord.SlashCommandCreate{
	Name:        "cancelauction",
	Description: "🚫 Cancel an auction and refund the highest bid (auctioneers only)",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:        "auction",
			Description: "The auction id to cancel",
			Required:    true,
		},
	},
}

func StartAuctionHandler(b *levelbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		if !isAuctioneer(b, e) {
			return utils.EH.CreateEphemeralError(e, "You don't have permission to start auctions.")
		}

		data := e.SlashCommandInteractionData()
		prize, ok := auction.ParsePrize(data.String("item"))
		if !ok {
			return utils.EH.CreateEphemeralError(e, "That item can't be auctioned.")
		}
		duration := time.Duration(data.Int("duration")) * time.Hour
		startingBid := float64(0)
		if v, ok := data.OptInt("starting_bid"); ok {
			startingBid = float64(v)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		a, err := b.AuctionManager.Create(ctx, prize, startingBid, duration, e.User().Username)
		if err != nil {
			return utils.EH.CreateErrorEmbed(e, "Failed to start the auction. Please try again later.")
		}

		return utils.EH.CreateSuccessEmbed(e, fmt.Sprintf("Auction **%s** is live! Bidding starts at **%s XP** and ends <t:%d:R>.",
			a.AuctionID, formatXP(a.StartingBid), a.EndTime.Unix()))
	}
}

func BidHandler(b *levelbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		if !inChannel(e, b.Cfg.Channels.Auction) {
			return utils.EH.CreateEphemeralError(e, fmt.Sprintf("Bids go in <#%d>.", b.Cfg.Channels.Auction))
		}

		data := e.SlashCommandInteractionData()
		auctionID := strings.ToUpper(strings.TrimSpace(data.String("auction")))
		amount := float64(data.Int("amount"))

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		a, err := b.AuctionManager.PlaceBid(ctx, auctionID, e.User().ID.String(), amount)
		switch {
		case err == nil:
		case errors.Is(err, repositories.ErrAuctionNotFound):
			return utils.EH.CreateEphemeralError(e, fmt.Sprintf("No auction **%s** found. See `/auctions`.", auctionID))
		case errors.Is(err, auction.ErrAuctionEnded):
			return utils.EH.CreateEphemeralError(e, "That auction has already ended.")
		case errors.Is(err, auction.ErrBidTooLow), errors.Is(err, auction.ErrInsufficientFunds):
			return utils.EH.CreateEphemeralError(e, err.Error())
		default:
			return utils.EH.CreateErrorEmbed(e, "Failed to place your bid. Please try again later.")
		}

		return utils.EH.CreateSuccessEmbed(e, fmt.Sprintf("You are the highest bidder on **%s** with **%s XP**!", a.AuctionID, formatXP(a.HighestBid)))
	}
}

func AuctionsHandler(b *levelbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		active, err := b.AuctionManager.Active(ctx)
		if err != nil {
			return utils.EH.CreateErrorEmbed(e, "Failed to list auctions. Please try again later.")
		}
		if len(active) == 0 {
			return utils.EH.CreateInfoEmbed(e, "No auctions are running right now.")
		}

		builder := discord.NewEmbedBuilder().
			SetTitle("🏛️ Open Auctions").
			SetColor(utils.NeutralColor)
		for _, a := range active {
			bid := "No bids yet"
			if a.HighestBidder != "" {
				bid = fmt.Sprintf("%s XP by <@%s>", formatXP(a.HighestBid), a.HighestBidder)
			}
			builder.AddField(
				fmt.Sprintf("%s — %s", a.AuctionID, auction.DisplayName(a.ItemType)),
				fmt.Sprintf("Starting bid: %s XP\nHighest: %s\nEnds <t:%d:R>", formatXP(a.StartingBid), bid, a.EndTime.Unix()),
				false,
			)
		}
		return e.CreateMessage(discord.MessageCreate{Embeds: []discord.Embed{builder.Build()}})
	}
}

func CancelAuctionHandler(b *levelbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		if !isAuctioneer(b, e) {
			return utils.EH.CreateEphemeralError(e, "You don't have permission to cancel auctions.")
		}

		auctionID := strings.ToUpper(strings.TrimSpace(e.SlashCommandInteractionData().String("auction")))

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := b.AuctionManager.Cancel(ctx, auctionID); err != nil {
			if errors.Is(err, repositories.ErrAuctionNotFound) {
				return utils.EH.CreateEphemeralError(e, fmt.Sprintf("No auction **%s** found.", auctionID))
			}
			return utils.EH.CreateErrorEmbed(e, "Failed to cancel the auction. Please try again later.")
		}
		return utils.EH.CreateSuccessEmbed(e, fmt.Sprintf("Auction **%s** cancelled. The highest bid was refunded.", auctionID))
	}
}
