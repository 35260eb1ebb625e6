package commands

import (
	"strconv"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/snowflake/v2"
	"github.com/shorbot/levelbot/levelbot"
	"github.com/shorbot/levelbot/levelbot/handlers"
)

var Commands = []discord.ApplicationCommandCreate{
	Rank,
	Leaderboard,
	WeeklyLeaderboard,
	Shop,
	Buy,
	Inventory,
	Use,
	Equip,
	Unequip,
	CustomRole,
	StartAuction,
	Bid,
	Auctions,
	CancelAuction,
	Coinflip,
	AddXP,
	RemoveXP,
	ResetUser,
	Help,
}

// Register wires every command handler into the router.
func Register(h handler.Router, b *levelbot.Bot) {
	h.Command("/rank", handlers.WrapWithLogging("rank", RankHandler(b)))
	h.Command("/leaderboard", handlers.WrapWithLogging("leaderboard", LeaderboardHandler(b)))
	h.Command("/weeklylb", handlers.WrapWithLogging("weeklylb", WeeklyLeaderboardHandler(b)))
	h.Command("/shop", handlers.WrapWithLogging("shop", ShopHandler(b)))
	h.Command("/buy", handlers.WrapWithLogging("buy", BuyHandler(b)))
	h.Command("/inventory", handlers.WrapWithLogging("inventory", InventoryHandler(b)))
	h.Command("/use", handlers.WrapWithLogging("use", UseHandler(b)))
	h.Command("/equip", handlers.WrapWithLogging("equip", EquipHandler(b)))
	h.Command("/unequip", handlers.WrapWithLogging("unequip", UnequipHandler(b)))
	h.Command("/customrole", handlers.WrapWithLogging("customrole", CustomRoleHandler(b)))
	h.Command("/startauction", handlers.WrapWithLogging("startauction", StartAuctionHandler(b)))
	h.Command("/bid", handlers.WrapWithLogging("bid", BidHandler(b)))
	h.Command("/auctions", handlers.WrapWithLogging("auctions", AuctionsHandler(b)))
	h.Command("/cancelauction", handlers.WrapWithLogging("cancelauction", CancelAuctionHandler(b)))
	h.Command("/coinflip", handlers.WrapWithLogging("coinflip", CoinflipHandler(b)))
	h.Command("/addxp", handlers.WrapWithLogging("addxp", AddXPHandler(b)))
	h.Command("/removexp", handlers.WrapWithLogging("removexp", RemoveXPHandler(b)))
	h.Command("/reset", handlers.WrapWithLogging("reset", ResetUserHandler(b)))
	h.Command("/help", handlers.WrapWithLogging("help", HelpHandler(b)))
}

func hasAnyRole(memberRoles []snowflake.ID, allowed []snowflake.ID) bool {
	for _, have := range memberRoles {
		for _, want := range allowed {
			if have == want {
				return true
			}
		}
	}
	return false
}

// isAdmin allows guild administrators plus any configured admin role.
func isAdmin(b *levelbot.Bot, e *handler.CommandEvent) bool {
	member := e.Member()
	if member == nil {
		return false
	}
	if member.Permissions.Has(discord.PermissionAdministrator) {
		return true
	}
	return hasAnyRole(member.RoleIDs, b.Cfg.Roles.Admin)
}

// isAuctioneer allows admins plus any configured auctioneer role.
func isAuctioneer(b *levelbot.Bot, e *handler.CommandEvent) bool {
	if isAdmin(b, e) {
		return true
	}
	member := e.Member()
	if member == nil {
		return false
	}
	return hasAnyRole(member.RoleIDs, b.Cfg.Roles.Auctioneer)
}

// inChannel reports whether the command ran in the configured channel. A
// zero id means the restriction is off.
func inChannel(e *handler.CommandEvent, want snowflake.ID) bool {
	return want == 0 || e.ChannelID() == want
}

// formatXP renders an XP amount without trailing decimal noise.
func formatXP(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
