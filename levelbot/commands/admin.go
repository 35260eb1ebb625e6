package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/shorbot/levelbot/levelbot"
	"github.com/shorbot/levelbot/levelbot/utils"
)

var AddXP = discord.SlashCommandCreate{
	Name:        "addxp",
	Description: "➕ Grant XP to a user (admins only)",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionUser{
			Name:        "user",
			Description: "Who receives the XP",
			Required:    true,
		},
		discord.ApplicationCommandOptionInt{
			Name:        "amount",
			Description: "How much XP to grant",
			Required:    true,
			MinValue:    intPtr(1),
		},
	},
}

var RemoveXP = discord.SlashCommandCreate{
	Name:        "removexp",
	Description: "➖ Take XP from a user's balance (admins only)",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionUser{
			Name:        "user",
			Description: "Whose balance to debit",
			Required:    true,
		},
		discord.ApplicationCommandOptionInt{
			Name:        "amount",
			Description: "How much XP to take",
			Required:    true,
			MinValue:    intPtr(1),
		},
	},
}

var ResetUser = discord.SlashCommandCreate{
	Name:        "reset",
	Description: "🧹 Reset a user's XP, level and weekly count (admins only)",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionUser{
			Name:        "user",
			Description: "Who to reset",
			Required:    true,
		},
	},
}

func intPtr(v int) *int {
	return &v
}

func AddXPHandler(b *levelbot.Bot) handler.CommandHandler {
	return adminGrantHandler(b, 1)
}

func RemoveXPHandler(b *levelbot.Bot) handler.CommandHandler {
	return adminGrantHandler(b, -1)
}

func adminGrantHandler(b *levelbot.Bot, sign float64) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		if !isAdmin(b, e) {
			return utils.EH.CreateEphemeralError(e, "You don't have permission to use this command.")
		}

		data := e.SlashCommandInteractionData()
		target := data.User("user")
		amount := float64(data.Int("amount")) * sign

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		res, err := b.Engine.GrantXP(ctx, target.ID, target.Username, amount)
		if err != nil {
			return utils.EH.CreateErrorEmbed(e, "Failed to adjust XP. Please try again later.")
		}

		msg := fmt.Sprintf("Granted **%s XP** to <@%d>.", formatXP(amount), target.ID)
		if sign < 0 {
			msg = fmt.Sprintf("Took **%s XP** from <@%d>.", formatXP(-amount), target.ID)
		}
		if res.LeveledUp {
			msg += fmt.Sprintf(" They advanced to **level %d**!", res.NewLevel)
		}
		msg += fmt.Sprintf("\nBalance: **%s XP** • Level: **%d**", formatXP(res.User.CurrentXP), res.User.Level)
		return utils.EH.CreateSuccessEmbed(e, msg)
	}
}

func ResetUserHandler(b *levelbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		if !isAdmin(b, e) {
			return utils.EH.CreateEphemeralError(e, "You don't have permission to use this command.")
		}

		target := e.SlashCommandInteractionData().User("user")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := b.UserRepository.Reset(ctx, target.ID.String()); err != nil {
			return utils.EH.CreateErrorEmbed(e, "Failed to reset the user. Please try again later.")
		}
		return utils.EH.CreateSuccessEmbed(e, fmt.Sprintf("Reset <@%d> back to level 0.", target.ID))
	}
}
