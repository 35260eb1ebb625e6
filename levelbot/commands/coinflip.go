package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/shorbot/levelbot/levelbot"
	"github.com/shorbot/levelbot/levelbot/economy/gamble"
	"github.com/shorbot/levelbot/levelbot/utils"
)

var Coinflip = discord.SlashCommandCreate{
	Name:        "coinflip",
	Description: "🪙 Risk your XP for a chance to win more!",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionInt{
			Name:        "amount",
			Description: "How much XP to wager (max 1000)",
			Required:    true,
		},
		discord.ApplicationCommandOptionString{
			Name:        "face",
			Description: "Heads or tails",
			Required:    true,
			Choices: []discord.ApplicationCommandOptionChoiceString{
				{Name: "Heads", Value: "heads"},
				{Name: "Tails", Value: "tails"},
			},
		},
	},
}

func CoinflipHandler(b *levelbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		if !inChannel(e, b.Cfg.Channels.Commands) {
			return utils.EH.CreateEphemeralError(e, fmt.Sprintf("Gambling goes in <#%d>.", b.Cfg.Channels.Commands))
		}

		data := e.SlashCommandInteractionData()
		amount := float64(data.Int("amount"))
		face := data.String("face")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		res, err := b.Coinflip.Play(ctx, e.User().ID, e.User().Username, face, amount)
		var cooldown *gamble.CooldownError
		switch {
		case err == nil:
		case errors.Is(err, gamble.ErrBadWager):
			return utils.EH.CreateEphemeralError(e, err.Error())
		case errors.Is(err, gamble.ErrNotEnoughXP):
			return utils.EH.CreateEphemeralError(e, "You don't have enough XP.")
		case errors.As(err, &cooldown):
			unlock := time.Now().Add(cooldown.Remaining).Unix()
			return utils.EH.CreateEphemeralError(e, fmt.Sprintf("You are on cooldown! You can gamble again <t:%d:R>.", unlock))
		default:
			return utils.EH.CreateErrorEmbed(e, "The coin rolled off the table. Please try again later.")
		}

		var builder *discord.EmbedBuilder
		switch res.Outcome {
		case gamble.OutcomeWin:
			builder = discord.NewEmbedBuilder().
				SetTitle("You won the flip!").
				SetDescription(fmt.Sprintf("The coin landed on **%s**!", res.Landed)).
				SetColor(utils.SuccessColor).
				AddField("Bet", formatXP(res.Wager), true).
				AddField("Result", "+"+formatXP(res.Delta)+" XP", true).
				AddField("Balance", formatXP(res.Balance), true)
		case gamble.OutcomeJackpot:
			builder = discord.NewEmbedBuilder().
				SetTitle("JACKPOT!").
				SetDescription("The coin landed on its edge. Nobody wins, nobody loses.").
				SetColor(utils.WarningColor)
		default:
			builder = discord.NewEmbedBuilder().
				SetTitle("You lost the flip!").
				SetDescription(fmt.Sprintf("The coin landed on **%s**. Better luck next time!", res.Landed)).
				SetColor(utils.ErrorColor).
				AddField("Bet", formatXP(res.Wager), true).
				AddField("Result", formatXP(res.Delta)+" XP", true).
				AddField("Balance", formatXP(res.Balance), true)
		}
		builder.SetAuthorName("Coinflip")

		return e.CreateMessage(discord.MessageCreate{Embeds: []discord.Embed{builder.Build()}})
	}
}
