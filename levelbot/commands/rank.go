package commands

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/shorbot/levelbot/levelbot"
	"github.com/shorbot/levelbot/levelbot/database/models"
	"github.com/shorbot/levelbot/levelbot/leveling"
	"github.com/shorbot/levelbot/levelbot/services"
	"github.com/shorbot/levelbot/levelbot/utils"
)

var Rank = discord.SlashCommandCreate{
	Name:        "rank",
	Description: "📊 View your level, XP and server rank",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionUser{
			Name:        "user",
			Description: "Whose rank to show (defaults to you)",
		},
		discord.ApplicationCommandOptionString{
			Name:        "background",
			Description: "Background image for the rank card",
		},
	},
}

func RankHandler(b *levelbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		data := e.SlashCommandInteractionData()

		target := e.User()
		if u, ok := data.OptUser("user"); ok {
			target = u
		}

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		user, err := b.UserRepository.GetOrCreate(ctx, target.ID.String())
		if err != nil {
			return utils.EH.CreateErrorEmbed(e, "Failed to fetch rank data. Please try again later.")
		}

		ahead, err := b.UserRepository.CountWithMoreXP(ctx, user.TotalXP)
		if err != nil {
			return utils.EH.CreateErrorEmbed(e, "Failed to fetch rank data. Please try again later.")
		}
		position := ahead + 1

		gained, span := leveling.ProgressInLevel(user.TotalXP, user.Level)
		percent := 0
		if span > 0 {
			percent = int(gained / float64(span) * 100)
		}
		if percent > 100 {
			percent = 100
		}

		if b.RankCards != nil && b.RankCards.Available() {
			if err := e.DeferCreateMessage(false); err != nil {
				return err
			}
			background := ""
			if name, ok := data.OptString("background"); ok && b.Backgrounds != nil {
				if url, resolveErr := b.Backgrounds.Resolve(ctx, name); resolveErr == nil {
					background = url
				}
			}

			card, renderErr := b.RankCards.Generate(ctx, buildRankCardData(target.Username, user, position, percent, background))
			if renderErr == nil {
				_, err = e.UpdateInteractionResponse(discord.MessageUpdate{
					Files: []*discord.File{discord.NewFile("rank.png", "", bytes.NewReader(card))},
				})
				return err
			}
			// Rendering failed, fall back to the embed.
			_, err = e.UpdateInteractionResponse(discord.MessageUpdate{
				Embeds: &[]discord.Embed{rankEmbed(target.Username, user, position, percent)},
			})
			return err
		}

		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{rankEmbed(target.Username, user, position, percent)},
		})
	}
}

func buildRankCardData(username string, user *models.User, position, percent int, background string) services.RankCardData {
	letter := "?"
	if runes := []rune(username); len(runes) > 0 {
		letter = strings.ToUpper(string(runes[0]))
	}
	return services.RankCardData{
		Username:        username,
		AvatarLetter:    letter,
		Level:           user.Level,
		Rank:            position,
		CurrentXP:       formatXP(user.CurrentXP),
		TotalXP:         formatXP(user.TotalXP),
		ProgressPercent: percent,
		NextLevelXP:     fmt.Sprintf("%d", leveling.XPForNextLevel(user.Level)),
		BackgroundImage: background,
	}
}

func rankEmbed(username string, user *models.User, position, percent int) discord.Embed {
	barLength := 12
	filled := percent * barLength / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barLength-filled)

	return discord.NewEmbedBuilder().
		SetTitle(fmt.Sprintf("📊 %s", username)).
		SetColor(utils.InfoColor).
		AddField("Rank", fmt.Sprintf("#%d", position), true).
		AddField("Level", fmt.Sprintf("%d", user.Level), true).
		AddField("Messages", fmt.Sprintf("%d this week", user.MessageCount), true).
		AddField("Progress", fmt.Sprintf("`%s` %d%%", bar, percent), false).
		AddField("XP Balance", formatXP(user.CurrentXP), true).
		AddField("Lifetime XP", formatXP(user.TotalXP), true).
		Build()
}
