package commands

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/paginator"
	"github.com/shorbot/levelbot/levelbot"
	"github.com/shorbot/levelbot/levelbot/database/models"
	"github.com/shorbot/levelbot/levelbot/leveling"
	"github.com/shorbot/levelbot/levelbot/utils"
)

const (
	leaderboardLimit   = 100
	entriesPerPage     = 10
	leaderboardTimeout = 10 * time.Second
)

var Leaderboard = discord.SlashCommandCreate{
	Name:        "leaderboard",
	Description: "🏆 The server's top chatters by lifetime XP",
}

var WeeklyLeaderboard = discord.SlashCommandCreate{
	Name:        "weeklylb",
	Description: "📅 This week's most active chatters",
}

func LeaderboardHandler(b *levelbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), leaderboardTimeout)
		defer cancel()

		users, err := b.UserRepository.GetTopByTotalXP(ctx, leaderboardLimit)
		if err != nil {
			return utils.EH.CreateErrorEmbed(e, "Failed to fetch the leaderboard. Please try again later.")
		}
		return createLeaderboardPaginator(b, e, "🏆 XP Leaderboard", users, func(u *models.User) string {
			return fmt.Sprintf("Level %d • %s XP", u.Level, formatXP(u.TotalXP))
		})
	}
}

func WeeklyLeaderboardHandler(b *levelbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), leaderboardTimeout)
		defer cancel()

		users, err := b.UserRepository.GetTopByMessageCount(ctx, leaderboardLimit)
		if err != nil {
			return utils.EH.CreateErrorEmbed(e, "Failed to fetch the weekly leaderboard. Please try again later.")
		}

		week := leveling.WeekMarkerFor(time.Now())
		return createLeaderboardPaginator(b, e, fmt.Sprintf("📅 Weekly Leaderboard (%s)", week), users, func(u *models.User) string {
			return fmt.Sprintf("%d messages", u.MessageCount)
		})
	}
}

func createLeaderboardPaginator(b *levelbot.Bot, e *handler.CommandEvent, title string, users []*models.User, line func(*models.User) string) error {
	if len(users) == 0 {
		return utils.EH.CreateInfoEmbed(e, "Nobody is on the leaderboard yet. Start chatting!")
	}

	totalPages := int(math.Ceil(float64(len(users)) / float64(entriesPerPage)))

	return b.Paginator.Create(e.Respond, paginator.Pages{
		ID:      e.ID().String(),
		Creator: e.User().ID,
		PageFunc: func(page int, embed *discord.EmbedBuilder) {
			start := page * entriesPerPage
			end := start + entriesPerPage
			if end > len(users) {
				end = len(users)
			}

			description := ""
			for i, u := range users[start:end] {
				medal := fmt.Sprintf("`#%d`", start+i+1)
				switch start + i {
				case 0:
					medal = "🥇"
				case 1:
					medal = "🥈"
				case 2:
					medal = "🥉"
				}
				description += fmt.Sprintf("%s <@%s> — %s\n", medal, u.DiscordID, line(u))
			}

			embed.
				SetTitle(title).
				SetDescription(description).
				SetColor(utils.NeutralColor).
				SetFooter(fmt.Sprintf("Page %d/%d", page+1, totalPages), "")
		},
		Pages:      totalPages,
		ExpireMode: paginator.ExpireModeAfterLastUsage,
	}, false)
}
