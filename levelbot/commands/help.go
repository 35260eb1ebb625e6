package commands

import (
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/shorbot/levelbot/levelbot"
	"github.com/shorbot/levelbot/levelbot/utils"
)

var Help = discord.SlashCommandCreate{
	Name:        "help",
	Description: "📖 How the bot works and what every command does",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:        "command",
			Description: "A command to explain in detail",
			Required:    false,
		},
	},
}

type helpTopic struct {
	name     string
	category string
	usage    string
	summary  string
	notes    string
}

var helpCategories = []struct {
	name  string
	blurb string
}{
	{"Leveling", "View your rank, level, and compete on the leaderboards"},
	{"Shop", "Buy roles, boosters, and special items with your XP"},
	{"Custom Roles", "Create and customize your own unique role"},
	{"Auctions", "Bid on exclusive items and special roles"},
	{"Gambling", "Wager XP on a coinflip"},
}

var helpTopics = []helpTopic{
	{
		name:     "rank",
		category: "Leveling",
		usage:    "/rank",
		summary:  "View your rank card with level, XP progress, and stats.",
	},
	{
		name:     "leaderboard",
		category: "Leveling",
		usage:    "/leaderboard",
		summary:  "View the top users on the server by total XP.",
	},
	{
		name:     "weeklylb",
		category: "Leveling",
		usage:    "/weeklylb",
		summary:  "View the most active users this week by message count.",
	},
	{
		name:     "shop",
		category: "Shop",
		usage:    "/shop",
		summary:  "Browse color roles, special roles, and XP boosters with prices.",
	},
	{
		name:     "buy",
		category: "Shop",
		usage:    "/buy <item>",
		summary:  "Purchase a shop item with your XP.",
		notes:    "Try `/buy Red` for a color role or `/buy tiny` for a 1.1x booster.",
	},
	{
		name:     "inventory",
		category: "Shop",
		usage:    "/inventory",
		summary:  "View your owned items, boosters, and active effects.",
	},
	{
		name:     "use",
		category: "Shop",
		usage:    "/use <item>",
		summary:  "Activate a booster or Custom Role Pass from your inventory.",
		notes:    "Only one booster can be active at a time. You'll get a DM when it expires.",
	},
	{
		name:     "equip",
		category: "Shop",
		usage:    "/equip <role>",
		summary:  "Equip a color role you own.",
	},
	{
		name:     "unequip",
		category: "Shop",
		usage:    "/unequip <role>",
		summary:  "Take off an equipped color role.",
	},
	{
		name:     "customrole",
		category: "Custom Roles",
		usage:    "/customrole <name> <color> [icon]",
		summary:  "Create or update your personal role. Needs an active Custom Role Pass.",
		notes:    "Color is hex like `#FF5733`. The icon can be an emoji or an image URL up to 256KB. The role lasts 30 days.",
	},
	{
		name:     "auctions",
		category: "Auctions",
		usage:    "/auctions",
		summary:  "View all currently active auctions and their highest bids.",
	},
	{
		name:     "bid",
		category: "Auctions",
		usage:    "/bid <auction_id> <amount>",
		summary:  "Place or raise a bid on an active auction.",
		notes:    "Your XP is locked while you hold the highest bid and refunded if you are outbid. Raising your own bid only costs the difference.",
	},
	{
		name:     "coinflip",
		category: "Gambling",
		usage:    "/coinflip <wager>",
		summary:  "Flip a coin. Win and your wager pays out five times over.",
	},
}

func findHelpTopic(name string) (helpTopic, bool) {
	name = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "/"))
	for _, t := range helpTopics {
		if t.name == name {
			return t, true
		}
	}
	return helpTopic{}, false
}

func topicsInCategory(category string) []helpTopic {
	var out []helpTopic
	for _, t := range helpTopics {
		if t.category == category {
			out = append(out, t)
		}
	}
	return out
}

func HelpHandler(_ *levelbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		data := e.SlashCommandInteractionData()
		if name, ok := data.OptString("command"); ok {
			topic, found := findHelpTopic(name)
			if !found {
				return utils.EH.CreateEphemeralError(e, fmt.Sprintf("No command named **%s**. Use `/help` to see them all.", name))
			}
			embed := discord.NewEmbedBuilder().
				SetTitle(fmt.Sprintf("📖 %s", topic.usage)).
				SetDescription(topic.summary).
				SetColor(utils.InfoColor)
			if topic.notes != "" {
				embed.AddField("Notes", topic.notes, false)
			}
			return e.CreateMessage(discord.MessageCreate{
				Embeds: []discord.Embed{embed.Build()},
				Flags:  discord.MessageFlagEphemeral,
			})
		}

		embed := discord.NewEmbedBuilder().
			SetTitle("📖 Help Menu").
			SetDescription("Gain XP by chatting, level up, and unlock rewards!\n\nUse `/help <command>` for details on a specific command.").
			SetColor(utils.InfoColor)
		for _, cat := range helpCategories {
			var names []string
			for _, t := range topicsInCategory(cat.name) {
				names = append(names, fmt.Sprintf("`/%s`", t.name))
			}
			embed.AddField(cat.name, fmt.Sprintf("%s\n%s", cat.blurb, strings.Join(names, ", ")), false)
		}
		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{embed.Build()},
			Flags:  discord.MessageFlagEphemeral,
		})
	}
}
