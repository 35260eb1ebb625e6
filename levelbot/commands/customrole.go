package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/shorbot/levelbot/levelbot"
	"github.com/shorbot/levelbot/levelbot/economy/customrole"
	"github.com/shorbot/levelbot/levelbot/utils"
)

var CustomRole = discord.SlashCommandCreate{
	Name:        "customrole",
	Description: "🎨 Create or update your custom role (requires an active pass)",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:        "name",
			Description: "The role name (2-100 characters)",
			Required:    true,
		},
		discord.ApplicationCommandOptionString{
			Name:        "color",
			Description: "Hex color, e.g. #1abc9c",
			Required:    true,
		},
		discord.ApplicationCommandOptionString{
			Name:        "icon",
			Description: "An emoji or image URL for the role icon",
		},
	},
}

func CustomRoleHandler(b *levelbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		if e.GuildID() == nil {
			return utils.EH.CreateEphemeralError(e, "This command only works in a server.")
		}

		data := e.SlashCommandInteractionData()
		name := data.String("name")
		color := data.String("color")
		icon, _ := data.OptString("icon")

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		role, err := b.CustomRoles.CreateOrUpdate(ctx, *e.GuildID(), e.User().ID, name, color, icon)
		switch {
		case err == nil:
		case errors.Is(err, customrole.ErrNoActivePass):
			return utils.EH.CreateEphemeralError(e, "You need an active **Custom Role Pass**. Win one at auction and activate it with `/use customrole`.")
		case errors.Is(err, customrole.ErrNameLength),
			errors.Is(err, customrole.ErrBadColor),
			errors.Is(err, customrole.ErrBadIcon),
			errors.Is(err, customrole.ErrIconTooLarge):
			return utils.EH.CreateEphemeralError(e, err.Error())
		default:
			return utils.EH.CreateErrorEmbed(e, "Failed to create your custom role. Please try again later.")
		}

		return utils.EH.CreateSuccessEmbed(e, fmt.Sprintf("Your custom role <@&%d> is ready! It lives as long as your pass does.", role.ID))
	}
}
