package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/disgo/rest"
	"github.com/shorbot/levelbot/levelbot"
	"github.com/shorbot/levelbot/levelbot/economy/items"
	"github.com/shorbot/levelbot/levelbot/utils"
)

var Inventory = discord.SlashCommandCreate{
	Name:        "inventory",
	Description: "🎒 View your items and owned roles",
}

var Use = discord.SlashCommandCreate{
	Name:        "use",
	Description: "⚡ Use an item from your inventory",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:        "item",
			Description: "The item to use (e.g. tiny, small, medium, large, customrole)",
			Required:    true,
		},
	},
}

var Equip = discord.SlashCommandCreate{
	Name:        "equip",
	Description: "🎽 Equip a role you own",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:        "role",
			Description: "The role to equip",
			Required:    true,
		},
	},
}

var Unequip = discord.SlashCommandCreate{
	Name:        "unequip",
	Description: "🧺 Unequip one of your roles",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:        "role",
			Description: "The role to unequip",
			Required:    true,
		},
	},
}

func InventoryHandler(b *levelbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		user, err := b.UserRepository.GetOrCreate(ctx, e.User().ID.String())
		if err != nil {
			return utils.EH.CreateErrorEmbed(e, "Failed to load your inventory. Please try again later.")
		}

		var itemLines []string
		for _, k := range append(items.BoosterKinds(), items.CustomRolePass) {
			item, ok := user.Items[string(k)]
			if !ok || (item.Amount == 0 && item.Active == 0) {
				continue
			}
			line := fmt.Sprintf("**%s** × %d", k.DisplayName(), item.Amount)
			if item.Active == 1 && item.TimeActivated != nil {
				var expiry time.Time
				if k == items.CustomRolePass {
					expiry = item.TimeActivated.Add(items.PassDuration)
				} else {
					expiry = item.TimeActivated.Add(b.Inventory.BoosterLifetime(k))
				}
				line += fmt.Sprintf(" (active, expires <t:%d:R>)", expiry.Unix())
			}
			itemLines = append(itemLines, line)
		}
		if len(itemLines) == 0 {
			itemLines = []string{"Nothing here yet. Visit the `/shop`!"}
		}

		var roleLines []string
		for _, role := range append(items.ColorRoles(), items.SpecialRoles()...) {
			if user.Roles[string(role)] {
				roleLines = append(roleLines, fmt.Sprintf("**%s**", items.RoleDisplayName(role)))
			}
		}
		if len(roleLines) == 0 {
			roleLines = []string{"No roles owned."}
		}

		embed := discord.NewEmbedBuilder().
			SetTitle(fmt.Sprintf("🎒 %s's Inventory", e.User().Username)).
			SetColor(utils.NeutralColor).
			AddField("Items", strings.Join(itemLines, "\n"), false).
			AddField("Roles", strings.Join(roleLines, "\n"), false).
			Build()
		return e.CreateMessage(discord.MessageCreate{Embeds: []discord.Embed{embed}})
	}
}

func UseHandler(b *levelbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		input := e.SlashCommandInteractionData().String("item")

		kind, ok := items.NormalizeItem(input)
		if !ok {
			msg := fmt.Sprintf("Unknown item **%s**.", input)
			if suggestions := items.Suggest(input, 3); len(suggestions) > 0 {
				msg += fmt.Sprintf(" Did you mean `%s`?", strings.Join(suggestions, "`, `"))
			}
			return utils.EH.CreateEphemeralError(e, msg)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := b.Inventory.Use(ctx, e.User().ID.String(), kind, time.Now())
		var passActive *items.PassActiveError
		switch {
		case err == nil:
		case errors.Is(err, items.ErrNotOwned):
			return utils.EH.CreateEphemeralError(e, fmt.Sprintf("You don't own a **%s**.", kind.DisplayName()))
		case errors.Is(err, items.ErrBoosterActive):
			return utils.EH.CreateEphemeralError(e, "You already have an active booster! Only one can run at a time.")
		case errors.As(err, &passActive):
			return utils.EH.CreateEphemeralError(e, fmt.Sprintf("Your custom role pass is already active for another **%s**.", passActive.Remaining.Round(time.Minute)))
		case errors.Is(err, items.ErrNotUsable):
			return utils.EH.CreateEphemeralError(e, fmt.Sprintf("**%s** can't be activated.", kind.DisplayName()))
		default:
			return utils.EH.CreateErrorEmbed(e, "Failed to use the item. Please try again later.")
		}

		description := fmt.Sprintf("**%s** is now active!", kind.DisplayName())
		if kind == items.CustomRolePass {
			description = fmt.Sprintf("**%s** activated! Use `/customrole` to create your role. It lasts **30 days**.", kind.DisplayName())
		}
		return utils.EH.CreateSuccessEmbed(e, description)
	}
}

func EquipHandler(b *levelbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		return setShopRole(b, e, true)
	}
}

func UnequipHandler(b *levelbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		return setShopRole(b, e, false)
	}
}

func setShopRole(b *levelbot.Bot, e *handler.CommandEvent, equip bool) error {
	input := e.SlashCommandInteractionData().String("role")

	role, ok := items.NormalizeRole(input)
	if !ok {
		return utils.EH.CreateEphemeralError(e, fmt.Sprintf("Unknown role **%s**.", input))
	}
	if e.GuildID() == nil {
		return utils.EH.CreateEphemeralError(e, "This command only works in a server.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	user, err := b.UserRepository.GetOrCreate(ctx, e.User().ID.String())
	if err != nil {
		return utils.EH.CreateErrorEmbed(e, "Something went wrong. Please try again later.")
	}
	if !user.Roles[string(role)] {
		return utils.EH.CreateEphemeralError(e, fmt.Sprintf("You don't own the **%s** role. Buy it in the `/shop` first!", items.RoleDisplayName(role)))
	}

	roleID, ok := b.Cfg.Roles.Shop[string(role)]
	if !ok {
		return utils.EH.CreateErrorEmbed(e, "That role isn't set up on this server yet.")
	}

	if equip {
		err = e.Client().Rest().AddMemberRole(*e.GuildID(), e.User().ID, roleID, rest.WithCtx(ctx))
	} else {
		err = e.Client().Rest().RemoveMemberRole(*e.GuildID(), e.User().ID, roleID, rest.WithCtx(ctx))
	}
	if err != nil {
		return utils.EH.CreateErrorEmbed(e, "Failed to update your roles. Please try again later.")
	}

	if equip {
		return utils.EH.CreateSuccessEmbed(e, fmt.Sprintf("Equipped the **%s** role!", items.RoleDisplayName(role)))
	}
	return utils.EH.CreateSuccessEmbed(e, fmt.Sprintf("Unequipped the **%s** role.", items.RoleDisplayName(role)))
}
