package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/shorbot/levelbot/levelbot"
	"github.com/shorbot/levelbot/levelbot/economy/items"
	"github.com/shorbot/levelbot/levelbot/utils"
)

var Shop = discord.SlashCommandCreate{
	Name:        "shop",
	Description: "🛒 Browse roles and boosters for your XP",
}

var Buy = discord.SlashCommandCreate{
	Name:        "buy",
	Description: "💸 Buy an item from the shop",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:        "item",
			Description: "The item to buy (e.g. Red, Blue, tiny, small, medium)",
			Required:    true,
		},
	},
}

func ShopHandler(b *levelbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		user, err := b.UserRepository.GetOrCreate(ctx, e.User().ID.String())
		if err != nil {
			return utils.EH.CreateErrorEmbed(e, "Failed to load the shop. Please try again later.")
		}

		var colorLines []string
		for _, role := range items.ColorRoles() {
			status := fmt.Sprintf("%s XP", formatXP(items.RolePrice(role)))
			if user.Roles[string(role)] {
				status = "✅ Owned"
			}
			if roleID, ok := b.Cfg.Roles.Shop[string(role)]; ok {
				colorLines = append(colorLines, fmt.Sprintf("<@&%d> **%s** - %s", roleID, role, status))
			} else {
				colorLines = append(colorLines, fmt.Sprintf("**%s** - %s", role, status))
			}
		}

		var specialLines []string
		for _, role := range items.SpecialRoles() {
			status := fmt.Sprintf("%s XP", formatXP(items.RolePrice(role)))
			if user.Roles[string(role)] {
				status = "✅ Owned"
			}
			specialLines = append(specialLines, fmt.Sprintf("**%s** - %s", items.RoleDisplayName(role), status))
		}

		var boosterLines []string
		for _, k := range items.BoosterKinds() {
			info, _ := items.Booster(k)
			if !info.Purchasable {
				continue
			}
			owned := user.Items[string(k)].Amount
			boosterLines = append(boosterLines, fmt.Sprintf("**%s** - %s XP | Owned: %d", info.DisplayName, formatXP(info.Price), owned))
		}

		embed := discord.NewEmbedBuilder().
			SetTitle("🛒 Shop").
			SetDescription(fmt.Sprintf("Your XP: **%s**\n\nUse `/buy <item>` to purchase\nUse `/equip <role>` to equip roles\nUse `/use <booster>` to activate boosters", formatXP(user.CurrentXP))).
			SetColor(utils.InfoColor).
			AddField("🎨 Color Roles", strings.Join(colorLines, "\n"), false).
			AddField("⭐ Special Roles", strings.Join(specialLines, "\n"), false).
			AddField("⚡ XP Boosters", strings.Join(boosterLines, "\n"), false).
			Build()

		return e.CreateMessage(discord.MessageCreate{Embeds: []discord.Embed{embed}})
	}
}

func BuyHandler(b *levelbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		input := e.SlashCommandInteractionData().String("item")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if role, ok := items.NormalizeRole(input); ok {
			return buyRole(ctx, b, e, role)
		}
		if kind, ok := items.NormalizeItem(input); ok {
			return buyBooster(ctx, b, e, kind)
		}

		msg := fmt.Sprintf("**%s** doesn't exist or isn't purchasable in the shop.", input)
		if suggestions := items.Suggest(input, 3); len(suggestions) > 0 {
			msg += fmt.Sprintf(" Did you mean `%s`?", strings.Join(suggestions, "`, `"))
		}
		return utils.EH.CreateEphemeralError(e, msg)
	}
}

func buyRole(ctx context.Context, b *levelbot.Bot, e *handler.CommandEvent, role items.RoleKey) error {
	user, err := b.UserRepository.GetOrCreate(ctx, e.User().ID.String())
	if err != nil {
		return utils.EH.CreateErrorEmbed(e, "Purchase failed. Please try again later.")
	}
	if user.Roles[string(role)] {
		return utils.EH.CreateEphemeralError(e, fmt.Sprintf("You already own the **%s** role!", items.RoleDisplayName(role)))
	}

	price := items.RolePrice(role)
	if user.CurrentXP < price {
		return utils.EH.CreateEphemeralError(e, fmt.Sprintf("Not enough XP! You need **%s XP** but only have **%s XP**.", formatXP(price), formatXP(user.CurrentXP)))
	}

	res, err := b.Engine.GrantXP(ctx, e.User().ID, e.User().Username, -price)
	if err != nil {
		return utils.EH.CreateErrorEmbed(e, "Purchase failed. Please try again later.")
	}
	if err := b.UserRepository.SetRole(ctx, e.User().ID.String(), string(role), true); err != nil {
		return utils.EH.CreateErrorEmbed(e, "Purchase failed. Please try again later.")
	}

	embed := discord.NewEmbedBuilder().
		SetTitle("✅ Purchase complete").
		SetDescription(fmt.Sprintf("You bought the **%s** role for **%s XP**!\n\nUse `/equip %s` to equip it.", items.RoleDisplayName(role), formatXP(price), role)).
		SetColor(utils.SuccessColor).
		AddField("Remaining XP", formatXP(res.User.CurrentXP), true).
		Build()
	return e.CreateMessage(discord.MessageCreate{Embeds: []discord.Embed{embed}})
}

func buyBooster(ctx context.Context, b *levelbot.Bot, e *handler.CommandEvent, kind items.Kind) error {
	info, ok := items.Booster(kind)
	if !ok || !info.Purchasable {
		return utils.EH.CreateEphemeralError(e, "That item isn't purchasable in the shop.")
	}

	user, err := b.UserRepository.GetOrCreate(ctx, e.User().ID.String())
	if err != nil {
		return utils.EH.CreateErrorEmbed(e, "Purchase failed. Please try again later.")
	}
	if user.CurrentXP < info.Price {
		return utils.EH.CreateEphemeralError(e, fmt.Sprintf("Not enough XP! You need **%s XP** but only have **%s XP**.", formatXP(info.Price), formatXP(user.CurrentXP)))
	}

	res, err := b.Engine.GrantXP(ctx, e.User().ID, e.User().Username, -info.Price)
	if err != nil {
		return utils.EH.CreateErrorEmbed(e, "Purchase failed. Please try again later.")
	}
	if err := b.Inventory.Add(ctx, e.User().ID.String(), kind, 1); err != nil {
		return utils.EH.CreateErrorEmbed(e, "Purchase failed. Please try again later.")
	}

	embed := discord.NewEmbedBuilder().
		SetTitle("✅ Purchase complete").
		SetDescription(fmt.Sprintf("You bought **%s** for **%s XP**!\n\nUse `/use %s` to activate it.", info.DisplayName, formatXP(info.Price), kind)).
		SetColor(utils.SuccessColor).
		AddField("Remaining XP", formatXP(res.User.CurrentXP), true).
		Build()
	return e.CreateMessage(discord.MessageCreate{Embeds: []discord.Embed{embed}})
}
