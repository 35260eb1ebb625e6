package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
	"github.com/shorbot/levelbot/levelbot/leveling"
)

// MessageHandler turns guild chat into XP. One message per cooldown window
// counts; bots, webhooks and DMs never do.
type MessageHandler struct {
	engine         *leveling.Engine
	cooldown       *leveling.CooldownCache
	levelUpChannel snowflake.ID
}

func NewMessageHandler(engine *leveling.Engine, cooldown *leveling.CooldownCache, levelUpChannel snowflake.ID) *MessageHandler {
	return &MessageHandler{
		engine:         engine,
		cooldown:       cooldown,
		levelUpChannel: levelUpChannel,
	}
}

func (h *MessageHandler) OnMessageCreate(e *events.MessageCreate) {
	msg := e.Message
	if msg.Author.Bot || msg.Author.System || msg.WebhookID != nil {
		return
	}
	if e.GuildID == nil {
		return
	}
	if !h.cooldown.Allow(msg.Author.ID, time.Now()) {
		return
	}

	var roleIDs []snowflake.ID
	if msg.Member != nil {
		roleIDs = msg.Member.RoleIDs
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res, err := h.engine.GrantMessageXP(ctx, msg.Author.ID, msg.Author.Username, roleIDs)
	if err != nil {
		slog.Error("Failed to grant message XP",
			slog.String("type", "db"),
			slog.String("user_id", msg.Author.ID.String()),
			slog.String("error", err.Error()),
		)
		return
	}
	if !res.LeveledUp {
		return
	}

	h.engine.SyncLevelRoles(ctx, e.Client().Rest(), *e.GuildID, msg.Author.ID, res.NewLevel, roleIDs)

	channelID := h.levelUpChannel
	if channelID == 0 {
		channelID = e.ChannelID
	}
	if _, err := e.Client().Rest().CreateMessage(channelID, discord.MessageCreate{
		Content: fmt.Sprintf("🎉 GG <@%d>, you just advanced to **level %d**!", msg.Author.ID, res.NewLevel),
	}); err != nil {
		slog.Error("Failed to announce level up",
			slog.String("user_id", msg.Author.ID.String()),
			slog.String("error", err.Error()),
		)
	}
}
