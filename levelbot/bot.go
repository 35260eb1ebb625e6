package levelbot

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/paginator"
	"github.com/shorbot/levelbot/levelbot/database"
	"github.com/shorbot/levelbot/levelbot/database/repositories"
	"github.com/shorbot/levelbot/levelbot/economy/auction"
	"github.com/shorbot/levelbot/levelbot/economy/customrole"
	"github.com/shorbot/levelbot/levelbot/economy/gamble"
	"github.com/shorbot/levelbot/levelbot/economy/items"
	"github.com/shorbot/levelbot/levelbot/leveling"
	"github.com/shorbot/levelbot/levelbot/services"
)

func New(cfg *Config, version string, commit string) *Bot {
	return &Bot{
		Cfg:       cfg,
		Paginator: paginator.New(),
		Version:   version,
		Commit:    commit,
	}
}

type Bot struct {
	Cfg       *Config
	Client    bot.Client
	Paginator *paginator.Manager
	Version   string
	Commit    string

	DB                *database.DB
	UserRepository    repositories.UserRepository
	AuctionRepository repositories.AuctionRepository
	MetaRepository    repositories.MetaRepository

	Engine    *leveling.Engine
	Cooldown  *leveling.CooldownCache
	Inventory *items.Inventory
	Coinflip  *gamble.Coinflip

	CustomRoles    *customrole.Manager
	AuctionManager *auction.Manager

	BoosterSweeper    *items.BoosterSweeper
	CustomRoleSweeper *customrole.Sweeper

	RankCards   *services.RankCardService
	Backgrounds *services.BackgroundService

	readyOnce sync.Once
}

func (b *Bot) SetupBot(listeners ...bot.EventListener) error {
	client, err := disgo.New(b.Cfg.Bot.Token,
		bot.WithGatewayConfigOpts(gateway.WithIntents(gateway.IntentGuilds, gateway.IntentGuildMessages, gateway.IntentMessageContent)),
		bot.WithCacheConfigOpts(cache.WithCaches(cache.FlagGuilds)),
		bot.WithEventListeners(b.Paginator),
		bot.WithEventListeners(listeners...),
	)
	if err != nil {
		return err
	}

	b.Client = client
	return nil
}

// OnReady sets presence and starts the background sweepers. The gateway can
// reconnect and fire Ready again, the sweepers only start once.
func (b *Bot) OnReady(_ *events.Ready) {
	slog.Info("LevelBot is now ready",
		slog.String("version", b.Version),
		slog.String("commit", b.Commit))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := b.Client.SetPresence(ctx,
		gateway.WithWatchingActivity("the XP ladder"),
		gateway.WithOnlineStatus(discord.OnlineStatusOnline)); err != nil {
		slog.Error("Failed to set presence", slog.Any("error", err))
	}

	b.readyOnce.Do(func() {
		b.BoosterSweeper.Start()
		b.CustomRoleSweeper.Start()
		if err := b.AuctionManager.Start(ctx); err != nil {
			slog.Error("Failed to start auction manager", slog.Any("error", err))
		}
	})
}

// Shutdown stops the sweepers and closes the gateway and database.
func (b *Bot) Shutdown(ctx context.Context) {
	b.BoosterSweeper.Stop()
	b.CustomRoleSweeper.Stop()
	b.AuctionManager.Shutdown()
	if b.Client != nil {
		b.Client.Close(ctx)
	}
	if b.DB != nil {
		b.DB.Close()
	}
}
