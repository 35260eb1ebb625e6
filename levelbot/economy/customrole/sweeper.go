package customrole

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/shorbot/levelbot/levelbot/database/repositories"
	"github.com/shorbot/levelbot/levelbot/economy/items"
	"github.com/shorbot/levelbot/levelbot/logger"
)

// Sweeper tears down custom roles whose pass window has closed: the role is
// deleted from every configured guild, the owner is told over DM and the
// pass state is cleared so the next pass starts fresh.
type Sweeper struct {
	client   bot.Client
	users    repositories.UserRepository
	guilds   []snowflake.ID
	interval time.Duration

	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

func NewSweeper(client bot.Client, users repositories.UserRepository, guilds []snowflake.ID, interval time.Duration) *Sweeper {
	return &Sweeper{
		client:   client,
		users:    users,
		guilds:   guilds,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (s *Sweeper) Start() {
	s.startOnce.Do(func() {
		go s.loop()
		slog.Info("Custom role sweeper started",
			slog.String("type", string(logger.TypeSweep)),
			slog.Duration("interval", s.interval),
		)
	})
}

func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

func (s *Sweeper) loop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			if err := s.Sweep(ctx, time.Now()); err != nil {
				slog.Error("Custom role sweep failed",
					slog.String("type", string(logger.TypeSweep)),
					slog.String("error", err.Error()),
				)
			}
			cancel()
		}
	}
}

// Sweep removes every custom role backed by an expired pass window.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) error {
	users, err := s.users.GetAll(ctx)
	if err != nil {
		return err
	}

	for _, user := range users {
		expiry, open := items.PassExpiry(user)
		if !open || now.Before(expiry) {
			continue
		}

		pass := user.Items[string(items.CustomRolePass)]
		if pass.RoleID != "" {
			if roleID, parseErr := snowflake.Parse(pass.RoleID); parseErr == nil {
				for _, guildID := range s.guilds {
					_ = s.client.Rest().DeleteRole(guildID, roleID, rest.WithCtx(ctx))
				}
			}
		}

		pass.RoleID = ""
		pass.Active = 0
		pass.TimeActivated = nil
		if err := s.users.SetItem(ctx, user.DiscordID, string(items.CustomRolePass), pass); err != nil {
			slog.Error("Failed to clear expired custom role pass",
				slog.String("type", string(logger.TypeSweep)),
				slog.String("user_id", user.DiscordID),
				slog.String("error", err.Error()),
			)
			continue
		}

		s.notify(ctx, user.DiscordID)
		slog.Info("Custom role pass expired",
			slog.String("type", string(logger.TypeSweep)),
			slog.String("user_id", user.DiscordID),
		)
	}
	return nil
}

func (s *Sweeper) notify(ctx context.Context, discordID string) {
	userID, err := snowflake.Parse(discordID)
	if err != nil {
		return
	}
	dmChannel, err := s.client.Rest().CreateDMChannel(userID, rest.WithCtx(ctx))
	if err != nil {
		return
	}
	_, _ = s.client.Rest().CreateMessage(dmChannel.ID(), discord.MessageCreate{
		Content: "⌛ Your custom role pass has expired and your custom role was removed. Use another pass to create a new one.",
	}, rest.WithCtx(ctx))
}
