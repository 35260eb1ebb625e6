package items

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/shorbot/levelbot/levelbot/database/repositories"
	"github.com/shorbot/levelbot/levelbot/logger"
)

// BoosterSweeper periodically deactivates boosters whose lifetime has run
// out. Expiry is only ever observed here, the grant path reads the active
// flag as-is.
type BoosterSweeper struct {
	users    repositories.UserRepository
	inv      *Inventory
	client   bot.Client
	interval time.Duration

	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

func NewBoosterSweeper(users repositories.UserRepository, inv *Inventory, interval time.Duration) *BoosterSweeper {
	return &BoosterSweeper{
		users:    users,
		inv:      inv,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// SetClient enables the expiry DM. Without a client the sweeper still
// deactivates boosters, it just stays silent.
func (s *BoosterSweeper) SetClient(client bot.Client) {
	s.client = client
}

func (s *BoosterSweeper) Start() {
	s.startOnce.Do(func() {
		go s.loop()
		slog.Info("Booster sweeper started",
			slog.String("type", string(logger.TypeSweep)),
			slog.Duration("interval", s.interval),
		)
	})
}

func (s *BoosterSweeper) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

func (s *BoosterSweeper) loop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := s.Sweep(ctx, time.Now()); err != nil {
				slog.Error("Booster sweep failed",
					slog.String("type", string(logger.TypeSweep)),
					slog.String("error", err.Error()),
				)
			}
			cancel()
		}
	}
}

// Sweep walks every user and deactivates boosters past their lifetime.
// Individual failures are logged and skipped.
func (s *BoosterSweeper) Sweep(ctx context.Context, now time.Time) error {
	users, err := s.users.GetAll(ctx)
	if err != nil {
		return err
	}

	for _, user := range users {
		for _, k := range BoosterKinds() {
			item, ok := user.Items[string(k)]
			if !ok || item.Active != 1 || item.TimeActivated == nil {
				continue
			}
			if now.Before(item.TimeActivated.Add(s.inv.BoosterLifetime(k))) {
				continue
			}
			if err := s.inv.Deactivate(ctx, user.DiscordID, k, user); err != nil {
				slog.Error("Failed to deactivate expired booster",
					slog.String("type", string(logger.TypeSweep)),
					slog.String("user_id", user.DiscordID),
					slog.String("item", string(k)),
					slog.String("error", err.Error()),
				)
				continue
			}
			s.notify(ctx, user.DiscordID, k)
			slog.Info("Booster expired",
				slog.String("type", string(logger.TypeSweep)),
				slog.String("user_id", user.DiscordID),
				slog.String("item", string(k)),
			)
		}
	}
	return nil
}

// notify DMs the user about the expiry, best effort.
func (s *BoosterSweeper) notify(ctx context.Context, discordID string, k Kind) {
	if s.client == nil {
		return
	}
	userID, err := snowflake.Parse(discordID)
	if err != nil {
		return
	}
	channel, err := s.client.Rest().CreateDMChannel(userID, rest.WithCtx(ctx))
	if err != nil {
		return
	}
	_, _ = s.client.Rest().CreateMessage(channel.ID(), discord.MessageCreate{
		Content: fmt.Sprintf("⌛ Your **%s** has expired.", k.DisplayName()),
	}, rest.WithCtx(ctx))
}
