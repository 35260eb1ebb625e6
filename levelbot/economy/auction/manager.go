package auction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/shorbot/levelbot/levelbot/database/models"
	"github.com/shorbot/levelbot/levelbot/database/repositories"
	"github.com/shorbot/levelbot/levelbot/economy/items"
	"github.com/shorbot/levelbot/levelbot/logger"
)

var (
	ErrInsufficientFunds = errors.New("not enough XP for this bid")
	ErrAuctionEnded      = errors.New("auction has already ended")
	ErrBidTooLow         = errors.New("bid is too low")
)

// Config tunes auction behavior. Zero values fall back to the defaults
// below.
type Config struct {
	DefaultStartingBid float64
	MinStartingBid     float64
	MinBid             float64
	MinDuration        time.Duration
	MaxDuration        time.Duration
	CheckInterval      time.Duration
}

func (c *Config) applyDefaults() {
	if c.DefaultStartingBid == 0 {
		c.DefaultStartingBid = 10000
	}
	if c.MinStartingBid == 0 {
		c.MinStartingBid = 100
	}
	if c.MinBid == 0 {
		c.MinBid = 100
	}
	if c.MinDuration == 0 {
		c.MinDuration = time.Hour
	}
	if c.MaxDuration == 0 {
		c.MaxDuration = 72 * time.Hour
	}
	if c.CheckInterval == 0 {
		c.CheckInterval = time.Minute
	}
}

// notifierAPI is what the manager needs from the notifier.
type notifierAPI interface {
	Announce(ctx context.Context, a *models.Auction) (*discord.Message, error)
	Refresh(ctx context.Context, a *models.Auction)
	AnnounceEnd(ctx context.Context, a *models.Auction)
	AnnounceCancel(ctx context.Context, a *models.Auction)
	NotifyOutbid(ctx context.Context, a *models.Auction, outbidID string, refunded float64)
	NotifyWinner(ctx context.Context, a *models.Auction)
}

// Manager runs the auction house. Bids escrow XP out of the bidder's
// balance immediately; outbid escrow is refunded, winning escrow is not.
// All bid-path mutations for one auction serialize on a per-auction mutex.
type Manager struct {
	repo     repositories.AuctionRepository
	users    repositories.UserRepository
	inv      *items.Inventory
	notifier notifierAPI
	cfg      Config

	ids   idGenerator
	locks sync.Map

	ticker    *time.Ticker
	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

func NewManager(repo repositories.AuctionRepository, users repositories.UserRepository, inv *items.Inventory, notifier notifierAPI, cfg Config) *Manager {
	cfg.applyDefaults()
	return &Manager{
		repo:     repo,
		users:    users,
		inv:      inv,
		notifier: notifier,
		cfg:      cfg,
		done:     make(chan struct{}),
	}
}

// Start reserves the ids of auctions that survived a restart and begins the
// settlement ticker.
func (m *Manager) Start(ctx context.Context) error {
	var startErr error
	m.startOnce.Do(func() {
		active, err := m.repo.GetActive(ctx)
		if err != nil {
			startErr = fmt.Errorf("failed to load active auctions: %w", err)
			return
		}
		for _, a := range active {
			m.ids.reserve(a.AuctionID)
		}

		m.ticker = time.NewTicker(m.cfg.CheckInterval)
		go m.run()
		slog.Info("Auction manager started",
			slog.String("type", string(logger.TypeSweep)),
			slog.Int("active", len(active)),
		)
	})
	return startErr
}

func (m *Manager) Shutdown() {
	m.stopOnce.Do(func() {
		if m.ticker != nil {
			m.ticker.Stop()
		}
		close(m.done)
	})
}

func (m *Manager) run() {
	for {
		select {
		case <-m.done:
			return
		case <-m.ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := m.SettleExpired(ctx, time.Now()); err != nil {
				slog.Error("Failed to settle expired auctions",
					slog.String("type", string(logger.TypeSweep)),
					slog.String("error", err.Error()),
				)
			}
			cancel()
		}
	}
}

func (m *Manager) lock(auctionID string) *sync.Mutex {
	mu, _ := m.locks.LoadOrStore(auctionID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Create opens an auction. A non-positive starting bid falls back to the
// default, anything below the floor is raised to it, and the duration is
// clamped into the configured window.
func (m *Manager) Create(ctx context.Context, prize Prize, startingBid float64, duration time.Duration, startedBy string) (*models.Auction, error) {
	if startingBid <= 0 {
		startingBid = m.cfg.DefaultStartingBid
	}
	if startingBid < m.cfg.MinStartingBid {
		startingBid = m.cfg.MinStartingBid
	}
	if duration < m.cfg.MinDuration {
		duration = m.cfg.MinDuration
	}
	if duration > m.cfg.MaxDuration {
		duration = m.cfg.MaxDuration
	}

	id, err := m.ids.next()
	if err != nil {
		return nil, err
	}

	a := &models.Auction{
		AuctionID:   id,
		ItemType:    string(prize),
		StartingBid: startingBid,
		EndTime:     time.Now().Add(duration),
		StartedBy:   startedBy,
	}
	if err := m.repo.Create(ctx, a); err != nil {
		m.ids.release(id)
		return nil, err
	}

	if msg, announceErr := m.notifier.Announce(ctx, a); announceErr != nil {
		slog.Error("Failed to announce auction",
			slog.String("auction_id", a.AuctionID),
			slog.String("error", announceErr.Error()),
		)
	} else {
		a.MessageID = msg.ID.String()
		a.ChannelID = msg.ChannelID.String()
		if err := m.repo.Update(ctx, a); err != nil {
			// Without the stored message reference the auction can never
			// be refreshed or settled against its announcement. Undo the
			// creation instead of leaving a half-wired row behind.
			if delErr := m.repo.Delete(ctx, a.AuctionID); delErr != nil {
				slog.Error("Failed to roll back auction",
					slog.String("auction_id", a.AuctionID),
					slog.String("error", delErr.Error()),
				)
			}
			m.ids.release(id)
			return nil, err
		}
	}

	slog.Info("Auction created",
		slog.String("auction_id", a.AuctionID),
		slog.String("item", a.ItemType),
		slog.Float64("starting_bid", a.StartingBid),
		slog.String("started_by", startedBy),
	)
	return a, nil
}

// PlaceBid escrows a bid. A bidder raising their own highest bid pays only
// the difference; a new bidder pays in full and the previous highest bidder
// is refunded and DMed.
func (m *Manager) PlaceBid(ctx context.Context, auctionID, bidderID string, amount float64) (*models.Auction, error) {
	mu := m.lock(auctionID)
	mu.Lock()
	defer mu.Unlock()

	a, err := m.repo.GetByAuctionID(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if time.Now().After(a.EndTime) {
		return nil, ErrAuctionEnded
	}
	if amount < m.cfg.MinBid {
		return nil, fmt.Errorf("%w: bids start at %.0f XP", ErrBidTooLow, m.cfg.MinBid)
	}

	if a.HighestBidder == bidderID {
		increase := amount - a.HighestBid
		if increase < m.cfg.MinBid {
			return nil, fmt.Errorf("%w: you must raise your own bid by at least %.0f XP", ErrBidTooLow, m.cfg.MinBid)
		}
		if err := m.debit(ctx, bidderID, increase); err != nil {
			return nil, err
		}
		a.HighestBid = amount
	} else {
		if a.HighestBidder == "" {
			if amount < a.StartingBid {
				return nil, fmt.Errorf("%w: the starting bid is %.0f XP", ErrBidTooLow, a.StartingBid)
			}
		} else if amount <= a.HighestBid {
			return nil, fmt.Errorf("%w: the highest bid is %.0f XP", ErrBidTooLow, a.HighestBid)
		}
		if err := m.debit(ctx, bidderID, amount); err != nil {
			return nil, err
		}

		if a.HighestBidder != "" {
			if err := m.credit(ctx, a.HighestBidder, a.HighestBid); err != nil {
				slog.Error("Failed to refund outbid bidder",
					slog.String("auction_id", a.AuctionID),
					slog.String("user_id", a.HighestBidder),
					slog.Float64("amount", a.HighestBid),
					slog.String("error", err.Error()),
				)
			} else {
				m.notifier.NotifyOutbid(ctx, a, a.HighestBidder, a.HighestBid)
			}
		}
		a.HighestBidder = bidderID
		a.HighestBid = amount
	}

	if err := m.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	m.notifier.Refresh(ctx, a)

	slog.Info("Bid placed",
		slog.String("auction_id", a.AuctionID),
		slog.String("user_id", bidderID),
		slog.Float64("amount", amount),
	)
	return a, nil
}

// Cancel closes an auction without a sale, refunding the highest bidder.
func (m *Manager) Cancel(ctx context.Context, auctionID string) error {
	mu := m.lock(auctionID)
	mu.Lock()
	defer mu.Unlock()

	a, err := m.repo.GetByAuctionID(ctx, auctionID)
	if err != nil {
		return err
	}

	if a.HighestBidder != "" {
		if err := m.credit(ctx, a.HighestBidder, a.HighestBid); err != nil {
			return fmt.Errorf("failed to refund highest bidder: %w", err)
		}
	}
	m.notifier.AnnounceCancel(ctx, a)

	if err := m.repo.Delete(ctx, a.AuctionID); err != nil {
		return err
	}
	m.ids.release(a.AuctionID)

	slog.Info("Auction cancelled",
		slog.String("auction_id", a.AuctionID),
		slog.String("item", a.ItemType),
	)
	return nil
}

// Active lists every open auction.
func (m *Manager) Active(ctx context.Context) ([]*models.Auction, error) {
	return m.repo.GetActive(ctx)
}

// Get looks an auction up by its short id.
func (m *Manager) Get(ctx context.Context, auctionID string) (*models.Auction, error) {
	return m.repo.GetByAuctionID(ctx, auctionID)
}

// SettleExpired closes every auction past its end time. A winner keeps
// their escrowed XP spent and receives the prize; a no-bid auction just
// ends. Settled records are deleted.
func (m *Manager) SettleExpired(ctx context.Context, now time.Time) error {
	expired, err := m.repo.GetExpired(ctx, now)
	if err != nil {
		return err
	}

	for _, stale := range expired {
		if err := m.settle(ctx, stale.AuctionID, now); err != nil {
			slog.Error("Failed to settle auction",
				slog.String("type", string(logger.TypeSweep)),
				slog.String("auction_id", stale.AuctionID),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

func (m *Manager) settle(ctx context.Context, auctionID string, now time.Time) error {
	mu := m.lock(auctionID)
	mu.Lock()
	defer mu.Unlock()

	// Re-read under the lock, a concurrent cancel may have removed it.
	a, err := m.repo.GetByAuctionID(ctx, auctionID)
	if err != nil {
		if errors.Is(err, repositories.ErrAuctionNotFound) {
			return nil
		}
		return err
	}
	if now.Before(a.EndTime) {
		return nil
	}

	if a.HighestBidder != "" {
		if err := m.awardPrize(ctx, a.HighestBidder, a.ItemType); err != nil {
			return fmt.Errorf("failed to award prize: %w", err)
		}
		m.notifier.NotifyWinner(ctx, a)
	}
	m.notifier.AnnounceEnd(ctx, a)

	if err := m.repo.Delete(ctx, a.AuctionID); err != nil {
		return err
	}
	m.ids.release(a.AuctionID)

	slog.Info("Auction settled",
		slog.String("type", string(logger.TypeSweep)),
		slog.String("auction_id", a.AuctionID),
		slog.String("item", a.ItemType),
		slog.String("winner", a.HighestBidder),
		slog.Float64("final_bid", a.HighestBid),
	)
	return nil
}

func (m *Manager) awardPrize(ctx context.Context, winnerID, itemType string) error {
	switch Prize(itemType) {
	case PrizeSpecialRole1, PrizeSpecialRole2:
		return m.users.SetRole(ctx, winnerID, itemType, true)
	case PrizeCustomRolePass:
		return m.inv.Add(ctx, winnerID, items.CustomRolePass, 1)
	case PrizeLargeBooster:
		return m.inv.Add(ctx, winnerID, items.LargeBooster, 1)
	default:
		return fmt.Errorf("unknown auction item type %q", itemType)
	}
}

// debit moves XP out of a balance, refusing to overdraw it. Lifetime XP and
// level are untouched, bids only spend the balance.
func (m *Manager) debit(ctx context.Context, discordID string, amount float64) error {
	user, err := m.users.GetOrCreate(ctx, discordID)
	if err != nil {
		return err
	}
	if user.CurrentXP < amount {
		return fmt.Errorf("%w: you have %.2f XP, need %.2f", ErrInsufficientFunds, user.CurrentXP, amount)
	}
	user.CurrentXP -= amount
	return m.users.Update(ctx, user)
}

func (m *Manager) credit(ctx context.Context, discordID string, amount float64) error {
	user, err := m.users.GetOrCreate(ctx, discordID)
	if err != nil {
		return err
	}
	user.CurrentXP += amount
	return m.users.Update(ctx, user)
}
