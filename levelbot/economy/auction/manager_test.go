package auction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/shorbot/levelbot/levelbot/database/models"
	"github.com/shorbot/levelbot/levelbot/database/repositories"
	"github.com/shorbot/levelbot/levelbot/economy/items"
)

type fakeUsers struct {
	users map[string]*models.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[string]*models.User{}}
}

func (f *fakeUsers) GetOrCreate(_ context.Context, discordID string) (*models.User, error) {
	if u, ok := f.users[discordID]; ok {
		return u, nil
	}
	u := &models.User{
		DiscordID: discordID,
		Roles:     map[string]bool{},
		Items:     map[string]models.Item{},
	}
	f.users[discordID] = u
	return u, nil
}

func (f *fakeUsers) Update(_ context.Context, user *models.User) error {
	f.users[user.DiscordID] = user
	return nil
}

func (f *fakeUsers) GetAll(context.Context) ([]*models.User, error)                    { return nil, nil }
func (f *fakeUsers) GetTopByTotalXP(context.Context, int) ([]*models.User, error)      { return nil, nil }
func (f *fakeUsers) GetTopByMessageCount(context.Context, int) ([]*models.User, error) { return nil, nil }
func (f *fakeUsers) CountWithMoreXP(context.Context, float64) (int, error)             { return 0, nil }
func (f *fakeUsers) ResetWeeklyCounts(context.Context) error                           { return nil }
func (f *fakeUsers) Reset(context.Context, string) error                               { return nil }

func (f *fakeUsers) SetRole(_ context.Context, discordID, roleKey string, owned bool) error {
	u, _ := f.GetOrCreate(context.Background(), discordID)
	u.Roles[roleKey] = owned
	return nil
}

func (f *fakeUsers) SetItem(_ context.Context, discordID, itemKey string, item models.Item) error {
	u, _ := f.GetOrCreate(context.Background(), discordID)
	u.Items[itemKey] = item
	return nil
}

type fakeAuctionRepo struct {
	auctions  map[string]*models.Auction
	created   []string
	updateErr error
}

func newFakeAuctionRepo() *fakeAuctionRepo {
	return &fakeAuctionRepo{auctions: map[string]*models.Auction{}}
}

func (f *fakeAuctionRepo) Create(_ context.Context, a *models.Auction) error {
	f.auctions[a.AuctionID] = a
	f.created = append(f.created, a.AuctionID)
	return nil
}

func (f *fakeAuctionRepo) GetByAuctionID(_ context.Context, auctionID string) (*models.Auction, error) {
	a, ok := f.auctions[auctionID]
	if !ok {
		return nil, repositories.ErrAuctionNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAuctionRepo) GetActive(context.Context) ([]*models.Auction, error) {
	var out []*models.Auction
	for _, a := range f.auctions {
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeAuctionRepo) GetExpired(_ context.Context, now time.Time) ([]*models.Auction, error) {
	var out []*models.Auction
	for _, a := range f.auctions {
		if now.After(a.EndTime) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAuctionRepo) Update(_ context.Context, a *models.Auction) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.auctions[a.AuctionID] = a
	return nil
}

func (f *fakeAuctionRepo) Delete(_ context.Context, auctionID string) error {
	delete(f.auctions, auctionID)
	return nil
}

type fakeNotifier struct {
	outbid  []string
	winners []string
	ends    int
	cancels int
}

func (f *fakeNotifier) Announce(context.Context, *models.Auction) (*discord.Message, error) {
	return &discord.Message{ID: snowflake.ID(111), ChannelID: snowflake.ID(222)}, nil
}

func (f *fakeNotifier) Refresh(context.Context, *models.Auction) {}

func (f *fakeNotifier) AnnounceEnd(context.Context, *models.Auction) { f.ends++ }

func (f *fakeNotifier) AnnounceCancel(context.Context, *models.Auction) { f.cancels++ }

func (f *fakeNotifier) NotifyOutbid(_ context.Context, _ *models.Auction, outbidID string, _ float64) {
	f.outbid = append(f.outbid, outbidID)
}

func (f *fakeNotifier) NotifyWinner(_ context.Context, a *models.Auction) {
	f.winners = append(f.winners, a.HighestBidder)
}

type fixture struct {
	m        *Manager
	repo     *fakeAuctionRepo
	users    *fakeUsers
	notifier *fakeNotifier
}

func newFixture() *fixture {
	repo := newFakeAuctionRepo()
	users := newFakeUsers()
	notifier := &fakeNotifier{}
	inv := items.NewInventory(users, nil)
	return &fixture{
		m:        NewManager(repo, users, inv, notifier, Config{}),
		repo:     repo,
		users:    users,
		notifier: notifier,
	}
}

func (f *fixture) seedUser(id string, balance float64) {
	u, _ := f.users.GetOrCreate(context.Background(), id)
	u.CurrentXP = balance
	u.TotalXP = balance
}

func TestCreate(t *testing.T) {
	tests := []struct {
		name        string
		startingBid float64
		duration    time.Duration
		wantBid     float64
		wantMinDur  time.Duration
		wantMaxDur  time.Duration
	}{
		{name: "Defaults", startingBid: 0, duration: 24 * time.Hour, wantBid: 10000, wantMinDur: 24 * time.Hour, wantMaxDur: 24 * time.Hour},
		{name: "BelowFloorRaised", startingBid: 50, duration: 24 * time.Hour, wantBid: 100, wantMinDur: 24 * time.Hour, wantMaxDur: 24 * time.Hour},
		{name: "ShortDurationClamped", startingBid: 500, duration: time.Minute, wantBid: 500, wantMinDur: time.Hour, wantMaxDur: time.Hour},
		{name: "LongDurationClamped", startingBid: 500, duration: 1000 * time.Hour, wantBid: 500, wantMinDur: 72 * time.Hour, wantMaxDur: 72 * time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			before := time.Now()
			a, err := f.m.Create(context.Background(), PrizeLargeBooster, tt.startingBid, tt.duration, "999")
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}

			if a.StartingBid != tt.wantBid {
				t.Errorf("StartingBid = %v, want %v", a.StartingBid, tt.wantBid)
			}
			remaining := a.EndTime.Sub(before)
			if remaining < tt.wantMinDur || remaining > tt.wantMaxDur+time.Minute {
				t.Errorf("duration = %v, want about %v", remaining, tt.wantMinDur)
			}
			if len(a.AuctionID) != 4 {
				t.Errorf("AuctionID = %q, want 4 chars", a.AuctionID)
			}
			if a.MessageID == "" || a.ChannelID == "" {
				t.Error("announcement message not recorded")
			}
		})
	}
}

func TestCreateRollsBackWhenMessageCannotBeStored(t *testing.T) {
	f := newFixture()
	f.repo.updateErr = errors.New("connection reset")

	if _, err := f.m.Create(context.Background(), PrizeLargeBooster, 500, time.Hour, "999"); err == nil {
		t.Fatal("Create() error = nil, want the store failure")
	}

	if len(f.repo.created) != 1 {
		t.Fatalf("created %d rows, want 1", len(f.repo.created))
	}
	id := f.repo.created[0]
	if _, live := f.repo.auctions[id]; live {
		t.Errorf("auction %s still stored, want it rolled back", id)
	}
	if _, held := f.m.ids.used.Load(id); held {
		t.Errorf("id %s still reserved, want it released", id)
	}
}

func TestPlaceBid(t *testing.T) {
	ctx := context.Background()

	t.Run("FirstBidMustMeetStartingBid", func(t *testing.T) {
		f := newFixture()
		f.seedUser("1", 5000)
		a, _ := f.m.Create(ctx, PrizeLargeBooster, 1000, time.Hour, "999")

		if _, err := f.m.PlaceBid(ctx, a.AuctionID, "1", 500); !errors.Is(err, ErrBidTooLow) {
			t.Fatalf("PlaceBid() error = %v, want ErrBidTooLow", err)
		}
		got, err := f.m.PlaceBid(ctx, a.AuctionID, "1", 1000)
		if err != nil {
			t.Fatalf("PlaceBid() error = %v", err)
		}
		if got.HighestBidder != "1" || got.HighestBid != 1000 {
			t.Errorf("highest = %s/%v, want 1/1000", got.HighestBidder, got.HighestBid)
		}
		if bal := f.users.users["1"].CurrentXP; bal != 4000 {
			t.Errorf("balance = %v, want 4000 (bid escrowed)", bal)
		}
	})

	t.Run("InsufficientFunds", func(t *testing.T) {
		f := newFixture()
		f.seedUser("1", 500)
		a, _ := f.m.Create(ctx, PrizeLargeBooster, 1000, time.Hour, "999")

		if _, err := f.m.PlaceBid(ctx, a.AuctionID, "1", 1000); !errors.Is(err, ErrInsufficientFunds) {
			t.Errorf("PlaceBid() error = %v, want ErrInsufficientFunds", err)
		}
	})

	t.Run("OutbidRefundsPrevious", func(t *testing.T) {
		f := newFixture()
		f.seedUser("1", 2000)
		f.seedUser("2", 3000)
		a, _ := f.m.Create(ctx, PrizeCustomRolePass, 1000, time.Hour, "999")

		_, _ = f.m.PlaceBid(ctx, a.AuctionID, "1", 1000)
		if _, err := f.m.PlaceBid(ctx, a.AuctionID, "2", 1000); !errors.Is(err, ErrBidTooLow) {
			t.Fatalf("matching bid accepted, want ErrBidTooLow")
		}
		if _, err := f.m.PlaceBid(ctx, a.AuctionID, "2", 1500); err != nil {
			t.Fatalf("PlaceBid() error = %v", err)
		}

		if bal := f.users.users["1"].CurrentXP; bal != 2000 {
			t.Errorf("outbid balance = %v, want 2000 (refunded)", bal)
		}
		if bal := f.users.users["2"].CurrentXP; bal != 1500 {
			t.Errorf("new bidder balance = %v, want 1500", bal)
		}
		if len(f.notifier.outbid) != 1 || f.notifier.outbid[0] != "1" {
			t.Errorf("outbid notifications = %v, want [1]", f.notifier.outbid)
		}
	})

	t.Run("SelfRaisePaysOnlyIncrease", func(t *testing.T) {
		f := newFixture()
		f.seedUser("1", 2000)
		a, _ := f.m.Create(ctx, PrizeCustomRolePass, 1000, time.Hour, "999")

		_, _ = f.m.PlaceBid(ctx, a.AuctionID, "1", 1000)
		if _, err := f.m.PlaceBid(ctx, a.AuctionID, "1", 1050); !errors.Is(err, ErrBidTooLow) {
			t.Fatalf("raise below minimum accepted, want ErrBidTooLow")
		}
		got, err := f.m.PlaceBid(ctx, a.AuctionID, "1", 1200)
		if err != nil {
			t.Fatalf("PlaceBid() error = %v", err)
		}

		if got.HighestBid != 1200 {
			t.Errorf("HighestBid = %v, want 1200", got.HighestBid)
		}
		if bal := f.users.users["1"].CurrentXP; bal != 800 {
			t.Errorf("balance = %v, want 800 (paid 1000 then the 200 increase)", bal)
		}
	})

	t.Run("EndedAuctionRejectsBids", func(t *testing.T) {
		f := newFixture()
		f.seedUser("1", 5000)
		a, _ := f.m.Create(ctx, PrizeLargeBooster, 1000, time.Hour, "999")
		a.EndTime = time.Now().Add(-time.Minute)
		_ = f.repo.Update(ctx, a)

		if _, err := f.m.PlaceBid(ctx, a.AuctionID, "1", 1000); !errors.Is(err, ErrAuctionEnded) {
			t.Errorf("PlaceBid() error = %v, want ErrAuctionEnded", err)
		}
	})

	t.Run("UnknownAuction", func(t *testing.T) {
		f := newFixture()
		if _, err := f.m.PlaceBid(ctx, "ZZZZ", "1", 1000); !errors.Is(err, repositories.ErrAuctionNotFound) {
			t.Errorf("PlaceBid() error = %v, want ErrAuctionNotFound", err)
		}
	})
}

func TestSettleExpired(t *testing.T) {
	ctx := context.Background()

	t.Run("WinnerGetsItemPrize", func(t *testing.T) {
		f := newFixture()
		f.seedUser("1", 5000)
		a, _ := f.m.Create(ctx, PrizeLargeBooster, 1000, time.Hour, "999")
		_, _ = f.m.PlaceBid(ctx, a.AuctionID, "1", 1000)

		a, _ = f.m.Get(ctx, a.AuctionID)
		a.EndTime = time.Now().Add(-time.Minute)
		_ = f.repo.Update(ctx, a)

		if err := f.m.SettleExpired(ctx, time.Now()); err != nil {
			t.Fatalf("SettleExpired() error = %v", err)
		}

		winner := f.users.users["1"]
		if got := winner.Items["large_booster"].Amount; got != 1 {
			t.Errorf("large booster amount = %d, want 1", got)
		}
		if winner.CurrentXP != 4000 {
			t.Errorf("balance = %v, want 4000 (escrow stays spent)", winner.CurrentXP)
		}
		if len(f.notifier.winners) != 1 || f.notifier.winners[0] != "1" {
			t.Errorf("winner notifications = %v, want [1]", f.notifier.winners)
		}
		if _, err := f.m.Get(ctx, a.AuctionID); !errors.Is(err, repositories.ErrAuctionNotFound) {
			t.Error("settled auction should be deleted")
		}
	})

	t.Run("WinnerGetsRolePrize", func(t *testing.T) {
		f := newFixture()
		f.seedUser("1", 5000)
		a, _ := f.m.Create(ctx, PrizeSpecialRole1, 1000, time.Hour, "999")
		_, _ = f.m.PlaceBid(ctx, a.AuctionID, "1", 1000)

		a, _ = f.m.Get(ctx, a.AuctionID)
		a.EndTime = time.Now().Add(-time.Minute)
		_ = f.repo.Update(ctx, a)

		if err := f.m.SettleExpired(ctx, time.Now()); err != nil {
			t.Fatalf("SettleExpired() error = %v", err)
		}
		if !f.users.users["1"].Roles["special_role_1"] {
			t.Error("winner should own special_role_1")
		}
	})

	t.Run("NoBidsJustEnds", func(t *testing.T) {
		f := newFixture()
		a, _ := f.m.Create(ctx, PrizeLargeBooster, 1000, time.Hour, "999")
		a.EndTime = time.Now().Add(-time.Minute)
		_ = f.repo.Update(ctx, a)

		if err := f.m.SettleExpired(ctx, time.Now()); err != nil {
			t.Fatalf("SettleExpired() error = %v", err)
		}
		if len(f.notifier.winners) != 0 {
			t.Errorf("winner notifications = %v, want none", f.notifier.winners)
		}
		if f.notifier.ends != 1 {
			t.Errorf("end announcements = %d, want 1", f.notifier.ends)
		}
	})

	t.Run("StillRunningIsLeftAlone", func(t *testing.T) {
		f := newFixture()
		a, _ := f.m.Create(ctx, PrizeLargeBooster, 1000, time.Hour, "999")

		if err := f.m.SettleExpired(ctx, time.Now()); err != nil {
			t.Fatalf("SettleExpired() error = %v", err)
		}
		if _, err := f.m.Get(ctx, a.AuctionID); err != nil {
			t.Errorf("running auction should survive the sweep: %v", err)
		}
	})
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	f := newFixture()
	f.seedUser("1", 2000)
	a, _ := f.m.Create(ctx, PrizeCustomRolePass, 1000, time.Hour, "999")
	_, _ = f.m.PlaceBid(ctx, a.AuctionID, "1", 1000)

	if err := f.m.Cancel(ctx, a.AuctionID); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}

	if bal := f.users.users["1"].CurrentXP; bal != 2000 {
		t.Errorf("balance = %v, want 2000 (refunded)", bal)
	}
	if f.notifier.cancels != 1 {
		t.Errorf("cancel announcements = %d, want 1", f.notifier.cancels)
	}
	if _, err := f.m.Get(ctx, a.AuctionID); !errors.Is(err, repositories.ErrAuctionNotFound) {
		t.Error("cancelled auction should be deleted")
	}
}

func TestParsePrize(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   Prize
		wantOK bool
	}{
		{name: "Pass", input: "custom_role_pass", want: PrizeCustomRolePass, wantOK: true},
		{name: "LargeAlias", input: "large", want: PrizeLargeBooster, wantOK: true},
		{name: "SpecialRole", input: "special1", want: PrizeSpecialRole1, wantOK: true},
		{name: "SmallBoosterNotAuctionable", input: "small_booster", wantOK: false},
		{name: "ColorRoleNotAuctionable", input: "Red", wantOK: false},
		{name: "Garbage", input: "???", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParsePrize(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ParsePrize(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
