package items

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shorbot/levelbot/levelbot/database/models"
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

func (f *fakeUsers) GetAll(context.Context) ([]*models.User, error) {
	var out []*models.User
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeUsers) GetTopByTotalXP(context.Context, int) ([]*models.User, error)      { return nil, nil }
func (f *fakeUsers) GetTopByMessageCount(context.Context, int) ([]*models.User, error) { return nil, nil }
func (f *fakeUsers) CountWithMoreXP(context.Context, float64) (int, error)             { return 0, nil }
func (f *fakeUsers) ResetWeeklyCounts(context.Context) error                           { return nil }

func (f *fakeUsers) Reset(_ context.Context, discordID string) error {
	delete(f.users, discordID)
	return nil
}

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

func TestInventoryAdd(t *testing.T) {
	users := newFakeUsers()
	inv := NewInventory(users, nil)

	if err := inv.Add(context.Background(), "1", TinyBooster, 2); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := inv.Add(context.Background(), "1", TinyBooster, 1); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if got := users.users["1"].Items["tiny_booster"].Amount; got != 3 {
		t.Errorf("Amount = %d, want 3", got)
	}
}

func TestActivateBooster(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	t.Run("NotOwned", func(t *testing.T) {
		inv := NewInventory(newFakeUsers(), nil)
		if err := inv.Use(context.Background(), "1", SmallBooster, now); !errors.Is(err, ErrNotOwned) {
			t.Errorf("Use() error = %v, want ErrNotOwned", err)
		}
	})

	t.Run("ConsumesAndActivates", func(t *testing.T) {
		users := newFakeUsers()
		inv := NewInventory(users, nil)
		_ = inv.Add(context.Background(), "1", SmallBooster, 1)

		if err := inv.Use(context.Background(), "1", SmallBooster, now); err != nil {
			t.Fatalf("Use() error = %v", err)
		}
		item := users.users["1"].Items["small_booster"]
		if item.Amount != 0 || item.Active != 1 || item.TimeActivated == nil {
			t.Errorf("item = %+v, want consumed and active", item)
		}
	})

	t.Run("MutuallyExclusive", func(t *testing.T) {
		users := newFakeUsers()
		inv := NewInventory(users, nil)
		_ = inv.Add(context.Background(), "1", SmallBooster, 1)
		_ = inv.Add(context.Background(), "1", LargeBooster, 1)
		_ = inv.Use(context.Background(), "1", SmallBooster, now)

		if err := inv.Use(context.Background(), "1", LargeBooster, now); !errors.Is(err, ErrBoosterActive) {
			t.Errorf("Use() error = %v, want ErrBoosterActive", err)
		}
		if got := users.users["1"].Items["large_booster"].Amount; got != 1 {
			t.Errorf("large booster amount = %d, want 1 (not consumed)", got)
		}
	})

	t.Run("PassNotBlockedByBooster", func(t *testing.T) {
		users := newFakeUsers()
		inv := NewInventory(users, nil)
		_ = inv.Add(context.Background(), "1", SmallBooster, 1)
		_ = inv.Add(context.Background(), "1", CustomRolePass, 1)
		_ = inv.Use(context.Background(), "1", SmallBooster, now)

		if err := inv.Use(context.Background(), "1", CustomRolePass, now); err != nil {
			t.Errorf("Use(pass) error = %v", err)
		}
	})
}

func TestActivatePass(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	users := newFakeUsers()
	inv := NewInventory(users, nil)
	_ = inv.Add(context.Background(), "1", CustomRolePass, 2)

	expiry, err := inv.ActivatePass(context.Background(), "1", now)
	if err != nil {
		t.Fatalf("ActivatePass() error = %v", err)
	}
	if want := now.Add(PassDuration); !expiry.Equal(want) {
		t.Errorf("expiry = %v, want %v", expiry, want)
	}

	// A second activation inside the window must not burn the second pass.
	_, err = inv.ActivatePass(context.Background(), "1", now.Add(24*time.Hour))
	var active *PassActiveError
	if !errors.As(err, &active) {
		t.Fatalf("ActivatePass() error = %v, want PassActiveError", err)
	}
	if want := 29 * 24 * time.Hour; active.Remaining != want {
		t.Errorf("Remaining = %v, want %v", active.Remaining, want)
	}
	if got := users.users["1"].Items["custom_role_pass"].Amount; got != 1 {
		t.Errorf("Amount = %d, want 1", got)
	}

	// After the window lapses the remaining pass can be activated again.
	later := now.Add(PassDuration).Add(time.Hour)
	if _, err := inv.ActivatePass(context.Background(), "1", later); err != nil {
		t.Fatalf("ActivatePass() after expiry error = %v", err)
	}
	if got := users.users["1"].Items["custom_role_pass"].Amount; got != 0 {
		t.Errorf("Amount = %d, want 0", got)
	}
}

func TestBoosterSweep(t *testing.T) {
	start := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	users := newFakeUsers()
	inv := NewInventory(users, nil)
	sweeper := NewBoosterSweeper(users, inv, time.Minute)

	_ = inv.Add(context.Background(), "1", TinyBooster, 1)
	_ = inv.Use(context.Background(), "1", TinyBooster, start)
	_ = inv.Add(context.Background(), "2", MediumBooster, 1)
	_ = inv.Use(context.Background(), "2", MediumBooster, start)

	lifetime := inv.BoosterLifetime(TinyBooster)

	// Mid-lifetime sweep leaves both running.
	if err := sweeper.Sweep(context.Background(), start.Add(lifetime/2)); err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if users.users["1"].Items["tiny_booster"].Active != 1 {
		t.Error("booster deactivated before its lifetime ran out")
	}

	if err := sweeper.Sweep(context.Background(), start.Add(lifetime)); err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	for id, key := range map[string]string{"1": "tiny_booster", "2": "medium_booster"} {
		item := users.users[id].Items[key]
		if item.Active != 0 || item.TimeActivated != nil {
			t.Errorf("user %s item %s = %+v, want deactivated", id, key, item)
		}
	}
}

func TestBoosterLifetimeOverride(t *testing.T) {
	inv := NewInventory(newFakeUsers(), map[string]int{"tiny_booster": 60})
	if got := inv.BoosterLifetime(TinyBooster); got != time.Hour {
		t.Errorf("overridden lifetime = %v, want 1h", got)
	}
	if got := inv.BoosterLifetime(SmallBooster); got != 4320*time.Minute {
		t.Errorf("default lifetime = %v, want 72h", got)
	}
}
