package items

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shorbot/levelbot/levelbot/database/models"
	"github.com/shorbot/levelbot/levelbot/database/repositories"
)

// PassDuration is how long one custom role pass keeps its role alive.
const PassDuration = 30 * 24 * time.Hour

var (
	ErrNotOwned      = errors.New("item not owned")
	ErrNotUsable     = errors.New("item cannot be used")
	ErrBoosterActive = errors.New("another booster is already active")
)

// PassActiveError reports an activation attempt while a pass window is
// still running.
type PassActiveError struct {
	Remaining time.Duration
}

func (e *PassActiveError) Error() string {
	return fmt.Sprintf("custom role pass already active, %s remaining", e.Remaining.Round(time.Minute))
}

// Inventory applies item mutations to user records: grants from purchases
// and auction wins, booster activation and the custom role pass window.
type Inventory struct {
	users     repositories.UserRepository
	durations map[Kind]time.Duration
}

// NewInventory builds an inventory service. durationOverrides holds per-tier
// booster lifetimes in minutes keyed by item key; missing tiers use the
// catalog default.
func NewInventory(users repositories.UserRepository, durationOverrides map[string]int) *Inventory {
	durations := make(map[Kind]time.Duration)
	for key, minutes := range durationOverrides {
		if k, ok := NormalizeItem(key); ok && minutes > 0 {
			durations[k] = time.Duration(minutes) * time.Minute
		}
	}
	return &Inventory{users: users, durations: durations}
}

// BoosterLifetime returns the configured lifetime of a booster tier.
func (inv *Inventory) BoosterLifetime(k Kind) time.Duration {
	if d, ok := inv.durations[k]; ok {
		return d
	}
	if info, ok := Booster(k); ok {
		return time.Duration(info.DurationMinutes) * time.Minute
	}
	return 0
}

// Add credits count copies of an item to a user.
func (inv *Inventory) Add(ctx context.Context, discordID string, k Kind, count int) error {
	user, err := inv.users.GetOrCreate(ctx, discordID)
	if err != nil {
		return err
	}
	item := user.Items[string(k)]
	item.Amount += count
	return inv.users.SetItem(ctx, discordID, string(k), item)
}

// Use consumes one copy of an item and activates its effect. Boosters are
// mutually exclusive; the pass is not a booster and may run alongside one.
func (inv *Inventory) Use(ctx context.Context, discordID string, k Kind, now time.Time) error {
	switch {
	case k.IsBooster():
		return inv.activateBooster(ctx, discordID, k, now)
	case k == CustomRolePass:
		_, err := inv.ActivatePass(ctx, discordID, now)
		return err
	default:
		return ErrNotUsable
	}
}

func (inv *Inventory) activateBooster(ctx context.Context, discordID string, k Kind, now time.Time) error {
	user, err := inv.users.GetOrCreate(ctx, discordID)
	if err != nil {
		return err
	}

	item := user.Items[string(k)]
	if item.Amount <= 0 {
		return ErrNotOwned
	}
	if _, active := ActiveBooster(user); active {
		return ErrBoosterActive
	}

	item.Amount--
	item.Active = 1
	item.TimeActivated = &now
	return inv.users.SetItem(ctx, discordID, string(k), item)
}

// ActivatePass consumes one custom role pass and opens its window, returning
// the expiry time. Activating while a window is open fails with
// PassActiveError instead of burning a second pass.
func (inv *Inventory) ActivatePass(ctx context.Context, discordID string, now time.Time) (time.Time, error) {
	user, err := inv.users.GetOrCreate(ctx, discordID)
	if err != nil {
		return time.Time{}, err
	}

	item := user.Items[string(CustomRolePass)]
	if item.Active == 1 && item.TimeActivated != nil {
		expiry := item.TimeActivated.Add(PassDuration)
		if now.Before(expiry) {
			return time.Time{}, &PassActiveError{Remaining: expiry.Sub(now)}
		}
	}
	if item.Amount <= 0 {
		return time.Time{}, ErrNotOwned
	}

	item.Amount--
	item.Active = 1
	item.TimeActivated = &now
	if err := inv.users.SetItem(ctx, discordID, string(CustomRolePass), item); err != nil {
		return time.Time{}, err
	}
	return now.Add(PassDuration), nil
}

// PassExpiry returns the end of the user's current pass window, or false
// when no window is open.
func PassExpiry(user *models.User) (time.Time, bool) {
	item, ok := user.Items[string(CustomRolePass)]
	if !ok || item.Active != 1 || item.TimeActivated == nil {
		return time.Time{}, false
	}
	return item.TimeActivated.Add(PassDuration), true
}

// Deactivate clears an item's active flag without refunding it.
func (inv *Inventory) Deactivate(ctx context.Context, discordID string, k Kind, user *models.User) error {
	item := user.Items[string(k)]
	item.Active = 0
	item.TimeActivated = nil
	return inv.users.SetItem(ctx, discordID, string(k), item)
}
