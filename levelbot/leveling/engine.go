package leveling

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/shorbot/levelbot/levelbot/database/models"
	"github.com/shorbot/levelbot/levelbot/database/repositories"
	"github.com/shorbot/levelbot/levelbot/economy/items"
	"github.com/shorbot/levelbot/levelbot/logger"
)

// BonusRole grants a percentage XP bonus to holders of a guild role. Only
// the single highest applicable bonus counts, they do not stack.
type BonusRole struct {
	RoleID  snowflake.ID `toml:"role_id"`
	Percent float64      `toml:"percent"`
}

// LevelRole is one tier of the level-role ladder. A user holds every tier
// at or below their level.
type LevelRole struct {
	Level  int          `toml:"level"`
	RoleID snowflake.ID `toml:"role_id"`
}

type Settings struct {
	BaseXP     float64
	BonusRoles []BonusRole
	LevelRoles []LevelRole
}

// GrantResult reports the outcome of an XP mutation.
type GrantResult struct {
	User      *models.User
	Gained    float64
	OldLevel  int
	NewLevel  int
	LeveledUp bool
}

// Engine owns all XP bookkeeping: message grants, admin adjustments, the
// weekly message-count rollover and level-role synchronization.
type Engine struct {
	users    repositories.UserRepository
	meta     repositories.MetaRepository
	settings Settings
}

func NewEngine(users repositories.UserRepository, meta repositories.MetaRepository, settings Settings) *Engine {
	return &Engine{
		users:    users,
		meta:     meta,
		settings: settings,
	}
}

// WeekMarkerFor formats the ISO week marker for t, e.g. "2026-W35".
func WeekMarkerFor(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// EnsureCurrentWeek rolls message counts over to a new ISO week. The check
// runs before every message grant; two concurrent callers can both see a
// stale marker and reset twice, which leaves counts at zero either way.
func (e *Engine) EnsureCurrentWeek(ctx context.Context, now time.Time) error {
	marker := WeekMarkerFor(now)

	stored, err := e.meta.GetWeek(ctx)
	if err != nil {
		return fmt.Errorf("failed to load week marker: %w", err)
	}
	if stored == marker {
		return nil
	}

	if stored != "" {
		if err := e.users.ResetWeeklyCounts(ctx); err != nil {
			return fmt.Errorf("failed to reset weekly counts: %w", err)
		}
		slog.Info("Weekly message counts reset",
			slog.String("type", string(logger.TypeDB)),
			slog.String("previous_week", stored),
			slog.String("week", marker),
		)
	}
	return e.meta.SetWeek(ctx, marker)
}

// MessageGain computes the XP awarded for one message: base XP scaled by
// the member's highest role bonus and their active booster, rounded to two
// decimals.
func (e *Engine) MessageGain(user *models.User, memberRoles []snowflake.ID) float64 {
	var bonus float64
	for _, br := range e.settings.BonusRoles {
		if br.Percent <= bonus {
			continue
		}
		for _, id := range memberRoles {
			if id == br.RoleID {
				bonus = br.Percent
				break
			}
		}
	}

	gain := e.settings.BaseXP * (1 + bonus/100) * items.ActiveMultiplier(user)
	return round2(gain)
}

// GrantMessageXP records one counted message: weekly rollover check, message
// count increment and the XP grant, persisted as a single update.
func (e *Engine) GrantMessageXP(ctx context.Context, userID snowflake.ID, username string, memberRoles []snowflake.ID) (GrantResult, error) {
	now := time.Now()
	if err := e.EnsureCurrentWeek(ctx, now); err != nil {
		return GrantResult{}, err
	}

	user, err := e.users.GetOrCreate(ctx, userID.String())
	if err != nil {
		return GrantResult{}, err
	}

	gain := e.MessageGain(user, memberRoles)
	user.MessageCount++
	res := e.apply(user, gain, username, now)
	res.Gained = gain

	if err := e.users.Update(ctx, user); err != nil {
		return GrantResult{}, err
	}
	return res, nil
}

// GrantXP applies an arbitrary XP delta to a user. Negative deltas debit the
// spendable balance only; lifetime XP never decreases.
func (e *Engine) GrantXP(ctx context.Context, userID snowflake.ID, username string, delta float64) (GrantResult, error) {
	if err := e.EnsureCurrentWeek(ctx, time.Now()); err != nil {
		return GrantResult{}, err
	}

	user, err := e.users.GetOrCreate(ctx, userID.String())
	if err != nil {
		return GrantResult{}, err
	}

	res := e.apply(user, delta, username, time.Now())
	res.Gained = delta

	if err := e.users.Update(ctx, user); err != nil {
		return GrantResult{}, err
	}
	return res, nil
}

// apply mutates the loaded record in place. Balance moves by the full delta,
// lifetime XP only by positive deltas, and the level is recomputed from
// lifetime XP.
func (e *Engine) apply(user *models.User, delta float64, username string, now time.Time) GrantResult {
	oldLevel := user.Level

	user.CurrentXP = round2(user.CurrentXP + delta)
	if delta > 0 {
		user.TotalXP = round2(user.TotalXP + delta)
	}
	user.Level = LevelFromXP(user.TotalXP)
	if username != "" {
		user.LastUsername = username
	}
	user.LastMessageTime = &now

	return GrantResult{
		User:      user,
		OldLevel:  oldLevel,
		NewLevel:  user.Level,
		LeveledUp: user.Level > oldLevel,
	}
}

// DesiredLevelRoles returns every ladder tier at or below level.
func (e *Engine) DesiredLevelRoles(level int) []snowflake.ID {
	var out []snowflake.ID
	for _, lr := range e.settings.LevelRoles {
		if lr.Level <= level {
			out = append(out, lr.RoleID)
		}
	}
	return out
}

// SyncLevelRoles reconciles a member's ladder roles against their level,
// adding missing tiers and removing tiers above it. Individual role edits
// that fail are logged and skipped so one bad role cannot wedge the rest.
func (e *Engine) SyncLevelRoles(ctx context.Context, restClient rest.Rest, guildID, userID snowflake.ID, level int, memberRoles []snowflake.ID) {
	held := make(map[snowflake.ID]bool, len(memberRoles))
	for _, id := range memberRoles {
		held[id] = true
	}

	for _, lr := range e.settings.LevelRoles {
		switch {
		case lr.Level <= level && !held[lr.RoleID]:
			if err := restClient.AddMemberRole(guildID, userID, lr.RoleID, rest.WithCtx(ctx)); err != nil {
				slog.Error("Failed to add level role",
					slog.String("type", string(logger.TypeSystem)),
					slog.String("user_id", userID.String()),
					slog.Int64("role_id", int64(lr.RoleID)),
					slog.String("error", err.Error()),
				)
			}
		case lr.Level > level && held[lr.RoleID]:
			if err := restClient.RemoveMemberRole(guildID, userID, lr.RoleID, rest.WithCtx(ctx)); err != nil {
				slog.Error("Failed to remove level role",
					slog.String("type", string(logger.TypeSystem)),
					slog.String("user_id", userID.String()),
					slog.Int64("role_id", int64(lr.RoleID)),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
