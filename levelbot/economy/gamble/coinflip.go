package gamble

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/shorbot/levelbot/levelbot/database/repositories"
	"github.com/shorbot/levelbot/levelbot/leveling"
)

const (
	maxWager = 1000

	// The win band is just under a fair coin; the sliver up to 0.500 is the
	// jackpot easter egg, which pays nothing.
	winThreshold     = 0.49995
	jackpotThreshold = 0.500

	winMultiplier = 5
)

var (
	ErrBadWager    = fmt.Errorf("wager must be between 1 and %d XP", maxWager)
	ErrNotEnoughXP = errors.New("not enough XP for this wager")
)

// CooldownError reports a flip attempted before the previous cooldown ran
// out.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("on cooldown for another %s", e.Remaining.Round(time.Second))
}

type Outcome int

const (
	OutcomeWin Outcome = iota
	OutcomeJackpot
	OutcomeLose
)

// Result reports one resolved flip.
type Result struct {
	Outcome Outcome
	Face    string
	Landed  string
	Wager   float64
	Delta   float64
	Balance float64
}

// Coinflip is the double-or-nothing XP game. Wins pay out five times the
// wager without taking the wager itself; losses take the wager.
type Coinflip struct {
	users    repositories.UserRepository
	engine   *leveling.Engine
	cooldown time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewCoinflip builds the game. rng may be nil, in which case a time-seeded
// source is used.
func NewCoinflip(users repositories.UserRepository, engine *leveling.Engine, cooldown time.Duration, rng *rand.Rand) *Coinflip {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Coinflip{
		users:    users,
		engine:   engine,
		cooldown: cooldown,
		rng:      rng,
	}
}

func (c *Coinflip) roll() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rng.Float64()
}

// Play resolves one flip for the user. face is "heads" or "tails" and only
// affects the flavor text, the odds are face-independent.
func (c *Coinflip) Play(ctx context.Context, userID snowflake.ID, username, face string, wager float64) (*Result, error) {
	if wager <= 0 || wager > maxWager {
		return nil, ErrBadWager
	}

	user, err := c.users.GetOrCreate(ctx, userID.String())
	if err != nil {
		return nil, err
	}
	if user.CurrentXP < wager {
		return nil, ErrNotEnoughXP
	}

	now := time.Now()
	if user.LastGambleTime != nil {
		if elapsed := now.Sub(*user.LastGambleTime); elapsed < c.cooldown {
			return nil, &CooldownError{Remaining: c.cooldown - elapsed}
		}
	}

	opposite := "tails"
	if face == "tails" {
		opposite = "heads"
	}

	res := &Result{Face: face, Wager: wager, Balance: user.CurrentXP}
	switch roll := c.roll(); {
	case roll < winThreshold:
		res.Outcome = OutcomeWin
		res.Landed = face
		res.Delta = wager * winMultiplier
	case roll <= jackpotThreshold:
		res.Outcome = OutcomeJackpot
		res.Landed = face
	default:
		res.Outcome = OutcomeLose
		res.Landed = opposite
		res.Delta = -wager
	}

	if res.Delta != 0 {
		grant, err := c.engine.GrantXP(ctx, userID, username, res.Delta)
		if err != nil {
			return nil, err
		}
		res.Balance = grant.User.CurrentXP
		user = grant.User
	}

	user.LastGambleTime = &now
	if err := c.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return res, nil
}
