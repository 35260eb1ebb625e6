package items

import (
	"strings"

	"github.com/sahilm/fuzzy"
	"github.com/shorbot/levelbot/levelbot/database/models"
)

// Kind is the closed set of consumable items a user can hold.
type Kind string

const (
	TinyBooster    Kind = "tiny_booster"
	SmallBooster   Kind = "small_booster"
	MediumBooster  Kind = "medium_booster"
	LargeBooster   Kind = "large_booster"
	CustomRolePass Kind = "custom_role_pass"
)

// RoleKey is the closed set of purchasable cosmetic roles.
type RoleKey string

const (
	RoleRed      RoleKey = "Red"
	RoleOrange   RoleKey = "Orange"
	RoleTeal     RoleKey = "Teal"
	RoleBlue     RoleKey = "Blue"
	RolePurple   RoleKey = "Purple"
	RoleBlack    RoleKey = "Black"
	RoleSpecial1 RoleKey = "special_role_1"
	RoleSpecial2 RoleKey = "special_role_2"
)

type BoosterInfo struct {
	DisplayName     string
	Price           float64
	Multiplier      float64
	DurationMinutes int
	Purchasable     bool
}

// The large booster is auction-only; everything else sells in the shop.
var boosters = map[Kind]BoosterInfo{
	TinyBooster:    {DisplayName: "Tiny Booster | 1.1x XP Booster", Price: 1440, Multiplier: 1.1, DurationMinutes: 4320, Purchasable: true},
	SmallBooster:   {DisplayName: "Small Booster | 1.2x XP Booster", Price: 2160, Multiplier: 1.2, DurationMinutes: 4320, Purchasable: true},
	MediumBooster:  {DisplayName: "Medium Booster | 1.3x XP Booster", Price: 3240, Multiplier: 1.3, DurationMinutes: 4320, Purchasable: true},
	LargeBooster:   {DisplayName: "Large Booster | 1.5x XP Booster", Price: 4320, Multiplier: 1.5, DurationMinutes: 4320, Purchasable: false},
}

var rolePrices = map[RoleKey]float64{
	RoleRed:      1000,
	RoleOrange:   1000,
	RoleTeal:     1000,
	RoleBlue:     1000,
	RolePurple:   1000,
	RoleBlack:    1000,
	RoleSpecial1: 5000,
	RoleSpecial2: 5000,
}

func (k Kind) IsBooster() bool {
	_, ok := boosters[k]
	return ok
}

func (k Kind) DisplayName() string {
	if info, ok := boosters[k]; ok {
		return info.DisplayName
	}
	if k == CustomRolePass {
		return "Custom Role Pass"
	}
	return string(k)
}

func Booster(k Kind) (BoosterInfo, bool) {
	info, ok := boosters[k]
	return info, ok
}

// Multiplier returns the XP factor of a booster kind, 1.0 for anything else.
func Multiplier(k Kind) float64 {
	if info, ok := boosters[k]; ok {
		return info.Multiplier
	}
	return 1.0
}

// BoosterKinds is the display/sweep order of booster tiers.
func BoosterKinds() []Kind {
	return []Kind{TinyBooster, SmallBooster, MediumBooster, LargeBooster}
}

func RolePrice(r RoleKey) float64 {
	return rolePrices[r]
}

func RoleDisplayName(r RoleKey) string {
	switch r {
	case RoleSpecial1:
		return "Special Role 1"
	case RoleSpecial2:
		return "Special Role 2"
	default:
		return string(r)
	}
}

func ColorRoles() []RoleKey {
	return []RoleKey{RoleRed, RoleOrange, RoleTeal, RoleBlue, RolePurple, RoleBlack}
}

func SpecialRoles() []RoleKey {
	return []RoleKey{RoleSpecial1, RoleSpecial2}
}

// The alias tables fold every historic spelling into the canonical key.
var itemAliases = map[string]Kind{
	"tiny_booster":     TinyBooster,
	"tiny":             TinyBooster,
	"booster1":         TinyBooster,
	"small_booster":    SmallBooster,
	"small":            SmallBooster,
	"booster2":         SmallBooster,
	"medium_booster":   MediumBooster,
	"medium":           MediumBooster,
	"booster3":         MediumBooster,
	"large_booster":    LargeBooster,
	"large":            LargeBooster,
	"booster4":         LargeBooster,
	"custom_role_pass": CustomRolePass,
	"customrolepass":   CustomRolePass,
	"customrole":       CustomRolePass,
	"crp":              CustomRolePass,
}

var roleAliases = map[string]RoleKey{
	"red":            RoleRed,
	"orange":         RoleOrange,
	"teal":           RoleTeal,
	"blue":           RoleBlue,
	"purple":         RolePurple,
	"black":          RoleBlack,
	"special_role_1": RoleSpecial1,
	"specialrole1":   RoleSpecial1,
	"special1":       RoleSpecial1,
	"special_role_2": RoleSpecial2,
	"specialrole2":   RoleSpecial2,
	"special2":       RoleSpecial2,
}

// NormalizeItem resolves user input to a canonical item kind.
func NormalizeItem(input string) (Kind, bool) {
	k, ok := itemAliases[strings.ToLower(strings.TrimSpace(input))]
	return k, ok
}

// NormalizeRole resolves user input to a canonical shop role key.
func NormalizeRole(input string) (RoleKey, bool) {
	r, ok := roleAliases[strings.ToLower(strings.TrimSpace(input))]
	return r, ok
}

// Suggest fuzzy-matches unrecognized input against every known alias so the
// shop can answer "did you mean ...".
func Suggest(input string, max int) []string {
	var names []string
	for alias := range itemAliases {
		names = append(names, alias)
	}
	for alias := range roleAliases {
		names = append(names, alias)
	}

	matches := fuzzy.Find(strings.ToLower(strings.TrimSpace(input)), names)
	var out []string
	for i, m := range matches {
		if i >= max {
			break
		}
		out = append(out, m.Str)
	}
	return out
}

// ActiveBooster returns the user's currently running booster, if any. The
// rules allow at most one, but the scan tolerates more and returns the first
// by tier order.
func ActiveBooster(user *models.User) (Kind, bool) {
	for _, k := range BoosterKinds() {
		if item, ok := user.Items[string(k)]; ok && item.Active == 1 {
			return k, true
		}
	}
	return "", false
}

// ActiveMultiplier is the XP factor contributed by the user's active
// booster, 1.0 when none is running.
func ActiveMultiplier(user *models.User) float64 {
	if k, ok := ActiveBooster(user); ok {
		return Multiplier(k)
	}
	return 1.0
}
