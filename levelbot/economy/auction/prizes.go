package auction

import (
	"github.com/shorbot/levelbot/levelbot/economy/items"
)

// Prize is the closed set of things an auction can award.
type Prize string

const (
	PrizeSpecialRole1   Prize = Prize(items.RoleSpecial1)
	PrizeSpecialRole2   Prize = Prize(items.RoleSpecial2)
	PrizeCustomRolePass Prize = Prize(items.CustomRolePass)
	PrizeLargeBooster   Prize = Prize(items.LargeBooster)
)

// Prizes is the display order of auctionable prizes.
func Prizes() []Prize {
	return []Prize{PrizeSpecialRole1, PrizeSpecialRole2, PrizeCustomRolePass, PrizeLargeBooster}
}

// ParsePrize folds user input into a canonical prize, accepting the same
// aliases the shop does.
func ParsePrize(input string) (Prize, bool) {
	if k, ok := items.NormalizeItem(input); ok {
		if k == items.CustomRolePass || k == items.LargeBooster {
			return Prize(k), true
		}
		return "", false
	}
	if r, ok := items.NormalizeRole(input); ok {
		if r == items.RoleSpecial1 || r == items.RoleSpecial2 {
			return Prize(r), true
		}
	}
	return "", false
}

// DisplayName renders an auction item type for humans.
func DisplayName(itemType string) string {
	return itemDisplayName(itemType)
}

func itemDisplayName(itemType string) string {
	switch Prize(itemType) {
	case PrizeSpecialRole1, PrizeSpecialRole2:
		return items.RoleDisplayName(items.RoleKey(itemType))
	default:
		return items.Kind(itemType).DisplayName()
	}
}
