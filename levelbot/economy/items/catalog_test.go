package items

import (
	"testing"
	"time"

	"github.com/shorbot/levelbot/levelbot/database/models"
)

func TestNormalizeItem(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   Kind
		wantOK bool
	}{
		{name: "Canonical", input: "tiny_booster", want: TinyBooster, wantOK: true},
		{name: "Alias", input: "booster3", want: MediumBooster, wantOK: true},
		{name: "CaseAndSpace", input: "  LARGE  ", want: LargeBooster, wantOK: true},
		{name: "Pass", input: "crp", want: CustomRolePass, wantOK: true},
		{name: "Unknown", input: "mega_booster", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeItem(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("NormalizeItem(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestNormalizeRole(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   RoleKey
		wantOK bool
	}{
		{name: "Color", input: "Red", want: RoleRed, wantOK: true},
		{name: "SpecialAlias", input: "special2", want: RoleSpecial2, wantOK: true},
		{name: "Unknown", input: "gold", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeRole(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("NormalizeRole(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestActiveMultiplier(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name  string
		items map[string]models.Item
		want  float64
	}{
		{name: "NoItems", items: map[string]models.Item{}, want: 1.0},
		{name: "OwnedButInactive", items: map[string]models.Item{
			"small_booster": {Amount: 2},
		}, want: 1.0},
		{name: "ActiveSmall", items: map[string]models.Item{
			"small_booster": {Active: 1, TimeActivated: &now},
		}, want: 1.2},
		{name: "ActiveLarge", items: map[string]models.Item{
			"large_booster": {Active: 1, TimeActivated: &now},
		}, want: 1.5},
		{name: "PassDoesNotBoost", items: map[string]models.Item{
			"custom_role_pass": {Active: 1, TimeActivated: &now},
		}, want: 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := &models.User{Items: tt.items}
			if got := ActiveMultiplier(user); got != tt.want {
				t.Errorf("ActiveMultiplier() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLargeBoosterNotPurchasable(t *testing.T) {
	for _, k := range BoosterKinds() {
		info, ok := Booster(k)
		if !ok {
			t.Fatalf("Booster(%q) missing", k)
		}
		if k == LargeBooster && info.Purchasable {
			t.Error("large booster must not be purchasable")
		}
		if k != LargeBooster && !info.Purchasable {
			t.Errorf("%q should be purchasable", k)
		}
	}
}

func TestSuggest(t *testing.T) {
	got := Suggest("boster2", 3)
	if len(got) == 0 {
		t.Fatal("Suggest() returned nothing for a close typo")
	}
	found := false
	for _, s := range got {
		if s == "booster2" {
			found = true
		}
	}
	if !found {
		t.Errorf("Suggest(%q) = %v, want it to contain %q", "boster2", got, "booster2")
	}
}
