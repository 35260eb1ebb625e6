package customrole

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/shorbot/levelbot/levelbot/database/models"
	"github.com/shorbot/levelbot/levelbot/economy/items"
)

type fakeRoleAPI struct {
	guildRoles []discord.Role

	updates    []discord.RoleUpdate
	creates    []discord.RoleCreate
	positioned []discord.RolePositionUpdate
	memberAdds int

	updateErr error
}

func (f *fakeRoleAPI) GetRoles(snowflake.ID, ...rest.RequestOpt) ([]discord.Role, error) {
	return f.guildRoles, nil
}

func (f *fakeRoleAPI) CreateRole(_ snowflake.ID, create discord.RoleCreate, _ ...rest.RequestOpt) (*discord.Role, error) {
	f.creates = append(f.creates, create)
	return &discord.Role{ID: 900, Name: create.Name}, nil
}

func (f *fakeRoleAPI) UpdateRole(_ snowflake.ID, roleID snowflake.ID, update discord.RoleUpdate, _ ...rest.RequestOpt) (*discord.Role, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.updates = append(f.updates, update)
	return &discord.Role{ID: roleID}, nil
}

func (f *fakeRoleAPI) UpdateRolePositions(_ snowflake.ID, updates []discord.RolePositionUpdate, _ ...rest.RequestOpt) ([]discord.Role, error) {
	f.positioned = append(f.positioned, updates...)
	return nil, nil
}

func (f *fakeRoleAPI) DeleteRole(snowflake.ID, snowflake.ID, ...rest.RequestOpt) error { return nil }

func (f *fakeRoleAPI) AddMemberRole(snowflake.ID, snowflake.ID, snowflake.ID, ...rest.RequestOpt) error {
	f.memberAdds++
	return nil
}

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

func newTestManager(api *fakeRoleAPI, users *fakeUsers) *Manager {
	return &Manager{
		roles:      api,
		users:      users,
		httpClient: &http.Client{Timeout: time.Second},
		anchorRole: 500,
	}
}

func passHolder(users *fakeUsers, discordID, roleID string) {
	activated := time.Now().Add(-time.Hour)
	u, _ := users.GetOrCreate(context.Background(), discordID)
	u.Items[string(items.CustomRolePass)] = models.Item{
		Amount:        0,
		Active:        1,
		TimeActivated: &activated,
		RoleID:        roleID,
	}
}

func TestCreateOrUpdate(t *testing.T) {
	ctx := context.Background()
	guildID := snowflake.ID(1)
	userID := snowflake.ID(42)

	t.Run("NoActivePass", func(t *testing.T) {
		m := newTestManager(&fakeRoleAPI{}, newFakeUsers())
		if _, err := m.CreateOrUpdate(ctx, guildID, userID, "Flame", "#ff0000", ""); !errors.Is(err, ErrNoActivePass) {
			t.Errorf("CreateOrUpdate() error = %v, want ErrNoActivePass", err)
		}
	})

	t.Run("UpdateKeepsIconAndRepositions", func(t *testing.T) {
		api := &fakeRoleAPI{guildRoles: []discord.Role{{ID: 500, Position: 10}}}
		users := newFakeUsers()
		passHolder(users, "42", "555")
		m := newTestManager(api, users)

		role, err := m.CreateOrUpdate(ctx, guildID, userID, "Flame", "#ff0000", "🔥")
		if err != nil {
			t.Fatalf("CreateOrUpdate() error = %v", err)
		}
		if role.ID != 555 {
			t.Errorf("role.ID = %d, want the stored role 555", role.ID)
		}
		if len(api.creates) != 0 {
			t.Fatalf("CreateRole called %d times, want 0", len(api.creates))
		}
		if len(api.updates) != 1 {
			t.Fatalf("UpdateRole called %d times, want 1", len(api.updates))
		}
		update := api.updates[0]
		if update.Name == nil || *update.Name != "Flame" {
			t.Errorf("update.Name = %v, want Flame", update.Name)
		}
		if update.Color == nil || *update.Color != 0xff0000 {
			t.Errorf("update.Color = %v, want ff0000", update.Color)
		}
		if update.Emoji == nil || *update.Emoji != "🔥" {
			t.Errorf("update.Emoji = %v, want 🔥", update.Emoji)
		}
		if len(api.positioned) != 1 {
			t.Fatalf("UpdateRolePositions called for %d roles, want 1", len(api.positioned))
		}
		if got := api.positioned[0]; got.ID != 555 || got.Position == nil || *got.Position != 9 {
			t.Errorf("positioned = %+v, want role 555 below the anchor at 9", got)
		}
		if got := users.users["42"].Items[string(items.CustomRolePass)].RoleID; got != "555" {
			t.Errorf("stored RoleID = %q, want unchanged 555", got)
		}
	})

	t.Run("GoneRoleIsRecreated", func(t *testing.T) {
		api := &fakeRoleAPI{
			guildRoles: []discord.Role{{ID: 500, Position: 10}},
			updateErr:  errors.New("unknown role"),
		}
		users := newFakeUsers()
		passHolder(users, "42", "555")
		m := newTestManager(api, users)

		role, err := m.CreateOrUpdate(ctx, guildID, userID, "Flame", "ff0000", "🔥")
		if err != nil {
			t.Fatalf("CreateOrUpdate() error = %v", err)
		}
		if len(api.creates) != 1 {
			t.Fatalf("CreateRole called %d times, want 1", len(api.creates))
		}
		if got := api.creates[0]; got.Name != "Flame" || got.Color != 0xff0000 || got.Emoji != "🔥" {
			t.Errorf("create = %+v, want name/color/emoji carried over", got)
		}
		if api.memberAdds != 1 {
			t.Errorf("AddMemberRole called %d times, want 1", api.memberAdds)
		}
		if got := users.users["42"].Items[string(items.CustomRolePass)].RoleID; got != role.ID.String() {
			t.Errorf("stored RoleID = %q, want %s", got, role.ID)
		}
	})

	t.Run("BadName", func(t *testing.T) {
		m := newTestManager(&fakeRoleAPI{}, newFakeUsers())
		if _, err := m.CreateOrUpdate(ctx, guildID, userID, "x", "#ff0000", ""); !errors.Is(err, ErrNameLength) {
			t.Errorf("CreateOrUpdate() error = %v, want ErrNameLength", err)
		}
	})
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{name: "WithHash", input: "#1abc9c", want: 0x1abc9c},
		{name: "WithoutHash", input: "ff0000", want: 0xff0000},
		{name: "UpperCase", input: "#FFAA00", want: 0xffaa00},
		{name: "Whitespace", input: "  #1abc9c  ", want: 0x1abc9c},
		{name: "TooShort", input: "#fff", wantErr: true},
		{name: "TooLong", input: "#1abc9c1", wantErr: true},
		{name: "NotHex", input: "#zzzzzz", wantErr: true},
		{name: "Empty", input: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseColor(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrBadColor) {
					t.Errorf("ParseColor(%q) error = %v, want ErrBadColor", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseColor(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseColor(%q) = %#x, want %#x", tt.input, got, tt.want)
			}
		})
	}
}
