package customrole

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/json"
	"github.com/disgoorg/snowflake/v2"
	"github.com/shorbot/levelbot/levelbot/database/repositories"
	"github.com/shorbot/levelbot/levelbot/economy/items"
)

const (
	minNameLen  = 2
	maxNameLen  = 100
	maxIconSize = 256 * 1024
)

var (
	ErrNoActivePass = errors.New("no active custom role pass")
	ErrNameLength   = fmt.Errorf("role name must be between %d and %d characters", minNameLen, maxNameLen)
	ErrBadColor     = errors.New("color must be a 6 digit hex value like #1abc9c")
	ErrIconTooLarge = fmt.Errorf("role icon must be at most %d KB", maxIconSize/1024)
	ErrBadIcon      = errors.New("role icon must be an emoji or an image url")
)

var colorPattern = regexp.MustCompile(`^#?([0-9a-fA-F]{6})$`)

// ParseColor validates a hex color with an optional leading '#'.
func ParseColor(input string) (int, error) {
	m := colorPattern.FindStringSubmatch(strings.TrimSpace(input))
	if m == nil {
		return 0, ErrBadColor
	}
	v, err := strconv.ParseInt(m[1], 16, 32)
	if err != nil {
		return 0, ErrBadColor
	}
	return int(v), nil
}

// roleAPI is what the manager needs from the rest client.
type roleAPI interface {
	GetRoles(guildID snowflake.ID, opts ...rest.RequestOpt) ([]discord.Role, error)
	CreateRole(guildID snowflake.ID, createRole discord.RoleCreate, opts ...rest.RequestOpt) (*discord.Role, error)
	UpdateRole(guildID snowflake.ID, roleID snowflake.ID, roleUpdate discord.RoleUpdate, opts ...rest.RequestOpt) (*discord.Role, error)
	UpdateRolePositions(guildID snowflake.ID, rolePositionUpdates []discord.RolePositionUpdate, opts ...rest.RequestOpt) ([]discord.Role, error)
	DeleteRole(guildID snowflake.ID, roleID snowflake.ID, opts ...rest.RequestOpt) error
	AddMemberRole(guildID snowflake.ID, userID snowflake.ID, roleID snowflake.ID, opts ...rest.RequestOpt) error
}

// Manager creates and maintains the personal roles backed by a custom role
// pass. The created role id is stored on the pass item so a second request
// edits the existing role instead of stacking new ones.
type Manager struct {
	roles      roleAPI
	users      repositories.UserRepository
	httpClient *http.Client
	anchorRole snowflake.ID
}

// NewManager builds a manager. anchorRole is optional; when set, new custom
// roles are positioned directly below it.
func NewManager(client bot.Client, users repositories.UserRepository, anchorRole snowflake.ID) *Manager {
	return &Manager{
		roles:      client.Rest(),
		users:      users,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		anchorRole: anchorRole,
	}
}

// CreateOrUpdate validates the request and creates the member's custom role,
// or edits it in place when the pass already references one. It requires an
// open pass window and returns the resulting role.
func (m *Manager) CreateOrUpdate(ctx context.Context, guildID, userID snowflake.ID, name, colorHex, icon string) (*discord.Role, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < minNameLen || n > maxNameLen {
		return nil, ErrNameLength
	}
	color, err := ParseColor(colorHex)
	if err != nil {
		return nil, err
	}

	user, err := m.users.GetOrCreate(ctx, userID.String())
	if err != nil {
		return nil, err
	}
	if _, open := items.PassExpiry(user); !open {
		return nil, ErrNoActivePass
	}

	var roleIcon *discord.Icon
	var emoji string
	if icon != "" {
		if strings.HasPrefix(icon, "http://") || strings.HasPrefix(icon, "https://") {
			roleIcon, err = m.fetchIcon(ctx, icon)
			if err != nil {
				return nil, err
			}
		} else {
			emoji = icon
		}
	}

	pass := user.Items[string(items.CustomRolePass)]
	if pass.RoleID != "" {
		if roleID, parseErr := snowflake.Parse(pass.RoleID); parseErr == nil {
			update := discord.RoleUpdate{
				Name:  &name,
				Color: &color,
			}
			if roleIcon != nil {
				update.Icon = json.NewNullablePtr(*roleIcon)
			} else if emoji != "" {
				update.Emoji = &emoji
			}
			role, updateErr := m.roles.UpdateRole(guildID, roleID, update, rest.WithCtx(ctx))
			if updateErr == nil {
				m.reposition(ctx, guildID, role.ID)
				return role, nil
			}
			// The stored role is gone, fall through and recreate it.
		}
	}

	create := discord.RoleCreate{
		Name:  name,
		Color: color,
		Icon:  roleIcon,
		Emoji: emoji,
	}

	role, err := m.roles.CreateRole(guildID, create, rest.WithCtx(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to create custom role: %w", err)
	}

	if err := m.roles.AddMemberRole(guildID, userID, role.ID, rest.WithCtx(ctx)); err != nil {
		return nil, fmt.Errorf("failed to assign custom role: %w", err)
	}
	m.reposition(ctx, guildID, role.ID)

	pass.RoleID = role.ID.String()
	if err := m.users.SetItem(ctx, userID.String(), string(items.CustomRolePass), pass); err != nil {
		return nil, err
	}
	return role, nil
}

// fetchIcon downloads a role icon and rejects anything over the size limit
// or with a non-image content type.
func (m *Manager) fetchIcon(ctx context.Context, url string) (*discord.Icon, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, ErrBadIcon
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download role icon: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ErrBadIcon
	}

	var iconType discord.IconType
	switch resp.Header.Get("Content-Type") {
	case "image/png":
		iconType = discord.IconTypePNG
	case "image/jpeg", "image/jpg":
		iconType = discord.IconTypeJPEG
	case "image/gif":
		iconType = discord.IconTypeGIF
	case "image/webp":
		iconType = discord.IconTypeWEBP
	default:
		return nil, ErrBadIcon
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxIconSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read role icon: %w", err)
	}
	if len(data) > maxIconSize {
		return nil, ErrIconTooLarge
	}
	return discord.NewIconRaw(iconType, data), nil
}

// reposition slots the role directly below the anchor role. Position errors
// never fail the command, the role still exists and is assigned.
func (m *Manager) reposition(ctx context.Context, guildID, roleID snowflake.ID) {
	if m.anchorRole == 0 {
		return
	}
	roles, err := m.roles.GetRoles(guildID, rest.WithCtx(ctx))
	if err != nil {
		return
	}
	for _, r := range roles {
		if r.ID != m.anchorRole {
			continue
		}
		pos := r.Position - 1
		if pos < 1 {
			pos = 1
		}
		_, _ = m.roles.UpdateRolePositions(guildID, []discord.RolePositionUpdate{
			{ID: roleID, Position: &pos},
		}, rest.WithCtx(ctx))
		return
	}
}

// RemoveRole deletes a user's custom role from the guild and clears the
// stored reference on their pass item.
func (m *Manager) RemoveRole(ctx context.Context, guildID snowflake.ID, discordID string) error {
	user, err := m.users.GetOrCreate(ctx, discordID)
	if err != nil {
		return err
	}
	pass := user.Items[string(items.CustomRolePass)]
	if pass.RoleID != "" {
		if roleID, parseErr := snowflake.Parse(pass.RoleID); parseErr == nil {
			// Best effort, the role may already be gone. State is cleared
			// either way.
			_ = m.roles.DeleteRole(guildID, roleID, rest.WithCtx(ctx))
		}
	}

	pass.RoleID = ""
	pass.Active = 0
	pass.TimeActivated = nil
	return m.users.SetItem(ctx, discordID, string(items.CustomRolePass), pass)
}
