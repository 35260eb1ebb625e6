package repositories

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/shorbot/levelbot/levelbot/database/models"
	"github.com/uptrace/bun"
)

type UserRepository interface {
	GetOrCreate(ctx context.Context, discordID string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	GetAll(ctx context.Context) ([]*models.User, error)
	GetTopByTotalXP(ctx context.Context, limit int) ([]*models.User, error)
	GetTopByMessageCount(ctx context.Context, limit int) ([]*models.User, error)
	CountWithMoreXP(ctx context.Context, totalXP float64) (int, error)
	ResetWeeklyCounts(ctx context.Context) error
	Reset(ctx context.Context, discordID string) error
	SetRole(ctx context.Context, discordID string, roleKey string, owned bool) error
	SetItem(ctx context.Context, discordID string, itemKey string, item models.Item) error
}

type userRepository struct {
	db *bun.DB
}

func NewUserRepository(db *bun.DB) UserRepository {
	return &userRepository{db: db}
}

// GetOrCreate reads a user record, inserting the zero-default record on first
// contact. Creation is racy against a concurrent first message from the same
// user; the conflict clause makes the second insert a no-op.
func (r *userRepository) GetOrCreate(ctx context.Context, discordID string) (*models.User, error) {
	user := new(models.User)
	err := r.db.NewSelect().
		Model(user).
		Where("discord_id = ?", discordID).
		Scan(ctx)
	if err == nil {
		if user.Roles == nil {
			user.Roles = map[string]bool{}
		}
		if user.Items == nil {
			user.Items = map[string]models.Item{}
		}
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	now := time.Now()
	user = &models.User{
		DiscordID: discordID,
		Roles:     map[string]bool{},
		Items:     map[string]models.Item{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err = r.db.NewInsert().
		Model(user).
		On("CONFLICT (discord_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	if user.ID == 0 {
		// A concurrent insert won the race and ours was a no-op.
		// Read back the winning row so callers hold a usable pk.
		if err := r.db.NewSelect().
			Model(user).
			Where("discord_id = ?", discordID).
			Scan(ctx); err != nil {
			return nil, err
		}
		if user.Roles == nil {
			user.Roles = map[string]bool{}
		}
		if user.Items == nil {
			user.Items = map[string]models.Item{}
		}
		return user, nil
	}

	slog.Debug("Created user record",
		slog.String("type", "db"),
		slog.String("discord_id", discordID))
	return user, nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now()
	_, err := r.db.NewUpdate().
		Model(user).
		WherePK().
		Exec(ctx)
	return err
}

func (r *userRepository) GetAll(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	err := r.db.NewSelect().
		Model(&users).
		Scan(ctx)
	return users, err
}

func (r *userRepository) GetTopByTotalXP(ctx context.Context, limit int) ([]*models.User, error) {
	var users []*models.User
	err := r.db.NewSelect().
		Model(&users).
		Order("total_xp DESC").
		Limit(limit).
		Scan(ctx)
	return users, err
}

func (r *userRepository) GetTopByMessageCount(ctx context.Context, limit int) ([]*models.User, error) {
	var users []*models.User
	err := r.db.NewSelect().
		Model(&users).
		Order("message_count DESC").
		Limit(limit).
		Scan(ctx)
	return users, err
}

func (r *userRepository) CountWithMoreXP(ctx context.Context, totalXP float64) (int, error) {
	return r.db.NewSelect().
		Model((*models.User)(nil)).
		Where("total_xp > ?", totalXP).
		Count(ctx)
}

func (r *userRepository) ResetWeeklyCounts(ctx context.Context) error {
	_, err := r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("message_count = 0").
		Set("updated_at = ?", time.Now()).
		Where("message_count <> 0").
		Exec(ctx)
	return err
}

// Reset zeroes a user's progress in place. The record itself survives, as do
// created_at and the discord id.
func (r *userRepository) Reset(ctx context.Context, discordID string) error {
	_, err := r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("current_xp = 0").
		Set("total_xp = 0").
		Set("level = 0").
		Set("message_count = 0").
		Set("last_message_time = NULL").
		Set("roles = ?", map[string]bool{}).
		Set("items = ?", map[string]models.Item{}).
		Set("updated_at = ?", time.Now()).
		Where("discord_id = ?", discordID).
		Exec(ctx)
	return err
}

// SetRole and SetItem are read-modify-write over the JSONB maps. Racing
// writers lose whole-document style, which is the store contract the callers
// are written against.

func (r *userRepository) SetRole(ctx context.Context, discordID string, roleKey string, owned bool) error {
	user, err := r.GetOrCreate(ctx, discordID)
	if err != nil {
		return err
	}
	user.Roles[roleKey] = owned
	return r.Update(ctx, user)
}

func (r *userRepository) SetItem(ctx context.Context, discordID string, itemKey string, item models.Item) error {
	user, err := r.GetOrCreate(ctx, discordID)
	if err != nil {
		return err
	}
	user.Items[itemKey] = item
	return r.Update(ctx, user)
}
