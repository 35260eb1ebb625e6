package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shorbot/levelbot/levelbot/database/models"
	"github.com/uptrace/bun"
)

// MetaRepository holds process-global values, currently just the ISO week
// marker for the weekly message-count reset.
type MetaRepository interface {
	GetWeek(ctx context.Context) (string, error)
	SetWeek(ctx context.Context, week string) error
}

type metaRepository struct {
	db *bun.DB
}

func NewMetaRepository(db *bun.DB) MetaRepository {
	return &metaRepository{db: db}
}

// GetWeek returns "" when no marker has been stored yet, which callers treat
// as "every week is new".
func (r *metaRepository) GetWeek(ctx context.Context) (string, error) {
	marker := new(models.WeekMarker)
	err := r.db.NewSelect().
		Model(marker).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return marker.Week, nil
}

func (r *metaRepository) SetWeek(ctx context.Context, week string) error {
	marker := new(models.WeekMarker)
	err := r.db.NewSelect().
		Model(marker).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		_, err = r.db.NewInsert().
			Model(&models.WeekMarker{Week: week, UpdatedAt: time.Now()}).
			Exec(ctx)
		return err
	}
	if err != nil {
		return err
	}

	marker.Week = week
	marker.UpdatedAt = time.Now()
	_, err = r.db.NewUpdate().
		Model(marker).
		WherePK().
		Exec(ctx)
	return err
}
