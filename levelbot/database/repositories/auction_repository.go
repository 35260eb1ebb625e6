package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shorbot/levelbot/levelbot/database/models"
	"github.com/uptrace/bun"
)

var ErrAuctionNotFound = errors.New("auction not found")

type AuctionRepository interface {
	Create(ctx context.Context, auction *models.Auction) error
	GetByAuctionID(ctx context.Context, auctionID string) (*models.Auction, error)
	GetActive(ctx context.Context) ([]*models.Auction, error)
	GetExpired(ctx context.Context, now time.Time) ([]*models.Auction, error)
	Update(ctx context.Context, auction *models.Auction) error
	Delete(ctx context.Context, auctionID string) error
}

type auctionRepository struct {
	db *bun.DB
}

func NewAuctionRepository(db *bun.DB) AuctionRepository {
	return &auctionRepository{db: db}
}

func (r *auctionRepository) Create(ctx context.Context, auction *models.Auction) error {
	auction.CreatedAt = time.Now()
	auction.UpdatedAt = time.Now()
	_, err := r.db.NewInsert().Model(auction).Exec(ctx)
	return err
}

func (r *auctionRepository) GetByAuctionID(ctx context.Context, auctionID string) (*models.Auction, error) {
	auction := new(models.Auction)
	err := r.db.NewSelect().
		Model(auction).
		Where("auction_id = ?", auctionID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAuctionNotFound
	}
	if err != nil {
		return nil, err
	}
	return auction, nil
}

// GetActive returns every stored auction. Records only exist between creation
// and settlement/cancellation, so stored == active.
func (r *auctionRepository) GetActive(ctx context.Context) ([]*models.Auction, error) {
	var auctions []*models.Auction
	err := r.db.NewSelect().
		Model(&auctions).
		Order("end_time ASC").
		Scan(ctx)
	return auctions, err
}

func (r *auctionRepository) GetExpired(ctx context.Context, now time.Time) ([]*models.Auction, error) {
	var auctions []*models.Auction
	err := r.db.NewSelect().
		Model(&auctions).
		Where("end_time <= ?", now).
		Order("end_time ASC").
		Scan(ctx)
	return auctions, err
}

func (r *auctionRepository) Update(ctx context.Context, auction *models.Auction) error {
	auction.UpdatedAt = time.Now()
	_, err := r.db.NewUpdate().
		Model(auction).
		WherePK().
		Exec(ctx)
	return err
}

func (r *auctionRepository) Delete(ctx context.Context, auctionID string) error {
	_, err := r.db.NewDelete().
		Model((*models.Auction)(nil)).
		Where("auction_id = ?", auctionID).
		Exec(ctx)
	return err
}
