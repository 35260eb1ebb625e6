package migration

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shorbot/levelbot/levelbot/database/models"
	"github.com/uptrace/bun"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
)

// Importer copies the old bot's document store into the relational schema.
// It is a one-shot tool, run behind a flag, and safe to re-run: inserts are
// ON CONFLICT DO NOTHING so existing rows win.
type Importer struct {
	pgDB      *bun.DB
	mongoDB   *mongo.Database
	batchSize int
	collNames map[string]string

	stats ImportStats
}

type ImportStats struct {
	Users     int
	Skipped   int
	StartTime time.Time
}

func NewImporter(pgDB *bun.DB) *Importer {
	return &Importer{
		pgDB:      pgDB,
		batchSize: 1000,
		collNames: map[string]string{
			"users": "users",
			"meta":  "meta",
		},
		stats: ImportStats{StartTime: time.Now()},
	}
}

// Connect opens the legacy store. Callers own the returned client and should
// Disconnect it once the import finishes.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to legacy store: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("legacy store unreachable: %w", err)
	}
	return client, nil
}

// UseMongo points the importer at a live database.
func (m *Importer) UseMongo(client *mongo.Client, dbName string) {
	if client != nil && dbName != "" {
		m.mongoDB = client.Database(dbName)
	}
}

// SetBatchSize overrides the default insert batch size.
func (m *Importer) SetBatchSize(size int) {
	if size > 0 {
		m.batchSize = size
	}
}

// SetCollectionName overrides a collection name for stores that renamed them.
func (m *Importer) SetCollectionName(kind, name string) {
	if kind != "" && name != "" {
		m.collNames[kind] = name
	}
}

func (m *Importer) getColl(kind string) *mongo.Collection {
	if m.mongoDB == nil {
		return nil
	}
	return m.mongoDB.Collection(m.collNames[kind])
}

// Run imports users and the week marker. The two collections are independent,
// so they stream concurrently.
func (m *Importer) Run(ctx context.Context) error {
	if m.mongoDB == nil {
		return fmt.Errorf("no legacy store configured")
	}

	logProgress("Starting legacy import...")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return m.importUsers(ctx) })
	g.Go(func() error { return m.importWeekMarker(ctx) })
	if err := g.Wait(); err != nil {
		return err
	}

	logProgress(fmt.Sprintf("Legacy import finished: %d users in %s (%d skipped)",
		m.stats.Users, time.Since(m.stats.StartTime).Round(time.Millisecond), m.stats.Skipped))
	return nil
}

func (m *Importer) importUsers(ctx context.Context) error {
	col := m.getColl("users")
	cur, err := col.Find(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("failed to query legacy users: %w", err)
	}
	defer cur.Close(ctx)

	var batch []*models.User
	for cur.Next(ctx) {
		var lu LegacyUser
		if err := cur.Decode(&lu); err != nil {
			m.stats.Skipped++
			continue
		}
		if lu.ID == "" {
			m.stats.Skipped++
			continue
		}
		batch = append(batch, m.convertUser(lu))
		if len(batch) >= m.batchSize {
			if err := m.batchInsertUsers(ctx, batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := cur.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		if err := m.batchInsertUsers(ctx, batch); err != nil {
			return err
		}
	}
	return nil
}

func (m *Importer) convertUser(lu LegacyUser) *models.User {
	now := time.Now()
	u := &models.User{
		DiscordID:       lu.ID,
		CurrentXP:       lu.XP,
		TotalXP:         lu.TotalXP,
		Level:           lu.Level,
		MessageCount:    lu.Messages,
		LastUsername:    lu.LastUsername,
		LastMessageTime: lu.LastMessageTime,
		LastGambleTime:  lu.LastGambleTime,
		Roles:           lu.Roles,
		Items:           make(map[string]models.Item, len(lu.Items)),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if u.Roles == nil {
		u.Roles = map[string]bool{}
	}
	// Older exports only carried current XP. Lifetime XP can never be below
	// the spendable balance, so backfill it.
	if u.TotalXP < u.CurrentXP {
		u.TotalXP = u.CurrentXP
	}
	for key, it := range lu.Items {
		u.Items[key] = models.Item{
			Amount:        it.Amount,
			Active:        it.Active,
			TimeActivated: it.TimeActivated,
			RoleID:        it.RoleID,
		}
	}
	return u
}

func (m *Importer) batchInsertUsers(ctx context.Context, users []*models.User) error {
	_, err := m.pgDB.NewInsert().
		Model(&users).
		On("CONFLICT (discord_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert user batch: %w", err)
	}
	m.stats.Users += len(users)
	logProgress(fmt.Sprintf("Imported %d users so far", m.stats.Users))
	return nil
}

func (m *Importer) importWeekMarker(ctx context.Context) error {
	col := m.getColl("meta")
	cur, err := col.Find(ctx, bson.D{})
	if err != nil {
		logProgress("meta collection not found or query failed; skipping week marker")
		return nil
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var lm LegacyMeta
		if err := cur.Decode(&lm); err != nil {
			continue
		}
		if lm.ID != "weekly" || lm.Week == "" {
			continue
		}
		exists, err := m.pgDB.NewSelect().Model((*models.WeekMarker)(nil)).Exists(ctx)
		if err != nil {
			return err
		}
		if exists {
			logProgress("Week marker already present; skipping")
			return nil
		}
		marker := &models.WeekMarker{Week: lm.Week, UpdatedAt: time.Now()}
		if _, err := m.pgDB.NewInsert().Model(marker).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert week marker: %w", err)
		}
		logProgress(fmt.Sprintf("Imported week marker %s", lm.Week))
		return nil
	}
	return cur.Err()
}

func logProgress(message string) {
	slog.Info(message, slog.String("type", "sys"), slog.String("name", "importer"))
}
