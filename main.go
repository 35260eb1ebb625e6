package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/handler"
	"github.com/shorbot/levelbot/levelbot"
	"github.com/shorbot/levelbot/levelbot/commands"
	"github.com/shorbot/levelbot/levelbot/database"
	"github.com/shorbot/levelbot/levelbot/database/repositories"
	"github.com/shorbot/levelbot/levelbot/economy/auction"
	"github.com/shorbot/levelbot/levelbot/economy/customrole"
	"github.com/shorbot/levelbot/levelbot/economy/gamble"
	"github.com/shorbot/levelbot/levelbot/economy/items"
	"github.com/shorbot/levelbot/levelbot/handlers"
	"github.com/shorbot/levelbot/levelbot/leveling"
	"github.com/shorbot/levelbot/levelbot/logger"
	"github.com/shorbot/levelbot/levelbot/migration"
	"github.com/shorbot/levelbot/levelbot/services"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	customHandler := logger.NewHandler()
	slog.SetDefault(slog.New(customHandler))

	slog.Info("Starting LevelBot",
		slog.String("version", version),
		slog.String("commit", commit))

	shouldSyncCommands := flag.Bool("sync-commands", false, "Whether to sync commands to discord")
	importLegacy := flag.Bool("import-legacy", false, "Import users from the legacy document store, then exit")
	mongoURI := flag.String("mongo-uri", "", "Connection string of the legacy store (with -import-legacy)")
	mongoDB := flag.String("mongo-db", "levelbot", "Database name in the legacy store (with -import-legacy)")
	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	cfg, err := levelbot.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}
	slog.Info("Configuration loaded successfully")

	slog.Info("Initializing database connection...")
	dbStartTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	db, err := database.New(ctx, cfg.DB)
	if err != nil {
		slog.Error("Database connection failed",
			slog.String("error", err.Error()),
			slog.Duration("attempted_for", time.Since(dbStartTime)))
		os.Exit(-1)
	}

	slog.Info("Database connected successfully",
		slog.String("database", cfg.DB.Database),
		slog.Duration("took", time.Since(dbStartTime)))

	slog.Info("Initializing database schema...")
	if err := db.InitializeSchema(ctx); err != nil {
		slog.Error("Failed to initialize database schema",
			slog.String("error", err.Error()),
			slog.Duration("attempted_for", time.Since(dbStartTime)))
		os.Exit(-1)
	}
	slog.Info("Database schema initialized successfully")

	defer db.Close()

	if *importLegacy {
		if err := runLegacyImport(ctx, db, *mongoURI, *mongoDB); err != nil {
			slog.Error("Legacy import failed", slog.Any("error", err))
			os.Exit(-1)
		}
		return
	}

	b := levelbot.New(cfg, version, commit)
	b.DB = db
	b.UserRepository = repositories.NewUserRepository(db.BunDB())
	b.AuctionRepository = repositories.NewAuctionRepository(db.BunDB())
	b.MetaRepository = repositories.NewMetaRepository(db.BunDB())

	b.Engine = leveling.NewEngine(b.UserRepository, b.MetaRepository, cfg.Leveling.Settings())
	b.Cooldown, err = leveling.NewCooldownCache(cfg.Leveling.Cooldown())
	if err != nil {
		slog.Error("Failed to initialize cooldown cache", slog.Any("error", err))
		os.Exit(-1)
	}
	b.Inventory = items.NewInventory(b.UserRepository, cfg.Items.BoosterDurations)
	b.Coinflip = gamble.NewCoinflip(b.UserRepository, b.Engine, cfg.Gamble.Cooldown(), nil)
	b.BoosterSweeper = items.NewBoosterSweeper(b.UserRepository, b.Inventory, cfg.Items.BoosterCheckInterval())

	b.RankCards = services.NewRankCardService()
	b.Backgrounds, err = services.NewBackgroundService(
		cfg.Spaces.Key,
		cfg.Spaces.Secret,
		cfg.Spaces.Region,
		cfg.Spaces.Bucket,
		cfg.Spaces.BackgroundRoot,
	)
	if err != nil {
		slog.Error("Failed to initialize background service", slog.Any("error", err))
		os.Exit(-1)
	}

	h := handler.New()
	commands.Register(h, b)

	messageHandler := handlers.NewMessageHandler(b.Engine, b.Cooldown, cfg.Channels.LevelUp)

	if err = b.SetupBot(h, bot.NewListenerFunc(b.OnReady), bot.NewListenerFunc(messageHandler.OnMessageCreate)); err != nil {
		slog.Error("Failed to setup bot",
			slog.String("type", "sys"),
			slog.Any("error", err),
			slog.String("error_details", fmt.Sprintf("%+v", err)),
			slog.String("component", "bot_setup"),
			slog.String("status", "failed"),
		)
		os.Exit(-1)
	}

	// These need the gateway client, so they come after SetupBot but before
	// the gateway opens and OnReady starts them.
	notifier := auction.NewNotifier(b.Client, cfg.Channels.Auction)
	b.AuctionManager = auction.NewManager(b.AuctionRepository, b.UserRepository, b.Inventory, notifier, auction.Config{
		MinDuration:   time.Duration(cfg.Auction.MinDurationHours) * time.Hour,
		MaxDuration:   time.Duration(cfg.Auction.MaxDurationHours) * time.Hour,
		CheckInterval: cfg.Auction.CheckInterval(),
	})
	b.BoosterSweeper.SetClient(b.Client)
	b.CustomRoles = customrole.NewManager(b.Client, b.UserRepository, cfg.Roles.CustomRoleAnchor)
	b.CustomRoleSweeper = customrole.NewSweeper(b.Client, b.UserRepository, cfg.Bot.Guilds, cfg.Items.CustomRoleCheckInterval())

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		b.Shutdown(ctx)
	}()

	if *shouldSyncCommands {
		slog.Info("Syncing commands",
			slog.String("type", "sys"),
			slog.Any("guild_ids", cfg.Bot.DevGuilds),
		)
		if err = handler.SyncCommands(b.Client, commands.Commands, cfg.Bot.DevGuilds); err != nil {
			slog.Error("Failed to sync commands",
				slog.String("type", "sys"),
				slog.Any("error", err),
				slog.String("error_details", fmt.Sprintf("%+v", err)),
				slog.String("component", "command_sync"),
				slog.String("status", "failed"),
			)
		}
	}

	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err = b.Client.OpenGateway(ctx); err != nil {
		slog.Error("Failed to open gateway",
			slog.String("type", "sys"),
			slog.Any("error", err),
			slog.String("error_details", fmt.Sprintf("%+v", err)),
			slog.String("component", "gateway"),
			slog.String("status", "failed"),
		)
		os.Exit(-1)
	}

	slog.Info("Bot is running. Press CTRL-C to exit.")
	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM)
	<-s
}

func runLegacyImport(ctx context.Context, db *database.DB, uri, dbName string) error {
	if uri == "" {
		return fmt.Errorf("-import-legacy requires -mongo-uri")
	}
	client, err := migration.Connect(ctx, uri)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Disconnect(ctx)
	}()

	importer := migration.NewImporter(db.BunDB())
	importer.UseMongo(client, dbName)
	return importer.Run(ctx)
}
