package levelbot

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/shorbot/levelbot/levelbot/database"
	"github.com/shorbot/levelbot/levelbot/leveling"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

type Config struct {
	Log        LogConfig         `toml:"log"`
	Bot        BotConfig         `toml:"bot"`
	DB         database.DBConfig `toml:"db"`
	Spaces     SpacesConfig      `toml:"spaces"`
	Leveling   LevelingConfig    `toml:"leveling"`
	Items      ItemsConfig       `toml:"items"`
	Auction    AuctionConfig     `toml:"auction"`
	Gamble     GambleConfig      `toml:"gamble"`
	Channels   ChannelsConfig    `toml:"channels"`
	Roles      RolesConfig       `toml:"roles"`
}

type BotConfig struct {
	DevGuilds []snowflake.ID `toml:"dev_guilds"`
	Guilds    []snowflake.ID `toml:"guilds"`
	Token     string         `toml:"token"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"`
	AddSource bool       `toml:"add_source"`
}

type SpacesConfig struct {
	Key            string `toml:"key"`
	Secret         string `toml:"secret"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	BackgroundRoot string `toml:"background_root"`
}

type LevelingConfig struct {
	BaseXP          float64              `toml:"base_xp"`
	CooldownSeconds int                  `toml:"cooldown_seconds"`
	BonusRoles      []leveling.BonusRole `toml:"bonus_roles"`
	LevelRoles      []leveling.LevelRole `toml:"level_roles"`
}

// Settings projects the leveling section into the engine's settings.
func (c LevelingConfig) Settings() leveling.Settings {
	return leveling.Settings{
		BaseXP:     c.BaseXP,
		BonusRoles: c.BonusRoles,
		LevelRoles: c.LevelRoles,
	}
}

func (c LevelingConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

type ItemsConfig struct {
	BoosterCheckSeconds    int `toml:"booster_check_seconds"`
	CustomRoleCheckSeconds int `toml:"custom_role_check_seconds"`

	// Per-tier booster lifetimes in minutes, keyed by item key
	// (tiny_booster, small_booster, ...). Missing tiers fall back to the
	// catalog default.
	BoosterDurations map[string]int `toml:"booster_durations"`
}

func (c ItemsConfig) BoosterCheckInterval() time.Duration {
	return time.Duration(c.BoosterCheckSeconds) * time.Second
}

func (c ItemsConfig) CustomRoleCheckInterval() time.Duration {
	return time.Duration(c.CustomRoleCheckSeconds) * time.Second
}

type AuctionConfig struct {
	CheckSeconds     int `toml:"check_seconds"`
	MinDurationHours int `toml:"min_duration_hours"`
	MaxDurationHours int `toml:"max_duration_hours"`
}

func (c AuctionConfig) CheckInterval() time.Duration {
	return time.Duration(c.CheckSeconds) * time.Second
}

type GambleConfig struct {
	CooldownSeconds int `toml:"cooldown_seconds"`
}

func (c GambleConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

type ChannelsConfig struct {
	Commands snowflake.ID `toml:"commands"`
	Auction  snowflake.ID `toml:"auction"`
	LevelUp  snowflake.ID `toml:"level_up"`
}

type RolesConfig struct {
	Admin      []snowflake.ID `toml:"admin"`
	Auctioneer []snowflake.ID `toml:"auctioneer"`

	// Custom roles created through the pass are positioned directly below
	// this role when set.
	CustomRoleAnchor snowflake.ID `toml:"custom_role_anchor"`

	// Guild role ids backing the purchasable shop roles, keyed by the
	// canonical role key (Red, Orange, ..., special_role_1, special_role_2).
	Shop map[string]snowflake.ID `toml:"shop"`
}

func (cfg *Config) applyDefaults() {
	if cfg.Leveling.BaseXP == 0 {
		cfg.Leveling.BaseXP = 5
	}
	if cfg.Leveling.CooldownSeconds == 0 {
		cfg.Leveling.CooldownSeconds = 60
	}
	if cfg.Items.BoosterCheckSeconds == 0 {
		cfg.Items.BoosterCheckSeconds = 60
	}
	if cfg.Items.CustomRoleCheckSeconds == 0 {
		cfg.Items.CustomRoleCheckSeconds = 3600
	}
	if cfg.Auction.CheckSeconds == 0 {
		cfg.Auction.CheckSeconds = 60
	}
	if cfg.Auction.MinDurationHours == 0 {
		cfg.Auction.MinDurationHours = 1
	}
	if cfg.Auction.MaxDurationHours == 0 {
		cfg.Auction.MaxDurationHours = 72
	}
	if cfg.Gamble.CooldownSeconds == 0 {
		cfg.Gamble.CooldownSeconds = 300
	}
}
