// Package config loads and validates kraken configuration via Viper.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/kraken/internal/catalog"
	"github.com/JakeFAU/kraken/internal/dataset"
	"github.com/JakeFAU/kraken/internal/frontier"
	"github.com/JakeFAU/kraken/internal/harvester"
	"github.com/JakeFAU/kraken/internal/kraken"
	"github.com/JakeFAU/kraken/internal/riot"
)

// EnvPrefix prefixes every environment override, e.g. KRAKEN_STORE_DIR.
const EnvPrefix = "KRAKEN"

// Config captures every knob loaded via Viper.
type Config struct {
	Riot    RiotConfig    `mapstructure:"riot"`
	Quota   QuotaConfig   `mapstructure:"quota"`
	Harvest HarvestConfig `mapstructure:"harvest"`
	Store   StoreConfig   `mapstructure:"store"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Extract ExtractConfig `mapstructure:"extract"`
	Dataset DatasetConfig `mapstructure:"dataset"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// RiotConfig locates the Riot API.
type RiotConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	RegionalURL string        `mapstructure:"regional_url"`
	PlatformURL string        `mapstructure:"platform_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	UserAgent   string        `mapstructure:"user_agent"`
}

// QuotaConfig is the request ceiling the governor enforces.
type QuotaConfig struct {
	RequestsPerWindow int           `mapstructure:"requests_per_window"`
	Window            time.Duration `mapstructure:"window"`
	BurstPerSecond    int           `mapstructure:"burst_per_second"`
}

// HarvestConfig tunes the crawl.
type HarvestConfig struct {
	Duration            time.Duration `mapstructure:"duration"`
	MaxMatchesPerPlayer int           `mapstructure:"max_matches_per_player"`
	MaxMatchesTotal     int           `mapstructure:"max_matches_total"`
	IdleExitAfter       time.Duration `mapstructure:"idle_exit_after"`
	Mode                string        `mapstructure:"mode"`
	RoleFocus           []string      `mapstructure:"role_focus"`
	AllowRanks          []string      `mapstructure:"allow_ranks"`
	LogInterval         time.Duration `mapstructure:"log_interval"`
	MatchPageSize       int           `mapstructure:"match_page_size"`
	Queue               int           `mapstructure:"queue"`
	FetchAttempts       int           `mapstructure:"fetch_attempts"`
}

// StoreConfig locates the raw match corpus.
type StoreConfig struct {
	Dir string `mapstructure:"dir"`
}

// CatalogConfig enables the optional Postgres match catalog.
type CatalogConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// ExtractConfig names the extracted tables.
type ExtractConfig struct {
	OutDir      string `mapstructure:"out_dir"`
	PlayersFile string `mapstructure:"players_file"`
	TeamsFile   string `mapstructure:"teams_file"`
}

// DatasetConfig tunes the ML dataset builders.
type DatasetConfig struct {
	OutDir      string `mapstructure:"out_dir"`
	HistorySize int    `mapstructure:"history_size"`
	MinMatches  int    `mapstructure:"min_matches"`
	QueueID     int    `mapstructure:"queue_id"`
}

// MetricsConfig controls the status server.
type MetricsConfig struct {
	// Addr enables the status server when set, e.g. ":9090".
	Addr string `mapstructure:"addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from defaults, an optional file and the environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The key is commonly exported without the prefix.
	if err := v.BindEnv("riot.api_key", EnvPrefix+"_RIOT_API_KEY", "RIOT_API_KEY"); err != nil {
		return Config{}, fmt.Errorf("bind riot api key: %w", err)
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	absorb := harvester.AbsorbPolicy()
	v.SetDefault("riot.regional_url", riot.DefaultRegionalURL)
	v.SetDefault("riot.platform_url", riot.DefaultPlatformURL)
	v.SetDefault("riot.timeout", 10*time.Second)
	v.SetDefault("riot.user_agent", "kraken/0.1")
	v.SetDefault("quota.requests_per_window", absorb.RequestsPerWindow)
	v.SetDefault("quota.window", absorb.Window)
	v.SetDefault("quota.burst_per_second", absorb.BurstPerSecond)
	v.SetDefault("harvest.duration", absorb.Duration)
	v.SetDefault("harvest.max_matches_per_player", absorb.MaxMatchesPerPlayer)
	v.SetDefault("harvest.max_matches_total", absorb.MaxMatchesTotal)
	v.SetDefault("harvest.idle_exit_after", absorb.IdleExitAfter)
	v.SetDefault("harvest.mode", string(absorb.Mode))
	v.SetDefault("harvest.log_interval", absorb.LogInterval)
	v.SetDefault("harvest.match_page_size", absorb.MatchPageSize)
	v.SetDefault("harvest.queue", dataset.SoloQueueID)
	v.SetDefault("harvest.fetch_attempts", absorb.FetchAttempts)
	v.SetDefault("store.dir", filepath.Join("data", "matches"))
	v.SetDefault("catalog.table", "matches")
	v.SetDefault("catalog.max_conns", 4)
	v.SetDefault("extract.out_dir", filepath.Join("data", "parquet"))
	v.SetDefault("extract.players_file", "players.parquet")
	v.SetDefault("extract.teams_file", "teams.parquet")
	v.SetDefault("dataset.out_dir", filepath.Join("data", "ml"))
	v.SetDefault("dataset.history_size", dataset.DefaultHistorySize)
	v.SetDefault("dataset.min_matches", dataset.DefaultMinMatches)
	v.SetDefault("dataset.queue_id", dataset.SoloQueueID)
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits. The API key is
// checked by the commands that call the API.
func (c Config) Validate() error {
	if c.Riot.Timeout <= 0 {
		return kraken.Configf("riot.timeout", "must be > 0")
	}
	if strings.TrimSpace(c.Store.Dir) == "" {
		return kraken.Configf("store.dir", "is required")
	}
	if c.Extract.OutDir == "" || c.Extract.PlayersFile == "" || c.Extract.TeamsFile == "" {
		return kraken.Configf("extract", "out_dir, players_file and teams_file are required")
	}
	if _, err := frontier.ParseMode(c.Harvest.Mode); err != nil {
		return err
	}
	if c.Harvest.Queue < 0 {
		return kraken.Configf("harvest.queue", "must not be negative")
	}
	if err := c.HarvestPolicy().Validate(); err != nil {
		return err
	}
	return c.DatasetOptions().Validate()
}

// HarvestPolicy maps the harvest and quota sections onto a policy.
func (c Config) HarvestPolicy() harvester.Policy {
	mode, _ := frontier.ParseMode(c.Harvest.Mode)
	return harvester.Policy{
		Duration:            c.Harvest.Duration,
		MaxMatchesPerPlayer: c.Harvest.MaxMatchesPerPlayer,
		MaxMatchesTotal:     c.Harvest.MaxMatchesTotal,
		IdleExitAfter:       c.Harvest.IdleExitAfter,
		Mode:                mode,
		RoleFocus:           frontier.SplitList(strings.Join(c.Harvest.RoleFocus, ",")),
		AllowRanks:          frontier.SplitList(strings.Join(c.Harvest.AllowRanks, ",")),
		LogInterval:         c.Harvest.LogInterval,
		MatchPageSize:       c.Harvest.MatchPageSize,
		FetchAttempts:       c.Harvest.FetchAttempts,
		RequestsPerWindow:   c.Quota.RequestsPerWindow,
		Window:              c.Quota.Window,
		BurstPerSecond:      c.Quota.BurstPerSecond,
	}
}

// RiotClient maps the riot section onto the client configuration.
func (c Config) RiotClient() riot.Config {
	return riot.Config{
		APIKey:      c.Riot.APIKey,
		RegionalURL: c.Riot.RegionalURL,
		PlatformURL: c.Riot.PlatformURL,
		UserAgent:   c.Riot.UserAgent,
		Timeout:     c.Riot.Timeout,
		Queue:       c.Harvest.Queue,
	}
}

// CatalogEnabled reports whether a catalog DSN was configured.
func (c Config) CatalogEnabled() bool {
	return c.Catalog.DSN != ""
}

// CatalogStore maps the catalog section onto the Postgres configuration.
func (c Config) CatalogStore() catalog.Config {
	return catalog.Config{DSN: c.Catalog.DSN, Table: c.Catalog.Table, MaxConns: c.Catalog.MaxConns}
}

// DatasetOptions maps the dataset section onto builder options.
func (c Config) DatasetOptions() dataset.Options {
	return dataset.Options{
		HistorySize: c.Dataset.HistorySize,
		MinMatches:  c.Dataset.MinMatches,
		QueueID:     c.Dataset.QueueID,
	}
}

// PlayersTable is where extract players writes.
func (c Config) PlayersTable() string {
	return filepath.Join(c.Extract.OutDir, c.Extract.PlayersFile)
}

// TeamsTable is where extract teams writes.
func (c Config) TeamsTable() string {
	return filepath.Join(c.Extract.OutDir, c.Extract.TeamsFile)
}
