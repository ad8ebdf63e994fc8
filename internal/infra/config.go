package infra

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for the dashboard service.
type Config struct {
	Server     ServerConfig      `mapstructure:"server"`
	Logger     LoggerConfig      `mapstructure:"logger"`
	Redis      RedisConfig       `mapstructure:"redis"`
	Board      BoardConfig       `mapstructure:"board"`
	Upstream   UpstreamConfig    `mapstructure:"upstream"`
	Dashboards []DashboardConfig `mapstructure:"dashboards"`
}

// ServerConfig describes the HTTP server.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// LoggerConfig controls zap logger behaviour.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// RedisConfig describes the optional Redis pub/sub ingestion transport.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

// BoardConfig contains the tuning knobs of the in-memory metrics store
// and its decay ticker.
type BoardConfig struct {
	TickInterval     time.Duration `mapstructure:"tick_interval"`
	DecayRate        float64       `mapstructure:"decay_rate"`
	IdleTickFallback int           `mapstructure:"idle_tick_fallback"`
	MaxPeople        int           `mapstructure:"max_people"`
	RemovalThreshold time.Duration `mapstructure:"removal_threshold"`
	RollingWindow    time.Duration `mapstructure:"rolling_window"`
	WindowCapacity   int           `mapstructure:"window_capacity"`
}

// UpstreamConfig describes the manual-finish metrics source.
type UpstreamConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	ManualFinishURL string        `mapstructure:"manual_finish_url"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// DashboardConfig provisions one dashboard at startup. The key set is
// closed: events referencing keys outside this list are rejected.
type DashboardConfig struct {
	Key           string      `mapstructure:"key"`
	Title         string      `mapstructure:"title"`
	Status        string      `mapstructure:"status"`
	IdleThreshold int         `mapstructure:"idle_threshold"`
	KPIs          []KPIConfig `mapstructure:"kpis"`
}

// KPIConfig is one zeroed KPI template slot.
type KPIConfig struct {
	Label string `mapstructure:"label"`
	Unit  string `mapstructure:"unit"`
}

// LoadConfig merges config file, environment and defaults.
func LoadConfig() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	// ENV overrides the file: SERVER_PORT=9000 overrides server.port.
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No file: run on ENV and defaults.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if len(cfg.Dashboards) == 0 {
		cfg.Dashboards = DefaultDashboards()
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5001)
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.channel", RedisChanJobEvents)
	v.SetDefault("board.tick_interval", time.Second)
	v.SetDefault("board.decay_rate", 0.99)
	v.SetDefault("board.idle_tick_fallback", 1)
	v.SetDefault("board.max_people", 5)
	v.SetDefault("board.removal_threshold", 30*time.Minute)
	v.SetDefault("board.rolling_window", time.Hour)
	v.SetDefault("board.window_capacity", 6000)
	v.SetDefault("upstream.enabled", false)
	v.SetDefault("upstream.cache_ttl", 5*time.Second)
	v.SetDefault("upstream.timeout", 5*time.Second)
}

// DefaultDashboards is the built-in provisioning set, one dashboard per
// warehouse process. The first two KPI slots of every event-driven board
// are the rate/total pair the aggregator maintains.
func DefaultDashboards() []DashboardConfig {
	return []DashboardConfig{
		{
			Key: "default", Title: "Sorting", Status: "good", IdleThreshold: 60,
			KPIs: []KPIConfig{
				{Label: "Sorts per hour", Unit: "packages/h"},
				{Label: "Sorted today", Unit: "packages"},
				{Label: "Error belt filling level", Unit: "packages"},
			},
		},
		{
			Key: "geekpicking", Title: "Geek Picking", Status: "good", IdleThreshold: 60,
			KPIs: []KPIConfig{
				{Label: "Picks per hour", Unit: "orders/h"},
				{Label: "Picked today", Unit: "orders"},
			},
		},
		{
			Key: "geekinbound", Title: "Geek Inbound", Status: "good", IdleThreshold: 60,
			KPIs: []KPIConfig{
				{Label: "Parcels per hour", Unit: "parcels/h"},
				{Label: "Parcels today", Unit: "parcels"},
				{Label: "Put-away backlog", Unit: "parcels"},
			},
		},
		{
			Key: "errorlanes", Title: "Error Handling", Status: "good", IdleThreshold: 60,
			KPIs: []KPIConfig{
				{Label: "Error actions per hour", Unit: "items/h"},
				{Label: "Error actions today", Unit: "items"},
				{Label: "Blocked chutes", Unit: "chutes"},
			},
		},
		{
			Key: "fma", Title: "FMA Pick & Pack", Status: "good", IdleThreshold: 60,
			KPIs: []KPIConfig{
				{Label: "Orders packed per hour", Unit: "orders/h"},
				{Label: "Orders packed today", Unit: "orders"},
				{Label: "Packing accuracy", Unit: "%"},
			},
		},
		{
			Key: "monopicking", Title: "Mono Picking", Status: "good", IdleThreshold: 60,
			KPIs: []KPIConfig{
				{Label: "Mono picks per hour", Unit: "items/h"},
				{Label: "Mono picks today", Unit: "items"},
				{Label: "Open mono orders", Unit: "orders"},
			},
		},
		{
			Key: "inboundandbulk", Title: "Inbound & Bulk Handling", Status: "good", IdleThreshold: 60,
			KPIs: []KPIConfig{
				{Label: "Pallets per hour", Unit: "pallets/h"},
				{Label: "Pallets today", Unit: "pallets"},
				{Label: "Receiving backlog", Unit: "pallets"},
			},
		},
		{
			Key: "returns", Title: "Returns", Status: "good", IdleThreshold: 60,
			KPIs: []KPIConfig{
				{Label: "Returns per hour", Unit: "items/h"},
				{Label: "Returns today", Unit: "items"},
				{Label: "Return backlog", Unit: "items"},
			},
		},
	}
}
