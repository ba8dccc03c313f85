package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/DoyleJ11/arena-server/internal/engine"
)

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Match    MatchConfig    `toml:"match"`
	Database DatabaseConfig `toml:"database"`
	NATS     NATSConfig     `toml:"nats"`
	Consul   ConsulConfig   `toml:"consul"`
	Logging  LoggingConfig  `toml:"logging"`
}

type ServerConfig struct {
	BindAddress    string        `toml:"bind_address"`
	OriginPatterns []string      `toml:"origin_patterns"` // empty = same origin only
	PingInterval   time.Duration `toml:"ping_interval"`
	PingTimeout    time.Duration `toml:"ping_timeout"`
	WriteTimeout   time.Duration `toml:"write_timeout"`
	OutboxSize     int           `toml:"outbox_size"`
	ReadLimit      int64         `toml:"read_limit"` // bytes per frame
}

type MatchConfig struct {
	Capacity        int           `toml:"capacity"`
	DurationSec     int           `toml:"duration_sec"`
	RespawnDelay    time.Duration `toml:"respawn_delay"`
	Intermission    time.Duration `toml:"intermission"`
	TimeUpdateEvery int           `toml:"time_update_every"` // seconds
	TickRate        time.Duration `toml:"tick_rate"`
	MaxNameLength   int           `toml:"max_name_length"`
	CatalogPath     string        `toml:"catalog_path"`   // empty = embedded catalog
	MaxIdleRooms    int           `toml:"max_idle_rooms"` // 0 = no cap
	IdleRoomTTL     time.Duration `toml:"idle_room_ttl"`  // 0 = keep empty rooms
}

// DatabaseConfig enables the match archive when DSN is set.
type DatabaseConfig struct {
	DSN             string        `toml:"dsn"`
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
}

// NATSConfig enables match-ended notifications when URL is set.
type NATSConfig struct {
	URL     string `toml:"url"`
	Subject string `toml:"subject"`
}

// ConsulConfig enables service registration when Addr is set.
type ConsulConfig struct {
	Addr          string        `toml:"addr"`
	ServiceName   string        `toml:"service_name"`
	ServiceID     string        `toml:"service_id"`
	AdvertiseHost string        `toml:"advertise_host"`
	CheckInterval time.Duration `toml:"check_interval"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// Load builds the config from defaults, the optional TOML file at path, a
// .env file in the working directory if present, and ARENA_* variables, in
// that order of precedence (last wins).
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			BindAddress:  "0.0.0.0:8080",
			PingInterval: 15 * time.Second,
			PingTimeout:  10 * time.Second,
			WriteTimeout: 3 * time.Second,
			OutboxSize:   64,
			ReadLimit:    8 << 10,
		},
		Match: MatchConfig{
			Capacity:        10,
			DurationSec:     600,
			RespawnDelay:    3 * time.Second,
			Intermission:    10 * time.Second,
			TimeUpdateEvery: 5,
			TickRate:        time.Second,
			MaxNameLength:   24,
			MaxIdleRooms:    100,
			IdleRoomTTL:     5 * time.Minute,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
		},
		NATS: NATSConfig{
			Subject: "arena.match.ended",
		},
		Consul: ConsulConfig{
			ServiceName:   "arena-server",
			CheckInterval: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := map[string]*string{
		"ARENA_BIND_ADDRESS":   &c.Server.BindAddress,
		"ARENA_CATALOG_PATH":   &c.Match.CatalogPath,
		"ARENA_DATABASE_DSN":   &c.Database.DSN,
		"ARENA_NATS_URL":       &c.NATS.URL,
		"ARENA_NATS_SUBJECT":   &c.NATS.Subject,
		"ARENA_CONSUL_ADDR":    &c.Consul.Addr,
		"ARENA_ADVERTISE_HOST": &c.Consul.AdvertiseHost,
		"ARENA_LOG_LEVEL":      &c.Logging.Level,
		"ARENA_LOG_FORMAT":     &c.Logging.Format,
	}
	for key, dst := range str {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"ARENA_CAPACITY":       &c.Match.Capacity,
		"ARENA_DURATION_SEC":   &c.Match.DurationSec,
		"ARENA_OUTBOX_SIZE":    &c.Server.OutboxSize,
		"ARENA_MAX_IDLE_ROOMS": &c.Match.MaxIdleRooms,
	}
	for key, dst := range ints {
		v := getenv(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
	}

	if v := getenv("ARENA_ORIGIN_PATTERNS"); v != "" {
		c.Server.OriginPatterns = strings.Split(v, ",")
	}
	return nil
}

func (c *Config) Validate() error {
	var err error
	check := func(ok bool, msg string) {
		if !ok {
			err = multierr.Append(err, errors.New(msg))
		}
	}
	check(c.Server.BindAddress != "", "server.bind_address is required")
	check(c.Server.OutboxSize > 0, "server.outbox_size must be positive")
	check(c.Match.Capacity >= 2, "match.capacity must be at least 2")
	check(c.Match.DurationSec > 0, "match.duration_sec must be positive")
	check(c.Match.RespawnDelay >= 0 && c.Match.Intermission >= 0, "match delays must not be negative")
	check(c.Match.TickRate > 0, "match.tick_rate must be positive")
	check(c.Match.TimeUpdateEvery > 0, "match.time_update_every must be positive")
	check(c.Match.MaxNameLength > 0, "match.max_name_length must be positive")
	check(c.Match.MaxIdleRooms >= 0, "match.max_idle_rooms must not be negative")
	check(c.Match.IdleRoomTTL >= 0, "match.idle_room_ttl must not be negative")
	switch c.Logging.Format {
	case "json", "console":
	default:
		err = multierr.Append(err, fmt.Errorf("logging.format %q: want json or console", c.Logging.Format))
	}
	check(c.NATS.URL == "" || c.NATS.Subject != "", "nats.subject is required when nats.url is set")
	return err
}

// Rules maps the match section onto engine rules; maps, rotation and the
// default weapon keep their engine defaults.
func (c *Config) Rules() engine.Rules {
	r := engine.DefaultRules()
	r.Capacity = c.Match.Capacity
	r.MatchDuration = c.Match.DurationSec
	r.RespawnDelay = c.Match.RespawnDelay
	r.Intermission = c.Match.Intermission
	r.TimeUpdateEvery = c.Match.TimeUpdateEvery
	r.MaxNameLength = c.Match.MaxNameLength
	r.MaxIdleRooms = c.Match.MaxIdleRooms
	r.IdleRoomTTL = int(c.Match.IdleRoomTTL / time.Second)
	return r
}
