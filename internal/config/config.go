// Package config loads the dungeon maker's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lawnchairsociety/dungeonmaker/internal/antispam"
	"github.com/lawnchairsociety/dungeonmaker/internal/dungeon"
	"github.com/lawnchairsociety/dungeonmaker/internal/store"
)

// DefaultPath is where the tools look for configuration
const DefaultPath = "data/dungeon.yaml"

var ErrInvalid = errors.New("config: invalid configuration")

// Config is the whole configuration file
type Config struct {
	Dungeon DungeonConfig `yaml:"dungeon"`
	Storage store.Config  `yaml:"storage"`
	Server  ServerConfig  `yaml:"server"`
}

// DungeonConfig holds the grid size, seed and generation rules.
type DungeonConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`

	// Seed fixes the random source. Unset means a fresh seed per run.
	Seed *int64 `yaml:"seed"`

	MinRooms          int             `yaml:"min_rooms"`
	MaxRooms          int             `yaml:"max_rooms"`
	RoomAttempts      int             `yaml:"room_attempts"`
	PlacementRounds   int             `yaml:"placement_rounds"`
	CorridorMaxLength int             `yaml:"corridor_max_length"`
	DoorChance        float64         `yaml:"door_chance"`
	Shapes            []dungeon.Shape `yaml:"shapes"`
}

// ServerConfig holds settings for the reveal server.
type ServerConfig struct {
	// Address is the listen address, host:port
	Address string `yaml:"address"`

	// RevealInterval is the delay between streamed trace events
	RevealInterval time.Duration `yaml:"reveal_interval"`

	// MaxStreams caps concurrent websocket streams. 0 means unlimited.
	MaxStreams int `yaml:"max_streams"`

	// MaxStreamsPerIP caps concurrent streams from one client address.
	// 0 means unlimited.
	MaxStreamsPerIP int `yaml:"max_streams_per_ip"`

	WebSocket WebSocketConfig `yaml:"websocket"`

	// AntiSpam throttles generation requests per client address
	AntiSpam antispam.Config `yaml:"anti_spam"`
}

// WebSocketConfig holds WebSocket-specific settings.
type WebSocketConfig struct {
	// AllowedOrigins is a list of origins allowed to connect via WebSocket.
	// Empty list enforces same-origin policy.
	// Use "*" to allow all origins (not recommended for production).
	AllowedOrigins []string `yaml:"allowed_origins"`

	// MaxMessageSize is the maximum inbound WebSocket message size in bytes.
	MaxMessageSize int64 `yaml:"max_message_size"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	rules := dungeon.DefaultConfig()
	return &Config{
		Dungeon: DungeonConfig{
			Width:             64,
			Height:            64,
			MinRooms:          rules.MinRooms,
			MaxRooms:          rules.MaxRooms,
			RoomAttempts:      rules.RoomAttempts,
			PlacementRounds:   rules.PlacementRounds,
			CorridorMaxLength: rules.CorridorMaxLength,
			DoorChance:        rules.DoorChance,
			Shapes:            rules.Shapes,
		},
		Storage: store.Config{
			Driver:     "none",
			SQLitePath: "data/dungeons.db",
			Postgres:   store.DefaultPostgresConfig(),
		},
		Server: ServerConfig{
			Address:         ":4000",
			RevealInterval:  50 * time.Millisecond,
			MaxStreams:      32,
			MaxStreamsPerIP: 4,
			WebSocket: WebSocketConfig{
				AllowedOrigins: []string{}, // Same-origin only by default
				MaxMessageSize: 4096,
			},
			AntiSpam: antispam.DefaultConfig(),
		},
	}
}

// LoadConfig loads configuration from a YAML file and applies environment
// overrides. If the file doesn't exist the defaults are used; if it can't be
// parsed the defaults are returned together with the error.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return config, err
		}
	} else if err := yaml.Unmarshal(data, config); err != nil {
		return DefaultConfig(), fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := config.applyEnv(); err != nil {
		return config, err
	}
	return config, nil
}

// applyEnv overrides the seed, grid size and storage driver from the
// environment.
func (c *Config) applyEnv() error {
	if v := os.Getenv("DUNGEON_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("DUNGEON_SEED: %w", err)
		}
		c.Dungeon.Seed = &seed
	}
	if v := os.Getenv("DUNGEON_WIDTH"); v != "" {
		w, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DUNGEON_WIDTH: %w", err)
		}
		c.Dungeon.Width = w
	}
	if v := os.Getenv("DUNGEON_HEIGHT"); v != "" {
		h, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DUNGEON_HEIGHT: %w", err)
		}
		c.Dungeon.Height = h
	}
	if v := os.Getenv("STORAGE_DRIVER"); v != "" {
		c.Storage.Driver = v
	}
	return nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	if c.Dungeon.Width <= 0 || c.Dungeon.Height <= 0 {
		return fmt.Errorf("%w: grid size %dx%d", ErrInvalid, c.Dungeon.Width, c.Dungeon.Height)
	}
	if err := c.Dungeon.Rules().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	switch c.Storage.Driver {
	case "", "none", string(store.DialectSQLite), string(store.DialectPostgres):
	default:
		return fmt.Errorf("%w: storage driver %q", ErrInvalid, c.Storage.Driver)
	}
	if c.Storage.Driver == string(store.DialectSQLite) && c.Storage.SQLitePath == "" {
		return fmt.Errorf("%w: sqlite driver needs sqlite_path", ErrInvalid)
	}

	if c.Server.RevealInterval <= 0 {
		return fmt.Errorf("%w: reveal interval must be positive", ErrInvalid)
	}
	if c.Server.MaxStreams < 0 || c.Server.MaxStreamsPerIP < 0 {
		return fmt.Errorf("%w: stream limits %d/%d", ErrInvalid, c.Server.MaxStreams, c.Server.MaxStreamsPerIP)
	}
	if err := c.Server.AntiSpam.Validate(); err != nil {
		return fmt.Errorf("%w: anti_spam: %v", ErrInvalid, err)
	}
	return nil
}

// Rules converts the dungeon section to generator rules.
func (d DungeonConfig) Rules() *dungeon.Config {
	rules := dungeon.DefaultConfig()
	rules.MinRooms = d.MinRooms
	rules.MaxRooms = d.MaxRooms
	rules.RoomAttempts = d.RoomAttempts
	rules.PlacementRounds = d.PlacementRounds
	rules.CorridorMaxLength = d.CorridorMaxLength
	rules.DoorChance = d.DoorChance
	if len(d.Shapes) > 0 {
		rules.Shapes = d.Shapes
	}
	return rules
}

// SeedOrNow returns the configured seed, or one derived from the clock.
func (d DungeonConfig) SeedOrNow() int64 {
	if d.Seed != nil {
		return *d.Seed
	}
	return time.Now().UnixNano()
}

// IsOriginAllowed checks if the given origin is allowed based on the config.
// Returns true if:
// - AllowedOrigins contains "*" (allow all)
// - AllowedOrigins contains the exact origin
// - AllowedOrigins is empty and origin matches the request host (same-origin)
func (c *WebSocketConfig) IsOriginAllowed(origin, requestHost string) bool {
	if len(c.AllowedOrigins) == 0 {
		return isSameOrigin(origin, requestHost)
	}

	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// isSameOrigin checks if the origin matches the request host.
func isSameOrigin(origin, requestHost string) bool {
	if origin == "" {
		return true // Non-browser clients send no Origin header
	}

	originHost := origin
	if idx := strings.Index(origin, "://"); idx != -1 {
		originHost = origin[idx+3:]
	}
	originHost = strings.TrimSuffix(originHost, "/")

	return originHost == requestHost
}
