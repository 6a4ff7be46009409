package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lawnchairsociety/dungeonmaker/internal/dungeon"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dungeon.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Dungeon.Width != 64 || cfg.Dungeon.Height != 64 {
		t.Errorf("default grid = %dx%d, want 64x64", cfg.Dungeon.Width, cfg.Dungeon.Height)
	}
	if cfg.Dungeon.Seed != nil {
		t.Errorf("default seed = %d, want unset", *cfg.Dungeon.Seed)
	}
	if cfg.Storage.Enabled() {
		t.Errorf("storage enabled by default with driver %q", cfg.Storage.Driver)
	}
	if len(cfg.Server.WebSocket.AllowedOrigins) != 0 {
		t.Errorf("expected empty allowed origins by default, got %v", cfg.Server.WebSocket.AllowedOrigins)
	}
	if cfg.Server.WebSocket.MaxMessageSize != 4096 {
		t.Errorf("expected max message size 4096, got %d", cfg.Server.WebSocket.MaxMessageSize)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestDefaultRulesMatchGenerator(t *testing.T) {
	got := DefaultConfig().Dungeon.Rules()
	want := dungeon.DefaultConfig()

	if got.MinRooms != want.MinRooms || got.MaxRooms != want.MaxRooms {
		t.Errorf("room range = %d..%d, want %d..%d", got.MinRooms, got.MaxRooms, want.MinRooms, want.MaxRooms)
	}
	if got.CorridorMaxLength != want.CorridorMaxLength {
		t.Errorf("CorridorMaxLength = %d, want %d", got.CorridorMaxLength, want.CorridorMaxLength)
	}
	if got.DoorChance != want.DoorChance {
		t.Errorf("DoorChance = %v, want %v", got.DoorChance, want.DoorChance)
	}
	if len(got.Shapes) != len(want.Shapes) {
		t.Errorf("Shapes = %v, want %v", got.Shapes, want.Shapes)
	}
}

func TestLoadConfig_FileNotExists(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Errorf("expected no error for missing file, got %v", err)
	}
	if cfg == nil {
		t.Fatal("expected default config for missing file, got nil")
	}
	if cfg.Dungeon.Width != 64 {
		t.Errorf("expected default width, got %d", cfg.Dungeon.Width)
	}
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, `
dungeon:
  width: 80
  height: 40
  seed: 1234
  min_rooms: 4
  max_rooms: 6
  door_chance: 0.25
  shapes:
    - {width: 3, height: 3}
storage:
  driver: sqlite
  sqlite_path: /tmp/d.db
  postgres:
    conn_max_lifetime: 90s
server:
  address: "127.0.0.1:9000"
  reveal_interval: 20ms
  websocket:
    allowed_origins:
      - "https://example.com"
    max_message_size: 8192
  anti_spam:
    max_requests: 5
    repeat_cooldown: 2s
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Dungeon.Width != 80 || cfg.Dungeon.Height != 40 {
		t.Errorf("grid = %dx%d, want 80x40", cfg.Dungeon.Width, cfg.Dungeon.Height)
	}
	if cfg.Dungeon.Seed == nil || *cfg.Dungeon.Seed != 1234 {
		t.Errorf("seed = %v, want 1234", cfg.Dungeon.Seed)
	}
	if cfg.Dungeon.SeedOrNow() != 1234 {
		t.Errorf("SeedOrNow() = %d, want 1234", cfg.Dungeon.SeedOrNow())
	}
	if cfg.Dungeon.RoomAttempts != 50 {
		t.Errorf("RoomAttempts = %d, want default 50", cfg.Dungeon.RoomAttempts)
	}

	rules := cfg.Dungeon.Rules()
	if rules.MinRooms != 4 || rules.MaxRooms != 6 || rules.DoorChance != 0.25 {
		t.Errorf("rules = %d..%d chance %v", rules.MinRooms, rules.MaxRooms, rules.DoorChance)
	}
	if len(rules.Shapes) != 1 || rules.Shapes[0] != (dungeon.Shape{Width: 3, Height: 3}) {
		t.Errorf("shapes = %v, want [3x3]", rules.Shapes)
	}

	if cfg.Storage.Driver != "sqlite" || cfg.Storage.SQLitePath != "/tmp/d.db" {
		t.Errorf("storage = %q %q", cfg.Storage.Driver, cfg.Storage.SQLitePath)
	}
	if cfg.Storage.Postgres.ConnMaxLifetime != 90*time.Second {
		t.Errorf("ConnMaxLifetime = %v, want 90s", cfg.Storage.Postgres.ConnMaxLifetime)
	}
	if cfg.Storage.Postgres.Port != 5432 {
		t.Errorf("Postgres port = %d, want default 5432", cfg.Storage.Postgres.Port)
	}

	if cfg.Server.Address != "127.0.0.1:9000" {
		t.Errorf("Address = %q", cfg.Server.Address)
	}
	if cfg.Server.RevealInterval != 20*time.Millisecond {
		t.Errorf("RevealInterval = %v, want 20ms", cfg.Server.RevealInterval)
	}
	if cfg.Server.WebSocket.MaxMessageSize != 8192 {
		t.Errorf("expected max message size 8192, got %d", cfg.Server.WebSocket.MaxMessageSize)
	}
	spam := cfg.Server.AntiSpam
	if !spam.Enabled || spam.MaxRequests != 5 || spam.TimeWindow != 10*time.Second || spam.RepeatCooldown != 2*time.Second {
		t.Errorf("anti_spam = %+v, want enabled, 5 per 10s, 2s cooldown", spam)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config invalid: %v", err)
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "dungeon: [width")

	cfg, err := LoadConfig(path)
	if err == nil {
		t.Error("expected parse error")
	}
	if cfg == nil || cfg.Dungeon.Width != 64 {
		t.Error("expected defaults alongside the parse error")
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("DUNGEON_SEED", "99")
	t.Setenv("DUNGEON_WIDTH", "32")
	t.Setenv("DUNGEON_HEIGHT", "24")
	t.Setenv("STORAGE_DRIVER", "postgres")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Dungeon.Seed == nil || *cfg.Dungeon.Seed != 99 {
		t.Errorf("seed = %v, want 99 (from env var)", cfg.Dungeon.Seed)
	}
	if cfg.Dungeon.Width != 32 || cfg.Dungeon.Height != 24 {
		t.Errorf("grid = %dx%d, want 32x24 (from env var)", cfg.Dungeon.Width, cfg.Dungeon.Height)
	}
	if cfg.Storage.Driver != "postgres" {
		t.Errorf("driver = %q, want postgres (from env var)", cfg.Storage.Driver)
	}
}

func TestLoadConfig_BadEnvOverride(t *testing.T) {
	t.Setenv("DUNGEON_WIDTH", "wide")

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for non-numeric DUNGEON_WIDTH")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero width", func(c *Config) { c.Dungeon.Width = 0 }},
		{"negative height", func(c *Config) { c.Dungeon.Height = -1 }},
		{"inverted rooms", func(c *Config) { c.Dungeon.MinRooms, c.Dungeon.MaxRooms = 9, 3 }},
		{"door chance", func(c *Config) { c.Dungeon.DoorChance = 2 }},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "mysql" }},
		{"sqlite without path", func(c *Config) { c.Storage.Driver, c.Storage.SQLitePath = "sqlite", "" }},
		{"zero reveal interval", func(c *Config) { c.Server.RevealInterval = 0 }},
		{"negative streams", func(c *Config) { c.Server.MaxStreams = -1 }},
		{"anti-spam without limit", func(c *Config) { c.Server.AntiSpam.MaxRequests = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestSeedOrNowUnset(t *testing.T) {
	d := DefaultConfig().Dungeon
	a := d.SeedOrNow()
	time.Sleep(time.Millisecond)
	if b := d.SeedOrNow(); a == b {
		t.Error("unset seed should change between runs")
	}
}

func TestIsOriginAllowed_EmptyList_SameOrigin(t *testing.T) {
	cfg := WebSocketConfig{AllowedOrigins: []string{}}

	if !cfg.IsOriginAllowed("", "localhost:4000") {
		t.Error("expected empty origin to be allowed (same-origin)")
	}
	if !cfg.IsOriginAllowed("http://localhost:4000", "localhost:4000") {
		t.Error("expected matching origin to be allowed (same-origin)")
	}
	if cfg.IsOriginAllowed("http://evil.com", "localhost:4000") {
		t.Error("expected different origin to be rejected (same-origin policy)")
	}
}

func TestIsOriginAllowed_Wildcard(t *testing.T) {
	cfg := WebSocketConfig{AllowedOrigins: []string{"*"}}

	if !cfg.IsOriginAllowed("http://anything.com", "localhost:4000") {
		t.Error("expected wildcard to allow any origin")
	}
}

func TestIsOriginAllowed_ExactMatch(t *testing.T) {
	cfg := WebSocketConfig{
		AllowedOrigins: []string{"https://example.com", "http://localhost:3000"},
	}

	if !cfg.IsOriginAllowed("https://example.com", "localhost:4000") {
		t.Error("expected exact match to be allowed")
	}
	if cfg.IsOriginAllowed("http://evil.com", "localhost:4000") {
		t.Error("expected non-matching origin to be rejected")
	}
	if cfg.IsOriginAllowed("https://example.com:8080", "localhost:4000") {
		t.Error("expected partial match to be rejected")
	}
}

func TestIsSameOrigin(t *testing.T) {
	tests := []struct {
		origin      string
		requestHost string
		expected    bool
	}{
		{"", "localhost:4000", true},
		{"http://localhost:4000", "localhost:4000", true},
		{"https://localhost:4000", "localhost:4000", true},
		{"http://localhost:4000/", "localhost:4000", true},
		{"http://example.com", "localhost:4000", false},
		{"http://localhost:3000", "localhost:4000", false},
		{"ws://localhost:4000", "localhost:4000", true},
	}

	for _, tt := range tests {
		if got := isSameOrigin(tt.origin, tt.requestHost); got != tt.expected {
			t.Errorf("isSameOrigin(%q, %q) = %v, want %v", tt.origin, tt.requestHost, got, tt.expected)
		}
	}
}
