package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/convene/convene/internal/id"
	"github.com/convene/convene/internal/room"
)

// Config holds the server's runtime configuration.
type Config struct {
	Addr    string // Listen address (e.g. ":4327")
	DataDir string // Data directory for the sqlite database

	ServerID string // Distinguishes this node on the bus; random if empty.

	BusURL string // Federation transport URL; empty => single-node operation.

	DefaultMode  room.Mode // Mode applied to rooms created without an explicit mode.
	DefaultTopic string    // If set, JOIN without roomId lazily creates a room named "default".

	SeenIDLimit     int // LRU capacity for bus dedup.
	SendBufferLimit int // Max queued outbound frames per connection before drop/close.

	ReapEmptyRooms bool // Opt-in: delete rooms once their last member leaves.

	defaultMode string // raw -default-mode flag value, resolved in Validate.
}

// DefineFlags registers command-line flags for server configuration.
// Call flag.Parse() separately after defining all flags.
func DefineFlags() *Config {
	c := &Config{}
	flag.StringVar(&c.Addr, "addr", ":4327", "listen address")
	flag.StringVar(&c.DataDir, "data-dir", defaultDataDir(), "data directory")
	flag.StringVar(&c.ServerID, "server-id", "", "node id used on the federation bus (random if empty)")
	flag.StringVar(&c.BusURL, "bus-url", "", "federation bus URL (empty disables federation)")
	flag.StringVar(&c.defaultMode, "default-mode", string(room.ModeDeep), "mode applied to rooms created without an explicit mode (quick|deep)")
	flag.StringVar(&c.DefaultTopic, "default-topic", "", "topic used to lazily create the \"default\" room")
	flag.IntVar(&c.SeenIDLimit, "seen-id-limit", 10_000, "LRU capacity for bus message dedup")
	flag.IntVar(&c.SendBufferLimit, "send-buffer-limit", 256, "max queued outbound frames per connection")
	flag.BoolVar(&c.ReapEmptyRooms, "reap-empty-rooms", false, "delete a room as soon as its last member leaves")
	return c
}

// applyEnv fills fields that were left empty from CONVENE_* environment
// variables, so containerized deployments can configure federation without
// repeating flags in every unit file. Flags win over the environment.
func (c *Config) applyEnv() {
	if c.ServerID == "" {
		c.ServerID = os.Getenv("CONVENE_SERVER_ID")
	}
	if c.BusURL == "" {
		c.BusURL = os.Getenv("CONVENE_BUS_URL")
	}
	if c.DefaultTopic == "" {
		c.DefaultTopic = os.Getenv("CONVENE_DEFAULT_TOPIC")
	}
}

// Validate checks the configuration values, fills in defaults that depend on
// other fields, and ensures required directories exist.
func (c *Config) Validate() error {
	c.applyEnv()

	if c.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	if c.DefaultMode == "" {
		c.DefaultMode = room.Mode(c.defaultMode)
	}
	if c.DefaultMode != room.ModeQuick && c.DefaultMode != room.ModeDeep {
		return fmt.Errorf("default-mode must be %q or %q", room.ModeQuick, room.ModeDeep)
	}
	if c.SeenIDLimit <= 0 {
		return fmt.Errorf("seen-id-limit must be positive")
	}
	if c.SendBufferLimit <= 0 {
		return fmt.Errorf("send-buffer-limit must be positive")
	}
	if c.ServerID == "" {
		c.ServerID = id.Prefixed("server")
	}

	if err := os.MkdirAll(c.DataDir, 0o750); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	return nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "convene")
	}
	return filepath.Join(home, ".config", "convene")
}

// DBPath returns the path to the SQLite database file.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "convene.db")
}
