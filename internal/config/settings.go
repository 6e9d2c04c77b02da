// Package config loads the relay's YAML-backed Settings the way la2go's
// internal/config package loads its server configs: a Default()
// constructor for a zero-touch run, and a Load(path) that falls back to
// the defaults when the file is absent.
package config

import (
	"net"
	"os"

	"github.com/marza-dev/odyssey-relay/internal/guid"
	"gopkg.in/yaml.v3"
)

// EnvOverride is the environment variable that overrides the default
// settings file path, mirroring the teacher's LA2GO_GAME_CONFIG pattern.
const EnvOverride = "ODYSSEY_RELAY_CONFIG"

// DefaultPath is used when EnvOverride is unset and no path is given.
const DefaultPath = "./settings.yaml"

// FlipPOV selects which side of a Player packet the flip transform
// applies to (spec.md §6).
type FlipPOV string

const (
	FlipPOVBoth    FlipPOV = "both"
	FlipPOVPlayer  FlipPOV = "player"
	FlipPOVOthers  FlipPOV = "others"
)

// IsOthersFlip reports whether inbound packets from flipped players
// should be flipped before reaching the coordinator.
func (p FlipPOV) IsOthersFlip() bool { return p == FlipPOVBoth || p == FlipPOVOthers }

// IsSelfFlip reports whether outbound packets to a flipped viewer
// should be flipped.
func (p FlipPOV) IsSelfFlip() bool { return p == FlipPOVBoth || p == FlipPOVPlayer }

// ServerSettings binds the TCP listener (spec.md §6).
type ServerSettings struct {
	Address    string `yaml:"address"`
	Port       uint16 `yaml:"port"`
	MaxPlayers uint16 `yaml:"max_players"`
}

// UDPSettings controls the per-client UDP fast path (spec.md §4.3, §6).
type UDPSettings struct {
	BasePort         uint16 `yaml:"base_port"`
	PortCount        uint16 `yaml:"port_count"`
	InitiateHandshake bool  `yaml:"initiate_handshake"`
}

// FlipSettings controls the axis-flip transform (spec.md §4.4.5, §6).
type FlipSettings struct {
	Enabled bool      `yaml:"enabled"`
	Players guid.Set  `yaml:"players"`
	POV     FlipPOV   `yaml:"pov"`
}

// ScenarioSettings controls scenario-merge rebroadcast (spec.md §4.5, §6).
type ScenarioSettings struct {
	MergeEnabled bool `yaml:"merge_enabled"`
}

// BanListSettings gates connections and stage entry (spec.md §4.6, §4.5, §6).
type BanListSettings struct {
	Enabled     bool                `yaml:"enabled"`
	Players     guid.Set            `yaml:"players"`
	IPAddresses map[string]struct{} `yaml:"ip_addresses"`
	Stages      map[string]struct{} `yaml:"stages"`
	GameModes   map[int8]struct{}   `yaml:"game_modes"`
}

// IsIPBanned reports whether ip is in the configured ban list.
func (b BanListSettings) IsIPBanned(ip net.IP) bool {
	if !b.Enabled {
		return false
	}
	_, banned := b.IPAddresses[ip.String()]
	return banned
}

// IsPlayerBanned reports whether id is in the configured ban list.
func (b BanListSettings) IsPlayerBanned(id guid.Guid) bool {
	if !b.Enabled {
		return false
	}
	_, banned := b.Players[id]
	return banned
}

// IsStageBanned reports whether stage triggers the ban-crash path.
func (b BanListSettings) IsStageBanned(stage string) bool {
	if !b.Enabled {
		return false
	}
	_, banned := b.Stages[stage]
	return banned
}

// ShinesSettings controls shine synchronization (spec.md §4.5.1, §6).
type ShinesSettings struct {
	Enabled  bool             `yaml:"enabled"`
	Excluded map[int32]struct{} `yaml:"excluded"`
}

// PersistShinesSettings controls best-effort shine persistence (spec.md §4.5.3, §6).
type PersistShinesSettings struct {
	Enabled  bool   `yaml:"enabled"`
	Filename string `yaml:"filename"`
}

// JSONAPISettings controls the external JSON status/command API's bind
// port and bearer tokens. The API itself is out of core scope; the core
// only owns these settings fields (spec.md §6).
type JSONAPISettings struct {
	Enabled bool                          `yaml:"enabled"`
	Port    uint16                        `yaml:"port"`
	Tokens  map[string]map[string]struct{} `yaml:"tokens"`
}

// Settings is the whole consumed configuration surface (spec.md §6).
// The external console/API is the only writer; the core only reads
// through an atomically-swapped snapshot (see internal/lobby).
type Settings struct {
	Server        ServerSettings        `yaml:"server"`
	UDP           UDPSettings           `yaml:"udp"`
	Flip          FlipSettings          `yaml:"flip"`
	Scenario      ScenarioSettings      `yaml:"scenario"`
	BanList       BanListSettings       `yaml:"ban_list"`
	Shines        ShinesSettings        `yaml:"shines"`
	PersistShines PersistShinesSettings `yaml:"persist_shines"`
	JSONAPI       JSONAPISettings       `yaml:"json_api"`
	LogLevel      string                `yaml:"log_level"`
}

// Default returns the baseline settings used when no settings file is
// present, matching the defaults original_source/src/settings.rs ships
// (0.0.0.0:1027, 8 max players, flip enabled/Both, UDP handshake on,
// shine sync and shine persistence to ./moons.json on; scenario merge,
// ban list and JSON API off).
func Default() *Settings {
	return &Settings{
		Server: ServerSettings{
			Address:    "0.0.0.0",
			Port:       1027,
			MaxPlayers: 8,
		},
		UDP: UDPSettings{
			BasePort:          51000,
			PortCount:         200,
			InitiateHandshake: true,
		},
		Flip: FlipSettings{
			Enabled: true,
			Players: guid.Set{},
			POV:     FlipPOVBoth,
		},
		Scenario: ScenarioSettings{MergeEnabled: false},
		BanList: BanListSettings{
			Enabled:     false,
			Players:     guid.Set{},
			IPAddresses: map[string]struct{}{},
			Stages:      map[string]struct{}{},
			GameModes:   map[int8]struct{}{},
		},
		Shines: ShinesSettings{
			Enabled:  true,
			Excluded: map[int32]struct{}{},
		},
		PersistShines: PersistShinesSettings{
			Enabled:  true,
			Filename: "./moons.json",
		},
		JSONAPI: JSONAPISettings{
			Enabled: false,
			Port:    1028,
			Tokens:  map[string]map[string]struct{}{},
		},
		LogLevel: "info",
	}
}

// Load reads settings from path, falling back to Default() when the
// file does not exist — the same shape as the teacher's
// config.LoadGameServer. A present-but-unparsable file is an error.
func Load(path string) (*Settings, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ResolvePath returns the settings file path to load: EnvOverride if
// set, else DefaultPath.
func ResolvePath() string {
	if p := os.Getenv(EnvOverride); p != "" {
		return p
	}
	return DefaultPath
}
