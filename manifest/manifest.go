// Package manifest handles logicproc.toml world configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/chazu/logicproc/block"
	"github.com/chazu/logicproc/world"
)

// FileNames are the manifest names looked for, in order.
var FileNames = []string{"logicproc.toml", "logicproc.yaml", "logicproc.yml"}

// Manifest represents a logicproc.toml world configuration.
type Manifest struct {
	World      WorldConfig       `toml:"world" yaml:"world"`
	Server     ServerConfig      `toml:"server" yaml:"server"`
	Limits     block.Limits      `toml:"limits" yaml:"limits"`
	Types      []block.Type      `toml:"types" yaml:"types"`
	UnitTypes  []world.UnitType  `toml:"unit_types" yaml:"unit_types"`
	Processors []ProcessorConfig `toml:"processors" yaml:"processors"`
	Buildings  []BuildingConfig  `toml:"buildings" yaml:"buildings"`
	Units      []UnitConfig      `toml:"units" yaml:"units"`

	// Dir is the directory containing the manifest (set at load time).
	Dir string `toml:"-" yaml:"-"`
}

// WorldConfig contains simulation settings.
type WorldConfig struct {
	Name string `toml:"name" yaml:"name"`
	Seed uint64 `toml:"seed" yaml:"seed"`
	// TickRate is the number of ticks per second when serving.
	TickRate float64 `toml:"tick_rate" yaml:"tick_rate"`
	// SavePath is the snapshot database, relative to the manifest.
	SavePath string `toml:"save_path" yaml:"save_path"`
}

// ServerConfig configures the control server.
type ServerConfig struct {
	Addr      string `toml:"addr" yaml:"addr"`
	CacheSize int    `toml:"cache_size" yaml:"cache_size"`
}

// ProcessorConfig places a logic entity.
type ProcessorConfig struct {
	Type     string   `toml:"type" yaml:"type"`
	X        int      `toml:"x" yaml:"x"`
	Y        int      `toml:"y" yaml:"y"`
	Team     int      `toml:"team" yaml:"team"`
	Code     string   `toml:"code" yaml:"code"`
	CodeFile string   `toml:"code_file" yaml:"code_file"`
	Links    [][]int  `toml:"links" yaml:"links"`
}

// BuildingConfig places a plain building.
type BuildingConfig struct {
	Kind string `toml:"kind" yaml:"kind"`
	X    int    `toml:"x" yaml:"x"`
	Y    int    `toml:"y" yaml:"y"`
	Size int    `toml:"size" yaml:"size"`
	Team int    `toml:"team" yaml:"team"`
}

// UnitConfig places a unit.
type UnitConfig struct {
	Type string  `toml:"type" yaml:"type"`
	X    float64 `toml:"x" yaml:"x"`
	Y    float64 `toml:"y" yaml:"y"`
	VX   float64 `toml:"vx" yaml:"vx"`
	VY   float64 `toml:"vy" yaml:"vy"`
	Team int     `toml:"team" yaml:"team"`
}

// Default returns a manifest with every default applied and nothing
// placed.
func Default() *Manifest {
	m := &Manifest{}
	m.applyDefaults()
	return m
}

// Load parses the manifest in the given directory.
func Load(dir string) (*Manifest, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, fmt.Errorf("cannot read %s: %w", filepath.Join(dir, FileNames[0]), os.ErrNotExist)
}

// LoadFile parses a manifest file. The format follows the extension.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes manifest data. format is a file extension: ".yaml" and
// ".yml" select YAML, anything else TOML. Defaults are applied; the
// result is not validated.
func Parse(data []byte, format string) (*Manifest, error) {
	var m Manifest
	switch strings.ToLower(format) {
	case ".yaml", ".yml", "yaml", "yml":
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, err
		}
	default:
		if err := toml.Unmarshal(data, &m); err != nil {
			return nil, err
		}
	}
	m.applyDefaults()
	return &m, nil
}

// FindAndLoad walks up from startDir to find a manifest, then loads and
// returns it. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		for _, name := range FileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return LoadFile(path)
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

func (m *Manifest) applyDefaults() {
	if m.World.Name == "" {
		m.World.Name = "world"
	}
	if m.World.TickRate <= 0 {
		m.World.TickRate = 60
	}
	if m.World.SavePath == "" {
		m.World.SavePath = "saves.db"
	}
	if m.Server.Addr == "" {
		m.Server.Addr = "127.0.0.1:8420"
	}

	m.Limits = m.Limits.WithDefaults()

	if len(m.Types) == 0 {
		logic := block.Type{
			Name:                "logic-processor",
			InstructionsPerTick: 5,
			MaxInstructionScale: 8,
			Range:               8 * 22,
			Memory:              64,
			Size:                2,
		}
		m.Types = []block.Type{block.DefaultType(), logic}
	}
	for i := range m.Types {
		t := &m.Types[i]
		if t.InstructionsPerTick == 0 {
			t.InstructionsPerTick = 1
		}
		if t.MaxInstructionScale == 0 {
			t.MaxInstructionScale = 8
		}
		if t.Size == 0 {
			t.Size = 1
		}
	}
	for i := range m.Buildings {
		if m.Buildings[i].Size == 0 {
			m.Buildings[i].Size = 1
		}
	}
}

// Validate checks limits, types and that every placement names a known
// type, then checks the result against the schema.
func (m *Manifest) Validate() error {
	if err := m.Limits.Validate(); err != nil {
		return err
	}
	seen := make(map[string]bool)
	for _, t := range m.Types {
		if err := t.Validate(); err != nil {
			return err
		}
		if t.Memory > m.Limits.MaxMemory {
			return fmt.Errorf("type %s: memory %d exceeds max_memory %d", t.Name, t.Memory, m.Limits.MaxMemory)
		}
		if seen[t.Name] {
			return fmt.Errorf("duplicate type %q", t.Name)
		}
		seen[t.Name] = true
	}
	units := make(map[string]bool)
	for _, u := range m.UnitTypes {
		if u.Name == "" {
			return fmt.Errorf("unit type has no name")
		}
		units[u.Name] = true
	}
	for i, p := range m.Processors {
		if !seen[p.Type] {
			return fmt.Errorf("processor %d: unknown type %q", i, p.Type)
		}
		if p.Code != "" && p.CodeFile != "" {
			return fmt.Errorf("processor %d: code and code_file are exclusive", i)
		}
		if len(p.Links) > m.Limits.MaxLinks {
			return fmt.Errorf("processor %d: %d links exceeds max_links %d", i, len(p.Links), m.Limits.MaxLinks)
		}
		for _, l := range p.Links {
			if len(l) != 2 {
				return fmt.Errorf("processor %d: link %v is not an x, y pair", i, l)
			}
		}
	}
	for i, b := range m.Buildings {
		if b.Kind == "" {
			return fmt.Errorf("building %d: no kind", i)
		}
	}
	for i, u := range m.Units {
		if !units[u.Type] {
			return fmt.Errorf("unit %d: unknown unit type %q", i, u.Type)
		}
	}
	return m.CheckSchema()
}

// Type returns the named entity type.
func (m *Manifest) Type(name string) (block.Type, bool) {
	for _, t := range m.Types {
		if t.Name == name {
			return t, true
		}
	}
	return block.Type{}, false
}

// UnitType returns the named unit type.
func (m *Manifest) UnitType(name string) (*world.UnitType, bool) {
	for i := range m.UnitTypes {
		if m.UnitTypes[i].Name == name {
			return &m.UnitTypes[i], true
		}
	}
	return nil, false
}

// Source returns a processor's program, reading code_file relative to
// the manifest directory.
func (m *Manifest) Source(p ProcessorConfig) (string, error) {
	if p.CodeFile == "" {
		return p.Code, nil
	}
	path := p.CodeFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(m.Dir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("cannot read %s: %w", path, err)
	}
	return string(data), nil
}

// SavePath returns the absolute path of the snapshot database.
func (m *Manifest) SavePath() string {
	if m.World.SavePath == ":memory:" || filepath.IsAbs(m.World.SavePath) {
		return m.World.SavePath
	}
	return filepath.Join(m.Dir, m.World.SavePath)
}
