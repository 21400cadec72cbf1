// Package sim drives a world of logic entities and units one tick at a
// time. A Sim is not safe for concurrent use; the server confines it to a
// single worker goroutine.
package sim

import (
	"context"
	"errors"
	"fmt"

	"github.com/rcrowley/go-metrics"
	"github.com/tliron/commonlog"

	"github.com/chazu/logicproc/ai"
	"github.com/chazu/logicproc/block"
	"github.com/chazu/logicproc/compiler"
	"github.com/chazu/logicproc/manifest"
	"github.com/chazu/logicproc/store"
	"github.com/chazu/logicproc/world"
)

var log = commonlog.GetLogger("logicproc.sim")

// ErrUnknownType is returned when a placement names a type that was not
// configured.
var ErrUnknownType = errors.New("unknown entity type")

// ErrNoEntity is returned when no logic entity lives at an address.
var ErrNoEntity = errors.New("no logic entity at position")

// Config configures a Sim. Zero fields take defaults.
type Config struct {
	Limits    block.Limits
	Types     []block.Type
	Registry  metrics.Registry
	Seed      uint64
	CacheSize int
}

// Sim owns the grid, every logic entity placed on it and every unit
// controller.
type Sim struct {
	grid    *world.Grid
	limits  block.Limits
	types   map[string]block.Type
	cache   *compiler.Cache
	metrics *block.Metrics
	seed    uint64

	logic       []*world.Building
	controllers []*ai.Controller
	ticks       uint64
	ticked      metrics.Counter
}

// New returns an empty world.
func New(cfg Config) (*Sim, error) {
	cfg.Limits = cfg.Limits.WithDefaults()
	if err := cfg.Limits.Validate(); err != nil {
		return nil, err
	}
	if len(cfg.Types) == 0 {
		cfg.Types = []block.Type{block.DefaultType()}
	}
	types := make(map[string]block.Type, len(cfg.Types))
	for _, t := range cfg.Types {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		types[t.Name] = t
	}

	cache, err := compiler.NewCache(cfg.CacheSize, cfg.Registry)
	if err != nil {
		return nil, err
	}

	s := &Sim{
		grid:    world.NewGrid(),
		limits:  cfg.Limits,
		types:   types,
		cache:   cache,
		metrics: block.NewMetrics(cfg.Registry),
		seed:    cfg.Seed,
		ticked:  new(metrics.NilCounter),
	}
	if cfg.Registry != nil {
		s.ticked = metrics.GetOrRegisterCounter("sim.ticks", cfg.Registry)
	}
	return s, nil
}

// FromManifest builds the world a manifest describes: its buildings, its
// processors with their source and links, and its units.
func FromManifest(m *manifest.Manifest, r metrics.Registry) (*Sim, error) {
	s, err := New(Config{
		Limits:    m.Limits,
		Types:     m.Types,
		Registry:  r,
		Seed:      m.World.Seed,
		CacheSize: m.Server.CacheSize,
	})
	if err != nil {
		return nil, err
	}

	for _, b := range m.Buildings {
		if _, err := s.PlaceBuilding(b.Kind, b.X, b.Y, b.Size, b.Team); err != nil {
			return nil, fmt.Errorf("building %s at %d,%d: %w", b.Kind, b.X, b.Y, err)
		}
	}
	for _, p := range m.Processors {
		code, err := m.Source(p)
		if err != nil {
			return nil, err
		}
		e, err := s.PlaceLogic(p.Type, p.X, p.Y, p.Team, code)
		if err != nil {
			return nil, fmt.Errorf("processor at %d,%d: %w", p.X, p.Y, err)
		}
		for _, l := range p.Links {
			e.ToggleLink(block.PackPos(l[0], l[1]))
		}
	}
	for _, u := range m.Units {
		t, ok := m.UnitType(u.Type)
		if !ok {
			return nil, fmt.Errorf("unit type %q: %w", u.Type, ErrUnknownType)
		}
		unit := s.AddUnit(t, u.Team, u.X, u.Y).Unit()
		unit.VelX, unit.VelY = u.VX, u.VY
	}

	log.Infof("world %q: %d processors, %d buildings, %d units",
		m.World.Name, len(m.Processors), len(m.Buildings), len(m.Units))
	return s, nil
}

// Grid returns the world the entities live in.
func (s *Sim) Grid() *world.Grid { return s.grid }

// Cache returns the shared compile cache.
func (s *Sim) Cache() *compiler.Cache { return s.cache }

// Ticks returns the number of ticks run.
func (s *Sim) Ticks() uint64 { return s.ticks }

// Limits returns the entity bounds.
func (s *Sim) Limits() block.Limits { return s.limits }

// Type returns the named entity type.
func (s *Sim) Type(name string) (block.Type, bool) {
	t, ok := s.types[name]
	return t, ok
}

// PlaceBuilding places a plain building.
func (s *Sim) PlaceBuilding(kind string, x, y, size, team int) (*world.Building, error) {
	b := world.NewBuilding(kind, x, y, size, team)
	if err := s.grid.Place(b); err != nil {
		return nil, err
	}
	return b, nil
}

// PlaceLogic places a building of the named type running code. The
// program is assembled now and its links are bound on the first tick.
func (s *Sim) PlaceLogic(typeName string, x, y, team int, code string) (*block.Entity, error) {
	t, ok := s.types[typeName]
	if !ok {
		return nil, fmt.Errorf("%q: %w", typeName, ErrUnknownType)
	}
	if len(code) > s.limits.MaxSourceBytes {
		return nil, fmt.Errorf("%w: %d bytes, limit is %d", block.ErrSourceTooLarge, len(code), s.limits.MaxSourceBytes)
	}
	b, err := s.PlaceBuilding(t.Name, x, y, t.Size, team)
	if err != nil {
		return nil, err
	}

	e := block.New(block.Config{
		Type:     t,
		Limits:   s.limits,
		Host:     b,
		World:    s.grid,
		Assemble: s.cache.Assemble,
		Metrics:  s.metrics,
		Seed:     s.seed ^ uint64(uint32(b.Pos())),
	})
	b.Logic = e
	if err := e.SetCode(code); err != nil {
		return nil, err
	}

	s.forget(b.Pos())
	s.logic = append(s.logic, b)
	return e, nil
}

// forget drops a replaced entity from the update order.
func (s *Sim) forget(pos int32) {
	for i, b := range s.logic {
		if b.Pos() == pos {
			s.logic = append(s.logic[:i], s.logic[i+1:]...)
			return
		}
	}
}

// AddUnit adds a unit of type t and returns its targeting controller.
func (s *Sim) AddUnit(t *world.UnitType, team int, x, y float64) *ai.Controller {
	u := world.NewUnit(len(s.controllers)+1, t, team, x, y)
	s.grid.AddUnit(u)
	c := ai.NewController(u, s.grid, s.seed)
	s.controllers = append(s.controllers, c)
	return c
}

// Controllers returns every unit controller in insertion order.
func (s *Sim) Controllers() []*ai.Controller {
	return append([]*ai.Controller(nil), s.controllers...)
}

// Entity returns the logic entity at pos.
func (s *Sim) Entity(pos int32) (*block.Entity, bool) {
	b, ok := s.grid.Building(pos)
	if !ok || b.Dead() || b.Logic == nil {
		return nil, false
	}
	return b.Logic, true
}

// Entities returns every live logic building in update order.
func (s *Sim) Entities() []*world.Building {
	out := make([]*world.Building, 0, len(s.logic))
	for _, b := range s.logic {
		if !b.Dead() {
			out = append(out, b)
		}
	}
	return out
}

// Tick advances the world by delta ticks. Entities update in placement
// order, then unit controllers aim, then units move.
func (s *Sim) Tick(delta float64) {
	for _, b := range s.logic {
		if b.Dead() || !b.Enabled() {
			continue
		}
		b.Logic.Update(delta)
	}
	for _, c := range s.controllers {
		c.Update(delta)
	}
	for _, c := range s.controllers {
		c.Unit().Move(delta)
	}
	s.ticks++
	s.ticked.Inc(1)
}

// Snapshot serializes every live entity in update order.
func (s *Sim) Snapshot() ([]store.Record, error) {
	var records []store.Record
	for _, b := range s.Entities() {
		data, err := b.Logic.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Logic, err)
		}
		records = append(records, store.Record{
			Pos:  b.Pos(),
			Type: b.Logic.Type().Name,
			Team: b.Team(),
			Data: data,
		})
	}
	return records, nil
}

// Apply reads records into the entities at their positions, placing an
// entity first where none exists. It stops at the first record that
// fails to decode; that entity keeps its previous state.
func (s *Sim) Apply(records []store.Record) error {
	for _, r := range records {
		e, ok := s.Entity(r.Pos)
		if !ok {
			x, y := block.UnpackPos(r.Pos)
			var err error
			if e, err = s.PlaceLogic(r.Type, x, y, r.Team, ""); err != nil {
				return fmt.Errorf("restore at %d,%d: %w", x, y, err)
			}
		}
		if err := e.UnmarshalBinary(r.Data); err != nil {
			return fmt.Errorf("restore %s: %w", e, err)
		}
	}
	return nil
}

// Save writes a snapshot of every entity to st and returns its id.
func (s *Sim) Save(ctx context.Context, st *store.Store, label string) (string, error) {
	records, err := s.Snapshot()
	if err != nil {
		return "", err
	}
	id, err := st.Save(ctx, label, records)
	if err != nil {
		return "", err
	}
	log.Infof("saved %d entities as %s", len(records), id)
	return id, nil
}

// Restore applies the snapshot id from st. An empty id selects the most
// recent snapshot.
func (s *Sim) Restore(ctx context.Context, st *store.Store, id string) error {
	if id == "" {
		latest, err := st.Latest(ctx)
		if err != nil {
			return err
		}
		id = latest
	}
	records, err := st.Load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Apply(records); err != nil {
		return err
	}
	log.Infof("restored %d entities from %s", len(records), id)
	return nil
}
