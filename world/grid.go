package world

import (
	"errors"
	"fmt"

	"github.com/chazu/logicproc/block"
)

// ErrOccupied is returned when placing onto a used position.
var ErrOccupied = errors.New("position occupied")

// Target is anything a unit can aim at.
type Target interface {
	Team() int
	X() float64
	Y() float64
	Dead() bool
}

// Grid holds the buildings and units of one world. Iteration order is
// placement order, so every tick visits objects in the same order.
type Grid struct {
	buildings map[int32]*Building
	order     []*Building
	units     []*Unit
}

// NewGrid returns an empty world.
func NewGrid() *Grid {
	return &Grid{buildings: make(map[int32]*Building)}
}

// Place adds b. Dead buildings at the same position are replaced.
func (g *Grid) Place(b *Building) error {
	if old, ok := g.buildings[b.pos]; ok {
		if !old.dead {
			x, y := block.UnpackPos(b.pos)
			return fmt.Errorf("place %s at %d,%d: %w", b.kind, x, y, ErrOccupied)
		}
		g.Remove(b.pos)
	}
	g.buildings[b.pos] = b
	g.order = append(g.order, b)
	return nil
}

// Remove deletes the building at pos.
func (g *Grid) Remove(pos int32) {
	b, ok := g.buildings[pos]
	if !ok {
		return
	}
	delete(g.buildings, pos)
	for i, o := range g.order {
		if o == b {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
}

// Building returns the building at pos.
func (g *Grid) Building(pos int32) (*Building, bool) {
	b, ok := g.buildings[pos]
	return b, ok
}

// Buildings returns every building in placement order.
func (g *Grid) Buildings() []*Building {
	out := make([]*Building, len(g.order))
	copy(out, g.order)
	return out
}

// Resolve returns the live building at pos, or nil.
func (g *Grid) Resolve(pos int32) any {
	if b, ok := g.buildings[pos]; ok && !b.dead {
		return b
	}
	return nil
}

// IsValid reports whether obj is a live building of the given team
// within rng of (x, y), measured to the building's edge.
func (g *Grid) IsValid(obj any, team int, x, y, rng float64) bool {
	b, ok := obj.(*Building)
	if !ok || b == nil || b.dead || b.team != team {
		return false
	}
	if cur, ok := g.buildings[b.pos]; !ok || cur != b {
		return false
	}
	return within(b.X(), b.Y(), x, y, rng+float64(b.size*TileSize)/2)
}

// AddUnit adds u.
func (g *Grid) AddUnit(u *Unit) {
	g.units = append(g.units, u)
}

// Units returns every unit in insertion order.
func (g *Grid) Units() []*Unit {
	out := make([]*Unit, len(g.units))
	copy(out, g.units)
	return out
}

// ClosestTarget returns the nearest live target not on team within rng of
// (x, y). Units qualify when they fly and air is set, or walk and ground
// is set; buildings qualify when ground is set. Ties go to the object
// found first.
func (g *Grid) ClosestTarget(team int, x, y, rng float64, air, ground bool) Target {
	var best Target
	bestDst := rng
	consider := func(t Target, dst float64) {
		if dst <= bestDst && (best == nil || dst < bestDst) {
			best, bestDst = t, dst
		}
	}
	for _, u := range g.units {
		if u.dead || u.team == team {
			continue
		}
		if (u.Flying() && !air) || (!u.Flying() && !ground) {
			continue
		}
		consider(u, distance(u.PosX, u.PosY, x, y))
	}
	if ground {
		for _, b := range g.order {
			if b.dead || b.team == team {
				continue
			}
			consider(b, distance(b.X(), b.Y(), x, y)-b.HitSize()/2)
		}
	}
	return best
}

// InvalidTarget reports whether t should be dropped by a unit of team at
// (x, y): it is gone, dead, friendly or farther than rng. A rng of zero
// or less skips the range check.
func InvalidTarget(t Target, team int, x, y, rng float64) bool {
	if t == nil || t.Dead() || t.Team() == team {
		return true
	}
	return rng > 0 && !within(t.X(), t.Y(), x, y, rng)
}
