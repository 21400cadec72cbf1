// Package world is a small tile world: buildings addressed by packed tile
// position, and units that move and shoot. It is the collaborator logic
// entities resolve links against.
package world

import (
	"math"
	"sort"

	"github.com/chazu/logicproc/block"
	"github.com/chazu/logicproc/vm"
)

// TileSize is the width of a tile in world units.
const TileSize = 8

// Building is a placed block. It can be linked by logic entities, read
// with sensor, driven with control and written with printflush.
type Building struct {
	pos       int32
	kind      string
	team      int
	size      int
	health    float64
	maxHealth float64
	enabled   bool
	dead      bool
	text      string
	props     map[string]vm.Value

	// Logic is set when the building runs a program.
	Logic *block.Entity
}

// NewBuilding returns an enabled building at full health.
func NewBuilding(kind string, x, y, size, team int) *Building {
	if size <= 0 {
		size = 1
	}
	return &Building{
		pos:       block.PackPos(x, y),
		kind:      kind,
		team:      team,
		size:      size,
		health:    100,
		maxHealth: 100,
		enabled:   true,
		props:     make(map[string]vm.Value),
	}
}

func (b *Building) Pos() int32 { return b.pos }
func (b *Building) Team() int { return b.team }
func (b *Building) Size() int { return b.size }
func (b *Building) Kind() string { return b.kind }
func (b *Building) Name() string { return b.kind }
func (b *Building) Dead() bool { return b.dead }
func (b *Building) Enabled() bool { return b.enabled }
func (b *Building) Text() string { return b.text }
func (b *Building) Health() float64 { return b.health }

// TileX returns the building's tile column.
func (b *Building) TileX() int {
	x, _ := block.UnpackPos(b.pos)
	return x
}

// TileY returns the building's tile row.
func (b *Building) TileY() int {
	_, y := block.UnpackPos(b.pos)
	return y
}

// offset centers even-sized buildings between tiles.
func (b *Building) offset() float64 {
	return float64((b.size+1)%2) * TileSize / 2
}

// X returns the building's center in world units.
func (b *Building) X() float64 {
	return float64(b.TileX()*TileSize) + b.offset()
}

// Y returns the building's center in world units.
func (b *Building) Y() float64 {
	return float64(b.TileY()*TileSize) + b.offset()
}

// HitSize is the building's footprint width in world units.
func (b *Building) HitSize() float64 {
	return float64(b.size * TileSize)
}

// Damage reduces health, destroying the building at zero.
func (b *Building) Damage(amount float64) {
	if b.dead {
		return
	}
	b.health -= amount
	if b.health <= 0 {
		b.health = 0
		b.dead = true
	}
}

// Destroy marks the building dead.
func (b *Building) Destroy() {
	b.health = 0
	b.dead = true
}

// SetText implements vm.TextSink.
func (b *Building) SetText(text string) {
	b.text = text
}

// Sense implements vm.Sensor.
func (b *Building) Sense(prop string) vm.Value {
	switch prop {
	case "x":
		return vm.Num(float64(b.TileX()))
	case "y":
		return vm.Num(float64(b.TileY()))
	case "health":
		return vm.Num(b.health)
	case "maxHealth":
		return vm.Num(b.maxHealth)
	case "team":
		return vm.Num(float64(b.team))
	case "size":
		return vm.Num(float64(b.size))
	case "enabled":
		return vm.Bool(b.enabled)
	case "dead":
		return vm.Bool(b.dead)
	case "type", "name":
		return vm.Obj(b.kind)
	case "text":
		return vm.Obj(b.text)
	}
	if v, ok := b.props[prop]; ok {
		return v
	}
	return vm.Null
}

// Control implements vm.Controllable. enabled toggles the building; any
// other property is stored and readable through Sense.
func (b *Building) Control(prop string, v vm.Value) {
	if b.dead {
		return
	}
	switch prop {
	case "enabled":
		b.enabled = v.Float() != 0
	case "health", "maxHealth", "team", "size", "x", "y", "dead", "type", "name", "text":
		// read-only
	default:
		b.props[prop] = v
	}
}

// Props returns the names of the custom properties set through control,
// sorted.
func (b *Building) Props() []string {
	names := make([]string, 0, len(b.props))
	for name := range b.props {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func within(ax, ay, bx, by, dst float64) bool {
	return math.Hypot(ax-bx, ay-by) <= dst
}

func distance(ax, ay, bx, by float64) float64 {
	return math.Hypot(ax-bx, ay-by)
}
