package world

import "math"

// Bullet describes what a weapon fires.
type Bullet struct {
	Range          float64 `toml:"range" yaml:"range"`
	Speed          float64 `toml:"speed" yaml:"speed"`
	CollidesAir    bool    `toml:"collides_air" yaml:"collides_air"`
	CollidesGround bool    `toml:"collides_ground" yaml:"collides_ground"`
}

// Weapon is a weapon slot, offset from the unit center in the unit's
// local frame (x to the right, y forward).
type Weapon struct {
	X      float64 `toml:"x" yaml:"x"`
	Y      float64 `toml:"y" yaml:"y"`
	Bullet Bullet  `toml:"bullet" yaml:"bullet"`
}

// UnitType is the static description of a unit.
type UnitType struct {
	Name         string   `toml:"name" yaml:"name"`
	Range        float64  `toml:"range" yaml:"range"`
	Health       float64  `toml:"health" yaml:"health"`
	Flying       bool     `toml:"flying" yaml:"flying"`
	TargetAir    bool     `toml:"target_air" yaml:"target_air"`
	TargetGround bool     `toml:"target_ground" yaml:"target_ground"`
	SingleTarget bool     `toml:"single_target" yaml:"single_target"`
	Weapons      []Weapon `toml:"weapons" yaml:"weapons"`
}

// Mount is the live state of one weapon on one unit.
type Mount struct {
	Weapon Weapon
	AimX   float64
	AimY   float64
	Shoot  bool
	Rotate bool
}

// Unit is a mobile actor.
type Unit struct {
	ID       int
	Type     *UnitType
	Mounts   []*Mount
	PosX     float64
	PosY     float64
	VelX     float64
	VelY     float64
	Rotation float64 // degrees, 0 along +x

	team   int
	health float64
	dead   bool
}

// NewUnit returns a unit of type t with one mount per weapon.
func NewUnit(id int, t *UnitType, team int, x, y float64) *Unit {
	u := &Unit{ID: id, Type: t, PosX: x, PosY: y, team: team, health: t.Health}
	if u.health <= 0 {
		u.health = 100
	}
	for _, w := range t.Weapons {
		u.Mounts = append(u.Mounts, &Mount{Weapon: w})
	}
	return u
}

func (u *Unit) Team() int { return u.team }
func (u *Unit) X() float64 { return u.PosX }
func (u *Unit) Y() float64 { return u.PosY }
func (u *Unit) Dead() bool { return u.dead }
func (u *Unit) Flying() bool { return u.Type.Flying }
func (u *Unit) Health() float64 { return u.health }

// Velocity returns the unit's velocity in world units per tick.
func (u *Unit) Velocity() (float64, float64) {
	return u.VelX, u.VelY
}

// Range returns the unit's targeting range.
func (u *Unit) Range() float64 {
	return u.Type.Range
}

// HasWeapons reports whether the unit has any weapon mounts.
func (u *Unit) HasWeapons() bool {
	return len(u.Mounts) > 0
}

// Damage reduces health, killing the unit at zero.
func (u *Unit) Damage(amount float64) {
	if u.dead {
		return
	}
	u.health -= amount
	if u.health <= 0 {
		u.health = 0
		u.dead = true
	}
}

// Kill marks the unit dead.
func (u *Unit) Kill() {
	u.health = 0
	u.dead = true
}

// Move advances the unit by its velocity.
func (u *Unit) Move(delta float64) {
	if u.dead {
		return
	}
	u.PosX += u.VelX * delta
	u.PosY += u.VelY * delta
}

// MountPosition returns the world position of mount i, rotating the
// weapon offset into the unit's heading.
func (u *Unit) MountPosition(i int) (float64, float64) {
	w := u.Mounts[i].Weapon
	rot := (u.Rotation - 90) * math.Pi / 180
	cos, sin := math.Cos(rot), math.Sin(rot)
	return u.PosX + w.X*cos - w.Y*sin, u.PosY + w.X*sin + w.Y*cos
}
