// Package ai holds the unit targeting controller.
package ai

import (
	"math"
	"math/rand/v2"

	"github.com/chazu/logicproc/world"
)

// RetargetInterval is the number of ticks between target searches.
const RetargetInterval = 30

// Finder locates targets. *world.Grid implements it.
type Finder interface {
	ClosestTarget(team int, x, y, rng float64, air, ground bool) world.Target
}

// Controller aims a unit's weapons. It keeps only the current targets and
// a retarget timer.
type Controller struct {
	unit    *world.Unit
	finder  Finder
	timer   float64
	target  world.Target
	targets []world.Target
}

// NewController returns a controller for u. The first search happens
// after a random offset drawn from seed, so controllers created together
// do not all search on the same tick.
func NewController(u *world.Unit, finder Finder, seed uint64) *Controller {
	rng := rand.New(rand.NewPCG(seed, uint64(u.ID)))
	return &Controller{
		unit:   u,
		finder: finder,
		timer:  rng.Float64() * 40,
	}
}

// Unit returns the controlled unit.
func (c *Controller) Unit() *world.Unit { return c.unit }

// Target returns the unit's main target.
func (c *Controller) Target() world.Target { return c.target }

// MountTarget returns the target of mount i.
func (c *Controller) MountTarget(i int) world.Target {
	if i < 0 || i >= len(c.targets) {
		return nil
	}
	return c.targets[i]
}

// retarget advances the timer and reports whether a search is due.
func (c *Controller) retarget(delta float64) bool {
	c.timer += delta
	if c.timer >= RetargetInterval {
		c.timer = 0
		return true
	}
	return false
}

// Update runs one targeting step.
func (c *Controller) Update(delta float64) {
	u := c.unit
	if u.Dead() || !u.HasWeapons() {
		return
	}
	if len(c.targets) != len(u.Mounts) {
		c.targets = make([]world.Target, len(u.Mounts))
	}

	ret := c.retarget(delta)
	if ret {
		c.target = c.finder.ClosestTarget(u.Team(), u.X(), u.Y(), u.Range(), u.Type.TargetAir, u.Type.TargetGround)
	}
	if world.InvalidTarget(c.target, u.Team(), u.X(), u.Y(), 0) {
		c.target = nil
	}

	for i, mount := range u.Mounts {
		mx, my := u.MountPosition(i)
		bullet := mount.Weapon.Bullet

		if u.Type.SingleTarget {
			c.targets[i] = c.target
		} else {
			if ret {
				c.targets[i] = c.finder.ClosestTarget(u.Team(), mx, my, bullet.Range, bullet.CollidesAir, bullet.CollidesGround)
			}
			if world.InvalidTarget(c.targets[i], u.Team(), mx, my, bullet.Range) {
				c.targets[i] = nil
			}
		}

		shoot := false
		if t := c.targets[i]; t != nil {
			shoot = math.Hypot(t.X()-mx, t.Y()-my) <= bullet.Range
			if shoot {
				mount.AimX, mount.AimY = Intercept(mx, my, t, bullet.Speed)
			}
		}
		mount.Shoot = shoot
		mount.Rotate = shoot
	}
}

// Mover is implemented by targets with a velocity.
type Mover interface {
	Velocity() (vx, vy float64)
}

// Intercept returns where a bullet fired from (sx, sy) at speed should be
// aimed to meet t, assuming t keeps a constant velocity. Static targets,
// zero speed and unreachable targets yield the target's position.
func Intercept(sx, sy float64, t world.Target, speed float64) (float64, float64) {
	tx, ty := t.X(), t.Y()
	m, ok := t.(Mover)
	if !ok || speed <= 0 {
		return tx, ty
	}
	vx, vy := m.Velocity()
	if vx == 0 && vy == 0 {
		return tx, ty
	}

	dx, dy := tx-sx, ty-sy
	a := vx*vx + vy*vy - speed*speed
	b := 2 * (dx*vx + dy*vy)
	cc := dx*dx + dy*dy

	var time float64
	if math.Abs(a) < 1e-9 {
		if b == 0 {
			return tx, ty
		}
		time = -cc / b
	} else {
		disc := b*b - 4*a*cc
		if disc < 0 {
			return tx, ty
		}
		root := math.Sqrt(disc)
		t1 := (-b - root) / (2 * a)
		t2 := (-b + root) / (2 * a)
		time = math.Min(t1, t2)
		if time < 0 {
			time = math.Max(t1, t2)
		}
	}
	if time < 0 {
		return tx, ty
	}
	return tx + vx*time, ty + vy*time
}
