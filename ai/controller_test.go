package ai

import (
	"math"
	"testing"

	"github.com/chazu/logicproc/world"
)

func gunType(single bool) *world.UnitType {
	return &world.UnitType{
		Name:         "dagger",
		Range:        60,
		TargetGround: true,
		TargetAir:    true,
		SingleTarget: single,
		Weapons: []world.Weapon{
			{X: 4, Bullet: world.Bullet{Range: 60, Speed: 2, CollidesAir: true, CollidesGround: true}},
			{X: -4, Bullet: world.Bullet{Range: 60, Speed: 2, CollidesAir: true, CollidesGround: true}},
		},
	}
}

// settle runs enough ticks for any initial retarget offset to elapse.
func settle(c *Controller) {
	for i := 0; i < 41; i++ {
		c.Update(1)
	}
}

func TestControllerTargetsClosestEnemy(t *testing.T) {
	g := world.NewGrid()
	u := world.NewUnit(1, gunType(false), 1, 0, 0)
	near := world.NewUnit(2, gunType(false), 2, 20, 0)
	far := world.NewUnit(3, gunType(false), 2, 40, 0)
	friend := world.NewUnit(4, gunType(false), 1, 5, 0)
	for _, x := range []*world.Unit{u, far, near, friend} {
		g.AddUnit(x)
	}

	c := NewController(u, g, 7)
	settle(c)
	if c.Target() != world.Target(near) {
		t.Fatalf("target = %v, want the nearest enemy", c.Target())
	}
	for i, m := range u.Mounts {
		if c.MountTarget(i) != world.Target(near) {
			t.Errorf("mount %d target = %v", i, c.MountTarget(i))
		}
		if !m.Shoot || !m.Rotate {
			t.Errorf("mount %d not firing", i)
		}
	}
}

func TestControllerDropsDeadTarget(t *testing.T) {
	g := world.NewGrid()
	u := world.NewUnit(1, gunType(true), 1, 0, 0)
	enemy := world.NewUnit(2, gunType(true), 2, 20, 0)
	g.AddUnit(u)
	g.AddUnit(enemy)

	c := NewController(u, g, 1)
	settle(c)
	if c.Target() == nil {
		t.Fatal("no target acquired")
	}
	enemy.Kill()
	c.Update(1)
	if c.Target() != nil {
		t.Errorf("dead target kept: %v", c.Target())
	}
	for i, m := range u.Mounts {
		if m.Shoot {
			t.Errorf("mount %d still shooting", i)
		}
	}
}

func TestControllerHonorsAirGround(t *testing.T) {
	g := world.NewGrid()
	typ := gunType(true)
	typ.TargetAir = false
	u := world.NewUnit(1, typ, 1, 0, 0)
	flyer := world.NewUnit(2, &world.UnitType{Name: "flare", Flying: true}, 2, 10, 0)
	g.AddUnit(u)
	g.AddUnit(flyer)

	c := NewController(u, g, 3)
	settle(c)
	if c.Target() != nil {
		t.Errorf("ground-only unit targeted a flyer: %v", c.Target())
	}
}

func TestControllerOutOfRangeNotFired(t *testing.T) {
	g := world.NewGrid()
	typ := gunType(false)
	typ.Range = 500
	u := world.NewUnit(1, typ, 1, 0, 0)
	enemy := world.NewUnit(2, gunType(false), 2, 100, 0)
	g.AddUnit(u)
	g.AddUnit(enemy)

	c := NewController(u, g, 5)
	settle(c)
	if c.Target() != world.Target(enemy) {
		t.Fatalf("unit should track the enemy within its own range")
	}
	for i, m := range u.Mounts {
		if c.MountTarget(i) != nil || m.Shoot {
			t.Errorf("mount %d engaged a target beyond bullet range", i)
		}
	}
}

func TestControllerTargetsBuildings(t *testing.T) {
	g := world.NewGrid()
	u := world.NewUnit(1, gunType(true), 1, 0, 0)
	g.AddUnit(u)
	b := world.NewBuilding("wall", 3, 0, 1, 2)
	if err := g.Place(b); err != nil {
		t.Fatal(err)
	}

	c := NewController(u, g, 9)
	settle(c)
	if c.Target() != world.Target(b) {
		t.Errorf("target = %v, want the enemy building", c.Target())
	}
}

type movingTarget struct {
	x, y, vx, vy float64
}

func (m movingTarget) Team() int { return 2 }
func (m movingTarget) X() float64 { return m.x }
func (m movingTarget) Y() float64 { return m.y }
func (m movingTarget) Dead() bool { return false }
func (m movingTarget) Velocity() (float64, float64) { return m.vx, m.vy }

func TestIntercept(t *testing.T) {
	// A static target is aimed at directly.
	x, y := Intercept(0, 0, movingTarget{x: 10, y: 5}, 3)
	if x != 10 || y != 5 {
		t.Errorf("static intercept = %v, %v", x, y)
	}

	// Target moving up at speed 1 from (10, 0); bullet speed 2.
	tgt := movingTarget{x: 10, y: 0, vy: 1}
	x, y = Intercept(0, 0, tgt, 2)
	tm := y / tgt.vy
	if math.Abs(math.Hypot(x, y)-2*tm) > 1e-9 {
		t.Errorf("aim point (%v, %v) is not reachable at the same time as the target", x, y)
	}
	if x != 10 || y <= 0 {
		t.Errorf("aim point (%v, %v)", x, y)
	}

	// A target faster than the bullet running away cannot be caught.
	x, y = Intercept(0, 0, movingTarget{x: 10, vx: 5}, 1)
	if x != 10 || y != 0 {
		t.Errorf("unreachable intercept = %v, %v", x, y)
	}
}
