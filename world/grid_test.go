package world

import (
	"errors"
	"testing"

	"github.com/chazu/logicproc/vm"
)

func TestBuildingPosition(t *testing.T) {
	b := NewBuilding("switch", 3, 4, 1, 1)
	if b.TileX() != 3 || b.TileY() != 4 {
		t.Errorf("tile = %d,%d", b.TileX(), b.TileY())
	}
	if b.X() != 24 || b.Y() != 32 {
		t.Errorf("center = %v,%v, want 24,32", b.X(), b.Y())
	}
	big := NewBuilding("processor", 3, 4, 2, 1)
	if big.X() != 28 || big.Y() != 36 {
		t.Errorf("2x2 center = %v,%v, want 28,36", big.X(), big.Y())
	}
}

func TestGridPlaceAndResolve(t *testing.T) {
	g := NewGrid()
	b := NewBuilding("switch", 1, 2, 1, 1)
	if err := g.Place(b); err != nil {
		t.Fatal(err)
	}
	if err := g.Place(NewBuilding("switch", 1, 2, 1, 1)); !errors.Is(err, ErrOccupied) {
		t.Errorf("err = %v, want ErrOccupied", err)
	}
	if got := g.Resolve(b.Pos()); got != any(b) {
		t.Errorf("Resolve = %v", got)
	}
	if got := g.Resolve(12345); got != nil {
		t.Errorf("Resolve(empty) = %#v, want untyped nil", got)
	}

	b.Destroy()
	if got := g.Resolve(b.Pos()); got != nil {
		t.Errorf("Resolve(dead) = %#v, want nil", got)
	}
	replacement := NewBuilding("switch", 1, 2, 1, 1)
	if err := g.Place(replacement); err != nil {
		t.Errorf("placing over a dead building: %v", err)
	}
	if len(g.Buildings()) != 1 {
		t.Errorf("buildings = %d, want 1", len(g.Buildings()))
	}
}

func TestGridIsValid(t *testing.T) {
	g := NewGrid()
	host := NewBuilding("processor", 0, 0, 1, 1)
	near := NewBuilding("switch", 5, 0, 1, 1)
	edge := NewBuilding("switch", 10, 0, 1, 1)
	far := NewBuilding("switch", 11, 0, 1, 1)
	enemy := NewBuilding("switch", 1, 0, 1, 2)
	for _, b := range []*Building{host, near, edge, far, enemy} {
		if err := g.Place(b); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name string
		b    *Building
		want bool
	}{
		{"near", near, true},
		{"edge", edge, true},
		{"far", far, false},
		{"enemy", enemy, false},
	}
	for _, tc := range tests {
		if got := g.IsValid(tc.b, 1, host.X(), host.Y(), 80); got != tc.want {
			t.Errorf("%s: IsValid = %v, want %v", tc.name, got, tc.want)
		}
	}

	near.Destroy()
	if g.IsValid(near, 1, host.X(), host.Y(), 80) {
		t.Error("dead building is valid")
	}
	if g.IsValid("not a building", 1, 0, 0, 80) {
		t.Error("foreign object is valid")
	}
	removed := NewBuilding("switch", 2, 0, 1, 1)
	if g.IsValid(removed, 1, host.X(), host.Y(), 80) {
		t.Error("building outside the grid is valid")
	}
}

func TestBuildingSensorAndControl(t *testing.T) {
	b := NewBuilding("door", 2, 3, 1, 1)
	b.Damage(40)
	if got := b.Sense("health"); !got.Same(vm.Num(60)) {
		t.Errorf("health = %v", got)
	}
	if got := b.Sense("x"); !got.Same(vm.Num(2)) {
		t.Errorf("x = %v", got)
	}
	if got := b.Sense("type"); got.String() != "door" {
		t.Errorf("type = %v", got)
	}
	if !b.Sense("nothing").IsNull() {
		t.Error("unknown property should be null")
	}

	b.Control("enabled", vm.Num(0))
	if b.Enabled() || !b.Sense("enabled").Same(vm.Num(0)) {
		t.Error("control enabled 0 did not disable")
	}
	b.Control("health", vm.Num(1000))
	if b.Health() != 60 {
		t.Error("health is writable")
	}
	b.Control("color", vm.Num(3))
	if got := b.Sense("color"); !got.Same(vm.Num(3)) {
		t.Errorf("color = %v", got)
	}
	if props := b.Props(); len(props) != 1 || props[0] != "color" {
		t.Errorf("props = %v", props)
	}

	b.SetText("hi")
	if b.Text() != "hi" || b.Sense("text").String() != "hi" {
		t.Errorf("text = %q", b.Text())
	}

	b.Damage(100)
	if !b.Dead() {
		t.Error("building survived lethal damage")
	}
}

func TestClosestTarget(t *testing.T) {
	g := NewGrid()
	ground := &UnitType{Name: "dagger"}
	air := &UnitType{Name: "flare", Flying: true}

	walker := NewUnit(1, ground, 2, 30, 0)
	flyer := NewUnit(2, air, 2, 10, 0)
	friend := NewUnit(3, ground, 1, 1, 0)
	g.AddUnit(walker)
	g.AddUnit(flyer)
	g.AddUnit(friend)

	if got := g.ClosestTarget(1, 0, 0, 100, true, true); got != Target(flyer) {
		t.Errorf("air+ground = %v, want flyer", got)
	}
	if got := g.ClosestTarget(1, 0, 0, 100, false, true); got != Target(walker) {
		t.Errorf("ground only = %v, want walker", got)
	}
	if got := g.ClosestTarget(1, 0, 0, 5, true, true); got != nil {
		t.Errorf("short range = %v, want nil", got)
	}

	flyer.Kill()
	if got := g.ClosestTarget(1, 0, 0, 100, true, false); got != nil {
		t.Errorf("dead flyer targeted")
	}
}

func TestUnitMove(t *testing.T) {
	u := NewUnit(1, &UnitType{Name: "dagger"}, 1, 0, 0)
	u.VelX, u.VelY = 1, 2
	u.Move(3)
	if u.X() != 3 || u.Y() != 6 {
		t.Errorf("position = %v,%v", u.X(), u.Y())
	}
	if u.Health() != 100 {
		t.Errorf("default health = %v", u.Health())
	}
}

func TestInvalidTarget(t *testing.T) {
	u := NewUnit(1, &UnitType{Name: "dagger"}, 2, 50, 0)
	if InvalidTarget(u, 1, 0, 0, 0) {
		t.Error("enemy without a range check is invalid")
	}
	if !InvalidTarget(u, 1, 0, 0, 10) {
		t.Error("out-of-range target is valid")
	}
	if !InvalidTarget(u, 2, 0, 0, 0) {
		t.Error("friendly target is valid")
	}
	if !InvalidTarget(nil, 1, 0, 0, 0) {
		t.Error("nil target is valid")
	}
}
