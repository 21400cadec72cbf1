package block

import (
	"errors"
	"fmt"
	"slices"

	"github.com/tliron/commonlog"

	"github.com/chazu/logicproc/codec"
	"github.com/chazu/logicproc/compiler"
	"github.com/chazu/logicproc/vm"
)

var log = commonlog.GetLogger("logicproc.block")

// ErrSourceTooLarge is returned by SetCode for source longer than
// MaxSourceBytes.
var ErrSourceTooLarge = errors.New("source too large")

// World is the slice of the simulation an entity needs: address
// resolution and the link validity predicate.
type World interface {
	// Resolve returns the object at pos, or nil.
	Resolve(pos int32) any
	// IsValid reports whether obj may be linked by an entity of team
	// standing at (x, y) with the given range.
	IsValid(obj any, team int, x, y, rng float64) bool
}

// Host is the world object an entity belongs to. It is bound to @this.
type Host interface {
	Pos() int32
	Team() int
	X() float64
	Y() float64
}

// ObjectCodec persists the object values of variables.
type ObjectCodec interface {
	EncodeObject(obj any) ([]byte, error)
	DecodeObject(data []byte) (any, error)
}

// AssembleFunc assembles source. compiler.Assemble and
// (*compiler.Cache).Assemble both qualify.
type AssembleFunc func(src string, opts compiler.Options) (*vm.Program, []compiler.Diagnostic, error)

// Config wires an entity to its collaborators. Zero fields take defaults.
type Config struct {
	Type     Type
	Limits   Limits
	Host     Host
	World    World
	Codec    ObjectCodec
	Assemble AssembleFunc
	Metrics  *Metrics
	Seed     uint64
}

// Entity is one logic block: a program, its executor, its links and its
// instruction budget.
type Entity struct {
	typ      Type
	limits   Limits
	host     Host
	world    World
	codec    ObjectCodec
	assemble AssembleFunc
	metrics  *Metrics

	code        string
	executor    *vm.Executor
	accumulator float64
	links       []int32
	loaded      bool
}

// New returns an entity with empty source and a zeroed memory bank. The
// program is loaded on the first update.
func New(cfg Config) *Entity {
	if cfg.Type.Name == "" {
		cfg.Type = DefaultType()
	}
	cfg.Limits = cfg.Limits.WithDefaults()
	if cfg.Codec == nil {
		var resolver codec.Resolver
		if cfg.World != nil {
			resolver = cfg.World
		}
		cfg.Codec = codec.NewObjectCodec(resolver)
	}
	if cfg.Assemble == nil {
		cfg.Assemble = compiler.Assemble
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics(nil)
	}

	ex := vm.NewExecutor(bankSize(cfg.Type, cfg.Limits))
	ex.SetSeed(cfg.Seed)
	ex.SetTextLimit(cfg.Limits.MaxText)

	return &Entity{
		typ:      cfg.Type,
		limits:   cfg.Limits,
		host:     cfg.Host,
		world:    cfg.World,
		codec:    cfg.Codec,
		assemble: cfg.Assemble,
		metrics:  cfg.Metrics,
		executor: ex,
	}
}

// bankSize is the memory bank length of an entity of type t.
func bankSize(t Type, l Limits) int {
	return min(t.Memory, l.MaxMemory)
}

// Type returns the entity's static configuration.
func (e *Entity) Type() Type { return e.typ }

// Code returns the current source.
func (e *Entity) Code() string { return e.code }

// Links returns a copy of the link list.
func (e *Entity) Links() []int32 { return slices.Clone(e.links) }

// Executor returns the entity's executor.
func (e *Entity) Executor() *vm.Executor { return e.executor }

// Loaded reports whether the first-activation recompile has happened.
func (e *Entity) Loaded() bool { return e.loaded }

// Accumulator returns the unspent instruction budget.
func (e *Entity) Accumulator() float64 { return e.accumulator }

func (e *Entity) String() string {
	if e.host == nil {
		return e.typ.Name
	}
	x, y := UnpackPos(e.host.Pos())
	return fmt.Sprintf("%s(%d,%d)", e.typ.Name, x, y)
}

// SetCode replaces the source and recompiles, carrying variable values
// forward. Source over MaxSourceBytes is refused and the entity keeps its
// current program.
func (e *Entity) SetCode(code string) error {
	if len(code) > e.limits.MaxSourceBytes {
		log.Warningf("%s: refusing %d bytes of source, limit is %d", e, len(code), e.limits.MaxSourceBytes)
		return fmt.Errorf("%w: %d bytes, limit is %d", ErrSourceTooLarge, len(code), e.limits.MaxSourceBytes)
	}
	e.code = code
	e.recompile(nil)
	return nil
}

// ToggleLink adds pos to the link list, or removes it when already
// present, and recompiles. It reports false when nothing changed: the
// list is full or pos is the entity's own position. Validity is not
// checked here; the next update prunes links that are not valid.
func (e *Entity) ToggleLink(pos int32) bool {
	if e.host != nil && pos == e.host.Pos() {
		return false
	}
	if i := slices.Index(e.links, pos); i >= 0 {
		e.links = slices.Delete(e.links, i, i+1)
	} else {
		if len(e.links) >= e.limits.MaxLinks {
			log.Warningf("%s: link limit %d reached, ignoring %d", e, e.limits.MaxLinks, pos)
			return false
		}
		e.links = append(e.links, pos)
	}
	e.recompile(nil)
	return true
}

// OnProximityUpdate performs the first-activation recompile, which binds
// link constants to objects that may not have existed when the entity
// was created or read.
func (e *Entity) OnProximityUpdate() {
	if !e.loaded {
		e.recompile(nil)
		e.loaded = true
	}
}

// Update advances the entity by delta ticks: it prunes invalid links,
// recompiling when any were dropped, then spends the accumulated
// instruction budget.
func (e *Entity) Update(delta float64) {
	e.OnProximityUpdate()

	if e.pruneLinks() {
		e.recompile(nil)
	}

	if delta < 0 {
		delta = 0
	}
	ipt := float64(e.typ.InstructionsPerTick)
	e.accumulator += delta * ipt
	if limit := float64(e.typ.MaxInstructionScale) * ipt; e.accumulator > limit {
		e.accumulator = limit
	}

	n := int(e.accumulator)
	ran := 0
	for i := 0; i < n; i++ {
		if e.executor.Initialized() {
			e.executor.RunOnce()
			ran++
		}
		e.accumulator--
	}
	if ran > 0 {
		e.metrics.Instructions.Mark(int64(ran))
	}
}

// pruneLinks drops every link that is no longer valid and reports whether
// any were dropped.
func (e *Entity) pruneLinks() bool {
	if len(e.links) == 0 {
		return false
	}
	kept := make([]int32, 0, len(e.links))
	for _, pos := range e.links {
		if e.validLink(pos) {
			kept = append(kept, pos)
		}
	}
	pruned := len(e.links) - len(kept)
	if pruned == 0 {
		return false
	}
	log.Infof("%s: pruned %d invalid link(s)", e, pruned)
	e.metrics.LinksPruned.Inc(int64(pruned))
	e.links = kept
	return true
}

func (e *Entity) validLink(pos int32) bool {
	if e.world == nil || e.host == nil {
		return false
	}
	obj := e.world.Resolve(pos)
	return obj != nil && e.world.IsValid(obj, e.host.Team(), e.host.X(), e.host.Y(), e.typ.Range)
}

func (e *Entity) resolve(pos int32) vm.Value {
	if e.world == nil {
		return vm.Null
	}
	if obj := e.world.Resolve(pos); obj != nil {
		return vm.Obj(obj)
	}
	return vm.Null
}

// recompile assembles the current source and loads it. Link constants are
// bound first, then the previous program's variables are carried over,
// then extra (persisted values) is overlaid, and finally the entity
// constants are bound. Any assembly failure loads the empty program.
func (e *Entity) recompile(extra []vm.Binding) {
	e.metrics.Recompiles.Inc(1)

	prog, diags, err := e.assemble(e.code, compiler.Options{Limits: e.limits.Limits})
	if err != nil {
		e.metrics.CompileFailures.Inc(1)
		log.Errorf("%s: %s", e, err)
		e.executor.SetLinks(nil)
		e.executor.Load(vm.EmptyProgram())
		return
	}
	for _, d := range diags {
		log.Debugf("%s: %s", e, d)
	}

	vars := prog.Vars
	links := make([]vm.Value, len(e.links))
	for i, pos := range e.links {
		links[i] = e.resolve(pos)
		vars.PutConst(fmt.Sprintf("@%d", i), links[i])
	}

	vars, skipped := vm.Overlay(vars, e.executor.Vars().Mutable())
	for _, err := range skipped {
		log.Debugf("%s: carry-over: %s", e, err)
	}
	if len(extra) > 0 {
		vars, skipped = vm.Overlay(vars, extra)
		for _, err := range skipped {
			log.Debugf("%s: restore: %s", e, err)
		}
	}

	if e.host != nil {
		vars.PutConst("@this", vm.Obj(e.host))
	} else {
		vars.PutConst("@this", vm.Null)
	}
	vars.PutConst("@links", vm.Num(float64(len(e.links))))
	vars.PutConst("@ipt", vm.Num(float64(e.typ.InstructionsPerTick)))

	e.executor.SetLinks(links)
	e.executor.Load(&vm.Program{Instructions: prog.Instructions, Vars: vars})
}
