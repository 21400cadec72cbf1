// Package block implements the logic entity: the in-world object that owns
// one program, drives it at a rate-limited cadence, keeps its link list
// valid and persists its state.
package block

import (
	"fmt"

	"github.com/chazu/logicproc/compiler"
)

// Type is the static configuration shared by all entities of one kind.
type Type struct {
	Name                string  `toml:"name" yaml:"name"`
	InstructionsPerTick int     `toml:"instructions_per_tick" yaml:"instructions_per_tick"`
	MaxInstructionScale int     `toml:"max_instruction_scale" yaml:"max_instruction_scale"`
	Range               float64 `toml:"range" yaml:"range"`
	Memory              int     `toml:"memory" yaml:"memory"`
	Size                int     `toml:"size" yaml:"size"`
}

// DefaultType is the stock single-tile processor.
func DefaultType() Type {
	return Type{
		Name:                "micro-processor",
		InstructionsPerTick: 1,
		MaxInstructionScale: 8,
		Range:               8 * 10,
		Memory:              16,
		Size:                1,
	}
}

// Validate checks that t can drive an entity.
func (t Type) Validate() error {
	switch {
	case t.Name == "":
		return fmt.Errorf("type has no name")
	case t.InstructionsPerTick <= 0:
		return fmt.Errorf("type %s: instructions_per_tick must be positive", t.Name)
	case t.MaxInstructionScale <= 0:
		return fmt.Errorf("type %s: max_instruction_scale must be positive", t.Name)
	case t.Range < 0:
		return fmt.Errorf("type %s: range must not be negative", t.Name)
	case t.Memory < 0:
		return fmt.Errorf("type %s: memory must not be negative", t.Name)
	case t.Size <= 0:
		return fmt.Errorf("type %s: size must be positive", t.Name)
	}
	return nil
}

// Limits bound what a single entity may hold. Program limits are shared
// with the assembler.
type Limits struct {
	compiler.Limits `yaml:",inline"`

	MaxLinks  int `toml:"max_links" yaml:"max_links"`
	MaxMemory int `toml:"max_memory" yaml:"max_memory"`
	MaxText   int `toml:"max_text" yaml:"max_text"`
}

// DefaultLimits returns the stock entity bounds.
func DefaultLimits() Limits {
	return Limits{
		Limits:    compiler.DefaultLimits(),
		MaxLinks:  256,
		MaxMemory: 4096,
		MaxText:   400,
	}
}

// WithDefaults fills every zero or negative bound from DefaultLimits.
func (l Limits) WithDefaults() Limits {
	d := DefaultLimits()
	l.Limits = l.Limits.WithDefaults()
	if l.MaxLinks <= 0 {
		l.MaxLinks = d.MaxLinks
	}
	if l.MaxMemory <= 0 {
		l.MaxMemory = d.MaxMemory
	}
	if l.MaxText <= 0 {
		l.MaxText = d.MaxText
	}
	return l
}

// Validate checks the bounds are usable. Link counts are persisted as
// 16-bit values.
func (l Limits) Validate() error {
	switch {
	case l.MaxSourceBytes <= 0 || l.MaxInstructions <= 0 || l.MaxVariables <= 0:
		return fmt.Errorf("limits: program limits must be positive")
	case l.MaxLinks < 0 || l.MaxLinks > 0xFFFF:
		return fmt.Errorf("limits: max_links must be between 0 and %d", 0xFFFF)
	case l.MaxMemory < 0:
		return fmt.Errorf("limits: max_memory must not be negative")
	case l.MaxText < 0:
		return fmt.Errorf("limits: max_text must not be negative")
	}
	return nil
}
