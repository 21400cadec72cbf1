package compiler

// Limits bound the size of an assembled program.
type Limits struct {
	MaxSourceBytes  int `toml:"max_source_bytes" yaml:"max_source_bytes"`
	MaxInstructions int `toml:"max_instructions" yaml:"max_instructions"`
	MaxVariables    int `toml:"max_variables" yaml:"max_variables"`
}

// DefaultLimits returns the stock program bounds.
func DefaultLimits() Limits {
	return Limits{
		MaxSourceBytes:  100 * 1024,
		MaxInstructions: 1000,
		MaxVariables:    4096,
	}
}

// WithDefaults fills zero fields from DefaultLimits.
func (l Limits) WithDefaults() Limits {
	d := DefaultLimits()
	if l.MaxSourceBytes <= 0 {
		l.MaxSourceBytes = d.MaxSourceBytes
	}
	if l.MaxInstructions <= 0 {
		l.MaxInstructions = d.MaxInstructions
	}
	if l.MaxVariables <= 0 {
		l.MaxVariables = d.MaxVariables
	}
	return l
}

// Options control assembly.
type Options struct {
	Limits Limits
	// Strict turns warnings into a CompileError.
	Strict bool
}
