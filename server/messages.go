package server

// Point is a tile position.
type Point struct {
	X int `cbor:"x"`
	Y int `cbor:"y"`
}

// SetCodeRequest replaces the source of the entity at Pos.
type SetCodeRequest struct {
	Pos  Point  `cbor:"pos"`
	Code string `cbor:"code"`
}

// SetCodeResponse reports how the new source assembled. Error is set
// when assembly failed and the entity now runs the empty program.
type SetCodeResponse struct {
	Diagnostics []string `cbor:"diagnostics"`
	Error       string   `cbor:"error,omitempty"`
}

// ToggleLinkRequest adds or removes the link from Pos to Target.
type ToggleLinkRequest struct {
	Pos    Point `cbor:"pos"`
	Target Point `cbor:"target"`
}

// ToggleLinkResponse returns the link list after the toggle.
type ToggleLinkResponse struct {
	Changed bool    `cbor:"changed"`
	Links   []Point `cbor:"links"`
}

// InspectRequest asks for the state of the entity at Pos.
type InspectRequest struct {
	Pos Point `cbor:"pos"`
}

// Variable is one symbol table slot, formatted.
type Variable struct {
	Name     string `cbor:"name"`
	Value    string `cbor:"value"`
	Constant bool   `cbor:"constant"`
}

// InspectResponse is a read-only view of an entity.
type InspectResponse struct {
	Type        string     `cbor:"type"`
	Code        string     `cbor:"code"`
	Links       []Point    `cbor:"links"`
	Counter     int        `cbor:"counter"`
	Variables   []Variable `cbor:"variables"`
	Memory      []float64  `cbor:"memory"`
	Text        string     `cbor:"text"`
	Disassembly string     `cbor:"disassembly"`
}

// SaveRequest snapshots every entity.
type SaveRequest struct {
	Label string `cbor:"label"`
}

// SaveResponse names the stored snapshot.
type SaveResponse struct {
	ID       string `cbor:"id"`
	Entities int    `cbor:"entities"`
}

// RestoreRequest applies a snapshot. An empty ID selects the latest.
type RestoreRequest struct {
	ID string `cbor:"id"`
}

// RestoreResponse names the snapshot that was applied.
type RestoreResponse struct {
	ID       string `cbor:"id"`
	Entities int    `cbor:"entities"`
}

// TickRequest advances the world Count ticks.
type TickRequest struct {
	Count int `cbor:"count"`
}

// TickResponse returns the total tick count.
type TickResponse struct {
	Ticks uint64 `cbor:"ticks"`
}
