package codec

import (
	"fmt"
)

// Object kinds in the persisted envelope.
const (
	KindNull     uint8 = 0
	KindText     uint8 = 1
	KindBuilding uint8 = 2
	KindNumber   uint8 = 3
)

// Resolver looks up a world object by packed position. It returns nil
// when nothing lives there.
type Resolver interface {
	Resolve(pos int32) any
}

// Addressable objects are persisted as a reference to their position.
type Addressable interface {
	Pos() int32
}

type envelope struct {
	Kind uint8   `cbor:"1,keyasint"`
	Text string  `cbor:"2,keyasint,omitempty"`
	Pos  int32   `cbor:"3,keyasint,omitempty"`
	Num  float64 `cbor:"4,keyasint,omitempty"`
}

// ObjectCodec encodes the object values held by logic variables. Objects
// it does not know how to represent, and references to objects no longer
// in the world, are stored as null.
type ObjectCodec struct {
	world Resolver
}

// NewObjectCodec returns a codec that resolves building references
// through world. A nil world stores and decodes every reference as nil.
func NewObjectCodec(world Resolver) *ObjectCodec {
	return &ObjectCodec{world: world}
}

// EncodeObject encodes obj.
func (c *ObjectCodec) EncodeObject(obj any) ([]byte, error) {
	var env envelope
	switch o := obj.(type) {
	case nil:
		env.Kind = KindNull
	case string:
		env = envelope{Kind: KindText, Text: o}
	case Addressable:
		// A reference is kept only while it still resolves to obj.
		if c.world != nil && c.world.Resolve(o.Pos()) == obj {
			env = envelope{Kind: KindBuilding, Pos: o.Pos()}
		}
	case float64:
		env = envelope{Kind: KindNumber, Num: o}
	case int:
		env = envelope{Kind: KindNumber, Num: float64(o)}
	default:
		env.Kind = KindNull
	}
	return encMode.Marshal(env)
}

// DecodeObject decodes data produced by EncodeObject. A building reference
// whose position no longer resolves decodes to nil.
func (c *ObjectCodec) DecodeObject(data []byte) (any, error) {
	var env envelope
	if err := Unmarshal(data, &env); err != nil {
		return nil, err
	}
	switch env.Kind {
	case KindNull:
		return nil, nil
	case KindText:
		return env.Text, nil
	case KindBuilding:
		if c.world == nil {
			return nil, nil
		}
		return c.world.Resolve(env.Pos), nil
	case KindNumber:
		return env.Num, nil
	}
	return nil, fmt.Errorf("codec: unknown object kind %d", env.Kind)
}
