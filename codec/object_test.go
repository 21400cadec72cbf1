package codec

import (
	"bytes"
	"testing"
)

type fakeBuilding struct{ pos int32 }

func (b *fakeBuilding) Pos() int32 { return b.pos }

type fakeWorld map[int32]*fakeBuilding

func (w fakeWorld) Resolve(pos int32) any {
	if b, ok := w[pos]; ok {
		return b
	}
	return nil
}

func TestObjectRoundTrip(t *testing.T) {
	b := &fakeBuilding{pos: 3<<16 | 4}
	c := NewObjectCodec(fakeWorld{b.pos: b})

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"null", nil, nil},
		{"text", "hello", "hello"},
		{"empty text", "", ""},
		{"building", b, b},
		{"number", 2.5, 2.5},
		{"int", 7, 7.0},
		{"unknown", struct{}{}, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data, err := c.EncodeObject(tc.in)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			got, err := c.DecodeObject(data)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %#v, want %#v", got, tc.want)
			}
		})
	}
}

func TestObjectMissingBuilding(t *testing.T) {
	b := &fakeBuilding{pos: 9}
	data, err := NewObjectCodec(fakeWorld{b.pos: b}).EncodeObject(b)
	if err != nil {
		t.Fatal(err)
	}
	got, err := NewObjectCodec(fakeWorld{}).DecodeObject(data)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("got %#v, want nil", got)
	}
}

func TestObjectStaleReferenceEncodesNull(t *testing.T) {
	b := &fakeBuilding{pos: 9}
	null, err := NewObjectCodec(nil).EncodeObject(nil)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		world Resolver
	}{
		{"removed", fakeWorld{}},
		{"replaced", fakeWorld{b.pos: &fakeBuilding{pos: b.pos}}},
		{"no world", nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data, err := NewObjectCodec(tc.world).EncodeObject(b)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(data, null) {
				t.Errorf("encoding = %x, want null %x", data, null)
			}
		})
	}
}

func TestObjectEncodingIsDeterministic(t *testing.T) {
	c := NewObjectCodec(nil)
	a, _ := c.EncodeObject("same")
	b, _ := c.EncodeObject("same")
	if !bytes.Equal(a, b) {
		t.Errorf("encodings differ: %x vs %x", a, b)
	}
}

func TestDecodeGarbage(t *testing.T) {
	if _, err := NewObjectCodec(nil).DecodeObject([]byte{0xff, 0x00}); err == nil {
		t.Error("expected an error for malformed data")
	}
	bad, _ := Marshal(envelope{Kind: 42})
	if _, err := NewObjectCodec(nil).DecodeObject(bad); err == nil {
		t.Error("expected an error for an unknown kind")
	}
}
