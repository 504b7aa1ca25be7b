package boxon

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// Simple covers fixed-width primitives and a terminator-delimited string
// (S1/S3 style coverage).
type Simple struct {
	Flag    bool
	Count   uint16
	Label   string
	Tail    uint8
}

func buildSimpleTemplate(t *testing.T) *Template {
	t.Helper()
	tpl, err := NewTemplateBuilder[Simple]().
		Field("Flag", Binding{Kind: BindingPrimitive}).
		Field("Count", Binding{Kind: BindingPrimitive, ByteOrder: binary.BigEndian}).
		Field("Label", Binding{Kind: BindingString, Terminator: 0x00, ConsumeTerminator: true}).
		Field("Tail", Binding{Kind: BindingPrimitive}).
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return tpl
}

func TestDecodeEncodeSimpleRoundTrip(t *testing.T) {
	engine := NewEngine()
	engine.Register(buildSimpleTemplate(t))

	data := []byte{}
	data = append(data, 0x80)       // Flag bit: true, padded to a byte
	data = append(data, 0x00, 0x2A) // Count = 42, big-endian
	data = append(data, 'h', 'i', 0x00)
	data = append(data, 0x07) // Tail

	got, err := Decode[Simple](engine, data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !got.Flag || got.Count != 42 || got.Label != "hi" || got.Tail != 7 {
		t.Fatalf("Decode() = %+v, want Flag=true Count=42 Label=hi Tail=7", got)
	}

	encoded, err := Encode(engine, got)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if !bytes.Equal(encoded, data) {
		t.Fatalf("Encode() = %#v, want %#v", encoded, data)
	}
}

// Frame and its two variants exercise prefix-discriminated OBJECT
// dispatch (S2 style coverage).
type FrameHeader struct {
	Body any
}

type PingBody struct {
	Seq uint8
}

type PongBody struct {
	Seq   uint8
	Delay uint16
}

func TestVariantDispatchByPrefix(t *testing.T) {
	pingTpl, err := NewTemplateBuilder[PingBody]().
		Field("Seq", Binding{Kind: BindingPrimitive}).
		Build()
	if err != nil {
		t.Fatalf("ping Build() error = %v", err)
	}
	pongTpl, err := NewTemplateBuilder[PongBody]().
		Field("Seq", Binding{Kind: BindingPrimitive}).
		Field("Delay", Binding{Kind: BindingPrimitive}).
		Build()
	if err != nil {
		t.Fatalf("pong Build() error = %v", err)
	}

	frameTpl, err := NewTemplateBuilder[FrameHeader]().
		Field("Body", Binding{
			Kind: BindingObject,
			SelectFrom: &SelectFrom{
				PrefixSize: 8,
				BitOrder:   MSBFirst,
				Alternatives: []Alternative{
					{Condition: `prefix == 1`, Prefix: 1, Type: pingTpl.Type},
					{Condition: `prefix == 2`, Prefix: 2, Type: pongTpl.Type},
				},
			},
		}).
		Build()
	if err != nil {
		t.Fatalf("frame Build() error = %v", err)
	}

	engine := NewEngine()
	engine.Register(pingTpl)
	engine.Register(pongTpl)
	engine.Register(frameTpl)

	pongData := []byte{0x02, 0x09, 0x00, 0x64}
	got, err := Decode[FrameHeader](engine, pongData)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	pong, ok := got.Body.(PongBody)
	if !ok {
		t.Fatalf("Body = %#v (%T), want PongBody", got.Body, got.Body)
	}
	if pong.Seq != 9 || pong.Delay != 100 {
		t.Fatalf("pong = %+v, want Seq=9 Delay=100", pong)
	}
}

// TaggedFrame exercises variant dispatch chosen by a self/root condition
// rather than #prefix: encode must not write any prefix bits for it, since
// decode never consumed any for this path.
type TaggedFrame struct {
	Body any
}

type SmallBody struct {
	Value uint8
}

func TestVariantDispatchBySelfConditionWritesNoPrefix(t *testing.T) {
	smallTpl, err := NewTemplateBuilder[SmallBody]().
		Field("Value", Binding{Kind: BindingPrimitive}).
		Build()
	if err != nil {
		t.Fatalf("small Build() error = %v", err)
	}

	frameTpl, err := NewTemplateBuilder[TaggedFrame]().
		Field("Body", Binding{
			Kind: BindingObject,
			SelectFrom: &SelectFrom{
				// No prefix bits on the wire for this variant: dispatch is
				// driven entirely by a self/root condition.
				Alternatives: []Alternative{
					{Condition: `self.Value < 100`, Type: smallTpl.Type},
				},
			},
		}).
		Build()
	if err != nil {
		t.Fatalf("frame Build() error = %v", err)
	}

	engine := NewEngine()
	engine.Register(smallTpl)
	engine.Register(frameTpl)

	encoded, err := Encode(engine, TaggedFrame{Body: SmallBody{Value: 9}})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if len(encoded) != 1 || encoded[0] != 9 {
		t.Fatalf("Encode() = %#v, want a single byte [9] (no prefix byte written)", encoded)
	}
}

// Checksummed exercises the checksum field lifecycle (S5 style coverage).
type Checksummed struct {
	A    uint8
	B    uint8
	Sum  uint8
}

func buildChecksummedTemplate(t *testing.T) *Template {
	t.Helper()
	tpl, err := NewTemplateBuilder[Checksummed]().
		Field("A", Binding{Kind: BindingPrimitive}).
		Field("B", Binding{Kind: BindingPrimitive}).
		Checksum("Sum", XOR8, "", 0, 1).
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return tpl
}

func TestChecksumRoundTripAndMismatch(t *testing.T) {
	engine := NewEngine()
	engine.Register(buildChecksummedTemplate(t))

	// The engine does not auto-fill checksums on encode (§4.7); the caller
	// is expected to have already derived Sum, typically via a
	// PostProcessedField.
	value := Checksummed{A: 0x01, B: 0x02, Sum: 0x01 ^ 0x02}
	encoded, err := Encode(engine, value)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if encoded[2] != 0x01^0x02 {
		t.Fatalf("encoded checksum byte = %#x, want %#x", encoded[2], 0x01^0x02)
	}

	got, err := Decode[Checksummed](engine, encoded)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got != value {
		t.Fatalf("Decode() = %+v, want %+v", got, value)
	}

	corrupted := append([]byte(nil), encoded...)
	corrupted[1] = 0xFF
	if _, err := Decode[Checksummed](engine, corrupted); err == nil {
		t.Fatal("Decode() with corrupted payload = nil error, want a checksum mismatch")
	}
}

func TestEncodeChecksumDoesNotAutoFill(t *testing.T) {
	engine := NewEngine()
	engine.Register(buildChecksummedTemplate(t))

	// Sum is left at its zero value; the engine must write that value
	// verbatim rather than silently computing the correct one.
	value := Checksummed{A: 0x01, B: 0x02}
	encoded, err := Encode(engine, value)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if encoded[2] != 0 {
		t.Fatalf("encoded checksum byte = %#x, want 0 (unfilled value written as-is)", encoded[2])
	}
}

// Derived exercises evaluated fields that never touch the wire.
type Derived struct {
	Low    uint8
	High   uint8
	Packed uint16
}

func TestEvaluatedFieldNeverConsumesBytes(t *testing.T) {
	tpl, err := NewTemplateBuilder[Derived]().
		Field("Low", Binding{Kind: BindingPrimitive}).
		Field("High", Binding{Kind: BindingPrimitive}).
		Evaluated("Packed", "", `int(root.High) * 256 + int(root.Low)`).
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	engine := NewEngine()
	engine.Register(tpl)

	got, err := Decode[Derived](engine, []byte{0x10, 0x02})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got.Packed != 0x0210 {
		t.Fatalf("Packed = %#x, want 0x0210", got.Packed)
	}
}
