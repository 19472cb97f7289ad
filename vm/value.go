package vm

import (
	"math"
)

// Value is a NaN-boxed script value.
//
// Every value is a 64-bit word. Bit patterns at or below the quiet-NaN
// threshold are IEEE 754 doubles; everything above it is a tagged
// reference whose 48-bit payload is either a sentinel (undefined, null,
// false, true) or a handle into the VM heap.
//
// Encoding scheme:
//   - Number:    bits <= 0xFFF8_0000_0000_0000
//   - Reference: 0xFFFA << 48 | payload
//   - Sentinels: reference payloads 1..4
//   - Heap:      reference payloads >= FirstHandle
type Value uint64

// NaN-boxing constants
const (
	// Largest bit pattern that is still a number: negative quiet NaN with an
	// empty payload.
	numberMax uint64 = 0xFFF8000000000000

	// Reference tag, occupying the top 16 bits.
	refTag  uint64 = 0xFFFA000000000000
	tagMask uint64 = 0xFFFF000000000000

	// Payload mask: 48 bits for handles and sentinels.
	payloadMask uint64 = 0x0000FFFFFFFFFFFF
)

// Sentinel payloads
const (
	payloadUndefined uint64 = 1
	payloadNull      uint64 = 2
	payloadFalse     uint64 = 3
	payloadTrue      uint64 = 4

	// FirstHandle is the smallest payload that names a heap object.
	FirstHandle uint64 = 5

	// MaxHandle is the largest payload the reference tag can carry.
	MaxHandle uint64 = payloadMask
)

// Pre-defined sentinel values
const (
	Undefined Value = Value(refTag | payloadUndefined)
	Null      Value = Value(refTag | payloadNull)
	False     Value = Value(refTag | payloadFalse)
	True      Value = Value(refTag | payloadTrue)
)

// Kind identifies the type of a value.
type Kind uint8

const (
	KindNumber Kind = iota
	KindUndefined
	KindNull
	KindBoolean
	KindString
	KindObject
	KindArray
	KindFunction
	KindStringObject
	KindNumberObject
	KindBooleanObject

	// KindHeapRef is returned by Value.Classify for references whose kind
	// is known only to the heap object they name.
	KindHeapRef
)

var kindNames = [...]string{
	KindNumber:        "number",
	KindUndefined:     "undefined",
	KindNull:          "null",
	KindBoolean:       "boolean",
	KindString:        "string",
	KindObject:        "object",
	KindArray:         "array",
	KindFunction:      "function",
	KindStringObject:  "string object",
	KindNumberObject:  "number object",
	KindBooleanObject: "boolean object",
	KindHeapRef:       "heap reference",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsPrimitive reports whether values of kind k are primitives.
func (k Kind) IsPrimitive() bool {
	return k <= KindString
}

// ---------------------------------------------------------------------------
// Classification
// ---------------------------------------------------------------------------

// Classify returns the kind of v when it can be decided from the bits alone,
// or KindHeapRef when the heap must be consulted. Sentinels are recognised
// before any handle is interpreted.
func (v Value) Classify() Kind {
	bits := uint64(v)
	if bits <= numberMax {
		return KindNumber
	}
	if bits&tagMask != refTag {
		Panicf("malformed value 0x%016x", bits)
	}
	switch bits & payloadMask {
	case payloadUndefined:
		return KindUndefined
	case payloadNull:
		return KindNull
	case payloadFalse, payloadTrue:
		return KindBoolean
	case 0:
		Panicf("malformed value 0x%016x", bits)
	}
	return KindHeapRef
}

// IsNumber returns true if v represents a double.
func (v Value) IsNumber() bool {
	return uint64(v) <= numberMax
}

// IsUndefined returns true if v is undefined.
func (v Value) IsUndefined() bool {
	return v == Undefined
}

// IsNull returns true if v is null.
func (v Value) IsNull() bool {
	return v == Null
}

// IsNullish returns true if v is null or undefined.
func (v Value) IsNullish() bool {
	return v == Undefined || v == Null
}

// IsBoolean returns true if v is true or false.
func (v Value) IsBoolean() bool {
	return v == True || v == False
}

// IsHeap returns true if v names a heap object.
func (v Value) IsHeap() bool {
	bits := uint64(v)
	return bits&tagMask == refTag && bits&payloadMask >= FirstHandle
}

// ---------------------------------------------------------------------------
// Numbers
// ---------------------------------------------------------------------------

// Number packs a float64 into a Value.
//
// Negative NaNs whose payload would collide with the reference space are
// canonicalised to 0xFFF8_0000_0000_0000. Every other double, including
// positive NaN payloads, round-trips bit-exactly.
func Number(f float64) Value {
	bits := math.Float64bits(f)
	if bits > numberMax {
		bits = numberMax
	}
	return Value(bits)
}

// Float64 returns v as a float64.
// Panics if v is not a number.
func (v Value) Float64() float64 {
	if !v.IsNumber() {
		Panicf("Value.Float64: not a number")
	}
	return math.Float64frombits(uint64(v))
}

// ---------------------------------------------------------------------------
// Booleans
// ---------------------------------------------------------------------------

// Bool creates a Value from a bool.
func Bool(b bool) Value {
	if b {
		return True
	}
	return False
}

// Bool returns v as a bool.
// Panics if v is not a boolean.
func (v Value) Bool() bool {
	switch v {
	case True:
		return true
	case False:
		return false
	default:
		Panicf("Value.Bool: not a boolean")
		return false
	}
}

// ---------------------------------------------------------------------------
// Heap handles
// ---------------------------------------------------------------------------

// fromHandle packs a heap handle into a reference Value.
func fromHandle(h uint64) Value {
	if h < FirstHandle || h > MaxHandle {
		Panicf("heap handle %d outside the reference range", h)
	}
	return Value(refTag | h)
}

// Handle returns the heap handle carried by v.
// Panics if v does not name a heap object.
func (v Value) Handle() uint64 {
	if !v.IsHeap() {
		Panicf("Value.Handle: not a heap reference")
	}
	return uint64(v) & payloadMask
}
