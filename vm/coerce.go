package vm

import (
	"math"
)

// ---------------------------------------------------------------------------
// Type predicates
// ---------------------------------------------------------------------------

// KindOf classifies v, consulting the heap for references.
func (vm *VM) KindOf(v Value) Kind {
	k := v.Classify()
	if k != KindHeapRef {
		return k
	}
	return vm.Heap.Deref(v).Kind()
}

// IsPrimitive reports whether v is undefined, null, a boolean, a number or
// a string.
func (vm *VM) IsPrimitive(v Value) bool {
	return vm.KindOf(v).IsPrimitive()
}

// IsObject reports whether v is object-family.
func (vm *VM) IsObject(v Value) bool {
	return !vm.IsPrimitive(v)
}

// IsCallable reports whether v is a function.
func (vm *VM) IsCallable(v Value) bool {
	return v.IsHeap() && vm.Heap.Deref(v).Kind() == KindFunction
}

// ---------------------------------------------------------------------------
// Conversions
// ---------------------------------------------------------------------------

// ToBoolean never fails: null, undefined, 0, NaN and "" are false,
// everything else true.
func (vm *VM) ToBoolean(v Value) bool {
	switch vm.KindOf(v) {
	case KindUndefined, KindNull:
		return false
	case KindBoolean:
		return v == True
	case KindNumber:
		f := v.Float64()
		return f != 0 && f == f
	case KindString:
		return vm.StringOf(v) != ""
	default:
		return true
	}
}

// ToPrimitive returns primitives unchanged and reduces objects through
// their default-value hook with a string hint.
func (vm *VM) ToPrimitive(v Value) (Value, error) {
	if vm.IsPrimitive(v) {
		return v, nil
	}
	return vm.DefaultValue(v, KindString)
}

// ToNumber converts v to a number value.
func (vm *VM) ToNumber(v Value) (Value, error) {
	switch vm.KindOf(v) {
	case KindUndefined:
		return Number(math.NaN()), nil
	case KindNull:
		return Number(0), nil
	case KindBoolean:
		if v == True {
			return Number(1), nil
		}
		return Number(0), nil
	case KindNumber:
		return v, nil
	case KindString:
		return Number(ParseNumber(vm.StringOf(v))), nil
	default:
		p, err := vm.ToPrimitive(v)
		if err != nil {
			return Undefined, err
		}
		return vm.ToNumber(p)
	}
}

// ToFloat64 is ToNumber returning a Go float.
func (vm *VM) ToFloat64(v Value) (float64, error) {
	n, err := vm.ToNumber(v)
	if err != nil {
		return 0, err
	}
	return n.Float64(), nil
}

// ToObject boxes primitives and returns objects unchanged. null and
// undefined raise TypeError.
func (vm *VM) ToObject(v Value) (Value, error) {
	switch vm.KindOf(v) {
	case KindNull:
		return Undefined, vm.TypeError("cannot convert null to object")
	case KindUndefined:
		return Undefined, vm.TypeError("cannot convert undefined to object")
	case KindBoolean:
		return vm.MakeBooleanObject(v == True), nil
	case KindNumber:
		return vm.MakeNumberObject(v.Float64()), nil
	case KindString:
		return vm.MakeStringObject(v), nil
	default:
		return v, nil
	}
}

// ToString converts v to a string value.
func (vm *VM) ToString(v Value) (Value, error) {
	switch vm.KindOf(v) {
	case KindUndefined:
		return vm.NewString("undefined"), nil
	case KindNull:
		return vm.NewString("null"), nil
	case KindBoolean:
		if v == True {
			return vm.NewString("true"), nil
		}
		return vm.NewString("false"), nil
	case KindNumber:
		return vm.NewString(FormatNumber(v.Float64())), nil
	case KindString:
		return v, nil
	default:
		p, err := vm.DefaultValue(v, KindString)
		if err != nil {
			return Undefined, err
		}
		return vm.ToString(p)
	}
}

// ToGoString is ToString returning a Go string.
func (vm *VM) ToGoString(v Value) (string, error) {
	s, err := vm.ToString(v)
	if err != nil {
		return "", err
	}
	return vm.StringOf(s), nil
}

// ToUint32 converts v to a number and wraps it modulo 2^32. NaN and the
// infinities become 0.
func (vm *VM) ToUint32(v Value) (uint32, error) {
	f, err := vm.ToFloat64(v)
	if err != nil {
		return 0, err
	}
	return float64ToUint32(f), nil
}

// ToInt32 is ToUint32 reinterpreted as a signed integer.
func (vm *VM) ToInt32(v Value) (int32, error) {
	u, err := vm.ToUint32(v)
	return int32(u), err
}

func float64ToUint32(f float64) uint32 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	m := math.Mod(math.Trunc(f), 1<<32)
	if m < 0 {
		m += 1 << 32
	}
	return uint32(m)
}

// TypeOf returns the typeof string for v.
func (vm *VM) TypeOf(v Value) string {
	switch vm.KindOf(v) {
	case KindFunction:
		return "function"
	case KindUndefined:
		return "undefined"
	case KindBoolean:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindNull, KindObject, KindArray, KindStringObject, KindNumberObject, KindBooleanObject:
		return "object"
	default:
		Panicf("unknown type")
		return ""
	}
}

// ---------------------------------------------------------------------------
// Equality
// ---------------------------------------------------------------------------

// StrictEquals compares without coercion. Numbers compare by value (NaN is
// unequal to itself), strings by content, everything else by identity.
func (vm *VM) StrictEquals(a, b Value) bool {
	ka, kb := vm.KindOf(a), vm.KindOf(b)
	if ka != kb {
		return false
	}
	switch ka {
	case KindUndefined, KindNull:
		return true
	case KindNumber:
		return a.Float64() == b.Float64()
	case KindString:
		return vm.StringOf(a) == vm.StringOf(b)
	default:
		return a == b
	}
}

// LooseEquals implements abstract equality. Each cross-type rewrite moves
// to a case that is already decided, so the recursion is bounded.
func (vm *VM) LooseEquals(a, b Value) (bool, error) {
	ka, kb := vm.KindOf(a), vm.KindOf(b)
	if ka == kb {
		return vm.StrictEquals(a, b), nil
	}
	switch {
	case ka == KindNull && kb == KindUndefined, ka == KindUndefined && kb == KindNull:
		return true, nil
	case ka == KindNumber && kb == KindString:
		nb, _ := vm.ToNumber(b)
		return vm.LooseEquals(a, nb)
	case ka == KindString && kb == KindNumber:
		na, _ := vm.ToNumber(a)
		return vm.LooseEquals(na, b)
	case ka == KindBoolean:
		na, _ := vm.ToNumber(a)
		return vm.LooseEquals(na, b)
	case kb == KindBoolean:
		nb, _ := vm.ToNumber(b)
		return vm.LooseEquals(a, nb)
	case (ka == KindString || ka == KindNumber) && !kb.IsPrimitive():
		pb, err := vm.ToPrimitive(b)
		if err != nil {
			return false, err
		}
		return vm.LooseEquals(a, pb)
	case !ka.IsPrimitive() && (kb == KindString || kb == KindNumber):
		pa, err := vm.ToPrimitive(a)
		if err != nil {
			return false, err
		}
		return vm.LooseEquals(pa, b)
	}
	return false, nil
}
