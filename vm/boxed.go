package vm

import (
	"strconv"
)

// ---------------------------------------------------------------------------
// Boxed primitives
// ---------------------------------------------------------------------------

// StringObject wraps a string primitive. Its length and characters are
// read-only own properties.
type StringObject struct {
	ObjectBase
	value Value
}

func (o *StringObject) Kind() Kind { return KindStringObject }

func (o *StringObject) trace(t *Tracer) {
	o.traceBase(t)
	t.Mark(o.value)
}

// PrimitiveValue returns the wrapped string.
func (o *StringObject) PrimitiveValue() Value { return o.value }

func (o *StringObject) getOwn(vm *VM, key string) (Property, bool) {
	s := vm.StringOf(o.value)
	if key == "length" {
		return Property{Value: Number(float64(len(s))), Getter: Undefined, Setter: Undefined}, true
	}
	if i, ok := arrayIndex(key); ok && i < len(s) {
		return Property{Value: vm.NewString(s[i : i+1]), Getter: Undefined, Setter: Undefined, Enumerable: true}, true
	}
	return o.ObjectBase.getOwn(vm, key)
}

func (o *StringObject) ownKeys(vm *VM) []string {
	n := len(vm.StringOf(o.value))
	keys := make([]string, 0, n+o.props.Len())
	for i := 0; i < n; i++ {
		keys = append(keys, strconv.Itoa(i))
	}
	return append(keys, o.ObjectBase.ownKeys(vm)...)
}

func (o *StringObject) deleteOwn(vm *VM, key string) (bool, bool) {
	if key == "length" {
		return true, false
	}
	if i, ok := arrayIndex(key); ok && i < len(vm.StringOf(o.value)) {
		return true, false
	}
	return false, false
}

// NumberObject wraps a number primitive.
type NumberObject struct {
	ObjectBase
	value float64
}

func (o *NumberObject) Kind() Kind { return KindNumberObject }

func (o *NumberObject) trace(t *Tracer) { o.traceBase(t) }

// PrimitiveValue returns the wrapped number.
func (o *NumberObject) PrimitiveValue() Value { return Number(o.value) }

// BooleanObject wraps a boolean primitive.
type BooleanObject struct {
	ObjectBase
	value bool
}

func (o *BooleanObject) Kind() Kind { return KindBooleanObject }

func (o *BooleanObject) trace(t *Tracer) { o.traceBase(t) }

// PrimitiveValue returns the wrapped boolean.
func (o *BooleanObject) PrimitiveValue() Value { return Bool(o.value) }

// MakeStringObject boxes a string primitive.
func (vm *VM) MakeStringObject(s Value) Value {
	return vm.allocObject(&StringObject{value: s}, vm.Lib.StringPrototype, vm.Lib.String)
}

// MakeNumberObject boxes a number.
func (vm *VM) MakeNumberObject(f float64) Value {
	return vm.allocObject(&NumberObject{value: f}, vm.Lib.NumberPrototype, vm.Lib.Number)
}

// MakeBooleanObject boxes a boolean.
func (vm *VM) MakeBooleanObject(b bool) Value {
	return vm.allocObject(&BooleanObject{value: b}, vm.Lib.BooleanPrototype, vm.Lib.Boolean)
}
