package vm

import (
	"math"
	"strconv"
)

// ArrayObject is an object whose index properties and length live in a
// dense slice.
type ArrayObject struct {
	ObjectBase
	items []Value
}

func (a *ArrayObject) Kind() Kind { return KindArray }

func (a *ArrayObject) accountedSize() uint64 {
	return a.ObjectBase.accountedSize() + uint64(len(a.items))*sizeValue
}

func (a *ArrayObject) trace(t *Tracer) {
	a.traceBase(t)
	t.MarkAll(a.items)
}

// Len returns the array length.
func (a *ArrayObject) Len() int { return len(a.items) }

// Items returns the backing slice. Callers must not retain it across writes.
func (a *ArrayObject) Items() []Value { return a.items }

// At returns the element at i, or Undefined when out of range.
func (a *ArrayObject) At(i int) Value {
	if i < 0 || i >= len(a.items) {
		return Undefined
	}
	return a.items[i]
}

// Append adds v at the end.
func (a *ArrayObject) Append(v Value) {
	a.items = append(a.items, v)
}

// SetLength truncates or extends with Undefined.
func (a *ArrayObject) SetLength(n int) {
	if n <= len(a.items) {
		clear(a.items[n:])
		a.items = a.items[:n]
		return
	}
	for len(a.items) < n {
		a.items = append(a.items, Undefined)
	}
}

// arrayIndex parses a canonical array index: a decimal uint32 below 2^32-1
// without leading zeros.
func arrayIndex(key string) (int, bool) {
	if key == "" || len(key) > 10 || (len(key) > 1 && key[0] == '0') {
		return 0, false
	}
	n, err := strconv.ParseUint(key, 10, 32)
	if err != nil || n == math.MaxUint32 {
		return 0, false
	}
	return int(n), true
}

func (a *ArrayObject) getOwn(vm *VM, key string) (Property, bool) {
	if key == "length" {
		return Property{Value: Number(float64(len(a.items))), Getter: Undefined, Setter: Undefined, Writable: true}, true
	}
	if i, ok := arrayIndex(key); ok {
		if i < len(a.items) {
			return DataProperty(a.items[i]), true
		}
		return Property{}, false
	}
	return a.ObjectBase.getOwn(vm, key)
}

// maxDenseGrowth bounds how far a single index write may extend the array.
const maxDenseGrowth = 1 << 24

func (a *ArrayObject) putOwn(vm *VM, key string, v Value) (bool, error) {
	if key == "length" {
		n, err := vm.ToNumber(v)
		if err != nil {
			return true, err
		}
		f := n.Float64()
		if f < 0 || f != math.Trunc(f) || f >= math.MaxUint32 {
			return true, vm.RangeError("invalid array length")
		}
		if int(f)-len(a.items) > maxDenseGrowth {
			return true, vm.RangeError("invalid array length")
		}
		a.SetLength(int(f))
		vm.account(a.self)
		return true, nil
	}
	i, ok := arrayIndex(key)
	if !ok {
		return false, nil
	}
	if i-len(a.items) > maxDenseGrowth {
		return true, vm.RangeError("array index %d too far out of range", i)
	}
	if i >= len(a.items) {
		a.SetLength(i + 1)
		vm.account(a.self)
	}
	a.items[i] = v
	return true, nil
}

func (a *ArrayObject) deleteOwn(_ *VM, key string) (bool, bool) {
	if key == "length" {
		return true, false
	}
	if i, ok := arrayIndex(key); ok {
		if i < len(a.items) {
			a.items[i] = Undefined
		}
		return true, true
	}
	return false, false
}

func (a *ArrayObject) ownKeys(vm *VM) []string {
	keys := make([]string, 0, len(a.items)+a.props.Len())
	for i := range a.items {
		keys = append(keys, strconv.Itoa(i))
	}
	return append(keys, a.ObjectBase.ownKeys(vm)...)
}

// NewArray creates an array holding a copy of items.
func (vm *VM) NewArray(items []Value) Value {
	a := &ArrayObject{items: append([]Value(nil), items...)}
	v := vm.allocObject(a, vm.Lib.ArrayPrototype, vm.Lib.Array)
	vm.account(v)
	return v
}

// ArrayOf returns the array named by v.
// Panics if v is not an array.
func (vm *VM) ArrayOf(v Value) *ArrayObject {
	a, ok := vm.object(v).(*ArrayObject)
	if !ok {
		Panicf("ArrayOf: not an array")
	}
	return a
}
