package vm

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func callMethod(t *testing.T, vm *VM, this Value, name string, args ...Value) Value {
	t.Helper()
	obj, err := vm.ToObject(this)
	if err != nil {
		t.Fatal(err)
	}
	fn := mustGet(t, vm, obj, name)
	if !vm.IsCallable(fn) {
		t.Fatalf("%s is not callable", name)
	}
	v, err := vm.Call(fn, this, args)
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	return v
}

func goString(t *testing.T, vm *VM, v Value) string {
	t.Helper()
	s, err := vm.ToGoString(v)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestLibraryWiring(t *testing.T) {
	vm := newTestVM(t)
	l := &vm.Lib
	pairs := []struct {
		name        string
		ctor, proto Value
	}{
		{"Object", l.Object, l.ObjectPrototype},
		{"Function", l.Function, l.FunctionPrototype},
		{"Array", l.Array, l.ArrayPrototype},
		{"String", l.String, l.StringPrototype},
		{"Number", l.Number, l.NumberPrototype},
		{"Boolean", l.Boolean, l.BooleanPrototype},
		{"Error", l.Error, l.ErrorPrototype},
		{"TypeError", l.TypeError, l.TypeErrorPrototype},
		{"RangeError", l.RangeError, l.RangeErrorPrototype},
		{"ReferenceError", l.ReferenceError, l.ReferenceErrorPrototype},
	}
	for _, p := range pairs {
		if got := mustGet(t, vm, p.ctor, "prototype"); got != p.proto {
			t.Errorf("%s.prototype is not the library prototype", p.name)
		}
		if got := mustGet(t, vm, p.proto, "constructor"); got != p.ctor {
			t.Errorf("%s.prototype.constructor is wrong", p.name)
		}
		if got, err := vm.GlobalScope.GetGlobal(p.name); err != nil || got != p.ctor {
			t.Errorf("global %s = %v, %v", p.name, got, err)
		}
	}
	if vm.ObjectOf(l.ObjectPrototype).Base().Prototype() != Null {
		t.Error("Object.prototype must end the chain")
	}
	if vm.ObjectOf(l.TypeErrorPrototype).Base().Prototype() != l.ErrorPrototype {
		t.Error("TypeError.prototype does not inherit from Error.prototype")
	}
	if len(vm.Keys(vm.Global())) != 0 {
		t.Errorf("global object has enumerable keys %v", vm.Keys(vm.Global()))
	}
}

func TestObjectMethods(t *testing.T) {
	vm := newTestVM(t)
	obj := vm.MakeObject()
	mustPut(t, vm, obj, "a", Number(1))
	mustPut(t, vm, obj, "b", Number(2))

	if got := callMethod(t, vm, obj, "hasOwnProperty", vm.NewString("a")); got != True {
		t.Error("hasOwnProperty(a) = false")
	}
	if got := callMethod(t, vm, obj, "hasOwnProperty", vm.NewString("toString")); got != False {
		t.Error("hasOwnProperty(toString) = true")
	}
	keys := callMethod(t, vm, vm.Lib.Object, "keys", obj)
	if diff := cmp.Diff("a,b", goString(t, vm, keys)); diff != "" {
		t.Errorf("Object.keys mismatch (-want +got):\n%s", diff)
	}
	if got := goString(t, vm, callMethod(t, vm, vm.NewArray(nil), "valueOf")); got != "" {
		t.Errorf("[].valueOf() = %q", got)
	}
}

func TestObjectToStringTags(t *testing.T) {
	vm := newTestVM(t)
	toString := mustGet(t, vm, vm.Lib.ObjectPrototype, "toString")
	tests := []struct {
		v    Value
		want string
	}{
		{Undefined, "[object Undefined]"},
		{Null, "[object Null]"},
		{vm.NewArray(nil), "[object Array]"},
		{vm.Lib.Object, "[object Function]"},
		{vm.NewString("s"), "[object String]"},
		{Number(1), "[object Number]"},
		{True, "[object Boolean]"},
		{vm.MakeObject(), "[object Object]"},
	}
	for _, tt := range tests {
		v, err := vm.Call(toString, tt.v, nil)
		if err != nil {
			t.Fatal(err)
		}
		if got := vm.StringOf(v); got != tt.want {
			t.Errorf("toString = %q, want %q", got, tt.want)
		}
	}
}

func TestArrayMethods(t *testing.T) {
	vm := newTestVM(t)
	arr, err := vm.Construct(vm.Lib.Array, []Value{Number(1), Number(2)})
	if err != nil {
		t.Fatal(err)
	}
	if got := callMethod(t, vm, arr, "push", Number(3), Undefined); got != Number(4) {
		t.Errorf("push = %v, want 4", got)
	}
	if got := goString(t, vm, callMethod(t, vm, arr, "join", vm.NewString("-"))); got != "1-2-3-" {
		t.Errorf("join = %q", got)
	}
	if got := callMethod(t, vm, arr, "pop"); got != Undefined {
		t.Errorf("pop = %v, want undefined", got)
	}
	if got := goString(t, vm, arr); got != "1,2,3" {
		t.Errorf("toString = %q", got)
	}

	sized, err := vm.Construct(vm.Lib.Array, []Value{Number(3)})
	if err != nil {
		t.Fatal(err)
	}
	if vm.ArrayOf(sized).Len() != 3 {
		t.Errorf("new Array(3) length = %d", vm.ArrayOf(sized).Len())
	}
	if _, err := vm.Construct(vm.Lib.Array, []Value{Number(-1)}); err == nil {
		t.Error("new Array(-1) succeeded")
	}
}

func TestPrimitiveWrappers(t *testing.T) {
	vm := newTestVM(t)

	s, err := vm.Call(vm.Lib.String, Undefined, []Value{Number(12)})
	if err != nil || !vm.IsString(s) || vm.StringOf(s) != "12" {
		t.Errorf("String(12) = %v, %v", s, err)
	}
	so, err := vm.Construct(vm.Lib.String, []Value{vm.NewString("ab")})
	if err != nil || vm.KindOf(so) != KindStringObject {
		t.Fatalf("new String(ab) = %v, %v", so, err)
	}
	if got := goString(t, vm, callMethod(t, vm, so, "charAt", Number(1))); got != "b" {
		t.Errorf("charAt(1) = %q", got)
	}
	if got := goString(t, vm, callMethod(t, vm, vm.NewString("ab"), "charAt", Number(5))); got != "" {
		t.Errorf("charAt(5) = %q", got)
	}

	n, err := vm.Call(vm.Lib.Number, Undefined, []Value{vm.NewString("0x10")})
	if err != nil || n != Number(16) {
		t.Errorf("Number(0x10) = %v, %v", n, err)
	}
	if got := goString(t, vm, callMethod(t, vm, Number(2.5), "toString")); got != "2.5" {
		t.Errorf("(2.5).toString() = %q", got)
	}
	no, err := vm.Construct(vm.Lib.Number, []Value{Number(4)})
	if err != nil {
		t.Fatal(err)
	}
	if got := callMethod(t, vm, no, "valueOf"); got != Number(4) {
		t.Errorf("new Number(4).valueOf() = %v", got)
	}

	b, err := vm.Call(vm.Lib.Boolean, Undefined, []Value{vm.NewString("")})
	if err != nil || b != False {
		t.Errorf("Boolean('') = %v, %v", b, err)
	}
	bo, err := vm.Construct(vm.Lib.Boolean, []Value{Number(1)})
	if err != nil {
		t.Fatal(err)
	}
	if got := goString(t, vm, bo); got != "true" {
		t.Errorf("new Boolean(1) = %q", got)
	}

	numberValueOf := mustGet(t, vm, vm.Lib.NumberPrototype, "valueOf")
	if _, err := vm.Call(numberValueOf, vm.NewString("x"), nil); err == nil {
		t.Error("Number.prototype.valueOf accepted a string receiver")
	}
}

func TestErrorConstructors(t *testing.T) {
	vm := newTestVM(t)

	e, err := vm.Construct(vm.Lib.RangeError, []Value{vm.NewString("too big")})
	if err != nil {
		t.Fatal(err)
	}
	if got := goString(t, vm, e); got != "RangeError: too big" {
		t.Errorf("new RangeError = %q", got)
	}

	called, err := vm.Call(vm.Lib.TypeError, Undefined, []Value{vm.NewString("nope")})
	if err != nil {
		t.Fatal(err)
	}
	if vm.ObjectOf(called).Base().Class() != vm.Lib.TypeError {
		t.Error("TypeError() produced an instance of the wrong class")
	}
	if got := goString(t, vm, called); got != "TypeError: nope" {
		t.Errorf("TypeError() = %q", got)
	}

	bare, err := vm.Construct(vm.Lib.Error, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := goString(t, vm, bare); got != "Error" {
		t.Errorf("new Error() = %q", got)
	}
	if len(vm.Keys(e)) != 0 {
		t.Errorf("error instance has enumerable keys %v", vm.Keys(e))
	}
}

func TestFunctionMethods(t *testing.T) {
	vm := newTestVM(t)
	fn := vm.NewNativeFunction("id", nil, func(vm *VM, _ any, this Value, args []Value) (Value, error) {
		return this, nil
	}, nil)
	recv := vm.MakeObject()
	if got := callMethod(t, vm, fn, "call", recv, Number(1)); got != recv {
		t.Error("call did not forward the receiver")
	}
	if got := goString(t, vm, fn); got != "function id() { [native code] }" {
		t.Errorf("toString = %q", got)
	}
	if _, err := vm.Construct(vm.Lib.Function, nil); err == nil {
		t.Error("new Function() succeeded")
	}
}
