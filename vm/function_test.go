package vm

import (
	"errors"
	"testing"
)

// execFunc adapts a Go function to the Executor interface.
type execFunc func(vm *VM, img *Image, section int, scope *Scope, this Value, args []Value) (Value, error)

func (f execFunc) Execute(vm *VM, img *Image, section int, scope *Scope, this Value, args []Value) (Value, error) {
	return f(vm, img, section, scope, this, args)
}

func testImage(flags ...SectionFlags) *Image {
	img := &Image{Name: "test"}
	for _, f := range flags {
		img.Sections = append(img.Sections, Section{Flags: f, LocalCount: 2})
	}
	return img
}

func TestCallNativeFunction(t *testing.T) {
	vm := newTestVM(t)
	var gotThis Value
	fn := vm.NewNativeFunction("add", nil, func(vm *VM, _ any, this Value, args []Value) (Value, error) {
		gotThis = this
		return Number(args[0].Float64() + args[1].Float64()), nil
	}, nil)

	recv := vm.MakeObject()
	v, err := vm.Call(fn, recv, []Value{Number(2), Number(3)})
	if err != nil {
		t.Fatal(err)
	}
	if v != Number(5) {
		t.Errorf("Call = %v, want 5", v)
	}
	if gotThis != recv {
		t.Error("native function saw the wrong receiver")
	}
	if vm.Depth() != 0 {
		t.Errorf("Depth after call = %d", vm.Depth())
	}
}

func TestNativeHookMissing(t *testing.T) {
	vm := newTestVM(t)
	ctorOnly := vm.NewNativeFunction("C", nil, nil, func(vm *VM, _ any, _ Value, _ []Value) (Value, error) {
		return Undefined, nil
	})
	callOnly := vm.NewNativeFunction("f", nil, func(vm *VM, _ any, _ Value, _ []Value) (Value, error) {
		return Undefined, nil
	}, nil)

	if _, err := vm.Call(ctorOnly, Undefined, nil); err == nil {
		t.Error("calling a construct-only function succeeded")
	} else if err.Error() != "TypeError: Can't call constructor in non-constructor context" {
		t.Errorf("call error = %q", err)
	}
	if _, err := vm.Construct(callOnly, nil); err == nil {
		t.Error("constructing a call-only function succeeded")
	} else if err.Error() != "TypeError: Can't call function in constructor context" {
		t.Errorf("construct error = %q", err)
	}
}

func TestConstructResult(t *testing.T) {
	vm := newTestVM(t)
	override := vm.MakeObject()
	tests := []struct {
		name     string
		result   Value
		override bool
	}{
		{"undefined", Undefined, false},
		{"primitive", Number(1), false},
		{"object", override, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fresh Value
			ctor := vm.NewNativeFunction("C", nil, nil, func(vm *VM, _ any, this Value, _ []Value) (Value, error) {
				fresh = this
				return tt.result, nil
			})
			got, err := vm.Construct(ctor, nil)
			if err != nil {
				t.Fatal(err)
			}
			if tt.override && got != override {
				t.Error("object result did not replace the receiver")
			}
			if !tt.override && got != fresh {
				t.Error("primitive result replaced the receiver")
			}
			proto := mustGet(t, vm, ctor, "prototype")
			if !tt.override && vm.ObjectOf(got).Base().Prototype() != proto {
				t.Error("receiver does not inherit from ctor.prototype")
			}
		})
	}
}

func TestConstructWithPrimitivePrototype(t *testing.T) {
	vm := newTestVM(t)
	ctor := vm.NewNativeFunction("C", nil, nil, func(vm *VM, _ any, _ Value, _ []Value) (Value, error) {
		return Undefined, nil
	})
	mustPut(t, vm, ctor, "prototype", Number(3))
	got, err := vm.Construct(ctor, nil)
	if err != nil {
		t.Fatal(err)
	}
	if vm.ObjectOf(got).Base().Prototype() != vm.Lib.ObjectPrototype {
		t.Error("receiver should fall back to Object.prototype")
	}
}

func TestInterpretedActivations(t *testing.T) {
	vm := newTestVM(t)
	var scopes []*Scope
	vm.SetExecutor(execFunc(func(vm *VM, img *Image, section int, scope *Scope, this Value, args []Value) (Value, error) {
		scopes = append(scopes, scope)
		scope.SetLocal(0, 0, args[0])
		return scope.GetLocal(0, 0), nil
	}))

	img := testImage(0, FlagHasInnerFuncs)
	leaf := vm.NewFunction(img, 0, vm.GlobalScope)
	outer := vm.NewFunction(img, 1, vm.GlobalScope)

	for _, fn := range []Value{leaf, outer} {
		v, err := vm.Call(fn, Undefined, []Value{Number(4)})
		if err != nil {
			t.Fatal(err)
		}
		if v != Number(4) {
			t.Errorf("Call = %v, want 4", v)
		}
	}
	if len(scopes) != 2 {
		t.Fatalf("executor ran %d times", len(scopes))
	}

	// The placement record is recycled once the call returns; the heap
	// activation keeps its slots.
	if scopes[0].Len() != 0 {
		t.Error("placement activation was not released")
	}
	if scopes[1].Parent() != vm.GlobalScope || scopes[1].GetLocal(0, 0) != Number(4) {
		t.Error("heap activation lost its state")
	}
	if vm.sp != 0 {
		t.Errorf("placement stack pointer = %d after return", vm.sp)
	}
}

func TestPlacementReleasedOnError(t *testing.T) {
	vm := newTestVM(t)
	boom := errors.New("boom")
	vm.SetExecutor(execFunc(func(vm *VM, img *Image, section int, scope *Scope, this Value, args []Value) (Value, error) {
		return Undefined, boom
	}))
	fn := vm.NewFunction(testImage(0), 0, vm.GlobalScope)
	if _, err := vm.Call(fn, Undefined, nil); !errors.Is(err, boom) {
		t.Fatalf("Call error = %v", err)
	}
	if vm.sp != 0 || vm.Depth() != 0 {
		t.Errorf("sp = %d, depth = %d after failed call", vm.sp, vm.Depth())
	}
}

func TestCallDepthLimit(t *testing.T) {
	vm := New(Options{MaxCallDepth: 8})
	var fn Value
	fn = vm.NewNativeFunction("rec", nil, func(vm *VM, _ any, _ Value, _ []Value) (Value, error) {
		return vm.Call(fn, Undefined, nil)
	}, nil)
	_, err := vm.Call(fn, Undefined, nil)
	ex, ok := AsException(err)
	if !ok {
		t.Fatalf("error = %v, want exception", err)
	}
	if got := ex.Error(); got != "RangeError: maximum call stack size exceeded" {
		t.Errorf("exception = %q", got)
	}
	if vm.Depth() != 0 {
		t.Errorf("Depth = %d after unwinding", vm.Depth())
	}
}

func TestCallNonFunctionIsFatal(t *testing.T) {
	vm := newTestVM(t)
	err := func() (err error) {
		defer RecoverFatal(&err)
		vm.Call(vm.MakeObject(), Undefined, nil)
		return nil
	}()
	var f *Fatal
	if !errors.As(err, &f) {
		t.Fatalf("err = %v, want *Fatal", err)
	}
}

func TestFunctionPrototypeObject(t *testing.T) {
	vm := newTestVM(t)
	fn := vm.NewFunction(testImage(0), 0, vm.GlobalScope)
	proto := mustGet(t, vm, fn, "prototype")
	if !vm.IsObject(proto) {
		t.Fatal("function has no prototype object")
	}
	if got := mustGet(t, vm, proto, "constructor"); got != fn {
		t.Error("prototype.constructor does not point back at the function")
	}
	if len(vm.Keys(fn)) != 0 {
		t.Errorf("function has enumerable keys %v", vm.Keys(fn))
	}
}
