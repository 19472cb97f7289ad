package vm

import (
	"testing"
)

func TestScanArgs(t *testing.T) {
	vm := newTestVM(t)
	var n, s, b, coerced Value
	var u uint32
	args := []Value{Number(1.5), vm.NewString("x"), True, vm.NewString("12"), Number(-1)}

	if err := vm.ScanArgs(args, "NSBnI", &n, &s, &b, &coerced, &u); err != nil {
		t.Fatal(err)
	}
	if n != Number(1.5) || vm.StringOf(s) != "x" || b != True || coerced != Number(12) {
		t.Errorf("ScanArgs outputs = %v %v %v %v", n, s, b, coerced)
	}
	if u != 1<<32-1 {
		t.Errorf("I output = %d", u)
	}
}

func TestScanArgsMissingAreUndefined(t *testing.T) {
	vm := newTestVM(t)
	var s, b Value
	if err := vm.ScanArgs(nil, "sb", &s, &b); err != nil {
		t.Fatal(err)
	}
	if vm.StringOf(s) != "undefined" || b != False {
		t.Errorf("ScanArgs outputs = %q %v", vm.StringOf(s), b)
	}
}

func TestScanArgsTypeErrors(t *testing.T) {
	vm := newTestVM(t)
	tests := []struct {
		format string
		args   []Value
		want   string
	}{
		{"N", []Value{vm.NewString("1")}, "TypeError: Expected number in argument #1"},
		{"nS", []Value{Number(1), Number(2)}, "TypeError: Expected string in argument #2"},
		{"B", nil, "TypeError: Expected boolean in argument #1"},
	}
	for _, tt := range tests {
		outs := make([]any, len(tt.format))
		for i := range outs {
			outs[i] = new(Value)
		}
		err := vm.ScanArgs(tt.args, tt.format, outs...)
		if err == nil {
			t.Errorf("ScanArgs(%q) succeeded", tt.format)
			continue
		}
		if got := err.Error(); got != tt.want {
			t.Errorf("ScanArgs(%q) = %q, want %q", tt.format, got, tt.want)
		}
	}
}

func TestScanArgsBadFormatIsFatal(t *testing.T) {
	vm := newTestVM(t)
	var v Value
	for _, format := range []string{"X", "NN"} {
		err := func() (err error) {
			defer RecoverFatal(&err)
			return vm.ScanArgs(nil, format, &v)
		}()
		if _, ok := err.(*Fatal); !ok {
			t.Errorf("ScanArgs(%q) error = %v, want *Fatal", format, err)
		}
	}
}

// convertsTo returns an object whose toString yields a fresh string,
// collecting first when collect is set.
func convertsTo(t *testing.T, vm *VM, s string, collect bool) Value {
	t.Helper()
	obj := vm.MakeObject()
	mustPut(t, vm, obj, "toString", vm.NewNativeFunction("toString", nil, func(vm *VM, _ any, _ Value, _ []Value) (Value, error) {
		if collect {
			vm.Collect()
		}
		return vm.NewString(s), nil
	}, nil))
	return obj
}

func TestScanArgsRootsEarlierOutputs(t *testing.T) {
	vm := newTestVM(t)
	args := []Value{convertsTo(t, vm, "first", false), convertsTo(t, vm, "second", true)}
	roots := &rootList{}
	vm.Heap.RegisterRoot(roots)
	*roots = append(*roots, args...)

	var a, b Value
	if err := vm.ScanArgs(args, "ss", &a, &b); err != nil {
		t.Fatal(err)
	}
	if vm.StringOf(a) != "first" || vm.StringOf(b) != "second" {
		t.Errorf("ScanArgs outputs = %q %q", vm.StringOf(a), vm.StringOf(b))
	}
	if len(vm.temps) != 0 {
		t.Errorf("ScanArgs left %d temporary roots", len(vm.temps))
	}
}
