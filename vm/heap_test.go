package vm

import (
	"testing"
)

// rootList is a test root set.
type rootList []Value

func (r *rootList) TraceRoots(t *Tracer) { t.MarkAll(*r) }

func TestCollectFreesUnreachable(t *testing.T) {
	vm := newTestVM(t)
	vm.Collect()
	base := vm.Heap.Live()
	usage := vm.Heap.Usage()

	for i := 0; i < 10; i++ {
		vm.MakeObject()
		vm.NewString("garbage")
	}
	if vm.Heap.Live() != base+20 {
		t.Fatalf("Live = %d, want %d", vm.Heap.Live(), base+20)
	}
	if freed := vm.Collect(); freed != 20 {
		t.Errorf("Collect freed %d blocks, want 20", freed)
	}
	if vm.Heap.Live() != base || vm.Heap.Usage() != usage {
		t.Errorf("after collection: %d blocks, %d bytes; want %d, %d",
			vm.Heap.Live(), vm.Heap.Usage(), base, usage)
	}
}

func TestCollectKeepsReachable(t *testing.T) {
	vm := newTestVM(t)
	roots := &rootList{}
	vm.Heap.RegisterRoot(roots)

	obj := vm.MakeObject()
	child := vm.MakeObject()
	str := vm.NewString("kept")
	mustPut(t, vm, obj, "child", child)
	mustPut(t, vm, child, "s", str)
	arr := vm.NewArray([]Value{vm.NewString("in array")})
	*roots = append(*roots, obj, arr)

	if err := vm.GlobalScope.SetGlobal("g", vm.NewString("global")); err != nil {
		t.Fatal(err)
	}
	vm.Collect()

	if got := vm.StringOf(mustGet(t, vm, mustGet(t, vm, obj, "child"), "s")); got != "kept" {
		t.Errorf("nested string = %q", got)
	}
	if got := vm.StringOf(vm.ArrayOf(arr).At(0)); got != "in array" {
		t.Errorf("array element = %q", got)
	}
	g, err := vm.GlobalScope.GetGlobal("g")
	if err != nil || vm.StringOf(g) != "global" {
		t.Errorf("global = %v, %v", g, err)
	}

	vm.Heap.UnregisterRoot(roots)
	before := vm.Heap.Live()
	vm.Collect()
	if vm.Heap.Live() >= before {
		t.Error("unregistered roots still kept objects alive")
	}
}

func TestCollectKeepsCapturedScopes(t *testing.T) {
	vm := newTestVM(t)
	activation := vm.GlobalScope.Close(Undefined, 1)
	activation.SetLocal(0, 0, vm.NewString("captured"))
	fn := vm.NewFunction(testImage(0), 0, activation)
	if err := vm.GlobalScope.SetGlobal("f", fn); err != nil {
		t.Fatal(err)
	}
	vm.Collect()
	if got := vm.StringOf(activation.GetLocal(0, 0)); got != "captured" {
		t.Errorf("captured local = %q", got)
	}
}

func TestFreedHandlesAreReused(t *testing.T) {
	vm := newTestVM(t)
	vm.Collect()
	v := vm.MakeObject()
	vm.Collect()
	w := vm.MakeObject()
	if v.Handle() != w.Handle() {
		t.Errorf("handle %d not reused, got %d", v.Handle(), w.Handle())
	}
}

func TestDanglingReferenceIsFatal(t *testing.T) {
	vm := newTestVM(t)
	vm.Collect()
	v := vm.MakeObject()
	vm.Collect()
	err := func() (err error) {
		defer RecoverFatal(&err)
		vm.Heap.Deref(v)
		return nil
	}()
	if err == nil {
		t.Fatal("Deref of a freed handle succeeded")
	}
}

func TestHeapLimit(t *testing.T) {
	vm := New(Options{HeapLimit: 1 << 20})
	err := func() (err error) {
		defer RecoverFatal(&err)
		for {
			vm.NewArray(make([]Value, 1024))
		}
	}()
	if err == nil {
		t.Fatal("allocation past the limit did not fail")
	}
	if vm.Heap.Usage() > 1<<20 {
		t.Errorf("usage %d exceeds the limit", vm.Heap.Usage())
	}
}

func TestTemporaryRoots(t *testing.T) {
	vm := newTestVM(t)
	vm.Collect()
	base := vm.Heap.Live()

	mark := vm.PushRoot(vm.NewString("held"))
	vm.PushRoot(vm.MakeObject())
	if freed := vm.Collect(); freed != 0 {
		t.Errorf("Collect freed %d rooted blocks", freed)
	}
	vm.PopRoots(mark)
	if freed := vm.Collect(); freed != 2 {
		t.Errorf("Collect freed %d blocks after PopRoots, want 2", freed)
	}
	if vm.Heap.Live() != base {
		t.Errorf("Live = %d, want %d", vm.Heap.Live(), base)
	}
}

func TestArrayAccountingSurvivesNewProperty(t *testing.T) {
	vm := newTestVM(t)
	items := make([]Value, 10)
	for i := range items {
		items[i] = Number(float64(i))
	}
	arr := vm.NewArray(items)
	usage := vm.Heap.Usage()

	mustPut(t, vm, arr, "x", True)
	want := uint64(sizeObject + sizeProperty + 10*sizeValue)
	if got := vm.Heap.cell(arr).size; got != want {
		t.Errorf("array size after Put = %d, want %d", got, want)
	}
	if vm.Heap.Usage() != usage+sizeProperty {
		t.Errorf("Usage = %d, want %d", vm.Heap.Usage(), usage+sizeProperty)
	}
}
