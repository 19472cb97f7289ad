package vm

import (
	"testing"
)

func TestLocalsAcrossHops(t *testing.T) {
	vm := newTestVM(t)
	outer := vm.GlobalScope.Close(Undefined, 2)
	inner := outer.Close(Undefined, 1)

	outer.SetLocal(1, 0, Number(10))
	if got := inner.GetLocal(1, 1); got != Number(10) {
		t.Errorf("GetLocal(1, 1) = %v, want 10", got)
	}
	inner.SetLocal(0, 1, Number(11))
	if got := outer.GetLocal(0, 0); got != Number(11) {
		t.Errorf("write through hops landed elsewhere: %v", got)
	}
	if got := inner.GetLocal(0, 0); got != Undefined {
		t.Errorf("fresh slot = %v, want undefined", got)
	}
}

func TestLocalsOutOfRange(t *testing.T) {
	vm := newTestVM(t)
	s := vm.GlobalScope.Close(Undefined, 1)

	if got := s.GetLocal(5, 0); got != Undefined {
		t.Errorf("read past the end = %v, want undefined", got)
	}
	if got := s.GetLocal(0, 10); got != Undefined {
		t.Errorf("read past the root = %v, want undefined", got)
	}

	s.SetLocal(5, 0, True)
	if s.Len() < 6 {
		t.Errorf("Len after growth = %d, want at least 6", s.Len())
	}
	if got := s.GetLocal(5, 0); got != True {
		t.Errorf("grown slot = %v, want true", got)
	}
	if got := s.GetLocal(3, 0); got != Undefined {
		t.Errorf("gap slot = %v, want undefined", got)
	}

	// Past the root nothing is written.
	s.SetLocal(0, 10, True)
}

func TestPlacementGrowthIsPrivate(t *testing.T) {
	vm := newTestVM(t)
	a := vm.closePlacement(vm.GlobalScope, Undefined, 1)
	b := vm.closePlacement(a, Undefined, 1)

	a.SetLocal(3, 0, Number(1))
	b.SetLocal(0, 0, Number(2))
	if got := a.GetLocal(3, 0); got != Number(1) {
		t.Errorf("grown placement slot = %v", got)
	}
	if got := b.GetLocal(0, 0); got != Number(2) {
		t.Errorf("neighbour slot clobbered: %v", got)
	}

	vm.releasePlacement(b)
	vm.releasePlacement(a)
	if vm.sp != 0 {
		t.Errorf("sp = %d after release", vm.sp)
	}
	if len(vm.scopePool) != 2 {
		t.Errorf("pool holds %d records, want 2", len(vm.scopePool))
	}
}

func TestPlacementStackGrowth(t *testing.T) {
	vm := newTestVM(t)
	first := vm.closePlacement(vm.GlobalScope, Undefined, 4)
	first.SetLocal(0, 0, Number(1))
	n := len(vm.stack)
	big := vm.closePlacement(first, Undefined, uint32(n))

	if got := first.GetLocal(0, 0); got != Number(1) {
		t.Errorf("live window lost its value after growth: %v", got)
	}
	if big.Len() != n {
		t.Errorf("big window has %d slots", big.Len())
	}
	vm.releasePlacement(big)
	vm.releasePlacement(first)
}

func TestGlobals(t *testing.T) {
	vm := newTestVM(t)
	g := vm.GlobalScope

	_, err := g.GetGlobal("nope")
	ex, ok := AsException(err)
	if !ok || ex.Error() != "ReferenceError: undefined variable nope" {
		t.Fatalf("GetGlobal(nope) error = %v", err)
	}

	if err := g.SetGlobal("x", Number(1)); err != nil {
		t.Fatal(err)
	}
	inner := g.Close(Undefined, 0)
	if !inner.HasGlobal("x") {
		t.Error("HasGlobal(x) = false from a nested scope")
	}
	if v, err := inner.GetGlobal("x"); err != nil || v != Number(1) {
		t.Errorf("GetGlobal(x) = %v, %v", v, err)
	}
	if !g.DeleteGlobal("x") {
		t.Error("DeleteGlobal(x) = false")
	}
	if g.HasGlobal("x") {
		t.Error("x survived deletion")
	}
	if !g.HasGlobal("Object") {
		t.Error("library constructor missing from the global object")
	}
}

func TestNewGlobalScopeRejectsPrimitive(t *testing.T) {
	vm := newTestVM(t)
	err := func() (err error) {
		defer RecoverFatal(&err)
		NewGlobalScope(vm, Number(1))
		return nil
	}()
	if err == nil {
		t.Fatal("NewGlobalScope(1) did not fail")
	}
}
