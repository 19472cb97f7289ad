package vm

// Scope is an activation record. The parent link is fixed when the scope
// is created; scopes form a tree rooted at the global scope.
type Scope struct {
	vm           *VM
	parent       *Scope
	global       *Scope
	globalObject Value // only set on the root
	callee       Value
	locals       []Value

	placed bool // locals live in the VM's placement stack
	window int  // placement slots to release
	epoch  uint32
}

// NewGlobalScope creates the root scope over a global object.
// Panics if obj is a primitive.
func NewGlobalScope(vm *VM, obj Value) *Scope {
	if vm.IsPrimitive(obj) {
		Panicf("primitive passed as global object")
	}
	s := &Scope{vm: vm, globalObject: obj, callee: Undefined}
	s.global = s
	return s
}

// Parent returns the enclosing scope, nil for the root.
func (s *Scope) Parent() *Scope { return s.parent }

// Global returns the root scope.
func (s *Scope) Global() *Scope { return s.global }

// GlobalObject returns the object backing global variables.
func (s *Scope) GlobalObject() Value { return s.global.globalObject }

// Callee returns the function whose call created this activation.
func (s *Scope) Callee() Value { return s.callee }

// Len returns the current slot count.
func (s *Scope) Len() int { return len(s.locals) }

// ---------------------------------------------------------------------------
// Local slots
// ---------------------------------------------------------------------------

// GetLocal reads slot index of the scope hops levels up. Slots past the end
// and hops past the root read as undefined.
func (s *Scope) GetLocal(index, hops uint32) Value {
	for ; hops > 0; hops-- {
		if s.parent == nil {
			return Undefined
		}
		s = s.parent
	}
	if index >= uint32(len(s.locals)) {
		return Undefined
	}
	return s.locals[index]
}

// SetLocal writes slot index of the scope hops levels up, growing the slot
// array as needed. Writes past the root are dropped.
func (s *Scope) SetLocal(index, hops uint32, v Value) {
	for ; hops > 0; hops-- {
		if s.parent == nil {
			return
		}
		s = s.parent
	}
	if index >= uint32(len(s.locals)) {
		s.grow(index)
	}
	s.locals[index] = v
}

// grow at least doubles the slot array until it covers index. The new
// storage is always private to the scope, so a placement scope that grows
// leaves the placement stack untouched.
func (s *Scope) grow(index uint32) {
	old := len(s.locals)
	n := old
	if n == 0 {
		n = 1
	}
	for uint32(n) <= index {
		n *= 2
	}
	locals := make([]Value, n)
	copy(locals, s.locals)
	for i := old; i < n; i++ {
		locals[i] = Undefined
	}
	s.locals = locals
	s.placed = false
}

// ---------------------------------------------------------------------------
// Activation creation
// ---------------------------------------------------------------------------

// Close creates a heap activation for one call of callee whose parent is s.
func (s *Scope) Close(callee Value, count uint32) *Scope {
	locals := make([]Value, count)
	for i := range locals {
		locals[i] = Undefined
	}
	return &Scope{
		vm:     s.vm,
		parent: s,
		global: s.global,
		callee: callee,
		locals: locals,
	}
}

// closePlacement creates an activation whose record comes from the VM's
// scope pool and whose slots are a window of the placement stack. It must
// be released in LIFO order once the call returns.
func (vm *VM) closePlacement(parent *Scope, callee Value, count uint32) *Scope {
	n := int(count)
	if vm.sp+n > len(vm.stack) {
		size := 2*len(vm.stack) + n
		for size < vm.sp+n {
			size *= 2
		}
		// Live windows keep referencing the old array.
		vm.stack = make([]Value, size)
	}
	locals := vm.stack[vm.sp : vm.sp+n : vm.sp+n]
	for i := range locals {
		locals[i] = Undefined
	}
	vm.sp += n

	var s *Scope
	if k := len(vm.scopePool); k > 0 {
		s = vm.scopePool[k-1]
		vm.scopePool = vm.scopePool[:k-1]
	} else {
		s = &Scope{}
	}
	*s = Scope{
		vm:     vm,
		parent: parent,
		global: parent.global,
		callee: callee,
		locals: locals,
		placed: true,
		window: n,
	}
	return s
}

func (vm *VM) releasePlacement(s *Scope) {
	vm.sp -= s.window
	clear(vm.stack[vm.sp : vm.sp+s.window])
	*s = Scope{}
	vm.scopePool = append(vm.scopePool, s)
}

// ---------------------------------------------------------------------------
// Global variables
// ---------------------------------------------------------------------------

// GetGlobal reads a global variable. Reading an undeclared name raises
// ReferenceError.
func (s *Scope) GetGlobal(name string) (Value, error) {
	obj := s.global.globalObject
	if !s.vm.HasProperty(obj, name) {
		return Undefined, s.vm.ReferenceError("undefined variable %s", name)
	}
	return s.vm.Get(obj, name)
}

// SetGlobal writes a global variable, declaring it if needed.
func (s *Scope) SetGlobal(name string, v Value) error {
	return s.vm.Put(s.global.globalObject, name, v)
}

// HasGlobal reports whether a global variable exists.
func (s *Scope) HasGlobal(name string) bool {
	return s.vm.HasProperty(s.global.globalObject, name)
}

// DeleteGlobal removes a global variable and reports whether it is gone.
// Non-configurable bindings stay.
func (s *Scope) DeleteGlobal(name string) bool {
	return s.vm.Delete(s.global.globalObject, name)
}
