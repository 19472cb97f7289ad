package vm

// NativeFunc is a host-provided call or construct hook.
type NativeFunc func(vm *VM, state any, this Value, args []Value) (Value, error)

// FunctionObject is a callable object. Native functions carry host state
// and hooks; interpreted functions carry an image section and the scope
// that was active when the function value was created.
type FunctionObject struct {
	ObjectBase
	Name     string
	IsNative bool

	// native
	state     any
	call      NativeFunc
	construct NativeFunc

	// interpreted
	image   *Image
	section int
	outer   *Scope
}

func (f *FunctionObject) Kind() Kind { return KindFunction }

func (f *FunctionObject) trace(t *Tracer) {
	f.traceBase(t)
	t.MarkScope(f.outer)
}

// State returns the host state of a native function.
func (f *FunctionObject) State() any { return f.state }

// Image returns the image and section of an interpreted function.
func (f *FunctionObject) Image() (*Image, int) { return f.image, f.section }

// Outer returns the captured scope of an interpreted function.
func (f *FunctionObject) Outer() *Scope { return f.outer }

func (vm *VM) newFunction(f *FunctionObject) Value {
	v := vm.allocObject(f, vm.Lib.FunctionPrototype, vm.Lib.Function)
	proto := vm.NewObject(vm.Lib.ObjectPrototype, v)
	vm.PutHidden(proto, "constructor", v)
	vm.PutHidden(v, "prototype", proto)
	return v
}

// NewNativeFunction creates a host function. Either hook may be nil; the
// missing one raises TypeError when used.
func (vm *VM) NewNativeFunction(name string, state any, call, construct NativeFunc) Value {
	return vm.newFunction(&FunctionObject{
		Name:      name,
		IsNative:  true,
		state:     state,
		call:      call,
		construct: construct,
	})
}

// NewFunction creates an interpreted function over a section of img that
// closes over outer.
func (vm *VM) NewFunction(img *Image, section int, outer *Scope) Value {
	img.Section(section)
	if outer == nil {
		Panicf("NewFunction: nil outer scope")
	}
	return vm.newFunction(&FunctionObject{
		image:   img,
		section: section,
		outer:   outer,
	})
}

// FunctionOf returns the function named by v.
// Panics if v is not callable.
func (vm *VM) FunctionOf(v Value) *FunctionObject {
	if v.IsHeap() {
		if f, ok := vm.Heap.Deref(v).(*FunctionObject); ok {
			return f
		}
	}
	Panicf("precondition failed, expected function but received %s", vm.KindOf(v))
	return nil
}

// ---------------------------------------------------------------------------
// Invocation
// ---------------------------------------------------------------------------

// Call invokes fn with the given receiver. fn must be callable; that is a
// precondition the caller has already checked.
func (vm *VM) Call(fn, this Value, args []Value) (Value, error) {
	f := vm.FunctionOf(fn)
	if f.IsNative {
		if f.call == nil {
			return Undefined, vm.TypeError("Can't call constructor in non-constructor context")
		}
		if err := vm.pushFrame(fn, this, args, nil); err != nil {
			return Undefined, err
		}
		defer vm.popFrame()
		return f.call(vm, f.state, this, args)
	}
	return vm.invoke(f, fn, this, args)
}

// Construct allocates a fresh object inheriting from fn.prototype, runs fn
// with it as the receiver, and returns the explicit result when it is an
// object, the fresh object otherwise.
func (vm *VM) Construct(fn Value, args []Value) (Value, error) {
	f := vm.FunctionOf(fn)
	proto, err := vm.Get(fn, "prototype")
	if err != nil {
		return Undefined, err
	}
	if !vm.IsObject(proto) {
		proto = vm.Lib.ObjectPrototype
	}
	this := vm.NewObject(proto, fn)

	var result Value
	if f.IsNative {
		if f.construct == nil {
			return Undefined, vm.TypeError("Can't call function in constructor context")
		}
		if err := vm.pushFrame(fn, this, args, nil); err != nil {
			return Undefined, err
		}
		result, err = func() (Value, error) {
			defer vm.popFrame()
			return f.construct(vm, f.state, this, args)
		}()
	} else {
		result, err = vm.invoke(f, fn, this, args)
	}
	if err != nil {
		return Undefined, err
	}
	if vm.IsObject(result) {
		return result, nil
	}
	return this, nil
}

// invoke runs an interpreted function. Sections without nested function
// definitions get a placement activation released when the call returns;
// the rest get a heap activation that closures may capture.
func (vm *VM) invoke(f *FunctionObject, fn, this Value, args []Value) (Value, error) {
	if vm.executor == nil {
		Panicf("no executor installed")
	}
	sec := f.image.Section(f.section)
	var scope *Scope
	if sec.HasInnerFuncs() {
		scope = f.outer.Close(fn, sec.LocalCount)
	} else {
		scope = vm.closePlacement(f.outer, fn, sec.LocalCount)
		defer vm.releasePlacement(scope)
	}
	if err := vm.pushFrame(fn, this, args, scope); err != nil {
		return Undefined, err
	}
	defer vm.popFrame()
	return vm.executor.Execute(vm, f.image, f.section, scope, this, args)
}
