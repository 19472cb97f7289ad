package vm

import (
	"github.com/tliron/commonlog"
)

// ---------------------------------------------------------------------------
// VM: the execution context
// ---------------------------------------------------------------------------

// Options configure a VM.
type Options struct {
	// HeapLimit caps accounted heap usage in bytes; 0 means unlimited.
	HeapLimit uint64

	// MaxCallDepth bounds nested calls; 0 selects DefaultMaxCallDepth.
	MaxCallDepth int

	// Executor runs interpreted functions. It may also be installed later
	// with SetExecutor.
	Executor Executor
}

// DefaultMaxCallDepth is used when Options.MaxCallDepth is 0.
const DefaultMaxCallDepth = 1024

// frame records a call in progress. Frames are collector roots.
type frame struct {
	callee Value
	this   Value
	args   []Value
	scope  *Scope
}

// VM is the execution context every core operation runs against. It owns
// the heap, the library objects and the global scope.
type VM struct {
	Heap        *Heap
	Lib         Lib
	GlobalScope *Scope

	executor Executor
	frames   []frame
	maxDepth int

	// placement storage for activations that cannot be captured
	stack     []Value
	sp        int
	scopePool []*Scope

	// values host code holds across calls back into script
	temps []Value

	log commonlog.Logger
}

// New creates a VM, registers it as a collector root and installs the
// library objects on a fresh global object.
func New(opts Options) *VM {
	vm := &VM{
		Heap:     NewHeap(opts.HeapLimit),
		executor: opts.Executor,
		maxDepth: opts.MaxCallDepth,
		stack:    make([]Value, 256),
		log:      commonlog.GetLogger("jsos.vm"),
	}
	if vm.maxDepth <= 0 {
		vm.maxDepth = DefaultMaxCallDepth
	}
	vm.Heap.RegisterRoot(vm)
	vm.initLib()
	vm.log.Debugf("vm ready: %d blocks, %d bytes", vm.Heap.Live(), vm.Heap.Usage())
	return vm
}

// SetExecutor installs the executor for interpreted functions.
func (vm *VM) SetExecutor(e Executor) {
	vm.executor = e
}

// Executor returns the installed executor.
func (vm *VM) Executor() Executor {
	return vm.executor
}

// Global returns the global object.
func (vm *VM) Global() Value {
	return vm.GlobalScope.GlobalObject()
}

// Exec runs section of img directly in scope, as image loading does for
// top-level code.
func (vm *VM) Exec(img *Image, section int, scope *Scope, this Value, args []Value) (Value, error) {
	if vm.executor == nil {
		Panicf("no executor installed")
	}
	img.Section(section)
	if err := vm.pushFrame(Undefined, this, args, scope); err != nil {
		return Undefined, err
	}
	defer vm.popFrame()
	return vm.executor.Execute(vm, img, section, scope, this, args)
}

// Depth returns the number of calls in progress.
func (vm *VM) Depth() int {
	return len(vm.frames)
}

func (vm *VM) pushFrame(callee, this Value, args []Value, scope *Scope) error {
	if len(vm.frames) >= vm.maxDepth {
		return vm.RangeError("maximum call stack size exceeded")
	}
	vm.frames = append(vm.frames, frame{callee: callee, this: this, args: args, scope: scope})
	return nil
}

func (vm *VM) popFrame() {
	n := len(vm.frames) - 1
	vm.frames[n] = frame{}
	vm.frames = vm.frames[:n]
}

// PushRoot keeps v reachable until PopRoots releases it. It returns the mark
// to pass to PopRoots. Host code must root any fresh value it holds in a Go
// variable while it calls back into script, since such a call may collect.
func (vm *VM) PushRoot(v Value) int {
	mark := len(vm.temps)
	vm.temps = append(vm.temps, v)
	return mark
}

// PopRoots releases every temporary root pushed since mark.
func (vm *VM) PopRoots(mark int) {
	clear(vm.temps[mark:])
	vm.temps = vm.temps[:mark]
}

// Collect runs the collector. See Heap.Collect for the safe-point rule.
func (vm *VM) Collect() int {
	return vm.Heap.Collect()
}

// TraceRoots marks the library, the global scope, temporary roots and every
// call in progress.
func (vm *VM) TraceRoots(t *Tracer) {
	vm.Lib.trace(t)
	t.MarkScope(vm.GlobalScope)
	t.MarkAll(vm.temps)
	for i := range vm.frames {
		f := &vm.frames[i]
		t.Mark(f.callee)
		t.Mark(f.this)
		t.MarkAll(f.args)
		t.MarkScope(f.scope)
	}
}
