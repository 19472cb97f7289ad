// Package interp is a reference executor for compiled images: a small stack
// machine that walks section code and drives the core through its public
// protocol.
package interp

import (
	"encoding/binary"
	"math"

	"github.com/chazu/jsos/vm"
)

// ---------------------------------------------------------------------------
// Interpreter
// ---------------------------------------------------------------------------

// Interpreter executes section code. One operand stack is shared by every
// activation it runs; nested calls push above the caller's values. The stack
// is a collector root.
type Interpreter struct {
	vm    *vm.VM
	stack []vm.Value
}

// New creates an interpreter, installs it as the executor of v and registers
// its operand stack as a root set.
func New(v *vm.VM) *Interpreter {
	in := &Interpreter{vm: v, stack: make([]vm.Value, 0, 64)}
	v.SetExecutor(in)
	v.Heap.RegisterRoot(in)
	return in
}

// Close detaches the interpreter from its VM.
func (in *Interpreter) Close() {
	in.vm.Heap.UnregisterRoot(in)
	if in.vm.Executor() == vm.Executor(in) {
		in.vm.SetExecutor(nil)
	}
}

// TraceRoots marks every value on the operand stack.
func (in *Interpreter) TraceRoots(t *vm.Tracer) {
	t.MarkAll(in.stack)
}

// Execute runs one section of img in scope.
func (in *Interpreter) Execute(machine *vm.VM, img *vm.Image, section int, scope *vm.Scope, this vm.Value, args []vm.Value) (vm.Value, error) {
	if machine != in.vm {
		vm.Panicf("interpreter bound to a different VM")
	}
	f := &frame{
		in:    in,
		img:   img,
		code:  img.Section(section).Code,
		scope: scope,
		this:  this,
		args:  args,
		base:  len(in.stack),
	}
	defer f.unwindStack()
	return f.run()
}

// ---------------------------------------------------------------------------
// Frame
// ---------------------------------------------------------------------------

type handler struct {
	target int
	depth  int
}

type frame struct {
	in       *Interpreter
	img      *vm.Image
	code     []byte
	pc       int
	scope    *vm.Scope
	this     vm.Value
	args     []vm.Value
	base     int
	handlers []handler
}

func (f *frame) unwindStack() {
	clear(f.in.stack[f.base:])
	f.in.stack = f.in.stack[:f.base]
}

func (f *frame) push(v vm.Value) {
	f.in.stack = append(f.in.stack, v)
}

func (f *frame) pop() vm.Value {
	n := len(f.in.stack) - 1
	if n < f.base {
		vm.Panicf("operand stack underflow at %s:%d", f.img.Name, f.pc)
	}
	v := f.in.stack[n]
	f.in.stack[n] = vm.Undefined
	f.in.stack = f.in.stack[:n]
	return v
}

func (f *frame) top() vm.Value {
	n := len(f.in.stack) - 1
	if n < f.base {
		vm.Panicf("operand stack underflow at %s:%d", f.img.Name, f.pc)
	}
	return f.in.stack[n]
}

// peek returns the value i slots below the top.
func (f *frame) peek(i uint32) vm.Value {
	n := len(f.in.stack) - 1 - int(i)
	if n < f.base {
		vm.Panicf("operand stack underflow at %s:%d", f.img.Name, f.pc)
	}
	return f.in.stack[n]
}

// peekN returns a copy of the top n values in push order.
func (f *frame) peekN(n uint32) []vm.Value {
	start := len(f.in.stack) - int(n)
	if start < f.base {
		vm.Panicf("operand stack underflow at %s:%d", f.img.Name, f.pc)
	}
	return append([]vm.Value(nil), f.in.stack[start:]...)
}

// replace drops the top n values and pushes v. Instructions leave their
// operands on the stack until the result is known so a collection in the
// middle of an instruction still sees them.
func (f *frame) replace(n uint32, v vm.Value) {
	start := len(f.in.stack) - int(n)
	if start < f.base {
		vm.Panicf("operand stack underflow at %s:%d", f.img.Name, f.pc)
	}
	clear(f.in.stack[start:])
	f.in.stack = append(f.in.stack[:start], v)
}

func (f *frame) drop(n uint32) {
	start := len(f.in.stack) - int(n)
	if start < f.base {
		vm.Panicf("operand stack underflow at %s:%d", f.img.Name, f.pc)
	}
	clear(f.in.stack[start:])
	f.in.stack = f.in.stack[:start]
}

func (f *frame) u32() uint32 {
	if f.pc+4 > len(f.code) {
		vm.Panicf("truncated instruction at %s:%d", f.img.Name, f.pc)
	}
	v := binary.LittleEndian.Uint32(f.code[f.pc:])
	f.pc += 4
	return v
}

func (f *frame) f64() float64 {
	if f.pc+8 > len(f.code) {
		vm.Panicf("truncated instruction at %s:%d", f.img.Name, f.pc)
	}
	v := math.Float64frombits(binary.LittleEndian.Uint64(f.code[f.pc:]))
	f.pc += 8
	return v
}

func (f *frame) str() string {
	return f.img.String(f.u32())
}

func (f *frame) target() int {
	t := int(f.u32())
	if t > len(f.code) {
		vm.Panicf("jump target %d outside %s", t, f.img.Name)
	}
	return t
}

// catch transfers control to the innermost handler when err is a script
// exception. It reports whether the error was handled.
func (f *frame) catch(err error) bool {
	n := len(f.handlers)
	if n == 0 {
		return false
	}
	ex, ok := vm.AsException(err)
	if !ok {
		return false
	}
	h := f.handlers[n-1]
	f.handlers = f.handlers[:n-1]
	clear(f.in.stack[f.base+h.depth:])
	f.in.stack = f.in.stack[:f.base+h.depth]
	f.push(ex.Value)
	f.pc = h.target
	return true
}

func (f *frame) run() (vm.Value, error) {
	m := f.in.vm
	for f.pc < len(f.code) {
		at := f.pc
		op := Opcode(f.code[f.pc])
		f.pc++

		var (
			v   vm.Value
			err error
		)
		switch op {
		// --- Stack operations ---
		case OpNop:

		case OpPop:
			f.pop()

		case OpDup:
			f.push(f.top())

		// --- Constants ---
		case OpUndefined:
			f.push(vm.Undefined)

		case OpNull:
			f.push(vm.Null)

		case OpTrue:
			f.push(vm.True)

		case OpFalse:
			f.push(vm.False)

		case OpNumber:
			f.push(vm.Number(f.f64()))

		case OpString:
			f.push(m.NewString(f.str()))

		case OpThis:
			f.push(f.this)

		case OpArg:
			i := f.u32()
			if int(i) < len(f.args) {
				f.push(f.args[i])
			} else {
				f.push(vm.Undefined)
			}

		// --- Variables ---
		case OpGetLocal:
			i, h := f.u32(), f.u32()
			f.push(f.scope.GetLocal(i, h))

		case OpSetLocal:
			i, h := f.u32(), f.u32()
			f.scope.SetLocal(i, h, f.pop())

		case OpGetGlobal:
			if v, err = f.scope.GetGlobal(f.str()); err == nil {
				f.push(v)
			}

		case OpSetGlobal:
			name := f.str()
			if err = f.scope.SetGlobal(name, f.top()); err == nil {
				f.drop(1)
			}

		case OpHasGlobal:
			f.push(vm.Bool(f.scope.HasGlobal(f.str())))

		case OpDeleteGlobal:
			f.push(vm.Bool(f.scope.DeleteGlobal(f.str())))

		// --- Properties ---
		case OpGetProp:
			if v, err = f.getProp(f.top(), f.str()); err == nil {
				f.replace(1, v)
			}

		case OpSetProp:
			if err = f.setProp(f.peek(1), f.str(), f.peek(0)); err == nil {
				f.drop(2)
			}

		case OpGetIndex:
			var key string
			if key, err = m.ToGoString(f.peek(0)); err == nil {
				if v, err = f.getProp(f.peek(1), key); err == nil {
					f.replace(2, v)
				}
			}

		case OpSetIndex:
			var key string
			if key, err = m.ToGoString(f.peek(1)); err == nil {
				if err = f.setProp(f.peek(2), key, f.peek(0)); err == nil {
					f.drop(3)
				}
			}

		// --- Construction and calls ---
		case OpObject:
			f.push(m.MakeObject())

		case OpArray:
			n := f.u32()
			f.replace(n, m.NewArray(f.peekN(n)))

		case OpFunction:
			f.push(m.NewFunction(f.img, int(f.u32()), f.scope))

		case OpCall:
			n := f.u32()
			if v, err = f.call(f.peek(n), vm.Undefined, f.peekN(n)); err == nil {
				f.replace(n+1, v)
			}

		case OpCallMethod:
			key := f.str()
			n := f.u32()
			obj := f.peek(n)
			var fn vm.Value
			if fn, err = f.getProp(obj, key); err == nil {
				f.push(fn)
				if v, err = f.call(fn, obj, f.peekN(n+1)[:n]); err == nil {
					f.replace(n+2, v)
				}
			}

		case OpNew:
			n := f.u32()
			ctor := f.peek(n)
			if !m.IsCallable(ctor) {
				err = m.TypeError("%s is not a constructor", m.TypeOf(ctor))
				break
			}
			if v, err = m.Construct(ctor, f.peekN(n)); err == nil {
				f.replace(n+1, v)
			}

		// --- Operators ---
		case OpAdd:
			if v, err = f.add(f.peek(1), f.peek(0)); err == nil {
				f.replace(2, v)
			}

		case OpSub, OpMul, OpDiv, OpMod:
			if v, err = f.arith(op, f.peek(1), f.peek(0)); err == nil {
				f.replace(2, v)
			}

		case OpNeg:
			var x float64
			if x, err = m.ToFloat64(f.top()); err == nil {
				f.replace(1, vm.Number(-x))
			}

		case OpLT, OpGT, OpLE, OpGE:
			if v, err = f.compare(op, f.peek(1), f.peek(0)); err == nil {
				f.replace(2, v)
			}

		case OpEq, OpNe:
			var eq bool
			if eq, err = m.LooseEquals(f.peek(1), f.peek(0)); err == nil {
				f.replace(2, vm.Bool(eq == (op == OpEq)))
			}

		case OpStrictEq:
			f.replace(2, vm.Bool(m.StrictEquals(f.peek(1), f.peek(0))))

		case OpStrictNe:
			f.replace(2, vm.Bool(!m.StrictEquals(f.peek(1), f.peek(0))))

		case OpNot:
			f.replace(1, vm.Bool(!m.ToBoolean(f.top())))

		case OpTypeOf:
			f.replace(1, m.NewString(m.TypeOf(f.top())))

		// --- Control flow ---
		case OpJump:
			f.pc = f.target()

		case OpJumpTrue:
			t := f.target()
			if m.ToBoolean(f.pop()) {
				f.pc = t
			}

		case OpJumpFalse:
			t := f.target()
			if !m.ToBoolean(f.pop()) {
				f.pc = t
			}

		case OpReturn:
			return f.pop(), nil

		case OpReturnUndef:
			return vm.Undefined, nil

		case OpThrow:
			err = m.Throw(f.pop())

		case OpTry:
			f.handlers = append(f.handlers, handler{
				target: f.target(),
				depth:  len(f.in.stack) - f.base,
			})

		case OpEndTry:
			if len(f.handlers) == 0 {
				vm.Panicf("end_try without try at %s:%d", f.img.Name, at)
			}
			f.handlers = f.handlers[:len(f.handlers)-1]

		default:
			vm.Panicf("unknown opcode 0x%02x at %s:%d", byte(op), f.img.Name, at)
		}

		if err != nil && !f.catch(err) {
			return vm.Undefined, err
		}
	}
	return vm.Undefined, nil
}

// ---------------------------------------------------------------------------
// Instruction helpers
// ---------------------------------------------------------------------------

func (f *frame) getProp(obj vm.Value, key string) (vm.Value, error) {
	m := f.in.vm
	if obj.IsNullish() {
		return vm.Undefined, m.TypeError("cannot read property '%s' of %s", key, m.KindOf(obj))
	}
	o, err := m.ToObject(obj)
	if err != nil {
		return vm.Undefined, err
	}
	return m.Get(o, key)
}

func (f *frame) setProp(obj vm.Value, key string, v vm.Value) error {
	m := f.in.vm
	if obj.IsNullish() {
		return m.TypeError("cannot set property '%s' of %s", key, m.KindOf(obj))
	}
	if m.IsPrimitive(obj) {
		return nil
	}
	return m.Put(obj, key, v)
}

func (f *frame) call(fn, this vm.Value, args []vm.Value) (vm.Value, error) {
	m := f.in.vm
	if !m.IsCallable(fn) {
		return vm.Undefined, m.TypeError("%s is not a function", m.TypeOf(fn))
	}
	return m.Call(fn, this, args)
}

func (f *frame) add(a, b vm.Value) (vm.Value, error) {
	m := f.in.vm
	pa, err := m.ToPrimitive(a)
	if err != nil {
		return vm.Undefined, err
	}
	// b's conversion may run script that collects.
	defer m.PopRoots(m.PushRoot(pa))
	pb, err := m.ToPrimitive(b)
	if err != nil {
		return vm.Undefined, err
	}
	if m.IsString(pa) || m.IsString(pb) {
		sa, err := m.ToGoString(pa)
		if err != nil {
			return vm.Undefined, err
		}
		sb, err := m.ToGoString(pb)
		if err != nil {
			return vm.Undefined, err
		}
		return m.NewString(sa + sb), nil
	}
	x, _ := m.ToFloat64(pa)
	y, _ := m.ToFloat64(pb)
	return vm.Number(x + y), nil
}

func (f *frame) arith(op Opcode, a, b vm.Value) (vm.Value, error) {
	m := f.in.vm
	x, err := m.ToFloat64(a)
	if err != nil {
		return vm.Undefined, err
	}
	y, err := m.ToFloat64(b)
	if err != nil {
		return vm.Undefined, err
	}
	switch op {
	case OpSub:
		return vm.Number(x - y), nil
	case OpMul:
		return vm.Number(x * y), nil
	case OpDiv:
		return vm.Number(x / y), nil
	default:
		return vm.Number(math.Mod(x, y)), nil
	}
}

func (f *frame) compare(op Opcode, a, b vm.Value) (vm.Value, error) {
	m := f.in.vm
	pa, err := m.ToPrimitive(a)
	if err != nil {
		return vm.Undefined, err
	}
	// b's conversion may run script that collects.
	defer m.PopRoots(m.PushRoot(pa))
	pb, err := m.ToPrimitive(b)
	if err != nil {
		return vm.Undefined, err
	}
	if m.IsString(pa) && m.IsString(pb) {
		sa, sb := m.StringOf(pa), m.StringOf(pb)
		switch op {
		case OpLT:
			return vm.Bool(sa < sb), nil
		case OpGT:
			return vm.Bool(sa > sb), nil
		case OpLE:
			return vm.Bool(sa <= sb), nil
		default:
			return vm.Bool(sa >= sb), nil
		}
	}
	x, err := m.ToFloat64(pa)
	if err != nil {
		return vm.Undefined, err
	}
	y, err := m.ToFloat64(pb)
	if err != nil {
		return vm.Undefined, err
	}
	switch op {
	case OpLT:
		return vm.Bool(x < y), nil
	case OpGT:
		return vm.Bool(x > y), nil
	case OpLE:
		return vm.Bool(x <= y), nil
	default:
		return vm.Bool(x >= y), nil
	}
}
