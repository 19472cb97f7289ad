package vm

// Object is the protocol every object-family heap record implements. The
// set of implementations is closed: PlainObject, ArrayObject,
// FunctionObject, StringObject, NumberObject and BooleanObject. The
// exported methods are the protocol; the unexported hooks let a kind
// supply virtual own properties (array indices, string characters).
type Object interface {
	HeapObject

	Base() *ObjectBase

	Get(vm *VM, key string) (Value, error)
	Put(vm *VM, key string, v Value) error
	HasProperty(vm *VM, key string) bool
	DefineOwnProperty(vm *VM, key string, p Property) bool
	Delete(vm *VM, key string) bool
	Keys(vm *VM) []string
	DefaultValue(vm *VM, hint Kind) (Value, error)

	getOwn(vm *VM, key string) (Property, bool)
	putOwn(vm *VM, key string, v Value) (handled bool, err error)
	deleteOwn(vm *VM, key string) (handled, deleted bool)
	ownKeys(vm *VM) []string
	accountedSize() uint64
}

// ObjectBase holds the state shared by all object kinds: prototype link,
// originating class and property table.
type ObjectBase struct {
	impl      Object
	self      Value
	prototype Value
	class     Value
	props     PropertyTable
}

func (ob *ObjectBase) Base() *ObjectBase { return ob }

// Self returns the value naming this object.
func (ob *ObjectBase) Self() Value { return ob.self }

// Prototype returns the prototype link.
func (ob *ObjectBase) Prototype() Value { return ob.prototype }

// SetPrototype replaces the prototype link.
func (ob *ObjectBase) SetPrototype(proto Value) { ob.prototype = proto }

// Class returns the constructor the object originated from.
func (ob *ObjectBase) Class() Value { return ob.class }

func (ob *ObjectBase) traceBase(t *Tracer) {
	t.Mark(ob.prototype)
	t.Mark(ob.class)
	ob.props.trace(t)
}

// ---------------------------------------------------------------------------
// Default behaviour, overridden through the hooks
// ---------------------------------------------------------------------------

func (ob *ObjectBase) getOwn(_ *VM, key string) (Property, bool) {
	p, ok := ob.props.get(key)
	if !ok {
		return Property{}, false
	}
	return *p, true
}

func (ob *ObjectBase) putOwn(*VM, string, Value) (bool, error) { return false, nil }

func (ob *ObjectBase) deleteOwn(*VM, string) (bool, bool) { return false, false }

func (ob *ObjectBase) ownKeys(*VM) []string { return ob.props.enumerable() }

func (ob *ObjectBase) accountedSize() uint64 {
	return sizeObject + uint64(ob.props.Len())*sizeProperty
}

// Get reads key through the prototype chain. Accessors run with this
// object as the receiver.
func (ob *ObjectBase) Get(vm *VM, key string) (Value, error) {
	p, ok := vm.lookup(ob.impl, key)
	if !ok {
		return Undefined, nil
	}
	if !p.Accessor {
		return p.Value, nil
	}
	if !vm.IsCallable(p.Getter) {
		return Undefined, nil
	}
	return vm.Call(p.Getter, ob.self, nil)
}

// Put writes key. An inherited or own accessor runs its setter; a
// non-writable data property ignores the write; otherwise an own data
// property is created or updated.
func (ob *ObjectBase) Put(vm *VM, key string, v Value) error {
	if p, ok := vm.lookup(ob.impl, key); ok {
		if p.Accessor {
			if !vm.IsCallable(p.Setter) {
				return nil
			}
			_, err := vm.Call(p.Setter, ob.self, []Value{v})
			return err
		}
		if !p.Writable {
			return nil
		}
	}
	if handled, err := ob.impl.putOwn(vm, key, v); handled || err != nil {
		return err
	}
	if p, ok := ob.props.get(key); ok {
		p.Value = v
		return nil
	}
	ob.props.set(key, DataProperty(v))
	return nil
}

// HasProperty reports whether key is present here or on the prototype chain.
func (ob *ObjectBase) HasProperty(vm *VM, key string) bool {
	_, ok := vm.lookup(ob.impl, key)
	return ok
}

// DefineOwnProperty installs p as an own property. Redefining a
// non-configurable property fails.
func (ob *ObjectBase) DefineOwnProperty(vm *VM, key string, p Property) bool {
	if existing, ok := ob.impl.getOwn(vm, key); ok && !existing.Configurable {
		return false
	}
	if !p.Accessor {
		if handled, err := ob.impl.putOwn(vm, key, p.Value); handled && err == nil {
			return true
		}
	}
	ob.props.set(key, p)
	return true
}

// Delete removes an own property. Non-configurable properties stay.
func (ob *ObjectBase) Delete(vm *VM, key string) bool {
	if handled, deleted := ob.impl.deleteOwn(vm, key); handled {
		return deleted
	}
	p, ok := ob.props.get(key)
	if !ok {
		return true
	}
	if !p.Configurable {
		return false
	}
	return ob.props.remove(key)
}

// Keys returns the own enumerable keys in order.
func (ob *ObjectBase) Keys(vm *VM) []string {
	return ob.impl.ownKeys(vm)
}

// DefaultValue reduces the object to a primitive. The string hint tries
// toString before valueOf; any other hint tries them the other way round.
func (ob *ObjectBase) DefaultValue(vm *VM, hint Kind) (Value, error) {
	order := [2]string{"toString", "valueOf"}
	if hint != KindString {
		order = [2]string{"valueOf", "toString"}
	}
	for _, name := range order {
		fn, err := ob.Get(vm, name)
		if err != nil {
			return Undefined, err
		}
		if !vm.IsCallable(fn) {
			continue
		}
		v, err := vm.Call(fn, ob.self, nil)
		if err != nil {
			return Undefined, err
		}
		if vm.IsPrimitive(v) {
			return v, nil
		}
	}
	return Undefined, vm.TypeError("cannot convert object to primitive value")
}

// lookup finds key on o or its prototype chain.
func (vm *VM) lookup(o Object, key string) (Property, bool) {
	for depth := 0; o != nil; depth++ {
		if p, ok := o.getOwn(vm, key); ok {
			return p, true
		}
		proto := o.Base().prototype
		if !proto.IsHeap() || depth > maxPrototypeDepth {
			break
		}
		next, ok := vm.Heap.Deref(proto).(Object)
		if !ok {
			break
		}
		o = next
	}
	return Property{}, false
}

const maxPrototypeDepth = 1 << 16

// ---------------------------------------------------------------------------
// Plain objects
// ---------------------------------------------------------------------------

// PlainObject is an ordinary object with no virtual properties.
type PlainObject struct {
	ObjectBase
}

func (o *PlainObject) Kind() Kind { return KindObject }

func (o *PlainObject) trace(t *Tracer) { o.traceBase(t) }

// allocObject gives obj a handle and wires its base back to itself.
func (vm *VM) allocObject(obj Object, proto, class Value) Value {
	v := vm.Heap.Alloc(obj, sizeObject)
	b := obj.Base()
	b.impl = obj
	b.self = v
	b.prototype = proto
	b.class = class
	return v
}

// NewObject creates a plain object with the given prototype and class.
func (vm *VM) NewObject(proto, class Value) Value {
	return vm.allocObject(&PlainObject{}, proto, class)
}

// MakeObject creates a plain object inheriting from Object.prototype.
func (vm *VM) MakeObject() Value {
	return vm.NewObject(vm.Lib.ObjectPrototype, vm.Lib.Object)
}

// ---------------------------------------------------------------------------
// Protocol entry points
// ---------------------------------------------------------------------------

// object returns the object named by v.
// Panics if v is a primitive.
func (vm *VM) object(v Value) Object {
	if v.IsHeap() {
		if o, ok := vm.Heap.Deref(v).(Object); ok {
			return o
		}
	}
	Panicf("precondition failed, expected object but received %s", vm.KindOf(v))
	return nil
}

// ObjectOf returns the protocol implementation behind v.
// Panics if v is a primitive.
func (vm *VM) ObjectOf(v Value) Object {
	return vm.object(v)
}

// Get reads a property of an object.
func (vm *VM) Get(obj Value, key string) (Value, error) {
	return vm.object(obj).Get(vm, key)
}

// Put writes a property of an object.
func (vm *VM) Put(obj Value, key string, v Value) error {
	o := vm.object(obj)
	if err := o.Put(vm, key, v); err != nil {
		return err
	}
	vm.Heap.Resize(obj, o.accountedSize())
	return nil
}

// account refreshes the heap accounting of obj after its storage changed.
func (vm *VM) account(obj Value) {
	vm.Heap.Resize(obj, vm.object(obj).accountedSize())
}

// HasProperty reports whether an object has a property.
func (vm *VM) HasProperty(obj Value, key string) bool {
	return vm.object(obj).HasProperty(vm, key)
}

// DefineOwnProperty installs a property descriptor on an object.
func (vm *VM) DefineOwnProperty(obj Value, key string, p Property) bool {
	o := vm.object(obj)
	ok := o.DefineOwnProperty(vm, key, p)
	vm.Heap.Resize(obj, o.accountedSize())
	return ok
}

// Delete removes a property from an object.
func (vm *VM) Delete(obj Value, key string) bool {
	return vm.object(obj).Delete(vm, key)
}

// Keys returns an object's own enumerable keys.
func (vm *VM) Keys(obj Value) []string {
	return vm.object(obj).Keys(vm)
}

// DefaultValue reduces an object to a primitive using hint.
func (vm *VM) DefaultValue(obj Value, hint Kind) (Value, error) {
	return vm.object(obj).DefaultValue(vm, hint)
}

// PutAccessor installs a getter/setter pair backed by host functions.
// Either may be nil.
func (vm *VM) PutAccessor(obj Value, key string, get, set NativeFunc) bool {
	getter, setter := Undefined, Undefined
	if get != nil {
		getter = vm.NewNativeFunction(key, nil, get, nil)
	}
	if set != nil {
		setter = vm.NewNativeFunction(key, nil, set, nil)
	}
	return vm.DefineOwnProperty(obj, key, AccessorProperty(getter, setter))
}

// PutHidden installs a non-enumerable data property.
func (vm *VM) PutHidden(obj Value, key string, v Value) {
	vm.DefineOwnProperty(obj, key, Property{Value: v, Writable: true, Configurable: true})
}
