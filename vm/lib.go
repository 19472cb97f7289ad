package vm

import (
	"math"
	"strings"
)

// Lib holds the built-in constructors and prototypes.
type Lib struct {
	Function                Value
	FunctionPrototype       Value
	Object                  Value
	ObjectPrototype         Value
	Array                   Value
	ArrayPrototype          Value
	Number                  Value
	NumberPrototype         Value
	String                  Value
	StringPrototype         Value
	Boolean                 Value
	BooleanPrototype        Value
	Error                   Value
	ErrorPrototype          Value
	RangeError              Value
	RangeErrorPrototype     Value
	ReferenceError          Value
	ReferenceErrorPrototype Value
	TypeError               Value
	TypeErrorPrototype      Value
}

func (l *Lib) values() []*Value {
	return []*Value{
		&l.Function, &l.FunctionPrototype,
		&l.Object, &l.ObjectPrototype,
		&l.Array, &l.ArrayPrototype,
		&l.Number, &l.NumberPrototype,
		&l.String, &l.StringPrototype,
		&l.Boolean, &l.BooleanPrototype,
		&l.Error, &l.ErrorPrototype,
		&l.RangeError, &l.RangeErrorPrototype,
		&l.ReferenceError, &l.ReferenceErrorPrototype,
		&l.TypeError, &l.TypeErrorPrototype,
	}
}

func (l *Lib) trace(t *Tracer) {
	for _, v := range l.values() {
		t.Mark(*v)
	}
}

// ---------------------------------------------------------------------------
// Bootstrap
// ---------------------------------------------------------------------------

func (vm *VM) initLib() {
	l := &vm.Lib
	for _, v := range l.values() {
		*v = Undefined
	}

	// Object.prototype and Function.prototype come first: every native
	// function created below links to them.
	l.ObjectPrototype = vm.allocObject(&PlainObject{}, Null, Undefined)
	l.FunctionPrototype = vm.NewObject(l.ObjectPrototype, Undefined)

	l.Function = vm.defineClass("Function", l.FunctionPrototype, functionCtor, functionCtor)
	vm.object(l.Function).Base().class = l.Function
	vm.object(l.FunctionPrototype).Base().class = l.Function
	l.Object = vm.defineClass("Object", l.ObjectPrototype, objectCtor, objectCtor)
	vm.object(l.ObjectPrototype).Base().class = l.Object

	l.ArrayPrototype = vm.NewObject(l.ObjectPrototype, Undefined)
	l.Array = vm.defineClass("Array", l.ArrayPrototype, arrayCtor, arrayCtor)
	l.StringPrototype = vm.NewObject(l.ObjectPrototype, Undefined)
	l.String = vm.defineClass("String", l.StringPrototype, stringCall, stringConstruct)
	l.NumberPrototype = vm.NewObject(l.ObjectPrototype, Undefined)
	l.Number = vm.defineClass("Number", l.NumberPrototype, numberCall, numberConstruct)
	l.BooleanPrototype = vm.NewObject(l.ObjectPrototype, Undefined)
	l.Boolean = vm.defineClass("Boolean", l.BooleanPrototype, booleanCall, booleanConstruct)

	l.ErrorPrototype = vm.NewObject(l.ObjectPrototype, Undefined)
	l.Error = vm.defineErrorClass("Error", l.ErrorPrototype)
	l.RangeErrorPrototype = vm.NewObject(l.ErrorPrototype, Undefined)
	l.RangeError = vm.defineErrorClass("RangeError", l.RangeErrorPrototype)
	l.ReferenceErrorPrototype = vm.NewObject(l.ErrorPrototype, Undefined)
	l.ReferenceError = vm.defineErrorClass("ReferenceError", l.ReferenceErrorPrototype)
	l.TypeErrorPrototype = vm.NewObject(l.ErrorPrototype, Undefined)
	l.TypeError = vm.defineErrorClass("TypeError", l.TypeErrorPrototype)

	vm.DefineMethod(l.ObjectPrototype, "toString", objectToString)
	vm.DefineMethod(l.ObjectPrototype, "valueOf", objectValueOf)
	vm.DefineMethod(l.ObjectPrototype, "hasOwnProperty", objectHasOwnProperty)
	vm.DefineMethod(l.Object, "keys", objectKeys)
	vm.DefineMethod(l.FunctionPrototype, "toString", functionToString)
	vm.DefineMethod(l.FunctionPrototype, "call", functionCall)
	vm.DefineMethod(l.ArrayPrototype, "toString", arrayToString)
	vm.DefineMethod(l.ArrayPrototype, "join", arrayJoin)
	vm.DefineMethod(l.ArrayPrototype, "push", arrayPush)
	vm.DefineMethod(l.ArrayPrototype, "pop", arrayPop)
	vm.DefineMethod(l.StringPrototype, "toString", stringValueOf)
	vm.DefineMethod(l.StringPrototype, "valueOf", stringValueOf)
	vm.DefineMethod(l.StringPrototype, "charAt", stringCharAt)
	vm.DefineMethod(l.NumberPrototype, "toString", numberToString)
	vm.DefineMethod(l.NumberPrototype, "valueOf", numberValueOf)
	vm.DefineMethod(l.BooleanPrototype, "toString", booleanToString)
	vm.DefineMethod(l.BooleanPrototype, "valueOf", booleanValueOf)
	vm.DefineMethod(l.ErrorPrototype, "toString", errorToString)
	vm.PutHidden(l.ErrorPrototype, "message", vm.NewString(""))

	global := vm.NewObject(l.ObjectPrototype, l.Object)
	vm.GlobalScope = NewGlobalScope(vm, global)
	for _, c := range []Value{
		l.Object, l.Function, l.Array, l.String, l.Number, l.Boolean,
		l.Error, l.RangeError, l.ReferenceError, l.TypeError,
	} {
		vm.PutHidden(global, vm.FunctionOf(c).Name, c)
	}
	vm.PutHidden(global, "NaN", Number(math.NaN()))
	vm.PutHidden(global, "Infinity", Number(math.Inf(1)))
	vm.PutHidden(global, "undefined", Undefined)
}

// defineClass creates a constructor whose prototype property is proto.
func (vm *VM) defineClass(name string, proto Value, call, construct NativeFunc) Value {
	ctor := vm.NewNativeFunction(name, nil, call, construct)
	vm.PutHidden(ctor, "prototype", proto)
	vm.PutHidden(proto, "constructor", ctor)
	return ctor
}

// defineErrorClass creates an error constructor. Its host state points at
// the constructor itself so a plain call knows which class to instantiate.
func (vm *VM) defineErrorClass(name string, proto Value) Value {
	self := new(Value)
	ctor := vm.NewNativeFunction(name, self, errorCall, errorConstruct)
	*self = ctor
	vm.PutHidden(ctor, "prototype", proto)
	vm.PutHidden(proto, "constructor", ctor)
	vm.PutHidden(proto, "name", vm.NewString(name))
	return ctor
}

// DefineMethod installs a non-enumerable native method on obj.
func (vm *VM) DefineMethod(obj Value, name string, fn NativeFunc) Value {
	m := vm.NewNativeFunction(name, nil, fn, nil)
	vm.PutHidden(obj, name, m)
	return m
}

func arg(args []Value, i int) Value {
	if i < len(args) {
		return args[i]
	}
	return Undefined
}

// ---------------------------------------------------------------------------
// Object
// ---------------------------------------------------------------------------

func objectCtor(vm *VM, _ any, _ Value, args []Value) (Value, error) {
	v := arg(args, 0)
	if v.IsNullish() {
		return vm.MakeObject(), nil
	}
	return vm.ToObject(v)
}

func objectToString(vm *VM, _ any, this Value, _ []Value) (Value, error) {
	var tag string
	switch vm.KindOf(this) {
	case KindUndefined:
		tag = "Undefined"
	case KindNull:
		tag = "Null"
	case KindArray:
		tag = "Array"
	case KindFunction:
		tag = "Function"
	case KindString, KindStringObject:
		tag = "String"
	case KindNumber, KindNumberObject:
		tag = "Number"
	case KindBoolean, KindBooleanObject:
		tag = "Boolean"
	default:
		tag = "Object"
	}
	return vm.NewString("[object " + tag + "]"), nil
}

func objectValueOf(vm *VM, _ any, this Value, _ []Value) (Value, error) {
	return vm.ToObject(this)
}

func objectHasOwnProperty(vm *VM, _ any, this Value, args []Value) (Value, error) {
	obj, err := vm.ToObject(this)
	if err != nil {
		return Undefined, err
	}
	key, err := vm.ToGoString(arg(args, 0))
	if err != nil {
		return Undefined, err
	}
	_, ok := vm.object(obj).getOwn(vm, key)
	return Bool(ok), nil
}

func objectKeys(vm *VM, _ any, _ Value, args []Value) (Value, error) {
	obj := arg(args, 0)
	if vm.IsPrimitive(obj) {
		return Undefined, vm.TypeError("Object.keys called on non-object")
	}
	keys := vm.Keys(obj)
	items := make([]Value, len(keys))
	for i, k := range keys {
		items[i] = vm.NewString(k)
	}
	return vm.NewArray(items), nil
}

// ---------------------------------------------------------------------------
// Function
// ---------------------------------------------------------------------------

func functionCtor(vm *VM, _ any, _ Value, _ []Value) (Value, error) {
	return Undefined, vm.TypeError("Function constructor is not supported")
}

func functionToString(vm *VM, _ any, this Value, _ []Value) (Value, error) {
	if !vm.IsCallable(this) {
		return Undefined, vm.TypeError("Function.prototype.toString called on incompatible receiver")
	}
	f := vm.FunctionOf(this)
	if f.IsNative {
		return vm.NewString("function " + f.Name + "() { [native code] }"), nil
	}
	return vm.NewString("function () { [compiled code] }"), nil
}

func functionCall(vm *VM, _ any, this Value, args []Value) (Value, error) {
	if !vm.IsCallable(this) {
		return Undefined, vm.TypeError("Function.prototype.call called on incompatible receiver")
	}
	var rest []Value
	if len(args) > 1 {
		rest = args[1:]
	}
	return vm.Call(this, arg(args, 0), rest)
}

// ---------------------------------------------------------------------------
// Array
// ---------------------------------------------------------------------------

func arrayCtor(vm *VM, _ any, _ Value, args []Value) (Value, error) {
	if len(args) == 1 && args[0].IsNumber() {
		n := args[0].Float64()
		if n < 0 || n != float64(uint32(n)) || n > maxDenseGrowth {
			return Undefined, vm.RangeError("invalid array length")
		}
		a := vm.NewArray(nil)
		vm.ArrayOf(a).SetLength(int(n))
		return a, nil
	}
	return vm.NewArray(args), nil
}

func thisArray(vm *VM, this Value, method string) (*ArrayObject, error) {
	if this.IsHeap() {
		if a, ok := vm.Heap.Deref(this).(*ArrayObject); ok {
			return a, nil
		}
	}
	return nil, vm.TypeError("Array.prototype.%s called on incompatible receiver", method)
}

func arrayToString(vm *VM, _ any, this Value, _ []Value) (Value, error) {
	return arrayJoin(vm, nil, this, nil)
}

func arrayJoin(vm *VM, _ any, this Value, args []Value) (Value, error) {
	a, err := thisArray(vm, this, "join")
	if err != nil {
		return Undefined, err
	}
	sep := ","
	if !arg(args, 0).IsUndefined() {
		var s Value
		if err := vm.ScanArgs(args, "s", &s); err != nil {
			return Undefined, err
		}
		sep = vm.StringOf(s)
	}
	parts := make([]string, a.Len())
	for i := range parts {
		item := a.At(i)
		if item.IsNullish() {
			continue
		}
		if parts[i], err = vm.ToGoString(item); err != nil {
			return Undefined, err
		}
	}
	return vm.NewString(strings.Join(parts, sep)), nil
}

func arrayPush(vm *VM, _ any, this Value, args []Value) (Value, error) {
	a, err := thisArray(vm, this, "push")
	if err != nil {
		return Undefined, err
	}
	for _, v := range args {
		a.Append(v)
	}
	vm.account(this)
	return Number(float64(a.Len())), nil
}

func arrayPop(vm *VM, _ any, this Value, _ []Value) (Value, error) {
	a, err := thisArray(vm, this, "pop")
	if err != nil {
		return Undefined, err
	}
	n := a.Len()
	if n == 0 {
		return Undefined, nil
	}
	v := a.At(n - 1)
	a.SetLength(n - 1)
	return v, nil
}

// ---------------------------------------------------------------------------
// String, Number, Boolean
// ---------------------------------------------------------------------------

func stringCall(vm *VM, _ any, _ Value, args []Value) (Value, error) {
	if len(args) == 0 {
		return vm.NewString(""), nil
	}
	return vm.ToString(args[0])
}

func stringConstruct(vm *VM, _ any, _ Value, args []Value) (Value, error) {
	s, err := stringCall(vm, nil, Undefined, args)
	if err != nil {
		return Undefined, err
	}
	return vm.MakeStringObject(s), nil
}

func thisString(vm *VM, this Value, method string) (Value, error) {
	if vm.IsString(this) {
		return this, nil
	}
	if this.IsHeap() {
		if o, ok := vm.Heap.Deref(this).(*StringObject); ok {
			return o.value, nil
		}
	}
	return Undefined, vm.TypeError("String.prototype.%s called on incompatible receiver", method)
}

func stringValueOf(vm *VM, _ any, this Value, _ []Value) (Value, error) {
	return thisString(vm, this, "valueOf")
}

func stringCharAt(vm *VM, _ any, this Value, args []Value) (Value, error) {
	s, err := thisString(vm, this, "charAt")
	if err != nil {
		return Undefined, err
	}
	var n Value
	if err := vm.ScanArgs(args, "n", &n); err != nil {
		return Undefined, err
	}
	pos := n.Float64()
	str := vm.StringOf(s)
	if pos != pos {
		pos = 0
	}
	if pos < 0 || pos >= float64(len(str)) {
		return vm.NewString(""), nil
	}
	i := int(pos)
	return vm.NewString(str[i : i+1]), nil
}

func numberCall(vm *VM, _ any, _ Value, args []Value) (Value, error) {
	if len(args) == 0 {
		return Number(0), nil
	}
	return vm.ToNumber(args[0])
}

func numberConstruct(vm *VM, _ any, _ Value, args []Value) (Value, error) {
	n, err := numberCall(vm, nil, Undefined, args)
	if err != nil {
		return Undefined, err
	}
	return vm.MakeNumberObject(n.Float64()), nil
}

func thisNumber(vm *VM, this Value, method string) (Value, error) {
	if this.IsNumber() {
		return this, nil
	}
	if this.IsHeap() {
		if o, ok := vm.Heap.Deref(this).(*NumberObject); ok {
			return Number(o.value), nil
		}
	}
	return Undefined, vm.TypeError("Number.prototype.%s called on incompatible receiver", method)
}

func numberToString(vm *VM, _ any, this Value, _ []Value) (Value, error) {
	n, err := thisNumber(vm, this, "toString")
	if err != nil {
		return Undefined, err
	}
	return vm.NewString(FormatNumber(n.Float64())), nil
}

func numberValueOf(vm *VM, _ any, this Value, _ []Value) (Value, error) {
	return thisNumber(vm, this, "valueOf")
}

func booleanCall(vm *VM, _ any, _ Value, args []Value) (Value, error) {
	return Bool(vm.ToBoolean(arg(args, 0))), nil
}

func booleanConstruct(vm *VM, _ any, _ Value, args []Value) (Value, error) {
	return vm.MakeBooleanObject(vm.ToBoolean(arg(args, 0))), nil
}

func thisBoolean(vm *VM, this Value, method string) (Value, error) {
	if this.IsBoolean() {
		return this, nil
	}
	if this.IsHeap() {
		if o, ok := vm.Heap.Deref(this).(*BooleanObject); ok {
			return Bool(o.value), nil
		}
	}
	return Undefined, vm.TypeError("Boolean.prototype.%s called on incompatible receiver", method)
}

func booleanToString(vm *VM, _ any, this Value, _ []Value) (Value, error) {
	b, err := thisBoolean(vm, this, "toString")
	if err != nil {
		return Undefined, err
	}
	return vm.ToString(b)
}

func booleanValueOf(vm *VM, _ any, this Value, _ []Value) (Value, error) {
	return thisBoolean(vm, this, "valueOf")
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

func errorCall(vm *VM, state any, _ Value, args []Value) (Value, error) {
	class := *state.(*Value)
	message := ""
	if !arg(args, 0).IsUndefined() {
		var m Value
		if err := vm.ScanArgs(args, "s", &m); err != nil {
			return Undefined, err
		}
		message = vm.StringOf(m)
	}
	return vm.MakeError(class, message), nil
}

func errorConstruct(vm *VM, _ any, this Value, args []Value) (Value, error) {
	if !arg(args, 0).IsUndefined() {
		var s Value
		if err := vm.ScanArgs(args, "s", &s); err != nil {
			return Undefined, err
		}
		vm.PutHidden(this, "message", s)
	}
	return Undefined, nil
}

func errorToString(vm *VM, _ any, this Value, _ []Value) (Value, error) {
	if vm.IsPrimitive(this) {
		return Undefined, vm.TypeError("Error.prototype.toString called on non-object")
	}
	part := func(key, fallback string) (string, error) {
		v, err := vm.Get(this, key)
		if err != nil || v.IsUndefined() {
			return fallback, err
		}
		return vm.ToGoString(v)
	}
	name, err := part("name", "Error")
	if err != nil {
		return Undefined, err
	}
	msg, err := part("message", "")
	if err != nil {
		return Undefined, err
	}
	switch {
	case name == "":
		return vm.NewString(msg), nil
	case msg == "":
		return vm.NewString(name), nil
	}
	return vm.NewString(name + ": " + msg), nil
}
