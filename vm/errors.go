package vm

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Host-fatal violations
// ---------------------------------------------------------------------------

// Fatal is panicked when host glue breaks a precondition the executor is
// supposed to guarantee: a primitive where an object is required, calling a
// non-callable, a malformed value. It is never delivered to script handlers.
type Fatal struct {
	Message string
}

func (f *Fatal) Error() string {
	return "fatal: " + f.Message
}

// Panicf halts the environment with a host-fatal violation.
func Panicf(format string, args ...any) {
	panic(&Fatal{Message: fmt.Sprintf(format, args...)})
}

// RecoverFatal converts a Fatal panic into an error stored in *errp.
// Other panics are re-raised. It must be called directly by a deferred
// function at the outermost boundary.
func RecoverFatal(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	if f, ok := r.(*Fatal); ok {
		*errp = f
		return
	}
	panic(r)
}

// ---------------------------------------------------------------------------
// Catchable script errors
// ---------------------------------------------------------------------------

// Exception is a thrown script value travelling up the Go call stack.
// Script-level handlers catch it; anything else passes it along unchanged.
type Exception struct {
	Value Value
	vm    *VM
}

// Error renders the thrown value with ToString. Conversion failures fall
// back to the value's kind.
func (e *Exception) Error() string {
	if e.vm == nil {
		return "exception"
	}
	s, err := e.vm.ToGoString(e.Value)
	if err != nil {
		return "exception (" + e.vm.KindOf(e.Value).String() + ")"
	}
	return s
}

// Throw wraps v as a thrown script value.
func (vm *VM) Throw(v Value) error {
	return &Exception{Value: v, vm: vm}
}

// AsException reports whether err carries a thrown script value.
func AsException(err error) (*Exception, bool) {
	var ex *Exception
	if errors.As(err, &ex) {
		return ex, true
	}
	return nil, false
}

// MakeError creates an instance of the error class with the given message.
func (vm *VM) MakeError(class Value, message string) Value {
	proto, err := vm.Get(class, "prototype")
	if err != nil || !vm.IsObject(proto) {
		proto = vm.Lib.ErrorPrototype
	}
	obj := vm.NewObject(proto, class)
	vm.object(obj).Base().props.set("message", Property{
		Value:        vm.NewString(message),
		Writable:     true,
		Configurable: true,
	})
	return obj
}

// ThrowError returns an Exception holding a new instance of class.
func (vm *VM) ThrowError(class Value, format string, args ...any) error {
	return vm.Throw(vm.MakeError(class, fmt.Sprintf(format, args...)))
}

// ThrowMessage returns an Exception holding a plain Error.
func (vm *VM) ThrowMessage(format string, args ...any) error {
	return vm.ThrowError(vm.Lib.Error, format, args...)
}

// TypeError returns an Exception holding a TypeError.
func (vm *VM) TypeError(format string, args ...any) error {
	return vm.ThrowError(vm.Lib.TypeError, format, args...)
}

// ReferenceError returns an Exception holding a ReferenceError.
func (vm *VM) ReferenceError(format string, args ...any) error {
	return vm.ThrowError(vm.Lib.ReferenceError, format, args...)
}

// RangeError returns an Exception holding a RangeError.
func (vm *VM) RangeError(format string, args ...any) error {
	return vm.ThrowError(vm.Lib.RangeError, format, args...)
}
