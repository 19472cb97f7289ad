package vm

// ScanArgs validates and converts host-function arguments against a format
// string, one character per output:
//
//	N  number, TypeError otherwise          n  ToNumber
//	S  string, TypeError otherwise          s  ToString
//	B  boolean, TypeError otherwise         b  ToBoolean
//	I  number truncated to uint32 (*uint32)
//
// Missing arguments read as undefined; extra arguments are ignored. Every
// output is a *Value except for I. Converted outputs stay rooted while later
// arguments convert; once ScanArgs returns they are the caller's to root.
func (vm *VM) ScanArgs(args []Value, format string, outs ...any) error {
	if len(outs) != len(format) {
		Panicf("ScanArgs: format %q wants %d outputs, got %d", format, len(format), len(outs))
	}
	defer vm.PopRoots(len(vm.temps))
	for i := 0; i < len(format); i++ {
		arg := Undefined
		if i < len(args) {
			arg = args[i]
		}
		switch format[i] {
		case 'N':
			if !arg.IsNumber() {
				return vm.TypeError("Expected number in argument #%d", i+1)
			}
			*valueOut(outs[i]) = arg
		case 'n':
			v, err := vm.ToNumber(arg)
			if err != nil {
				return err
			}
			*valueOut(outs[i]) = v
		case 'S':
			if !vm.IsString(arg) {
				return vm.TypeError("Expected string in argument #%d", i+1)
			}
			*valueOut(outs[i]) = arg
		case 's':
			v, err := vm.ToString(arg)
			if err != nil {
				return err
			}
			vm.PushRoot(v)
			*valueOut(outs[i]) = v
		case 'B':
			if !arg.IsBoolean() {
				return vm.TypeError("Expected boolean in argument #%d", i+1)
			}
			*valueOut(outs[i]) = arg
		case 'b':
			*valueOut(outs[i]) = Bool(vm.ToBoolean(arg))
		case 'I':
			if !arg.IsNumber() {
				return vm.TypeError("Expected number in argument #%d", i+1)
			}
			p, ok := outs[i].(*uint32)
			if !ok {
				Panicf("ScanArgs: argument #%d wants *uint32, got %T", i+1, outs[i])
			}
			*p = float64ToUint32(arg.Float64())
		default:
			Panicf("ScanArgs: unknown format character %q", format[i])
		}
	}
	return nil
}

func valueOut(out any) *Value {
	p, ok := out.(*Value)
	if !ok {
		Panicf("ScanArgs: want *Value, got %T", out)
	}
	return p
}
