package vm

// String is an immutable heap string. Its bytes hold no references, so
// strings are allocated in no-scan blocks.
type String struct {
	s string
}

func (s *String) Kind() Kind { return KindString }

func (s *String) trace(*Tracer) {}

// Len returns the length in bytes.
func (s *String) Len() int { return len(s.s) }

func (s *String) String() string { return s.s }

// NewString allocates a string value.
func (vm *VM) NewString(s string) Value {
	return vm.Heap.AllocNoScan(&String{s: s}, sizeString+uint64(len(s)))
}

// IsString returns true if v is a string primitive.
func (vm *VM) IsString(v Value) bool {
	return v.IsHeap() && vm.Heap.Deref(v).Kind() == KindString
}

// StringOf returns the contents of a string primitive.
// Panics if v is not a string.
func (vm *VM) StringOf(v Value) string {
	if !v.IsHeap() {
		Panicf("StringOf: not a string")
	}
	s, ok := vm.Heap.Deref(v).(*String)
	if !ok {
		Panicf("StringOf: not a string")
	}
	return s.s
}
