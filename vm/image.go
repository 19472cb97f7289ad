package vm

// SectionFlags describe a compiled section.
type SectionFlags uint32

const (
	// FlagHasInnerFuncs marks sections that create nested functions. Their
	// activations must outlive the call because a closure may capture them.
	FlagHasInnerFuncs SectionFlags = 1 << 0
)

// Section is one compiled code unit of an image.
type Section struct {
	Flags      SectionFlags
	LocalCount uint32
	Code       []byte
}

// HasInnerFuncs reports whether the section defines nested functions.
func (s *Section) HasInnerFuncs() bool {
	return s.Flags&FlagHasInnerFuncs != 0
}

// Image is a compiled unit: an ordered list of sections plus a string pool
// the code refers to by index. Section 0 is the entry point.
type Image struct {
	Name     string
	Strings  []string
	Sections []Section
}

// Section returns section i.
// Panics if i is out of range.
func (img *Image) Section(i int) *Section {
	if i < 0 || i >= len(img.Sections) {
		Panicf("image %q has no section %d", img.Name, i)
	}
	return &img.Sections[i]
}

// String returns pool entry i.
// Panics if i is out of range.
func (img *Image) String(i uint32) string {
	if int(i) >= len(img.Strings) {
		Panicf("image %q has no string %d", img.Name, i)
	}
	return img.Strings[i]
}

// Executor runs compiled sections. The core prepares the activation and
// receiver; the executor walks the code.
type Executor interface {
	Execute(vm *VM, img *Image, section int, scope *Scope, this Value, args []Value) (Value, error)
}
