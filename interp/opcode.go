package interp

import (
	"fmt"
)

// ---------------------------------------------------------------------------
// Opcode definitions
// ---------------------------------------------------------------------------

// Opcode is a single instruction of the reference executor.
type Opcode byte

// Stack operations
const (
	OpNop Opcode = iota // no operation
	OpPop               // discard top of stack
	OpDup               // duplicate top of stack
)

// Constants
const (
	OpUndefined Opcode = iota + 0x10 // push undefined
	OpNull                           // push null
	OpTrue                           // push true
	OpFalse                          // push false
	OpNumber                         // push inline float64
	OpString                         // push string from the pool
	OpThis                           // push the receiver
	OpArg                            // push argument i, undefined when missing
)

// Variables and properties
const (
	OpGetLocal     Opcode = iota + 0x20 // push slot i, h scopes up
	OpSetLocal                          // pop into slot i, h scopes up
	OpGetGlobal                         // push global s
	OpSetGlobal                         // pop into global s
	OpHasGlobal                         // push whether global s exists
	OpDeleteGlobal                      // delete global s, push the result
	OpGetProp                           // pop obj, push obj[s]
	OpSetProp                           // pop obj and v, obj[s] = v
	OpGetIndex                          // pop obj and key, push obj[key]
	OpSetIndex                          // pop obj, key and v, obj[key] = v
)

// Construction and calls
const (
	OpObject     Opcode = iota + 0x30 // push a fresh object
	OpArray                           // pop n items, push an array
	OpFunction                        // push a closure over section sec
	OpCall                            // pop fn and n args, push the result
	OpCallMethod                      // pop obj and n args, push obj[s](args)
	OpNew                             // pop ctor and n args, push the instance
)

// Operators
const (
	OpAdd Opcode = iota + 0x40
	OpSub
	OpMul
	OpDiv
	OpMod
	OpNeg
	OpLT
	OpGT
	OpLE
	OpGE
	OpEq
	OpNe
	OpStrictEq
	OpStrictNe
	OpNot
	OpTypeOf
)

// Control flow
const (
	OpJump         Opcode = iota + 0x60 // jump to target
	OpJumpTrue                          // pop, jump if truthy
	OpJumpFalse                         // pop, jump if falsy
	OpReturn                            // return top of stack
	OpReturnUndef                       // return undefined
	OpThrow                             // pop and throw
	OpTry                               // install a handler at target
	OpEndTry                            // remove the innermost handler
)

// ---------------------------------------------------------------------------
// Opcode metadata
// ---------------------------------------------------------------------------

// OperandKind describes how an operand is encoded and printed.
type OperandKind uint8

const (
	OperandU32     OperandKind = iota // plain unsigned integer
	OperandF64                        // inline float64
	OperandString                     // string pool index
	OperandLabel                      // code offset
	OperandSection                    // section index
)

// Size returns the encoded width of an operand.
func (k OperandKind) Size() int {
	if k == OperandF64 {
		return 8
	}
	return 4
}

// OpcodeInfo holds metadata about an opcode.
type OpcodeInfo struct {
	Name     string
	Operands []OperandKind
}

var (
	noOperands = []OperandKind{}
	oneU32     = []OperandKind{OperandU32}
	oneString  = []OperandKind{OperandString}
	oneLabel   = []OperandKind{OperandLabel}
)

var opcodeTable = map[Opcode]OpcodeInfo{
	OpNop: {"nop", noOperands},
	OpPop: {"pop", noOperands},
	OpDup: {"dup", noOperands},

	OpUndefined: {"undefined", noOperands},
	OpNull:      {"null", noOperands},
	OpTrue:      {"true", noOperands},
	OpFalse:     {"false", noOperands},
	OpNumber:    {"number", []OperandKind{OperandF64}},
	OpString:    {"string", oneString},
	OpThis:      {"this", noOperands},
	OpArg:       {"arg", oneU32},

	OpGetLocal:     {"get_local", []OperandKind{OperandU32, OperandU32}},
	OpSetLocal:     {"set_local", []OperandKind{OperandU32, OperandU32}},
	OpGetGlobal:    {"get_global", oneString},
	OpSetGlobal:    {"set_global", oneString},
	OpHasGlobal:    {"has_global", oneString},
	OpDeleteGlobal: {"delete_global", oneString},
	OpGetProp:      {"get_prop", oneString},
	OpSetProp:      {"set_prop", oneString},
	OpGetIndex:     {"get_index", noOperands},
	OpSetIndex:     {"set_index", noOperands},

	OpObject:     {"object", noOperands},
	OpArray:      {"array", oneU32},
	OpFunction:   {"function", []OperandKind{OperandSection}},
	OpCall:       {"call", oneU32},
	OpCallMethod: {"call_method", []OperandKind{OperandString, OperandU32}},
	OpNew:        {"new", oneU32},

	OpAdd:      {"add", noOperands},
	OpSub:      {"sub", noOperands},
	OpMul:      {"mul", noOperands},
	OpDiv:      {"div", noOperands},
	OpMod:      {"mod", noOperands},
	OpNeg:      {"neg", noOperands},
	OpLT:       {"lt", noOperands},
	OpGT:       {"gt", noOperands},
	OpLE:       {"le", noOperands},
	OpGE:       {"ge", noOperands},
	OpEq:       {"eq", noOperands},
	OpNe:       {"ne", noOperands},
	OpStrictEq: {"seq", noOperands},
	OpStrictNe: {"sne", noOperands},
	OpNot:      {"not", noOperands},
	OpTypeOf:   {"typeof", noOperands},

	OpJump:        {"jmp", oneLabel},
	OpJumpTrue:    {"jt", oneLabel},
	OpJumpFalse:   {"jf", oneLabel},
	OpReturn:      {"ret", noOperands},
	OpReturnUndef: {"ret_undefined", noOperands},
	OpThrow:       {"throw", noOperands},
	OpTry:         {"try", oneLabel},
	OpEndTry:      {"end_try", noOperands},
}

// opcodeByName is the assembler's view of opcodeTable.
var opcodeByName = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeTable))
	for op, info := range opcodeTable {
		m[info.Name] = op
	}
	return m
}()

// Info returns the metadata for an opcode.
func (op Opcode) Info() (OpcodeInfo, bool) {
	info, ok := opcodeTable[op]
	return info, ok
}

// Width returns the encoded length of the instruction, opcode byte included.
func (info OpcodeInfo) Width() int {
	n := 1
	for _, k := range info.Operands {
		n += k.Size()
	}
	return n
}

// String implements the Stringer interface.
func (op Opcode) String() string {
	if info, ok := opcodeTable[op]; ok {
		return info.Name
	}
	return fmt.Sprintf("unknown_%02x", byte(op))
}
