package interp

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/chazu/jsos/vm"
)

// Disassemble renders every section of img, one instruction per line.
func Disassemble(img *vm.Image) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "image %q\n", img.Name)
	for i := range img.Sections {
		DisassembleSection(&sb, img, i)
	}
	return sb.String()
}

// DisassembleSection writes one section of img to sb.
func DisassembleSection(sb *strings.Builder, img *vm.Image, index int) {
	sec := img.Section(index)
	fmt.Fprintf(sb, "section %d: locals=%d", index, sec.LocalCount)
	if sec.HasInnerFuncs() {
		sb.WriteString(" inner-funcs")
	}
	sb.WriteByte('\n')

	code := sec.Code
	for pc := 0; pc < len(code); {
		op := Opcode(code[pc])
		fmt.Fprintf(sb, "  %04d  %s", pc, op)
		info, ok := op.Info()
		if !ok {
			sb.WriteString("\n")
			pc++
			continue
		}
		if pc+info.Width() > len(code) {
			sb.WriteString(" <truncated>\n")
			return
		}
		at := pc + 1
		for _, kind := range info.Operands {
			sb.WriteByte(' ')
			switch kind {
			case OperandF64:
				f := math.Float64frombits(binary.LittleEndian.Uint64(code[at:]))
				sb.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
			case OperandString:
				n := binary.LittleEndian.Uint32(code[at:])
				if int(n) < len(img.Strings) {
					sb.WriteString(strconv.Quote(img.Strings[n]))
				} else {
					fmt.Fprintf(sb, "<string %d>", n)
				}
			case OperandLabel:
				fmt.Fprintf(sb, "@%04d", binary.LittleEndian.Uint32(code[at:]))
			default:
				fmt.Fprintf(sb, "%d", binary.LittleEndian.Uint32(code[at:]))
			}
			at += kind.Size()
		}
		sb.WriteByte('\n')
		pc += info.Width()
	}
}
