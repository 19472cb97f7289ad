package interp

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/chazu/jsos/vm"
)

// ---------------------------------------------------------------------------
// Assembler source format
// ---------------------------------------------------------------------------

// Source is the YAML form of an image:
//
//	name: demo
//	sections:
//	  - locals: 1
//	    code: |
//	      number 1
//	      ret
//
// Each code line is an opcode name followed by its operands. A line ending
// in a colon defines a label; '#' starts a comment. String operands are
// either bare words or Go-quoted strings.
type Source struct {
	Name     string          `yaml:"name"`
	Sections []SourceSection `yaml:"sections"`
}

// SourceSection is one section of a Source.
type SourceSection struct {
	Locals uint32 `yaml:"locals"`
	Code   string `yaml:"code"`
}

// ErrSyntax is wrapped by every assembler error.
var ErrSyntax = errors.New("syntax error")

// SyntaxError locates an assembler error.
type SyntaxError struct {
	Section int
	Line    int
	Msg     string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("section %d, line %d: %s", e.Section, e.Line, e.Msg)
}

func (e *SyntaxError) Unwrap() error { return ErrSyntax }

// Assemble parses YAML source and assembles it into an image.
func Assemble(data []byte) (*vm.Image, error) {
	var src Source
	if err := yaml.Unmarshal(data, &src); err != nil {
		return nil, fmt.Errorf("failed to parse assembler source: %w", err)
	}
	return src.Assemble()
}

// Assemble builds an image from s. Sections defining nested functions are
// flagged so their activations live on the heap.
func (s *Source) Assemble() (*vm.Image, error) {
	if len(s.Sections) == 0 {
		return nil, fmt.Errorf("%w: image %q has no sections", ErrSyntax, s.Name)
	}
	a := &assembler{
		img:     &vm.Image{Name: s.Name},
		strings: map[string]uint32{},
	}
	for i, sec := range s.Sections {
		out, err := a.section(i, sec)
		if err != nil {
			return nil, err
		}
		a.img.Sections = append(a.img.Sections, out)
	}
	for i := range a.img.Sections {
		for _, ref := range a.sectionRefs[i] {
			if int(ref.index) >= len(a.img.Sections) {
				return nil, &SyntaxError{Section: i, Line: ref.line, Msg: fmt.Sprintf("no section %d", ref.index)}
			}
		}
	}
	return a.img, nil
}

// ---------------------------------------------------------------------------
// Assembler
// ---------------------------------------------------------------------------

type instruction struct {
	line     int
	op       Opcode
	info     OpcodeInfo
	operands []string
}

type sectionRef struct {
	line  int
	index uint32
}

type assembler struct {
	img         *vm.Image
	strings     map[string]uint32
	sectionRefs map[int][]sectionRef
}

func (a *assembler) intern(s string) uint32 {
	if i, ok := a.strings[s]; ok {
		return i
	}
	i := uint32(len(a.img.Strings))
	a.img.Strings = append(a.img.Strings, s)
	a.strings[s] = i
	return i
}

func (a *assembler) section(index int, src SourceSection) (vm.Section, error) {
	fail := func(line int, format string, args ...any) (vm.Section, error) {
		return vm.Section{}, &SyntaxError{Section: index, Line: line, Msg: fmt.Sprintf(format, args...)}
	}

	// First pass: tokenize and place labels.
	var prog []instruction
	labels := map[string]int{}
	offset := 0
	sc := bufio.NewScanner(strings.NewReader(src.Code))
	for line := 1; sc.Scan(); line++ {
		toks, err := tokenize(sc.Text())
		if err != nil {
			return fail(line, "%v", err)
		}
		if len(toks) == 0 {
			continue
		}
		if len(toks) == 1 && strings.HasSuffix(toks[0], ":") {
			name := strings.TrimSuffix(toks[0], ":")
			if _, dup := labels[name]; dup {
				return fail(line, "label %q redefined", name)
			}
			labels[name] = offset
			continue
		}
		op, ok := opcodeByName[toks[0]]
		if !ok {
			return fail(line, "unknown opcode %q", toks[0])
		}
		info := opcodeTable[op]
		if len(toks)-1 != len(info.Operands) {
			return fail(line, "%s takes %d operands, got %d", info.Name, len(info.Operands), len(toks)-1)
		}
		prog = append(prog, instruction{line: line, op: op, info: info, operands: toks[1:]})
		offset += info.Width()
	}
	if err := sc.Err(); err != nil {
		return vm.Section{}, err
	}

	// Second pass: encode.
	out := vm.Section{LocalCount: src.Locals}
	code := make([]byte, 0, offset)
	for _, ins := range prog {
		code = append(code, byte(ins.op))
		for i, kind := range ins.info.Operands {
			tok := ins.operands[i]
			switch kind {
			case OperandU32:
				n, err := strconv.ParseUint(tok, 10, 32)
				if err != nil {
					return fail(ins.line, "bad operand %q for %s", tok, ins.info.Name)
				}
				code = binary.LittleEndian.AppendUint32(code, uint32(n))
			case OperandSection:
				n, err := strconv.ParseUint(tok, 10, 32)
				if err != nil {
					return fail(ins.line, "bad section %q", tok)
				}
				if a.sectionRefs == nil {
					a.sectionRefs = map[int][]sectionRef{}
				}
				a.sectionRefs[index] = append(a.sectionRefs[index], sectionRef{line: ins.line, index: uint32(n)})
				out.Flags |= vm.FlagHasInnerFuncs
				code = binary.LittleEndian.AppendUint32(code, uint32(n))
			case OperandF64:
				f, err := strconv.ParseFloat(tok, 64)
				if err != nil && !errors.Is(err, strconv.ErrRange) {
					return fail(ins.line, "bad number %q", tok)
				}
				code = binary.LittleEndian.AppendUint64(code, math.Float64bits(f))
			case OperandString:
				code = binary.LittleEndian.AppendUint32(code, a.intern(tok))
			case OperandLabel:
				target, ok := labels[tok]
				if !ok {
					return fail(ins.line, "undefined label %q", tok)
				}
				code = binary.LittleEndian.AppendUint32(code, uint32(target))
			}
		}
	}
	out.Code = code
	return out, nil
}

// tokenize splits a line into words, unquoting Go string literals and
// dropping comments.
func tokenize(line string) ([]string, error) {
	var toks []string
	s := strings.TrimSpace(line)
	for s != "" {
		switch {
		case s[0] == '#':
			return toks, nil
		case s[0] == '"' || s[0] == '`':
			q, err := strconv.QuotedPrefix(s)
			if err != nil {
				return nil, fmt.Errorf("bad string literal %s", s)
			}
			u, _ := strconv.Unquote(q)
			toks = append(toks, u)
			s = s[len(q):]
		default:
			end := strings.IndexAny(s, " \t")
			if end < 0 {
				end = len(s)
			}
			toks = append(toks, s[:end])
			s = s[end:]
		}
		s = strings.TrimLeft(s, " \t")
	}
	return toks, nil
}
