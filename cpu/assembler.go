// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the macro definition.
	Args   []string // Arguments for the macro.
	Lines  []string // Lines of macro text to expand.
}

// Assembler is a single pass macro assembler for the CHIP-8 instruction set.
type Assembler struct {
	Verbose bool     // If set, verbosely logs the assembler actions.
	Opcode  []Opcode // List of generated opcodes.

	predefine map[string]string   // Predefines
	Label     map[string]int      // Map of labels to addresses.
	Equate    map[string]string   // Map of equates.
	Macro     map[string](*Macro) // Map of macros.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

var (
	reCharacter  = regexp.MustCompile(`'\\?[^']'`)
	reExpression = regexp.MustCompile(`\$\([^\$]*\)`)
	reLabel      = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// valueOf returns the value of a simple word.
func (asm *Assembler) valueOf(word string) (value int, err error) {
	if len(word) > 0 && word[0] == '\'' {
		// Character quotes should have been expanded into
		// values in parseLine()
		err = ErrParseCharacter(strings.Trim(word, "'"))
		return
	}
	v64, err := strconv.ParseInt(strings.ReplaceAll(word, "_", ""), 0, 32)
	if err != nil {
		err = ErrParseNumber(word)
		return
	}

	value = int(v64)
	return
}

// byteOf parses an 8-bit immediate. Negative values are two's complement.
func (asm *Assembler) byteOf(word string) (value uint8, err error) {
	v, err := asm.valueOf(word)
	if err != nil {
		return
	}
	if v < -0x80 || v > 0xff {
		err = ErrValueRange
		return
	}
	value = uint8(v)
	return
}

// nibbleOf parses a 4-bit immediate.
func (asm *Assembler) nibbleOf(word string) (value uint8, err error) {
	v, err := asm.valueOf(word)
	if err != nil {
		return
	}
	if v < 0 || v > 0xf {
		err = ErrValueRange
		return
	}
	value = uint8(v)
	return
}

// addrOf parses a 12-bit address. A word that is not a number is taken as
// a label, to be resolved once the whole source has been read.
func (asm *Assembler) addrOf(word string) (addr uint16, label string, err error) {
	v, err := asm.valueOf(word)
	if err != nil {
		if reLabel.MatchString(word) {
			err = nil
			label = word
		}
		return
	}
	if v < 0 || v > 0xfff {
		err = ErrValueRange
		return
	}
	addr = uint16(v)
	return
}

// registerOf parses a v0-vf register name.
func registerOf(word string) (reg uint8, ok bool) {
	word = strings.ToLower(word)
	if len(word) != 2 || word[0] != 'v' {
		return
	}
	n, err := strconv.ParseUint(word[1:], 16, 4)
	if err != nil {
		return
	}
	return uint8(n), true
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value int, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var v int
		v, err = asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			err = nil
			continue
		}
		pred[key] = starlark.MakeInt(v)
	}
	for key, addr := range asm.Label {
		if _, ok := pred[key]; !ok {
			pred[key] = starlark.MakeInt(addr)
		}
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value = int(st_int64)
	return
}

// parseLine parses a single line into words.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Do 'x' evaluations
	line = reCharacter.ReplaceAllStringFunc(line, func(word string) string {
		str := word[1 : len(word)-1]
		if str[0] == '\\' {
			str = str[1:]
			switch str {
			case "\\":
				str = "\\"
			case "n":
				str = "\n"
			case "r":
				str = "\r"
			case "e":
				str = "\033"
			default:
				return word
			}
		} else if len(str) != 1 {
			return word
		}
		return fmt.Sprintf("%v", str[0])
	})

	// Do $() evaluations
	line = reExpression.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%#v", value)
	})
	if err != nil {
		return
	}

	line = strings.ReplaceAll(line, ",", " ")
	words = slices.DeleteFunc(strings.Fields(line), func(a string) bool { return len(a) == 0 })

	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if words[0] == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = words[:0]
		return
	}

	for n, word := range words {
		// Check for equate next
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	for strings.HasSuffix(words[0], ":") {
		label := words[0][:len(words[0])-1]
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}

		if asm.Label == nil {
			asm.Label = make(map[string]int, 16)
		}
		asm.Label[label] = asm.currentAddr()
		words = words[1:]
		if len(words) == 0 {
			return
		}
	}

	// .macro processing
	macro, ok := asm.Macro[words[0]]
	if ok {
		name := words[0]

		args := words[1:]
		if len(args) != len(macro.Args) {
			err = ErrMacroSyntax
			return
		}
		// Turn args into equs
		old_equate := maps.Clone(asm.Equate)
		for n, arg := range macro.Args {
			asm.Equate[arg] = words[1+n]
		}
		defer func() { asm.Equate = old_equate }()

		// Local labels are unique per expansion.
		local := fmt.Sprintf("%v_%v_", name, lineno)

		for n, line := range macro.Lines {
			lineno := macro.LineNo + n

			line = strings.ReplaceAll(line, "@", local)
			words, err = asm.parseLine(line, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}

			err = asm.parseWords(words, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}
		}

		words = nil
		return
	}

	return
}

// currentAddr gets the address the next opcode will be placed at.
func (asm *Assembler) currentAddr() int {
	if len(asm.Opcode) == 0 {
		return PROGRAM_START
	}

	last := asm.Opcode[len(asm.Opcode)-1]

	return last.Addr + len(last.Data)
}

// Parse parses an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {

	scanner := bufio.NewScanner(input)

	var line string
	var lineno int
	var macro *Macro

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	clear(asm.Label)
	asm.Opcode = asm.Opcode[:0]
	if asm.Macro == nil {
		asm.Macro = make(map[string](*Macro))
	}
	clear(asm.Macro)
	asm.Equate = maps.Clone(_cpu_defines)
	asm.Equate["LINENO"] = "0"
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		text_comment := strings.Split(text, ";")
		line = strings.TrimSpace(text_comment[0])
		words := strings.Fields(line)

		// .macro NAME arg...
		if len(words) > 0 && words[0] == ".macro" {
			if macro != nil {
				err = ErrMacroNesting
				return
			}
			if len(words) < 2 {
				err = ErrMacroSyntax
				return
			}
			_, ok := asm.Macro[words[1]]
			if ok {
				err = ErrMacroDuplicate
				return
			}
			macro = &Macro{
				LineNo: lineno + 1,
			}
			if len(words) > 2 {
				macro.Args = words[2:]
			}
			asm.Macro[words[1]] = macro
			continue
		}

		if len(words) > 0 && words[0] == ".endm" {
			if macro == nil {
				err = ErrMacroLonelyEndm
				return
			}
			macro = nil
			continue
		}

		if macro != nil {
			macro.Lines = append(macro.Lines, line)
			continue
		}

		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return
		}
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	if macro != nil {
		err = ErrMacroLonely
		return
	}

	// Final linking of address labels.
	for n := range asm.Opcode {
		op := &asm.Opcode[n]

		if len(op.LinkLabel) == 0 {
			continue
		}
		label := op.LinkLabel
		addr, ok := asm.Label[label]
		if !ok {
			lineno = op.LineNo
			line = strings.Join(op.Words, " ")
			err = ErrLabelMissing(label)
			return
		}
		if addr > 0xfff {
			lineno = op.LineNo
			line = strings.Join(op.Words, " ")
			err = ErrValueRange
			return
		}
		op.Data[0] |= uint8(addr>>8) & 0xf
		op.Data[1] = uint8(addr)
	}

	if asm.currentAddr() > MEMORY_SIZE {
		err = ErrProgramSize{Size: asm.currentAddr() - PROGRAM_START}
		return
	}

	prog = &Program{
		Opcodes: slices.Clone(asm.Opcode),
	}

	return
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	var data []byte
	var label string

	// no-op
	if len(words) == 0 {
		return
	}

	initial_words := words

	defer func() {
		if err != nil || len(data) == 0 {
			return
		}
		opcode := Opcode{LineNo: lineno, Addr: asm.currentAddr(), Words: initial_words, Data: data, LinkLabel: label}
		asm.Opcode = append(asm.Opcode, opcode)
	}()

	emit := func(code Code) {
		data = append(data, code.High(), code.Byte())
	}

	mnemonic := strings.ToLower(words[0])
	args := words[1:]

	argc := func(least, most int) error {
		if len(args) < least {
			return ErrOpcodeMissing
		}
		if len(args) > most {
			return ErrOpcodeExtraArgs
		}
		return nil
	}

	reg := func(n int) (r uint8, err error) {
		r, ok := registerOf(args[n])
		if !ok {
			err = ErrRegisterInvalid
		}
		return
	}

	is := func(n int, name string) bool {
		return n < len(args) && strings.ToLower(args[n]) == name
	}

	// family XKK or XY0 forms: se/sne
	regOrByte := func(familyByte, familyReg uint8) (err error) {
		if err = argc(2, 2); err != nil {
			return
		}
		x, err := reg(0)
		if err != nil {
			return
		}
		if y, ok := registerOf(args[1]); ok {
			emit(MakeCodeXYN(familyReg, x, y, 0))
			return
		}
		kk, err := asm.byteOf(args[1])
		if err != nil {
			return
		}
		emit(MakeCodeXKK(familyByte, x, kk))
		return
	}

	address := func(family uint8, word string) (err error) {
		addr, link, err := asm.addrOf(word)
		if err != nil {
			return
		}
		label = link
		emit(MakeCodeAddr(family, addr))
		return
	}

	switch mnemonic {
	case ".byte":
		if err = argc(1, len(args)); err != nil {
			return
		}
		for _, word := range args {
			var b uint8
			b, err = asm.byteOf(word)
			if err != nil {
				return
			}
			data = append(data, b)
		}
	case ".word":
		if err = argc(1, len(args)); err != nil {
			return
		}
		for _, word := range args {
			var v int
			v, err = asm.valueOf(word)
			if err != nil {
				return
			}
			if v < -0x8000 || v > 0xffff {
				err = ErrValueRange
				return
			}
			emit(Code(uint16(v)))
		}
	case "cls":
		if err = argc(0, 0); err != nil {
			return
		}
		emit(0x00e0)
	case "ret":
		if err = argc(0, 0); err != nil {
			return
		}
		emit(0x00ee)
	case "sys":
		if err = argc(1, 1); err != nil {
			return
		}
		err = address(0x0, args[0])
	case "jp":
		if err = argc(1, 2); err != nil {
			return
		}
		if len(args) == 2 {
			if !is(0, "v0") {
				err = ErrRegisterInvalid
				return
			}
			err = address(0xb, args[1])
			return
		}
		err = address(0x1, args[0])
	case "call":
		if err = argc(1, 1); err != nil {
			return
		}
		err = address(0x2, args[0])
	case "se":
		err = regOrByte(0x3, 0x5)
	case "sne":
		err = regOrByte(0x4, 0x9)
	case "add":
		if err = argc(2, 2); err != nil {
			return
		}
		if is(0, "i") {
			var x uint8
			if x, err = reg(1); err != nil {
				return
			}
			emit(MakeCodeXKK(0xf, x, 0x1e))
			return
		}
		var x uint8
		if x, err = reg(0); err != nil {
			return
		}
		if y, ok := registerOf(args[1]); ok {
			emit(MakeCodeXYN(0x8, x, y, 0x4))
			return
		}
		var kk uint8
		if kk, err = asm.byteOf(args[1]); err != nil {
			return
		}
		emit(MakeCodeXKK(0x7, x, kk))
	case "or", "and", "xor", "sub", "subn", "shr", "shl":
		n := map[string]uint8{"or": 1, "and": 2, "xor": 3, "sub": 5, "shr": 6, "subn": 7, "shl": 0xe}[mnemonic]
		least := 2
		if n == 6 || n == 0xe {
			least = 1
		}
		if err = argc(least, 2); err != nil {
			return
		}
		var x, y uint8
		if x, err = reg(0); err != nil {
			return
		}
		y = x
		if len(args) == 2 {
			if y, err = reg(1); err != nil {
				return
			}
		}
		emit(MakeCodeXYN(0x8, x, y, n))
	case "rnd":
		if err = argc(2, 2); err != nil {
			return
		}
		var x, kk uint8
		if x, err = reg(0); err != nil {
			return
		}
		if kk, err = asm.byteOf(args[1]); err != nil {
			return
		}
		emit(MakeCodeXKK(0xc, x, kk))
	case "drw":
		if err = argc(3, 3); err != nil {
			return
		}
		var x, y, n uint8
		if x, err = reg(0); err != nil {
			return
		}
		if y, err = reg(1); err != nil {
			return
		}
		if n, err = asm.nibbleOf(args[2]); err != nil {
			return
		}
		emit(MakeCodeXYN(0xd, x, y, n))
	case "skp", "sknp":
		if err = argc(1, 1); err != nil {
			return
		}
		var x uint8
		if x, err = reg(0); err != nil {
			return
		}
		kk := uint8(0x9e)
		if mnemonic == "sknp" {
			kk = 0xa1
		}
		emit(MakeCodeXKK(0xe, x, kk))
	case "ld":
		if err = argc(2, 2); err != nil {
			return
		}
		err = asm.parseLoad(args, emit, address)
	default:
		err = ErrInstructionInvalid
		return
	}

	return
}

// The special operands of ld, mapped to their FX?? sub-opcode and
// split by which side of the instruction vx is on.
var (
	loadFrom = map[string]uint8{"dt": 0x07, "k": 0x0a, "[i]": 0x65} // ld vx <special>
	loadTo   = map[string]uint8{"dt": 0x15, "st": 0x18, "f": 0x29, "b": 0x33, "[i]": 0x55}
)

// parseLoad encodes the many forms of ld.
func (asm *Assembler) parseLoad(args []string, emit func(Code), address func(uint8, string) error) (err error) {
	dst := strings.ToLower(args[0])
	src := strings.ToLower(args[1])

	if dst == "i" {
		return address(0xa, args[1])
	}

	if kk, ok := loadTo[dst]; ok {
		x, ok := registerOf(src)
		if !ok {
			return ErrRegisterInvalid
		}
		emit(MakeCodeXKK(0xf, x, kk))
		return
	}

	x, ok := registerOf(dst)
	if !ok {
		return ErrOpcodeInvalid
	}

	if kk, ok := loadFrom[src]; ok {
		emit(MakeCodeXKK(0xf, x, kk))
		return
	}

	if y, ok := registerOf(src); ok {
		emit(MakeCodeXYN(0x8, x, y, 0))
		return
	}

	kk, err := asm.byteOf(args[1])
	if err != nil {
		return
	}
	emit(MakeCodeXKK(0x6, x, kk))
	return
}
