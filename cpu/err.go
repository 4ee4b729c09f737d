package cpu

import (
	"errors"

	"github.com/ezrec/chip8/translate"
)

var f = translate.From

var (
	// Cpu errors
	ErrStackEmpty      = errors.New(f("return with empty stack"))
	ErrStackFull       = errors.New(f("call with full stack"))
	ErrMemoryBounds    = errors.New(f("memory address out of range"))
	ErrGridBounds      = errors.New(f("pixel out of range"))
	ErrProgramTooLarge = errors.New(f("program too large"))
	ErrDisplay         = errors.New(f("display failure"))

	// Assembler errors
	ErrEquateSyntax       = errors.New(f(".equ syntax"))
	ErrEquateDuplicate    = errors.New(f(".equ duplicated"))
	ErrLabelDuplicate     = errors.New(f("label duplicated"))
	ErrMacroSyntax        = errors.New(f(".macro syntax"))
	ErrMacroNesting       = errors.New(f(".macro in .macro prohibited"))
	ErrMacroDuplicate     = errors.New(f(".macro duplicated"))
	ErrMacroLonely        = errors.New(f(".macro without .endm"))
	ErrMacroLonelyEndm    = errors.New(f(".endm without .macro"))
	ErrOpcodeExtraArgs    = errors.New(f("excessive arguments"))
	ErrOpcodeMissing      = errors.New(f("operand missing"))
	ErrOpcodeInvalid      = errors.New(f("operand invalid"))
	ErrRegisterInvalid    = errors.New(f("register invalid"))
	ErrInstructionInvalid = errors.New(f("instruction invalid"))
	ErrValueRange         = errors.New(f("value out of range"))
)

// ErrOpcode is an instruction word that does not decode to any operation.
type ErrOpcode struct {
	Code Code   // Offending instruction word.
	Pc   uint16 // Address the word was fetched from.
}

func (eo ErrOpcode) Error() string {
	return f("invalid instruction '0x%02X 0x%02X' at pc 0x%03X", eo.Code.High(), eo.Code.Byte(), eo.Pc)
}

func (eo ErrOpcode) Is(err error) (ok bool) {
	_, ok = err.(ErrOpcode)
	return
}

// ErrAddress is an access outside of memory or the pixel grid.
type ErrAddress struct {
	Err     error // ErrMemoryBounds or ErrGridBounds
	Address int
}

func (err ErrAddress) Error() string {
	return f("%v: 0x%X", err.Err, err.Address)
}

func (err ErrAddress) Unwrap() error {
	return err.Err
}

// ErrProgramSize rejects a program image that does not fit above 0x200.
type ErrProgramSize struct {
	Size int
}

func (err ErrProgramSize) Error() string {
	return f("program too large: %v bytes, limit %v", err.Size, PROGRAM_LIMIT)
}

func (err ErrProgramSize) Is(target error) bool {
	return target == ErrProgramTooLarge
}

// ErrFault is a fatal condition raised while executing an instruction.
type ErrFault struct {
	Pc   uint16 // Address of the faulting instruction.
	Code Code   // Faulting instruction word.
	Err  error
}

func (err *ErrFault) Error() string {
	return f("fault at pc 0x%03X (0x%02X 0x%02X): %v", err.Pc, err.Code.High(), err.Code.Byte(), err.Err)
}

func (err *ErrFault) Unwrap() error {
	return err.Err
}

type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("label %v missing", string(el))
}

type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseCharacter string

func (err ErrParseCharacter) Error() string {
	return f("'%v' is not a character", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

type ErrMacro struct {
	Macro string
	Line  int
	Err   error
}

func (err ErrMacro) Error() string {
	return f("macro %v line %v %v", err.Macro, err.Line, err.Err.Error())
}

func (err ErrMacro) Unwrap() error {
	return err.Err
}
