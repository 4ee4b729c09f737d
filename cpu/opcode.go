package cpu

import (
	"fmt"
)

// Code is a raw 16-bit instruction word, high byte first in memory.
type Code uint16

// Family returns the instruction group, bits 15-12.
func (code Code) Family() uint8 {
	return uint8(code >> 12)
}

// Address returns the low 12 bits.
func (code Code) Address() uint16 {
	return uint16(code) & 0x0fff
}

// X returns the second nibble, bits 11-8.
func (code Code) X() uint8 {
	return uint8(code>>8) & 0xf
}

// Y returns the third nibble, bits 7-4.
func (code Code) Y() uint8 {
	return uint8(code>>4) & 0xf
}

// Nibble returns the fourth nibble, bits 3-0.
func (code Code) Nibble() uint8 {
	return uint8(code) & 0xf
}

// Byte returns the low byte, bits 7-0.
func (code Code) Byte() uint8 {
	return uint8(code)
}

// High returns the high byte, bits 15-8.
func (code Code) High() uint8 {
	return uint8(code >> 8)
}

// MakeCodeAddr creates an instruction from a family and 12-bit address.
func MakeCodeAddr(family uint8, addr uint16) Code {
	return Code(uint16(family&0xf)<<12 | addr&0x0fff)
}

// MakeCodeXKK creates an instruction from a family, register and immediate byte.
func MakeCodeXKK(family uint8, x uint8, kk uint8) Code {
	return Code(uint16(family&0xf)<<12 | uint16(x&0xf)<<8 | uint16(kk))
}

// MakeCodeXYN creates an instruction from a family, two registers and a nibble.
func MakeCodeXYN(family uint8, x uint8, y uint8, n uint8) Code {
	return Code(uint16(family&0xf)<<12 | uint16(x&0xf)<<8 | uint16(y&0xf)<<4 | uint16(n&0xf))
}

// Op is a decoded operation.
type Op int

//go:generate go tool stringer -linecomment -type=Op
const (
	OP_INVALID   = Op(0)  // invalid
	OP_CLS       = Op(1)  // cls
	OP_RET       = Op(2)  // ret
	OP_SYS       = Op(3)  // sys
	OP_JP        = Op(4)  // jp
	OP_CALL      = Op(5)  // call
	OP_SE_BYTE   = Op(6)  // se
	OP_SNE_BYTE  = Op(7)  // sne
	OP_SE_REG    = Op(8)  // se
	OP_LD_BYTE   = Op(9)  // ld
	OP_ADD_BYTE  = Op(10) // add
	OP_LD_REG    = Op(11) // ld
	OP_OR        = Op(12) // or
	OP_AND       = Op(13) // and
	OP_XOR       = Op(14) // xor
	OP_ADD_REG   = Op(15) // add
	OP_SUB       = Op(16) // sub
	OP_SHR       = Op(17) // shr
	OP_SUBN      = Op(18) // subn
	OP_SHL       = Op(19) // shl
	OP_SNE_REG   = Op(20) // sne
	OP_LD_I      = Op(21) // ld
	OP_JP_V0     = Op(22) // jp
	OP_RND       = Op(23) // rnd
	OP_DRW       = Op(24) // drw
	OP_SKP       = Op(25) // skp
	OP_SKNP      = Op(26) // sknp
	OP_LD_VX_DT  = Op(27) // ld
	OP_LD_VX_K   = Op(28) // ld
	OP_LD_DT_VX  = Op(29) // ld
	OP_LD_ST_VX  = Op(30) // ld
	OP_ADD_I_VX  = Op(31) // add
	OP_LD_F_VX   = Op(32) // ld
	OP_LD_B_VX   = Op(33) // ld
	OP_LD_MEM_VX = Op(34) // ld
	OP_LD_VX_MEM = Op(35) // ld
)

// Instruction is a decoded instruction word. Operands not used by Op are zero.
type Instruction struct {
	Op   Op
	Code Code   // Raw instruction word.
	X    uint8  // First register operand.
	Y    uint8  // Second register operand.
	N    uint8  // Sprite height.
	Byte uint8  // Immediate value.
	Addr uint16 // 12-bit address.
}

// aluOps is the 8XYn sub-dispatch table.
var aluOps = [16]Op{
	0x0: OP_LD_REG,
	0x1: OP_OR,
	0x2: OP_AND,
	0x3: OP_XOR,
	0x4: OP_ADD_REG,
	0x5: OP_SUB,
	0x6: OP_SHR,
	0x7: OP_SUBN,
	0xe: OP_SHL,
}

// Decode maps an instruction word to its operation. It never fails;
// unrecognized words decode to OP_INVALID.
func Decode(code Code) (ins Instruction) {
	ins.Code = code

	addr := code.Address()
	x := code.X()
	y := code.Y()
	kk := code.Byte()
	n := code.Nibble()

	withAddr := func(op Op) Instruction {
		return Instruction{Op: op, Code: code, Addr: addr}
	}
	withX := func(op Op) Instruction {
		return Instruction{Op: op, Code: code, X: x}
	}
	withXKK := func(op Op) Instruction {
		return Instruction{Op: op, Code: code, X: x, Byte: kk}
	}
	withXY := func(op Op) Instruction {
		return Instruction{Op: op, Code: code, X: x, Y: y}
	}

	switch code.Family() {
	case 0x0:
		switch addr {
		case 0x0e0:
			ins.Op = OP_CLS
		case 0x0ee:
			ins.Op = OP_RET
		default:
			ins = withAddr(OP_SYS)
		}
	case 0x1:
		ins = withAddr(OP_JP)
	case 0x2:
		ins = withAddr(OP_CALL)
	case 0x3:
		ins = withXKK(OP_SE_BYTE)
	case 0x4:
		ins = withXKK(OP_SNE_BYTE)
	case 0x5:
		if n == 0 {
			ins = withXY(OP_SE_REG)
		}
	case 0x6:
		ins = withXKK(OP_LD_BYTE)
	case 0x7:
		ins = withXKK(OP_ADD_BYTE)
	case 0x8:
		if op := aluOps[n]; op != OP_INVALID {
			ins = withXY(op)
		}
	case 0x9:
		if n == 0 {
			ins = withXY(OP_SNE_REG)
		}
	case 0xa:
		ins = withAddr(OP_LD_I)
	case 0xb:
		ins = withAddr(OP_JP_V0)
	case 0xc:
		ins = withXKK(OP_RND)
	case 0xd:
		ins = Instruction{Op: OP_DRW, Code: code, X: x, Y: y, N: n}
	case 0xe:
		switch kk {
		case 0x9e:
			ins = withX(OP_SKP)
		case 0xa1:
			ins = withX(OP_SKNP)
		}
	case 0xf:
		switch kk {
		case 0x07:
			ins = withX(OP_LD_VX_DT)
		case 0x0a:
			ins = withX(OP_LD_VX_K)
		case 0x15:
			ins = withX(OP_LD_DT_VX)
		case 0x18:
			ins = withX(OP_LD_ST_VX)
		case 0x1e:
			ins = withX(OP_ADD_I_VX)
		case 0x29:
			ins = withX(OP_LD_F_VX)
		case 0x33:
			ins = withX(OP_LD_B_VX)
		case 0x55:
			ins = withX(OP_LD_MEM_VX)
		case 0x65:
			ins = withX(OP_LD_VX_MEM)
		}
	}

	return
}

// String returns the assembly language representation of this instruction.
func (ins Instruction) String() (out string) {
	name := ins.Op.String()

	switch ins.Op {
	case OP_CLS, OP_RET:
		out = name
	case OP_SYS, OP_JP, OP_CALL:
		out = fmt.Sprintf("%v 0x%03x", name, ins.Addr)
	case OP_LD_I:
		out = fmt.Sprintf("%v i 0x%03x", name, ins.Addr)
	case OP_JP_V0:
		out = fmt.Sprintf("%v v0 0x%03x", name, ins.Addr)
	case OP_SE_BYTE, OP_SNE_BYTE, OP_LD_BYTE, OP_ADD_BYTE, OP_RND:
		out = fmt.Sprintf("%v v%x 0x%02x", name, ins.X, ins.Byte)
	case OP_SE_REG, OP_SNE_REG, OP_LD_REG, OP_OR, OP_AND, OP_XOR,
		OP_ADD_REG, OP_SUB, OP_SHR, OP_SUBN, OP_SHL:
		out = fmt.Sprintf("%v v%x v%x", name, ins.X, ins.Y)
	case OP_DRW:
		out = fmt.Sprintf("%v v%x v%x %d", name, ins.X, ins.Y, ins.N)
	case OP_SKP, OP_SKNP:
		out = fmt.Sprintf("%v v%x", name, ins.X)
	case OP_LD_VX_DT:
		out = fmt.Sprintf("%v v%x dt", name, ins.X)
	case OP_LD_VX_K:
		out = fmt.Sprintf("%v v%x k", name, ins.X)
	case OP_LD_DT_VX:
		out = fmt.Sprintf("%v dt v%x", name, ins.X)
	case OP_LD_ST_VX:
		out = fmt.Sprintf("%v st v%x", name, ins.X)
	case OP_ADD_I_VX:
		out = fmt.Sprintf("%v i v%x", name, ins.X)
	case OP_LD_F_VX:
		out = fmt.Sprintf("%v f v%x", name, ins.X)
	case OP_LD_B_VX:
		out = fmt.Sprintf("%v b v%x", name, ins.X)
	case OP_LD_MEM_VX:
		out = fmt.Sprintf("%v [i] v%x", name, ins.X)
	case OP_LD_VX_MEM:
		out = fmt.Sprintf("%v v%x [i]", name, ins.X)
	default:
		out = fmt.Sprintf("%v 0x%04x", OP_INVALID.String(), uint16(ins.Code))
	}

	return
}
