package cpu

import (
	"log"
)

// Execute applies a single decoded instruction to the machine.
// pc is expected to already point past the instruction.
func (cpu *Cpu) Execute(ins Instruction) (err error) {
	if cpu.Verbose {
		log.Printf("%03x: %v", cpu.Pc-2, ins)
	}

	v := &cpu.Register
	x := ins.X
	y := ins.Y

	switch ins.Op {
	case OP_SYS:
		// Machine code routines are not emulated.
	case OP_CLS:
		clear(cpu.Grid[:])
		cpu.display.Clear()
	case OP_RET:
		pc, ok := cpu.Stack.Pop()
		if !ok {
			err = ErrStackEmpty
			return
		}
		cpu.Pc = pc
	case OP_JP:
		cpu.Pc = ins.Addr
	case OP_CALL:
		if !cpu.Stack.Push(cpu.Pc) {
			err = ErrStackFull
			return
		}
		cpu.Pc = ins.Addr
	case OP_SE_BYTE:
		cpu.skipIf(v[x] == ins.Byte)
	case OP_SNE_BYTE:
		cpu.skipIf(v[x] != ins.Byte)
	case OP_SE_REG:
		cpu.skipIf(v[x] == v[y])
	case OP_SNE_REG:
		cpu.skipIf(v[x] != v[y])
	case OP_LD_BYTE:
		v[x] = ins.Byte
	case OP_ADD_BYTE:
		v[x] += ins.Byte
	case OP_LD_REG:
		v[x] = v[y]
	case OP_OR:
		v[x] |= v[y]
	case OP_AND:
		v[x] &= v[y]
	case OP_XOR:
		v[x] ^= v[y]
	case OP_ADD_REG:
		sum := uint16(v[x]) + uint16(v[y])
		v[REG_VF] = uint8(sum >> 8)
		v[x] = uint8(sum)
	case OP_SUB:
		rx, ry := v[x], v[y]
		v[REG_VF] = flag(rx >= ry)
		v[x] = rx - ry
	case OP_SUBN:
		rx, ry := v[x], v[y]
		v[REG_VF] = flag(ry >= rx)
		v[x] = ry - rx
	case OP_SHR:
		// The source is vy, and the result lands in both vy and vx.
		ry := v[y]
		out := ry & 1
		v[y] = ry >> 1
		v[x] = ry >> 1
		v[REG_VF] = out
	case OP_SHL:
		ry := v[y]
		out := ry >> 7
		v[y] = ry << 1
		v[x] = ry << 1
		v[REG_VF] = out
	case OP_LD_I:
		cpu.I = ins.Addr
	case OP_JP_V0:
		cpu.Pc = ins.Addr + uint16(v[0])
	case OP_RND:
		v[x] = cpu.Random() & ins.Byte
	case OP_DRW:
		err = cpu.draw(v[x], v[y], ins.N)
	case OP_SKP:
		cpu.skipIf(cpu.keyDown(v[x]))
	case OP_SKNP:
		cpu.skipIf(!cpu.keyDown(v[x]))
	case OP_LD_VX_DT:
		v[x] = cpu.Delay
	case OP_LD_VX_K:
		key, ok := cpu.input.BlockForKey()
		if !ok {
			if cpu.Verbose {
				log.Printf("cpu: halt")
			}
			cpu.Halt = true
			break
		}
		v[x] = key
	case OP_LD_DT_VX:
		cpu.Delay = v[x]
	case OP_LD_ST_VX:
		cpu.Sound = v[x]
	case OP_ADD_I_VX:
		sum := uint32(cpu.I) + uint32(v[x])
		v[REG_VF] = uint8(sum >> 16)
		cpu.I = uint16(sum)
	case OP_LD_F_VX:
		cpu.I = FONT_BASE + uint16(v[x])*FONT_GLYPH_SIZE
	case OP_LD_B_VX:
		var mem []byte
		mem, err = cpu.memoryAt(cpu.I, 3)
		if err != nil {
			return
		}
		val := v[x]
		mem[0] = val / 100
		mem[1] = (val / 10) % 10
		mem[2] = val % 10
	case OP_LD_MEM_VX:
		count := int(x) + 1
		var mem []byte
		mem, err = cpu.memoryAt(cpu.I, count)
		if err != nil {
			return
		}
		copy(mem, v[:count])
		cpu.I += uint16(count)
	case OP_LD_VX_MEM:
		count := int(x) + 1
		var mem []byte
		mem, err = cpu.memoryAt(cpu.I, count)
		if err != nil {
			return
		}
		copy(v[:count], mem)
		cpu.I += uint16(count)
	default:
		err = ErrOpcode{Code: ins.Code, Pc: cpu.Pc - 2}
		return
	}

	if err == nil {
		cpu.Ticks++
	}

	return
}

// skipIf steps over the next instruction when cond holds.
func (cpu *Cpu) skipIf(cond bool) {
	if cond {
		cpu.Pc += 2
	}
}

// keyDown polls the keypad. Values past the last key are never down.
func (cpu *Cpu) keyDown(key uint8) bool {
	if key >= KEY_COUNT {
		return false
	}
	return cpu.input.IsKeyDown(key)
}

// memoryAt returns count bytes of memory starting at addr. Reading no bytes
// never faults; otherwise the first address past memory is reported.
func (cpu *Cpu) memoryAt(addr uint16, count int) (mem []byte, err error) {
	if count == 0 {
		return
	}

	start := int(addr)
	end := start + count
	if end > MEMORY_SIZE {
		err = ErrAddress{Err: ErrMemoryBounds, Address: max(start, MEMORY_SIZE)}
		return
	}

	mem = cpu.Memory[start:end]
	return
}

func flag(cond bool) uint8 {
	if cond {
		return 1
	}
	return 0
}
