// Package cpu implements the SM83 fetch/decode/execute loop of §4.7:
// cycle accuracy is emergent from the bus accesses each step performs,
// never a stored per-opcode count.
package cpu

import (
	"github.com/dmgcore/gbcore/internal/bus"
	"github.com/dmgcore/gbcore/internal/gberr"
	"github.com/dmgcore/gbcore/internal/register"
)

// CPU owns the register file and drives the shared Bus.
type CPU struct {
	Regs register.File
	Bus  *bus.Bus

	halted bool
}

func New(b *bus.Bus) *CPU {
	c := &CPU{Bus: b}
	c.Regs.Reset()
	return c
}

func (c *CPU) read8(addr uint16) byte     { return c.Bus.Read(addr) }
func (c *CPU) write8(addr uint16, v byte) { c.Bus.Write(addr, v) }

func (c *CPU) fetch8() byte {
	v := c.Bus.Read(c.Regs.PC)
	c.Regs.PC++
	return v
}

func (c *CPU) fetch16() uint16 {
	lo := uint16(c.fetch8())
	hi := uint16(c.fetch8())
	return lo | hi<<8
}

func (c *CPU) push16(v uint16) {
	c.Bus.Tick() // internal: SP decrement
	c.Regs.SP--
	c.write8(c.Regs.SP, byte(v>>8))
	c.Regs.SP--
	c.write8(c.Regs.SP, byte(v))
}

func (c *CPU) pop16() uint16 {
	lo := uint16(c.read8(c.Regs.SP))
	c.Regs.SP++
	hi := uint16(c.read8(c.Regs.SP))
	c.Regs.SP++
	return lo | hi<<8
}

// getReg8/setReg8 implement the canonical 0-7 register index: B,C,D,E,H,L,
// (HL),A (§4.1). Index 6 always goes through the bus.
func (c *CPU) getReg8(idx byte) byte {
	switch idx {
	case 0:
		return c.Regs.B
	case 1:
		return c.Regs.C
	case 2:
		return c.Regs.D
	case 3:
		return c.Regs.E
	case 4:
		return c.Regs.H
	case 5:
		return c.Regs.L
	case 6:
		return c.read8(c.Regs.HL())
	case 7:
		return c.Regs.A
	default:
		panic(&gberr.InvariantViolation{Msg: "getReg8: register selector out of range"})
	}
}

func (c *CPU) setReg8(idx byte, v byte) {
	switch idx {
	case 0:
		c.Regs.B = v
	case 1:
		c.Regs.C = v
	case 2:
		c.Regs.D = v
	case 3:
		c.Regs.E = v
	case 4:
		c.Regs.H = v
	case 5:
		c.Regs.L = v
	case 6:
		c.write8(c.Regs.HL(), v)
	case 7:
		c.Regs.A = v
	default:
		panic(&gberr.InvariantViolation{Msg: "setReg8: register selector out of range"})
	}
}

// getReg16/setReg16 implement the BC/DE/HL/SP pair index used by most
// 16-bit opcodes.
func (c *CPU) getReg16(idx byte) uint16 {
	switch idx {
	case 0:
		return c.Regs.BC()
	case 1:
		return c.Regs.DE()
	case 2:
		return c.Regs.HL()
	case 3:
		return c.Regs.SP
	default:
		panic(&gberr.InvariantViolation{Msg: "getReg16: register pair selector out of range"})
	}
}

func (c *CPU) setReg16(idx byte, v uint16) {
	switch idx {
	case 0:
		c.Regs.SetBC(v)
	case 1:
		c.Regs.SetDE(v)
	case 2:
		c.Regs.SetHL(v)
	case 3:
		c.Regs.SP = v
	default:
		panic(&gberr.InvariantViolation{Msg: "setReg16: register pair selector out of range"})
	}
}

// getReg16Stk/setReg16Stk implement the BC/DE/HL/AF pair index used by
// PUSH/POP, where index 3 is AF instead of SP.
func (c *CPU) getReg16Stk(idx byte) uint16 {
	if idx == 3 {
		return c.Regs.AF()
	}
	return c.getReg16(idx)
}

func (c *CPU) setReg16Stk(idx byte, v uint16) {
	if idx == 3 {
		c.Regs.SetAF(v)
		return
	}
	c.setReg16(idx, v)
}

func (c *CPU) checkCond(cond byte) bool {
	switch cond {
	case 0:
		return !c.Regs.Flag(register.FlagZ)
	case 1:
		return c.Regs.Flag(register.FlagZ)
	case 2:
		return !c.Regs.Flag(register.FlagC)
	default:
		return c.Regs.Flag(register.FlagC)
	}
}

// Step performs one unit of CPU work: one idle M-cycle while halted with
// nothing pending, or the dispatch of a pending interrupt (with no
// instruction executed in that call), or exactly one instruction. Each
// case ends with one Interrupts.Tick() to let a pending EI take effect
// (§4.4, §5).
func (c *CPU) Step() {
	irq := c.Bus.Interrupts

	if c.halted {
		if irq.Pending() {
			c.halted = false
		} else {
			c.Bus.Tick()
			irq.Tick()
			return
		}
	}

	if vector, bit, ok := irq.PendingVector(); ok {
		c.dispatchInterrupt(vector, bit)
		irq.Tick()
		return
	}

	op := c.fetch8()
	d := table[op]
	if d.Op == OpIllegal {
		panic(&gberr.IllegalOpcode{PC: c.Regs.PC - 1, Opcode: op})
	}
	c.execute(d)
	irq.Tick()
}

// dispatchInterrupt pushes PC and jumps to the ISR vector (§4.4): two
// internal M-cycles, then push16's internal M-cycle and its two writes,
// five M-cycles in all.
func (c *CPU) dispatchInterrupt(vector uint16, bit int) {
	c.Bus.Tick()
	c.Bus.Tick()
	c.push16(c.Regs.PC)
	c.Regs.PC = vector
	c.Bus.Interrupts.Acknowledge(bit)
}

func (c *CPU) execute(d Descriptor) {
	switch d.Op {
	case OpNOP:

	case OpLDRR:
		v := c.getReg8(d.R2)
		c.setReg8(d.R1, v)

	case OpLDRImm8:
		v := c.fetch8()
		c.setReg8(d.R1, v)

	case OpLDRR16Imm:
		c.setReg16(d.R1, c.fetch16())

	case OpLDAFromBC:
		c.Regs.A = c.read8(c.Regs.BC())
	case OpLDAFromDE:
		c.Regs.A = c.read8(c.Regs.DE())
	case OpLDBCFromA:
		c.write8(c.Regs.BC(), c.Regs.A)
	case OpLDDEFromA:
		c.write8(c.Regs.DE(), c.Regs.A)

	case OpLDAFromHLI:
		hl := c.Regs.HL()
		c.Regs.A = c.read8(hl)
		c.Regs.SetHL(hl + 1)
	case OpLDAFromHLD:
		hl := c.Regs.HL()
		c.Regs.A = c.read8(hl)
		c.Regs.SetHL(hl - 1)
	case OpLDHLIFromA:
		hl := c.Regs.HL()
		c.write8(hl, c.Regs.A)
		c.Regs.SetHL(hl + 1)
	case OpLDHLDFromA:
		hl := c.Regs.HL()
		c.write8(hl, c.Regs.A)
		c.Regs.SetHL(hl - 1)

	case OpLDHFromA:
		n := uint16(c.fetch8())
		c.write8(0xFF00+n, c.Regs.A)
	case OpLDAFromH:
		n := uint16(c.fetch8())
		c.Regs.A = c.read8(0xFF00 + n)
	case OpLDCIndFromA:
		c.write8(0xFF00+uint16(c.Regs.C), c.Regs.A)
	case OpLDAFromCInd:
		c.Regs.A = c.read8(0xFF00 + uint16(c.Regs.C))

	case OpLDA16FromA:
		addr := c.fetch16()
		c.write8(addr, c.Regs.A)
	case OpLDAFromA16:
		addr := c.fetch16()
		c.Regs.A = c.read8(addr)

	case OpLDSPA16:
		addr := c.fetch16()
		c.write8(addr, byte(c.Regs.SP))
		c.write8(addr+1, byte(c.Regs.SP>>8))

	case OpLDSPHL:
		c.Bus.Tick()
		c.Regs.SP = c.Regs.HL()

	case OpLDHLSPs8:
		off := int8(c.fetch8())
		c.Bus.Tick()
		res, h, cy := addSPOffset(c.Regs.SP, off)
		c.Regs.SetHL(res)
		c.Regs.SetFlags(false, false, h, cy)

	case OpADDSP:
		off := int8(c.fetch8())
		c.Bus.Tick()
		c.Bus.Tick()
		res, h, cy := addSPOffset(c.Regs.SP, off)
		c.Regs.SP = res
		c.Regs.SetFlags(false, false, h, cy)

	case OpPush:
		c.push16(c.getReg16Stk(d.R1))
	case OpPop:
		c.setReg16Stk(d.R1, c.pop16())

	case OpALU:
		c.doALU(d.Param, c.getReg8(d.R2))
	case OpALUImm8:
		c.doALU(d.Param, c.fetch8())

	case OpINC8:
		old := c.getReg8(d.R1)
		v := old + 1
		c.setReg8(d.R1, v)
		c.Regs.SetFlag(register.FlagZ, v == 0)
		c.Regs.SetFlag(register.FlagN, false)
		c.Regs.SetFlag(register.FlagH, old&0x0F == 0x0F)

	case OpDEC8:
		old := c.getReg8(d.R1)
		v := old - 1
		c.setReg8(d.R1, v)
		c.Regs.SetFlag(register.FlagZ, v == 0)
		c.Regs.SetFlag(register.FlagN, true)
		c.Regs.SetFlag(register.FlagH, old&0x0F == 0x00)

	case OpINC16:
		c.Bus.Tick()
		c.setReg16(d.R1, c.getReg16(d.R1)+1)
	case OpDEC16:
		c.Bus.Tick()
		c.setReg16(d.R1, c.getReg16(d.R1)-1)

	case OpADDHL:
		c.Bus.Tick()
		hl := c.Regs.HL()
		rhs := c.getReg16(d.R1)
		res := uint32(hl) + uint32(rhs)
		h := (hl&0x0FFF)+(rhs&0x0FFF) > 0x0FFF
		c.Regs.SetHL(uint16(res))
		c.Regs.SetFlag(register.FlagN, false)
		c.Regs.SetFlag(register.FlagH, h)
		c.Regs.SetFlag(register.FlagC, res > 0xFFFF)

	case OpRLCA:
		cy := c.Regs.A>>7&1 == 1
		c.Regs.A = c.Regs.A<<1 | c.Regs.A>>7
		c.Regs.SetFlags(false, false, false, cy)
	case OpRRCA:
		cy := c.Regs.A&1 == 1
		c.Regs.A = c.Regs.A>>1 | c.Regs.A<<7
		c.Regs.SetFlags(false, false, false, cy)
	case OpRLA:
		cin := byte(0)
		if c.Regs.Flag(register.FlagC) {
			cin = 1
		}
		cy := c.Regs.A>>7&1 == 1
		c.Regs.A = c.Regs.A<<1 | cin
		c.Regs.SetFlags(false, false, false, cy)
	case OpRRA:
		cin := byte(0)
		if c.Regs.Flag(register.FlagC) {
			cin = 1
		}
		cy := c.Regs.A&1 == 1
		c.Regs.A = c.Regs.A>>1 | cin<<7
		c.Regs.SetFlags(false, false, false, cy)

	case OpDAA:
		c.doDAA()
	case OpCPL:
		c.Regs.A = ^c.Regs.A
		c.Regs.SetFlag(register.FlagN, true)
		c.Regs.SetFlag(register.FlagH, true)
	case OpSCF:
		c.Regs.SetFlag(register.FlagN, false)
		c.Regs.SetFlag(register.FlagH, false)
		c.Regs.SetFlag(register.FlagC, true)
	case OpCCF:
		c.Regs.SetFlag(register.FlagN, false)
		c.Regs.SetFlag(register.FlagH, false)
		c.Regs.SetFlag(register.FlagC, !c.Regs.Flag(register.FlagC))

	case OpJR:
		off := int8(c.fetch8())
		if d.Cond == condAlways || c.checkCond(d.Cond) {
			c.Bus.Tick()
			c.Regs.PC = uint16(int32(c.Regs.PC) + int32(off))
		}

	case OpJP:
		addr := c.fetch16()
		if d.Cond == condAlways || c.checkCond(d.Cond) {
			c.Bus.Tick()
			c.Regs.PC = addr
		}
	case OpJPHL:
		c.Regs.PC = c.Regs.HL()

	case OpCALL:
		addr := c.fetch16()
		if d.Cond == condAlways || c.checkCond(d.Cond) {
			c.push16(c.Regs.PC)
			c.Regs.PC = addr
		}

	case OpRET:
		if d.Cond != condAlways {
			c.Bus.Tick()
		}
		if d.Cond == condAlways || c.checkCond(d.Cond) {
			c.Regs.PC = c.pop16()
			c.Bus.Tick()
		}
	case OpRETI:
		c.Regs.PC = c.pop16()
		c.Bus.Tick()
		// RETI re-enables IME immediately, unlike EI's one-instruction delay.
		c.Bus.Interrupts.IME = true

	case OpRST:
		c.push16(c.Regs.PC)
		c.Regs.PC = uint16(d.Param) * 8

	case OpDI:
		c.Bus.Interrupts.DisableImmediate()
	case OpEI:
		c.Bus.Interrupts.RequestEnable()

	case OpHALT:
		c.halted = true

	case OpStop:
		c.fetch8() // STOP's mandatory padding byte

	case OpPrefixCB:
		c.executeCB(c.fetch8())
	}
}

func (c *CPU) doALU(op byte, rhs byte) {
	a := c.Regs.A
	cin := byte(0)
	if c.Regs.Flag(register.FlagC) {
		cin = 1
	}
	switch op {
	case aluADD:
		res := uint16(a) + uint16(rhs)
		c.Regs.A = byte(res)
		c.Regs.SetFlags(c.Regs.A == 0, false, (a&0x0F)+(rhs&0x0F) > 0x0F, res > 0xFF)
	case aluADC:
		res := uint16(a) + uint16(rhs) + uint16(cin)
		c.Regs.A = byte(res)
		c.Regs.SetFlags(c.Regs.A == 0, false, (a&0x0F)+(rhs&0x0F)+cin > 0x0F, res > 0xFF)
	case aluSUB:
		res := int16(a) - int16(rhs)
		c.Regs.A = byte(res)
		c.Regs.SetFlags(c.Regs.A == 0, true, a&0x0F < rhs&0x0F, a < rhs)
	case aluSBC:
		res := int16(a) - int16(rhs) - int16(cin)
		c.Regs.A = byte(res)
		c.Regs.SetFlags(c.Regs.A == 0, true, int16(a&0x0F) < int16(rhs&0x0F)+int16(cin), int16(a) < int16(rhs)+int16(cin))
	case aluAND:
		c.Regs.A = a & rhs
		c.Regs.SetFlags(c.Regs.A == 0, false, true, false)
	case aluXOR:
		c.Regs.A = a ^ rhs
		c.Regs.SetFlags(c.Regs.A == 0, false, false, false)
	case aluOR:
		c.Regs.A = a | rhs
		c.Regs.SetFlags(c.Regs.A == 0, false, false, false)
	case aluCP:
		c.Regs.SetFlags(a == rhs, true, a&0x0F < rhs&0x0F, a < rhs)
	}
}

// doDAA adjusts A after a BCD ADD/SUB per §4.7, using the N/H/C flags left
// by the preceding operation.
func (c *CPU) doDAA() {
	a := c.Regs.A
	n := c.Regs.Flag(register.FlagN)
	h := c.Regs.Flag(register.FlagH)
	cy := c.Regs.Flag(register.FlagC)

	var adjust byte
	newCarry := cy
	if n {
		if h {
			adjust |= 0x06
		}
		if cy {
			adjust |= 0x60
		}
		a -= adjust
	} else {
		if h || a&0x0F > 0x09 {
			adjust |= 0x06
		}
		if cy || a > 0x99 {
			adjust |= 0x60
			newCarry = true
		}
		a += adjust
	}
	c.Regs.A = a
	c.Regs.SetFlag(register.FlagZ, a == 0)
	c.Regs.SetFlag(register.FlagH, false)
	c.Regs.SetFlag(register.FlagC, newCarry)
}

// addSPOffset implements the unsigned-low-byte half/full carry rule the
// spec requires for ADD SP,s8 and LD HL,SP+s8 (§4.7).
func addSPOffset(sp uint16, off int8) (res uint16, h, cy bool) {
	res = uint16(int32(sp) + int32(off))
	low := byte(sp)
	sum := uint16(low) + uint16(byte(off))
	h = (low&0x0F)+(byte(off)&0x0F) > 0x0F
	cy = sum > 0xFF
	return
}
