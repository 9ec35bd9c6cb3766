package cpu

import "github.com/dmgcore/gbcore/internal/register"

// executeCB performs one 0xCB-prefixed operation (§4.8). reg 0-7 uses the
// same B,C,D,E,H,L,(HL),A index as the main table; (HL) costs its read and
// (for the mutating groups) write through the bus automatically.
func (c *CPU) executeCB(b byte) {
	op, bitIdx, reg := decodeCB(b)
	v := c.getReg8(reg)

	switch op {
	case CBRLC:
		cy := v>>7&1 == 1
		v = v<<1 | v>>7
		c.setReg8(reg, v)
		c.Regs.SetFlags(v == 0, false, false, cy)
	case CBRRC:
		cy := v&1 == 1
		v = v>>1 | v<<7
		c.setReg8(reg, v)
		c.Regs.SetFlags(v == 0, false, false, cy)
	case CBRL:
		cin := byte(0)
		if c.Regs.Flag(register.FlagC) {
			cin = 1
		}
		cy := v>>7&1 == 1
		v = v<<1 | cin
		c.setReg8(reg, v)
		c.Regs.SetFlags(v == 0, false, false, cy)
	case CBRR:
		cin := byte(0)
		if c.Regs.Flag(register.FlagC) {
			cin = 1
		}
		cy := v&1 == 1
		// Carry feeds back into bit 7, not bit 1 — a rotate-through-carry
		// that shifted the carry-in left by only one bit would corrupt
		// every bit above it.
		v = v>>1 | cin<<7
		c.setReg8(reg, v)
		c.Regs.SetFlags(v == 0, false, false, cy)
	case CBSLA:
		cy := v>>7&1 == 1
		v = v << 1
		c.setReg8(reg, v)
		c.Regs.SetFlags(v == 0, false, false, cy)
	case CBSRA:
		cy := v&1 == 1
		v = v>>1 | v&0x80
		c.setReg8(reg, v)
		c.Regs.SetFlags(v == 0, false, false, cy)
	case CBSWAP:
		v = v<<4 | v>>4
		c.setReg8(reg, v)
		c.Regs.SetFlags(v == 0, false, false, false)
	case CBSRL:
		cy := v&1 == 1
		v = v >> 1
		c.setReg8(reg, v)
		c.Regs.SetFlags(v == 0, false, false, cy)

	case CBBIT:
		// Z must reflect the tested bit being zero, not the register's
		// overall zero-ness — the two coincide only when bitIdx==0.
		zero := v>>bitIdx&1 == 0
		c.Regs.SetFlag(register.FlagZ, zero)
		c.Regs.SetFlag(register.FlagN, false)
		c.Regs.SetFlag(register.FlagH, true)

	case CBRES:
		c.setReg8(reg, v&^(1<<bitIdx))

	case CBSET:
		c.setReg8(reg, v|1<<bitIdx)
	}
}
