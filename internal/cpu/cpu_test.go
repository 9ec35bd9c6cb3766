package cpu

import (
	"testing"

	"github.com/dmgcore/gbcore/internal/bus"
	"github.com/dmgcore/gbcore/internal/cart"
	"github.com/dmgcore/gbcore/internal/gberr"
	"github.com/dmgcore/gbcore/internal/gblog"
	"github.com/dmgcore/gbcore/internal/register"
	"github.com/stretchr/testify/require"
)

func newCPUWithROM(t *testing.T, code []byte) *CPU {
	t.Helper()
	rom := make([]byte, 0x8000)
	copy(rom, code)
	rom[0x0147] = 0x00
	rom[0x0148] = 0x00
	rom[0x0149] = 0x00
	rom[0x014D] = cart.HeaderChecksum(rom)
	c, err := cart.New(rom)
	require.NoError(t, err)
	b := bus.New(c, gblog.Null())
	cpu := New(b)
	cpu.Regs.PC = 0
	return cpu
}

func TestCPU_NOP(t *testing.T) {
	c := newCPUWithROM(t, []byte{0x00})
	c.Step()
	require.Equal(t, uint16(1), c.Regs.PC)
}

func TestCPU_LDAImm8AndXOR(t *testing.T) {
	c := newCPUWithROM(t, []byte{0x3E, 0x12, 0xAF})
	c.Step()
	require.Equal(t, byte(0x12), c.Regs.A)
	c.Step()
	require.Equal(t, byte(0x00), c.Regs.A)
	require.True(t, c.Regs.Flag(register.FlagZ))
}

func TestCPU_PopAFForcesLowNibbleZero(t *testing.T) {
	c := newCPUWithROM(t, []byte{0xF1}) // POP AF
	c.Regs.SP = 0xC000
	c.Bus.Write(0xC000, 0xFF)
	c.Bus.Write(0xC001, 0x12)
	c.Step()
	require.Equal(t, byte(0x00), c.Regs.F&0x0F)
}

// S8 boundary: JR with immediate 0x80 from PC=0x1000 jumps to 0x0F82.
func TestCPU_JRBoundaryNegativeOffset(t *testing.T) {
	code := make([]byte, 0x1002)
	code[0x1000] = 0x18 // JR r8
	code[0x1001] = 0x80 // -128
	c := newCPUWithROM(t, code)
	c.Regs.PC = 0x1000
	c.Step()
	require.Equal(t, uint16(0x0F82), c.Regs.PC)
}

func TestCPU_ADDOverflowSetsAllFlags(t *testing.T) {
	c := newCPUWithROM(t, []byte{0x3E, 0xFF, 0xC6, 0x01}) // LD A,0xFF; ADD A,1
	c.Step()
	c.Step()
	require.Equal(t, byte(0x00), c.Regs.A)
	require.True(t, c.Regs.Flag(register.FlagZ))
	require.False(t, c.Regs.Flag(register.FlagN))
	require.True(t, c.Regs.Flag(register.FlagH))
	require.True(t, c.Regs.Flag(register.FlagC))
}

func TestCPU_DECUnderflow(t *testing.T) {
	c := newCPUWithROM(t, []byte{0x3E, 0x00, 0x3D}) // LD A,0; DEC A
	c.Step()
	c.Step()
	require.Equal(t, byte(0xFF), c.Regs.A)
	require.False(t, c.Regs.Flag(register.FlagZ))
	require.True(t, c.Regs.Flag(register.FlagN))
	require.True(t, c.Regs.Flag(register.FlagH))
}

func TestCPU_DAAAfterAdd(t *testing.T) {
	c := newCPUWithROM(t, []byte{0x3E, 0x45, 0xC6, 0x38, 0x27}) // LD A,0x45; ADD A,0x38; DAA
	c.Step()
	c.Step()
	c.Step()
	require.Equal(t, byte(0x83), c.Regs.A)
	require.False(t, c.Regs.Flag(register.FlagC))
	require.False(t, c.Regs.Flag(register.FlagH))
	require.False(t, c.Regs.Flag(register.FlagZ))
}

func TestCPU_SwapTwiceIsIdentity(t *testing.T) {
	c := newCPUWithROM(t, []byte{0x3E, 0x3C, 0xCB, 0x37, 0xCB, 0x37}) // LD A,0x3C; SWAP A; SWAP A
	c.Step()
	c.Step()
	c.Step()
	require.Equal(t, byte(0x3C), c.Regs.A)
}

func TestCPU_RRRotatesThroughBit7NotBit1(t *testing.T) {
	// RR B with carry set: 0x01 should become 0x80 with carry out 1.
	c := newCPUWithROM(t, []byte{0x37, 0x06, 0x01, 0xCB, 0x18}) // SCF; LD B,1; RR B
	c.Step()
	c.Step()
	c.Step()
	require.Equal(t, byte(0x80), c.Regs.B)
	require.True(t, c.Regs.Flag(register.FlagC))
}

func TestCPU_BITReflectsTestedBitNotWholeRegister(t *testing.T) {
	// BIT 1,A where A=0x01: bit 1 is 0, so Z must be set even though A != 0.
	c := newCPUWithROM(t, []byte{0x3E, 0x01, 0xCB, 0x4F}) // LD A,1; BIT 1,A
	c.Step()
	c.Step()
	require.True(t, c.Regs.Flag(register.FlagZ))
}

func TestCPU_HaltExitsOnPendingIFEvenWithoutDispatch(t *testing.T) {
	c := newCPUWithROM(t, []byte{0x76}) // HALT
	c.Bus.Interrupts.IME = false
	c.Step() // enters HALT
	require.True(t, c.halted)
	c.Bus.Interrupts.IE |= 1 << 0
	c.Bus.Interrupts.Raise(0) // VBlank pending, IME still false
	c.Step()
	require.False(t, c.halted)
}

func TestCPU_EIDelaysIMEByOneInstruction(t *testing.T) {
	c := newCPUWithROM(t, []byte{0xFB, 0x00, 0x00}) // EI; NOP; NOP
	c.Step()                                        // EI
	require.False(t, c.Bus.Interrupts.IME)
	c.Step() // NOP (the instruction after EI)
	require.True(t, c.Bus.Interrupts.IME)
}

func TestCPU_GetReg8OutOfRangeSelectorPanics(t *testing.T) {
	c := newCPUWithROM(t, nil)
	require.PanicsWithValue(t,
		&gberr.InvariantViolation{Msg: "getReg8: register selector out of range"},
		func() { c.getReg8(8) },
	)
}

func TestCPU_GetReg16OutOfRangeSelectorPanics(t *testing.T) {
	c := newCPUWithROM(t, nil)
	require.PanicsWithValue(t,
		&gberr.InvariantViolation{Msg: "getReg16: register pair selector out of range"},
		func() { c.getReg16(4) },
	)
}

func TestCPU_PushPopRoundTrip(t *testing.T) {
	c := newCPUWithROM(t, []byte{0x01, 0xCD, 0xAB, 0xC5, 0xC1}) // LD BC,0xABCD; PUSH BC; POP BC
	c.Regs.SP = 0xD000
	c.Step()
	c.Step()
	c.Regs.SetBC(0)
	c.Step()
	require.Equal(t, uint16(0xABCD), c.Regs.BC())
}
