// Package bus implements the CPU-visible address space of §3/§4.2: it
// decodes every access to cartridge, WRAM, HRAM, or a peripheral, and
// ticks Timer, PPU, and DMA in that fixed order exactly once per access
// (§5 — "the bus is the only component allowed to drive other
// components' clocks").
package bus

import (
	"io"

	"github.com/dmgcore/gbcore/internal/cart"
	"github.com/dmgcore/gbcore/internal/dma"
	"github.com/dmgcore/gbcore/internal/gblog"
	"github.com/dmgcore/gbcore/internal/interrupt"
	"github.com/dmgcore/gbcore/internal/joypad"
	"github.com/dmgcore/gbcore/internal/ppu"
	"github.com/dmgcore/gbcore/internal/timer"
)

// Bus owns every memory-mapped peripheral and the cartridge.
type Bus struct {
	Cart cart.Cartridge

	wram [0x2000]byte // 0xC000-0xDFFF, echoed at 0xE000-0xFDFF
	hram [0x7F]byte   // 0xFF80-0xFFFE

	Interrupts *interrupt.Controller
	Timer      *timer.Timer
	PPU        *ppu.PPU
	DMA        *dma.Engine
	Joypad     *joypad.Joypad

	sb     byte // 0xFF01 serial data
	sc     byte // 0xFF02 serial control
	dmaReg byte // 0xFF46, last page written

	serialSink io.Writer

	log gblog.Logger
}

// New wires a fresh set of peripherals around the given cartridge.
func New(c cart.Cartridge, log gblog.Logger) *Bus {
	if log == nil {
		log = gblog.Null()
	}
	irq := &interrupt.Controller{}
	b := &Bus{
		Cart:       c,
		Interrupts: irq,
		Timer:      timer.New(irq),
		PPU:        ppu.New(irq),
		DMA:        &dma.Engine{},
		Joypad:     joypad.New(irq),
		log:        log,
	}
	return b
}

// SetSerialSink directs bytes written through the serial port (§4.9: a
// write of 0x81 to 0xFF02 forwards SB and raises the Serial interrupt).
func (b *Bus) SetSerialSink(w io.Writer) { b.serialSink = w }

// tickPeripherals advances Timer, PPU (four T-states), then DMA, in that
// order, exactly once per bus access (§5).
func (b *Bus) tickPeripherals() {
	b.Timer.Tick()
	for i := 0; i < 4; i++ {
		b.PPU.Tick()
	}
	if b.DMA.Active() {
		b.DMA.Step(b.dmaRead, b.PPU.DMAWrite)
	}
}

// dmaRead sources DMA bytes from the full address space except OAM itself,
// mirroring how real DMA reads the bus rather than VRAM/OAM directly.
func (b *Bus) dmaRead(addr uint16) byte {
	switch {
	case addr < 0x8000:
		return b.Cart.Read(addr)
	case addr >= 0x8000 && addr <= 0x9FFF:
		return b.PPU.CPURead(addr)
	case addr >= 0xA000 && addr <= 0xBFFF:
		return b.Cart.Read(addr)
	case addr >= 0xC000 && addr <= 0xDFFF:
		return b.wram[addr-0xC000]
	case addr >= 0xE000 && addr <= 0xFDFF:
		return b.wram[addr-0x2000-0xC000]
	default:
		return 0xFF
	}
}

// Read performs one 8-bit CPU read and ticks the bus exactly once (§5).
func (b *Bus) Read(addr uint16) byte {
	v := b.readNoTick(addr)
	b.tickPeripherals()
	return v
}

// Read16 performs two 8-bit reads, little-endian, each ticking the bus
// once (§4.2: "a 16-bit access is two 8-bit bus accesses").
func (b *Bus) Read16(addr uint16) uint16 {
	lo := b.Read(addr)
	hi := b.Read(addr + 1)
	return uint16(lo) | uint16(hi)<<8
}

// Write performs one 8-bit CPU write and ticks the bus exactly once.
func (b *Bus) Write(addr uint16, v byte) {
	b.writeNoTick(addr, v)
	b.tickPeripherals()
}

// Write16 performs two 8-bit writes, little-endian.
func (b *Bus) Write16(addr uint16, v uint16) {
	b.Write(addr, byte(v))
	b.Write(addr+1, byte(v>>8))
}

// Tick advances peripherals by one bus access with no associated CPU
// transfer, used for internal M-cycles (e.g. ALU-only opcodes still cost
// a cycle, §4.2 "internal" cycles).
func (b *Bus) Tick() { b.tickPeripherals() }

func (b *Bus) readNoTick(addr uint16) byte {
	switch {
	case addr < 0x8000:
		return b.Cart.Read(addr)
	case addr >= 0x8000 && addr <= 0x9FFF:
		return b.PPU.CPURead(addr)
	case addr >= 0xA000 && addr <= 0xBFFF:
		return b.Cart.Read(addr)
	case addr >= 0xC000 && addr <= 0xDFFF:
		return b.wram[addr-0xC000]
	case addr >= 0xE000 && addr <= 0xFDFF:
		return b.wram[addr-0x2000-0xC000]
	case addr >= 0xFE00 && addr <= 0xFE9F:
		if b.DMA.Active() {
			return 0xFF
		}
		return b.PPU.CPURead(addr)
	case addr >= 0xFEA0 && addr <= 0xFEFF:
		return 0x00 // unusable range (§3)
	case addr == 0xFF00:
		return b.Joypad.Read()
	case addr == 0xFF01:
		return b.sb
	case addr == 0xFF02:
		return 0x7E | b.sc
	case addr == 0xFF04:
		return b.Timer.DIV()
	case addr == 0xFF05:
		return b.Timer.TIMA
	case addr == 0xFF06:
		return b.Timer.TMA
	case addr == 0xFF07:
		return 0xF8 | b.Timer.TAC
	case addr == 0xFF0F:
		return 0xE0 | b.Interrupts.IF
	case addr >= 0xFF10 && addr <= 0xFF3F:
		return 0xFF // audio: not implemented (§6 Non-goals)
	case addr == 0xFF46:
		return b.dmaReg
	case addr >= 0xFF40 && addr <= 0xFF4B:
		return b.PPU.CPURead(addr)
	case addr == 0xFF80, addr >= 0xFF81 && addr <= 0xFFFE:
		return b.hram[addr-0xFF80]
	case addr == 0xFFFF:
		return b.Interrupts.IE
	default:
		return 0xFF
	}
}

func (b *Bus) writeNoTick(addr uint16, v byte) {
	switch {
	case addr < 0x8000:
		b.Cart.Write(addr, v)
	case addr >= 0x8000 && addr <= 0x9FFF:
		b.PPU.CPUWrite(addr, v)
	case addr >= 0xA000 && addr <= 0xBFFF:
		b.Cart.Write(addr, v)
	case addr >= 0xC000 && addr <= 0xDFFF:
		b.wram[addr-0xC000] = v
	case addr >= 0xE000 && addr <= 0xFDFF:
		b.wram[addr-0x2000-0xC000] = v
	case addr >= 0xFE00 && addr <= 0xFE9F:
		if !b.DMA.Active() {
			b.PPU.CPUWrite(addr, v)
		}
	case addr >= 0xFEA0 && addr <= 0xFEFF:
		// unusable, ignored
	case addr == 0xFF00:
		b.Joypad.Write(v)
	case addr == 0xFF01:
		b.sb = v
	case addr == 0xFF02:
		b.sc = v & 0x81
		if b.sc&0x80 != 0 {
			if b.serialSink != nil {
				_, _ = b.serialSink.Write([]byte{b.sb})
			}
			b.log.Debugf("serial: forwarded byte %#02x", b.sb)
			b.Interrupts.Raise(interrupt.Serial)
			b.sc &^= 0x80
		}
	case addr == 0xFF04:
		b.Timer.WriteDIV()
	case addr == 0xFF05:
		b.Timer.WriteTIMA(v)
	case addr == 0xFF06:
		b.Timer.TMA = v
	case addr == 0xFF07:
		b.Timer.WriteTAC(v)
	case addr == 0xFF0F:
		b.Interrupts.IF = v & 0x1F
	case addr >= 0xFF10 && addr <= 0xFF3F:
		// audio: not implemented (§6 Non-goals)
	case addr == 0xFF46:
		b.dmaReg = v
		b.DMA.Start(v)
	case addr >= 0xFF40 && addr <= 0xFF4B:
		b.PPU.CPUWrite(addr, v)
	case addr == 0xFF80, addr >= 0xFF81 && addr <= 0xFFFE:
		b.hram[addr-0xFF80] = v
	case addr == 0xFFFF:
		b.Interrupts.IE = v
	default:
		b.log.Warnf("write %#02x to unused address %#04x dropped", v, addr)
	}
}
