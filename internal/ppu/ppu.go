// Package ppu implements the line-timed four-mode pixel pipeline of §4.6:
// OAM scan -> Transfer -> H-Blank -> V-Blank, driven one T-state at a time
// by the bus, with background/window/sprite fetchers feeding an 8-entry
// (logically; 16-capacity buffer) pixel FIFO.
package ppu

import "github.com/dmgcore/gbcore/internal/interrupt"

const (
	X_RES          = 160
	Y_RES          = 144
	ticksPerLine   = 456
	linesPerFrame  = 154
	oamScanTStates = 80
)

// Mode values, matching STAT bits 1-0.
const (
	ModeHBlank = 0
	ModeVBlank = 1
	ModeOAM    = 2
	ModeXfer   = 3
)

// PPU owns VRAM, OAM, and the LCD registers, and renders into Frame.
type PPU struct {
	vram [0x2000]byte
	oam  [40]oamEntry

	LCDC, STAT      byte
	SCY, SCX        byte
	LY, LYC         byte
	BGP, OBP0, OBP1 byte
	WY, WX          byte

	dot        int // T-states elapsed within the current line [0, 455]
	windowLine byte

	lineSprites       []oamEntry
	fetchedEntries    [3]oamEntry
	fetchedEntryCount byte
	fetchEntryData    [6]byte

	fetchState   fetchState
	fetchX       byte
	lineX        byte
	pushedX      byte
	fifoX        byte
	mapX, mapY   byte
	tileY        byte
	bgwFetchData [3]byte

	fifo pixelFIFO

	// Frame holds the most recently completed (or in-progress) 160x144
	// RGBA buffer; the host drains it once per V-Blank entry.
	Frame [X_RES * Y_RES]uint32

	// FrameReady is set on the first T-state of LY==144 and cleared by
	// emu.Machine once it has stepped to the end of the frame.
	FrameReady bool

	// Shades is the four-entry RGBA lookup the pixel pipeline composites
	// through; it defaults to DefaultShades but a host may remap it (a
	// green-tint DMG palette, for instance) without touching the core.
	Shades [4]uint32

	irq *interrupt.Controller
}

func New(irq *interrupt.Controller) *PPU {
	p := &PPU{irq: irq}
	p.LCDC = 0x91
	p.setMode(ModeOAM)
	p.lineSprites = make([]oamEntry, 0, 10)
	p.Shades = DefaultShades
	return p
}

// Tick advances the PPU by one T-state (the bus calls this four times per
// M-cycle, §5).
func (p *PPU) Tick() {
	if !p.lcdEnabled() {
		return
	}
	p.dot++

	switch p.mode() {
	case ModeOAM:
		p.tickOAM()
	case ModeXfer:
		p.tickXfer()
	case ModeHBlank, ModeVBlank:
		p.tickHVBlank()
	}
}

func (p *PPU) tickOAM() {
	if p.dot == 1 {
		p.scanLineSprites()
	}
	if p.dot >= oamScanTStates {
		p.setMode(ModeXfer)
		p.fetchState = fetchTile
		p.lineX = 0
		p.fetchX = 0
		p.pushedX = 0
		p.fifoX = 0
		p.fifo.Clear()
	}
}

func (p *PPU) tickXfer() {
	p.pipelineProcess()
	if p.pushedX >= X_RES {
		p.fifo.Clear()
		p.setMode(ModeHBlank)
		if p.STAT&statHBlankInt != 0 {
			p.irq.Raise(interrupt.LCDStat)
		}
	}
}

func (p *PPU) tickHVBlank() {
	if p.dot < ticksPerLine {
		return
	}
	p.dot = 0
	p.advanceLine()
}

func (p *PPU) advanceLine() {
	if p.windowEnabled() && p.LY >= p.WY && int(p.LY) < int(p.WY)+Y_RES {
		p.windowLine++
	}
	p.LY++

	if p.updateCoincidence() && p.STAT&statLYCInt != 0 {
		p.irq.Raise(interrupt.LCDStat)
	}

	switch {
	case p.LY == Y_RES:
		// first T-state of LY==144: enter V-Blank.
		p.setMode(ModeVBlank)
		p.irq.Raise(interrupt.VBlank)
		if p.STAT&statVBlankInt != 0 {
			p.irq.Raise(interrupt.LCDStat)
		}
		p.FrameReady = true
	case p.LY >= linesPerFrame:
		p.LY = 0
		p.windowLine = 0
		p.setMode(ModeOAM)
		p.updateCoincidence()
	case p.mode() == ModeVBlank:
		// stay in V-Blank until LY wraps past linesPerFrame
	default:
		p.setMode(ModeOAM)
		if p.STAT&statOAMInt != 0 {
			p.irq.Raise(interrupt.LCDStat)
		}
	}
}

// CPURead/CPUWrite serve VRAM, OAM, and the FF40-FF4B register block.
// OAM is additionally gated by the bus while DMA is active (§4.5); that
// gating lives in the bus, not here, since the PPU has no DMA knowledge.
func (p *PPU) CPURead(addr uint16) byte {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		if p.mode() == ModeXfer {
			return 0xFF
		}
		return p.vram[addr-0x8000]
	case addr >= 0xFE00 && addr <= 0xFE9F:
		if m := p.mode(); m == ModeOAM || m == ModeXfer {
			return 0xFF
		}
		return p.oamByte(addr)
	case addr == 0xFF40:
		return p.LCDC
	case addr == 0xFF41:
		return 0x80 | p.STAT
	case addr == 0xFF42:
		return p.SCY
	case addr == 0xFF43:
		return p.SCX
	case addr == 0xFF44:
		return p.LY
	case addr == 0xFF45:
		return p.LYC
	case addr == 0xFF47:
		return p.BGP
	case addr == 0xFF48:
		return p.OBP0
	case addr == 0xFF49:
		return p.OBP1
	case addr == 0xFF4A:
		return p.WY
	case addr == 0xFF4B:
		return p.WX
	default:
		return 0xFF
	}
}

func (p *PPU) CPUWrite(addr uint16, v byte) {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		if p.mode() != ModeXfer {
			p.vram[addr-0x8000] = v
		}
	case addr >= 0xFE00 && addr <= 0xFE9F:
		if m := p.mode(); m != ModeOAM && m != ModeXfer {
			p.setOAMByte(addr, v)
		}
	case addr == 0xFF40:
		prev := p.LCDC
		p.LCDC = v
		if prev&0x80 != 0 && v&0x80 == 0 {
			p.LY = 0
			p.dot = 0
			p.setMode(ModeHBlank)
		} else if prev&0x80 == 0 && v&0x80 != 0 {
			p.LY = 0
			p.dot = 0
			p.setMode(ModeOAM)
		}
	case addr == 0xFF41:
		p.STAT = (p.STAT & 0x07) | (v & 0x78)
	case addr == 0xFF42:
		p.SCY = v
	case addr == 0xFF43:
		p.SCX = v
	case addr == 0xFF44:
		// LY is read-only on real hardware.
	case addr == 0xFF45:
		p.LYC = v
	case addr == 0xFF47:
		p.BGP = v
	case addr == 0xFF48:
		p.OBP0 = v
	case addr == 0xFF49:
		p.OBP1 = v
	case addr == 0xFF4A:
		p.WY = v
	case addr == 0xFF4B:
		p.WX = v
	}
}

// DMAWrite bypasses the CPU-facing mode gating: the DMA engine may write
// OAM even while a normal CPU write would be blocked.
func (p *PPU) DMAWrite(i int, v byte) {
	p.oam[i/4].set(i%4, v)
}

func (p *PPU) oamByte(addr uint16) byte {
	i := int(addr - 0xFE00)
	return p.oam[i/4].get(i % 4)
}

func (p *PPU) setOAMByte(addr uint16, v byte) {
	i := int(addr - 0xFE00)
	p.oam[i/4].set(i%4, v)
}

func (e *oamEntry) get(field int) byte {
	switch field {
	case 0:
		return e.Y
	case 1:
		return e.X
	case 2:
		return e.Tile
	default:
		return e.Flags
	}
}

func (e *oamEntry) set(field int, v byte) {
	switch field {
	case 0:
		e.Y = v
	case 1:
		e.X = v
	case 2:
		e.Tile = v
	default:
		e.Flags = v
	}
}
