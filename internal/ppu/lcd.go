package ppu

// LCDC bit helpers (§4.6, §3 LCD state).
func (p *PPU) lcdEnabled() bool        { return p.LCDC&0x80 != 0 }
func (p *PPU) windowMapBase() uint16   { return tileMapBase(p.LCDC&0x40 != 0) }
func (p *PPU) windowEnabled() bool     { return p.LCDC&0x20 != 0 }
func (p *PPU) bgWindowDataBase() uint16 {
	if p.LCDC&0x10 != 0 {
		return 0x8000
	}
	return 0x8800
}
func (p *PPU) bgMapBase() uint16 { return tileMapBase(p.LCDC&0x08 != 0) }
func (p *PPU) objHeight() byte {
	if p.LCDC&0x04 != 0 {
		return 16
	}
	return 8
}
func (p *PPU) objEnabled() bool    { return p.LCDC&0x02 != 0 }
func (p *PPU) bgWindowOn() bool    { return p.LCDC&0x01 != 0 }

func tileMapBase(high bool) uint16 {
	if high {
		return 0x9C00
	}
	return 0x9800
}

// STAT mode field occupies bits 1-0; bit 2 is the read-only LYC==LY
// coincidence flag; bits 3-6 are the four interrupt-source enables.
const (
	statModeMask  = 0x03
	statLYCFlag   = 1 << 2
	statHBlankInt = 1 << 3
	statVBlankInt = 1 << 4
	statOAMInt    = 1 << 5
	statLYCInt    = 1 << 6
)

func (p *PPU) mode() byte        { return p.STAT & statModeMask }
func (p *PPU) setMode(m byte)    { p.STAT = (p.STAT &^ statModeMask) | (m & statModeMask) }

func (p *PPU) updateCoincidence() (risingEdge bool) {
	was := p.STAT&statLYCFlag != 0
	now := p.LY == p.LYC
	if now {
		p.STAT |= statLYCFlag
	} else {
		p.STAT &^= statLYCFlag
	}
	return now && !was
}
