package ppu

// oamEntry is one 4-byte OAM record (§3 OAM entry).
type oamEntry struct {
	Y, X, Tile, Flags byte
}

const (
	oamFlagPalette  = 1 << 4 // 0=OBP0, 1=OBP1
	oamFlagXFlip    = 1 << 5
	oamFlagYFlip    = 1 << 6
	oamFlagBGPrio   = 1 << 7
)

func (o oamEntry) xFlip() bool   { return o.Flags&oamFlagXFlip != 0 }
func (o oamEntry) yFlip() bool   { return o.Flags&oamFlagYFlip != 0 }
func (o oamEntry) bgPrio() bool  { return o.Flags&oamFlagBGPrio != 0 }
func (o oamEntry) useOBP1() bool { return o.Flags&oamFlagPalette != 0 }

// scanLineSprites selects up to 10 OAM entries visible on the given
// scanline, in OAM order (§4.6 OAM scan, mode 2).
func (p *PPU) scanLineSprites() {
	p.lineSprites = p.lineSprites[:0]
	height := p.objHeight()
	for i := 0; i < 40; i++ {
		if len(p.lineSprites) >= 10 {
			break
		}
		o := p.oam[i]
		top := int(o.Y)
		ly16 := int(p.LY) + 16
		if top <= ly16 && ly16 < top+int(height) {
			p.lineSprites = append(p.lineSprites, o)
		}
	}
}
