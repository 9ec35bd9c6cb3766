package ppu

// fetchState steps the background/window fetcher through Tile -> Data0 ->
// Data1 -> Idle -> Push, each of Data0/Data1 costing two T-states because
// pipelineFetch only runs on every other T-state (§4.6 pixel pipeline).
type fetchState int

const (
	fetchTile fetchState = iota
	fetchData0
	fetchData1
	fetchIdle
	fetchPush
)

// pixelFIFO is a bounded deque of resolved (post-palette) shade indices,
// §3 Pixel FIFO. Capacity 16 matches "≤16 pixel descriptors".
type pixelFIFO struct {
	buf  [16]byte
	head int
	size int
}

func (q *pixelFIFO) Clear()   { q.head, q.size = 0, 0 }
func (q *pixelFIFO) Len() int { return q.size }

func (q *pixelFIFO) Push(v byte) {
	q.buf[(q.head+q.size)%len(q.buf)] = v
	q.size++
}

func (q *pixelFIFO) Pop() byte {
	v := q.buf[q.head]
	q.head = (q.head + 1) % len(q.buf)
	q.size--
	return v
}

// pipelineProcess advances the fetch state machine (every other T-state)
// and the push/pop side (every T-state), mirroring the mode-3 transfer
// loop of §4.6.
func (p *PPU) pipelineProcess() {
	p.mapY = p.LY + p.SCY
	p.mapX = p.fetchX + p.SCX
	p.tileY = (p.mapY % 8) * 2

	if p.dot&1 == 0 {
		p.pipelineFetch()
	}
	p.pipelinePushPixel()
}

func (p *PPU) pipelinePushPixel() {
	if p.fifo.Len() <= 8 {
		return
	}
	shade := p.fifo.Pop()
	if p.lineX >= p.SCX%8 {
		idx := int(p.pushedX) + int(p.LY)*X_RES
		p.Frame[idx] = p.Shades[shade]
		p.pushedX++
	}
	p.lineX++
}

func (p *PPU) pipelineFetch() {
	switch p.fetchState {
	case fetchTile:
		p.fetchedEntryCount = 0
		if p.bgWindowOn() {
			addr := p.bgMapBase() + uint16(p.mapX/8) + uint16(p.mapY/8)*32
			p.bgwFetchData[0] = p.vram[addr-0x8000]
			if p.bgWindowDataBase() == 0x8800 {
				p.bgwFetchData[0] += 128
			}
			p.loadWindowTile()
		}
		if p.objEnabled() && len(p.lineSprites) > 0 {
			p.loadSpriteTile()
		}
		p.fetchState = fetchData0
		p.fetchX += 8

	case fetchData0:
		addr := p.bgWindowDataBase() + uint16(p.bgwFetchData[0])*16 + uint16(p.tileY)
		p.bgwFetchData[1] = p.vram[addr-0x8000]
		p.loadSpriteData(0)
		p.fetchState = fetchData1

	case fetchData1:
		addr := p.bgWindowDataBase() + uint16(p.bgwFetchData[0])*16 + uint16(p.tileY) + 1
		p.bgwFetchData[2] = p.vram[addr-0x8000]
		p.loadSpriteData(1)
		p.fetchState = fetchIdle

	case fetchIdle:
		p.fetchState = fetchPush

	case fetchPush:
		if p.pipelineFIFOAdd() {
			p.fetchState = fetchTile
		}
	}
}

// pipelineFIFOAdd pushes 8 background/window pixels (composited against
// any overlapping sprite pixels) once the FIFO has room (§4.6 Push).
func (p *PPU) pipelineFIFOAdd() bool {
	if p.fifo.Len() > 8 {
		return false
	}

	x := int(p.fetchX) - (8 - int(p.SCX%8))

	for bit := 7; bit >= 0; bit-- {
		lo := (p.bgwFetchData[1] >> uint(bit)) & 1
		hi := ((p.bgwFetchData[2] >> uint(bit)) & 1) << 1
		colorIndex := hi | lo

		shade := applyPalette(p.BGP, colorIndex)
		if !p.bgWindowOn() {
			shade = applyPalette(p.BGP, 0)
		}

		if p.objEnabled() {
			if s, ok := p.fetchSpritePixel(colorIndex); ok {
				shade = s
			}
		}

		if x >= 0 {
			p.fifo.Push(shade)
			p.fifoX++
		}
		x++
	}
	return true
}

func (p *PPU) loadWindowTile() {
	if !p.windowEnabled() || p.LY < p.WY {
		return
	}
	cmp := p.fetchX + 7
	if cmp < p.WX {
		return
	}
	wTileY := p.windowLine / 8
	mapOff := uint16(cmp-p.WX) / 8
	addr := p.windowMapBase() + mapOff + uint16(wTileY)*32
	p.bgwFetchData[0] = p.vram[addr-0x8000]
	if p.bgWindowDataBase() == 0x8800 {
		p.bgwFetchData[0] += 128
	}
}

// loadSpriteTile selects up to 3 sprites from the line's retained set
// whose X range overlaps the 8-pixel slice currently being fetched.
func (p *PPU) loadSpriteTile() {
	for _, s := range p.lineSprites {
		spriteX := s.X - 8 + p.SCX%8
		inLow := spriteX >= p.fetchX && spriteX < p.fetchX+8
		inHigh := spriteX+8 >= p.fetchX && spriteX+8 < p.fetchX+8
		if inLow || inHigh {
			p.fetchedEntries[p.fetchedEntryCount] = s
			p.fetchedEntryCount++
		}
		if p.fetchedEntryCount >= 3 {
			break
		}
	}
}

func (p *PPU) loadSpriteData(offset byte) {
	height := p.objHeight()
	for i := byte(0); i < p.fetchedEntryCount; i++ {
		e := p.fetchedEntries[i]
		tileY := (p.LY + 16 - e.Y) * 2
		if e.yFlip() {
			tileY = height*2 - 2 - tileY
		}
		tile := e.Tile
		if height == 16 {
			tile &^= 1
		}
		addr := 0x8000 + uint16(tile)*16 + uint16(tileY) + uint16(offset)
		p.fetchEntryData[i*2+offset] = p.vram[addr-0x8000]
	}
}

// fetchSpritePixel returns the composited sprite shade for the pixel
// currently at the front of the push cursor, obeying transparency and
// BG-priority (§4.6 Push: "a transparent sprite pixel never wins").
func (p *PPU) fetchSpritePixel(bgColorIndex byte) (byte, bool) {
	for i := byte(0); i < p.fetchedEntryCount; i++ {
		e := p.fetchedEntries[i]
		spX := e.X - 8 + p.SCX%8
		offset := int(p.fifoX) - int(spX)
		if offset < 0 || offset > 7 {
			continue
		}
		bit := 7 - offset
		if e.xFlip() {
			bit = offset
		}
		lo := (p.fetchEntryData[i*2] >> uint(bit)) & 1
		hi := ((p.fetchEntryData[i*2+1] >> uint(bit)) & 1) << 1
		colorIndex := hi | lo
		if colorIndex == 0 {
			continue // transparent sprite pixel never wins
		}
		if e.bgPrio() && bgColorIndex != 0 {
			continue // background wins: sprite asked for BG priority and BG isn't color 0
		}
		palette := p.OBP0
		if e.useOBP1() {
			palette = p.OBP1
		}
		return applyPalette(palette, colorIndex), true
	}
	return 0, false
}
