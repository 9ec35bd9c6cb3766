package cart

import "github.com/dmgcore/gbcore/internal/gberr"

// Cartridge defines the minimal interface the Bus needs for ROM/RAM banking.
// Implementations can be ROM-only or MBC variants. Addresses are CPU addresses.
type Cartridge interface {
	// Read returns a byte for ROM (0x0000–0x7FFF) and external RAM (0xA000–0xBFFF).
	Read(addr uint16) byte
	// Write handles MBC control writes (0x0000–0x7FFF) and external RAM writes (0xA000–0xBFFF).
	Write(addr uint16, value byte)
	// Header returns the parsed header this cartridge was built from.
	Header() *Header
}

// BatteryBacked is an optional interface for cartridges with external RAM
// that a host may persist between runs.
type BatteryBacked interface {
	SaveRAM() []byte
	LoadRAM(data []byte)
}

// supportedMappers is the cartridge-type byte set §9 says this core
// implements: ROM-only, MBC1, MBC3 (no RTC), MBC5.
var supportedMappers = map[byte]bool{
	0x00: true,
	0x01: true, 0x02: true, 0x03: true,
	0x0F: true, 0x10: true, 0x11: true, 0x12: true, 0x13: true,
	0x19: true, 0x1A: true, 0x1B: true, 0x1C: true, 0x1D: true, 0x1E: true,
}

// New parses the header and picks a mapper implementation. A checksum
// failure or an unrecognised cartridge-type byte surfaces as an error and
// MUST prevent emulation from starting (§7).
func New(rom []byte) (Cartridge, error) {
	h, err := ParseHeader(rom)
	if err != nil {
		return nil, err
	}
	if !supportedMappers[h.CartType] {
		return nil, &gberr.UnsupportedMapperError{CartType: h.CartType}
	}
	switch h.CartType {
	case 0x00:
		return NewROMOnly(rom, h), nil
	case 0x01, 0x02, 0x03:
		return NewMBC1(rom, h), nil
	case 0x0F, 0x10, 0x11, 0x12, 0x13:
		return NewMBC3(rom, h), nil
	case 0x19, 0x1A, 0x1B, 0x1C, 0x1D, 0x1E:
		return NewMBC5(rom, h), nil
	default:
		return nil, &gberr.UnsupportedMapperError{CartType: h.CartType}
	}
}
