package emu

// Config contains settings that affect emulation behavior; cmd/gbemu fills
// Trace and LogLevel from its CLI flags.
type Config struct {
	Trace    bool // log every fetched instruction via the injected Logger
	Headless bool // marks a windowless run; no package reads it and cmd/gbemu leaves it false

	// BootROMPath is accepted for forward compatibility but unused: boot-ROM
	// execution is not modeled, the register file seeds its post-boot state
	// directly (register.File.Reset).
	BootROMPath string

	// Palette remaps the four DMG shades the PPU composites through; a zero
	// value leaves the PPU's built-in ppu.DefaultShades in place.
	Palette [4]uint32

	LogLevel string // passed to gblog.New; "" means Null()
}
