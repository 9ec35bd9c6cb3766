// Package emu assembles the core packages (cart, bus, cpu, ppu) into a
// single Machine the host (internal/ui, cmd/gbemu) or a headless test
// drives one frame at a time.
package emu

import (
	"io"
	"os"

	"github.com/dmgcore/gbcore/internal/bus"
	"github.com/dmgcore/gbcore/internal/cart"
	"github.com/dmgcore/gbcore/internal/cpu"
	"github.com/dmgcore/gbcore/internal/gberr"
	"github.com/dmgcore/gbcore/internal/gblog"
	"github.com/dmgcore/gbcore/internal/joypad"
)

// Buttons is the host-supplied input snapshot for one frame (§6).
type Buttons struct {
	A, B, Start, Select   bool
	Up, Down, Left, Right bool
}

func (b Buttons) mask() byte {
	var m byte
	set := func(pressed bool, bit byte) {
		if pressed {
			m |= bit
		}
	}
	set(b.A, joypad.A)
	set(b.B, joypad.B)
	set(b.Start, joypad.Start)
	set(b.Select, joypad.Select)
	set(b.Up, joypad.Up)
	set(b.Down, joypad.Down)
	set(b.Left, joypad.Left)
	set(b.Right, joypad.Right)
	return m
}

// Machine owns one loaded cartridge's Bus+CPU and exposes the frame-driven
// API a host steps.
type Machine struct {
	cfg Config
	log gblog.Logger

	cart cart.Cartridge
	bus  *bus.Bus
	cpu  *cpu.CPU

	fb []byte // RGBA 160x144*4, refreshed at the end of every StepFrame
}

// New constructs a Machine with no cartridge loaded; LoadCartridge must be
// called before stepping.
func New(cfg Config) *Machine {
	log := gblog.Null()
	if cfg.LogLevel != "" {
		log = gblog.New(cfg.LogLevel)
	}
	return &Machine{
		cfg: cfg,
		log: log,
		fb:  make([]byte, ppuFBBytes),
	}
}

const (
	fbWidth    = 160
	fbHeight   = 144
	ppuFBBytes = fbWidth * fbHeight * 4
)

// LoadCartridge parses the header, builds the matching mapper, and wires a
// fresh Bus+CPU around it. A checksum failure or unsupported mapper byte
// surfaces as an error and leaves the previous Machine state untouched
// (§7: cartridge errors MUST prevent emulation from starting).
func (m *Machine) LoadCartridge(rom []byte) error {
	c, err := cart.New(rom)
	if err != nil {
		m.log.Errorf("cartridge load failed: %v", err)
		return err
	}
	b := bus.New(c, m.log)
	if m.cfg.Palette != ([4]uint32{}) {
		b.PPU.Shades = m.cfg.Palette
	}
	m.cart = c
	m.bus = b
	m.cpu = cpu.New(b)
	m.log.Debugf("loaded cartridge %q (%s)", c.Header().Title, c.Header().CartTypeStr)
	return nil
}

// LoadROMFromFile reads a ROM image from disk and loads it.
func (m *Machine) LoadROMFromFile(path string) error {
	rom, err := os.ReadFile(path)
	if err != nil {
		return &gberr.CartridgeIOError{Path: path, Err: err}
	}
	return m.LoadCartridge(rom)
}

// SetSerialSink directs link-cable byte writes (§4.9) to w; typically used
// by headless test-ROM runners that read pass/fail strings off serial.
func (m *Machine) SetSerialSink(w io.Writer) {
	if m.bus != nil {
		m.bus.SetSerialSink(w)
	}
}

// SetSerialWriter is an alias for SetSerialSink matching the host's naming.
func (m *Machine) SetSerialWriter(w io.Writer) { m.SetSerialSink(w) }

// SetButtons stores the host's button snapshot for the joypad to read on
// its next 0xFF00 access.
func (m *Machine) SetButtons(b Buttons) {
	if m.bus != nil {
		m.bus.Joypad.SetButtons(b.mask())
	}
}

// StepFrame runs the CPU until the PPU completes one frame, then blits it
// into the RGBA framebuffer.
func (m *Machine) StepFrame() {
	m.runUntilFrame()
	m.blit()
}

// StepFrameNoRender runs the CPU until the PPU completes one frame without
// touching the RGBA framebuffer, for headless test-ROM runners that only
// care about serial output.
func (m *Machine) StepFrameNoRender() {
	m.runUntilFrame()
}

// maxStepsPerFrame bounds runUntilFrame when the LCD is off (LCDC bit 7
// clear): the PPU never advances or sets FrameReady while disabled, so a
// ROM running with the display off would otherwise stall the host loop
// forever. The bound is sized well above a real frame's instruction count
// (~17556 M-cycles at one M-cycle per step) so it never trips during
// normal LCD-on operation.
const maxStepsPerFrame = 200_000

func (m *Machine) runUntilFrame() {
	if m.cpu == nil {
		return
	}
	for i := 0; !m.bus.PPU.FrameReady; i++ {
		if i >= maxStepsPerFrame {
			break
		}
		if m.cfg.Trace {
			m.log.Debugf("pc=%#04x", m.cpu.Regs.PC)
		}
		m.cpu.Step()
	}
	m.bus.PPU.FrameReady = false
}

func (m *Machine) blit() {
	frame := m.bus.PPU.Frame
	for i, px := range frame {
		o := i * 4
		m.fb[o+0] = byte(px >> 24)
		m.fb[o+1] = byte(px >> 16)
		m.fb[o+2] = byte(px >> 8)
		m.fb[o+3] = byte(px)
	}
}

// Framebuffer returns the most recently blitted 160x144 RGBA buffer.
func (m *Machine) Framebuffer() []byte { return m.fb }

// Header exposes the loaded cartridge's header, e.g. for trace-log
// fingerprinting in cmd/gbemu.
func (m *Machine) Header() *cart.Header {
	if m.cart == nil {
		return nil
	}
	return m.cart.Header()
}

// SaveRAM returns battery-backed external RAM, if the loaded mapper
// supports it.
func (m *Machine) SaveRAM() []byte {
	if bb, ok := m.cart.(cart.BatteryBacked); ok {
		return bb.SaveRAM()
	}
	return nil
}

// LoadRAM restores previously saved battery-backed RAM.
func (m *Machine) LoadRAM(data []byte) {
	if bb, ok := m.cart.(cart.BatteryBacked); ok {
		bb.LoadRAM(data)
	}
}
