// Package joypad models the 0xFF00 register: bits 5/4 select a button
// group (0 = selected), and the four low bits report the selected group's
// state, active-low. Any 1->0 transition on a selected low bit raises the
// Joypad interrupt.
package joypad

import "github.com/dmgcore/gbcore/internal/interrupt"

// Button bitmask, set bit means pressed. This is the snapshot contract the
// host supplies (§6).
const (
	A = 1 << iota
	B
	Select
	Start
	Right
	Left
	Up
	Down
)

type Joypad struct {
	selectMask byte // last written bits 5-4, 0 = that group selected
	buttons    byte // host-supplied snapshot, set bit = pressed
	irq        *interrupt.Controller
}

func New(irq *interrupt.Controller) *Joypad {
	return &Joypad{selectMask: 0x30, irq: irq}
}

// SetButtons stores the host's button snapshot and raises Joypad on any
// newly-pressed button whose group is currently selected.
func (j *Joypad) SetButtons(mask byte) {
	before := j.lowNibble()
	j.buttons = mask
	after := j.lowNibble()
	j.checkEdge(before, after)
}

func (j *Joypad) Read() byte {
	return 0xC0 | j.selectMask | j.lowNibble()
}

func (j *Joypad) Write(v byte) {
	before := j.lowNibble()
	j.selectMask = v & 0x30
	after := j.lowNibble()
	j.checkEdge(before, after)
}

func (j *Joypad) checkEdge(before, after byte) {
	// a falling (1->0, i.e. newly pressed) transition on any reported bit
	fell := before &^ after
	if fell != 0 {
		j.irq.Raise(interrupt.Joypad)
	}
}

// lowNibble computes the active-low nibble for whichever group(s) are
// currently selected, combining both groups if both select bits are 0 (as
// real hardware does via wired-AND).
func (j *Joypad) lowNibble() byte {
	res := byte(0x0F)
	if j.selectMask&0x10 == 0 { // P14: d-pad
		if j.buttons&Right != 0 {
			res &^= 0x01
		}
		if j.buttons&Left != 0 {
			res &^= 0x02
		}
		if j.buttons&Up != 0 {
			res &^= 0x04
		}
		if j.buttons&Down != 0 {
			res &^= 0x08
		}
	}
	if j.selectMask&0x20 == 0 { // P15: buttons
		if j.buttons&A != 0 {
			res &^= 0x01
		}
		if j.buttons&B != 0 {
			res &^= 0x02
		}
		if j.buttons&Select != 0 {
			res &^= 0x04
		}
		if j.buttons&Start != 0 {
			res &^= 0x08
		}
	}
	return res
}
