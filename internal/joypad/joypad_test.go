package joypad

import (
	"testing"

	"github.com/dmgcore/gbcore/internal/interrupt"
	"github.com/stretchr/testify/require"
)

func newJoypad() (*Joypad, *interrupt.Controller) {
	irq := &interrupt.Controller{}
	return New(irq), irq
}

func TestJoypad_NoGroupSelectedReadsAllHigh(t *testing.T) {
	j, _ := newJoypad()
	j.SetButtons(A | Up)
	require.Equal(t, byte(0xFF), j.Read())
}

func TestJoypad_ButtonGroupReportsPressedBitsLow(t *testing.T) {
	j, _ := newJoypad()
	j.SetButtons(A | Start)
	j.Write(0x10) // select buttons (P15=0), d-pad deselected
	got := j.Read()
	require.Equal(t, byte(0), got&0x01, "A pressed")
	require.Equal(t, byte(0x02), got&0x02, "B not pressed")
	require.Equal(t, byte(0), got&0x08, "Start pressed")
}

func TestJoypad_DPadGroupReportsPressedBitsLow(t *testing.T) {
	j, _ := newJoypad()
	j.SetButtons(Right | Down)
	j.Write(0x20) // select d-pad (P14=0), buttons deselected
	got := j.Read()
	require.Equal(t, byte(0), got&0x01, "Right pressed")
	require.Equal(t, byte(0x04), got&0x04, "Up not pressed")
	require.Equal(t, byte(0), got&0x08, "Down pressed")
}

func TestJoypad_BothGroupsSelectedCombineViaWiredAND(t *testing.T) {
	j, _ := newJoypad()
	j.SetButtons(A)
	j.Write(0x00) // both groups selected
	got := j.Read()
	require.Equal(t, byte(0), got&0x01, "A's bit participates even with d-pad also selected")
}

func TestJoypad_NewlyPressedButtonInSelectedGroupRaisesInterrupt(t *testing.T) {
	j, irq := newJoypad()
	j.Write(0x10) // select buttons
	j.SetButtons(A)
	require.NotEqual(t, byte(0), irq.IF&(1<<interrupt.Joypad))
}

func TestJoypad_PressInUnselectedGroupDoesNotRaiseInterrupt(t *testing.T) {
	j, irq := newJoypad()
	j.Write(0x20) // select d-pad, buttons deselected
	j.SetButtons(A)
	require.Equal(t, byte(0), irq.IF&(1<<interrupt.Joypad))
}

func TestJoypad_SelectingAGroupWithAPressedButtonRaisesInterrupt(t *testing.T) {
	j, irq := newJoypad()
	j.SetButtons(Start)
	j.Write(0x10) // selecting the buttons group edges the reported bit low
	require.NotEqual(t, byte(0), irq.IF&(1<<interrupt.Joypad))
}
