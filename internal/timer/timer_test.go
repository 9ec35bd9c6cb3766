package timer

import (
	"testing"

	"github.com/dmgcore/gbcore/internal/interrupt"
	"github.com/stretchr/testify/require"
)

func newTimer() (*Timer, *interrupt.Controller) {
	irq := &interrupt.Controller{}
	return New(irq), irq
}

func TestTimer_DIVIncrementsOnUpperByte(t *testing.T) {
	tm, _ := newTimer()
	for i := 0; i < 64; i++ {
		tm.Tick()
	}
	require.Equal(t, byte(1), tm.DIV())
}

func TestTimer_TIMADoesNotAdvanceWhenDisabled(t *testing.T) {
	tm, _ := newTimer()
	tm.WriteTAC(0x00) // disabled
	for i := 0; i < 1024; i++ {
		tm.Tick()
	}
	require.Equal(t, byte(0), tm.TIMA)
}

func TestTimer_TIMAIncrementsOnFallingEdge(t *testing.T) {
	tm, _ := newTimer()
	tm.WriteTAC(0x05) // enabled, bit 3 selected (every 4 M-cycles)
	for i := 0; i < 4; i++ {
		tm.Tick()
	}
	require.Equal(t, byte(1), tm.TIMA)
}

func TestTimer_OverflowReloadsFromTMADelayedOneTick(t *testing.T) {
	tm, irq := newTimer()
	tm.TMA = 0xAB
	tm.WriteTAC(0x05)
	tm.TIMA = 0xFF
	for i := 0; i < 4; i++ {
		tm.Tick()
	}
	require.Equal(t, byte(0), tm.TIMA, "overflow clears TIMA to 0 this tick")
	require.Equal(t, byte(0), irq.IF&(1<<interrupt.Timer))

	tm.Tick()
	require.Equal(t, byte(0xAB), tm.TIMA)
	require.NotEqual(t, byte(0), irq.IF&(1<<interrupt.Timer))
}

func TestTimer_WriteTIMADuringReloadDelayCancelsReload(t *testing.T) {
	tm, _ := newTimer()
	tm.TMA = 0x11
	tm.WriteTAC(0x05)
	tm.TIMA = 0xFF
	for i := 0; i < 4; i++ {
		tm.Tick()
	}
	tm.WriteTIMA(0x55)
	tm.Tick()
	require.Equal(t, byte(0x55), tm.TIMA, "cancelled reload must not later overwrite the written value")
}

func TestTimer_WriteDIVCanCauseSpuriousIncrement(t *testing.T) {
	tm, _ := newTimer()
	tm.WriteTAC(0x05) // bit 3 selected
	for i := 0; i < 3; i++ {
		tm.Tick()
	}
	before := tm.TIMA
	tm.WriteDIV()
	require.Equal(t, before+1, tm.TIMA, "resetting DIV while the selected bit is high edges TIMA")
}

func TestTimer_WriteTACCanCauseFallingEdge(t *testing.T) {
	tm, _ := newTimer()
	tm.WriteTAC(0x05) // enabled, bit 3 (value 8) selected
	tm.Tick()
	tm.Tick() // divider now 8: bit 3 reads high
	require.Equal(t, byte(0), tm.TIMA)

	// Switching to bit 5 (value 32), which reads low at divider=8, observes
	// the old bit was high and the new one is low: a falling edge.
	tm.WriteTAC(0x06)
	require.Equal(t, byte(1), tm.TIMA)
}
