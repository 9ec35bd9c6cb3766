package cart

import "testing"

func TestMBC3_ROMBanking(t *testing.T) {
	rom := make([]byte, 0x8000*4)
	for bank := 0; bank < 4; bank++ {
		rom[bank*0x4000] = byte(bank)
	}
	m := NewMBC3(rom, &Header{})

	if got := m.Read(0x4000); got != 0x01 {
		t.Fatalf("default bank1 read got %02X want 01", got)
	}

	m.Write(0x2000, 0x03)
	if got := m.Read(0x4000); got != 0x03 {
		t.Fatalf("bank3 read got %02X want 03", got)
	}

	m.Write(0x2000, 0x00)
	if got := m.Read(0x4000); got != 0x01 {
		t.Fatalf("bank0->1 remap failed: got %02X", got)
	}
}

func TestMBC3_RAMBanking(t *testing.T) {
	rom := make([]byte, 0x8000)
	m := NewMBC3(rom, &Header{RAMSizeBytes: 0x2000 * 4})

	m.Write(0x0000, 0x0A) // enable RAM
	m.Write(0x4000, 0x02) // select RAM bank 2
	m.Write(0xA000, 0x55)
	if got := m.Read(0xA000); got != 0x55 {
		t.Fatalf("RAM bank2 RW failed: got %02X", got)
	}

	m.Write(0x0000, 0x00) // disable RAM
	if got := m.Read(0xA000); got != 0xFF {
		t.Fatalf("disabled RAM read got %02X want FF", got)
	}
}

func TestMBC3_SaveLoadRAM(t *testing.T) {
	rom := make([]byte, 0x8000)
	m := NewMBC3(rom, &Header{RAMSizeBytes: 0x2000})
	m.Write(0x0000, 0x0A)
	m.Write(0xA000, 0x42)

	data := m.SaveRAM()
	n := NewMBC3(rom, &Header{RAMSizeBytes: 0x2000})
	n.Write(0x0000, 0x0A)
	n.LoadRAM(data)
	if got := n.Read(0xA000); got != 0x42 {
		t.Fatalf("loaded RAM got %02X want 42", got)
	}
}
