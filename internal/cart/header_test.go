package cart

import (
	"encoding/binary"
	"testing"

	"github.com/dmgcore/gbcore/internal/gberr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildROM makes a synthetic ROM with a valid header & checksums.
func buildROM(title string, cartType, romSizeCode, ramSizeCode byte, size int) []byte {
	rom := make([]byte, size)
	copy(rom[0x0104:0x0104+len(nintendoLogo)], nintendoLogo[:])

	tbytes := []byte(title)
	if len(tbytes) > 16 {
		tbytes = tbytes[:16]
	}
	copy(rom[0x0134:0x0144], tbytes)

	rom[0x0143] = 0x00
	rom[0x0144], rom[0x0145] = '0', '1'
	rom[0x0146] = 0x00
	rom[0x0147] = cartType
	rom[0x0148] = romSizeCode
	rom[0x0149] = ramSizeCode
	rom[0x014A] = 0x00
	rom[0x014B] = 0x33
	rom[0x014C] = 0x01
	rom[0x014D] = HeaderChecksum(rom)

	var gsum uint16
	for i := 0; i < len(rom); i++ {
		if i == 0x014E || i == 0x014F {
			continue
		}
		gsum += uint16(rom[i])
	}
	binary.BigEndian.PutUint16(rom[0x014E:0x0150], gsum)

	return rom
}

func TestParseHeader_Basic(t *testing.T) {
	rom := buildROM("TEST", 0x01, 0x01, 0x02, 64*1024)

	h, err := ParseHeader(rom)
	require.NoError(t, err)
	assert.Equal(t, "TEST", h.Title)
	assert.Equal(t, byte(0x01), h.CartType)
	assert.Equal(t, "MBC1 (variants)", h.CartTypeStr)
	assert.Equal(t, 64*1024, h.ROMSizeBytes)
	assert.Equal(t, 4, h.ROMBanks)
	assert.Equal(t, 8*1024, h.RAMSizeBytes)
}

// TestParseHeader_BadChecksum is scenario S1: a header checksum byte one
// less than correct must be rejected with a ChecksumError.
func TestParseHeader_BadChecksum(t *testing.T) {
	rom := buildROM("TEST", 0x00, 0x00, 0x00, 32*1024)
	rom[0x014D]--

	_, err := ParseHeader(rom)
	require.Error(t, err)
	var checksumErr *gberr.ChecksumError
	require.ErrorAs(t, err, &checksumErr)
}

func TestParseHeader_ShortROM(t *testing.T) {
	short := make([]byte, 0x140)
	_, err := ParseHeader(short)
	require.Error(t, err)
}

func TestHeaderChecksum_PureFunction(t *testing.T) {
	romA := buildROM("A", 0x00, 0x00, 0x00, 32*1024)
	romB := buildROM("A", 0x00, 0x00, 0x00, 32*1024)
	romB[0x0150] = 0xFF // byte outside 0x134-0x14D must not affect the checksum
	assert.Equal(t, HeaderChecksum(romA), HeaderChecksum(romB))
}
