package cpu

// OpType tags the operation an opcode performs; the executor switches on
// this rather than re-deriving it from the raw opcode byte each time
// (§4.1 Instruction Table).
type OpType int

const (
	OpIllegal OpType = iota
	OpNOP
	OpLDRR        // r1 <- r2, both 8-bit register indices (idx 6 = (HL))
	OpLDRImm8     // r1 <- d8
	OpLDRR16Imm   // reg16 pair (R1, SP-group) <- d16
	OpLDAFromBC   // A <- (BC)
	OpLDAFromDE   // A <- (DE)
	OpLDBCFromA   // (BC) <- A
	OpLDDEFromA   // (DE) <- A
	OpLDAFromHLI  // A <- (HL), HL++
	OpLDAFromHLD  // A <- (HL), HL--
	OpLDHLIFromA  // (HL) <- A, HL++
	OpLDHLDFromA  // (HL) <- A, HL--
	OpLDHFromA    // (0xFF00+d8) <- A
	OpLDAFromH    // A <- (0xFF00+d8)
	OpLDCIndFromA // (0xFF00+C) <- A
	OpLDAFromCInd // A <- (0xFF00+C)
	OpLDA16FromA  // (a16) <- A
	OpLDAFromA16  // A <- (a16)
	OpLDSPA16     // (a16) <- SP
	OpLDSPHL      // SP <- HL
	OpLDHLSPs8    // HL <- SP + s8
	OpPush        // push reg16 pair (R1, AF-group)
	OpPop         // pop reg16 pair (R1, AF-group)
	OpALU         // A op= r2 (op selected by Param); r2==6 is (HL)
	OpALUImm8     // A op= d8 (op selected by Param)
	OpINC8
	OpDEC8
	OpINC16
	OpDEC16
	OpADDHL
	OpADDSP
	OpRLCA
	OpRRCA
	OpRLA
	OpRRA
	OpDAA
	OpCPL
	OpSCF
	OpCCF
	OpJR
	OpJP
	OpJPHL
	OpCALL
	OpRET
	OpRETI
	OpRST
	OpDI
	OpEI
	OpHALT
	OpStop
	OpPrefixCB
)

// condAlways marks an unconditional control-flow opcode; cond 0-3 select
// NZ/Z/NC/C.
const condAlways = 4

// Descriptor is one entry of the 256-slot instruction table (§3 Instruction
// Descriptor, §4.1). It never stores a cycle count: timing is emergent from
// the bus accesses the executor performs for this descriptor's operation.
type Descriptor struct {
	Op    OpType
	R1    byte
	R2    byte
	Cond  byte
	Param byte
}

var table [256]Descriptor

// aluOp encodes which ALU operation OpALU/OpALUImm8 perform, packed into
// Param: 0 ADD, 1 ADC, 2 SUB, 3 SBC, 4 AND, 5 XOR, 6 OR, 7 CP.
const (
	aluADD = iota
	aluADC
	aluSUB
	aluSBC
	aluAND
	aluXOR
	aluOR
	aluCP
)

func init() {
	for i := range table {
		table[i] = Descriptor{Op: OpIllegal}
	}

	// LD r,r' for 0x40-0x7F, skipping 0x76 (HALT).
	for op := 0x40; op <= 0x7F; op++ {
		if op == 0x76 {
			continue
		}
		d := byte((op >> 3) & 7)
		s := byte(op & 7)
		table[op] = Descriptor{Op: OpLDRR, R1: d, R2: s}
	}
	table[0x76] = Descriptor{Op: OpHALT}

	// LD r,d8: 0x06,0x0E,0x16,0x1E,0x26,0x2E,0x36,0x3E
	for i, op := range []int{0x06, 0x0E, 0x16, 0x1E, 0x26, 0x2E, 0x36, 0x3E} {
		table[op] = Descriptor{Op: OpLDRImm8, R1: byte(i)}
	}

	// ALU A,r for 0x80-0xBF.
	for op := 0x80; op <= 0xBF; op++ {
		aluOp := byte((op - 0x80) / 8)
		r := byte(op & 7)
		table[op] = Descriptor{Op: OpALU, R2: r, Param: aluOp}
	}
	// ALU A,d8 immediates.
	immOps := []int{0xC6, 0xCE, 0xD6, 0xDE, 0xE6, 0xEE, 0xF6, 0xFE}
	for i, op := range immOps {
		table[op] = Descriptor{Op: OpALUImm8, Param: byte(i)}
	}

	// INC/DEC r8 (register index mapping B,C,D,E,H,L,(HL),A).
	incOps := map[int]byte{0x04: 0, 0x0C: 1, 0x14: 2, 0x1C: 3, 0x24: 4, 0x2C: 5, 0x34: 6, 0x3C: 7}
	for op, r := range incOps {
		table[op] = Descriptor{Op: OpINC8, R1: r}
	}
	decOps := map[int]byte{0x05: 0, 0x0D: 1, 0x15: 2, 0x1D: 3, 0x25: 4, 0x2D: 5, 0x35: 6, 0x3D: 7}
	for op, r := range decOps {
		table[op] = Descriptor{Op: OpDEC8, R1: r}
	}

	// 16-bit reg-pair ops, pair index 0=BC,1=DE,2=HL,3=SP.
	for pair, base := range map[byte]int{0: 0x00, 1: 0x10, 2: 0x20, 3: 0x30} {
		table[base+0x01] = Descriptor{Op: OpLDRR16Imm, R1: pair}
		table[base+0x03] = Descriptor{Op: OpINC16, R1: pair}
		table[base+0x0B] = Descriptor{Op: OpDEC16, R1: pair}
		table[base+0x09] = Descriptor{Op: OpADDHL, R1: pair}
	}

	// PUSH/POP, pair index 0=BC,1=DE,2=HL,3=AF.
	table[0xC5] = Descriptor{Op: OpPush, R1: 0}
	table[0xD5] = Descriptor{Op: OpPush, R1: 1}
	table[0xE5] = Descriptor{Op: OpPush, R1: 2}
	table[0xF5] = Descriptor{Op: OpPush, R1: 3}
	table[0xC1] = Descriptor{Op: OpPop, R1: 0}
	table[0xD1] = Descriptor{Op: OpPop, R1: 1}
	table[0xE1] = Descriptor{Op: OpPop, R1: 2}
	table[0xF1] = Descriptor{Op: OpPop, R1: 3}

	table[0x00] = Descriptor{Op: OpNOP}
	table[0x02] = Descriptor{Op: OpLDBCFromA}
	table[0x12] = Descriptor{Op: OpLDDEFromA}
	table[0x0A] = Descriptor{Op: OpLDAFromBC}
	table[0x1A] = Descriptor{Op: OpLDAFromDE}
	table[0x22] = Descriptor{Op: OpLDHLIFromA}
	table[0x2A] = Descriptor{Op: OpLDAFromHLI}
	table[0x32] = Descriptor{Op: OpLDHLDFromA}
	table[0x3A] = Descriptor{Op: OpLDAFromHLD}
	table[0x08] = Descriptor{Op: OpLDSPA16}
	table[0xE0] = Descriptor{Op: OpLDHFromA}
	table[0xF0] = Descriptor{Op: OpLDAFromH}
	table[0xE2] = Descriptor{Op: OpLDCIndFromA}
	table[0xF2] = Descriptor{Op: OpLDAFromCInd}
	table[0xEA] = Descriptor{Op: OpLDA16FromA}
	table[0xFA] = Descriptor{Op: OpLDAFromA16}
	table[0xF9] = Descriptor{Op: OpLDSPHL}
	table[0xF8] = Descriptor{Op: OpLDHLSPs8}
	table[0xE8] = Descriptor{Op: OpADDSP}

	table[0x07] = Descriptor{Op: OpRLCA}
	table[0x0F] = Descriptor{Op: OpRRCA}
	table[0x17] = Descriptor{Op: OpRLA}
	table[0x1F] = Descriptor{Op: OpRRA}
	table[0x27] = Descriptor{Op: OpDAA}
	table[0x2F] = Descriptor{Op: OpCPL}
	table[0x37] = Descriptor{Op: OpSCF}
	table[0x3F] = Descriptor{Op: OpCCF}

	table[0x18] = Descriptor{Op: OpJR, Cond: condAlways}
	table[0x20] = Descriptor{Op: OpJR, Cond: 0}
	table[0x28] = Descriptor{Op: OpJR, Cond: 1}
	table[0x30] = Descriptor{Op: OpJR, Cond: 2}
	table[0x38] = Descriptor{Op: OpJR, Cond: 3}

	table[0xC3] = Descriptor{Op: OpJP, Cond: condAlways}
	table[0xC2] = Descriptor{Op: OpJP, Cond: 0}
	table[0xCA] = Descriptor{Op: OpJP, Cond: 1}
	table[0xD2] = Descriptor{Op: OpJP, Cond: 2}
	table[0xDA] = Descriptor{Op: OpJP, Cond: 3}
	table[0xE9] = Descriptor{Op: OpJPHL}

	table[0xCD] = Descriptor{Op: OpCALL, Cond: condAlways}
	table[0xC4] = Descriptor{Op: OpCALL, Cond: 0}
	table[0xCC] = Descriptor{Op: OpCALL, Cond: 1}
	table[0xD4] = Descriptor{Op: OpCALL, Cond: 2}
	table[0xDC] = Descriptor{Op: OpCALL, Cond: 3}

	table[0xC9] = Descriptor{Op: OpRET, Cond: condAlways}
	table[0xC0] = Descriptor{Op: OpRET, Cond: 0}
	table[0xC8] = Descriptor{Op: OpRET, Cond: 1}
	table[0xD0] = Descriptor{Op: OpRET, Cond: 2}
	table[0xD8] = Descriptor{Op: OpRET, Cond: 3}
	table[0xD9] = Descriptor{Op: OpRETI}

	for i, op := range []int{0xC7, 0xCF, 0xD7, 0xDF, 0xE7, 0xEF, 0xF7, 0xFF} {
		table[op] = Descriptor{Op: OpRST, Param: byte(i)}
	}

	table[0xF3] = Descriptor{Op: OpDI}
	table[0xFB] = Descriptor{Op: OpEI}
	table[0x10] = Descriptor{Op: OpStop}
	table[0xCB] = Descriptor{Op: OpPrefixCB}
}

// CBOpType tags the 0xCB-prefixed operation group (§4.8).
type CBOpType int

const (
	CBRLC CBOpType = iota
	CBRRC
	CBRL
	CBRR
	CBSLA
	CBSRA
	CBSWAP
	CBSRL
	CBBIT
	CBRES
	CBSET
)

// decodeCB splits a CB-prefixed opcode byte as bit_op(2) | bit(3) | reg(3),
// per §4.1: bit_op 0 selects the rotate/shift/swap group (further split by
// bit 5-3 into the 8 sub-operations), 1 = BIT, 2 = RES, 3 = SET.
func decodeCB(b byte) (op CBOpType, bitIdx byte, reg byte) {
	group := (b >> 6) & 3
	y := (b >> 3) & 7
	reg = b & 7
	switch group {
	case 0:
		return CBOpType(y), 0, reg
	case 1:
		return CBBIT, y, reg
	case 2:
		return CBRES, y, reg
	default:
		return CBSET, y, reg
	}
}
