package insts

// Decoder decodes RV32I machine code into instructions.
type Decoder struct{}

// NewDecoder creates a new RV32I instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a 32-bit RV32I instruction word.
func (d *Decoder) Decode(word uint32) *Instruction {
	inst := &Instruction{Op: OpUnknown, Format: FormatUnknown}

	opcode := word & 0x7F

	switch opcode {
	case 0b0110111:
		d.decodeLUI(word, inst)
	case 0b0010111:
		d.decodeAUIPC(word, inst)
	case 0b1101111:
		d.decodeJAL(word, inst)
	case 0b1100111:
		d.decodeJALR(word, inst)
	case 0b1100011:
		d.decodeBranch(word, inst)
	case 0b0000011:
		d.decodeLoad(word, inst)
	case 0b0100011:
		d.decodeStore(word, inst)
	case 0b0010011:
		d.decodeOpImm(word, inst)
	case 0b0110011:
		d.decodeOp(word, inst)
	case 0b1110011:
		d.decodeSystem(word, inst)
	case 0b0001111:
		inst.Op = OpFENCE
		inst.Format = FormatSystem
	default:
		// Unknown opcode.
	}

	return inst
}

func rd(word uint32) uint8  { return uint8((word >> 7) & 0x1F) }
func rs1(word uint32) uint8 { return uint8((word >> 15) & 0x1F) }
func rs2(word uint32) uint8 { return uint8((word >> 20) & 0x1F) }
func funct3(word uint32) uint32 {
	return (word >> 12) & 0x7
}
func funct7(word uint32) uint32 {
	return (word >> 25) & 0x7F
}

// decodeLUI decodes the U-type LUI instruction.
// Format: imm[31:12] | rd | opcode
func (d *Decoder) decodeLUI(word uint32, inst *Instruction) {
	inst.Format = FormatU
	inst.Op = OpLUI
	inst.Rd = rd(word)
	inst.Imm = int32(word & 0xFFFFF000)
}

// decodeAUIPC decodes the U-type AUIPC instruction.
func (d *Decoder) decodeAUIPC(word uint32, inst *Instruction) {
	inst.Format = FormatU
	inst.Op = OpAUIPC
	inst.Rd = rd(word)
	inst.Imm = int32(word & 0xFFFFF000)
}

// decodeJAL decodes the J-type JAL instruction.
// Format: imm[20|10:1|11|19:12] | rd | opcode
func (d *Decoder) decodeJAL(word uint32, inst *Instruction) {
	inst.Format = FormatJ
	inst.Op = OpJAL
	inst.Rd = rd(word)

	imm20 := (word >> 31) & 0x1
	imm10_1 := (word >> 21) & 0x3FF
	imm11 := (word >> 20) & 0x1
	imm19_12 := (word >> 12) & 0xFF

	raw := (imm20 << 20) | (imm19_12 << 12) | (imm11 << 11) | (imm10_1 << 1)
	inst.Imm = signExtend(raw, 21)
}

// decodeJALR decodes the I-type JALR instruction.
func (d *Decoder) decodeJALR(word uint32, inst *Instruction) {
	inst.Format = FormatI
	inst.Op = OpJALR
	inst.Rd = rd(word)
	inst.Rs1 = rs1(word)
	inst.Imm = signExtend(word>>20, 12)
}

// decodeBranch decodes B-type conditional branches.
// Format: imm[12|10:5] | rs2 | rs1 | funct3 | imm[4:1|11] | opcode
func (d *Decoder) decodeBranch(word uint32, inst *Instruction) {
	inst.Format = FormatB
	inst.Rs1 = rs1(word)
	inst.Rs2 = rs2(word)

	imm12 := (word >> 31) & 0x1
	imm10_5 := (word >> 25) & 0x3F
	imm4_1 := (word >> 8) & 0xF
	imm11 := (word >> 7) & 0x1

	raw := (imm12 << 12) | (imm11 << 11) | (imm10_5 << 5) | (imm4_1 << 1)
	inst.Imm = signExtend(raw, 13)

	switch funct3(word) {
	case 0b000:
		inst.Op = OpBEQ
	case 0b001:
		inst.Op = OpBNE
	case 0b100:
		inst.Op = OpBLT
	case 0b101:
		inst.Op = OpBGE
	case 0b110:
		inst.Op = OpBLTU
	case 0b111:
		inst.Op = OpBGEU
	default:
		inst.Op = OpUnknown
	}
}

// decodeLoad decodes I-type load instructions.
func (d *Decoder) decodeLoad(word uint32, inst *Instruction) {
	inst.Format = FormatI
	inst.Rd = rd(word)
	inst.Rs1 = rs1(word)
	inst.Imm = signExtend(word>>20, 12)

	switch funct3(word) {
	case 0b000:
		inst.Op = OpLB
	case 0b001:
		inst.Op = OpLH
	case 0b010:
		inst.Op = OpLW
	case 0b100:
		inst.Op = OpLBU
	case 0b101:
		inst.Op = OpLHU
	default:
		inst.Op = OpUnknown
	}
}

// decodeStore decodes S-type store instructions.
// Format: imm[11:5] | rs2 | rs1 | funct3 | imm[4:0] | opcode
func (d *Decoder) decodeStore(word uint32, inst *Instruction) {
	inst.Format = FormatS
	inst.Rs1 = rs1(word)
	inst.Rs2 = rs2(word)

	imm11_5 := (word >> 25) & 0x7F
	imm4_0 := (word >> 7) & 0x1F
	raw := (imm11_5 << 5) | imm4_0
	inst.Imm = signExtend(raw, 12)

	switch funct3(word) {
	case 0b000:
		inst.Op = OpSB
	case 0b001:
		inst.Op = OpSH
	case 0b010:
		inst.Op = OpSW
	default:
		inst.Op = OpUnknown
	}
}

// decodeOpImm decodes I-type register-immediate arithmetic.
func (d *Decoder) decodeOpImm(word uint32, inst *Instruction) {
	inst.Format = FormatI
	inst.Rd = rd(word)
	inst.Rs1 = rs1(word)

	f3 := funct3(word)
	switch f3 {
	case 0b000:
		inst.Op = OpADDI
		inst.Imm = signExtend(word>>20, 12)
	case 0b010:
		inst.Op = OpSLTI
		inst.Imm = signExtend(word>>20, 12)
	case 0b011:
		inst.Op = OpSLTIU
		inst.Imm = signExtend(word>>20, 12)
	case 0b100:
		inst.Op = OpXORI
		inst.Imm = signExtend(word>>20, 12)
	case 0b110:
		inst.Op = OpORI
		inst.Imm = signExtend(word>>20, 12)
	case 0b111:
		inst.Op = OpANDI
		inst.Imm = signExtend(word>>20, 12)
	case 0b001:
		inst.Op = OpSLLI
		inst.Shamt = uint8((word >> 20) & 0x1F)
	case 0b101:
		if funct7(word) == 0b0100000 {
			inst.Op = OpSRAI
		} else {
			inst.Op = OpSRLI
		}
		inst.Shamt = uint8((word >> 20) & 0x1F)
	default:
		inst.Op = OpUnknown
	}
}

// decodeOp decodes R-type register-register arithmetic.
func (d *Decoder) decodeOp(word uint32, inst *Instruction) {
	inst.Format = FormatR
	inst.Rd = rd(word)
	inst.Rs1 = rs1(word)
	inst.Rs2 = rs2(word)

	f3, f7 := funct3(word), funct7(word)
	switch {
	case f3 == 0b000 && f7 == 0b0000000:
		inst.Op = OpADD
	case f3 == 0b000 && f7 == 0b0100000:
		inst.Op = OpSUB
	case f3 == 0b001 && f7 == 0b0000000:
		inst.Op = OpSLL
	case f3 == 0b010 && f7 == 0b0000000:
		inst.Op = OpSLT
	case f3 == 0b011 && f7 == 0b0000000:
		inst.Op = OpSLTU
	case f3 == 0b100 && f7 == 0b0000000:
		inst.Op = OpXOR
	case f3 == 0b101 && f7 == 0b0000000:
		inst.Op = OpSRL
	case f3 == 0b101 && f7 == 0b0100000:
		inst.Op = OpSRA
	case f3 == 0b110 && f7 == 0b0000000:
		inst.Op = OpOR
	case f3 == 0b111 && f7 == 0b0000000:
		inst.Op = OpAND
	default:
		inst.Op = OpUnknown
	}
}

// decodeSystem decodes ECALL/EBREAK.
func (d *Decoder) decodeSystem(word uint32, inst *Instruction) {
	inst.Format = FormatSystem
	imm := signExtend(word>>20, 12)
	if imm == 1 {
		inst.Op = OpEBREAK
	} else {
		inst.Op = OpECALL
	}
}
