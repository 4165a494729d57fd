package link

import (
	"encoding/binary"

	"github.com/rv32i-toolkit/rvsim/asm"
	"github.com/rv32i-toolkit/rvsim/insts"
)

const (
	branchMin, branchMax = -4096, 4094
	jumpMin, jumpMax      = -1 << 20, 1<<20 - 2
	iTypeMin, iTypeMax    = -2048, 2047
)

// buildInstAt indexes every TEXT instruction by its absolute address so
// PCREL_LO evaluation can chase an anchor label back to the auipc that
// defines it.
func buildInstAt(files []*asm.File, img *image) instructionAt {
	byAddr := make(map[uint32]*asm.Instruction)
	for i, f := range files {
		pc := img.textSpans[i].start
		for j := range f.Text.Items {
			it := &f.Text.Items[j]
			if it.Kind == asm.ItemInstruction {
				byAddr[pc] = it.Inst
			}
			pc += it.Size()
		}
	}
	return func(addr uint32) (*asm.Instruction, bool) {
		inst, ok := byAddr[addr]
		return inst, ok
	}
}

// encodeText walks every file's TEXT items in address order, evaluates
// each instruction's immediate, packs it into its 32-bit encoding, and
// writes the result little-endian into out (already sized to img.textSize).
func encodeText(files []*asm.File, img *image, instAt instructionAt, out []byte) error {
	for i, f := range files {
		pc := img.textSpans[i].start
		local := img.locals[f]
		for j := range f.Text.Items {
			it := &f.Text.Items[j]
			switch it.Kind {
			case asm.ItemBytes:
				copy(out[pc-img.bases.Text:], it.Bytes)
			case asm.ItemInstruction:
				enc, err := encodeInstruction(it.Inst, img.global, local, pc, instAt)
				if err != nil {
					return err
				}
				binary.LittleEndian.PutUint32(out[pc-img.bases.Text:], enc)
			}
			pc += it.Size()
		}
	}
	return nil
}

func encodeInstruction(src *asm.Instruction, global map[string]*resolvedSymbol, local map[string]*resolvedSymbol, pc uint32, instAt instructionAt) (uint32, error) {
	out := &insts.Instruction{Op: src.Op, Format: src.Format, Rd: src.Rd, Rs1: src.Rs1, Rs2: src.Rs2}

	if src.IsShift {
		out.Shamt = src.Shamt
		return insts.Encode(out)
	}
	if !src.HasImm {
		return insts.Encode(out)
	}

	ev := NewEvaluator(global, local, pc, instAt, src.SourceFile, src.SourceLine)
	v, err := ev.Eval(src.Imm)
	if err != nil {
		return 0, err
	}

	switch src.Format {
	case insts.FormatU:
		out.Imm = int32(uint32(v) << 12)

	case insts.FormatB:
		offset := v - int32(pc)
		if offset%2 != 0 {
			return 0, &UnalignedBranchTarget{File: src.SourceFile, Line: src.SourceLine, Offset: offset}
		}
		if offset < branchMin || offset > branchMax {
			return 0, &ImmediateOutOfRange{File: src.SourceFile, Line: src.SourceLine, Op: src.Op.Mnemonic(), Value: offset}
		}
		out.Imm = offset

	case insts.FormatJ:
		offset := v - int32(pc)
		if offset%2 != 0 {
			return 0, &UnalignedBranchTarget{File: src.SourceFile, Line: src.SourceLine, Offset: offset}
		}
		if offset < jumpMin || offset > jumpMax {
			return 0, &ImmediateOutOfRange{File: src.SourceFile, Line: src.SourceLine, Op: src.Op.Mnemonic(), Value: offset}
		}
		out.Imm = offset

	case insts.FormatI, insts.FormatS:
		if v < iTypeMin || v > iTypeMax {
			return 0, &ImmediateOutOfRange{File: src.SourceFile, Line: src.SourceLine, Op: src.Op.Mnemonic(), Value: v}
		}
		out.Imm = v

	default:
		out.Imm = v
	}

	return insts.Encode(out)
}

// encodeData resolves every ItemWord in a data-like section (DATA or
// RODATA) and writes the section's fully-resolved bytes into out.
func encodeData(files []*asm.File, spans []sectionSpan, img *image, sectionSize uint32, kind asm.SectionKind, out []byte) error {
	for i, f := range files {
		buf := bufferFor(f, kind)
		pc := spans[i].start
		local := img.locals[f]
		base := spanBaseFor(img, kind)
		for j := range buf.Items {
			it := &buf.Items[j]
			switch it.Kind {
			case asm.ItemBytes:
				copy(out[pc-base:], it.Bytes)
			case asm.ItemWord:
				ev := NewEvaluator(img.global, local, pc, nil, f.Name, it.Line)
				v, err := ev.Eval(it.Value)
				if err != nil {
					return err
				}
				writeLittleEndian(out[pc-base:], uint32(v), it.Width)
			}
			pc += it.Size()
		}
	}
	return nil
}

func bufferFor(f *asm.File, kind asm.SectionKind) *asm.Buffer {
	switch kind {
	case asm.Data:
		return f.Data
	case asm.Rodata:
		return f.Rodata
	default:
		return f.Text
	}
}

func spanBaseFor(img *image, kind asm.SectionKind) uint32 {
	switch kind {
	case asm.Data:
		return img.bases.Data
	case asm.Rodata:
		return img.bases.Rodata
	default:
		return img.bases.Text
	}
}

func writeLittleEndian(out []byte, v uint32, width uint32) {
	switch width {
	case 1:
		out[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(out, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(out, v)
	}
}
