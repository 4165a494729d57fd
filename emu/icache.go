package emu

import "github.com/rv32i-toolkit/rvsim/insts"

// Hint lets the interpreter loop skip the address-to-slot computation on
// straight-line code: if the next fetch's PC matches PredictedPC, the
// cached Slot is reused directly. It is not a model of hardware
// instruction-cache behavior (no misses, no eviction, no timing effect);
// it exists purely to make repeated Decode calls for the same address a
// slice index instead of a map lookup.
type Hint struct {
	PredictedPC uint32
	Slot        int
	Valid       bool
}

// ICache is the decoded-executable cache described by the interpreter
// design: a flat array of Decoded instructions covering the text section,
// populated lazily on first fetch and never invalidated (the guest image
// is immutable once linked). Addresses outside the text window still
// decode correctly; they just bypass the array and are not memoized.
type ICache struct {
	mem       *Memory
	decoder   *insts.Decoder
	textStart uint32
	textEnd   uint32
	entries   []insts.Instruction
	valid     []bool
}

// NewICache builds a cache covering [textStart, textStart+textSize).
func NewICache(mem *Memory, textStart, textSize uint32) *ICache {
	n := (textSize + 3) / 4
	return &ICache{
		mem:       mem,
		decoder:   insts.NewDecoder(),
		textStart: textStart,
		textEnd:   textStart + textSize,
		entries:   make([]insts.Instruction, n),
		valid:     make([]bool, n),
	}
}

func (c *ICache) slotFor(pc uint32) (int, bool) {
	if pc < c.textStart || pc >= c.textEnd {
		return 0, false
	}
	return int((pc - c.textStart) / 4), true
}

// Ifetch decodes the instruction at pc, consulting hint first and falling
// back to the cache array, then a cold decode. It returns the decoded
// instruction, a hint describing the next sequential fetch, and any
// fault raised by the underlying memory access.
func (c *ICache) Ifetch(pc uint32, hint Hint) (*insts.Instruction, Hint, error) {
	if hint.Valid && hint.PredictedPC == pc && hint.Slot < len(c.entries) && c.valid[hint.Slot] {
		return &c.entries[hint.Slot], c.nextHint(pc, hint.Slot), nil
	}

	slot, inRange := c.slotFor(pc)
	if !inRange {
		word, err := c.mem.FetchCmd(pc)
		if err != nil {
			return nil, Hint{}, err
		}
		inst := c.decoder.Decode(word)
		return inst, Hint{}, nil
	}

	if !c.valid[slot] {
		word, err := c.mem.FetchCmd(pc)
		if err != nil {
			return nil, Hint{}, err
		}
		c.entries[slot] = *c.decoder.Decode(word)
		c.valid[slot] = true
	}
	return &c.entries[slot], c.nextHint(pc, slot), nil
}

func (c *ICache) nextHint(pc uint32, slot int) Hint {
	next := slot + 1
	return Hint{PredictedPC: pc + 4, Slot: next, Valid: next < len(c.entries)}
}
