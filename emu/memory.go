package emu

// Memory is a single contiguous guest address space. It is not paged: a
// flat byte slice is allocated up front at the size given by Config, and
// the linked image, heap, and stack all live inside it. Every access is
// validated for bounds and natural alignment before it touches the
// underlying slice.
type Memory struct {
	data []byte
}

// NewMemory allocates a zero-filled guest address space of size bytes.
func NewMemory(size uint32) *Memory {
	return &Memory{data: make([]byte, size)}
}

// Size returns the total number of addressable bytes.
func (m *Memory) Size() uint32 { return uint32(len(m.data)) }

// LoadImage copies bytes into the guest address space starting at base.
// It is used after linking to place each section's contents; it skips the
// alignment checks that guest loads and stores go through, but still
// rejects an image that would run past the end of the address space.
func (m *Memory) LoadImage(base uint32, bytes []byte) error {
	end := uint64(base) + uint64(len(bytes))
	if end > uint64(len(m.data)) {
		return &FailToInterpret{Kind: StoreOutOfBound, Address: base, Width: uint32(len(bytes))}
	}
	copy(m.data[base:], bytes)
	return nil
}

func (m *Memory) checkBounds(addr uint32, width uint32, kind ErrorKind) error {
	end := uint64(addr) + uint64(width)
	if end > uint64(len(m.data)) {
		return &FailToInterpret{Kind: kind, Address: addr, Width: width}
	}
	return nil
}

func (m *Memory) checkAlign(addr uint32, width uint32, kind ErrorKind) error {
	if addr%width != 0 {
		return &FailToInterpret{Kind: kind, Address: addr, Width: width}
	}
	return nil
}

// LoadU8 reads an unsigned byte. Bytes have no alignment constraint.
func (m *Memory) LoadU8(addr uint32) (uint32, error) {
	if err := m.checkBounds(addr, 1, LoadOutOfBound); err != nil {
		return 0, err
	}
	return uint32(m.data[addr]), nil
}

// LoadI8 reads a sign-extended byte.
func (m *Memory) LoadI8(addr uint32) (int32, error) {
	v, err := m.LoadU8(addr)
	if err != nil {
		return 0, err
	}
	return int32(int8(v)), nil
}

// LoadU16 reads an unsigned halfword. addr must be 2-byte aligned.
func (m *Memory) LoadU16(addr uint32) (uint32, error) {
	if err := m.checkAlign(addr, 2, LoadMisAligned); err != nil {
		return 0, err
	}
	if err := m.checkBounds(addr, 2, LoadOutOfBound); err != nil {
		return 0, err
	}
	return uint32(m.data[addr]) | uint32(m.data[addr+1])<<8, nil
}

// LoadI16 reads a sign-extended halfword. addr must be 2-byte aligned.
func (m *Memory) LoadI16(addr uint32) (int32, error) {
	v, err := m.LoadU16(addr)
	if err != nil {
		return 0, err
	}
	return int32(int16(v)), nil
}

// LoadU32 reads a word. addr must be 4-byte aligned.
func (m *Memory) LoadU32(addr uint32) (uint32, error) {
	if err := m.checkAlign(addr, 4, LoadMisAligned); err != nil {
		return 0, err
	}
	if err := m.checkBounds(addr, 4, LoadOutOfBound); err != nil {
		return 0, err
	}
	return uint32(m.data[addr]) | uint32(m.data[addr+1])<<8 |
		uint32(m.data[addr+2])<<16 | uint32(m.data[addr+3])<<24, nil
}

// LoadI32 reads a word as a signed value. addr must be 4-byte aligned.
func (m *Memory) LoadI32(addr uint32) (int32, error) {
	v, err := m.LoadU32(addr)
	if err != nil {
		return 0, err
	}
	return int32(v), nil
}

// StoreI8 writes the low byte of value.
func (m *Memory) StoreI8(addr uint32, value uint32) error {
	if err := m.checkBounds(addr, 1, StoreOutOfBound); err != nil {
		return err
	}
	m.data[addr] = byte(value)
	return nil
}

// StoreI16 writes the low halfword of value. addr must be 2-byte aligned.
func (m *Memory) StoreI16(addr uint32, value uint32) error {
	if err := m.checkAlign(addr, 2, StoreMisAligned); err != nil {
		return err
	}
	if err := m.checkBounds(addr, 2, StoreOutOfBound); err != nil {
		return err
	}
	m.data[addr] = byte(value)
	m.data[addr+1] = byte(value >> 8)
	return nil
}

// StoreI32 writes value as a word. addr must be 4-byte aligned.
func (m *Memory) StoreI32(addr uint32, value uint32) error {
	if err := m.checkAlign(addr, 4, StoreMisAligned); err != nil {
		return err
	}
	if err := m.checkBounds(addr, 4, StoreOutOfBound); err != nil {
		return err
	}
	m.data[addr] = byte(value)
	m.data[addr+1] = byte(value >> 8)
	m.data[addr+2] = byte(value >> 16)
	m.data[addr+3] = byte(value >> 24)
	return nil
}

// FetchCmd reads the raw instruction word at addr, checking the stricter
// instruction-fetch alignment and bounds rules. It is the only load path
// the ICache uses; guest data loads never go through it.
func (m *Memory) FetchCmd(addr uint32) (uint32, error) {
	if err := m.checkAlign(addr, 4, InsMisAligned); err != nil {
		return 0, err
	}
	if err := m.checkBounds(addr, 4, InsOutOfBound); err != nil {
		return 0, err
	}
	return uint32(m.data[addr]) | uint32(m.data[addr+1])<<8 |
		uint32(m.data[addr+2])<<16 | uint32(m.data[addr+3])<<24, nil
}

// CString returns the string starting at addr, used by the libc shim for
// puts/printf-style string reads. It stops at the first NUL or at the end
// of the address space, whichever comes first.
func (m *Memory) CString(addr uint32) (string, error) {
	if addr >= uint32(len(m.data)) {
		return "", &FailToInterpret{Kind: LoadOutOfBound, Address: addr, Width: 1}
	}
	end := addr
	for end < uint32(len(m.data)) && m.data[end] != 0 {
		end++
	}
	return string(m.data[addr:end]), nil
}
