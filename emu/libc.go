package emu

import (
	"bufio"
	"fmt"
	"strconv"
)

// LibcName is the fixed, ordered list of shim routines. Its index is the
// routine's slot within the sentinel address range: routine i lives at
// libcBase + 4*i. The assembler/linker treat these names as predefined
// globals so that `call putchar` resolves without the guest ever having
// to define them.
var LibcName = []string{
	"exit",
	"putchar",
	"getchar",
	"puts",
	"printf",
	"scanf",
	"malloc",
	"calloc",
	"free",
	"sbrk",
}

const (
	libcExit = iota
	libcPutchar
	libcGetchar
	libcPuts
	libcPrintf
	libcScanf
	libcMalloc
	libcCalloc
	libcFree
	libcSbrk
)

// freeBlock is one entry of the free list a program's calls to free leave
// behind, kept in insertion order; free merges a block with at most one
// adjacent neighbor already on the list.
type freeBlock struct {
	addr uint32
	size uint32
}

// Libc is the sentinel-address dispatch table described by the memory
// design: a block of addresses above the guest's linked image that never
// holds real instructions. When the interpreter's PC lands in this range
// it calls Invoke instead of fetching and decoding, then resumes at the
// return address in ra, exactly as if the call had been an ordinary
// subroutine call.
type Libc struct {
	base uint32
	mem  *Memory
	dev  *Device

	reader *bufio.Reader

	heapStart  uint32
	heapEnd    uint32
	brk        uint32
	freeList   []freeBlock
	allocSizes map[uint32]uint32
}

// NewLibc creates the shim table. base is the address of the first
// routine; the guest's heap is the region [heapStart, heapEnd).
func NewLibc(base uint32, mem *Memory, dev *Device, heapStart, heapEnd uint32) *Libc {
	return &Libc{
		base:       base,
		mem:        mem,
		dev:        dev,
		heapStart:  heapStart,
		heapEnd:    heapEnd,
		brk:        heapStart,
		allocSizes: make(map[uint32]uint32),
	}
}

// Symbols returns the {name: address} table the linker installs as
// predefined globals, so unresolved calls to libc routines don't trigger
// UnknownSymbol.
func (l *Libc) Symbols() map[string]uint32 {
	m := make(map[string]uint32, len(LibcName))
	for i, name := range LibcName {
		m[name] = l.base + uint32(4*i)
	}
	return m
}

// Contains reports whether addr falls inside the sentinel range.
func (l *Libc) Contains(addr uint32) bool {
	return addr >= l.base && addr < l.base+uint32(4*len(LibcName))
}

func (l *Libc) slotOf(addr uint32) int {
	return int((addr - l.base) / 4)
}

// Invoke dispatches the routine at addr using the RISC-V integer calling
// convention (arguments in a0-a7, return value in a0). rf is the register
// file the arguments are read from and the result is written to.
func (l *Libc) Invoke(addr uint32, rf *RegisterFile) error {
	switch l.slotOf(addr) {
	case libcExit:
		rf.Halt(int32(rf.ReadReg(10)))
		return nil
	case libcPutchar:
		return l.putchar(rf)
	case libcGetchar:
		return l.getchar(rf)
	case libcPuts:
		return l.puts(rf)
	case libcPrintf:
		return l.printf(rf)
	case libcScanf:
		return l.scanf(rf)
	case libcMalloc:
		return l.malloc(rf)
	case libcCalloc:
		return l.calloc(rf)
	case libcFree:
		return l.free(rf)
	case libcSbrk:
		return l.sbrk(rf)
	default:
		return &FailToInterpret{Kind: LibcError, LibcIndex: l.slotOf(addr), Message: "no such libc routine"}
	}
}

func (l *Libc) putchar(rf *RegisterFile) error {
	c := byte(rf.ReadReg(10))
	fmt.Fprintf(l.dev.Message, "%c", c)
	rf.WriteReg(10, uint32(c))
	return nil
}

func (l *Libc) getchar(rf *RegisterFile) error {
	if l.dev.Stdin == nil {
		rf.WriteReg(10, ^uint32(0)) // EOF
		return nil
	}
	if l.reader == nil {
		l.reader = bufio.NewReader(l.dev.Stdin)
	}
	b, err := l.reader.ReadByte()
	if err != nil {
		rf.WriteReg(10, ^uint32(0))
		return nil
	}
	rf.WriteReg(10, uint32(b))
	return nil
}

func (l *Libc) puts(rf *RegisterFile) error {
	s, err := l.mem.CString(rf.ReadReg(10))
	if err != nil {
		return err
	}
	n, _ := fmt.Fprintln(l.dev.Message, s)
	rf.WriteReg(10, uint32(n))
	return nil
}

// printf supports the small subset of format verbs a bare-metal RV32I
// program can plausibly need: %d, %u, %x, %c, %s, %%. Anything else is
// copied through literally rather than raising a run-time trap, since a
// malformed format string is a guest bug, not an interpreter fault.
func (l *Libc) printf(rf *RegisterFile) error {
	format, err := l.mem.CString(rf.ReadReg(10))
	if err != nil {
		return err
	}
	argRegs := []uint8{11, 12, 13, 14, 15, 16, 17}
	argIdx := 0
	nextArg := func() uint32 {
		if argIdx >= len(argRegs) {
			return 0
		}
		v := rf.ReadReg(argRegs[argIdx])
		argIdx++
		return v
	}

	out := make([]byte, 0, len(format))
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' || i == len(format)-1 {
			out = append(out, c)
			continue
		}
		i++
		switch format[i] {
		case 'd':
			out = append(out, strconv.FormatInt(int64(int32(nextArg())), 10)...)
		case 'u':
			out = append(out, strconv.FormatUint(uint64(nextArg()), 10)...)
		case 'x':
			out = append(out, strconv.FormatUint(uint64(nextArg()), 16)...)
		case 'c':
			out = append(out, byte(nextArg()))
		case 's':
			s, serr := l.mem.CString(nextArg())
			if serr != nil {
				return serr
			}
			out = append(out, s...)
		case '%':
			out = append(out, '%')
		default:
			out = append(out, '%', format[i])
		}
	}
	n, _ := l.dev.Message.Write(out)
	rf.WriteReg(10, uint32(n))
	return nil
}

// scanf supports a single "%d" conversion, the only one a minimal
// bare-metal libc realistically exercises: it reads one whitespace
// delimited token from stdin, parses it as a decimal integer, and stores
// it through the pointer in a1.
func (l *Libc) scanf(rf *RegisterFile) error {
	format, err := l.mem.CString(rf.ReadReg(10))
	if err != nil {
		return err
	}
	if format != "%d" {
		rf.WriteReg(10, 0)
		return nil
	}
	if l.dev.Stdin == nil {
		rf.WriteReg(10, ^uint32(0)) // EOF
		return nil
	}
	if l.reader == nil {
		l.reader = bufio.NewReader(l.dev.Stdin)
	}
	var token []byte
	for {
		b, rerr := l.reader.ReadByte()
		if rerr != nil {
			break
		}
		if b == ' ' || b == '\n' || b == '\t' {
			if len(token) == 0 {
				continue
			}
			break
		}
		token = append(token, b)
	}
	if len(token) == 0 {
		rf.WriteReg(10, ^uint32(0))
		return nil
	}
	v, perr := strconv.ParseInt(string(token), 10, 32)
	if perr != nil {
		rf.WriteReg(10, 0)
		return nil
	}
	ptr := rf.ReadReg(11)
	if serr := l.mem.StoreI32(ptr, uint32(int32(v))); serr != nil {
		return serr
	}
	rf.WriteReg(10, 1)
	return nil
}

const heapAlign = 8

func alignUp(v, align uint32) uint32 {
	return (v + align - 1) &^ (align - 1)
}

// malloc first-fits against the free list, falling back to a bump
// allocation from brk. Returning 0 signals out-of-memory, matching the
// guest-visible convention of a NULL pointer.
func (l *Libc) malloc(rf *RegisterFile) error {
	size := alignUp(rf.ReadReg(10), heapAlign)
	if size == 0 {
		rf.WriteReg(10, 0)
		return nil
	}

	for i, blk := range l.freeList {
		if blk.size >= size {
			l.allocSizes[blk.addr] = size
			if blk.size > size {
				l.freeList[i] = freeBlock{addr: blk.addr + size, size: blk.size - size}
			} else {
				l.freeList = append(l.freeList[:i], l.freeList[i+1:]...)
			}
			rf.WriteReg(10, blk.addr)
			return nil
		}
	}

	if l.brk+size > l.heapEnd {
		rf.WriteReg(10, 0)
		return nil
	}
	addr := l.brk
	l.brk += size
	l.allocSizes[addr] = size
	rf.WriteReg(10, addr)
	return nil
}

// calloc allocates nmemb*size bytes and zero-fills them; RV32I has no
// hardware zero-fill, so the fill is done a byte at a time through Memory.
func (l *Libc) calloc(rf *RegisterFile) error {
	nmemb := rf.ReadReg(10)
	size := rf.ReadReg(11)
	total := nmemb * size

	rf.WriteReg(10, total)
	if err := l.malloc(rf); err != nil {
		return err
	}
	addr := rf.ReadReg(10)
	if addr == 0 {
		return nil
	}
	for i := uint32(0); i < total; i++ {
		if err := l.mem.StoreI8(addr+i, 0); err != nil {
			return err
		}
	}
	return nil
}

// free returns the block to the free list, coalescing with its immediate
// neighbor when the two happen to be address-adjacent. A double free or a
// pointer free never allocated is a silent no-op, matching the original
// implementation's tolerance of guest misuse in this one shim.
func (l *Libc) free(rf *RegisterFile) error {
	addr := rf.ReadReg(10)
	size, ok := l.allocSizes[addr]
	if !ok {
		return nil
	}
	delete(l.allocSizes, addr)

	blk := freeBlock{addr: addr, size: size}
	inserted := false
	for i, b := range l.freeList {
		if b.addr+b.size == blk.addr {
			l.freeList[i].size += blk.size
			inserted = true
			break
		}
		if blk.addr+blk.size == b.addr {
			l.freeList[i] = freeBlock{addr: blk.addr, size: blk.size + b.size}
			inserted = true
			break
		}
	}
	if !inserted {
		l.freeList = append(l.freeList, blk)
	}
	return nil
}

// sbrk moves the break by the signed increment in a0 and returns the
// previous break, following the traditional Unix sbrk contract.
func (l *Libc) sbrk(rf *RegisterFile) error {
	inc := int32(rf.ReadReg(10))
	prev := l.brk
	next := uint32(int64(l.brk) + int64(inc))
	if next < l.heapStart || next > l.heapEnd {
		rf.WriteReg(10, ^uint32(0))
		return nil
	}
	l.brk = next
	rf.WriteReg(10, prev)
	return nil
}
