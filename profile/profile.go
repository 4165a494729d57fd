// Package profile provides an opt-in, execution-transparent diagnostic:
// replaying the interpreter's already-recorded instruction-fetch PCs
// through a hardware-style cache model to report a hit/miss ratio. It
// never feeds back into guest execution — it is a read-only observer,
// wired in only when the CLI's --detail option is set.
package profile

import (
	"fmt"
	"io"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// Config describes a set-associative instruction-fetch cache's geometry.
type Config struct {
	Size          int
	Associativity int
	BlockSize     int
}

// DefaultConfig models a modest L1I: 32KB, 4-way, 64-byte lines. A
// program whose code fits in it misses only on the first fetch from each
// line.
func DefaultConfig() Config {
	return Config{Size: 32 * 1024, Associativity: 4, BlockSize: 64}
}

// FetchProfiler replays a sequence of fetch addresses through an akita
// cache directory, purely to compute a hit/miss ratio. It carries no
// data storage (fetched instruction bytes are never read back out) since
// the only observable it produces is Stats.
type FetchProfiler struct {
	config    Config
	directory *akitacache.DirectoryImpl

	hits, misses uint64
}

// NewFetchProfiler builds a profiler with the given cache geometry.
func NewFetchProfiler(config Config) *FetchProfiler {
	numSets := config.Size / (config.Associativity * config.BlockSize)
	return &FetchProfiler{
		config: config,
		directory: akitacache.NewDirectory(
			numSets,
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
	}
}

// Access records one fetch at pc and reports whether it hit.
func (p *FetchProfiler) Access(pc uint32) bool {
	blockAddr := uint64(pc) &^ uint64(p.config.BlockSize-1)

	block := p.directory.Lookup(0, blockAddr)
	if block != nil && block.IsValid {
		p.hits++
		p.directory.Visit(block)
		return true
	}

	p.misses++
	victim := p.directory.FindVictim(blockAddr)
	if victim != nil {
		victim.Tag = blockAddr
		victim.IsValid = true
	}
	return false
}

// Replay feeds an entire fetch history through Access, in order.
func (p *FetchProfiler) Replay(pcs []uint32) {
	for _, pc := range pcs {
		p.Access(pc)
	}
}

// Stats returns the accumulated hit and miss counts.
func (p *FetchProfiler) Stats() (hits, misses uint64) { return p.hits, p.misses }

// Report writes a one-line hit/miss summary to w.
func (p *FetchProfiler) Report(w io.Writer) {
	total := p.hits + p.misses
	rate := 0.0
	if total > 0 {
		rate = 100.0 * float64(p.hits) / float64(total)
	}
	fmt.Fprintf(w, "fetch profile: %d hits, %d misses, %d accesses (%.1f%% hit rate)\n",
		p.hits, p.misses, total, rate)
}
