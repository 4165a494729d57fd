package profile_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rv32i-toolkit/rvsim/profile"
)

var _ = Describe("FetchProfiler", func() {
	It("reports a hit on the second access to the same cache line", func() {
		p := profile.NewFetchProfiler(profile.Config{Size: 1024, Associativity: 2, BlockSize: 64})
		Expect(p.Access(0x10000)).To(BeFalse())
		Expect(p.Access(0x10004)).To(BeTrue()) // same 64-byte line as above
		hits, misses := p.Stats()
		Expect(hits).To(Equal(uint64(1)))
		Expect(misses).To(Equal(uint64(1)))
	})

	It("misses on every access to a distinct cache line beyond capacity", func() {
		p := profile.NewFetchProfiler(profile.Config{Size: 128, Associativity: 1, BlockSize: 64})
		p.Replay([]uint32{0x10000, 0x10040, 0x10080, 0x100c0})
		hits, misses := p.Stats()
		Expect(hits).To(Equal(uint64(0)))
		Expect(misses).To(Equal(uint64(4)))
	})

	It("writes a hit-rate summary line via Report", func() {
		p := profile.NewFetchProfiler(profile.DefaultConfig())
		p.Replay([]uint32{0x10000, 0x10000, 0x10000})
		var buf bytes.Buffer
		p.Report(&buf)
		Expect(buf.String()).To(ContainSubstring("hits"))
		Expect(buf.String()).To(ContainSubstring("66.7% hit rate"))
	})
})
