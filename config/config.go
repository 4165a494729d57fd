// Package config holds the toolchain's run configuration: which files to
// assemble, which diagnostic options are enabled, and the resource limits
// (timeout, memory size, section bases) the linker and interpreter run
// under. It follows the same functional-options constructor pattern as
// emu.WithDebugTrace, and a JSON load/save/validate/clone idiom for
// overriding the defaults from a file.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rv32i-toolkit/rvsim/link"
)

// Default resource limits: round, generous numbers rather than anything
// derived from a specific program's needs.
const (
	DefaultTimeout    = uint64(10_000_000)
	DefaultMemorySize = uint64(1 << 20) // 1 MiB
)

// Option names recognized in Config.Options. Unknown keys are accepted and
// simply have no effect, the same tolerance the assembler extends to
// unrecognized-but-harmless directives.
const (
	OptDebug  = "debug"  // per-instruction trace to the profile sink
	OptDetail = "detail" // opt-in fetch-cache profiling (see package profile)
	OptQuiet  = "quiet"  // discard the message sink instead of stdout
)

// Config is the toolchain's complete run configuration.
type Config struct {
	// AssemblyFiles are the .s source paths to assemble and link together,
	// in the order given.
	AssemblyFiles []string `json:"-"`

	// Options toggles named diagnostic behaviors; see the Opt* constants.
	Options map[string]bool `json:"options"`

	// Timeout is the retired-instruction budget the interpreter enforces
	// (0 means unlimited).
	Timeout uint64 `json:"timeout"`

	// MemorySize is the guest address space size in bytes.
	MemorySize uint64 `json:"memory_size"`

	// SectionBases gives the starting address of each of the four fixed
	// output sections.
	SectionBases link.Bases `json:"section_bases"`
}

// Option configures a Config at construction time.
type Option func(*Config)

// WithTimeout overrides the retired-instruction budget.
func WithTimeout(timeout uint64) Option {
	return func(c *Config) { c.Timeout = timeout }
}

// WithMemorySize overrides the guest address space size.
func WithMemorySize(size uint64) Option {
	return func(c *Config) { c.MemorySize = size }
}

// WithOption sets a named diagnostic toggle.
func WithOption(name string, enabled bool) Option {
	return func(c *Config) {
		if c.Options == nil {
			c.Options = make(map[string]bool)
		}
		c.Options[name] = enabled
	}
}

// WithSectionBase overrides one section's base address, identified by its
// GNU section name (".text", ".data", ".rodata", ".bss").
func WithSectionBase(section string, addr uint32) Option {
	return func(c *Config) {
		switch section {
		case ".text":
			c.SectionBases.Text = addr
		case ".data":
			c.SectionBases.Data = addr
		case ".rodata":
			c.SectionBases.Rodata = addr
		case ".bss":
			c.SectionBases.Bss = addr
		}
	}
}

// WithAssemblyFiles sets the list of source paths to assemble.
func WithAssemblyFiles(files []string) Option {
	return func(c *Config) { c.AssemblyFiles = files }
}

// New builds a Config from the toolchain's defaults, applying opts in
// order.
func New(opts ...Option) *Config {
	c := &Config{
		Options:      make(map[string]bool),
		Timeout:      DefaultTimeout,
		MemorySize:   DefaultMemorySize,
		SectionBases: link.DefaultBases(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LoadConfig reads a JSON file and applies it on top of New()'s defaults,
// so a partial JSON document only overrides the fields it mentions.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	c := New()
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return c, nil
}

// SaveConfig writes c to path as indented JSON.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks that the resource limits are usable.
func (c *Config) Validate() error {
	if c.MemorySize == 0 {
		return fmt.Errorf("memory_size must be > 0")
	}
	if len(c.AssemblyFiles) == 0 {
		return fmt.Errorf("at least one assembly file is required")
	}
	bases := []struct {
		name string
		addr uint32
	}{
		{".text", c.SectionBases.Text},
		{".data", c.SectionBases.Data},
		{".rodata", c.SectionBases.Rodata},
		{".bss", c.SectionBases.Bss},
	}
	for _, b := range bases {
		if uint64(b.addr) >= c.MemorySize {
			return fmt.Errorf("%s base 0x%x lies outside the %d-byte address space", b.name, b.addr, c.MemorySize)
		}
	}
	return nil
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	files := make([]string, len(c.AssemblyFiles))
	copy(files, c.AssemblyFiles)
	options := make(map[string]bool, len(c.Options))
	for k, v := range c.Options {
		options[k] = v
	}
	return &Config{
		AssemblyFiles: files,
		Options:       options,
		Timeout:       c.Timeout,
		MemorySize:    c.MemorySize,
		SectionBases:  c.SectionBases,
	}
}
