package insts

import "fmt"

// abiNames gives the canonical ABI name for each of the 32 integer registers.
var abiNames = [32]string{
	"zero", "ra", "sp", "gp", "tp",
	"t0", "t1", "t2",
	"s0", "s1",
	"a0", "a1", "a2", "a3", "a4", "a5", "a6", "a7",
	"s2", "s3", "s4", "s5", "s6", "s7", "s8", "s9", "s10", "s11",
	"t3", "t4", "t5", "t6",
}

// RegisterName returns the ABI name of register r (r must be < 32).
func RegisterName(r uint8) string {
	if int(r) >= len(abiNames) {
		return fmt.Sprintf("x%d", r)
	}
	return abiNames[r]
}

var namesToRegister = buildRegisterNameTable()

func buildRegisterNameTable() map[string]uint8 {
	m := make(map[string]uint8, 64)
	for i, name := range abiNames {
		m[name] = uint8(i)
		m[fmt.Sprintf("x%d", i)] = uint8(i)
	}
	m["fp"] = 8 // fp is an alias for s0 (x8)
	return m
}

// LookupRegister resolves a register name (xN or an ABI alias) to its
// integer index. ok is false if name is not a valid register.
func LookupRegister(name string) (reg uint8, ok bool) {
	reg, ok = namesToRegister[name]
	return
}
