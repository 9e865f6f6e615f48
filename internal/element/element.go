// Package element maps chemical symbols to atomic numbers.
package element

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxZ is the highest atomic number in the table (oganesson).
const MaxZ = 118

// symbols is indexed by atomic number; index 0 is unused.
var symbols = [MaxZ + 1]string{"",
	"H", "He", "Li", "Be", "B", "C", "N", "O", "F", "Ne",
	"Na", "Mg", "Al", "Si", "P", "S", "Cl", "Ar", "K", "Ca",
	"Sc", "Ti", "V", "Cr", "Mn", "Fe", "Co", "Ni", "Cu", "Zn",
	"Ga", "Ge", "As", "Se", "Br", "Kr", "Rb", "Sr", "Y", "Zr",
	"Nb", "Mo", "Tc", "Ru", "Rh", "Pd", "Ag", "Cd", "In", "Sn",
	"Sb", "Te", "I", "Xe", "Cs", "Ba", "La", "Ce", "Pr", "Nd",
	"Pm", "Sm", "Eu", "Gd", "Tb", "Dy", "Ho", "Er", "Tm", "Yb",
	"Lu", "Hf", "Ta", "W", "Re", "Os", "Ir", "Pt", "Au", "Hg",
	"Tl", "Pb", "Bi", "Po", "At", "Rn", "Fr", "Ra", "Ac", "Th",
	"Pa", "U", "Np", "Pu", "Am", "Cm", "Bk", "Cf", "Es", "Fm",
	"Md", "No", "Lr", "Rf", "Db", "Sg", "Bh", "Hs", "Mt", "Ds",
	"Rg", "Cn", "Nh", "Fl", "Mc", "Lv", "Ts", "Og",
}

var numbers = func() map[string]int {
	m := make(map[string]int, MaxZ)
	for z := 1; z <= MaxZ; z++ {
		m[symbols[z]] = z
	}
	return m
}()

// Number returns the atomic number for a case-sensitive symbol such as "Fe".
func Number(symbol string) (int, bool) {
	z, ok := numbers[symbol]
	return z, ok
}

// Symbol returns the symbol for atomic number z.
func Symbol(z int) (string, bool) {
	if !Valid(z) {
		return "", false
	}
	return symbols[z], true
}

// Valid reports whether z is a known atomic number.
func Valid(z int) bool {
	return z >= 1 && z <= MaxZ
}

// Parse accepts either a symbol ("As") or a decimal atomic number ("33").
// Deck files use it for element map keys.
func Parse(key string) (int, error) {
	key = strings.TrimSpace(key)
	if z, ok := numbers[key]; ok {
		return z, nil
	}
	if z, err := strconv.Atoi(key); err == nil {
		if Valid(z) {
			return z, nil
		}
		return 0, fmt.Errorf("atomic number %d out of range 1-%d", z, MaxZ)
	}
	return 0, fmt.Errorf("unknown element %q", key)
}
