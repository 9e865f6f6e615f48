package artifact

import "path/filepath"

// DefaultDir is the subdirectory artifacts are written to when none is given.
const DefaultDir = "xmi"

const (
	InputExt  = ".xmsi"
	OutputExt = ".xmso"
)

// Paths locates the artifacts of one calculation. Dir may be empty to use the
// working directory.
type Paths struct {
	Dir  string
	Name string
}

// Base is the path without extension shared by every artifact.
func (p Paths) Base() string {
	if p.Dir == "" {
		return p.Name
	}
	return filepath.Join(p.Dir, p.Name)
}

// Input is the rendered simulation input.
func (p Paths) Input() string { return p.Base() + InputExt }

// Output is the simulator's XML result.
func (p Paths) Output() string { return p.Base() + OutputExt }

// Export is the exported spectrum with the given bare extension, e.g. "csv".
func (p Paths) Export(ext string) string { return p.Base() + "." + ext }
