package simulator

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidExport marks an export format the simulator does not accept.
var ErrInvalidExport = errors.New("invalid export format")

// Options selects the simulator's optional behaviours. The zero value runs
// with the simulator defaults: every cascade on, no pile-up, maximum threads
// and no export.
type Options struct {
	DisableMLines            bool
	DisableAugerCascade      bool
	DisableRadiativeCascade  bool
	DisableVarianceReduction bool
	EnablePileUp             bool
	DisableEscapePeaks       bool
	EnablePoisson            bool
	EnableOpenCL             bool
	EnableAdvancedCompton    bool
	EnableDefaultSeeds       bool

	// Threads caps the worker threads; 0 lets the simulator use all cores.
	Threads int

	// Export requests an extra spectrum file; empty means none.
	Export Export
}

// Flags returns the set feature flags in the order the simulator documents them.
func (o Options) Flags() []string {
	var flags []string
	for _, f := range []struct {
		set  bool
		flag string
	}{
		{o.DisableMLines, "--disable-M-lines"},
		{o.DisableAugerCascade, "--disable-auger-cascade"},
		{o.DisableRadiativeCascade, "--disable-radiative-cascade"},
		{o.DisableVarianceReduction, "--disable-variance-reduction"},
		{o.EnablePileUp, "--enable-pile-up"},
		{o.DisableEscapePeaks, "--disable-escape-peaks"},
		{o.EnablePoisson, "--enable-poisson"},
		{o.EnableOpenCL, "--enable-opencl"},
		{o.EnableAdvancedCompton, "--enable-advanced-compton"},
		{o.EnableDefaultSeeds, "--enable-default-seeds"},
	} {
		if f.set {
			flags = append(flags, f.flag)
		}
	}
	return flags
}

// HashSuffix is appended to the document body before hashing so runs made
// under different physics assumptions never share artifacts. Threads and
// export do not change the result and are left out.
func (o Options) HashSuffix() string {
	var b strings.Builder
	for _, f := range o.Flags() {
		b.WriteByte(' ')
		b.WriteString(f)
	}
	return b.String()
}

// Validate rejects negative thread counts and unknown export formats.
func (o Options) Validate() error {
	if o.Threads < 0 {
		return fmt.Errorf("threads must be non-negative, got %d", o.Threads)
	}
	if o.Export != "" {
		if _, err := ParseExport(string(o.Export)); err != nil {
			return err
		}
	}
	return nil
}

// Args builds the argument list for an input file. exportPath is ignored when
// no export is requested.
func (o Options) Args(inputPath, exportPath string) []string {
	args := append([]string{inputPath}, o.Flags()...)
	if o.Threads > 0 {
		args = append(args, "--set-threads="+strconv.Itoa(o.Threads))
	}
	if o.Export != "" {
		args = append(args, "--"+string(o.Export), exportPath)
	}
	return args
}

// Export names a simulator export option such as "csv-file" or
// "htm-file-unconvoluted".
type Export string

// DefaultExport is the export used when a deck does not choose one.
const DefaultExport Export = "csv-file"

var exportPattern = regexp.MustCompile(`^(spe|csv|svg|htm)-file(-unconvoluted)?$`)

// ParseExport validates an export name. "" and "none" select no export.
func ParseExport(s string) (Export, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "none" {
		return "", nil
	}
	if !exportPattern.MatchString(s) {
		return "", fmt.Errorf("%w: %q (want spe-file, csv-file, svg-file or htm-file, optionally with -unconvoluted)", ErrInvalidExport, s)
	}
	return Export(s), nil
}

// Ext is the file extension of the exported artifact without the dot.
func (e Export) Ext() string {
	if m := exportPattern.FindStringSubmatch(string(e)); m != nil {
		return m[1]
	}
	return ""
}

// Unconvoluted reports whether the export skips the detector response.
func (e Export) Unconvoluted() bool {
	return strings.HasSuffix(string(e), "-unconvoluted")
}
