package spectrum

import (
	"bytes"
	"encoding/csv"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"

	"github.com/banshee-data/xrfsim/internal/artifact"
)

// ParseCSV reads an XMI-MSIM CSV export. Each row is the channel number,
// the energy, then one cumulative count column per interaction order; the
// energy and the last column are kept.
func ParseCSV(r io.Reader) (Spectrum, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	var s Spectrum
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParse, err)
		}
		line, _ := cr.FieldPos(0)
		if len(rec) < 3 {
			return nil, fmt.Errorf("%w: line %d: want channel, energy and counts, got %d fields", ErrParse, line, len(rec))
		}
		energy, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: energy: %w", ErrParse, line, err)
		}
		counts, err := strconv.ParseFloat(strings.TrimSpace(rec[len(rec)-1]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: counts: %w", ErrParse, line, err)
		}
		s = append(s, Point{Energy: energy, Counts: counts})
	}
	if len(s) == 0 {
		return nil, fmt.Errorf("%w: no channels", ErrParse)
	}
	return s, nil
}

const (
	convolutedTag   = "spectrum_conv"
	unconvolutedTag = "spectrum_unconv"
)

type xmsoSpectrum struct {
	Channels []struct {
		Energy string `xml:"energy"`
		Counts []struct {
			Interaction int    `xml:"interaction_number,attr"`
			Value       string `xml:",chardata"`
		} `xml:"counts"`
	} `xml:"channel"`
}

// ParseXMSO reads the detector-convoluted spectrum from a simulator output
// file, or the unconvoluted one when unconvoluted is set. Each channel keeps
// the counts of its last interaction element.
func ParseXMSO(r io.Reader, unconvoluted bool) (Spectrum, error) {
	tag := convolutedTag
	if unconvoluted {
		tag = unconvolutedTag
	}

	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, fmt.Errorf("%w: <%s> not found", ErrParse, tag)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParse, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != tag {
			continue
		}

		var raw xmsoSpectrum
		if err := dec.DecodeElement(&raw, &start); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParse, err)
		}
		return raw.spectrum()
	}
}

func (raw *xmsoSpectrum) spectrum() (Spectrum, error) {
	s := make(Spectrum, 0, len(raw.Channels))
	for i, ch := range raw.Channels {
		if len(ch.Counts) == 0 {
			return nil, fmt.Errorf("%w: channel %d has no counts", ErrParse, i)
		}
		energy, err := strconv.ParseFloat(strings.TrimSpace(ch.Energy), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: channel %d energy: %w", ErrParse, i, err)
		}
		last := ch.Counts[len(ch.Counts)-1]
		counts, err := strconv.ParseFloat(strings.TrimSpace(last.Value), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: channel %d counts: %w", ErrParse, i, err)
		}
		s = append(s, Point{Energy: energy, Counts: counts})
	}
	if len(s) == 0 {
		return nil, fmt.Errorf("%w: no channels", ErrParse)
	}
	return s, nil
}

// Origin names the artifact a spectrum was read from.
type Origin string

const (
	OriginCSV  Origin = "csv"
	OriginXMSO Origin = "xmso"
)

// Load reads the spectrum of a calculation, preferring the CSV export and
// falling back to the .xmso output.
func Load(store artifact.Store, paths artifact.Paths, unconvoluted bool) (Spectrum, Origin, error) {
	csvErr := ErrNoSpectrum
	if data, err := store.ReadFile(paths.Export("csv")); err == nil {
		s, err := ParseCSV(bytes.NewReader(data))
		if err == nil {
			return s, OriginCSV, nil
		}
		csvErr = err
	} else if !errors.Is(err, fs.ErrNotExist) {
		csvErr = fmt.Errorf("%w: %w", ErrNoSpectrum, err)
	}

	data, err := store.ReadFile(paths.Output())
	if err != nil {
		if errors.Is(csvErr, ErrParse) {
			return nil, "", csvErr
		}
		return nil, "", fmt.Errorf("%w: neither %s nor %s is readable", ErrNoSpectrum, paths.Export("csv"), paths.Output())
	}
	s, err := ParseXMSO(bytes.NewReader(data), unconvoluted)
	if err != nil {
		return nil, "", err
	}
	return s, OriginXMSO, nil
}
