// Package lines provides the spectral line list drawn over spectra during review.
package lines

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Medium is the medium wavelengths are expressed in
type Medium string

const (
	Vacuum Medium = "vacuum"
	Air    Medium = "air"
)

// Display selects which lines are drawn
type Display string

const (
	DisplayAll     Display = "all"
	DisplayPrimary Display = "primary"
	DisplayNone    Display = "none"
)

// Line is a rest-frame spectral feature. Wavelength is in vacuum Angstrom.
type Line struct {
	Name       string
	Wavelength float64
	Primary    bool
	Absorption bool
}

// Marker is a line placed at its observed wavelength
type Marker struct {
	Line
	Observed float64
}

// Default is the built-in line list (vacuum Angstrom)
var Default = []Line{
	{Name: "Lyb", Wavelength: 1025.72},
	{Name: "Lya", Wavelength: 1215.67, Primary: true},
	{Name: "NV", Wavelength: 1240.81},
	{Name: "CIV", Wavelength: 1549.48, Primary: true},
	{Name: "HeII", Wavelength: 1640.42},
	{Name: "CIII]", Wavelength: 1908.73, Primary: true},
	{Name: "MgII", Wavelength: 2799.12, Primary: true},
	{Name: "[OII]", Wavelength: 3727.09, Primary: true},
	{Name: "[OII]", Wavelength: 3729.88, Primary: true},
	{Name: "[NeIII]", Wavelength: 3869.86},
	{Name: "CaK", Wavelength: 3934.78, Absorption: true},
	{Name: "CaH", Wavelength: 3969.59, Absorption: true},
	{Name: "Hd", Wavelength: 4102.89},
	{Name: "Hg", Wavelength: 4341.68},
	{Name: "Hb", Wavelength: 4862.68, Primary: true},
	{Name: "[OIII]", Wavelength: 4960.30, Primary: true},
	{Name: "[OIII]", Wavelength: 5008.24, Primary: true},
	{Name: "Mgb", Wavelength: 5176.70, Absorption: true},
	{Name: "NaD", Wavelength: 5895.60, Absorption: true},
	{Name: "[NII]", Wavelength: 6549.86},
	{Name: "Ha", Wavelength: 6564.61, Primary: true},
	{Name: "[NII]", Wavelength: 6585.27},
	{Name: "[SII]", Wavelength: 6718.29},
	{Name: "[SII]", Wavelength: 6732.67},
}

// AirFromVacuum converts a vacuum wavelength (Angstrom) to air (Morton 2000)
func AirFromVacuum(vac float64) float64 {
	s2 := (1e4 / vac) * (1e4 / vac)
	n := 1 + 0.0000834254 + 0.02406147/(130-s2) + 0.00015998/(38.9-s2)
	return vac / n
}

// VacuumFromAir converts an air wavelength (Angstrom) to vacuum (Piskunov)
func VacuumFromAir(air float64) float64 {
	s2 := (1e4 / air) * (1e4 / air)
	n := 1 + 0.00008336624212083 + 0.02408926869968/(130.1065924522-s2) + 0.0001599740894897/(38.92568793293-s2)
	return air * n
}

// In returns the line wavelength expressed in medium m
func (l Line) In(m Medium) float64 {
	if m == Air {
		return AirFromVacuum(l.Wavelength)
	}
	return l.Wavelength
}

// Visible returns the lines of list redshifted by z that fall within
// [lo, hi], with wavelengths in medium m.
func Visible(list []Line, z, lo, hi float64, m Medium, d Display) []Marker {
	if d == DisplayNone {
		return nil
	}
	var out []Marker
	for _, l := range list {
		if d == DisplayPrimary && !l.Primary {
			continue
		}
		obs := l.In(m) * (1 + z)
		if obs >= lo && obs <= hi {
			out = append(out, Marker{Line: l, Observed: obs})
		}
	}
	return out
}

// Load reads a line list with a header naming "name" and "wavelength", and
// optionally "primary" and "absorption". Wavelengths in the file are in medium m.
func Load(path string, m Medium) ([]Line, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open line list: %w", err)
	}
	defer f.Close()
	return parse(f, m)
}

func parse(r io.Reader, m Medium) ([]Line, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read line list header: %w", err)
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	nameCol, okName := col["name"]
	waveCol, okWave := col["wavelength"]
	if !okName || !okWave {
		return nil, fmt.Errorf("line list needs name and wavelength columns")
	}

	flag := func(rec []string, name string) bool {
		i, ok := col[name]
		if !ok {
			return false
		}
		v := strings.ToLower(strings.TrimSpace(rec[i]))
		return v == "1" || v == "true" || v == "yes"
	}

	var out []Line
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		w, err := strconv.ParseFloat(strings.TrimSpace(rec[waveCol]), 64)
		if err != nil || w <= 0 {
			return nil, fmt.Errorf("line list row %d: invalid wavelength %q", row, rec[waveCol])
		}
		if m == Air {
			w = VacuumFromAir(w)
		}
		out = append(out, Line{
			Name:       strings.TrimSpace(rec[nameCol]),
			Wavelength: w,
			Primary:    flag(rec, "primary"),
			Absorption: flag(rec, "absorption"),
		})
	}
	return out, nil
}
