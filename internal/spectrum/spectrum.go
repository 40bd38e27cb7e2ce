// Package spectrum reads one-dimensional spectra and prepares them for display.
package spectrum

import (
	"math"
	"sort"
)

// Spectrum is a one-dimensional spectrum. Error and Mask are optional and, when
// present, have the same length as Wavelength. A true mask entry marks a bad
// pixel.
type Spectrum struct {
	Wavelength []float64
	Flux       []float64
	Error      []float64
	Mask       []bool
}

// Stats summarizes the unmasked pixels of a spectrum
type Stats struct {
	Pixels     int
	Masked     int
	MinWave    float64
	MaxWave    float64
	MinFlux    float64
	MaxFlux    float64
	MedianFlux float64
}

// Len returns the number of pixels
func (s *Spectrum) Len() int {
	return len(s.Wavelength)
}

// Masked reports whether pixel i is flagged bad
func (s *Spectrum) Masked(i int) bool {
	return s.Mask != nil && s.Mask[i]
}

// Scaled returns a copy with flux and error multiplied by f
func (s *Spectrum) Scaled(f float64) *Spectrum {
	out := s.clone()
	for i := range out.Flux {
		out.Flux[i] *= f
	}
	for i := range out.Error {
		out.Error[i] *= math.Abs(f)
	}
	return out
}

// RestFrame returns a copy with wavelengths shifted to the rest frame of z
func (s *Spectrum) RestFrame(z float64) *Spectrum {
	out := s.clone()
	for i := range out.Wavelength {
		out.Wavelength[i] /= 1 + z
	}
	return out
}

// Range returns the smallest and largest wavelength
func (s *Spectrum) Range() (float64, float64) {
	if s.Len() == 0 {
		return 0, 0
	}
	lo, hi := s.Wavelength[0], s.Wavelength[0]
	for _, w := range s.Wavelength[1:] {
		lo = math.Min(lo, w)
		hi = math.Max(hi, w)
	}
	return lo, hi
}

// Stats computes display statistics over unmasked, finite pixels
func (s *Spectrum) Stats() Stats {
	st := Stats{Pixels: s.Len()}
	st.MinWave, st.MaxWave = s.Range()

	good := make([]float64, 0, s.Len())
	for i, f := range s.Flux {
		if s.Masked(i) || math.IsNaN(f) || math.IsInf(f, 0) {
			st.Masked++
			continue
		}
		good = append(good, f)
	}
	if len(good) == 0 {
		return st
	}
	sort.Float64s(good)
	st.MinFlux, st.MaxFlux = good[0], good[len(good)-1]
	mid := len(good) / 2
	if len(good)%2 == 0 {
		st.MedianFlux = (good[mid-1] + good[mid]) / 2
	} else {
		st.MedianFlux = good[mid]
	}
	return st
}

// Placeholder returns an all-zero spectrum of n pixels, used in place of an
// unreadable file when placeholders are enabled.
func Placeholder(n int) *Spectrum {
	s := &Spectrum{
		Wavelength: make([]float64, n),
		Flux:       make([]float64, n),
	}
	for i := range s.Wavelength {
		s.Wavelength[i] = float64(i)
	}
	return s
}

func (s *Spectrum) clone() *Spectrum {
	out := &Spectrum{
		Wavelength: append([]float64(nil), s.Wavelength...),
		Flux:       append([]float64(nil), s.Flux...),
	}
	if s.Error != nil {
		out.Error = append([]float64(nil), s.Error...)
	}
	if s.Mask != nil {
		out.Mask = append([]bool(nil), s.Mask...)
	}
	return out
}
