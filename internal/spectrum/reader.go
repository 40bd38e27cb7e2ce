package spectrum

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/kilupskalvis/zcurate/internal/models"
)

// Built-in profiles
const (
	ProfileASCII = "ascii"
	ProfileCSV   = "csv"
)

// Reader decodes a spectrum file of one profile
type Reader interface {
	Read(r io.Reader) (*Spectrum, error)
}

// ReaderFunc adapts a function to the Reader interface
type ReaderFunc func(r io.Reader) (*Spectrum, error)

func (f ReaderFunc) Read(r io.Reader) (*Spectrum, error) { return f(r) }

var readers = map[string]Reader{
	ProfileASCII: ReaderFunc(readASCII),
	ProfileCSV:   ReaderFunc(readCSV),
}

// Register adds or replaces the reader for a profile
func Register(profile string, r Reader) {
	readers[strings.ToLower(profile)] = r
}

// Profiles lists the registered profile names
func Profiles() []string {
	names := make([]string, 0, len(readers))
	for name := range readers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the reader registered for profile
func Lookup(profile string) (Reader, error) {
	r, ok := readers[strings.ToLower(profile)]
	if !ok {
		return nil, &models.UnsupportedProfileError{Profile: profile}
	}
	return r, nil
}

// ReadFile reads path with the reader for profile. Any failure to open or
// decode the file is a SpectrumReadError.
func ReadFile(path, profile string) (*Spectrum, error) {
	r, err := Lookup(profile)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, &models.SpectrumReadError{Path: path, Err: err}
	}
	defer f.Close()

	s, err := r.Read(bufio.NewReader(f))
	if err != nil {
		return nil, &models.SpectrumReadError{Path: path, Err: err}
	}
	if s.Len() == 0 {
		return nil, &models.SpectrumReadError{Path: path, Err: fmt.Errorf("no pixels")}
	}
	return s, nil
}

// readASCII reads whitespace-separated columns: wavelength flux [error [mask]].
// Blank lines and lines starting with '#' are skipped.
func readASCII(r io.Reader) (*Spectrum, error) {
	s := &Spectrum{}
	sc := bufio.NewScanner(r)
	line := 0
	ncols := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if ncols == 0 {
			ncols = len(fields)
			if ncols < 2 || ncols > 4 {
				return nil, fmt.Errorf("line %d: expected 2 to 4 columns, got %d", line, ncols)
			}
		}
		if len(fields) != ncols {
			return nil, fmt.Errorf("line %d: expected %d columns, got %d", line, ncols, len(fields))
		}
		if err := s.appendPixel(fields); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

// readCSV reads a header row naming wavelength and flux, plus optional error
// and mask columns.
func readCSV(r io.Reader) (*Spectrum, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := map[string]int{}
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	order := []string{"wavelength", "flux", "error", "mask"}
	var idx []int
	for i, name := range order {
		c, ok := cols[name]
		if !ok {
			if i < 2 {
				return nil, fmt.Errorf("missing column %q", name)
			}
			// optional columns are positional: mask needs error
			break
		}
		idx = append(idx, c)
	}

	s := &Spectrum{}
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		fields := make([]string, len(idx))
		for i, c := range idx {
			fields[i] = rec[c]
		}
		if err := s.appendPixel(fields); err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
	}
	return s, nil
}

func (s *Spectrum) appendPixel(fields []string) error {
	vals := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return fmt.Errorf("column %d: %w", i+1, err)
		}
		vals[i] = v
	}
	s.Wavelength = append(s.Wavelength, vals[0])
	s.Flux = append(s.Flux, vals[1])
	if len(vals) > 2 {
		s.Error = append(s.Error, vals[2])
	}
	if len(vals) > 3 {
		s.Mask = append(s.Mask, vals[3] != 0)
	}
	return nil
}
