package core

import (
	"strconv"
	"strings"

	"github.com/kilupskalvis/zcurate/internal/models"
)

// FlagScheme identifies how a survey encodes its redshift quality flags
type FlagScheme string

const (
	// SchemeFixedThreshold models a binary-confidence flag: values outside
	// [LowerLimit, UpperLimit] are insecure (class 1), everything else class 4.
	SchemeFixedThreshold FlagScheme = "fixed-threshold"
	// SchemeDecimalCode models multi-digit codes such as "219.3", read right to
	// left: quality digit, broadline digit, slit metadata.
	SchemeDecimalCode FlagScheme = "decimal-code"
)

// FlagParams configures a normalization scheme
type FlagParams struct {
	LowerLimit float64
	UpperLimit float64
	// ZeroLimit forces class 1 for raw values below LowerLimit (decimal-code only)
	ZeroLimit bool
	// Rules maps a normalized class to the raw quality digits it replaces
	Rules map[int][]string
}

// NormalizeFlags maps raw survey flags onto the 0-5 scale and extracts the
// broadline indicator. Every input maps to exactly one of {-99, 0..5}.
func NormalizeFlags(raw []string, scheme FlagScheme, p FlagParams) ([]int, []int, error) {
	flags := make([]int, len(raw))
	broad := make([]int, len(raw))

	switch scheme {
	case SchemeFixedThreshold:
		for i, v := range raw {
			flags[i] = fixedThresholdClass(v, p)
		}
	case SchemeDecimalCode:
		for i, v := range raw {
			flags[i], broad[i] = decimalCodeClass(v, p)
		}
	default:
		return nil, nil, &models.UnsupportedSchemeError{Scheme: string(scheme)}
	}
	return flags, broad, nil
}

func fixedThresholdClass(raw string, p FlagParams) int {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || v != v {
		return models.FlagUnmappable
	}
	if v < p.LowerLimit || v > p.UpperLimit {
		return 1
	}
	return 4
}

func decimalCodeClass(raw string, p FlagParams) (class, broadline int) {
	code := strings.TrimSpace(raw)
	intPart, _, _ := strings.Cut(code, ".")
	if intPart == "" || !allDigits(intPart) {
		return models.FlagUnmappable, 0
	}

	class = models.FlagUnmappable
	if p.ZeroLimit {
		if v, err := strconv.ParseFloat(code, 64); err == nil && v < p.LowerLimit {
			class = 1
		}
	}

	last := intPart[len(intPart)-1:]
	for c := models.MinFlag; c <= models.MaxFlag; c++ {
		for _, old := range p.Rules[c] {
			if strings.TrimSpace(old) == last {
				class = c
			}
		}
	}

	if len(intPart) > 1 && intPart[len(intPart)-2] == '1' {
		broadline = 1
	}
	return class, broadline
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
