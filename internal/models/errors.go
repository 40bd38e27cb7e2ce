package models

import (
	"errors"
	"fmt"
	"strings"
)

// Error categories. Every typed error below reports its category through Is,
// so callers classify failures with errors.Is(err, ErrConsistency) and friends.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrConsistency   = errors.New("consistency error")
	ErrEmptyResult   = errors.New("empty result")
	ErrDataAccess    = errors.New("data access error")
	ErrUnmatchedKey  = errors.New("unmatched key")
)

// UnsupportedSchemeError is returned for an unknown flag normalization scheme
type UnsupportedSchemeError struct {
	Scheme string
}

func (e *UnsupportedSchemeError) Error() string {
	return fmt.Sprintf("flag scheme %q is not supported (use fixed-threshold or decimal-code)", e.Scheme)
}

func (e *UnsupportedSchemeError) Is(target error) bool { return target == ErrConfiguration }

// InvalidFilterModeError is returned for an unknown photometric filter mode
type InvalidFilterModeError struct {
	Mode string
}

func (e *InvalidFilterModeError) Error() string {
	return fmt.Sprintf("photometric filter %q is not valid (use ignore, outlier, inlier or none)", e.Mode)
}

func (e *InvalidFilterModeError) Is(target error) bool { return target == ErrConfiguration }

// EmptyMatchCatalogError is returned when the secondary catalog of a match is empty
type EmptyMatchCatalogError struct {
	Path string
}

func (e *EmptyMatchCatalogError) Error() string {
	if e.Path == "" {
		return "photometric catalog is empty, nothing to match against"
	}
	return fmt.Sprintf("photometric catalog %s is empty, nothing to match against", e.Path)
}

func (e *EmptyMatchCatalogError) Is(target error) bool { return target == ErrEmptyResult }

// EmptySelectionError is returned when a selection stage leaves no records
type EmptySelectionError struct {
	Stage    string
	Criteria string
}

func (e *EmptySelectionError) Error() string {
	msg := fmt.Sprintf("no sources left after %s selection", e.Stage)
	if e.Criteria != "" {
		msg += " (" + e.Criteria + ")"
	}
	return msg
}

func (e *EmptySelectionError) Is(target error) bool { return target == ErrEmptyResult }

// SampleTooSmallError is returned when the requested percentage rounds to zero records
type SampleTooSmallError struct {
	Available int
	Percent   float64
}

func (e *SampleTooSmallError) Error() string {
	return fmt.Sprintf("sampling %g%% of %d sources selects no source", e.Percent, e.Available)
}

func (e *SampleTooSmallError) Is(target error) bool { return target == ErrEmptyResult }

// ConfigMismatchError is returned when a buffer was created under a different configuration
type ConfigMismatchError struct {
	BufferPath   string
	SnapshotPath string
	Keys         []string
}

func (e *ConfigMismatchError) Error() string {
	return fmt.Sprintf("buffer %s was created with a different configuration (%s); remove %s and %s to start a new session",
		e.BufferPath, strings.Join(e.Keys, ", "), e.BufferPath, e.SnapshotPath)
}

func (e *ConfigMismatchError) Is(target error) bool { return target == ErrConsistency }

// UnsupportedProfileError is returned for an unknown spectrum file profile
type UnsupportedProfileError struct {
	Profile string
}

func (e *UnsupportedProfileError) Error() string {
	return fmt.Sprintf("spectrum profile %q is not supported", e.Profile)
}

func (e *UnsupportedProfileError) Is(target error) bool { return target == ErrConfiguration }

// SpectrumReadError is returned when a spectrum file cannot be read
type SpectrumReadError struct {
	Path string
	Err  error
}

func (e *SpectrumReadError) Error() string {
	return fmt.Sprintf("read spectrum %s: %v", e.Path, e.Err)
}

func (e *SpectrumReadError) Unwrap() error { return e.Err }

func (e *SpectrumReadError) Is(target error) bool { return target == ErrDataAccess }

// UnmatchedKeyError is returned when merge edits reference rows missing from the master
type UnmatchedKeyError struct {
	Column string
	Keys   []string
}

func (e *UnmatchedKeyError) Error() string {
	keys := e.Keys
	suffix := ""
	if len(keys) > 5 {
		suffix = fmt.Sprintf(" and %d more", len(keys)-5)
		keys = keys[:5]
	}
	return fmt.Sprintf("%s value(s) %s%s not found in master catalog", e.Column, strings.Join(keys, ", "), suffix)
}

func (e *UnmatchedKeyError) Is(target error) bool { return target == ErrUnmatchedKey }

// Configf returns a configuration error with a formatted message
func Configf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// Consistencyf returns a consistency error with a formatted message
func Consistencyf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConsistency, fmt.Sprintf(format, args...))
}

// DataAccessf returns a data access error wrapping err
func DataAccessf(err error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s: %w", ErrDataAccess, fmt.Sprintf(format, args...), err)
}
