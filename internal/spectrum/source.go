package spectrum

import (
	"path/filepath"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/kilupskalvis/zcurate/internal/config"
	"github.com/kilupskalvis/zcurate/internal/models"
)

// placeholderPixels is the length of the placeholder spectrum
const placeholderPixels = 1000

// Result is the outcome of loading one spectrum. Err is set when the file
// could not be read; Spectrum is then nil unless placeholders are enabled.
type Result struct {
	Spectrum    *Spectrum
	Err         error
	Placeholder bool
}

// OK reports whether a real spectrum was loaded
func (r Result) OK() bool {
	return r.Err == nil && r.Spectrum != nil
}

// SourceOptions configures a Source
type SourceOptions struct {
	Dir         string
	Profile     string
	FluxScale   float64
	Placeholder bool
	CacheTTL    time.Duration
	Logger      *zap.Logger
}

// Source loads spectra by file name from a directory, scaling flux and caching
// results for the lifetime of a review session.
type Source struct {
	opts   SourceOptions
	reader Reader
	cache  *cache.Cache
	logger *zap.Logger
}

// NewSource validates the profile and returns a Source
func NewSource(opts SourceOptions) (*Source, error) {
	r, err := Lookup(opts.Profile)
	if err != nil {
		return nil, err
	}
	if opts.FluxScale == 0 {
		opts.FluxScale = 1
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 10 * time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{
		opts:   opts,
		reader: r,
		cache:  cache.New(opts.CacheTTL, 2*opts.CacheTTL),
		logger: logger,
	}, nil
}

// NewSourceFromConfig builds a Source from the spectra section
func NewSourceFromConfig(cfg *config.Config, logger *zap.Logger) (*Source, error) {
	ttl := 10 * time.Minute
	if cfg.Spectra.CacheTTL != "" {
		d, err := time.ParseDuration(cfg.Spectra.CacheTTL)
		if err != nil {
			return nil, models.Configf("spectra.cache_ttl: %v", err)
		}
		ttl = d
	}
	return NewSource(SourceOptions{
		Dir:         cfg.Resolve(cfg.Spectra.Dir),
		Profile:     cfg.Spectra.Profile,
		FluxScale:   cfg.Spectra.FluxScale,
		Placeholder: cfg.Spectra.PlaceholderOnError,
		CacheTTL:    ttl,
		Logger:      logger,
	})
}

// Path resolves a spectrum file name against the source directory
func (s *Source) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.opts.Dir, name)
}

// Load reads the named spectrum. Read failures are returned in the Result,
// never as a panic or a fatal error, and are not cached.
func (s *Source) Load(name string) Result {
	path := s.Path(name)
	if x, found := s.cache.Get(path); found {
		return x.(Result)
	}

	res := s.load(path)
	// failures are retried on the next Load
	if res.Err == nil {
		s.cache.Set(path, res, cache.DefaultExpiration)
	}
	return res
}

func (s *Source) load(path string) Result {
	sp, err := ReadFile(path, s.opts.Profile)
	if err != nil {
		s.logger.Warn("spectrum unreadable", zap.String("path", path), zap.Error(err))
		res := Result{Err: err}
		if s.opts.Placeholder {
			res.Spectrum = Placeholder(placeholderPixels)
			res.Placeholder = true
		}
		return res
	}
	if s.opts.FluxScale != 1 {
		sp = sp.Scaled(s.opts.FluxScale)
	}
	return Result{Spectrum: sp}
}

// Forget drops a cached result so the next Load rereads the file
func (s *Source) Forget(name string) {
	s.cache.Delete(s.Path(name))
}
