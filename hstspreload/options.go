package hstspreload

import (
	"io"

	"github.com/sirupsen/logrus"
	"github.com/starius/hstspreload/hostcache"
)

type config struct {
	cache     *hostcache.Cache
	log       logrus.FieldLogger
	tlds      []string
	fileReads bool
	verify    bool
}

// Option configures a Checker.
type Option func(*config)

// WithCache memoizes verdicts in c. Without it every call walks the dataset.
func WithCache(c *hostcache.Cache) Option {
	return func(cfg *config) {
		cfg.cache = c
	}
}

// WithLogger sets the logger used for dataset lifecycle events.
func WithLogger(log logrus.FieldLogger) Option {
	return func(cfg *config) {
		cfg.log = log
	}
}

// WithIncludeSubdomainsTLDs replaces the gTLD fast-set.
func WithIncludeSubdomainsTLDs(tlds []string) Option {
	return func(cfg *config) {
		cfg.tlds = append([]string(nil), tlds...)
	}
}

// WithFileReads makes Open use positioned file reads instead of mmap.
func WithFileReads() Option {
	return func(cfg *config) {
		cfg.fileReads = true
	}
}

// WithVerify makes Open hash the whole blob and compare it with the
// fingerprint stored in the jump table.
func WithVerify() Option {
	return func(cfg *config) {
		cfg.verify = true
	}
}

func newConfig(opts []Option) *config {
	cfg := &config{tlds: defaultIncludeSubdomainsTLDs}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		cfg.log = l
	}
	return cfg
}
