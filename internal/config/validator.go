package config

import (
	"os"
	"runtime"
	"time"

	"github.com/standardbeagle/logfilt/internal/errkit"
)

// Validate enforces the invariants a pipeline must not start without,
// collecting every violation into a MultiError rather than stopping at the
// first (mirroring the teacher's ValidateAndSetDefaults, which validates
// each sub-section independently before applying defaults).
func (c *Config) Validate() error {
	var errs errkit.MultiError

	if c.Expression == "" {
		errs.Add(errkit.NewConfigError("expression", "must not be empty"))
	}

	if c.SearchRoot == "" {
		errs.Add(errkit.NewConfigError("search_root", "must not be empty"))
	} else if info, err := os.Stat(c.SearchRoot); err != nil {
		errs.Add(errkit.NewConfigError("search_root", "does not exist: "+c.SearchRoot))
	} else if !info.IsDir() {
		errs.Add(errkit.NewConfigError("search_root", "is not a directory: "+c.SearchRoot))
	}

	if c.MaxRecordSize <= 0 {
		errs.Add(errkit.NewConfigError("max_record_size", "must be positive"))
	}
	if c.MaxFileSize <= 0 {
		errs.Add(errkit.NewConfigError("max_file_size", "must be positive"))
	}

	if c.DateFrom != "" && c.DateTo != "" {
		from, err1 := time.Parse("2006-01-02", c.DateFrom)
		to, err2 := time.Parse("2006-01-02", c.DateTo)
		if err1 != nil {
			errs.Add(errkit.NewConfigError("date_from", "must be YYYY-MM-DD"))
		}
		if err2 != nil {
			errs.Add(errkit.NewConfigError("date_to", "must be YYYY-MM-DD"))
		}
		if err1 == nil && err2 == nil && from.After(to) {
			errs.Add(errkit.NewConfigError("date_from", "must not be after date_to"))
		}
	}

	switch c.EncodingErrors {
	case "", "replace", "ignore", "strict":
	default:
		errs.Add(errkit.NewConfigError("encoding_errors", "must be \"replace\", \"ignore\", or \"strict\""))
	}

	c.setSmartDefaults()

	return errs.ErrOrNil()
}

// setSmartDefaults fills in zero-valued fields a Config can legally leave
// unset, the way the teacher's setSmartDefaults fills in MaxGoroutines from
// runtime.NumCPU(). A MaxWorkers of zero or less becomes runtime.NumCPU()
// without being reported as an error, and the result is clamped to
// [minWorkers, maxWorkers].
func (c *Config) setSmartDefaults() {
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = runtime.NumCPU()
	}
	if c.MaxWorkers < minWorkers {
		c.MaxWorkers = minWorkers
	}
	if c.MaxWorkers > maxWorkers {
		c.MaxWorkers = maxWorkers
	}
	if c.EncodingErrors == "" {
		c.EncodingErrors = "replace"
	}
	if len(c.IncludePatterns) == 0 {
		c.IncludePatterns = []string{"**/*"}
	}
}
