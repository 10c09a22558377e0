package pipeline

import (
	"time"

	"github.com/standardbeagle/logfilt/internal/config"
	"github.com/standardbeagle/logfilt/internal/errkit"
	"github.com/standardbeagle/logfilt/internal/filter"
)

// buildWindows turns the config's string-typed date/time bounds into the
// filter package's DateWindow/TimeWindow, the one conversion Validate
// itself doesn't fully perform (it checks DateFrom/DateTo format but
// leaves TimeFrom/TimeTo and the final time.Time/time.Duration values to
// whoever actually builds the chain).
func buildWindows(cfg *config.Config) (filter.DateWindow, filter.TimeWindow, error) {
	var dw filter.DateWindow
	var tw filter.TimeWindow

	if cfg.DateFrom != "" {
		t, err := time.Parse("2006-01-02", cfg.DateFrom)
		if err != nil {
			return dw, tw, errkit.NewConfigError("date_from", "must be YYYY-MM-DD")
		}
		dw.From = &t
	}
	if cfg.DateTo != "" {
		t, err := time.Parse("2006-01-02", cfg.DateTo)
		if err != nil {
			return dw, tw, errkit.NewConfigError("date_to", "must be YYYY-MM-DD")
		}
		// DateTo is inclusive through the end of that calendar day.
		t = t.Add(24*time.Hour - time.Nanosecond)
		dw.To = &t
	}

	if cfg.TimeFrom != "" {
		d, err := parseTimeOfDay(cfg.TimeFrom)
		if err != nil {
			return dw, tw, errkit.NewConfigError("time_from", "must be HH:MM:SS")
		}
		tw.From = &d
	}
	if cfg.TimeTo != "" {
		d, err := parseTimeOfDay(cfg.TimeTo)
		if err != nil {
			return dw, tw, errkit.NewConfigError("time_to", "must be HH:MM:SS")
		}
		tw.To = &d
	}

	return dw, tw, nil
}

func parseTimeOfDay(s string) (time.Duration, error) {
	t, err := time.Parse("15:04:05", s)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second, nil
}
