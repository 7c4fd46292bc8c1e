package window

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hamed0406/slotwatch/internal/domain"
)

// DefaultTimeframe applies when neither a timeframe nor a date range is set.
const DefaultTimeframe = "6m"

const dateLayout = "2006-01-02"

const timeframeFormat = "a number followed by 'h', 'd' or 'm' (e.g. 24h, 7d or 3m)"

var timeframeRe = regexp.MustCompile(`^(\d+)([hdmHDM])$`)

// Largest magnitude accepted per unit. Hours and days stay inside
// time.Duration; months are capped at a century.
var maxTimeframe = map[Unit]int{
	Hours:  int(math.MaxInt64 / int64(time.Hour)),
	Days:   int(math.MaxInt64 / int64(24*time.Hour)),
	Months: 1200,
}

type Unit byte

const (
	Hours  Unit = 'h'
	Days   Unit = 'd'
	Months Unit = 'm'
)

// Timeframe is a relative look-ahead such as "24h" or "3m".
type Timeframe struct {
	N    int
	Unit Unit
}

func ParseTimeframe(s string) (Timeframe, error) {
	m := timeframeRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Timeframe{}, &domain.ConfigurationError{
			Field:  "timeframe",
			Reason: fmt.Sprintf("%q must be %s", s, timeframeFormat),
		}
	}
	unit := Unit(strings.ToLower(m[2])[0])
	n, err := strconv.Atoi(m[1])
	if err != nil || n > maxTimeframe[unit] {
		return Timeframe{}, &domain.ConfigurationError{
			Field:  "timeframe",
			Reason: fmt.Sprintf("%q must be %s, at most %d%c", s, timeframeFormat, maxTimeframe[unit], unit),
		}
	}
	return Timeframe{N: n, Unit: unit}, nil
}

// AddTo returns t moved forward by the timeframe. Days keep the wall-clock
// time across DST changes. Months keep the day of month, clamped to the last
// day of the target month.
func (f Timeframe) AddTo(t time.Time) time.Time {
	switch f.Unit {
	case Hours:
		return t.Add(time.Duration(f.N) * time.Hour)
	case Days:
		return t.AddDate(0, 0, f.N)
	case Months:
		return addMonths(t, f.N)
	}
	return t
}

func (f Timeframe) String() string {
	var unit string
	switch f.Unit {
	case Hours:
		unit = "hour"
	case Days:
		unit = "day"
	case Months:
		unit = "month"
	}
	if f.N != 1 {
		unit += "s"
	}
	return fmt.Sprintf("%d %s", f.N, unit)
}

func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	hh, mm, ss := t.Clock()
	return time.Date(first.Year(), first.Month(), d, hh, mm, ss, t.Nanosecond(), t.Location())
}

// ParseDate parses a YYYY-MM-DD string as midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, &domain.ConfigurationError{
			Field:  "date_range",
			Reason: fmt.Sprintf("invalid date %q, use YYYY-MM-DD", s),
		}
	}
	return t, nil
}

// Resolved is a window plus the human description printed at startup.
type Resolved struct {
	domain.Window
	Description string
}

// Resolve builds the comparison window. A timeframe is anchored at now; a
// date range uses the literal dates. The two are mutually exclusive.
func Resolve(now time.Time, timeframe string, dateRange []string, loc *time.Location) (Resolved, error) {
	timeframe = strings.TrimSpace(timeframe)
	if timeframe != "" && len(dateRange) > 0 {
		return Resolved{}, &domain.ConfigurationError{
			Field:  "timeframe",
			Reason: "timeframe and date range are mutually exclusive",
		}
	}

	if len(dateRange) > 0 {
		if len(dateRange) != 2 {
			return Resolved{}, &domain.ConfigurationError{
				Field:  "date_range",
				Reason: fmt.Sprintf("want START_DATE END_DATE, got %d value(s)", len(dateRange)),
			}
		}
		start, err := ParseDate(dateRange[0], loc)
		if err != nil {
			return Resolved{}, err
		}
		end, err := ParseDate(dateRange[1], loc)
		if err != nil {
			return Resolved{}, err
		}
		w := domain.Window{Start: start, End: end}
		if err := w.Validate(); err != nil {
			return Resolved{}, &domain.ConfigurationError{
				Field:  "date_range",
				Reason: "start date must be before end date",
			}
		}
		return Resolved{
			Window:      w,
			Description: fmt.Sprintf("Using date range: %s to %s", start.Format(dateLayout), end.Format(dateLayout)),
		}, nil
	}

	if timeframe == "" {
		timeframe = DefaultTimeframe
	}
	tf, err := ParseTimeframe(timeframe)
	if err != nil {
		return Resolved{}, err
	}
	if loc != nil {
		now = now.In(loc)
	}
	w := domain.Window{Start: now, End: tf.AddTo(now)}
	if err := w.Validate(); err != nil {
		return Resolved{}, err
	}
	return Resolved{Window: w, Description: "Using timeframe: " + tf.String()}, nil
}
