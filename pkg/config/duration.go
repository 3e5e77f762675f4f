package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/beaconkit/beacon/pkg/errors"
)

// ParseISO8601Duration parses an ISO-8601 duration of the form
// PnDTnHnMnS (for example PT1M, PT30S, P1DT12H). Weeks (PnW) are
// accepted as a shorthand for seven days. Years and months are rejected
// because their length is calendar dependent.
func ParseISO8601Duration(s string) (time.Duration, error) {
	orig := s
	if s == "" {
		return 0, errors.New(errors.CodeDurationInvalid, "empty duration", nil)
	}

	neg := false
	if s[0] == '-' {
		neg = true
		s = s[1:]
	}
	if len(s) < 2 || (s[0] != 'P' && s[0] != 'p') {
		return 0, invalidDuration(orig)
	}
	s = s[1:]

	var total time.Duration
	inTime := false
	sawComponent := false

	for len(s) > 0 {
		if s[0] == 'T' || s[0] == 't' {
			if inTime {
				return 0, invalidDuration(orig)
			}
			inTime = true
			s = s[1:]
			continue
		}

		numEnd := 0
		for numEnd < len(s) && (s[numEnd] >= '0' && s[numEnd] <= '9' || s[numEnd] == '.' || s[numEnd] == ',') {
			numEnd++
		}
		if numEnd == 0 || numEnd == len(s) {
			return 0, invalidDuration(orig)
		}
		num := strings.Replace(s[:numEnd], ",", ".", 1)
		value, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return 0, invalidDuration(orig)
		}
		unit := s[numEnd]
		s = s[numEnd+1:]
		sawComponent = true

		var component time.Duration
		switch {
		case !inTime && (unit == 'W' || unit == 'w'):
			component = time.Duration(value * float64(7*24*time.Hour))
		case !inTime && (unit == 'D' || unit == 'd'):
			component = time.Duration(value * float64(24*time.Hour))
		case !inTime && (unit == 'Y' || unit == 'y' || unit == 'M' || unit == 'm'):
			return 0, errors.New(errors.CodeDurationInvalid,
				fmt.Sprintf("calendar units are not supported in %q", orig), nil)
		case inTime && (unit == 'H' || unit == 'h'):
			component = time.Duration(value * float64(time.Hour))
		case inTime && (unit == 'M' || unit == 'm'):
			component = time.Duration(value * float64(time.Minute))
		case inTime && (unit == 'S' || unit == 's'):
			component = time.Duration(value * float64(time.Second))
		default:
			return 0, invalidDuration(orig)
		}
		total += component
	}

	if !sawComponent {
		return 0, invalidDuration(orig)
	}
	if neg {
		total = -total
	}
	return total, nil
}

// FormatISO8601Duration renders a duration in ISO-8601 time form
// (PT1M, PT1H30M, PT0.5S). The inverse of ParseISO8601Duration for
// sub-day durations.
func FormatISO8601Duration(d time.Duration) string {
	if d == 0 {
		return "PT0S"
	}
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}

	var b strings.Builder
	b.WriteString(sign)
	b.WriteString("PT")

	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := float64(d) / float64(time.Second)

	if hours > 0 {
		fmt.Fprintf(&b, "%dH", hours)
	}
	if minutes > 0 {
		fmt.Fprintf(&b, "%dM", minutes)
	}
	if seconds > 0 {
		fmt.Fprintf(&b, "%s", strconv.FormatFloat(seconds, 'f', -1, 64))
		b.WriteString("S")
	}
	return b.String()
}

func invalidDuration(s string) error {
	return errors.New(errors.CodeDurationInvalid,
		fmt.Sprintf("invalid ISO-8601 duration %q", s), nil)
}
