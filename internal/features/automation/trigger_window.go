package automation

import (
	"fmt"
	"strconv"
	"strings"
)

const minutesPerDay = 24 * 60

// TimeWindow is a local time-of-day range in minutes after midnight. End is
// exclusive. A window whose end is before its start wraps past midnight.
type TimeWindow struct {
	Start int
	End   int
}

// Contains reports whether minute-of-day m falls inside the window.
func (w TimeWindow) Contains(m int) bool {
	if w.Start < w.End {
		return m >= w.Start && m < w.End
	}
	return m >= w.Start || m < w.End
}

// Wraps reports whether the window crosses midnight.
func (w TimeWindow) Wraps() bool {
	return w.End < w.Start
}

func (w TimeWindow) String() string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d", w.Start/60, w.Start%60, w.End/60, w.End%60)
}

// ParseTriggerWindows parses "HH:MM-HH:MM, HH:MM-HH:MM". 24:00 is accepted
// as an end of day.
func ParseTriggerWindows(raw string) ([]TimeWindow, error) {
	parts := strings.Split(raw, ",")
	windows := make([]TimeWindow, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		bounds := strings.Split(part, "-")
		if len(bounds) != 2 {
			return nil, fmt.Errorf("invalid trigger window %q: expected HH:MM-HH:MM", part)
		}
		start, err := parseClock(bounds[0], false)
		if err != nil {
			return nil, fmt.Errorf("invalid trigger window %q: %w", part, err)
		}
		end, err := parseClock(bounds[1], true)
		if err != nil {
			return nil, fmt.Errorf("invalid trigger window %q: %w", part, err)
		}
		if start == end%minutesPerDay && end != minutesPerDay {
			return nil, fmt.Errorf("invalid trigger window %q: empty range", part)
		}
		if end == minutesPerDay {
			end = 0
			if start == 0 {
				// 00:00-24:00 is the whole day
				end = minutesPerDay
			}
		}
		windows = append(windows, TimeWindow{Start: start, End: end})
	}
	if len(windows) == 0 {
		return nil, fmt.Errorf("at least one trigger window is required")
	}
	return windows, nil
}

func parseClock(s string, allowEndOfDay bool) (int, error) {
	s = strings.TrimSpace(s)
	hm := strings.Split(s, ":")
	if len(hm) != 2 || len(hm[0]) == 0 || len(hm[0]) > 2 || len(hm[1]) != 2 {
		return 0, fmt.Errorf("bad time %q", s)
	}
	h, err := strconv.Atoi(hm[0])
	if err != nil {
		return 0, fmt.Errorf("bad hour in %q", s)
	}
	m, err := strconv.Atoi(hm[1])
	if err != nil {
		return 0, fmt.Errorf("bad minute in %q", s)
	}
	if allowEndOfDay && h == 24 && m == 0 {
		return minutesPerDay, nil
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("time %q out of range", s)
	}
	return h*60 + m, nil
}
