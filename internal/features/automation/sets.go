package automation

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// StringSet is an ordered set of strings. JSON accepts an array or the legacy
// form where the array was stored as an encoded string.
type StringSet []string

func (s *StringSet) UnmarshalJSON(data []byte) error {
	var items []string
	if err := json.Unmarshal(data, &items); err == nil {
		*s = StringSet(items).Normalize()
		return nil
	}

	var encoded string
	if err := json.Unmarshal(data, &encoded); err != nil {
		return fmt.Errorf("expected array of strings: %w", err)
	}
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		*s = StringSet{}
		return nil
	}
	if strings.HasPrefix(encoded, "[") {
		if err := json.Unmarshal([]byte(encoded), &items); err != nil {
			return fmt.Errorf("invalid encoded array: %w", err)
		}
	} else {
		items = strings.Split(encoded, ",")
	}
	*s = StringSet(items).Normalize()
	return nil
}

// Normalize trims entries and drops blanks and case-insensitive duplicates,
// keeping first occurrence order.
func (s StringSet) Normalize() StringSet {
	out := make(StringSet, 0, len(s))
	seen := make(map[string]bool, len(s))
	for _, item := range s {
		item = strings.TrimSpace(item)
		key := strings.ToLower(item)
		if item == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}

// Weekdays restricts execution to certain days. Empty means every day.
type Weekdays []time.Weekday

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

// UnmarshalJSON accepts [1,2,3], ["MON","TUE"] or "MON,TUE" / "1,2".
func (w *Weekdays) UnmarshalJSON(data []byte) error {
	var nums []int
	if err := json.Unmarshal(data, &nums); err == nil {
		days := make([]string, len(nums))
		for i, n := range nums {
			days[i] = strconv.Itoa(n)
		}
		return w.parse(days)
	}

	var names []string
	if err := json.Unmarshal(data, &names); err == nil {
		return w.parse(names)
	}

	var joined string
	if err := json.Unmarshal(data, &joined); err != nil {
		return fmt.Errorf("invalid day_of_week: %w", err)
	}
	if strings.TrimSpace(joined) == "" {
		*w = Weekdays{}
		return nil
	}
	return w.parse(strings.Split(joined, ","))
}

func (w *Weekdays) parse(items []string) error {
	days := Weekdays{}
	seen := map[time.Weekday]bool{}
	for _, item := range items {
		day, err := ParseWeekday(item)
		if err != nil {
			return err
		}
		if !seen[day] {
			seen[day] = true
			days = append(days, day)
		}
	}
	*w = days
	return nil
}

// ParseWeekday reads 0-6 (Sunday = 0) or a day name.
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > 6 {
			return 0, fmt.Errorf("day %d out of range 0-6", n)
		}
		return time.Weekday(n), nil
	}
	if len(s) >= 3 {
		if day, ok := weekdayNames[s[:3]]; ok {
			return day, nil
		}
	}
	return 0, fmt.Errorf("unknown day %q", s)
}

func (w Weekdays) Allows(d time.Weekday) bool {
	if len(w) == 0 {
		return true
	}
	for _, day := range w {
		if day == d {
			return true
		}
	}
	return false
}
