package schedule

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

type Type string

const (
	None   Type = ""
	Daily  Type = "daily"
	Weekly Type = "weekly"
)

var dayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Schedule is a calendar dosing reminder: every day, or on selected weekdays,
// at a wall-clock time in the viewer's location.
type Schedule struct {
	Type   Type
	Hour   int
	Minute int
	Days   []time.Weekday // Weekly only, sorted Sunday first
}

// Parse builds a Schedule from its stored form: type "daily" or "weekly",
// time "HH:MM" and days as comma-joined lowercase weekday names
// ("monday,wednesday"). An empty or "none" type yields the zero Schedule.
func Parse(typ, clock, days string) (Schedule, error) {
	t := Type(strings.ToLower(strings.TrimSpace(typ)))
	if t == "none" {
		t = None
	}

	switch t {
	case None:
		return Schedule{}, nil
	case Daily, Weekly:
	default:
		return Schedule{}, fmt.Errorf("unknown schedule type: %q", typ)
	}

	s := Schedule{Type: t}
	if strings.TrimSpace(clock) == "" {
		return Schedule{}, fmt.Errorf("schedule time is required for %s schedules", t)
	}
	hm, err := time.Parse("15:04", strings.TrimSpace(clock))
	if err != nil {
		return Schedule{}, fmt.Errorf("invalid schedule time: %q", clock)
	}
	s.Hour, s.Minute = hm.Hour(), hm.Minute()

	if t == Daily {
		return s, nil
	}

	seen := make(map[time.Weekday]bool)
	for _, d := range strings.Split(days, ",") {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		wd, ok := dayNames[d]
		if !ok {
			return Schedule{}, fmt.Errorf("unknown day: %q", d)
		}
		if !seen[wd] {
			seen[wd] = true
			s.Days = append(s.Days, wd)
		}
	}
	if len(s.Days) == 0 {
		return Schedule{}, fmt.Errorf("at least one day is required for weekly schedules")
	}
	sort.Slice(s.Days, func(i, j int) bool { return s.Days[i] < s.Days[j] })

	return s, nil
}

func (s Schedule) IsZero() bool {
	return s.Type == None
}

// Clock returns the schedule time as "HH:MM".
func (s Schedule) Clock() string {
	return fmt.Sprintf("%02d:%02d", s.Hour, s.Minute)
}

// DaysString serializes Days back to the stored comma-joined form.
func (s Schedule) DaysString() string {
	names := make([]string, len(s.Days))
	for i, d := range s.Days {
		names[i] = strings.ToLower(d.String())
	}
	return strings.Join(names, ",")
}

// Describe returns a human-readable description such as "Daily at 08:00" or
// "Weekly: Monday, Wednesday at 08:00".
func (s Schedule) Describe() string {
	switch s.Type {
	case Daily:
		return "Daily at " + s.Clock()
	case Weekly:
		names := make([]string, len(s.Days))
		for i, d := range s.Days {
			names[i] = d.String()
		}
		return "Weekly: " + strings.Join(names, ", ") + " at " + s.Clock()
	}
	return ""
}
