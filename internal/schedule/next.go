package schedule

import "time"

// Next returns the first scheduled time strictly after t, in t's location.
// The zero Schedule never fires.
func (s Schedule) Next(t time.Time) (time.Time, bool) {
	if s.IsZero() {
		return time.Time{}, false
	}
	// Eight days covers a full week plus today's slot already having passed.
	for i := 0; i < 8; i++ {
		day := t.AddDate(0, 0, i)
		at := s.on(day)
		if at.After(t) && s.firesOn(at.Weekday()) {
			return at, true
		}
	}
	return time.Time{}, false
}

// Previous returns the latest scheduled time at or before t.
func (s Schedule) Previous(t time.Time) (time.Time, bool) {
	if s.IsZero() {
		return time.Time{}, false
	}
	for i := 0; i < 8; i++ {
		day := t.AddDate(0, 0, -i)
		at := s.on(day)
		if !at.After(t) && s.firesOn(at.Weekday()) {
			return at, true
		}
	}
	return time.Time{}, false
}

// Occurrences lists scheduled times within [from, to).
func (s Schedule) Occurrences(from, to time.Time) []time.Time {
	if s.IsZero() || !from.Before(to) {
		return nil
	}

	var out []time.Time
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	for !day.After(to) {
		at := s.on(day)
		if s.firesOn(at.Weekday()) && !at.Before(from) && at.Before(to) {
			out = append(out, at)
		}
		day = day.AddDate(0, 0, 1)
	}
	return out
}

func (s Schedule) on(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), s.Hour, s.Minute, 0, 0, day.Location())
}

func (s Schedule) firesOn(wd time.Weekday) bool {
	if s.Type == Daily {
		return true
	}
	for _, d := range s.Days {
		if d == wd {
			return true
		}
	}
	return false
}
