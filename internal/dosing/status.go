package dosing

import (
	"time"

	"github.com/dukerupert/medtrack/internal/model"
)

// DefaultOverdueMultiplier makes a fixed-interval dose overdue as soon as the
// interval has been exceeded.
const DefaultOverdueMultiplier = 1.0

// Policy tunes how fixed-interval doses are classified. Range doses are
// overdue once their maximum has passed regardless of policy.
type Policy struct {
	// OverdueMultiplier: a fixed dose is overdue once elapsed exceeds
	// interval * OverdueMultiplier. Zero or less disables the overdue tier.
	OverdueMultiplier float64
}

var DefaultPolicy = Policy{OverdueMultiplier: DefaultOverdueMultiplier}

// ComputeStatus resolves the assignment's interval and evaluates it against
// the last administration using DefaultPolicy.
func ComputeStatus(a model.Assignment, last *model.Administration, now time.Time) (model.StatusVerdict, error) {
	return DefaultPolicy.ComputeStatus(a, last, now)
}

func (p Policy) ComputeStatus(a model.Assignment, last *model.Administration, now time.Time) (model.StatusVerdict, error) {
	iv, err := ResolveInterval(a)
	if err != nil {
		return model.StatusVerdict{}, err
	}

	var lastAt *time.Time
	if last != nil {
		at := last.AdministeredAt
		lastAt = &at
	}
	v := p.Evaluate(iv, lastAt, now)

	if sched, err := a.Schedule(); err == nil {
		if next, ok := sched.Next(now); ok {
			v.NextScheduledAt = &next
		}
	}
	return v, nil
}

// Evaluate computes the verdict for a resolved interval. It panics if iv is
// not Valid; resolve intervals with ResolveInterval or FromFrequency first.
func (p Policy) Evaluate(iv Interval, last *time.Time, now time.Time) model.StatusVerdict {
	if !iv.Valid() {
		panic("dosing: Evaluate called with an invalid interval")
	}

	v := model.StatusVerdict{FrequencyType: iv.Type}
	if last == nil {
		v.Status = model.StatusReady
		v.CanAdminister = true
		v.TimeUntilNext = hours(0)
		return v
	}

	lastAt := *last
	v.LastAdministration = &lastAt
	elapsed := HoursSince(lastAt, now)

	next := lastAt.Add(Duration(iv.Earliest()))
	v.NextDoseTime = &next

	switch iv.Type {
	case model.FrequencyFixed:
		if elapsed >= iv.Hours {
			v.CanAdminister = true
			v.TimeUntilNext = hours(0)
			v.Status = model.StatusReady
			if p.OverdueMultiplier > 0 && elapsed > iv.Hours*p.OverdueMultiplier {
				v.Status = model.StatusOverdue
			}
		} else {
			v.Status = model.StatusSoon
			v.TimeUntilNext = hours(iv.Hours - elapsed)
		}

	case model.FrequencyRange:
		maxAt := lastAt.Add(Duration(iv.MaxHours))
		v.NextDoseMaxTime = &maxAt
		v.CanAdminister = elapsed >= iv.MinHours
		v.TimeUntilNext = hours(max(0, iv.MinHours-elapsed))
		v.TimeUntilMax = hours(max(0, iv.MaxHours-elapsed))
		switch {
		case elapsed >= iv.MaxHours:
			v.Status = model.StatusOverdue
		case elapsed >= iv.MinHours:
			v.Status = model.StatusReady
		default:
			v.Status = model.StatusSoon
		}
	}

	return v
}

// Evaluate uses DefaultPolicy.
func Evaluate(iv Interval, last *time.Time, now time.Time) model.StatusVerdict {
	return DefaultPolicy.Evaluate(iv, last, now)
}

// HoursSince returns the fractional hours from t to now.
func HoursSince(t, now time.Time) float64 {
	return now.Sub(t).Hours()
}

// Duration converts fractional hours to a time.Duration.
func Duration(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}

func hours(h float64) *float64 {
	return &h
}
