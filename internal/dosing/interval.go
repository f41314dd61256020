package dosing

import (
	"errors"
	"fmt"
	"math"

	"github.com/dukerupert/medtrack/internal/model"
)

var ErrNoFrequency = errors.New("no dose frequency configured")

// Interval is a resolved, validated inter-dose interval in hours.
type Interval struct {
	Type     model.FrequencyType
	Hours    float64
	MinHours float64
	MaxHours float64
}

func Fixed(hours float64) Interval {
	return Interval{Type: model.FrequencyFixed, Hours: hours}
}

func Range(min, max float64) Interval {
	return Interval{Type: model.FrequencyRange, MinHours: min, MaxHours: max}
}

// Valid reports whether the interval can be evaluated.
func (iv Interval) Valid() bool {
	switch iv.Type {
	case model.FrequencyFixed:
		return iv.Hours > 0 && !math.IsInf(iv.Hours, 0)
	case model.FrequencyRange:
		return iv.MinHours > 0 && iv.MinHours < iv.MaxHours && !math.IsInf(iv.MaxHours, 0)
	}
	return false
}

// Earliest is the shortest wait between doses.
func (iv Interval) Earliest() float64 {
	if iv.Type == model.FrequencyRange {
		return iv.MinHours
	}
	return iv.Hours
}

func (iv Interval) String() string {
	if iv.Type == model.FrequencyRange {
		return fmt.Sprintf("every %g-%g hours", iv.MinHours, iv.MaxHours)
	}
	return fmt.Sprintf("every %g hours", iv.Hours)
}

// ResolveInterval picks the assignment's frequency override when one is set,
// otherwise the medication default.
func ResolveInterval(a model.Assignment) (Interval, error) {
	f := a.Override()
	if f.IsZero() {
		if a.Medication == nil {
			return Interval{}, fmt.Errorf("assignment %d: %w", a.ID, ErrNoFrequency)
		}
		f = a.Medication.DefaultFrequency()
	}
	return FromFrequency(f)
}

func FromFrequency(f model.Frequency) (Interval, error) {
	if f.IsZero() {
		return Interval{}, ErrNoFrequency
	}
	if err := f.Validate(); err != nil {
		return Interval{}, err
	}
	if f.Type() == model.FrequencyFixed {
		return Fixed(*f.Hours), nil
	}
	return Range(*f.MinHours, *f.MaxHours), nil
}
