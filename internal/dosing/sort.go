package dosing

import (
	"sort"

	"github.com/dukerupert/medtrack/internal/model"
)

var urgency = map[model.Status]int{
	model.StatusOverdue: 0,
	model.StatusSoon:    1,
	model.StatusReady:   2,
}

// Less orders verdicts overdue first, then soon, then ready. Within a tier
// the shorter wait comes first.
func Less(a, b model.StatusVerdict) bool {
	if ua, ub := urgency[a.Status], urgency[b.Status]; ua != ub {
		return ua < ub
	}
	return wait(a) < wait(b)
}

// SortByUrgency sorts items in place using Less on the verdict each returns.
func SortByUrgency[T any](items []T, verdict func(T) model.StatusVerdict) {
	sort.SliceStable(items, func(i, j int) bool {
		return Less(verdict(items[i]), verdict(items[j]))
	})
}

func wait(v model.StatusVerdict) float64 {
	if v.TimeUntilNext == nil {
		return 0
	}
	return *v.TimeUntilNext
}
