package leave

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// CalculateDays returns inclusive day count between start and end.
func CalculateDays(start, end time.Time) (int, error) {
	start, end = DateOnly(start), DateOnly(end)
	if end.Before(start) {
		return 0, errors.New("end date before start date")
	}
	return int(end.Sub(start).Hours()/24) + 1, nil
}

// DateOnly truncates t to midnight of its calendar date in t's location.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Covers reports whether day falls inside the inclusive leave window.
func (l ApprovedLeave) Covers(day time.Time) bool {
	key := dateKey(day)
	return dateKey(l.StartDate) <= key && key <= dateKey(l.EndDate)
}

// Subtype maps the leave type code onto the attendance status reported for covered days.
func (l ApprovedLeave) Subtype() string {
	code := strings.ToLower(strings.TrimSpace(l.TypeCode))
	switch code {
	case "sick", "sick_leave", "sl":
		return SubtypeSickLeave
	case "casual", "casual_leave", "cl":
		return SubtypeCasualLeave
	default:
		return SubtypeLeave
	}
}

// FirstCovering returns the earliest starting leave that covers day. Ties on start
// date break on id so overlapping approvals resolve the same way every time.
func FirstCovering(leaves []ApprovedLeave, day time.Time) (ApprovedLeave, bool) {
	var matches []ApprovedLeave
	for _, l := range leaves {
		if l.Covers(day) {
			matches = append(matches, l)
		}
	}
	if len(matches) == 0 {
		return ApprovedLeave{}, false
	}
	sort.Slice(matches, func(i, j int) bool {
		ki, kj := dateKey(matches[i].StartDate), dateKey(matches[j].StartDate)
		if ki != kj {
			return ki < kj
		}
		return matches[i].ID < matches[j].ID
	})
	return matches[0], true
}

func dateKey(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}
