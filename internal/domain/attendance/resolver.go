package attendance

import (
	"time"

	"github.com/shopspring/decimal"

	"opscore/internal/domain/leave"
)

// Sources are every fact known about one employee on one date.
type Sources struct {
	Holiday *leave.Holiday
	Record  *Record
	Leaves  []leave.ApprovedLeave
	Grace   *GracePeriod
}

type outcome struct {
	status string
	source string
}

type rule struct {
	name  string
	apply func(day time.Time, src Sources, out *ResolvedDay) (outcome, bool)
}

// precedence is evaluated top to bottom; the first rule that matches decides the status.
var precedence = []rule{
	{name: ResolvedFromHoliday, apply: func(_ time.Time, src Sources, out *ResolvedDay) (outcome, bool) {
		if src.Holiday == nil {
			return outcome{}, false
		}
		out.HolidayName = src.Holiday.Name
		return outcome{status: StatusHoliday, source: ResolvedFromHoliday}, true
	}},
	{name: ResolvedFromWeekoff, apply: func(_ time.Time, src Sources, _ *ResolvedDay) (outcome, bool) {
		if src.Record == nil || src.Record.Status != StatusWeekoff {
			return outcome{}, false
		}
		return outcome{status: StatusWeekoff, source: ResolvedFromWeekoff}, true
	}},
	{name: ResolvedFromLeave, apply: func(day time.Time, src Sources, out *ResolvedDay) (outcome, bool) {
		match, ok := leave.FirstCovering(src.Leaves, day)
		if !ok {
			return outcome{}, false
		}
		out.LeaveID = match.ID
		return outcome{status: match.Subtype(), source: ResolvedFromLeave}, true
	}},
	{name: ResolvedFromRecord, apply: func(_ time.Time, src Sources, _ *ResolvedDay) (outcome, bool) {
		if src.Record == nil {
			return outcome{}, false
		}
		return outcome{status: src.Record.Status, source: ResolvedFromRecord}, true
	}},
}

// Resolve produces the single authoritative status for one day.
func Resolve(day time.Time, src Sources, th Thresholds) ResolvedDay {
	out := ResolvedDay{
		Date:   DateKey(day),
		Status: StatusAbsent,
		Source: ResolvedFromDefault,
	}
	if src.Record != nil {
		out.EmployeeID = src.Record.EmployeeID
		out.RecordID = src.Record.ID
	}
	if src.Grace != nil {
		out.GraceMinutes = src.Grace.Minutes
	}

	for _, r := range precedence {
		if o, ok := r.apply(day, src, &out); ok {
			out.Status = o.status
			out.Source = o.source
			break
		}
	}

	if src.Record != nil {
		out.TotalHours = recordHours(src.Record)
		if out.Source == ResolvedFromRecord {
			applyTimeFlags(&out, day, src.Record, out.GraceMinutes, th)
		}
	}
	return out
}

func recordHours(rec *Record) *decimal.Decimal {
	if hours := TotalHours(rec.CheckIn, rec.CheckOut); hours != nil {
		return hours
	}
	return rec.TotalHours
}

// applyTimeFlags recomputes lateness from timestamps so grace changes take effect on
// read. A check-in always overrides the stored late flag, which only stands when there
// is no check-in; the same holds for check-out and the early checkout flag. Imported
// "L" cells carry no timestamps and rely on the stored flag.
func applyTimeFlags(out *ResolvedDay, day time.Time, rec *Record, graceMinutes int, th Thresholds) {
	if rec.CheckIn != nil {
		out.IsLate, out.LateMinutes = th.LateBy(day, *rec.CheckIn, graceMinutes)
	} else {
		out.IsLate = rec.IsLate
	}
	if rec.CheckOut != nil {
		out.IsEarlyCheckout = th.LeftEarly(day, *rec.CheckOut)
	} else {
		out.IsEarlyCheckout = rec.IsEarlyCheckout
	}
}
