package attendance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"opscore/internal/domain/leave"
)

const DefaultMaxRangeDays = 366

type Service struct {
	Store        StoreAPI
	Calendar     CalendarSource
	Thresholds   Thresholds
	MaxRangeDays int
}

func NewService(store StoreAPI, calendar CalendarSource, thresholds Thresholds) *Service {
	return &Service{Store: store, Calendar: calendar, Thresholds: thresholds, MaxRangeDays: DefaultMaxRangeDays}
}

// CivilDate drops the clock and zone, keeping the calendar date as UTC midnight.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *Service) ResolveDay(ctx context.Context, employeeID string, day time.Time) (ResolvedDay, error) {
	days, err := s.ResolveRange(ctx, employeeID, day, day)
	if err != nil {
		return ResolvedDay{}, err
	}
	return days[0], nil
}

// ResolveRange loads every source for the window once and resolves each day in order.
func (s *Service) ResolveRange(ctx context.Context, employeeID string, from, to time.Time) ([]ResolvedDay, error) {
	if strings.TrimSpace(employeeID) == "" {
		return nil, ErrEmployeeRequired
	}
	from, to = CivilDate(from), CivilDate(to)
	if to.Before(from) {
		return nil, ErrInvalidRange
	}
	span, err := leave.CalculateDays(from, to)
	if err != nil {
		return nil, ErrInvalidRange
	}
	if s.MaxRangeDays > 0 && span > s.MaxRangeDays {
		return nil, ErrRangeTooLarge
	}

	records, err := s.Store.ListRecords(ctx, employeeID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	graces, err := s.Store.ListGrace(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load grace periods: %w", err)
	}
	holidays, err := s.Calendar.ListHolidays(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load holidays: %w", err)
	}
	leaves, err := s.Calendar.ApprovedLeaves(ctx, employeeID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load approved leaves: %w", err)
	}

	recordByDay := make(map[string]*Record, len(records))
	for i := range records {
		recordByDay[DateKey(records[i].WorkDate)] = &records[i]
	}
	graceByDay := make(map[string]*GracePeriod, len(graces))
	for i := range graces {
		graceByDay[DateKey(graces[i].Date)] = &graces[i]
	}
	holidayByDay := make(map[string]*leave.Holiday, len(holidays))
	for i := range holidays {
		holidayByDay[DateKey(holidays[i].Date)] = &holidays[i]
	}

	out := make([]ResolvedDay, 0, span)
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		key := DateKey(day)
		resolved := Resolve(day, Sources{
			Holiday: holidayByDay[key],
			Record:  recordByDay[key],
			Leaves:  leaves,
			Grace:   graceByDay[key],
		}, s.Thresholds)
		resolved.EmployeeID = employeeID
		out = append(out, resolved)
	}
	return out, nil
}

func validateInput(input RecordInput) error {
	if strings.TrimSpace(input.EmployeeID) == "" {
		return ErrEmployeeRequired
	}
	if input.Date.IsZero() {
		return ErrDateRequired
	}
	if strings.TrimSpace(input.Status) == "" {
		return ErrStatusRequired
	}
	if !ValidStatus(input.Status) {
		return ErrInvalidStatus
	}
	if input.CheckIn != nil && input.CheckOut != nil && input.CheckOut.Before(*input.CheckIn) {
		return ErrInvalidTimes
	}
	return nil
}

// Upsert is the only path that writes attendance records. Manual edits and bulk
// import both land here.
func (s *Service) Upsert(ctx context.Context, input RecordInput) (Record, error) {
	input.Status = strings.ToLower(strings.TrimSpace(input.Status))
	if err := validateInput(input); err != nil {
		return Record{}, err
	}
	input.Date = CivilDate(input.Date)
	if input.Source == "" {
		input.Source = SourceManual
	}
	if input.TotalHours == nil {
		input.TotalHours = TotalHours(input.CheckIn, input.CheckOut)
	}
	if input.CheckIn != nil {
		grace, err := s.graceMinutes(ctx, input.Date)
		if err != nil {
			return Record{}, err
		}
		input.IsLate, _ = s.Thresholds.LateBy(input.Date, *input.CheckIn, grace)
	}
	if input.CheckOut != nil {
		input.IsEarlyCheckout = s.Thresholds.LeftEarly(input.Date, *input.CheckOut)
	}
	return s.Store.UpsertRecord(ctx, input)
}

// Update applies a manual edit to an existing record and returns the record before
// and after the write.
func (s *Service) Update(ctx context.Context, recordID string, patch RecordPatch) (Record, Record, error) {
	if strings.TrimSpace(patch.Status) == "" {
		return Record{}, Record{}, ErrStatusRequired
	}
	before, err := s.Store.GetRecord(ctx, recordID)
	if err != nil {
		return Record{}, Record{}, err
	}

	input := RecordInput{
		EmployeeID:      before.EmployeeID,
		Date:            before.WorkDate,
		Status:          patch.Status,
		CheckIn:         before.CheckIn,
		CheckOut:        before.CheckOut,
		IsLate:          before.IsLate,
		IsEarlyCheckout: before.IsEarlyCheckout,
		Notes:           before.Notes,
		Source:          SourceManual,
	}
	if patch.CheckIn != nil {
		input.CheckIn = patch.CheckIn
	}
	if patch.CheckOut != nil {
		input.CheckOut = patch.CheckOut
	}
	if patch.IsLate != nil {
		input.IsLate = *patch.IsLate
	}
	if patch.IsEarlyCheckout != nil {
		input.IsEarlyCheckout = *patch.IsEarlyCheckout
	}
	if patch.Notes != nil {
		input.Notes = *patch.Notes
	}
	switch {
	case patch.TotalHours != nil:
		input.TotalHours = patch.TotalHours
	case input.CheckIn == nil || input.CheckOut == nil:
		input.TotalHours = before.TotalHours
	}

	after, err := s.Upsert(ctx, input)
	if err != nil {
		return Record{}, Record{}, err
	}
	return before, after, nil
}

func (s *Service) GetRecord(ctx context.Context, recordID string) (Record, error) {
	return s.Store.GetRecord(ctx, recordID)
}

func (s *Service) DeleteRecord(ctx context.Context, recordID string) (Record, error) {
	return s.Store.DeleteRecord(ctx, recordID)
}

func (s *Service) ListRecords(ctx context.Context, employeeID, month string) ([]Record, error) {
	if strings.TrimSpace(employeeID) == "" {
		return nil, ErrEmployeeRequired
	}
	from, to, err := ParseMonth(month, time.UTC)
	if err != nil {
		return nil, err
	}
	return s.Store.ListRecords(ctx, employeeID, from, to)
}

func (s *Service) graceMinutes(ctx context.Context, day time.Time) (int, error) {
	graces, err := s.Store.ListGrace(ctx, day, day)
	if err != nil {
		return 0, fmt.Errorf("load grace period: %w", err)
	}
	if len(graces) == 0 {
		return 0, nil
	}
	return graces[0].Minutes, nil
}

func (s *Service) GetGrace(ctx context.Context, day time.Time) (GraceStatus, error) {
	day = CivilDate(day)
	graces, err := s.Store.ListGrace(ctx, day, day)
	if err != nil {
		return GraceStatus{}, err
	}
	if len(graces) == 0 {
		return GraceStatus{Date: DateKey(day)}, nil
	}
	return graceStatus(graces[0]), nil
}

// SetGrace replaces the exception for the date. Minutes never stack.
func (s *Service) SetGrace(ctx context.Context, day time.Time, minutes int, reason, createdBy string) (GraceStatus, error) {
	if day.IsZero() {
		return GraceStatus{}, ErrDateRequired
	}
	if minutes <= 0 {
		return GraceStatus{}, ErrInvalidGrace
	}
	saved, err := s.Store.SetGrace(ctx, GracePeriod{
		Date:      CivilDate(day),
		Minutes:   minutes,
		Reason:    strings.TrimSpace(reason),
		CreatedBy: createdBy,
	})
	if err != nil {
		return GraceStatus{}, err
	}
	return graceStatus(saved), nil
}

func (s *Service) ClearGrace(ctx context.Context, day time.Time) error {
	removed, err := s.Store.ClearGrace(ctx, CivilDate(day))
	if err != nil {
		return err
	}
	if !removed {
		return ErrGraceNotFound
	}
	return nil
}

func graceStatus(g GracePeriod) GraceStatus {
	return GraceStatus{
		Date:      DateKey(g.Date),
		Active:    true,
		Minutes:   g.Minutes,
		Reason:    g.Reason,
		CreatedBy: g.CreatedBy,
	}
}
