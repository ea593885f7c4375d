package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chemifol/fieldops/pkg/core/model"
	"github.com/chemifol/fieldops/pkg/db"
)

// TotalColumn labels the per-site total of a day pivot
const TotalColumn = "TOTAL"

// ComputeHours returns the worked hours of a closed shift rounded to two
// decimals. ok is false while the shift is open.
func ComputeHours(shift db.Shift) (hours float64, ok bool) {
	if shift.EndTime == nil {
		return 0, false
	}
	return round2(shift.EndTime.Sub(shift.StartTime).Hours()), true
}

// PivotRow holds one site's hours keyed by day of month
type PivotRow struct {
	Site  string
	Hours map[int]float64
	Total float64
}

// DayPivot is a site by day-of-month table of worked hours
type DayPivot struct {
	Username string
	Month    time.Time
	// Days lists every day that has at least one closed shift, ascending
	Days []int
	Rows []PivotRow
	// Total sums every row
	Total float64
}

// AggregateByDay groups the closed shifts of username within month by site
// and day of month. Month boundaries and days are taken in month's location.
// Shifts on the same site and day add up.
func AggregateByDay(ctx context.Context, database db.ShiftStore, logger *zap.Logger, actor model.Actor, username, siteName string, month time.Time) (*DayPivot, error) {
	if err := requireSelfOrAdmin(actor, username); err != nil {
		return nil, err
	}

	loc := month.Location()
	start := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, loc)
	end := start.AddDate(0, 1, 0)

	shifts, err := database.GetShifts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch shifts: %w", err)
	}

	bySite := make(map[string]map[int]float64)
	days := make(map[int]bool)
	for _, s := range shifts {
		if !strings.EqualFold(s.Username, username) {
			continue
		}
		if siteName != "" && !strings.EqualFold(s.SiteName, siteName) {
			continue
		}
		hours, ok := ComputeHours(s)
		if !ok {
			continue
		}
		local := s.StartTime.In(loc)
		if local.Before(start) || !local.Before(end) {
			continue
		}
		if bySite[s.SiteName] == nil {
			bySite[s.SiteName] = make(map[int]float64)
		}
		bySite[s.SiteName][local.Day()] += hours
		days[local.Day()] = true
	}

	pivot := &DayPivot{Username: normalizeUsername(username), Month: start}
	for day := range days {
		pivot.Days = append(pivot.Days, day)
	}
	sort.Ints(pivot.Days)

	for site, hours := range bySite {
		row := PivotRow{Site: site, Hours: make(map[int]float64, len(hours))}
		for day, h := range hours {
			row.Hours[day] = round2(h)
			row.Total += h
		}
		row.Total = round2(row.Total)
		pivot.Total += row.Total
		pivot.Rows = append(pivot.Rows, row)
	}
	pivot.Total = round2(pivot.Total)
	sort.Slice(pivot.Rows, func(i, j int) bool {
		return pivot.Rows[i].Site < pivot.Rows[j].Site
	})

	logger.Debug("Aggregated hours by day",
		zap.String("username", pivot.Username),
		zap.String("month", start.Format("2006-01")),
		zap.Int("sites", len(pivot.Rows)),
		zap.Float64("total", pivot.Total))

	return pivot, nil
}

// HoursFilter selects shifts for an hours report. Day takes precedence over
// Month; with neither set every closed shift is reported.
type HoursFilter struct {
	Username string
	SiteName string
	Month    *time.Time
	Day      *time.Time
}

// HoursEntry is one closed shift with its worked hours
type HoursEntry struct {
	Shift db.Shift
	Hours float64
}

// HoursSummary lists matching closed shifts, newest first, with a grand total
type HoursSummary struct {
	Entries []HoursEntry
	Total   float64
}

// HoursReport lists closed shifts with their hours. Unlike the location view
// it keeps shifts that never got a GPS fix.
func HoursReport(ctx context.Context, database db.ShiftStore, logger *zap.Logger, actor model.Actor, filter HoursFilter) (*HoursSummary, error) {
	if filter.Username == "" {
		if err := requireAdmin(actor); err != nil {
			return nil, err
		}
	} else if err := requireSelfOrAdmin(actor, filter.Username); err != nil {
		return nil, err
	}

	shifts, err := database.GetShifts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch shifts: %w", err)
	}

	summary := &HoursSummary{}
	for _, s := range shifts {
		hours, ok := ComputeHours(s)
		if !ok {
			continue
		}
		if filter.Username != "" && !strings.EqualFold(s.Username, filter.Username) {
			continue
		}
		if filter.SiteName != "" && !strings.EqualFold(s.SiteName, filter.SiteName) {
			continue
		}
		switch {
		case filter.Day != nil:
			if !sameDay(s.StartTime, *filter.Day) {
				continue
			}
		case filter.Month != nil:
			if !sameMonth(s.StartTime, *filter.Month) {
				continue
			}
		}
		summary.Entries = append(summary.Entries, HoursEntry{Shift: s, Hours: hours})
		summary.Total += hours
	}
	summary.Total = round2(summary.Total)

	sort.Slice(summary.Entries, func(i, j int) bool {
		return summary.Entries[i].Shift.StartTime.After(summary.Entries[j].Shift.StartTime)
	})

	logger.Debug("Built hours report",
		zap.String("username", filter.Username),
		zap.Int("shifts", len(summary.Entries)),
		zap.Float64("total", summary.Total))

	return summary, nil
}

func sameMonth(t, ref time.Time) bool {
	ty, tm, _ := t.In(ref.Location()).Date()
	return ty == ref.Year() && tm == ref.Month()
}
