package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/chemifol/fieldops/pkg/core/services"
)

// ClockInCmd creates the clockIn command
func ClockInCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clockIn <site> --lat <lat> --lon <lon>",
		Short: "Open a shift on one of your sites",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coords, err := coordsFromFlags(cmd)
			if err != nil {
				return err
			}

			shift, err := services.OpenShift(app.Ctx, app.Database, app.Logger, app.Actor, strings.Join(args, " "), coords, app.Now())
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Clocked in at %s\n", shift.SiteName)
			fmt.Printf("Shift ID: %s\n", shift.ID)
			fmt.Printf("Started:  %s\n\n", formatStamp(shift.StartTime, app.Cfg.Location()))
			return nil
		},
	}
	addCoordFlags(cmd)
	return cmd
}

// ClockOutCmd creates the clockOut command
func ClockOutCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clockOut [shift_id] --lat <lat> --lon <lon>",
		Short: "Close your open shift (admins may pass any shift id)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coords, err := coordsFromFlags(cmd)
			if err != nil {
				return err
			}

			shiftID := ""
			if len(args) > 0 {
				shiftID = args[0]
			} else {
				open, err := services.ActiveShift(app.Ctx, app.Database, app.Actor.Username)
				if err != nil {
					return err
				}
				if open == nil {
					fmt.Println("You have no open shift.")
					return nil
				}
				shiftID = open.ID
			}

			shift, err := services.CloseShift(app.Ctx, app.Database, app.Logger, app.Actor, shiftID, coords, app.Now())
			if err != nil {
				return err
			}

			hours, _ := services.ComputeHours(*shift)
			fmt.Printf("\n✓ Clocked out of %s\n", shift.SiteName)
			fmt.Printf("Worked: %s hours\n\n", formatHours(hours))
			return nil
		},
	}
	addCoordFlags(cmd)
	return cmd
}

// ShiftCmd creates the shift command
func ShiftCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "shift",
		Short: "Show your open shift",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			open, err := services.ActiveShift(app.Ctx, app.Database, app.Actor.Username)
			if err != nil {
				return err
			}
			if open == nil {
				fmt.Println("You are not clocked in.")
				return nil
			}
			elapsed := app.Now().Sub(open.StartTime)
			fmt.Printf("\nClocked in at %s since %s (%s)\n\n",
				open.SiteName, formatStamp(open.StartTime, app.Cfg.Location()), elapsed.Truncate(time.Minute))
			return nil
		},
	}
}

// LogsCmd creates the logs command
func LogsCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show clock-in locations (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, _ := cmd.Flags().GetString("worker")
			site, _ := cmd.Flags().GetString("site")
			date, _ := cmd.Flags().GetString("date")

			filter := services.LogFilter{Username: user, SiteName: site}
			if date != "" {
				day, err := parseDay(date, app.Cfg.Location())
				if err != nil {
					return err
				}
				filter.Date = &day
			}

			shifts, err := services.FilterLogs(app.Ctx, app.Database, app.Logger, app.Actor, filter)
			if err != nil {
				return err
			}

			loc := app.Cfg.Location()
			fmt.Printf("\n%d shifts (* = new)\n\n", len(shifts))
			for _, s := range shifts {
				fmt.Printf("%s %-6s %-12s %-20s %s -> %s  %s\n",
					unseenMark(s.Unseen), s.ID, s.Username, s.SiteName,
					formatStamp(s.StartTime, loc), formatOptionalStamp(s.EndTime, loc),
					mapsLink(s.StartLat, s.StartLon))
			}
			fmt.Println()
			return nil
		},
	}
	cmd.Flags().String("worker", "", "Only this worker")
	cmd.Flags().String("site", "", "Only this site")
	cmd.Flags().String("date", "", "Only shifts started on this day (YYYY-MM-DD)")
	return cmd
}

// HoursCmd creates the hours command
func HoursCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hours",
		Short: "Report worked hours by month or by day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, _ := cmd.Flags().GetString("worker")
			site, _ := cmd.Flags().GetString("site")
			month, _ := cmd.Flags().GetString("month")
			day, _ := cmd.Flags().GetString("day")

			if !app.Actor.IsAdmin() && user == "" {
				user = app.Actor.Username
			}
			filter := services.HoursFilter{Username: user, SiteName: site}
			loc := app.Cfg.Location()
			if day != "" {
				d, err := parseDay(day, loc)
				if err != nil {
					return err
				}
				filter.Day = &d
			} else if month != "" {
				m, err := parseMonth(month, loc)
				if err != nil {
					return err
				}
				filter.Month = &m
			}

			summary, err := services.HoursReport(app.Ctx, app.Database, app.Logger, app.Actor, filter)
			if err != nil {
				return err
			}

			fmt.Println()
			for _, e := range summary.Entries {
				fmt.Printf("%-12s %-20s %s -> %s  %8s\n",
					e.Shift.Username, e.Shift.SiteName,
					formatStamp(e.Shift.StartTime, loc), formatOptionalStamp(e.Shift.EndTime, loc),
					formatHours(e.Hours))
			}
			fmt.Printf("\nTotal: %s hours over %d shifts\n\n", formatHours(summary.Total), len(summary.Entries))
			return nil
		},
	}
	cmd.Flags().String("worker", "", "Only this worker (workers always see their own)")
	cmd.Flags().String("site", "", "Only this site")
	cmd.Flags().String("month", "", "Month (YYYY-MM)")
	cmd.Flags().String("day", "", "Day (YYYY-MM-DD), wins over --month")
	return cmd
}

// CalendarCmd creates the calendar command
func CalendarCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendar <username> <YYYY-MM>",
		Short: "Show a site by day-of-month table of worked hours",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			site, _ := cmd.Flags().GetString("site")
			month, err := parseMonth(args[1], app.Cfg.Location())
			if err != nil {
				return err
			}

			pivot, err := services.AggregateByDay(app.Ctx, app.Database, app.Logger, app.Actor, args[0], site, month)
			if err != nil {
				return err
			}

			printPivot(pivot)
			return nil
		},
	}
	cmd.Flags().String("site", "", "Only this site")
	return cmd
}

func printPivot(pivot *services.DayPivot) {
	fmt.Printf("\n%s - %s\n\n", pivot.Username, pivot.Month.Format("January 2006"))
	if len(pivot.Rows) == 0 {
		fmt.Println("No closed shifts.")
		fmt.Println()
		return
	}

	siteWidth := 20
	for _, row := range pivot.Rows {
		if len(row.Site) > siteWidth {
			siteWidth = len(row.Site)
		}
	}

	fmt.Printf("%-*s", siteWidth+2, "")
	for _, d := range pivot.Days {
		fmt.Printf("%7d", d)
	}
	fmt.Printf("%9s\n", services.TotalColumn)
	fmt.Println(strings.Repeat("-", siteWidth+2+7*len(pivot.Days)+9))

	for _, row := range pivot.Rows {
		fmt.Printf("%-*s", siteWidth+2, row.Site)
		for _, d := range pivot.Days {
			if h, ok := row.Hours[d]; ok {
				fmt.Printf("%7s", formatHours(h))
			} else {
				fmt.Printf("%7s", "")
			}
		}
		fmt.Printf("%9s\n", formatHours(row.Total))
	}
	fmt.Printf("\nTotal: %s hours\n\n", formatHours(pivot.Total))
}

// DeleteShiftCmd creates the deleteShift command
func DeleteShiftCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deleteShift <shift_id>",
		Short: "Delete a shift (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := services.DeleteShift(app.Ctx, app.Database, app.Logger, app.Actor, args[0]); err != nil {
				return err
			}
			fmt.Printf("✓ Shift %s deleted\n", args[0])
			return nil
		},
	}
}
