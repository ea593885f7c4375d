package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/chemifol/fieldops/pkg/core/model"
)

const (
	dateLayout     = "2006-01-02"
	monthLayout    = "2006-01"
	dateTimeLayout = "2006-01-02 15:04"
)

// parseDay reads a YYYY-MM-DD date in loc
func parseDay(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("date must look like %s, got %q", dateLayout, s)
	}
	return t, nil
}

// parseMonth reads a YYYY-MM month in loc
func parseMonth(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(monthLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("month must look like %s, got %q", monthLayout, s)
	}
	return t, nil
}

// coordsFromFlags returns the --lat/--lon fix, or nil when neither was given
func coordsFromFlags(cmd *cobra.Command) (*model.Coordinates, error) {
	latSet := cmd.Flags().Changed("lat")
	lonSet := cmd.Flags().Changed("lon")
	if !latSet && !lonSet {
		return nil, nil
	}
	if latSet != lonSet {
		return nil, fmt.Errorf("--lat and --lon go together")
	}
	lat, _ := cmd.Flags().GetFloat64("lat")
	lon, _ := cmd.Flags().GetFloat64("lon")
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, fmt.Errorf("coordinates out of range: %v, %v", lat, lon)
	}
	return &model.Coordinates{Lat: lat, Lon: lon}, nil
}

func addCoordFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("lat", 0, "GPS latitude")
	cmd.Flags().Float64("lon", 0, "GPS longitude")
}

// splitList splits a comma separated flag value, dropping blanks
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func formatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', 2, 64)
}

func formatStamp(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "-"
	}
	return t.In(loc).Format(dateTimeLayout)
}

func formatOptionalStamp(t *time.Time, loc *time.Location) string {
	if t == nil {
		return "open"
	}
	return formatStamp(*t, loc)
}

func formatCoords(lat, lon float64) string {
	return fmt.Sprintf("%.5f,%.5f", lat, lon)
}

// mapsLink points at the GPS fix on a map
func mapsLink(lat, lon float64) string {
	return fmt.Sprintf("https://maps.google.com/?q=%.6f,%.6f", lat, lon)
}

func unseenMark(unseen bool) string {
	if unseen {
		return "*"
	}
	return " "
}
