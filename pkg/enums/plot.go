package enums

import "fmt"

// PlotStatus represents the canonical plot_status enum in Postgres.
type PlotStatus string

const (
	PlotStatusAvailable PlotStatus = "AVAILABLE"
	PlotStatusAdvance   PlotStatus = "ADVANCE"
	PlotStatusSold      PlotStatus = "SOLD"
)

var validPlotStatuses = []PlotStatus{
	PlotStatusAvailable,
	PlotStatusAdvance,
	PlotStatusSold,
}

// String implements fmt.Stringer.
func (s PlotStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known PlotStatus.
func (s PlotStatus) IsValid() bool {
	for _, candidate := range validPlotStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParsePlotStatus converts raw input into a PlotStatus.
func ParsePlotStatus(value string) (PlotStatus, error) {
	for _, candidate := range validPlotStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid plot status %q", value)
}
