package battery

import (
	"fmt"
	"strings"
	"time"
)

// State is the normalized charging state of a battery device.
type State uint32

const (
	StateUnknown State = iota
	StateCharging
	StateDischarging
	StateFull
)

func (s State) String() string {
	switch s {
	case StateCharging:
		return "Charging"
	case StateDischarging:
		return "Discharging"
	case StateFull:
		return "Full"
	default:
		return "Unknown"
	}
}

// MarshalText makes State render as its name in JSON output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// State codes reported by org.freedesktop.UPower.Device.
const (
	UPowerStateUnknown uint32 = iota
	UPowerStateCharging
	UPowerStateDischarging
	UPowerStateEmpty
	UPowerStateFullyCharged
	UPowerStatePendingCharge
	UPowerStatePendingDischarge
)

// StateFromUPower maps a raw UPower state code to a normalized State.
// Unrecognized codes map to StateUnknown. PendingCharge counts as charging
// (the machine is on wall power) and PendingDischarge as discharging.
func StateFromUPower(code uint32) State {
	switch code {
	case UPowerStateCharging, UPowerStatePendingCharge:
		return StateCharging
	case UPowerStateDischarging, UPowerStatePendingDischarge:
		return StateDischarging
	case UPowerStateFullyCharged:
		return StateFull
	default:
		return StateUnknown
	}
}

// Status is an immutable snapshot of the battery at a point in time.
type Status struct {
	Percentage  int           `json:"percentage"`
	State       State         `json:"state"`
	TimeToEmpty time.Duration `json:"timeToEmpty"`
	Timestamp   time.Time     `json:"timestamp"`
}

// Update is a possibly partial property-change payload from a power source.
// Nil fields were not present in the change notification. Raw state codes use
// the UPower numbering regardless of which source produced the update.
type Update struct {
	Percentage  *float64
	State       *uint32
	TimeToEmpty *int64 // seconds
}

// IsEmpty reports whether the update carries no properties at all.
func (u Update) IsEmpty() bool {
	return u.Percentage == nil && u.State == nil && u.TimeToEmpty == nil
}

// FormatDuration renders a duration as "2 hours, 5 minutes" for use in
// notification bodies. Durations under a minute render as "0 minutes".
func FormatDuration(d time.Duration) string {
	totalSeconds := int64(d.Seconds())
	if totalSeconds < 0 {
		totalSeconds = 0
	}
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60

	var parts []string

	if hours > 0 {
		unit := "hours"
		if hours == 1 {
			unit = "hour"
		}
		parts = append(parts, fmt.Sprintf("%d %s", hours, unit))
	}

	if minutes > 0 {
		unit := "minutes"
		if minutes == 1 {
			unit = "minute"
		}
		parts = append(parts, fmt.Sprintf("%d %s", minutes, unit))
	}

	if len(parts) == 0 {
		return "0 minutes"
	}

	return strings.Join(parts, ", ")
}
