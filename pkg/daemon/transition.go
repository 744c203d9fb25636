package daemon

import (
	"github.com/Guanran928/upower-notify/pkg/battery"
	"github.com/Guanran928/upower-notify/pkg/config"
)

// MonitorState is the monitor's only mutable state: the last snapshot and
// the per-band "already notified" flags that debounce repeated events inside
// the same threshold band. There is exactly one instance, owned by the
// monitor goroutine; nothing else writes it.
type MonitorState struct {
	Last battery.Status

	NotifiedCritical bool
	NotifiedLow      bool
}

// detect compares the previous snapshot in ms against next and returns at
// most one transition, updating the notified flags as a side effect.
//
// Precedence, first match wins:
//  1. started-charging (clears both flags)
//  2. started-discharging
//  3. entered-critical (sets both flags: critical implies the low band
//     was passed, so a later event in the same episode must not fire
//     entered-low)
//  4. entered-low
//  5. reached-full (clears both flags: the discharge episode is over)
//  6. exited-low (percentage climbed back above the low threshold while a
//     flag was set; clears both flags)
//
// Anything else, including an identical repeated snapshot or percentage
// jitter within a band, produces no transition.
func detect(ms *MonitorState, next battery.Status, th config.Thresholds) *battery.Transition {
	prev := ms.Last

	switch {
	case next.State == battery.StateCharging && prev.State != battery.StateCharging:
		ms.NotifiedCritical = false
		ms.NotifiedLow = false
		return &battery.Transition{Kind: battery.StartedCharging, Status: next}

	case next.State == battery.StateDischarging && prev.State != battery.StateDischarging:
		return &battery.Transition{Kind: battery.StartedDischarging, Status: next}

	case next.Percentage <= th.Critical && !ms.NotifiedCritical:
		ms.NotifiedCritical = true
		ms.NotifiedLow = true
		return &battery.Transition{Kind: battery.EnteredCritical, Status: next}

	case next.Percentage <= th.Low && !ms.NotifiedLow:
		ms.NotifiedLow = true
		return &battery.Transition{Kind: battery.EnteredLow, Status: next}

	case next.Percentage >= 100 && next.State == battery.StateFull && prev.State != battery.StateFull:
		ms.NotifiedCritical = false
		ms.NotifiedLow = false
		return &battery.Transition{Kind: battery.ReachedFull, Status: next}

	case next.Percentage > th.Low && (ms.NotifiedLow || ms.NotifiedCritical):
		ms.NotifiedCritical = false
		ms.NotifiedLow = false
		return &battery.Transition{Kind: battery.ExitedLow, Status: next}
	}

	return nil
}
