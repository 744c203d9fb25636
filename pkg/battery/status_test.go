package battery

import (
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{"zero", 0, "0 minutes"},
		{"under a minute", 40 * time.Second, "0 minutes"},
		{"one minute", time.Minute, "1 minute"},
		{"minutes only", 42 * time.Minute, "42 minutes"},
		{"one hour", time.Hour, "1 hour"},
		{"hours and minutes", 2*time.Hour + 5*time.Minute, "2 hours, 5 minutes"},
		{"exact hours", 3 * time.Hour, "3 hours"},
		{"negative clamps", -time.Minute, "0 minutes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDuration(tt.d); got != tt.want {
				t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
			}
		})
	}
}

func TestStateFromUPower(t *testing.T) {
	tests := []struct {
		code uint32
		want State
	}{
		{UPowerStateUnknown, StateUnknown},
		{UPowerStateCharging, StateCharging},
		{UPowerStateDischarging, StateDischarging},
		{UPowerStateEmpty, StateUnknown},
		{UPowerStateFullyCharged, StateFull},
		{UPowerStatePendingCharge, StateCharging},
		{UPowerStatePendingDischarge, StateDischarging},
		{42, StateUnknown},
	}
	for _, tt := range tests {
		if got := StateFromUPower(tt.code); got != tt.want {
			t.Errorf("StateFromUPower(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestKnownTransitionKind(t *testing.T) {
	for _, k := range TransitionKinds {
		if !KnownTransitionKind(string(k)) {
			t.Errorf("expected %q to be known", k)
		}
	}
	if KnownTransitionKind("entered-panic") {
		t.Error("expected unknown trigger to be rejected")
	}
}
