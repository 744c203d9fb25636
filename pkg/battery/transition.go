package battery

// TransitionKind identifies a qualifying change between two battery snapshots.
// The values double as the trigger names accepted in rule configuration.
type TransitionKind string

const (
	EnteredCritical    TransitionKind = "entered-critical"
	EnteredLow         TransitionKind = "entered-low"
	ExitedLow          TransitionKind = "exited-low"
	ReachedFull        TransitionKind = "reached-full"
	StartedCharging    TransitionKind = "started-charging"
	StartedDischarging TransitionKind = "started-discharging"
)

// TransitionKinds lists every recognized trigger name.
var TransitionKinds = []TransitionKind{
	EnteredCritical,
	EnteredLow,
	ExitedLow,
	ReachedFull,
	StartedCharging,
	StartedDischarging,
}

// KnownTransitionKind reports whether s names a recognized trigger.
func KnownTransitionKind(s string) bool {
	for _, k := range TransitionKinds {
		if string(k) == s {
			return true
		}
	}
	return false
}

// Transition is a single qualifying change, carrying the snapshot that
// triggered it. Produced by the detector, consumed once by the rule matcher.
type Transition struct {
	Kind   TransitionKind
	Status Status
}
