package battery

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Normalizer turns raw, possibly partial property updates into complete
// Status snapshots. It keeps the last full snapshot so that properties
// missing from an update are carried over from the previous one.
//
// Malformed device data never produces an error: out-of-range percentages
// are clamped, unrecognized state codes map to StateUnknown, and the
// offending value is logged.
type Normalizer struct {
	last   Status
	seeded bool
}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Apply merges an update into the last known status and returns the
// resulting snapshot, stamped with now.
func (n *Normalizer) Apply(u Update, now time.Time) Status {
	st := n.last
	st.Timestamp = now

	if u.Percentage != nil {
		st.Percentage = clampPercentage(*u.Percentage)
	}

	if u.State != nil {
		state := StateFromUPower(*u.State)
		if state == StateUnknown && *u.State != UPowerStateUnknown {
			logrus.WithField("state", *u.State).Warn("unrecognized battery state code from device")
		}
		st.State = state
	}

	if u.TimeToEmpty != nil {
		secs := *u.TimeToEmpty
		if secs < 0 {
			logrus.WithField("timeToEmpty", secs).Warn("negative time-to-empty from device")
			secs = 0
		}
		st.TimeToEmpty = time.Duration(secs) * time.Second
	}

	n.last = st
	n.seeded = true
	return st
}

// Last returns the most recent snapshot, if any update has been applied yet.
func (n *Normalizer) Last() (Status, bool) {
	return n.last, n.seeded
}

func clampPercentage(pct float64) int {
	if pct < 0 {
		logrus.WithField("percentage", pct).Warn("battery percentage below 0, clamping")
		return 0
	}
	if pct > 100 {
		logrus.WithField("percentage", pct).Warn("battery percentage above 100, clamping")
		return 100
	}
	return int(pct + 0.5)
}
