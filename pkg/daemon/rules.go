package daemon

import (
	"github.com/Guanran928/upower-notify/pkg/battery"
	"github.com/Guanran928/upower-notify/pkg/config"
)

// matchRule returns the first rule whose trigger matches the transition's
// kind and, when the rule declares percentage bounds, whose bounds contain
// the carried percentage. Returns nil when no rule matches.
func matchRule(rules []config.Rule, tr battery.Transition) *config.Rule {
	for i := range rules {
		r := &rules[i]
		if battery.TransitionKind(r.On) != tr.Kind {
			continue
		}
		if r.Percent != nil && !r.Percent.Contains(tr.Status.Percentage) {
			continue
		}
		return r
	}
	return nil
}
