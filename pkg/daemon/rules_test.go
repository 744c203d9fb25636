package daemon

import (
	"testing"

	"github.com/Guanran928/upower-notify/pkg/battery"
	"github.com/Guanran928/upower-notify/pkg/config"
)

func notifyRule(on string, summary string) config.Rule {
	return config.Rule{On: on, Notify: &config.Notification{Summary: summary}}
}

func TestMatchRuleFirstMatchWins(t *testing.T) {
	rules := []config.Rule{
		notifyRule("entered-low", "first"),
		notifyRule("entered-low", "second"),
	}

	tr := battery.Transition{Kind: battery.EnteredLow, Status: status(19, battery.StateDischarging)}

	got := matchRule(rules, tr)
	if got == nil || got.Notify.Summary != "first" {
		t.Fatalf("got %+v, want the first rule", got)
	}
}

func TestMatchRuleNoMatch(t *testing.T) {
	rules := []config.Rule{
		notifyRule("entered-critical", "critical"),
	}

	tr := battery.Transition{Kind: battery.StartedCharging, Status: status(50, battery.StateCharging)}

	if got := matchRule(rules, tr); got != nil {
		t.Fatalf("got %+v, want nil", got)
	}
}

func TestMatchRulePercentBounds(t *testing.T) {
	rules := []config.Rule{
		{
			On:      "entered-low",
			Percent: &config.Range{Min: 15, Max: 20},
			Notify:  &config.Notification{Summary: "narrow"},
		},
		notifyRule("entered-low", "fallback"),
	}

	// 19% falls within the first rule's bounds.
	tr := battery.Transition{Kind: battery.EnteredLow, Status: status(19, battery.StateDischarging)}
	if got := matchRule(rules, tr); got == nil || got.Notify.Summary != "narrow" {
		t.Fatalf("got %+v, want the bounded rule", got)
	}

	// 12% misses the bounds; the fallback matches.
	tr.Status = status(12, battery.StateDischarging)
	if got := matchRule(rules, tr); got == nil || got.Notify.Summary != "fallback" {
		t.Fatalf("got %+v, want the fallback rule", got)
	}

	// Bounds are inclusive.
	tr.Status = status(15, battery.StateDischarging)
	if got := matchRule(rules, tr); got == nil || got.Notify.Summary != "narrow" {
		t.Fatalf("got %+v, want the bounded rule at its lower bound", got)
	}
}
