package config

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/Guanran928/upower-notify/pkg/battery"
)

// ReportScheduleParser is the cron dialect accepted in the reports section.
// Seconds are optional, descriptors like @hourly are allowed.
var ReportScheduleParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Validate checks configuration correctness. It does not mutate the config.
// Unreachable rules are not errors; they produce a warning so the user can
// see why a later rule never fires.
func Validate(c *Config) error {
	if c.Source != SourceDBus && c.Source != SourcePoll {
		return fmt.Errorf("source must be %q or %q, got %q", SourceDBus, SourcePoll, c.Source)
	}

	if c.Source == SourcePoll && c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %d", c.PollInterval)
	}

	if c.CommandTimeout < 0 {
		return fmt.Errorf("command_timeout must not be negative, got %d", c.CommandTimeout)
	}

	t := c.Thresholds
	if t.Critical <= 0 || t.Low > 100 || t.Critical >= t.Low {
		return fmt.Errorf("thresholds must satisfy 0 < critical < low <= 100, got critical=%d low=%d", t.Critical, t.Low)
	}

	for i := range c.Rules {
		if err := validateRule(&c.Rules[i]); err != nil {
			return fmt.Errorf("rule %d: %v", i, err)
		}
	}

	warnShadowedRules(c.Rules)

	for i, r := range c.Reports {
		if _, err := ReportScheduleParser.Parse(r.Schedule); err != nil {
			return fmt.Errorf("report %d: invalid schedule %q: %v", i, r.Schedule, err)
		}
		if err := validateNotification(&c.Reports[i].Notify); err != nil {
			return fmt.Errorf("report %d: %v", i, err)
		}
	}

	return nil
}

func validateRule(r *Rule) error {
	if !battery.KnownTransitionKind(r.On) {
		return fmt.Errorf("unknown trigger %q", r.On)
	}

	if r.Percent != nil {
		p := r.Percent
		if p.Min < 0 || p.Max > 100 || p.Min > p.Max {
			return fmt.Errorf("percent bounds must satisfy 0 <= min <= max <= 100, got min=%d max=%d", p.Min, p.Max)
		}
	}

	if (r.Notify == nil) == (r.Run == nil) {
		return fmt.Errorf("exactly one of notify or run must be set")
	}

	if r.Notify != nil {
		return validateNotification(r.Notify)
	}

	if len(r.Run.Argv) == 0 {
		return fmt.Errorf("run.command must not be empty")
	}
	if r.Run.Timeout < 0 {
		return fmt.Errorf("run.timeout must not be negative, got %d", r.Run.Timeout)
	}

	return nil
}

func validateNotification(n *Notification) error {
	switch n.Urgency {
	case "", "low", "normal", "critical":
	default:
		return fmt.Errorf("urgency must be low, normal or critical, got %q", n.Urgency)
	}

	if n.Summary == "" {
		return fmt.Errorf("notify.summary must not be empty")
	}

	if n.TimeoutMs != nil && *n.TimeoutMs < 0 {
		return fmt.Errorf("notify.timeout_ms must not be negative, got %d", *n.TimeoutMs)
	}

	return nil
}

// warnShadowedRules flags rules that can never fire because an earlier rule
// for the same trigger matches an enclosing percentage range.
func warnShadowedRules(rules []Rule) {
	for i := range rules {
		for j := range rules[:i] {
			if rules[j].On != rules[i].On {
				continue
			}
			if !covers(rules[j].Percent, rules[i].Percent) {
				continue
			}
			logrus.Warnf("rule %d (%s) is unreachable: shadowed by rule %d", i, rules[i].On, j)
			break
		}
	}
}

// covers reports whether range a matches everything range b matches.
// A nil range matches all percentages.
func covers(a, b *Range) bool {
	if a == nil {
		return true
	}
	if b == nil {
		return false
	}
	return a.Min <= b.Min && a.Max >= b.Max
}
