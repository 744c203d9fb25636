package config

import (
	"github.com/sirupsen/logrus"

	"github.com/Guanran928/upower-notify/pkg/battery"
)

// Source selects where battery property changes come from.
const (
	SourceDBus = "dbus" // subscribe to UPower over the system bus
	SourcePoll = "poll" // sample the OS battery interface on an interval
)

const (
	// DefaultDevice is the UPower object path of the first battery.
	DefaultDevice = "/org/freedesktop/UPower/devices/battery_BAT0"

	DefaultAppName         = "upower-notify"
	DefaultLowThreshold    = 20
	DefaultCritThreshold   = 10
	DefaultPollIntervalSec = 10
	// DefaultCommandTimeoutSec bounds how long a rule command may run
	// before it is killed.
	DefaultCommandTimeoutSec = 30
)

// Config is the daemon configuration. It is loaded once at startup and
// never mutated afterwards.
type Config struct {
	// AppName is reported to the notification server.
	AppName string `yaml:"app_name" json:"appName"`
	// Device is the UPower device object path to watch (dbus source only).
	Device string `yaml:"device" json:"device"`
	// Source is either "dbus" or "poll".
	Source string `yaml:"source" json:"source"`
	// PollInterval is the sampling interval in seconds (poll source only).
	PollInterval int `yaml:"poll_interval" json:"pollInterval"`

	Thresholds Thresholds `yaml:"thresholds" json:"thresholds"`

	// Rules are evaluated in order; the first rule matching a transition
	// wins and its action is the only one dispatched.
	Rules []Rule `yaml:"rules" json:"rules"`

	// Reports are optional cron-scheduled status notifications.
	Reports []Report `yaml:"reports" json:"reports,omitempty"`

	// CommandTimeout is the default supervision timeout, in seconds, for
	// rule commands that do not set their own.
	CommandTimeout int `yaml:"command_timeout" json:"commandTimeout"`
}

// Thresholds are the percentage bands driving entered-low and
// entered-critical transitions. Critical must be below low.
type Thresholds struct {
	Low      int `yaml:"low" json:"low"`
	Critical int `yaml:"critical" json:"critical"`
}

// Rule binds a transition trigger to exactly one action.
type Rule struct {
	// On is the trigger name, e.g. "entered-low".
	On string `yaml:"on" json:"on"`
	// Percent optionally restricts the rule to transitions whose
	// percentage falls within the inclusive bounds.
	Percent *Range `yaml:"percent" json:"percent,omitempty"`

	Notify *Notification `yaml:"notify" json:"notify,omitempty"`
	Run    *Command      `yaml:"run" json:"run,omitempty"`
}

// Range is an inclusive percentage interval.
type Range struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}

// Contains reports whether pct falls within the inclusive bounds.
func (r Range) Contains(pct int) bool {
	return pct >= r.Min && pct <= r.Max
}

// Notification describes a desktop notification. Summary and Body may use
// the {percentage}, {state} and {time} placeholders.
type Notification struct {
	Summary string `yaml:"summary" json:"summary"`
	Body    string `yaml:"body" json:"body"`
	Icon    string `yaml:"icon" json:"icon"`
	// Urgency is one of "low", "normal", "critical".
	Urgency string `yaml:"urgency" json:"urgency"`
	// TimeoutMs is the notification expiry in milliseconds. 0 means the
	// notification never expires; unset leaves it to the server.
	TimeoutMs *int `yaml:"timeout_ms" json:"timeoutMs,omitempty"`
}

// Command describes a user command to spawn. Arguments and environment
// values may use the same placeholders as notifications.
type Command struct {
	Argv []string          `yaml:"command" json:"command"`
	Env  map[string]string `yaml:"env" json:"env,omitempty"`
	// Timeout, in seconds, overrides the global command_timeout.
	Timeout int `yaml:"timeout" json:"timeout,omitempty"`
}

// Report schedules a recurring status notification.
type Report struct {
	// Schedule is a cron expression, e.g. "@hourly" or "0 */30 * * * *".
	Schedule string       `yaml:"schedule" json:"schedule"`
	Notify   Notification `yaml:"notify" json:"notify"`
}

// Default returns the built-in configuration, used when no config file
// exists: low and critical discharge warnings (the critical one sticky),
// and charge-resumed / full notices.
func Default() *Config {
	sticky := 0
	halfMinute := 30000
	fiveSeconds := 5000

	return &Config{
		AppName:        DefaultAppName,
		Device:         DefaultDevice,
		Source:         SourceDBus,
		PollInterval:   DefaultPollIntervalSec,
		CommandTimeout: DefaultCommandTimeoutSec,
		Thresholds: Thresholds{
			Low:      DefaultLowThreshold,
			Critical: DefaultCritThreshold,
		},
		Rules: []Rule{
			{
				On: string(battery.EnteredCritical),
				Notify: &Notification{
					Summary:   "Battery critically low",
					Body:      "Shutting down soon unless plugged in. ({percentage}%)",
					Icon:      "battery-caution-symbolic",
					Urgency:   "critical",
					TimeoutMs: &sticky,
				},
			},
			{
				On: string(battery.EnteredLow),
				Notify: &Notification{
					Summary:   "Battery low",
					Body:      "Approximately {time} remaining ({percentage}%)",
					Icon:      "battery-low-symbolic",
					Urgency:   "normal",
					TimeoutMs: &halfMinute,
				},
			},
			{
				On: string(battery.StartedCharging),
				Notify: &Notification{
					Summary:   "Battery charging",
					Body:      "Power connected at {percentage}%",
					Icon:      "battery-good-charging-symbolic",
					Urgency:   "low",
					TimeoutMs: &fiveSeconds,
				},
			},
			{
				On: string(battery.ReachedFull),
				Notify: &Notification{
					Summary:   "Battery full",
					Body:      "Battery is fully charged",
					Icon:      "battery-full-charged-symbolic",
					Urgency:   "low",
					TimeoutMs: &fiveSeconds,
				},
			},
		},
	}
}

// LogrusFields summarizes the config for the startup log line.
func (c *Config) LogrusFields() logrus.Fields {
	return logrus.Fields{
		"device":            c.Device,
		"source":            c.Source,
		"lowThreshold":      c.Thresholds.Low,
		"criticalThreshold": c.Thresholds.Critical,
		"rules":             len(c.Rules),
		"reports":           len(c.Reports),
	}
}
