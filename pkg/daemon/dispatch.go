package daemon

import (
	"context"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Guanran928/upower-notify/pkg/battery"
	"github.com/Guanran928/upower-notify/pkg/config"
	"github.com/Guanran928/upower-notify/pkg/notify"
)

// Dispatcher executes matched rule actions. Dispatch failures are logged
// and swallowed: a failed notification or command must never stop the
// monitoring pipeline.
type Dispatcher struct {
	notifier       notify.Notifier
	commandTimeout time.Duration

	// lastID tracks the live notification per transition kind so a new
	// notification for the same band replaces the old one instead of
	// stacking.
	lastID map[battery.TransitionKind]uint32
}

func NewDispatcher(n notify.Notifier, commandTimeout time.Duration) *Dispatcher {
	return &Dispatcher{
		notifier:       n,
		commandTimeout: commandTimeout,
		lastID:         make(map[battery.TransitionKind]uint32),
	}
}

// Dispatch runs the rule's action for the transition. Commands are handed
// off to a supervised background goroutine; ctx cancellation (daemon
// shutdown) kills anything still running.
func (d *Dispatcher) Dispatch(ctx context.Context, r *config.Rule, tr battery.Transition) {
	switch {
	case r.Notify != nil:
		if err := d.sendNotification(r.Notify, tr); err != nil {
			logrus.WithField("trigger", tr.Kind).Errorf("notification dispatch failed: %v", err)
		}
	case r.Run != nil:
		d.runCommand(ctx, r.Run, tr)
	}
}

// Report delivers a scheduled status notification outside the transition
// pipeline.
func (d *Dispatcher) Report(n *config.Notification, st battery.Status) error {
	_, err := d.notifier.Send(renderNotification(n, st, 0))
	return err
}

func (d *Dispatcher) sendNotification(n *config.Notification, tr battery.Transition) error {
	req := renderNotification(n, tr.Status, d.lastID[tr.Kind])

	id, err := d.notifier.Send(req)
	if err != nil {
		return err
	}
	d.lastID[tr.Kind] = id

	logrus.WithFields(logrus.Fields{
		"trigger": tr.Kind,
		"summary": req.Summary,
		"id":      id,
	}).Debug("notification delivered")

	return nil
}

// runCommand spawns the configured command and returns immediately. A
// goroutine observes the exit status so a hung or slow command cannot stall
// the pipeline; the supervision timeout kills commands that never exit.
func (d *Dispatcher) runCommand(ctx context.Context, c *config.Command, tr battery.Transition) {
	argv := make([]string, len(c.Argv))
	for i, a := range c.Argv {
		argv[i] = expandTemplate(a, tr.Status)
	}

	env := os.Environ()
	for k, v := range c.Env {
		env = append(env, k+"="+expandTemplate(v, tr.Status))
	}

	timeout := d.commandTimeout
	if c.Timeout > 0 {
		timeout = time.Duration(c.Timeout) * time.Second
	}

	logrus.WithFields(logrus.Fields{
		"trigger": tr.Kind,
		"command": strings.Join(argv, " "),
	}).Debug("spawning command")

	go func() {
		cctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		cmd := exec.CommandContext(cctx, argv[0], argv[1:]...)
		cmd.Env = env

		if err := cmd.Start(); err != nil {
			logrus.WithField("trigger", tr.Kind).Errorf("failed to spawn %q: %v", argv[0], err)
			return
		}

		err := cmd.Wait()
		switch {
		case cctx.Err() == context.DeadlineExceeded:
			logrus.WithField("trigger", tr.Kind).Errorf("command %q killed after %s", argv[0], timeout)
		case err != nil:
			logrus.WithField("trigger", tr.Kind).Errorf("command %q failed: %v", argv[0], err)
		default:
			logrus.WithField("trigger", tr.Kind).Debugf("command %q finished", argv[0])
		}
	}()
}

func renderNotification(n *config.Notification, st battery.Status, replacesID uint32) notify.Request {
	return notify.Request{
		Summary:    expandTemplate(n.Summary, st),
		Body:       expandTemplate(n.Body, st),
		Icon:       n.Icon,
		Urgency:    n.Urgency,
		TimeoutMs:  n.TimeoutMs,
		ReplacesID: replacesID,
	}
}

// expandTemplate substitutes the {percentage}, {state} and {time}
// placeholders with values from the snapshot.
func expandTemplate(s string, st battery.Status) string {
	if !strings.Contains(s, "{") {
		return s
	}
	r := strings.NewReplacer(
		"{percentage}", strconv.Itoa(st.Percentage),
		"{state}", st.State.String(),
		"{time}", battery.FormatDuration(st.TimeToEmpty),
	)
	return r.Replace(s)
}
