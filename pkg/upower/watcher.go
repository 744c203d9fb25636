package upower

import (
	"context"
	"time"

	"github.com/godbus/dbus/v5"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Guanran928/upower-notify/pkg/battery"
)

const (
	upowerService   = "org.freedesktop.UPower"
	deviceInterface = "org.freedesktop.UPower.Device"
	propsInterface  = "org.freedesktop.DBus.Properties"
)

// Reconnect budget for a lost system bus connection. The attempt counter
// resets after a successful reconnect, so only a persistently unreachable
// bus exhausts the budget.
const (
	maxReconnectAttempts = 8
	reconnectBaseDelay   = time.Second
	reconnectMaxDelay    = time.Minute
)

// Watcher subscribes to PropertiesChanged signals of a UPower device on the
// system bus and converts them into battery updates. It owns the bus
// connection: a lost connection is re-established with bounded exponential
// backoff, invisibly to the consumer.
type Watcher struct {
	device  dbus.ObjectPath
	updates chan battery.Update

	// connect is swappable for tests.
	connect func() (*dbus.Conn, error)

	// Reconnect budget, adjustable for tests.
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration

	conn *dbus.Conn
}

func NewWatcher(devicePath string) *Watcher {
	return &Watcher{
		device:  dbus.ObjectPath(devicePath),
		updates: make(chan battery.Update, 16),
		connect: func() (*dbus.Conn, error) {
			return dbus.ConnectSystemBus(dbus.WithSignalHandler(dbus.NewSequentialSignalHandler()))
		},
		maxAttempts: maxReconnectAttempts,
		baseDelay:   reconnectBaseDelay,
		maxDelay:    reconnectMaxDelay,
	}
}

// Updates returns the stream of property changes. The channel is never
// closed; Run returning signals the end of the stream.
func (w *Watcher) Updates() <-chan battery.Update {
	return w.updates
}

// Current reads the full current device properties, connecting to the bus
// if necessary. Used once to seed the monitor state.
func (w *Watcher) Current(ctx context.Context) (battery.Update, error) {
	if err := w.ensureConnected(ctx); err != nil {
		return battery.Update{}, err
	}

	var props map[string]dbus.Variant
	obj := w.conn.Object(upowerService, w.device)
	if err := obj.Call(propsInterface+".GetAll", 0, deviceInterface).Store(&props); err != nil {
		return battery.Update{}, pkgerrors.Wrapf(err, "failed to read properties of %s", w.device)
	}

	return updateFromProperties(props), nil
}

// Run pumps device property changes into Updates until ctx is canceled or
// the reconnect budget is exhausted. It returns nil on cancellation and an
// error when the bus is gone for good.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.closeConn()

	for {
		if err := w.ensureConnected(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		signals := make(chan *dbus.Signal, 16)
		w.conn.Signal(signals)

		err := w.conn.AddMatchSignal(
			dbus.WithMatchInterface(propsInterface),
			dbus.WithMatchObjectPath(w.device),
			dbus.WithMatchMember("PropertiesChanged"),
		)
		if err != nil {
			return pkgerrors.Wrap(err, "failed to subscribe to device property changes")
		}

		logrus.WithField("device", w.device).Debug("subscribed to property changes")

		disconnected := w.pump(ctx, signals)
		if !disconnected {
			return nil
		}

		// The signal channel closed underneath us: the bus connection
		// is gone. Drop it and reconnect.
		logrus.Warn("system bus connection lost, reconnecting")
		w.closeConn()
	}
}

// pump forwards signals to the updates channel. It returns true if the
// signal channel closed (disconnect) and false on context cancellation.
func (w *Watcher) pump(ctx context.Context, signals <-chan *dbus.Signal) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case sig, ok := <-signals:
			if !ok {
				return true
			}
			u, ok := updateFromSignal(sig)
			if !ok {
				continue
			}
			select {
			case w.updates <- u:
			case <-ctx.Done():
				return false
			}
		}
	}
}

func (w *Watcher) ensureConnected(ctx context.Context) error {
	if w.conn != nil {
		return nil
	}

	delay := w.baseDelay
	var lastErr error

	for attempt := 1; ; attempt++ {
		conn, err := w.connect()
		if err == nil {
			w.conn = conn
			return nil
		}
		lastErr = err

		if attempt >= w.maxAttempts {
			break
		}

		logrus.WithFields(logrus.Fields{
			"attempt": attempt,
			"delay":   delay.String(),
		}).Warnf("failed to connect to system bus: %v", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
		if delay > w.maxDelay {
			delay = w.maxDelay
		}
	}

	return pkgerrors.Wrapf(lastErr, "giving up connecting to system bus after %d attempts", w.maxAttempts)
}

func (w *Watcher) closeConn() {
	if w.conn == nil {
		return
	}
	if err := w.conn.Close(); err != nil {
		logrus.Debugf("failed to close bus connection: %v", err)
	}
	w.conn = nil
}

// updateFromSignal extracts a battery update from a PropertiesChanged
// signal. Signals for other interfaces or with malformed bodies are skipped.
func updateFromSignal(sig *dbus.Signal) (battery.Update, bool) {
	if sig == nil || len(sig.Body) < 2 {
		return battery.Update{}, false
	}

	iface, ok := sig.Body[0].(string)
	if !ok || iface != deviceInterface {
		return battery.Update{}, false
	}

	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return battery.Update{}, false
	}

	u := updateFromProperties(changed)
	if u.IsEmpty() {
		return battery.Update{}, false
	}
	return u, true
}

// updateFromProperties picks the properties the monitor cares about out of a
// UPower property map. Values of unexpected types are skipped rather than
// failing the whole update; the device is not trusted.
func updateFromProperties(props map[string]dbus.Variant) battery.Update {
	var u battery.Update

	if v, ok := props["Percentage"]; ok {
		var pct float64
		if err := v.Store(&pct); err == nil {
			u.Percentage = &pct
		} else {
			logrus.Debugf("ignoring Percentage with unexpected type %s", v.Signature())
		}
	}

	if v, ok := props["State"]; ok {
		var state uint32
		if err := v.Store(&state); err == nil {
			u.State = &state
		} else {
			logrus.Debugf("ignoring State with unexpected type %s", v.Signature())
		}
	}

	if v, ok := props["TimeToEmpty"]; ok {
		var tte int64
		if err := v.Store(&tte); err == nil {
			u.TimeToEmpty = &tte
		} else {
			logrus.Debugf("ignoring TimeToEmpty with unexpected type %s", v.Signature())
		}
	}

	return u
}
