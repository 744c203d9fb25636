package notify

import (
	"time"

	fdnotify "github.com/esiqveland/notify"
	"github.com/godbus/dbus/v5"
	pkgerrors "github.com/pkg/errors"
)

// Request is a fully rendered desktop notification, ready for delivery.
type Request struct {
	Summary string
	Body    string
	Icon    string
	// Urgency is "low", "normal" or "critical"; empty means normal.
	Urgency string
	// TimeoutMs is the expiry in milliseconds; 0 keeps the notification on
	// screen until dismissed, nil leaves the choice to the server.
	TimeoutMs *int
	// ReplacesID replaces a previous notification instead of stacking a
	// new one. Zero creates a new notification.
	ReplacesID uint32
}

// Notifier delivers notifications. Implementations must be safe for use
// from multiple goroutines.
type Notifier interface {
	// Send delivers the notification and returns the server-assigned ID,
	// usable as ReplacesID on a later request.
	Send(r Request) (uint32, error)
}

// DBus delivers notifications to the org.freedesktop.Notifications service
// on the session bus.
type DBus struct {
	conn    *dbus.Conn
	appName string
}

var _ Notifier = (*DBus)(nil)

func NewDBus(appName string) (*DBus, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to connect to session bus")
	}
	return &DBus{conn: conn, appName: appName}, nil
}

func (d *DBus) Send(r Request) (uint32, error) {
	n := fdnotify.Notification{
		AppName:       d.appName,
		ReplacesID:    r.ReplacesID,
		AppIcon:       r.Icon,
		Summary:       r.Summary,
		Body:          r.Body,
		ExpireTimeout: fdnotify.ExpireTimeoutSetByNotificationServer,
	}

	if r.TimeoutMs != nil {
		if *r.TimeoutMs == 0 {
			n.ExpireTimeout = fdnotify.ExpireTimeoutNever
		} else {
			n.ExpireTimeout = time.Duration(*r.TimeoutMs) * time.Millisecond
		}
	}

	switch r.Urgency {
	case "low":
		n.SetUrgency(fdnotify.UrgencyLow)
	case "critical":
		n.SetUrgency(fdnotify.UrgencyCritical)
	default:
		n.SetUrgency(fdnotify.UrgencyNormal)
	}

	id, err := fdnotify.SendNotification(d.conn, n)
	if err != nil {
		return 0, pkgerrors.Wrap(err, "failed to deliver notification")
	}
	return id, nil
}

// Close releases the session bus connection.
func (d *DBus) Close() error {
	return d.conn.Close()
}
