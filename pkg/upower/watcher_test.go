package upower

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
)

// brokenWatcher returns a watcher with a tiny reconnect budget whose connect
// func fails until failures runs out, then hands back a connection on top of
// an in-memory pipe.
func brokenWatcher(t *testing.T, failures int) (*Watcher, *int) {
	t.Helper()

	attempts := 0
	w := NewWatcher("/org/freedesktop/UPower/devices/battery_BAT0")
	w.maxAttempts = 3
	w.baseDelay = time.Millisecond
	w.connect = func() (*dbus.Conn, error) {
		attempts++
		if attempts <= failures {
			return nil, errors.New("system bus unreachable")
		}
		client, server := net.Pipe()
		t.Cleanup(func() { server.Close() })
		return dbus.NewConn(client)
	}
	return w, &attempts
}

func TestWatcherGivesUpWhenBusStaysUnreachable(t *testing.T) {
	w, attempts := brokenWatcher(t, 100)

	err := w.Run(context.Background())
	if err == nil {
		t.Fatal("expected Run to fail after exhausting the reconnect budget")
	}
	if *attempts != w.maxAttempts {
		t.Errorf("connect attempted %d times, want %d", *attempts, w.maxAttempts)
	}
}

func TestWatcherReconnectsAfterTransientFailure(t *testing.T) {
	w, attempts := brokenWatcher(t, 2)

	if err := w.ensureConnected(context.Background()); err != nil {
		t.Fatalf("ensureConnected() = %v, want recovery within the budget", err)
	}
	if w.conn == nil {
		t.Fatal("no connection kept after a successful reconnect")
	}
	if *attempts != 3 {
		t.Errorf("connect attempted %d times, want 3", *attempts)
	}
	w.closeConn()
}

func TestWatcherStopsReconnectingOnShutdown(t *testing.T) {
	w, _ := brokenWatcher(t, 100)
	w.baseDelay = time.Hour // Run must not sit this out.

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v on shutdown, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run still backing off after cancellation")
	}
}

func TestUpdateFromProperties(t *testing.T) {
	props := map[string]dbus.Variant{
		"Percentage":  dbus.MakeVariant(42.5),
		"State":       dbus.MakeVariant(uint32(2)),
		"TimeToEmpty": dbus.MakeVariant(int64(3600)),
		"IconName":    dbus.MakeVariant("battery-good-symbolic"), // unrelated, skipped
	}

	u := updateFromProperties(props)
	if u.Percentage == nil || *u.Percentage != 42.5 {
		t.Errorf("Percentage = %v, want 42.5", u.Percentage)
	}
	if u.State == nil || *u.State != 2 {
		t.Errorf("State = %v, want 2", u.State)
	}
	if u.TimeToEmpty == nil || *u.TimeToEmpty != 3600 {
		t.Errorf("TimeToEmpty = %v, want 3600", u.TimeToEmpty)
	}
}

func TestUpdateFromPropertiesSkipsWrongTypes(t *testing.T) {
	props := map[string]dbus.Variant{
		"Percentage": dbus.MakeVariant("not a number"),
		"State":      dbus.MakeVariant(uint32(1)),
	}

	u := updateFromProperties(props)
	if u.Percentage != nil {
		t.Errorf("Percentage = %v, want nil for a mistyped value", u.Percentage)
	}
	if u.State == nil || *u.State != 1 {
		t.Errorf("State = %v, want 1", u.State)
	}
}

func TestUpdateFromSignal(t *testing.T) {
	sig := &dbus.Signal{
		Path: dbus.ObjectPath("/org/freedesktop/UPower/devices/battery_BAT0"),
		Name: "org.freedesktop.DBus.Properties.PropertiesChanged",
		Body: []interface{}{
			deviceInterface,
			map[string]dbus.Variant{"Percentage": dbus.MakeVariant(19.0)},
			[]string{},
		},
	}

	u, ok := updateFromSignal(sig)
	if !ok {
		t.Fatal("expected an update from a device PropertiesChanged signal")
	}
	if u.Percentage == nil || *u.Percentage != 19.0 {
		t.Errorf("Percentage = %v, want 19", u.Percentage)
	}
}

func TestUpdateFromSignalSkipsForeignInterfaces(t *testing.T) {
	sig := &dbus.Signal{
		Body: []interface{}{
			"org.freedesktop.NetworkManager",
			map[string]dbus.Variant{"Percentage": dbus.MakeVariant(50.0)},
			[]string{},
		},
	}

	if _, ok := updateFromSignal(sig); ok {
		t.Fatal("expected signals for other interfaces to be skipped")
	}
}

func TestUpdateFromSignalSkipsMalformedBodies(t *testing.T) {
	tests := []struct {
		name string
		sig  *dbus.Signal
	}{
		{"nil signal", nil},
		{"short body", &dbus.Signal{Body: []interface{}{deviceInterface}}},
		{"wrong body types", &dbus.Signal{Body: []interface{}{42, "nope"}}},
		{"no interesting properties", &dbus.Signal{Body: []interface{}{
			deviceInterface,
			map[string]dbus.Variant{"IconName": dbus.MakeVariant("x")},
			[]string{},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := updateFromSignal(tt.sig); ok {
				t.Fatal("expected the signal to be skipped")
			}
		})
	}
}
