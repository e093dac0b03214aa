//go:build linux

package notify

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	notificationsName = "org.freedesktop.Notifications"
	notificationsPath = dbus.ObjectPath("/org/freedesktop/Notifications")
)

type desktop struct {
	conn *dbus.Conn
	srv  dbus.BusObject
}

// NewDesktop connects to the session bus. It fails when no session bus or
// notification server is reachable.
func NewDesktop() (Sender, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	d := &desktop{conn: conn, srv: conn.Object(notificationsName, notificationsPath)}

	var name, vendor, version, specVersion string
	err = d.srv.Call(notificationsName+".GetServerInformation", 0).
		Store(&name, &vendor, &version, &specVersion)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("notification server: %w", err)
	}
	return d, nil
}

func (d *desktop) Send(m Message) (uint32, error) {
	var id uint32
	err := d.srv.Call(notificationsName+".Notify", 0,
		appName,
		m.Replaces,
		"",
		m.Summary,
		m.Body,
		[]string{},
		hints(m),
		expireMillis(m.Expire),
	).Store(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (d *desktop) Dismiss(id uint32) error {
	if id == 0 {
		return nil
	}
	return d.srv.Call(notificationsName+".CloseNotification", 0, id).Err
}

func (d *desktop) Close() error {
	return d.conn.Close()
}

func hints(m Message) map[string]dbus.Variant {
	h := map[string]dbus.Variant{
		"urgency":       dbus.MakeVariant(byte(m.Urgency)),
		"desktop-entry": dbus.MakeVariant(appName),
	}
	if m.Category != "" {
		h["category"] = dbus.MakeVariant(m.Category)
	}
	return h
}
