//go:build linux

package scanner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	mprisPrefix    = "org.mpris.MediaPlayer2."
	mprisPath      = "/org/mpris/MediaPlayer2"
	mprisPlayer    = "org.mpris.MediaPlayer2.Player"
	propertiesGet  = "org.freedesktop.DBus.Properties.Get"
	dbusListNames  = "org.freedesktop.DBus.ListNames"
	statusPlaying  = "Playing"
	metadataArtist = "xesam:artist"
	metadataTitle  = "xesam:title"
)

// MPRISLister reports playing MPRIS players as process records. The process
// name is the bus name suffix and the title is "Artist - Title".
type MPRISLister struct {
	conn    *dbus.Conn
	timeout time.Duration
}

// NewMPRISLister connects to the session bus. A listing gives up on the bus
// after timeout, DefaultCommandTimeout when zero.
func NewMPRISLister(timeout time.Duration) (*MPRISLister, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	return &MPRISLister{conn: conn, timeout: timeout}, nil
}

// List queries every MPRIS player on the bus.
func (m *MPRISLister) List(ctx context.Context) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	var names []string
	err := m.conn.BusObject().CallWithContext(ctx, dbusListNames, 0).Store(&names)
	if err != nil {
		return nil, fmt.Errorf("list bus names: %w", err)
	}

	var records []Record
	for _, name := range names {
		if !strings.HasPrefix(name, mprisPrefix) {
			continue
		}
		obj := m.conn.Object(name, mprisPath)

		var status dbus.Variant
		if err := obj.CallWithContext(ctx, propertiesGet, 0, mprisPlayer, "PlaybackStatus").Store(&status); err != nil {
			continue
		}
		var metadata dbus.Variant
		if err := obj.CallWithContext(ctx, propertiesGet, 0, mprisPlayer, "Metadata").Store(&metadata); err != nil {
			continue
		}

		fields, _ := metadata.Value().(map[string]dbus.Variant)
		statusText, _ := status.Value().(string)
		if rec, ok := mprisRecord(name, statusText, fields); ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

// Close releases the bus connection.
func (m *MPRISLister) Close() error {
	return m.conn.Close()
}

func mprisRecord(busName, status string, metadata map[string]dbus.Variant) (Record, bool) {
	if status != statusPlaying {
		return Record{}, false
	}
	name := strings.TrimPrefix(busName, mprisPrefix)
	// Players with several instances append ".instanceNNN".
	if i := strings.Index(name, ".instance"); i > 0 {
		name = name[:i]
	}

	var artist string
	if v, ok := metadata[metadataArtist]; ok {
		switch a := v.Value().(type) {
		case []string:
			artist = strings.Join(a, ", ")
		case string:
			artist = a
		}
	}
	var title string
	if v, ok := metadata[metadataTitle]; ok {
		title, _ = v.Value().(string)
	}
	if artist == "" || title == "" {
		return Record{}, false
	}
	return Record{ProcessName: name, WindowTitle: artist + " - " + title}, true
}
