package notifications

import (
	"fmt"
	"runtime"

	"github.com/gen2brain/beeep"
	"github.com/godbus/dbus/v5"
)

const appName = "Nursery Advisor"

// Sender delivers a notification to the user
type Sender interface {
	Send(title, message string, urgent bool) error
}

// DesktopSender shows notifications through the platform notifier. On Linux
// urgent alerts go straight to the freedesktop notification service so they
// carry the critical urgency hint and stay on screen.
type DesktopSender struct {
	sound bool
}

// NewDesktopSender creates a sender, optionally beeping with each alert
func NewDesktopSender(sound bool) *DesktopSender {
	return &DesktopSender{sound: sound}
}

// Send shows a notification
func (d *DesktopSender) Send(title, message string, urgent bool) error {
	if d.sound {
		_ = beeep.Beep(beeep.DefaultFreq, beeep.DefaultDuration)
	}

	if urgent && runtime.GOOS == "linux" {
		if err := notifyCritical(title, message); err == nil {
			return nil
		}
		// Fall through to beeep when no session bus is available
	}
	return beeep.Notify(title, message, "")
}

// Freedesktop urgency levels
const (
	urgencyCritical byte = 2
)

// notifyCritical calls org.freedesktop.Notifications.Notify with a critical
// urgency hint and no expiry
func notifyCritical(title, message string) error {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("connecting session bus: %w", err)
	}
	defer func() {
		_ = conn.Close()
	}()

	obj := conn.Object("org.freedesktop.Notifications", "/org/freedesktop/Notifications")
	hints := map[string]dbus.Variant{
		"urgency": dbus.MakeVariant(urgencyCritical),
	}
	call := obj.Call("org.freedesktop.Notifications.Notify", 0,
		appName, uint32(0), "", title, message, []string{}, hints, int32(0))
	if call.Err != nil {
		return fmt.Errorf("sending notification: %w", call.Err)
	}
	return nil
}
