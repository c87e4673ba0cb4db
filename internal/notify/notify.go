// Package notify sends desktop notifications for tasks that are coming due.
// It uses osascript on macOS and notify-send on Linux.
package notify

import (
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Notifier sends desktop notifications.
type Notifier interface {
	Send(title, message string) error
	SendWithSound(title, message string) error
	IsSupported() bool
}

type noopNotifier struct{}

func (noopNotifier) Send(title, message string) error          { return nil }
func (noopNotifier) SendWithSound(title, message string) error { return nil }
func (noopNotifier) IsSupported() bool                         { return false }

// New returns the platform notifier, or a no-op one where notifications are
// unavailable.
func New() Notifier {
	n := newPlatformNotifier()
	if n == nil || !n.IsSupported() {
		return noopNotifier{}
	}
	return n
}

// execNotifier runs a desktop notification command.
type execNotifier struct {
	bin  string
	args func(title, message string, sound bool) []string
}

func (n *execNotifier) Send(title, message string) error {
	return n.run(title, message, false)
}

func (n *execNotifier) SendWithSound(title, message string) error {
	return n.run(title, message, true)
}

func (n *execNotifier) IsSupported() bool {
	_, err := exec.LookPath(n.bin)
	return err == nil
}

func (n *execNotifier) run(title, message string, sound bool) error {
	if out, err := exec.Command(n.bin, n.args(title, message, sound)...).CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", n.bin, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Config holds reminder settings.
type Config struct {
	Enabled bool `yaml:"enabled"`
	Sound   bool `yaml:"sound"`

	// LeadTime is how long before a timed due date the reminder fires.
	LeadTime time.Duration `yaml:"lead_time,omitempty"`

	// Interval is how often due dates are checked.
	Interval time.Duration `yaml:"interval,omitempty"`
}

// DefaultConfig returns reminders switched off with a 15 minute lead.
func DefaultConfig() Config {
	return Config{
		LeadTime: 15 * time.Minute,
		Interval: time.Minute,
	}
}

// escapeAppleScript escapes backslashes and quotes for an AppleScript
// string literal.
func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
