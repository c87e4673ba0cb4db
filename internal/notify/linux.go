//go:build linux

package notify

// newPlatformNotifier uses notify-send. Whether a sound plays is up to the
// notification daemon; a reminder with sound is sent as critical.
func newPlatformNotifier() Notifier {
	return &execNotifier{
		bin: "notify-send",
		args: func(title, message string, sound bool) []string {
			urgency := "--urgency=normal"
			if sound {
				urgency = "--urgency=critical"
			}
			return []string{"--app-name=myday", "--category=reminder", urgency, title, message}
		},
	}
}
