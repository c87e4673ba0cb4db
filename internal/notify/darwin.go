//go:build darwin

package notify

import "fmt"

// newPlatformNotifier uses osascript.
func newPlatformNotifier() Notifier {
	return &execNotifier{
		bin: "osascript",
		args: func(title, message string, sound bool) []string {
			script := fmt.Sprintf(`display notification "%s" with title "%s" subtitle "myday"`,
				escapeAppleScript(message), escapeAppleScript(title))
			if sound {
				script += ` sound name "default"`
			}
			return []string{"-e", script}
		},
	}
}
