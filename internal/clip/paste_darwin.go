//go:build darwin

package clip

import (
	"fmt"
	"os/exec"
)

const pasteScript = `tell application "System Events" to keystroke "v" using command down`

// sendPaste presses cmd+v through System Events. The calling process needs
// the Accessibility permission.
func sendPaste() error {
	if out, err := exec.Command("osascript", "-e", pasteScript).CombinedOutput(); err != nil {
		return fmt.Errorf("osascript: %w: %s", err, out)
	}
	return nil
}
