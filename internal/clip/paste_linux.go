//go:build linux

package clip

import (
	"fmt"
	"os/exec"
)

// sendPaste types ctrl+v into the focused X11 window.
func sendPaste() error {
	path, err := exec.LookPath("xdotool")
	if err != nil {
		return fmt.Errorf("%w: xdotool not found", ErrPasteUnsupported)
	}
	if out, err := exec.Command(path, "key", "--clearmodifiers", "ctrl+v").CombinedOutput(); err != nil {
		return fmt.Errorf("xdotool: %w: %s", err, out)
	}
	return nil
}
