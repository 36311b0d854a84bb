//go:build windows

package clip

func sendPaste() error { return ErrPasteUnsupported }
