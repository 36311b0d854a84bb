//go:build darwin || linux || windows

package clip

import (
	"bytes"
	"errors"
	"log/slog"
	"time"

	"golang.design/x/clipboard"

	"go.klb.dev/stash/internal/content"
)

const pollInterval = 250 * time.Millisecond

type systemBackend struct {
	echo     echo
	watchCh  chan struct{}
	done     chan struct{}
	lastText []byte
	lastImg  []byte
}

// New returns the system clipboard backend, or an in-memory backend if the
// display environment is unavailable (e.g. a headless server without X11
// or Wayland). clipboard.Init is called here rather than in init() so that
// CLI sub-commands that only talk to the daemon don't trigger the warning.
func New() Backend {
	if err := clipboard.Init(); err != nil {
		slog.Warn("clipboard unavailable, running headless", "err", err)
		return NewMemory()
	}
	b := &systemBackend{
		watchCh:  make(chan struct{}, 1),
		done:     make(chan struct{}),
		lastText: clipboard.Read(clipboard.FmtText),
		lastImg:  clipboard.Read(clipboard.FmtImage),
	}
	go b.poll()
	return b
}

func (b *systemBackend) Name() string { return "system clipboard (poll)" }

// poll compares contents rather than waiting for a change counter so that a
// cleared clipboard is reported as well.
func (b *systemBackend) poll() {
	t := time.NewTicker(pollInterval)
	defer t.Stop()
	for {
		select {
		case <-b.done:
			return
		case <-t.C:
			text := clipboard.Read(clipboard.FmtText)
			img := clipboard.Read(clipboard.FmtImage)
			if !bytes.Equal(text, b.lastText) || !bytes.Equal(img, b.lastImg) {
				b.lastText = text
				b.lastImg = img
				notify(b.watchCh)
			}
		}
	}
}

func (b *systemBackend) Read() (content.Snapshot, error) {
	var snap content.Snapshot
	if text := clipboard.Read(clipboard.FmtText); text != nil {
		snap.Contents = append(snap.Contents, content.Content{Type: content.TypeText, Value: text})
	}
	if img := clipboard.Read(clipboard.FmtImage); img != nil {
		snap.Contents = append(snap.Contents, content.Content{Type: content.TypePNG, Value: img})
	}
	return b.echo.restore(snap), nil
}

// Write puts the first plain text or PNG representation on the clipboard.
// The system clipboard holds one format at a time through this API, so the
// other representations are remembered instead: reading the written one
// back returns all of cs, and re-selecting an item promotes it rather than
// recording a partial copy.
func (b *systemBackend) Write(cs []content.Content) error {
	for _, c := range cs {
		switch c.Type {
		case content.TypeText:
			b.echo.remember(cs, c)
			clipboard.Write(clipboard.FmtText, c.Value)
			return nil
		case content.TypePNG:
			b.echo.remember(cs, c)
			clipboard.Write(clipboard.FmtImage, c.Value)
			return nil
		default:
			slog.Debug("skipping unsupported clipboard type", "type", c.Type)
		}
	}
	return errors.New("no representation the system clipboard supports")
}

func (b *systemBackend) Paste() error { return sendPaste() }

func (b *systemBackend) Watch() <-chan struct{} { return b.watchCh }
func (b *systemBackend) Close()                { close(b.done) }
