//go:build !darwin && !windows && !linux

package clip

// New returns an in-memory backend; there is no system clipboard to poll.
func New() Backend {
	return NewMemory()
}
