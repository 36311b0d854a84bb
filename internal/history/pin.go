package history

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrInvalidPin matches violations where a pin is not one lowercase letter.
	ErrInvalidPin = errors.New("pin must be a single lowercase letter")
	// ErrDuplicatePin matches violations where two items share a pin.
	ErrDuplicatePin = errors.New("pin already in use")
)

// PinViolation describes one item that breaks the pin constraints.
type PinViolation struct {
	ItemID string
	Pin    string
	Err    error // ErrInvalidPin or ErrDuplicatePin
}

// ValidationError is returned by Commit (and by repositories) when the
// working set breaks the pin constraints. Nothing is persisted when it is
// returned.
type ValidationError struct {
	Violations []PinViolation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("item %s pin %q: %v", v.ItemID, v.Pin, v.Err))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Is lets errors.Is match the sentinel of any violation.
func (e *ValidationError) Is(target error) bool {
	for _, v := range e.Violations {
		if v.Err == target {
			return true
		}
	}
	return false
}

// ValidPin reports whether pin is acceptable on its own: empty, or exactly
// one of a-z.
func ValidPin(pin string) bool {
	if pin == "" {
		return true
	}
	return len(pin) == 1 && pin[0] >= 'a' && pin[0] <= 'z'
}

// ValidatePins checks every pin in items and the uniqueness of non-empty
// pins. It returns nil or a *ValidationError. Any number of items may hold
// the empty pin.
func ValidatePins(items []*Item) error {
	var violations []PinViolation
	owners := make(map[string][]string)
	for _, it := range items {
		if !ValidPin(it.Pin) {
			violations = append(violations, PinViolation{ItemID: it.ID, Pin: it.Pin, Err: ErrInvalidPin})
			continue
		}
		if it.Pin != "" {
			owners[it.Pin] = append(owners[it.Pin], it.ID)
		}
	}

	pins := make([]string, 0, len(owners))
	for p, ids := range owners {
		if len(ids) > 1 {
			pins = append(pins, p)
		}
	}
	sort.Strings(pins)
	for _, p := range pins {
		for _, id := range owners[p][1:] {
			violations = append(violations, PinViolation{ItemID: id, Pin: p, Err: ErrDuplicatePin})
		}
	}

	if len(violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: violations}
}
