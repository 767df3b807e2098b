package escrow

import (
	"fmt"
	"strings"
)

type Status string

const (
	StatusHeld           Status = "held"
	StatusPendingRelease Status = "pending_release"
	StatusReleased       Status = "released"
	StatusRefunded       Status = "refunded"
)

// Forward-only custody graph. released and refunded are terminal.
var validNext = map[Status]map[Status]bool{
	StatusHeld:           {StatusPendingRelease: true, StatusRefunded: true},
	StatusPendingRelease: {StatusReleased: true, StatusRefunded: true},
	StatusReleased:       {},
	StatusRefunded:       {},
}

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	_, ok := validNext[s]
	return ok
}

func (s Status) IsTerminal() bool {
	return s == StatusReleased || s == StatusRefunded
}

func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return s, nil
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}
