package orders

import (
	"fmt"
	"strings"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusConfirmed  Status = "confirmed"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// Forward-only graph. Skipping ahead past shipped is not allowed, so escrow
// always passes through pending_release before it can be released.
var validNext = map[Status]map[Status]bool{
	StatusPending:    {StatusProcessing: true, StatusConfirmed: true, StatusCancelled: true},
	StatusProcessing: {StatusConfirmed: true, StatusCancelled: true},
	StatusConfirmed:  {StatusShipped: true, StatusCancelled: true},
	StatusShipped:    {StatusDelivered: true},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

var cancellable = map[Status]bool{
	StatusPending:    true,
	StatusProcessing: true,
	StatusConfirmed:  true,
}

// Statuses lists every member of the status set in lifecycle order.
func Statuses() []Status {
	return []Status{StatusPending, StatusProcessing, StatusConfirmed, StatusShipped, StatusDelivered, StatusCancelled}
}

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	_, ok := validNext[s]
	return ok
}

func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

func (s Status) Cancellable() bool {
	return cancellable[s]
}

// ParseStatus normalises raw input into a member of the status set.
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
