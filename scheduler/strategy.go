package scheduler

import (
	"fmt"
	"strings"
)

// Strategy selects the next ready task.
type Strategy uint8

const (
	FIFO Strategy = iota
	PriorityBased
	RoundRobin
)

func (s Strategy) String() string {
	switch s {
	case FIFO:
		return "fifo"
	case PriorityBased:
		return "priority"
	case RoundRobin:
		return "round_robin"
	default:
		return fmt.Sprintf("Strategy(%d)", uint8(s))
	}
}

// ParseStrategy parses the String form of a strategy. Matching is case
// insensitive and accepts "round-robin" and "roundrobin" as well.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fifo", "":
		return FIFO, nil
	case "priority", "priority_based":
		return PriorityBased, nil
	case "round_robin", "round-robin", "roundrobin":
		return RoundRobin, nil
	default:
		return FIFO, fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
}

// ParsePriority parses the String form of a priority.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return PriorityLow, nil
	case "normal", "":
		return PriorityNormal, nil
	case "high":
		return PriorityHigh, nil
	case "critical":
		return PriorityCritical, nil
	default:
		return PriorityNormal, fmt.Errorf("%w: %q", ErrInvalidPriority, s)
	}
}
