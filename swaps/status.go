package swaps

// SwapStatus is the canonical settlement status of a submitted swap.
type SwapStatus string

const (
	StatusDepositing SwapStatus = "depositing"
	StatusSwapping   SwapStatus = "swapping"
	StatusSending    SwapStatus = "sending"
	StatusCompleted  SwapStatus = "completed"
	StatusRefunded   SwapStatus = "refunded"
	StatusFailed     SwapStatus = "failed"
)

// Terminal reports whether no further updates may occur.
func (s SwapStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusRefunded, StatusFailed:
		return true
	}
	return false
}

// statusRank orders the non-terminal progression. Refunded and Failed sit
// outside the ladder: they are reachable from any non-terminal state.
var statusRank = map[SwapStatus]int{
	StatusDepositing: 0,
	StatusSwapping:   1,
	StatusSending:    2,
	StatusCompleted:  3,
}

// CanTransition reports whether a stored status may move to next. Statuses
// only move forward, except the explicit terminal exits to Refunded and
// Failed. Terminal statuses never change, and equal statuses are a no-op.
func (s SwapStatus) CanTransition(next SwapStatus) bool {
	if s.Terminal() || s == next {
		return false
	}
	if next == StatusRefunded || next == StatusFailed {
		return true
	}
	cur, ok := statusRank[s]
	if !ok {
		return false
	}
	nxt, ok := statusRank[next]
	if !ok {
		return false
	}
	return nxt > cur
}
