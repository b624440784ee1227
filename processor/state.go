package processor

// State is a point-in-time snapshot of where the processing loop is. It is
// advisory, for logs and tests; the loop never branches on it.
type State int32

const (
	// StateIdle is the gap between iterations, including the wait before a
	// transient failure is retried.
	StateIdle State = iota
	StateFetching
	StateDispatching
	StateCheckpointing
	// StateBackingOff is the idle delay after the feed reported no further
	// results.
	StateBackingOff
	// StateCancelled is terminal.
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateDispatching:
		return "dispatching"
	case StateCheckpointing:
		return "checkpointing"
	case StateBackingOff:
		return "backing-off"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}
