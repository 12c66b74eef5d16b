package graph

// State is the lifecycle state of a Graph.
type State int

const (
	StateUnconfigured State = iota
	StateConfiguring
	StateConfigured
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "unconfigured"
	case StateConfiguring:
		return "configuring"
	case StateConfigured:
		return "configured"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateConfigured || s == StateFailed
}
