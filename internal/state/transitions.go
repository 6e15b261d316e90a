package state

// validTransitions contains the permitted non-emergency transitions in the FSM.
var validTransitions = map[State][]State{
	StateIdle: {
		StateAwaitingPrivateChannel,
	},
	StateAwaitingPrivateChannel: {
		StateAwaitingReply,
		StateCallingRemote,
		StateReplied,
	},
	StateAwaitingReply: {
		StateAwaitingReply,
		StateCallingRemote,
		StatePersisting,
		StateReplied,
	},
	StateCallingRemote: {
		StateAwaitingReply,
		StatePersisting,
		StateReplied,
	},
	StatePersisting: {
		StateAwaitingReply,
		StateReplied,
	},
}

// IsTransitionAllowed reports whether moving from one state to another is valid.
func IsTransitionAllowed(from, to State) bool {
	if to == StateError || to == StateIdle {
		return true
	}

	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}

	for _, state := range allowed {
		if state == to {
			return true
		}
	}

	return false
}
