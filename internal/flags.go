package internal

// actionFlags represents the handling state of a pending action
type actionFlags uint8

const (
	flagNone    actionFlags = 0
	flagRunning actionFlags = 1 << iota // a handler is applying the action right now
	flagRearmed                         // the owner marked it dirty again while it was running
)

func (f actionFlags) has(flag actionFlags) bool {
	return f&flag != 0
}

func (f *actionFlags) set(flag actionFlags) {
	*f |= flag
}

func (f *actionFlags) clear(flag actionFlags) {
	*f &^= flag
}
