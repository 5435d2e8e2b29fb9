package internal

// Handle is a generational reference to an action stored in an arena.
// A handle outlives its action safely: once the slot is released the
// generation moves on and lookups through the old handle fail.
type Handle struct {
	index uint32
	gen   uint32
}

type slot struct {
	gen    uint32
	action *Action
}

// arena owns every live action of a runtime. Notifiers only hold handles.
type arena struct {
	slots []slot
	free  []uint32
	live  int
}

func (ar *arena) alloc(a *Action) Handle {
	var idx uint32
	if n := len(ar.free); n > 0 {
		idx = ar.free[n-1]
		ar.free = ar.free[:n-1]
	} else {
		ar.slots = append(ar.slots, slot{gen: 1})
		idx = uint32(len(ar.slots) - 1)
	}

	s := &ar.slots[idx]
	s.action = a
	ar.live++

	return Handle{index: idx, gen: s.gen}
}

// get returns the action behind h, or nil if it was released.
func (ar *arena) get(h Handle) *Action {
	if int(h.index) >= len(ar.slots) {
		return nil
	}

	s := &ar.slots[h.index]
	if s.gen != h.gen {
		return nil
	}
	return s.action
}

func (ar *arena) release(h Handle) {
	if ar.get(h) == nil {
		return
	}

	s := &ar.slots[h.index]
	s.action = nil
	s.gen++
	ar.free = append(ar.free, h.index)
	ar.live--
}
