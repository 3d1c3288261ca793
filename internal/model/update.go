package model

// Subscribe registers fn to be called after the schedule changes. The
// returned func removes the subscription.
func (s *Schedule) Subscribe(fn func(*Schedule)) (cancel func()) {
	if s.listeners == nil {
		s.listeners = make(map[int]func(*Schedule))
	}
	id := s.nextListen
	s.nextListen++
	s.listeners[id] = fn
	return func() {
		delete(s.listeners, id)
	}
}

// Update is a scoped batch of edits on one schedule. Listeners fire once,
// when the outermost Update ends.
type Update struct {
	s    *Schedule
	done bool
}

// BeginUpdate opens a batch. Field writes made until End are reported as a
// single change. Batches nest.
func (s *Schedule) BeginUpdate() *Update {
	s.updateDepth++
	s.pending = true
	return &Update{s: s}
}

// End closes the batch. Calling End twice is harmless.
func (u *Update) End() {
	if u.done {
		return
	}
	u.done = true
	u.s.updateDepth--
	if u.s.updateDepth == 0 && u.s.pending {
		u.s.pending = false
		u.s.notify()
	}
}

// Update applies fn inside a batch.
func (s *Schedule) Update(fn func(*Schedule)) {
	u := s.BeginUpdate()
	defer u.End()
	fn(s)
}

// Touch reports a change made through direct field writes. Inside a batch
// the notification is deferred to the batch end.
func (s *Schedule) Touch() {
	if s.updateDepth > 0 {
		s.pending = true
		return
	}
	s.notify()
}

func (s *Schedule) notify() {
	for _, fn := range s.listeners {
		fn(s)
	}
}
