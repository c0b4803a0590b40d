package broadcast

// likeLedger holds the relay's like count per message for one room.
// Oldest messages are evicted once capacity is reached.
type likeLedger struct {
	capacity int
	counts   map[string]int
	order    []string
}

func newLikeLedger(capacity int) *likeLedger {
	return &likeLedger{
		capacity: capacity,
		counts:   make(map[string]int),
	}
}

func (l *likeLedger) record(id string, likes int) {
	if likes < 0 {
		likes = 0
	}
	if _, ok := l.counts[id]; !ok {
		l.order = append(l.order, id)
	}
	l.counts[id] = likes

	for len(l.order) > l.capacity {
		oldest := l.order[0]
		copy(l.order, l.order[1:])
		l.order = l.order[:len(l.order)-1]
		delete(l.counts, oldest)
	}
}

// apply adds delta to a known message and returns the clamped count.
func (l *likeLedger) apply(id string, delta int) (int, bool) {
	likes, ok := l.counts[id]
	if !ok {
		return 0, false
	}
	likes += delta
	if likes < 0 {
		likes = 0
	}
	l.counts[id] = likes
	return likes, true
}
