package broadcast

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/example/likechat/domain/chat"
)

const (
	defaultBuckets    = 32
	defaultLedgerSize = 1000
)

// Options configures a Hub.
type Options struct {
	// Buckets is the number of lock shards rooms are spread over.
	Buckets int
	// AuthoritativeLikes makes the hub keep a like counter per message and
	// attach the absolute count to relayed toggles.
	AuthoritativeLikes bool
	// LedgerSize caps the like counters kept per room.
	LedgerSize int
	// WriteTimeout bounds each write to a session. Zero means 10s.
	WriteTimeout time.Duration
}

// RoomInfo describes a live room.
type RoomInfo struct {
	Name    string `json:"name"`
	Members int    `json:"members"`
}

type roomState struct {
	members map[string]*Session
	ledger  *likeLedger
}

type bucket struct {
	mu    sync.Mutex
	rooms map[string]*roomState
}

// Hub is the room registry: it tracks which sessions are in which room and
// fans frames out to room members.
type Hub struct {
	buckets      []*bucket
	ledgerSize   int
	writeTimeout time.Duration

	sessMu   sync.RWMutex
	sessions map[string]*Session

	done chan struct{}
}

// NewHub creates a new Hub.
func NewHub(opts Options) *Hub {
	n := opts.Buckets
	if n <= 0 {
		n = defaultBuckets
	}
	buckets := make([]*bucket, n)
	for i := range buckets {
		buckets[i] = &bucket{rooms: make(map[string]*roomState)}
	}

	ledgerSize := 0
	if opts.AuthoritativeLikes {
		ledgerSize = opts.LedgerSize
		if ledgerSize <= 0 {
			ledgerSize = defaultLedgerSize
		}
	}

	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}

	return &Hub{
		buckets:      buckets,
		ledgerSize:   ledgerSize,
		writeTimeout: writeTimeout,
		sessions:     make(map[string]*Session),
		done:         make(chan struct{}),
	}
}

// Run blocks until ctx is cancelled, then closes every session.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	log.Println("[hub] Shutting down...")
	h.closeAllSessions()
	close(h.done)
}

// Wait blocks until the hub has stopped or ctx is done.
func (h *Hub) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) closeAllSessions() {
	h.sessMu.Lock()
	sessions := h.sessions
	h.sessions = make(map[string]*Session)
	h.sessMu.Unlock()

	for _, s := range sessions {
		_ = s.close()
	}
	for _, b := range h.buckets {
		b.mu.Lock()
		b.rooms = make(map[string]*roomState)
		b.mu.Unlock()
	}
}

func (h *Hub) bucketFor(room string) *bucket {
	return h.buckets[xxhash.Sum64String(room)%uint64(len(h.buckets))]
}

// Register adds a connected session to the hub.
func (h *Hub) Register(s *Session) {
	s.writeMu.Lock()
	s.writeTimeout = h.writeTimeout
	s.writeMu.Unlock()

	h.sessMu.Lock()
	h.sessions[s.ID] = s
	h.sessMu.Unlock()
	log.Printf("[hub] Session %s (%s) registered", s.ID, s.Username())
}

// Join puts the session in room, replacing any previous membership, and
// returns the room it was in before ("" if none).
func (h *Hub) Join(s *Session, room, username string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.room
	s.username = username
	if previous == room {
		return previous
	}
	if previous != "" {
		h.removeMember(previous, s.ID)
	}
	h.addMember(room, s)
	s.room = room
	log.Printf("[hub] Session %s joined room %s", s.ID, room)
	return previous
}

// Leave removes the session from room. It reports false when the session
// was not in that room.
func (h *Hub) Leave(s *Session, room string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.room == "" || s.room != room {
		return false
	}
	h.removeMember(room, s.ID)
	s.room = ""
	log.Printf("[hub] Session %s left room %s", s.ID, room)
	return true
}

// Disconnect drops the session and its room membership. It returns the
// room the session was in, if any. Other members are not notified.
func (h *Hub) Disconnect(s *Session) string {
	s.mu.Lock()
	room := s.room
	if room != "" {
		h.removeMember(room, s.ID)
		s.room = ""
	}
	s.mu.Unlock()

	h.sessMu.Lock()
	delete(h.sessions, s.ID)
	h.sessMu.Unlock()

	log.Printf("[hub] Session %s unregistered", s.ID)
	return room
}

func (h *Hub) addMember(room string, s *Session) {
	b := h.bucketFor(room)
	b.mu.Lock()
	defer b.mu.Unlock()

	rs, ok := b.rooms[room]
	if !ok {
		rs = &roomState{members: make(map[string]*Session)}
		if h.ledgerSize > 0 {
			rs.ledger = newLikeLedger(h.ledgerSize)
		}
		b.rooms[room] = rs
	}
	rs.members[s.ID] = s
}

func (h *Hub) removeMember(room, sessionID string) {
	b := h.bucketFor(room)
	b.mu.Lock()
	defer b.mu.Unlock()

	rs, ok := b.rooms[room]
	if !ok {
		return
	}
	delete(rs.members, sessionID)
	if len(rs.members) == 0 {
		delete(b.rooms, room)
	}
}

// Broadcast sends payload as event to every member of room except the
// session with ID exclude. It returns the number of successful deliveries.
func (h *Hub) Broadcast(room, event string, payload any, exclude string) (int, error) {
	frame, err := chat.Encode(event, payload)
	if err != nil {
		return 0, err
	}
	return h.fanOut(h.snapshot(room, exclude), frame), nil
}

// RelayMessage records the message in the like ledger and fans it out to
// the other members of its room.
func (h *Hub) RelayMessage(sender *Session, msg chat.Message) (int, error) {
	if h.ledgerSize > 0 {
		b := h.bucketFor(msg.Room)
		b.mu.Lock()
		if rs, ok := b.rooms[msg.Room]; ok {
			rs.ledger.record(msg.ID, msg.Likes)
		}
		b.mu.Unlock()
	}
	return h.Broadcast(msg.Room, chat.EventChatMessage, msg, sender.ID)
}

// RelayLike applies the toggle to the like ledger and fans it out to the
// other members of its room. The returned toggle carries the absolute count
// when the ledger knows the message.
func (h *Hub) RelayLike(sender *Session, toggle chat.LikeToggle) (chat.LikeToggle, int, error) {
	toggle.Likes = nil
	if h.ledgerSize > 0 {
		b := h.bucketFor(toggle.Room)
		b.mu.Lock()
		if rs, ok := b.rooms[toggle.Room]; ok {
			if likes, known := rs.ledger.apply(toggle.ID, toggle.Delta); known {
				toggle.Likes = &likes
			}
		}
		b.mu.Unlock()
	}
	n, err := h.Broadcast(toggle.Room, chat.EventToggleLike, toggle, sender.ID)
	return toggle, n, err
}

func (h *Hub) snapshot(room, exclude string) []*Session {
	b := h.bucketFor(room)
	b.mu.Lock()
	defer b.mu.Unlock()

	rs, ok := b.rooms[room]
	if !ok {
		return nil
	}
	targets := make([]*Session, 0, len(rs.members))
	for id, s := range rs.members {
		if id != exclude {
			targets = append(targets, s)
		}
	}
	return targets
}

func (h *Hub) fanOut(targets []*Session, frame []byte) int {
	delivered := 0
	for _, s := range targets {
		if err := s.Send(frame); err != nil {
			log.Printf("[hub] Failed to send to session %s: %v", s.ID, err)
			continue
		}
		delivered++
	}
	return delivered
}

// Rooms returns every live room sorted by name.
func (h *Hub) Rooms() []RoomInfo {
	var rooms []RoomInfo
	for _, b := range h.buckets {
		b.mu.Lock()
		for name, rs := range b.rooms {
			rooms = append(rooms, RoomInfo{Name: name, Members: len(rs.members)})
		}
		b.mu.Unlock()
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].Name < rooms[j].Name })
	return rooms
}

// RoomMemberCount returns the number of sessions in a room.
func (h *Hub) RoomMemberCount(room string) int {
	b := h.bucketFor(room)
	b.mu.Lock()
	defer b.mu.Unlock()
	if rs, ok := b.rooms[room]; ok {
		return len(rs.members)
	}
	return 0
}

// LikeCount returns the ledger count for a message, if known.
func (h *Hub) LikeCount(room, messageID string) (int, bool) {
	b := h.bucketFor(room)
	b.mu.Lock()
	defer b.mu.Unlock()
	rs, ok := b.rooms[room]
	if !ok || rs.ledger == nil {
		return 0, false
	}
	likes, ok := rs.ledger.counts[messageID]
	return likes, ok
}

// SessionCount returns the number of connected sessions.
func (h *Hub) SessionCount() int {
	h.sessMu.RLock()
	defer h.sessMu.RUnlock()
	return len(h.sessions)
}

// AuthoritativeLikes reports whether the hub keeps like counters.
func (h *Hub) AuthoritativeLikes() bool {
	return h.ledgerSize > 0
}
